package handler

import (
	"net/http"

	"github.com/IANDYI/nutrition-service/internal/adapters/middleware"
	"github.com/IANDYI/nutrition-service/internal/adapters/websocket"
	"github.com/IANDYI/nutrition-service/internal/core/ports"
	"go.uber.org/zap"
)

// WebSocketHandler upgrades clients to the progress push channel
type WebSocketHandler struct {
	hub            *websocket.Hub
	authMiddleware *middleware.AuthMiddleware
	foodService    ports.FoodService
	log            *zap.Logger
}

// NewWebSocketHandler creates a new WebSocket handler
func NewWebSocketHandler(hub *websocket.Hub, authMiddleware *middleware.AuthMiddleware, foodService ports.FoodService, log *zap.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		hub:            hub,
		authMiddleware: authMiddleware,
		foodService:    foodService,
		log:            log,
	}
}

// HandleWebSocket handles GET /ws/progress. Browsers cannot set headers on
// websocket requests, so the token may also come from the token query
// parameter.
func (h *WebSocketHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	scope := newRequestScope(h.log, r, "/ws/progress")

	tokenString := middleware.BearerToken(r)
	if tokenString == "" {
		tokenString = r.URL.Query().Get("token")
	}
	if tokenString == "" {
		scope.fail(w, http.StatusUnauthorized, "unauthorized: missing token", "", nil)
		return
	}

	userID, _, err := h.authMiddleware.Authenticate(tokenString)
	if err != nil {
		scope.fail(w, http.StatusUnauthorized, "unauthorized: invalid token", "", err)
		return
	}
	scope.userID = userID

	conn, err := websocket.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already replied to the client
		h.log.Warn("WebSocket upgrade error", zap.String("request_id", scope.requestID), zap.Error(err))
		return
	}
	logStructured(h.log, scope.requestID, userID, scope.method, scope.endpoint, http.StatusSwitchingProtocols, 0)

	h.hub.Serve(websocket.NewClient(h.hub, conn, userID))

	// initial snapshot so the client does not wait for the next food entry
	if progress, err := h.foodService.TodayProgress(r.Context(), userID); err == nil {
		h.hub.NotifyProgress(userID, progress)
	} else {
		h.log.Warn("Failed to load initial progress", zap.String("user_id", userID.String()), zap.Error(err))
	}
}
