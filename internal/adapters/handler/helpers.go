package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/IANDYI/nutrition-service/internal/adapters/middleware"
	"github.com/IANDYI/nutrition-service/internal/core/domain"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// maxBodyBytes limits JSON request bodies
const maxBodyBytes = 1 << 20

// ErrorResponse is the JSON body of every error reply
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

// generateRequestID generates a unique request ID for tracing
func generateRequestID() string {
	return uuid.NewString()
}

// logStructured logs one line per request with its metadata
func logStructured(log *zap.Logger, requestID string, userID uuid.UUID, method, endpoint string, statusCode int, duration time.Duration) {
	fields := []zap.Field{
		zap.String("request_id", requestID),
		zap.String("method", method),
		zap.String("endpoint", endpoint),
		zap.Int("status_code", statusCode),
		zap.Int64("duration_ms", duration.Milliseconds()),
	}
	if userID != uuid.Nil {
		fields = append(fields, zap.String("user_id", userID.String()))
	}

	switch {
	case statusCode >= 500:
		log.Error("http_request", fields...)
	case statusCode >= 400:
		log.Warn("http_request", fields...)
	default:
		log.Info("http_request", fields...)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message, kind string) {
	writeJSON(w, status, ErrorResponse{Error: message, Kind: kind})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(v)
}

// errorStatus maps service errors to an HTTP status, a client message and
// an optional machine-readable kind
func errorStatus(err error) (int, string, string) {
	if kind, ok := domain.LookupErrorKindOf(err); ok {
		switch kind {
		case domain.InvalidBarcode:
			return http.StatusBadRequest, err.Error(), string(kind)
		case domain.NotFound:
			return http.StatusNotFound, err.Error(), string(kind)
		default:
			return http.StatusBadGateway, "food lookup service unavailable, try again", string(kind)
		}
	}
	switch {
	case errors.Is(err, domain.ErrInvalidFoodEntry):
		return http.StatusBadRequest, err.Error(), ""
	case errors.Is(err, domain.ErrDailyLogNotFound):
		return http.StatusNotFound, err.Error(), ""
	}
	return http.StatusInternalServerError, "internal server error", ""
}

// requestScope carries the per-request logging state of a handler call
type requestScope struct {
	log       *zap.Logger
	requestID string
	userID    uuid.UUID
	method    string
	endpoint  string
	start     time.Time
}

func newRequestScope(log *zap.Logger, r *http.Request, endpoint string) *requestScope {
	return &requestScope{
		log:       log,
		requestID: generateRequestID(),
		method:    r.Method,
		endpoint:  endpoint,
		start:     time.Now(),
	}
}

// authenticate reads the user from the context, replying 401 when missing
func (s *requestScope) authenticate(w http.ResponseWriter, r *http.Request) bool {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		s.fail(w, http.StatusUnauthorized, "unauthorized", "", nil)
		return false
	}
	s.userID = userID
	return true
}

func (s *requestScope) ok(w http.ResponseWriter, status int, body any) {
	if body == nil {
		w.WriteHeader(status)
	} else {
		writeJSON(w, status, body)
	}
	logStructured(s.log, s.requestID, s.userID, s.method, s.endpoint, status, time.Since(s.start))
}

func (s *requestScope) fail(w http.ResponseWriter, status int, message, kind string, err error) {
	if err != nil {
		s.log.Debug("request_failed", zap.String("request_id", s.requestID), zap.Error(err))
	}
	writeError(w, status, message, kind)
	logStructured(s.log, s.requestID, s.userID, s.method, s.endpoint, status, time.Since(s.start))
}

func (s *requestScope) serviceError(w http.ResponseWriter, err error) {
	status, message, kind := errorStatus(err)
	if status >= 500 {
		s.log.Error("request_error", zap.String("request_id", s.requestID), zap.Error(err))
	}
	s.fail(w, status, message, kind, err)
}
