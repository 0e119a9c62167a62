package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/IANDYI/nutrition-service/internal/adapters/fdc"
	"github.com/IANDYI/nutrition-service/internal/adapters/handler"
	"github.com/IANDYI/nutrition-service/internal/adapters/middleware"
	"github.com/IANDYI/nutrition-service/internal/adapters/repository"
	"github.com/IANDYI/nutrition-service/internal/adapters/websocket"
	"github.com/IANDYI/nutrition-service/internal/config"
	"github.com/IANDYI/nutrition-service/internal/core/ports"
	"github.com/IANDYI/nutrition-service/internal/core/services"
	"github.com/IANDYI/nutrition-service/internal/logger"
	"github.com/rs/cors"
	"go.uber.org/zap"
)

func main() {
	if err := logger.Init(); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()
	lg := logger.L()

	// Load configuration
	cfg := config.Load(lg)

	// Connect to database with retry logic
	db, err := config.ConnectDatabase(cfg.DatabaseURL, 5, 2*time.Second, lg)
	if err != nil {
		lg.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if err := config.InitDatabase(db, cfg.DropTablesOnStartup, lg); err != nil {
		lg.Fatal("Failed to initialize database schema", zap.Error(err))
	}

	// Initialize repositories
	sqlRepo := repository.NewSQLRepository(db, cfg.BreakerSettings("database"))

	// FoodData Central lookup client
	fdcClient, err := fdc.NewClient(cfg.FDCBaseURL, cfg.FDCAPIKey, lg,
		fdc.WithHTTPClient(&http.Client{Timeout: cfg.FDCTimeout}),
		fdc.WithBreakerSettings(cfg.BreakerSettings("fdc")),
	)
	if err != nil {
		lg.Fatal("Failed to initialize FDC client", zap.Error(err))
	}

	breakers := map[string]handler.BreakerReporter{"fdc": fdcClient}

	// RabbitMQ publisher is optional: without it daily log updates are only stored
	var publisher ports.DailyLogPublisher
	rabbitMQPublisher, err := repository.NewRabbitMQPublisher(cfg.RabbitMQURL, cfg.DailyLogQueueName, cfg.BreakerSettings("rabbitmq"), lg)
	if err != nil {
		lg.Warn("RabbitMQ publisher unavailable, daily log events disabled", zap.Error(err))
	} else {
		defer rabbitMQPublisher.Close()
		publisher = rabbitMQPublisher
		breakers["rabbitmq"] = rabbitMQPublisher
	}

	// WebSocket hub for live progress pushes
	hubCtx, hubCancel := context.WithCancel(context.Background())
	defer hubCancel()
	hub := websocket.NewHub(lg)
	go hub.Run(hubCtx)

	// Initialize services
	resolver := services.NewBarcodeResolver(fdcClient, lg)
	profileService := services.NewProfileService(sqlRepo, lg)
	foodService := services.NewFoodService(sqlRepo, sqlRepo, resolver, publisher, hub, lg)
	goalsService := services.NewGoalsService(sqlRepo, sqlRepo, sqlRepo, lg)

	// Food entry consumer runs in background alongside the HTTP server
	consumerCtx, consumerCancel := context.WithCancel(context.Background())
	defer consumerCancel()
	foodEntryConsumer, err := repository.NewFoodEntryConsumer(cfg.RabbitMQURL, cfg.FoodEntryQueueName, foodService, lg)
	if err != nil {
		lg.Warn("RabbitMQ food entry consumer unavailable", zap.Error(err))
	} else {
		defer foodEntryConsumer.Close()
		if err := foodEntryConsumer.StartConsuming(consumerCtx); err != nil {
			lg.Error("Food entry consumer error", zap.Error(err))
		}
	}

	// Initialize JWT middleware
	authMiddleware := middleware.NewAuthMiddleware(cfg.JWTPublicKey, lg)
	defer authMiddleware.Stop()

	// Initialize handlers
	settingsHandler := handler.NewSettingsHandler(profileService, lg)
	foodHandler := handler.NewFoodHandler(foodService, lg)
	goalsHandler := handler.NewGoalsHandler(goalsService, lg)
	healthHandler := handler.NewHealthHandler(sqlRepo, breakers)
	wsHandler := handler.NewWebSocketHandler(hub, authMiddleware, foodService, lg)

	// Setup HTTP router
	mux := http.NewServeMux()

	// Health endpoints (OpenShift compatible, no auth required)
	mux.HandleFunc("GET /metrics", handler.Metrics)
	mux.HandleFunc("GET /health", healthHandler.Health)
	mux.HandleFunc("GET /health/ready", healthHandler.Ready)
	mux.HandleFunc("GET /health/live", healthHandler.Live)

	// Settings and targets
	mux.HandleFunc("GET /settings", authMiddleware.RequireAuth(settingsHandler.GetSettings))
	mux.HandleFunc("PUT /settings", authMiddleware.RequireAuth(settingsHandler.SaveSettings))
	mux.HandleFunc("DELETE /settings", authMiddleware.RequireAuth(settingsHandler.ClearSettings))
	mux.HandleFunc("GET /settings/options", settingsHandler.GetOptions)
	mux.HandleFunc("GET /rdi", authMiddleware.RequireAuth(settingsHandler.GetRDI))

	// Food list
	mux.HandleFunc("POST /foods/barcode", authMiddleware.RequireAuth(foodHandler.AddBarcodeFood))
	mux.HandleFunc("GET /foods/lookup/{barcode}", authMiddleware.RequireAuth(foodHandler.LookupBarcode))
	mux.HandleFunc("POST /foods/manual", authMiddleware.RequireAuth(foodHandler.AddManualFood))
	mux.HandleFunc("GET /foods/today", authMiddleware.RequireAuth(foodHandler.TodayFoods))
	mux.HandleFunc("GET /progress/today", authMiddleware.RequireAuth(foodHandler.TodayProgress))

	// Goals and history
	mux.HandleFunc("GET /goals", authMiddleware.RequireAuth(goalsHandler.GetGoals))
	mux.HandleFunc("GET /daily-logs", authMiddleware.RequireAuth(goalsHandler.GetDailyLogs))
	mux.HandleFunc("GET /daily-logs/{date}", authMiddleware.RequireAuth(goalsHandler.GetDailyLog))

	// WebSocket authenticates itself (header or token query parameter)
	mux.HandleFunc("GET /ws/progress", wsHandler.HandleWebSocket)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:         300,
	})

	// Wrap mux with metrics middleware to track all HTTP requests
	router := corsHandler.Handler(middleware.MetricsMiddleware(mux))

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		lg.Info("Starting Nutrition Service", zap.String("port", cfg.Port), zap.String("env", cfg.Environment))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			lg.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	lg.Info("Shutting down server")

	// Stop consuming first so no new entries arrive during shutdown
	consumerCancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		lg.Error("Server forced to shutdown", zap.Error(err))
	}
	hubCancel()

	lg.Info("Server exited")
}
