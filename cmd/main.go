package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/trustport/compliance-backend/internal/db"
	"github.com/trustport/compliance-backend/internal/handlers"
	"github.com/trustport/compliance-backend/internal/logger"
	"github.com/trustport/compliance-backend/internal/middleware"
	"github.com/trustport/compliance-backend/internal/realtime"
	"github.com/trustport/compliance-backend/internal/repos"
	"github.com/trustport/compliance-backend/internal/server"
	"github.com/trustport/compliance-backend/internal/services"
	"github.com/trustport/compliance-backend/internal/utils"
	"github.com/trustport/compliance-backend/internal/ws"
)

func main() {
	// Logger
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Env
	jwtSecretKey := utils.GetEnv("JWT_SECRET_KEY", "defaultsecret", log)
	accessTokenTTL := utils.GetEnvAsInt("ACCESS_TOKEN_TTL", 3600, log)
	sweepInterval := utils.GetEnvAsDuration("SWEEP_INTERVAL", 5*time.Minute, log)
	pingInterval := utils.GetEnvAsDuration("WS_PING_INTERVAL", 30*time.Second, log)

	// Postgres
	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Error("Postgres init failed", "error", err)
		os.Exit(1)
	}
	if err = postgresService.AutoMigrateAll(); err != nil {
		log.Error("Postgres auto migration failed", "error", err)
		os.Exit(1)
	}
	thePG := postgresService.DB()

	// Repos
	log.Info("Setting up repos...")
	taskRepo := repos.NewTaskRepo(thePG, log)
	userRepo := repos.NewUserRepo(thePG, log)
	companyRepo := repos.NewCompanyRepo(thePG, log)
	catalogRepo := repos.NewFieldCatalogRepo(thePG, log)
	kybRepo := repos.NewKYBResponseRepo(thePG, log)
	ky3pRepo := repos.NewKY3PResponseRepo(thePG, log)
	openBankingRepo := repos.NewOpenBankingResponseRepo(thePG, log)
	cardRepo := repos.NewCardResponseRepo(thePG, log)

	// Hub
	log.Info("Setting up websocket hub...")
	hub := ws.NewHub(log)

	rootCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hub.StartPingLoop(rootCtx, pingInterval)

	// Bus: redis when configured, in-process otherwise.
	var bus services.Bus
	if os.Getenv("REDIS_ADDR") != "" {
		bus, err = services.NewRedisBus(log)
		if err != nil {
			log.Error("Could not init redis bus", "error", err)
			os.Exit(1)
		}
	} else {
		log.Info("REDIS_ADDR not set, using in-process bus")
		bus = services.NewLocalBus()
	}
	defer bus.Close()
	if err := bus.StartForwarder(rootCtx, func(m realtime.TaskUpdate) {
		hub.BroadcastTaskUpdate(rootCtx, m)
	}); err != nil {
		log.Error("Could not start bus forwarder", "error", err)
		os.Exit(1)
	}

	// Services
	log.Info("Setting up services...")
	authService := services.NewAuthService(thePG, log, userRepo, companyRepo, jwtSecretKey, time.Duration(accessTokenTTL)*time.Second)
	progressService := services.NewProgressService(thePG, log, catalogRepo, kybRepo, ky3pRepo, openBankingRepo, cardRepo)
	notifier := services.NewTaskNotifier(log, bus)
	reconcileService := services.NewReconcileService(thePG, log, taskRepo, progressService, notifier)
	taskService := services.NewTaskService(thePG, log, taskRepo, kybRepo, ky3pRepo, openBankingRepo, cardRepo, reconcileService)
	sweepService := services.NewSweepService(thePG, log, taskRepo, reconcileService, sweepInterval)
	sweepService.Start(rootCtx)

	// Handlers
	log.Info("Setting up handlers...")
	authHandler := handlers.NewAuthHandler(authService)
	taskHandler := handlers.NewTaskHandler(log, taskService, reconcileService)
	wsHandler := handlers.NewWSHandler(log, hub, authService)
	healthHandler := handlers.NewHealthHandler(hub)

	// Middleware
	authMiddleware := middleware.NewAuthMiddleware(log, authService)

	// Router
	router := server.NewRouter(server.RouterConfig{
		AuthHandler:    authHandler,
		AuthMiddleware: authMiddleware,
		TaskHandler:    taskHandler,
		WSHandler:      wsHandler,
		HealthHandler:  healthHandler,
		AllowedOrigins: utils.GetEnv("CORS_ALLOWED_ORIGINS", "", log),
	})

	port := utils.GetEnv("PORT", "8080", log)
	log.Info("Server listening", "port", port)
	if err := router.Run(":" + port); err != nil {
		log.Error("Server failed", "error", err)
	}
}
