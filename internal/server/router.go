package server

import (
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/trustport/compliance-backend/internal/handlers"
	"github.com/trustport/compliance-backend/internal/middleware"
)

type RouterConfig struct {
	AuthHandler    *handlers.AuthHandler
	AuthMiddleware *middleware.AuthMiddleware
	TaskHandler    *handlers.TaskHandler
	WSHandler      *handlers.WSHandler
	HealthHandler  *handlers.HealthHandler
	AllowedOrigins string
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	origins := []string{"http://localhost:3000", "http://localhost:5173"}
	if cfg.AllowedOrigins != "" {
		origins = strings.Split(cfg.AllowedOrigins, ",")
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	// Public
	router.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	router.POST("/register", cfg.AuthHandler.Register)
	router.POST("/login", cfg.AuthHandler.Login)

	// Websocket authenticates inside the socket.
	router.GET("/ws", cfg.WSHandler.Stream)

	// Protected
	api := router.Group("/api")
	api.Use(cfg.AuthMiddleware.RequireAuth())
	api.GET("/tasks", cfg.TaskHandler.ListTasks)
	api.POST("/tasks", cfg.TaskHandler.CreateTask)
	api.GET("/tasks/:id", cfg.TaskHandler.GetTask)
	api.GET("/tasks/:id/responses", cfg.TaskHandler.ListResponses)
	api.PUT("/tasks/:id/responses/:fieldKey", cfg.TaskHandler.UpsertResponse)
	api.POST("/tasks/:id/reconcile", cfg.TaskHandler.Reconcile)
	api.POST("/tasks/:id/submit", cfg.TaskHandler.Submit)

	return router
}
