package handlers

import (
	"rag-worker/cmd/configs"
	"rag-worker/internal/middleware"

	"github.com/gin-gonic/gin"
)

// NewRouter builds the HTTP surface. Only /health and /auth are public.
func NewRouter(cfg *configs.Config, h *Handlers, authMW *middleware.AuthMiddleware) *gin.Engine {
	if cfg.AppEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Global middleware
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(middleware.CORSMiddleware())
	router.Use(middleware.ErrorMiddleware())

	router.GET("/health", h.Health.Health())

	authGroup := router.Group("/auth")
	{
		authGroup.POST("/signup", h.Auth.Signup())
		authGroup.POST("/login", h.Auth.Login())
	}

	protected := router.Group("")
	protected.Use(authMW.RequireAuth())
	{
		protected.POST("/rag-chat", h.Chat.Chat())

		ingestion := protected.Group("/ingestion")
		{
			ingestion.POST("", h.Ingestion.Enqueue())
			ingestion.GET("/:job_id", h.Ingestion.GetJob())
		}
	}

	return router
}
