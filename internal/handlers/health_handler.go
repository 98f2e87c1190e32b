package handlers

import (
	"net/http"

	"rag-worker/internal/services"

	"github.com/gin-gonic/gin"
)

type HealthHandler struct {
	Services *services.Services
}

func NewHealthHandler(services *services.Services) *HealthHandler {
	return &HealthHandler{Services: services}
}

// Health handles GET /health
func (h *HealthHandler) Health() gin.HandlerFunc {
	return func(c *gin.Context) {
		checks := h.Services.Health.CheckOverall(c.Request.Context())

		status := "ok"
		code := http.StatusOK
		if !services.Healthy(checks) {
			status = "degraded"
			code = http.StatusServiceUnavailable
		}

		body := gin.H{
			"status":  status,
			"service": "rag-worker",
			"checks":  checks,
		}
		if h.Services.Workers != nil {
			body["worker"] = h.Services.Workers.Stats()
		}

		c.JSON(code, body)
	}
}
