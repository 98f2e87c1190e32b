package handlers

import (
	"net/http"

	"rag-worker/internal/middleware"
	"rag-worker/internal/services"
	"rag-worker/pkg/errors"

	"github.com/gin-gonic/gin"
)

type IngestionHandler struct {
	Services *services.Services
}

func NewIngestionHandler(services *services.Services) *IngestionHandler {
	return &IngestionHandler{Services: services}
}

type IngestionRequest struct {
	URL string `json:"url" binding:"required"`
}

// Enqueue handles POST /ingestion
func (h *IngestionHandler) Enqueue() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := middleware.UserID(c)
		if !ok {
			c.Error(errors.ErrUnauthorized)
			return
		}

		var req IngestionRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.Error(errors.NewError(errors.ErrValidation.Code, "url is required", errors.ErrValidation.Status))
			return
		}

		resp, err := h.Services.Ingestion.Enqueue(c.Request.Context(), req.URL, userID)
		if err != nil {
			c.Error(err)
			return
		}

		c.JSON(http.StatusAccepted, resp)
	}
}

// GetJob handles GET /ingestion/:job_id
func (h *IngestionHandler) GetJob() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := middleware.UserID(c)
		if !ok {
			c.Error(errors.ErrUnauthorized)
			return
		}

		doc, err := h.Services.Ingestion.GetJob(c.Request.Context(), c.Param("job_id"), userID)
		if err != nil {
			c.Error(err)
			return
		}

		c.JSON(http.StatusOK, doc)
	}
}
