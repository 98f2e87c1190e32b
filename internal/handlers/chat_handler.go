package handlers

import (
	"net/http"

	"rag-worker/internal/middleware"
	"rag-worker/internal/services"
	"rag-worker/pkg/errors"

	"github.com/gin-gonic/gin"
)

type ChatHandler struct {
	Services *services.Services
}

func NewChatHandler(services *services.Services) *ChatHandler {
	return &ChatHandler{Services: services}
}

type ChatRequest struct {
	Query string `json:"query" binding:"required"`
}

// Chat handles POST /rag-chat. The answer is grounded on the caller's documents only.
func (h *ChatHandler) Chat() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := middleware.UserID(c)
		if !ok {
			c.Error(errors.ErrUnauthorized)
			return
		}

		var req ChatRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.Error(errors.NewError(errors.ErrValidation.Code, "query is required", errors.ErrValidation.Status))
			return
		}

		answer, err := h.Services.Retrieval.AnswerQuery(c.Request.Context(), req.Query, userID)
		if err != nil {
			c.Error(err)
			return
		}

		c.JSON(http.StatusOK, answer)
	}
}
