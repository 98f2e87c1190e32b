package handlers

import (
	"net/http"

	"rag-worker/internal/models"
	"rag-worker/internal/services"
	"rag-worker/pkg/errors"

	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	Services *services.Services
}

func NewAuthHandler(services *services.Services) *AuthHandler {
	return &AuthHandler{Services: services}
}

// Signup handles POST /auth/signup
func (h *AuthHandler) Signup() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.SignupRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.Error(errors.NewError(errors.ErrValidation.Code, "a valid email and a password of at least 8 characters are required", errors.ErrValidation.Status))
			return
		}

		resp, err := h.Services.Auth.SignUp(c.Request.Context(), &req)
		if err != nil {
			c.Error(err)
			return
		}

		c.JSON(http.StatusCreated, resp)
	}
}

// Login handles POST /auth/login
func (h *AuthHandler) Login() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.LoginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.Error(errors.NewError(errors.ErrValidation.Code, "email and password are required", errors.ErrValidation.Status))
			return
		}

		resp, err := h.Services.Auth.Login(c.Request.Context(), &req)
		if err != nil {
			c.Error(err)
			return
		}

		c.JSON(http.StatusOK, resp)
	}
}
