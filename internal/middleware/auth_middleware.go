package middleware

import (
	"net/http"

	"rag-worker/internal/auth"
	"rag-worker/pkg/errors"

	"github.com/gin-gonic/gin"
)

// UserIDKey is the gin context key holding the authenticated user id
const UserIDKey = "user_id"

type AuthMiddleware struct {
	tokenService *auth.TokenService
}

func NewAuthMiddleware(tokenService *auth.TokenService) *AuthMiddleware {
	return &AuthMiddleware{tokenService: tokenService}
}

func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, errors.ErrorResponse{
				Error:   errors.ErrUnauthorized.Code,
				Message: "Authorization header is required",
			})
			c.Abort()
			return
		}

		tokenString, err := m.tokenService.ExtractTokenFromHeader(authHeader)
		if err != nil {
			c.JSON(http.StatusUnauthorized, errors.ErrorResponse{
				Error:   errors.ErrUnauthorized.Code,
				Message: err.Error(),
			})
			c.Abort()
			return
		}

		claims, err := m.tokenService.ValidateToken(tokenString)
		if err != nil {
			c.JSON(http.StatusUnauthorized, errors.ErrorResponse{
				Error:   errors.ErrUnauthorized.Code,
				Message: "Invalid or expired token",
			})
			c.Abort()
			return
		}

		c.Set(UserIDKey, claims.UserID)
		c.Set("email", claims.Email)

		c.Next()
	}
}

// UserID returns the authenticated user set by RequireAuth
func UserID(c *gin.Context) (string, bool) {
	v, exists := c.Get(UserIDKey)
	if !exists {
		return "", false
	}
	id, ok := v.(string)
	return id, ok && id != ""
}
