package middleware

import (
	stderrors "errors"
	"net/http"

	"rag-worker/pkg/errors"

	fylogger "github.com/FyersDev/trading-logger-go"
	"github.com/gin-gonic/gin"
)

func ErrorMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}
		err := c.Errors.Last()

		var appErr *errors.AppError
		if stderrors.As(err.Err, &appErr) {
			if appErr.Status >= http.StatusInternalServerError {
				fylogger.ErrorLog(c.Request.Context(), "request failed", appErr, map[string]interface{}{
					"path":   c.FullPath(),
					"method": c.Request.Method,
					"code":   appErr.Code,
				})
			}
			c.JSON(appErr.Status, errors.ErrorResponse{
				Error:   appErr.Code,
				Message: appErr.Message,
			})
			return
		}

		fylogger.ErrorLog(c.Request.Context(), "unhandled request error", err.Err, map[string]interface{}{
			"path":   c.FullPath(),
			"method": c.Request.Method,
		})
		c.JSON(http.StatusInternalServerError, errors.ErrorResponse{
			Error:   errors.ErrInternalServer.Code,
			Message: "Internal server error",
		})
	}
}
