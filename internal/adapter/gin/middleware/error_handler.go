package middleware

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	apperrors "user-crud-service/pkg/errors"
	"user-crud-service/pkg/logger"
)

// ErrorResponse is the body written for every failed request
type ErrorResponse struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
}

// ErrorHandler is the single place errors become responses.
// Handlers attach errors with c.Error and return; the last attached error wins.
func ErrorHandler(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		err := c.Errors.Last().Err
		status := apperrors.StatusOf(err)
		message := apperrors.MessageOf(err)

		l := logger.WithContext(c.Request.Context(), log).With(
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", status),
		)
		if status >= 500 {
			l.Error("request failed", zap.Error(err))
		} else {
			l.Warn("request rejected", zap.String("reason", message))
		}

		c.AbortWithStatusJSON(status, ErrorResponse{
			Status:  status,
			Message: message,
		})
	}
}

// NoRoute attaches the unrouted error for requests no route matches.
func NoRoute() gin.HandlerFunc {
	return func(c *gin.Context) {
		_ = c.Error(apperrors.ErrNoRoute)
	}
}
