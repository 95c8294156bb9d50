package http

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	apperrors "caesar-in-a-year/internal/common/errors"
	"caesar-in-a-year/internal/domain/user"
)

const (
	userIDKey    = "user_id"
	userIDHeader = "X-User-ID"
)

// AuthRequired resolves the learner id from the X-User-ID header or the
// user_id cookie. The id is opaque and only partitions data.
func AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if id := c.GetHeader(userIDHeader); id != "" {
			c.Set(userIDKey, id)
			c.Next()
			return
		}

		if id, err := c.Cookie(userIDKey); err == nil && id != "" {
			c.Set(userIDKey, id)
			c.Next()
			return
		}

		appErr := apperrors.Unauthorized("missing learner identity")
		c.AbortWithStatusJSON(appErr.Status, appErr)
	}
}

// ErrorHandler catches panics and converts them to an INTERNAL_ERROR response
func ErrorHandler(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Error("panic in handler",
					zap.Any("panic", r),
					zap.String("path", c.Request.URL.Path),
				)
				appErr := apperrors.Internal("internal server error", "")
				c.AbortWithStatusJSON(appErr.Status, appErr)
			}
		}()
		c.Next()
	}
}

// RequestLogger logs each request once it has been served
func RequestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start)
		status := c.Writer.Status()
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status_code", status),
			zap.Int("response_bytes", c.Writer.Size()),
			zap.Duration("duration", duration),
			zap.String("remote_addr", c.ClientIP()),
		}

		switch {
		case status >= 500:
			log.Error("HTTP request completed with error", fields...)
		case status >= 400:
			log.Warn("HTTP request completed with warning", fields...)
		default:
			log.Info("HTTP request completed", fields...)
		}
	}
}

// JSONErrorResponse writes err in the AppError envelope. Errors that are not
// AppErrors are logged and reported as INTERNAL_ERROR without details.
func JSONErrorResponse(c *gin.Context, log *zap.Logger, err error) {
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		log.Error("request failed", zap.String("path", c.Request.URL.Path), zap.Error(err))
		appErr = apperrors.Internal("internal server error", "")
	}
	c.AbortWithStatusJSON(appErr.Status, appErr)
}

func learnerID(c *gin.Context) user.ID {
	return user.ID(c.GetString(userIDKey))
}
