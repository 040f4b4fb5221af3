package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// contextKey is the type for values this package stores in a context.
// Using a custom type prevents collisions.
type contextKey string

const (
	loggerCtxKey    = contextKey("logger")
	requestIDCtxKey = contextKey("requestID")
	clientIPCtxKey  = contextKey("clientIP")
)

// StructuredLoggingMiddleware creates a Gin middleware handler that injects
// a request-scoped logger into the request context.
func StructuredLoggingMiddleware(baseLogger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}

		requestLogger := baseLogger.With(
			slog.String("request_id", requestID),
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
		)

		c.Header("X-Request-ID", requestID)

		ctx := WithLogger(c.Request.Context(), requestLogger)
		ctx = WithRequestMeta(ctx, requestID, c.ClientIP())
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		// auth middleware may have enriched the logger further down the chain
		GetLoggerFromCtx(c.Request.Context()).Info("Request completed",
			slog.Int("status", c.Writer.Status()),
			slog.Duration("latency", time.Since(start)),
		)
	}
}

// WithLogger returns a copy of ctx carrying logger.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerCtxKey, logger)
}

// GetLoggerFromCtx retrieves the request-scoped logger from a context.
// It returns the default logger if none is found.
func GetLoggerFromCtx(ctx context.Context) *slog.Logger {
	if ctx == nil {
		return slog.Default()
	}
	if logger, ok := ctx.Value(loggerCtxKey).(*slog.Logger); ok && logger != nil {
		return logger
	}
	return slog.Default()
}

// WithRequestMeta returns a copy of ctx carrying the request id and caller address.
func WithRequestMeta(ctx context.Context, requestID, clientIP string) context.Context {
	ctx = context.WithValue(ctx, requestIDCtxKey, requestID)
	return context.WithValue(ctx, clientIPCtxKey, clientIP)
}

// RequestIDFromCtx returns the request id assigned by StructuredLoggingMiddleware.
func RequestIDFromCtx(ctx context.Context) string {
	id, _ := ctx.Value(requestIDCtxKey).(string)
	return id
}

// ClientIPFromCtx returns the caller address recorded for audit entries.
func ClientIPFromCtx(ctx context.Context) string {
	ip, _ := ctx.Value(clientIPCtxKey).(string)
	return ip
}
