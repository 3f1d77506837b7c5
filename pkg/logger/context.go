package logger

import (
	"context"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// RequestIDHeader carries the request ID between middleware and clients
const RequestIDHeader = "X-Request-ID"

const loggerKey = "logger"

type contextKey struct{}

// FromContext retrieves the logger from the context
func FromContext(ctx context.Context) *zap.Logger {
	if ctx != nil {
		if logger, ok := ctx.Value(contextKey{}).(*zap.Logger); ok {
			return logger
		}
	}
	return GetLogger()
}

// WithContext adds the logger to the context
func WithContext(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, contextKey{}, logger)
}

// FromEcho retrieves the logger from the Echo context with the request ID
func FromEcho(c echo.Context) *zap.Logger {
	if logger, ok := c.Get(loggerKey).(*zap.Logger); ok {
		return logger
	}

	requestID := c.Request().Header.Get(RequestIDHeader)
	if requestID == "" {
		requestID = "unknown"
	}
	return GetLogger().With(zap.String("request_id", requestID))
}

// Attach makes logger the request-scoped logger, reachable from both the echo
// context and the request's context.Context
func Attach(c echo.Context, logger *zap.Logger) {
	c.Set(loggerKey, logger)
	c.SetRequest(c.Request().WithContext(WithContext(c.Request().Context(), logger)))
}
