package logger

import (
	"context"

	"go.uber.org/zap"

	"bookingcore/pkg/trace"
)

// NewLogger builds the production zap logger shared by all processes.
func NewLogger() *zap.Logger {
	l, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	return l
}

// WithTrace enriches the logger with the trace id carried by ctx, if any.
func WithTrace(ctx context.Context, logger *zap.Logger) *zap.Logger {
	traceID := trace.FromContext(ctx)
	if traceID != "" {
		return logger.With(zap.String("trace_id", traceID))
	}
	return logger
}
