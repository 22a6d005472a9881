package observability

import (
	"context"
	"fmt"

	"github.com/upb/planning-agent/middleware"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger builds the process-wide zap logger. It is constructed once at
// process start and passed by reference to every component that logs.
func NewLogger(level, format string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	var cfg zap.Config
	switch format {
	case "console":
		cfg = zap.NewDevelopmentConfig()
	case "json":
		cfg = zap.NewProductionConfig()
	default:
		return nil, fmt.Errorf("invalid log format %q", format)
	}

	cfg.Level = zap.NewAtomicLevelAt(lvl)
	// Logs go to stderr so they never interleave with the MCP stdio stream
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}

	return cfg.Build()
}

// WithCorrelation returns the logger bound with the context's correlation ID.
// Every record emitted while servicing one external call carries the same ID.
func WithCorrelation(ctx context.Context, logger *zap.Logger) *zap.Logger {
	if correlationID := middleware.GetCorrelationID(ctx); correlationID != "" {
		return logger.With(zap.String("correlation_id", correlationID))
	}
	return logger
}

// ElapsedField returns a log field with the time spent since the external
// call started
func ElapsedField(ctx context.Context) zap.Field {
	return zap.Duration("call_elapsed", middleware.Elapsed(ctx))
}
