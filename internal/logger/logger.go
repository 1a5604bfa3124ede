package logger

import (
	"log/slog"
	"os"

	"github.com/jwebster45206/combat-engine/internal/config"
	"github.com/jwebster45206/combat-engine/pkg/combat"
)

// Setup configures the global slog logger based on environment. Every record
// carries the name of the process that wrote it.
func Setup(cfg *config.Config, service string) *slog.Logger {
	var handler slog.Handler

	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
		// Source locations only help while developing
		AddSource: cfg.Environment == "development",
	}

	if cfg.Environment == "production" {
		// JSON format for production
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		// Text format for development
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	if service != "" {
		logger = logger.With("service", service)
	}

	// Set as default logger
	slog.SetDefault(logger)

	return logger
}

// WithRequestID adds request ID to logger context
func WithRequestID(logger *slog.Logger, requestID string) *slog.Logger {
	return logger.With("request_id", requestID)
}

// WithCombat tags a logger with the queued request and the combatants it names.
func WithCombat(logger *slog.Logger, requestID string, req combat.Request) *slog.Logger {
	return WithRequestID(logger, requestID).With(
		"attacker_id", req.AttackerID,
		"target_id", req.TargetID,
		"method", req.Method,
	)
}

// WithError adds error to logger context
func WithError(logger *slog.Logger, err error) *slog.Logger {
	if err == nil {
		return logger
	}
	return logger.With("error", err.Error())
}
