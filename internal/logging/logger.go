package logging

import (
	"log/slog"
	"os"
	"strings"
)

// Init configures the global slog logger.
// In production (ENVIRONMENT=production) it uses JSON output for log aggregation.
// Otherwise it uses the human-readable text handler.
func Init() {
	env := strings.ToLower(os.Getenv("ENVIRONMENT"))

	var handler slog.Handler
	if env == "production" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})
	}

	slog.SetDefault(slog.New(handler))
}

// WithTurn returns a logger with turn context fields attached.
// Use this for all logging within a single orchestration turn.
func WithTurn(sessionID string, iteration int) *slog.Logger {
	return slog.With(
		"session_id", sessionID,
		"iteration", iteration,
	)
}

// WithTool returns a logger scoped to a specific tool execution within a turn.
func WithTool(logger *slog.Logger, toolName, category string) *slog.Logger {
	return logger.With(
		"tool", toolName,
		"category", category,
	)
}
