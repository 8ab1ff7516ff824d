package observability

import (
	"io"
	"log/slog"
	"os"
)

// NewLogger returns a JSON logger that stamps trace and span ids on records emitted
// inside an active span.
func NewLogger(env string) *slog.Logger {
	return NewLoggerTo(os.Stdout, env, "eventhub")
}

func NewLoggerTo(w io.Writer, env, service string) *slog.Logger {
	level := slog.LevelInfo

	if env == "dev" {
		level = slog.LevelDebug
	}

	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
	})

	return slog.New(NewTraceHandler(handler)).With(
		slog.String("service", service),
		slog.String("env", env),
	)
}
