package ggboard

import (
	"log/slog"

	"github.com/gogpu/gg"

	"github.com/gogpu/ggboard/internal/logging"
)

// SetLogger configures the logger for ggboard, its sub-packages and the gg
// renderer underneath. By default nothing is logged.
//
// SetLogger is safe for concurrent use. Pass nil to restore silence.
//
// Log levels used by ggboard:
//   - [slog.LevelDebug]: cache evictions, frame timing, rejected edges
//   - [slog.LevelWarn]: image load failures, snapshot and restore errors,
//     pointer capture failures
//
// Example:
//
//	ggboard.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
//	    Level: slog.LevelDebug,
//	})))
func SetLogger(l *slog.Logger) {
	logging.Set(l)
	gg.SetLogger(l)
}

// Logger returns the current logger.
func Logger() *slog.Logger {
	return logging.Logger()
}
