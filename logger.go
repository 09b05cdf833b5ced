package drawloop

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/gogpu/drawloop/internal/gpu"
)

// nopHandler is a slog.Handler that silently discards all log records.
// Enabled returns false so callers skip formatting entirely.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

func newNopLogger() *slog.Logger { return slog.New(nopHandler{}) }

// loggerPtr stores the active logger. Accessed atomically so that
// SetLogger can be called concurrently with logging from any goroutine.
var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	loggerPtr.Store(newNopLogger())
}

// SetLogger configures the logger for drawloop and all its sub-packages.
// By default, drawloop produces no log output. Pass nil to restore the
// silent default.
//
// Log levels used by drawloop:
//   - [slog.LevelDebug]: pipeline state, buffer sizes, dropped frames
//   - [slog.LevelInfo]: lifecycle events (renderer built, adapter opened)
//   - [slog.LevelWarn]: non-fatal issues (resource release errors)
//   - [slog.LevelError]: failed pipeline build, command encoder or submission
//
// Example:
//
//	drawloop.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
//	    Level: slog.LevelDebug,
//	})))
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = newNopLogger()
	}
	loggerPtr.Store(l)
	gpu.SetLogger(l)
}

// Logger returns the current logger used by drawloop.
// Sub-packages (render/, surface/, loop/) call this to share the same
// logger configuration.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}
