package gpu

import (
	"log/slog"
	"sync/atomic"
)

var logger atomic.Pointer[slog.Logger]

func init() { SetLogger(nil) }

// slogger is the logger used inside the package. Only the frame encoder's
// drain path logs; building and per-frame encoding stay quiet so the
// renderer decides what a caller sees.
func slogger() *slog.Logger { return logger.Load() }

// Logger returns the logger installed by SetLogger.
func Logger() *slog.Logger { return slogger() }

// SetLogger installs l for the package. drawloop.SetLogger forwards here;
// nil discards everything.
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = slog.New(slog.DiscardHandler)
	}
	logger.Store(l)
}
