package slicer

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
)

// nopHandler is a slog.Handler that silently discards all log records.
// Enabled returns false so callers skip message formatting entirely.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

func newNopLogger() *slog.Logger { return slog.New(nopHandler{}) }

// loggerPtr stores the active logger.
var loggerPtr atomic.Pointer[slog.Logger]

// liveDevices tracks devices owned by open sessions so that SetLogger
// reaches them after they were created.
var (
	liveMu      sync.RWMutex
	liveDevices = make(map[Device]struct{})
)

func init() {
	loggerPtr.Store(newNopLogger())
}

// SetLogger configures the logger for slicer and its sub-packages.
// By default, slicer produces no log output.
//
// SetLogger is safe for concurrent use. Pass nil to restore the silent
// default.
//
// Log levels used by slicer:
//   - [slog.LevelDebug]: per-layer diagnostics (culled submeshes, segment counts)
//   - [slog.LevelInfo]: lifecycle events (model loaded, adapter selected, overhangs)
//   - [slog.LevelWarn]: non-fatal issues (resource release errors)
//
// Example:
//
//	slicer.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
//	    Level: slog.LevelDebug,
//	})))
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = newNopLogger()
	}
	loggerPtr.Store(l)

	liveMu.RLock()
	defer liveMu.RUnlock()
	for d := range liveDevices {
		propagateLogger(d, l)
	}
}

// Logger returns the current logger used by slicer.
// Sub-packages (backend/, gpu/) call this to share the same logger
// configuration without introducing import cycles.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}

// loggerSetter is implemented by devices that accept a logger.
type loggerSetter interface {
	SetLogger(*slog.Logger)
}

func propagateLogger(d Device, l *slog.Logger) {
	if ls, ok := d.(loggerSetter); ok {
		ls.SetLogger(l)
	}
}

func trackDevice(d Device) {
	liveMu.Lock()
	liveDevices[d] = struct{}{}
	liveMu.Unlock()
	propagateLogger(d, Logger())
}

func untrackDevice(d Device) {
	liveMu.Lock()
	delete(liveDevices, d)
	liveMu.Unlock()
}
