package bradbury

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/gogpu/bradbury/backend"
)

// nopHandler is a slog.Handler that silently discards all log records.
// The Enabled method returns false so the caller skips message formatting
// entirely, making disabled logging effectively zero-cost.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

// newNopLogger creates a logger that silently discards all output.
func newNopLogger() *slog.Logger { return slog.New(nopHandler{}) }

// loggerPtr stores the active logger. Accessed atomically so that
// SetLogger can be called concurrently with logging from any goroutine.
var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	loggerPtr.Store(newNopLogger())
}

// devices holds the devices of live renderers so that SetLogger reaches
// them.
var (
	devicesMu sync.Mutex
	devices   = map[backend.Device]int{}
)

// SetLogger configures the logger for bradbury and the devices of all
// live renderers. By default, bradbury produces no log output.
//
// SetLogger is safe for concurrent use. Pass nil to disable logging.
//
// Log levels used by bradbury:
//   - [slog.LevelDebug]: per-frame diagnostics (dispatch shape, skipped publishes)
//   - [slog.LevelInfo]: lifecycle events (renderer created, periodic stats)
//   - [slog.LevelWarn]: non-fatal issues (release errors)
//   - [slog.LevelError]: the render loop stopped on a failed frame
//
// Example:
//
//	bradbury.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
//	    Level: slog.LevelDebug,
//	})))
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = newNopLogger()
	}
	loggerPtr.Store(l)

	devicesMu.Lock()
	defer devicesMu.Unlock()
	for dev := range devices {
		propagateLogger(dev, l)
	}
}

// Logger returns the current logger used by bradbury.
//
// Logger is safe for concurrent use.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}

// loggerSetter is implemented by devices that accept a logger.
type loggerSetter interface {
	SetLogger(*slog.Logger)
}

func propagateLogger(dev backend.Device, l *slog.Logger) {
	if ls, ok := dev.(loggerSetter); ok {
		ls.SetLogger(l)
	}
}

// trackDevice registers a renderer's device for logger propagation and
// hands it the current logger.
func trackDevice(dev backend.Device) {
	devicesMu.Lock()
	defer devicesMu.Unlock()
	devices[dev]++
	propagateLogger(dev, Logger())
}

func untrackDevice(dev backend.Device) {
	devicesMu.Lock()
	defer devicesMu.Unlock()
	if devices[dev]--; devices[dev] <= 0 {
		delete(devices, dev)
	}
}
