package software

import (
	"log/slog"

	"github.com/gogpu/bradbury/internal/logging"
)

// logger receives the records of every software device. Device.SetLogger
// replaces it; bradbury.SetLogger reaches it through the renderers.
var logger logging.Var

// slogger returns the current package logger.
// All logging in backend/software goes through this function.
func slogger() *slog.Logger { return logger.Load() }

// setLogger updates the package-level logger.
// Called from Device.SetLogger when bradbury.SetLogger propagates.
func setLogger(l *slog.Logger) { logger.Store(l) }
