// Package logging holds the silent-by-default logger shared by the
// compute backends.
package logging

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// nopHandler silently discards all log records.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

var nop = slog.New(nopHandler{})

// Var holds a logger that may be replaced while other goroutines log
// through it. The zero value discards everything.
type Var struct {
	ptr atomic.Pointer[slog.Logger]
}

// Load returns the current logger. It never returns nil.
func (v *Var) Load() *slog.Logger {
	if l := v.ptr.Load(); l != nil {
		return l
	}
	return nop
}

// Store replaces the logger. A nil logger restores the silent default.
func (v *Var) Store(l *slog.Logger) {
	if l == nil {
		l = nop
	}
	v.ptr.Store(l)
}
