package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"sync"
	"testing"
)

func TestVarZeroValueSilent(t *testing.T) {
	var v Var
	l := v.Load()
	if l == nil {
		t.Fatal("Load() on zero Var returned nil")
	}
	if l.Enabled(context.Background(), slog.LevelError) {
		t.Error("zero Var logger is enabled for errors")
	}
}

func TestVarStore(t *testing.T) {
	var v Var
	var buf bytes.Buffer
	custom := slog.New(slog.NewTextHandler(&buf, nil))
	v.Store(custom)
	if v.Load() != custom {
		t.Fatal("Load() did not return the stored logger")
	}
	v.Load().Info("dispatch complete")
	if !strings.Contains(buf.String(), "dispatch complete") {
		t.Errorf("output = %q", buf.String())
	}

	v.Store(nil)
	if v.Load().Enabled(context.Background(), slog.LevelError) {
		t.Error("Store(nil) did not restore the silent logger")
	}
}

func TestVarConcurrent(t *testing.T) {
	var v Var
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			v.Store(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))
		}()
		go func() {
			defer wg.Done()
			v.Load().Debug("concurrent")
		}()
	}
	wg.Wait()
}
