package ffi

import (
	"os"
	"testing"
)

// requireShim skips the test unless DSHOWCAPTURE_SHIM_PATH is set, and fails
// it when the shim named there cannot be loaded.
func requireShim(t testing.TB) {
	t.Helper()
	if os.Getenv(EnvShimPath) == "" {
		t.Skipf("%s not set", EnvShimPath)
	}
	if err := LoadLibrary(); err != nil {
		t.Fatalf("shim library required: %v", err)
	}
}

func newTestEngine(t testing.TB) *Engine {
	t.Helper()
	requireShim(t)
	e, err := NewEngine(nil)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	t.Cleanup(func() { _ = e.Close() })
	return e
}
