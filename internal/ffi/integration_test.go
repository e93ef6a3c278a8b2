package ffi

import (
	"errors"
	"testing"
	"time"

	"github.com/thesyncim/libgodshow/pkg/capture"
	"github.com/thesyncim/libgodshow/pkg/relay"
)

// Integration tests require the shim library and, for capture, a camera.
// Set DSHOWCAPTURE_SHIM_PATH to the path of the shim library.

func TestLoadLibrary(t *testing.T) {
	requireShim(t)
	if !IsLoaded() {
		t.Fatal("Library should be loaded")
	}
	if err := CheckVersion(); err != nil {
		t.Fatalf("CheckVersion: %v", err)
	}
}

func TestEngineEnumerate(t *testing.T) {
	e := newTestEngine(t)

	devices, err := e.EnumerateDevices()
	if err != nil {
		t.Fatalf("EnumerateDevices: %v", err)
	}
	t.Logf("devices (%d):", len(devices))
	for i, d := range devices {
		t.Logf("  %d: %s (%d caps) %s", i, d.Name, len(d.Caps), d.Path)
		for j, c := range d.Caps {
			t.Logf("    %d: %s", j, c)
		}
	}
}

func TestEngineCreateClose_Repeated(t *testing.T) {
	requireShim(t)

	// Create and close many times - verifies no handle or platform leak
	for i := 0; i < 20; i++ {
		e, err := NewEngine(nil)
		if err != nil {
			t.Fatalf("iteration %d: create: %v", i, err)
		}
		if err := e.Close(); err != nil {
			t.Fatalf("iteration %d: close: %v", i, err)
		}
	}
	if refs := platformRefs(); refs != 0 {
		t.Errorf("platform references after close = %d, want 0", refs)
	}
}

func TestSessionCaptureFrames(t *testing.T) {
	e := newTestEngine(t)

	s := capture.NewSession(e, capture.DefaultConfig())
	defer s.Destroy()

	n, err := s.EnumerateDevices()
	if err != nil {
		t.Fatalf("EnumerateDevices: %v", err)
	}
	if n == 0 {
		t.Skip("no capture devices")
	}

	if err := s.StartFrameRate(0, 640, 480, 30); err != nil {
		t.Fatalf("StartFrameRate: %v", err)
	}
	cfg, attempt := s.Configuration()
	t.Logf("capturing via %s: %s", attempt, cfg)

	buf := make([]byte, cfg.FrameSize())
	got := 0
	for i := 0; i < 30 && got < 5; i++ {
		n, err := s.Retrieve(buf, time.Second)
		switch {
		case err == nil:
			got++
			if n == 0 || n > len(buf) {
				t.Fatalf("Retrieve() = %d bytes for a %d byte frame", n, len(buf))
			}
		case errors.Is(err, relay.ErrTimeout):
		default:
			t.Fatalf("Retrieve: %v", err)
		}
	}
	if got == 0 {
		t.Error("no frames captured")
	}

	s.Stop()
	if _, err := s.Retrieve(buf, 10*time.Millisecond); !errors.Is(err, relay.ErrNotCapturing) {
		t.Errorf("Retrieve after Stop error = %v, want %v", err, relay.ErrNotCapturing)
	}
}
