package boundary

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/thesyncim/libgodshow/internal/testutil"
	"github.com/thesyncim/libgodshow/pkg/capture"
	"github.com/thesyncim/libgodshow/pkg/caps"
	"github.com/thesyncim/libgodshow/pkg/format"
)

type fixture struct {
	reg     *Registry
	mu      sync.Mutex
	engines []*testutil.FakeEngine
	devices []caps.Device
}

func newFixture(t *testing.T, devices ...caps.Device) *fixture {
	t.Helper()
	f := &fixture{devices: devices}
	cfg := capture.DefaultConfig()
	cfg.Logger = slog.New(slog.DiscardHandler)
	f.reg = NewRegistry(cfg, func(*slog.Logger) (capture.Engine, error) {
		e := testutil.NewFakeEngine(f.devices...)
		f.mu.Lock()
		f.engines = append(f.engines, e)
		f.mu.Unlock()
		return e, nil
	})
	return f
}

func (f *fixture) engine(i int) *testutil.FakeEngine {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.engines[i]
}

func TestCreateDestroy(t *testing.T) {
	f := newFixture(t, testutil.Camera())

	h1 := f.reg.Create()
	h2 := f.reg.Create()
	if h1 == 0 || h2 == 0 || h1 == h2 {
		t.Fatalf("Create() handles = %d, %d; want distinct non-zero", h1, h2)
	}
	if f.reg.Len() != 2 {
		t.Errorf("Len() = %d, want 2", f.reg.Len())
	}

	f.reg.Destroy(h1)
	f.reg.Destroy(h1)
	if f.reg.Len() != 1 {
		t.Errorf("Len() after Destroy = %d, want 1", f.reg.Len())
	}
	if !f.engine(0).Closed() {
		t.Error("Destroy did not close the engine")
	}
	if f.reg.Devices(h1) != 0 {
		t.Error("destroyed handle still answers Devices")
	}
	f.reg.Destroy(h2)
}

func TestCreateEngineFailure(t *testing.T) {
	cfg := capture.DefaultConfig()
	cfg.Logger = slog.New(slog.DiscardHandler)
	reg := NewRegistry(cfg, func(*slog.Logger) (capture.Engine, error) {
		return nil, testutil.ErrScripted
	})
	if h := reg.Create(); h != 0 {
		t.Errorf("Create() = %d, want 0", h)
	}
}

func TestUnknownHandle(t *testing.T) {
	f := newFixture(t, testutil.Camera())
	const bogus Handle = 42

	buf := make([]byte, 64)
	results := map[string]int{
		"get_devices":            f.reg.Devices(bogus),
		"get_device":             f.reg.DeviceName(bogus, 0, buf),
		"get_device_path":        f.reg.DevicePath(bogus, 0, buf),
		"capture_device":         f.reg.CaptureDevice(bogus, 0, 640, 480, 30),
		"capture_device_by_dcap": f.reg.CaptureDeviceByCapability(bogus, 0, 0, 640, 480, 333333),
		"capture_device_default": f.reg.CaptureDeviceDefault(bogus, 0),
		"get_width":              f.reg.Width(bogus),
		"get_height":             f.reg.Height(bogus),
		"get_fps":                f.reg.FPS(bogus),
		"get_flipped":            f.reg.Flipped(bogus),
		"get_colorspace":         f.reg.Colorspace(bogus),
		"get_frame":              f.reg.Frame(bogus, 10, buf),
		"stop_capture":           f.reg.StopCapture(bogus),
		"capturing":              f.reg.Capturing(bogus),
		"get_json_length":        f.reg.CatalogLength(bogus),
		"get_json":               f.reg.Catalog(bogus, buf),
	}
	for name, got := range results {
		if got != 0 {
			t.Errorf("%s on unknown handle = %d, want 0", name, got)
		}
	}
	f.reg.Destroy(bogus)
}

func TestDeviceStrings(t *testing.T) {
	cam := testutil.Camera()
	cam.Name = "Caméra \"HD\""
	f := newFixture(t, cam)
	h := f.reg.Create()
	defer f.reg.Destroy(h)

	if n := f.reg.Devices(h); n != 1 {
		t.Fatalf("Devices() = %d, want 1", n)
	}

	buf := bytes.Repeat([]byte{0xff}, 64)
	n := f.reg.DeviceName(h, 0, buf)
	if n != len(cam.Name) {
		t.Fatalf("DeviceName() = %d, want %d", n, len(cam.Name))
	}
	if string(buf[:n]) != cam.Name || buf[n] != 0 {
		t.Errorf("DeviceName wrote %q", buf[:n+1])
	}

	// Too small: nothing written, negated size with NUL returned.
	small := bytes.Repeat([]byte{0xff}, 4)
	if got := f.reg.DevicePath(h, 0, small); got != -(len(cam.Path) + 1) {
		t.Errorf("DevicePath into small buffer = %d, want %d", got, -(len(cam.Path) + 1))
	}
	if !bytes.Equal(small, []byte{0xff, 0xff, 0xff, 0xff}) {
		t.Error("DevicePath wrote into a buffer that was too small")
	}

	if got := f.reg.DeviceName(h, 1, buf); got != 0 {
		t.Errorf("DeviceName(1) = %d, want 0", got)
	}
}

func TestCaptureAndFrames(t *testing.T) {
	f := newFixture(t, testutil.Camera())
	h := f.reg.Create()
	defer f.reg.Destroy(h)

	if f.reg.CaptureDevice(h, 0, 1280, 720, 30) != 1 {
		t.Fatal("CaptureDevice failed")
	}
	if f.reg.Width(h) != 1280 || f.reg.Height(h) != 720 || f.reg.FPS(h) != 30 {
		t.Errorf("achieved %dx%d@%d", f.reg.Width(h), f.reg.Height(h), f.reg.FPS(h))
	}
	if f.reg.Flipped(h) != 0 {
		t.Error("Flipped() = 1 for a top-down capability")
	}
	if f.reg.Colorspace(h) != int(format.YUY2) || f.reg.ColorspaceRequested(h) != int(format.XRGB) {
		t.Errorf("colorspace = %d requested = %d", f.reg.Colorspace(h), f.reg.ColorspaceRequested(h))
	}
	if f.reg.Capturing(h) != 1 {
		t.Error("Capturing() = 0 after a successful start")
	}

	size := 1280 * 720 * 4
	f.engine(0).Emit(testutil.Frame(size, 7))

	buf := make([]byte, size)
	if n := f.reg.Frame(h, 1000, buf); n != size {
		t.Fatalf("Frame() = %d, want %d", n, size)
	}
	if buf[0] != 7 || buf[size-1] != 7 {
		t.Error("Frame() copied the wrong payload")
	}
	if n := f.reg.Frame(h, 10, buf); n != 0 {
		t.Errorf("Frame() without a new frame = %d, want 0", n)
	}

	// Undersized destination is a caller error: no frame this call.
	f.engine(0).Emit(testutil.Frame(size, 8))
	if n := f.reg.Frame(h, 100, buf[:size-1]); n != 0 {
		t.Errorf("Frame() into a short buffer = %d, want 0", n)
	}
	if n := f.reg.Frame(h, 100, buf); n != size || buf[0] != 8 {
		t.Errorf("Frame() retry = %d, want %d", n, size)
	}

	if f.reg.StopCapture(h) != 1 || f.reg.Capturing(h) != 0 {
		t.Error("StopCapture did not stop")
	}
	start := time.Now()
	if n := f.reg.Frame(h, 5000, buf); n != 0 {
		t.Errorf("Frame() after stop = %d", n)
	}
	if time.Since(start) > time.Second {
		t.Error("Frame() after stop waited for the timeout")
	}
}

func TestCaptureCallerErrors(t *testing.T) {
	f := newFixture(t, testutil.Camera())
	h := f.reg.Create()
	defer f.reg.Destroy(h)

	if f.reg.CaptureDevice(h, 3, 640, 480, 30) != 0 {
		t.Error("CaptureDevice accepted an invalid device index")
	}
	if f.reg.CaptureDevice(h, 0, 640, 480, 0) != 0 {
		t.Error("CaptureDevice accepted fps 0")
	}
	if f.reg.CaptureDeviceByCapability(h, 0, 9, 640, 480, 333333) != 0 {
		t.Error("CaptureDeviceByCapability accepted an invalid capability")
	}
	if f.reg.Capturing(h) != 0 {
		t.Error("session capturing after rejected starts")
	}

	if f.reg.CaptureDeviceByCapability(h, 0, 0, 640, 480, 333333) != 1 {
		t.Fatal("CaptureDeviceByCapability failed")
	}
	if f.reg.CaptureDeviceDefault(h, 0) != 1 {
		t.Fatal("CaptureDeviceDefault failed")
	}
	if f.reg.Width(h) != testutil.DefaultWidth {
		t.Errorf("Width() after default = %d", f.reg.Width(h))
	}
}

func TestCatalog(t *testing.T) {
	f := newFixture(t, testutil.Camera(), testutil.H264OnlyCamera())
	h := f.reg.Create()
	defer f.reg.Destroy(h)

	n := f.reg.CatalogLength(h)
	if n <= 0 {
		t.Fatalf("CatalogLength() = %d", n)
	}
	if got := f.reg.Catalog(h, make([]byte, n)); got != -(n + 1) {
		t.Errorf("Catalog into a buffer without room for NUL = %d, want %d", got, -(n + 1))
	}

	buf := make([]byte, n+1)
	if got := f.reg.Catalog(h, buf); got != n {
		t.Fatalf("Catalog() = %d, want %d", got, n)
	}
	var devices []caps.CatalogDevice
	if err := json.Unmarshal(buf[:n], &devices); err != nil {
		t.Fatalf("catalog JSON: %v", err)
	}
	if len(devices) != 2 || devices[1].Caps[0].FormatName != "H264" {
		t.Errorf("catalog = %+v", devices)
	}
}

func TestCopyString(t *testing.T) {
	testCases := []struct {
		name string
		size int
		in   string
		want int
	}{
		{"fits", 8, "abc", 3},
		{"exact", 4, "abc", 3},
		{"no room for NUL", 3, "abc", -4},
		{"empty string", 1, "", 0},
		{"empty buffer", 0, "", -1},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := copyString(make([]byte, tc.size), tc.in); got != tc.want {
				t.Errorf("copyString(%d, %q) = %d, want %d", tc.size, tc.in, got, tc.want)
			}
		})
	}
}

func TestSelfTest(t *testing.T) {
	f := newFixture(t, testutil.Camera())

	done := make(chan int, 1)
	var out bytes.Buffer
	go func() {
		done <- SelfTest(&out, f.reg, 0, 640, 480, 30, 3)
	}()

	// Feed frames until the self test has what it wants.
	deadline := time.After(5 * time.Second)
	tick := time.NewTicker(5 * time.Millisecond)
	defer tick.Stop()
	for {
		select {
		case got := <-done:
			if got != 3 {
				t.Fatalf("SelfTest() = %d frames, want 3", got)
			}
			if f.reg.Len() != 0 {
				t.Error("SelfTest leaked its session")
			}
			for _, want := range []string{"Number: 1", "Cam 0: Test Camera", "Start: 1", "Width: 640", "Got frame"} {
				if !bytes.Contains(out.Bytes(), []byte(want)) {
					t.Errorf("self test output lacks %q:\n%s", want, out.String())
				}
			}
			return
		case <-tick.C:
			f.mu.Lock()
			var e *testutil.FakeEngine
			if len(f.engines) > 0 {
				e = f.engines[0]
			}
			f.mu.Unlock()
			if e != nil {
				e.Emit(testutil.Frame(640*480*4, 1))
			}
		case <-deadline:
			t.Fatal("SelfTest did not finish")
		}
	}
}
