package testutil

import (
	"errors"
	"sync"

	"github.com/thesyncim/libgodshow/pkg/capture"
	"github.com/thesyncim/libgodshow/pkg/caps"
	"github.com/thesyncim/libgodshow/pkg/format"
)

// ErrScripted is returned by FakeEngine steps configured to fail.
var ErrScripted = errors.New("testutil: scripted engine failure")

// Defaults the fake engine settles on for UseDefault configurations.
const (
	DefaultWidth    = 640
	DefaultHeight   = 480
	DefaultInterval = 333333
)

// FakeEngine is a scripted capture.Engine. Set its exported fields before the
// session drives it.
type FakeEngine struct {
	// Devices is returned by EnumerateDevices.
	Devices []caps.Device
	// EnumerateErr fails EnumerateDevices.
	EnumerateErr error

	// DefaultFormat is the internal format chosen for UseDefault
	// configurations that leave the internal format to the device.
	DefaultFormat format.VideoFormat

	// Reject decides whether SetVideoConfig accepts cfg. A nil Reject
	// accepts everything.
	Reject func(cfg caps.Configuration) error
	// Achieve adjusts the configuration the engine reports back.
	Achieve func(cfg *caps.Configuration)

	ResetErr   error
	ConnectErr error
	StartErr   error
	// Broken makes Valid report false.
	Broken bool

	mu       sync.Mutex
	cfg      caps.Configuration
	fn       capture.FrameFunc
	running  bool
	closed   bool
	calls    []string
	applied  []caps.Configuration
	stops    int
	emitting sync.Mutex
}

var _ capture.Engine = (*FakeEngine)(nil)

// NewFakeEngine returns a fake engine exposing devices.
func NewFakeEngine(devices ...caps.Device) *FakeEngine {
	return &FakeEngine{
		Devices:       devices,
		DefaultFormat: format.YUY2,
	}
}

func (e *FakeEngine) record(call string) {
	e.calls = append(e.calls, call)
}

func (e *FakeEngine) EnumerateDevices() ([]caps.Device, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.record("enumerate")
	if e.EnumerateErr != nil {
		return nil, e.EnumerateErr
	}
	out := make([]caps.Device, len(e.Devices))
	copy(out, e.Devices)
	return out, nil
}

func (e *FakeEngine) ResetGraph() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.record("reset")
	e.fn = nil
	return e.ResetErr
}

func (e *FakeEngine) Valid() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return !e.Broken && !e.closed
}

func (e *FakeEngine) SetVideoConfig(cfg *caps.Configuration, fn capture.FrameFunc) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.record("set")
	e.applied = append(e.applied, *cfg)

	if e.Reject != nil {
		if err := e.Reject(*cfg); err != nil {
			return err
		}
	}
	if cfg.UseDefault {
		cfg.Width = DefaultWidth
		cfg.Height = DefaultHeight
		cfg.Interval = DefaultInterval
		if cfg.InternalFormat == format.Any {
			cfg.InternalFormat = e.DefaultFormat
		}
	}
	if cfg.Format == format.Any {
		cfg.Format = format.XRGB
	}
	if e.Achieve != nil {
		e.Achieve(cfg)
	}
	e.cfg = *cfg
	e.fn = fn
	return nil
}

func (e *FakeEngine) ConnectFilters() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.record("connect")
	return e.ConnectErr
}

func (e *FakeEngine) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.record("start")
	if e.StartErr != nil {
		return e.StartErr
	}
	e.running = true
	return nil
}

// Stop waits for an in-flight Emit before returning.
func (e *FakeEngine) Stop() {
	e.emitting.Lock()
	defer e.emitting.Unlock()

	e.mu.Lock()
	defer e.mu.Unlock()
	e.record("stop")
	e.running = false
	e.stops++
}

func (e *FakeEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.record("close")
	e.running = false
	e.closed = true
	return nil
}

// Emit delivers data to the frame callback as the engine's capture thread
// would. It reports false when the engine is not running.
func (e *FakeEngine) Emit(data []byte) bool {
	e.emitting.Lock()
	defer e.emitting.Unlock()

	e.mu.Lock()
	running, fn, cfg := e.running, e.fn, e.cfg
	e.mu.Unlock()

	if !running || fn == nil {
		return false
	}
	fn(cfg, data, 0, cfg.Interval, 0)
	return true
}

// Running reports whether the engine is delivering frames.
func (e *FakeEngine) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}

// Closed reports whether Close was called.
func (e *FakeEngine) Closed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.closed
}

// Calls returns the engine calls made so far.
func (e *FakeEngine) Calls() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.calls...)
}

// Applied returns every configuration passed to SetVideoConfig, as requested.
func (e *FakeEngine) Applied() []caps.Configuration {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]caps.Configuration(nil), e.applied...)
}

// Current returns the configuration the engine last achieved.
func (e *FakeEngine) Current() caps.Configuration {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cfg
}

// Stops returns how many times Stop was called.
func (e *FakeEngine) Stops() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stops
}
