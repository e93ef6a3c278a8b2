package capture

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/thesyncim/libgodshow/pkg/caps"
	"github.com/thesyncim/libgodshow/pkg/format"
	"github.com/thesyncim/libgodshow/pkg/relay"
)

// Session owns one capture engine and the relay its frames flow through.
//
// Configuration methods are serialized by the session mutex. Retrieve never
// takes that mutex, so a consumer can wait for frames while another goroutine
// reconfigures or stops the session.
type Session struct {
	id     uuid.UUID
	engine Engine
	cfg    Config
	log    *slog.Logger
	relay  *relay.Relay

	mu       sync.Mutex
	state    State
	devices  []caps.Device
	current  caps.Configuration
	attempt  string
	captured bool // a capture has succeeded at least once
}

// NewSession returns an idle session driving engine.
func NewSession(engine Engine, cfg Config) *Session {
	cfg = cfg.withDefaults()
	id := uuid.New()
	return &Session{
		id:     id,
		engine: engine,
		cfg:    cfg,
		log:    cfg.Logger.With("session_id", id.String()),
		relay:  relay.New(),
		state:  StateIdle,
	}
}

// ID returns the session identifier used in logs.
func (s *Session) ID() uuid.UUID {
	return s.id
}

// Logger returns the session logger.
func (s *Session) Logger() *slog.Logger {
	return s.log
}

// EnumerateDevices refreshes the device list from the engine and returns the
// number of devices found.
func (s *Session) EnumerateDevices() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateDestroyed {
		return 0, ErrSessionDestroyed
	}
	if err := s.enumerateLocked(); err != nil {
		return 0, err
	}
	return len(s.devices), nil
}

func (s *Session) enumerateLocked() error {
	devices, err := s.engine.EnumerateDevices()
	if err != nil {
		return fmt.Errorf("enumerate devices: %w", err)
	}
	s.devices = devices
	s.log.Debug("devices enumerated", "count", len(devices))
	return nil
}

// Devices returns the devices found by the last enumeration.
func (s *Session) Devices() []caps.Device {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]caps.Device, len(s.devices))
	copy(out, s.devices)
	return out
}

// Device returns device n of the last enumeration.
func (s *Session) Device(n int) (caps.Device, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if n < 0 || n >= len(s.devices) {
		return caps.Device{}, ErrInvalidDeviceIndex
	}
	return s.devices[n], nil
}

// Catalog returns the JSON catalog of the enumerated devices, enumerating
// first if the session has not done so yet.
func (s *Session) Catalog() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateDestroyed {
		return nil, ErrSessionDestroyed
	}
	if s.devices == nil {
		if err := s.enumerateLocked(); err != nil {
			return nil, err
		}
	}
	return caps.MarshalCatalog(s.devices)
}

// StartFrameRate starts capturing from device at the capability that best
// matches the requested size and frame rate, falling back to the device
// default when nothing matches.
func (s *Session) StartFrameRate(device, width, height, fps int) error {
	return s.start(device, func(dev caps.Device) (caps.Plan, error) {
		return s.cfg.Matcher.FrameRatePlan(dev, width, height, fps)
	})
}

// StartCapability starts capturing from capability capIdx of device with the
// requested size and frame interval clamped to the capability.
func (s *Session) StartCapability(device, capIdx, width, height int, interval int64) error {
	return s.start(device, func(dev caps.Device) (caps.Plan, error) {
		return caps.CapabilityPlan(dev, capIdx, width, height, interval)
	})
}

// StartDefault starts capturing from device in its default mode.
func (s *Session) StartDefault(device int) error {
	return s.start(device, func(dev caps.Device) (caps.Plan, error) {
		return caps.DefaultPlan(dev), nil
	})
}

// start validates the request, then runs the plan until an attempt sticks.
// Invalid arguments leave the session untouched.
func (s *Session) start(device int, build func(caps.Device) (caps.Plan, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateDestroyed {
		return ErrSessionDestroyed
	}
	if s.devices == nil {
		if err := s.enumerateLocked(); err != nil {
			return err
		}
	}
	if device < 0 || device >= len(s.devices) {
		return ErrInvalidDeviceIndex
	}
	dev := s.devices[device]
	plan, err := build(dev)
	if err != nil {
		return err
	}

	s.haltLocked()

	var lastErr error
	for _, a := range plan {
		cfg, err := s.apply(a)
		if err != nil {
			lastErr = err
			s.log.Debug("capture attempt failed",
				"attempt", a.Name,
				"device", dev.Name,
				"config", a.Config.String(),
				"error", err)
			continue
		}
		s.current = cfg
		s.attempt = a.Name
		s.state = StateCapturing
		s.captured = true
		s.log.Info("capture started",
			"attempt", a.Name,
			"device", dev.Name,
			"width", cfg.Width,
			"height", cfg.Height,
			"fps", cfg.FPS(),
			"format", cfg.Format.String(),
			"internal_format", cfg.InternalFormat.String(),
			"flip", cfg.Flip)
		return nil
	}

	s.state = s.restingState()
	if lastErr == nil {
		lastErr = errors.New("empty plan")
	}
	s.log.Warn("capture could not be started", "device", dev.Name, "attempts", len(plan), "error", lastErr)
	return fmt.Errorf("%w: %w", ErrConfigurationRejected, lastErr)
}

// apply runs one attempt against the engine. On failure the engine and relay
// are left stopped.
func (s *Session) apply(a caps.Attempt) (caps.Configuration, error) {
	cfg := a.Config
	s.state = StateConfiguring

	if err := s.engine.ResetGraph(); err != nil {
		return cfg, fmt.Errorf("%w: reset graph: %w", ErrDeviceUnavailable, err)
	}
	if !s.engine.Valid() {
		return cfg, ErrDeviceUnavailable
	}
	if err := s.engine.SetVideoConfig(&cfg, s.onFrame); err != nil {
		return cfg, fmt.Errorf("set video config: %w", err)
	}
	if !s.engine.Valid() {
		return cfg, ErrDeviceUnavailable
	}
	if a.RejectBeyondMJPEG && format.BeyondMJPEG(cfg.InternalFormat) {
		return cfg, fmt.Errorf("%w: %s", errUnsupportedFormat, cfg.InternalFormat)
	}
	if err := s.engine.ConnectFilters(); err != nil {
		return cfg, fmt.Errorf("%w: connect filters: %w", ErrDeviceUnavailable, err)
	}
	if !s.engine.Valid() {
		return cfg, ErrDeviceUnavailable
	}
	s.state = StateConnected

	if err := s.relay.Start(cfg.FrameSize()); err != nil {
		return cfg, err
	}
	if err := s.engine.Start(); err != nil {
		s.relay.Stop()
		return cfg, fmt.Errorf("%w: start: %w", ErrDeviceUnavailable, err)
	}
	if a.Config.Format != format.Any && cfg.Format != a.Config.Format {
		s.engine.Stop()
		s.relay.Stop()
		return cfg, fmt.Errorf("%w: got %s, want %s", errOutputFormat, cfg.Format, a.Config.Format)
	}
	return cfg, nil
}

// onFrame runs on the engine's callback thread. It must not take s.mu: Stop
// holds it while waiting for the engine to drain its callbacks.
func (s *Session) onFrame(cfg caps.Configuration, data []byte, start, stop int64, rotation int) {
	if s.cfg.Debug >= DebugAll {
		s.log.Debug("frame delivered",
			"bytes", len(data),
			"start_s", float64(start)/caps.IntervalUnit,
			"stop_s", float64(stop)/caps.IntervalUnit,
			"rotation", rotation)
	}
	if !s.relay.Deposit(data) {
		return
	}
	if s.cfg.Debug == DebugAccepted {
		s.log.Debug("frame accepted", "bytes", len(data), "width", cfg.Width, "height", cfg.Height)
	}
}

// haltLocked stops the engine and relay if a capture is running.
func (s *Session) haltLocked() {
	switch s.state {
	case StateCapturing, StateConnected, StateConfiguring:
		s.engine.Stop()
		s.relay.Stop()
		s.state = StateStopped
		s.log.Debug("capture stopped", "attempt", s.attempt)
	}
}

func (s *Session) restingState() State {
	if s.captured {
		return StateStopped
	}
	return StateIdle
}

// Stop stops capturing. Frames stop flowing and blocked Retrieve calls return.
// Stopping an idle or stopped session does nothing.
func (s *Session) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.haltLocked()
}

// Capturing reports whether frames are flowing.
func (s *Session) Capturing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == StateCapturing
}

// State returns the session's lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Retrieve waits up to timeout for the latest frame and copies it into dst.
// It returns relay.ErrNotCapturing when the session is not capturing,
// relay.ErrTimeout when no new frame arrived in time and
// relay.ErrBufferTooSmall when dst cannot hold the frame.
func (s *Session) Retrieve(dst []byte, timeout time.Duration) (int, error) {
	return s.relay.Retrieve(dst, timeout)
}

// RelayStats returns the frame relay counters.
func (s *Session) RelayStats() relay.Stats {
	return s.relay.Stats()
}

// Configuration returns the configuration the engine achieved and the name of
// the attempt that produced it.
func (s *Session) Configuration() (caps.Configuration, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current, s.attempt
}

// Width returns the achieved frame width.
func (s *Session) Width() int {
	cfg, _ := s.Configuration()
	return cfg.Width
}

// Height returns the achieved frame height.
func (s *Session) Height() int {
	cfg, _ := s.Configuration()
	return cfg.Height
}

// FPS returns the achieved frame rate.
func (s *Session) FPS() int {
	cfg, _ := s.Configuration()
	return cfg.FPS()
}

// Flipped reports whether frames arrive bottom-up.
func (s *Session) Flipped() bool {
	cfg, _ := s.Configuration()
	return cfg.Flip
}

// Format returns the output format of delivered frames.
func (s *Session) Format() format.VideoFormat {
	cfg, _ := s.Configuration()
	return cfg.Format
}

// InternalFormat returns the format the device produces before conversion.
func (s *Session) InternalFormat() format.VideoFormat {
	cfg, _ := s.Configuration()
	return cfg.InternalFormat
}

// Destroy stops capturing and releases the engine. Further calls fail with
// ErrSessionDestroyed; Destroy itself is idempotent.
func (s *Session) Destroy() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateDestroyed {
		return nil
	}
	s.haltLocked()
	s.relay.Close()
	s.state = StateDestroyed
	s.devices = nil

	if err := s.engine.Close(); err != nil {
		return fmt.Errorf("close engine: %w", err)
	}
	s.log.Debug("session destroyed")
	return nil
}
