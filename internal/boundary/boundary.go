// Package boundary implements the flat host API of the c-shared library in
// plain Go. Sessions are addressed by opaque non-zero handles and every call
// reports failure through an integer sentinel, never a panic.
package boundary

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/thesyncim/libgodshow/pkg/capture"
	"github.com/thesyncim/libgodshow/pkg/caps"
)

// Handle identifies a session across the C boundary. 0 is never a valid
// handle.
type Handle uintptr

// EngineFactory creates the engine behind a new session.
type EngineFactory func(log *slog.Logger) (capture.Engine, error)

// Registry maps handles to sessions.
type Registry struct {
	cfg       capture.Config
	newEngine EngineFactory

	mu       sync.RWMutex
	next     Handle
	sessions map[Handle]*capture.Session
}

// NewRegistry returns a registry whose sessions use cfg and engines from
// newEngine.
func NewRegistry(cfg capture.Config, newEngine EngineFactory) *Registry {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Registry{
		cfg:       cfg,
		newEngine: newEngine,
		sessions:  make(map[Handle]*capture.Session),
	}
}

// Create starts a new session and returns its handle, or 0 on failure.
func (r *Registry) Create() Handle {
	engine, err := r.newEngine(r.cfg.Logger)
	if err != nil {
		r.cfg.Logger.Error("create capture failed", "error", err)
		return 0
	}
	s := capture.NewSession(engine, r.cfg)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.next++
	if r.next == 0 {
		r.next = 1
	}
	h := r.next
	r.sessions[h] = s
	s.Logger().Debug("capture created", "handle", uint64(h))
	return h
}

// Destroy stops and releases the session behind h. Unknown handles are
// ignored.
func (r *Registry) Destroy(h Handle) {
	r.mu.Lock()
	s, ok := r.sessions[h]
	delete(r.sessions, h)
	r.mu.Unlock()

	if !ok {
		return
	}
	if err := s.Destroy(); err != nil {
		s.Logger().Warn("destroy capture", "error", err)
	}
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

func (r *Registry) lookup(h Handle) (*capture.Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[h]
	return s, ok
}

// Devices enumerates devices and returns their count, or 0 on failure.
func (r *Registry) Devices(h Handle) int {
	s, ok := r.lookup(h)
	if !ok {
		return 0
	}
	n, err := s.EnumerateDevices()
	if err != nil {
		s.Logger().Warn("enumerate devices", "error", err)
		return 0
	}
	return n
}

// DeviceName copies the UTF-8 name of device n into buf. See copyString.
func (r *Registry) DeviceName(h Handle, n int, buf []byte) int {
	return r.deviceString(h, n, buf, func(d caps.Device) string { return d.Name })
}

// DevicePath copies the UTF-8 path of device n into buf. See copyString.
func (r *Registry) DevicePath(h Handle, n int, buf []byte) int {
	return r.deviceString(h, n, buf, func(d caps.Device) string { return d.Path })
}

func (r *Registry) deviceString(h Handle, n int, buf []byte, field func(caps.Device) string) int {
	s, ok := r.lookup(h)
	if !ok {
		return 0
	}
	dev, err := s.Device(n)
	if err != nil {
		return 0
	}
	return copyString(buf, field(dev))
}

// copyString writes str and a NUL terminator into buf and returns the number
// of bytes written excluding the NUL. When buf is too small nothing is
// written and the negated required size, NUL included, is returned.
func copyString(buf []byte, str string) int {
	need := len(str) + 1
	if len(buf) < need {
		return -need
	}
	copy(buf, str)
	buf[len(str)] = 0
	return len(str)
}

// CaptureDevice starts capture on device n at the capability best matching
// width x height at fps. Returns 1 on success, 0 on failure.
func (r *Registry) CaptureDevice(h Handle, n, width, height, fps int) int {
	return r.start(h, "capture_device", func(s *capture.Session) error {
		return s.StartFrameRate(n, width, height, fps)
	})
}

// CaptureDeviceByCapability starts capture on capability dcap of device n.
// Returns 1 on success, 0 on failure.
func (r *Registry) CaptureDeviceByCapability(h Handle, n, dcap, width, height int, interval int64) int {
	return r.start(h, "capture_device_by_dcap", func(s *capture.Session) error {
		return s.StartCapability(n, dcap, width, height, interval)
	})
}

// CaptureDeviceDefault starts capture on device n in its default mode.
// Returns 1 on success, 0 on failure.
func (r *Registry) CaptureDeviceDefault(h Handle, n int) int {
	return r.start(h, "capture_device_default", func(s *capture.Session) error {
		return s.StartDefault(n)
	})
}

func (r *Registry) start(h Handle, op string, fn func(*capture.Session) error) int {
	s, ok := r.lookup(h)
	if !ok {
		return 0
	}
	if err := fn(s); err != nil {
		level := slog.LevelWarn
		if isCallerError(err) {
			level = slog.LevelDebug
		}
		s.Logger().Log(context.Background(), level, "start capture failed", "op", op, "error", err)
		return 0
	}
	return 1
}

func isCallerError(err error) bool {
	return errors.Is(err, capture.ErrInvalidDeviceIndex) ||
		errors.Is(err, capture.ErrInvalidCapabilityIndex) ||
		errors.Is(err, capture.ErrInvalidFrameRate)
}

func (r *Registry) query(h Handle, fn func(*capture.Session) int) int {
	s, ok := r.lookup(h)
	if !ok {
		return 0
	}
	return fn(s)
}

// Width returns the achieved frame width.
func (r *Registry) Width(h Handle) int {
	return r.query(h, (*capture.Session).Width)
}

// Height returns the achieved frame height.
func (r *Registry) Height(h Handle) int {
	return r.query(h, (*capture.Session).Height)
}

// FPS returns the achieved frame rate.
func (r *Registry) FPS(h Handle) int {
	return r.query(h, (*capture.Session).FPS)
}

// Flipped returns 1 when frames arrive bottom-up.
func (r *Registry) Flipped(h Handle) int {
	return r.query(h, func(s *capture.Session) int { return boolToInt(s.Flipped()) })
}

// Colorspace returns the internal format the device produces.
func (r *Registry) Colorspace(h Handle) int {
	return r.query(h, func(s *capture.Session) int { return int(s.InternalFormat()) })
}

// ColorspaceRequested returns the output format of delivered frames.
func (r *Registry) ColorspaceRequested(h Handle) int {
	return r.query(h, func(s *capture.Session) int { return int(s.Format()) })
}

// Frame waits up to timeoutMS for a frame and copies it into buf, returning
// the number of bytes copied or 0 when no frame was delivered this call.
func (r *Registry) Frame(h Handle, timeoutMS int, buf []byte) int {
	s, ok := r.lookup(h)
	if !ok {
		return 0
	}
	n, err := s.Retrieve(buf, time.Duration(timeoutMS)*time.Millisecond)
	if err != nil {
		return 0
	}
	return n
}

// StopCapture stops the session. Returns 1 when h is valid.
func (r *Registry) StopCapture(h Handle) int {
	return r.query(h, func(s *capture.Session) int {
		s.Stop()
		return 1
	})
}

// Capturing returns 1 while frames are flowing.
func (r *Registry) Capturing(h Handle) int {
	return r.query(h, func(s *capture.Session) int { return boolToInt(s.Capturing()) })
}

// CatalogLength returns the size in bytes of the JSON catalog, NUL excluded,
// or 0 on failure.
func (r *Registry) CatalogLength(h Handle) int {
	return r.query(h, func(s *capture.Session) int {
		data, err := s.Catalog()
		if err != nil {
			return 0
		}
		return len(data)
	})
}

// Catalog copies the JSON catalog into buf. See copyString.
func (r *Registry) Catalog(h Handle, buf []byte) int {
	return r.query(h, func(s *capture.Session) int {
		data, err := s.Catalog()
		if err != nil {
			s.Logger().Warn("device catalog", "error", err)
			return 0
		}
		return copyString(buf, string(data))
	})
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
