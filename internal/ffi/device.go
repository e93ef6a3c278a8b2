package ffi

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/ebitengine/purego"

	"github.com/thesyncim/libgodshow/pkg/capture"
	"github.com/thesyncim/libgodshow/pkg/caps"
)

const (
	maxDevices = 64
	maxCaps    = 512

	// Largest payload the bridge forwards: 8K XRGB.
	maxFrameSize = 7680 * 4320 * 4
)

// ErrEngineClosed is returned by operations on a closed Engine.
var ErrEngineClosed = errors.New("capture engine closed")

// Global engine registry for mapping the native callback context to an
// Engine. purego callbacks can't capture closure state, and the number of
// callbacks a process may create is limited, so one bridge serves every engine.
var (
	engineRegistry   = make(map[uintptr]*Engine)
	engineRegistryMu sync.RWMutex

	frameCallbackOnce sync.Once
	frameCallbackFn   uintptr
)

// sink is what the callback bridge reads on every frame. It is swapped
// atomically so the bridge never takes the engine mutex, which Stop holds
// while the shim drains in-flight callbacks.
type sink struct {
	fn  capture.FrameFunc
	cfg caps.Configuration
}

// Engine is a capture.Engine backed by the native shim.
type Engine struct {
	ptr    uintptr
	mu     sync.Mutex
	sink   atomic.Pointer[sink]
	log    *slog.Logger
	closed bool
}

var _ capture.Engine = (*Engine)(nil)

// NewEngine creates a native capture device. The process-wide capture
// platform is initialized on the first engine.
func NewEngine(log *slog.Logger) (*Engine, error) {
	if !libLoaded.Load() {
		return nil, ErrLibraryNotLoaded
	}
	if log == nil {
		log = slog.Default()
	}
	if err := acquirePlatform(); err != nil {
		return nil, err
	}

	ptr := shimDeviceCreate()
	if ptr == 0 {
		releasePlatform()
		return nil, fmt.Errorf("create capture device: %w", ErrInitFailed)
	}

	e := &Engine{ptr: ptr, log: log}
	engineRegistryMu.Lock()
	engineRegistry[ptr] = e
	engineRegistryMu.Unlock()
	return e, nil
}

// EnumerateDevices lists the capture devices known to the platform.
func (e *Engine) EnumerateDevices() ([]caps.Device, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil, ErrEngineClosed
	}

	infos := make([]shimDeviceInfo, maxDevices)
	var count int32
	result := shimEnumerateDevices(
		uintptr(unsafe.Pointer(&infos[0])),
		maxDevices,
		uintptr(unsafe.Pointer(&count)),
	)
	if err := ShimError(result); err != nil {
		return nil, fmt.Errorf("enumerate devices: %w", err)
	}
	count = max(0, min(count, maxDevices))

	devices := make([]caps.Device, 0, count)
	buf := make([]shimCapability, maxCaps)
	for i := int32(0); i < count; i++ {
		dev := caps.Device{
			Name: decodeUTF16(infos[i].name[:]),
			Path: decodeUTF16(infos[i].path[:]),
		}

		var n int32
		result := shimDeviceCaps(i, uintptr(unsafe.Pointer(&buf[0])), maxCaps, uintptr(unsafe.Pointer(&n)))
		if err := ShimError(result); err != nil {
			e.log.Warn("device capabilities unavailable", "device", dev.Name, "error", err)
		} else {
			n = max(0, min(n, maxCaps))
			dev.Caps = make([]caps.Capability, n)
			for j := range dev.Caps {
				dev.Caps[j] = buf[j].toCapability()
			}
		}
		devices = append(devices, dev)
	}
	return devices, nil
}

// ResetGraph tears down the native capture graph.
func (e *Engine) ResetGraph() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrEngineClosed
	}
	e.sink.Store(nil)
	return ShimError(shimResetGraph(e.ptr))
}

// Valid reports whether the native graph is usable.
func (e *Engine) Valid() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return !e.closed && shimValid(e.ptr) != 0
}

// SetVideoConfig applies cfg and writes back what the device achieved. fn
// receives frames once Start succeeds.
func (e *Engine) SetVideoConfig(cfg *caps.Configuration, fn capture.FrameFunc) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrEngineClosed
	}

	sc, err := newShimVideoConfig(*cfg)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidParam, err)
	}

	frameCallbackOnce.Do(func() {
		frameCallbackFn = purego.NewCallback(frameCallbackBridge)
	})
	if frameCallbackFn == 0 {
		return fmt.Errorf("%w: frame callback unavailable", ErrInitFailed)
	}

	result := shimSetVideoConfig(e.ptr, sc.Ptr(), frameCallbackFn, e.ptr)
	runtime.KeepAlive(sc)
	if err := ShimError(result); err != nil {
		return err
	}

	*cfg = sc.configuration()
	e.sink.Store(&sink{fn: fn, cfg: *cfg})
	return nil
}

// ConnectFilters connects the native capture graph.
func (e *Engine) ConnectFilters() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrEngineClosed
	}
	return ShimError(shimConnectFilters(e.ptr))
}

// Start starts the native graph.
func (e *Engine) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrEngineClosed
	}
	return ShimError(shimStart(e.ptr))
}

// Stop stops the native graph. The shim returns only after in-flight frame
// callbacks have finished.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	shimStop(e.ptr)
}

// Close stops and destroys the native device.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true

	shimStop(e.ptr)
	engineRegistryMu.Lock()
	delete(engineRegistry, e.ptr)
	engineRegistryMu.Unlock()
	e.sink.Store(nil)

	shimDeviceDestroy(e.ptr)
	e.ptr = 0
	releasePlatform()
	return nil
}

// frameCallbackBridge is the C-callable frame callback that dispatches to Go.
// cfgPtr may point at the configuration the frame was produced with; when it
// is 0 the configuration from SetVideoConfig is used.
//
// The shim declares the callback void. The uintptr result is required by
// syscall.NewCallback on Windows and is ignored by the caller.
func frameCallbackBridge(ctx, cfgPtr, data, size uintptr, start, stop int64, rotation int32) uintptr {
	engineRegistryMu.RLock()
	e, ok := engineRegistry[ctx]
	engineRegistryMu.RUnlock()
	if ok {
		dispatchFrame(e, cfgPtr, data, size, start, stop, rotation)
	}
	return 0
}

func dispatchFrame(e *Engine, cfgPtr, data, size uintptr, start, stop int64, rotation int32) {
	s := e.sink.Load()
	if s == nil || s.fn == nil {
		return
	}
	if data == 0 || size == 0 || size > maxFrameSize {
		return
	}

	cfg := s.cfg
	if cfgPtr != 0 {
		cfg = (*shimVideoConfig)(unsafe.Pointer(cfgPtr)).overlay(cfg)
	}
	// The payload stays owned by the shim; the callee copies what it keeps.
	payload := unsafe.Slice((*byte)(unsafe.Pointer(data)), int(size))

	safeCallback(e.log, func() {
		s.fn(cfg, payload, start, stop, int(rotation))
	})
}

// safeCallback runs fn and recovers from panics so they never unwind
// through native frames.
func safeCallback(log *slog.Logger, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("panic recovered in frame callback", "panic", r)
		}
	}()
	fn()
}
