// Command dshowcapture builds the capture library for C hosts:
//
//	go build -buildmode=c-shared -o dshowcapture.dll ./cmd/dshowcapture
//
// The native shim is located through DSHOWCAPTURE_SHIM_PATH (see
// internal/ffi). DSHOWCAPTURE_LOG_LEVEL and DSHOWCAPTURE_DEBUG control
// logging.
package main

/*
#include <stdint.h>
*/
import "C"

import (
	"fmt"
	"log/slog"
	"os"
	"sync"
	"unsafe"

	"github.com/thesyncim/libgodshow/internal/boundary"
	"github.com/thesyncim/libgodshow/internal/ffi"
	"github.com/thesyncim/libgodshow/pkg/capture"
)

var (
	registryOnce sync.Once
	registry     *boundary.Registry
)

func sessions() *boundary.Registry {
	registryOnce.Do(func() {
		cfg := capture.ConfigFromEnv()
		slog.SetDefault(cfg.Logger)
		registry = boundary.NewRegistry(cfg, newEngine)
	})
	return registry
}

func newEngine(log *slog.Logger) (capture.Engine, error) {
	if err := ffi.LoadLibrary(); err != nil {
		return nil, err
	}
	return ffi.NewEngine(log)
}

// guard converts a panic into the failure sentinel so it never unwinds
// into the host.
func guard(ret *C.int) {
	if r := recover(); r != nil {
		slog.Error("panic recovered at host boundary", "panic", r)
		if ret != nil {
			*ret = 0
		}
	}
}

func handle(h C.uintptr_t) boundary.Handle {
	return boundary.Handle(h)
}

func bytesOf(p unsafe.Pointer, n C.int) []byte {
	if p == nil || n <= 0 {
		return nil
	}
	return unsafe.Slice((*byte)(p), int(n))
}

//export create_capture
func create_capture() (ret C.uintptr_t) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("panic recovered at host boundary", "panic", r)
			ret = 0
		}
	}()
	return C.uintptr_t(sessions().Create())
}

//export destroy_capture
func destroy_capture(h C.uintptr_t) {
	defer guard(nil)
	sessions().Destroy(handle(h))
}

//export get_devices
func get_devices(h C.uintptr_t) (ret C.int) {
	defer guard(&ret)
	return C.int(sessions().Devices(handle(h)))
}

//export get_device
func get_device(h C.uintptr_t, n C.int, name *C.char, length C.int) (ret C.int) {
	defer guard(&ret)
	return C.int(sessions().DeviceName(handle(h), int(n), bytesOf(unsafe.Pointer(name), length)))
}

//export get_device_path
func get_device_path(h C.uintptr_t, n C.int, path *C.char, length C.int) (ret C.int) {
	defer guard(&ret)
	return C.int(sessions().DevicePath(handle(h), int(n), bytesOf(unsafe.Pointer(path), length)))
}

//export capture_device
func capture_device(h C.uintptr_t, n, width, height, fps C.int) (ret C.int) {
	defer guard(&ret)
	return C.int(sessions().CaptureDevice(handle(h), int(n), int(width), int(height), int(fps)))
}

//export capture_device_by_dcap
func capture_device_by_dcap(h C.uintptr_t, n, dcap, width, height C.int, interval C.longlong) (ret C.int) {
	defer guard(&ret)
	return C.int(sessions().CaptureDeviceByCapability(handle(h), int(n), int(dcap), int(width), int(height), int64(interval)))
}

//export capture_device_default
func capture_device_default(h C.uintptr_t, n C.int) (ret C.int) {
	defer guard(&ret)
	return C.int(sessions().CaptureDeviceDefault(handle(h), int(n)))
}

//export get_width
func get_width(h C.uintptr_t) (ret C.int) {
	defer guard(&ret)
	return C.int(sessions().Width(handle(h)))
}

//export get_height
func get_height(h C.uintptr_t) (ret C.int) {
	defer guard(&ret)
	return C.int(sessions().Height(handle(h)))
}

//export get_fps
func get_fps(h C.uintptr_t) (ret C.int) {
	defer guard(&ret)
	return C.int(sessions().FPS(handle(h)))
}

//export get_flipped
func get_flipped(h C.uintptr_t) (ret C.int) {
	defer guard(&ret)
	return C.int(sessions().Flipped(handle(h)))
}

//export get_colorspace
func get_colorspace(h C.uintptr_t) (ret C.int) {
	defer guard(&ret)
	return C.int(sessions().Colorspace(handle(h)))
}

//export get_colorspace_requested
func get_colorspace_requested(h C.uintptr_t) (ret C.int) {
	defer guard(&ret)
	return C.int(sessions().ColorspaceRequested(handle(h)))
}

//export get_frame
func get_frame(h C.uintptr_t, timeout C.int, buffer *C.uchar, size C.int) (ret C.int) {
	defer guard(&ret)
	return C.int(sessions().Frame(handle(h), int(timeout), bytesOf(unsafe.Pointer(buffer), size)))
}

//export stop_capture
func stop_capture(h C.uintptr_t) (ret C.int) {
	defer guard(&ret)
	return C.int(sessions().StopCapture(handle(h)))
}

//export capturing
func capturing(h C.uintptr_t) (ret C.int) {
	defer guard(&ret)
	return C.int(sessions().Capturing(handle(h)))
}

//export get_json_length
func get_json_length(h C.uintptr_t) (ret C.int) {
	defer guard(&ret)
	return C.int(sessions().CatalogLength(handle(h)))
}

//export get_json
func get_json(h C.uintptr_t, buffer *C.char, length C.int) (ret C.int) {
	defer guard(&ret)
	return C.int(sessions().Catalog(handle(h), bytesOf(unsafe.Pointer(buffer), length)))
}

//export lib_test
func lib_test(n, width, height, fps C.int) {
	defer guard(nil)
	got := boundary.SelfTest(os.Stdout, sessions(), int(n), int(width), int(height), int(fps), boundary.SelfTestFrames)
	fmt.Fprintf(os.Stdout, "Frames: %d\n", got)
}

func main() {}
