package ffi

import (
	"fmt"

	"github.com/ebitengine/purego"
)

// Shim function pointers, populated by registerFunctions.
var (
	shimVersion func() uintptr

	shimPlatformInit     func() int32
	shimPlatformShutdown func()

	shimEnumerateDevices func(devices uintptr, maxDevices int32, outCount uintptr) int32
	shimDeviceCaps       func(device int32, caps uintptr, maxCaps int32, outCount uintptr) int32

	shimDeviceCreate   func() uintptr
	shimDeviceDestroy  func(dev uintptr)
	shimResetGraph     func(dev uintptr) int32
	shimValid          func(dev uintptr) int32
	shimSetVideoConfig func(dev uintptr, cfg uintptr, callback uintptr, ctx uintptr) int32
	shimConnectFilters func(dev uintptr) int32
	shimStart          func(dev uintptr) int32
	shimStop           func(dev uintptr)
)

type binding struct {
	fn   any
	name string
}

func bindings() []binding {
	return []binding{
		{&shimVersion, "dshow_shim_version"},
		{&shimPlatformInit, "dshow_platform_init"},
		{&shimPlatformShutdown, "dshow_platform_shutdown"},
		{&shimEnumerateDevices, "dshow_enumerate_devices"},
		{&shimDeviceCaps, "dshow_device_caps"},
		{&shimDeviceCreate, "dshow_device_create"},
		{&shimDeviceDestroy, "dshow_device_destroy"},
		{&shimResetGraph, "dshow_reset_graph"},
		{&shimValid, "dshow_valid"},
		{&shimSetVideoConfig, "dshow_set_video_config"},
		{&shimConnectFilters, "dshow_connect_filters"},
		{&shimStart, "dshow_start"},
		{&shimStop, "dshow_stop"},
	}
}

func registerFunctions() error {
	for _, b := range bindings() {
		addr, err := dlsymLibrary(libHandle, b.name)
		if err != nil {
			return fmt.Errorf("%w: missing symbol %s: %w", ErrLibraryNotFound, b.name, err)
		}
		purego.RegisterFunc(b.fn, addr)
	}
	return nil
}
