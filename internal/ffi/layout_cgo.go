//go:build ffigo_cgo

package ffi

/*
#cgo CFLAGS: -I${SRCDIR}/../../shim
#include "shim.h"
*/
import "C"

import "unsafe"

// cLayout holds sizes and field offsets of the shim.h structs as the C
// compiler lays them out. Keys are "Struct" for sizes and "Struct.field" for
// offsets.
var cLayout = map[string]uintptr{
	"DshowDeviceInfo":           uintptr(C.sizeof_DshowDeviceInfo),
	"DshowDeviceInfo.name":      unsafe.Offsetof(C.DshowDeviceInfo{}.name),
	"DshowDeviceInfo.path":      unsafe.Offsetof(C.DshowDeviceInfo{}.path),
	"DshowDeviceInfo.cap_count": unsafe.Offsetof(C.DshowDeviceInfo{}.cap_count),

	"DshowCapability":                uintptr(C.sizeof_DshowCapability),
	"DshowCapability.min_cx":         unsafe.Offsetof(C.DshowCapability{}.min_cx),
	"DshowCapability.max_cx":         unsafe.Offsetof(C.DshowCapability{}.max_cx),
	"DshowCapability.granularity_cx": unsafe.Offsetof(C.DshowCapability{}.granularity_cx),
	"DshowCapability.min_cy":         unsafe.Offsetof(C.DshowCapability{}.min_cy),
	"DshowCapability.max_cy":         unsafe.Offsetof(C.DshowCapability{}.max_cy),
	"DshowCapability.granularity_cy": unsafe.Offsetof(C.DshowCapability{}.granularity_cy),
	"DshowCapability.min_interval":   unsafe.Offsetof(C.DshowCapability{}.min_interval),
	"DshowCapability.max_interval":   unsafe.Offsetof(C.DshowCapability{}.max_interval),
	"DshowCapability.format":         unsafe.Offsetof(C.DshowCapability{}.format),

	"DshowVideoConfig":                 uintptr(C.sizeof_DshowVideoConfig),
	"DshowVideoConfig.name":            unsafe.Offsetof(C.DshowVideoConfig{}.name),
	"DshowVideoConfig.path":            unsafe.Offsetof(C.DshowVideoConfig{}.path),
	"DshowVideoConfig.cx":              unsafe.Offsetof(C.DshowVideoConfig{}.cx),
	"DshowVideoConfig.cy":              unsafe.Offsetof(C.DshowVideoConfig{}.cy),
	"DshowVideoConfig.frame_interval":  unsafe.Offsetof(C.DshowVideoConfig{}.frame_interval),
	"DshowVideoConfig.format":          unsafe.Offsetof(C.DshowVideoConfig{}.format),
	"DshowVideoConfig.internal_format": unsafe.Offsetof(C.DshowVideoConfig{}.internal_format),
	"DshowVideoConfig.flip":            unsafe.Offsetof(C.DshowVideoConfig{}.flip),
	"DshowVideoConfig.use_default":     unsafe.Offsetof(C.DshowVideoConfig{}.use_default),
}

// cConstants holds the shim.h error codes and string capacities.
var cConstants = map[string]int{
	"DSHOW_OK":                   int(C.DSHOW_OK),
	"DSHOW_ERR_INVALID_PARAM":    int(C.DSHOW_ERR_INVALID_PARAM),
	"DSHOW_ERR_INIT_FAILED":      int(C.DSHOW_ERR_INIT_FAILED),
	"DSHOW_ERR_NOT_FOUND":        int(C.DSHOW_ERR_NOT_FOUND),
	"DSHOW_ERR_NOT_SUPPORTED":    int(C.DSHOW_ERR_NOT_SUPPORTED),
	"DSHOW_ERR_BUFFER_TOO_SMALL": int(C.DSHOW_ERR_BUFFER_TOO_SMALL),
	"DSHOW_ERR_DEVICE_LOST":      int(C.DSHOW_ERR_DEVICE_LOST),
	"DSHOW_ERR_OUT_OF_MEMORY":    int(C.DSHOW_ERR_OUT_OF_MEMORY),
	"DSHOW_MAX_NAME":             int(C.DSHOW_MAX_NAME),
	"DSHOW_MAX_PATH":             int(C.DSHOW_MAX_PATH),
}
