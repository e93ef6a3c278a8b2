package ffi

import (
	"unsafe"

	"github.com/thesyncim/libgodshow/pkg/caps"
	"github.com/thesyncim/libgodshow/pkg/format"
)

// Fixed string capacities in shim.h, in UTF-16 code units including the NUL.
const (
	maxNameLen = 256
	maxPathLen = 512
)

// shimDeviceInfo matches DshowDeviceInfo in shim.h. It is 4-byte aligned
// and has no tail padding.
type shimDeviceInfo struct {
	name     [maxNameLen]uint16
	path     [maxPathLen]uint16
	capCount int32
}

// shimCapability matches DshowCapability in shim.h
type shimCapability struct {
	minCX         int32
	maxCX         int32
	granularityCX int32
	minCY         int32
	maxCY         int32
	granularityCY int32
	minInterval   int64
	maxInterval   int64
	format        int32
	_             [4]byte // padding
}

// shimVideoConfig matches DshowVideoConfig in shim.h. The shim writes the
// achieved configuration back into the struct.
type shimVideoConfig struct {
	name           [maxNameLen]uint16
	path           [maxPathLen]uint16
	cx             int32
	cy             int32
	frameInterval  int64
	format         int32
	internalFormat int32
	flip           int32
	useDefault     int32
}

func (c shimCapability) toCapability() caps.Capability {
	return caps.Capability{
		MinCX:         int(c.minCX),
		MaxCX:         int(c.maxCX),
		GranularityCX: int(c.granularityCX),
		MinCY:         int(c.minCY),
		MaxCY:         int(c.maxCY),
		GranularityCY: int(c.granularityCY),
		MinInterval:   c.minInterval,
		MaxInterval:   c.maxInterval,
		Format:        format.VideoFormat(c.format),
	}
}

func newShimVideoConfig(cfg caps.Configuration) (*shimVideoConfig, error) {
	sc := &shimVideoConfig{
		cx:             int32(cfg.Width),
		cy:             int32(cfg.Height),
		frameInterval:  cfg.Interval,
		format:         int32(cfg.Format),
		internalFormat: int32(cfg.InternalFormat),
		flip:           boolToInt32(cfg.Flip),
		useDefault:     boolToInt32(cfg.UseDefault),
	}
	if err := encodeUTF16(cfg.Name, sc.name[:]); err != nil {
		return nil, err
	}
	if err := encodeUTF16(cfg.Path, sc.path[:]); err != nil {
		return nil, err
	}
	return sc, nil
}

func (c *shimVideoConfig) configuration() caps.Configuration {
	return caps.Configuration{
		Name:           decodeUTF16(c.name[:]),
		Path:           decodeUTF16(c.path[:]),
		Width:          int(c.cx),
		Height:         abs32(c.cy),
		Flip:           c.flip != 0 || c.cy < 0,
		Interval:       c.frameInterval,
		Format:         format.VideoFormat(c.format),
		InternalFormat: format.VideoFormat(c.internalFormat),
		UseDefault:     c.useDefault != 0,
	}
}

// overlay returns cfg with the numeric fields of c. Names are kept from cfg
// so the per-frame path does not decode strings.
func (c *shimVideoConfig) overlay(cfg caps.Configuration) caps.Configuration {
	cfg.Width = int(c.cx)
	cfg.Height = abs32(c.cy)
	cfg.Flip = c.flip != 0 || c.cy < 0
	cfg.Interval = c.frameInterval
	cfg.Format = format.VideoFormat(c.format)
	cfg.InternalFormat = format.VideoFormat(c.internalFormat)
	return cfg
}

// Ptr returns a pointer to the config as uintptr for FFI calls.
func (c *shimVideoConfig) Ptr() uintptr {
	return uintptr(unsafe.Pointer(c))
}

func boolToInt32(b bool) int32 {
	if b {
		return 1
	}
	return 0
}

// abs32 returns |v|. A negative cy in a written-back config means bottom-up
// rows, the BITMAPINFOHEADER convention.
func abs32(v int32) int {
	if v < 0 {
		return -int(v)
	}
	return int(v)
}

// goString converts a NUL-terminated C string owned by the shim.
func goString(p uintptr) string {
	if p == 0 {
		return ""
	}
	ptr := (*byte)(unsafe.Pointer(p))
	n := 0
	for *(*byte)(unsafe.Add(unsafe.Pointer(ptr), n)) != 0 {
		n++
	}
	return string(unsafe.Slice(ptr, n))
}
