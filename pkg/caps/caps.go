// Package caps models the capture modes a device advertises and negotiates a
// concrete capture configuration from them.
package caps

import (
	"errors"
	"fmt"

	"github.com/thesyncim/libgodshow/pkg/format"
)

// Errors
var (
	ErrInvalidCapabilityIndex = errors.New("invalid capability index")
	ErrInvalidFrameRate       = errors.New("invalid frame rate")
)

// IntervalUnit is the number of capture interval units in one second.
// Intervals are expressed in 100ns units.
const IntervalUnit = 10_000_000

// Capability is one hardware-advertised mode of a device.
// Negative CY bounds mean the device delivers bottom-up frames.
type Capability struct {
	MinCX         int
	MaxCX         int
	GranularityCX int
	MinCY         int
	MaxCY         int
	GranularityCY int
	MinInterval   int64
	MaxInterval   int64
	Format        format.VideoFormat
}

// Flipped reports whether frames in this mode arrive bottom-up.
func (c Capability) Flipped() bool {
	return c.MinCY < 0 || c.MaxCY < 0
}

// WidthRange returns the supported width bounds.
func (c Capability) WidthRange() (lo, hi int) {
	return c.MinCX, c.MaxCX
}

// HeightRange returns the supported height magnitude bounds, ordered lo <= hi.
func (c Capability) HeightRange() (lo, hi int) {
	lo, hi = abs(c.MinCY), abs(c.MaxCY)
	if lo > hi {
		lo, hi = hi, lo
	}
	return lo, hi
}

// ClampWidth clamps w into the width range on the granularity grid.
func (c Capability) ClampWidth(w int) int {
	return ClampToGranularity(w, c.MinCX, c.MaxCX, c.GranularityCX)
}

// ClampHeight clamps the magnitude of h into the height range on the granularity grid.
func (c Capability) ClampHeight(h int) int {
	lo, hi := c.HeightRange()
	return ClampToGranularity(abs(h), lo, hi, abs(c.GranularityCY))
}

// ClampInterval clamps interval into the supported interval range.
func (c Capability) ClampInterval(interval int64) int64 {
	return ClampInterval(interval, c.MinInterval, c.MaxInterval)
}

func (c Capability) String() string {
	return fmt.Sprintf("X %d-%d/%d Y %d-%d/%d I %d-%d %s",
		c.MinCX, c.MaxCX, c.GranularityCX,
		c.MinCY, c.MaxCY, c.GranularityCY,
		c.MinInterval, c.MaxInterval, c.Format)
}

// Device describes a capture device and its modes in engine enumeration order.
type Device struct {
	Name string
	Path string
	Caps []Capability
}

// Configuration is a negotiated capture configuration. The engine updates
// Format and InternalFormat in place with what it actually achieved.
type Configuration struct {
	Name string
	Path string

	// Width and Height are absolute; Flip carries orientation.
	Width  int
	Height int
	Flip   bool

	// Interval is the frame interval in 100ns units. Zero lets the device choose.
	Interval int64

	// Format is the requested output format.
	Format format.VideoFormat

	// InternalFormat is the format delivered by the device.
	InternalFormat format.VideoFormat

	// UseDefault asks the engine to use the device's own default mode.
	UseDefault bool
}

// FrameSize returns the largest payload a frame of this configuration may
// carry: width * height * 4 bytes of XRGB.
func (c Configuration) FrameSize() int {
	return c.Width * c.Height * 4
}

// FPS returns the frame rate implied by Interval, or 0 when unset.
func (c Configuration) FPS() int {
	if c.Interval <= 0 {
		return 0
	}
	return int(IntervalUnit / c.Interval)
}

func (c Configuration) String() string {
	return fmt.Sprintf("%dx%d flip=%v interval=%d format=%s internal=%s default=%v",
		c.Width, c.Height, c.Flip, c.Interval, c.Format, c.InternalFormat, c.UseDefault)
}

// IntervalForFPS converts a frame rate into a capture interval.
func IntervalForFPS(fps int) int64 {
	if fps <= 0 {
		return 0
	}
	return IntervalUnit / int64(fps)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
