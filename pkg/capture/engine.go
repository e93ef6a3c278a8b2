// Package capture drives a native capture engine: it negotiates a capture
// configuration for a device and relays the frames the engine produces to a
// polling consumer.
package capture

import "github.com/thesyncim/libgodshow/pkg/caps"

// FrameFunc receives one decoded frame from the engine's callback thread.
// data is only valid for the duration of the call. start and stop are
// timestamps in 100ns units.
type FrameFunc func(cfg caps.Configuration, data []byte, start, stop int64, rotation int)

// Engine is the native capture engine a session drives. Implementations must
// guarantee that no FrameFunc call is in flight once Stop returns.
type Engine interface {
	// EnumerateDevices lists the capture devices and their capabilities.
	EnumerateDevices() ([]caps.Device, error)

	// ResetGraph tears down any previous capture graph.
	ResetGraph() error

	// Valid reports whether the engine's capture graph is usable.
	Valid() bool

	// SetVideoConfig opens the configured device and applies cfg. The engine
	// updates cfg in place with the configuration it actually achieved.
	SetVideoConfig(cfg *caps.Configuration, fn FrameFunc) error

	// ConnectFilters connects the capture graph.
	ConnectFilters() error

	// Start starts delivering frames to the FrameFunc.
	Start() error

	// Stop stops delivering frames.
	Stop()

	// Close releases the engine.
	Close() error
}
