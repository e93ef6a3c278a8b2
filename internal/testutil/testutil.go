// Package testutil provides shared test utilities for libgodshow tests.
package testutil

import (
	"os"
	"testing"

	"github.com/thesyncim/libgodshow/internal/ffi"
	"github.com/thesyncim/libgodshow/pkg/caps"
	"github.com/thesyncim/libgodshow/pkg/format"
)

// RequireShim skips the test when DSHOWCAPTURE_SHIM_PATH is unset and fails
// it when the variable is set but the shim cannot be loaded.
func RequireShim(tb testing.TB) {
	tb.Helper()
	if os.Getenv(ffi.EnvShimPath) == "" {
		tb.Skipf("%s not set", ffi.EnvShimPath)
	}
	if err := ffi.LoadLibrary(); err != nil {
		tb.Fatalf("shim library required: %v", err)
	}
}

// Camera returns a webcam-like device with a few fixed modes and one ranged
// YUY2 capability.
func Camera() caps.Device {
	return caps.Device{
		Name: "Test Camera",
		Path: `\\?\usb#vid_046d&pid_0825#test`,
		Caps: []caps.Capability{
			Fixed(640, 480, caps.IntervalForFPS(30), format.YUY2),
			Fixed(1280, 720, caps.IntervalForFPS(30), format.MJPEG),
			Fixed(1920, 1080, caps.IntervalForFPS(30), format.H264),
			{
				MinCX: 160, MaxCX: 1280, GranularityCX: 8,
				MinCY: 120, MaxCY: 720, GranularityCY: 8,
				MinInterval: caps.IntervalForFPS(60),
				MaxInterval: caps.IntervalForFPS(5),
				Format:      format.YUY2,
			},
		},
	}
}

// H264OnlyCamera returns a device whose only mode is H264.
func H264OnlyCamera() caps.Device {
	return caps.Device{
		Name: "H264 Camera",
		Path: `\\?\usb#vid_1234&pid_5678#h264`,
		Caps: []caps.Capability{
			Fixed(1920, 1080, caps.IntervalForFPS(30), format.H264),
		},
	}
}

// Fixed returns a capability supporting exactly one size and interval.
func Fixed(w, h int, interval int64, f format.VideoFormat) caps.Capability {
	return caps.Capability{
		MinCX: w, MaxCX: w, GranularityCX: 1,
		MinCY: h, MaxCY: h, GranularityCY: 1,
		MinInterval: interval, MaxInterval: interval,
		Format: f,
	}
}

// Frame returns a payload of n bytes with every byte set to seq.
func Frame(n int, seq byte) []byte {
	p := make([]byte, n)
	for i := range p {
		p[i] = seq
	}
	return p
}

// XRGBFrame returns an XRGB payload for cfg with every byte set to seq.
func XRGBFrame(cfg caps.Configuration, seq byte) []byte {
	return Frame(cfg.FrameSize(), seq)
}
