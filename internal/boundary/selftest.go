package boundary

import (
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
)

// SelfTestFrames is how many frames SelfTest waits for.
const SelfTestFrames = 40

// SelfTest drives a session through the host API the way a host would: it
// lists devices and the capabilities of device n, starts a capture at
// width x height at fps and pulls frames until it has received frames of them
// or capture stops. It returns the number of frames received.
func SelfTest(w io.Writer, r *Registry, n, width, height, fps, frames int) int {
	h := r.Create()
	if h == 0 {
		fmt.Fprintln(w, "Create: failed")
		return 0
	}
	defer r.Destroy(h)

	num := r.Devices(h)
	fmt.Fprintf(w, "Number: %d\n", num)
	name := make([]byte, 256)
	for i := 0; i < num; i++ {
		if l := r.DeviceName(h, i, name); l >= 0 {
			fmt.Fprintf(w, "Cam %d: %s\n", i, name[:l])
		}
	}

	s, _ := r.lookup(h)
	if dev, err := s.Device(n); err == nil {
		for i, c := range dev.Caps {
			fmt.Fprintf(w, "Caps %d: %s\n", i, c)
		}
	}

	fmt.Fprintf(w, "Start: %d\n", r.CaptureDevice(h, n, width, height, fps))
	width, height = r.Width(h), r.Height(h)
	size := width * height * 4
	fmt.Fprintf(w, "Width: %d\n", width)
	fmt.Fprintf(w, "Height: %d\n", height)
	fmt.Fprintf(w, "Flipped: %d\n", r.Flipped(h))
	fmt.Fprintf(w, "Fps: %d\n", r.FPS(h))
	fmt.Fprintf(w, "Internal colorspace: %d\n", r.Colorspace(h))
	fmt.Fprintf(w, "Frame size: %s\n", humanize.IBytes(uint64(max(size, 0))))

	buf := make([]byte, max(size, 0))
	got := 0
	for got < frames && r.Capturing(h) == 1 {
		if r.Frame(h, 1000, buf) > 0 {
			got++
			fmt.Fprintln(w, "Got frame")
		} else {
			fmt.Fprintln(w, "Lost frame")
		}
	}
	return got
}
