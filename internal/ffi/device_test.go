package ffi

import (
	"errors"
	"log/slog"
	"reflect"
	"strings"
	"testing"
	"unicode/utf8"
	"unsafe"

	"github.com/google/go-cmp/cmp"

	"github.com/thesyncim/libgodshow/pkg/caps"
	"github.com/thesyncim/libgodshow/pkg/format"
)

func utf16Field(n int, units ...uint16) []uint16 {
	w := make([]uint16, n)
	copy(w, units)
	return w
}

func TestDecodeUTF16(t *testing.T) {
	tests := []struct {
		name  string
		input []uint16
		want  string
	}{
		{
			name:  "simple string",
			input: utf16Field(8, 'c', 'a', 'm'),
			want:  "cam",
		},
		{
			name:  "empty string",
			input: utf16Field(4),
			want:  "",
		},
		{
			name:  "full buffer without null",
			input: []uint16{'a', 'b', 'c'},
			want:  "abc",
		},
		{
			name:  "garbage after null",
			input: []uint16{'t', 'e', 's', 't', 0, 'x', 'y'},
			want:  "test",
		},
		{
			name:  "BMP characters",
			input: utf16Field(4, 0x00e9, 0x65e5),
			want:  "é日",
		},
		{
			name:  "surrogate pair",
			input: utf16Field(4, 0xd83d, 0xdcf7),
			want:  "\U0001F4F7",
		},
		{
			name:  "unpaired high surrogate",
			input: utf16Field(4, 'a', 0xd83d, 'b'),
			want:  "a\uFFFDb",
		},
		{
			name:  "unpaired low surrogate at end",
			input: utf16Field(4, 'a', 0xdcf7),
			want:  "a\uFFFD",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := decodeUTF16(tt.input)
			if got != tt.want {
				t.Errorf("decodeUTF16(%x) = %q, want %q", tt.input, got, tt.want)
			}
			if !utf8.ValidString(got) {
				t.Errorf("decodeUTF16(%x) = %q is not valid UTF-8", tt.input, got)
			}
		})
	}
}

func TestEncodeUTF16(t *testing.T) {
	dst := utf16Field(8, 'x', 'x', 'x', 'x', 'x', 'x', 'x', 'x')
	if err := encodeUTF16("é\U0001F4F7", dst); err != nil {
		t.Fatalf("encodeUTF16: %v", err)
	}
	want := utf16Field(8, 0x00e9, 0xd83d, 0xdcf7)
	if diff := cmp.Diff(want, dst); diff != "" {
		t.Errorf("encodeUTF16 mismatch (-want +got):\n%s", diff)
	}
	if got := decodeUTF16(dst); got != "é\U0001F4F7" {
		t.Errorf("round trip = %q", got)
	}

	// The NUL terminator needs room too.
	if err := encodeUTF16("abcd", make([]uint16, 4)); !errors.Is(err, ErrStringTooLong) {
		t.Errorf("encodeUTF16 into a full field error = %v, want %v", err, ErrStringTooLong)
	}
	if err := encodeUTF16("abc", make([]uint16, 4)); err != nil {
		t.Errorf("encodeUTF16 with exact room: %v", err)
	}
}

func TestShimVideoConfigRoundTrip(t *testing.T) {
	cfg := caps.Configuration{
		Name:           "Logitech HD Webcam C270",
		Path:           `\\?\usb#vid_046d&pid_0825&mi_00#6&2f3b1f4a&0&0000`,
		Width:          1280,
		Height:         720,
		Flip:           true,
		Interval:       333333,
		Format:         format.XRGB,
		InternalFormat: format.MJPEG,
	}
	sc, err := newShimVideoConfig(cfg)
	if err != nil {
		t.Fatalf("newShimVideoConfig: %v", err)
	}
	if diff := cmp.Diff(cfg, sc.configuration()); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}

	cfg.Name = strings.Repeat("n", maxNameLen)
	if _, err := newShimVideoConfig(cfg); !errors.Is(err, ErrStringTooLong) {
		t.Errorf("oversized name error = %v, want %v", err, ErrStringTooLong)
	}
}

func TestCapabilityConversion(t *testing.T) {
	sc := shimCapability{
		minCX: 160, maxCX: 1920, granularityCX: 8,
		minCY: -1080, maxCY: -120, granularityCY: 8,
		minInterval: 166666, maxInterval: 2000000,
		format: int32(format.YUY2),
	}
	c := sc.toCapability()
	if !c.Flipped() || c.Format != format.YUY2 || c.MaxInterval != 2000000 {
		t.Errorf("toCapability() = %+v", c)
	}
}

func TestGoString(t *testing.T) {
	buf := []byte("1.0.0\x00junk")
	if got := goString(uintptr(unsafe.Pointer(&buf[0]))); got != "1.0.0" {
		t.Errorf("goString = %q, want 1.0.0", got)
	}
	if got := goString(0); got != "" {
		t.Errorf("goString(0) = %q, want empty", got)
	}
}

type recordedFrame struct {
	cfg      caps.Configuration
	data     []byte
	start    int64
	stop     int64
	rotation int
}

func testEngine(fn func(caps.Configuration, []byte, int64, int64, int)) *Engine {
	e := &Engine{log: slog.Default()}
	e.sink.Store(&sink{
		fn:  fn,
		cfg: caps.Configuration{Name: "cam", Width: 4, Height: 2, Interval: 333333},
	})
	return e
}

func TestDispatchFrame(t *testing.T) {
	var got []recordedFrame
	e := testEngine(func(cfg caps.Configuration, data []byte, start, stop int64, rotation int) {
		got = append(got, recordedFrame{cfg, append([]byte(nil), data...), start, stop, rotation})
	})

	payload := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	ptr := uintptr(unsafe.Pointer(&payload[0]))

	dispatchFrame(e, 0, ptr, uintptr(len(payload)), 10, 20, 90)
	// Dropped: nil data, empty, oversized.
	dispatchFrame(e, 0, 0, 8, 0, 0, 0)
	dispatchFrame(e, 0, ptr, 0, 0, 0, 0)
	dispatchFrame(e, 0, ptr, maxFrameSize+1, 0, 0, 0)

	if len(got) != 1 {
		t.Fatalf("dispatched %d frames, want 1", len(got))
	}
	f := got[0]
	if f.cfg.Name != "cam" || f.start != 10 || f.stop != 20 || f.rotation != 90 {
		t.Errorf("frame = %+v", f)
	}
	if diff := cmp.Diff(payload, f.data); diff != "" {
		t.Errorf("payload mismatch (-want +got):\n%s", diff)
	}
}

func TestDispatchFrameConfigOverlay(t *testing.T) {
	var got caps.Configuration
	e := testEngine(func(cfg caps.Configuration, _ []byte, _, _ int64, _ int) {
		got = cfg
	})

	sc := &shimVideoConfig{cx: 2, cy: 2, frameInterval: 666666, flip: 1, format: int32(format.XRGB)}
	payload := make([]byte, 16)
	dispatchFrame(e, sc.Ptr(), uintptr(unsafe.Pointer(&payload[0])), 16, 0, 0, 0)

	if got.Name != "cam" || got.Width != 2 || got.Height != 2 || !got.Flip || got.FPS() != 15 {
		t.Errorf("overlaid configuration = %+v", got)
	}
}

// A written-back negative cy describes bottom-up rows.
func TestShimVideoConfigNegativeHeight(t *testing.T) {
	sc := &shimVideoConfig{cx: 640, cy: -480, frameInterval: 333333, format: int32(format.XRGB)}

	cfg := sc.configuration()
	if cfg.Height != 480 || !cfg.Flip {
		t.Errorf("configuration() height = %d flip = %v, want 480 true", cfg.Height, cfg.Flip)
	}
	if cfg.FrameSize() != 640*480*4 {
		t.Errorf("FrameSize() = %d, want %d", cfg.FrameSize(), 640*480*4)
	}

	over := sc.overlay(caps.Configuration{Name: "cam"})
	if over.Height != 480 || !over.Flip || over.Name != "cam" {
		t.Errorf("overlay() = %+v", over)
	}
}

func TestDispatchFrameRecoversPanic(t *testing.T) {
	e := testEngine(func(caps.Configuration, []byte, int64, int64, int) {
		panic("boom")
	})
	payload := make([]byte, 8)

	// Must not propagate.
	dispatchFrame(e, 0, uintptr(unsafe.Pointer(&payload[0])), 8, 0, 0, 0)
}

func TestFrameCallbackBridgeUnknownContext(t *testing.T) {
	payload := make([]byte, 8)
	// No engine is registered under this context; the frame is dropped.
	if ret := frameCallbackBridge(0xdead, 0, uintptr(unsafe.Pointer(&payload[0])), 8, 0, 0, 0); ret != 0 {
		t.Errorf("frameCallbackBridge() = %d, want 0", ret)
	}
}

// syscall.NewCallback on Windows accepts only functions with exactly one
// uintptr-sized result and uintptr-sized arguments.
func TestFrameCallbackBridgeSignature(t *testing.T) {
	typ := reflect.TypeOf(frameCallbackBridge)
	if typ.NumOut() != 1 {
		t.Fatalf("frameCallbackBridge has %d results, want 1", typ.NumOut())
	}
	if out := typ.Out(0); out.Size() != unsafe.Sizeof(uintptr(0)) {
		t.Errorf("result %s is %d bytes, want %d", out, out.Size(), unsafe.Sizeof(uintptr(0)))
	}
	if typ.NumIn() != 7 {
		t.Fatalf("frameCallbackBridge has %d arguments, want 7", typ.NumIn())
	}
	for i := 0; i < typ.NumIn(); i++ {
		if in := typ.In(i); in.Size() > 8 {
			t.Errorf("argument %d (%s) is %d bytes", i, in, in.Size())
		}
	}
}

func TestEngineWithoutLibrary(t *testing.T) {
	if IsLoaded() {
		t.Skip("Library is loaded, skipping no-library test")
	}

	if _, err := NewEngine(nil); err != ErrLibraryNotLoaded {
		t.Errorf("NewEngine error = %v, want %v", err, ErrLibraryNotLoaded)
	}
	if v := ShimVersion(); v != "" {
		t.Errorf("ShimVersion() = %q without library", v)
	}
	if err := CheckVersion(); err != ErrLibraryNotLoaded {
		t.Errorf("CheckVersion error = %v, want %v", err, ErrLibraryNotLoaded)
	}
	if err := Close(); err != nil {
		t.Errorf("Close without library: %v", err)
	}
}

func TestClosedEngine(t *testing.T) {
	e := &Engine{log: slog.Default(), closed: true}

	if _, err := e.EnumerateDevices(); !errors.Is(err, ErrEngineClosed) {
		t.Errorf("EnumerateDevices error = %v, want %v", err, ErrEngineClosed)
	}
	if err := e.ResetGraph(); !errors.Is(err, ErrEngineClosed) {
		t.Errorf("ResetGraph error = %v, want %v", err, ErrEngineClosed)
	}
	cfg := caps.Configuration{}
	if err := e.SetVideoConfig(&cfg, nil); !errors.Is(err, ErrEngineClosed) {
		t.Errorf("SetVideoConfig error = %v, want %v", err, ErrEngineClosed)
	}
	if err := e.ConnectFilters(); !errors.Is(err, ErrEngineClosed) {
		t.Errorf("ConnectFilters error = %v, want %v", err, ErrEngineClosed)
	}
	if err := e.Start(); !errors.Is(err, ErrEngineClosed) {
		t.Errorf("Start error = %v, want %v", err, ErrEngineClosed)
	}
	if e.Valid() {
		t.Error("Valid() = true on a closed engine")
	}
	e.Stop()
	if err := e.Close(); err != nil {
		t.Errorf("Close on a closed engine: %v", err)
	}
}
