// Package ffi provides purego bindings to the dshowcapture shim, the native
// library that owns the platform capture graph.
package ffi

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"sync/atomic"
)

// EnvShimPath names an explicit shim library path.
const EnvShimPath = "DSHOWCAPTURE_SHIM_PATH"

var (
	// ErrLibraryNotLoaded is returned when the shim library hasn't been loaded.
	ErrLibraryNotLoaded = errors.New("dshowcapture_shim library not loaded")

	// ErrLibraryNotFound is returned when the shim library cannot be found.
	ErrLibraryNotFound = errors.New("dshowcapture_shim library not found")

	// Shim error sentinels. They match shim error codes and support errors.Is().
	ErrInvalidParam   = errors.New("invalid parameter")
	ErrInitFailed     = errors.New("initialization failed")
	ErrNotFound       = errors.New("device not found")
	ErrNotSupported   = errors.New("configuration not supported")
	ErrBufferTooSmall = errors.New("buffer too small")
	ErrDeviceLost     = errors.New("device lost")
	ErrOutOfMemory    = errors.New("out of memory")
)

// Error codes from the shim (int32 to match C int).
const (
	ShimOK                int32 = 0
	ShimErrInvalidParam   int32 = -1
	ShimErrInitFailed     int32 = -2
	ShimErrNotFound       int32 = -3
	ShimErrNotSupported   int32 = -4
	ShimErrBufferTooSmall int32 = -5
	ShimErrDeviceLost     int32 = -6
	ShimErrOutOfMemory    int32 = -7
)

var (
	libHandle uintptr
	libLoaded atomic.Bool
	libMu     sync.Mutex
)

// LoadLibrary loads the dshowcapture shim shared library.
// It searches in the following locations:
// 1. Path specified by the DSHOWCAPTURE_SHIM_PATH environment variable
// 2. ./lib/{os}_{arch}/ relative to the executable, working directory and module
// 3. System library paths
func LoadLibrary() error {
	libMu.Lock()
	defer libMu.Unlock()

	if libLoaded.Load() {
		return nil
	}

	libPath, err := resolveLibrary()
	if err != nil {
		return err
	}

	handle, err := dlopenLibrary(libPath, RTLD_NOW|RTLD_GLOBAL)
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", libPath, err)
	}

	libHandle = handle
	if err := registerFunctions(); err != nil {
		_ = dlcloseLibrary(handle)
		libHandle = 0
		return err
	}

	libLoaded.Store(true)
	return nil
}

// IsLoaded returns true if the shim library is loaded.
func IsLoaded() bool {
	return libLoaded.Load()
}

// Close unloads the shim library. Engines must be closed first.
func Close() error {
	libMu.Lock()
	defer libMu.Unlock()

	if !libLoaded.Load() {
		return nil
	}
	if platformRefs() > 0 {
		return fmt.Errorf("ffi: %d engines still open", platformRefs())
	}

	if err := dlcloseLibrary(libHandle); err != nil {
		return err
	}

	libLoaded.Store(false)
	libHandle = 0
	return nil
}

// ExpectedShimVersion is the shim API version this Go code expects.
const ExpectedShimVersion = "1.0.0"

// ErrVersionMismatch is returned when the shim version doesn't match.
var ErrVersionMismatch = errors.New("shim version mismatch")

// ShimVersion returns the shim library version, or "" if the library is not
// loaded.
func ShimVersion() string {
	if !libLoaded.Load() {
		return ""
	}
	return goString(shimVersion())
}

// CheckVersion verifies the shim version matches what this Go code expects.
func CheckVersion() error {
	if !libLoaded.Load() {
		return ErrLibraryNotLoaded
	}
	if v := ShimVersion(); v != ExpectedShimVersion {
		return fmt.Errorf("%w: shim version %q, expected %q", ErrVersionMismatch, v, ExpectedShimVersion)
	}
	return nil
}

func resolveLibrary() (string, error) {
	if path := os.Getenv(EnvShimPath); path != "" {
		if _, err := os.Stat(path); err != nil {
			return "", fmt.Errorf("%w: %s=%s: %w", ErrLibraryNotFound, EnvShimPath, path, err)
		}
		return path, nil
	}
	if path, ok := findLocalLibrary(); ok {
		return path, nil
	}
	// Let the loader search the system paths.
	return getLibraryName(), nil
}

func findLocalLibrary() (string, bool) {
	libName := getLibraryName()
	platformDir := fmt.Sprintf("%s_%s", runtime.GOOS, runtime.GOARCH)

	var searchPaths []string

	if execPath, err := os.Executable(); err == nil {
		execDir := filepath.Dir(execPath)
		searchPaths = append(searchPaths,
			filepath.Join(execDir, libName),
			filepath.Join(execDir, "lib", platformDir, libName),
		)
	}

	if wd, err := os.Getwd(); err == nil {
		searchPaths = append(searchPaths,
			filepath.Join(wd, "lib", platformDir, libName),
			filepath.Join(wd, "..", "lib", platformDir, libName),
			filepath.Join(wd, "..", "..", "lib", platformDir, libName),
		)
	}

	// Module root, for development and tests.
	if _, thisFile, _, ok := runtime.Caller(0); ok {
		moduleRoot := filepath.Dir(filepath.Dir(filepath.Dir(thisFile)))
		searchPaths = append(searchPaths, filepath.Join(moduleRoot, "lib", platformDir, libName))
	}

	for _, path := range searchPaths {
		if _, err := os.Stat(path); err == nil {
			absPath, _ := filepath.Abs(path)
			return absPath, true
		}
	}
	return "", false
}

func getLibraryName() string {
	return getLibraryNameFor(runtime.GOOS)
}

func getLibraryNameFor(goos string) string {
	switch goos {
	case "darwin":
		return "libdshowcapture_shim.dylib"
	case "windows":
		return "dshowcapture_shim.dll"
	default:
		return "libdshowcapture_shim.so"
	}
}

// ShimError converts a shim error code to a Go error.
// Returns sentinel errors that support errors.Is() comparisons.
func ShimError(code int32) error {
	switch code {
	case ShimOK:
		return nil
	case ShimErrInvalidParam:
		return ErrInvalidParam
	case ShimErrInitFailed:
		return ErrInitFailed
	case ShimErrNotFound:
		return ErrNotFound
	case ShimErrNotSupported:
		return ErrNotSupported
	case ShimErrBufferTooSmall:
		return ErrBufferTooSmall
	case ShimErrDeviceLost:
		return ErrDeviceLost
	case ShimErrOutOfMemory:
		return ErrOutOfMemory
	default:
		return fmt.Errorf("unknown shim error: %d", code)
	}
}
