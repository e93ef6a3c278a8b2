//go:build windows

package ffi

import (
	"fmt"

	"golang.org/x/sys/windows"
)

// RTLD flags are not used on Windows but keep lib.go portable.
const (
	RTLD_NOW    = 0
	RTLD_GLOBAL = 0
)

func dlopenLibrary(path string, flags int) (uintptr, error) {
	h, err := windows.LoadLibraryEx(path, 0, windows.LOAD_LIBRARY_SEARCH_DEFAULT_DIRS|windows.LOAD_LIBRARY_SEARCH_DLL_LOAD_DIR)
	if err != nil {
		// Bare names and pre-Windows 8 loaders.
		h, err = windows.LoadLibrary(path)
		if err != nil {
			return 0, fmt.Errorf("LoadLibrary failed: %w", err)
		}
	}
	return uintptr(h), nil
}

func dlsymLibrary(handle uintptr, name string) (uintptr, error) {
	addr, err := windows.GetProcAddress(windows.Handle(handle), name)
	if err != nil {
		return 0, fmt.Errorf("GetProcAddress(%s) failed: %w", name, err)
	}
	return addr, nil
}

func dlcloseLibrary(handle uintptr) error {
	if err := windows.FreeLibrary(windows.Handle(handle)); err != nil {
		return fmt.Errorf("FreeLibrary failed: %w", err)
	}
	return nil
}
