package ffi

import (
	"fmt"
	"sync"
)

// The native capture platform is initialized once per process. Every engine
// holds a reference; the last release shuts the platform down.
var platform struct {
	mu   sync.Mutex
	refs int
}

func acquirePlatform() error {
	platform.mu.Lock()
	defer platform.mu.Unlock()

	if platform.refs == 0 {
		if err := ShimError(shimPlatformInit()); err != nil {
			return fmt.Errorf("platform init: %w", err)
		}
	}
	platform.refs++
	return nil
}

func releasePlatform() {
	platform.mu.Lock()
	defer platform.mu.Unlock()

	if platform.refs == 0 {
		return
	}
	platform.refs--
	if platform.refs == 0 {
		shimPlatformShutdown()
	}
}

func platformRefs() int {
	platform.mu.Lock()
	defer platform.mu.Unlock()
	return platform.refs
}
