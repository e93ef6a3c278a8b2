package capture

import (
	"errors"

	"github.com/thesyncim/libgodshow/pkg/caps"
)

// Errors
var (
	ErrInvalidDeviceIndex     = errors.New("invalid device index")
	ErrInvalidCapabilityIndex = caps.ErrInvalidCapabilityIndex
	ErrInvalidFrameRate       = caps.ErrInvalidFrameRate
	ErrDeviceUnavailable      = errors.New("capture device unavailable")
	ErrConfigurationRejected  = errors.New("capture configuration rejected")
	ErrSessionDestroyed       = errors.New("capture session destroyed")

	errUnsupportedFormat = errors.New("device settled on an unsupported internal format")
	errOutputFormat      = errors.New("engine did not deliver the requested output format")
)
