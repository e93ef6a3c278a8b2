package caps

import "github.com/thesyncim/libgodshow/pkg/format"

// Attempt is one configuration to try against the engine.
type Attempt struct {
	Name   string
	Config Configuration

	// RejectBeyondMJPEG fails the attempt when the engine settles on an
	// internal format that ranks past MJPEG.
	RejectBeyondMJPEG bool
}

// Plan is an ordered list of attempts. A plan is run until the first attempt
// succeeds.
type Plan []Attempt

// Names returns the attempt names in order.
func (p Plan) Names() []string {
	names := make([]string, len(p))
	for i, a := range p {
		names[i] = a.Name
	}
	return names
}

// DefaultConfiguration asks the engine for the device's own default mode.
func DefaultConfiguration(dev Device) Configuration {
	return Configuration{
		Name:           dev.Name,
		Path:           dev.Path,
		Format:         format.Any,
		InternalFormat: format.Any,
		UseDefault:     true,
	}
}

// DefaultPlan lets the device choose, retrying with MJPEG forced when the
// device picks a format downstream consumers cannot handle.
func DefaultPlan(dev Device) Plan {
	mjpeg := DefaultConfiguration(dev)
	mjpeg.InternalFormat = format.MJPEG
	return Plan{
		{Name: "default", Config: DefaultConfiguration(dev), RejectBeyondMJPEG: true},
		{Name: "default-mjpeg", Config: mjpeg, RejectBeyondMJPEG: true},
	}
}

// ForCapability builds the configuration for capability idx of dev, clamping
// the requested size and interval to what the capability supports.
func ForCapability(dev Device, idx, width, height int, interval int64) (Configuration, error) {
	if idx < 0 || idx >= len(dev.Caps) {
		return Configuration{}, ErrInvalidCapabilityIndex
	}
	c := dev.Caps[idx]
	return Configuration{
		Name:           dev.Name,
		Path:           dev.Path,
		Width:          c.ClampWidth(width),
		Height:         c.ClampHeight(height),
		Flip:           c.Flipped(),
		Interval:       c.ClampInterval(interval),
		Format:         format.XRGB,
		InternalFormat: c.Format,
	}, nil
}

// CapabilityPlan applies capability idx as is. When the capability's format
// ranks past MJPEG a second attempt forces MJPEG at the same size and interval.
func CapabilityPlan(dev Device, idx, width, height int, interval int64) (Plan, error) {
	cfg, err := ForCapability(dev, idx, width, height, interval)
	if err != nil {
		return nil, err
	}
	plan := Plan{{Name: "capability", Config: cfg}}
	if format.BeyondMJPEG(cfg.InternalFormat) {
		mjpeg := cfg
		mjpeg.InternalFormat = format.MJPEG
		plan = append(plan, Attempt{Name: "capability-mjpeg", Config: mjpeg})
	}
	return plan, nil
}

// FrameRatePlan tries the best scoring capability, then the same size with
// the internal format left to the engine, then the default plan.
func (m Matcher) FrameRatePlan(dev Device, width, height, fps int) (Plan, error) {
	best, ok, err := m.Best(dev, width, height, fps)
	if err != nil {
		return nil, err
	}
	if !ok {
		return DefaultPlan(dev), nil
	}

	cfg := Configuration{
		Name:           dev.Name,
		Path:           dev.Path,
		Width:          best.Width,
		Height:         best.Height,
		Flip:           best.Capability.Flipped(),
		Interval:       best.Interval,
		Format:         format.XRGB,
		InternalFormat: best.Capability.Format,
	}
	anyFormat := cfg
	anyFormat.InternalFormat = format.Any

	plan := Plan{
		{Name: "best", Config: cfg},
		{Name: "best-any-format", Config: anyFormat},
	}
	return append(plan, DefaultPlan(dev)...), nil
}
