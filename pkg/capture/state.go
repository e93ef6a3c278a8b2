package capture

// State is the lifecycle state of a Session.
type State int32

const (
	StateIdle State = iota
	StateConfiguring
	StateConnected
	StateCapturing
	StateStopped
	StateDestroyed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConfiguring:
		return "configuring"
	case StateConnected:
		return "connected"
	case StateCapturing:
		return "capturing"
	case StateStopped:
		return "stopped"
	case StateDestroyed:
		return "destroyed"
	default:
		return "unknown"
	}
}
