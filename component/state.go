package component

// State represents the current lifecycle state of a component instance.
type State int

const (
	// StateUninitialized indicates the instance was constructed but
	// Initialize has not run.
	StateUninitialized State = iota
	// StateInitializing indicates Initialize is in progress.
	StateInitializing
	// StateReady indicates the instance initialized successfully and is live.
	StateReady
	// StateFailed indicates initialization failed, or the instance's target
	// selector matched nothing on this page (expected absence).
	StateFailed
	// StateDestroyed indicates the instance was torn down.
	StateDestroyed
)

// String returns a string representation of the lifecycle state
func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitializing:
		return "initializing"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	case StateDestroyed:
		return "destroyed"
	default:
		return "unknown"
	}
}

// IsLive reports whether the instance still occupies its identity slot.
// Failed instances are not live: a later create for the same selector may
// replace them.
func (s State) IsLive() bool {
	return s == StateInitializing || s == StateReady
}
