package runstate

import "time"

// State is the process-wide run status gating game logic
type State int32

const (
	Normal State = iota
	Paused
	Quitting
)

func (s State) String() string {
	switch s {
	case Normal:
		return "NORMAL"
	case Paused:
		return "PAUSED"
	case Quitting:
		return "QUITTING"
	default:
		return "UNKNOWN"
	}
}

// EventKind identifies a requested run state operation
type EventKind uint8

const (
	EventPoll EventKind = iota
	EventClear
	EventPause
	EventResume
	EventQuit
)

func (k EventKind) String() string {
	switch k {
	case EventPoll:
		return "POLL"
	case EventClear:
		return "CLEAR"
	case EventPause:
		return "PAUSE"
	case EventResume:
		return "RESUME"
	case EventQuit:
		return "QUIT"
	default:
		return "UNKNOWN"
	}
}

// Event is an immutable queued request
type Event struct {
	Kind EventKind
	At   time.Time
}

// Device is an external input collaborator driven by POLL/CLEAR/PAUSE
// Methods are called from the consumer goroutine and must be safe against the device's own cycle
type Device interface {
	// Poll publishes buffered device data to readers
	Poll()
	// Clear discards all pending device data
	Clear()
}

// Clock is the master clock surface paused and resumed by transitions
type Clock interface {
	Pause()
	Resume()
}

// TransitionFunc observes a state change; runs on the consumer goroutine
type TransitionFunc func(from, to State)
