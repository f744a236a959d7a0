package service

// Mode selects who drives a running subsystem's cycles
type Mode uint8

const (
	// ModeCooperative: an external loop calls Cycle once per iteration
	ModeCooperative Mode = iota
	// ModeOwnThread: the runner spawns a goroutine that paces and calls Cycle
	ModeOwnThread
)

func (m Mode) String() string {
	switch m {
	case ModeCooperative:
		return "cooperative"
	case ModeOwnThread:
		return "own-thread"
	default:
		return "unknown"
	}
}

// Subsystem is the capability set every engine subsystem (input, graphics, audio) implements
//
// Lifecycle (driven by Runner):
//  1. Construction (via Registry factory)
//  2. Setup(cfg) - restart-safe configuration, called again before every restart
//  3. Startup(mode) - subsystem-specific startup; never spawns the cycle goroutine itself
//  4. Cycle() - one unit of work, repeated
//  5. Teardown() - release resources; must tolerate being called after a failed Startup
type Subsystem interface {
	// Name returns the unique identifier, also used as metric prefix
	Name() string

	// Setup applies configuration; errors leave the subsystem unconfigured
	Setup(cfg Config) error

	// Startup prepares the subsystem to cycle in the given mode
	Startup(mode Mode) error

	// Cycle performs one unit of work; false means stop cycling
	// Internal errors are logged and reported as false, never propagated
	Cycle() bool

	// Teardown halts operation and releases resources
	Teardown() error
}
