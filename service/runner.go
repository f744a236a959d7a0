package service

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"

	"github.com/lixenwraith/cadence/clock"
	"github.com/lixenwraith/cadence/core"
	"github.com/lixenwraith/cadence/status"
)

// State is the lifecycle position of a Runner
type State int32

const (
	StateUnconfigured State = iota
	StateConfigured
	StateRunning
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateUnconfigured:
		return "unconfigured"
	case StateConfigured:
		return "configured"
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// ErrInvalidState is returned for lifecycle calls made from the wrong state
var ErrInvalidState = errors.New("invalid lifecycle state")

// Runner drives one Subsystem through its lifecycle in either mode
// Lifecycle calls (Setup/Start/Stop) come from the orchestrating goroutine;
// Cycle is called by that same goroutine in cooperative mode only
type Runner struct {
	sub Subsystem

	// Regulator construction hooks
	provider clock.TimeProvider
	sleeper  clock.Sleeper

	mu    sync.Mutex // Serializes lifecycle transitions
	state atomic.Int32
	mode  Mode
	cfg   Config
	reg   *clock.Regulator

	// Cooperative stop
	stopFlag atomic.Bool
	stopChan chan struct{}
	stopOnce *sync.Once
	done     chan struct{} // Closed when the own-thread loop exits

	// Cached metric pointers
	statCPS    *status.AtomicFloat
	statCycles *atomic.Int64
}

// RunnerOption configures a Runner at construction
type RunnerOption func(*Runner)

// WithTimeProvider overrides the raw timer for the runner's regulator
func WithTimeProvider(p clock.TimeProvider) RunnerOption {
	return func(r *Runner) { r.provider = p }
}

// WithSleeper overrides the regulator's pacing sleep
func WithSleeper(s clock.Sleeper) RunnerOption {
	return func(r *Runner) { r.sleeper = s }
}

// NewRunner wraps sub; metrics are published as <name>.cps and <name>.cycles
func NewRunner(sub Subsystem, reg *status.Registry, opts ...RunnerOption) *Runner {
	if reg == nil {
		reg = status.NewRegistry()
	}
	r := &Runner{
		sub:        sub,
		provider:   clock.NewMonotonicTimeProvider(),
		sleeper:    clock.TimerSleep,
		statCPS:    reg.Floats.Get(sub.Name() + ".cps"),
		statCycles: reg.Ints.Get(sub.Name() + ".cycles"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Name returns the wrapped subsystem's name
func (r *Runner) Name() string {
	return r.sub.Name()
}

// Subsystem returns the wrapped subsystem
func (r *Runner) Subsystem() Subsystem {
	return r.sub
}

// State returns the current lifecycle state
func (r *Runner) State() State {
	return State(r.state.Load())
}

// Mode returns the mode of the last successful Start
func (r *Runner) Mode() Mode {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.mode
}

// Rate returns the smoothed cycles per second
func (r *Runner) Rate() float64 {
	return r.statCPS.Get()
}

// Setup configures the subsystem; valid from any state except Running
func (r *Runner) Setup(cfg Config) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.State() == StateRunning {
		return fmt.Errorf("%s setup: %w: running", r.Name(), ErrInvalidState)
	}
	if cfg == nil {
		cfg = Config{}
	}

	if err := r.sub.Setup(cfg); err != nil {
		r.state.Store(int32(StateUnconfigured))
		return fmt.Errorf("%s setup failed: %w", r.Name(), err)
	}

	r.cfg = cfg
	r.reg = clock.NewRegulator(cfg.Interval(),
		clock.WithRegulatorTimeProvider(r.provider),
		clock.WithSleeper(r.sleeper),
		clock.WithRateSink(r.statCPS),
	)
	r.state.Store(int32(StateConfigured))
	return nil
}

// Start runs subsystem startup; own-thread mode also launches the cycle goroutine
func (r *Runner) Start(mode Mode) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if st := r.State(); st != StateConfigured {
		return fmt.Errorf("%s start: %w: %s", r.Name(), ErrInvalidState, st)
	}

	if err := r.sub.Startup(mode); err != nil {
		return fmt.Errorf("%s startup failed: %w", r.Name(), err)
	}

	r.mode = mode
	r.stopFlag.Store(false)
	r.stopChan = make(chan struct{})
	r.stopOnce = &sync.Once{}
	r.state.Store(int32(StateRunning))

	if mode == ModeOwnThread {
		r.done = make(chan struct{})
		core.Go(r.loop)
	} else {
		// Host loop paces cooperative cycles; the regulator only measures
		r.reg.SetTarget(0)
		r.reg.Reset()
	}
	return nil
}

// Cycle runs one cooperative unit of work
// Returns false when stopped, not running cooperatively, or the unit asked to stop
func (r *Runner) Cycle() bool {
	if r.State() != StateRunning || r.mode != ModeCooperative || r.stopFlag.Load() {
		return false
	}

	r.reg.Advance()
	if !r.safeCycle() {
		r.stopFlag.Store(true)
		return false
	}
	return true
}

// Active reports whether the subsystem is running and has not asked to stop
func (r *Runner) Active() bool {
	return r.State() == StateRunning && !r.stopFlag.Load()
}

// Stop raises the stop flag, waits for the own-thread loop to exit, then tears down
// Safe on a never-started runner; repeated calls are no-ops
func (r *Runner) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.stopFlag.Store(true)

	switch r.State() {
	case StateUnconfigured, StateStopped:
		return nil
	case StateRunning:
		r.stopOnce.Do(func() { close(r.stopChan) })
		if r.mode == ModeOwnThread {
			<-r.done
		}
	}

	err := r.sub.Teardown()
	r.state.Store(int32(StateStopped))
	if err != nil {
		return fmt.Errorf("%s teardown failed: %w", r.Name(), err)
	}
	return nil
}

// loop is the own-thread cycle: regulate, work, repeat until stopped
func (r *Runner) loop() {
	defer close(r.done)

	r.reg.Reset()
	for !r.stopFlag.Load() {
		r.reg.AdvanceUntil(r.stopChan)
		if r.stopFlag.Load() {
			return
		}
		if !r.safeCycle() {
			log.Printf("[%s] cycle requested stop", r.Name())
			r.stopFlag.Store(true)
			return
		}
	}
}

// safeCycle runs one unit of work, converting a panic into a stop
func (r *Runner) safeCycle() (ok bool) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Printf("[%s] cycle panic: %v", r.Name(), rec)
			ok = false
		}
	}()

	r.statCycles.Add(1)
	return r.sub.Cycle()
}
