package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/lixenwraith/cadence/clock"
	"github.com/lixenwraith/cadence/runstate"
	"github.com/lixenwraith/cadence/service"
	"github.com/lixenwraith/cadence/settings"
	"github.com/lixenwraith/cadence/status"
)

// ErrAlreadyRunning is returned when Run is entered twice concurrently
var ErrAlreadyRunning = errors.New("orchestrator already running")

// Logic is the game-state driver advanced once per NORMAL main-loop cycle
type Logic interface {
	// Cycle advances game logic; false requests shutdown
	Cycle() bool
	// Stop releases the active game state
	Stop()
}

// Deps are the process-wide services the orchestrator composes
type Deps struct {
	Settings   *settings.Settings
	Subsystems *service.Registry // Factories keyed by Slot.String()
	RunState   *runstate.Machine
	Master     *clock.PausableClock
	Logic      Logic            // Optional
	Metrics    *status.Registry // Optional
}

// Option configures an Orchestrator at construction
type Option func(*Orchestrator)

// WithParallelism replaces the hardware parallelism probe
func WithParallelism(probe func() (int, error)) Option {
	return func(o *Orchestrator) { o.probe = probe }
}

// WithTimeProvider overrides the raw timer of every regulator the orchestrator builds
func WithTimeProvider(p clock.TimeProvider) Option {
	return func(o *Orchestrator) { o.provider = p }
}

// WithSleeper overrides the pacing sleep of every regulator the orchestrator builds
func WithSleeper(s clock.Sleeper) Option {
	return func(o *Orchestrator) { o.sleeper = s }
}

// Orchestrator composes input, graphics and audio into a concurrency plan,
// runs the cooperative main loop and replans when the threading setting changes
type Orchestrator struct {
	settings   *settings.Settings
	subsystems *service.Registry
	rs         *runstate.Machine
	master     *clock.PausableClock
	logic      Logic
	metrics    *status.Registry

	probe    func() (int, error)
	provider clock.TimeProvider
	sleeper  clock.Sleeper

	running atomic.Bool
	units   int

	// Written only by Run; guarded for readers on other goroutines
	mu      sync.RWMutex
	runners [slotCount]*service.Runner
	plan    Plan

	// Cached metric pointers
	statCPS     *status.AtomicFloat
	statCycles  *atomic.Int64
	statThreads *atomic.Int64
	statReplans *atomic.Int64
	statPlan    *status.AtomicString
}

// New creates an orchestrator; Settings, Subsystems and RunState are required
func New(deps Deps, opts ...Option) *Orchestrator {
	metrics := deps.Metrics
	if metrics == nil {
		metrics = status.NewRegistry()
	}
	master := deps.Master
	if master == nil {
		master = clock.NewPausableClock()
	}

	o := &Orchestrator{
		settings:    deps.Settings,
		subsystems:  deps.Subsystems,
		rs:          deps.RunState,
		master:      master,
		logic:       deps.Logic,
		metrics:     metrics,
		probe:       availableParallelism,
		statCPS:     metrics.Floats.Get("engine.cps"),
		statCycles:  metrics.Ints.Get("engine.cycles"),
		statThreads: metrics.Ints.Get("engine.threads"),
		statReplans: metrics.Ints.Get("engine.replans"),
		statPlan:    metrics.Strings.Get("engine.plan"),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Plan returns the active concurrency plan
func (o *Orchestrator) Plan() Plan {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.plan
}

// Cycles returns main-loop cycles completed
func (o *Orchestrator) Cycles() int64 {
	return o.statCycles.Load()
}

// Replans returns the number of plan changes since Run started
func (o *Orchestrator) Replans() int64 {
	return o.statReplans.Load()
}

// Runner returns the runner of slot, nil before Run creates it or when its subsystem could not be created
func (o *Orchestrator) Runner(s Slot) *service.Runner {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.runners[s]
}

// Run drives the engine until the run state reaches QUITTING
// Cancelling ctx requests a quit. Only a failed parallelism probe is returned as an error
func (o *Orchestrator) Run(ctx context.Context) error {
	if !o.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer o.running.Store(false)

	units, err := o.probe()
	if err != nil {
		return fmt.Errorf("parallelism probe failed: %w", err)
	}
	o.units = units
	log.Printf("[engine] %d execution units available", units)

	o.createRunners()

	if !o.master.IsStarted() {
		o.master.Start()
	}

	stopQuit := context.AfterFunc(ctx, func() { o.rs.Quit() })
	defer stopQuit()

	if o.logic != nil {
		defer o.logic.Stop()
	}

	reg := o.newRegulator()
	for {
		threading := o.settings.Threading()
		o.adopt(threading)
		// Teardown and startup time is not a main loop overrun
		reg.Reset()

		if o.runPlan(ctx, reg, threading) {
			o.stopAll()
			log.Printf("[engine] quit after %d cycles", o.statCycles.Load())
			return nil
		}

		o.stopAll()
		o.statReplans.Add(1)
		log.Printf("[engine] threading changed from %s, replanning", threading)
	}
}

// runPlan is the inner loop for one plan; returns true on quit, false on replan
func (o *Orchestrator) runPlan(ctx context.Context, reg *clock.Regulator, threading settings.Threading) bool {
	coop := o.Plan().Cooperative()

	for {
		if o.settings.Threading() != threading {
			return false
		}

		reg.SetTarget(o.settings.LoopInterval())
		reg.AdvanceUntil(ctx.Done())
		o.statCycles.Add(1)

		for _, slot := range coop {
			if r := o.runners[slot]; r != nil && r.Active() {
				r.Cycle()
			}
		}

		switch o.rs.Process() {
		case runstate.Normal:
			o.rs.Poll()
			if o.rs.Process() == runstate.Normal && o.logic != nil && !o.logic.Cycle() {
				log.Printf("[engine] game logic requested stop")
				o.rs.Quit()
			}
		case runstate.Quitting:
			return true
		}
	}
}

// createRunners instantiates each slot's subsystem once; failures leave the slot empty
func (o *Orchestrator) createRunners() {
	var opts []service.RunnerOption
	if o.provider != nil {
		opts = append(opts, service.WithTimeProvider(o.provider))
	}
	if o.sleeper != nil {
		opts = append(opts, service.WithSleeper(o.sleeper))
	}

	for _, slot := range Slots {
		if o.runners[slot] != nil {
			continue
		}
		sub, err := o.subsystems.Create(slot.String())
		if err != nil {
			log.Printf("[engine] %s unavailable, continuing without it: %v", slot, err)
			continue
		}
		r := service.NewRunner(sub, o.metrics, opts...)
		o.mu.Lock()
		o.runners[slot] = r
		o.mu.Unlock()
	}
}

// adopt computes the plan for threading and configures and starts every slot per it
func (o *Orchestrator) adopt(threading settings.Threading) {
	plan := PlanFor(SelectThreadCount(threading, o.units))
	plan.Threading = threading

	for _, slot := range Slots {
		r := o.runners[slot]
		if r == nil {
			continue
		}
		if err := r.Setup(o.settings.Subsystem(slot.String())); err != nil {
			log.Printf("[engine] %s skipped: %v", slot, err)
			continue
		}
		if err := r.Start(plan.Mode(slot)); err != nil {
			log.Printf("[engine] %s skipped: %v", slot, err)
			if err := r.Stop(); err != nil {
				log.Printf("[engine] %s cleanup: %v", slot, err)
			}
		}
	}

	o.mu.Lock()
	o.plan = plan
	o.mu.Unlock()
	o.statThreads.Store(int64(plan.Threads))
	o.statPlan.Store(plan.String())
	log.Printf("[engine] adopted plan %s", plan)
}

// stopAll joins own-thread subsystems in parallel, then stops cooperative ones in order
func (o *Orchestrator) stopAll() {
	var g errgroup.Group
	for _, r := range o.runners {
		if r != nil && r.State() == service.StateRunning && r.Mode() == service.ModeOwnThread {
			g.Go(r.Stop)
		}
	}
	if err := g.Wait(); err != nil {
		log.Printf("[engine] stop: %v", err)
	}

	for _, slot := range cooperativeOrder {
		if r := o.runners[slot]; r != nil {
			if err := r.Stop(); err != nil {
				log.Printf("[engine] stop: %v", err)
			}
		}
	}
}

func (o *Orchestrator) newRegulator() *clock.Regulator {
	opts := []clock.RegulatorOption{clock.WithRateSink(o.statCPS)}
	if o.provider != nil {
		opts = append(opts, clock.WithRegulatorTimeProvider(o.provider))
	}
	if o.sleeper != nil {
		opts = append(opts, clock.WithSleeper(o.sleeper))
	}
	return clock.NewRegulator(o.settings.LoopInterval(), opts...)
}
