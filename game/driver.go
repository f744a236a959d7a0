package game

import (
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lixenwraith/cadence/clock"
	"github.com/lixenwraith/cadence/status"
)

// Driver advances the active game state once per orchestrator cycle
// Cycle and Stop run on the main loop; Switch may be called from anywhere
type Driver struct {
	registry *Registry
	clock    *clock.PausableClock
	ctx      *Context
	keys     KeySource

	current State
	last    time.Duration

	pendingMu sync.Mutex
	pending   string

	statFrames *atomic.Int64
	statState  *status.AtomicString
}

// DriverOption configures a Driver at construction
type DriverOption func(*Driver)

// WithKeys feeds each cycle's Context with keys drained from src
func WithKeys(src KeySource) DriverOption {
	return func(d *Driver) {
		d.keys = src
	}
}

// NewDriver creates a driver whose clock is a started child of master
func NewDriver(reg *Registry, master *clock.PausableClock, cues CueSink, metrics *status.Registry, opts ...DriverOption) *Driver {
	if metrics == nil {
		metrics = status.NewRegistry()
	}
	gameClock := master.Child()
	gameClock.Start()

	d := &Driver{
		registry:   reg,
		clock:      gameClock,
		statFrames: metrics.Ints.Get("game.frames"),
		statState:  metrics.Strings.Get("game.state"),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.ctx = &Context{Clock: gameClock, cues: cues, driver: d}
	return d
}

// Clock returns the game clock
func (d *Driver) Clock() *clock.PausableClock {
	return d.clock
}

// Switch schedules a transition; unknown tags are rejected immediately
func (d *Driver) Switch(tag string) error {
	if !d.registry.Has(tag) {
		return fmt.Errorf("%w: %s", ErrUnknownState, tag)
	}
	d.pendingMu.Lock()
	d.pending = tag
	d.pendingMu.Unlock()
	return nil
}

// Current returns the active state's tag, empty when none
func (d *Driver) Current() string {
	if d.current == nil {
		return ""
	}
	return d.current.Name()
}

// Cycle applies any pending switch then advances the active state one step
// Published keys are drained every cycle so none leak into a later state
func (d *Driver) Cycle() bool {
	d.applyPending()
	d.ctx.keys = nil
	if d.keys != nil {
		d.ctx.keys = d.keys.Keys()
	}
	if d.current == nil {
		return true
	}

	now := d.clock.Elapsed()
	d.ctx.Delta = now - d.last
	d.last = now
	d.ctx.Frame++
	d.statFrames.Add(1)

	return d.current.Cycle(d.ctx)
}

// Stop exits the active state
func (d *Driver) Stop() {
	if d.current != nil {
		d.current.Exit(d.ctx)
		d.current = nil
		d.statState.Store("")
	}
}

func (d *Driver) applyPending() {
	d.pendingMu.Lock()
	tag := d.pending
	d.pending = ""
	d.pendingMu.Unlock()

	if tag == "" {
		return
	}

	next, err := d.registry.Create(tag)
	if err != nil {
		log.Printf("[game] switch to %s: %v", tag, err)
		return
	}

	prev := d.current
	if prev != nil {
		prev.Exit(d.ctx)
	}

	d.ctx.Frame = 0
	d.last = d.clock.Elapsed()
	if err := next.Enter(d.ctx); err != nil {
		log.Printf("[game] enter %s: %v", tag, err)
		d.current = nil
		d.statState.Store("")
		return
	}
	d.current = next
	d.statState.Store(tag)
}
