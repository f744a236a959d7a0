package clock

import (
	"sync"
	"sync/atomic"
	"time"
)

// PausableClock provides pausable elapsed time, optionally chained to a parent clock
// Mutated by a single owner (run state consumer); safe for concurrent readers
type PausableClock struct {
	mu sync.RWMutex

	// Time base: own provider or parent clock
	base  Source
	epoch time.Time // Wall reference for Now()

	started atomic.Bool
	paused  atomic.Bool

	anchor      time.Duration // Base reading at last start/resume
	accumulated time.Duration // Time counted before the last anchor
}

// ClockOption configures a PausableClock at construction
type ClockOption func(*PausableClock)

// WithTimeProvider derives the clock from p instead of the system clock
func WithTimeProvider(p TimeProvider) ClockOption {
	return func(pc *PausableClock) {
		pc.base = newProviderSource(p)
		pc.epoch = p.Now()
	}
}

// WithParent derives the clock from parent's elapsed time
// Pausing the parent freezes this clock; local pause still applies on top
func WithParent(parent Source) ClockOption {
	return func(pc *PausableClock) {
		pc.base = parent
		if p, ok := parent.(*PausableClock); ok {
			pc.epoch = p.epoch
		}
	}
}

// NewPausableClock creates a stopped clock; call Start to begin counting
func NewPausableClock(opts ...ClockOption) *PausableClock {
	pc := &PausableClock{}
	for _, opt := range opts {
		opt(pc)
	}
	if pc.base == nil {
		WithTimeProvider(NewMonotonicTimeProvider())(pc)
	}
	if pc.epoch.IsZero() {
		pc.epoch = time.Now()
	}
	return pc
}

// Child creates a new clock that uses this clock as its time base
func (pc *PausableClock) Child() *PausableClock {
	return NewPausableClock(WithParent(pc))
}

// Start anchors the clock on first call and runs it; later calls are no-ops
func (pc *PausableClock) Start() {
	pc.mu.Lock()
	defer pc.mu.Unlock()

	if pc.started.Load() {
		return
	}
	pc.anchor = pc.base.Elapsed()
	pc.paused.Store(false)
	pc.started.Store(true)
}

// Pause freezes elapsed time at the current instant
func (pc *PausableClock) Pause() {
	pc.mu.Lock()
	defer pc.mu.Unlock()

	if !pc.started.Load() || pc.paused.Load() {
		return
	}
	pc.accumulated += pc.sinceAnchor()
	pc.paused.Store(true)
}

// Resume continues counting from the current base reading
// No-op unless the clock was started and is paused
func (pc *PausableClock) Resume() {
	pc.mu.Lock()
	defer pc.mu.Unlock()

	if !pc.started.Load() || !pc.paused.Load() {
		return
	}
	pc.anchor = pc.base.Elapsed()
	pc.paused.Store(false)
}

// Elapsed returns counted time: base time minus all paused intervals
func (pc *PausableClock) Elapsed() time.Duration {
	pc.mu.RLock()
	defer pc.mu.RUnlock()

	if !pc.started.Load() {
		return 0
	}
	if pc.paused.Load() {
		return pc.accumulated
	}
	return pc.accumulated + pc.sinceAnchor()
}

// Now returns the clock's epoch advanced by Elapsed
func (pc *PausableClock) Now() time.Time {
	return pc.epoch.Add(pc.Elapsed())
}

// IsPaused returns current local pause state
func (pc *PausableClock) IsPaused() bool {
	return pc.paused.Load()
}

// IsStarted reports whether Start has been called
func (pc *PausableClock) IsStarted() bool {
	return pc.started.Load()
}

// sinceAnchor returns base progress since the last anchor, clamped at zero
// Caller must hold mu
func (pc *PausableClock) sinceAnchor() time.Duration {
	d := pc.base.Elapsed() - pc.anchor
	if d < 0 {
		return 0
	}
	return d
}
