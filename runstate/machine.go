package runstate

import (
	"sync"
	"sync/atomic"

	"github.com/lixenwraith/cadence/clock"
)

// Machine serializes run state requests from any goroutine into single-consumer transitions
// Thread-Safety:
//   - Poll/Clear/Pause/Resume/Quit: any goroutine, enqueue only
//   - Is*/State/Pending: any goroutine, lock-free reads of the state
//   - Process: single consumer; a concurrent second caller returns without applying
type Machine struct {
	mu    sync.Mutex
	queue []Event

	state     atomic.Int32
	consuming atomic.Bool

	master   Clock
	provider clock.TimeProvider

	devMu     sync.RWMutex
	devices   []Device
	listeners []TransitionFunc
}

// Option configures a Machine at construction
type Option func(*Machine)

// WithTimeProvider stamps events with p instead of the system clock
func WithTimeProvider(p clock.TimeProvider) Option {
	return func(m *Machine) { m.provider = p }
}

// New creates a machine in NORMAL state; master may be nil
func New(master Clock, opts ...Option) *Machine {
	m := &Machine{
		master:   master,
		provider: clock.NewMonotonicTimeProvider(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.state.Store(int32(Normal))
	return m
}

// AddDevice registers an input collaborator for POLL/CLEAR delegation
func (m *Machine) AddDevice(d Device) {
	m.devMu.Lock()
	m.devices = append(m.devices, d)
	m.devMu.Unlock()
}

// OnTransition registers a state change observer
func (m *Machine) OnTransition(fn TransitionFunc) {
	m.devMu.Lock()
	m.listeners = append(m.listeners, fn)
	m.devMu.Unlock()
}

// ===== Producers =====

// Poll requests a device poll; dropped if the tail is already a POLL
func (m *Machine) Poll() bool {
	return m.enqueueCoalesced(EventPoll)
}

// Clear requests a device clear; dropped if the tail is already a CLEAR
func (m *Machine) Clear() bool {
	return m.enqueueCoalesced(EventClear)
}

// Pause requests NORMAL -> PAUSED; dropped if already paused or a pause is pending
func (m *Machine) Pause() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.projectedLocked() != Normal {
		return false
	}
	m.pushLocked(EventPause)
	return true
}

// Resume requests PAUSED -> NORMAL; dropped if already running or a resume is pending
func (m *Machine) Resume() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.projectedLocked() != Paused {
		return false
	}
	m.pushLocked(EventResume)
	return true
}

// TogglePause requests PAUSE or RESUME, whichever inverts the state the queue leads to
// Dropped once a QUIT is applied or pending
func (m *Machine) TogglePause() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch m.projectedLocked() {
	case Normal:
		m.pushLocked(EventPause)
	case Paused:
		m.pushLocked(EventResume)
	default:
		return false
	}
	return true
}

// Quit requests termination; at most one QUIT is ever queued
// Scans the whole queue so a burst of other events cannot hide a pending QUIT
func (m *Machine) Quit() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.State() == Quitting {
		return false
	}
	for _, ev := range m.queue {
		if ev.Kind == EventQuit {
			return false
		}
	}
	m.pushLocked(EventQuit)
	return true
}

// ===== Readers =====

// State returns the current applied state
func (m *Machine) State() State {
	return State(m.state.Load())
}

// IsRunning reports NORMAL
func (m *Machine) IsRunning() bool {
	return m.State() == Normal
}

// IsPaused reports PAUSED
func (m *Machine) IsPaused() bool {
	return m.State() == Paused
}

// IsQuitting reports QUITTING
func (m *Machine) IsQuitting() bool {
	return m.State() == Quitting
}

// Pending returns a copy of the queued events in FIFO order
func (m *Machine) Pending() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Event, len(m.queue))
	copy(out, m.queue)
	return out
}

// ===== Consumer =====

// Process applies all queued events in order and returns the resulting state
func (m *Machine) Process() State {
	if !m.consuming.CompareAndSwap(false, true) {
		return m.State()
	}
	defer m.consuming.Store(false)

	m.mu.Lock()
	batch := m.queue
	m.queue = nil
	m.mu.Unlock()

	for _, ev := range batch {
		m.apply(ev)
		if m.State() == Quitting {
			break
		}
	}
	return m.State()
}

// apply executes one event's transition effects
func (m *Machine) apply(ev Event) {
	switch ev.Kind {
	case EventPoll:
		m.eachDevice(Device.Poll)

	case EventClear:
		m.eachDevice(Device.Clear)

	case EventPause:
		if m.State() != Normal {
			return
		}
		m.eachDevice(Device.Clear)
		if m.master != nil {
			m.master.Pause()
		}
		m.transition(Paused)

	case EventResume:
		if m.State() != Paused {
			return
		}
		if m.master != nil {
			m.master.Resume()
		}
		m.transition(Normal)

	case EventQuit:
		m.mu.Lock()
		m.queue = nil
		m.mu.Unlock()
		m.transition(Quitting)
	}
}

func (m *Machine) transition(to State) {
	from := State(m.state.Swap(int32(to)))
	if from == to {
		return
	}

	m.devMu.RLock()
	listeners := m.listeners
	m.devMu.RUnlock()

	for _, fn := range listeners {
		fn(from, to)
	}
}

func (m *Machine) eachDevice(fn func(Device)) {
	m.devMu.RLock()
	devices := m.devices
	m.devMu.RUnlock()

	for _, d := range devices {
		fn(d)
	}
}

// ===== Queue helpers (mu held) =====

func (m *Machine) enqueueCoalesced(kind EventKind) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.State() == Quitting {
		return false
	}
	if n := len(m.queue); n > 0 && m.queue[n-1].Kind == kind {
		return false
	}
	m.pushLocked(kind)
	return true
}

func (m *Machine) pushLocked(kind EventKind) {
	m.queue = append(m.queue, Event{Kind: kind, At: m.provider.Now()})
}

// projectedLocked returns the state after all queued transitions apply
func (m *Machine) projectedLocked() State {
	for i := len(m.queue) - 1; i >= 0; i-- {
		switch m.queue[i].Kind {
		case EventPause:
			return Paused
		case EventResume:
			return Normal
		case EventQuit:
			return Quitting
		}
	}
	return m.State()
}
