package input

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gdamore/tcell/v2"

	"github.com/lixenwraith/cadence/core"
	"github.com/lixenwraith/cadence/service"
)

// maxBufferedKeys bounds game keys kept between polls
const maxBufferedKeys = 64

// eventBuffer sizes the channel between the terminal poller and Cycle
const eventBuffer = 256

// Controls is the run state surface input drives; all methods enqueue only
type Controls interface {
	Quit() bool
	Pause() bool
	Resume() bool
	TogglePause() bool
}

// stopToken marks the interrupt event that ends a poller
type stopToken struct{ id uint64 }

// Subsystem translates terminal events into run state requests and game keys
// It is also the run state's input Device: Poll publishes, Clear discards
type Subsystem struct {
	screen      tcell.Screen
	run         Controls
	onThreading func()

	// Poller lifecycle, touched only by Startup/Teardown
	events     chan tcell.Event
	pollerDone chan struct{}
	token      *stopToken
	tokens     atomic.Uint64

	mu        sync.Mutex
	pending   []string // Keys collected by Cycle
	published []string // Keys visible to the game after Poll

	handled atomic.Int64
}

var _ service.Subsystem = (*Subsystem)(nil)

// New creates the input subsystem for screen; onThreading may be nil
func New(screen tcell.Screen, run Controls, onThreading func()) *Subsystem {
	return &Subsystem{
		screen:      screen,
		run:         run,
		onThreading: onThreading,
	}
}

// Name implements service.Subsystem
func (s *Subsystem) Name() string {
	return "input"
}

// Setup implements service.Subsystem
func (s *Subsystem) Setup(cfg service.Config) error {
	s.Clear()
	return nil
}

// Startup implements service.Subsystem
// Launches the blocking terminal poller; Cycle drains what it collects
// A poller left by a failed Teardown is stopped first, never run alongside
func (s *Subsystem) Startup(mode service.Mode) error {
	if err := s.stopPoller(); err != nil {
		return err
	}
	s.screen.EnableFocus()

	token := &stopToken{id: s.tokens.Add(1)}
	events := make(chan tcell.Event, eventBuffer)
	done := make(chan struct{})
	s.token, s.events, s.pollerDone = token, events, done

	core.Go(func() {
		defer close(done)
		for {
			ev := s.screen.PollEvent()
			if ev == nil {
				return // Screen finalized
			}
			if intr, ok := ev.(*tcell.EventInterrupt); ok && intr.Data() == token {
				return
			}
			select {
			case events <- ev:
			default:
				// Cycle is not keeping up; newest events are dropped
			}
		}
	})
	return nil
}

// Cycle implements service.Subsystem
func (s *Subsystem) Cycle() bool {
	for {
		select {
		case ev := <-s.events:
			s.handle(ev)
		default:
			return true
		}
	}
}

// Teardown implements service.Subsystem
func (s *Subsystem) Teardown() error {
	return s.stopPoller()
}

// stopPoller wakes the poller with its interrupt token and waits for it to exit
// On a failed wake the poller stays registered so the next call retries
func (s *Subsystem) stopPoller() error {
	if s.pollerDone == nil {
		return nil
	}
	select {
	case <-s.pollerDone:
		// Already exited on screen finalize
	default:
		if err := s.screen.PostEvent(tcell.NewEventInterrupt(s.token)); err != nil {
			return fmt.Errorf("input poller wake: %w", err)
		}
		<-s.pollerDone
	}
	s.pollerDone = nil
	s.events = nil
	return nil
}

// Poll implements runstate.Device: publishes collected keys to the game
func (s *Subsystem) Poll() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.published = append(s.published, s.pending...)
	if over := len(s.published) - maxBufferedKeys; over > 0 {
		s.published = s.published[over:]
	}
	s.pending = s.pending[:0]
}

// Clear implements runstate.Device: discards collected and published keys
func (s *Subsystem) Clear() {
	s.mu.Lock()
	s.pending = s.pending[:0]
	s.published = nil
	s.mu.Unlock()
}

// Keys returns and consumes the published game keys
func (s *Subsystem) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := s.published
	s.published = nil
	return keys
}

// Handled returns the number of terminal events processed
func (s *Subsystem) Handled() int64 {
	return s.handled.Load()
}

func (s *Subsystem) handle(ev tcell.Event) {
	s.handled.Add(1)

	switch ev := ev.(type) {
	case *tcell.EventKey:
		switch lookup(ev) {
		case ActionQuit:
			s.run.Quit()
		case ActionTogglePause:
			s.run.TogglePause()
		case ActionCycleThreading:
			if s.onThreading != nil {
				s.onThreading()
			}
		default:
			s.collect(keyName(ev))
		}

	case *tcell.EventFocus:
		if ev.Focused {
			s.run.Resume()
		} else {
			s.run.Pause()
		}

	case *tcell.EventResize:
		s.screen.Sync()
	}
}

func (s *Subsystem) collect(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.pending) >= maxBufferedKeys {
		return
	}
	s.pending = append(s.pending, key)
}
