package input

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/lixenwraith/cadence/runstate"
	"github.com/lixenwraith/cadence/service"
)

type fakeControls struct {
	quits   atomic.Int32
	pauses  atomic.Int32
	resumes atomic.Int32
	toggles atomic.Int32
	paused  atomic.Bool
}

func (f *fakeControls) Quit() bool { f.quits.Add(1); return true }
func (f *fakeControls) Pause() bool {
	f.pauses.Add(1)
	f.paused.Store(true)
	return true
}
func (f *fakeControls) Resume() bool {
	f.resumes.Add(1)
	f.paused.Store(false)
	return true
}
func (f *fakeControls) TogglePause() bool {
	f.toggles.Add(1)
	f.paused.Store(!f.paused.Load())
	return true
}
func (f *fakeControls) IsPaused() bool { return f.paused.Load() }

// flakyScreen fails PostEvent while fail is set
type flakyScreen struct {
	tcell.Screen
	fail atomic.Bool
}

func (f *flakyScreen) PostEvent(ev tcell.Event) error {
	if f.fail.Load() {
		return tcell.ErrEventQFull
	}
	return f.Screen.PostEvent(ev)
}

func newSimScreen(t *testing.T) tcell.SimulationScreen {
	t.Helper()
	screen := tcell.NewSimulationScreen("UTF-8")
	if err := screen.Init(); err != nil {
		t.Fatalf("Failed to init simulation screen: %v", err)
	}
	screen.SetSize(80, 24)
	return screen
}

func startInput(t *testing.T, screen tcell.Screen, ctrl Controls, onThreading func()) *Subsystem {
	t.Helper()
	s := New(screen, ctrl, onThreading)
	if err := s.Setup(service.Config{}); err != nil {
		t.Fatalf("Setup: %v", err)
	}
	if err := s.Startup(service.ModeCooperative); err != nil {
		t.Fatalf("Startup: %v", err)
	}
	return s
}

// cycleUntil drives cooperative cycles until n events were handled
func cycleUntil(t *testing.T, s *Subsystem, n int64) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for s.Handled() < n {
		if time.Now().After(deadline) {
			t.Fatalf("Timed out: handled %d of %d events", s.Handled(), n)
		}
		s.Cycle()
		time.Sleep(time.Millisecond)
	}
}

func TestInputActions(t *testing.T) {
	screen := newSimScreen(t)
	defer screen.Fini()

	ctrl := &fakeControls{}
	var threading atomic.Int32
	s := startInput(t, screen, ctrl, func() { threading.Add(1) })

	screen.InjectKey(tcell.KeyRune, 'p', tcell.ModNone)
	screen.InjectKey(tcell.KeyRune, 'p', tcell.ModNone)
	screen.InjectKey(tcell.KeyRune, 't', tcell.ModNone)
	screen.InjectKey(tcell.KeyEscape, 0, tcell.ModNone)
	cycleUntil(t, s, 4)

	if ctrl.toggles.Load() != 2 || ctrl.IsPaused() {
		t.Errorf("Expected two toggles ending unpaused, got toggles=%d paused=%v", ctrl.toggles.Load(), ctrl.IsPaused())
	}
	if threading.Load() != 1 {
		t.Errorf("Expected one threading cycle, got %d", threading.Load())
	}
	if ctrl.quits.Load() != 1 {
		t.Errorf("Expected quit, got %d", ctrl.quits.Load())
	}

	if err := s.Teardown(); err != nil {
		t.Fatalf("Teardown: %v", err)
	}
}

func TestInputToggleUsesQueuedState(t *testing.T) {
	screen := newSimScreen(t)
	defer screen.Fini()

	rs := runstate.New(nil)
	s := startInput(t, screen, rs, nil)
	defer s.Teardown()

	// Both presses land before the run state processes either
	screen.InjectKey(tcell.KeyRune, 'p', tcell.ModNone)
	screen.InjectKey(tcell.KeyRune, 'p', tcell.ModNone)
	cycleUntil(t, s, 2)

	if got := rs.Process(); got != runstate.Normal {
		t.Errorf("Expected NORMAL after two toggles, got %s", got)
	}
	if n := len(rs.Pending()); n != 0 {
		t.Errorf("Expected empty queue, %d pending", n)
	}

	screen.InjectKey(tcell.KeyRune, 'p', tcell.ModNone)
	cycleUntil(t, s, 3)
	if got := rs.Process(); got != runstate.Paused {
		t.Errorf("Expected PAUSED after one toggle, got %s", got)
	}
}

func TestInputFocusPausesAndResumes(t *testing.T) {
	screen := newSimScreen(t)
	defer screen.Fini()

	ctrl := &fakeControls{}
	s := startInput(t, screen, ctrl, nil)
	defer s.Teardown()

	if err := screen.PostEvent(tcell.NewEventFocus(false)); err != nil {
		t.Fatalf("PostEvent: %v", err)
	}
	cycleUntil(t, s, 1)
	if !ctrl.IsPaused() {
		t.Error("Focus loss should pause")
	}

	if err := screen.PostEvent(tcell.NewEventFocus(true)); err != nil {
		t.Fatalf("PostEvent: %v", err)
	}
	cycleUntil(t, s, 2)
	if ctrl.IsPaused() {
		t.Error("Focus gain should resume")
	}
}

func TestInputDeviceKeys(t *testing.T) {
	screen := newSimScreen(t)
	defer screen.Fini()

	s := startInput(t, screen, &fakeControls{}, nil)
	defer s.Teardown()

	screen.InjectKey(tcell.KeyRune, 'a', tcell.ModNone)
	screen.InjectKey(tcell.KeyEnter, 0, tcell.ModNone)
	cycleUntil(t, s, 2)

	if keys := s.Keys(); len(keys) != 0 {
		t.Errorf("Keys should be invisible before Poll, got %v", keys)
	}
	s.Poll()
	keys := s.Keys()
	if len(keys) != 2 || keys[0] != "a" || keys[1] != "Enter" {
		t.Errorf("Unexpected keys %v", keys)
	}
	if len(s.Keys()) != 0 {
		t.Error("Keys should be consumed")
	}

	screen.InjectKey(tcell.KeyRune, 'b', tcell.ModNone)
	cycleUntil(t, s, 3)
	s.Clear()
	s.Poll()
	if keys := s.Keys(); len(keys) != 0 {
		t.Errorf("Clear should discard pending keys, got %v", keys)
	}
}

func TestInputTeardownRestart(t *testing.T) {
	screen := newSimScreen(t)
	defer screen.Fini()

	ctrl := &fakeControls{}
	s := startInput(t, screen, ctrl, nil)

	done := make(chan struct{})
	go func() {
		_ = s.Teardown()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Teardown did not stop the poller")
	}

	// Restart against the same screen
	if err := s.Setup(service.Config{}); err != nil {
		t.Fatalf("Setup: %v", err)
	}
	if err := s.Startup(service.ModeOwnThread); err != nil {
		t.Fatalf("Startup: %v", err)
	}
	screen.InjectKey(tcell.KeyRune, 'q', tcell.ModNone)
	cycleUntil(t, s, 1)
	if ctrl.quits.Load() != 1 {
		t.Error("Restarted input should still handle keys")
	}
	_ = s.Teardown()

	// Teardown without Startup is a no-op
	if err := New(screen, ctrl, nil).Teardown(); err != nil {
		t.Errorf("Teardown on fresh subsystem: %v", err)
	}
}

func TestInputTeardownRetriesFailedWake(t *testing.T) {
	sim := newSimScreen(t)
	defer sim.Fini()

	screen := &flakyScreen{Screen: sim}
	ctrl := &fakeControls{}
	s := startInput(t, screen, ctrl, nil)
	first := s.pollerDone

	screen.fail.Store(true)
	if err := s.Teardown(); !errors.Is(err, tcell.ErrEventQFull) {
		t.Fatalf("Expected wake error from Teardown, got %v", err)
	}
	if err := s.Startup(service.ModeCooperative); err == nil {
		t.Fatal("Startup should fail while the previous poller cannot be stopped")
	}
	select {
	case <-first:
		t.Fatal("Poller should still be running after a failed wake")
	default:
	}

	screen.fail.Store(false)
	if err := s.Startup(service.ModeCooperative); err != nil {
		t.Fatalf("Startup: %v", err)
	}
	select {
	case <-first:
	case <-time.After(time.Second):
		t.Fatal("Startup should join the previous poller")
	}

	sim.InjectKey(tcell.KeyRune, 'q', tcell.ModNone)
	cycleUntil(t, s, 1)
	if ctrl.quits.Load() != 1 {
		t.Error("Restarted input should handle keys")
	}
	if err := s.Teardown(); err != nil {
		t.Errorf("Teardown: %v", err)
	}
}

func TestKeyLookup(t *testing.T) {
	tests := []struct {
		ev   *tcell.EventKey
		want Action
	}{
		{tcell.NewEventKey(tcell.KeyRune, 'q', tcell.ModNone), ActionQuit},
		{tcell.NewEventKey(tcell.KeyCtrlC, 0, tcell.ModCtrl), ActionQuit},
		{tcell.NewEventKey(tcell.KeyRune, 'p', tcell.ModNone), ActionTogglePause},
		{tcell.NewEventKey(tcell.KeyRune, 't', tcell.ModNone), ActionCycleThreading},
		{tcell.NewEventKey(tcell.KeyRune, 'x', tcell.ModNone), ActionNone},
		{tcell.NewEventKey(tcell.KeyEnter, 0, tcell.ModNone), ActionNone},
	}
	for _, tt := range tests {
		if got := lookup(tt.ev); got != tt.want {
			t.Errorf("lookup(%s) = %s, want %s", tt.ev.Name(), got, tt.want)
		}
	}
}
