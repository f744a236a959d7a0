package runstate

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/lixenwraith/cadence/clock"
)

type countingDevice struct {
	polls  atomic.Int32
	clears atomic.Int32
}

func (d *countingDevice) Poll()  { d.polls.Add(1) }
func (d *countingDevice) Clear() { d.clears.Add(1) }

func kinds(events []Event) []EventKind {
	out := make([]EventKind, len(events))
	for i, ev := range events {
		out[i] = ev.Kind
	}
	return out
}

func TestPollClearCoalescing(t *testing.T) {
	m := New(nil)

	if !m.Poll() {
		t.Fatal("First Poll should enqueue")
	}
	if m.Poll() {
		t.Error("Second consecutive Poll should be dropped")
	}
	m.Clear()
	m.Clear()
	m.Poll()

	got := kinds(m.Pending())
	want := []EventKind{EventPoll, EventClear, EventPoll}
	if len(got) != len(want) {
		t.Fatalf("Expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Expected %v, got %v", want, got)
		}
	}
}

func TestPauseResumeDedup(t *testing.T) {
	m := New(nil)

	if m.Resume() {
		t.Error("Resume while running should be dropped")
	}
	if !m.Pause() {
		t.Fatal("Pause while running should enqueue")
	}
	if m.Pause() {
		t.Error("Pause with a pause pending should be dropped")
	}
	if m.Process() != Paused {
		t.Fatalf("Expected PAUSED, got %s", m.State())
	}

	if m.Pause() {
		t.Error("Pause while already paused should enqueue nothing")
	}
	if n := len(m.Pending()); n != 0 {
		t.Errorf("Expected empty queue, got %d", n)
	}

	if !m.Resume() {
		t.Fatal("Resume while paused should enqueue")
	}
	if m.Process() != Normal {
		t.Fatalf("Expected NORMAL, got %s", m.State())
	}
}

func TestPauseThenResumeBeforeProcessing(t *testing.T) {
	m := New(nil)

	m.Pause()
	if !m.Resume() {
		t.Fatal("Resume after a pending pause should enqueue")
	}
	if m.Process() != Normal {
		t.Errorf("Expected NORMAL after pause+resume, got %s", m.State())
	}
}

func TestTogglePauseFollowsQueue(t *testing.T) {
	m := New(nil)

	// Two toggles before processing cancel out
	if !m.TogglePause() || !m.TogglePause() {
		t.Fatal("Toggles should enqueue")
	}
	got := kinds(m.Pending())
	if len(got) != 2 || got[0] != EventPause || got[1] != EventResume {
		t.Fatalf("Expected [PAUSE RESUME], got %v", got)
	}
	if m.Process() != Normal || len(m.Pending()) != 0 {
		t.Errorf("Expected NORMAL with empty queue, got %s pending=%v", m.State(), m.Pending())
	}

	// Single toggle from applied PAUSED resumes
	m.Pause()
	m.Process()
	if !m.TogglePause() {
		t.Fatal("Toggle while paused should enqueue")
	}
	if m.Process() != Normal {
		t.Errorf("Expected NORMAL, got %s", m.State())
	}

	m.Quit()
	if m.TogglePause() {
		t.Error("Toggle behind a pending QUIT should be dropped")
	}
	m.Process()
	if m.TogglePause() {
		t.Error("Toggle after QUIT should be dropped")
	}
}

func TestTransitionEffects(t *testing.T) {
	mock := clock.NewMockTimeProvider(time.Unix(0, 0))
	master := clock.NewPausableClock(clock.WithTimeProvider(mock))
	master.Start()

	dev := &countingDevice{}
	m := New(master, WithTimeProvider(mock))
	m.AddDevice(dev)

	var transitions []string
	m.OnTransition(func(from, to State) {
		transitions = append(transitions, from.String()+">"+to.String())
	})

	m.Poll()
	m.Process()
	if dev.polls.Load() != 1 || m.State() != Normal {
		t.Fatalf("POLL should reach devices without changing state")
	}

	mock.Advance(100 * time.Millisecond)
	m.Pause()
	m.Process()
	if dev.clears.Load() != 1 {
		t.Errorf("PAUSE should clear devices, clears=%d", dev.clears.Load())
	}
	if !master.IsPaused() {
		t.Error("PAUSE should pause the master clock")
	}
	frozen := master.Elapsed()
	mock.Advance(time.Second)
	if master.Elapsed() != frozen {
		t.Error("Master clock advanced while paused")
	}

	m.Resume()
	m.Process()
	if master.IsPaused() {
		t.Error("RESUME should resume the master clock")
	}

	m.Clear()
	m.Process()
	if dev.clears.Load() != 2 {
		t.Errorf("CLEAR should reach devices, clears=%d", dev.clears.Load())
	}

	if len(transitions) != 2 || transitions[0] != "NORMAL>PAUSED" || transitions[1] != "PAUSED>NORMAL" {
		t.Errorf("Unexpected transitions: %v", transitions)
	}
}

func TestQuitIsTerminal(t *testing.T) {
	dev := &countingDevice{}
	m := New(nil)
	m.AddDevice(dev)

	if !m.Quit() {
		t.Fatal("First Quit should enqueue")
	}
	// Burst of other kinds must not hide the pending quit
	m.Poll()
	m.Clear()
	m.Pause()
	if m.Quit() {
		t.Error("Second Quit should be dropped while one is queued")
	}

	quits := 0
	for _, ev := range m.Pending() {
		if ev.Kind == EventQuit {
			quits++
		}
	}
	if quits != 1 {
		t.Errorf("Expected exactly one QUIT, got %d", quits)
	}

	if m.Process() != Quitting {
		t.Fatalf("Expected QUITTING, got %s", m.State())
	}
	if dev.polls.Load() != 0 {
		t.Error("Events behind QUIT should be dropped")
	}
	if n := len(m.Pending()); n != 0 {
		t.Errorf("QUIT should clear the queue, %d pending", n)
	}

	// Nothing is accepted once quitting
	if m.Poll() || m.Clear() || m.Pause() || m.Resume() || m.TogglePause() || m.Quit() {
		t.Error("Requests after QUIT should be dropped")
	}
	if !m.IsQuitting() || m.IsRunning() || m.IsPaused() {
		t.Error("Reader predicates disagree with QUITTING")
	}
}

func TestConcurrentProducersSingleConsumer(t *testing.T) {
	mock := clock.NewMockTimeProvider(time.Unix(0, 0))
	master := clock.NewPausableClock(clock.WithTimeProvider(mock))
	master.Start()

	dev := &countingDevice{}
	m := New(master)
	m.AddDevice(dev)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < 500; j++ {
				switch (id + j) % 4 {
				case 0:
					m.Pause()
				case 1:
					m.Resume()
				case 2:
					m.Poll()
				case 3:
					m.Clear()
				}
				_ = m.IsPaused()
			}
		}(i)
	}

	stop := make(chan struct{})
	consumerDone := make(chan struct{})
	go func() {
		defer close(consumerDone)
		for {
			select {
			case <-stop:
				return
			default:
				m.Process()
			}
		}
	}()

	wg.Wait()
	close(stop)
	<-consumerDone

	// Drain and compare clock with state
	st := m.Process()
	if (st == Paused) != master.IsPaused() {
		t.Errorf("State %s disagrees with master clock paused=%v", st, master.IsPaused())
	}

	m.Quit()
	if m.Process() != Quitting {
		t.Error("Quit should still win after a burst")
	}
}

func TestSecondConsumerDoesNotApply(t *testing.T) {
	m := New(nil)
	m.consuming.Store(true)
	m.Pause()

	if m.Process() != Normal {
		t.Error("Concurrent consumer should not apply events")
	}
	if len(m.Pending()) != 1 {
		t.Error("Events should stay queued for the active consumer")
	}

	m.consuming.Store(false)
	if m.Process() != Paused {
		t.Error("Active consumer should apply queued pause")
	}
}
