package game_test

import (
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/lixenwraith/cadence/clock"
	"github.com/lixenwraith/cadence/game"
	"github.com/lixenwraith/cadence/input"
	"github.com/lixenwraith/cadence/runstate"
	"github.com/lixenwraith/cadence/service"
)

type keyState struct {
	seen []string
}

func (s *keyState) Name() string { return "keys" }
func (s *keyState) Enter(ctx *game.Context) error { return nil }
func (s *keyState) Cycle(ctx *game.Context) bool {
	s.seen = append(s.seen, ctx.Keys()...)
	return true
}
func (s *keyState) Exit(ctx *game.Context) {}

func TestPolledKeysReachGameState(t *testing.T) {
	screen := tcell.NewSimulationScreen("UTF-8")
	if err := screen.Init(); err != nil {
		t.Fatalf("Failed to init simulation screen: %v", err)
	}
	defer screen.Fini()

	master := clock.NewPausableClock()
	master.Start()
	rs := runstate.New(master)

	in := input.New(screen, rs, nil)
	rs.AddDevice(in)
	if err := in.Setup(service.Config{}); err != nil {
		t.Fatalf("Setup: %v", err)
	}
	if err := in.Startup(service.ModeCooperative); err != nil {
		t.Fatalf("Startup: %v", err)
	}
	defer in.Teardown()

	st := &keyState{}
	reg := game.NewRegistry()
	reg.Register("keys", func() (game.State, error) { return st, nil })
	d := game.NewDriver(reg, master, nil, nil, game.WithKeys(in))
	if err := d.Switch("keys"); err != nil {
		t.Fatalf("Switch: %v", err)
	}
	d.Cycle()

	screen.InjectKey(tcell.KeyRune, 'a', tcell.ModNone)
	deadline := time.Now().Add(2 * time.Second)
	for in.Handled() < 1 {
		if time.Now().After(deadline) {
			t.Fatal("Timed out waiting for the key event")
		}
		in.Cycle()
		time.Sleep(time.Millisecond)
	}

	// Collected keys stay hidden until the run state applies a POLL
	d.Cycle()
	if len(st.seen) != 0 {
		t.Fatalf("Keys visible before POLL: %v", st.seen)
	}

	rs.Poll()
	rs.Process()
	d.Cycle()
	if len(st.seen) != 1 || st.seen[0] != "a" {
		t.Errorf("Expected state to see key a, got %v", st.seen)
	}
	d.Stop()
}
