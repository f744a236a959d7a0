package game

import "time"

// CueBeat is emitted by the idle state once per game-clock second
const CueBeat = "beat"

// Idle keeps the engine ticking with a once-per-second heartbeat cue
type Idle struct {
	nextBeat time.Duration
}

// NewIdle creates the idle state
func NewIdle() (State, error) {
	return &Idle{}, nil
}

func (s *Idle) Name() string { return "idle" }

func (s *Idle) Enter(ctx *Context) error {
	s.nextBeat = ctx.Clock.Elapsed() + time.Second
	return nil
}

func (s *Idle) Cycle(ctx *Context) bool {
	if now := ctx.Clock.Elapsed(); now >= s.nextBeat {
		ctx.Emit(CueBeat)
		s.nextBeat = now + time.Second
	}
	return true
}

func (s *Idle) Exit(ctx *Context) {}
