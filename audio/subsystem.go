package audio

import (
	"log"
	"sync"
	"sync/atomic"

	"github.com/gopxl/beep"

	"github.com/lixenwraith/cadence/service"
)

// Configuration keys
const (
	KeyMuted = "muted"
)

// cueQueueSize bounds pending cues; Emit drops beyond it
const cueQueueSize = 64

// PauseReader reports whether the engine is paused
type PauseReader interface {
	IsPaused() bool
}

// Subsystem plays queued cues through a beep mixer
// Degrades to silent mode when muted or when no audio device is available
type Subsystem struct {
	out     Output
	run     PauseReader
	cues    chan string
	library map[string]Cue

	// Owned by the cycling goroutine between Startup and Teardown
	mu          sync.Mutex
	muted       bool
	initialized bool
	mixer       *beep.Mixer
	ctrl        *beep.Ctrl

	silent  atomic.Bool
	played  atomic.Int64
	dropped atomic.Int64
}

var _ service.Subsystem = (*Subsystem)(nil)

// New creates the audio subsystem; run may be nil
func New(out Output, run PauseReader) *Subsystem {
	if out == nil {
		out = SpeakerOutput()
	}
	return &Subsystem{
		out:     out,
		run:     run,
		cues:    make(chan string, cueQueueSize),
		library: DefaultCues,
	}
}

// Name implements service.Subsystem
func (s *Subsystem) Name() string {
	return "audio"
}

// Setup implements service.Subsystem
// muted: bool - skip device initialization entirely
func (s *Subsystem) Setup(cfg service.Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.muted = cfg.Bool(KeyMuted, false)
	s.drain()
	return nil
}

// Startup implements service.Subsystem
// Device failure switches to silent mode instead of failing the subsystem
func (s *Subsystem) Startup(mode service.Mode) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.silent.Store(s.muted)
	if s.muted || s.initialized {
		return nil
	}

	if err := s.out.Init(sampleRate, sampleRate.N(bufferDuration)); err != nil {
		log.Printf("[audio] device unavailable, continuing silent: %v", err)
		s.silent.Store(true)
		return nil
	}

	s.mixer = &beep.Mixer{}
	s.ctrl = &beep.Ctrl{Streamer: s.mixer}
	s.out.Play(s.ctrl)
	s.initialized = true
	return nil
}

// Cycle implements service.Subsystem
// Mirrors run state pause onto playback and mixes pending cues
func (s *Subsystem) Cycle() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	paused := s.run != nil && s.run.IsPaused()
	if s.initialized && s.ctrl.Paused != paused {
		s.out.Lock()
		s.ctrl.Paused = paused
		s.out.Unlock()
	}

	for {
		select {
		case name := <-s.cues:
			s.play(name, paused)
		default:
			return true
		}
	}
}

// Teardown implements service.Subsystem
func (s *Subsystem) Teardown() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.drain()
	if !s.initialized {
		return nil
	}

	s.out.Lock()
	s.mixer.Clear()
	s.out.Unlock()
	s.out.Close()

	s.initialized = false
	s.mixer = nil
	s.ctrl = nil
	return nil
}

// Emit queues a cue for the next audio cycle; false when unknown or the queue is full
func (s *Subsystem) Emit(cue string) bool {
	if _, ok := s.library[cue]; !ok {
		return false
	}
	select {
	case s.cues <- cue:
		return true
	default:
		s.dropped.Add(1)
		return false
	}
}

// IsSilent reports whether playback is disabled
func (s *Subsystem) IsSilent() bool {
	return s.silent.Load()
}

// Played returns the number of cues mixed (or consumed silently)
func (s *Subsystem) Played() int64 {
	return s.played.Load()
}

// Dropped returns the number of cues discarded
func (s *Subsystem) Dropped() int64 {
	return s.dropped.Load()
}

// play mixes one cue; mu held
func (s *Subsystem) play(name string, paused bool) {
	if paused {
		s.dropped.Add(1)
		return
	}
	s.played.Add(1)
	if !s.initialized {
		return
	}

	streamer := s.library[name].Streamer()
	if streamer == nil {
		return
	}
	s.out.Lock()
	s.mixer.Add(streamer)
	s.out.Unlock()
}

// drain discards queued cues
func (s *Subsystem) drain() {
	for {
		select {
		case <-s.cues:
		default:
			return
		}
	}
}
