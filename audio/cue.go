package audio

import (
	"math"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/effects"
	"github.com/gopxl/beep/generators"
)

const sampleRate = beep.SampleRate(44100)

// Cue describes a short synthesized tone
type Cue struct {
	Freq     float64
	Duration time.Duration
	Volume   float64 // Linear, 0 silences
}

// Cue names
const (
	CueBeat   = "beat"
	CueResume = "resume"
	CueError  = "error"
)

// DefaultCues are the tones game states and run state transitions can trigger
var DefaultCues = map[string]Cue{
	CueBeat:   {Freq: 440, Duration: 60 * time.Millisecond, Volume: 0.3},
	CueResume: {Freq: 660, Duration: 80 * time.Millisecond, Volume: 0.4},
	CueError:  {Freq: 110, Duration: 150 * time.Millisecond, Volume: 0.5},
}

// Streamer synthesizes the cue; nil if the tone cannot be generated
func (c Cue) Streamer() beep.Streamer {
	tone, err := generators.SineTone(sampleRate, c.Freq)
	if err != nil {
		return nil
	}
	return newVolume(beep.Take(sampleRate.N(c.Duration), tone), c.Volume)
}

// newVolume wraps s with a linear volume; log2(0) is -Inf so zero is explicit silence
func newVolume(s beep.Streamer, vol float64) beep.Streamer {
	if vol <= 0 {
		return &effects.Volume{Streamer: s, Base: 2, Volume: 0, Silent: true}
	}
	return &effects.Volume{Streamer: s, Base: 2, Volume: math.Log2(vol), Silent: false}
}
