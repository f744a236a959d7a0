package clock

import (
	"time"

	"github.com/lixenwraith/cadence/status"
)

// Weight of the previous rate in the cycles-per-second moving average
// The instantaneous sample contributes the remaining 0.25
const rateKeep = 0.75

// Sleeper blocks for d or until interrupt fires, whichever comes first
type Sleeper func(d time.Duration, interrupt <-chan struct{})

// TimerSleep is the default Sleeper backed by a runtime timer
func TimerSleep(d time.Duration, interrupt <-chan struct{}) {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
	case <-interrupt:
	}
}

// Regulator paces a loop to a target period and tracks smoothed cycles per second
// Owned by exactly one goroutine; Rate is safe to read from anywhere
type Regulator struct {
	provider TimeProvider
	sleep    Sleeper

	target     time.Duration
	cycleStart time.Time
	cycles     uint64

	rate *status.AtomicFloat
}

// RegulatorOption configures a Regulator at construction
type RegulatorOption func(*Regulator)

// WithRegulatorTimeProvider overrides the raw timer used for measurement
func WithRegulatorTimeProvider(p TimeProvider) RegulatorOption {
	return func(r *Regulator) { r.provider = p }
}

// WithSleeper overrides how the regulator waits out the remaining budget
func WithSleeper(s Sleeper) RegulatorOption {
	return func(r *Regulator) { r.sleep = s }
}

// WithRateSink publishes the smoothed rate into an externally owned metric
func WithRateSink(f *status.AtomicFloat) RegulatorOption {
	return func(r *Regulator) { r.rate = f }
}

// NewRegulator creates a regulator targeting one cycle per target duration
// A non-positive target disables pacing
func NewRegulator(target time.Duration, opts ...RegulatorOption) *Regulator {
	r := &Regulator{
		provider: NewMonotonicTimeProvider(),
		sleep:    TimerSleep,
		target:   target,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.rate == nil {
		r.rate = &status.AtomicFloat{}
	}
	r.cycleStart = r.provider.Now()
	return r
}

// Advance ends the current cycle, sleeping out any unused budget
func (r *Regulator) Advance() {
	r.AdvanceUntil(nil)
}

// AdvanceUntil is Advance with an early wake-up channel
// An interrupted sleep counts as a completed one
func (r *Regulator) AdvanceUntil(interrupt <-chan struct{}) {
	elapsed := r.provider.Now().Sub(r.cycleStart)

	var inst float64
	switch {
	case r.target > 0 && elapsed < r.target:
		r.sleep(r.target-elapsed, interrupt)
		inst = perSecond(r.target)
	case elapsed > 0:
		inst = perSecond(elapsed)
	default:
		inst = r.rate.Get()
	}

	r.cycleStart = r.provider.Now()
	r.cycles++
	r.rate.Smooth(rateKeep, inst)
}

// Reset re-anchors the cycle start without touching the rate
func (r *Regulator) Reset() {
	r.cycleStart = r.provider.Now()
}

// Rate returns the smoothed cycles per second
func (r *Regulator) Rate() float64 {
	return r.rate.Get()
}

// Cycles returns how many times Advance completed
func (r *Regulator) Cycles() uint64 {
	return r.cycles
}

// Target returns the per-cycle budget
func (r *Regulator) Target() time.Duration {
	return r.target
}

// SetTarget changes the per-cycle budget from the next Advance on
func (r *Regulator) SetTarget(d time.Duration) {
	r.target = d
}

func perSecond(d time.Duration) float64 {
	return 1000 / (float64(d) / float64(time.Millisecond))
}
