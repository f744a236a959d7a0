package status

import (
	"math"
	"sync/atomic"
)

// AtomicFloat provides atomic float64 operations using bit conversion
// Zero value is ready to use (represents 0.0)
type AtomicFloat struct {
	bits atomic.Uint64
}

// Set stores a float64 value atomically
func (f *AtomicFloat) Set(val float64) {
	f.bits.Store(math.Float64bits(val))
}

// Get loads the float64 value atomically
func (f *AtomicFloat) Get() float64 {
	return math.Float64frombits(f.bits.Load())
}

// Smooth folds sample into the stored value as an exponential moving average
// keep is the weight of the previous value; returns the new value
func (f *AtomicFloat) Smooth(keep, sample float64) float64 {
	for {
		old := f.bits.Load()
		next := keep*math.Float64frombits(old) + (1-keep)*sample
		if f.bits.CompareAndSwap(old, math.Float64bits(next)) {
			return next
		}
	}
}
