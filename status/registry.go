package status

import (
	"fmt"
	"sync/atomic"
)

// Registry is the central metrics facade shared by every cycle owner
// Owners cache pointers during setup; cycles write directly to atomics
type Registry struct {
	Ints    *MetricMap[atomic.Int64]
	Floats  *MetricMap[AtomicFloat]
	Strings *MetricMap[AtomicString]
}

// NewRegistry creates an initialized Registry
func NewRegistry() *Registry {
	return &Registry{
		Ints:    NewMetricMap[atomic.Int64](),
		Floats:  NewMetricMap[AtomicFloat](),
		Strings: NewMetricMap[AtomicString](),
	}
}

// Line is one formatted metric for diagnostics output
type Line struct {
	Key   string
	Value string
}

// Snapshot formats every metric, grouped by type, keys sorted within each group
func (r *Registry) Snapshot() []Line {
	lines := make([]Line, 0, r.TotalCount())
	r.Strings.Range(func(key string, s *AtomicString) {
		lines = append(lines, Line{Key: key, Value: s.Load()})
	})
	r.Ints.Range(func(key string, v *atomic.Int64) {
		lines = append(lines, Line{Key: key, Value: fmt.Sprintf("%d", v.Load())})
	})
	r.Floats.Range(func(key string, f *AtomicFloat) {
		lines = append(lines, Line{Key: key, Value: fmt.Sprintf("%.1f", f.Get())})
	})
	return lines
}

// TotalCount returns total metrics across all types
func (r *Registry) TotalCount() int {
	return r.Ints.Count() + r.Floats.Count() + r.Strings.Count()
}
