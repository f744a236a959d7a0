package clock

import (
	"sync"
	"time"
)

// TimeProvider supplies raw time readings to clocks and regulators
type TimeProvider interface {
	Now() time.Time
}

// MonotonicTimeProvider provides the real system time with monotonic clock readings
// Used for pacing and as the root time base of the master clock
type MonotonicTimeProvider struct{}

// NewMonotonicTimeProvider creates a new monotonic time provider
func NewMonotonicTimeProvider() *MonotonicTimeProvider {
	return &MonotonicTimeProvider{}
}

// Now returns the current time with monotonic clock reading
func (p *MonotonicTimeProvider) Now() time.Time {
	return time.Now()
}

// MockTimeProvider is a manually driven time source for deterministic tests
type MockTimeProvider struct {
	mu  sync.RWMutex
	now time.Time
}

// NewMockTimeProvider creates a mock provider frozen at start
func NewMockTimeProvider(start time.Time) *MockTimeProvider {
	return &MockTimeProvider{now: start}
}

// Now returns the mocked time
func (m *MockTimeProvider) Now() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.now
}

// SetTime jumps to t
func (m *MockTimeProvider) SetTime(t time.Time) {
	m.mu.Lock()
	m.now = t
	m.mu.Unlock()
}

// Advance moves the mocked time forward by d
func (m *MockTimeProvider) Advance(d time.Duration) {
	m.mu.Lock()
	m.now = m.now.Add(d)
	m.mu.Unlock()
}

// Source is anything a pausable clock can derive its ticks from
type Source interface {
	Elapsed() time.Duration
}

// providerSource adapts a TimeProvider into a Source counting from its creation
type providerSource struct {
	provider TimeProvider
	origin   time.Time
}

func newProviderSource(p TimeProvider) *providerSource {
	return &providerSource{provider: p, origin: p.Now()}
}

func (s *providerSource) Elapsed() time.Duration {
	return s.provider.Now().Sub(s.origin)
}
