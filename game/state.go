package game

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/lixenwraith/cadence/clock"
)

// ErrUnknownState is returned when no factory is registered for a state tag
var ErrUnknownState = errors.New("unknown game state")

// State is one interchangeable game state driven by the Driver
type State interface {
	// Name returns the registry tag of this state
	Name() string
	// Enter prepares the state; an error aborts the switch
	Enter(ctx *Context) error
	// Cycle advances game logic one step; false requests engine shutdown
	Cycle(ctx *Context) bool
	// Exit releases state resources
	Exit(ctx *Context)
}

// CueSink accepts named audio cues; implemented by the audio subsystem
type CueSink interface {
	Emit(cue string) bool
}

// KeySource yields the game keys published since the previous call; implemented by the input subsystem
type KeySource interface {
	Keys() []string
}

// Context is the per-cycle view a state gets of the engine
type Context struct {
	Clock *clock.PausableClock // Game clock, child of the master clock
	Delta time.Duration        // Game time since previous cycle
	Frame uint64               // Cycles advanced in the current state

	cues   CueSink
	keys   []string
	driver *Driver
}

// Keys returns the keys published for this cycle, nil when none
func (c *Context) Keys() []string {
	return c.keys
}

// Emit forwards an audio cue; false when no sink is wired or it is full
func (c *Context) Emit(cue string) bool {
	if c.cues == nil {
		return false
	}
	return c.cues.Emit(cue)
}

// Switch schedules a transition to tag at the start of the next cycle
func (c *Context) Switch(tag string) error {
	return c.driver.Switch(tag)
}

// Factory constructs a fresh state instance
type Factory func() (State, error)

// Registry maps state tags to factories
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds a factory under tag, replacing any previous one
func (r *Registry) Register(tag string, f Factory) {
	r.mu.Lock()
	r.factories[tag] = f
	r.mu.Unlock()
}

// Has reports whether tag is registered
func (r *Registry) Has(tag string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.factories[tag]
	return ok
}

// Create builds the state registered under tag
func (r *Registry) Create(tag string) (State, error) {
	r.mu.RLock()
	f, ok := r.factories[tag]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownState, tag)
	}
	st, err := f()
	if err != nil {
		return nil, fmt.Errorf("state %s construction failed: %w", tag, err)
	}
	return st, nil
}

// Tags returns registered tags in sorted order
func (r *Registry) Tags() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tags := make([]string, 0, len(r.factories))
	for tag := range r.factories {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}
