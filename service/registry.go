package service

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrUnknownVariant is returned when no factory is registered for a tag
var ErrUnknownVariant = errors.New("unknown subsystem variant")

// Factory constructs a fresh subsystem instance
type Factory func() (Subsystem, error)

// Registry maps variant tags to subsystem factories
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]Factory),
	}
}

// Register adds a factory under tag
func (r *Registry) Register(tag string, f Factory) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[tag]; exists {
		return fmt.Errorf("subsystem variant already registered: %s", tag)
	}
	r.factories[tag] = f
	return nil
}

// Create builds the subsystem registered under tag
func (r *Registry) Create(tag string) (Subsystem, error) {
	r.mu.RLock()
	f, ok := r.factories[tag]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownVariant, tag)
	}
	sub, err := f()
	if err != nil {
		return nil, fmt.Errorf("subsystem %s construction failed: %w", tag, err)
	}
	return sub, nil
}

// Tags returns registered variant tags in sorted order
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
