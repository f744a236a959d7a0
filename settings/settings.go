package settings

import (
	"fmt"
	"log"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/lixenwraith/cadence/service"
)

// Defaults used when no file or key is given
const (
	DefaultThreading    = ThreadingOptimize
	DefaultLoopInterval = 16 * time.Millisecond
	DefaultGameState    = "idle"
)

// fileFormat is the on-disk YAML layout
//
//	threading: OPTIMIZE
//	interval_ms: 16
//	state: idle
//	subsystems:
//	  audio: {interval_ms: 10, muted: true}
type fileFormat struct {
	Threading  string                    `yaml:"threading"`
	IntervalMs int                       `yaml:"interval_ms"`
	State      string                    `yaml:"state"`
	Subsystems map[string]map[string]any `yaml:"subsystems"`
}

// Settings is the single process-wide runtime settings service
// Threading is read lock-free every main loop cycle; the rest is mutex-guarded
type Settings struct {
	threading atomic.Pointer[Threading]

	mu           sync.RWMutex
	path         string
	loopInterval time.Duration
	gameState    string
	subsystems   map[string]service.Config
}

// New returns settings populated with defaults
func New() *Settings {
	s := &Settings{
		loopInterval: DefaultLoopInterval,
		gameState:    DefaultGameState,
		subsystems:   make(map[string]service.Config),
	}
	t := DefaultThreading
	s.threading.Store(&t)
	return s
}

// Load reads settings from a YAML file
func Load(path string) (*Settings, error) {
	s := New()
	s.path = path
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Reload re-reads the backing file; on error the current values are kept
func (s *Settings) Reload() error {
	s.mu.RLock()
	path := s.path
	s.mu.RUnlock()

	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read settings: %w", err)
	}
	if err := s.Apply(data); err != nil {
		return fmt.Errorf("settings %s: %w", path, err)
	}
	log.Printf("[settings] loaded %s (threading=%s)", path, s.Threading())
	return nil
}

// Apply parses YAML data and replaces present keys; validation happens before any change
func (s *Settings) Apply(data []byte) error {
	var f fileFormat
	if err := yaml.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("parse: %w", err)
	}

	var threading Threading
	if f.Threading != "" {
		t, err := ParseThreading(f.Threading)
		if err != nil {
			return err
		}
		threading = t
	}
	if f.IntervalMs < 0 {
		return fmt.Errorf("interval_ms must not be negative: %d", f.IntervalMs)
	}

	s.mu.Lock()
	if f.IntervalMs > 0 {
		s.loopInterval = time.Duration(f.IntervalMs) * time.Millisecond
	}
	if f.State != "" {
		s.gameState = f.State
	}
	for name, cfg := range f.Subsystems {
		s.subsystems[name] = service.Config(cfg).Clone()
	}
	s.mu.Unlock()

	if threading != "" {
		s.SetThreading(threading)
	}
	return nil
}

// Threading returns the current threading setting
func (s *Settings) Threading() Threading {
	return *s.threading.Load()
}

// SetThreading replaces the threading setting; the orchestrator replans on next check
func (s *Settings) SetThreading(t Threading) {
	s.threading.Store(&t)
}

// CycleThreading advances to the next setting and returns it
func (s *Settings) CycleThreading() Threading {
	next := s.Threading().Next()
	s.SetThreading(next)
	return next
}

// LoopInterval returns the orchestrator main loop budget
func (s *Settings) LoopInterval() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loopInterval
}

// SetLoopInterval overrides the main loop budget
func (s *Settings) SetLoopInterval(d time.Duration) {
	s.mu.Lock()
	s.loopInterval = d
	s.mu.Unlock()
}

// GameState returns the tag of the initial game state
func (s *Settings) GameState() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.gameState
}

// SetGameState overrides the initial game state tag
func (s *Settings) SetGameState(tag string) {
	s.mu.Lock()
	s.gameState = tag
	s.mu.Unlock()
}

// Subsystem returns a private copy of the named subsystem's configuration
func (s *Settings) Subsystem(name string) service.Config {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if cfg, ok := s.subsystems[name]; ok {
		return cfg.Clone()
	}
	return service.Config{}
}

// SetSubsystem replaces one key in the named subsystem's configuration
func (s *Settings) SetSubsystem(name, key string, value any) {
	s.mu.Lock()
	cfg, ok := s.subsystems[name]
	if !ok {
		cfg = service.Config{}
		s.subsystems[name] = cfg
	}
	cfg[key] = value
	s.mu.Unlock()
}
