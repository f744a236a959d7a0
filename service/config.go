package service

import (
	"fmt"
	"strconv"
	"time"
)

// Configuration keys understood by the runner itself
const (
	KeyInterval = "interval_ms"
)

// DefaultInterval is the cycle budget when the config carries no interval
const DefaultInterval = 16 * time.Millisecond

// Config is the per-subsystem configuration map
// Values come from YAML so numbers may arrive as int, int64 or float64
type Config map[string]any

// Int returns key as int, or def when missing or not numeric
func (c Config) Int(key string, def int) int {
	switch v := c[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case uint64:
		return int(v)
	case float64:
		return int(v)
	case string:
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

// String returns key as string, or def when missing
func (c Config) String(key, def string) string {
	switch v := c[key].(type) {
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	}
	return def
}

// Bool returns key as bool, or def when missing
func (c Config) Bool(key string, def bool) bool {
	switch v := c[key].(type) {
	case bool:
		return v
	case string:
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

// Duration returns key as a duration; bare numbers are milliseconds
func (c Config) Duration(key string, def time.Duration) time.Duration {
	switch v := c[key].(type) {
	case time.Duration:
		return v
	case string:
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	if ms := c.Int(key, -1); ms >= 0 {
		return time.Duration(ms) * time.Millisecond
	}
	return def
}

// Interval returns the per-cycle budget
func (c Config) Interval() time.Duration {
	return c.Duration(KeyInterval, DefaultInterval)
}

// Clone returns a shallow copy safe to hand to another subsystem
func (c Config) Clone() Config {
	out := make(Config, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}
