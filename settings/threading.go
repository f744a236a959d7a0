package settings

import (
	"errors"
	"fmt"
	"strings"
)

// Threading is the engine concurrency policy setting
type Threading string

const (
	// ThreadingFull always uses four threads
	ThreadingFull Threading = "FULL"
	// ThreadingSingle drives everything from the main loop
	ThreadingSingle Threading = "SINGLE"
	// ThreadingOptimize sizes the plan to available hardware parallelism
	ThreadingOptimize Threading = "OPTIMIZE"
)

// ErrInvalidThreading is returned for unrecognized threading values
var ErrInvalidThreading = errors.New("invalid threading setting")

var threadingCycle = []Threading{ThreadingFull, ThreadingSingle, ThreadingOptimize}

// ParseThreading accepts FULL, SINGLE or OPTIMIZE in any case
func ParseThreading(s string) (Threading, error) {
	t := Threading(strings.ToUpper(strings.TrimSpace(s)))
	switch t {
	case ThreadingFull, ThreadingSingle, ThreadingOptimize:
		return t, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidThreading, s)
}

// Next returns the following setting in FULL -> SINGLE -> OPTIMIZE order
func (t Threading) Next() Threading {
	for i, v := range threadingCycle {
		if v == t {
			return threadingCycle[(i+1)%len(threadingCycle)]
		}
	}
	return ThreadingOptimize
}

func (t Threading) String() string {
	return string(t)
}
