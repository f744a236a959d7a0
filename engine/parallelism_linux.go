//go:build linux

package engine

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// availableParallelism counts the CPUs this process may be scheduled on
func availableParallelism() (int, error) {
	var set unix.CPUSet
	if err := unix.SchedGetaffinity(0, &set); err != nil {
		return 0, fmt.Errorf("sched_getaffinity: %w", err)
	}
	return set.Count(), nil
}
