//go:build !linux

package engine

import "runtime"

func availableParallelism() (int, error) {
	return runtime.NumCPU(), nil
}
