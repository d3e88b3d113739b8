package parallel

import (
	"runtime"
	"sync"

	"github.com/klauspost/cpuid/v2"
)

// Workers returns the default concurrency limit: the number of logical cores
// reported by cpuid, or runtime.NumCPU when detection is unavailable.
func Workers() int {
	if n := cpuid.CPU.LogicalCores; n > 0 {
		return n
	}
	return runtime.NumCPU()
}

// ForEach calls body(i) for every i in [0, length) with at most limit calls in flight.
// It returns once every call has finished.
func ForEach(length, limit int, body func(i int)) {
	if limit <= 0 {
		limit = 1
	}
	if length <= 0 {
		return
	}

	sem := make(chan struct{}, limit)
	var wg sync.WaitGroup
	wg.Add(length)

	for i := 0; i < length; i++ {
		sem <- struct{}{}
		go func(i int) {
			defer wg.Done()
			defer func() { <-sem }()

			body(i)
		}(i)
	}

	wg.Wait()
}

// Map applies fn to every index in parallel and collects the results and errors
// in index order. Work continues for all indices even when some fail.
func Map[T any](length, limit int, fn func(i int) (T, error)) ([]T, []error) {
	out := make([]T, max(length, 0))
	errs := make([]error, max(length, 0))
	ForEach(length, limit, func(i int) {
		out[i], errs[i] = fn(i)
	})
	return out, errs
}
