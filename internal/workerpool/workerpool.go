// Package workerpool runs a batch of independent work items across a
// bounded number of goroutines, generalizing the per-particle parallel
// loops of the filter implementations this module was adapted from (each
// of which propagated/observed its particles in an unbounded per-call
// loop) into a single reusable, capped-concurrency primitive used by the
// prediction tensor builder and the likelihood matrix builder.
package workerpool

import (
	"runtime"
	"sync"
)

// Run executes fn(i) for every i in [0, n) across at most workers
// goroutines and blocks until all calls complete. workers <= 0 defaults to
// runtime.GOMAXPROCS(0). Run does not propagate panics from fn; callers
// that need error propagation should capture errors into a
// pre-sized slice indexed by i.
func Run(n, workers int, fn func(i int)) {
	if n <= 0 {
		return
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > n {
		workers = n
	}

	var mu sync.Mutex
	i := 0

	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for {
				mu.Lock()
				if i >= n {
					mu.Unlock()
					return
				}
				idx := i
				i++
				mu.Unlock()

				fn(idx)
			}
		}()
	}
	wg.Wait()
}
