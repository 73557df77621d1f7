package commands

import (
	"runtime"
	"sync"
	"sync/atomic"
)

// parallelFor runs fn(y) over y in [0, n) using up to GOMAXPROCS workers.
// Rows are strided across workers to balance uneven workloads.
func parallelFor(n int, fn func(y int)) {
	_ = parallelForStop(n, func(y int) bool {
		fn(y)
		return false
	})
}

// parallelForStop runs fn(y) over y in [0, n) using up to GOMAXPROCS workers.
// The first fn returning true stops all workers and makes parallelForStop return true.
func parallelForStop(n int, fn func(y int) bool) bool {
	if n <= 0 {
		return false
	}
	workers := runtime.GOMAXPROCS(0)
	if workers > n {
		workers = n
	}

	var stop atomic.Bool
	var wg sync.WaitGroup
	wg.Add(workers)

	for w := 0; w < workers; w++ {
		go func(offset int) {
			defer wg.Done()
			for y := offset; y < n && !stop.Load(); y += workers {
				if fn(y) {
					stop.Store(true)
					return
				}
			}
		}(w)
	}

	wg.Wait()
	return stop.Load()
}
