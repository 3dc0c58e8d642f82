// Package parallel runs independent side effects concurrently and reports
// every outcome instead of aborting on the first failure.
package parallel

import "sync"

// Settle runs every op in its own goroutine, waits for all of them, and
// returns one error slot per op in input order. A nil slot means the op
// succeeded. Unlike errgroup, a failing op never cancels or hides the
// others; callers inspect each slot separately.
func Settle(ops ...func() error) []error {
	errs := make([]error, len(ops))
	var wg sync.WaitGroup
	wg.Add(len(ops))
	for i, op := range ops {
		go func(i int, op func() error) {
			defer wg.Done()
			errs[i] = op()
		}(i, op)
	}
	wg.Wait()
	return errs
}
