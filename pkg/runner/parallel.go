package runner

import (
	"context"
	"sync"
)

// parallelResult pairs a result with its original index so
// results can be returned in submission order.
type parallelResult struct {
	index  int
	result *Result
	err    error
}

// runParallel executes tests concurrently with a semaphore limiting
// maxConcurrency goroutines. Every attempt owns its execution state,
// so no evidence is shared between workers. Results are returned in
// the same order as the input tests; tests that never started are
// left out.
func runParallel(
	ctx context.Context,
	r *Runner,
	tests []Test,
	maxConcurrency int,
) ([]*Result, error) {
	if maxConcurrency <= 0 {
		maxConcurrency = 1
	}

	sem := make(chan struct{}, maxConcurrency)
	resultsCh := make(chan parallelResult, len(tests))

	var wg sync.WaitGroup

	for i, test := range tests {
		wg.Add(1)
		go func(idx int, tc Test) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				resultsCh <- parallelResult{index: idx, err: ctx.Err()}
				return
			}
			if err := ctx.Err(); err != nil {
				resultsCh <- parallelResult{index: idx, err: err}
				return
			}

			resultsCh <- parallelResult{
				index:  idx,
				result: r.RunTest(ctx, tc),
			}
		}(i, test)
	}

	go func() {
		wg.Wait()
		close(resultsCh)
	}()

	ordered := make([]*Result, len(tests))
	var firstErr error

	for pr := range resultsCh {
		if pr.err != nil && firstErr == nil {
			firstErr = pr.err
		}
		ordered[pr.index] = pr.result
	}

	results := make([]*Result, 0, len(tests))
	for _, res := range ordered {
		if res != nil {
			results = append(results, res)
		}
	}

	return results, firstErr
}
