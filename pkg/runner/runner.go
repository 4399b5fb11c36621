// Package runner provides the browser test execution engine. It
// runs tests sequentially or on a bounded worker pool, wraps every
// attempt in the lifecycle hooks and applies timeouts, retries and
// liveness detection.
package runner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"digital.vasic.harness/pkg/azure"
	"digital.vasic.harness/pkg/logging"
)

// DefaultTimeout bounds a single attempt of a test.
const DefaultTimeout = 30 * time.Second

const stepBuffer = 16

// Listener observes test lifecycle events. Implementations must be
// safe for concurrent use when tests run in parallel.
type Listener interface {
	TestStarted(title, executionID string)
	TestFinished(res Result)
}

// Runner executes tests through the lifecycle hooks.
type Runner struct {
	hooks          *Hooks
	logger         logging.Logger
	timeout        time.Duration
	staleThreshold time.Duration
	retries        int
	listeners      []Listener
}

// NewRunner creates a Runner around hooks with the supplied options.
func NewRunner(hooks *Hooks, opts ...RunnerOption) *Runner {
	if hooks == nil {
		hooks = &Hooks{}
	}
	r := &Runner{
		hooks:   hooks,
		logger:  hooks.logger(),
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes the before-all hook and then every test in order.
// The returned results hold the final attempt of each test that
// started; the error is the context error when the run was
// cancelled.
func (r *Runner) Run(ctx context.Context, tests []Test) ([]*Result, error) {
	r.hooks.BeforeAll()

	results := make([]*Result, 0, len(tests))
	for _, test := range tests {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		results = append(results, r.RunTest(ctx, test))
	}
	return results, nil
}

// RunParallel executes the before-all hook once and then the tests
// on at most maxConcurrency workers. Results keep the input order.
func (r *Runner) RunParallel(
	ctx context.Context, tests []Test, maxConcurrency int,
) ([]*Result, error) {
	r.hooks.BeforeAll()
	return runParallel(ctx, r, tests, maxConcurrency)
}

// RunTest executes test, retrying failed and timed out attempts up
// to the configured retry count, and returns the last attempt.
func (r *Runner) RunTest(ctx context.Context, test Test) *Result {
	var res *Result
	for retry := 0; retry <= r.retries; retry++ {
		res = r.attempt(ctx, test, retry)
		if !retryable(res.Status) || ctx.Err() != nil {
			break
		}
		if retry < r.retries {
			r.logger.Warn("retrying test",
				logging.StringField("test", test.Title),
				logging.IntField("retry", retry+1))
		}
	}
	return res
}

func retryable(status azure.Outcome) bool {
	return status == azure.OutcomeFailed || status == azure.OutcomeTimedOut
}

// attempt runs one try of test: before-each, the body under its
// timeout and liveness monitor, then after-each.
func (r *Runner) attempt(ctx context.Context, test Test, retry int) *Result {
	res := &Result{
		Title:     test.Title,
		Group:     test.Group,
		Retry:     retry,
		StartTime: time.Now(),
	}

	timeout := test.Timeout
	if timeout <= 0 {
		timeout = r.timeout
	}
	execCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	t, setupErr := r.hooks.BeforeEach(execCtx, test, retry)
	res.ExecutionID = t.ExecutionID
	for _, l := range r.listeners {
		l.TestStarted(test.Title, t.ExecutionID)
	}

	var (
		runErr error
		stuck  bool
	)
	if setupErr != nil {
		runErr = setupErr
	} else {
		stuck, runErr = r.execute(execCtx, cancel, t, test.Fn)
	}

	res.EndTime = time.Now()
	res.Duration = res.EndTime.Sub(res.StartTime)
	r.classify(ctx, execCtx, res, runErr, stuck, timeout)

	r.hooks.AfterEach(ctx, t, test.Group, res)
	for _, l := range r.listeners {
		l.TestFinished(*res)
	}
	return res
}

// execute runs fn in its own goroutine so a body blocked in a
// browser call cannot outlive the attempt's deadline.
func (r *Runner) execute(
	ctx context.Context, cancel context.CancelFunc, t *T, fn TestFunc,
) (stuck bool, err error) {
	if fn == nil {
		return false, errors.New("test has no body")
	}
	t.ctx = ctx
	if r.staleThreshold > 0 {
		t.steps = make(chan string, stepBuffer)
	}
	stopLiveness, stuckCh := startLivenessMonitor(
		t.steps, r.staleThreshold, cancel, t.Logger,
	)
	defer stopLiveness()

	done := make(chan error, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				done <- fmt.Errorf("test panicked: %v", p)
			}
		}()
		done <- fn(t)
	}()

	select {
	case err = <-done:
	case <-ctx.Done():
		err = ctx.Err()
	}
	stopLiveness()

	if stuckCh != nil {
		select {
		case <-stuckCh:
			stuck = true
		default:
		}
	}
	return stuck, err
}

// classify turns the attempt's error into an outcome. Cancellation
// of the run wins over the attempt's own deadline.
func (r *Runner) classify(
	parent, execCtx context.Context,
	res *Result, err error, stuck bool, timeout time.Duration,
) {
	var se *SkipError
	switch {
	case err == nil:
		res.Status = azure.OutcomePassed
	case errors.As(err, &se):
		res.Status = azure.OutcomeSkipped
		res.Error = se.Reason
	case parent.Err() != nil:
		res.Status = azure.OutcomeInterrupted
		res.Error = "test interrupted: " + parent.Err().Error()
	case stuck:
		res.Status = azure.OutcomeTimedOut
		res.Error = fmt.Sprintf(
			"test timed out: no step reported within %dms",
			r.staleThreshold.Milliseconds())
	case errors.Is(execCtx.Err(), context.DeadlineExceeded):
		res.Status = azure.OutcomeTimedOut
		res.Error = fmt.Sprintf("test timed out after %dms", timeout.Milliseconds())
	default:
		res.Status = azure.OutcomeFailed
		res.Error = err.Error()
	}
}
