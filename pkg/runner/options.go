package runner

import (
	"time"

	"digital.vasic.harness/pkg/logging"
)

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithLogger sets the logger used by the runner itself. The hooks
// keep their own logger.
func WithLogger(logger logging.Logger) RunnerOption {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithTimeout sets the default attempt timeout for tests that do
// not specify their own.
func WithTimeout(timeout time.Duration) RunnerOption {
	return func(r *Runner) {
		if timeout > 0 {
			r.timeout = timeout
		}
	}
}

// WithRetries sets how many times a failed or timed out test is
// retried.
func WithRetries(n int) RunnerOption {
	return func(r *Runner) {
		if n >= 0 {
			r.retries = n
		}
	}
}

// WithStaleThreshold enables the liveness monitor: an attempt that
// reports no step for d is cancelled and timed out.
func WithStaleThreshold(d time.Duration) RunnerOption {
	return func(r *Runner) {
		r.staleThreshold = d
	}
}

// WithListener adds a lifecycle listener.
func WithListener(l Listener) RunnerOption {
	return func(r *Runner) {
		if l != nil {
			r.listeners = append(r.listeners, l)
		}
	}
}
