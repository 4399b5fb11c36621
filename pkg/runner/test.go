package runner

import (
	"context"
	"errors"
	"time"

	"github.com/playwright-community/playwright-go"

	"digital.vasic.harness/pkg/azure"
	"digital.vasic.harness/pkg/browser"
	"digital.vasic.harness/pkg/config"
	"digital.vasic.harness/pkg/logging"
)

// TestFunc is the body of a test. A returned error fails the test
// unless it is a SkipError.
type TestFunc func(t *T) error

// Test is one registered browser test. Its Title carries the
// test-case annotations used for remote reporting.
type Test struct {
	Title   string
	Group   string
	Timeout time.Duration
	Fn      TestFunc
}

// SkipError marks a test as skipped.
type SkipError struct {
	Reason string
}

func (e *SkipError) Error() string { return "skipped: " + e.Reason }

// Skip returns an error that ends the test as skipped.
func Skip(reason string) error {
	return &SkipError{Reason: reason}
}

// IsSkip reports whether err ends a test as skipped.
func IsSkip(err error) bool {
	var se *SkipError
	return errors.As(err, &se)
}

// Result is the outcome of one attempt of a test.
type Result struct {
	Title       string              `json:"title"`
	Group       string              `json:"group,omitempty"`
	Status      azure.Outcome       `json:"status"`
	Error       string              `json:"error,omitempty"`
	Retry       int                 `json:"retry"`
	ExecutionID string              `json:"execution_id"`
	StartTime   time.Time           `json:"start_time"`
	EndTime     time.Time           `json:"end_time"`
	Duration    time.Duration       `json:"duration"`
	Report      *azure.FinishReport `json:"report,omitempty"`
}

// T is handed to the test body. It exposes the page, the resolved
// configuration and the per-test reporting state.
type T struct {
	Title       string
	ExecutionID string
	Retry       int
	Logger      logging.Logger
	Resolver    *config.Resolver
	Session     *browser.Session
	Execution   *azure.Execution

	ctx   context.Context
	steps chan string
}

// Context returns the context of the running attempt. It is done
// when the test times out, gets stuck or the run is cancelled.
func (t *T) Context() context.Context {
	if t.ctx == nil {
		return context.Background()
	}
	return t.ctx
}

// Page returns the browser page of the test, nil when the runner
// was configured without a browser.
func (t *T) Page() playwright.Page {
	if t.Session == nil {
		return nil
	}
	return t.Session.Page
}

// Step logs a named step and counts as progress for the liveness
// monitor.
func (t *T) Step(name string) {
	t.Logger.Info("step", logging.StringField("step", name))
	if t.steps == nil {
		return
	}
	select {
	case t.steps <- name:
	default:
	}
}

// Attach adds evidence to the test's attachment buffer. It is a
// no-op when the test is not reported remotely.
func (t *T) Attach(ext string, content []byte, comment string) {
	if t.Execution == nil {
		return
	}
	t.Execution.Buffer.Add(azure.NewAttachment(ext, content, comment))
}
