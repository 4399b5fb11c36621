// Package metrics records per-test execution metrics and exposes them
// for Prometheus scraping.
package metrics

import (
	"strings"
	"time"
)

// Error categories of the failure counter.
const (
	ErrorTimeout         = "timeout"
	ErrorLocatorNotFound = "locator-not-found"
	ErrorOther           = "other"
)

// Observation is what the after-each hook knows about a finished test.
type Observation struct {
	Test         string
	Group        string
	Status       string
	Duration     time.Duration
	// Retries is the attempt index, 0 for the first run of a test.
	Retries      int
	ErrorMessage string
}

// Recorder defines the interface for recording test metrics.
type Recorder interface {
	// ObserveTest records one finished test.
	ObserveTest(obs Observation)
	// SetEnvironment labels the process with the target environment.
	SetEnvironment(env string)
}

// NoopMetrics is a no-op implementation of Recorder
// useful for testing or when metrics collection is disabled.
type NoopMetrics struct{}

func (NoopMetrics) ObserveTest(_ Observation) {}
func (NoopMetrics) SetEnvironment(_ string)   {}

// ErrorCategory classifies a failure message.
func ErrorCategory(msg string) string {
	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(lower, "timeout"), strings.Contains(lower, "timed out"):
		return ErrorTimeout
	case strings.Contains(lower, "locator"):
		return ErrorLocatorNotFound
	default:
		return ErrorOther
	}
}
