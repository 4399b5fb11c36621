// Package monitor collects test lifecycle events and streams them
// to live dashboards over WebSocket.
package monitor

import (
	"time"

	"digital.vasic.harness/pkg/azure"
)

// EventType represents the type of test event.
type EventType string

const (
	EventStarted     EventType = "started"
	EventPassed      EventType = "passed"
	EventFailed      EventType = "failed"
	EventSkipped     EventType = "skipped"
	EventTimedOut    EventType = "timed_out"
	EventInterrupted EventType = "interrupted"
)

// TestEvent represents a lifecycle event of one test attempt.
type TestEvent struct {
	Type        EventType     `json:"type"`
	Title       string        `json:"title"`
	ExecutionID string        `json:"execution_id,omitempty"`
	Status      string        `json:"status,omitempty"`
	Message     string        `json:"message,omitempty"`
	Retry       int           `json:"retry,omitempty"`
	Duration    time.Duration `json:"duration,omitempty"`
	Timestamp   time.Time     `json:"timestamp"`
}

// eventTypeFor maps a test outcome onto its finishing event.
func eventTypeFor(outcome azure.Outcome) EventType {
	switch outcome {
	case azure.OutcomePassed:
		return EventPassed
	case azure.OutcomeSkipped:
		return EventSkipped
	case azure.OutcomeTimedOut:
		return EventTimedOut
	case azure.OutcomeInterrupted:
		return EventInterrupted
	default:
		return EventFailed
	}
}
