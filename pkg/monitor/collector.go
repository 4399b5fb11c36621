package monitor

import (
	"sync"
	"time"

	"digital.vasic.harness/pkg/runner"
)

// EventCollector captures test events and timing data. It is a
// runner.Listener.
type EventCollector struct {
	mu       sync.RWMutex
	events   []TestEvent
	handlers []func(TestEvent)
	stats    CollectorStats
}

// CollectorStats holds aggregate statistics over finished attempts.
type CollectorStats struct {
	Started     int           `json:"started"`
	Finished    int           `json:"finished"`
	Passed      int           `json:"passed"`
	Failed      int           `json:"failed"`
	Skipped     int           `json:"skipped"`
	TimedOut    int           `json:"timed_out"`
	Interrupted int           `json:"interrupted"`
	StartTime   time.Time     `json:"start_time"`
	Duration    time.Duration `json:"duration"`
}

// NewEventCollector creates a new event collector.
func NewEventCollector() *EventCollector {
	return &EventCollector{
		events: make([]TestEvent, 0, 64),
		stats:  CollectorStats{StartTime: time.Now()},
	}
}

// OnEvent registers a handler to be called for each event.
func (c *EventCollector) OnEvent(handler func(TestEvent)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers = append(c.handlers, handler)
}

// Emit records an event and notifies all handlers.
func (c *EventCollector) Emit(event TestEvent) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	c.mu.Lock()
	c.events = append(c.events, event)
	switch event.Type {
	case EventStarted:
		c.stats.Started++
	case EventPassed:
		c.stats.Finished++
		c.stats.Passed++
	case EventFailed:
		c.stats.Finished++
		c.stats.Failed++
	case EventSkipped:
		c.stats.Finished++
		c.stats.Skipped++
	case EventTimedOut:
		c.stats.Finished++
		c.stats.TimedOut++
	case EventInterrupted:
		c.stats.Finished++
		c.stats.Interrupted++
	}
	handlers := make([]func(TestEvent), len(c.handlers))
	copy(handlers, c.handlers)
	c.mu.Unlock()

	for _, h := range handlers {
		h(event)
	}
}

// TestStarted emits a started event.
func (c *EventCollector) TestStarted(title, executionID string) {
	c.Emit(TestEvent{
		Type:        EventStarted,
		Title:       title,
		ExecutionID: executionID,
	})
}

// TestFinished emits the event matching the attempt's outcome.
func (c *EventCollector) TestFinished(res runner.Result) {
	c.Emit(TestEvent{
		Type:        eventTypeFor(res.Status),
		Title:       res.Title,
		ExecutionID: res.ExecutionID,
		Status:      string(res.Status),
		Message:     res.Error,
		Retry:       res.Retry,
		Duration:    res.Duration,
	})
}

// Events returns a copy of all collected events.
func (c *EventCollector) Events() []TestEvent {
	c.mu.RLock()
	defer c.mu.RUnlock()
	result := make([]TestEvent, len(c.events))
	copy(result, c.events)
	return result
}

// Stats returns the current aggregate statistics.
func (c *EventCollector) Stats() CollectorStats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s := c.stats
	s.Duration = time.Since(s.StartTime)
	return s
}

// Reset clears all collected events and statistics.
func (c *EventCollector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = c.events[:0]
	c.stats = CollectorStats{StartTime: time.Now()}
}
