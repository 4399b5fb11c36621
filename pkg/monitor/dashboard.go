package monitor

import (
	"sync"
	"time"
)

// DashboardData provides a real-time snapshot of the run.
type DashboardData struct {
	mu        sync.RWMutex
	RunID     string               `json:"run_id"`
	StartTime time.Time            `json:"start_time"`
	Status    string               `json:"status"` // running, completed
	Tests     map[string]TestState `json:"tests"`
	Summary   DashboardSummary     `json:"summary"`
}

// TestState is the latest known state of one test, keyed by title.
type TestState struct {
	Title       string        `json:"title"`
	ExecutionID string        `json:"execution_id,omitempty"`
	Status      string        `json:"status"`
	Retry       int           `json:"retry"`
	StartTime   *time.Time    `json:"start_time,omitempty"`
	EndTime     *time.Time    `json:"end_time,omitempty"`
	Duration    time.Duration `json:"duration,omitempty"`
	Message     string        `json:"message,omitempty"`
}

// DashboardSummary holds aggregate stats for the dashboard.
type DashboardSummary struct {
	Total    int     `json:"total"`
	Passed   int     `json:"passed"`
	Failed   int     `json:"failed"`
	Skipped  int     `json:"skipped"`
	Running  int     `json:"running"`
	PassRate float64 `json:"pass_rate"`
	Elapsed  string  `json:"elapsed"`
}

// NewDashboardData creates a new dashboard data instance.
func NewDashboardData(runID string) *DashboardData {
	return &DashboardData{
		RunID:     runID,
		StartTime: time.Now(),
		Status:    "running",
		Tests:     make(map[string]TestState),
	}
}

// UpdateFromEvent updates dashboard state from a test event. A
// retried test keeps one entry holding its latest attempt.
func (d *DashboardData) UpdateFromEvent(event TestEvent) {
	d.mu.Lock()
	defer d.mu.Unlock()

	ts := event.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	state, exists := d.Tests[event.Title]
	if !exists {
		state = TestState{Title: event.Title}
	}
	state.ExecutionID = event.ExecutionID

	switch event.Type {
	case EventStarted:
		state.Status = "running"
		state.StartTime = &ts
		state.EndTime = nil
		state.Message = ""
	default:
		state.Status = event.Status
		if state.Status == "" {
			state.Status = string(event.Type)
		}
		state.Retry = event.Retry
		state.EndTime = &ts
		state.Duration = event.Duration
		state.Message = event.Message
	}

	d.Tests[event.Title] = state
	d.recalcSummary()
}

func (d *DashboardData) recalcSummary() {
	s := DashboardSummary{}
	for _, t := range d.Tests {
		s.Total++
		switch t.Status {
		case "passed":
			s.Passed++
		case "skipped":
			s.Skipped++
		case "running":
			s.Running++
		default:
			s.Failed++
		}
	}
	if completed := s.Passed + s.Failed; completed > 0 {
		s.PassRate = float64(s.Passed) / float64(completed) * 100
	}
	s.Elapsed = time.Since(d.StartTime).Round(time.Millisecond).String()
	d.Summary = s
}

// Snapshot returns a copy of the current dashboard state.
func (d *DashboardData) Snapshot() *DashboardData {
	d.mu.RLock()
	defer d.mu.RUnlock()
	snap := &DashboardData{
		RunID:     d.RunID,
		StartTime: d.StartTime,
		Status:    d.Status,
		Summary:   d.Summary,
		Tests:     make(map[string]TestState, len(d.Tests)),
	}
	for k, v := range d.Tests {
		snap.Tests[k] = v
	}
	return snap
}

// SetStatus sets the overall run status.
func (d *DashboardData) SetStatus(status string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Status = status
}

// BuildDashboardData creates a DashboardData snapshot from an
// EventCollector by replaying all collected events.
func BuildDashboardData(collector *EventCollector) *DashboardData {
	data := NewDashboardData("snapshot")
	for _, event := range collector.Events() {
		data.UpdateFromEvent(event)
	}
	return data
}
