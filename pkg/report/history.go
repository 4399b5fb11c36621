package report

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"digital.vasic.harness/pkg/runner"
)

// HistoryFile is the JSON-lines log of every finished attempt.
const HistoryFile = "history.jsonl"

// HistoricalEntry represents a single test attempt in the
// historical log.
type HistoricalEntry struct {
	Timestamp   time.Time `json:"timestamp"`
	Title       string    `json:"title"`
	ExecutionID string    `json:"execution_id"`
	Status      string    `json:"status"`
	Retry       int       `json:"retry"`
	Duration    string    `json:"duration"`
	RunID       int       `json:"run_id,omitempty"`
	ResultID    int       `json:"result_id,omitempty"`
}

// AppendToHistory adds an entry for result to the historical log
// stored at historyPath. Each entry is a single JSON line.
func AppendToHistory(historyPath string, result *runner.Result) error {
	entry := HistoricalEntry{
		Timestamp:   result.EndTime,
		Title:       result.Title,
		ExecutionID: result.ExecutionID,
		Status:      string(result.Status),
		Retry:       result.Retry,
		Duration:    result.Duration.String(),
	}
	if result.Report != nil {
		entry.RunID = result.Report.RunID
		entry.ResultID = result.Report.ResultID
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal history entry: %w", err)
	}

	file, err := os.OpenFile(
		historyPath,
		os.O_CREATE|os.O_APPEND|os.O_WRONLY,
		0644,
	)
	if err != nil {
		return fmt.Errorf("failed to open history file: %w", err)
	}
	defer func() { _ = file.Close() }()

	_, err = fmt.Fprintln(file, string(data))
	return err
}
