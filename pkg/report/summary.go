package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"digital.vasic.harness/pkg/azure"
	"digital.vasic.harness/pkg/runner"
)

// RunSummary represents an aggregated summary of one test run.
type RunSummary struct {
	ID            string        `json:"id"`
	GeneratedAt   time.Time     `json:"generated_at"`
	Tests         []TestSummary `json:"tests"`
	TotalTests    int           `json:"total_tests"`
	Passed        int           `json:"passed"`
	Failed        int           `json:"failed"`
	Skipped       int           `json:"skipped"`
	TimedOut      int           `json:"timed_out"`
	Interrupted   int           `json:"interrupted"`
	TotalDuration time.Duration `json:"total_duration"`
	PassRate      float64       `json:"pass_rate"`
}

// TestSummary represents a summary of a single test.
type TestSummary struct {
	Title    string        `json:"title"`
	Status   string        `json:"status"`
	Retry    int           `json:"retry"`
	Duration time.Duration `json:"duration"`
	Error    string        `json:"error,omitempty"`
	RunURL   string        `json:"run_url,omitempty"`
}

// BuildSummary creates a run summary from test results.
func BuildSummary(results []*runner.Result) *RunSummary {
	now := time.Now()
	summary := &RunSummary{
		ID:          fmt.Sprintf("summary_%s", now.Format("20060102_150405")),
		GeneratedAt: now,
		Tests:       make([]TestSummary, 0, len(results)),
	}

	for _, r := range results {
		ts := TestSummary{
			Title:    r.Title,
			Status:   string(r.Status),
			Retry:    r.Retry,
			Duration: r.Duration,
			Error:    r.Error,
		}
		if r.Report != nil {
			ts.RunURL = r.Report.RunURL
		}
		summary.Tests = append(summary.Tests, ts)
		summary.TotalTests++
		summary.TotalDuration += r.Duration

		switch r.Status {
		case azure.OutcomePassed:
			summary.Passed++
		case azure.OutcomeSkipped:
			summary.Skipped++
		case azure.OutcomeTimedOut:
			summary.TimedOut++
		case azure.OutcomeInterrupted:
			summary.Interrupted++
		default:
			summary.Failed++
		}
	}

	if summary.TotalTests > 0 {
		summary.PassRate = float64(summary.Passed) / float64(summary.TotalTests)
	}
	return summary
}

// SaveSummary saves the run summary to both JSON and Markdown files
// in outputDir and points latest_summary.{json,md} at them.
func SaveSummary(summary *RunSummary, outputDir string) error {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	ts := summary.GeneratedAt.Format("20060102_150405")

	jsonPath := filepath.Join(outputDir, fmt.Sprintf("summary_%s.json", ts))
	jsonData, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal summary: %w", err)
	}
	if err := os.WriteFile(jsonPath, jsonData, 0644); err != nil {
		return fmt.Errorf("failed to write JSON summary: %w", err)
	}

	mdPath := filepath.Join(outputDir, fmt.Sprintf("summary_%s.md", ts))
	if err := os.WriteFile(mdPath, []byte(generateSummaryMarkdown(summary)), 0644); err != nil {
		return fmt.Errorf("failed to write Markdown summary: %w", err)
	}

	latestJSON := filepath.Join(outputDir, "latest_summary.json")
	latestMD := filepath.Join(outputDir, "latest_summary.md")

	_ = os.Remove(latestJSON)
	_ = os.Remove(latestMD)
	_ = os.Symlink(filepath.Base(jsonPath), latestJSON)
	_ = os.Symlink(filepath.Base(mdPath), latestMD)

	return nil
}

// generateSummaryMarkdown creates markdown from a run summary.
func generateSummaryMarkdown(summary *RunSummary) string {
	var sb strings.Builder

	sb.WriteString("# Test Run Summary\n\n")
	sb.WriteString(fmt.Sprintf("**Summary ID:** %s\n\n", summary.ID))
	sb.WriteString(fmt.Sprintf("**Generated:** %s\n\n",
		summary.GeneratedAt.Format(time.RFC3339)))

	sb.WriteString("## Overview\n\n")
	sb.WriteString("| Test | Status | Retry | Duration |\n")
	sb.WriteString("|------|--------|-------|----------|\n")
	for _, t := range summary.Tests {
		sb.WriteString(fmt.Sprintf("| %s | %s | %d | %v |\n",
			strings.ReplaceAll(t.Title, "|", `\|`),
			strings.ToUpper(t.Status), t.Retry, t.Duration))
	}

	sb.WriteString("\n## Statistics\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Total Tests | %d |\n", summary.TotalTests))
	sb.WriteString(fmt.Sprintf("| Passed | %d |\n", summary.Passed))
	sb.WriteString(fmt.Sprintf("| Failed | %d |\n", summary.Failed))
	sb.WriteString(fmt.Sprintf("| Skipped | %d |\n", summary.Skipped))
	sb.WriteString(fmt.Sprintf("| Timed Out | %d |\n", summary.TimedOut))
	sb.WriteString(fmt.Sprintf("| Interrupted | %d |\n", summary.Interrupted))
	sb.WriteString(fmt.Sprintf("| Pass Rate | %.0f%% |\n", summary.PassRate*100))
	sb.WriteString(fmt.Sprintf("| Total Duration | %v |\n", summary.TotalDuration))

	return sb.String()
}
