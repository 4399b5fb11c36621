// Package report writes test results and run summaries to disk.
package report

import (
	"io"

	"digital.vasic.harness/pkg/runner"
)

// DefaultDir is where the report files are written. It lives under
// the directory the before-all hook cleans.
const DefaultDir = "test-results/report"

// Reporter defines the interface for generating test reports.
type Reporter interface {
	// GenerateReport creates a report for a single test result.
	GenerateReport(result *runner.Result) ([]byte, error)

	// GenerateSummary creates a summary of all test results.
	GenerateSummary(results []*runner.Result) ([]byte, error)

	// WriteReport writes a report to the specified writer.
	WriteReport(w io.Writer, result *runner.Result) error
}
