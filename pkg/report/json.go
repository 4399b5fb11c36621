package report

import (
	"encoding/json"
	"io"
	"time"

	"digital.vasic.harness/pkg/azure"
	"digital.vasic.harness/pkg/runner"
)

// JSONReporter generates JSON reports from test results.
type JSONReporter struct {
	pretty bool
}

// NewJSONReporter creates a new JSON reporter. When pretty is
// true, output is indented for readability.
func NewJSONReporter(pretty bool) *JSONReporter {
	return &JSONReporter{pretty: pretty}
}

func (r *JSONReporter) marshal(v any) ([]byte, error) {
	if r.pretty {
		return json.MarshalIndent(v, "", "  ")
	}
	return json.Marshal(v)
}

// GenerateReport creates a JSON report for a single test result.
func (r *JSONReporter) GenerateReport(result *runner.Result) ([]byte, error) {
	return r.marshal(result)
}

// jsonRunSummary is the JSON structure of a run summary.
type jsonRunSummary struct {
	GeneratedAt   time.Time        `json:"generated_at"`
	TotalTests    int              `json:"total_tests"`
	Passed        int              `json:"passed"`
	Failed        int              `json:"failed"`
	TotalDuration time.Duration    `json:"total_duration"`
	Results       []*runner.Result `json:"results"`
}

// GenerateSummary creates a JSON summary of all test results.
// Anything but passed and skipped counts as failed.
func (r *JSONReporter) GenerateSummary(results []*runner.Result) ([]byte, error) {
	summary := jsonRunSummary{
		GeneratedAt: time.Now(),
		TotalTests:  len(results),
		Results:     results,
	}

	for _, res := range results {
		switch res.Status {
		case azure.OutcomePassed:
			summary.Passed++
		case azure.OutcomeSkipped:
		default:
			summary.Failed++
		}
		summary.TotalDuration += res.Duration
	}

	return r.marshal(summary)
}

// WriteReport writes a JSON report to the specified writer.
func (r *JSONReporter) WriteReport(w io.Writer, result *runner.Result) error {
	data, err := r.GenerateReport(result)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}
