package report

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"digital.vasic.harness/pkg/logging"
	"digital.vasic.harness/pkg/runner"
)

// Writer persists every finished attempt as it happens and the run
// summary at the end. It is a runner.Listener.
type Writer struct {
	dir      string
	reporter *JSONReporter
	logger   logging.Logger

	mu      sync.Mutex
	results []*runner.Result
}

// NewWriter creates a Writer rooted at dir.
func NewWriter(dir string, logger logging.Logger) *Writer {
	if dir == "" {
		dir = DefaultDir
	}
	if logger == nil {
		logger = logging.NullLogger{}
	}
	return &Writer{dir: dir, reporter: NewJSONReporter(true), logger: logger}
}

// Dir returns the output directory.
func (w *Writer) Dir() string { return w.dir }

// TestStarted is a no-op.
func (w *Writer) TestStarted(string, string) {}

// TestFinished writes results/<execution id>.json and appends the
// history log. Failures are logged only.
func (w *Writer) TestFinished(res runner.Result) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.results = append(w.results, &res)

	if err := w.writeResult(&res); err != nil {
		w.logger.Warn("test result not written",
			logging.StringField("test", res.Title), logging.ErrorField(err))
	}
}

func (w *Writer) writeResult(res *runner.Result) error {
	dir := filepath.Join(w.dir, "results")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create results directory: %w", err)
	}
	name := res.ExecutionID
	if name == "" {
		name = fmt.Sprintf("result_%d", len(w.results))
	}
	f, err := os.Create(filepath.Join(dir, name+".json"))
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()
	if err := w.reporter.WriteReport(f, res); err != nil {
		return err
	}
	return AppendToHistory(filepath.Join(w.dir, HistoryFile), res)
}

// Results returns every attempt seen so far.
func (w *Writer) Results() []*runner.Result {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]*runner.Result(nil), w.results...)
}

// Finish saves the summary of the final results.
func (w *Writer) Finish(final []*runner.Result) (*RunSummary, error) {
	summary := BuildSummary(final)
	if err := SaveSummary(summary, w.dir); err != nil {
		return summary, err
	}
	w.logger.Info("run summary written",
		logging.StringField("dir", w.dir),
		logging.IntField("total", summary.TotalTests),
		logging.IntField("passed", summary.Passed))
	return summary, nil
}
