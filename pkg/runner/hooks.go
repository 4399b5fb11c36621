package runner

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"digital.vasic.harness/pkg/azure"
	"digital.vasic.harness/pkg/browser"
	"digital.vasic.harness/pkg/browserstack"
	"digital.vasic.harness/pkg/config"
	"digital.vasic.harness/pkg/logging"
	"digital.vasic.harness/pkg/metrics"
)

// DefaultArtifactDirs are removed by the before-all hook.
var DefaultArtifactDirs = []string{
	"allure-results",
	"playwright-report",
	"test-results",
}

// Reporter drives the remote test-case lifecycle. *azure.Service
// implements it.
type Reporter interface {
	NewExecution(title string, meta azure.TestMetadata) *azure.Execution
	Activate(ctx context.Context, exec *azure.Execution) error
	Finish(ctx context.Context, exec *azure.Execution, outcome azure.Outcome, errMsg string) azure.FinishReport
}

// Browser hands out one browser session per test. *browser.Launcher
// implements it.
type Browser interface {
	Start(ctx context.Context, title string) (*browser.Session, error)
}

// SessionStatus reports the outcome to the device farm.
// *browserstack.Executor implements it.
type SessionStatus interface {
	UpdateFromOutcome(page browserstack.Evaluator, outcome, errMsg string)
}

// Truncater empties the centralized log file.
type Truncater interface {
	Truncate() error
}

// Hooks holds the collaborators of the lifecycle hooks. Every field
// is optional; a nil collaborator skips its step.
type Hooks struct {
	Logger       logging.Logger
	Reporter     Reporter
	Browser      Browser
	Status       SessionStatus
	Metrics      metrics.Recorder
	Resolver     *config.Resolver
	Environment  string
	LogFile      Truncater
	WorkDir      string
	ArtifactDirs []string
}

func (h *Hooks) logger() logging.Logger {
	if h.Logger == nil {
		return logging.NullLogger{}
	}
	return h.Logger
}

func (h *Hooks) metrics() metrics.Recorder {
	if h.Metrics == nil {
		return metrics.NoopMetrics{}
	}
	return h.Metrics
}

// BeforeAll removes the report output of previous runs, truncates
// the log file and labels the metrics with the environment.
func (h *Hooks) BeforeAll() {
	logger := h.logger()
	dirs := h.ArtifactDirs
	if dirs == nil {
		dirs = DefaultArtifactDirs
	}

	var deleted, failed []string
	for _, dir := range dirs {
		path := filepath.Join(h.WorkDir, dir)
		if err := os.RemoveAll(path); err != nil {
			failed = append(failed, fmt.Sprintf("%s (%v)", dir, err))
			continue
		}
		deleted = append(deleted, dir)
	}
	if len(deleted) > 0 {
		logger.Info("deleted directories",
			logging.StringField("dirs", strings.Join(deleted, ", ")))
	}
	if len(failed) > 0 {
		logger.Warn("failed to delete directories",
			logging.StringField("dirs", strings.Join(failed, ", ")))
	}

	if h.LogFile != nil {
		if err := h.LogFile.Truncate(); err != nil {
			logger.Warn("log file truncate failed", logging.ErrorField(err))
		}
	}
	if h.Environment != "" {
		h.metrics().SetEnvironment(h.Environment)
	}
}

// BeforeEach prepares one attempt of test: a fresh execution id,
// the test metadata, a browser session on the base URL and the
// activated remote test case. Metadata and reporting failures are
// logged and only disable remote reporting for the test. A returned
// error means the test cannot run; the returned T is still valid
// for AfterEach.
func (h *Hooks) BeforeEach(ctx context.Context, test Test, retry int) (*T, error) {
	id := logging.NewExecutionID()
	logger := h.logger().WithFields(
		logging.StringField(logging.KeyExecutionID, id),
		logging.StringField("test", test.Title),
	)
	t := &T{
		Title:       test.Title,
		ExecutionID: id,
		Retry:       retry,
		Logger:      logger,
		Resolver:    h.Resolver,
		ctx:         ctx,
	}
	logger.Info("test started", logging.IntField("retry", retry))

	if h.Reporter != nil {
		meta, err := azure.Extract(test.Title)
		if err != nil {
			logger.Warn("test metadata unavailable, remote reporting skipped",
				logging.ErrorField(err))
		} else {
			t.Execution = h.Reporter.NewExecution(test.Title, meta)
		}
	}

	if h.Browser != nil {
		sess, err := h.Browser.Start(ctx, test.Title)
		if err != nil {
			return t, fmt.Errorf("start browser session: %w", err)
		}
		t.Session = sess
		if err := h.navigate(t); err != nil {
			return t, err
		}
	}

	if t.Execution != nil {
		// Activate logs its own failures.
		_ = h.Reporter.Activate(ctx, t.Execution)
	}
	return t, nil
}

func (h *Hooks) navigate(t *T) error {
	page := t.Page()
	if page == nil || h.Resolver == nil {
		return nil
	}
	env := h.Environment
	if env == "" {
		env = "qa"
	}
	url, err := h.Resolver.URL(env)
	if err != nil {
		return fmt.Errorf("resolve base url: %w", err)
	}
	if _, err := page.Goto(url); err != nil {
		return fmt.Errorf("navigate to %s: %w", url, err)
	}
	return nil
}

// AfterEach reports res remotely, updates the device-farm session
// and the metrics, then closes the browser session. It never fails
// the test; ctx may already be done.
func (h *Hooks) AfterEach(ctx context.Context, t *T, group string, res *Result) {
	logger := t.Logger
	reportCtx := context.WithoutCancel(ctx)

	if t.Execution != nil {
		report := h.Reporter.Finish(reportCtx, t.Execution, res.Status, res.Error)
		res.Report = &report
	}

	if h.Status != nil && t.Session != nil && t.Session.Remote && t.Session.Page != nil {
		h.Status.UpdateFromOutcome(t.Session.Page, string(res.Status), res.Error)
	}

	h.metrics().ObserveTest(metrics.Observation{
		Test:         res.Title,
		Group:        group,
		Status:       string(res.Status),
		Duration:     res.Duration,
		Retries:      res.Retry,
		ErrorMessage: res.Error,
	})

	if t.Session != nil {
		if err := t.Session.Close(); err != nil {
			logger.Warn("browser session close failed", logging.ErrorField(err))
		}
	}
	logger.Info("test ended",
		logging.StringField("status", string(res.Status)),
		logging.DurationField("duration", res.Duration))
}
