package browserstack

import (
	"encoding/json"
	"fmt"

	"digital.vasic.harness/pkg/logging"
)

const executorPrefix = "browserstack_executor: "

// Evaluator runs a script in a page. playwright.Page satisfies it.
type Evaluator interface {
	Evaluate(expression string, arg ...any) (any, error)
}

// Page is an Evaluator that knows its current URL.
type Page interface {
	Evaluator
	URL() string
}

// Executor sends browserstack_executor actions through a page.
type Executor struct {
	logger logging.Logger
}

// NewExecutor creates an Executor.
func NewExecutor(logger logging.Logger) *Executor {
	if logger == nil {
		logger = logging.NullLogger{}
	}
	return &Executor{logger: logger}
}

type action struct {
	Action    string `json:"action"`
	Arguments any    `json:"arguments,omitempty"`
}

func (e *Executor) execute(page Evaluator, a action) error {
	payload, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("encode %s: %w", a.Action, err)
	}
	if _, err := page.Evaluate("_ => {}", executorPrefix+string(payload)); err != nil {
		return fmt.Errorf("%s: %w", a.Action, err)
	}
	return nil
}

// SetSessionStatus reports status to the remote session. Failures
// are logged and otherwise ignored.
func (e *Executor) SetSessionStatus(page Evaluator, status SessionStatus) {
	err := e.execute(page, action{Action: "setSessionStatus", Arguments: status})
	if err != nil {
		e.logger.Warn("failed to update session status", logging.ErrorField(err))
		return
	}
	e.logger.Info("session status updated",
		logging.StringField("status", status.Status),
		logging.StringField("reason", status.Reason))
}

// UpdateFromOutcome derives the session status of a finished test
// and reports it. Skipped tests send nothing.
func (e *Executor) UpdateFromOutcome(page Evaluator, outcome, errMsg string) {
	status, ok := StatusFor(outcome, errMsg)
	if !ok {
		e.logger.Info("test skipped, no session status sent")
		return
	}
	e.SetSessionStatus(page, status)
}

// RunAudit triggers a Lighthouse audit of url, or of the current
// page when url is empty.
func (e *Executor) RunAudit(page Page, url string) error {
	target := url
	if target == "" {
		target = page.URL()
	}
	e.logger.Info("starting lighthouse audit", logging.StringField("url", target))

	a := action{Action: "lighthouseAudit"}
	if url != "" {
		a.Arguments = map[string]string{"url": url}
	}
	if err := e.execute(page, a); err != nil {
		e.logger.Error("lighthouse audit failed", logging.ErrorField(err))
		return err
	}
	e.logger.Info("lighthouse audit completed")
	return nil
}

type metricAssertion struct {
	MoreThan   *float64 `json:"moreThan,omitempty"`
	LessThan   *float64 `json:"lessThan,omitempty"`
	MetricUnit string   `json:"metricUnit"`
}

func moreThan(v float64, unit string) metricAssertion {
	return metricAssertion{MoreThan: &v, MetricUnit: unit}
}

func lessThan(v float64, unit string) metricAssertion {
	return metricAssertion{LessThan: &v, MetricUnit: unit}
}

// AuditAssertions are the Lighthouse thresholds a page must meet.
func AuditAssertions() map[string]any {
	return map[string]any{
		"categories": map[string]int{
			"performance":    40,
			"best-practices": 50,
		},
		"metrics": map[string]metricAssertion{
			"first-contentful-paint":   moreThan(50, "score"),
			"largest-contentful-paint": lessThan(4000, "numeric"),
			"total-blocking-time":      lessThan(600, "numeric"),
			"cumulative-layout-shift":  moreThan(50, "score"),
		},
	}
}

// RunAuditWithAssertions audits url against AuditAssertions. The
// remote side fails the call when a threshold is missed.
func (e *Executor) RunAuditWithAssertions(page Evaluator, url string) error {
	e.logger.Info("starting lighthouse audit with assertions",
		logging.StringField("url", url))
	a := action{
		Action: "lighthouseAudit",
		Arguments: map[string]any{
			"url":          url,
			"assertResult": AuditAssertions(),
		},
	}
	if err := e.execute(page, a); err != nil {
		e.logger.Error("lighthouse audit with assertions failed", logging.ErrorField(err))
		return err
	}
	e.logger.Info("lighthouse audit with assertions completed")
	return nil
}
