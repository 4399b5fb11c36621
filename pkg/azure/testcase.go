package azure

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"digital.vasic.harness/pkg/httpclient"
	"digital.vasic.harness/pkg/logging"
)

const (
	testPointAPIVersion = "5.1-Preview"
	workItemAPIVersion  = "7.1-preview.3"
	runAPIVersion       = "5.1"

	automationStatusField = "/fields/Microsoft.VSTS.TCM.AutomationStatus"
)

// LookupError is returned when no test point matches the metadata.
type LookupError struct {
	Metadata TestMetadata
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("no test point found for %s", e.Metadata)
}

// Execution carries the per-test reporting state through the hooks:
// the metadata, the cached test point id and the evidence buffer.
type Execution struct {
	Title     string
	Metadata  TestMetadata
	Buffer    *Buffer
	StartedAt time.Time

	mu      sync.Mutex
	pointID int
	cached  bool
}

// PointID returns the cached test point id, if resolved.
func (e *Execution) PointID() (int, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pointID, e.cached
}

func (e *Execution) setPointID(id int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pointID = id
	e.cached = true
}

// FinishReport summarises one Finish call. Abort names the step that
// stopped the pipeline, empty when it ran to the end.
type FinishReport struct {
	Outcome   Outcome
	PointID   int
	RunID     int
	RunURL    string
	ResultID  int
	Collected CollectStats
	Published PublishStats
	Abort     string
	Disabled  bool
	Calls     []CallResult
}

// Completed reports whether every mandatory step ran.
func (r FinishReport) Completed() bool {
	return !r.Disabled && r.Abort == ""
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithLogger sets the service logger.
func WithLogger(l logging.Logger) ServiceOption {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithCollector replaces the default evidence collector.
func WithCollector(c *Collector) ServiceOption {
	return func(s *Service) {
		if c != nil {
			s.collector = c
		}
	}
}

// WithClientOptions passes options through to the REST client.
func WithClientOptions(opts ...httpclient.ClientOption) ServiceOption {
	return func(s *Service) { s.clientOpts = append(s.clientOpts, opts...) }
}

// Service drives the test case lifecycle against Azure DevOps.
// Every remote failure is logged and contained; nothing it does
// changes the outcome of the test being reported.
type Service struct {
	cfg        Config
	logger     logging.Logger
	client     *httpclient.APIClient
	clientOpts []httpclient.ClientOption
	collector  *Collector
	publisher  *Publisher
}

// NewService creates a Service for cfg.
func NewService(cfg Config, opts ...ServiceOption) *Service {
	s := &Service{
		cfg:    cfg,
		logger: logging.NullLogger{},
	}
	for _, o := range opts {
		o(s)
	}
	if s.collector == nil {
		s.collector = NewCollector(s.logger)
	}
	clientOpts := append([]httpclient.ClientOption{
		httpclient.WithBasicToken(cfg.Token),
		httpclient.WithLogger(s.logger),
		httpclient.WithTimeout(0),
	}, s.clientOpts...)
	s.client = httpclient.NewAPIClient(cfg.BaseURL(), clientOpts...)
	s.publisher = NewPublisher(s.client, s.logger)
	return s
}

// Enabled reports whether remote reporting is on.
func (s *Service) Enabled() bool { return s.cfg.Enabled }

// NewExecution starts the reporting state of one test. The buffer
// is fresh unless the service runs in shared-buffer mode.
func (s *Service) NewExecution(title string, meta TestMetadata) *Execution {
	buf := NewBuffer()
	if s.cfg.SharedBuffer {
		buf = SharedBuffer()
	}
	return &Execution{
		Title:     title,
		Metadata:  meta,
		Buffer:    buf,
		StartedAt: now(),
	}
}

func (s *Service) testPointPath(meta TestMetadata) string {
	return fmt.Sprintf(
		"_apis/testplan/Plans/%s/Suites/%s/TestPoint?api-version=%s",
		meta.PlanID, meta.SuiteID, testPointAPIVersion,
	)
}

func (s *Service) execLogger(exec *Execution) logging.Logger {
	return s.logger.WithFields(
		logging.StringField("plan_id", exec.Metadata.PlanID),
		logging.StringField("suite_id", exec.Metadata.SuiteID),
		logging.StringField("test_case_id", exec.Metadata.TestCaseID),
	)
}

type testPointList struct {
	Value []struct {
		ID int `json:"id"`
	} `json:"value"`
}

// ResolvePoint returns the test point id of exec, looking it up only
// on the first call for a given execution.
func (s *Service) ResolvePoint(ctx context.Context, exec *Execution) (int, error) {
	if id, ok := exec.PointID(); ok {
		return id, nil
	}
	path := s.testPointPath(exec.Metadata) + "&testCaseId=" + exec.Metadata.TestCaseID
	var list testPointList
	if _, err := s.client.GetJSON(ctx, path, &list); err != nil {
		return 0, fmt.Errorf("resolve test point: %w", err)
	}
	if len(list.Value) == 0 {
		return 0, &LookupError{Metadata: exec.Metadata}
	}
	exec.setPointID(list.Value[0].ID)
	return list.Value[0].ID, nil
}

// Activate marks the test point active and flags the work item as
// automated. A lookup or activation failure is logged and returned
// so the caller can degrade; the work item update is best effort.
func (s *Service) Activate(ctx context.Context, exec *Execution) error {
	logger := s.execLogger(exec)
	if !s.cfg.Enabled {
		logger.Debug("azure reporting disabled, activation skipped")
		return nil
	}

	pointID, err := s.ResolvePoint(ctx, exec)
	if err != nil {
		logger.Error("test point lookup failed", logging.ErrorField(err))
		return err
	}

	body := []map[string]any{{"id": pointID, "isActive": true}}
	res := Call(logger, "activate test point", func() (int, error) {
		return s.client.SendJSON(ctx, http.MethodPatch,
			s.testPointPath(exec.Metadata), httpclient.ContentTypeJSON, body, nil)
	})
	if !res.OK() {
		return res.Err
	}

	s.markAutomated(ctx, logger, exec.Metadata.TestCaseID)
	logger.Info("test case activated", logging.IntField("test_point_id", pointID))
	return nil
}

func (s *Service) markAutomated(ctx context.Context, logger logging.Logger, caseID string) CallResult {
	path := fmt.Sprintf("_apis/wit/workitems/%s?api-version=%s", caseID, workItemAPIVersion)
	patch := []map[string]string{{
		"op":    "add",
		"path":  automationStatusField,
		"value": "Automated",
	}}
	return Call(logger, "update automation status", func() (int, error) {
		return s.client.SendJSON(ctx, http.MethodPatch, path,
			httpclient.ContentTypeJSONPatch, patch, nil)
	})
}

type runResponse struct {
	ID           int    `json:"id"`
	WebAccessURL string `json:"webAccessUrl"`
}

type resultList struct {
	Value []struct {
		ID int `json:"id"`
	} `json:"value"`
}

// Finish reports the outcome of exec: it updates the test point,
// creates a run and a result, collects evidence and uploads it. A
// failed lookup, run or result creation stops the remaining steps.
// Nothing is returned as an error.
func (s *Service) Finish(
	ctx context.Context, exec *Execution, outcome Outcome, errMsg string,
) FinishReport {
	report := FinishReport{Outcome: outcome}
	logger := s.execLogger(exec).WithFields(
		logging.StringField("outcome", string(outcome)))

	if !s.cfg.SharedBuffer {
		defer exec.Buffer.Reset()
	}
	if !s.cfg.Enabled {
		logger.Debug("azure reporting disabled, finish skipped")
		report.Disabled = true
		return report
	}

	track := func(res CallResult) CallResult {
		report.Calls = append(report.Calls, res)
		return res
	}

	pointID, err := s.ResolvePoint(ctx, exec)
	if err != nil {
		logger.Error("test point lookup failed", logging.ErrorField(err))
		report.Abort = "resolve test point"
		return report
	}
	report.PointID = pointID

	outcomeBody := []map[string]any{{
		"id":      pointID,
		"results": map[string]int{"outcome": RemoteCode(string(outcome))},
	}}
	track(Call(logger, "update test point outcome", func() (int, error) {
		return s.client.SendJSON(ctx, http.MethodPatch,
			s.testPointPath(exec.Metadata), httpclient.ContentTypeJSON, outcomeBody, nil)
	}))

	planID, _ := strconv.Atoi(exec.Metadata.PlanID)
	runBody := map[string]any{
		"name":      exec.Title,
		"plan":      map[string]any{"id": planID},
		"pointIds":  []int{pointID},
		"automated": true,
		"state":     "InProgress",
	}
	var run runResponse
	res := track(Call(logger, "create test run", func() (int, error) {
		status, err := s.client.SendJSON(ctx, http.MethodPost,
			"_apis/test/runs?api-version="+runAPIVersion,
			httpclient.ContentTypeJSON, runBody, &run)
		if err == nil && run.ID == 0 {
			err = errors.New("run id missing from response")
		}
		return status, err
	}))
	if !res.OK() {
		report.Abort = res.Op
		return report
	}
	report.RunID = run.ID
	report.RunURL = run.WebAccessURL

	resultBody := []map[string]any{{
		"testCase":         map[string]string{"id": exec.Metadata.TestCaseID},
		"testPoint":        map[string]string{"id": strconv.Itoa(pointID)},
		"testCaseRevision": 1,
		"testCaseTitle":    fmt.Sprintf("%s [%s]", exec.Title, outcome),
		"outcome":          ResultOutcome(string(outcome)),
		"state":            "Completed",
		"errorMessage":     errMsg,
		"durationInMs":     now().Sub(exec.StartedAt).Milliseconds(),
	}}
	var results resultList
	res = track(Call(logger, "create test result", func() (int, error) {
		status, err := s.client.SendJSON(ctx, http.MethodPost,
			fmt.Sprintf("_apis/test/Runs/%d/results?api-version=%s", run.ID, runAPIVersion),
			httpclient.ContentTypeJSON, resultBody, &results)
		if err == nil && len(results.Value) == 0 {
			err = errors.New("empty result list")
		}
		return status, err
	}))
	if !res.OK() {
		report.Abort = res.Op
		return report
	}
	report.ResultID = results.Value[0].ID

	if outcome != OutcomePassed && errMsg != "" {
		exec.Buffer.Add(NewAttachment("txt", []byte(errMsg), "Exception"))
	}
	report.Collected = s.collector.Collect(exec.Buffer)
	report.Published = s.publisher.Publish(ctx, report.RunID, report.ResultID, exec.Buffer)

	track(Call(logger, "complete test run", func() (int, error) {
		return s.client.SendJSON(ctx, http.MethodPatch,
			fmt.Sprintf("_apis/test/runs/%d?api-version=%s", run.ID, runAPIVersion),
			httpclient.ContentTypeJSON, map[string]string{"state": "Completed"}, nil)
	}))

	logger.Info("test case finished",
		logging.IntField("run_id", report.RunID),
		logging.IntField("result_id", report.ResultID),
		logging.IntField("uploaded", report.Published.Uploaded))
	return report
}

// MarkAutomated flags the work item of caseID as automated. It is
// exposed for the command line.
func (s *Service) MarkAutomated(ctx context.Context, caseID string) error {
	return s.markAutomated(ctx, s.logger, caseID).Err
}
