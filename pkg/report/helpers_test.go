package report

import (
	"time"

	"digital.vasic.harness/pkg/azure"
	"digital.vasic.harness/pkg/runner"
)

func makeTestResult() *runner.Result {
	start := time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)
	return &runner.Result{
		Title:       "@PLAN_ID=92119 @SUITE_ID=98664 @[61931] Validate successful login",
		Group:       "login",
		Status:      azure.OutcomePassed,
		ExecutionID: "exec-1",
		StartTime:   start,
		EndTime:     start.Add(2 * time.Second),
		Duration:    2 * time.Second,
		Report: &azure.FinishReport{
			Outcome:  azure.OutcomePassed,
			RunID:    101,
			RunURL:   "https://dev.azure.com/org/proj/_TestManagement/Runs?runId=101",
			ResultID: 100000,
		},
	}
}

func makeTestResults() []*runner.Result {
	failed := makeTestResult()
	failed.Title = "broken"
	failed.ExecutionID = "exec-2"
	failed.Status = azure.OutcomeFailed
	failed.Error = "Request timed out after 30000ms"
	failed.Retry = 2
	failed.Report = nil
	return []*runner.Result{makeTestResult(), failed}
}
