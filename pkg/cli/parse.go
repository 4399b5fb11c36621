package cli

import (
	"encoding/json"

	"github.com/urfave/cli/v2"

	"digital.vasic.harness/pkg/azure"
	"digital.vasic.harness/pkg/browserstack"
)

var parseCommand = &cli.Command{
	Name:      "parse",
	Usage:     "Show the metadata of a test title and how an outcome is reported",
	ArgsUsage: "<title>",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "outcome",
			Usage: "Outcome to map (passed, failed, skipped, timedOut, interrupted)",
		},
		&cli.StringFlag{
			Name:  "error",
			Usage: "Error message used to derive the session reason",
		},
	},
	Action: parseTitle,
}

type parseOutput struct {
	PlanID     string `json:"plan_id"`
	SuiteID    string `json:"suite_id"`
	TestCaseID string `json:"test_case_id"`

	Outcome       string `json:"outcome,omitempty"`
	RemoteCode    *int   `json:"remote_code,omitempty"`
	ResultOutcome string `json:"result_outcome,omitempty"`
	SessionStatus string `json:"session_status,omitempty"`
	SessionReason string `json:"session_reason,omitempty"`
}

func parseTitle(c *cli.Context) error {
	title, err := titleArg(c)
	if err != nil {
		return err
	}
	meta, err := azure.Extract(title)
	if err != nil {
		return err
	}

	out := parseOutput{
		PlanID:     meta.PlanID,
		SuiteID:    meta.SuiteID,
		TestCaseID: meta.TestCaseID,
	}
	if raw := c.String("outcome"); raw != "" {
		out.Outcome = raw
		code := azure.RemoteCode(raw)
		out.RemoteCode = &code
		out.ResultOutcome = azure.ResultOutcome(raw)
		if status, ok := browserstack.StatusFor(raw, c.String("error")); ok {
			out.SessionStatus = status.Status
			out.SessionReason = status.Reason
		}
	}

	enc := json.NewEncoder(c.App.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
