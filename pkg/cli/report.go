package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v2"

	"digital.vasic.harness/pkg/azure"
	"digital.vasic.harness/pkg/logging"
)

var reportCommand = &cli.Command{
	Name:  "report",
	Usage: "Report a single test to the Azure DevOps test plan",
	Description: `Drives the reporting lifecycle of one annotated test without running
it, for tests executed by another tool.

Examples:
  harness report activate "@PLAN_ID=1 @SUITE_ID=2 @[3] Login"
  harness report finish --outcome failed --error "timed out" \
      --attach trace.zip "@PLAN_ID=1 @SUITE_ID=2 @[3] Login"`,
	Subcommands: []*cli.Command{
		{
			Name:      "activate",
			Usage:     "Mark the test point active",
			ArgsUsage: "<title>",
			Action:    reportActivate,
		},
		{
			Name:      "finish",
			Usage:     "Record the outcome, create the run and upload evidence",
			ArgsUsage: "<title>",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:  "outcome",
					Usage: "passed, failed, skipped, timedOut or interrupted",
					Value: string(azure.OutcomePassed),
				},
				&cli.StringFlag{
					Name:  "error",
					Usage: "Error message of the test",
				},
				&cli.StringSliceFlag{
					Name:  "attach",
					Usage: "Extra file attached to the result (repeatable)",
				},
			},
			Action: reportFinish,
		},
	},
}

func titleArg(c *cli.Context) (string, error) {
	title := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if title == "" {
		return "", fmt.Errorf("a test title is required")
	}
	return title, nil
}

// execution builds the reporting state of the titled test.
func execution(c *cli.Context) (*harness, *azure.Service, *azure.Execution, error) {
	title, err := titleArg(c)
	if err != nil {
		return nil, nil, nil, err
	}
	meta, err := azure.Extract(title)
	if err != nil {
		return nil, nil, nil, err
	}
	h, err := setup(c)
	if err != nil {
		return nil, nil, nil, err
	}
	h.logger = h.logger.WithFields(
		logging.StringField(logging.KeyExecutionID, logging.NewExecutionID()))

	cfg := azure.ConfigFromEnv(h.env)
	if cfg.Enabled {
		if err := cfg.Validate(); err != nil {
			h.Close()
			return nil, nil, nil, err
		}
	}
	svc := h.reporter(cfg)
	return h, svc, svc.NewExecution(title, meta), nil
}

func reportActivate(c *cli.Context) error {
	h, svc, exec, err := execution(c)
	if err != nil {
		return err
	}
	defer h.Close()

	if !svc.Enabled() {
		fmt.Fprintln(c.App.Writer, "azure reporting disabled, nothing activated")
		return nil
	}
	if err := svc.Activate(c.Context, exec); err != nil {
		return err
	}
	id, _ := exec.PointID()
	fmt.Fprintf(c.App.Writer, "activated test point %d for %s\n", id, exec.Metadata)
	return nil
}

func reportFinish(c *cli.Context) error {
	h, svc, exec, err := execution(c)
	if err != nil {
		return err
	}
	defer h.Close()

	for _, path := range c.StringSlice("attach") {
		content, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read attachment: %w", err)
		}
		exec.Buffer.Add(azure.NewFileAttachment(filepath.Base(path), content, "Attached from command line"))
	}

	outcome := azure.ParseOutcome(c.String("outcome"))
	rep := svc.Finish(c.Context, exec, outcome, c.String("error"))

	out := json.NewEncoder(c.App.Writer)
	out.SetIndent("", "  ")
	if err := out.Encode(finishOutput(rep)); err != nil {
		return err
	}
	if rep.Abort != "" {
		return fmt.Errorf("reporting stopped at %s", rep.Abort)
	}
	return nil
}

type callOutput struct {
	Op         string `json:"op"`
	StatusCode int    `json:"status_code,omitempty"`
	Error      string `json:"error,omitempty"`
}

type finishJSON struct {
	Outcome    string       `json:"outcome"`
	RemoteCode int          `json:"remote_code"`
	Disabled   bool         `json:"disabled,omitempty"`
	PointID    int          `json:"point_id,omitempty"`
	RunID      int          `json:"run_id,omitempty"`
	RunURL     string       `json:"run_url,omitempty"`
	ResultID   int          `json:"result_id,omitempty"`
	Uploaded   int          `json:"uploaded"`
	Failed     int          `json:"upload_failed"`
	Abort      string       `json:"abort,omitempty"`
	Calls      []callOutput `json:"calls,omitempty"`
}

func finishOutput(r azure.FinishReport) finishJSON {
	out := finishJSON{
		Outcome:    string(r.Outcome),
		RemoteCode: azure.RemoteCode(string(r.Outcome)),
		Disabled:   r.Disabled,
		PointID:    r.PointID,
		RunID:      r.RunID,
		RunURL:     r.RunURL,
		ResultID:   r.ResultID,
		Uploaded:   r.Published.Uploaded,
		Failed:     r.Published.Failed,
		Abort:      r.Abort,
	}
	for _, call := range r.Calls {
		co := callOutput{Op: call.Op, StatusCode: call.StatusCode}
		if call.Err != nil {
			co.Error = call.Err.Error()
		}
		out.Calls = append(out.Calls, co)
	}
	return out
}
