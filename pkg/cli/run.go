package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"digital.vasic.harness/pkg/azure"
	"digital.vasic.harness/pkg/browser"
	"digital.vasic.harness/pkg/browserstack"
	"digital.vasic.harness/pkg/logging"
	"digital.vasic.harness/pkg/metrics"
	"digital.vasic.harness/pkg/monitor"
	"digital.vasic.harness/pkg/percy"
	"digital.vasic.harness/pkg/report"
	"digital.vasic.harness/pkg/runner"
	"digital.vasic.harness/pkg/suites/login"
)

// ciRetries is the retry count applied when CI is set and --retries
// was not given.
const ciRetries = 2

var runCommand = &cli.Command{
	Name:  "run",
	Usage: "Run the browser tests and report them",
	Description: `Runs every registered test. Each outcome is reported to the Azure
DevOps test plan, to the remote session when running on the device
farm, to the metrics registry and to the report directory.

Examples:
  harness run
  harness run --remote --device pixel
  harness run --workers 2 --retries 1 --report-dir out/report`,
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:    "remote",
			Usage:   "Run on the device farm instead of a local browser",
			EnvVars: []string{"RUN_REMOTE"},
		},
		&cli.StringFlag{
			Name:    "device",
			Usage:   "Device profile of remote sessions",
			Value:   "desktop",
			EnvVars: []string{"DEVICE"},
		},
		&cli.BoolFlag{
			Name:    "headless",
			Usage:   "Run the local browser headless",
			Value:   true,
			EnvVars: []string{"HEADLESS"},
		},
		&cli.IntFlag{
			Name:    "workers",
			Usage:   "Number of tests run concurrently",
			Value:   1,
			EnvVars: []string{"HARNESS_WORKERS"},
		},
		&cli.IntFlag{
			Name:    "retries",
			Usage:   "Retries of a failed test (default 2 under CI, else 0)",
			Value:   -1,
			EnvVars: []string{"HARNESS_RETRIES"},
		},
		&cli.DurationFlag{
			Name:  "timeout",
			Usage: "Default per-test timeout",
			Value: runner.DefaultTimeout,
		},
		&cli.DurationFlag{
			Name:  "stale-threshold",
			Usage: "Fail a test that reports no step for this long (0 disables)",
		},
		&cli.StringFlag{
			Name:  "metrics-addr",
			Usage: "Metrics endpoint address (empty disables)",
			Value: metrics.DefaultAddr,
		},
		&cli.StringFlag{
			Name:  "monitor-addr",
			Usage: "Live monitor address (empty disables)",
		},
		&cli.StringFlag{
			Name:  "report-dir",
			Usage: "Directory of per-test results and the run summary",
			Value: report.DefaultDir,
		},
	},
	Action: runTests,
}

func runTests(c *cli.Context) error {
	h, err := setup(c)
	if err != nil {
		return err
	}
	defer h.Close()

	ctx, stop := interruptible(c.Context)
	defer stop()

	prom := metrics.NewPrometheusMetrics()
	if addr := c.String("metrics-addr"); addr != "" {
		server := metrics.NewServer(addr, prom, h.logger)
		if err := server.Start(ctx); err != nil {
			h.logger.Warn("metrics endpoint unavailable", logging.ErrorField(err))
		}
	}

	runID := logging.SessionID()
	collector := monitor.NewEventCollector()
	if addr := c.String("monitor-addr"); addr != "" {
		ws := monitor.NewWebSocketServer(addr, collector, monitor.NewDashboardData(runID), h.logger)
		if err := ws.Start(ctx); err != nil {
			h.logger.Warn("live monitor unavailable", logging.ErrorField(err))
		}
	}

	azureCfg := azure.ConfigFromEnv(h.env)
	if azureCfg.Enabled {
		if err := azureCfg.Validate(); err != nil {
			return err
		}
	}
	reporter := h.reporter(azureCfg)

	launcher := browser.NewLauncher(browser.Options{
		Remote:   c.Bool("remote"),
		Device:   c.String("device"),
		Headless: c.Bool("headless"),
	}, browserstack.NewEndpointBuilder(h.resolver, h.env, h.logger), h.logger)
	defer func() {
		if err := launcher.Stop(); err != nil {
			h.logger.Warn("failed to stop playwright", logging.ErrorField(err))
		}
	}()

	executor := browserstack.NewExecutor(h.logger)
	suite := &login.Suite{
		Auditor:   executor,
		Snapshots: percy.ServiceFromEnv(h.env, h.logger),
	}

	writer := report.NewWriter(c.String("report-dir"), h.logger)
	hooks := &runner.Hooks{
		Logger:      h.logger,
		Reporter:    reporter,
		Browser:     launcher,
		Status:      executor,
		Metrics:     prom,
		Resolver:    h.resolver,
		Environment: h.envName,
		LogFile:     h.logFile,
	}
	r := runner.NewRunner(hooks,
		runner.WithLogger(h.logger),
		runner.WithTimeout(c.Duration("timeout")),
		runner.WithStaleThreshold(c.Duration("stale-threshold")),
		runner.WithRetries(retries(c.Int("retries"), h.env.GetBool("CI"))),
		runner.WithListener(writer),
		runner.WithListener(collector),
	)

	start := time.Now()
	tests := suite.Tests()
	var results []*runner.Result
	if workers := c.Int("workers"); workers > 1 {
		results, err = r.RunParallel(ctx, tests, workers)
	} else {
		results, err = r.Run(ctx, tests)
	}

	summary, sumErr := writer.Finish(results)
	if sumErr != nil {
		h.logger.Warn("run summary not written", logging.ErrorField(sumErr))
	}
	printSummary(c, summary, time.Since(start))

	if err != nil {
		return fmt.Errorf("run interrupted: %w", err)
	}
	if failed := summary.Failed + summary.TimedOut + summary.Interrupted; failed > 0 {
		return fmt.Errorf("%d of %d tests did not pass", failed, summary.TotalTests)
	}
	return nil
}

// retries resolves the effective retry count: an explicit value wins,
// otherwise CI runs retry twice.
func retries(flag int, ci bool) int {
	if flag >= 0 {
		return flag
	}
	if ci {
		return ciRetries
	}
	return 0
}

func printSummary(c *cli.Context, s *report.RunSummary, elapsed time.Duration) {
	w := c.App.Writer
	for _, t := range s.Tests {
		fmt.Fprintf(w, "  %-11s %s (%s)\n", t.Status, t.Title, t.Duration.Round(time.Millisecond))
		if t.Error != "" {
			fmt.Fprintf(w, "              %s\n", t.Error)
		}
	}
	fmt.Fprintf(w, "\n%d tests: %d passed, %d failed, %d skipped, %d timed out, %d interrupted in %s\n",
		s.TotalTests, s.Passed, s.Failed, s.Skipped, s.TimedOut, s.Interrupted,
		elapsed.Round(time.Millisecond))
}

// interruptible returns a context cancelled on SIGINT or SIGTERM.
func interruptible(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
