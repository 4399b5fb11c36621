// Package cli provides the command-line interface of the harness.
package cli

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"digital.vasic.harness/pkg/azure"
	"digital.vasic.harness/pkg/config"
	"digital.vasic.harness/pkg/env"
	"digital.vasic.harness/pkg/logging"
)

// Version is set at build time.
var Version = "dev"

// GlobalFlags are available to all commands.
var GlobalFlags = []cli.Flag{
	&cli.StringFlag{
		Name:  "env-file",
		Usage: "Optional .env file merged under the process environment",
		Value: ".env",
	},
	&cli.StringFlag{
		Name:    "resources",
		Aliases: []string{"r"},
		Usage:   "Resources directory holding config/ and data/",
		Value:   "resources",
		EnvVars: []string{"HARNESS_RESOURCES"},
	},
	&cli.StringFlag{
		Name:    "env",
		Aliases: []string{"e"},
		Usage:   "Target environment of the base URL (qa, staging, ...)",
		Value:   "qa",
		EnvVars: []string{"ENV"},
	},
	&cli.StringFlag{
		Name:    "run-env",
		Usage:   "Data set used for credentials (defaults to --env)",
		EnvVars: []string{"RUN_ENV"},
	},
	&cli.StringFlag{
		Name:    "environment",
		Usage:   "Environment label attached to logs and metrics",
		EnvVars: []string{"ENVIRONMENT"},
	},
	&cli.StringFlag{
		Name:    "log-file",
		Usage:   "Centralized JSON log file",
		Value:   logging.DefaultLogFile,
		EnvVars: []string{"HARNESS_LOG_FILE"},
	},
	&cli.BoolFlag{
		Name:    "verbose",
		Usage:   "Enable debug logging on the console",
		EnvVars: []string{"HARNESS_VERBOSE"},
	},
}

// NewApp builds the harness application.
func NewApp() *cli.App {
	return &cli.App{
		Name:    "harness",
		Usage:   "Browser test harness reporting to Azure DevOps",
		Version: Version,
		Description: `Runs the annotated browser tests, reports every outcome to the
Azure DevOps test plan and uploads the run evidence.

Examples:
  harness run
  harness run --remote --device pixel --workers 2
  harness parse "@PLAN_ID=1 @SUITE_ID=2 @[3] Login"
  harness report finish --outcome failed --error "timed out" "<title>"`,
		Flags: GlobalFlags,
		Commands: []*cli.Command{
			runCommand,
			metricsCommand,
			reportCommand,
			parseCommand,
		},
	}
}

// Execute runs the CLI.
func Execute() {
	if err := NewApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// harness is what every command shares: the environment, the
// resolver and the logger.
type harness struct {
	env      *env.DefaultLoader
	resolver *config.Resolver
	logger   logging.Logger
	logFile  *logging.FileLogger
	logPath  string
	envName  string
	label    string
}

func setup(c *cli.Context) (*harness, error) {
	loader := env.NewLoader()
	if err := loader.LoadOptional(c.String("env-file")); err != nil {
		return nil, err
	}

	envName := c.String("env")
	runEnv := c.String("run-env")
	if runEnv == "" {
		runEnv = envName
	}
	label := c.String("environment")
	if label == "" {
		label = envName
	}

	logger, file, err := logging.Setup(logging.Options{
		Environment: label,
		LogFile:     c.String("log-file"),
		Verbose:     c.Bool("verbose"),
		Secrets: []string{
			loader.Get("AZURE_TOKEN"),
			loader.Get("BROWSERSTACK_ACCESS_KEY"),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("setup logging: %w", err)
	}

	return &harness{
		env:      loader,
		resolver: config.NewResolver(c.String("resources"), runEnv),
		logger:   logger,
		logFile:  file,
		logPath:  c.String("log-file"),
		envName:  envName,
		label:    label,
	}, nil
}

// reporter builds the test plan service. Its collector attaches the
// log file this process writes, not the default location.
func (h *harness) reporter(cfg azure.Config) *azure.Service {
	return azure.NewService(cfg,
		azure.WithLogger(h.logger),
		azure.WithCollector(&azure.Collector{
			Dir:     azure.DefaultEvidenceDir,
			LogFile: h.logPath,
			Logger:  h.logger,
		}),
	)
}

func (h *harness) Close() {
	_ = h.logger.Close()
}
