// Package azure reports test executions to an Azure DevOps test plan:
// it activates test points, records outcomes, creates runs and results
// and uploads evidence attachments against them.
package azure

import (
	"fmt"
	"strings"

	"digital.vasic.harness/pkg/env"
)

// DefaultHost is the Azure DevOps host used when AZURE_HOST is unset.
const DefaultHost = "dev.azure.com"

// Config holds the connection settings of the reporter.
type Config struct {
	Host         string
	Organization string
	Project      string
	Token        string
	PlanID       string
	SuiteID      string
	// Enabled turns reporting on. When false the Service logs and
	// returns without any remote call.
	Enabled bool
	// SharedBuffer selects batch mode: evidence accumulates in the
	// process-wide buffer and is never reset between tests.
	SharedBuffer bool
}

// ConfigFromEnv reads the AZURE_* variables. Reporting is enabled
// when AZURE_ENABLED is true, or when it is unset and a token is
// present.
func ConfigFromEnv(l env.Loader) Config {
	cfg := Config{
		Host:         l.GetWithDefault("AZURE_HOST", DefaultHost),
		Organization: l.Get("AZURE_ORGANIZATION"),
		Project:      l.Get("AZURE_PROJECT"),
		Token:        l.Get("AZURE_TOKEN"),
		PlanID:       l.Get("AZURE_PLAN_ID"),
		SuiteID:      l.Get("AZURE_SUITE_ID"),
		SharedBuffer: strings.EqualFold(l.Get("EVIDENCE_BUFFER_MODE"), "shared"),
	}
	if l.Get("AZURE_ENABLED") != "" {
		cfg.Enabled = l.GetBool("AZURE_ENABLED")
	} else {
		cfg.Enabled = cfg.Token != ""
	}
	return cfg
}

// Validate reports the first missing setting needed for remote calls.
func (c Config) Validate() error {
	switch {
	case c.Organization == "":
		return fmt.Errorf("azure: AZURE_ORGANIZATION is not set")
	case c.Project == "":
		return fmt.Errorf("azure: AZURE_PROJECT is not set")
	case c.Token == "":
		return fmt.Errorf("azure: AZURE_TOKEN is not set")
	}
	return nil
}

// BaseURL returns https://<host>/<organization>/<project>/.
func (c Config) BaseURL() string {
	host := c.Host
	if host == "" {
		host = DefaultHost
	}
	if !strings.Contains(host, "://") {
		host = "https://" + host
	}
	return fmt.Sprintf("%s/%s/%s/",
		strings.TrimRight(host, "/"), c.Organization, c.Project)
}
