package browserstack

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"strings"

	"digital.vasic.harness/pkg/config"
	"digital.vasic.harness/pkg/env"
	"digital.vasic.harness/pkg/logging"
)

// PlaywrightEndpoint is the device-farm WebSocket entry point.
const PlaywrightEndpoint = "wss://cdp.browserstack.com/playwright"

// EndpointBuilder assembles the capabilities of a remote session.
type EndpointBuilder struct {
	resolver *config.Resolver
	env      env.Loader
	logger   logging.Logger
}

// NewEndpointBuilder creates an EndpointBuilder.
func NewEndpointBuilder(
	resolver *config.Resolver, loader env.Loader, logger logging.Logger,
) *EndpointBuilder {
	if logger == nil {
		logger = logging.NullLogger{}
	}
	return &EndpointBuilder{resolver: resolver, env: loader, logger: logger}
}

// Capabilities merges the device profile with the session name,
// project labels and account credentials.
func (b *EndpointBuilder) Capabilities(device, testName string) (map[string]any, error) {
	path := b.resolver.CapabilitiesPath(device)
	if _, err := os.Stat(path); err != nil {
		b.logger.Error("capabilities file not found",
			logging.StringField("device", device))
		return nil, fmt.Errorf("capabilities file for device %q not found: %w", device, err)
	}
	caps, err := b.resolver.Capabilities(device)
	if err != nil {
		return nil, err
	}
	b.logger.Debug("capabilities parsed", logging.StringField("device", device))

	caps["name"] = testName
	if build := b.resolver.String("project.build", ""); build != "" {
		caps["build"] = build
	}
	if project := b.resolver.String("project.name", ""); project != "" {
		caps["project"] = project
	}
	caps["browserstack.username"] = b.env.Get("BROWSERSTACK_USERNAME")
	caps["browserstack.accessKey"] = b.env.Get("BROWSERSTACK_ACCESS_KEY")
	caps["browserstack.performance"] = "assert"
	return caps, nil
}

// Build returns the WebSocket endpoint of a remote session for
// device, named after testName.
func (b *EndpointBuilder) Build(device, testName string) (string, error) {
	caps, err := b.Capabilities(device, testName)
	if err != nil {
		return "", err
	}
	data, err := json.Marshal(caps)
	if err != nil {
		return "", fmt.Errorf("encode capabilities: %w", err)
	}
	endpoint := PlaywrightEndpoint + "?caps=" + escapeComponent(string(data))
	b.logger.Info("remote endpoint built",
		logging.StringField("device", device),
		logging.StringField("endpoint", env.RedactURL(endpoint)))
	return endpoint, nil
}

// escapeComponent percent-encodes s for a query value, spaces
// included as %20.
func escapeComponent(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
