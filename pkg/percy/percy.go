// Package percy captures visual snapshots through a local Percy agent.
package percy

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"digital.vasic.harness/pkg/env"
	"digital.vasic.harness/pkg/httpclient"
	"digital.vasic.harness/pkg/logging"
)

// DefaultServerAddress is where the Percy agent listens.
const DefaultServerAddress = "http://localhost:5338"

const clientInfo = "harness-percy/1.0"

// Page is the part of a browser page the snapshot needs.
// playwright.Page satisfies it.
type Page interface {
	Evaluate(expression string, arg ...any) (any, error)
	URL() string
}

// Service captures snapshots when Percy is enabled.
type Service struct {
	enabled bool
	client  *httpclient.APIClient
	logger  logging.Logger

	mu        sync.Mutex
	checked   bool
	available bool
	domJS     string
}

// NewService creates a Service talking to the agent at addr.
func NewService(enabled bool, addr string, logger logging.Logger) *Service {
	if addr == "" {
		addr = DefaultServerAddress
	}
	if logger == nil {
		logger = logging.NullLogger{}
	}
	return &Service{
		enabled: enabled,
		client:  httpclient.NewAPIClient(addr, httpclient.WithLogger(logger)),
		logger:  logger,
	}
}

// ServiceFromEnv reads ENABLE_PERCY and PERCY_SERVER_ADDRESS.
func ServiceFromEnv(l env.Loader, logger logging.Logger) *Service {
	return NewService(
		strings.EqualFold(l.Get("ENABLE_PERCY"), "true"),
		l.Get("PERCY_SERVER_ADDRESS"),
		logger,
	)
}

// Enabled reports whether ENABLE_PERCY was set.
func (s *Service) Enabled() bool { return s.enabled }

// ready checks the agent once and caches its DOM serializer.
func (s *Service) ready(ctx context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.checked {
		return s.available
	}
	s.checked = true

	var health struct {
		Success bool `json:"success"`
	}
	if _, err := s.client.GetJSON(ctx, "/percy/healthcheck", &health); err != nil || !health.Success {
		s.logger.Warn("percy agent is not running, snapshots disabled",
			logging.ErrorField(err))
		return false
	}
	_, script, err := s.client.Do(ctx, http.MethodGet, "/percy/dom.js", "", nil)
	if err != nil {
		s.logger.Warn("percy dom serializer unavailable", logging.ErrorField(err))
		return false
	}
	s.domJS = string(script)
	s.available = true
	return true
}

// Capture snapshots the current page under name. It is a no-op when
// Percy is disabled or the agent is unreachable.
func (s *Service) Capture(ctx context.Context, page Page, name string) error {
	if !s.enabled {
		s.logger.Debug("percy snapshot skipped, ENABLE_PERCY is not true",
			logging.StringField("snapshot", name))
		return nil
	}
	if !s.ready(ctx) {
		return nil
	}

	if _, err := page.Evaluate(s.domJS); err != nil {
		return fmt.Errorf("inject percy dom: %w", err)
	}
	dom, err := page.Evaluate("(opts) => PercyDOM.serialize(opts)", map[string]any{})
	if err != nil {
		return fmt.Errorf("serialize dom: %w", err)
	}

	snapshot := map[string]any{
		"name":        name,
		"url":         page.URL(),
		"domSnapshot": dom,
		"clientInfo":  clientInfo,
	}
	if _, err := s.client.SendJSON(ctx, http.MethodPost, "/percy/snapshot",
		httpclient.ContentTypeJSON, snapshot, nil); err != nil {
		return fmt.Errorf("post percy snapshot %q: %w", name, err)
	}
	s.logger.Debug("percy snapshot captured", logging.StringField("snapshot", name))
	return nil
}
