// Package browser provisions Playwright browser sessions, either a
// local Chromium or a remote device-farm browser.
package browser

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"

	"digital.vasic.harness/pkg/logging"
)

// DefaultTimeout bounds every Playwright action of a session.
const DefaultTimeout = 30 * time.Second

// EndpointSource resolves the remote WebSocket endpoint of a test.
type EndpointSource interface {
	Build(device, testName string) (string, error)
}

// Options configures a Launcher.
type Options struct {
	Remote   bool
	Device   string
	Headless bool
	Timeout  time.Duration
}

// Launcher starts Playwright once and hands out one Session per test.
type Launcher struct {
	opts      Options
	endpoints EndpointSource
	logger    logging.Logger

	mu sync.Mutex
	pw *playwright.Playwright
}

// NewLauncher creates a Launcher. endpoints is only used in remote mode.
func NewLauncher(opts Options, endpoints EndpointSource, logger logging.Logger) *Launcher {
	if opts.Device == "" {
		opts.Device = "desktop"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if logger == nil {
		logger = logging.NullLogger{}
	}
	return &Launcher{opts: opts, endpoints: endpoints, logger: logger}
}

// Options returns the effective launcher options.
func (l *Launcher) Options() Options { return l.opts }

func (l *Launcher) playwright() (*playwright.Playwright, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.pw != nil {
		return l.pw, nil
	}
	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("start playwright: %w", err)
	}
	l.pw = pw
	return pw, nil
}

// Session is one browser, its context and its page.
type Session struct {
	Browser playwright.Browser
	Context playwright.BrowserContext
	Page    playwright.Page
	Remote  bool
}

// Start opens a browser session for the test titled title.
func (l *Launcher) Start(ctx context.Context, title string) (*Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	pw, err := l.playwright()
	if err != nil {
		return nil, err
	}

	var browser playwright.Browser
	if l.opts.Remote {
		if l.endpoints == nil {
			return nil, errors.New("remote execution requires an endpoint source")
		}
		endpoint, err := l.endpoints.Build(l.opts.Device, title)
		if err != nil {
			return nil, err
		}
		browser, err = pw.Chromium.Connect(endpoint)
		if err != nil {
			return nil, fmt.Errorf("connect remote browser: %w", err)
		}
		l.logger.Info("connected to remote browser",
			logging.StringField("device", l.opts.Device))
	} else {
		browser, err = pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
			Headless: playwright.Bool(l.opts.Headless),
		})
		if err != nil {
			return nil, fmt.Errorf("launch chromium: %w", err)
		}
		l.logger.Debug("launched local chromium",
			logging.BoolField("headless", l.opts.Headless))
	}

	bctx, err := browser.NewContext()
	if err != nil {
		_ = browser.Close()
		return nil, fmt.Errorf("create browser context: %w", err)
	}
	ms := float64(l.opts.Timeout.Milliseconds())
	bctx.SetDefaultTimeout(ms)
	bctx.SetDefaultNavigationTimeout(ms)

	page, err := bctx.NewPage()
	if err != nil {
		_ = bctx.Close()
		_ = browser.Close()
		return nil, fmt.Errorf("create page: %w", err)
	}
	return &Session{Browser: browser, Context: bctx, Page: page, Remote: l.opts.Remote}, nil
}

// Stop shuts Playwright down.
func (l *Launcher) Stop() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.pw == nil {
		return nil
	}
	err := l.pw.Stop()
	l.pw = nil
	return err
}

// Close releases the page, the context and the browser.
func (s *Session) Close() error {
	var errs []error
	if s.Page != nil && !s.Page.IsClosed() {
		errs = append(errs, s.Page.Close())
	}
	if s.Context != nil {
		errs = append(errs, s.Context.Close())
	}
	if s.Browser != nil {
		errs = append(errs, s.Browser.Close())
	}
	return errors.Join(errs...)
}
