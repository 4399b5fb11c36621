package percy

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"digital.vasic.harness/pkg/env"
	"digital.vasic.harness/pkg/logging"
)

type fakePage struct {
	expressions []string
}

func (p *fakePage) Evaluate(expression string, _ ...any) (any, error) {
	p.expressions = append(p.expressions, expression)
	return map[string]any{"html": "<html></html>"}, nil
}

func (p *fakePage) URL() string { return "https://qa.example.com/home" }

type fakeAgent struct {
	srv       *httptest.Server
	healthy   bool
	snapshots atomic.Int32

	mu   sync.Mutex
	last map[string]any
}

func (a *fakeAgent) lastSnapshot() map[string]any {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.last
}

func newFakeAgent(t *testing.T, healthy bool) *fakeAgent {
	t.Helper()
	a := &fakeAgent{healthy: healthy}
	mux := http.NewServeMux()
	mux.HandleFunc("/percy/healthcheck", func(w http.ResponseWriter, _ *http.Request) {
		if !a.healthy {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"success":true}`))
	})
	mux.HandleFunc("/percy/dom.js", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("window.PercyDOM = {}"))
	})
	mux.HandleFunc("/percy/snapshot", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		last := map[string]any{}
		_ = json.Unmarshal(body, &last)
		a.mu.Lock()
		a.last = last
		a.mu.Unlock()
		a.snapshots.Add(1)
		_, _ = w.Write([]byte(`{"success":true}`))
	})
	a.srv = httptest.NewServer(mux)
	t.Cleanup(a.srv.Close)
	return a
}

func TestService_DisabledSkips(t *testing.T) {
	agent := newFakeAgent(t, true)
	mem := logging.NewMemoryLogger()
	s := NewService(false, agent.srv.URL, mem)
	page := &fakePage{}

	require.NoError(t, s.Capture(context.Background(), page, "home"))
	assert.Empty(t, page.expressions)
	assert.Equal(t, int32(0), agent.snapshots.Load())
	assert.Equal(t, 1, mem.Count(logging.LevelDebug, "skipped"))
}

func TestService_Capture(t *testing.T) {
	agent := newFakeAgent(t, true)
	s := NewService(true, agent.srv.URL, nil)
	page := &fakePage{}

	require.NoError(t, s.Capture(context.Background(), page, "home"))
	require.NoError(t, s.Capture(context.Background(), page, "home again"))

	assert.Equal(t, int32(2), agent.snapshots.Load())
	assert.Equal(t, "window.PercyDOM = {}", page.expressions[0])
	last := agent.lastSnapshot()
	assert.Equal(t, "home again", last["name"])
	assert.Equal(t, "https://qa.example.com/home", last["url"])
	assert.Equal(t, map[string]any{"html": "<html></html>"}, last["domSnapshot"])
}

func TestService_AgentDown(t *testing.T) {
	agent := newFakeAgent(t, false)
	mem := logging.NewMemoryLogger()
	s := NewService(true, agent.srv.URL, mem)
	page := &fakePage{}

	require.NoError(t, s.Capture(context.Background(), page, "home"))
	require.NoError(t, s.Capture(context.Background(), page, "home"))
	assert.Empty(t, page.expressions)
	assert.Equal(t, 1, mem.Count(logging.LevelWarn, "percy agent is not running"))
}

func TestServiceFromEnv(t *testing.T) {
	t.Setenv("ENABLE_PERCY", "TRUE")
	t.Setenv("PERCY_SERVER_ADDRESS", "")
	s := ServiceFromEnv(env.NewLoader(), nil)
	assert.True(t, s.Enabled())
	assert.Equal(t, DefaultServerAddress, s.client.BaseURL())

	t.Setenv("ENABLE_PERCY", "no")
	assert.False(t, ServiceFromEnv(env.NewLoader(), nil).Enabled())
}
