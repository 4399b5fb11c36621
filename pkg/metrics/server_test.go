package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServer_Handler(t *testing.T) {
	m := NewPrometheusMetrics()
	m.ObserveTest(Observation{Test: "login", Status: "passed", Duration: 2 * time.Second})

	rec := httptest.NewRecorder()
	NewServer("", m, nil).Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `playwright_test_duration_seconds{test="login"} 2`)
	assert.Contains(t, body, `playwright_test_total{status="passed"} 1`)
}

func TestServer_StartAndShutdown(t *testing.T) {
	m := NewPrometheusMetrics()
	s := NewServer("127.0.0.1:0", m, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, s.Start(ctx))
	resp, err := http.Get("http://" + s.Addr() + "/metrics")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "go_goroutines")

	require.NoError(t, s.Shutdown(context.Background()))
}

func TestServer_DefaultAddr(t *testing.T) {
	s := NewServer("", NewPrometheusMetrics(), nil)
	assert.Equal(t, DefaultAddr, s.Addr())
}

func TestServer_ShutdownBeforeStart(t *testing.T) {
	assert.NoError(t, NewServer("", NewPrometheusMetrics(), nil).Shutdown(context.Background()))
}
