package monitor

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"digital.vasic.harness/pkg/azure"
	"digital.vasic.harness/pkg/runner"
)

type rawMessage struct {
	Kind string          `json:"kind"`
	Data json.RawMessage `json:"data"`
}

func newTestServer(t *testing.T) (*WebSocketServer, *EventCollector, *httptest.Server) {
	t.Helper()
	collector := NewEventCollector()
	s := NewWebSocketServer("", collector, NewDashboardData("run-1"), nil)
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	return s, collector, srv
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	_ = resp.Body.Close()
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) rawMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg rawMessage
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestNewWebSocketServer_Defaults(t *testing.T) {
	s := NewWebSocketServer("", NewEventCollector(), NewDashboardData("r"), nil)
	assert.Equal(t, DefaultAddr, s.Addr())
	assert.Zero(t, s.ClientCount())
	assert.NotNil(t, s.logger)
}

func TestWebSocketServer_StreamsEvents(t *testing.T) {
	s, collector, srv := newTestServer(t)
	conn := dial(t, srv)

	first := readMessage(t, conn)
	assert.Equal(t, "dashboard", first.Kind)
	var snap DashboardData
	require.NoError(t, json.Unmarshal(first.Data, &snap))
	assert.Equal(t, "run-1", snap.RunID)

	require.Eventually(t, func() bool { return s.ClientCount() == 1 },
		time.Second, 10*time.Millisecond)

	collector.TestStarted("login", "exec-1")
	collector.TestFinished(runner.Result{
		Title: "login", ExecutionID: "exec-1", Status: azure.OutcomeFailed, Error: "boom",
	})

	msg := readMessage(t, conn)
	assert.Equal(t, "event", msg.Kind)
	var started TestEvent
	require.NoError(t, json.Unmarshal(msg.Data, &started))
	assert.Equal(t, EventStarted, started.Type)
	assert.Equal(t, "exec-1", started.ExecutionID)

	msg = readMessage(t, conn)
	var finished TestEvent
	require.NoError(t, json.Unmarshal(msg.Data, &finished))
	assert.Equal(t, EventFailed, finished.Type)
	assert.Equal(t, "boom", finished.Message)

	assert.Equal(t, "failed", s.dashboard.Snapshot().Tests["login"].Status)
}

func TestWebSocketServer_ClientDisconnect(t *testing.T) {
	s, collector, srv := newTestServer(t)
	conn := dial(t, srv)
	readMessage(t, conn)
	require.Eventually(t, func() bool { return s.ClientCount() == 1 },
		time.Second, 10*time.Millisecond)

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return s.ClientCount() == 0 },
		2*time.Second, 10*time.Millisecond)

	assert.NotPanics(t, func() { collector.TestStarted("after", "") })
}

func TestWebSocketServer_Stats(t *testing.T) {
	_, collector, srv := newTestServer(t)
	collector.TestStarted("a", "")
	collector.TestFinished(runner.Result{Title: "a", Status: azure.OutcomePassed})

	resp, err := http.Get(srv.URL + "/stats")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var stats CollectorStats
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&stats))
	assert.Equal(t, 1, stats.Started)
	assert.Equal(t, 1, stats.Passed)
}

func TestWebSocketServer_DashboardAndHealth(t *testing.T) {
	_, collector, srv := newTestServer(t)
	collector.TestStarted("a", "")

	resp, err := http.Get(srv.URL + "/dashboard")
	require.NoError(t, err)
	var snap DashboardData
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&snap))
	resp.Body.Close()
	assert.Equal(t, "running", snap.Tests["a"].Status)

	resp, err = http.Get(srv.URL + "/health")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", string(body))
}

func TestWebSocketServer_NonWebSocketRequest(t *testing.T) {
	_, _, srv := newTestServer(t)
	resp, err := http.Get(srv.URL + "/ws")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestWebSocketServer_HandlerSubscribesOnce(t *testing.T) {
	collector := NewEventCollector()
	s := NewWebSocketServer("", collector, NewDashboardData("r"), nil)
	s.Handler()
	s.Handler()
	collector.TestStarted("a", "")
	assert.Len(t, collector.handlers, 1)
}

func TestWebSocketServer_StartAndStop(t *testing.T) {
	collector := NewEventCollector()
	s := NewWebSocketServer("127.0.0.1:0", collector, NewDashboardData("r"), nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, s.Start(ctx))
	resp, err := http.Get("http://" + s.Addr() + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	conn, wsResp, err := websocket.DefaultDialer.Dial("ws://"+s.Addr()+"/ws", nil)
	require.NoError(t, err)
	_ = wsResp.Body.Close()
	defer conn.Close()

	require.NoError(t, s.Stop(context.Background()))
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

func TestWebSocketServer_StartBindError(t *testing.T) {
	s := NewWebSocketServer("256.0.0.1:0", NewEventCollector(), NewDashboardData("r"), nil)
	err := s.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "monitor server")
}
