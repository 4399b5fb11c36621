package monitor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"digital.vasic.harness/pkg/logging"
)

// DefaultAddr is where the monitor listens.
const DefaultAddr = ":9465"

const (
	clientBuffer = 32
	writeWait    = 5 * time.Second
)

// Message is the envelope of everything sent over /ws.
type Message struct {
	Kind string `json:"kind"` // dashboard or event
	Data any    `json:"data"`
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// WebSocketServer streams test events to dashboards over /ws and
// serves /stats, /dashboard and /health.
type WebSocketServer struct {
	mu        sync.RWMutex
	collector *EventCollector
	dashboard *DashboardData
	logger    logging.Logger
	clients   map[*client]struct{}
	addr      string
	upgrader  websocket.Upgrader
	server    *http.Server
	listener  net.Listener
	once      sync.Once
}

// NewWebSocketServer creates the live monitor server. Events emitted
// on collector update dashboard and reach every connected client.
func NewWebSocketServer(
	addr string, collector *EventCollector, dashboard *DashboardData, logger logging.Logger,
) *WebSocketServer {
	if addr == "" {
		addr = DefaultAddr
	}
	if logger == nil {
		logger = logging.NullLogger{}
	}
	return &WebSocketServer{
		addr:      addr,
		collector: collector,
		dashboard: dashboard,
		logger:    logger,
		clients:   make(map[*client]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

// subscribe wires the collector to the dashboard and the clients.
// It runs once per server.
func (s *WebSocketServer) subscribe() {
	s.once.Do(func() {
		s.collector.OnEvent(func(event TestEvent) {
			s.dashboard.UpdateFromEvent(event)
			data, err := json.Marshal(Message{Kind: "event", Data: event})
			if err != nil {
				return
			}
			s.broadcast(data)
		})
	})
}

// Handler returns the HTTP handler of the monitor.
func (s *WebSocketServer) Handler() http.Handler {
	s.subscribe()
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWS)
	mux.HandleFunc("/stats", s.handleStats)
	mux.HandleFunc("/dashboard", s.handleDashboard)
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}

// Start binds the listener and serves in the background until ctx
// is cancelled or Stop is called.
func (s *WebSocketServer) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("monitor server: %w", err)
	}
	s.listener = ln
	s.server = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		_ = s.Stop(context.Background())
	}()
	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("monitor server stopped", logging.ErrorField(err))
		}
	}()

	s.logger.Info("monitor server running",
		logging.StringField("url", fmt.Sprintf("ws://%s/ws", ln.Addr())))
	return nil
}

// Addr returns the bound address once started.
func (s *WebSocketServer) Addr() string {
	if s.listener == nil {
		return s.addr
	}
	return s.listener.Addr().String()
}

// Stop closes every client connection and shuts the server down.
func (s *WebSocketServer) Stop(ctx context.Context) error {
	s.mu.Lock()
	for c := range s.clients {
		_ = c.conn.Close()
	}
	s.mu.Unlock()

	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

// ClientCount returns the number of connected WebSocket clients.
func (s *WebSocketServer) ClientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

func (s *WebSocketServer) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", logging.ErrorField(err))
		return
	}

	c := &client{conn: conn, send: make(chan []byte, clientBuffer)}

	// The initial dashboard is queued before registration so it is
	// always the first message a client reads.
	if data, err := json.Marshal(Message{Kind: "dashboard", Data: s.dashboard.Snapshot()}); err == nil {
		c.send <- data
	}
	s.mu.Lock()
	s.clients[c] = struct{}{}
	s.mu.Unlock()

	go s.writeLoop(c)
	s.readLoop(c)
}

// readLoop discards client messages and unregisters the client once
// the connection closes.
func (s *WebSocketServer) readLoop(c *client) {
	defer s.remove(c)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (s *WebSocketServer) writeLoop(c *client) {
	defer func() { _ = c.conn.Close() }()
	for data := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			return
		}
	}
	_ = c.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

func (s *WebSocketServer) remove(c *client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.clients[c]; ok {
		delete(s.clients, c)
		close(c.send)
	}
}

func (s *WebSocketServer) broadcast(data []byte) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for c := range s.clients {
		select {
		case c.send <- data:
		default:
			// Client too slow, skip
		}
	}
}

func (s *WebSocketServer) handleStats(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(s.collector.Stats())
}

func (s *WebSocketServer) handleDashboard(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(s.dashboard.Snapshot())
}
