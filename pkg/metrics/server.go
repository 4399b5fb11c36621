package metrics

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"digital.vasic.harness/pkg/logging"
)

// DefaultAddr is where the metrics endpoint listens.
const DefaultAddr = ":9464"

// Server exposes GET /metrics for a PrometheusMetrics registry.
type Server struct {
	addr     string
	metrics  *PrometheusMetrics
	logger   logging.Logger
	server   *http.Server
	listener net.Listener
}

// NewServer creates a metrics server. An empty addr uses DefaultAddr.
func NewServer(addr string, m *PrometheusMetrics, logger logging.Logger) *Server {
	if addr == "" {
		addr = DefaultAddr
	}
	if logger == nil {
		logger = logging.NullLogger{}
	}
	return &Server{addr: addr, metrics: m, logger: logger}
}

// Handler returns the HTTP handler of the endpoint.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	metricsHandler := promhttp.HandlerFor(s.metrics.Registry(), promhttp.HandlerOpts{})
	mux.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
		s.logger.Debug("/metrics endpoint accessed",
			logging.StringField("remote", r.RemoteAddr))
		metricsHandler.ServeHTTP(w, r)
	})
	return mux
}

// Start binds the listener and serves in the background until ctx
// is cancelled or Shutdown is called.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("metrics server: %w", err)
	}
	s.listener = ln
	s.server = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		s.server.Close()
	}()
	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("metrics server stopped", logging.ErrorField(err))
		}
	}()

	s.logger.Info("metrics server running",
		logging.StringField("url", fmt.Sprintf("http://%s/metrics", ln.Addr())))
	return nil
}

// Addr returns the bound address once started.
func (s *Server) Addr() string {
	if s.listener == nil {
		return s.addr
	}
	return s.listener.Addr().String()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
