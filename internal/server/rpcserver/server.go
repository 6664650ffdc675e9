package rpcserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"connectrpc.com/connect"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/yndnr/tssd/internal/infra/buildinfo"
	"github.com/yndnr/tssd/internal/telemetry/metric"
)

// Config holds listener settings.
type Config struct {
	// Addr is the RPC listen address (host:port).
	Addr string
	// MetricsAddr, when set, serves /metrics on a dedicated listener
	// instead of the RPC one.
	MetricsAddr string
	// RateLimit is the allowed calls per second; 0 disables limiting.
	RateLimit float64
	// RateBurst is the token bucket size.
	RateBurst int
	// ReadHeaderTimeout bounds slow clients. Zero uses 10s.
	ReadHeaderTimeout time.Duration
}

// Server represents the RPC server.
type Server struct {
	cfg       Config
	handler   *Handler
	metrics   *metric.Registry
	logger    *slog.Logger
	ready     func() bool
	behaviour string

	mu            sync.Mutex
	httpServer    *http.Server
	metricsServer *http.Server
	listener      net.Listener
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithMetrics sets the metrics registry served on /metrics.
func WithMetrics(m *metric.Registry) Option {
	return func(s *Server) { s.metrics = m }
}

// WithReadiness sets the /readyz check, typically the seed state.
func WithReadiness(fn func() bool) Option {
	return func(s *Server) { s.ready = fn }
}

// WithBehaviourName reports the configured behaviour on health endpoints.
func WithBehaviourName(name string) Option {
	return func(s *Server) { s.behaviour = name }
}

// New creates a new RPC server for svc.
func New(cfg Config, svc Multisig, opts ...Option) *Server {
	s := &Server{
		cfg:       cfg,
		logger:    slog.Default(),
		ready:     func() bool { return true },
		behaviour: "Honest",
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = metric.Global()
	}
	if s.cfg.ReadHeaderTimeout <= 0 {
		s.cfg.ReadHeaderTimeout = 10 * time.Second
	}
	s.handler = NewHandler(svc, s.logger)
	return s
}

// Handler returns the HTTP handler serving RPC and health endpoints.
func (s *Server) Handler() http.Handler {
	opts := []connect.HandlerOption{
		connect.WithCodec(Codec{}),
		connect.WithInterceptors(DefaultInterceptors(s.logger, s.metrics, s.cfg.RateLimit, s.cfg.RateBurst)...),
	}

	mux := http.NewServeMux()
	mux.Handle(KeygenProcedure, connect.NewUnaryHandler(KeygenProcedure, s.handler.Keygen, opts...))
	mux.Handle(KeyPresenceProcedure, connect.NewUnaryHandler(KeyPresenceProcedure, s.handler.KeyPresence, opts...))
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	if s.cfg.MetricsAddr == "" {
		mux.Handle("GET /metrics", s.metrics.Handler())
	}

	return h2c.NewHandler(mux, &http2.Server{})
}

func (s *Server) health() HealthResponse {
	return HealthResponse{
		Status:      "ok",
		Initialized: s.ready(),
		Behaviour:   s.behaviour,
		Version:     buildinfo.Get().Version,
	}
}

// handleHealth reports liveness; it succeeds even before the seed exists.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.health())
}

// handleReady fails with 503 until the daemon can serve keygen.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	h := s.health()
	if !h.Initialized {
		h.Status = "uninitialized"
		writeJSON(w, http.StatusServiceUnavailable, h)
		return
	}
	writeJSON(w, http.StatusOK, h)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Listen binds the RPC listener (and the metrics listener, if configured)
// without serving yet, so callers can learn the bound address.
func (s *Server) Listen() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.cfg.Addr, err)
	}
	s.listener = ln
	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: s.cfg.ReadHeaderTimeout,
	}
	if s.cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("GET /metrics", s.metrics.Handler())
		s.metricsServer = &http.Server{
			Addr:              s.cfg.MetricsAddr,
			Handler:           mux,
			ReadHeaderTimeout: s.cfg.ReadHeaderTimeout,
		}
	}
	return nil
}

// Addr returns the bound RPC address, or nil before Listen.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Serve serves RPC traffic until Shutdown. It calls Listen if needed.
// A clean shutdown returns nil.
func (s *Server) Serve() error {
	if s.Addr() == nil {
		if err := s.Listen(); err != nil {
			return err
		}
	}

	s.mu.Lock()
	srv, ln, ms := s.httpServer, s.listener, s.metricsServer
	s.mu.Unlock()

	errCh := make(chan error, 2)
	if ms != nil {
		go func() {
			s.logger.Info("metrics listener started", "addr", ms.Addr)
			errCh <- ms.ListenAndServe()
		}()
	}
	go func() {
		s.logger.Info("rpc server started", "addr", ln.Addr().String())
		errCh <- srv.Serve(ln)
	}()

	err := <-errCh
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv, ms := s.httpServer, s.metricsServer
	s.mu.Unlock()

	var errs []error
	if srv != nil {
		errs = append(errs, srv.Shutdown(ctx))
	}
	if ms != nil {
		errs = append(errs, ms.Shutdown(ctx))
	}
	return errors.Join(errs...)
}
