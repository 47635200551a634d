package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/strada-dev/strada/pkg/middleware"
	"github.com/strada-dev/strada/pkg/nav"
	"github.com/strada-dev/strada/pkg/router"
)

// Server hosts navigation sessions over WebSocket. Each connection gets its
// own pipeline over the shared route table, so per-client navigation state
// never crosses sessions.
type Server struct {
	table    *router.Table
	config   *ServerConfig
	sessions *Manager
	upgrader websocket.Upgrader

	pipelineOpts []nav.PipelineOption
	observers    []nav.Observer

	httpServer *http.Server
	logger     *slog.Logger
}

// Option configures the server.
type Option func(*Server)

// WithPipelineOptions forwards options to every session's pipeline.
func WithPipelineOptions(opts ...nav.PipelineOption) Option {
	return func(s *Server) {
		s.pipelineOpts = append(s.pipelineOpts, opts...)
	}
}

// WithObservers registers lifecycle observers on every session's event bus.
// Observers shared across sessions must be safe for concurrent use.
func WithObservers(obs ...nav.Observer) Option {
	return func(s *Server) {
		s.observers = append(s.observers, obs...)
	}
}

// New creates a server over a route table.
func New(table *router.Table, config *ServerConfig, opts ...Option) *Server {
	config = config.withDefaults()
	logger := slog.Default().With("component", "server")

	s := &Server{
		table:    table,
		config:   config,
		sessions: NewManager(config.MaxSessions),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		logger: logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Sessions returns the session manager.
func (s *Server) Sessions() *Manager { return s.sessions }

// Handler returns the HTTP handler: health, metrics, and the WebSocket
// endpoint.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ok")
	})
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/_strada/ws", s.handleWS)

	return r
}

// handleWS upgrades the connection and runs a session for its lifetime.
func (s *Server) handleWS(w http.ResponseWriter, req *http.Request) {
	conn, err := s.upgrader.Upgrade(w, req, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "err", err)
		return
	}

	pipeline := nav.New(s.table, s.pipelineOpts...)
	pipeline.Events().Observe(middleware.Logger(s.logger))
	for _, obs := range s.observers {
		pipeline.Events().Observe(obs)
	}

	session := newSession(conn, pipeline, s.config.SendBuffer, s.logger)
	if err := s.sessions.Add(session); err != nil {
		s.logger.Warn("session rejected", "err", err)
		session.Close()
		return
	}
	s.logger.Info("session connected", "session", session.ID, "remote", req.RemoteAddr)

	session.run(req.Context())

	s.sessions.Remove(session.ID)
	s.logger.Info("session disconnected", "session", session.ID)
}

// Start serves until the context is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:              s.config.Address,
		Handler:           s.Handler(),
		ReadHeaderTimeout: s.config.ReadHeaderTimeout,
		ReadTimeout:       s.config.ReadTimeout,
		WriteTimeout:      s.config.WriteTimeout,
		IdleTimeout:       s.config.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", s.config.Address)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return s.Shutdown()
	}
}

// Shutdown closes every session and stops the HTTP server.
func (s *Server) Shutdown() error {
	s.logger.Info("shutting down", "sessions", s.sessions.Len())
	s.sessions.CloseAll()

	ctx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

// parseOrigin extracts the host of an Origin header value.
func parseOrigin(origin string) (string, error) {
	u, err := url.Parse(origin)
	if err != nil {
		return "", err
	}
	return u.Host, nil
}
