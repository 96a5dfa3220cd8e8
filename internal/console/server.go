// Package console serves the browser console and its JSON/SSE API on top of
// an orchestrator, and provides a client for that API.
package console

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/dusk-indust/analyst/internal/history"
	"github.com/dusk-indust/analyst/internal/orchestrator"
	"go.uber.org/zap"
)

// RunSource looks up finished runs.
type RunSource interface {
	Get(id string) (orchestrator.Snapshot, error)
	List(req history.ListRequest) (history.ListResponse, error)
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger. The default discards output.
func WithLogger(l *zap.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithHistory enables the /api/runs endpoints.
func WithHistory(runs RunSource) Option {
	return func(s *Server) { s.runs = runs }
}

// WithMCPHandler mounts h at /mcp.
func WithMCPHandler(h http.Handler) Option {
	return func(s *Server) { s.mcp = h }
}

// WithKeepAlive sets the interval between SSE keep-alive comments. Zero
// disables them.
func WithKeepAlive(d time.Duration) Option {
	return func(s *Server) { s.keepAlive = d }
}

// Server is the HTTP server that exposes the console.
type Server struct {
	pipe      orchestrator.Orchestrator
	runs      RunSource
	mcp       http.Handler
	logger    *zap.Logger
	keepAlive time.Duration

	mu       sync.Mutex
	http     *http.Server
	addr     string
	done     chan struct{}
	stopOnce sync.Once
}

// NewServer creates a console server for pipe.
func NewServer(pipe orchestrator.Orchestrator, opts ...Option) *Server {
	s := &Server{
		pipe:      pipe,
		logger:    zap.NewNop(),
		keepAlive: 15 * time.Second,
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the routes served by the console.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.Handle("GET /{$}", staticHandler())
	mux.HandleFunc("POST /api/query", s.handleQuery)
	mux.HandleFunc("GET /api/state", s.handleState)
	mux.HandleFunc("GET /api/events", s.handleEvents)
	mux.HandleFunc("GET /api/runs", s.handleListRuns)
	mux.HandleFunc("GET /api/runs/{id}", s.handleGetRun)
	mux.HandleFunc("GET /api/runs/{id}/results", s.handleResults)
	if s.mcp != nil {
		mux.Handle("/mcp", s.mcp)
	}

	return s.logRequests(mux)
}

// Start binds addr and serves in a background goroutine. It returns once
// the listener is bound.
func (s *Server) Start(ctx context.Context, addr string) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("console: listen %s: %w", addr, err)
	}

	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.mu.Lock()
	s.http = srv
	s.addr = ln.Addr().String()
	s.mu.Unlock()

	s.logger.Info("console listening", zap.String("addr", s.addr))

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("console server stopped", zap.Error(err))
		}
	}()
	return nil
}

// Serve starts the server and blocks until ctx is done, then shuts down
// gracefully.
func (s *Server) Serve(ctx context.Context, addr string) error {
	if err := s.Start(ctx, addr); err != nil {
		return err
	}
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.Stop(shutdownCtx)
}

// Addr returns the bound address once Start has succeeded.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// Stop ends open event streams and gracefully shuts down the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	s.stopOnce.Do(func() { close(s.done) })

	s.mu.Lock()
	srv := s.http
	s.mu.Unlock()

	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Duration("duration", time.Since(start)),
		)
	})
}
