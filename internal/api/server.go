package api

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"slipclip/internal/clipstore"
	"slipclip/internal/logging"
)

// ServerConfig wires the HTTP surface to a store.
type ServerConfig struct {
	Bind      string
	Backend   string
	Store     clipstore.Store
	Logger    *slog.Logger
	StartTime time.Time
}

func (c ServerConfig) withDefaults() ServerConfig {
	if c.Logger == nil {
		c.Logger = logging.NewNop()
	}
	if c.StartTime.IsZero() {
		c.StartTime = time.Now()
	}
	return c
}

// Server is the HTTP query server.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer builds a server; call Serve or ListenAndServe to start it.
func NewServer(cfg ServerConfig) *Server {
	cfg = cfg.withDefaults()
	return &Server{
		httpServer: &http.Server{
			Addr:              cfg.Bind,
			Handler:           NewRouter(cfg),
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      60 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		logger: logging.NewComponentLogger(cfg.Logger, "api"),
	}
}

// Addr returns the configured bind address.
func (s *Server) Addr() string { return s.httpServer.Addr }

// ListenAndServe binds the configured address and serves until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.logger.Info("starting HTTP server", logging.String("addr", ln.Addr().String()))

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.httpServer.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
