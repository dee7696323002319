package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rhuss/dolmetsch/pkg/transport"
)

// Server wraps http.Server with lifecycle management: default transport
// middleware, optional HTTP-level middleware, and graceful shutdown on
// SIGINT/SIGTERM.
type Server struct {
	httpServer *http.Server
	adapter    *Adapter
	logger     *slog.Logger
	config     ServerConfig
}

// ServerConfig holds the server configuration.
type ServerConfig struct {
	Addr            string
	MaxBodySize     int64
	ShutdownTimeout time.Duration
	Logger          *slog.Logger

	// HTTPMiddleware wraps the adapter handler. The first entry becomes
	// the outermost layer, so metrics registered before auth observes
	// rejected requests too.
	HTTPMiddleware []func(http.Handler) http.Handler
}

// DefaultServerConfig returns the default server configuration.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Addr:            ":8080",
		MaxBodySize:     10 << 20,
		ShutdownTimeout: 30 * time.Second,
		Logger:          slog.Default(),
	}
}

// ServerOption configures a Server.
type ServerOption func(*ServerConfig)

// WithAddr sets the listen address.
func WithAddr(addr string) ServerOption {
	return func(c *ServerConfig) {
		c.Addr = addr
	}
}

// WithMaxBodySize sets the maximum request body size in bytes.
func WithMaxBodySize(n int64) ServerOption {
	return func(c *ServerConfig) {
		c.MaxBodySize = n
	}
}

// WithShutdownTimeout sets how long to wait for in-flight requests
// during graceful shutdown.
func WithShutdownTimeout(d time.Duration) ServerOption {
	return func(c *ServerConfig) {
		c.ShutdownTimeout = d
	}
}

// WithLogger sets the logger used by the server and its middleware.
func WithLogger(logger *slog.Logger) ServerOption {
	return func(c *ServerConfig) {
		c.Logger = logger
	}
}

// WithHTTPMiddleware appends HTTP-level middleware around the adapter
// handler, in registration order from outermost to innermost.
func WithHTTPMiddleware(mw ...func(http.Handler) http.Handler) ServerOption {
	return func(c *ServerConfig) {
		c.HTTPMiddleware = append(c.HTTPMiddleware, mw...)
	}
}

// NewServer creates a server around the given MessageCreator. The store
// and models arguments are optional, matching NewAdapter. The creator is
// wrapped in the default transport middleware: panic recovery, request
// ID assignment, and request logging.
func NewServer(creator transport.MessageCreator, store transport.UsageStore, models ModelLister, opts ...ServerOption) *Server {
	cfg := DefaultServerConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	adapterCfg := Config{
		Addr:            cfg.Addr,
		MaxBodySize:     cfg.MaxBodySize,
		ShutdownTimeout: int(cfg.ShutdownTimeout.Seconds()),
	}

	adapter := NewAdapter(creator, store, models, adapterCfg,
		transport.Recovery(),
		transport.RequestID(),
		transport.Logging(cfg.Logger),
	)

	handler := adapter.Handler()
	for i := len(cfg.HTTPMiddleware) - 1; i >= 0; i-- {
		handler = cfg.HTTPMiddleware[i](handler)
	}

	return &Server{
		httpServer: &http.Server{
			Addr:              cfg.Addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
		adapter: adapter,
		logger:  cfg.Logger,
		config:  cfg,
	}
}

// ListenAndServe starts the server and blocks until it is shut down by
// SIGINT/SIGTERM or a server error.
func (s *Server) ListenAndServe() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return s.listenAndServeWithContext(ctx)
}

func (s *Server) listenAndServeWithContext(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		s.logger.Info("server listening", slog.String("addr", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		s.logger.Info("shutting down server")
		return s.shutdown()
	}
}

// ServeOn serves on an existing listener. Useful for tests that need an
// ephemeral port.
func (s *Server) ServeOn(ln net.Listener) error {
	if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()
	return s.Shutdown(ctx)
}

// Shutdown gracefully shuts down the server, waiting for in-flight
// requests up to the context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
