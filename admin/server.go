package admin

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jonwraymond/metacache/observe"
)

// ServerConfig configures Server.
type ServerConfig struct {
	// Addr is the listen address.
	// Default: ":8080"
	Addr string

	// ReadTimeout bounds reading a request.
	// Default: 10 seconds
	ReadTimeout time.Duration

	// WriteTimeout bounds writing a response.
	// Default: 30 seconds
	WriteTimeout time.Duration

	// ShutdownTimeout bounds draining in-flight requests.
	// Default: 15 seconds
	ShutdownTimeout time.Duration
}

func (c ServerConfig) withDefaults() ServerConfig {
	if c.Addr == "" {
		c.Addr = ":8080"
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = 10 * time.Second
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 30 * time.Second
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = 15 * time.Second
	}
	return c
}

// Server runs the admin handler until its context is cancelled.
type Server struct {
	srv      *http.Server
	shutdown time.Duration
	logger   observe.Logger
}

// NewServer creates a server for handler.
func NewServer(handler http.Handler, cfg ServerConfig, logger observe.Logger) *Server {
	cfg = cfg.withDefaults()
	if logger == nil {
		logger = observe.NopLogger()
	}
	return &Server{
		srv: &http.Server{
			Addr:              cfg.Addr,
			Handler:           handler,
			ReadTimeout:       cfg.ReadTimeout,
			ReadHeaderTimeout: cfg.ReadTimeout,
			WriteTimeout:      cfg.WriteTimeout,
		},
		shutdown: cfg.ShutdownTimeout,
		logger:   logger,
	}
}

// Run listens on the configured address and serves until ctx is done, then
// drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.logger.Info(ctx, "admin server listening", observe.F("addr", ln.Addr().String()))
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.shutdown)
		defer cancel()
		s.logger.Info(shutdownCtx, "admin server shutting down")
		return s.srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
