package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/jonwraymond/metacache/admin"
	"github.com/jonwraymond/metacache/config"
	"github.com/jonwraymond/metacache/observe"
)

// NewServeCommand creates the serve command
func NewServeCommand(flags *globalFlags) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the admin HTTP API",
		Long: `Run the admin HTTP API until interrupted.

Descriptor lookups, cache statistics, clearing, enabling and epoch bumps are
served under /v1. Health probes are served at /healthz, /readyz and /health,
Prometheus metrics at /metrics.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			cfg, err := config.Load(ctx, flags.configPath)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}
			return runServer(ctx, cfg)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address, overrides server.addr")
	return cmd
}

func runServer(ctx context.Context, cfg *config.Config) error {
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := a.close(shutdownCtx); err != nil {
			a.logger.Error(shutdownCtx, "shutdown failed", observe.F("error", err))
		}
	}()

	authn, authz := newAuth(cfg.Auth)
	handler, err := admin.NewRouter(admin.Config{
		Cache:          a.cache,
		Authenticator:  authn,
		Authorizer:     authz,
		AnonymousRoles: cfg.Auth.AnonymousRoles,
		Health:         a.health,
		Metrics:        promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{}),
		Logger:         a.logger,
	})
	if err != nil {
		return err
	}

	a.logger.Info(ctx, "starting metacache",
		observe.F("version", Version),
		observe.F("dialect", cfg.Store.Dialect),
		observe.F("epoch_source", cfg.Epoch.Source),
		observe.F("auth", cfg.Auth.Enabled),
	)
	srv := admin.NewServer(handler, admin.ServerConfig{
		Addr:            cfg.Server.Addr,
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	}, a.logger)
	return srv.Run(ctx)
}
