package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"framewire/internal/core/domain"
	"framewire/internal/core/services"
	httphandlers "framewire/internal/handlers/http"
	"framewire/internal/infrastructure/middleware"
	"framewire/internal/infrastructure/monitoring"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

type serveOptions struct {
	address   string
	autoStart bool
}

func newServeCommand(root *rootOptions) *cobra.Command {
	opts := &serveOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the control API and start sessions over HTTP",
		Long: `serve exposes health, readiness and Prometheus endpoints, a session control API,
a latest-frame preview and a websocket metrics feed. Sessions use stream.role
from the configuration.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.load()
			if err != nil {
				return err
			}
			cfg.Server.Enabled = true
			if opts.address != "" {
				cfg.Server.Address = opts.address
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, cfg, prometheus.DefaultRegisterer)
			if err != nil {
				return err
			}
			defer a.close()

			return a.serve(ctx, opts.autoStart)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.address, "address", "", "HTTP listen address (overrides server.address)")
	flags.BoolVar(&opts.autoStart, "start", false, "Start a session immediately")

	return cmd
}

func (a *app) controlRouter(manager *services.SessionManager, gatherer prometheus.Gatherer) http.Handler {
	cfg := a.cfg

	health := monitoring.NewHealthChecker()
	health.AddReportStoreCheck(a.reports, 2*time.Second)
	if cfg.Redis.Enabled {
		health.AddPingCheck("redis", a.repos.HealthCheck, 2*time.Second)
	}

	authService := services.NewAuthService(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTL, cfg.Auth.RefreshTokenTTL)

	return httphandlers.NewRouter(httphandlers.RouterDeps{
		Config:  cfg,
		Control: httphandlers.NewControlHandler(manager, a.preview, a.codec, a.reports, health),
		Auth:    httphandlers.NewAuthHandler(authService),
		Feed: httphandlers.NewMetricsFeed(
			manager,
			middleware.NewConnectionLimiter(cfg),
			cfg.Monitoring.MetricsInterval,
			cfg.Auth.AllowedOrigins,
			a.log,
		),
		AuthService: authService,
		Gatherer:    gatherer,
		Logger:      a.logger,
	})
}

func (a *app) serve(ctx context.Context, autoStart bool) error {
	cfg := a.cfg
	log := a.log

	manager := services.NewSessionManager(a.sessionFactory(domain.Role(cfg.Stream.Role)), log)
	if autoStart {
		if _, err := manager.Start(ctx, ""); err != nil {
			return err
		}
	}

	if cfg.Backup.Enabled {
		scheduler, err := a.archiveScheduler(cfg.Backup.Directory)
		if err != nil {
			return err
		}
		go scheduler.Start(ctx)
		defer scheduler.Stop()
	}

	srv := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      a.controlRouter(manager, prometheus.DefaultGatherer),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Infow("starting control API", "address", cfg.Server.Address)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
		log.Info("shutting down control API")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := manager.Shutdown(shutdownCtx); err != nil {
		log.Errorw("error stopping session", "error", err)
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorw("error during server shutdown", "error", err)
		if closeErr := srv.Close(); closeErr != nil {
			log.Errorw("error force closing server", "error", closeErr)
		}
	} else {
		log.Info("server shutdown gracefully")
	}
	return nil
}
