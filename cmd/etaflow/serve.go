package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/okian/etaflow/internal/adapters/http/api"
	"github.com/okian/etaflow/internal/adapters/http/swagger"
	"github.com/okian/etaflow/internal/config"
	"github.com/okian/etaflow/pkg/logger"
)

// HTTP server timeout constants.
const (
	readTimeout       = 10 * time.Second
	writeTimeout      = 60 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 30 * time.Second
	estimateTimeout   = 45 * time.Second
)

func newServeCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the estimate API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return c.serve(ctx)
		},
	}
}

func (c *cli) serve(ctx context.Context) error {
	p, err := buildPipeline(ctx, c.cfg, c.log)
	if err != nil {
		c.log.Error(ctx, "failed to build pipeline", logger.Error(err))
		return err
	}
	defer func() { _ = p.Close() }()

	if err := p.orch.Start(ctx); err != nil {
		return err
	}
	defer p.orch.Stop()

	if path := os.Getenv(config.EnvConfigPath); path != "" {
		go func() {
			err := config.Watch(ctx, path, c.log.Named("config"), func(next *config.Config) {
				if err := logger.SetLevelString(next.LogLevel); err != nil {
					c.log.Warn(ctx, "ignoring invalid log_level", logger.String("log_level", next.LogLevel))
					return
				}
				c.log.Info(ctx, "log level updated", logger.String("log_level", next.LogLevel))
			})
			if err != nil {
				c.log.Warn(ctx, "config watch stopped", logger.Error(err))
			}
		}()
	}

	mux := http.NewServeMux()
	swagger.Register(ctx, mux)
	api.NewServer(p.orch, p.orch,
		api.WithTimeout(estimateTimeout),
		api.WithLogger(c.log.Named("api")),
	).Register(ctx, mux)

	srv := &http.Server{
		Addr:              c.cfg.Addr,
		Handler:           mux,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		c.log.Info(ctx, "starting HTTP server", logger.String("addr", c.cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			c.log.Error(ctx, "HTTP server failed", logger.Error(err))
			return err
		}
	case <-ctx.Done():
	}
	c.log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		c.log.Error(ctx, "server shutdown failed", logger.Error(err))
		return err
	}
	c.log.Info(ctx, "server stopped")
	return nil
}
