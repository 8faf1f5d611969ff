// Package main provides the jelly HTTP server. It checks flow graphs posted
// by the editor and exposes health and Prometheus endpoints.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/easydapp/jelly-packages/internal/app/services"
	"github.com/easydapp/jelly-packages/internal/infrastructure/config"
	"github.com/easydapp/jelly-packages/internal/infrastructure/log"
	"github.com/easydapp/jelly-packages/internal/infrastructure/metrics"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "jelly-server:", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	v := viper.New()
	cmd := &cobra.Command{
		Use:          "jelly-server",
		Short:        "Serve flow graph checks over HTTP",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(v.GetString("config"))
			if err != nil {
				return err
			}
			if addr := v.GetString("addr"); addr != "" {
				cfg.Server.Addr = addr
			}
			return serve(cmd.Context(), cfg)
		},
	}
	cmd.Flags().String("config", "", "path to a YAML config file")
	cmd.Flags().String("addr", "", "listen address, overrides server.addr")
	_ = v.BindPFlags(cmd.Flags())
	v.SetEnvPrefix("JELLY")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return cmd
}

func serve(ctx context.Context, cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if err := log.Init(cfg.Log.Level, log.Format(cfg.Log.Format)); err != nil {
		return err
	}
	defer log.Sync()
	logger := log.Get()

	s, err := services.NewCheckServiceFromConfig(ctx, cfg,
		services.WithLogger(logger),
		services.WithMetrics(metrics.Default()))
	if err != nil {
		return err
	}
	defer s.Close()

	gin.SetMode(gin.ReleaseMode)
	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           newRouter(s, prometheus.DefaultGatherer, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting jelly server",
			zap.String("addr", cfg.Server.Addr),
			zap.String("store", cfg.Store.Driver))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
