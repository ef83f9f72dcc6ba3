package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/BigKAA/dbprobe/dbprobe"
	"github.com/BigKAA/dbprobe/internal/config"
	"github.com/BigKAA/dbprobe/internal/server"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd() *cobra.Command {
	var (
		addr        string
		parallelism int
		watch       bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve probe results and metrics over HTTP",
		Long: `Serve GET /healthz, GET /probes, GET /probes/{name} and GET /metrics.
Every request runs its own probes; /probes answers 503 when any endpoint fails.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer func() { _ = e.logger.Sync() }()

			reg := prometheus.NewRegistry()
			reg.MustRegister(
				collectors.NewGoCollector(),
				collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			)
			metrics, err := dbprobe.NewMetricsExporter(dbprobe.WithMetricsRegisterer(reg))
			if err != nil {
				return err
			}

			srv := server.New(e.logger, e.prober(dbprobe.WithMetrics(metrics)), e.cfg.Endpoints, reg)
			if parallelism > 0 {
				srv.Parallelism = parallelism
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			if path := configPath(); watch && path != "" {
				go func() {
					err := config.Watch(ctx, path, e.logger, func(c *config.Config) {
						next := &env{cfg: c, logger: e.logger}
						srv.Reload(next.prober(dbprobe.WithMetrics(metrics)), c.Endpoints)
					})
					if err != nil {
						e.logger.Error("config watcher stopped", zap.Error(err))
					}
				}()
			}

			return listenAndServe(ctx, e.logger, addr, srv.Router(), writeTimeout(e.cfg.Timeout))
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")
	cmd.Flags().IntVar(&parallelism, "parallelism", server.DefaultParallelism, "concurrent probes per /probes request")
	cmd.Flags().BoolVar(&watch, "watch", true, "reload endpoints, timeout and diagnose when the config file changes (log settings need a restart)")
	return cmd
}

// configPath is the file Load read, if any.
func configPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	return os.Getenv(config.EnvConfigPath)
}

// writeTimeout leaves room for a full probe before the response is cut off.
func writeTimeout(probeTimeout time.Duration) time.Duration {
	if probeTimeout <= 0 {
		return 0
	}
	return probeTimeout + 5*time.Second
}

func listenAndServe(ctx context.Context, logger *zap.Logger, addr string, h http.Handler, wt time.Duration) error {
	hs := &http.Server{
		Addr:         addr,
		Handler:      h,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: wt,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server started", zap.String("addr", addr))
		if err := hs.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := hs.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown failed", zap.Error(err))
		return err
	}
	return nil
}
