package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/deusflow/feedpress/internal/app"
	"github.com/deusflow/feedpress/internal/config"
	"github.com/deusflow/feedpress/internal/logger"
	"github.com/deusflow/feedpress/internal/metrics"
	"github.com/deusflow/feedpress/internal/monitor"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Error("configuration error", "error", err)
		os.Exit(1)
	}

	log := logger.Init(cfg.Debug, cfg.LogFormat)
	logger.Debug("configuration loaded",
		"wp_url", cfg.WPURL, "state_backend", cfg.StateBackend, "engines", cfg.Engines, "force", cfg.Force)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewCollector(reg)

	// Check if we should start HTTP server for monitoring
	if cfg.EnableMonitoring {
		srv := monitor.NewServer(cfg.MonitoringPort, monitor.NewRouter(collector, reg), log)
		srv.Start()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Warn("monitoring server shutdown", "error", err)
			}
		}()
	}

	a := app.Build(ctx, cfg, collector, log)
	defer func() {
		if err := a.Close(); err != nil {
			logger.Warn("failed to close resources", "error", err)
		}
	}()

	summary := a.Run(ctx)
	if summary.Interrupted {
		logger.Info("stopped early on signal", "processed", len(summary.Outcomes))
	}
	fmt.Println(summary.String())
}
