package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpadapter "github.com/kirillkom/directory-console/internal/adapters/http"
	"github.com/kirillkom/directory-console/internal/bootstrap"
	"github.com/kirillkom/directory-console/internal/config"
	"github.com/kirillkom/directory-console/internal/observability/logging"
	"github.com/kirillkom/directory-console/internal/observability/metrics"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.NewJSONLogger("dashboard", "info").Error("config_load_failed", "error", err)
		os.Exit(1)
	}
	logger := logging.New(os.Stdout, "dashboard", cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, logger, bootstrap.Options{Service: "dashboard", WithPublisher: true})
	if err != nil {
		logger.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	httpMetrics := metrics.NewHTTPServerMetrics("dashboard", app.Metrics.Registry())
	router := httpadapter.NewRouter(app.Views, app.Directory, app.Monitor, app.Exports, httpMetrics, logger, httpadapter.Options{
		RateLimitRPS:   cfg.DashboardRateLimitRPS,
		RateLimitBurst: cfg.DashboardRateLimitBurst,
		MaxInFlight:    cfg.DashboardMaxInFlight,
	})
	server := &http.Server{
		Addr:        ":" + cfg.DashboardPort,
		Handler:     router.Handler(),
		ReadTimeout: 30 * time.Second,
		// Event streams stay open, so no write timeout.
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		logger.Info("dashboard_listening", "addr", server.Addr, "directory_api", cfg.DirectoryAPIURL)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("dashboard_server_failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("dashboard_shutdown_failed", "error", err)
	}
}
