package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kirillkom/directory-console/internal/bootstrap"
	"github.com/kirillkom/directory-console/internal/config"
	"github.com/kirillkom/directory-console/internal/core/usecase"
	"github.com/kirillkom/directory-console/internal/observability/logging"
)

const siteListInterval = time.Minute

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.NewJSONLogger("watcher", "info").Error("config_load_failed", "error", err)
		os.Exit(1)
	}
	logger := logging.New(os.Stdout, "watcher", cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, logger, bootstrap.Options{Service: "watcher", WithPublisher: true})
	if err != nil {
		logger.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()
	if app.Publisher == nil {
		logger.Warn("transitions_not_published", "reason", "NATS_URL is empty")
	}

	mux := http.NewServeMux()
	mux.Handle("GET /metrics", app.Metrics.Handler())
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	server := &http.Server{
		Addr:         ":" + cfg.WatcherMetricsPort,
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		logger.Info("watcher_metrics_listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("watcher_metrics_server_failed", "error", err)
		}
	}()

	watcher := usecase.NewSiteWatcher(app.Resources, app.Monitor, logger, siteListInterval)
	logger.Info("watcher_started", "site_ids", cfg.WatchSiteIDs, "subject", cfg.NATSSubject)
	if err := watcher.Run(ctx, cfg.WatchSiteIDs); err != nil {
		logger.Error("watcher_failed", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("watcher_metrics_shutdown_failed", "error", err)
	}
}
