// Package bootstrap wires the console components from configuration.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kirillkom/directory-console/internal/config"
	"github.com/kirillkom/directory-console/internal/core/ports"
	"github.com/kirillkom/directory-console/internal/core/synccache"
	"github.com/kirillkom/directory-console/internal/core/usecase"
	"github.com/kirillkom/directory-console/internal/infrastructure/directoryapi"
	"github.com/kirillkom/directory-console/internal/infrastructure/export/xlsx"
	"github.com/kirillkom/directory-console/internal/infrastructure/queue/nats"
	"github.com/kirillkom/directory-console/internal/infrastructure/resilience"
	"github.com/kirillkom/directory-console/internal/infrastructure/storage/localfs"
	"github.com/kirillkom/directory-console/internal/observability/metrics"
)

type App struct {
	Config  config.Config
	Logger  *slog.Logger
	Metrics *metrics.SyncMetrics

	API       ports.DirectoryAPI
	Cache     *synccache.Cache
	Resources *usecase.Resources
	Mutations *usecase.MutationCoordinator
	Monitor   *usecase.ImportMonitor
	Directory *usecase.DirectoryService
	Views     *usecase.Views
	Exports   *usecase.ExportUseCase
	Publisher *nats.TransitionPublisher
	Executor  *resilience.Executor

	closeFn func()
}

type Options struct {
	// Service labels logs and metrics.
	Service string
	// WithPublisher connects to NATS when NATS_URL is set.
	WithPublisher bool
}

func New(_ context.Context, cfg config.Config, logger *slog.Logger, opts Options) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	syncMetrics := metrics.NewSyncMetrics(opts.Service)

	executor := resilience.NewExecutor(cfg.Resilience,
		resilience.WithLogger(logger),
		resilience.WithStateListener(syncMetrics.RecordBreakerState),
	)

	client := directoryapi.New(cfg.DirectoryAPIURL, directoryapi.Options{
		Timeout:            cfg.DirectoryAPITimeout,
		RateLimitRPS:       cfg.DirectoryAPIRateLimitRPS,
		RateLimitBurst:     cfg.DirectoryAPIRateLimitBurst,
		ResilienceExecutor: executor,
		Logger:             logger,
	})

	cache := synccache.New(synccache.Options{
		FetchTimeout: cfg.CacheFetchTimeout,
		Logger:       logger,
		Observer:     syncMetrics,
	})

	var publisher *nats.TransitionPublisher
	if opts.WithPublisher && cfg.NATSURL != "" {
		p, err := nats.New(cfg.NATSURL, cfg.NATSSubject, nats.Options{
			Name:               "directory-console-" + opts.Service,
			ResilienceExecutor: executor,
			Logger:             logger,
		})
		if err != nil {
			cache.Close()
			return nil, fmt.Errorf("init transition publisher: %w", err)
		}
		publisher = p
	}

	storage, err := localfs.New(cfg.ExportPath)
	if err != nil {
		cache.Close()
		if publisher != nil {
			publisher.Close()
		}
		return nil, fmt.Errorf("init export storage: %w", err)
	}

	resources := usecase.NewResources(client, cache, cfg.CacheMaxAge)
	mutations := usecase.NewMutationCoordinator(cache, logger, syncMetrics)

	monitorOpts := []usecase.MonitorOption{usecase.WithTransitionRecorder(syncMetrics)}
	if publisher != nil {
		monitorOpts = append(monitorOpts, usecase.WithTransitionPublisher(publisher))
	}
	monitor := usecase.NewImportMonitor(resources, mutations, usecase.PollPolicy{
		Interval:                 cfg.ImportPollInterval,
		RelaxedInterval:          cfg.ImportRelaxedPollInterval,
		TerminalPollsBeforeRelax: cfg.ImportTerminalPollsBeforeRelax,
	}, logger, monitorOpts...)

	return &App{
		Config:  cfg,
		Logger:  logger,
		Metrics: syncMetrics,

		API:       client,
		Cache:     cache,
		Resources: resources,
		Mutations: mutations,
		Monitor:   monitor,
		Directory: usecase.NewDirectoryService(client, resources, mutations),
		Views:     usecase.NewViews(resources, monitor, cfg.EstablishmentsPollInterval),
		Exports:   usecase.NewExportUseCase(client, xlsx.New(), storage, logger),
		Publisher: publisher,
		Executor:  executor,

		closeFn: func() {
			cache.Close()
			if publisher != nil {
				publisher.Close()
			}
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
