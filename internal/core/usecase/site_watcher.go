package usecase

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/kirillkom/directory-console/internal/core/domain"
	"github.com/kirillkom/directory-console/internal/core/synccache"
)

// SiteWatcher keeps one import watch running per monitored site. With no
// fixed site list it follows the site list and starts or stops watches as
// sites appear and disappear.
type SiteWatcher struct {
	resources         *Resources
	monitor           *ImportMonitor
	logger            *slog.Logger
	reconcileInterval time.Duration

	mu      sync.Mutex
	watches map[int64]context.CancelFunc
	wg      sync.WaitGroup
}

func NewSiteWatcher(resources *Resources, monitor *ImportMonitor, logger *slog.Logger, reconcileInterval time.Duration) *SiteWatcher {
	if logger == nil {
		logger = slog.Default()
	}
	if reconcileInterval <= 0 {
		reconcileInterval = time.Minute
	}
	return &SiteWatcher{
		resources:         resources,
		monitor:           monitor,
		logger:            logger,
		reconcileInterval: reconcileInterval,
		watches:           map[int64]context.CancelFunc{},
	}
}

// Watching returns the ids of the sites currently watched, sorted.
func (w *SiteWatcher) Watching() []int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	ids := make([]int64, 0, len(w.watches))
	for id := range w.watches {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Run blocks until ctx is done and every watch has ended.
func (w *SiteWatcher) Run(ctx context.Context, siteIDs []int64) error {
	defer w.wg.Wait()
	defer w.stopAll()

	if len(siteIDs) > 0 {
		w.reconcile(ctx, siteIDs)
		<-ctx.Done()
		return nil
	}

	sub, err := w.resources.Subscribe(synccache.SitesKey(), w.reconcileInterval)
	if err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			sub.Close()
			for range sub.Updates() {
			}
			return nil
		case snap, ok := <-sub.Updates():
			if !ok {
				return nil
			}
			// A failed refresh keeps the previous set rather than dropping sites.
			if snap.Err != nil {
				continue
			}
			sites, ok := synccache.Value[[]domain.Site](snap)
			if !ok {
				continue
			}
			ids := make([]int64, 0, len(sites))
			for _, site := range sites {
				ids = append(ids, site.ID)
			}
			w.reconcile(ctx, ids)
		}
	}
}

func (w *SiteWatcher) reconcile(ctx context.Context, siteIDs []int64) {
	w.mu.Lock()
	defer w.mu.Unlock()

	wanted := make(map[int64]struct{}, len(siteIDs))
	for _, id := range siteIDs {
		wanted[id] = struct{}{}
		if _, ok := w.watches[id]; ok {
			continue
		}
		siteCtx, cancel := context.WithCancel(ctx)
		watch, err := w.monitor.Watch(siteCtx, id)
		if err != nil {
			cancel()
			w.logger.Error("site_watch_failed", "site_id", id, "error", err)
			continue
		}
		w.watches[id] = cancel
		w.wg.Add(1)
		go w.follow(id, watch)
	}
	for id, cancel := range w.watches {
		if _, ok := wanted[id]; !ok {
			cancel()
			delete(w.watches, id)
			w.logger.Info("site_watch_stopped", "site_id", id)
		}
	}
}

func (w *SiteWatcher) follow(siteID int64, watch *ImportWatch) {
	defer w.wg.Done()
	defer watch.Close()
	for board := range watch.Boards() {
		if !board.HasData {
			continue
		}
		w.logger.Debug("import_board",
			"site_id", siteID,
			"jobs", len(board.Jobs),
			"all_terminal", board.AllTerminal,
			"stale", board.Stale,
			"poll_interval", board.PollInterval.String(),
		)
	}
}

func (w *SiteWatcher) stopAll() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for id, cancel := range w.watches {
		cancel()
		delete(w.watches, id)
	}
}
