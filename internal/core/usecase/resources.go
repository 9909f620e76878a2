package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/kirillkom/directory-console/internal/core/domain"
	"github.com/kirillkom/directory-console/internal/core/ports"
	"github.com/kirillkom/directory-console/internal/core/synccache"
)

// Resources binds cache keys to directory API reads.
type Resources struct {
	api    ports.DirectoryAPI
	cache  *synccache.Cache
	maxAge time.Duration
}

// NewResources returns a loader over cache. Loads reuse a cached value younger
// than maxAge; zero means every load refetches.
func NewResources(api ports.DirectoryAPI, cache *synccache.Cache, maxAge time.Duration) *Resources {
	return &Resources{api: api, cache: cache, maxAge: maxAge}
}

func (r *Resources) Cache() *synccache.Cache { return r.cache }

// Fetcher returns the network read for key.
func (r *Resources) Fetcher(key synccache.Key) synccache.Fetcher {
	siteID := key.SiteID
	switch key.Kind {
	case synccache.KindSites:
		return func(ctx context.Context) (any, error) { return r.api.ListSites(ctx) }
	case synccache.KindSite:
		return func(ctx context.Context) (any, error) {
			site, err := r.api.GetSite(ctx, siteID)
			if err != nil {
				return nil, err
			}
			return *site, nil
		}
	case synccache.KindImports:
		return func(ctx context.Context) (any, error) { return r.api.ListImportJobs(ctx, siteID) }
	case synccache.KindEstablishments:
		return func(ctx context.Context) (any, error) { return r.api.ListEstablishments(ctx, siteID) }
	case synccache.KindPages:
		return func(ctx context.Context) (any, error) { return r.api.ListPages(ctx, siteID) }
	case synccache.KindPrompts:
		return func(ctx context.Context) (any, error) { return r.api.ListPrompts(ctx, siteID) }
	default:
		return func(context.Context) (any, error) {
			return nil, fmt.Errorf("no fetcher for %s", key)
		}
	}
}

// Load returns the slot for key, refreshing it when it is stale or older
// than maxAge. A failed refresh of a slot that already holds a value is not
// an error: the stale snapshot is returned with Err set.
func (r *Resources) Load(ctx context.Context, key synccache.Key) (synccache.Snapshot, error) {
	snap := r.cache.Get(key)
	if snap.HasValue && !snap.Stale && (r.maxAge > 0 && snap.Age(time.Now()) < r.maxAge) {
		return snap, nil
	}

	fresh, err := r.cache.Fetch(ctx, key, r.Fetcher(key))
	if err != nil {
		if fresh.HasValue {
			return fresh, nil
		}
		return fresh, err
	}
	return fresh, nil
}

// Subscribe attaches a live viewer to key.
func (r *Resources) Subscribe(key synccache.Key, interval time.Duration) (*synccache.Subscription, error) {
	return r.cache.Subscribe(key, r.Fetcher(key), interval)
}

func loadValue[T any](ctx context.Context, r *Resources, key synccache.Key) (T, synccache.Snapshot, error) {
	snap, err := r.Load(ctx, key)
	if err != nil {
		var zero T
		return zero, snap, err
	}
	v, ok := synccache.Value[T](snap)
	if !ok {
		var zero T
		return zero, snap, fmt.Errorf("unexpected value type %T for %s", snap.Value, key)
	}
	return v, snap, nil
}

func (r *Resources) Sites(ctx context.Context) ([]domain.Site, synccache.Snapshot, error) {
	return loadValue[[]domain.Site](ctx, r, synccache.SitesKey())
}

// Site loads one site. When the slot is empty it is first seeded with the
// copy held by the site list, so a failed refresh still shows the site.
func (r *Resources) Site(ctx context.Context, siteID int64) (domain.Site, synccache.Snapshot, error) {
	key := synccache.SiteKey(siteID)
	if !r.cache.Get(key).HasValue {
		if list, ok := synccache.Value[[]domain.Site](r.cache.Get(synccache.SitesKey())); ok {
			for _, site := range list {
				if site.ID == siteID {
					r.cache.Set(key, site)
					r.cache.Invalidate(key)
					break
				}
			}
		}
	}
	return loadValue[domain.Site](ctx, r, key)
}

func (r *Resources) ImportJobs(ctx context.Context, siteID int64) ([]domain.ImportJob, synccache.Snapshot, error) {
	return loadValue[[]domain.ImportJob](ctx, r, synccache.ImportsKey(siteID))
}

func (r *Resources) Establishments(ctx context.Context, siteID int64) ([]domain.Establishment, synccache.Snapshot, error) {
	return loadValue[[]domain.Establishment](ctx, r, synccache.EstablishmentsKey(siteID))
}

func (r *Resources) Pages(ctx context.Context, siteID int64) ([]domain.ManualPage, synccache.Snapshot, error) {
	return loadValue[[]domain.ManualPage](ctx, r, synccache.PagesKey(siteID))
}

func (r *Resources) Prompts(ctx context.Context, siteID int64) ([]domain.PromptTemplate, synccache.Snapshot, error) {
	return loadValue[[]domain.PromptTemplate](ctx, r, synccache.PromptsKey(siteID))
}
