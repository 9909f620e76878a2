package usecase

import (
	"context"
	"sync"

	"github.com/kirillkom/directory-console/internal/core/domain"
	"github.com/kirillkom/directory-console/internal/core/synccache"
)

// MapWatch follows the establishments map of one site.
type MapWatch struct {
	sub   *synccache.Subscription
	views chan EstablishmentsMapView
	done  chan struct{}
	once  sync.Once
}

// Views delivers the latest map. The channel is closed when the watch ends.
func (w *MapWatch) Views() <-chan EstablishmentsMapView { return w.views }

// Close stops the watch and releases its cache subscription.
func (w *MapWatch) Close() {
	w.once.Do(func() {
		w.sub.Close()
	})
	<-w.done
}

// WatchMap subscribes to a site's establishments, polled at the map interval.
// A completed import invalidates the slot, so the map is refetched right away
// while the watch is open.
func (v *Views) WatchMap(ctx context.Context, siteID int64) (*MapWatch, error) {
	if err := validSiteID("watch_map", siteID); err != nil {
		return nil, err
	}
	sub, err := v.resources.Subscribe(synccache.EstablishmentsKey(siteID), v.mapInterval)
	if err != nil {
		return nil, err
	}

	w := &MapWatch{
		sub:   sub,
		views: make(chan EstablishmentsMapView, 1),
		done:  make(chan struct{}),
	}
	go func() {
		defer close(w.done)
		defer close(w.views)
		for {
			select {
			case <-ctx.Done():
				w.once.Do(sub.Close)
				for range sub.Updates() {
				}
				return
			case snap, ok := <-sub.Updates():
				if !ok {
					return
				}
				establishments, _ := synccache.Value[[]domain.Establishment](snap)
				publishLatest(w.views, EstablishmentsMapView{
					MapView:   ProjectMap(establishments),
					Freshness: freshnessOf(snap),
				})
			}
		}
	}()
	return w, nil
}
