package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/kirillkom/directory-console/internal/core/domain"
)

func waitForMarkers(t *testing.T, w *MapWatch, want int) EstablishmentsMapView {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case view, ok := <-w.Views():
			if !ok {
				t.Fatalf("watch closed before %d markers arrived", want)
			}
			if !view.Stale && len(view.Markers) == want {
				return view
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %d markers", want)
		}
	}
}

func TestWatchMapRefetchesWhenImportCompletes(t *testing.T) {
	h := newHarness(t, time.Minute)
	m := newTestMonitor(h, DefaultPollPolicy())
	views := NewViews(h.resources, m, time.Hour)

	w, err := views.WatchMap(context.Background(), 1)
	if err != nil {
		t.Fatalf("watch map: %v", err)
	}
	defer w.Close()
	waitForMarkers(t, w, 0)

	observeJobs(m, h.cache, 1, job(1, domain.JobStatusRunning, 2, 0, 0))
	h.api.mu.Lock()
	h.api.establishments[1] = []domain.Establishment{{ID: 9, SiteID: 1, Siret: "9", GeoLat: ptr(48.85), GeoLon: ptr(2.35)}}
	h.api.mu.Unlock()
	observeJobs(m, h.cache, 1, job(1, domain.JobStatusCompleted, 3, 0, 0))

	view := waitForMarkers(t, w, 1)
	if view.Center != (LatLon{Lat: 48.85, Lon: 2.35}) {
		t.Fatalf("unexpected center %+v", view.Center)
	}
	if n := h.api.count("ListEstablishments"); n != 2 {
		t.Fatalf("expected one refetch after completion, got %d reads", n)
	}
}

func TestWatchMapEndsWithContext(t *testing.T) {
	h := newHarness(t, time.Minute)
	views := NewViews(h.resources, newTestMonitor(h, DefaultPollPolicy()), time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	w, err := views.WatchMap(ctx, 1)
	if err != nil {
		t.Fatalf("watch map: %v", err)
	}
	waitForMarkers(t, w, 0)
	cancel()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-w.Views():
			if !ok {
				w.Close()
				return
			}
		case <-deadline:
			t.Fatal("watch did not end with its context")
		}
	}
}
