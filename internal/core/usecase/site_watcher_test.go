package usecase

import (
	"context"
	"slices"
	"testing"
	"time"

	"github.com/kirillkom/directory-console/internal/core/domain"
)

func waitWatching(t *testing.T, w *SiteWatcher, want []int64) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if slices.Equal(w.Watching(), want) {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("watching %v, want %v", w.Watching(), want)
}

func TestSiteWatcherFollowsSiteList(t *testing.T) {
	h := newHarness(t, 0)
	h.api.mu.Lock()
	h.api.sites = []domain.Site{{ID: 1, Name: "A", Slug: "a"}, {ID: 2, Name: "B", Slug: "b"}}
	h.api.mu.Unlock()

	m := newTestMonitor(h, PollPolicy{Interval: 10 * time.Millisecond})
	w := NewSiteWatcher(h.resources, m, discardLogger(), 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx, nil) }()

	waitWatching(t, w, []int64{1, 2})

	h.api.mu.Lock()
	h.api.sites = h.api.sites[:1]
	h.api.mu.Unlock()
	waitWatching(t, w, []int64{1})

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}
	if got := w.Watching(); len(got) != 0 {
		t.Fatalf("watches left after Run: %v", got)
	}
}

func TestSiteWatcherFixedSites(t *testing.T) {
	h := newHarness(t, 0)
	m := newTestMonitor(h, PollPolicy{Interval: 10 * time.Millisecond})
	w := NewSiteWatcher(h.resources, m, discardLogger(), time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx, []int64{3, 4}) }()

	waitWatching(t, w, []int64{3, 4})
	if h.api.count("ListSites") != 0 {
		t.Fatal("fixed sites must not read the site list")
	}

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Run() error = %v", err)
	}
}
