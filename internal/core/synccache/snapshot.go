package synccache

import (
	"context"
	"time"
)

// Fetcher loads the current server value of one slot.
type Fetcher func(ctx context.Context) (any, error)

// Snapshot is a point-in-time copy of a slot.
//
// A failed fetch keeps the previous Value, sets Stale and records Err, so a
// viewer can keep rendering the last known data next to a staleness marker.
type Snapshot struct {
	Key       Key
	Value     any
	HasValue  bool
	Stale     bool
	Fetching  bool
	Err       error
	UpdatedAt time.Time
	Version   uint64
}

// Value extracts a typed value from a snapshot.
func Value[T any](s Snapshot) (T, bool) {
	var zero T
	if !s.HasValue {
		return zero, false
	}
	v, ok := s.Value.(T)
	if !ok {
		return zero, false
	}
	return v, true
}

// Age is the time elapsed since the last successful fetch.
func (s Snapshot) Age(now time.Time) time.Duration {
	if s.UpdatedAt.IsZero() {
		return 0
	}
	return now.Sub(s.UpdatedAt)
}

// Observer receives cache lifecycle signals, typically for metrics.
type Observer interface {
	FetchStarted(key Key)
	FetchFinished(key Key, duration time.Duration, err error)
	ResponseDiscarded(key Key)
	SubscribersChanged(key Key, count int)
}

type noopObserver struct{}

func (noopObserver) FetchStarted(Key) {}
func (noopObserver) FetchFinished(Key, time.Duration, error) {}
func (noopObserver) ResponseDiscarded(Key) {}
func (noopObserver) SubscribersChanged(Key, int) {}
