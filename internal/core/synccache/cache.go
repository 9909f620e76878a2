// Package synccache keeps client-side copies of server resources in sync.
//
// Every slot is addressed by a Key. Fetches for a slot are tagged with a
// per-slot sequence number; a response is applied only if no newer request
// (or Set) was issued for the same slot after it, so a slow response can
// never overwrite fresher data. Concurrent fetch triggers for one slot share
// a single in-flight request until the slot is invalidated.
//
// Subscriptions may carry a refresh interval. The slot polls at the smallest
// interval among its subscribers, waiting for each fetch to finish before the
// next period starts, and stops polling when its last subscriber leaves.
package synccache

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

var (
	ErrClosed    = errors.New("synccache: cache closed")
	ErrNoFetcher = errors.New("synccache: no fetcher registered for key")
)

const defaultFetchTimeout = 20 * time.Second

type Options struct {
	// FetchTimeout bounds a single fetch. Zero means 20s.
	FetchTimeout time.Duration
	Logger       *slog.Logger
	Observer     Observer
	Now          func() time.Time
}

type Cache struct {
	fetchTimeout time.Duration
	logger       *slog.Logger
	observer     Observer
	now          func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	flights singleflight.Group

	mu     sync.Mutex
	slots  map[Key]*slot
	closed bool
}

type slot struct {
	key       Key
	fetcher   Fetcher
	value     any
	hasValue  bool
	stale     bool
	err       error
	updatedAt time.Time
	version   uint64
	issued    uint64
	inFlight  int
	subs      map[string]*Subscription
	poller    *poller
}

func New(opts Options) *Cache {
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = defaultFetchTimeout
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Observer == nil {
		opts.Observer = noopObserver{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Cache{
		fetchTimeout: opts.FetchTimeout,
		logger:       opts.Logger,
		observer:     opts.Observer,
		now:          opts.Now,
		ctx:          ctx,
		cancel:       cancel,
		slots:        make(map[Key]*slot),
	}
}

// Close stops every poller, closes all subscriptions and waits for the
// polling goroutines to exit. In-flight fetches are cancelled.
func (c *Cache) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	for _, s := range c.slots {
		for id, sub := range s.subs {
			sub.closed = true
			close(sub.updates)
			delete(s.subs, id)
		}
		if s.poller != nil {
			close(s.poller.stop)
			s.poller = nil
		}
	}
	c.mu.Unlock()

	c.cancel()
	c.wg.Wait()
}

// Get returns the current slot state without touching the network.
// A slot that was never fetched is reported stale and without value.
func (c *Cache) Get(key Key) Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.slots[key]
	if !ok {
		return Snapshot{Key: key, Stale: true}
	}
	return s.snapshotLocked()
}

// Set stores value as the fresh slot content and supersedes any fetch
// still in flight for the key.
func (c *Cache) Set(key Key, value any) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	s := c.slotLocked(key)
	s.issued++
	s.value = value
	s.hasValue = true
	s.stale = false
	s.err = nil
	s.updatedAt = c.now()
	s.version++
	c.notifyLocked(s)
	c.mu.Unlock()

	c.flights.Forget(key.String())
}

// Invalidate marks the slot stale. With at least one active subscriber the
// slot is refetched immediately; otherwise the refetch waits for the next
// subscription or explicit fetch. A response to a request issued before the
// invalidation is discarded.
func (c *Cache) Invalidate(key Key) {
	c.mu.Lock()
	s, ok := c.slots[key]
	if !ok || c.closed {
		c.mu.Unlock()
		return
	}
	if s.inFlight > 0 {
		s.issued++
	}
	s.stale = true
	s.version++
	c.notifyLocked(s)
	fetcher := s.fetcher
	active := len(s.subs) > 0
	c.mu.Unlock()

	// A request issued before the invalidation must not be joined by later triggers.
	c.flights.Forget(key.String())

	if active && fetcher != nil {
		c.logger.Debug("cache_invalidate_refetch", "key", key.String())
		c.refresh(key, fetcher)
	}
}

// Fetch refreshes the slot and waits for the result. A fetch already in
// flight for the key is joined rather than duplicated. The returned error is
// the fetch error, in which case the snapshot still carries the previous value.
func (c *Cache) Fetch(ctx context.Context, key Key, fetcher Fetcher) (Snapshot, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return Snapshot{Key: key}, ErrClosed
	}
	s := c.slotLocked(key)
	if fetcher != nil {
		s.fetcher = fetcher
	}
	fetcher = s.fetcher
	c.mu.Unlock()

	if fetcher == nil {
		return Snapshot{Key: key}, ErrNoFetcher
	}

	select {
	case res := <-c.refresh(key, fetcher):
		if res.Err != nil {
			return c.Get(key), res.Err
		}
		snap := res.Val.(Snapshot)
		return snap, snap.Err
	case <-ctx.Done():
		return c.Get(key), ctx.Err()
	}
}

// Subscribe attaches a live viewer to the slot. The current value, if any,
// is delivered right away. A positive interval makes the slot poll while the
// subscription is open.
func (c *Cache) Subscribe(key Key, fetcher Fetcher, interval time.Duration) (*Subscription, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrClosed
	}
	s := c.slotLocked(key)
	if fetcher != nil {
		s.fetcher = fetcher
	}
	if s.fetcher == nil {
		c.mu.Unlock()
		return nil, ErrNoFetcher
	}

	sub := &Subscription{
		id:       uuid.NewString(),
		key:      key,
		cache:    c,
		interval: interval,
		updates:  make(chan Snapshot, 1),
	}
	s.subs[sub.id] = sub
	if s.hasValue {
		sub.deliver(s.snapshotLocked())
	}

	needFetch := !s.hasValue || s.stale
	started := c.reconcilePollerLocked(s, needFetch)
	count := len(s.subs)
	fetcher = s.fetcher
	c.mu.Unlock()

	c.observer.SubscribersChanged(key, count)
	if needFetch && !started {
		c.refresh(key, fetcher)
	}
	return sub, nil
}

func (c *Cache) unsubscribe(sub *Subscription) {
	c.mu.Lock()
	if sub.closed {
		c.mu.Unlock()
		return
	}
	sub.closed = true
	close(sub.updates)

	s, ok := c.slots[sub.key]
	if !ok {
		c.mu.Unlock()
		return
	}
	delete(s.subs, sub.id)
	c.reconcilePollerLocked(s, false)
	count := len(s.subs)
	c.mu.Unlock()

	c.observer.SubscribersChanged(sub.key, count)
}

func (c *Cache) setInterval(sub *Subscription, interval time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if sub.closed || sub.interval == interval {
		return
	}
	sub.interval = interval
	if s, ok := c.slots[sub.key]; ok {
		c.reconcilePollerLocked(s, false)
	}
}

func (c *Cache) refresh(key Key, fetcher Fetcher) <-chan singleflight.Result {
	return c.flights.DoChan(key.String(), func() (any, error) {
		return c.fetch(key, fetcher)
	})
}

func (c *Cache) fetch(key Key, fetcher Fetcher) (Snapshot, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return Snapshot{Key: key}, ErrClosed
	}
	s := c.slotLocked(key)
	s.issued++
	seq := s.issued
	s.inFlight++
	c.mu.Unlock()

	c.observer.FetchStarted(key)
	start := time.Now()
	ctx, cancel := context.WithTimeout(c.ctx, c.fetchTimeout)
	value, err := fetcher(ctx)
	cancel()
	c.observer.FetchFinished(key, time.Since(start), err)

	return c.apply(key, seq, value, err), nil
}

func (c *Cache) apply(key Key, seq uint64, value any, err error) Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.slotLocked(key)
	s.inFlight--

	if seq != s.issued {
		c.observer.ResponseDiscarded(key)
		c.logger.Debug("cache_response_discarded", "key", key.String(), "seq", seq, "latest", s.issued)
		return s.snapshotLocked()
	}

	if err != nil {
		s.stale = true
		s.err = err
		c.logger.Warn("cache_fetch_failed", "key", key.String(), "has_value", s.hasValue, "error", err)
	} else {
		s.value = value
		s.hasValue = true
		s.stale = false
		s.err = nil
		s.updatedAt = c.now()
	}
	s.version++
	c.notifyLocked(s)
	return s.snapshotLocked()
}

func (c *Cache) slotLocked(key Key) *slot {
	s, ok := c.slots[key]
	if !ok {
		s = &slot{key: key, subs: make(map[string]*Subscription)}
		c.slots[key] = s
	}
	return s
}

func (c *Cache) notifyLocked(s *slot) {
	if len(s.subs) == 0 {
		return
	}
	snap := s.snapshotLocked()
	for _, sub := range s.subs {
		sub.deliver(snap)
	}
}

func (s *slot) snapshotLocked() Snapshot {
	return Snapshot{
		Key:       s.key,
		Value:     s.value,
		HasValue:  s.hasValue,
		Stale:     s.stale || !s.hasValue,
		Fetching:  s.inFlight > 0,
		Err:       s.err,
		UpdatedAt: s.updatedAt,
		Version:   s.version,
	}
}

func (s *slot) effectiveInterval() time.Duration {
	var interval time.Duration
	for _, sub := range s.subs {
		if sub.interval <= 0 {
			continue
		}
		if interval == 0 || sub.interval < interval {
			interval = sub.interval
		}
	}
	return interval
}
