package synccache

import (
	"context"
	"time"
)

// Subscription is one live viewer of a slot.
//
// Updates delivers snapshots as the slot changes. The channel holds at most
// one pending snapshot: a slow reader only ever sees the latest state. The
// channel is closed by Close or when the cache shuts down.
type Subscription struct {
	id       string
	key      Key
	cache    *Cache
	interval time.Duration
	updates  chan Snapshot
	closed   bool
}

func (s *Subscription) ID() string { return s.id }

func (s *Subscription) Key() Key { return s.key }

func (s *Subscription) Updates() <-chan Snapshot { return s.updates }

// Snapshot returns the current slot state.
func (s *Subscription) Snapshot() Snapshot { return s.cache.Get(s.key) }

// SetInterval changes the refresh interval requested by this viewer.
// Zero or negative means the viewer does not need polling.
func (s *Subscription) SetInterval(interval time.Duration) {
	s.cache.setInterval(s, interval)
}

// Refresh forces a fetch of the slot, joining one already in flight.
func (s *Subscription) Refresh(ctx context.Context) (Snapshot, error) {
	return s.cache.Fetch(ctx, s.key, nil)
}

// Close detaches the viewer. Polling for the slot stops once no remaining
// subscriber asks for it. Close is idempotent.
func (s *Subscription) Close() {
	s.cache.unsubscribe(s)
}

// deliver replaces any undelivered snapshot with snap. Callers hold cache.mu.
func (s *Subscription) deliver(snap Snapshot) {
	if s.closed {
		return
	}
	select {
	case s.updates <- snap:
		return
	default:
	}
	select {
	case <-s.updates:
	default:
	}
	select {
	case s.updates <- snap:
	default:
	}
}

type poller struct {
	interval time.Duration
	stop     chan struct{}
	reset    chan time.Duration
}

// reconcilePollerLocked starts, retunes or stops the slot poller so that it
// runs at the slot's effective interval. It reports whether a new poller was
// started with an immediate first fetch.
func (c *Cache) reconcilePollerLocked(s *slot, fetchNow bool) bool {
	interval := s.effectiveInterval()

	switch {
	case interval <= 0 && s.poller != nil:
		close(s.poller.stop)
		s.poller = nil
		c.logger.Debug("cache_polling_stopped", "key", s.key.String())
		return false
	case interval <= 0:
		return false
	case s.poller == nil:
		p := &poller{
			interval: interval,
			stop:     make(chan struct{}),
			reset:    make(chan time.Duration, 1),
		}
		s.poller = p
		c.wg.Add(1)
		go c.poll(s.key, p, fetchNow)
		c.logger.Debug("cache_polling_started", "key", s.key.String(), "interval", interval.String())
		return fetchNow
	case s.poller.interval != interval:
		s.poller.interval = interval
		select {
		case <-s.poller.reset:
		default:
		}
		s.poller.reset <- interval
		return false
	default:
		return false
	}
}

// poll refreshes the slot every interval, measured from the end of the
// previous fetch, so fetches of one poller never overlap.
func (c *Cache) poll(key Key, p *poller, fetchNow bool) {
	defer c.wg.Done()

	interval := p.interval
	wait := interval
	if fetchNow {
		wait = 0
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()

	lastEnd := time.Now()
	for {
		select {
		case <-p.stop:
			return
		case <-c.ctx.Done():
			return
		case next := <-p.reset:
			interval = next
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			remaining := interval - time.Since(lastEnd)
			if remaining < 0 {
				remaining = 0
			}
			timer.Reset(remaining)
			continue
		case <-timer.C:
		}

		c.mu.Lock()
		s, ok := c.slots[key]
		var fetcher Fetcher
		if ok {
			fetcher = s.fetcher
		}
		c.mu.Unlock()
		if fetcher == nil {
			return
		}

		select {
		case <-c.refresh(key, fetcher):
		case <-p.stop:
			return
		case <-c.ctx.Done():
			return
		}
		lastEnd = time.Now()
		timer.Reset(interval)
	}
}
