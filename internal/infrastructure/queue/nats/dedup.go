package nats

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
)

const defaultDedupWindow = 10 * time.Minute

// eventWindow remembers delivered event ids for a while. Core NATS does not
// de-duplicate, so a publish retried after a lost ack reaches subscribers twice.
type eventWindow struct {
	seen *gocache.Cache
}

func newEventWindow(ttl time.Duration) *eventWindow {
	if ttl <= 0 {
		ttl = defaultDedupWindow
	}
	return &eventWindow{seen: gocache.New(ttl, ttl)}
}

// first reports whether eventID has not been delivered within the window.
// Transitions without an id are always delivered.
func (w *eventWindow) first(eventID string) bool {
	if eventID == "" {
		return true
	}
	return w.seen.Add(eventID, struct{}{}, gocache.DefaultExpiration) == nil
}
