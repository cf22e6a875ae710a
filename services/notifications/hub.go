package notifications

import (
	"sync"

	"convene/models"
)

// Hub routes pushed activity events to per-user session feeds. It does not
// manage the transport connection itself; whatever delivers events (socket,
// poller, in-process caller) hands them to Publish. Delivery is best effort:
// events for a user with no active feed are dropped, and consumers must not
// assume every event arrives.
type Hub struct {
	mu    sync.RWMutex
	feeds map[string]*Feed
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{feeds: make(map[string]*Feed)}
}

// Subscribe returns the feed for userID, creating it on first use.
func (h *Hub) Subscribe(userID string) *Feed {
	h.mu.Lock()
	defer h.mu.Unlock()

	feed, ok := h.feeds[userID]
	if !ok {
		feed = NewFeed(userID)
		h.feeds[userID] = feed
	}
	return feed
}

// Unsubscribe drops the feed for userID, ending its session.
func (h *Hub) Unsubscribe(userID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.feeds, userID)
}

// Feed returns the feed for userID, or nil when the user has no session.
func (h *Hub) Feed(userID string) *Feed {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.feeds[userID]
}

// Publish delivers an event to recipientID's feed, if any. The feed applies
// its own self-suppression and validation.
func (h *Hub) Publish(recipientID string, ev models.NotificationEvent) {
	if feed := h.Feed(recipientID); feed != nil {
		feed.OnEvent(ev)
	}
}
