package notifications

import (
	"sync"

	"convene/models"
)

// FeedCapacity is the maximum number of events a session feed retains.
// When full, the oldest entry is evicted first.
const FeedCapacity = 5

// Feed is a bounded, recency-first view of recent activity for one user's
// session. Entries are ordered by insertion, newest first, and are keyed by a
// feed-local sequence number, not by subject: several events for the same
// thread coexist up to the capacity, each independently dismissible. The feed
// is ephemeral; nothing is persisted.
type Feed struct {
	mu      sync.Mutex
	userID  string
	seq     int64
	entries []models.NotificationEvent
	changed chan struct{}
}

// NewFeed creates an empty feed for the given user.
func NewFeed(userID string) *Feed {
	return &Feed{
		userID:  userID,
		changed: make(chan struct{}, 1),
	}
}

// UserID returns the user this feed belongs to.
func (f *Feed) UserID() string {
	return f.userID
}

// OnEvent applies one pushed event. Events triggered by the feed's own user
// are discarded (a user is never notified of their own action), and malformed
// events, missing subject or actor, are dropped silently: a delivery-format
// mismatch must not take the session down. Operations apply in arrival order.
func (f *Feed) OnEvent(ev models.NotificationEvent) {
	if ev.SubjectID == "" || ev.ActorID == "" {
		return
	}
	if ev.ActorID == f.userID {
		return
	}

	f.mu.Lock()
	f.seq++
	ev.ID = f.seq
	f.entries = append([]models.NotificationEvent{ev}, f.entries...)
	if len(f.entries) > FeedCapacity {
		f.entries = f.entries[:FeedCapacity]
	}
	f.mu.Unlock()

	f.signal()
}

// Dismiss removes the entry with the given id. Removal is positional: the
// remaining entries keep their relative order. Returns false when no entry
// with that id exists.
func (f *Feed) Dismiss(id int64) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	for i, ev := range f.entries {
		if ev.ID == id {
			f.entries = append(f.entries[:i], f.entries[i+1:]...)
			return true
		}
	}
	return false
}

// Entries returns a copy of the current feed, newest first.
func (f *Feed) Entries() []models.NotificationEvent {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]models.NotificationEvent, len(f.entries))
	copy(out, f.entries)
	return out
}

// Changed returns a channel that receives a signal after each accepted event.
// At most one signal is pending; consumers re-read Entries on wake.
func (f *Feed) Changed() <-chan struct{} {
	return f.changed
}

func (f *Feed) signal() {
	select {
	case f.changed <- struct{}{}:
	default:
	}
}
