package dashboard

import (
	"log"
	"sort"
	"sync"
	"time"

	"github.com/sourcegraph/conc/pool"

	"convene/models"
)

// Store is the read side of the invitation store the aggregator queries.
type Store interface {
	Count(userID string, filter models.ListFilter) (int, error)
}

// DefaultRefreshInterval is how often cached summaries are recomputed when
// nothing triggers an earlier refresh.
const DefaultRefreshInterval = 60 * time.Second

// Summary is the composed dashboard view for one user. It is always
// complete: a failed bucket query degrades to zero and is named in Degraded
// rather than leaving a hole, and Total is always the arithmetic sum of the
// four buckets.
type Summary struct {
	PendingReceived int       `json:"pendingReceived"`
	PendingSent     int       `json:"pendingSent"`
	Accepted        int       `json:"accepted"`
	Declined        int       `json:"declined"`
	Total           int       `json:"total"`
	Degraded        []string  `json:"degraded,omitempty"`
	RefreshedAt     time.Time `json:"refreshedAt"`
}

// Status holds the current state of the dashboard background worker.
type Status struct {
	Running         bool      `json:"running"`
	State           string    `json:"state"` // "idle", "refreshing", "stopped"
	LastRefreshAt   time.Time `json:"lastRefreshAt"`
	LastRefreshMs   int64     `json:"lastRefreshMs"`
	NextRefreshAt   time.Time `json:"nextRefreshAt"`
	RefreshInterval string    `json:"refreshInterval"`
	UsersTracked    int       `json:"usersTracked"`
}

// Service aggregates invitation counts per user. Summaries are cached and
// recomputed on a fixed interval, on demand after a committed mutation (via
// the refresh signal), or whenever a user asks for a fresh view. Failures
// wait for the next scheduled or triggered refresh; there is no mid-interval
// retry.
type Service struct {
	mu    sync.RWMutex
	cache map[string]Summary
	store Store

	stopCh          chan struct{}
	refreshNow      chan struct{}
	refreshInterval time.Duration

	statusMu      sync.RWMutex
	running       bool
	state         string
	lastRefreshAt time.Time
	lastRefreshMs int64
	nextRefreshAt time.Time
}

// New creates a dashboard service over the given store.
func New(store Store) *Service {
	return &Service{
		cache: make(map[string]Summary),
		store: store,
	}
}

type bucket struct {
	name   string
	filter models.ListFilter
}

var buckets = []bucket{
	{"pendingReceived", models.ListFilter{Type: models.ListReceived, Status: models.StatusPending}},
	{"pendingSent", models.ListFilter{Type: models.ListSent, Status: models.StatusPending}},
	{"accepted", models.ListFilter{Type: models.ListAll, Status: models.StatusAccepted}},
	{"declined", models.ListFilter{Type: models.ListAll, Status: models.StatusDeclined}},
}

// Summary computes a fresh summary for userID and caches it. It never
// returns an error: a degraded dashboard beats a missing one.
func (s *Service) Summary(userID string) Summary {
	sum := s.compute(userID)

	s.mu.Lock()
	s.cache[userID] = sum
	s.mu.Unlock()

	return sum
}

// Cached returns the cached summary for userID without recomputing.
func (s *Service) Cached(userID string) (Summary, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sum, ok := s.cache[userID]
	return sum, ok
}

// compute issues the four bucket queries concurrently. The queries are
// independent reads with no ordering requirement among themselves, but all
// must resolve before the aggregate is returned.
func (s *Service) compute(userID string) Summary {
	var (
		mu       sync.Mutex
		counts   = make(map[string]int, len(buckets))
		degraded []string
	)

	p := pool.New().WithMaxGoroutines(len(buckets))
	for _, b := range buckets {
		b := b
		p.Go(func() {
			n, err := s.store.Count(userID, b.filter)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				log.Printf("[dashboard] %s bucket query failed user=%s: %v", b.name, userID, err)
				counts[b.name] = 0
				degraded = append(degraded, b.name)
				return
			}
			counts[b.name] = n
		})
	}
	p.Wait()

	sort.Strings(degraded)

	sum := Summary{
		PendingReceived: counts["pendingReceived"],
		PendingSent:     counts["pendingSent"],
		Accepted:        counts["accepted"],
		Declined:        counts["declined"],
		Degraded:        degraded,
		RefreshedAt:     time.Now().UTC(),
	}
	sum.Total = sum.PendingReceived + sum.PendingSent + sum.Accepted + sum.Declined
	return sum
}

// StartBackgroundRefresh begins periodic recomputation of all cached
// summaries.
func (s *Service) StartBackgroundRefresh(interval time.Duration) {
	if interval <= 0 {
		interval = DefaultRefreshInterval
	}
	s.refreshInterval = interval
	s.stopCh = make(chan struct{})
	s.refreshNow = make(chan struct{}, 1)

	s.statusMu.Lock()
	s.running = true
	s.state = "idle"
	s.statusMu.Unlock()

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			s.statusMu.Lock()
			s.nextRefreshAt = time.Now().Add(interval)
			s.statusMu.Unlock()

			select {
			case <-ticker.C:
				s.doRefresh()
			case <-s.refreshNow:
				s.doRefresh()
				// Reset so the next scheduled refresh is a full
				// interval away.
				ticker.Reset(interval)
			case <-s.stopCh:
				log.Println("[dashboard] background refresh: stopped")
				s.statusMu.Lock()
				s.running = false
				s.state = "stopped"
				s.statusMu.Unlock()
				return
			}
		}
	}()
}

// TriggerOn refreshes whenever the given signal fires, typically the respond
// generation token's watch channel. Stops with the background worker.
func (s *Service) TriggerOn(signal <-chan struct{}) {
	go func() {
		for {
			select {
			case <-signal:
				s.Refresh()
			case <-s.stopCh:
				return
			}
		}
	}()
}

// Refresh triggers an immediate recomputation of all cached summaries.
// Non-blocking; coalesces with an already pending refresh.
func (s *Service) Refresh() {
	select {
	case s.refreshNow <- struct{}{}:
	default:
	}
}

// Stop gracefully stops the background refresh.
func (s *Service) Stop() {
	if s.stopCh != nil {
		close(s.stopCh)
	}
}

// GetStatus returns the current status of the dashboard worker.
func (s *Service) GetStatus() Status {
	s.statusMu.RLock()
	status := Status{
		Running:       s.running,
		State:         s.state,
		LastRefreshAt: s.lastRefreshAt,
		LastRefreshMs: s.lastRefreshMs,
		NextRefreshAt: s.nextRefreshAt,
	}
	s.statusMu.RUnlock()

	if s.refreshInterval > 0 {
		status.RefreshInterval = s.refreshInterval.String()
	}

	s.mu.RLock()
	status.UsersTracked = len(s.cache)
	s.mu.RUnlock()

	return status
}

// doRefresh recomputes every cached user's summary with status tracking.
func (s *Service) doRefresh() {
	s.statusMu.Lock()
	s.state = "refreshing"
	s.statusMu.Unlock()

	start := time.Now()

	s.mu.RLock()
	users := make([]string, 0, len(s.cache))
	for userID := range s.cache {
		users = append(users, userID)
	}
	s.mu.RUnlock()

	for _, userID := range users {
		sum := s.compute(userID)
		s.mu.Lock()
		s.cache[userID] = sum
		s.mu.Unlock()
	}

	s.statusMu.Lock()
	s.state = "idle"
	s.lastRefreshAt = time.Now()
	s.lastRefreshMs = time.Since(start).Milliseconds()
	s.statusMu.Unlock()
}
