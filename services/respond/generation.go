package respond

import "sync/atomic"

// Generation is a monotonically increasing refresh token. Consumers that see
// the counter move re-fetch fresh state from the store instead of trusting
// any pushed payload. Bump never blocks; the notify channel holds at most one
// pending signal.
type Generation struct {
	counter atomic.Uint64
	notify  chan struct{}
}

// NewGeneration creates a generation token starting at zero.
func NewGeneration() *Generation {
	return &Generation{notify: make(chan struct{}, 1)}
}

// Bump increments the generation and signals any watcher.
func (g *Generation) Bump() uint64 {
	n := g.counter.Add(1)
	select {
	case g.notify <- struct{}{}:
	default:
		// A signal is already pending; watchers re-read Current anyway.
	}
	return n
}

// Current returns the latest generation value.
func (g *Generation) Current() uint64 {
	return g.counter.Load()
}

// Watch returns the channel that receives a signal after each Bump.
func (g *Generation) Watch() <-chan struct{} {
	return g.notify
}
