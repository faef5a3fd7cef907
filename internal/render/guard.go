// Package render turns geometry shapes into terminal frames and guards the
// render step against re-entry.
package render

import (
	"log/slog"
	"sync/atomic"

	"github.com/daviddao/mobsinet_viewer/internal/metrics"
)

// Guard admits one render at a time. A render requested while another is
// active is dropped, not queued: a skipped frame is preferred over a
// growing backlog.
type Guard struct {
	active  atomic.Bool
	dropped atomic.Int64
	log     *slog.Logger
}

// NewGuard returns an idle guard.
func NewGuard(log *slog.Logger) *Guard {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Guard{log: log}
}

// TryEnter claims the guard. It returns false, and records a dropped
// frame, when a render is already active.
func (g *Guard) TryEnter() bool {
	if g.active.CompareAndSwap(false, true) {
		return true
	}
	n := g.dropped.Add(1)
	metrics.RendersDropped.Inc()
	g.log.Warn("render already active, dropping frame", "dropped_total", n)
	return false
}

// Leave releases the guard.
func (g *Guard) Leave() {
	g.active.Store(false)
}

// Active reports whether a render holds the guard.
func (g *Guard) Active() bool {
	return g.active.Load()
}

// Dropped is the number of frames dropped so far.
func (g *Guard) Dropped() int64 {
	return g.dropped.Load()
}

// Do runs fn under the guard and reports whether it ran.
func (g *Guard) Do(fn func()) bool {
	if !g.TryEnter() {
		return false
	}
	defer g.Leave()
	fn()
	return true
}
