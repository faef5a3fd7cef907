// Package roundlog accumulates per-round simulation log lines and formats
// them for display.
package roundlog

import (
	"maps"
	"slices"
	"strconv"
	"strings"
	"sync"
)

// History is the log history keyed by round number. Only rounds that were
// set take space, so a backend that starts counting at a large round costs
// nothing extra. Display visibility is independent of accumulation: hiding
// the log does not stop rounds from being recorded.
type History struct {
	mu      sync.RWMutex
	rounds  map[int][]string
	high    int // highest round set, -1 when empty
	visible bool
}

// New returns an empty, visible history.
func New() *History {
	return &History{rounds: make(map[int][]string), high: -1, visible: true}
}

// Set stores the lines for a round, replacing anything stored before.
// Negative rounds are ignored.
func (h *History) Set(round int, lines []string) {
	if round < 0 {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.rounds[round] = slices.Clone(lines)
	h.high = max(h.high, round)
}

// Round returns the lines recorded for a round.
func (h *History) Round(round int) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return slices.Clone(h.rounds[round])
}

// Len is one past the highest round recorded.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.high + 1
}

// Reset drops all recorded rounds.
func (h *History) Reset() {
	h.mu.Lock()
	clear(h.rounds)
	h.high = -1
	h.mu.Unlock()
}

// Visible reports whether the log is displayed.
func (h *History) Visible() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.visible
}

// SetVisible shows or hides the log.
func (h *History) SetVisible(v bool) {
	h.mu.Lock()
	h.visible = v
	h.mu.Unlock()
}

// Toggle flips visibility and returns the new value.
func (h *History) Toggle() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.visible = !h.visible
	return h.visible
}

// Format lists every round most-recent-first. Each line is prefixed with its
// round number; a non-empty round ends with a newline, an empty one adds
// nothing.
func (h *History) Format() string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var b strings.Builder
	for _, r := range slices.Backward(slices.Sorted(maps.Keys(h.rounds))) {
		lines := h.rounds[r]
		prefix := strconv.Itoa(r) + ": "
		for i, line := range lines {
			if i > 0 {
				b.WriteRune('\n')
			}
			b.WriteString(prefix)
			b.WriteString(line)
		}
		if len(lines) > 0 {
			b.WriteRune('\n')
		}
	}
	return b.String()
}
