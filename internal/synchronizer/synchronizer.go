// Package synchronizer decides whether an arriving round snapshot updates the
// viewer state.
//
// Snapshot responses may arrive out of send order. The round check, not
// arrival order, decides acceptance: an older round arriving after a newer
// one is dropped without touching state.
package synchronizer

import (
	"log/slog"
	"slices"
	"sync"

	"github.com/daviddao/mobsinet_viewer/internal/geometry"
	"github.com/daviddao/mobsinet_viewer/internal/metrics"
	"github.com/daviddao/mobsinet_viewer/internal/roundlog"
	"github.com/daviddao/mobsinet_viewer/internal/snapshot"
)

// Outcome classifies a snapshot handed to Accept.
type Outcome int

const (
	Accepted Outcome = iota
	Stale
	Malformed
)

func (o Outcome) String() string {
	switch o {
	case Accepted:
		return metrics.OutcomeAccepted
	case Stale:
		return metrics.OutcomeStale
	case Malformed:
		return metrics.OutcomeMalformed
	}
	return "?"
}

// Decision tells the caller what to do after Accept.
type Decision struct {
	Outcome Outcome

	// StopPolling is set for malformed snapshots and for any snapshot that
	// reports the simulation is no longer running.
	StopPolling bool

	// Render is set when state changed and a frame should be drawn.
	Render bool

	// HighlightsCleared is set when a round change dropped a path overlay.
	HighlightsCleared bool

	// Err is snapshot.ErrMalformedSnapshot for malformed input.
	Err error
}

// State is the synchronized view of the simulation. Slices are replaced
// wholesale on every change and must be treated as read-only.
type State struct {
	Round             int
	Nodes             []snapshot.Node
	Links             []snapshot.Link
	Highlights        []geometry.HighlightedLink
	Running           bool
	MessagesThisRound int
	MessagesOverall   int
}

// Synchronizer owns State and the log history. It is the only writer of
// either.
type Synchronizer struct {
	mu    sync.Mutex
	state State
	logs  *roundlog.History
	log   *slog.Logger
}

// New returns a synchronizer that has not accepted any round yet.
func New(logs *roundlog.History, log *slog.Logger) *Synchronizer {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Synchronizer{
		state: State{Round: -1},
		logs:  logs,
		log:   log,
	}
}

// Accept applies one snapshot.
func (s *Synchronizer) Accept(snap *snapshot.Snapshot) Decision {
	if !snap.Complete() {
		metrics.SnapshotsTotal.WithLabelValues(metrics.OutcomeMalformed).Inc()
		s.log.Warn("malformed snapshot, stopping polling")
		return Decision{Outcome: Malformed, StopPolling: true, Err: snapshot.ErrMalformedSnapshot}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	d := Decision{StopPolling: !snap.Running}

	if snap.Round < s.state.Round {
		metrics.SnapshotsTotal.WithLabelValues(metrics.OutcomeStale).Inc()
		s.log.Debug("dropping stale snapshot", "round", snap.Round, "current", s.state.Round)
		d.Outcome = Stale
		return d
	}

	if snap.Round != s.state.Round && len(s.state.Highlights) > 0 {
		s.state.Highlights = nil
		d.HighlightsCleared = true
	}

	s.state.Round = snap.Round
	s.state.Nodes = snap.Nodes
	s.state.Links = snap.Links
	s.state.Running = snap.Running
	s.state.MessagesThisRound = snap.MessagesThisRound
	s.state.MessagesOverall = snap.MessagesOverall

	// The backend sends newest first.
	if snap.Logs != nil && s.logs != nil {
		lines := slices.Clone(snap.Logs)
		slices.Reverse(lines)
		s.logs.Set(snap.Round, lines)
	}

	metrics.SnapshotsTotal.WithLabelValues(metrics.OutcomeAccepted).Inc()
	metrics.CurrentRound.Set(float64(snap.Round))

	d.Outcome = Accepted
	d.Render = true
	return d
}

// Highlight replaces the highlighted edges with the edges of path.
func (s *Synchronizer) Highlight(path []snapshot.NodeID) []geometry.HighlightedLink {
	links := geometry.PathLinks(path)
	s.mu.Lock()
	s.state.Highlights = links
	s.mu.Unlock()
	return links
}

// Reset forgets the current round, highlights and log history. Called when
// the simulation is (re)initialized.
func (s *Synchronizer) Reset() {
	s.mu.Lock()
	s.state.Round = -1
	s.state.Highlights = nil
	s.mu.Unlock()
	if s.logs != nil {
		s.logs.Reset()
	}
}

// CurrentState returns a copy of the state.
func (s *Synchronizer) CurrentState() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}
