package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestSnapshotOutcomeCounters(t *testing.T) {
	before := testutil.ToFloat64(SnapshotsTotal.WithLabelValues(OutcomeStale))
	SnapshotsTotal.WithLabelValues(OutcomeStale).Inc()
	after := testutil.ToFloat64(SnapshotsTotal.WithLabelValues(OutcomeStale))
	if after != before+1 {
		t.Errorf("stale counter = %v, want %v", after, before+1)
	}
}

func TestCurrentRoundGauge(t *testing.T) {
	CurrentRound.Set(17)
	if got := testutil.ToFloat64(CurrentRound); got != 17 {
		t.Errorf("current round = %v, want 17", got)
	}
}
