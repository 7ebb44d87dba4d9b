package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCounters(t *testing.T) {
	m := New()
	m.Snapshot(Roster)
	m.Snapshot(Roster)
	m.Write(Conversation, nil)
	m.Write(Conversation, errors.New("boom"))
	m.Query(Selector, nil)
	m.MessageSent()

	if got := testutil.ToFloat64(m.snapshots.WithLabelValues(Roster)); got != 2 {
		t.Errorf("roster snapshots = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.writes.WithLabelValues(Conversation, "failed")); got != 1 {
		t.Errorf("failed writes = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.writes.WithLabelValues(Conversation, "ok")); got != 1 {
		t.Errorf("ok writes = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.sent); got != 1 {
		t.Errorf("sent = %v, want 1", got)
	}
	if n := testutil.CollectAndCount(m.queries); n != 1 {
		t.Errorf("query series = %d, want 1", n)
	}
}

func TestTrackDropped(t *testing.T) {
	m := New()
	m.TrackDropped(func() uint64 { return 3 })

	n, err := testutil.GatherAndCount(m.Registry, "pingme_bus_dropped_total")
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("dropped series = %d, want 1", n)
	}
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	m.Snapshot(Roster)
	m.Write(Outbox, nil)
	m.Query(Roster, nil)
	m.MessageSent()
	m.TrackDropped(func() uint64 { return 0 })
}
