package model

import (
	"testing"
	"time"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestStats(window time.Duration) (*LatencyStats, *fakeClock) {
	clock := &fakeClock{t: time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)}
	s := NewLatencyStats(window)
	s.now = clock.now
	return s, clock
}

func TestLatencyStats_Percentiles(t *testing.T) {
	stats, _ := newTestStats(time.Hour)
	for _, ms := range []int{500, 100, 400, 200, 300} {
		stats.Record(time.Duration(ms) * time.Millisecond)
	}

	snap := stats.Snapshot()
	if snap.Count != 5 || snap.Window != "1h0m0s" {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
	if snap.MinMs != 100 || snap.MaxMs != 500 || snap.AvgMs != 300 {
		t.Errorf("expected min=100 max=500 avg=300, got %+v", snap)
	}
	if snap.P50Ms != 300 || snap.P95Ms != 480 || snap.P99Ms != 496 {
		t.Errorf("expected p50=300 p95=480 p99=496, got %v %v %v", snap.P50Ms, snap.P95Ms, snap.P99Ms)
	}
}

func TestLatencyStats_WindowExpiry(t *testing.T) {
	stats, clock := newTestStats(time.Minute)
	stats.Record(100 * time.Millisecond)
	clock.advance(30 * time.Second)
	stats.Record(200 * time.Millisecond)
	clock.advance(45 * time.Second)

	snap := stats.Snapshot()
	if snap.Count != 1 || snap.MinMs != 200 {
		t.Fatalf("expected only the recent call, got %+v", snap)
	}

	clock.advance(time.Minute)
	if snap := stats.Snapshot(); snap.Count != 0 {
		t.Fatalf("expected empty window, got %+v", snap)
	}
}

func TestLatencyStats_BoundedSamples(t *testing.T) {
	stats, _ := newTestStats(time.Hour)
	for range maxLatencySamples + 10 {
		stats.Record(time.Millisecond)
	}
	if snap := stats.Snapshot(); snap.Count != maxLatencySamples {
		t.Fatalf("expected %d samples, got %d", maxLatencySamples, snap.Count)
	}
}

func TestLatencyStats_NegativeAndNil(t *testing.T) {
	stats, _ := newTestStats(time.Hour)
	stats.Record(-10 * time.Millisecond)
	if snap := stats.Snapshot(); snap.Count != 1 || snap.MaxMs != 0 {
		t.Fatalf("expected one zero sample, got %+v", snap)
	}

	var none *LatencyStats
	none.Record(time.Second)
	if snap := none.Snapshot(); snap.Count != 0 {
		t.Fatalf("expected empty snapshot, got %+v", snap)
	}
}
