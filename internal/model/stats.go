package model

import (
	"slices"
	"sync"
	"time"
)

// maxLatencySamples bounds memory when the model is called very often.
const maxLatencySamples = 4096

// StatsSnapshot summarizes the model calls inside the window.
type StatsSnapshot struct {
	Count  int     `json:"count"`
	Window string  `json:"window"`
	MinMs  int64   `json:"min_ms"`
	MaxMs  int64   `json:"max_ms"`
	AvgMs  float64 `json:"avg_ms"`
	P50Ms  float64 `json:"p50_ms"`
	P95Ms  float64 `json:"p95_ms"`
	P99Ms  float64 `json:"p99_ms"`
}

type latency struct {
	at time.Time
	d  time.Duration
}

// LatencyStats keeps model call durations for a rolling window. Calls are
// appended in time order, so expiry only trims the front. A nil
// *LatencyStats ignores records.
type LatencyStats struct {
	window time.Duration
	now    func() time.Time

	mu    sync.Mutex
	calls []latency
}

func NewLatencyStats(window time.Duration) *LatencyStats {
	if window <= 0 {
		window = time.Hour
	}
	return &LatencyStats{window: window, now: time.Now}
}

// Record adds one call duration. Negative durations count as zero.
func (s *LatencyStats) Record(d time.Duration) {
	if s == nil {
		return
	}
	d = max(d, 0)

	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	s.expire(now)
	if len(s.calls) == maxLatencySamples {
		s.calls = s.calls[1:]
	}
	s.calls = append(s.calls, latency{at: now, d: d})
}

func (s *LatencyStats) Snapshot() StatsSnapshot {
	if s == nil {
		return StatsSnapshot{}
	}

	s.mu.Lock()
	s.expire(s.now())
	ms := make([]int64, len(s.calls))
	for i, c := range s.calls {
		ms[i] = c.d.Milliseconds()
	}
	s.mu.Unlock()

	snap := StatsSnapshot{Count: len(ms), Window: s.window.String()}
	if len(ms) == 0 {
		return snap
	}
	slices.Sort(ms)

	var total int64
	for _, v := range ms {
		total += v
	}
	snap.MinMs = ms[0]
	snap.MaxMs = ms[len(ms)-1]
	snap.AvgMs = float64(total) / float64(len(ms))
	snap.P50Ms = percentile(ms, 0.50)
	snap.P95Ms = percentile(ms, 0.95)
	snap.P99Ms = percentile(ms, 0.99)
	return snap
}

// expire drops calls older than the window. s.mu must be held.
func (s *LatencyStats) expire(now time.Time) {
	cutoff := now.Add(-s.window)
	i, _ := slices.BinarySearchFunc(s.calls, cutoff, func(c latency, t time.Time) int {
		return c.at.Compare(t)
	})
	if i > 0 {
		s.calls = slices.Delete(s.calls, 0, i)
	}
}

// percentile interpolates between ranks of sorted; q is in [0, 1].
func percentile(sorted []int64, q float64) float64 {
	pos := q * float64(len(sorted)-1)
	lo := int(pos)
	if lo >= len(sorted)-1 {
		return float64(sorted[len(sorted)-1])
	}
	frac := pos - float64(lo)
	return float64(sorted[lo]) + frac*float64(sorted[lo+1]-sorted[lo])
}
