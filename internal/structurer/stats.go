package structurer

import (
	"sort"
	"sync"
	"time"
)

type sample struct {
	at         time.Time
	durationMs int64
}

// StatsSnapshot aggregates the latency samples still inside the window and
// the lifetime call counters.
type StatsSnapshot struct {
	Calls        int64   `json:"calls"`
	Failures     int64   `json:"failures"`
	Fallbacks    int64   `json:"fallbacks"`
	InputTokens  int64   `json:"input_tokens"`
	OutputTokens int64   `json:"output_tokens"`
	Count        int     `json:"count"`
	MinMs        int64   `json:"min_ms"`
	MaxMs        int64   `json:"max_ms"`
	AvgMs        float64 `json:"avg_ms"`
	P50Ms        float64 `json:"p50_ms"`
	P95Ms        float64 `json:"p95_ms"`
	P99Ms        float64 `json:"p99_ms"`
}

// Stats tracks structuring calls. Latencies are kept for a rolling window;
// counters never reset.
type Stats struct {
	mu      sync.Mutex
	samples []sample
	maxAge  time.Duration

	calls, failures, fallbacks int64
	inputTokens, outputTokens  int64
}

func NewStats(maxAge time.Duration) *Stats {
	if maxAge <= 0 {
		maxAge = time.Hour
	}
	return &Stats{
		samples: make([]sample, 0, 64),
		maxAge:  maxAge,
	}
}

// Record adds one successful call.
func (s *Stats) Record(durationMs int64, inputTokens, outputTokens int64) {
	if durationMs < 0 {
		durationMs = 0
	}
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.pruneLocked(now)
	s.samples = append(s.samples, sample{at: now, durationMs: durationMs})
	s.calls++
	s.inputTokens += inputTokens
	s.outputTokens += outputTokens
}

func (s *Stats) RecordFailure() {
	s.mu.Lock()
	s.calls++
	s.failures++
	s.mu.Unlock()
}

// RecordFallback counts a document that went to the rule-based builder after
// structuring failed.
func (s *Stats) RecordFallback() {
	s.mu.Lock()
	s.fallbacks++
	s.mu.Unlock()
}

func (s *Stats) Snapshot() StatsSnapshot {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.pruneLocked(now)
	snap := StatsSnapshot{
		Calls:        s.calls,
		Failures:     s.failures,
		Fallbacks:    s.fallbacks,
		InputTokens:  s.inputTokens,
		OutputTokens: s.outputTokens,
	}
	if len(s.samples) == 0 {
		return snap
	}

	values := make([]int64, 0, len(s.samples))
	var sum int64
	for _, sm := range s.samples {
		values = append(values, sm.durationMs)
		sum += sm.durationMs
	}
	sort.Slice(values, func(i, j int) bool { return values[i] < values[j] })

	snap.Count = len(values)
	snap.MinMs = values[0]
	snap.MaxMs = values[len(values)-1]
	snap.AvgMs = float64(sum) / float64(len(values))
	snap.P50Ms = percentile(values, 50)
	snap.P95Ms = percentile(values, 95)
	snap.P99Ms = percentile(values, 99)
	return snap
}

func (s *Stats) pruneLocked(now time.Time) {
	cutoff := now.Add(-s.maxAge)
	kept := s.samples[:0]
	for _, sm := range s.samples {
		if !sm.at.Before(cutoff) {
			kept = append(kept, sm)
		}
	}
	s.samples = kept
}

// percentile interpolates linearly between the closest ranks.
func percentile(sorted []int64, pct float64) float64 {
	switch {
	case len(sorted) == 0:
		return 0
	case pct <= 0:
		return float64(sorted[0])
	case pct >= 100:
		return float64(sorted[len(sorted)-1])
	}

	idx := float64(len(sorted)-1) * pct / 100
	lo := int(idx)
	if lo+1 >= len(sorted) {
		return float64(sorted[lo])
	}
	frac := idx - float64(lo)
	return float64(sorted[lo]) + (float64(sorted[lo+1])-float64(sorted[lo]))*frac
}
