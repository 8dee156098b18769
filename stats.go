package main

import (
	"fmt"
	"sort"
	"sync"
)

// runStats collects per-segment transcription timings across the whole
// process; the summary goes to the diagnostics log at exit.
var runStats latencyStats

type latencyStats struct {
	mu      sync.Mutex
	totalMs []float64
	rtf     []float64
}

func (s *latencyStats) Record(totalMs, rtf float64) {
	s.mu.Lock()
	s.totalMs = append(s.totalMs, totalMs)
	s.rtf = append(s.rtf, rtf)
	s.mu.Unlock()
}

// Summary renders min/p50/p90/p95/max for latency and realtime factor,
// or "" when nothing was transcribed.
func (s *latencyStats) Summary() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.totalMs)
	if n == 0 {
		return ""
	}
	t := percentiles(s.totalMs)
	r := percentiles(s.rtf)
	return fmt.Sprintf(
		"n=%d total_ms[min=%.0f p50=%.0f p90=%.0f p95=%.0f max=%.0f] rtf[min=%.2f p50=%.2f p90=%.2f p95=%.2f max=%.2f]",
		n, t[0], t[1], t[2], t[3], t[4], r[0], r[1], r[2], r[3], r[4])
}

// percentiles returns [min, p50, p90, p95, max] by nearest-rank over a
// sorted copy of vals. vals must be non-empty.
func percentiles(vals []float64) [5]float64 {
	sorted := make([]float64, len(vals))
	copy(sorted, vals)
	sort.Float64s(sorted)

	at := func(p float64) float64 {
		return sorted[int(float64(len(sorted)-1)*p)]
	}
	return [5]float64{sorted[0], at(0.50), at(0.90), at(0.95), sorted[len(sorted)-1]}
}
