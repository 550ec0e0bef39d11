// Package metrics accumulates scrape-cycle timing and counts for the /metrics endpoint.
// Grounded on the teacher's internal/pkg/performance.Tracker (global mutex-guarded
// accumulator plus a JSON snapshot type), generalized from per-match parser timings to
// per-cycle/per-batch coordinator timings. spec.md §4.7 "operational visibility".
package metrics

import (
	"sync"
	"time"
)

// Tracker accumulates counters and durations across scrape cycles.
type Tracker struct {
	mu sync.RWMutex

	totalCycles  int
	totalBatches int
	totalEvents  int
	totalAlerts  int
	totalUnmapped int

	cycleDuration time.Duration
	batchScrape   time.Duration
	batchStore    time.Duration

	lastCycleAt time.Time
	lastError   string
	lastErrorAt time.Time
}

var global = &Tracker{}

// Global returns the process-wide tracker.
func Global() *Tracker { return global }

// RecordCycle records one completed cycle's totals.
func (t *Tracker) RecordCycle(duration time.Duration, events, alerts, unmapped int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.totalCycles++
	t.totalEvents += events
	t.totalAlerts += alerts
	t.totalUnmapped += unmapped
	t.cycleDuration += duration
	t.lastCycleAt = time.Now()
}

// RecordBatch records one batch's scrape/store timing split.
func (t *Tracker) RecordBatch(scrape, store time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.totalBatches++
	t.batchScrape += scrape
	t.batchStore += store
}

// RecordError records the most recent cycle-level failure.
func (t *Tracker) RecordError(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err == nil {
		return
	}
	t.lastError = err.Error()
	t.lastErrorAt = time.Now()
}

// Snapshot is the JSON shape served on /metrics.
type Snapshot struct {
	TotalCycles      int     `json:"total_cycles"`
	TotalBatches     int     `json:"total_batches"`
	TotalEvents      int     `json:"total_events"`
	TotalAlerts      int     `json:"total_alerts"`
	TotalUnmapped    int     `json:"total_unmapped"`
	AvgCycleDuration string  `json:"avg_cycle_duration"`
	AvgBatchScrape   string  `json:"avg_batch_scrape_duration"`
	AvgBatchStore    string  `json:"avg_batch_store_duration"`
	LastCycleAt      *time.Time `json:"last_cycle_at,omitempty"`
	LastError        string  `json:"last_error,omitempty"`
}

// Snapshot returns a point-in-time copy of the accumulated metrics.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()

	s := Snapshot{
		TotalCycles:   t.totalCycles,
		TotalBatches:  t.totalBatches,
		TotalEvents:   t.totalEvents,
		TotalAlerts:   t.totalAlerts,
		TotalUnmapped: t.totalUnmapped,
		LastError:     t.lastError,
	}
	if t.totalCycles > 0 {
		s.AvgCycleDuration = (t.cycleDuration / time.Duration(t.totalCycles)).String()
	}
	if t.totalBatches > 0 {
		s.AvgBatchScrape = (t.batchScrape / time.Duration(t.totalBatches)).String()
		s.AvgBatchStore = (t.batchStore / time.Duration(t.totalBatches)).String()
	}
	if !t.lastCycleAt.IsZero() {
		lc := t.lastCycleAt
		s.LastCycleAt = &lc
	}
	return s
}
