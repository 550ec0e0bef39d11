package metrics

import (
	"errors"
	"testing"
	"time"
)

func TestTracker_SnapshotAveragesAccumulatedDurations(t *testing.T) {
	tr := &Tracker{}
	tr.RecordCycle(2*time.Second, 10, 1, 0)
	tr.RecordCycle(4*time.Second, 20, 2, 1)
	tr.RecordBatch(100*time.Millisecond, 50*time.Millisecond)
	tr.RecordBatch(300*time.Millisecond, 150*time.Millisecond)

	snap := tr.Snapshot()
	if snap.TotalCycles != 2 {
		t.Errorf("TotalCycles = %d, want 2", snap.TotalCycles)
	}
	if snap.TotalEvents != 30 || snap.TotalAlerts != 3 || snap.TotalUnmapped != 1 {
		t.Errorf("unexpected totals: %+v", snap)
	}
	wantCycleAvg := (3 * time.Second).String()
	if snap.AvgCycleDuration != wantCycleAvg {
		t.Errorf("AvgCycleDuration = %s, want %s", snap.AvgCycleDuration, wantCycleAvg)
	}
	wantBatchScrapeAvg := (200 * time.Millisecond).String()
	if snap.AvgBatchScrape != wantBatchScrapeAvg {
		t.Errorf("AvgBatchScrape = %s, want %s", snap.AvgBatchScrape, wantBatchScrapeAvg)
	}
	if snap.LastCycleAt == nil {
		t.Error("expected LastCycleAt to be set after recording a cycle")
	}
}

func TestTracker_SnapshotBeforeAnyRecordHasNoAverages(t *testing.T) {
	tr := &Tracker{}
	snap := tr.Snapshot()
	if snap.AvgCycleDuration != "" || snap.AvgBatchScrape != "" || snap.AvgBatchStore != "" {
		t.Errorf("expected empty averages before any record, got %+v", snap)
	}
	if snap.LastCycleAt != nil {
		t.Error("expected nil LastCycleAt before any cycle recorded")
	}
}

func TestTracker_RecordErrorIgnoresNil(t *testing.T) {
	tr := &Tracker{}
	tr.RecordError(nil)
	if tr.Snapshot().LastError != "" {
		t.Error("RecordError(nil) should not set LastError")
	}
	tr.RecordError(errors.New("boom"))
	if tr.Snapshot().LastError != "boom" {
		t.Errorf("LastError = %q, want %q", tr.Snapshot().LastError, "boom")
	}
}

func TestGlobal_ReturnsSameInstance(t *testing.T) {
	if Global() != Global() {
		t.Error("Global() should return the same process-wide tracker each call")
	}
}
