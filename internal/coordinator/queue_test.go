package coordinator

import (
	"testing"
	"time"

	"github.com/Vodeneev/oddwatch/internal/pkg/models"
)

func strPtrEvt(s string) *string { return &s }

func TestBuildQueue_OrdersByTierThenKickoff(t *testing.T) {
	now := time.Now()
	events := []models.Event{
		{EventID: 1, Kickoff: now.Add(3 * time.Hour)},  // future
		{EventID: 2, Kickoff: now.Add(10 * time.Minute)}, // imminent
		{EventID: 3, Kickoff: now.Add(1 * time.Hour)},   // soon
		{EventID: 4, Kickoff: now.Add(5 * time.Minute)},  // imminent, sooner than 2
	}
	pq := buildQueue(events, now)
	out := drainBatch(pq, len(events))

	want := []int64{4, 2, 3, 1}
	for i, e := range out {
		if e.EventID != want[i] {
			t.Fatalf("position %d: got event %d, want %d (full order: %v)", i, e.EventID, want[i], ids(out))
		}
	}
}

func TestBuildQueue_CoverageAndPrimaryTiebreak(t *testing.T) {
	now := time.Now()
	kickoff := now.Add(10 * time.Minute) // same tier for all
	lowCoverage := models.Event{EventID: 1, Kickoff: kickoff, CompetitorExternalIDs: map[models.Book]string{models.BookCompetitorA: "a"}}
	highCoverageNoPrimary := models.Event{EventID: 2, Kickoff: kickoff, CompetitorExternalIDs: map[models.Book]string{
		models.BookCompetitorA: "a", models.BookCompetitorB: "b",
	}}
	highCoverageWithPrimary := models.Event{
		EventID: 3, Kickoff: kickoff, PrimaryBookExternalID: strPtrEvt("p"),
		CompetitorExternalIDs: map[models.Book]string{models.BookCompetitorA: "a", models.BookCompetitorB: "b"},
	}

	pq := buildQueue([]models.Event{lowCoverage, highCoverageNoPrimary, highCoverageWithPrimary}, now)
	out := drainBatch(pq, 3)

	want := []int64{3, 2, 1} // highest coverage and has_primary_book sort first
	for i, e := range out {
		if e.EventID != want[i] {
			t.Fatalf("position %d: got event %d, want %d (full order: %v)", i, e.EventID, want[i], ids(out))
		}
	}
}

func TestDrainBatch_RespectsLimit(t *testing.T) {
	now := time.Now()
	events := make([]models.Event, 5)
	for i := range events {
		events[i] = models.Event{EventID: int64(i + 1), Kickoff: now.Add(time.Duration(i) * time.Minute)}
	}
	pq := buildQueue(events, now)
	first := drainBatch(pq, 2)
	if len(first) != 2 {
		t.Fatalf("expected a batch of 2, got %d", len(first))
	}
	rest := drainBatch(pq, 10)
	if len(rest) != 3 {
		t.Fatalf("expected the remaining 3 events, got %d", len(rest))
	}
}

func ids(events []models.Event) []int64 {
	out := make([]int64, len(events))
	for i, e := range events {
		out[i] = e.EventID
	}
	return out
}
