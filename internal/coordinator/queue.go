package coordinator

import (
	"container/heap"
	"time"

	"github.com/Vodeneev/oddwatch/internal/pkg/models"
)

// queueItem is one event waiting to be scraped, ordered by urgency tier then by kickoff
// within a tier (soonest first). spec.md §4.3 Phase 2 priority queue.
type queueItem struct {
	event models.Event
	tier  models.UrgencyTier
	index int
}

// priorityQueue is a container/heap implementation — the only priority-queue library that
// appears anywhere in the retrieval pack is none at all, so this stays on the standard
// library rather than introducing a dependency with no grounding. DESIGN.md.
type priorityQueue []*queueItem

func (pq priorityQueue) Len() int { return len(pq) }

// Less orders by the lexicographic tuple spec.md §4.3 Phase 2 defines:
// (urgency_tier, kickoff_time, -coverage_count, not_has_primary_book), smallest first.
func (pq priorityQueue) Less(i, j int) bool {
	a, b := pq[i], pq[j]
	if a.tier != b.tier {
		return a.tier < b.tier
	}
	if !a.event.Kickoff.Equal(b.event.Kickoff) {
		return a.event.Kickoff.Before(b.event.Kickoff)
	}
	if ca, cb := a.event.CoverageCount(), b.event.CoverageCount(); ca != cb {
		return ca > cb // higher coverage sorts first, i.e. "-coverage_count" ascending
	}
	aHasPrimary, bHasPrimary := a.event.HasPrimaryBook(), b.event.HasPrimaryBook()
	if aHasPrimary != bHasPrimary {
		return aHasPrimary // has_primary_book sorts before not_has_primary_book
	}
	return false
}

func (pq priorityQueue) Swap(i, j int) {
	pq[i], pq[j] = pq[j], pq[i]
	pq[i].index = i
	pq[j].index = j
}

func (pq *priorityQueue) Push(x any) {
	item := x.(*queueItem)
	item.index = len(*pq)
	*pq = append(*pq, item)
}

func (pq *priorityQueue) Pop() any {
	old := *pq
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*pq = old[:n-1]
	return item
}

// buildQueue orders events by urgency tier relative to now. spec.md §4.3 Phase 2.
func buildQueue(events []models.Event, now time.Time) *priorityQueue {
	pq := make(priorityQueue, 0, len(events))
	for _, e := range events {
		heap.Push(&pq, &queueItem{event: e, tier: models.TierFor(e.Kickoff, now)})
	}
	heap.Init(&pq)
	return &pq
}

// drainBatch pops up to n events off the queue, in priority order.
func drainBatch(pq *priorityQueue, n int) []models.Event {
	out := make([]models.Event, 0, n)
	for pq.Len() > 0 && len(out) < n {
		item := heap.Pop(pq).(*queueItem)
		out = append(out, item.event)
	}
	return out
}
