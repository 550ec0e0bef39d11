package coordinator

import (
	"time"

	"github.com/google/uuid"
)

// Progress is one step of the Coordinator's cycle, forwarded verbatim to the Broadcaster's
// scrape_progress topic by whatever drains Run's returned channel. spec.md §4.3 "Progress
// emission".
type Progress struct {
	CycleID   uuid.UUID `json:"cycle_id"`
	Phase     string    `json:"phase"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data,omitempty"`
}

const (
	PhaseDiscoveryStarted  = "discovery_started"
	PhaseDiscoveryComplete = "discovery_complete"
	PhaseBatchScraping     = "batch_scraping"
	PhaseBatchScraped      = "batch_scraped"
	PhaseBatchStored       = "batch_stored"
	PhaseCycleComplete     = "cycle_complete"
)

type discoveryCompleteData struct {
	PerBookCounts map[string]int `json:"per_book_counts"`
}

type batchScrapingData struct {
	BatchID string  `json:"batch_id"`
	Events  []int64 `json:"events"`
}

type batchTimingData struct {
	BatchID      string `json:"batch_id"`
	Milliseconds int64  `json:"ms"`
}

type cycleCompleteData struct {
	Events  int `json:"events"`
	Commits int `json:"commits"`
}
