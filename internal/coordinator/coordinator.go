// Package coordinator drives one scrape cycle end to end: discover events across books,
// merge them into the shared Event table, queue them by urgency, fan out scrape batches,
// run each event through the Detector, and hand the results to the Write Queue. Grounded
// on the teacher's internal/pkg/parserutil/runner.go orchestration loop, generalized from a
// single-book scan to a multi-book discovery/merge/batch pipeline. spec.md §4.3.
package coordinator

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/Vodeneev/oddwatch/internal/book"
	"github.com/Vodeneev/oddwatch/internal/cache"
	"github.com/Vodeneev/oddwatch/internal/detector"
	"github.com/Vodeneev/oddwatch/internal/mapper"
	"github.com/Vodeneev/oddwatch/internal/metrics"
	"github.com/Vodeneev/oddwatch/internal/pkg/models"
	"github.com/Vodeneev/oddwatch/internal/pkg/storage"
	"github.com/Vodeneev/oddwatch/internal/writequeue"
)

// perEventBookConcurrency bounds how many of an event's books are fetched in parallel
// within a single batch. Three books total, so this just keeps the fan-out explicit.
const perEventBookConcurrency = 3

// Coordinator owns one full scrape cycle. It holds no settings of its own — Run takes a
// models.Settings snapshot per call, per spec.md §5/§9 "settings are snapshotted at the
// start of each cycle, not read live mid-cycle".
type Coordinator struct {
	store  *storage.Store
	mapper *mapper.Mapper
	books  map[models.Book]book.Client
	writer *writequeue.Writer
	cache  *cache.Cache
	logger *slog.Logger
}

// New constructs a Coordinator. books must contain every book this process can talk to;
// which of them actually run in a given cycle is decided by Settings.EnabledBooks. c is the
// process-local Odds Cache, evicted at the end of every cycle per spec.md §4.3 Eviction.
func New(store *storage.Store, m *mapper.Mapper, books map[models.Book]book.Client, writer *writequeue.Writer, c *cache.Cache, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{store: store, mapper: m, books: books, writer: writer, cache: c, logger: logger}
}

// ReloadMapper reloads the Mapper's override tier from durable storage. The Scheduler calls
// this once per cycle, before Run, so operator edits to the market_overrides table take
// effect on the very next cycle without a process restart. spec.md §4.2, §9 "Mapper reload".
func (c *Coordinator) ReloadMapper(ctx context.Context) error {
	overrides, err := c.store.LoadMarketOverrides(ctx)
	if err != nil {
		return err
	}
	c.mapper.LoadOverrides(overrides)
	return nil
}

// Run executes one full cycle and streams Progress events on the returned channel, which
// is closed when the cycle finishes (successfully or not). spec.md §4.3 "Progress emission".
func (c *Coordinator) Run(ctx context.Context, settings models.Settings) <-chan Progress {
	progress := make(chan Progress, 32)
	cycleID := uuid.New()

	go func() {
		defer close(progress)
		c.runCycle(ctx, cycleID, settings, progress)
	}()

	return progress
}

func (c *Coordinator) runCycle(ctx context.Context, cycleID uuid.UUID, settings models.Settings, progress chan<- Progress) {
	emit := func(phase string, data any) {
		select {
		case progress <- Progress{CycleID: cycleID, Phase: phase, Timestamp: time.Now(), Data: data}:
		case <-ctx.Done():
		}
	}

	cycleStart := time.Now()
	now := cycleStart
	emit(PhaseDiscoveryStarted, nil)

	results := c.discoverAll(ctx, settings.EnabledBooks)
	perBookCounts, err := c.mergeDiscovered(ctx, results, now)
	if err != nil {
		c.logger.Error("discovery merge failed", "cycle_id", cycleID, "error", err)
		metrics.Global().RecordError(err)
		return
	}
	emit(PhaseDiscoveryComplete, discoveryCompleteData{PerBookCounts: perBookCounts})

	events, err := c.store.UpcomingEvents(ctx, now)
	if err != nil {
		c.logger.Error("load upcoming events failed", "cycle_id", cycleID, "error", err)
		metrics.Global().RecordError(err)
		return
	}
	pq := buildQueue(events, now)

	totalEvents := 0
	totalCommits := 0
	totalAlerts := 0
	totalUnmapped := 0
	for pq.Len() > 0 {
		batch := drainBatch(pq, settings.BatchSize)
		if len(batch) == 0 {
			break
		}
		totalEvents += len(batch)
		commits, alerts, unmapped := c.runBatch(ctx, batch, settings, emit)
		totalCommits += commits
		totalAlerts += alerts
		totalUnmapped += unmapped
	}

	evicted := c.evictStaleCache(ctx, now, settings.CacheGraceWindow)
	if evicted > 0 {
		c.logger.Info("evicted stale cache entries", "cycle_id", cycleID, "count", evicted)
	}

	emit(PhaseCycleComplete, cycleCompleteData{Events: totalEvents, Commits: totalCommits})
	metrics.Global().RecordCycle(time.Since(cycleStart), totalEvents, totalAlerts, totalUnmapped)
}

// evictStaleCache drops every cached event whose kickoff has aged past the configured
// grace window, keeping the process-local Odds Cache from growing unbounded and serving
// long-past fixtures. spec.md §4.3 "Eviction": run once per cycle, after the cycle's own
// writes have landed.
func (c *Coordinator) evictStaleCache(ctx context.Context, now time.Time, grace time.Duration) int {
	if c.cache == nil {
		return 0
	}
	return c.cache.EvictStale(now, grace, func(eventID int64) (time.Time, bool) {
		e, err := c.store.EventByID(ctx, eventID)
		if err != nil {
			return time.Time{}, false
		}
		return e.Kickoff, true
	})
}

// runBatch scrapes, detects, and enqueues writes for one batch of events. Returns how many
// events were successfully enqueued to the Write Queue, and the alert/unmapped counts those
// enqueued batches carried (for cycle-level metrics; actual persistence happens downstream
// in the Write Queue, so these are upper bounds, not confirmed commits).
func (c *Coordinator) runBatch(ctx context.Context, batch []models.Event, settings models.Settings, emit func(string, any)) (commits, alerts, unmapped int) {
	batchID := uuid.New()
	eventIDs := make([]int64, len(batch))
	for i, e := range batch {
		eventIDs[i] = e.EventID
	}
	emit(PhaseBatchScraping, batchScrapingData{BatchID: batchID.String(), Events: eventIDs})

	scrapeStart := time.Now()
	scrapeResults := c.scrapeBatch(ctx, batch, settings)
	scrapeDuration := time.Since(scrapeStart)
	emit(PhaseBatchScraped, batchTimingData{BatchID: batchID.String(), Milliseconds: scrapeDuration.Milliseconds()})

	det := detector.New(settings)
	storeStart := time.Now()
	for _, er := range scrapeResults {
		previous, err := c.store.CurrentMarketsForEvent(ctx, er.eventID)
		if err != nil {
			c.logger.Error("load previous markets failed", "event_id", er.eventID, "error", err)
			continue
		}
		wb := det.DetectEvent(er.eventID, previous, er.fresh, er.scrapedBooks, time.Now())
		wb.BatchID = batchID
		wb.ScrapeStatus.BatchID = batchID.String()
		for i := range wb.Alerts {
			wb.Alerts[i].BatchID = batchID
		}
		wb.Unmapped = append(wb.Unmapped, er.unmapped...)
		if err := c.writer.Enqueue(ctx, wb); err != nil {
			c.logger.Error("enqueue write batch failed", "event_id", er.eventID, "error", err)
			continue
		}
		commits++
		alerts += len(wb.Alerts)
		unmapped += len(wb.Unmapped)
	}
	storeDuration := time.Since(storeStart)
	emit(PhaseBatchStored, batchTimingData{BatchID: batchID.String(), Milliseconds: storeDuration.Milliseconds()})
	metrics.Global().RecordBatch(scrapeDuration, storeDuration)

	return commits, alerts, unmapped
}

// eventScrapeResult is one event's outcome from a scrape batch, ready for detection.
type eventScrapeResult struct {
	eventID      int64
	fresh        []detector.FreshMarket
	scrapedBooks map[models.Book]bool
	unmapped     []models.UnmappedMarket
}

// scrapeBatch fetches every event's markets across every book that covers it, up to
// perEventBookConcurrency books in flight per event, and up to len(batch) events in flight
// at once — each book's own Client owns its own concurrency limiter, so the fan-out here
// only decides what to ask for, never how fast a book can be asked. spec.md §4.1, §5.
// Grounded on the only errgroup usage found in the retrieval pack (polymarketbot's
// mode dispatcher): errgroup.WithContext per independent unit of work, errors captured
// as values rather than cancelling sibling work.
func (c *Coordinator) scrapeBatch(ctx context.Context, batch []models.Event, settings models.Settings) []eventScrapeResult {
	results := make([]eventScrapeResult, len(batch))

	g, gctx := errgroup.WithContext(ctx)
	for i, e := range batch {
		i, e := i, e
		g.Go(func() error {
			results[i] = c.scrapeEvent(gctx, e, settings)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		c.logger.Error("scrape batch wait returned error", "error", err)
	}
	return results
}

// scrapeEvent fetches one event's markets from every book that has an external id for it,
// maps each book's raw markets, and records anything the Mapper couldn't translate.
func (c *Coordinator) scrapeEvent(ctx context.Context, e models.Event, settings models.Settings) eventScrapeResult {
	result := eventScrapeResult{eventID: e.EventID, scrapedBooks: map[models.Book]bool{}}

	type bookFetch struct {
		b          models.Book
		externalID string
	}
	var fetches []bookFetch
	if e.HasPrimaryBook() && settings.EnabledBooks[models.BookPrimary] {
		fetches = append(fetches, bookFetch{models.BookPrimary, *e.PrimaryBookExternalID})
	}
	for b, externalID := range e.CompetitorExternalIDs {
		if settings.EnabledBooks[b] {
			fetches = append(fetches, bookFetch{b, externalID})
		}
	}

	type fetchResult struct {
		b       models.Book
		markets models.RawMarkets
		err     error
	}
	out := make(chan fetchResult, len(fetches))
	g, gctx := errgroup.WithContext(ctx)
	sem := make(chan struct{}, perEventBookConcurrency)
	for _, f := range fetches {
		f := f
		g.Go(func() error {
			sem <- struct{}{}
			defer func() { <-sem }()
			client, ok := c.books[f.b]
			if !ok {
				return nil
			}
			markets, err := client.FetchEventMarkets(gctx, f.externalID)
			out <- fetchResult{b: f.b, markets: markets, err: err}
			return nil
		})
	}
	go func() {
		g.Wait()
		close(out)
	}()

	now := time.Now()
	for fr := range out {
		if fr.err != nil {
			if book.IsEventGone(fr.err) {
				result.scrapedBooks[fr.b] = true // scraped, but upstream says nothing's there
			} else {
				c.logger.Warn("fetch event markets failed", "event_id", e.EventID, "book", fr.b, "error", fr.err)
				result.scrapedBooks[fr.b] = false // attempted, failed — distinct from never attempted
			}
			continue
		}
		result.scrapedBooks[fr.b] = true
		for _, raw := range fr.markets.Markets {
			mapped, ok := c.mapper.Normalize(fr.b, raw)
			if !ok {
				result.unmapped = append(result.unmapped, models.UnmappedMarket{
					Book:            fr.b,
					RawMarketID:     raw.RawMarketID,
					FirstSeenAt:     now,
					LastSeenAt:      now,
					OccurrenceCount: 1,
					SampleOutcomes:  sampleOutcomes(raw),
					Status:          models.UnmappedNew,
				})
				continue
			}
			result.fresh = append(result.fresh, detector.FreshMarket{Book: fr.b, MappedMarket: mapped})
		}
	}

	return result
}

// sampleOutcomesLimit caps how many outcomes an unmapped market keeps as a sample. spec.md
// §8 scenario 5: "sample_outcomes = first 3" — enough to identify the market by eye without
// storing an unbounded blob for markets with many outcomes (e.g. correct score).
const sampleOutcomesLimit = 3

func sampleOutcomes(raw models.RawMarket) []models.Outcome {
	n := len(raw.Outcomes)
	if n > sampleOutcomesLimit {
		n = sampleOutcomesLimit
	}
	out := make([]models.Outcome, 0, n)
	for _, o := range raw.Outcomes[:n] {
		active := o.IsActive == nil || *o.IsActive
		out = append(out, models.Outcome{Name: o.Name, Price: o.Price, Active: active})
	}
	return out
}
