// Package writequeue is the single-consumer serialization point between the Coordinator
// and PostgreSQL. Grounded on the teacher's postgres_odds_snapshot_storage.go (upsert with
// ON CONFLICT) and postgres_diff_storage.go (single-transaction batch writes), generalized
// to the current/history/unmapped/alerts schema. spec.md §4.4.
package writequeue

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Vodeneev/oddwatch/internal/alertstore"
	"github.com/Vodeneev/oddwatch/internal/broadcaster"
	"github.com/Vodeneev/oddwatch/internal/cache"
	"github.com/Vodeneev/oddwatch/internal/detector"
	"github.com/Vodeneev/oddwatch/internal/notify"
	"github.com/Vodeneev/oddwatch/internal/pkg/models"
	"github.com/Vodeneev/oddwatch/internal/pkg/storage"
)

// Writer receives WriteBatch values on an ordered channel and commits each one inside its
// own transaction, one batch at a time. spec.md §4.4 "single-consumer serialization point".
type Writer struct {
	store     *storage.Store
	cache     *cache.Cache
	alerts    *alertstore.Store // nil disables cooldown suppression
	publisher broadcaster.Publisher
	notifier  *notify.TelegramNotifier // nil disables Telegram pushes
	cooldown  time.Duration

	batches chan detector.WriteBatch
}

// New constructs a Writer. alerts and notifier may both be nil.
func New(store *storage.Store, c *cache.Cache, alerts *alertstore.Store, publisher broadcaster.Publisher, notifier *notify.TelegramNotifier, cooldown time.Duration, bufferSize int) *Writer {
	if publisher == nil {
		publisher = broadcaster.Noop{}
	}
	return &Writer{
		store:     store,
		cache:     c,
		alerts:    alerts,
		publisher: publisher,
		notifier:  notifier,
		cooldown:  cooldown,
		batches:   make(chan detector.WriteBatch, bufferSize),
	}
}

// Enqueue hands one event's WriteBatch to the consumer. Blocks if the channel is full,
// applying backpressure to the Coordinator rather than dropping data.
func (w *Writer) Enqueue(ctx context.Context, batch detector.WriteBatch) error {
	select {
	case w.batches <- batch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run drains the batch channel until ctx is cancelled, committing one batch at a time.
// Cancellation lets the in-flight commit finish before returning, per spec.md §5
// "cancellation allows the current batch's in-flight commit to finish".
func (w *Writer) Run(ctx context.Context) error {
	for {
		select {
		case batch := <-w.batches:
			if err := w.commit(context.WithoutCancel(ctx), batch); err != nil {
				slog.Error("writequeue: commit failed, batch rolled back", "event_id", batch.EventID, "error", err)
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// commit runs the whole batch inside one transaction. On any failure, the transaction is
// rolled back, the Cache is left untouched, and the error is returned to the caller —
// spec.md §4.4 "the whole batch is rolled back; the Cache is not updated for that batch".
func (w *Writer) commit(ctx context.Context, batch detector.WriteBatch) error {
	tx, err := w.store.DB().BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op once committed

	now := time.Now()

	for _, m := range batch.Upserts {
		if err := w.store.UpsertCurrentMarket(ctx, tx, m); err != nil {
			return err
		}
	}
	for _, h := range batch.History {
		if err := w.store.InsertHistory(ctx, tx, h); err != nil {
			return err
		}
	}
	for _, key := range batch.Touches {
		if err := w.store.TouchConfirmed(ctx, tx, key, now); err != nil {
			return err
		}
	}
	for _, key := range batch.Unavailable {
		if err := w.store.MarkUnavailable(ctx, tx, key, now); err != nil {
			return err
		}
	}
	for _, u := range batch.Unmapped {
		if err := w.store.UpsertUnmappedMarket(ctx, tx, u, now); err != nil {
			return err
		}
	}
	if err := w.store.UpsertEventScrapeStatus(ctx, tx, batch.ScrapeStatus); err != nil {
		return err
	}

	var committedAlerts []models.RiskAlert
	for _, a := range batch.Alerts {
		if w.alerts != nil {
			suppressed, err := w.alerts.ShouldSuppress(ctx, a, w.cooldown)
			if err != nil {
				slog.Warn("writequeue: cooldown check failed, alert kept", "error", err)
			} else if suppressed {
				continue
			}
		}
		if _, err := w.store.InsertRiskAlert(ctx, tx, a); err != nil {
			return err
		}
		committedAlerts = append(committedAlerts, a)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	w.refreshCache(ctx, batch.EventID)
	w.broadcast(batch, committedAlerts)
	w.notifyAlerts(ctx, batch.EventID, committedAlerts)
	return nil
}

// refreshCache reloads the event's committed current_markets rows and replaces the Cache's
// entry wholesale, so readers never see a cache fresher than persisted state. spec.md §4.4
// "Cache update is last".
func (w *Writer) refreshCache(ctx context.Context, eventID int64) {
	rows, err := w.store.CurrentMarketsForEvent(ctx, eventID)
	if err != nil {
		slog.Error("writequeue: reload current markets for cache refresh failed", "event_id", eventID, "error", err)
		return
	}
	entries := cache.BuildEntries(rows)
	w.cache.Put(eventID, entries)
}

// broadcast republishes the commit's effects on the three relevant topics, matching
// spec.md §4.4/§6 payload shapes exactly.
func (w *Writer) broadcast(batch detector.WriteBatch, committedAlerts []models.RiskAlert) {
	changed := len(batch.Upserts)
	if changed > 0 {
		w.publisher.Publish("odds_updates", oddsUpdatePayload{
			EventIDs:     []int64{batch.EventID},
			ChangedCount: changed,
		})
	}

	if len(committedAlerts) > 0 {
		severities := make([]string, 0, len(committedAlerts))
		for _, a := range committedAlerts {
			severities = append(severities, string(a.Severity))
		}
		w.publisher.Publish("risk_alerts", riskAlertsPayload{
			AlertCount: len(committedAlerts),
			EventIDs:   []int64{batch.EventID},
			Severities: severities,
		})
	}

	if len(batch.Unmapped) > 0 {
		samples := make([]string, 0, len(batch.Unmapped))
		for _, u := range batch.Unmapped {
			samples = append(samples, fmt.Sprintf("%s:%s", u.Book, u.RawMarketID))
		}
		w.publisher.Publish("unmapped_alerts", unmappedAlertPayload{
			NewCount: len(batch.Unmapped),
			Samples:  samples,
		})
	}
}

// notifyAlerts pushes each committed alert to Telegram, best-effort. A failed send is
// logged and never rolls back the already-committed transaction.
func (w *Writer) notifyAlerts(ctx context.Context, eventID int64, committedAlerts []models.RiskAlert) {
	if w.notifier == nil || len(committedAlerts) == 0 {
		return
	}
	eventName := ""
	if event, err := w.store.EventByID(ctx, eventID); err == nil {
		eventName = fmt.Sprintf("%s vs %s", event.HomeTeam, event.AwayTeam)
	}
	for _, a := range committedAlerts {
		if err := w.notifier.NotifyRiskAlert(ctx, a, eventName); err != nil {
			slog.Warn("writequeue: telegram notification failed", "event_id", eventID, "error", err)
		}
	}
}

// oddsUpdatePayload is the odds_updates topic payload, verbatim from spec.md §6.
type oddsUpdatePayload struct {
	EventIDs     []int64 `json:"event_ids"`
	ChangedCount int     `json:"changed_count"`
}

// riskAlertsPayload is the risk_alerts topic payload, verbatim from spec.md §6.
type riskAlertsPayload struct {
	AlertCount int      `json:"alert_count"`
	EventIDs   []int64  `json:"event_ids"`
	Severities []string `json:"severities"`
}

// unmappedAlertPayload is the unmapped_alerts topic payload, verbatim from spec.md §6.
type unmappedAlertPayload struct {
	NewCount int      `json:"new_count"`
	Samples  []string `json:"samples"`
}
