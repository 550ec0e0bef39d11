package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Vodeneev/oddwatch/internal/pkg/models"
)

// UpsertCurrentMarket writes the latest read-model row for one MarketKey and clears any
// unavailable_since, since this is only called when the book reported the market present.
// spec.md §3 CurrentMarket, §4.3 Phase 4.1/4.2.
func (s *Store) UpsertCurrentMarket(ctx context.Context, tx *sql.Tx, m models.CurrentMarket) error {
	outcomes, err := json.Marshal(m.Outcomes)
	if err != nil {
		return fmt.Errorf("marshal outcomes: %w", err)
	}
	const query = `
	INSERT INTO current_markets (
		event_id, book, canonical_market, line, outcomes,
		last_updated_at, last_confirmed_at, unavailable_since
	) VALUES ($1, $2, $3, $4, $5, $6, $7, NULL)
	ON CONFLICT (event_id, book, canonical_market, line) DO UPDATE SET
		outcomes = EXCLUDED.outcomes,
		last_updated_at = EXCLUDED.last_updated_at,
		last_confirmed_at = EXCLUDED.last_confirmed_at,
		unavailable_since = NULL`
	_, err = tx.ExecContext(ctx, query,
		m.EventID, string(m.Book), m.CanonicalMarket, m.Line, outcomes,
		m.LastUpdatedAt, m.LastConfirmedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert current market: %w", err)
	}
	return nil
}

// TouchConfirmed bumps last_confirmed_at without changing outcomes, for markets whose
// numbers were unchanged this cycle. spec.md §4.3 Phase 4.1 "unchanged" case.
func (s *Store) TouchConfirmed(ctx context.Context, tx *sql.Tx, key models.MarketKey, at time.Time) error {
	const query = `
	UPDATE current_markets SET last_confirmed_at = $5, unavailable_since = NULL
	WHERE event_id = $1 AND book = $2 AND canonical_market = $3 AND line = $4`
	_, err := tx.ExecContext(ctx, query, key.EventID, string(key.Book), key.CanonicalMarket, key.Line, at)
	if err != nil {
		return fmt.Errorf("touch confirmed: %w", err)
	}
	return nil
}

// MarkUnavailable flips a market's availability off the first cycle it is missing from the
// book's response. spec.md §4.3 Phase 4.2.
func (s *Store) MarkUnavailable(ctx context.Context, tx *sql.Tx, key models.MarketKey, at time.Time) error {
	const query = `
	UPDATE current_markets SET unavailable_since = $5
	WHERE event_id = $1 AND book = $2 AND canonical_market = $3 AND line = $4 AND unavailable_since IS NULL`
	_, err := tx.ExecContext(ctx, query, key.EventID, string(key.Book), key.CanonicalMarket, key.Line, at)
	if err != nil {
		return fmt.Errorf("mark unavailable: %w", err)
	}
	return nil
}

// InsertHistory appends an immutable snapshot row for a market whose outcomes changed.
// spec.md §3 HistoricalMarketRow: append-only, never updated.
func (s *Store) InsertHistory(ctx context.Context, tx *sql.Tx, h models.HistoricalMarketRow) error {
	outcomes, err := json.Marshal(h.Outcomes)
	if err != nil {
		return fmt.Errorf("marshal outcomes: %w", err)
	}
	const query = `
	INSERT INTO market_history (event_id, book, canonical_market, line, outcomes, captured_at)
	VALUES ($1, $2, $3, $4, $5, $6)`
	_, err = tx.ExecContext(ctx, query, h.EventID, string(h.Book), h.CanonicalMarket, h.Line, outcomes, h.CapturedAt)
	if err != nil {
		return fmt.Errorf("insert market history: %w", err)
	}
	return nil
}

// CurrentMarketsForEvent loads every book's current markets for one event, used both to
// diff against freshly scraped data and to refresh the Odds Cache after a commit.
func (s *Store) CurrentMarketsForEvent(ctx context.Context, eventID int64) ([]models.CurrentMarket, error) {
	const query = `
	SELECT event_id, book, canonical_market, line, outcomes,
	       last_updated_at, last_confirmed_at, unavailable_since
	FROM current_markets WHERE event_id = $1`
	rows, err := s.db.QueryContext(ctx, query, eventID)
	if err != nil {
		return nil, fmt.Errorf("query current markets: %w", err)
	}
	defer rows.Close()
	return scanCurrentMarkets(rows)
}

// AllCurrentMarkets loads every current_markets row for events whose kickoff is still
// within the cache grace window, used once at startup to warm the process-local Odds
// Cache. spec.md §4.5 Warmup: "loads CurrentMarket for events with kickoff > now - grace".
func (s *Store) AllCurrentMarkets(ctx context.Context, since time.Time) ([]models.CurrentMarket, error) {
	const query = `
	SELECT cm.event_id, cm.book, cm.canonical_market, cm.line, cm.outcomes,
	       cm.last_updated_at, cm.last_confirmed_at, cm.unavailable_since
	FROM current_markets cm
	JOIN events e ON e.id = cm.event_id
	WHERE e.kickoff > $1`
	rows, err := s.db.QueryContext(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("query all current markets: %w", err)
	}
	defer rows.Close()
	return scanCurrentMarkets(rows)
}

// HistoryForMarket returns one (event, book, canonical_market, line)'s history rows ordered
// oldest first, the time-series the read API's historical endpoint serves. spec.md §6.
func (s *Store) HistoryForMarket(ctx context.Context, key models.MarketKey) ([]models.HistoricalMarketRow, error) {
	const query = `
	SELECT event_id, book, canonical_market, line, outcomes, captured_at
	FROM market_history
	WHERE event_id = $1 AND book = $2 AND canonical_market = $3 AND line = $4
	ORDER BY captured_at ASC`
	rows, err := s.db.QueryContext(ctx, query, key.EventID, string(key.Book), key.CanonicalMarket, key.Line)
	if err != nil {
		return nil, fmt.Errorf("query market history: %w", err)
	}
	defer rows.Close()

	var out []models.HistoricalMarketRow
	for rows.Next() {
		var h models.HistoricalMarketRow
		var book string
		var outcomes []byte
		if err := rows.Scan(&h.EventID, &book, &h.CanonicalMarket, &h.Line, &outcomes, &h.CapturedAt); err != nil {
			return nil, fmt.Errorf("scan market history row: %w", err)
		}
		h.Book = models.Book(book)
		if err := json.Unmarshal(outcomes, &h.Outcomes); err != nil {
			return nil, fmt.Errorf("unmarshal history outcomes: %w", err)
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

func scanCurrentMarkets(rows *sql.Rows) ([]models.CurrentMarket, error) {
	var out []models.CurrentMarket
	for rows.Next() {
		var m models.CurrentMarket
		var book string
		var outcomes []byte
		var unavailableSince sql.NullTime
		if err := rows.Scan(
			&m.EventID, &book, &m.CanonicalMarket, &m.Line, &outcomes,
			&m.LastUpdatedAt, &m.LastConfirmedAt, &unavailableSince,
		); err != nil {
			return nil, fmt.Errorf("scan current market: %w", err)
		}
		m.Book = models.Book(book)
		if err := json.Unmarshal(outcomes, &m.Outcomes); err != nil {
			return nil, fmt.Errorf("unmarshal outcomes: %w", err)
		}
		if unavailableSince.Valid {
			t := unavailableSince.Time
			m.UnavailableSince = &t
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
