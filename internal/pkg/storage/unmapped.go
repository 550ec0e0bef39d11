package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Vodeneev/oddwatch/internal/pkg/models"
)

// UpsertUnmappedMarket records or bumps an unmapped-market sighting. spec.md §4.2
// "unmappable markets are recorded, not dropped silently", §3 UnmappedMarket.
func (s *Store) UpsertUnmappedMarket(ctx context.Context, tx *sql.Tx, u models.UnmappedMarket, at time.Time) error {
	sample, err := json.Marshal(u.SampleOutcomes)
	if err != nil {
		return fmt.Errorf("marshal sample outcomes: %w", err)
	}
	const query = `
	INSERT INTO unmapped_markets (book, raw_market_id, first_seen_at, last_seen_at, occurrence_count, sample_outcomes, status)
	VALUES ($1, $2, $3, $3, 1, $4, 'NEW')
	ON CONFLICT (book, raw_market_id) DO UPDATE SET
		last_seen_at = $3,
		occurrence_count = unmapped_markets.occurrence_count + 1,
		sample_outcomes = EXCLUDED.sample_outcomes`
	_, err = tx.ExecContext(ctx, query, string(u.Book), u.RawMarketID, at, sample)
	if err != nil {
		return fmt.Errorf("upsert unmapped market: %w", err)
	}
	return nil
}

// UnmappedMarkets lists unmapped markets by status for the operator review surface.
// spec.md §6.
func (s *Store) UnmappedMarkets(ctx context.Context, status models.UnmappedStatus) ([]models.UnmappedMarket, error) {
	const query = `
	SELECT book, raw_market_id, first_seen_at, last_seen_at, occurrence_count, sample_outcomes, status
	FROM unmapped_markets WHERE status = $1 ORDER BY last_seen_at DESC`
	rows, err := s.db.QueryContext(ctx, query, string(status))
	if err != nil {
		return nil, fmt.Errorf("query unmapped markets: %w", err)
	}
	defer rows.Close()

	var out []models.UnmappedMarket
	for rows.Next() {
		var u models.UnmappedMarket
		var book, st string
		var sample []byte
		if err := rows.Scan(&book, &u.RawMarketID, &u.FirstSeenAt, &u.LastSeenAt, &u.OccurrenceCount, &sample, &st); err != nil {
			return nil, fmt.Errorf("scan unmapped market: %w", err)
		}
		u.Book = models.Book(book)
		u.Status = models.UnmappedStatus(st)
		if err := json.Unmarshal(sample, &u.SampleOutcomes); err != nil {
			return nil, fmt.Errorf("unmarshal sample outcomes: %w", err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// SetUnmappedStatus updates an operator's review decision for one unmapped market.
func (s *Store) SetUnmappedStatus(ctx context.Context, book models.Book, rawMarketID string, status models.UnmappedStatus) error {
	const query = `UPDATE unmapped_markets SET status = $3 WHERE book = $1 AND raw_market_id = $2`
	res, err := s.db.ExecContext(ctx, query, string(book), rawMarketID, string(status))
	if err != nil {
		return fmt.Errorf("set unmapped status: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
