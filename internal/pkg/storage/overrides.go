package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Vodeneev/oddwatch/internal/mapper"
	"github.com/Vodeneev/oddwatch/internal/pkg/models"
)

// LoadMarketOverrides reads the full operator-supplied overrides table, ordered so the
// Mapper's tie-break (priority, then most recent CreatedAt) never depends on row order.
// spec.md §4.2 "overrides loaded from durable storage"; spec.md §9 Mapper reload.
func (s *Store) LoadMarketOverrides(ctx context.Context) ([]mapper.Override, error) {
	const query = `
	SELECT book, raw_market_id, canonical_market, has_line, outcome_names, priority, created_at
	FROM market_overrides
	ORDER BY priority ASC, created_at ASC`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query market overrides: %w", err)
	}
	defer rows.Close()

	var out []mapper.Override
	for rows.Next() {
		var o mapper.Override
		var book string
		var outcomeNames []byte
		if err := rows.Scan(&book, &o.RawMarketID, &o.CanonicalMarket, &o.HasLine, &outcomeNames, &o.Priority, &o.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan market override: %w", err)
		}
		o.Book = models.Book(book)
		if err := json.Unmarshal(outcomeNames, &o.OutcomeNames); err != nil {
			return nil, fmt.Errorf("unmarshal override outcome names: %w", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}
