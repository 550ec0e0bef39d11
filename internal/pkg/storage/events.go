package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/Vodeneev/oddwatch/internal/pkg/models"
)

// UpsertTournament returns the tournament's row id, inserting it if it doesn't exist yet.
func (s *Store) UpsertTournament(ctx context.Context, tx *sql.Tx, t models.Tournament) (int64, error) {
	const query = `
	INSERT INTO tournaments (name, country, sport) VALUES ($1, $2, $3)
	ON CONFLICT (name, country) DO UPDATE SET sport = EXCLUDED.sport
	RETURNING id`
	var id int64
	err := tx.QueryRowContext(ctx, query, t.Name, t.Country, t.Sport).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("upsert tournament: %w", err)
	}
	return id, nil
}

// UpsertEvent inserts a newly discovered event, or merges a book's external id and bumps
// last_seen_at onto an existing one keyed by SharedKey. spec.md §4.3 Phase 1 discovery merge.
func (s *Store) UpsertEvent(ctx context.Context, tx *sql.Tx, e models.Event) (int64, error) {
	var primaryID sql.NullString
	if e.PrimaryBookExternalID != nil {
		primaryID = sql.NullString{String: *e.PrimaryBookExternalID, Valid: true}
	}
	var aID, bID sql.NullString
	if v, ok := e.CompetitorExternalIDs[models.BookCompetitorA]; ok {
		aID = sql.NullString{String: v, Valid: true}
	}
	if v, ok := e.CompetitorExternalIDs[models.BookCompetitorB]; ok {
		bID = sql.NullString{String: v, Valid: true}
	}

	const query = `
	INSERT INTO events (
		shared_key, home_team, away_team, kickoff, tournament_id,
		primary_external_id, competitor_a_external_id, competitor_b_external_id,
		discovered_at, last_seen_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)
	ON CONFLICT (shared_key) DO UPDATE SET
		home_team = EXCLUDED.home_team,
		away_team = EXCLUDED.away_team,
		kickoff = EXCLUDED.kickoff,
		tournament_id = EXCLUDED.tournament_id,
		primary_external_id = COALESCE(EXCLUDED.primary_external_id, events.primary_external_id),
		competitor_a_external_id = COALESCE(EXCLUDED.competitor_a_external_id, events.competitor_a_external_id),
		competitor_b_external_id = COALESCE(EXCLUDED.competitor_b_external_id, events.competitor_b_external_id),
		last_seen_at = EXCLUDED.last_seen_at
	RETURNING id`

	var id int64
	err := tx.QueryRowContext(ctx, query,
		e.SharedKey, e.HomeTeam, e.AwayTeam, e.Kickoff, e.TournamentRef,
		primaryID, aID, bID, e.LastSeenAt,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("upsert event: %w", err)
	}
	return id, nil
}

// UpsertEventScrapeStatus records the outcome of the batch that just touched this event,
// replacing whatever status the previous batch left. spec.md §4.3 Phase 3, §6.
func (s *Store) UpsertEventScrapeStatus(ctx context.Context, tx *sql.Tx, st models.EventScrapeStatus) error {
	const query = `
	INSERT INTO event_scrape_status (event_id, batch_id, status, books_ok, books_failed, recorded_at)
	VALUES ($1, $2, $3, $4, $5, $6)
	ON CONFLICT (event_id) DO UPDATE SET
		batch_id = EXCLUDED.batch_id,
		status = EXCLUDED.status,
		books_ok = EXCLUDED.books_ok,
		books_failed = EXCLUDED.books_failed,
		recorded_at = EXCLUDED.recorded_at`
	_, err := tx.ExecContext(ctx, query,
		st.EventID, st.BatchID, string(st.Status), joinBooks(st.BooksOK), joinBooks(st.BooksFailed), st.RecordedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert event scrape status: %w", err)
	}
	return nil
}

// EventScrapeStatusByID loads one event's most recently recorded scrape status.
func (s *Store) EventScrapeStatusByID(ctx context.Context, eventID int64) (models.EventScrapeStatus, error) {
	const query = `
	SELECT event_id, batch_id, status, books_ok, books_failed, recorded_at
	FROM event_scrape_status WHERE event_id = $1`
	var st models.EventScrapeStatus
	var status, booksOK, booksFailed string
	err := s.db.QueryRowContext(ctx, query, eventID).Scan(
		&st.EventID, &st.BatchID, &status, &booksOK, &booksFailed, &st.RecordedAt,
	)
	if err != nil {
		return models.EventScrapeStatus{}, fmt.Errorf("load event scrape status %d: %w", eventID, err)
	}
	st.Status = models.ScrapeStatus(status)
	st.BooksOK = splitBooks(booksOK)
	st.BooksFailed = splitBooks(booksFailed)
	return st, nil
}

func joinBooks(books []models.Book) string {
	ss := make([]string, len(books))
	for i, b := range books {
		ss[i] = string(b)
	}
	return strings.Join(ss, ",")
}

func splitBooks(s string) []models.Book {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]models.Book, len(parts))
	for i, p := range parts {
		out[i] = models.Book(p)
	}
	return out
}

// EventByID loads one event by its internal id.
func (s *Store) EventByID(ctx context.Context, id int64) (models.Event, error) {
	const query = `
	SELECT id, shared_key, home_team, away_team, kickoff, tournament_id,
	       primary_external_id, competitor_a_external_id, competitor_b_external_id,
	       discovered_at, last_seen_at
	FROM events WHERE id = $1`
	var e models.Event
	var primaryID, aID, bID sql.NullString
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&e.EventID, &e.SharedKey, &e.HomeTeam, &e.AwayTeam, &e.Kickoff, &e.TournamentRef,
		&primaryID, &aID, &bID, &e.DiscoveredAt, &e.LastSeenAt,
	)
	if err != nil {
		return models.Event{}, fmt.Errorf("load event %d: %w", id, err)
	}
	if primaryID.Valid {
		e.PrimaryBookExternalID = &primaryID.String
	}
	e.CompetitorExternalIDs = map[models.Book]string{}
	if aID.Valid {
		e.CompetitorExternalIDs[models.BookCompetitorA] = aID.String
	}
	if bID.Valid {
		e.CompetitorExternalIDs[models.BookCompetitorB] = bID.String
	}
	return e, nil
}

// UpcomingEvents returns events whose kickoff is still ahead of now, ordered by kickoff,
// for the Coordinator's priority queue seed (spec.md §4.3 Phase 2).
func (s *Store) UpcomingEvents(ctx context.Context, now time.Time) ([]models.Event, error) {
	const query = `
	SELECT id, shared_key, home_team, away_team, kickoff, tournament_id,
	       primary_external_id, competitor_a_external_id, competitor_b_external_id,
	       discovered_at, last_seen_at
	FROM events WHERE kickoff > $1 ORDER BY kickoff ASC`
	rows, err := s.db.QueryContext(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("query upcoming events: %w", err)
	}
	defer rows.Close()

	var out []models.Event
	for rows.Next() {
		var e models.Event
		var primaryID, aID, bID sql.NullString
		if err := rows.Scan(
			&e.EventID, &e.SharedKey, &e.HomeTeam, &e.AwayTeam, &e.Kickoff, &e.TournamentRef,
			&primaryID, &aID, &bID, &e.DiscoveredAt, &e.LastSeenAt,
		); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		if primaryID.Valid {
			e.PrimaryBookExternalID = &primaryID.String
		}
		e.CompetitorExternalIDs = map[models.Book]string{}
		if aID.Valid {
			e.CompetitorExternalIDs[models.BookCompetitorA] = aID.String
		}
		if bID.Valid {
			e.CompetitorExternalIDs[models.BookCompetitorB] = bID.String
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
