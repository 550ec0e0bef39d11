// Package alertstore is the Redis-backed cooldown/dedup store for repeat price_change
// alerts. Grounded on the teacher's internal/pkg/storage/redis.go TTL-keyed client; this
// store is NOT the authoritative Odds Cache (which stays process-local per spec.md §4.5) —
// it only suppresses noisy repeat notifications within a configurable window.
package alertstore

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Vodeneev/oddwatch/internal/pkg/models"
)

// Store guards against re-notifying the same (event, book, market, line, outcome, type)
// repeatedly within the cooldown window. spec.md §9 "Open Question" resolution carried in
// SPEC_FULL.md §4.4.
type Store struct {
	client *redis.Client
}

// New dials Redis and verifies the connection with a ping.
func New(addr, password string, db int) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return &Store{client: client}, nil
}

func cooldownKey(a models.RiskAlert) string {
	return fmt.Sprintf("alertcooldown:%d:%s:%s:%v:%s:%s", a.EventID, a.Book, a.CanonicalMarket, a.Line, a.OutcomeName, a.Type)
}

// ShouldSuppress reports whether this alert should be dropped because an alert for the same
// key was already sent within the cooldown window. It never suppresses the first occurrence
// of a transition — spec.md §8's "exactly one alert per availability transition" still holds
// for the first write; only repeat price_change alerts within the window are ever
// suppressed, per SPEC_FULL.md §4.4.
func (s *Store) ShouldSuppress(ctx context.Context, a models.RiskAlert, cooldown time.Duration) (bool, error) {
	if a.Type != models.AlertPriceChange {
		return false, nil
	}
	key := cooldownKey(a)
	set, err := s.client.SetNX(ctx, key, 1, cooldown).Result()
	if err != nil {
		return false, fmt.Errorf("alertstore: cooldown check: %w", err)
	}
	// SetNX returns true when the key did NOT already exist — i.e. this is the first
	// occurrence within the window, so it should NOT be suppressed.
	return !set, nil
}

// Close closes the underlying Redis connection.
func (s *Store) Close() error {
	return s.client.Close()
}
