package primary

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Vodeneev/oddwatch/internal/book"
	"github.com/Vodeneev/oddwatch/internal/pkg/config"
)

func newTestClient(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()
	return New(config.PrimaryBookConfig{
		BaseURL:        srv.URL,
		Lang:           "en",
		Version:        "1",
		MaxConcurrency: 4,
	}, "oddwatch-test", 5*time.Second)
}

func TestDiscoverEvents_SkipsTournamentRowsAndMapsFields(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"tournamentInfos": [{"id": 7, "caption": "Premier League"}],
			"events": [
				{"id": 1, "externalId": "shared-1", "startTime": 0, "parentId": 7, "team1": "Home", "team2": "Away"},
				{"id": 2, "parentId": 7}
			]
		}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	events, err := c.DiscoverEvents(context.Background())
	if err != nil {
		t.Fatalf("DiscoverEvents() error = %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected the tournament-grouping row without team names to be skipped, got %d events", len(events))
	}
	e := events[0]
	if e.SharedKey != "shared-1" || e.ExternalID != "1" || e.HomeTeam != "Home" || e.AwayTeam != "Away" {
		t.Errorf("unexpected mapped event: %+v", e)
	}
	if e.TournamentName != "Premier League" {
		t.Errorf("TournamentName = %q, want %q resolved via parentId", e.TournamentName, "Premier League")
	}
}

func TestFetchEventMarkets_EmptyFactorsIsEventGone(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"customFactors": []}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	_, err := c.FetchEventMarkets(context.Background(), "123")
	if err != book.ErrEventGone {
		t.Errorf("FetchEventMarkets() error = %v, want ErrEventGone", err)
	}
}

func TestFetchEventMarkets_GroupsFactorsByMarket(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"customFactors": [
				{"e": 1, "factors": [
					{"f": 1, "v": 2.1, "p": 0, "pt": "1"},
					{"f": 1, "v": 3.4, "p": 0, "pt": "X"},
					{"f": 2, "v": 1.9, "p": 250, "pt": "over"}
				]}
			]
		}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	markets, err := c.FetchEventMarkets(context.Background(), "123")
	if err != nil {
		t.Fatalf("FetchEventMarkets() error = %v", err)
	}
	if len(markets.Markets) != 2 {
		t.Fatalf("expected factors grouped into 2 markets, got %d", len(markets.Markets))
	}
	for _, m := range markets.Markets {
		if m.RawMarketID == "1" && len(m.Outcomes) != 2 {
			t.Errorf("market 1 outcomes = %v, want 2", m.Outcomes)
		}
		if m.RawMarketID == "2" {
			if m.Line == nil || *m.Line != 2.5 {
				t.Errorf("market 2 line = %v, want 2.5 (parameter/100)", m.Line)
			}
		}
	}
}

func TestFetchEventMarkets_NotFoundIsEventGone(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	_, err := c.FetchEventMarkets(context.Background(), "123")
	if err != book.ErrEventGone {
		t.Errorf("FetchEventMarkets() error = %v, want ErrEventGone", err)
	}
}
