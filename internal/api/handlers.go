// Package api exposes the Odds Cache and Storage read models over HTTP: event list, event
// detail with per-bookmaker margin, and historical time-series, plus operational endpoints.
// Grounded on the teacher's internal/pkg/health server/handlers (mux-based, ListenAndServe
// with graceful shutdown on context cancellation), generalized from an in-memory match
// store to the Odds Cache. spec.md §6 "Cache-read API shapes".
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/Vodeneev/oddwatch/internal/broadcaster"
	"github.com/Vodeneev/oddwatch/internal/cache"
	"github.com/Vodeneev/oddwatch/internal/metrics"
	"github.com/Vodeneev/oddwatch/internal/pkg/models"
	"github.com/Vodeneev/oddwatch/internal/pkg/storage"
)

// Server wires the Cache, Storage, and Broadcaster behind one HTTP mux.
type Server struct {
	cache  *cache.Cache
	store  *storage.Store
	hub    *broadcaster.Hub
	logger *slog.Logger
}

func NewServer(c *cache.Cache, store *storage.Store, hub *broadcaster.Hub, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{cache: c, store: store, hub: hub, logger: logger}
}

// Run starts the HTTP server on addr and blocks until ctx is cancelled, then shuts down
// gracefully. spec.md §6 "Operational surface".
func (s *Server) Run(ctx context.Context, addr string, readHeaderTimeout time.Duration) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/ping", handlePing)
	mux.HandleFunc("/health", handleHealth)
	mux.HandleFunc("/metrics", handleMetrics)
	mux.HandleFunc("/events", s.handleEventList)
	mux.HandleFunc("/events/", s.handleEventRoute)
	if s.hub != nil {
		mux.HandleFunc("/ws", s.hub.HandleWS)
	}

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: readHeaderTimeout}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info("api: http server listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

func handlePing(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("pong\n"))
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok\n"))
}

func handleMetrics(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	_ = json.NewEncoder(w).Encode(metrics.Global().Snapshot())
}

// eventListItem is one event's entry in GET /events. spec.md §6 "Event list item".
type eventListItem struct {
	EventID   int64                             `json:"event_id"`
	SharedKey string                            `json:"shared_key"`
	HomeTeam  string                            `json:"home_team"`
	AwayTeam  string                            `json:"away_team"`
	Kickoff   time.Time                         `json:"kickoff"`
	Books     map[models.Book]models.CacheEntry `json:"books"`
}

// handleEventList serves GET /events. The per-book markets come from the Cache; each
// event's metadata (shared key, teams, kickoff) is read from PostgreSQL via
// Store.EventByID, and an event whose lookup fails is left out of the list.
func (s *Server) handleEventList(w http.ResponseWriter, r *http.Request) {
	snapshot := s.cache.Snapshot()
	items := make([]eventListItem, 0, len(snapshot))
	for eventID, books := range snapshot {
		event, err := s.store.EventByID(r.Context(), eventID)
		if err != nil {
			s.logger.Warn("api: event metadata lookup failed", "event_id", eventID, "error", err)
			continue
		}
		items = append(items, eventListItem{
			EventID:   eventID,
			SharedKey: event.SharedKey,
			HomeTeam:  event.HomeTeam,
			AwayTeam:  event.AwayTeam,
			Kickoff:   event.Kickoff,
			Books:     books,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": items})
}

// eventDetail extends eventListItem with full markets and per-bookmaker margin.
// spec.md §6 "Event detail extends the above with ... per-bookmaker margin".
type eventDetail struct {
	eventListItem
	Margins      map[models.Book]map[string]float64 `json:"margins"` // book -> canonical_market -> margin
	ScrapeStatus *models.EventScrapeStatus           `json:"scrape_status,omitempty"`
}

// handleEventRoute dispatches GET /events/{id} and GET /events/{id}/history.
func (s *Server) handleEventRoute(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path[len("/events/"):]
	id, rest, ok := splitFirstSegment(path)
	if !ok {
		http.NotFound(w, r)
		return
	}
	eventID, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		http.Error(w, "invalid event id", http.StatusBadRequest)
		return
	}
	if rest == "history" {
		s.handleEventHistory(w, r, eventID)
		return
	}
	s.handleEventDetail(w, r, eventID)
}

func (s *Server) handleEventDetail(w http.ResponseWriter, r *http.Request, eventID int64) {
	books, ok := s.cache.Get(eventID)
	if !ok {
		http.NotFound(w, r)
		return
	}
	event, err := s.store.EventByID(r.Context(), eventID)
	if err != nil {
		http.Error(w, "event not found", http.StatusNotFound)
		return
	}

	margins := make(map[models.Book]map[string]float64, len(books))
	for book, entry := range books {
		perMarket := make(map[string]float64, len(entry.Markets))
		for _, m := range entry.Markets {
			perMarket[m.CanonicalMarketID] = marginOf(m.Outcomes)
		}
		margins[book] = perMarket
	}

	var scrapeStatus *models.EventScrapeStatus
	if st, err := s.store.EventScrapeStatusByID(r.Context(), eventID); err == nil {
		scrapeStatus = &st
	}

	writeJSON(w, http.StatusOK, eventDetail{
		eventListItem: eventListItem{
			EventID:   eventID,
			SharedKey: event.SharedKey,
			HomeTeam:  event.HomeTeam,
			AwayTeam:  event.AwayTeam,
			Kickoff:   event.Kickoff,
			Books:     books,
		},
		Margins:      margins,
		ScrapeStatus: scrapeStatus,
	})
}

// marginOf computes the overround Σ(1/price) - 1 over a market's outcomes. spec.md §6.
func marginOf(outcomes []models.Outcome) float64 {
	sum := 0.0
	for _, o := range outcomes {
		if o.Price <= 0 {
			continue
		}
		sum += 1 / o.Price
	}
	return sum - 1
}

// handleEventHistory serves GET /events/{id}/history?book=&market=&line=, a time-series of
// the market's historical captures. spec.md §6 "Historical time-series".
func (s *Server) handleEventHistory(w http.ResponseWriter, r *http.Request, eventID int64) {
	book := models.Book(r.URL.Query().Get("book"))
	market := r.URL.Query().Get("market")
	line := models.LineOrSentinel(nil)
	if raw := r.URL.Query().Get("line"); raw != "" {
		if parsed, err := strconv.ParseFloat(raw, 64); err == nil {
			line = parsed
		}
	}
	if book == "" || market == "" {
		http.Error(w, "book and market query parameters are required", http.StatusBadRequest)
		return
	}

	key := models.MarketKey{EventID: eventID, Book: book, CanonicalMarket: market, Line: line}
	rows, err := s.store.HistoryForMarket(r.Context(), key)
	if err != nil {
		http.Error(w, "failed to load history", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"event_id": eventID, "book": book, "market": market, "line": line, "history": rows})
}

func splitFirstSegment(path string) (first, rest string, ok bool) {
	if path == "" {
		return "", "", false
	}
	for i := 0; i < len(path); i++ {
		if path[i] == '/' {
			return path[:i], path[i+1:], true
		}
	}
	return path, "", true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
