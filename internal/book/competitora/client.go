// Package competitora implements the book.Client interface for the first competitor
// sportsbook: an Arcadia-style guest API keyed by API key + device UUID headers, with
// optional proxy rotation. Grounded on the teacher's pinnacle/pinnacle888 HTTP clients,
// trimmed to the discovery/markets shape this system needs and without mirror resolution
// (that upstream, unlike competitor B, is reachable directly).
package competitora

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/Vodeneev/oddwatch/internal/book"
	"github.com/Vodeneev/oddwatch/internal/pkg/config"
	"github.com/Vodeneev/oddwatch/internal/pkg/models"
)

const footballSportID = 29 // Arcadia-style sport id for football/soccer

type Client struct {
	httpClient *http.Client
	cfg        config.CompetitorAConfig
	sem        *semaphore.Weighted

	proxyMu    sync.Mutex
	proxyIndex int
}

func New(cfg config.CompetitorAConfig, timeout time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		cfg:        cfg,
		sem:        semaphore.NewWeighted(cfg.MaxConcurrency),
	}
}

func (c *Client) Book() models.Book { return models.BookCompetitorA }

// relatedMatchup's ID is the upstream's URL-encoded cross-book token, e.g.
// "sr:match:30912345" — preserved verbatim as both SharedKey and ExternalID, since the
// upstream rejects a reparsed/normalized form on the per-event markets fetch.
type relatedMatchup struct {
	ID        string `json:"id"`
	StartTime string `json:"startTime"`
	League    struct {
		Name string `json:"name"`
	} `json:"league"`
	Participants []participant `json:"participants"`
}

type participant struct {
	Alignment string `json:"alignment"`
	Name      string `json:"name"`
}

func (c *Client) DiscoverEvents(ctx context.Context) ([]models.RawEvent, error) {
	if err := c.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer c.sem.Release(1)

	var matchups []relatedMatchup
	if err := c.getJSON(ctx, fmt.Sprintf("/0.1/sports/%d/matchups", footballSportID), &matchups); err != nil {
		return nil, err
	}

	var out []models.RawEvent
	for _, m := range matchups {
		kickoff, err := time.Parse(time.RFC3339, m.StartTime)
		if err != nil {
			continue
		}
		home, away := teamNames(m.Participants)
		if home == "" || away == "" {
			continue
		}
		out = append(out, models.RawEvent{
			// spec: Competitor A supplies the SharedEventKey as part of the event's
			// external id, a URL-encoded "<prefix>:match:<digits>" token that must be
			// preserved verbatim on the markets fetch — the upstream rejects a
			// renormalized form, so SharedKey and ExternalID are the same string.
			SharedKey:      m.ID,
			ExternalID:     m.ID,
			Kickoff:        kickoff,
			HomeTeam:       home,
			AwayTeam:       away,
			TournamentName: m.League.Name,
		})
	}
	return out, nil
}

func teamNames(participants []participant) (home, away string) {
	for _, p := range participants {
		switch p.Alignment {
		case "home":
			home = p.Name
		case "away":
			away = p.Name
		}
	}
	return home, away
}

type market struct {
	MatchupID int64   `json:"matchupId"`
	Period    int     `json:"period"`
	Type      string  `json:"type"`
	Key       string  `json:"key"`
	Status    string  `json:"status"`
	Prices    []price `json:"prices"`
}

type price struct {
	Designation string   `json:"designation"`
	Points      *float64 `json:"points,omitempty"`
	Price       int      `json:"price"` // American odds
}

func (c *Client) FetchEventMarkets(ctx context.Context, externalID string) (models.RawMarkets, error) {
	if err := c.sem.Acquire(ctx, 1); err != nil {
		return models.RawMarkets{}, err
	}
	defer c.sem.Release(1)

	if externalID == "" {
		return models.RawMarkets{}, fmt.Errorf("competitor_a: empty external id")
	}

	var markets []market
	path := fmt.Sprintf("/0.1/matchups/%s/markets/related/straight", url.PathEscape(externalID))
	if err := c.getJSON(ctx, path, &markets); err != nil {
		return models.RawMarkets{}, err
	}
	if len(markets) == 0 {
		return models.RawMarkets{}, book.ErrEventGone
	}

	// Period 0 is the full-game line, the only one this system tracks; in-play/segment
	// markets are out of scope per spec.md's football-only, pre-kickoff scope.
	grouped := map[string]*models.RawMarket{}
	var order []string
	for _, m := range markets {
		if m.Period != 0 || m.Status != "open" {
			continue
		}
		key := m.Type + ":" + m.Key
		rm, ok := grouped[key]
		if !ok {
			rm = &models.RawMarket{RawMarketID: key}
			if len(m.Prices) > 0 {
				rm.Line = m.Prices[0].Points
			}
			grouped[key] = rm
			order = append(order, key)
		}
		for _, p := range m.Prices {
			rm.Outcomes = append(rm.Outcomes, models.RawOutcome{
				Name:  p.Designation,
				Price: americanToDecimal(p.Price),
			})
		}
	}

	out := make([]models.RawMarket, 0, len(order))
	for _, key := range order {
		out = append(out, *grouped[key])
	}
	return models.RawMarkets{Markets: out}, nil
}

// americanToDecimal converts American odds (e.g. +150, -200) to decimal odds.
func americanToDecimal(american int) float64 {
	if american > 0 {
		return float64(american)/100 + 1
	}
	return 100/float64(-american) + 1
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	if len(c.cfg.ProxyList) > 0 {
		return c.getJSONWithProxyRetry(ctx, path, out)
	}
	return c.getJSONVia(ctx, c.httpClient, path, out)
}

func (c *Client) getJSONWithProxyRetry(ctx context.Context, path string, out any) error {
	c.proxyMu.Lock()
	start := c.proxyIndex
	c.proxyMu.Unlock()

	var lastErr error
	for attempt := 0; attempt < len(c.cfg.ProxyList); attempt++ {
		idx := (start + attempt) % len(c.cfg.ProxyList)
		proxyURL, err := url.Parse(c.cfg.ProxyList[idx])
		if err != nil {
			lastErr = err
			continue
		}
		transport := http.DefaultTransport.(*http.Transport).Clone()
		transport.Proxy = http.ProxyURL(proxyURL)
		client := &http.Client{Timeout: c.httpClient.Timeout, Transport: transport}

		if err := c.getJSONVia(ctx, client, path, out); err != nil {
			lastErr = err
			continue
		}
		c.proxyMu.Lock()
		c.proxyIndex = idx
		c.proxyMu.Unlock()
		return nil
	}
	return fmt.Errorf("competitor_a: all proxies failed, last error: %w", lastErr)
}

func (c *Client) getJSONVia(ctx context.Context, client *http.Client, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+path, nil)
	if err != nil {
		return fmt.Errorf("competitor_a: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("X-API-Key", c.cfg.APIKey)
	}
	if c.cfg.DeviceUUID != "" {
		req.Header.Set("X-Device-UUID", c.cfg.DeviceUUID)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("competitor_a: request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return book.ErrEventGone
	}
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("competitor_a: unexpected status %d: %s", resp.StatusCode, string(b))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("competitor_a: read body: %w", err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("competitor_a: unmarshal: %w", err)
	}
	return nil
}
