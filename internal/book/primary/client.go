// Package primary implements the book.Client interface for the primary sportsbook: a
// plain gzip-JSON HTTP API requiring no mirror resolution or proxy rotation. Grounded on
// the teacher's fonbet HTTP client and response envelope.
package primary

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/Vodeneev/oddwatch/internal/book"
	"github.com/Vodeneev/oddwatch/internal/pkg/config"
	"github.com/Vodeneev/oddwatch/internal/pkg/models"
)

const footballScopeMarket = "football"

type Client struct {
	httpClient *http.Client
	cfg        config.PrimaryBookConfig
	userAgent  string
	sem        *semaphore.Weighted
}

func New(cfg config.PrimaryBookConfig, userAgent string, timeout time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		cfg:        cfg,
		userAgent:  userAgent,
		sem:        semaphore.NewWeighted(cfg.MaxConcurrency),
	}
}

func (c *Client) Book() models.Book { return models.BookPrimary }

// catalogEvent mirrors one entry of the catalog feed's events array. externalId is the
// third-party cross-book match identifier the primary book supplies directly, distinct
// from id (this book's own fetch key) per spec's SharedEventKey contract.
type catalogEvent struct {
	ID         int64  `json:"id"`
	ExternalID string `json:"externalId,omitempty"`
	StartTime  int64  `json:"startTime"`
	SportID    int64  `json:"sportId"`
	ParentID   int64  `json:"parentId,omitempty"`
	Team1      string `json:"team1,omitempty"`
	Team2      string `json:"team2,omitempty"`
}

type catalogTournament struct {
	ID      int    `json:"id"`
	Caption string `json:"caption"`
}

type catalogResponse struct {
	TournamentInfos []catalogTournament `json:"tournamentInfos"`
	Events          []catalogEvent      `json:"events"`
}

func (c *Client) DiscoverEvents(ctx context.Context) ([]models.RawEvent, error) {
	if err := c.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer c.sem.Release(1)

	body, err := c.getCatalog(ctx)
	if err != nil {
		return nil, err
	}

	var resp catalogResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("primary: unmarshal catalog: %w", err)
	}

	tournamentByID := make(map[int]string, len(resp.TournamentInfos))
	for _, t := range resp.TournamentInfos {
		tournamentByID[t.ID] = t.Caption
	}

	var out []models.RawEvent
	for _, e := range resp.Events {
		if e.Team1 == "" || e.Team2 == "" {
			continue // a tournament/grouping row, not a playable fixture
		}
		out = append(out, models.RawEvent{
			SharedKey:      e.ExternalID,
			ExternalID:     strconv.FormatInt(e.ID, 10),
			Kickoff:        time.UnixMilli(e.StartTime),
			HomeTeam:       e.Team1,
			AwayTeam:       e.Team2,
			TournamentName: tournamentByID[int(e.ParentID)],
		})
	}
	return out, nil
}

type factorGroup struct {
	EventID int64    `json:"e"`
	Factors []factor `json:"factors"`
}

type factor struct {
	F  int     `json:"f"`
	V  float64 `json:"v"`
	P  int     `json:"p"`
	Pt string  `json:"pt"`
}

type factorsResponse struct {
	CustomFactors []factorGroup `json:"customFactors"`
}

func (c *Client) FetchEventMarkets(ctx context.Context, externalID string) (models.RawMarkets, error) {
	if err := c.sem.Acquire(ctx, 1); err != nil {
		return models.RawMarkets{}, err
	}
	defer c.sem.Release(1)

	body, err := c.getEventFactors(ctx, externalID)
	if err != nil {
		return models.RawMarkets{}, err
	}

	var resp factorsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return models.RawMarkets{}, fmt.Errorf("primary: unmarshal factors: %w", err)
	}
	if len(resp.CustomFactors) == 0 {
		return models.RawMarkets{}, book.ErrEventGone
	}

	byMarket := map[int][]factor{}
	for _, group := range resp.CustomFactors {
		for _, f := range group.Factors {
			byMarket[f.F] = append(byMarket[f.F], f)
		}
	}

	var markets []models.RawMarket
	for marketID, factors := range byMarket {
		m := models.RawMarket{RawMarketID: strconv.Itoa(marketID)}
		if len(factors) > 0 && factors[0].P != 0 {
			line := float64(factors[0].P) / 100
			m.Line = &line
		}
		for i, f := range factors {
			name := f.Pt
			if name == "" {
				name = strconv.Itoa(i)
			}
			m.Outcomes = append(m.Outcomes, models.RawOutcome{Name: name, Price: f.V})
		}
		markets = append(markets, m)
	}
	return models.RawMarkets{Markets: markets}, nil
}

func (c *Client) getCatalog(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL, nil)
	if err != nil {
		return nil, fmt.Errorf("primary: build catalog request: %w", err)
	}
	q := req.URL.Query()
	q.Set("lang", c.cfg.Lang)
	q.Set("version", c.cfg.Version)
	q.Set("scopeMarket", footballScopeMarket)
	req.URL.RawQuery = q.Encode()
	return c.do(req)
}

func (c *Client) getEventFactors(ctx context.Context, externalID string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/event/"+externalID, nil)
	if err != nil {
		return nil, fmt.Errorf("primary: build event request: %w", err)
	}
	q := req.URL.Query()
	q.Set("lang", c.cfg.Lang)
	q.Set("version", c.cfg.Version)
	req.URL.RawQuery = q.Encode()
	return c.do(req)
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept-Encoding", "gzip")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("primary: request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, book.ErrEventGone
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("primary: unexpected status %d", resp.StatusCode)
	}

	if resp.Header.Get("Content-Encoding") == "gzip" {
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("primary: gzip reader: %w", err)
		}
		defer gz.Close()
		return io.ReadAll(gz)
	}
	return io.ReadAll(resp.Body)
}
