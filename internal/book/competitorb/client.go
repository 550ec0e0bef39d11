// Package competitorb implements the book.Client interface for the second competitor
// sportsbook: reachable only through a mirror domain resolved via a headless browser, with
// brotli/zstd-compressed responses and an upstream that throttles aggressively enough to
// require explicit inter-request spacing. Grounded on the teacher's xbet1/marathonbet
// HTTP clients.
package competitorb

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/chromedp/chromedp"
	"github.com/klauspost/compress/zstd"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/Vodeneev/oddwatch/internal/book"
	"github.com/Vodeneev/oddwatch/internal/pkg/config"
	"github.com/Vodeneev/oddwatch/internal/pkg/models"
)

const footballSportID = 1

type Client struct {
	httpClient *http.Client
	cfg        config.CompetitorBConfig
	sem        *semaphore.Weighted
	limiter    *rate.Limiter

	resolvedMu      sync.RWMutex
	resolvedBaseURL string
	lastResolvedAt  time.Time
}

func New(cfg config.CompetitorBConfig, timeout time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		cfg:        cfg,
		sem:        semaphore.NewWeighted(cfg.MaxConcurrency),
		limiter:    rate.NewLimiter(rate.Every(cfg.RequestSpacing), 1),
	}
}

func (c *Client) Book() models.Book { return models.BookCompetitorB }

// catalogEvent's ExternalRef is the third-party cross-book match identifier; ID is this
// book's own internal fetch key, a distinct value per spec's SharedEventKey contract.
type catalogEvent struct {
	ID          int64  `json:"id"`
	ExternalRef string `json:"external_ref,omitempty"`
	StartTime   int64  `json:"start_ts"` // unix seconds
	Home        string `json:"home"`
	Away        string `json:"away"`
	League      string `json:"league"`
	Country     string `json:"country"`
}

func (c *Client) DiscoverEvents(ctx context.Context) ([]models.RawEvent, error) {
	body, err := c.get(ctx, fmt.Sprintf("/service-api/LineFeed/Get1x2_VZip?sports=%d&count=1000&lng=en", footballSportID))
	if err != nil {
		return nil, err
	}

	var events []catalogEvent
	if err := json.Unmarshal(body, &events); err != nil {
		return nil, fmt.Errorf("competitor_b: unmarshal catalog: %w", err)
	}

	out := make([]models.RawEvent, 0, len(events))
	for _, e := range events {
		if e.Home == "" || e.Away == "" {
			continue
		}
		out = append(out, models.RawEvent{
			SharedKey:         e.ExternalRef,
			ExternalID:        strconv.FormatInt(e.ID, 10),
			Kickoff:           time.Unix(e.StartTime, 0),
			HomeTeam:          e.Home,
			AwayTeam:          e.Away,
			TournamentName:    e.League,
			TournamentCountry: e.Country,
		})
	}
	return out, nil
}

type gameZipOutcome struct {
	T     int     `json:"T"` // outcome type code
	P     float64 `json:"P"` // handicap/total parameter
	C     float64 `json:"C"` // coefficient (decimal odds)
	Group int     `json:"G"` // market group code
}

type gameZipResponse struct {
	Value struct {
		GE []gameZipOutcome `json:"GE"`
	} `json:"Value"`
}

func (c *Client) FetchEventMarkets(ctx context.Context, externalID string) (models.RawMarkets, error) {
	body, err := c.get(ctx, fmt.Sprintf("/service-api/LineFeed/GetGameZip?id=%s&lng=en", externalID))
	if err != nil {
		return models.RawMarkets{}, err
	}

	var resp gameZipResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return models.RawMarkets{}, fmt.Errorf("competitor_b: unmarshal game zip: %w", err)
	}
	if len(resp.Value.GE) == 0 {
		return models.RawMarkets{}, book.ErrEventGone
	}

	grouped := map[string]*models.RawMarket{}
	var order []string
	for _, o := range resp.Value.GE {
		key := strconv.Itoa(o.Group)
		rm, ok := grouped[key]
		if !ok {
			rm = &models.RawMarket{RawMarketID: key}
			if o.P != 0 {
				line := o.P
				rm.Line = &line
			}
			grouped[key] = rm
			order = append(order, key)
		}
		rm.Outcomes = append(rm.Outcomes, models.RawOutcome{
			Name:  strconv.Itoa(o.T),
			Price: o.C,
		})
	}

	out := make([]models.RawMarket, 0, len(order))
	for _, k := range order {
		out = append(out, *grouped[k])
	}
	return models.RawMarkets{Markets: out}, nil
}

// get acquires the concurrency slot and the rate-limiter token, then performs the request
// against the resolved mirror base URL. spec.md §5: this upstream needs request spacing on
// top of the concurrency cap, unlike the other two books.
func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	if err := c.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer c.sem.Release(1)
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	base, err := c.baseURL(ctx)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+path, nil)
	if err != nil {
		return nil, fmt.Errorf("competitor_b: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Encoding", "gzip, br, zstd")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("competitor_b: request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, book.ErrEventGone
	}
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("competitor_b: unexpected status %d: %s", resp.StatusCode, string(b))
	}
	return decodeBody(resp)
}

func decodeBody(resp *http.Response) ([]byte, error) {
	enc := strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding")))
	switch {
	case strings.Contains(enc, "br"):
		return io.ReadAll(brotli.NewReader(resp.Body))
	case strings.Contains(enc, "zstd"):
		r, err := zstd.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("competitor_b: zstd reader: %w", err)
		}
		defer r.Close()
		return io.ReadAll(r)
	case strings.Contains(enc, "gzip"):
		r, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("competitor_b: gzip reader: %w", err)
		}
		defer r.Close()
		return io.ReadAll(r)
	default:
		return io.ReadAll(resp.Body)
	}
}

// baseURL returns the cached resolved mirror target, re-resolving via a headless browser
// once the cache has aged past MirrorResolveTTL. spec.md §4.1 open question resolution:
// resolution is lazy and time-boxed, never blocking DiscoverEvents longer than necessary.
func (c *Client) baseURL(ctx context.Context) (string, error) {
	if c.cfg.MirrorURL == "" {
		return c.cfg.BaseURL, nil
	}

	c.resolvedMu.RLock()
	resolved, age := c.resolvedBaseURL, time.Since(c.lastResolvedAt)
	c.resolvedMu.RUnlock()
	if resolved != "" && age < c.cfg.MirrorResolveTTL {
		return resolved, nil
	}

	resolved, err := c.resolveMirror(ctx)
	if err != nil {
		if resolved := c.cachedResolved(); resolved != "" {
			slog.Warn("competitor_b: mirror re-resolve failed, keeping cached URL", "error", err)
			return resolved, nil
		}
		return "", fmt.Errorf("competitor_b: resolve mirror: %w", err)
	}

	c.resolvedMu.Lock()
	c.resolvedBaseURL = resolved
	c.lastResolvedAt = time.Now()
	c.resolvedMu.Unlock()
	return resolved, nil
}

func (c *Client) cachedResolved() string {
	c.resolvedMu.RLock()
	defer c.resolvedMu.RUnlock()
	return c.resolvedBaseURL
}

// resolveMirror drives a headless browser to the mirror link and reads the final URL
// after any JavaScript redirect completes.
func (c *Client) resolveMirror(ctx context.Context) (string, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("no-sandbox", true),
	)
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	browserCtx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	var finalURL string
	err := chromedp.Run(browserCtx,
		chromedp.Navigate(c.cfg.MirrorURL),
		chromedp.Sleep(3*time.Second),
		chromedp.Location(&finalURL),
	)
	if err != nil {
		return "", fmt.Errorf("chromedp navigation: %w", err)
	}
	if finalURL == "" {
		return "", fmt.Errorf("mirror did not resolve to a URL")
	}
	slog.Info("competitor_b: mirror resolved", "mirror_url", c.cfg.MirrorURL, "resolved", finalURL)
	return strings.TrimSuffix(finalURL, "/"), nil
}
