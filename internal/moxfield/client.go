// Package moxfield is a throttled client for the Moxfield deck API.
package moxfield

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/javajoker/brawlrec-backend/internal/metrics"
)

const (
	DefaultBaseURL   = "https://api.moxfield.com/v2"
	DefaultUserAgent = "MoxKey; BrawlREC 1.0"
	DefaultFormat    = "brawl"
	DefaultPageSize  = 64
	DefaultDelay     = 500 * time.Millisecond
	requestTimeout   = 30 * time.Second
)

// Throttle spaces outbound requests. Wait is called before a request and,
// when it returns nil, Done is called once the request has finished.
type Throttle interface {
	Wait(ctx context.Context) error
	Done()
}

// DelayThrottle holds every request until delay has passed since the
// previous request finished, whether that request succeeded or failed. Only
// one request is in flight at a time.
type DelayThrottle struct {
	delay    time.Duration
	slot     chan struct{}
	lastDone time.Time // guarded by slot
}

// NewThrottle returns a DelayThrottle. A non-positive delay only serializes
// requests.
func NewThrottle(delay time.Duration) *DelayThrottle {
	return &DelayThrottle{
		delay: delay,
		slot:  make(chan struct{}, 1),
	}
}

func (t *DelayThrottle) Wait(ctx context.Context) error {
	select {
	case t.slot <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}

	if t.lastDone.IsZero() {
		return nil
	}
	wait := t.delay - time.Since(t.lastDone)
	if wait <= 0 {
		return nil
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		<-t.slot
		return ctx.Err()
	}
}

func (t *DelayThrottle) Done() {
	t.lastDone = time.Now()
	<-t.slot
}

// StatusError is returned for any non-2xx response.
type StatusError struct {
	StatusCode int
	Status     string
	URL        string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("moxfield API error: %s (%s)", e.Status, e.URL)
}

type Options struct {
	BaseURL   string
	UserAgent string
	Format    string
	Timeout   time.Duration
}

// Client fetches deck search pages and deck details. Every request first
// waits on the throttle and reports back to it once its response has been
// read or has failed. Nothing is retried.
type Client struct {
	httpClient *http.Client
	throttle   Throttle
	baseURL    string
	userAgent  string
	format     string
}

func NewClient(opts Options, throttle Throttle) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.Format == "" {
		opts.Format = DefaultFormat
	}
	if opts.Timeout <= 0 {
		opts.Timeout = requestTimeout
	}
	if throttle == nil {
		throttle = NewThrottle(DefaultDelay)
	}

	return &Client{
		httpClient: &http.Client{Timeout: opts.Timeout},
		throttle:   throttle,
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		userAgent:  opts.UserAgent,
		format:     opts.Format,
	}
}

// Search returns one page of public decks of the configured format.
func (c *Client) Search(ctx context.Context, page, pageSize int) (*SearchPage, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}

	query := url.Values{}
	query.Set("q", "format:"+c.format)
	query.Set("page", strconv.Itoa(page))
	query.Set("pageSize", strconv.Itoa(pageSize))

	var resp searchResponse
	if err := c.getJSON(ctx, "search", "/decks/search", query, &resp); err != nil {
		return nil, fmt.Errorf("search page %d: %w", page, err)
	}

	return &SearchPage{
		Page:         page,
		Decks:        resp.Data,
		TotalResults: resp.TotalResults,
		HasMore:      len(resp.Data) > 0 && len(resp.Data) >= pageSize,
	}, nil
}

// GetDeck fetches the full card lists of one deck.
func (c *Client) GetDeck(ctx context.Context, deckID string) (*Deck, error) {
	var deck Deck
	if err := c.getJSON(ctx, "deck", "/decks/"+url.PathEscape(deckID), nil, &deck); err != nil {
		return nil, fmt.Errorf("get deck %s: %w", deckID, err)
	}
	if deck.ID == "" {
		deck.ID = deckID
	}
	return &deck, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint, path string, query url.Values, out interface{}) error {
	waitStart := time.Now()
	if err := c.throttle.Wait(ctx); err != nil {
		return fmt.Errorf("throttle: %w", err)
	}
	defer c.throttle.Done()
	metrics.SourceThrottleWait.Observe(time.Since(waitStart).Seconds())

	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	metrics.SourceRequestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.SourceRequestsTotal.WithLabelValues(endpoint, "transport_error").Inc()
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		metrics.SourceRequestsTotal.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode)).Inc()
		return &StatusError{StatusCode: resp.StatusCode, Status: resp.Status, URL: target}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		metrics.SourceRequestsTotal.WithLabelValues(endpoint, "decode_error").Inc()
		return fmt.Errorf("failed to decode response: %w", err)
	}

	metrics.SourceRequestsTotal.WithLabelValues(endpoint, "ok").Inc()
	return nil
}
