// Package strava fetches an athlete's activities from the Strava v3 API.
package strava

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL = "https://www.strava.com/api/v3"
	DefaultPerPage = 100

	// Strava allows 100 requests per 15 minutes per application.
	requestsPerWindow = 100
	rateWindow        = 15 * time.Minute

	maxErrorBody = 512
)

// APIError is a non-2xx response from the API.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("strava api: status %d", e.StatusCode)
	}
	return fmt.Sprintf("strava api: status %d: %s", e.StatusCode, e.Body)
}

// Athlete is the subset of the authenticated athlete profile the CLI shows.
type Athlete struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	Firstname string `json:"firstname"`
	Lastname  string `json:"lastname"`
	City      string `json:"city"`
	Country   string `json:"country"`
}

// Client is a rate-limited Strava API client.
type Client struct {
	httpClient *http.Client
	baseURL    string
	perPage    int
	limiter    *rate.Limiter
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

func WithPerPage(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.perPage = n
		}
	}
}

func WithLimiter(l *rate.Limiter) Option {
	return func(c *Client) { c.limiter = l }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithHTTPClient replaces the transport. The client must add authorization
// itself.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient returns a client authenticating with ts.
func NewClient(ts oauth2.TokenSource, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{
			Transport: &oauth2.Transport{Source: ts, Base: http.DefaultTransport},
			Timeout:   30 * time.Second,
		},
		baseURL: DefaultBaseURL,
		perPage: DefaultPerPage,
		limiter: rate.NewLimiter(rate.Limit(float64(requestsPerWindow)/rateWindow.Seconds()), requestsPerWindow),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Athlete fetches the authenticated athlete's profile.
func (c *Client) Athlete(ctx context.Context) (*Athlete, error) {
	var a Athlete
	if err := c.getJSON(ctx, "/athlete", nil, &a); err != nil {
		return nil, fmt.Errorf("fetch athlete: %w", err)
	}
	return &a, nil
}

// Activities fetches every activity page by page, stopping at the first empty
// or short page. Activities of all kinds are returned undecoded; onPage, when
// set, is called after each page with the page number, its size and the
// running total.
func (c *Client) Activities(ctx context.Context, onPage func(page, count, total int)) ([]json.RawMessage, error) {
	var all []json.RawMessage
	for page := 1; ; page++ {
		q := url.Values{}
		q.Set("page", strconv.Itoa(page))
		q.Set("per_page", strconv.Itoa(c.perPage))

		var batch []json.RawMessage
		if err := c.getJSON(ctx, "/athlete/activities", q, &batch); err != nil {
			return nil, fmt.Errorf("fetch activities page %d: %w", page, err)
		}
		all = append(all, batch...)
		c.logger.Debug("fetched activities page", "page", page, "count", len(batch), "total", len(all))
		if onPage != nil {
			onPage(page, len(batch), len(all))
		}
		if len(batch) < c.perPage {
			return all, nil
		}
	}
}

func (c *Client) getJSON(ctx context.Context, path string, q url.Values, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limit wait: %w", err)
		}
	}

	u := c.baseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if usage := resp.Header.Get("X-RateLimit-Usage"); usage != "" {
		c.logger.Debug("strava rate limit", "usage", usage, "limit", resp.Header.Get("X-RateLimit-Limit"))
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
