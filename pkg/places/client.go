// Package places provides a client for a SerpAPI-compatible local search
// endpoint, used to discover business leads by niche and location.
package places

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

const pageSize = 20

// Place is one local search result.
type Place struct {
	Title   string `json:"title"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
	Website string `json:"website"`
	PlaceID string `json:"place_id"`
}

// SearchRequest describes one page of a local search.
type SearchRequest struct {
	Query       string
	Location    string
	Coordinates string // "@lat,lng,zoom" map viewport
	Language    string
	Page        int // zero-based
}

// SearchResponse holds one page of results.
type SearchResponse struct {
	Places []Place
}

// Client searches local business listings.
type Client interface {
	SearchLocal(ctx context.Context, req SearchRequest) (*SearchResponse, error)
}

// Option configures the client.
type Option func(*client)

// WithBaseURL overrides the API base URL.
func WithBaseURL(baseURL string) Option {
	return func(c *client) {
		c.baseURL = baseURL
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *client) {
		c.httpClient = hc
	}
}

// WithRateLimit sets the requests-per-second limit for search calls.
func WithRateLimit(rps float64) Option {
	return func(c *client) {
		c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
}

type client struct {
	key        string
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClient creates a search client with the given API key.
func NewClient(key string, opts ...Option) Client {
	c := &client{
		key:        key,
		baseURL:    "https://serpapi.com",
		httpClient: &http.Client{Timeout: 30 * time.Second},
		limiter:    rate.NewLimiter(1, 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *client) SearchLocal(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "places: rate limiter wait")
	}

	q := url.Values{}
	q.Set("engine", "google_maps")
	q.Set("type", "search")
	q.Set("api_key", c.key)
	q.Set("q", fmt.Sprintf("%s em %s", req.Query, req.Location))
	if req.Language != "" {
		q.Set("hl", req.Language)
	}
	if req.Coordinates != "" {
		q.Set("ll", req.Coordinates)
	}
	if req.Page > 0 {
		q.Set("start", strconv.Itoa(req.Page*pageSize))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/search.json?"+q.Encode(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "places: create request")
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, eris.Wrap(err, "places: search")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("places: search status %d for %q page %d", resp.StatusCode, req.Query, req.Page)
	}

	var body struct {
		LocalResults []Place `json:"local_results"`
		Error        string  `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, eris.Wrap(err, "places: decode response")
	}
	if body.Error != "" {
		return nil, eris.Errorf("places: api error: %s", body.Error)
	}

	return &SearchResponse{Places: body.LocalResults}, nil
}
