// Package catalog is the HTTP client for the exoplanet sky backend: exoplanet
// list, star fields, constellations and rendered star maps.
package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"github.com/litescript/exosky/internal/sky"
	"github.com/litescript/exosky/internal/version"
)

const (
	// DefaultBaseURL is the backend used when none is configured.
	DefaultBaseURL = "http://localhost:8000"

	// DefaultTimeout for HTTP requests. Star queries can be slow.
	DefaultTimeout = 2 * time.Minute

	// DefaultLimitingMagnitude is the faintest magnitude requested for a
	// star field.
	DefaultLimitingMagnitude = 7.0

	// DefaultExoplanetLimit is the number of exoplanets listed.
	DefaultExoplanetLimit = 100

	// ExoplanetCacheTTL is how long exoplanet lists are reused.
	ExoplanetCacheTTL = 10 * time.Minute

	// maxErrorBody bounds how much of an error response is kept.
	maxErrorBody = 512
)

// ErrUnexpectedStatus is wrapped by StatusError.
var ErrUnexpectedStatus = errors.New("unexpected status code")

// StatusError is returned for any non-2xx response.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s %s: %s: %d", e.Method, e.Path, ErrUnexpectedStatus, e.StatusCode)
	}
	return fmt.Sprintf("%s %s: %s: %d: %s", e.Method, e.Path, ErrUnexpectedStatus, e.StatusCode, e.Body)
}

func (e *StatusError) Unwrap() error {
	return ErrUnexpectedStatus
}

// Client talks to the backend. It is safe for concurrent use.
type Client struct {
	client   *http.Client
	baseURL  string
	timeout  time.Duration
	cacheTTL time.Duration
	planets  *cache.Cache
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithBaseURL sets the backend base URL.
func WithBaseURL(u string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(u, "/")
	}
}

// WithTimeout sets the HTTP request timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.client = client
	}
}

// WithCacheTTL sets how long exoplanet lists are cached. Zero disables
// caching.
func WithCacheTTL(d time.Duration) ClientOption {
	return func(c *Client) {
		c.cacheTTL = d
	}
}

// NewClient creates a backend client.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		baseURL:  DefaultBaseURL,
		timeout:  DefaultTimeout,
		cacheTTL: ExoplanetCacheTTL,
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.client == nil {
		c.client = &http.Client{
			Timeout: c.timeout,
		}
	}
	if c.cacheTTL > 0 {
		c.planets = cache.New(c.cacheTTL, 2*c.cacheTTL)
	}

	return c
}

// BaseURL returns the configured backend URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

type exoplanetList struct {
	Data []sky.Exoplanet `json:"data"`
}

type starList struct {
	Data []sky.Star `json:"data"`
}

// ListExoplanets returns up to limit exoplanets.
func (c *Client) ListExoplanets(ctx context.Context, limit int) ([]sky.Exoplanet, error) {
	if limit <= 0 {
		limit = DefaultExoplanetLimit
	}
	key := strconv.Itoa(limit)
	if c.planets != nil {
		if cached, ok := c.planets.Get(key); ok {
			return cached.([]sky.Exoplanet), nil
		}
	}

	q := url.Values{}
	q.Set("limit", key)

	var resp exoplanetList
	if err := c.doJSON(ctx, http.MethodGet, "/api/exoplanets/", q, nil, &resp); err != nil {
		return nil, fmt.Errorf("list exoplanets: %w", err)
	}
	if c.planets != nil {
		c.planets.SetDefault(key, resp.Data)
	}
	return resp.Data, nil
}

// FetchStars returns the star field seen from planet. Stars without an id
// get "star-<index>".
func (c *Client) FetchStars(ctx context.Context, planet sky.Exoplanet, limitingMag float64) ([]sky.Star, error) {
	q := url.Values{}
	q.Set("limiting_magnitude", strconv.FormatFloat(limitingMag, 'f', -1, 64))

	body := struct {
		RA  float64 `json:"ra"`
		Dec float64 `json:"dec"`
	}{RA: planet.RA, Dec: planet.Dec}

	var resp starList
	if err := c.doJSON(ctx, http.MethodPost, "/api/stars/", q, body, &resp); err != nil {
		return nil, fmt.Errorf("fetch stars for %s: %w", planet.Name, err)
	}
	return sky.AssignIDs(resp.Data), nil
}

// FetchConstellations returns the constellations saved for a planet. An
// empty or null body is an empty list.
func (c *Client) FetchConstellations(ctx context.Context, planet string) ([]sky.Constellation, error) {
	q := url.Values{}
	q.Set("planet", planet)

	var resp []sky.Constellation
	if err := c.doJSON(ctx, http.MethodGet, "/api/constellations/", q, nil, &resp); err != nil {
		return nil, fmt.Errorf("fetch constellations for %s: %w", planet, err)
	}
	if resp == nil {
		resp = []sky.Constellation{}
	}
	return resp, nil
}

// SaveConstellation persists a constellation and returns the server record.
func (c *Client) SaveConstellation(ctx context.Context, req sky.SaveRequest) (sky.Constellation, error) {
	var created sky.Constellation
	if err := c.doJSON(ctx, http.MethodPost, "/api/constellations/", nil, req, &created); err != nil {
		return sky.Constellation{}, fmt.Errorf("save constellation %q: %w", req.Name, err)
	}

	// Fill fields the server did not echo back.
	if created.Name == "" {
		created.Name = req.Name
	}
	if created.Author == "" {
		created.Author = req.Author
	}
	if created.Planet == "" {
		created.Planet = req.Planet
	}
	if created.Stars == nil {
		created.Stars = append([]string(nil), req.Stars...)
	}
	return created, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, query url.Values, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	resp, err := c.do(ctx, method, path, query, body, "application/json")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response body: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// do issues a request and returns the response for any 2xx status. The
// caller closes the body.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body io.Reader, accept string) (*http.Response, error) {
	reqURL := c.baseURL + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("User-Agent", "exosky/"+version.Version)
	req.Header.Set("Accept", accept)
	req.Header.Set("X-Request-ID", uuid.NewString())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &StatusError{
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(snippet)),
		}
	}

	return resp, nil
}
