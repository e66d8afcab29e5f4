// Package catalog is the gateway to the remote commerce platform's v3 REST
// API. Every call is authenticated with the store's access token, throttled
// by a client-side token bucket and bounded by the caller's context.
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

	"golang.org/x/time/rate"
)

// maxErrorBody bounds how much of an error response is retained.
const maxErrorBody = 1 << 20

// Options configures a Client.
type Options struct {
	// BaseURL is the versioned store root, e.g. https://api.example.com/stores/abc/v3
	BaseURL           string
	AccessToken       string
	Timeout           time.Duration
	RequestsPerSecond float64
	Burst             int
	PageSize          int

	// HTTPClient overrides the transport (tests use httptest servers).
	HTTPClient *http.Client
}

// Client issues authenticated calls against one store.
type Client struct {
	baseURL  string
	token    string
	http     *http.Client
	limiter  *rate.Limiter
	pageSize int
}

// New creates a Client. Zero option values fall back to conservative defaults.
func New(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}
	burst := opts.Burst
	if burst <= 0 {
		burst = 1
	}

	pageSize := opts.PageSize
	if pageSize <= 0 || pageSize > 250 {
		pageSize = 250
	}

	return &Client{
		baseURL:  strings.TrimRight(opts.BaseURL, "/"),
		token:    opts.AccessToken,
		http:     httpClient,
		limiter:  rate.NewLimiter(limit, burst),
		pageSize: pageSize,
	}
}

// envelope is the {data, meta} wrapper used by every v3 response.
type envelope[T any] struct {
	Data T        `json:"data"`
	Meta metaInfo `json:"meta"`
}

type metaInfo struct {
	Pagination *pagination `json:"pagination,omitempty"`
}

type pagination struct {
	Total       int `json:"total"`
	Count       int `json:"count"`
	PerPage     int `json:"per_page"`
	CurrentPage int `json:"current_page"`
	TotalPages  int `json:"total_pages"`
}

// do performs one request. body is JSON encoded when non-nil and out, when
// non-nil, receives the decoded response. Non-2xx responses become *APIError.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("catalog: rate limiter: %w", err)
	}

	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("catalog: encode %s %s: %w", method, path, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("catalog: build %s %s: %w", method, path, err)
	}
	req.Header.Set("X-Auth-Token", c.token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("catalog: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return newAPIError(method, path, resp.StatusCode, raw)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("catalog: decode %s %s: %w", method, path, err)
	}
	return nil
}

// listAll drains a paginated collection, requesting pages until
// current_page reaches total_pages.
func listAll[T any](ctx context.Context, c *Client, path string, query url.Values) ([]T, error) {
	var all []T
	for page := 1; ; page++ {
		q := url.Values{}
		for k, v := range query {
			q[k] = v
		}
		q.Set("page", strconv.Itoa(page))
		q.Set("limit", strconv.Itoa(c.pageSize))

		var env envelope[[]T]
		if err := c.do(ctx, http.MethodGet, path, q, nil, &env); err != nil {
			return nil, err
		}
		all = append(all, env.Data...)

		p := env.Meta.Pagination
		if p == nil || p.CurrentPage >= p.TotalPages || len(env.Data) == 0 {
			return all, nil
		}
	}
}
