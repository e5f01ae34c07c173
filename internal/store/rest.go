package store

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"churnetl/pkg/records"
)

// RESTConfig configures the HTTP store client.
//
// Zero values are given sensible defaults:
//   - Timeout:        30s
//   - MaxRetries:     3
//   - InitialBackoff: 200ms
//   - MaxBackoff:     5s
type RESTConfig struct {
	// BaseURL is the store's base URL, e.g. https://xyzcompany.supabase.co.
	// The query path (/rest/v1/<table>) is appended per request.
	BaseURL string

	// APIKey is sent as both the apikey header and a bearer token, which is
	// what the hosted query API expects.
	APIKey string

	// Timeout is the per-request timeout applied at the http.Client level.
	Timeout time.Duration

	// MaxRetries is the number of retry attempts after the initial request.
	// MaxRetries=0 means "no retries" (only the initial attempt).
	MaxRetries int

	// InitialBackoff is the base backoff duration for the first retry.
	// Each subsequent retry doubles the previous backoff up to MaxBackoff.
	InitialBackoff time.Duration

	// MaxBackoff caps the exponential backoff duration.
	MaxBackoff time.Duration

	// Transport is an optional custom RoundTripper, used by tests to stub
	// the network.
	Transport http.RoundTripper
}

// RESTClient is the HTTP implementation of Client. It retries transient
// failures (network errors and 5xx responses) with exponential backoff and
// normalizes the response envelope with ExtractRows.
type RESTClient struct {
	httpClient     *http.Client
	baseURL        string
	apiKey         string
	maxRetries     int
	initialBackoff time.Duration
	maxBackoff     time.Duration

	// sleep is injectable to make tests fast and deterministic.
	sleep func(time.Duration)
}

// NewRESTClient constructs a RESTClient from RESTConfig, applying defaults
// for zero values.
func NewRESTClient(cfg RESTConfig) *RESTClient {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = 200 * time.Millisecond
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = 5 * time.Second
	}

	return &RESTClient{
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: cfg.Transport,
		},
		baseURL:        cfg.BaseURL,
		apiKey:         cfg.APIKey,
		maxRetries:     cfg.MaxRetries,
		initialBackoff: cfg.InitialBackoff,
		maxBackoff:     cfg.MaxBackoff,
		sleep:          time.Sleep,
	}
}

// FetchAll implements Client.
func (c *RESTClient) FetchAll(ctx context.Context, table string, limit int) ([]records.Record, error) {
	return c.query(ctx, table, "*", limit)
}

// FetchColumn implements Client.
func (c *RESTClient) FetchColumn(ctx context.Context, table, column string) ([]records.Record, error) {
	return c.query(ctx, table, column, 0)
}

// query issues one GET against the table endpoint and extracts the rows.
//
// A response body that is not valid JSON, or valid JSON in no recognized
// shape, degrades to an empty slice rather than an error: the stages must
// handle "no data" as a reportable state, and a half-broken response is not
// worth aborting a report over. Connectivity failures and non-2xx statuses
// (after retries) are returned as errors.
func (c *RESTClient) query(ctx context.Context, table, sel string, limit int) ([]records.Record, error) {
	u := fmt.Sprintf("%s/rest/v1/%s", c.baseURL, url.PathEscape(table))
	q := url.Values{"select": []string{sel}}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	u += "?" + q.Encode()

	body, err := c.get(ctx, u)
	if err != nil {
		return nil, err
	}

	var v any
	if err := json.Unmarshal(body, &v); err != nil {
		log.Printf("store: malformed response for %s (%d bytes); treating as empty", table, len(body))
		return []records.Record{}, nil
	}
	return ExtractRows(v), nil
}

// get performs the GET with retry/backoff and returns the response body.
func (c *RESTClient) get(ctx context.Context, u string) ([]byte, error) {
	backoff := c.initialBackoff
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			default:
			}
			c.sleep(backoff)
			backoff *= 2
			if backoff > c.maxBackoff {
				backoff = c.maxBackoff
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return nil, fmt.Errorf("store: build request: %w", err)
		}
		req.Header.Set("apikey", c.apiKey)
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("store: request: %w", err)
			continue
		}

		if resp.StatusCode >= 500 {
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			lastErr = fmt.Errorf("store: server error: %s", resp.Status)
			continue
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			// 4xx is not transient; retrying would only repeat the refusal.
			return nil, fmt.Errorf("store: query rejected: %s", resp.Status)
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("store: read response: %w", err)
			continue
		}
		return body, nil
	}
	return nil, lastErr
}
