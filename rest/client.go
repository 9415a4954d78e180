// Package rest provides the pooled HTTP client used for the api data
// source: per-(base URL, credential) clients with a TTL response cache,
// single-flight miss coalescing, and retry with exponential back-off.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	// DefaultTTL bounds the lifetime of cached GET responses.
	DefaultTTL = 60 * time.Second

	cacheSize        = 1024
	requestTimeout   = 10 * time.Second
	retryAttempts    = 3
	retryInitialWait = 500 * time.Millisecond
)

var (
	// ErrUpstream wraps the last underlying error once all retries are spent.
	ErrUpstream = errors.New("upstream request failed")

	// ErrClosed is returned for any request issued after Close.
	ErrClosed = errors.New("client is closed")
)

// Credentials selects the auth header attached to every request:
// x-api-key for API keys, Authorization: Bearer for tokens.
type Credentials struct {
	APIKey      string
	BearerToken string
}

// CallOptions tunes a single mutating call.
type CallOptions struct {
	Body any

	// BearerToken overrides the client credential for this call only.
	BearerToken string

	// InvalidateCache clears the whole response cache after the call.
	InvalidateCache bool
}

// Client is a reusable HTTP client for one (base URL, credential) pair.
// All callers share the same instance and therefore the same cache.
type Client struct {
	baseURL    string
	creds      Credentials
	httpClient *http.Client
	cache      *expirable.LRU[string, any]
	flight     singleflight.Group
	logger     *zap.Logger
	closed     atomic.Bool
}

func NewClient(baseURL string, creds Credentials, ttl time.Duration, logger *zap.Logger) *Client {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		creds:      creds,
		httpClient: &http.Client{Timeout: requestTimeout},
		cache:      expirable.NewLRU[string, any](cacheSize, nil, ttl),
		logger:     logger,
	}
}

// Get fetches path, serving repeated calls from the cache within its TTL.
// Concurrent misses for the same key share one upstream request.
func (c *Client) Get(ctx context.Context, path string, params map[string]string, useCache bool) (any, error) {
	if c.closed.Load() {
		return nil, ErrClosed
	}

	key := cacheKey(path, params)
	if useCache {
		if v, ok := c.cache.Get(key); ok {
			c.logger.Debug("cache hit", zap.String("key", key))
			return v, nil
		}
	}

	v, err, _ := c.flight.Do(key, func() (any, error) {
		if useCache {
			if v, ok := c.cache.Get(key); ok {
				return v, nil
			}
		}
		body, err := c.request(ctx, http.MethodGet, path, params, nil, "")
		if err != nil {
			return nil, err
		}
		if useCache {
			c.cache.Add(key, body)
		}
		return body, nil
	})
	return v, err
}

func (c *Client) Post(ctx context.Context, path string, opts CallOptions) (any, error) {
	return c.mutate(ctx, http.MethodPost, path, opts)
}

func (c *Client) Put(ctx context.Context, path string, opts CallOptions) (any, error) {
	return c.mutate(ctx, http.MethodPut, path, opts)
}

func (c *Client) Delete(ctx context.Context, path string, opts CallOptions) (any, error) {
	return c.mutate(ctx, http.MethodDelete, path, opts)
}

func (c *Client) mutate(ctx context.Context, method, path string, opts CallOptions) (any, error) {
	if c.closed.Load() {
		return nil, ErrClosed
	}

	result, err := c.request(ctx, method, path, nil, opts.Body, opts.BearerToken)
	if err != nil {
		return nil, err
	}
	if opts.InvalidateCache {
		c.cache.Purge()
	}
	return result, nil
}

// Close drains the client. Requests issued afterwards fail with ErrClosed.
func (c *Client) Close() {
	c.closed.Store(true)
	c.cache.Purge()
	c.httpClient.CloseIdleConnections()
}

// request performs one HTTP call with up to three attempts, sleeping
// 0.5s, 1s, 2s after each failure, the last one included. The decoded
// JSON body is returned when the response parses; otherwise the raw text.
func (c *Client) request(ctx context.Context, method, path string, params map[string]string, body any, bearer string) (any, error) {
	var result any

	operation := func() error {
		rctx, cancel := context.WithTimeout(ctx, requestTimeout)
		defer cancel()

		req, err := c.newRequest(rctx, method, path, params, body, bearer)
		if err != nil {
			return backoff.Permanent(err)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return fmt.Errorf("status %d: %s", resp.StatusCode, truncate(string(data), 200))
		}

		var decoded any
		if err := json.Unmarshal(data, &decoded); err != nil {
			result = string(data)
		} else {
			result = decoded
		}
		return nil
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = retryInitialWait
	policy.RandomizationFactor = 0
	policy.Multiplier = 2

	var lastErr error
	for attempt := 1; attempt <= retryAttempts; attempt++ {
		lastErr = operation()
		if lastErr == nil {
			return result, nil
		}

		var permanent *backoff.PermanentError
		if errors.As(lastErr, &permanent) {
			return nil, fmt.Errorf("%w: %v", ErrUpstream, permanent.Unwrap())
		}

		wait := policy.NextBackOff()
		c.logger.Warn("request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("attempt", attempt),
			zap.Duration("wait", wait),
			zap.Error(lastErr))

		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %v", ErrUpstream, ctx.Err())
		}
	}
	return nil, fmt.Errorf("%w: %v", ErrUpstream, lastErr)
}

func (c *Client) newRequest(ctx context.Context, method, path string, params map[string]string, body any, bearer string) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(encoded)
	}

	target := c.baseURL + path
	if len(params) > 0 {
		values := url.Values{}
		for k, v := range params {
			values.Set(k, v)
		}
		target += "?" + values.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.creds.APIKey != "" {
		req.Header.Set("x-api-key", c.creds.APIKey)
	}
	switch {
	case bearer != "":
		req.Header.Set("Authorization", "Bearer "+bearer)
	case c.creds.BearerToken != "":
		req.Header.Set("Authorization", "Bearer "+c.creds.BearerToken)
	}
	return req, nil
}

// cacheKey builds a canonical key from the path and the sorted parameters.
func cacheKey(path string, params map[string]string) string {
	if len(params) == 0 {
		return path
	}
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(path)
	b.WriteByte('?')
	for i, k := range keys {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(params[k])
	}
	return b.String()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
