// Package searchapi implements the request pipeline to the search platform API:
// credential injection, a caching and rate-limit aware transport stack, and
// normalization of every outcome into a model.Response.
package searchapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/gofri/go-github-ratelimit/v2/github_ratelimit"
	"github.com/google/uuid"
	"github.com/gregjones/httpcache"

	"github.com/ericfisherdev/searchpanel/internal/domain/model"
	"github.com/ericfisherdev/searchpanel/internal/domain/port/driven"
	"github.com/ericfisherdev/searchpanel/internal/metrics"
)

// maxBodyBytes caps how much of a response body is read.
const maxBodyBytes = 1 << 20

// Client is the request pipeline. It reads credentials from a
// driven.CredentialSource and never writes them.
type Client struct {
	http    *http.Client
	baseURL *url.URL
	creds   driven.CredentialSource
	cache   *memoryCache // nil when HTTP caching is disabled or a custom client is injected.
	now     func() time.Time
	logger  *slog.Logger
}

// Option configures a Client.
type Option func(*clientConfig)

type clientConfig struct {
	timeout    time.Duration
	httpCache  bool
	httpClient *http.Client
	now        func() time.Time
	logger     *slog.Logger
}

// WithTimeout sets the per-request timeout of the default transport stack.
func WithTimeout(d time.Duration) Option {
	return func(c *clientConfig) { c.timeout = d }
}

// WithHTTPCache enables or disables the ETag cache layer.
func WithHTTPCache(enabled bool) Option {
	return func(c *clientConfig) { c.httpCache = enabled }
}

// WithHTTPClient replaces the whole transport stack with httpClient.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *clientConfig) { c.httpClient = httpClient }
}

// WithClock overrides the clock used for credential validity checks.
func WithClock(now func() time.Time) Option {
	return func(c *clientConfig) { c.now = now }
}

// WithLogger sets the logger used for request diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(c *clientConfig) { c.logger = logger }
}

// NewClient creates a Client for the API at baseURL with the following transport stack:
//  1. httpcache (ETag-based conditional request caching, purgeable on logout)
//  2. go-github-ratelimit (honours Retry-After and X-RateLimit-* throttling headers)
//  3. net/http default transport
func NewClient(baseURL string, creds driven.CredentialSource, opts ...Option) (*Client, error) {
	cfg := clientConfig{
		timeout:   30 * time.Second,
		httpCache: true,
		now:       time.Now,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing base URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("parsing base URL: %q is not absolute", baseURL)
	}
	if u.Path == "" {
		u.Path = "/"
	}

	c := &Client{
		baseURL: u,
		creds:   creds,
		now:     cfg.now,
		logger:  cfg.logger,
	}

	if cfg.httpClient != nil {
		c.http = cfg.httpClient
		return c, nil
	}

	var base http.RoundTripper = http.DefaultTransport
	if cfg.httpCache {
		c.cache = newMemoryCache()
		cacheTransport := httpcache.NewTransport(c.cache)
		cacheTransport.Transport = http.DefaultTransport
		base = cacheTransport
	}
	httpClient := github_ratelimit.NewClient(base)
	httpClient.Timeout = cfg.timeout
	c.http = httpClient

	return c, nil
}

// NewClientWithHTTPClient creates a Client with a custom http.Client and base URL.
// This constructor is intended for testing, allowing injection of an httptest server.
func NewClientWithHTTPClient(httpClient *http.Client, baseURL string, creds driven.CredentialSource, opts ...Option) (*Client, error) {
	return NewClient(baseURL, creds, append(opts, WithHTTPClient(httpClient))...)
}

// PurgeCache drops every cached response. Called whenever the identity behind
// the credential may have changed.
func (c *Client) PurgeCache() {
	if c.cache != nil {
		c.cache.Clear()
	}
}

// CallOption adjusts a single pipeline call.
type CallOption func(*callConfig)

type callConfig struct {
	token string
}

// WithToken attaches token as the bearer credential instead of the stored one.
func WithToken(token string) CallOption {
	return func(c *callConfig) { c.token = token }
}

// Do performs one HTTP call through the pipeline and decodes a successful body
// into T. It never returns a Go error: every failure becomes a Response with
// Success false and an Error classified by the error taxonomy.
func Do[T any](ctx context.Context, c *Client, method, path string, body any, opts ...CallOption) model.Response[T] {
	var cc callConfig
	for _, opt := range opts {
		opt(&cc)
	}

	start := time.Now()
	resp := do[T](ctx, c, method, path, body, cc)

	metrics.APIRequestDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
	metrics.APIRequestsTotal.WithLabelValues(method, path, outcomeLabel(resp.Success, resp.Error)).Inc()

	return resp
}

// outcomeLabel keeps the outcome label within the closed error taxonomy.
// Server-defined codes are passed through to callers but counted as "other".
func outcomeLabel(success bool, apiErr *model.APIError) string {
	if success {
		return "ok"
	}
	if apiErr == nil || !apiErr.Code.Known() {
		return "other"
	}
	return string(apiErr.Code)
}

func do[T any](ctx context.Context, c *Client, method, path string, body any, cc callConfig) model.Response[T] {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return model.Failf[T](model.ErrRequest, fmt.Sprintf("encoding request body: %v", err))
		}
		reqBody = bytes.NewReader(data)
	}

	endpoint := c.baseURL.JoinPath(path)
	req, err := http.NewRequestWithContext(ctx, method, endpoint.String(), reqBody)
	if err != nil {
		return model.Failf[T](model.ErrRequest, fmt.Sprintf("building request: %v", err))
	}

	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.bearer(ctx, cc); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		apiErr := classifyTransportError(err)
		c.logger.Warn("search api unreachable",
			"method", method,
			"path", path,
			"request_id", requestID,
			"error", err,
		)
		return model.Fail[T](apiErr)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		c.logger.Warn("search api body read failed", "path", path, "request_id", requestID, "error", err)
		return model.Fail[T](classifyTransportError(err))
	}

	c.logger.Debug("search api call",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"request_id", requestID,
		"cached", resp.Header.Get(httpcache.XFromCache) != "",
		"duration", time.Since(start).Round(time.Microsecond),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return model.Fail[T](classifyResponse(resp.StatusCode, raw))
	}

	return decodeSuccess[T](resp.StatusCode, raw)
}

// bearer picks the token to attach: an explicit per-call token wins; otherwise
// the stored credential is used only while it is valid.
func (c *Client) bearer(ctx context.Context, cc callConfig) string {
	if cc.token != "" {
		return cc.token
	}
	if c.creds == nil {
		return ""
	}
	cred := c.creds.Get(ctx)
	if !cred.Valid(c.now()) {
		return ""
	}
	return cred.Token
}
