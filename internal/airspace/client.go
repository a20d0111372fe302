package airspace

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/flightzone/internal/config"
	"github.com/sells-group/flightzone/internal/resilience"
)

// maxFeedBytes caps a single feed body; larger feeds are rejected.
var maxFeedBytes int64 = 32 << 20

// Client fetches restriction feeds over HTTP with rate limiting, retries
// and a circuit breaker.
type Client struct {
	url     string
	http    *http.Client
	limiter *rate.Limiter
	retry   resilience.RetryConfig
	breaker *resilience.CircuitBreaker
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithRetry replaces the retry policy.
func WithRetry(rc resilience.RetryConfig) Option {
	return func(c *Client) { c.retry = rc }
}

// WithBreaker replaces the circuit breaker.
func WithBreaker(cb *resilience.CircuitBreaker) Option {
	return func(c *Client) { c.breaker = cb }
}

// NewClient builds a client from airspace config. A zero rate disables
// limiting.
func NewClient(cfg config.AirspaceConfig, opts ...Option) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	limit := rate.Inf
	if cfg.RatePerSec > 0 {
		limit = rate.Limit(cfg.RatePerSec)
	}
	retry := resilience.DefaultRetryConfig()
	if cfg.MaxAttempts > 0 {
		retry.MaxAttempts = cfg.MaxAttempts
	}
	retry.OnRetry = resilience.RetryLogger("airspace", "fetch")

	c := &Client{
		url:     cfg.URL,
		http:    &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(limit, 1),
		retry:   retry,
		breaker: resilience.NewCircuitBreaker(resilience.DefaultCircuitBreakerConfig()),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fetch downloads and decodes the configured feed.
func (c *Client) Fetch(ctx context.Context) ([]Restriction, error) {
	return c.FetchURL(ctx, c.url)
}

// FetchURL downloads and decodes the GeoJSON feed at url.
func (c *Client) FetchURL(ctx context.Context, url string) ([]Restriction, error) {
	if url == "" {
		return nil, eris.New("airspace: no feed url")
	}
	start := time.Now()

	data, err := resilience.DoVal(ctx, c.retry, func(ctx context.Context) ([]byte, error) {
		return resilience.ExecuteVal(ctx, c.breaker, func(ctx context.Context) ([]byte, error) {
			return c.get(ctx, url)
		})
	})
	if err != nil {
		return nil, eris.Wrapf(err, "airspace: fetch %s", url)
	}

	restrictions, err := DecodeGeoJSON(data)
	if err != nil {
		return nil, err
	}
	zap.L().Debug("airspace: feed fetched",
		zap.String("url", url),
		zap.Int("bytes", len(data)),
		zap.Int("restrictions", len(restrictions)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return restrictions, nil
}

func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "airspace: rate limit wait")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, eris.Wrap(err, "airspace: build request")
	}
	req.Header.Set("Accept", "application/geo+json, application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, resilience.NewTransientError(eris.Wrap(err, "airspace: request"), 0)
	}
	defer resp.Body.Close() //nolint:errcheck

	if err := resilience.CheckStatus(resp); err != nil {
		return nil, err
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedBytes+1))
	if err != nil {
		return nil, eris.Wrap(err, "airspace: read body")
	}
	if int64(len(data)) > maxFeedBytes {
		return nil, eris.Errorf("airspace: feed exceeds %d bytes", maxFeedBytes)
	}
	return data, nil
}
