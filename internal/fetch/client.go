package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/tidwall/gjson"

	"github.com/MrSnakeDoc/linkwrap/internal/logger"
	"github.com/MrSnakeDoc/linkwrap/internal/metrics"
	"github.com/MrSnakeDoc/linkwrap/internal/utils"
)

const (
	// DefaultTimeout bounds every outbound request.
	DefaultTimeout = 10 * time.Second
	// DefaultUserAgent mimics a browser; several agents reject bare clients.
	DefaultUserAgent = "Mozilla/5.0"
	// maxBodySize caps API responses read into memory.
	maxBodySize = 1 << 20
)

var (
	// ErrNoLocation is returned when a short link does not redirect.
	ErrNoLocation = errors.New("no redirect location")
	// ErrNoOrigin is returned when neither API endpoint yields an origin URL.
	ErrNoOrigin = errors.New("no origin url in response")
)

// Cache stores resolved URLs. Implementations must be safe for concurrent use.
type Cache interface {
	Get(ctx context.Context, key string) (string, bool)
	Set(ctx context.Context, key, value string)
}

// Options configures the outbound HTTP client.
type Options struct {
	Timeout   time.Duration
	UserAgent string
	// Transport overrides the default transport (tests route requests to
	// httptest servers through it).
	Transport http.RoundTripper
}

// Client performs the network-dependent resolution steps used by agent
// parsers: short-link redirect resolution and JSON API lookups.
type Client struct {
	http      *http.Client
	userAgent string
	cache     Cache
	logger    logger.Logger
	metrics   *metrics.Metrics
}

// New builds a client. cache and m may be nil.
func New(opts Options, cache Cache, log logger.Logger, m *metrics.Metrics) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}

	transport := opts.Transport
	if transport == nil {
		transport = &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout:   opts.Timeout,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			TLSHandshakeTimeout: opts.Timeout,
			MaxIdleConns:        32,
			IdleConnTimeout:     90 * time.Second,
		}
	}

	return &Client{
		http: &http.Client{
			Timeout:   opts.Timeout,
			Transport: transport,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				// Locations are read explicitly, never followed.
				return http.ErrUseLastResponse
			},
		},
		userAgent: opts.UserAgent,
		cache:     cache,
		logger:    log,
		metrics:   m,
	}
}

// ResolveRedirect issues a HEAD request without following redirects and
// returns the absolute Location the server points to.
func (c *Client) ResolveRedirect(ctx context.Context, rawURL string) (string, error) {
	key := "redirect:" + rawURL
	if v, ok := c.cached(ctx, key); ok {
		c.metrics.ObserveLookup("redirect", "cache_hit")
		return v, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, rawURL, http.NoBody)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		c.metrics.ObserveLookup("redirect", "error")
		return "", fmt.Errorf("failed to resolve redirect: %w", err)
	}
	defer utils.DrainClose(resp.Body)

	loc := resp.Header.Get("Location")
	if loc == "" {
		c.metrics.ObserveLookup("redirect", "miss")
		return "", fmt.Errorf("%w (status %d)", ErrNoLocation, resp.StatusCode)
	}

	target, err := req.URL.Parse(loc)
	if err != nil {
		c.metrics.ObserveLookup("redirect", "error")
		return "", fmt.Errorf("invalid location %q: %w", loc, err)
	}

	resolved := target.String()
	c.store(ctx, key, resolved)
	c.metrics.ObserveLookup("redirect", "ok")
	return resolved, nil
}

// LookupOrigin queries an agent API for the marketplace URL behind a link.
//
// The primary endpoint must answer with the {code, data.origin_url}
// envelope. When it does not (non-JSON, error code, missing field, transport
// failure) the fallback endpoint is tried, accepting any of the known shapes.
func (c *Client) LookupOrigin(ctx context.Context, cacheKey, primary, fallback string) (string, error) {
	key := "origin:" + cacheKey
	if v, ok := c.cached(ctx, key); ok {
		c.metrics.ObserveLookup("api", "cache_hit")
		return v, nil
	}

	var errs []error

	if primary != "" {
		body, err := c.getJSON(ctx, primary)
		if err == nil {
			if origin, ok := originFromEnvelope(body); ok {
				c.store(ctx, key, origin)
				c.metrics.ObserveLookup("api", "ok")
				return origin, nil
			}
			err = fmt.Errorf("primary: %w", ErrNoOrigin)
		}
		errs = append(errs, err)
		c.logger.Debug("primary lookup failed, trying fallback",
			logger.String("endpoint", primary),
			logger.Error(err))
	}

	if fallback != "" {
		body, err := c.getJSON(ctx, fallback)
		if err == nil {
			if origin, ok := originFromAnyShape(body); ok {
				c.store(ctx, key, origin)
				c.metrics.ObserveLookup("api", "fallback_ok")
				return origin, nil
			}
			err = fmt.Errorf("fallback: %w", ErrNoOrigin)
		}
		errs = append(errs, err)
	}

	c.metrics.ObserveLookup("api", "miss")
	if len(errs) == 0 {
		return "", ErrNoOrigin
	}
	return "", errors.Join(errs...)
}

func (c *Client) getJSON(ctx context.Context, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer utils.DrainClose(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("failed to read body: %w", err)
	}
	if !gjson.ValidBytes(body) {
		return nil, errors.New("response is not json")
	}
	return body, nil
}

// originFromEnvelope reads data.origin_url from a {code, data} envelope.
// code 0 and 200 both mean success; some agents omit it entirely.
func originFromEnvelope(body []byte) (string, bool) {
	if code := gjson.GetBytes(body, "code"); code.Exists() {
		if n := code.Int(); n != 0 && n != 200 {
			return "", false
		}
	}
	origin := gjson.GetBytes(body, "data.origin_url").String()
	return origin, origin != ""
}

func originFromAnyShape(body []byte) (string, bool) {
	for _, path := range []string{"data.origin_url", "origin_url", "data.url", "url"} {
		if v := gjson.GetBytes(body, path).String(); v != "" {
			return v, true
		}
	}
	return "", false
}

func (c *Client) cached(ctx context.Context, key string) (string, bool) {
	if c.cache == nil {
		return "", false
	}
	return c.cache.Get(ctx, key)
}

func (c *Client) store(ctx context.Context, key, value string) {
	if c.cache == nil {
		return
	}
	c.cache.Set(ctx, key, value)
}
