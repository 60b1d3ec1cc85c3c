// Package crossref fetches DOI metadata as CSL-JSON and maps it onto reference fields.
package crossref

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/refshelf/refshelf-server/internal/normalize"
	"github.com/refshelf/refshelf-server/internal/ratelimit"
)

const (
	// DefaultBaseURL answers content-negotiated CSL-JSON for ?doi=<doi>.
	DefaultBaseURL = "https://citation.doi.org/metadata"

	defaultRPS      = 1.0
	defaultBurst    = 3
	defaultTimeout  = 15 * time.Second
	defaultCacheTTL = 24 * time.Hour

	// All lookups share one upstream bucket.
	limiterKey = "crossref"

	maxBodySize = 2 << 20
)

// Config configures a Client. Zero values take the defaults.
type Config struct {
	BaseURL  string
	RPS      float64
	Burst    int
	Timeout  time.Duration
	CacheTTL time.Duration
}

// Client is a rate-limited, caching DOI metadata client.
type Client struct {
	http    *http.Client
	baseURL string
	limiter *ratelimit.KeyedRateLimiter
	cache   *gocache.Cache
	logger  *slog.Logger
}

// New creates a Client.
func New(cfg Config, logger *slog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.RPS <= 0 {
		cfg.RPS = defaultRPS
	}
	if cfg.Burst <= 0 {
		cfg.Burst = defaultBurst
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = defaultCacheTTL
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		http:    &http.Client{Timeout: cfg.Timeout},
		baseURL: cfg.BaseURL,
		limiter: ratelimit.New(cfg.RPS, cfg.Burst),
		cache:   gocache.New(cfg.CacheTTL, cfg.CacheTTL/2),
		logger:  logger,
	}
}

// Close releases resources held by the client.
func (c *Client) Close() {
	c.limiter.Stop()
}

// Fetch looks doi up and returns its parsed metadata. Successful lookups are cached;
// failures are not.
func (c *Client) Fetch(ctx context.Context, doi string) (*Metadata, error) {
	doi = normalize.DOI(doi)
	if !strings.HasPrefix(doi, "10.") || !strings.Contains(doi, "/") {
		return nil, wrapError("fetch", doi, ErrInvalidDOI)
	}

	cacheKey := strings.ToLower(doi)
	if cached, ok := c.cache.Get(cacheKey); ok {
		c.logger.Debug("crossref cache hit", "doi", doi)
		return cloneMetadata(cached.(*Metadata)), nil
	}

	body, err := c.doRequest(ctx, doi)
	if err != nil {
		return nil, wrapError("fetch", doi, err)
	}

	m, err := Parse(body)
	if err != nil {
		return nil, wrapError("parse", doi, err)
	}
	if m.DOI == "" {
		m.DOI = doi
	}

	c.cache.SetDefault(cacheKey, m)
	return cloneMetadata(m), nil
}

func (c *Client) doRequest(ctx context.Context, doi string) ([]byte, error) {
	if err := c.limiter.Wait(ctx, limiterKey); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	q := u.Query()
	q.Set("doi", doi)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.citationstyles.csl+json, application/json")
	req.Header.Set("User-Agent", "refshelf/1.0")

	c.logger.Debug("crossref request", "doi", doi)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
		return body, nil
	case http.StatusNotFound:
		return nil, ErrNotFound
	case http.StatusTooManyRequests:
		return nil, ErrRateLimited
	case http.StatusBadRequest:
		return nil, ErrBadRequest
	default:
		if resp.StatusCode >= 500 {
			return nil, ErrServer
		}
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
}

func cloneMetadata(m *Metadata) *Metadata {
	cp := *m
	cp.Fields = make(map[string]string, len(m.Fields))
	for k, v := range m.Fields {
		cp.Fields[k] = v
	}
	return &cp
}
