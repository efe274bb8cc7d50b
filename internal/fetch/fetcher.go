// Package fetch implements conditional HTTP fetching against the upstream
// imageboard API with If-Modified-Since freshness tokens.
//
// The fetcher only reads tokens; it never stores them. The caller commits
// the returned token after its own data write succeeds, so a crash between
// fetch and write leaves the old baseline in place and the next cycle
// simply refetches into idempotent inserts.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Status classifies a completed fetch.
type Status int

const (
	// StatusFresh means the upstream returned a new payload.
	StatusFresh Status = iota
	// StatusUnchanged means the resource was not modified since the stored token.
	StatusUnchanged
	// StatusNotFound means the upstream pruned the resource. Benign, terminal.
	StatusNotFound
)

// Result is the outcome of a successful (non-failed) fetch.
type Result struct {
	Status Status
	Body   []byte // nil unless StatusFresh
	Token  string // new freshness token, "" if upstream sent none
}

// TokenStore resolves the stored freshness token for a resource.
type TokenStore interface {
	FreshnessToken(ctx context.Context, resourceID string) (string, error)
}

// Config configures the fetcher.
type Config struct {
	// Timeout bounds each HTTP request. Default: 30s. A stalled upstream
	// must not wedge the crawl worker.
	Timeout time.Duration
	// MaxBytes caps the response body. Default: 16MB (catalogs are large).
	MaxBytes int64
	// MinInterval is the courtesy gap between consecutive upstream calls.
	// Default: 1.1s. This is an upstream contract, not a tuning knob.
	MinInterval time.Duration
	// UserAgent sent with requests.
	UserAgent string
}

func (c *Config) defaults() {
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.MaxBytes <= 0 {
		c.MaxBytes = 16 * 1024 * 1024
	}
	if c.MinInterval <= 0 {
		c.MinInterval = 1100 * time.Millisecond
	}
	if c.UserAgent == "" {
		c.UserAgent = "horum/1.0"
	}
}

// Fetcher performs paced, conditional GETs.
type Fetcher struct {
	client *http.Client
	tokens TokenStore
	pacer  *Pacer
	config Config
}

// New creates a Fetcher. tokens may be nil for unconditional fetching.
func New(tokens TokenStore, cfg Config) *Fetcher {
	cfg.defaults()
	return &Fetcher{
		client: &http.Client{Timeout: cfg.Timeout},
		tokens: tokens,
		pacer:  NewPacer(cfg.MinInterval),
		config: cfg,
	}
}

// Fetch retrieves url, waiting out the courtesy interval first. When a
// freshness token is stored for resourceID it is sent as If-Modified-Since.
// A transport error, a malformed status or a read failure returns an error
// and the stored token is untouched.
func (f *Fetcher) Fetch(ctx context.Context, resourceID, url string) (*Result, error) {
	if err := f.pacer.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("User-Agent", f.config.UserAgent)

	if resourceID != "" && f.tokens != nil {
		token, err := f.tokens.FreshnessToken(ctx, resourceID)
		if err != nil {
			return nil, fmt.Errorf("lookup token %s: %w", resourceID, err)
		}
		if token != "" {
			req.Header.Set("If-Modified-Since", token)
		}
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http get %s: %w", url, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotModified:
		return &Result{Status: StatusUnchanged}, nil
	case resp.StatusCode == http.StatusNotFound:
		return &Result{Status: StatusNotFound}, nil
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, fmt.Errorf("http %d from %s", resp.StatusCode, url)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.config.MaxBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	return &Result{
		Status: StatusFresh,
		Body:   body,
		Token:  resp.Header.Get("Last-Modified"),
	}, nil
}
