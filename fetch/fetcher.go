// CLAUDE:SUMMARY Authenticated HTTP fetcher for the LMS: cookie jar or bearer token, bounded reads, JSON prefix stripping, typed status errors.
// Package fetch implements the authenticated fetch capability used by the
// LMS client and the content normalizer.
//
// Authentication is either a cookie jar (browser session) or a bearer token.
// The token is only sent to the LMS host itself, never to third-party hosts
// reached through module links or redirects.
package fetch

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hazyhaar/coursesync/horosafe"
)

// jsonPrefix is prepended by the LMS to JSON responses under session auth.
var jsonPrefix = []byte("while(1);")

// Config configures the fetcher.
type Config struct {
	// BaseURL of the LMS. Relative URLs resolve against it. Required.
	BaseURL string
	// Token is an API access token sent as "Authorization: Bearer".
	Token string
	// Jar carries session cookies. Optional.
	Jar http.CookieJar
	// Timeout for API requests. Default: 30s.
	Timeout time.Duration
	// RawTimeout for file and page downloads. Default: 60s.
	RawTimeout time.Duration
	// MaxBytes caps JSON responses. Default: horosafe.MaxResponseBody.
	MaxBytes int64
	// MaxRawBytes caps downloads. Default: 200MB.
	MaxRawBytes int64
	// UserAgent sent with requests.
	UserAgent string
	Logger    *slog.Logger
}

func (c *Config) defaults() {
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.RawTimeout <= 0 {
		c.RawTimeout = 60 * time.Second
	}
	if c.MaxBytes <= 0 {
		c.MaxBytes = horosafe.MaxResponseBody
	}
	if c.MaxRawBytes <= 0 {
		c.MaxRawBytes = 200 << 20
	}
	if c.UserAgent == "" {
		c.UserAgent = "coursesync/1.0"
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Code int
	URL  string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("fetch: %s: HTTP %d", e.URL, e.Code)
}

// StatusCode returns the HTTP status.
func (e *StatusError) StatusCode() int { return e.Code }

// Fetcher performs authenticated GET requests against the LMS.
type Fetcher struct {
	client *http.Client
	base   *url.URL
	config Config
	logger *slog.Logger
}

// New creates a Fetcher. Redirects are limited to http(s) and 10 hops.
func New(cfg Config) (*Fetcher, error) {
	cfg.defaults()
	if err := horosafe.ValidateScheme(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("fetch: base url %q: %w", cfg.BaseURL, err)
	}
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("fetch: base url: %w", err)
	}
	return &Fetcher{
		client: &http.Client{
			Jar: cfg.Jar,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return fmt.Errorf("too many redirects (%d)", len(via))
				}
				if err := horosafe.ValidateScheme(req.URL.String()); err != nil {
					return fmt.Errorf("redirect blocked: %w", err)
				}
				// The client copies headers on redirect; drop the token off-host.
				if req.URL.Host != base.Host {
					req.Header.Del("Authorization")
				}
				return nil
			},
		},
		base:   base,
		config: cfg,
		logger: cfg.Logger,
	}, nil
}

// Get fetches an API URL and returns its JSON body with any
// "while(1);" guard removed.
func (f *Fetcher) Get(ctx context.Context, rawURL string) ([]byte, error) {
	body, err := f.do(ctx, rawURL, f.config.Timeout, f.config.MaxBytes, "application/json")
	if err != nil {
		return nil, err
	}
	return bytes.TrimPrefix(bytes.TrimSpace(body), jsonPrefix), nil
}

// GetRaw fetches any URL and returns the raw bytes.
func (f *Fetcher) GetRaw(ctx context.Context, rawURL string) ([]byte, error) {
	return f.do(ctx, rawURL, f.config.RawTimeout, f.config.MaxRawBytes, "")
}

// Resolve turns a path relative to the LMS into an absolute URL.
func (f *Fetcher) Resolve(rawURL string) (string, error) {
	ref, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("fetch: parse %q: %w", rawURL, err)
	}
	return f.base.ResolveReference(ref).String(), nil
}

func (f *Fetcher) do(ctx context.Context, rawURL string, timeout time.Duration, limit int64, accept string) ([]byte, error) {
	target, err := f.Resolve(rawURL)
	if err != nil {
		return nil, err
	}
	if err := horosafe.ValidateScheme(target); err != nil {
		return nil, fmt.Errorf("fetch: %s: %w", target, err)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch: new request: %w", err)
	}
	req.Header.Set("User-Agent", f.config.UserAgent)
	if accept != "" {
		req.Header.Set("Accept", accept)
	}
	if f.config.Token != "" && req.URL.Host == f.base.Host {
		req.Header.Set("Authorization", "Bearer "+f.config.Token)
	}

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: get %s: %w", target, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		f.logger.Debug("fetch: status", "url", target, "status", resp.StatusCode)
		return nil, &StatusError{Code: resp.StatusCode, URL: target}
	}

	body, err := horosafe.LimitedReadAll(resp.Body, limit)
	if err != nil {
		return nil, fmt.Errorf("fetch: read %s: %w", target, err)
	}
	f.logger.Debug("fetch: ok", "url", target, "bytes", len(body), "ms", time.Since(start).Milliseconds())
	return body, nil
}
