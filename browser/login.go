// CLAUDE:SUMMARY Interactive LMS login: launches headful Chrome through Rod with stealth, waits for the dashboard, captures cookies into a session.
// CLAUDE:DEPENDS session
// CLAUDE:EXPORTS Login, Config
// Package browser drives the interactive login. The user signs in (SSO,
// MFA) in a visible Chrome window; once the LMS dashboard appears the
// browser cookies are captured into a session.Session.
package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"github.com/hazyhaar/coursesync/session"
)

// DashboardSelector matches the LMS dashboard header once signed in.
const DashboardSelector = "#dashboard, .ic-Dashboard-header, .dashboard-header"

// ErrLoginTimeout is returned when the dashboard never appeared.
var ErrLoginTimeout = errors.New("browser: login timed out")

// Config configures the login browser.
type Config struct {
	// BaseURL of the LMS. Required.
	BaseURL string
	// Timeout for the user to finish signing in. Default: 5m.
	Timeout time.Duration
	// Poll interval for the dashboard check. Default: 2s.
	Poll time.Duration
	// RemoteURL is the DevTools WebSocket URL of an already running Chrome.
	// Empty = launch a local headful Chrome.
	RemoteURL string
	// Bin overrides the Chrome binary path.
	Bin    string
	Logger *slog.Logger
}

func (c *Config) defaults() {
	if c.Timeout <= 0 {
		c.Timeout = 5 * time.Minute
	}
	if c.Poll <= 0 {
		c.Poll = 2 * time.Second
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Login opens the LMS in a visible browser and returns the captured session
// once the user reached the dashboard.
func Login(ctx context.Context, cfg Config) (*session.Session, error) {
	cfg.defaults()
	log := cfg.Logger

	base, err := url.Parse(cfg.BaseURL)
	if err != nil || base.Host == "" {
		return nil, fmt.Errorf("browser: invalid base url %q", cfg.BaseURL)
	}

	wsURL := cfg.RemoteURL
	var lnch *launcher.Launcher
	if wsURL == "" {
		lnch = launcher.New().Headless(false).Leakless(true)
		if cfg.Bin != "" {
			lnch = lnch.Bin(cfg.Bin)
		}
		// Anti-detection flags.
		lnch = lnch.Set("disable-blink-features", "AutomationControlled")
		u, err := lnch.Launch()
		if err != nil {
			return nil, fmt.Errorf("browser: launch: %w", err)
		}
		wsURL = u
		log.Info("browser: launched chrome", "url", wsURL)
	}

	b := rod.New().ControlURL(wsURL)
	if err := b.Connect(); err != nil {
		if lnch != nil {
			lnch.Kill()
		}
		return nil, fmt.Errorf("browser: connect: %w", err)
	}
	defer func() {
		if err := b.Close(); err != nil {
			log.Debug("browser: close", "error", err)
		}
		if lnch != nil {
			lnch.Cleanup()
		}
	}()

	page, err := stealth.Page(b)
	if err != nil {
		return nil, fmt.Errorf("browser: create tab: %w", err)
	}

	navCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	err = page.Context(navCtx).Navigate(cfg.BaseURL)
	cancel()
	if err != nil {
		return nil, fmt.Errorf("browser: navigate %s: %w", cfg.BaseURL, err)
	}

	log.Info("browser: waiting for sign-in", "timeout", cfg.Timeout)
	if err := waitDashboard(ctx, page, base, cfg); err != nil {
		return nil, err
	}

	cookies, err := b.GetCookies()
	if err != nil {
		return nil, fmt.Errorf("browser: get cookies: %w", err)
	}
	sess := toSession(cookies, base.Hostname(), time.Now().UTC())
	if len(sess.Cookies) == 0 {
		return nil, fmt.Errorf("browser: no cookies for %s after sign-in", base.Hostname())
	}
	log.Info("browser: signed in", "cookies", len(sess.Cookies))
	return sess, nil
}

func waitDashboard(ctx context.Context, page *rod.Page, base *url.URL, cfg Config) error {
	deadline := time.NewTimer(cfg.Timeout)
	defer deadline.Stop()
	tick := time.NewTicker(cfg.Poll)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline.C:
			return ErrLoginTimeout
		case <-tick.C:
		}

		info, err := page.Info()
		if err != nil {
			cfg.Logger.Debug("browser: page info", "error", err)
			continue
		}
		if !underBase(info.URL, base) {
			continue
		}
		has, _, err := page.Context(ctx).Has(DashboardSelector)
		if err != nil {
			cfg.Logger.Debug("browser: dashboard probe", "error", err)
			continue
		}
		if has {
			return nil
		}
	}
}

// underBase reports whether current is on the LMS host, below the base path.
func underBase(current string, base *url.URL) bool {
	u, err := url.Parse(current)
	if err != nil {
		return false
	}
	if !strings.EqualFold(u.Hostname(), base.Hostname()) {
		return false
	}
	prefix := strings.TrimRight(base.Path, "/")
	return prefix == "" || u.Path == prefix || strings.HasPrefix(u.Path, prefix+"/")
}

// toSession keeps the cookies that apply to host (exact or parent domain).
func toSession(cookies []*proto.NetworkCookie, host string, now time.Time) *session.Session {
	sess := &session.Session{SavedAt: now}
	for _, c := range cookies {
		if !domainMatch(host, c.Domain) {
			continue
		}
		sess.Cookies = append(sess.Cookies, session.Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Expires:  float64(c.Expires),
			Secure:   c.Secure,
			HTTPOnly: c.HTTPOnly,
		})
	}
	return sess
}

func domainMatch(host, domain string) bool {
	domain = strings.ToLower(strings.TrimPrefix(domain, "."))
	host = strings.ToLower(host)
	return domain != "" && (host == domain || strings.HasSuffix(host, "."+domain))
}
