// CLAUDE:SUMMARY Owner-only session file holding LMS browser cookies; converts them into an http.CookieJar for the fetcher.
// Package session persists the cookies captured by the browser login.
//
// The file is only read to build a cookie jar and to answer "is the user
// authenticated"; nothing else in coursesync looks inside it.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/net/publicsuffix"
)

// ErrNoSession is returned when no session file exists.
var ErrNoSession = errors.New("session: not logged in")

// Cookie is one stored browser cookie.
type Cookie struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Domain   string  `json:"domain"`
	Path     string  `json:"path"`
	Expires  float64 `json:"expires"`
	Secure   bool    `json:"secure"`
	HTTPOnly bool    `json:"http_only"`
}

// Session is the content of the session file.
type Session struct {
	Cookies []Cookie  `json:"cookies"`
	SavedAt time.Time `json:"saved_at"`
}

// Store reads and writes the session file at Path.
type Store struct {
	Path string
}

// Exists reports whether a session file is present.
func (s Store) Exists() bool {
	_, err := os.Stat(s.Path)
	return err == nil
}

// Save writes the session with mode 0600 inside a 0700 directory.
func (s Store) Save(sess Session) error {
	if sess.SavedAt.IsZero() {
		sess.SavedAt = time.Now().UTC()
	}
	data, err := json.MarshalIndent(sess, "", "  ")
	if err != nil {
		return fmt.Errorf("session: marshal: %w", err)
	}
	dir := filepath.Dir(s.Path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("session: mkdir: %w", err)
	}
	tmp := s.Path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("session: write: %w", err)
	}
	if err := os.Rename(tmp, s.Path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("session: rename: %w", err)
	}
	return nil
}

// Load reads the session file. A missing file is ErrNoSession.
func (s Store) Load() (*Session, error) {
	data, err := os.ReadFile(s.Path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNoSession
	}
	if err != nil {
		return nil, fmt.Errorf("session: read: %w", err)
	}
	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("session: decode %s: %w", s.Path, err)
	}
	return &sess, nil
}

// Clear removes the session file. Clearing a missing session is not an error.
func (s Store) Clear() error {
	if err := os.Remove(s.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("session: clear: %w", err)
	}
	return nil
}

// Jar builds a cookie jar holding the session cookies for baseURL.
// Expired cookies are dropped.
func (sess *Session) Jar(baseURL string, now time.Time) (http.CookieJar, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("session: base url: %w", err)
	}
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("session: cookie jar: %w", err)
	}

	var cookies []*http.Cookie
	for _, c := range sess.Cookies {
		hc := c.httpCookie()
		if !hc.Expires.IsZero() && hc.Expires.Before(now) {
			continue
		}
		cookies = append(cookies, hc)
	}
	jar.SetCookies(u, cookies)
	return jar, nil
}

func (c Cookie) httpCookie() *http.Cookie {
	hc := &http.Cookie{
		Name:     c.Name,
		Value:    c.Value,
		Domain:   c.Domain,
		Path:     c.Path,
		Secure:   c.Secure,
		HttpOnly: c.HTTPOnly,
	}
	if hc.Path == "" {
		hc.Path = "/"
	}
	// Browser session cookies report expires <= 0.
	if c.Expires > 0 {
		sec := int64(c.Expires)
		hc.Expires = time.Unix(sec, int64((c.Expires-float64(sec))*1e9))
	}
	return hc
}
