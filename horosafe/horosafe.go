// Package horosafe provides the small set of safety guards coursesync needs
// when it writes remote content to disk: archive path-traversal checks, URL
// scheme checks and bounded reads.
package horosafe

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"path/filepath"
	"strings"
)

// MaxResponseBody is the default cap for JSON API response reads (8 MiB).
const MaxResponseBody int64 = 8 << 20

// ErrPathTraversal is returned when an archive entry or user path escapes its base.
var ErrPathTraversal = errors.New("horosafe: path traversal detected")

// ErrUnsafeScheme is returned when a URL uses a non-HTTP(S) scheme.
var ErrUnsafeScheme = errors.New("horosafe: only http and https schemes are allowed")

// ErrTooLarge is returned by LimitedReadAll when the limit is exceeded.
var ErrTooLarge = errors.New("horosafe: body exceeds limit")

// SafePath joins base and name and verifies the result stays under base.
// Names are treated as slash-separated relative paths (zip entry names);
// absolute names and ".." segments that climb out of base are rejected,
// while file names merely containing two dots ("notes..txt") are fine.
func SafePath(base, name string) (string, error) {
	if name == "" {
		return "", ErrPathTraversal
	}
	slashed := strings.ReplaceAll(name, `\`, "/")
	if strings.HasPrefix(slashed, "/") || filepath.VolumeName(name) != "" {
		return "", ErrPathTraversal
	}
	for _, seg := range strings.Split(slashed, "/") {
		if seg == ".." {
			return "", ErrPathTraversal
		}
	}

	cleanBase := filepath.Clean(base)
	joined := filepath.Join(cleanBase, filepath.FromSlash(slashed))
	rel, err := filepath.Rel(cleanBase, joined)
	if err != nil || rel == "." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || rel == ".." {
		return "", ErrPathTraversal
	}
	return joined, nil
}

// ValidateScheme checks that rawURL parses and uses http or https.
func ValidateScheme(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("horosafe: invalid URL: %w", err)
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
	default:
		return ErrUnsafeScheme
	}
	if u.Host == "" {
		return fmt.Errorf("horosafe: URL has no host")
	}
	return nil
}

// LimitedReadAll reads at most maxBytes from r. Returns ErrTooLarge
// if the limit is exceeded.
func LimitedReadAll(r io.Reader, maxBytes int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > maxBytes {
		return nil, fmt.Errorf("%w (%d bytes)", ErrTooLarge, maxBytes)
	}
	return data, nil
}
