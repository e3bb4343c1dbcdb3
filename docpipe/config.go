// CLAUDE:SUMMARY Configuration struct and defaults for the docpipe binary extraction pipeline.
package docpipe

import "log/slog"

// Config configures the document pipeline.
type Config struct {
	// MaxInlineChars caps the size of a text entry inlined into an archive
	// manifest (default: 50 000 characters). Larger entries are extracted to
	// disk but left out of the manifest.
	MaxInlineChars int `json:"max_inline_chars" yaml:"max_inline_chars"`

	// ListLimit is how many archive entry names the manifest lists before
	// summarising the rest as "... and N more files" (default: 20).
	ListLimit int `json:"list_limit" yaml:"list_limit"`

	// Logger for debug/warn messages.
	Logger *slog.Logger `json:"-" yaml:"-"`
}

func (c *Config) defaults() {
	if c.MaxInlineChars <= 0 {
		c.MaxInlineChars = 50_000
	}
	if c.ListLimit <= 0 {
		c.ListLimit = 20
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}
