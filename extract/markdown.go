// CLAUDE:SUMMARY Lossy regex HTML→markdown converter for LMS descriptions and syllabi; never fails, tolerates malformed markup.
// Package extract turns the HTML and caption payloads an LMS hands out into
// plain markdown text.
//
// Three converters live here:
//   - HTMLToMarkdown: a small ordered set of regex rewrites for the HTML
//     subset found in assignment descriptions and syllabi
//   - ParseCaptions: WebVTT/SRT cue stripping for video transcripts
//   - WebpageText: DOM walk over arbitrary external pages
//
// Renderer combines sanitising and a full html-to-markdown conversion for
// LMS page bodies, falling back to HTMLToMarkdown.
package extract

import (
	"html"
	"regexp"
	"strings"
)

// rewrite is one ordered substitution.
type rewrite struct {
	re   *regexp.Regexp
	repl string
}

// Order matters: inline markup is rewritten before block tags are turned
// into newlines, and remaining tags are stripped last.
var markdownRewrites = []rewrite{
	{regexp.MustCompile(`(?is)<h1(?:\s[^>]*)?>(.*?)</h1\s*>`), "# $1\n"},
	{regexp.MustCompile(`(?is)<h2(?:\s[^>]*)?>(.*?)</h2\s*>`), "## $1\n"},
	{regexp.MustCompile(`(?is)<h3(?:\s[^>]*)?>(.*?)</h3\s*>`), "### $1\n"},
	{regexp.MustCompile(`(?is)<h4(?:\s[^>]*)?>(.*?)</h4\s*>`), "#### $1\n"},

	{regexp.MustCompile(`(?is)<strong(?:\s[^>]*)?>(.*?)</strong\s*>`), "**$1**"},
	{regexp.MustCompile(`(?is)<b(?:\s[^>]*)?>(.*?)</b\s*>`), "**$1**"},
	{regexp.MustCompile(`(?is)<em(?:\s[^>]*)?>(.*?)</em\s*>`), "*$1*"},
	{regexp.MustCompile(`(?is)<i(?:\s[^>]*)?>(.*?)</i\s*>`), "*$1*"},

	{regexp.MustCompile(`(?is)<a\s[^>]*?href\s*=\s*["']([^"']*)["'][^>]*>(.*?)</a\s*>`), "[$2]($1)"},

	{regexp.MustCompile(`(?is)<li(?:\s[^>]*)?>(.*?)</li\s*>`), "- $1\n"},
	{regexp.MustCompile(`(?i)</?[ou]l(?:\s[^>]*)?>`), "\n"},

	{regexp.MustCompile(`(?is)<p(?:\s[^>]*)?>(.*?)</p\s*>`), "$1\n\n"},
	{regexp.MustCompile(`(?i)<br\s*/?>`), "\n"},
	{regexp.MustCompile(`(?i)</?div(?:\s[^>]*)?>`), "\n"},

	{regexp.MustCompile(`<[^>]+>`), ""},
}

var excessNewlines = regexp.MustCompile(`\n{3,}`)

// HTMLToMarkdown converts an HTML fragment to markdown: h1-h4 headings,
// bold/italic, links, list items and paragraph breaks. Everything else is
// stripped and entities are decoded. Empty input yields "".
//
// Entities are decoded on every call, so text that still contains escaped
// entities after one conversion ("&amp;amp;", "&lt;b&gt;") changes again on
// a second one. Only entity-free text is a fixed point.
func HTMLToMarkdown(fragment string) string {
	if fragment == "" {
		return ""
	}
	text := fragment
	for _, rw := range markdownRewrites {
		text = rw.re.ReplaceAllString(text, rw.repl)
	}
	text = html.UnescapeString(text)
	text = excessNewlines.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}
