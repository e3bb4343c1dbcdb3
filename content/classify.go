package content

import (
	"net/url"
	"path"
	"strings"
)

// Kind is the handling strategy chosen for an external URL.
type Kind string

const (
	KindYouTube    Kind = "youtube"
	KindVimeo      Kind = "vimeo"
	KindPanopto    Kind = "panopto"
	KindPDF        Kind = "pdf"
	KindWord       Kind = "word"
	KindPowerPoint Kind = "powerpoint"
	KindWebpage    Kind = "webpage"
)

// Classify picks a Kind for rawURL: video hosts first, then document
// extensions, webpage otherwise. It accepts any string.
func Classify(rawURL string) Kind {
	lower := strings.ToLower(rawURL)
	switch {
	case strings.Contains(lower, "youtube.com"), strings.Contains(lower, "youtu.be"):
		return KindYouTube
	case strings.Contains(lower, "vimeo.com"):
		return KindVimeo
	case strings.Contains(lower, "panopto"):
		return KindPanopto
	}

	switch urlExt(lower) {
	case ".pdf":
		return KindPDF
	case ".doc", ".docx":
		return KindWord
	case ".ppt", ".pptx":
		return KindPowerPoint
	}
	return KindWebpage
}

// urlExt returns the extension of the URL path, ignoring query and fragment.
func urlExt(lower string) string {
	p := lower
	if u, err := url.Parse(lower); err == nil && u.Path != "" {
		p = u.Path
	} else if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	return path.Ext(p)
}
