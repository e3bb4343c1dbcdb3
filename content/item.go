package content

import (
	"strings"

	"github.com/hazyhaar/coursesync/canvas"
)

// Item is one module item, decoded into its variant. The set of variants
// is closed: PageItem, ExternalURLItem, FileItem, ExternalToolItem and
// OtherItem.
type Item interface {
	base() Base
}

// Base carries the fields every variant has.
type Base struct {
	Title string
	// Type is the lowercased LMS item type ("page", "externalurl", ...).
	Type string
	// URL is the link recorded as the item's source.
	URL string
}

func (b Base) base() Base { return b }

// PageItem is a wiki page. Body is attached by the caller before
// normalisation; Loaded reports whether that fetch succeeded.
type PageItem struct {
	Base
	APIURL string
	Body   string
	Loaded bool
}

// ExternalURLItem links outside the LMS.
type ExternalURLItem struct {
	Base
	Target string
}

// FileItem is an uploaded course file. Meta may be pre-fetched by the
// caller; otherwise MetaURL is resolved during normalisation.
type FileItem struct {
	Base
	MetaURL string
	// ContentID is the LMS file id, used when MetaURL is absent.
	ContentID int64
	Meta      *canvas.File
}

// ExternalToolItem is an LTI launch (video platforms, publisher tools).
type ExternalToolItem struct {
	Base
	ToolURL string
}

// OtherItem covers sub-headers, quizzes, discussions and assignments.
type OtherItem struct {
	Base
}

// FromModuleItem decodes an LMS module item into its variant.
func FromModuleItem(mi canvas.ModuleItem) Item {
	b := Base{
		Title: mi.Title,
		Type:  strings.ToLower(mi.Type),
	}
	if b.Title == "" {
		b.Title = "Untitled"
	}

	switch b.Type {
	case "page":
		b.URL = firstNonEmpty(mi.HTMLURL, mi.URL)
		return &PageItem{Base: b, APIURL: mi.URL}
	case "externalurl":
		b.URL = mi.ExternalURL
		return &ExternalURLItem{Base: b, Target: mi.ExternalURL}
	case "file":
		b.URL = firstNonEmpty(mi.HTMLURL, mi.URL)
		return &FileItem{Base: b, MetaURL: mi.URL, ContentID: mi.ContentID}
	case "externaltool":
		tool := firstNonEmpty(mi.ExternalURL, mi.URL)
		b.URL = firstNonEmpty(mi.HTMLURL, tool)
		return &ExternalToolItem{Base: b, ToolURL: tool}
	default:
		b.URL = firstNonEmpty(mi.HTMLURL, mi.URL, mi.ExternalURL)
		return &OtherItem{Base: b}
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
