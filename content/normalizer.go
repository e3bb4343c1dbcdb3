// CLAUDE:SUMMARY Module-item normalizer: dispatches each item variant (page, link, file, tool) to its extractor and derives the extracted flag once.
// CLAUDE:DEPENDS canvas, docpipe, extract, ledger, layout
// CLAUDE:EXPORTS Normalizer, NewNormalizer, Config, Record, Item, FromModuleItem, Classify
// Package content turns LMS module items into normalised records: title,
// type, source URL and extracted text (or a bracketed placeholder saying
// why nothing could be extracted).
package content

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hazyhaar/coursesync/canvas"
	"github.com/hazyhaar/coursesync/docpipe"
	"github.com/hazyhaar/coursesync/extract"
	"github.com/hazyhaar/coursesync/ledger"
)

// Record is a normalised module item.
type Record struct {
	Title       string `json:"title"`
	Type        string `json:"type"`
	URL         string `json:"url"`
	Content     string `json:"content"`
	Extracted   bool   `json:"extracted"`
	LocalPath   string `json:"local_path,omitempty"`
	VideoID     string `json:"video_id,omitempty"`
	ExtractedTo string `json:"extracted_to,omitempty"`
}

// FileLedger remembers downloaded files. *ledger.Ledger implements it.
type FileLedger interface {
	Fresh(ctx context.Context, fileID, size int64, updatedAt string) (string, bool)
	Remember(ctx context.Context, f ledger.File) error
}

// Config configures a Normalizer.
type Config struct {
	// Pipeline extracts PDF, ZIP and DOCX payloads. Default: docpipe.New.
	Pipeline *docpipe.Pipeline
	// Renderer converts page bodies. Default: extract.NewRenderer.
	Renderer *extract.Renderer
	// Ledger skips re-downloading unchanged files. Optional.
	Ledger FileLedger
	// BaseURL resolves relative links in page bodies.
	BaseURL string
	Logger  *slog.Logger
}

func (c *Config) defaults() {
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.Pipeline == nil {
		c.Pipeline = docpipe.New(docpipe.Config{Logger: c.Logger})
	}
	if c.Renderer == nil {
		c.Renderer = extract.NewRenderer(c.Logger)
	}
}

// Normalizer converts module items into Records using an authenticated
// fetch capability.
type Normalizer struct {
	f      canvas.Fetcher
	cfg    Config
	logger *slog.Logger
}

// NewNormalizer creates a Normalizer over f.
func NewNormalizer(f canvas.Fetcher, cfg Config) *Normalizer {
	cfg.defaults()
	return &Normalizer{f: f, cfg: cfg, logger: cfg.Logger}
}

// Normalize produces the record for one item. Files are written below
// downloadDir. It never fails: problems end up as placeholder content.
// Extracted is true exactly when Content is non-empty and not a failure
// placeholder.
func (n *Normalizer) Normalize(ctx context.Context, it Item, downloadDir string) Record {
	b := it.base()
	rec := Record{Title: b.Title, Type: b.Type, URL: b.URL}

	switch v := it.(type) {
	case *PageItem:
		n.page(v, &rec)
	case *ExternalURLItem:
		n.externalURL(ctx, v, downloadDir, &rec)
	case *FileItem:
		n.file(ctx, v, downloadDir, &rec)
	case *ExternalToolItem:
		n.externalTool(ctx, v, &rec)
	case *OtherItem:
		n.other(v, &rec)
	default:
		rec.Content = fmt.Sprintf("[Unsupported item: %T]", it)
	}

	rec.Extracted = rec.Content != "" && !docpipe.Failed(rec.Content)
	if !rec.Extracted && rec.Content != "" {
		n.logger.Debug("content: item not extracted", "title", rec.Title, "type", rec.Type, "reason", firstLine(rec.Content))
	}
	return rec
}

func (n *Normalizer) page(p *PageItem, rec *Record) {
	if !p.Loaded {
		rec.Content = "[Page content not loaded]"
		return
	}
	rec.Content = n.cfg.Renderer.Render(p.Body, n.cfg.BaseURL)
}

func (n *Normalizer) externalURL(ctx context.Context, e *ExternalURLItem, downloadDir string, rec *Record) {
	target := e.Target
	switch Classify(target) {
	case KindYouTube:
		id := youtubeID(target)
		if id == "" {
			rec.Content = "[Could not extract transcript: unrecognised YouTube URL]"
			return
		}
		rec.VideoID = id
		rec.Content = n.youtubeTranscript(ctx, id)

	case KindPanopto:
		id, host := panoptoID(target)
		if id == "" {
			rec.Content = fmt.Sprintf("[Panopto video: %s]", target)
			return
		}
		rec.VideoID = id
		rec.Content = n.panoptoTranscript(ctx, id, host)

	case KindVimeo:
		rec.Content = fmt.Sprintf("[Vimeo video: %s]", target)

	case KindPDF, KindWord, KindPowerPoint:
		n.externalDocument(ctx, e, downloadDir, rec)

	default:
		raw, err := n.f.GetRaw(ctx, target)
		if err != nil {
			rec.Content = fmt.Sprintf("[Could not extract webpage content: %v]", err)
			return
		}
		rec.Content = extract.WebpageText(raw)
	}
}

func (n *Normalizer) externalTool(ctx context.Context, t *ExternalToolItem, rec *Record) {
	switch {
	case containsFold(t.ToolURL, "panopto"):
		id, host := panoptoID(t.ToolURL)
		if id == "" {
			rec.Content = fmt.Sprintf("[Panopto video: %s]\nURL: %s\n[Open in the LMS to view]", t.Title, t.ToolURL)
			return
		}
		rec.VideoID = id
		rec.URL = t.ToolURL
		rec.Content = n.panoptoTranscript(ctx, id, host)

	case containsFold(t.ToolURL, "kaltura"):
		rec.Content = fmt.Sprintf("[Kaltura video: %s]\n[Video transcripts not supported - open in the LMS to view]", t.Title)

	default:
		rec.Content = fmt.Sprintf("[External tool: %s]\n[May require manual access in the LMS]", t.Title)
		if t.ToolURL != "" {
			rec.URL = t.ToolURL
		}
	}
}

func (n *Normalizer) other(o *OtherItem, rec *Record) {
	if o.Type == "subheader" {
		return
	}
	rec.Content = fmt.Sprintf("[Unsupported item type: %s - open in the LMS to view]", o.Type)
}
