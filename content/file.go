package content

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/hazyhaar/coursesync/canvas"
	"github.com/hazyhaar/coursesync/docpipe"
	"github.com/hazyhaar/coursesync/layout"
	"github.com/hazyhaar/coursesync/ledger"
)

// file downloads an uploaded course file into downloadDir and extracts it.
func (n *Normalizer) file(ctx context.Context, fi *FileItem, downloadDir string, rec *Record) {
	meta := fi.Meta
	if meta == nil && fi.MetaURL != "" {
		m, err := canvas.New(n.f, n.logger).File(ctx, fi.MetaURL)
		if err != nil {
			n.logger.Debug("content: file metadata", "url", fi.MetaURL, "error", err)
		} else {
			meta = m
		}
	}
	if meta == nil || meta.URL == "" {
		rec.Content = fmt.Sprintf("[File: %s - could not get download URL]", fi.Title)
		return
	}

	name := firstNonEmpty(meta.Filename, meta.DisplayName, fi.Title)
	saved := layout.Sanitize(name)
	if saved == "" {
		saved = fmt.Sprintf("file_%d", meta.ID)
	}
	target := filepath.Join(downloadDir, saved)

	var data []byte
	if local, ok := n.fresh(ctx, meta); ok {
		b, err := os.ReadFile(local)
		if err == nil {
			data, target = b, local
			n.logger.Debug("content: file unchanged, reusing local copy", "file", saved)
		}
	}
	if data == nil {
		b, err := n.f.GetRaw(ctx, meta.URL)
		if err != nil {
			rec.Content = fmt.Sprintf("[Could not download file: %v]", err)
			return
		}
		if err := writeDownload(target, b); err != nil {
			rec.Content = fmt.Sprintf("[Could not save file: %v]", err)
			return
		}
		data = b
		n.remember(ctx, meta, target, data)
	}
	rec.LocalPath = target

	format := docpipe.Detect(saved)
	if format == docpipe.FormatOther && path.Ext(saved) == "" {
		format = sniffFormat(data)
	}

	switch format {
	case docpipe.FormatPDF:
		rec.Content = n.cfg.Pipeline.PDFText(data)
	case docpipe.FormatZip:
		dir := filepath.Join(downloadDir, strings.TrimSuffix(saved, filepath.Ext(saved)))
		if dir == target {
			dir += "_extracted"
		}
		rec.Content = n.cfg.Pipeline.ZipContents(data, dir)
		if !docpipe.Failed(rec.Content) {
			rec.ExtractedTo = dir
		}
	case docpipe.FormatDocx:
		rec.Content = n.cfg.Pipeline.DocxText(data)
	default:
		rec.Content = fmt.Sprintf("[File saved: %s]", saved)
	}
}

// externalDocument downloads a document linked from outside the LMS. PDFs
// and .docx files are extracted; other office formats are only saved.
func (n *Normalizer) externalDocument(ctx context.Context, e *ExternalURLItem, downloadDir string, rec *Record) {
	kind := Classify(e.Target)
	data, err := n.f.GetRaw(ctx, e.Target)
	if err != nil {
		if kind == KindPDF {
			rec.Content = fmt.Sprintf("[Could not extract PDF: %v]", err)
		} else {
			rec.Content = fmt.Sprintf("[Could not download file: %v]", err)
		}
		return
	}

	name := documentName(e.Target, e.Title, kind)
	if downloadDir != "" {
		target := filepath.Join(downloadDir, name)
		if err := writeDownload(target, data); err != nil {
			n.logger.Warn("content: save external document", "file", name, "error", err)
		} else {
			rec.LocalPath = target
		}
	}

	switch {
	case kind == KindPDF:
		rec.Content = n.cfg.Pipeline.PDFText(data)
	case docpipe.Detect(name) == docpipe.FormatDocx:
		rec.Content = n.cfg.Pipeline.DocxText(data)
	default:
		rec.Content = fmt.Sprintf("[File saved: %s]", name)
	}
}

// documentName is the sanitized last path segment of rawURL, or the item
// title with an extension matching kind.
func documentName(rawURL, title string, kind Kind) string {
	if u, err := url.Parse(rawURL); err == nil {
		if base := layout.Sanitize(path.Base(u.Path)); base != "" && path.Ext(base) != "" {
			return base
		}
	}
	ext := ".pdf"
	switch kind {
	case KindWord:
		ext = ".docx"
	case KindPowerPoint:
		ext = ".pptx"
	}
	stem := layout.Sanitize(title)
	if stem == "" {
		stem = "document"
	}
	return stem + ext
}

// sniffFormat picks the extraction path for a file saved without extension.
func sniffFormat(data []byte) docpipe.Format {
	switch mimetype.Detect(data).Extension() {
	case ".pdf":
		return docpipe.FormatPDF
	case ".docx":
		return docpipe.FormatDocx
	case ".zip":
		return docpipe.FormatZip
	}
	return docpipe.FormatOther
}

func (n *Normalizer) fresh(ctx context.Context, meta *canvas.File) (string, bool) {
	if n.cfg.Ledger == nil || meta.ID == 0 {
		return "", false
	}
	return n.cfg.Ledger.Fresh(ctx, meta.ID, meta.Size, meta.UpdatedAt)
}

func (n *Normalizer) remember(ctx context.Context, meta *canvas.File, local string, data []byte) {
	if n.cfg.Ledger == nil || meta.ID == 0 {
		return
	}
	err := n.cfg.Ledger.Remember(ctx, ledger.File{
		ID:        meta.ID,
		URL:       meta.URL,
		LocalPath: local,
		Size:      meta.Size,
		UpdatedAt: meta.UpdatedAt,
		Hash:      ledger.Digest(data),
	})
	if err != nil {
		n.logger.Warn("content: ledger remember", "file_id", meta.ID, "error", err)
	}
}

func writeDownload(target string, data []byte) error {
	return layout.WriteFileAtomic(target, data)
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), sub)
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
