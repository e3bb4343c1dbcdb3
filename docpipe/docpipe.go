// CLAUDE:SUMMARY Pipeline engine that turns downloaded course files (pdf, zip, docx) into inlineable text or placeholders.
// Package docpipe extracts text from binary course material.
//
// Supported payloads:
//   - .pdf: page text through pdfcpu, pages joined by a blank line
//   - .zip: entries written to disk, text/code/pdf entries inlined in a manifest
//   - .docx: paragraphs of word/document.xml
//
// Extraction never returns an error: a payload that cannot be read yields a
// bracketed placeholder (see Failed) so that callers can keep going with the
// next item.
//
// Usage:
//
//	pipe := docpipe.New(docpipe.Config{})
//	text := pipe.PDFText(data)
//	if docpipe.Failed(text) { ... }
package docpipe

import (
	"log/slog"
	"path"
	"strings"
)

// Format identifies a payload type.
type Format string

const (
	FormatPDF   Format = "pdf"
	FormatZip   Format = "zip"
	FormatDocx  Format = "docx"
	FormatOther Format = "other"
)

// Pipeline is the binary extraction engine.
type Pipeline struct {
	cfg    Config
	logger *slog.Logger
}

// New creates a Pipeline with the given configuration.
func New(cfg Config) *Pipeline {
	cfg.defaults()
	return &Pipeline{
		cfg:    cfg,
		logger: cfg.Logger,
	}
}

// Detect returns the payload format based on the file name extension.
func Detect(name string) Format {
	switch strings.ToLower(path.Ext(name)) {
	case ".pdf":
		return FormatPDF
	case ".zip":
		return FormatZip
	case ".docx":
		return FormatDocx
	default:
		return FormatOther
	}
}
