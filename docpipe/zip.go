// CLAUDE:SUMMARY ZIP archive unpacker: writes every entry to disk, inlines pdf/text/code entries into a markdown manifest.
// CLAUDE:DEPENDS docpipe/pdf.go, docpipe/docx.go, horosafe
// CLAUDE:EXPORTS ZipContents
package docpipe

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/hazyhaar/coursesync/horosafe"
)

// codeExts are inlined fenced, with the extension as the fence language.
var codeExts = map[string]bool{
	".py": true, ".r": true, ".ipynb": true, ".sql": true, ".js": true,
	".java": true, ".cpp": true, ".c": true, ".h": true, ".sh": true,
	".bat": true, ".ps1": true, ".yml": true, ".yaml": true,
}

// codeBasenames are extensionless build files inlined like code.
var codeBasenames = map[string]bool{
	"dockerfile": true, "makefile": true, "rakefile": true,
}

// textExts are inlined verbatim under a heading.
var textExts = map[string]bool{
	".txt": true, ".md": true, ".csv": true, ".json": true, ".xml": true,
	".html": true, ".rst": true, ".cfg": true, ".ini": true, ".toml": true,
	".go": true,
}

// entryKind buckets an archive entry by name.
type entryKind int

const (
	kindBinary entryKind = iota
	kindPDF
	kindDocx
	kindCode
	kindText
)

func classifyEntry(name string) entryKind {
	lower := strings.ToLower(name)
	ext := path.Ext(lower)
	switch {
	case ext == ".pdf":
		return kindPDF
	case ext == ".docx":
		return kindDocx
	case codeExts[ext], codeBasenames[path.Base(lower)]:
		return kindCode
	case textExts[ext]:
		return kindText
	}
	return kindBinary
}

// ZipContents unpacks a ZIP payload into dir and returns a markdown
// manifest: the entry count, up to ListLimit entry names, the extraction
// directory and the inlined text of pdf/docx/text/code entries. Entries that
// fail to extract are listed with the reason and skipped. Like PDFText it
// returns a placeholder instead of an error.
func (p *Pipeline) ZipContents(data []byte, dir string) string {
	if !IsZip(data) {
		if LooksLikeHTML(data) {
			return ZipGotHTML
		}
		return ZipInvalid
	}

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if errors.Is(err, zip.ErrInsecurePath) {
		// Reader is still usable; unsafe entries are rejected one by one below.
		err = nil
	}
	if err != nil {
		if errors.Is(err, zip.ErrFormat) || errors.Is(err, zip.ErrAlgorithm) || errors.Is(err, zip.ErrChecksum) {
			return ZipBadFormat
		}
		return fmt.Sprintf("[Could not extract zip: %v]", err)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Sprintf("[Could not extract zip: %v]", err)
	}

	var names []string
	var inlined []string

	for _, f := range zr.File {
		if f.FileInfo().IsDir() || strings.HasSuffix(f.Name, "/") {
			continue
		}

		content, err := p.extractEntry(f, dir)
		if err != nil {
			names = append(names, fmt.Sprintf("%s (extraction failed: %v)", f.Name, err))
			p.logger.Debug("docpipe: zip entry failed", "entry", f.Name, "error", err)
			continue
		}
		names = append(names, f.Name)

		if section := p.inlineEntry(f.Name, content); section != "" {
			inlined = append(inlined, section)
		}
	}

	return p.manifest(names, dir, inlined)
}

// extractEntry writes one entry below dir and returns its bytes.
func (p *Pipeline) extractEntry(f *zip.File, dir string) ([]byte, error) {
	target, err := horosafe.SafePath(dir, f.Name)
	if err != nil {
		return nil, errors.New("path traversal")
	}

	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	content, err := io.ReadAll(rc)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return nil, err
	}
	if err := os.WriteFile(target, content, 0o644); err != nil {
		return nil, err
	}
	return content, nil
}

// inlineEntry renders the manifest section for one entry, or "" when the
// entry is binary, too large, or its text could not be extracted.
func (p *Pipeline) inlineEntry(name string, content []byte) string {
	switch classifyEntry(name) {
	case kindPDF:
		text := p.PDFText(content)
		if Failed(text) {
			return ""
		}
		return fmt.Sprintf("### %s\n\n%s", name, text)

	case kindDocx:
		text := p.DocxText(content)
		if Failed(text) {
			return ""
		}
		return fmt.Sprintf("### %s\n\n%s", name, text)

	case kindCode:
		code, ok := p.decodeText(content)
		if !ok {
			return ""
		}
		lang := strings.TrimPrefix(path.Ext(name), ".")
		if lang == "" {
			lang = "text"
		}
		return fmt.Sprintf("### %s\n\n```%s\n%s\n```", name, lang, code)

	case kindText:
		text, ok := p.decodeText(content)
		if !ok {
			return ""
		}
		return fmt.Sprintf("### %s\n\n%s", name, text)
	}
	return ""
}

// decodeText reads content as UTF-8, replacing invalid bytes, and reports
// whether it fits under MaxInlineChars.
func (p *Pipeline) decodeText(content []byte) (string, bool) {
	text := strings.ToValidUTF8(string(content), "�")
	if utf8.RuneCountInString(text) >= p.cfg.MaxInlineChars {
		return "", false
	}
	return text, true
}

func (p *Pipeline) manifest(names []string, dir string, inlined []string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "**Extracted %d files:**\n", len(names))
	for i, n := range names {
		if i == p.cfg.ListLimit {
			break
		}
		fmt.Fprintf(&sb, "- %s\n", n)
	}
	if extra := len(names) - p.cfg.ListLimit; extra > 0 {
		fmt.Fprintf(&sb, "- ... and %d more files\n", extra)
	}
	fmt.Fprintf(&sb, "\n**Location:** %s\n", dir)

	if len(inlined) > 0 {
		sb.WriteString("\n---\n\n")
		sb.WriteString(strings.Join(inlined, "\n\n---\n\n"))
	}
	return sb.String()
}
