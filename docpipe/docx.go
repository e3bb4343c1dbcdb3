// CLAUDE:SUMMARY Word (.docx) reader: walks word/document.xml and renders paragraphs, styled headings as markdown '#'.
// CLAUDE:EXPORTS DocxText
package docpipe

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"strings"
)

// DocxText renders the paragraphs of a .docx payload as markdown. Heading
// styles become '#' headings; other paragraphs are separated by blank lines.
func (p *Pipeline) DocxText(data []byte) string {
	if !IsZip(data) {
		return DocxInvalid
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return DocxInvalid
	}

	var docFile *zip.File
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			docFile = f
			break
		}
	}
	if docFile == nil {
		return DocxInvalid
	}

	rc, err := docFile.Open()
	if err != nil {
		return fmt.Sprintf("[Could not extract document: %v]", err)
	}
	defer rc.Close()

	decoder := xml.NewDecoder(rc)
	var blocks []string
	var current strings.Builder
	var inParagraph bool
	var paragraphStyle string

	for {
		tok, err := decoder.Token()
		if err != nil {
			break
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch {
			case t.Name.Local == "p":
				inParagraph = true
				current.Reset()
				paragraphStyle = ""
			case t.Name.Local == "pStyle" && inParagraph:
				for _, attr := range t.Attr {
					if attr.Name.Local == "val" {
						paragraphStyle = attr.Value
					}
				}
			case t.Name.Local == "tab" && inParagraph:
				current.WriteByte('\t')
			}

		case xml.CharData:
			if inParagraph {
				current.Write(t)
			}

		case xml.EndElement:
			if t.Name.Local != "p" || !inParagraph {
				continue
			}
			inParagraph = false
			text := strings.TrimSpace(current.String())
			if text == "" {
				continue
			}
			if level := docxHeadingLevel(paragraphStyle); level > 0 {
				text = strings.Repeat("#", level) + " " + text
			}
			blocks = append(blocks, text)
		}
	}

	if len(blocks) == 0 {
		return "[Could not extract document: no text content]"
	}
	return strings.Join(blocks, "\n\n")
}

// docxHeadingLevel extracts the heading level from a paragraph style name.
// e.g. "Heading1" → 1, "Heading2" → 2, "Title" → 1, etc.
func docxHeadingLevel(style string) int {
	lower := strings.ToLower(style)

	if lower == "title" {
		return 1
	}
	if lower == "subtitle" {
		return 2
	}

	for _, prefix := range []string{"heading", "titre", "überschrift"} {
		if strings.HasPrefix(lower, prefix) {
			rest := lower[len(prefix):]
			if len(rest) == 1 && rest[0] >= '1' && rest[0] <= '6' {
				return int(rest[0] - '0')
			}
		}
	}
	return 0
}
