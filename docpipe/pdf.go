// CLAUDE:SUMMARY PDF text extractor using pdfcpu: magic-byte check, per-page extraction, quality scoring, placeholders on failure.
// CLAUDE:DEPENDS docpipe/quality.go, docpipe/sniff.go
// CLAUDE:EXPORTS PDFText
package docpipe

import (
	"bytes"
	"fmt"
	"io"
	"regexp"
	"strings"
	"unicode"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// PDFText extracts the text of a PDF payload, pages separated by a blank
// line. It never fails: wrong signatures, HTML login pages and parse errors
// all come back as placeholders. A page that cannot be decoded is skipped.
func (p *Pipeline) PDFText(data []byte) (text string) {
	if !IsPDF(data) {
		if LooksLikeHTML(data) {
			return PDFGotHTML
		}
		return PDFInvalid
	}

	// pdfcpu panics on some malformed cross-reference tables.
	defer func() {
		if r := recover(); r != nil {
			text = fmt.Sprintf("[Could not extract PDF text: %v]", r)
		}
	}()

	conf := model.NewDefaultConfiguration()
	ctx, err := api.ReadValidateAndOptimize(bytes.NewReader(data), conf)
	if err != nil {
		return fmt.Sprintf("[Could not extract PDF text: %v]", err)
	}

	var pages []string
	totalChars := 0
	for pageNr := 1; pageNr <= ctx.PageCount; pageNr++ {
		pageText := extractPageText(ctx, pageNr)
		if pageText == "" {
			continue
		}
		totalChars += len([]rune(pageText))
		pages = append(pages, pageText)
	}

	text = strings.Join(pages, "\n\n")

	q := &ExtractionQuality{
		PageCount:       ctx.PageCount,
		PrintableRatio:  computePrintableRatio(text),
		WordlikeRatio:   computeWordlikeRatio(text),
		HasImageStreams: detectImageStreams(ctx),
	}
	if ctx.PageCount > 0 {
		q.CharsPerPage = float64(totalChars) / float64(ctx.PageCount)
	}
	if q.NeedsOCR() {
		p.logger.Warn("docpipe: pdf text layer looks empty or garbled",
			"pages", q.PageCount, "chars_per_page", q.CharsPerPage, "images", q.HasImageStreams)
	}
	return text
}

// extractPageText extracts text from a single PDF page via its content stream.
// Errors are swallowed: the page simply contributes nothing.
func extractPageText(ctx *model.Context, pageNr int) (text string) {
	defer func() {
		if recover() != nil {
			text = ""
		}
	}()
	r, err := pdfcpu.ExtractPageContent(ctx, pageNr)
	if err != nil || r == nil {
		return ""
	}
	data, err := io.ReadAll(r)
	if err != nil || len(data) == 0 {
		return ""
	}
	return extractTextFromStream(data)
}

// detectImageStreams checks if the PDF contains image XObjects.
func detectImageStreams(ctx *model.Context) bool {
	for _, entry := range ctx.Table {
		if entry == nil || entry.Free || entry.Compressed {
			continue
		}
		sd, ok := entry.Object.(types.StreamDict)
		if !ok {
			continue
		}
		if subtype, found := sd.Find("Subtype"); found {
			if name, isName := subtype.(types.Name); isName && name == "Image" {
				return true
			}
		}
	}
	return false
}

// pdfStringRe matches PDF string literals in parentheses: (text here)
var pdfStringRe = regexp.MustCompile(`\(([^)]*)\)`)

// extractTextFromStream parses content stream operators for shown text.
func extractTextFromStream(data []byte) string {
	var sb strings.Builder

	for _, line := range bytes.Split(data, []byte{'\n'}) {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}

		switch {
		// (text) Tj  and  [(text) -100 (more)] TJ
		case bytes.HasSuffix(line, []byte("Tj")), bytes.HasSuffix(line, []byte("TJ")):
			for _, m := range pdfStringRe.FindAllSubmatch(line, -1) {
				sb.WriteString(decodePDFString(m[1]))
			}

		// (text) ': move to next line and show text.
		case bytes.HasSuffix(line, []byte("'")) && bytes.Contains(line, []byte("(")):
			for _, m := range pdfStringRe.FindAllSubmatch(line, -1) {
				if s := decodePDFString(m[1]); s != "" {
					sb.WriteByte('\n')
					sb.WriteString(s)
				}
			}

		case bytes.HasSuffix(line, []byte("Td")), bytes.HasSuffix(line, []byte("TD")):
			if sb.Len() > 0 {
				sb.WriteByte(' ')
			}

		case bytes.Equal(line, []byte("T*")):
			sb.WriteByte('\n')
		}
	}

	return cleanPDFText(sb.String())
}

// decodePDFString handles basic PDF escape sequences.
func decodePDFString(raw []byte) string {
	var sb strings.Builder
	for i := 0; i < len(raw); i++ {
		if raw[i] != '\\' || i+1 >= len(raw) {
			sb.WriteByte(raw[i])
			continue
		}
		i++
		switch raw[i] {
		case 'n':
			sb.WriteByte('\n')
		case 'r':
			sb.WriteByte('\r')
		case 't':
			sb.WriteByte('\t')
		case '\\', '(', ')':
			sb.WriteByte(raw[i])
		default:
			if raw[i] < '0' || raw[i] > '7' {
				sb.WriteByte(raw[i])
				continue
			}
			// Octal escape, up to three digits (\040 is a space).
			val := int(raw[i] - '0')
			for n := 0; n < 2 && i+1 < len(raw) && raw[i+1] >= '0' && raw[i+1] <= '7'; n++ {
				i++
				val = val*8 + int(raw[i]-'0')
			}
			sb.WriteByte(byte(val))
		}
	}
	return sb.String()
}

// cleanPDFText collapses whitespace runs and drops non-printable runes.
func cleanPDFText(text string) string {
	var sb strings.Builder
	prevSpace := false
	for _, r := range text {
		if unicode.IsSpace(r) {
			if !prevSpace && sb.Len() > 0 {
				sb.WriteByte(' ')
				prevSpace = true
			}
		} else if unicode.IsPrint(r) {
			sb.WriteRune(r)
			prevSpace = false
		}
	}
	return strings.TrimSpace(sb.String())
}
