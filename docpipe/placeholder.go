// CLAUDE:SUMMARY Bracketed placeholder strings returned instead of errors, and the prefix test that classifies them.
package docpipe

import "strings"

// Placeholders returned by the extractors. All of them start with '['.
const (
	PDFGotHTML   = "[Could not extract PDF: received HTML instead of PDF - authentication may have failed]"
	PDFInvalid   = "[Could not extract PDF: file does not appear to be a valid PDF]"
	ZipGotHTML   = "[Could not extract zip: received HTML instead of zip file - authentication may have failed]"
	ZipInvalid   = "[Could not extract zip: file does not appear to be a valid zip file]"
	ZipBadFormat = "[Could not extract: Invalid zip file]"
	DocxInvalid  = "[Could not extract document: file does not appear to be a valid Word document]"
)

// failurePrefixes are the leading markers of every placeholder that means
// "nothing useful was extracted". "[File saved: ...]" is deliberately absent:
// a saved binary counts as handled.
var failurePrefixes = []string{
	"[Could not",
	"[Panopto video",
	"[Panopto Video",
	"[Kaltura video",
	"[Vimeo video",
	"[External tool",
	"[File:",
	"[Page content not loaded",
	"[Unsupported item",
}

// Failed reports whether content is a failure placeholder.
func Failed(content string) bool {
	for _, p := range failurePrefixes {
		if strings.HasPrefix(content, p) {
			return true
		}
	}
	return false
}
