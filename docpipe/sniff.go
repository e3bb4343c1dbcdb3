package docpipe

import "bytes"

var (
	pdfMagic = []byte("%PDF")
	zipMagic = []byte("PK")
)

// htmlSniffLen is how far into a payload LooksLikeHTML searches.
const htmlSniffLen = 1000

// IsPDF reports whether data starts with the PDF signature.
func IsPDF(data []byte) bool { return bytes.HasPrefix(data, pdfMagic) }

// IsZip reports whether data starts with the ZIP local-file-header signature.
func IsZip(data []byte) bool { return bytes.HasPrefix(data, zipMagic) }

// LooksLikeHTML reports whether data is an HTML document, which is what a
// download returns when the session expired and the LMS served a login page.
func LooksLikeHTML(data []byte) bool {
	head := data
	if len(head) > htmlSniffLen {
		head = head[:htmlSniffLen]
	}
	head = bytes.ToLower(head)
	return bytes.Contains(head, []byte("<html")) || bytes.Contains(head, []byte("<!doctype"))
}
