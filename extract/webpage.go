// CLAUDE:SUMMARY External webpage → text-with-markers: DOM walk preferring main/article landmarks, drops script/style, marks headings and list items.
package extract

import (
	"bytes"
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var (
	spaceRun     = regexp.MustCompile(`[ \t\f\r\x{00a0}]{2,}`)
	spaceAroundN = regexp.MustCompile(`[ \t]*\n[ \t]*`)
)

// WebpageText extracts readable text from a full HTML document. Headings
// become "## " lines, paragraphs end with a blank line, list items start
// with "• " and <br> is a newline. Script and style content is dropped and
// entities are decoded. When the page has a main or article landmark only
// that subtree is read.
func WebpageText(raw []byte) string {
	doc, err := html.Parse(bytes.NewReader(raw))
	if err != nil {
		// html.Parse only fails on reader errors.
		return ""
	}

	root := findLandmark(doc)
	if root == nil {
		root = findBody(doc)
	}
	if root == nil {
		root = doc
	}

	var sb strings.Builder
	writeMarkers(&sb, root)

	text := spaceRun.ReplaceAllString(sb.String(), " ")
	text = spaceAroundN.ReplaceAllString(text, "\n")
	text = excessNewlines.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

// writeMarkers renders n's subtree as text with block markers.
func writeMarkers(sb *strings.Builder, n *html.Node) {
	switch n.Type {
	case html.TextNode:
		sb.WriteString(n.Data)
		return
	case html.ElementNode:
		switch n.DataAtom {
		case atom.Script, atom.Style, atom.Noscript, atom.Template:
			return
		case atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6:
			sb.WriteString("\n\n## ")
			writeChildren(sb, n)
			sb.WriteString("\n\n")
			return
		case atom.P:
			writeChildren(sb, n)
			sb.WriteString("\n\n")
			return
		case atom.Br:
			sb.WriteString("\n")
			return
		case atom.Li:
			sb.WriteString("• ")
			writeChildren(sb, n)
			sb.WriteString("\n")
			return
		}
	}
	writeChildren(sb, n)
}

func writeChildren(sb *strings.Builder, n *html.Node) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		writeMarkers(sb, c)
	}
}

// findLandmark returns the first <main>, <article> or role="main" element
// carrying some text.
func findLandmark(doc *html.Node) *html.Node {
	var found *html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if found != nil {
			return
		}
		if n.Type == html.ElementNode && isLandmark(n) && strings.TrimSpace(collectText(n)) != "" {
			found = n
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return found
}

func isLandmark(n *html.Node) bool {
	switch n.DataAtom {
	case atom.Main, atom.Article:
		return true
	}
	for _, attr := range n.Attr {
		if attr.Key == "role" && attr.Val == "main" {
			return true
		}
	}
	return false
}

// findBody returns the <body> element from a parsed document.
func findBody(doc *html.Node) *html.Node {
	var body *html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if body != nil {
			return
		}
		if n.Type == html.ElementNode && n.DataAtom == atom.Body {
			body = n
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return body
}

// collectText extracts all visible text from a node subtree.
func collectText(n *html.Node) string {
	var sb strings.Builder
	var f func(*html.Node)
	f = func(n *html.Node) {
		if n.Type == html.TextNode {
			text := strings.TrimSpace(n.Data)
			if text != "" {
				if sb.Len() > 0 {
					sb.WriteByte(' ')
				}
				sb.WriteString(text)
			}
		}
		if n.Type == html.ElementNode {
			switch n.DataAtom {
			case atom.Script, atom.Style, atom.Noscript:
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			f(c)
		}
	}
	f(n)
	return sb.String()
}

// ScriptContaining returns the text of the first <script> element whose
// body contains marker, or "".
func ScriptContaining(raw []byte, marker string) string {
	doc, err := html.Parse(bytes.NewReader(raw))
	if err != nil {
		return ""
	}
	var found string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if found != "" {
			return
		}
		if n.Type == html.ElementNode && n.DataAtom == atom.Script {
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				if c.Type == html.TextNode && strings.Contains(c.Data, marker) {
					found = c.Data
					return
				}
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return found
}
