package scrape

import (
	"bytes"
	"io"
	"mime"
	"net/http"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding/htmlindex"
)

// metaCharsetRe finds <meta charset=...> or the http-equiv content-type form
// in the first bytes of a document.
var metaCharsetRe = regexp.MustCompile(`(?i)<meta[^>]+charset\s*=\s*["']?\s*([a-z0-9_\-:.]+)`)

const charsetSniffBytes = 1024

// IsHTMLContentType reports whether a Content-Type header names an HTML
// document. An empty header is decided by sniffing body.
func IsHTMLContentType(contentType string, body []byte) bool {
	if strings.TrimSpace(contentType) == "" {
		contentType = http.DetectContentType(body)
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == "text/html" || mediaType == "application/xhtml+xml"
}

// DecodeBody converts body to UTF-8 using the charset from the Content-Type
// header, or from a <meta> tag when the header has none. Unknown charsets
// leave the body as is.
func DecodeBody(body []byte, contentType string) []byte {
	label := ""
	if _, params, err := mime.ParseMediaType(contentType); err == nil {
		label = params["charset"]
	}
	if label == "" {
		head := body
		if len(head) > charsetSniffBytes {
			head = head[:charsetSniffBytes]
		}
		if m := metaCharsetRe.FindSubmatch(head); len(m) > 1 {
			label = string(m[1])
		}
	}
	if label == "" || strings.EqualFold(label, "utf-8") || strings.EqualFold(label, "utf8") {
		return body
	}

	enc, err := htmlindex.Get(label)
	if err != nil {
		return body
	}
	decoded, err := io.ReadAll(enc.NewDecoder().Reader(bytes.NewReader(body)))
	if err != nil {
		return body
	}
	return decoded
}

// ParseDocument parses HTML into a goquery document.
func ParseDocument(html string) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, eris.Wrap(err, "scrape: parse html")
	}
	return doc, nil
}

// boilerplateSelector matches elements whose text never belongs in page
// content.
const boilerplateSelector = "script, style, noscript, template, svg, nav, footer, header, aside, form, iframe"

// blockSelector matches elements that end a line of readable text.
const blockSelector = "p, h1, h2, h3, h4, h5, h6, li, blockquote, pre, td, th, dt, dd, figcaption"

// ExtractTitle returns the document title, preferring og:title.
func ExtractTitle(doc *goquery.Document) string {
	if v, ok := doc.Find(`meta[property="og:title"]`).Attr("content"); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return strings.TrimSpace(doc.Find("title").First().Text())
}

// ExtractText returns readable text: boilerplate removed, one line per
// block element, whitespace collapsed. Falls back to the body text when the
// page has no block elements.
func ExtractText(doc *goquery.Document) string {
	root := doc.Find("body")
	if root.Length() == 0 {
		root = doc.Selection
	}
	root = root.Clone()
	root.Find(boilerplateSelector).Remove()

	var lines []string
	root.Find(blockSelector).Each(func(_ int, s *goquery.Selection) {
		// Nested blocks (li > p) would otherwise be emitted twice.
		if s.ParentsFiltered(blockSelector).Length() > 0 {
			return
		}
		if line := collapseSpace(s.Text()); line != "" {
			lines = append(lines, line)
		}
	})
	if len(lines) == 0 {
		return collapseSpace(root.Text())
	}
	return strings.Join(lines, "\n")
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Truncate cuts s to at most n runes. n <= 0 disables truncation.
func Truncate(s string, n int) string {
	if n <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
