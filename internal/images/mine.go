// Package images mines illustration candidates from fetched pages, scores
// them against the research query and picks the final set.
package images

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/sells-group/deep-research/internal/config"
	"github.com/sells-group/deep-research/internal/model"
)

// genericPattern matches words that mark decorative or boilerplate assets.
var genericPattern = regexp.MustCompile(`(?i)\b(logos?|icons?|favicon|avatars?|gravatar|banners?|placeholder|sprites?|spacer|pixel|tracking|tracker|beacon|badges?|buttons?|ads?|advert|advertisement|sponsor(ed)?|emoji|spinner|loading|blank|social|share)\b`)

// metaImageSelectors lists the meta tags that name a page's lead image, in
// the order they are read.
var metaImageSelectors = []string{
	`meta[property="og:image"]`,
	`meta[name="og:image"]`,
	`meta[property="og:image:secure_url"]`,
	`meta[name="og:image:secure_url"]`,
	`meta[property="twitter:image"]`,
	`meta[name="twitter:image"]`,
}

var metaContextSelectors = []string{
	`meta[property="og:title"]`,
	`meta[property="og:description"]`,
	`meta[name="twitter:title"]`,
	`meta[name="twitter:description"]`,
	`meta[property="twitter:title"]`,
	`meta[property="twitter:description"]`,
}

// lazySrcAttrs are checked in order for an <img> source.
var lazySrcAttrs = []string{"src", "data-src", "data-original", "data-lazy-src"}

// genericAttrs are the <img> attributes checked against genericPattern.
var genericAttrs = []string{"alt", "title", "class", "id", "aria-label"}

// Limits bounds the work done per page.
type Limits struct {
	MaxImgTags   int // <img> tags scanned
	MaxPerPage   int // candidates returned
	MinDimension int // smallest declared width or height kept
}

// DefaultLimits returns the standard per-page limits.
func DefaultLimits() Limits {
	return Limits{MaxImgTags: 70, MaxPerPage: 16, MinDimension: 180}
}

// LimitsFromConfig reads the limits from the image settings, falling back
// to the defaults for unset values.
func LimitsFromConfig(cfg config.ImageConfig) Limits {
	l := DefaultLimits()
	if cfg.MaxImgTags > 0 {
		l.MaxImgTags = cfg.MaxImgTags
	}
	if cfg.MaxPerPage > 0 {
		l.MaxPerPage = cfg.MaxPerPage
	}
	if cfg.MinDimension > 0 {
		l.MinDimension = cfg.MinDimension
	}
	return l
}

// IsGeneric reports whether text looks like it names a decorative asset.
func IsGeneric(text string) bool {
	return text != "" && genericPattern.MatchString(text)
}

// MineCandidates extracts image candidates from a page: meta images first,
// then <img> tags. URLs are resolved against pageURL and deduplicated.
// Unparseable HTML yields no candidates.
func MineCandidates(html, pageURL string, limits Limits) []model.ImageCandidate {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil
	}

	m := &miner{
		base:   base,
		limits: limits,
		seen:   make(map[string]bool),
	}
	m.mineMeta(doc)
	m.mineImgs(doc)
	return m.out
}

type miner struct {
	base   *url.URL
	limits Limits
	seen   map[string]bool
	out    []model.ImageCandidate
}

func (m *miner) full() bool {
	return m.limits.MaxPerPage > 0 && len(m.out) >= m.limits.MaxPerPage
}

func (m *miner) add(c model.ImageCandidate) {
	if m.full() || m.seen[c.URL] {
		return
	}
	m.seen[c.URL] = true
	m.out = append(m.out, c)
}

func (m *miner) mineMeta(doc *goquery.Document) {
	var ctxParts []string
	for _, sel := range metaContextSelectors {
		if v, ok := doc.Find(sel).Attr("content"); ok {
			if v = strings.TrimSpace(v); v != "" {
				ctxParts = append(ctxParts, v)
			}
		}
	}
	ctxText := strings.Join(ctxParts, " ")

	width := metaInt(doc, "og:image:width")
	height := metaInt(doc, "og:image:height")

	for _, sel := range metaImageSelectors {
		doc.Find(sel).Each(func(_ int, s *goquery.Selection) {
			raw, _ := s.Attr("content")
			resolved, ok := m.resolve(raw)
			if !ok {
				return
			}
			m.add(model.ImageCandidate{
				URL:         resolved,
				ContextText: ctxText,
				SourceHint:  model.ImageFromMeta,
				Width:       width,
				Height:      height,
			})
		})
	}
}

func (m *miner) mineImgs(doc *goquery.Document) {
	doc.Find("img").EachWithBreak(func(i int, s *goquery.Selection) bool {
		if m.limits.MaxImgTags > 0 && i >= m.limits.MaxImgTags {
			return false
		}
		if m.full() {
			return false
		}

		resolved, ok := m.imgSource(s)
		if !ok {
			return true
		}
		for _, attr := range genericAttrs {
			if v, _ := s.Attr(attr); IsGeneric(v) {
				return true
			}
		}

		w := dimension(s.AttrOr("width", ""))
		h := dimension(s.AttrOr("height", ""))
		if w > 0 && h > 0 && (w < m.limits.MinDimension || h < m.limits.MinDimension) {
			return true
		}

		m.add(model.ImageCandidate{
			URL:         resolved,
			ContextText: imgContext(s),
			SourceHint:  model.ImageFromImg,
			Width:       w,
			Height:      h,
		})
		return true
	})
}

// imgSource returns the first usable source attribute. Lazy-loading pages
// often put a data: placeholder in src and the real URL in data-src.
func (m *miner) imgSource(s *goquery.Selection) (string, bool) {
	for _, attr := range lazySrcAttrs {
		if v, ok := s.Attr(attr); ok {
			if resolved, ok := m.resolve(v); ok {
				return resolved, true
			}
		}
	}
	return "", false
}

// resolve makes raw absolute against the page URL. data: URIs and anything
// that is not http(s) are rejected.
func (m *miner) resolve(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.HasPrefix(strings.ToLower(raw), "data:") {
		return "", false
	}
	ref, err := url.Parse(raw)
	if err != nil {
		return "", false
	}
	u := m.base.ResolveReference(ref)
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", false
	}
	return u.String(), true
}

// imgContext joins the text describing an image: its alt and title and the
// caption of an enclosing figure.
func imgContext(s *goquery.Selection) string {
	parts := []string{
		strings.TrimSpace(s.AttrOr("alt", "")),
		strings.TrimSpace(s.AttrOr("title", "")),
		strings.TrimSpace(s.Closest("figure").Find("figcaption").First().Text()),
	}
	var kept []string
	for _, p := range parts {
		if p != "" {
			kept = append(kept, strings.Join(strings.Fields(p), " "))
		}
	}
	return strings.Join(kept, " ")
}

func metaInt(doc *goquery.Document, property string) int {
	v, _ := doc.Find(`meta[property="` + property + `"]`).Attr("content")
	return dimension(v)
}

// dimension parses a declared size such as "640" or "640px". Percentages
// and junk parse as 0 (undeclared).
func dimension(v string) int {
	v = strings.TrimSuffix(strings.TrimSpace(strings.ToLower(v)), "px")
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0
	}
	return n
}
