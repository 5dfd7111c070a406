package scrape

import (
	"net/url"
	"path"
	"strings"
)

// mediaPatterns name resources that are never worth fetching as a page.
var mediaPatterns = []string{
	"*.zip", "*.gz", "*.tar", "*.exe", "*.dmg",
	"*.mp3", "*.mp4", "*.mov", "*.avi", "*.webm",
	"*.jpg", "*.jpeg", "*.png", "*.gif", "*.webp", "*.svg",
}

// documentPatterns name binary documents the reader proxies can convert but
// plain HTTP cannot.
var documentPatterns = []string{
	"*.pdf", "*.doc", "*.docx", "*.xls", "*.xlsx", "*.ppt", "*.pptx",
}

// PathMatcher filters URLs based on glob-style path patterns. Patterns that
// start with "/" match from the root of the path, and "/dir/*" also matches
// deeper paths under dir. Patterns without a leading "/" match the last path
// segment, so "*.pdf" matches at any depth.
type PathMatcher struct {
	patterns []string
}

// NewPathMatcher creates a PathMatcher from glob patterns. Falls back to the
// media patterns if none are provided.
func NewPathMatcher(patterns []string) *PathMatcher {
	if len(patterns) == 0 {
		patterns = mediaPatterns
	}
	lower := make([]string, len(patterns))
	for i, p := range patterns {
		lower[i] = strings.ToLower(p)
	}
	return &PathMatcher{patterns: lower}
}

// Patterns returns the configured patterns.
func (m *PathMatcher) Patterns() []string {
	return m.patterns
}

// IsExcluded checks whether a URL matches any pattern. Unparseable URLs are
// excluded.
func (m *PathMatcher) IsExcluded(rawURL string) bool {
	if m == nil {
		return false
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return true
	}
	urlPath := strings.ToLower(u.Path)
	for _, pattern := range m.patterns {
		if matchPattern(pattern, urlPath) {
			return true
		}
	}
	return false
}

func matchPattern(pattern, urlPath string) bool {
	if !strings.HasPrefix(pattern, "/") {
		ok, _ := path.Match(pattern, path.Base(urlPath))
		return ok
	}

	if ok, _ := path.Match(pattern, urlPath); ok {
		return true
	}

	// "/blog/*" also matches "/blog" and "/blog/a/b/c".
	if strings.HasSuffix(pattern, "/*") {
		prefix := strings.TrimSuffix(pattern, "/*")
		if urlPath == prefix || strings.HasPrefix(urlPath, prefix+"/") {
			return true
		}
	}
	return false
}
