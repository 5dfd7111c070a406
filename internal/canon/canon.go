// Package canon normalizes URLs, text and queries so that equivalent inputs
// compare equal.
package canon

import (
	"net/url"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// trackingParams are query parameters dropped during canonicalization.
// Keys with the utm_ prefix are dropped as well.
var trackingParams = map[string]bool{
	"gclid":  true,
	"fbclid": true,
	"igshid": true,
	"mc_cid": true,
	"mc_eid": true,
}

// Canonicalize returns the canonical form of rawURL. Scheme and host are
// lowercased, leading "www." labels are removed, the fragment and tracking
// params are dropped and a trailing slash is trimmed. Input that is not an
// absolute URL is returned trimmed and lowercased. Canonicalize is
// idempotent.
func Canonicalize(rawURL string) string {
	trimmed := strings.TrimSpace(rawURL)
	u, err := url.Parse(trimmed)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return strings.ToLower(trimmed)
	}

	var b strings.Builder
	b.WriteString(strings.ToLower(u.Scheme))
	b.WriteString("://")
	if u.User != nil {
		b.WriteString(u.User.String())
		b.WriteByte('@')
	}
	b.WriteString(stripWWW(strings.ToLower(u.Host)))

	path := u.EscapedPath()
	path = strings.TrimRight(path, "/")
	b.WriteString(path)

	if q := filterQuery(u.RawQuery); q != "" {
		b.WriteByte('?')
		b.WriteString(q)
	}
	return b.String()
}

// filterQuery drops tracking params while keeping the remaining pairs in
// their original order and encoding.
func filterQuery(raw string) string {
	if raw == "" {
		return ""
	}
	var kept []string
	for _, pair := range strings.Split(raw, "&") {
		if pair == "" {
			continue
		}
		key := pair
		if i := strings.IndexByte(pair, '='); i >= 0 {
			key = pair[:i]
		}
		if dk, err := url.QueryUnescape(key); err == nil {
			key = dk
		}
		key = strings.ToLower(key)
		if strings.HasPrefix(key, "utm_") || trackingParams[key] {
			continue
		}
		kept = append(kept, pair)
	}
	return strings.Join(kept, "&")
}

// Host returns the lowercased hostname of rawURL without leading "www." labels.
// The second result is false when rawURL has no host.
func Host(rawURL string) (string, bool) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Hostname() == "" {
		return "", false
	}
	return stripWWW(strings.ToLower(u.Hostname())), true
}

// stripWWW removes every leading "www." label so the result is stable under
// repeated canonicalization.
func stripWWW(host string) string {
	for strings.HasPrefix(host, "www.") {
		host = host[len("www."):]
	}
	return host
}

// Fold removes diacritics and lowercases text.
func Fold(text string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, text)
	if err != nil {
		out = text
	}
	return strings.ToLower(out)
}

// NormalizeQuery folds q and collapses runs of whitespace. It is used as the
// cache key and the dedup key for plan entries.
func NormalizeQuery(q string) string {
	return strings.Join(strings.Fields(Fold(q)), " ")
}
