// Package model defines the data types shared across the research engine.
package model

// Source is a single search result, optionally enriched with page text.
// Sources are treated as immutable once fetched; enrichment returns copies.
type Source struct {
	Title       string  `json:"title"`
	URL         string  `json:"url"`
	Snippet     string  `json:"snippet"`
	PageContent string  `json:"page_content,omitempty"`
	Score       float64 `json:"score"`
}

// HasContent reports whether the page text has been fetched.
func (s Source) HasContent() bool {
	return s.PageContent != ""
}

// RankedSource is a Source annotated with its ranking scores.
// All scores lie in [0,1]. SourceID is only meaningful for the ranked list it
// was assigned in.
type RankedSource struct {
	Source
	SourceID       string  `json:"source_id"`
	CanonicalURL   string  `json:"canonical_url"`
	RelevanceScore float64 `json:"relevance_score"`
	AuthorityScore float64 `json:"authority_score"`
	FreshnessScore float64 `json:"freshness_score"`
	CoverageScore  float64 `json:"coverage_score"`
	HybridScore    float64 `json:"hybrid_score"`
}

// Sources strips ranking annotations.
func Sources(ranked []RankedSource) []Source {
	out := make([]Source, len(ranked))
	for i, r := range ranked {
		out[i] = r.Source
	}
	return out
}
