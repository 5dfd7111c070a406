package scorer

import (
	"math"
	"regexp"
	"strconv"
	"time"

	"github.com/sells-group/deep-research/internal/canon"
	"github.com/sells-group/deep-research/internal/config"
	"github.com/sells-group/deep-research/internal/model"
)

var (
	breakingRe = regexp.MustCompile(`\b(breaking|updated|today|live (updates|blog)|ultima hora|hoy|actualizad[oa]s?)\b`)
	yearRe     = regexp.MustCompile(`\b(20\d{2})\b`)
)

// Scorer computes ranking scores for sources.
type Scorer struct {
	cfg       config.ScoringConfig
	authority AuthorityTable

	// nowFunc allows test injection of time.
	nowFunc func() time.Time
}

// Option configures a Scorer.
type Option func(*Scorer)

// WithClock sets the time source used by Freshness.
func WithClock(now func() time.Time) Option {
	return func(s *Scorer) { s.nowFunc = now }
}

// WithAuthorityTable replaces the built-in authority table.
func WithAuthorityTable(t AuthorityTable) Option {
	return func(s *Scorer) { s.authority = t }
}

// New creates a Scorer with the given weights.
func New(cfg config.ScoringConfig, opts ...Option) *Scorer {
	s := &Scorer{
		cfg:       cfg,
		authority: DefaultAuthorityTable(),
		nowFunc:   time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Config returns the scoring configuration.
func (s *Scorer) Config() config.ScoringConfig {
	return s.cfg
}

// Relevance returns the upstream search score clamped to [0,1].
func Relevance(src model.Source) float64 {
	return clamp01(src.Score)
}

// Authority scores the source's host using the authority table.
func (s *Scorer) Authority(rawURL string) float64 {
	return s.authority.Score(rawURL)
}

// Freshness estimates recency from breaking-news wording or the latest year
// mentioned in the title and snippet.
func (s *Scorer) Freshness(src model.Source) float64 {
	text := canon.Fold(src.Title + " " + src.Snippet)
	if breakingRe.MatchString(text) {
		return 0.95
	}

	latest := 0
	for _, m := range yearRe.FindAllString(text, -1) {
		if y, err := strconv.Atoi(m); err == nil && y > latest {
			latest = y
		}
	}
	if latest == 0 {
		return 0.55
	}

	age := s.nowFunc().Year() - latest
	switch {
	case age <= 0:
		return 0.95
	case age == 1:
		return 0.82
	case age == 2:
		return 0.72
	case age <= 4:
		return 0.62
	default:
		return 0.45
	}
}

// Coverage returns the fraction of query tokens present in the source text.
// A query without tokens covers everything equally (0.5); a source without
// tokens covers nothing.
func Coverage(queryTokens canon.TokenSet, src model.Source) float64 {
	if len(queryTokens) == 0 {
		return 0.5
	}
	srcTokens := canon.Tokenize(src.Title + " " + src.Snippet + " " + src.PageContent)
	if len(srcTokens) == 0 {
		return 0
	}
	hit := 0
	for t := range queryTokens {
		if srcTokens.Has(t) {
			hit++
		}
	}
	return float64(hit) / float64(len(queryTokens))
}

// Hybrid combines the four component scores using the configured weights.
func (s *Scorer) Hybrid(relevance, authority, freshness, coverage float64) float64 {
	return clamp01(s.cfg.RelevanceWeight*relevance +
		s.cfg.AuthorityWeight*authority +
		s.cfg.FreshnessWeight*freshness +
		s.cfg.CoverageWeight*coverage)
}

// Score computes every ranking signal for src against query. SourceID is
// left empty; it is assigned after ranking.
func (s *Scorer) Score(query string, src model.Source) model.RankedSource {
	return s.ScoreTokens(canon.Tokenize(query), src)
}

// ScoreTokens is Score with a pre-tokenized query.
func (s *Scorer) ScoreTokens(queryTokens canon.TokenSet, src model.Source) model.RankedSource {
	rel := Relevance(src)
	auth := s.Authority(src.URL)
	fresh := s.Freshness(src)
	cov := Coverage(queryTokens, src)
	return model.RankedSource{
		Source:         src,
		CanonicalURL:   canon.Canonicalize(src.URL),
		RelevanceScore: rel,
		AuthorityScore: auth,
		FreshnessScore: fresh,
		CoverageScore:  cov,
		HybridScore:    s.Hybrid(rel, auth, fresh, cov),
	}
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v):
		return 0
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
