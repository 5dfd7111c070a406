package images

import (
	"net/url"

	"github.com/sells-group/deep-research/internal/canon"
	"github.com/sells-group/deep-research/internal/model"
	"github.com/sells-group/deep-research/internal/similarity"
)

// Rejected is the score of a candidate that must never be selected.
const Rejected = -1.0

const (
	pageWeight     = 0.34
	textWeight     = 0.34
	urlWeight      = 0.18
	largeBonus     = 0.08
	mediumBonus    = 0.04
	metaBonus      = 0.06
	genericPenalty = 0.22

	largeSide  = 600
	mediumSide = 300

	// Below these similarities a candidate has nothing to do with the query.
	minSimilarity        = 0.02
	minGenericSimilarity = 0.08
)

// PagePriority ranks a source page as an image host. It blends lexical
// overlap between query and title+snippet with the source's coverage,
// relevance and hybrid scores.
func PagePriority(queryTokens canon.TokenSet, src model.RankedSource) float64 {
	lexical := similarity.Jaccard(queryTokens, canon.Tokenize(src.Title+" "+src.Snippet))
	return 0.35*lexical + 0.25*src.CoverageScore + 0.2*src.RelevanceScore + 0.2*src.HybridScore
}

// ScoreCandidate scores one candidate from a page with the given priority.
// It returns Rejected for candidates unrelated to the query, and for generic
// assets that are only weakly related.
func ScoreCandidate(queryTokens canon.TokenSet, c model.ImageCandidate, pagePriority float64) float64 {
	textSim := similarity.Jaccard(queryTokens, canon.Tokenize(c.ContextText))
	urlSim := similarity.Jaccard(queryTokens, urlTokens(c.URL))

	if len(queryTokens) > 0 && textSim < minSimilarity && urlSim < minSimilarity {
		return Rejected
	}

	penalty := 0.0
	if IsGeneric(c.URL) || IsGeneric(c.ContextText) {
		penalty = genericPenalty
		if textSim < minGenericSimilarity && urlSim < minGenericSimilarity {
			return Rejected
		}
	}

	score := pageWeight*pagePriority + textWeight*textSim + urlWeight*urlSim
	score += sizeBonus(c.Width, c.Height)
	if c.SourceHint == model.ImageFromMeta {
		score += metaBonus
	}
	return score - penalty
}

func sizeBonus(w, h int) float64 {
	switch {
	case w >= largeSide && h >= largeSide:
		return largeBonus
	case w >= mediumSide && h >= mediumSide:
		return mediumBonus
	default:
		return 0
	}
}

// urlTokens tokenizes the path of an image URL; file names such as
// "solar-farm-aerial.jpg" carry most of the signal.
func urlTokens(raw string) canon.TokenSet {
	u, err := url.Parse(raw)
	if err != nil {
		return canon.Tokenize(raw)
	}
	return canon.Tokenize(u.Path)
}

// ScoredImage is a candidate with its score and the page it came from.
type ScoredImage struct {
	Source    model.RankedSource
	Candidate model.ImageCandidate
	Priority  float64
	Score     float64
}

// BestPerPage scores every candidate of one page and returns the best one.
// ok is false when every candidate was rejected. Ties keep page order.
func BestPerPage(queryTokens canon.TokenSet, src model.RankedSource, candidates []model.ImageCandidate) (ScoredImage, bool) {
	priority := PagePriority(queryTokens, src)
	var best ScoredImage
	found := false
	for _, c := range candidates {
		s := ScoreCandidate(queryTokens, c, priority)
		if s == Rejected {
			continue
		}
		if !found || s > best.Score {
			best = ScoredImage{Source: src, Candidate: c, Priority: priority, Score: s}
			found = true
		}
	}
	return best, found
}
