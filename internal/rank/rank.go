// Package rank deduplicates and orders research sources.
package rank

import (
	"sort"
	"strconv"

	"github.com/sells-group/deep-research/internal/canon"
	"github.com/sells-group/deep-research/internal/model"
	"github.com/sells-group/deep-research/internal/scorer"
	"github.com/sells-group/deep-research/internal/similarity"
)

// Ranker deduplicates, scores and orders sources.
type Ranker struct {
	scorer *scorer.Scorer
}

// New creates a Ranker backed by s.
func New(s *scorer.Scorer) *Ranker {
	return &Ranker{scorer: s}
}

type keptSource struct {
	src    model.Source
	canon  string
	host   string
	hasURL bool
	tokens canon.TokenSet
}

// Dedup removes sources that duplicate an earlier one. Two sources are
// duplicates when their canonical URLs match, or when they share a host and
// their title+snippet token sets are at least threshold-similar. Of a
// duplicate pair the one with the stronger signal survives in the earlier
// slot; ties keep the earlier source.
func (r *Ranker) Dedup(sources []model.Source) []model.Source {
	cfg := r.scorer.Config()
	kept := make([]keptSource, 0, len(sources))

	for _, src := range sources {
		cand := keptSource{
			src:    src,
			canon:  canon.Canonicalize(src.URL),
			tokens: canon.Tokenize(src.Title + " " + src.Snippet),
		}
		cand.host, cand.hasURL = canon.Host(src.URL)

		dup := -1
		for i, k := range kept {
			if k.canon == cand.canon {
				dup = i
				break
			}
			if cand.hasURL && k.hasURL && k.host == cand.host &&
				similarity.Jaccard(k.tokens, cand.tokens) >= cfg.DedupThreshold {
				dup = i
				break
			}
		}

		if dup < 0 {
			kept = append(kept, cand)
			continue
		}
		if signal(cand.src, cfg.ContentSignalChars) > signal(kept[dup].src, cfg.ContentSignalChars) {
			kept[dup] = cand
		}
	}

	out := make([]model.Source, len(kept))
	for i, k := range kept {
		out[i] = k.src
	}
	return out
}

// signal rewards upstream score and fetched page content.
func signal(s model.Source, contentChars float64) float64 {
	if contentChars <= 0 {
		return s.Score
	}
	return s.Score + float64(len(s.PageContent))/contentChars
}

// Rank deduplicates and scores sources against query, sorts them by hybrid
// score descending and keeps the first max. A non-positive max keeps all.
// The result carries fresh source IDs.
func (r *Ranker) Rank(query string, sources []model.Source, max int) []model.RankedSource {
	deduped := r.Dedup(sources)
	qTokens := canon.Tokenize(query)

	ranked := make([]model.RankedSource, len(deduped))
	for i, src := range deduped {
		ranked[i] = r.scorer.ScoreTokens(qTokens, src)
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].HybridScore > ranked[j].HybridScore
	})

	if max > 0 && len(ranked) > max {
		ranked = ranked[:max]
	}
	return AssignIDs(ranked)
}

// AssignIDs returns a copy of list with SourceIDs W1..WN in list order.
func AssignIDs(list []model.RankedSource) []model.RankedSource {
	out := make([]model.RankedSource, len(list))
	for i, r := range list {
		r.SourceID = "W" + strconv.Itoa(i+1)
		out[i] = r
	}
	return out
}
