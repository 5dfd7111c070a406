package images

import (
	"math"
	"sort"
	"strings"

	"github.com/sells-group/deep-research/internal/canon"
	"github.com/sells-group/deep-research/internal/config"
	"github.com/sells-group/deep-research/internal/model"
)

const defaultThumbnailBase = "https://image.thum.io/get"

// SelectParams controls the final image choice.
type SelectParams struct {
	Max           int     // hard cap on images returned
	Floor         int     // minimum filled with thumbnails when short
	Strict        float64 // first-pass score threshold
	Soft          float64 // backfill score threshold
	ThumbnailBase string
}

// ParamsFromConfig builds selection parameters. hasQuery selects the
// thresholds for queries with usable tokens.
func ParamsFromConfig(cfg config.ImageConfig, hasQuery bool) SelectParams {
	p := SelectParams{
		Max:           cfg.MaxImages,
		Strict:        cfg.StrictScore,
		Soft:          cfg.SoftScore,
		ThumbnailBase: cfg.ThumbnailBase,
	}
	if !hasQuery {
		p.Strict = cfg.StrictScoreNoQuery
		p.Soft = cfg.SoftScoreNoQuery
	}
	p.Floor = min(cfg.MinImages, cfg.MaxImages)
	return p
}

// ThumbnailURL returns a screenshot thumbnail URL for a page.
func ThumbnailURL(base, pageURL string) string {
	if base == "" {
		base = defaultThumbnailBase
	}
	return strings.TrimRight(base, "/") + "/width/1200/noanimate/" + pageURL
}

// Select picks the images to show. Picks are ranked by score and
// deduplicated by canonical image URL. Picks at or above the strict
// threshold are kept; while fewer than Floor are kept, the soft threshold
// and then any remaining pick backfill. If still short of Floor, screenshot
// thumbnails of the highest-priority unrepresented pages fill the gap.
func Select(picks []ScoredImage, prioritized []model.RankedSource, p SelectParams) []model.SelectedImage {
	if p.Max <= 0 {
		return []model.SelectedImage{}
	}
	floor := min(p.Floor, p.Max)

	ranked := make([]ScoredImage, len(picks))
	copy(ranked, picks)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})

	seenImage := make(map[string]bool)
	unique := ranked[:0]
	for _, pk := range ranked {
		key := canon.Canonicalize(pk.Candidate.URL)
		if seenImage[key] {
			continue
		}
		seenImage[key] = true
		unique = append(unique, pk)
	}

	out := make([]model.SelectedImage, 0, p.Max)
	seenSource := make(map[string]bool)
	used := make([]bool, len(unique))

	take := func(threshold float64, until int) {
		for i, pk := range unique {
			if len(out) >= until {
				return
			}
			if used[i] || pk.Score < threshold {
				continue
			}
			used[i] = true
			out = append(out, model.SelectedImage{
				ImageURL:    pk.Candidate.URL,
				SourceURL:   pk.Source.URL,
				SourceTitle: pk.Source.Title,
			})
			seenSource[canon.Canonicalize(pk.Source.URL)] = true
		}
	}

	take(p.Strict, p.Max)
	if len(out) < floor {
		take(p.Soft, floor)
	}
	if len(out) < floor {
		take(math.Inf(-1), floor)
	}

	for _, src := range prioritized {
		if len(out) >= floor {
			break
		}
		if src.URL == "" {
			continue
		}
		key := canon.Canonicalize(src.URL)
		if seenSource[key] {
			continue
		}
		thumb := ThumbnailURL(p.ThumbnailBase, src.URL)
		if seenImage[canon.Canonicalize(thumb)] {
			continue
		}
		seenSource[key] = true
		seenImage[canon.Canonicalize(thumb)] = true
		out = append(out, model.SelectedImage{
			ImageURL:    thumb,
			SourceURL:   src.URL,
			SourceTitle: src.Title,
		})
	}

	return out
}
