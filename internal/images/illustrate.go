package images

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/deep-research/internal/canon"
	"github.com/sells-group/deep-research/internal/config"
	"github.com/sells-group/deep-research/internal/model"
	"github.com/sells-group/deep-research/internal/scrape"
	"github.com/sells-group/deep-research/internal/workpool"
)

// Fetcher fetches one page for mining. A nil page means the response was
// not HTML and the page is skipped.
type Fetcher interface {
	FetchPage(ctx context.Context, url string, timeout time.Duration) (*scrape.Page, error)
}

// Result is the outcome of one illustration pass.
type Result struct {
	Images       []model.SelectedImage
	PagesFetched int
	Candidates   int
	Thumbnails   int
}

// Illustrator picks images for a ranked source list.
type Illustrator struct {
	fetcher     Fetcher
	cfg         config.ImageConfig
	limits      Limits
	pages       int
	concurrency int
	timeout     time.Duration
}

// NewIllustrator creates an Illustrator. A nil fetcher skips page mining
// and only produces thumbnails.
func NewIllustrator(fetcher Fetcher, cfg config.ImageConfig) *Illustrator {
	il := &Illustrator{
		fetcher:     fetcher,
		cfg:         cfg,
		limits:      LimitsFromConfig(cfg),
		pages:       12,
		concurrency: 3,
		timeout:     7 * time.Second,
	}
	if cfg.CandidatePages > 0 {
		il.pages = cfg.CandidatePages
	}
	if cfg.FetchConcurrency > 0 {
		il.concurrency = cfg.FetchConcurrency
	}
	if cfg.FetchTimeoutSecs > 0 {
		il.timeout = time.Duration(cfg.FetchTimeoutSecs) * time.Second
	}
	return il
}

// Illustrate fetches the most promising pages among the top ranked sources,
// keeps the best image of each and selects the final set. Fetch failures
// only drop that page; the error is ctx's when the run is canceled.
func (il *Illustrator) Illustrate(ctx context.Context, query string, ranked []model.RankedSource) (Result, error) {
	qt := canon.Tokenize(query)

	top := ranked
	if len(top) > il.pages {
		top = top[:il.pages]
	}
	prioritized := PrioritizePages(qt, top)

	var picks []ScoredImage
	res := Result{}
	if il.fetcher != nil && len(prioritized) > 0 {
		type pageResult struct {
			fetched    bool
			candidates int
			pick       *ScoredImage
		}
		results, err := workpool.Run(ctx, prioritized, il.concurrency, func(ctx context.Context, src model.RankedSource, _ int) (pageResult, error) {
			page, err := il.fetcher.FetchPage(ctx, src.URL, il.timeout)
			if err != nil {
				zap.L().Debug("images: page fetch failed", zap.String("url", src.URL), zap.Error(err))
				return pageResult{}, nil
			}
			if !page.HasHTML() {
				return pageResult{}, nil
			}
			pageURL := page.URL
			if pageURL == "" {
				pageURL = src.URL
			}
			cands := MineCandidates(page.HTML, pageURL, il.limits)
			pr := pageResult{fetched: true, candidates: len(cands)}
			if best, ok := BestPerPage(qt, src, cands); ok {
				pr.pick = &best
			}
			return pr, nil
		})
		if err != nil {
			return Result{}, err
		}
		for _, r := range results {
			if r.fetched {
				res.PagesFetched++
			}
			res.Candidates += r.candidates
			if r.pick != nil {
				picks = append(picks, *r.pick)
			}
		}
	}

	res.Images = Select(picks, prioritized, ParamsFromConfig(il.cfg, len(qt) > 0))
	for _, img := range res.Images {
		if !containsImage(picks, img.ImageURL) {
			res.Thumbnails++
		}
	}
	return res, nil
}

// Thumbnails selects images for ranked without fetching any page: only
// screenshot thumbnails of the highest-priority sources are produced.
func (il *Illustrator) Thumbnails(query string, ranked []model.RankedSource) []model.SelectedImage {
	qt := canon.Tokenize(query)
	top := ranked
	if len(top) > il.pages {
		top = top[:il.pages]
	}
	return Select(nil, PrioritizePages(qt, top), ParamsFromConfig(il.cfg, len(qt) > 0))
}

// PrioritizePages returns sources sorted by PagePriority, highest first.
// Equal priorities keep rank order.
func PrioritizePages(queryTokens canon.TokenSet, sources []model.RankedSource) []model.RankedSource {
	type scored struct {
		src      model.RankedSource
		priority float64
	}
	tmp := make([]scored, len(sources))
	for i, s := range sources {
		tmp[i] = scored{src: s, priority: PagePriority(queryTokens, s)}
	}
	sort.SliceStable(tmp, func(i, j int) bool {
		return tmp[i].priority > tmp[j].priority
	})
	out := make([]model.RankedSource, len(tmp))
	for i, s := range tmp {
		out[i] = s.src
	}
	return out
}

func containsImage(picks []ScoredImage, imageURL string) bool {
	for _, p := range picks {
		if p.Candidate.URL == imageURL {
			return true
		}
	}
	return false
}
