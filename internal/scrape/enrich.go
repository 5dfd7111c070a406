package scrape

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/deep-research/internal/model"
	"github.com/sells-group/deep-research/internal/workpool"
)

const (
	// DefaultMaxContentChars caps stored page content per source.
	DefaultMaxContentChars = 20000

	// DefaultEnrichTimeout bounds the whole scrape chain for one source.
	DefaultEnrichTimeout = 10 * time.Second
)

// Enricher fills in missing page content for search results.
type Enricher struct {
	chain    *Chain
	maxChars int
	timeout  time.Duration
}

// NewEnricher creates an Enricher over chain. maxChars <= 0 uses
// DefaultMaxContentChars and timeout <= 0 uses DefaultEnrichTimeout.
func NewEnricher(chain *Chain, maxChars int, timeout time.Duration) *Enricher {
	if maxChars <= 0 {
		maxChars = DefaultMaxContentChars
	}
	if timeout <= 0 || timeout > DefaultEnrichTimeout {
		timeout = DefaultEnrichTimeout
	}
	return &Enricher{chain: chain, maxChars: maxChars, timeout: timeout}
}

// Enrich returns a copy of sources with PageContent fetched for every source
// that lacks it. Failed fetches leave the source unchanged. Sources that
// already have content are never refetched.
func (e *Enricher) Enrich(ctx context.Context, sources []model.Source, concurrency int) []model.Source {
	out := make([]model.Source, len(sources))
	copy(out, sources)

	var missing []int
	for i, s := range out {
		if !s.HasContent() && s.URL != "" {
			missing = append(missing, i)
		}
	}
	if len(missing) == 0 {
		return out
	}

	pages, err := workpool.Run(ctx, missing, concurrency, func(ctx context.Context, i, _ int) (*Page, error) {
		fetchCtx, cancel := context.WithTimeout(ctx, e.timeout)
		defer cancel()
		page, err := e.chain.Scrape(fetchCtx, out[i].URL)
		if err != nil {
			zap.L().Debug("scrape: enrichment failed",
				zap.String("url", out[i].URL),
				zap.Error(err),
			)
			return nil, nil
		}
		return page, nil
	})
	if err != nil {
		zap.L().Debug("scrape: enrichment interrupted", zap.Error(err))
		return out
	}

	enriched := 0
	for j, i := range missing {
		page := pages[j]
		if page == nil {
			continue
		}
		text := strings.TrimSpace(page.Text)
		if text == "" {
			continue
		}
		out[i].PageContent = Truncate(text, e.maxChars)
		if out[i].Title == "" {
			out[i].Title = page.Title
		}
		enriched++
	}

	zap.L().Debug("scrape: enrichment complete",
		zap.Int("missing", len(missing)),
		zap.Int("enriched", enriched),
	)
	return out
}
