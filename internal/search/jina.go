package search

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/deep-research/internal/config"
	"github.com/sells-group/deep-research/internal/model"
	"github.com/sells-group/deep-research/internal/resilience"
	"github.com/sells-group/deep-research/pkg/jina"
)

// JinaSearcher searches through Jina AI Search.
type JinaSearcher struct {
	client      jina.Client
	timeout     time.Duration
	guard       *resilience.Guard
	withContent bool
}

// NewJinaSearcher wraps a Jina client with the configured timeout and
// retry policy.
func NewJinaSearcher(client jina.Client, cfg config.SearchConfig) *JinaSearcher {
	return &JinaSearcher{
		client:      client,
		timeout:     timeout(cfg.TimeoutSecs),
		guard:       resilience.NewGuard("jina_search", cfg.Retries),
		withContent: cfg.WithContent,
	}
}

func (j *JinaSearcher) Name() string { return "jina" }

// Search maps Jina results to sources. Descriptions become snippets and any
// returned page text becomes PageContent.
func (j *JinaSearcher) Search(ctx context.Context, query string, k int) ([]model.Source, error) {
	ctx, cancel := context.WithTimeout(ctx, j.timeout)
	defer cancel()

	var opts []jina.SearchOption
	if j.withContent {
		opts = append(opts, jina.WithContent())
	}

	resp, err := resilience.Call(ctx, j.guard, func(ctx context.Context) (*jina.SearchResponse, error) {
		return j.client.Search(ctx, query, opts...)
	})
	if err != nil {
		return nil, eris.Wrap(err, "search: jina")
	}

	items := resp.Data
	if k > 0 && len(items) > k {
		items = items[:k]
	}
	out := make([]model.Source, 0, len(items))
	for i, r := range items {
		if strings.TrimSpace(r.URL) == "" {
			continue
		}
		out = append(out, model.Source{
			Title:       strings.TrimSpace(r.Title),
			URL:         r.URL,
			Snippet:     strings.TrimSpace(r.Description),
			PageContent: strings.TrimSpace(r.Content),
			Score:       positionScore(i, len(items)),
		})
	}
	return out, nil
}
