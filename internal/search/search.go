// Package search adapts web search APIs to a single Searcher interface and
// chains them so a failing provider falls through to the next one.
package search

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/deep-research/internal/config"
	"github.com/sells-group/deep-research/internal/model"
	"github.com/sells-group/deep-research/pkg/google"
	"github.com/sells-group/deep-research/pkg/jina"
)

const defaultTimeout = 10 * time.Second

// Searcher returns up to k web results for a query.
type Searcher interface {
	Search(ctx context.Context, query string, k int) ([]model.Source, error)
	Name() string
}

// Multi tries providers in order. The first provider that returns results
// wins; provider errors are logged and skipped.
type Multi struct {
	providers []Searcher
}

// NewMulti builds a Multi over the given providers, skipping nil entries.
func NewMulti(providers ...Searcher) *Multi {
	m := &Multi{}
	for _, p := range providers {
		if p != nil {
			m.providers = append(m.providers, p)
		}
	}
	return m
}

// New builds the provider chain named by cfg.Providers. A provider whose
// client is nil is left out.
func New(cfg config.SearchConfig, jc jina.Client, gc google.Client) *Multi {
	var providers []Searcher
	for _, name := range cfg.Providers {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "jina":
			if jc != nil {
				providers = append(providers, NewJinaSearcher(jc, cfg))
			}
		case "google":
			if gc != nil {
				providers = append(providers, NewGoogleSearcher(gc, cfg))
			}
		default:
			zap.L().Warn("search: unknown provider", zap.String("provider", name))
		}
	}
	return NewMulti(providers...)
}

// Names lists the providers in order.
func (m *Multi) Names() []string {
	names := make([]string, len(m.providers))
	for i, p := range m.providers {
		names[i] = p.Name()
	}
	return names
}

func (m *Multi) Name() string { return "multi" }

// Search never returns an error for provider failures; an exhausted chain
// yields no results. Only a canceled context is reported.
func (m *Multi) Search(ctx context.Context, query string, k int) ([]model.Source, error) {
	for _, p := range m.providers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		results, err := p.Search(ctx, query, k)
		if err != nil {
			zap.L().Warn("search: provider failed",
				zap.String("provider", p.Name()),
				zap.String("query", query),
				zap.Error(err),
			)
			continue
		}
		if len(results) > 0 {
			return results, nil
		}
	}
	return []model.Source{}, nil
}

func timeout(secs int) time.Duration {
	if secs <= 0 {
		return defaultTimeout
	}
	return time.Duration(secs) * time.Second
}

// positionScore turns a result's rank into a relevance score in (0,1]:
// the first result scores 1 and later results decay linearly.
func positionScore(i, n int) float64 {
	if n <= 0 {
		return 0
	}
	return 1 - float64(i)/float64(n)
}
