package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/deep-research/internal/cache"
	"github.com/sells-group/deep-research/internal/config"
	"github.com/sells-group/deep-research/internal/llm"
	"github.com/sells-group/deep-research/internal/planner"
	"github.com/sells-group/deep-research/internal/rank"
	"github.com/sells-group/deep-research/internal/research"
	"github.com/sells-group/deep-research/internal/scorer"
	"github.com/sells-group/deep-research/internal/scrape"
	"github.com/sells-group/deep-research/internal/search"
	"github.com/sells-group/deep-research/internal/store"
	anthropicpkg "github.com/sells-group/deep-research/pkg/anthropic"
	"github.com/sells-group/deep-research/pkg/firecrawl"
	"github.com/sells-group/deep-research/pkg/google"
	"github.com/sells-group/deep-research/pkg/jina"
	"github.com/sells-group/deep-research/pkg/perplexity"
)

// researchEnv holds the store, cache and orchestrator needed by the
// research and serve commands.
type researchEnv struct {
	Store        store.Store // may be nil
	Cache        *cache.Cache
	Orchestrator *research.Orchestrator
}

// Close releases resources held by the environment.
func (re *researchEnv) Close() {
	if re.Store != nil {
		_ = re.Store.Close()
	}
}

// initResearch validates c for the given command mode, opens the store and
// wires every client into an Orchestrator. Callers should defer env.Close().
func initResearch(ctx context.Context, c *config.Config, mode string) (*researchEnv, error) {
	if err := c.Validate(mode); err != nil {
		return nil, err
	}

	st, err := store.Open(ctx, c.Store)
	if err != nil {
		return nil, eris.Wrap(err, "open store")
	}
	if st != nil {
		zap.L().Info("bundle store enabled", zap.String("driver", c.Store.Driver))
	}

	sc, err := newScorer(c)
	if err != nil {
		if st != nil {
			_ = st.Close()
		}
		return nil, err
	}

	rc := newCache(c, st)

	jinaOpts := []jina.Option{jina.WithBaseURL(c.Jina.BaseURL)}
	if c.Jina.SearchBaseURL != "" {
		jinaOpts = append(jinaOpts, jina.WithSearchBaseURL(c.Jina.SearchBaseURL))
	}
	jinaClient := jina.NewClient(c.Jina.Key, jinaOpts...)

	// Google Programmable Search is optional and needs both key and engine.
	var googleClient google.Client
	if c.Google.Key != "" && c.Google.CX != "" {
		googleClient = google.NewClient(c.Google.Key, c.Google.CX, google.WithBaseURL(c.Google.BaseURL))
		zap.L().Info("google search enabled")
	} else {
		zap.L().Debug("RESEARCH_GOOGLE_KEY or RESEARCH_GOOGLE_CX not set, google search disabled")
	}

	searcher := search.New(c.Search, jinaClient, googleClient)
	zap.L().Debug("search providers", zap.Strings("providers", searcher.Names()))

	// Enrichment chain: local HTTP, then Jina Reader, then Firecrawl.
	limiter := scrape.NewHostLimiter(c.Scrape.HostRPS, c.Scrape.HostBurst)
	local := scrape.NewLocalScraper(c.Scrape, limiter)
	scrapers := []scrape.Scraper{local, scrape.NewJinaScraper(jinaClient)}
	if c.Firecrawl.Key != "" {
		fc := firecrawl.NewClient(c.Firecrawl.Key, firecrawl.WithBaseURL(c.Firecrawl.BaseURL))
		scrapers = append(scrapers, scrape.NewFirecrawlScraper(fc))
	}
	chain := scrape.NewChain(scrape.NewPathMatcher(nil), scrapers...)
	zap.L().Debug("scrape chain", zap.Strings("scrapers", chain.Names()))

	orch := research.New(c.Research, c.Images, research.Deps{
		Searcher: searcher,
		Enricher: scrape.NewEnricher(chain, c.Scrape.MaxContentChars, time.Duration(c.Scrape.TimeoutSecs)*time.Second),
		Fetcher:  local,
		Planner:  planner.New(newCompleter(c), c.Research.PlannerSeeds),
		Ranker:   rank.New(sc),
		Cache:    rc,
	})

	return &researchEnv{
		Store:        st,
		Cache:        rc,
		Orchestrator: orch,
	}, nil
}

// newCache builds the in-memory cache, reading through to st when set.
func newCache(c *config.Config, st store.Store) *cache.Cache {
	var opts []cache.Option
	if st != nil {
		opts = append(opts, cache.WithBackend(st))
	}
	return cache.New(time.Duration(c.Cache.TTLSecs)*time.Second, opts...)
}

// newScorer builds the scorer, loading an authority table override when
// one is configured.
func newScorer(c *config.Config) (*scorer.Scorer, error) {
	var opts []scorer.Option
	if path := c.Scoring.AuthorityTablePath; path != "" {
		table, err := scorer.LoadAuthorityTable(path)
		if err != nil {
			return nil, eris.Wrap(err, "load authority table")
		}
		opts = append(opts, scorer.WithAuthorityTable(table))
		zap.L().Info("authority table loaded", zap.String("path", path))
	}
	return scorer.New(c.Scoring, opts...), nil
}

// newCompleter returns the LLM completer for the configured planner
// provider, or nil when the provider is disabled or has no key. A nil
// completer makes the planner fall back to templated follow-ups.
func newCompleter(c *config.Config) planner.Completer {
	switch c.Planner.Provider {
	case "anthropic":
		if c.Anthropic.Key == "" {
			zap.L().Warn("RESEARCH_ANTHROPIC_KEY not set, planner will use templates")
			return nil
		}
		client := anthropicpkg.NewClient(c.Anthropic.Key)
		return llm.NewAnthropicCompleter(client, c.Anthropic.Model, c.Planner)
	case "perplexity":
		if c.Perplexity.Key == "" {
			zap.L().Warn("RESEARCH_PERPLEXITY_KEY not set, planner will use templates")
			return nil
		}
		client := perplexity.NewClient(c.Perplexity.Key,
			perplexity.WithBaseURL(c.Perplexity.BaseURL),
			perplexity.WithModel(c.Perplexity.Model),
		)
		return llm.NewPerplexityCompleter(client, c.Planner)
	default:
		return nil
	}
}
