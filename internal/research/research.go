// Package research runs a research query end to end: warm-up search,
// planning, follow-up fan-out, ranking, caching and image selection.
package research

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/deep-research/internal/cache"
	"github.com/sells-group/deep-research/internal/config"
	"github.com/sells-group/deep-research/internal/images"
	"github.com/sells-group/deep-research/internal/model"
	"github.com/sells-group/deep-research/internal/planner"
	"github.com/sells-group/deep-research/internal/rank"
	"github.com/sells-group/deep-research/internal/scorer"
	"github.com/sells-group/deep-research/internal/scrape"
	"github.com/sells-group/deep-research/internal/workpool"
)

// Searcher returns up to k web results for a query.
type Searcher interface {
	Search(ctx context.Context, query string, k int) ([]model.Source, error)
}

// Enricher fills in missing page content. It never fails; sources it cannot
// enrich come back unchanged.
type Enricher interface {
	Enrich(ctx context.Context, sources []model.Source, concurrency int) []model.Source
}

// PageFetcher fetches one page for image mining. A nil page means the
// response was not HTML.
type PageFetcher interface {
	FetchPage(ctx context.Context, url string, timeout time.Duration) (*scrape.Page, error)
}

// Request is one research query.
type Request struct {
	Query string
	Mode  model.Mode
	// Sources, when set, replace the warm-up search.
	Sources []model.Source
	// SkipCache bypasses the cache lookup. The result is still cached.
	SkipCache bool
}

// Deps are the collaborators of an Orchestrator. Searcher is required;
// the rest may be nil.
type Deps struct {
	Searcher Searcher
	Enricher Enricher
	Fetcher  PageFetcher
	Planner  *planner.Planner
	Ranker   *rank.Ranker
	Cache    *cache.Cache
}

// Orchestrator runs research queries.
type Orchestrator struct {
	searcher    Searcher
	enricher    Enricher
	planner     *planner.Planner
	ranker      *rank.Ranker
	cache       *cache.Cache
	illustrator *images.Illustrator
	cfg         config.ResearchConfig
	nowFunc     func() time.Time
	newID       func() string
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithClock overrides the clock used for telemetry.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.nowFunc = now }
}

// WithRunIDs overrides run ID generation.
func WithRunIDs(newID func() string) Option {
	return func(o *Orchestrator) { o.newID = newID }
}

var defaultModes = map[model.Mode]config.ModeConfig{
	model.ModeQuick:      {FollowUpConcurrency: 3, MaxSources: 16, SearchK: 6},
	model.ModeExhaustive: {FollowUpConcurrency: 4, MaxSources: 24, SearchK: 8},
}

const defaultEnrichConcurrency = 4

// New creates an Orchestrator from the research and image settings.
func New(rc config.ResearchConfig, ic config.ImageConfig, deps Deps, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		searcher:    deps.Searcher,
		enricher:    deps.Enricher,
		planner:     deps.Planner,
		ranker:      deps.Ranker,
		cache:       deps.Cache,
		illustrator: images.NewIllustrator(deps.Fetcher, ic),
		cfg:         rc,
		nowFunc:     time.Now,
		newID:       func() string { return uuid.New().String() },
	}
	if o.planner == nil {
		o.planner = planner.New(nil, rc.PlannerSeeds)
	}
	if o.ranker == nil {
		o.ranker = rank.New(scorer.New(scorer.DefaultScoringConfig()))
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func (o *Orchestrator) mode(m model.Mode) config.ModeConfig {
	mc := o.cfg.Mode(string(m))
	def := defaultModes[m]
	if mc.FollowUpConcurrency <= 0 {
		mc.FollowUpConcurrency = def.FollowUpConcurrency
	}
	if mc.MaxSources <= 0 {
		mc.MaxSources = def.MaxSources
	}
	if mc.SearchK <= 0 {
		mc.SearchK = def.SearchK
	}
	return mc
}

func (o *Orchestrator) enrichConcurrency() int {
	if o.cfg.EnrichConcurrency > 0 {
		return o.cfg.EnrichConcurrency
	}
	return defaultEnrichConcurrency
}

// run carries the state of one Run call.
type run struct {
	id      string
	query   string
	mode    model.Mode
	mc      config.ModeConfig
	start   time.Time
	last    time.Time
	tel     model.Telemetry
	events  emitter
	nowFunc func() time.Time
}

// mark records the time spent in a state since the previous mark.
func (r *run) mark(state string) {
	now := r.nowFunc()
	r.tel[state+"_ms"] = now.Sub(r.last).Milliseconds()
	r.last = now
}

// Run executes one research query. Progress events are emitted exactly once
// each in the order search, planning, ranking, images, complete, also when
// the answer comes from the cache. A canceled run returns ctx's error and
// leaves the cache untouched.
func (o *Orchestrator) Run(ctx context.Context, req Request, emit Emitter) (*model.ResearchBundle, error) {
	query := strings.TrimSpace(req.Query)
	mode := model.ParseMode(string(req.Mode))
	now := o.nowFunc()
	r := &run{
		id:      o.newID(),
		query:   query,
		mode:    mode,
		mc:      o.mode(mode),
		start:   now,
		last:    now,
		events:  emitter{fn: emit},
		nowFunc: o.nowFunc,
		tel: model.Telemetry{
			"mode":       string(mode),
			"started_at": now.UnixMilli(),
		},
	}
	r.tel["run_id"] = r.id

	if o.cache != nil && !req.SkipCache {
		if entry, ok := o.cache.Get(ctx, mode, query); ok {
			return o.replay(r, entry), nil
		}
	}
	r.tel["cache_hit"] = false

	warm, planRes, err := o.warmupAndPlan(ctx, r, req.Sources)
	if err != nil {
		return nil, err
	}
	r.events.emit(model.EventSearch, fmt.Sprintf("Found %d initial sources", len(warm)),
		SearchProgress{Query: query, Sources: len(warm)})
	r.events.emit(model.EventPlanning, fmt.Sprintf("Planned %d follow-up searches", len(planRes.Plan.FollowUpQueries)),
		PlanningProgress{Plan: planRes.Plan, Stage: string(planRes.Stage)})

	followUps, err := o.followUp(ctx, planRes.Plan.FollowUpQueries, r)
	if err != nil {
		return nil, err
	}
	r.mark("followup")

	pool := make([]model.Source, 0, len(warm)+len(followUps))
	pool = append(pool, warm...)
	pool = append(pool, followUps...)

	ranked := o.ranker.Rank(query, pool, r.mc.MaxSources)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if o.cache != nil {
		o.cache.Put(ctx, mode, query, model.CacheEntry{
			Sources:       pool,
			RankedSources: ranked,
			Plan:          planRes.Plan,
		})
	}
	r.tel["pool_sources"] = len(pool)
	r.tel["ranked_sources"] = len(ranked)
	r.mark("ranking")
	r.events.emit(model.EventRanking, fmt.Sprintf("Ranked %d sources", len(ranked)),
		RankingProgress{Candidates: len(pool), Sources: ranked})

	ill, err := o.illustrator.Illustrate(ctx, query, ranked)
	if err != nil {
		return nil, err
	}
	r.tel["images"] = len(ill.Images)
	r.tel["image_pages_fetched"] = ill.PagesFetched
	r.tel["image_candidates"] = ill.Candidates
	r.tel["image_thumbnails"] = ill.Thumbnails
	r.mark("images")
	r.events.emit(model.EventImages, fmt.Sprintf("Selected %d images", len(ill.Images)),
		ImagesProgress{Images: ill.Images})

	return o.finish(r, ranked, ill.Images, planRes.Plan, false), nil
}

// warmupAndPlan runs the broad warm-up search, then enrichment and planning
// side by side. The planner is seeded with the warm-up results, so it
// starts once the search is back.
func (o *Orchestrator) warmupAndPlan(ctx context.Context, r *run, provided []model.Source) ([]model.Source, planner.ParseResult, error) {
	warm := provided
	if len(warm) == 0 && r.query != "" {
		results, err := o.searcher.Search(ctx, r.query, r.mc.SearchK)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, planner.ParseResult{}, ctxErr
			}
			zap.L().Warn("research: warm-up search failed",
				zap.String("run_id", r.id),
				zap.String("query", r.query),
				zap.Error(err),
			)
		}
		warm = results
	}
	r.tel["warmup_sources"] = len(warm)
	r.mark("warmup")

	var (
		g        errgroup.Group
		enriched = warm
		planRes  planner.ParseResult
	)
	if len(provided) == 0 && o.enricher != nil && anyMissing(warm) {
		g.Go(func() error {
			enriched = o.enricher.Enrich(ctx, warm, o.enrichConcurrency())
			return nil
		})
	}
	g.Go(func() error {
		if r.query == "" {
			planRes = planner.ParseResult{Stage: planner.StageFallback}
			return nil
		}
		planRes = o.planner.Plan(ctx, r.query, warm)
		return nil
	})
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, planner.ParseResult{}, err
	}
	r.tel["plan_stage"] = string(planRes.Stage)
	r.tel["followup_queries"] = len(planRes.Plan.FollowUpQueries)
	r.mark("planning")
	return enriched, planRes, nil
}

// followUp runs every follow-up query through the executor. A failed search
// contributes nothing; only cancellation is an error.
func (o *Orchestrator) followUp(ctx context.Context, queries []string, r *run) ([]model.Source, error) {
	results, err := workpool.Run(ctx, queries, r.mc.FollowUpConcurrency, func(ctx context.Context, q string, _ int) ([]model.Source, error) {
		found, err := o.searcher.Search(ctx, q, r.mc.SearchK)
		if err != nil {
			zap.L().Warn("research: follow-up search failed",
				zap.String("run_id", r.id),
				zap.String("query", q),
				zap.Error(err),
			)
			return nil, nil
		}
		if o.enricher != nil && anyMissing(found) {
			found = o.enricher.Enrich(ctx, found, o.enrichConcurrency())
		}
		return found, nil
	})
	if err != nil {
		return nil, err
	}

	var flat []model.Source
	for _, rs := range results {
		flat = append(flat, rs...)
	}
	r.tel["followup_sources"] = len(flat)
	return flat, nil
}

// replay answers from a cache entry. Images are rebuilt as thumbnails of
// the cached ranking since no page is fetched on a hit.
func (o *Orchestrator) replay(r *run, entry model.CacheEntry) *model.ResearchBundle {
	r.tel["cache_hit"] = true
	ranked := rank.AssignIDs(entry.RankedSources)
	imgs := o.illustrator.Thumbnails(r.query, ranked)

	r.events.emit(model.EventSearch, fmt.Sprintf("Loaded %d cached sources", len(entry.Sources)),
		SearchProgress{Query: r.query, Sources: len(entry.Sources)})
	r.events.emit(model.EventPlanning, "Loaded cached plan",
		PlanningProgress{Plan: entry.Plan, Stage: "cached"})
	r.events.emit(model.EventRanking, fmt.Sprintf("Loaded %d ranked sources", len(ranked)),
		RankingProgress{Candidates: len(entry.Sources), Sources: ranked})
	r.events.emit(model.EventImages, fmt.Sprintf("Selected %d images", len(imgs)),
		ImagesProgress{Images: imgs})

	r.tel["ranked_sources"] = len(ranked)
	r.tel["images"] = len(imgs)
	r.tel["cache_age_ms"] = r.start.Sub(entry.Timestamp).Milliseconds()
	return o.finish(r, ranked, imgs, entry.Plan, true)
}

func (o *Orchestrator) finish(r *run, ranked []model.RankedSource, imgs []model.SelectedImage, plan model.ResearchPlan, fromCache bool) *model.ResearchBundle {
	if ranked == nil {
		ranked = []model.RankedSource{}
	}
	if imgs == nil {
		imgs = []model.SelectedImage{}
	}
	r.tel["total_ms"] = o.nowFunc().Sub(r.start).Milliseconds()

	bundle := &model.ResearchBundle{
		RunID:     r.id,
		Query:     r.query,
		Mode:      r.mode,
		Sources:   ranked,
		Images:    imgs,
		Plan:      plan,
		Telemetry: r.tel,
		FromCache: fromCache,
	}

	zap.L().Info("research: run complete",
		zap.String("run_id", r.id),
		zap.String("query", r.query),
		zap.String("mode", string(r.mode)),
		zap.Bool("from_cache", fromCache),
		zap.Int("sources", len(ranked)),
		zap.Int("images", len(imgs)),
		zap.Any("telemetry", r.tel),
	)
	r.events.emit(model.EventComplete, "Research complete", bundle)
	return bundle
}

func anyMissing(sources []model.Source) bool {
	for _, s := range sources {
		if !s.HasContent() {
			return true
		}
	}
	return false
}
