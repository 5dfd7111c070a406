package config

import (
	"fmt"
	"math"
	"strings"

	"github.com/rotisserie/eris"
)

// maxFetchTimeoutSecs bounds every single page fetch.
const maxFetchTimeoutSecs = 10

// Validate checks the configuration required by the given command mode.
// Modes: "research", "serve", "cache".
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case "research":
	case "serve":
		if c.Server.Port <= 0 {
			errs = append(errs, "server.port must be > 0")
		}
	case "cache":
		if c.Store.Driver == "" {
			errs = append(errs, "store.driver is required")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	switch c.Store.Driver {
	case "", "sqlite":
	case "postgres":
		if c.Store.DatabaseURL == "" {
			errs = append(errs, "store.database_url is required for postgres")
		}
	default:
		errs = append(errs, fmt.Sprintf("store.driver %q is not supported", c.Store.Driver))
	}

	if c.Cache.TTLSecs <= 0 {
		errs = append(errs, "cache.ttl_secs must be > 0")
	}

	for name, m := range map[string]ModeConfig{"quick": c.Research.Quick, "exhaustive": c.Research.Exhaustive} {
		if m.FollowUpConcurrency < 1 || m.FollowUpConcurrency > 16 {
			errs = append(errs, fmt.Sprintf("research.%s.followup_concurrency must be between 1 and 16", name))
		}
		if m.MaxSources < 1 {
			errs = append(errs, fmt.Sprintf("research.%s.max_sources must be >= 1", name))
		}
		if m.SearchK < 1 {
			errs = append(errs, fmt.Sprintf("research.%s.search_k must be >= 1", name))
		}
	}

	errs = append(errs, c.Scoring.validate()...)

	if c.Scrape.TimeoutSecs < 1 || c.Scrape.TimeoutSecs > maxFetchTimeoutSecs {
		errs = append(errs, fmt.Sprintf("scrape.timeout_secs must be between 1 and %d", maxFetchTimeoutSecs))
	}
	if c.Images.FetchTimeoutSecs < 1 || c.Images.FetchTimeoutSecs > maxFetchTimeoutSecs {
		errs = append(errs, fmt.Sprintf("images.fetch_timeout_secs must be between 1 and %d", maxFetchTimeoutSecs))
	}

	if c.Images.MaxImages < 0 {
		errs = append(errs, "images.max_images must be >= 0")
	}
	if c.Images.StrictScore < c.Images.SoftScore {
		errs = append(errs, "images.strict_score must be >= images.soft_score")
	}

	switch c.Planner.Provider {
	case "anthropic", "perplexity", "none":
	default:
		errs = append(errs, fmt.Sprintf("planner.provider %q is not supported", c.Planner.Provider))
	}

	if len(errs) > 0 {
		return eris.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

// WeightSum returns the sum of the hybrid score weights.
func (s ScoringConfig) WeightSum() float64 {
	return s.RelevanceWeight + s.AuthorityWeight + s.FreshnessWeight + s.CoverageWeight
}

func (s ScoringConfig) validate() []string {
	var errs []string
	weights := map[string]float64{
		"relevance_weight": s.RelevanceWeight,
		"authority_weight": s.AuthorityWeight,
		"freshness_weight": s.FreshnessWeight,
		"coverage_weight":  s.CoverageWeight,
	}
	for name, w := range weights {
		if w < 0 {
			errs = append(errs, fmt.Sprintf("scoring.%s must be >= 0", name))
		}
	}
	// Allow tolerance for floating-point.
	if sum := s.WeightSum(); math.Abs(sum-1) > 0.01 {
		errs = append(errs, fmt.Sprintf("scoring weights should sum to 1, got %.3f", sum))
	}
	if s.DedupThreshold <= 0 || s.DedupThreshold > 1 {
		errs = append(errs, "scoring.dedup_threshold must be in (0, 1]")
	}
	if s.ContentSignalChars <= 0 {
		errs = append(errs, "scoring.content_signal_chars must be > 0")
	}
	return errs
}
