// Package scorer computes the relevance, authority, freshness and coverage
// signals used to rank research sources.
package scorer

import (
	"github.com/sells-group/deep-research/internal/config"
)

// DefaultScoringConfig returns a config.ScoringConfig with the standard
// weights. Weights sum to 1.
func DefaultScoringConfig() config.ScoringConfig {
	return config.ScoringConfig{
		RelevanceWeight: 0.42,
		AuthorityWeight: 0.24,
		FreshnessWeight: 0.20,
		CoverageWeight:  0.14,

		DedupThreshold:     0.88,
		ContentSignalChars: 8000,
	}
}
