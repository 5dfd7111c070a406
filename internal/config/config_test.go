package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })
	return dir
}

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "", cfg.Store.Driver)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 600, cfg.Cache.TTLSecs)
	assert.Equal(t, ModeConfig{FollowUpConcurrency: 3, MaxSources: 16, SearchK: 6}, cfg.Research.Quick)
	assert.Equal(t, ModeConfig{FollowUpConcurrency: 4, MaxSources: 24, SearchK: 8}, cfg.Research.Exhaustive)
	assert.Equal(t, 6, cfg.Research.PlannerSeeds)
	assert.InDelta(t, 0.42, cfg.Scoring.RelevanceWeight, 0.001)
	assert.InDelta(t, 0.24, cfg.Scoring.AuthorityWeight, 0.001)
	assert.InDelta(t, 0.20, cfg.Scoring.FreshnessWeight, 0.001)
	assert.InDelta(t, 0.14, cfg.Scoring.CoverageWeight, 0.001)
	assert.InDelta(t, 0.88, cfg.Scoring.DedupThreshold, 0.001)
	assert.Equal(t, 4, cfg.Images.MaxImages)
	assert.Equal(t, 12, cfg.Images.CandidatePages)
	assert.Equal(t, 7, cfg.Images.FetchTimeoutSecs)
	assert.Equal(t, 10, cfg.Scrape.TimeoutSecs)
	assert.Equal(t, "https://image.thum.io/get", cfg.Images.ThumbnailBase)
	assert.Equal(t, []string{"jina", "google"}, cfg.Search.Providers)
	assert.Equal(t, 10, cfg.Search.TimeoutSecs)
	assert.Equal(t, "anthropic", cfg.Planner.Provider)
	assert.Equal(t, 30, cfg.Planner.TimeoutSecs)
	assert.Equal(t, "https://r.jina.ai", cfg.Jina.BaseURL)
	assert.Equal(t, "https://s.jina.ai", cfg.Jina.SearchBaseURL)
	assert.Equal(t, "https://api.firecrawl.dev/v2", cfg.Firecrawl.BaseURL)
	assert.Equal(t, "sonar-pro", cfg.Perplexity.Model)
	assert.Equal(t, "claude-haiku-4-5-20251001", cfg.Anthropic.Model)

	assert.NoError(t, cfg.Validate("research"))
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
store:
  driver: sqlite
  database_url: research.db
log:
  level: debug
  format: console
server:
  port: 9090
research:
  quick:
    max_sources: 10
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 10, cfg.Research.Quick.MaxSources)
	// Defaults still apply for unset values
	assert.Equal(t, 3, cfg.Research.Quick.FollowUpConcurrency)
	assert.Equal(t, 24, cfg.Research.Exhaustive.MaxSources)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
store:
  driver: sqlite
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("RESEARCH_STORE_DRIVER", "postgres")
	t.Setenv("RESEARCH_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	// Env overrides file
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	chdirTemp(t)

	t.Setenv("RESEARCH_SERVER_PORT", "3000")
	t.Setenv("RESEARCH_PLANNER_PROVIDER", "perplexity")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, "perplexity", cfg.Planner.Provider)
}

func TestLoadMalformedFile(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("log: [unclosed"), 0644))

	_, err := Load()
	assert.Error(t, err)
}

func TestResearchConfigMode(t *testing.T) {
	rc := ResearchConfig{
		Quick:      ModeConfig{MaxSources: 16},
		Exhaustive: ModeConfig{MaxSources: 24},
	}
	assert.Equal(t, 24, rc.Mode("exhaustive").MaxSources)
	assert.Equal(t, 16, rc.Mode("quick").MaxSources)
	assert.Equal(t, 16, rc.Mode("bogus").MaxSources)
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}

// validDefaults returns a Config with all defaults populated for validation tests.
func validDefaults() *Config {
	cfg := &Config{}
	cfg.Server.Port = 8080
	cfg.Cache.TTLSecs = 600
	cfg.Research.Quick = ModeConfig{FollowUpConcurrency: 3, MaxSources: 16, SearchK: 6}
	cfg.Research.Exhaustive = ModeConfig{FollowUpConcurrency: 4, MaxSources: 24, SearchK: 8}
	cfg.Scoring = ScoringConfig{
		RelevanceWeight:    0.42,
		AuthorityWeight:    0.24,
		FreshnessWeight:    0.20,
		CoverageWeight:     0.14,
		DedupThreshold:     0.88,
		ContentSignalChars: 8000,
	}
	cfg.Scrape.TimeoutSecs = 10
	cfg.Images.FetchTimeoutSecs = 7
	cfg.Images.MaxImages = 4
	cfg.Images.StrictScore = 0.17
	cfg.Images.SoftScore = 0.11
	cfg.Planner.Provider = "anthropic"
	return cfg
}

func TestValidateResearch_Defaults(t *testing.T) {
	assert.NoError(t, validDefaults().Validate("research"))
}

func TestValidateServe_InvalidPort(t *testing.T) {
	cfg := validDefaults()
	cfg.Server.Port = 0

	err := cfg.Validate("serve")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "server.port must be > 0")
}

func TestValidateCache_RequiresDriver(t *testing.T) {
	cfg := validDefaults()

	err := cfg.Validate("cache")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "store.driver is required")

	cfg.Store.Driver = "sqlite"
	assert.NoError(t, cfg.Validate("cache"))
}

func TestValidatePostgresNeedsURL(t *testing.T) {
	cfg := validDefaults()
	cfg.Store.Driver = "postgres"

	err := cfg.Validate("research")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "store.database_url is required")

	cfg.Store.DatabaseURL = "postgres://localhost/research"
	assert.NoError(t, cfg.Validate("research"))
}

func TestValidateUnknownMode(t *testing.T) {
	cfg := validDefaults()
	err := cfg.Validate("unknown")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}

func TestValidateScoringWeights(t *testing.T) {
	cfg := validDefaults()

	cfg.Scoring.RelevanceWeight = 0.6
	err := cfg.Validate("research")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "scoring weights should sum to 1")

	cfg.Scoring.RelevanceWeight = -0.1
	err = cfg.Validate("research")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "scoring.relevance_weight must be >= 0")

	// Within tolerance.
	cfg.Scoring.RelevanceWeight = 0.425
	assert.NoError(t, cfg.Validate("research"))
}

func TestValidateConcurrencyBounds(t *testing.T) {
	cfg := validDefaults()

	cfg.Research.Quick.FollowUpConcurrency = 0
	err := cfg.Validate("research")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "research.quick.followup_concurrency must be between 1 and 16")

	cfg.Research.Quick.FollowUpConcurrency = 17
	assert.Error(t, cfg.Validate("research"))

	cfg.Research.Quick.FollowUpConcurrency = 16
	assert.NoError(t, cfg.Validate("research"))
}

func TestValidatePlannerProvider(t *testing.T) {
	cfg := validDefaults()
	cfg.Planner.Provider = "openai"

	err := cfg.Validate("research")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), `planner.provider "openai" is not supported`)
}

func TestValidateFetchTimeouts(t *testing.T) {
	tests := []struct {
		name    string
		scrape  int
		images  int
		wantErr string
	}{
		{name: "defaults", scrape: 10, images: 7},
		{name: "scrape_too_slow", scrape: 15, images: 7, wantErr: "scrape.timeout_secs must be between 1 and 10"},
		{name: "scrape_zero", scrape: 0, images: 7, wantErr: "scrape.timeout_secs must be between 1 and 10"},
		{name: "images_too_slow", scrape: 10, images: 11, wantErr: "images.fetch_timeout_secs must be between 1 and 10"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validDefaults()
			cfg.Scrape.TimeoutSecs = tt.scrape
			cfg.Images.FetchTimeoutSecs = tt.images

			err := cfg.Validate("research")
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
