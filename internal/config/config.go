package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Cache      CacheConfig      `yaml:"cache" mapstructure:"cache"`
	Research   ResearchConfig   `yaml:"research" mapstructure:"research"`
	Scoring    ScoringConfig    `yaml:"scoring" mapstructure:"scoring"`
	Images     ImageConfig      `yaml:"images" mapstructure:"images"`
	Search     SearchConfig     `yaml:"search" mapstructure:"search"`
	Scrape     ScrapeConfig     `yaml:"scrape" mapstructure:"scrape"`
	Planner    PlannerConfig    `yaml:"planner" mapstructure:"planner"`
	Jina       JinaConfig       `yaml:"jina" mapstructure:"jina"`
	Google     GoogleConfig     `yaml:"google" mapstructure:"google"`
	Firecrawl  FirecrawlConfig  `yaml:"firecrawl" mapstructure:"firecrawl"`
	Anthropic  AnthropicConfig  `yaml:"anthropic" mapstructure:"anthropic"`
	Perplexity PerplexityConfig `yaml:"perplexity" mapstructure:"perplexity"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// StoreConfig configures the persistent bundle store. An empty driver
// disables the second cache tier.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
}

// CacheConfig configures the research cache.
type CacheConfig struct {
	TTLSecs int `yaml:"ttl_secs" mapstructure:"ttl_secs"`
}

// ModeConfig sets the breadth of one research mode.
type ModeConfig struct {
	FollowUpConcurrency int `yaml:"followup_concurrency" mapstructure:"followup_concurrency"`
	MaxSources          int `yaml:"max_sources" mapstructure:"max_sources"`
	SearchK             int `yaml:"search_k" mapstructure:"search_k"`
}

// ResearchConfig configures the orchestrator.
type ResearchConfig struct {
	Quick             ModeConfig `yaml:"quick" mapstructure:"quick"`
	Exhaustive        ModeConfig `yaml:"exhaustive" mapstructure:"exhaustive"`
	PlannerSeeds      int        `yaml:"planner_seeds" mapstructure:"planner_seeds"`
	EnrichConcurrency int        `yaml:"enrich_concurrency" mapstructure:"enrich_concurrency"`
}

// ScoringConfig holds the source ranking weights and thresholds.
type ScoringConfig struct {
	RelevanceWeight    float64 `yaml:"relevance_weight" mapstructure:"relevance_weight"`
	AuthorityWeight    float64 `yaml:"authority_weight" mapstructure:"authority_weight"`
	FreshnessWeight    float64 `yaml:"freshness_weight" mapstructure:"freshness_weight"`
	CoverageWeight     float64 `yaml:"coverage_weight" mapstructure:"coverage_weight"`
	DedupThreshold     float64 `yaml:"dedup_threshold" mapstructure:"dedup_threshold"`
	ContentSignalChars float64 `yaml:"content_signal_chars" mapstructure:"content_signal_chars"`
	AuthorityTablePath string  `yaml:"authority_table_path" mapstructure:"authority_table_path"`
}

// ImageConfig holds image mining and selection parameters. The NoQuery
// thresholds apply when the query has no usable tokens.
type ImageConfig struct {
	MaxImages          int     `yaml:"max_images" mapstructure:"max_images"`
	MinImages          int     `yaml:"min_images" mapstructure:"min_images"`
	CandidatePages     int     `yaml:"candidate_pages" mapstructure:"candidate_pages"`
	FetchConcurrency   int     `yaml:"fetch_concurrency" mapstructure:"fetch_concurrency"`
	FetchTimeoutSecs   int     `yaml:"fetch_timeout_secs" mapstructure:"fetch_timeout_secs"`
	MaxImgTags         int     `yaml:"max_img_tags" mapstructure:"max_img_tags"`
	MaxPerPage         int     `yaml:"max_per_page" mapstructure:"max_per_page"`
	MinDimension       int     `yaml:"min_dimension" mapstructure:"min_dimension"`
	StrictScore        float64 `yaml:"strict_score" mapstructure:"strict_score"`
	StrictScoreNoQuery float64 `yaml:"strict_score_no_query" mapstructure:"strict_score_no_query"`
	SoftScore          float64 `yaml:"soft_score" mapstructure:"soft_score"`
	SoftScoreNoQuery   float64 `yaml:"soft_score_no_query" mapstructure:"soft_score_no_query"`
	ThumbnailBase      string  `yaml:"thumbnail_base" mapstructure:"thumbnail_base"`
}

// SearchConfig configures the web search providers.
type SearchConfig struct {
	Providers   []string `yaml:"providers" mapstructure:"providers"`
	TimeoutSecs int      `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	Retries     int      `yaml:"retries" mapstructure:"retries"`
	WithContent bool     `yaml:"with_content" mapstructure:"with_content"`
}

// ScrapeConfig configures page fetching and enrichment.
type ScrapeConfig struct {
	TimeoutSecs     int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxBodyBytes    int64   `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
	MaxContentChars int     `yaml:"max_content_chars" mapstructure:"max_content_chars"`
	HostRPS         float64 `yaml:"host_rps" mapstructure:"host_rps"`
	HostBurst       int     `yaml:"host_burst" mapstructure:"host_burst"`
	UserAgent       string  `yaml:"user_agent" mapstructure:"user_agent"`
}

// PlannerConfig selects the LLM used for query planning.
type PlannerConfig struct {
	Provider    string `yaml:"provider" mapstructure:"provider"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxTokens   int    `yaml:"max_tokens" mapstructure:"max_tokens"`
	Retries     int    `yaml:"retries" mapstructure:"retries"`
}

// JinaConfig holds Jina AI Reader and Search settings.
type JinaConfig struct {
	Key           string `yaml:"key" mapstructure:"key"`
	BaseURL       string `yaml:"base_url" mapstructure:"base_url"`
	SearchBaseURL string `yaml:"search_base_url" mapstructure:"search_base_url"`
}

// GoogleConfig holds Google Programmable Search settings.
type GoogleConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	CX      string `yaml:"cx" mapstructure:"cx"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// FirecrawlConfig holds Firecrawl API settings (fallback only).
type FirecrawlConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key   string `yaml:"key" mapstructure:"key"`
	Model string `yaml:"model" mapstructure:"model"`
}

// PerplexityConfig holds Perplexity API settings.
type PerplexityConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	Model   string `yaml:"model" mapstructure:"model"`
}

// Mode returns the breadth settings for the named mode. Unknown names get
// the quick settings.
func (c ResearchConfig) Mode(name string) ModeConfig {
	if name == "exhaustive" {
		return c.Exhaustive
	}
	return c.Quick
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("RESEARCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("store.driver", "")
	v.SetDefault("store.max_conns", 4)
	v.SetDefault("cache.ttl_secs", 600)
	v.SetDefault("research.quick.followup_concurrency", 3)
	v.SetDefault("research.quick.max_sources", 16)
	v.SetDefault("research.quick.search_k", 6)
	v.SetDefault("research.exhaustive.followup_concurrency", 4)
	v.SetDefault("research.exhaustive.max_sources", 24)
	v.SetDefault("research.exhaustive.search_k", 8)
	v.SetDefault("research.planner_seeds", 6)
	v.SetDefault("research.enrich_concurrency", 4)
	v.SetDefault("scoring.relevance_weight", 0.42)
	v.SetDefault("scoring.authority_weight", 0.24)
	v.SetDefault("scoring.freshness_weight", 0.20)
	v.SetDefault("scoring.coverage_weight", 0.14)
	v.SetDefault("scoring.dedup_threshold", 0.88)
	v.SetDefault("scoring.content_signal_chars", 8000)
	v.SetDefault("images.max_images", 4)
	v.SetDefault("images.min_images", 3)
	v.SetDefault("images.candidate_pages", 12)
	v.SetDefault("images.fetch_concurrency", 3)
	v.SetDefault("images.fetch_timeout_secs", 7)
	v.SetDefault("images.max_img_tags", 70)
	v.SetDefault("images.max_per_page", 16)
	v.SetDefault("images.min_dimension", 180)
	v.SetDefault("images.strict_score", 0.17)
	v.SetDefault("images.strict_score_no_query", 0.05)
	v.SetDefault("images.soft_score", 0.11)
	v.SetDefault("images.soft_score_no_query", 0.0)
	v.SetDefault("images.thumbnail_base", "https://image.thum.io/get")
	v.SetDefault("search.providers", []string{"jina", "google"})
	v.SetDefault("search.timeout_secs", 10)
	v.SetDefault("search.retries", 1)
	v.SetDefault("search.with_content", false)
	v.SetDefault("scrape.timeout_secs", 10)
	v.SetDefault("scrape.max_body_bytes", 512*1024)
	v.SetDefault("scrape.max_content_chars", 20000)
	v.SetDefault("scrape.host_rps", 2.0)
	v.SetDefault("scrape.host_burst", 2)
	v.SetDefault("scrape.user_agent", "Mozilla/5.0 (compatible; deep-research/1.0)")
	v.SetDefault("planner.provider", "anthropic")
	v.SetDefault("planner.timeout_secs", 30)
	v.SetDefault("planner.max_tokens", 1024)
	v.SetDefault("planner.retries", 1)
	v.SetDefault("jina.base_url", "https://r.jina.ai")
	v.SetDefault("jina.search_base_url", "https://s.jina.ai")
	v.SetDefault("google.base_url", "https://www.googleapis.com/customsearch/v1")
	v.SetDefault("firecrawl.base_url", "https://api.firecrawl.dev/v2")
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("perplexity.base_url", "https://api.perplexity.ai")
	v.SetDefault("perplexity.model", "sonar-pro")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
