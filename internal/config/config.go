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
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Generation GenerationConfig `yaml:"generation" mapstructure:"generation"`
	Anthropic  AnthropicConfig  `yaml:"anthropic" mapstructure:"anthropic"`
	Perplexity PerplexityConfig `yaml:"perplexity" mapstructure:"perplexity"`
	Jina       JinaConfig       `yaml:"jina" mapstructure:"jina"`
	Apollo     ApolloConfig     `yaml:"apollo" mapstructure:"apollo"`
	Google     GoogleConfig     `yaml:"google" mapstructure:"google"`
	Enrich     EnrichConfig     `yaml:"enrich" mapstructure:"enrich"`
	Scoring    ScoringConfig    `yaml:"scoring" mapstructure:"scoring"`
	Credits    CreditsConfig    `yaml:"credits" mapstructure:"credits"`
	Salesforce SalesforceConfig `yaml:"salesforce" mapstructure:"salesforce"`
	Notion     NotionConfig     `yaml:"notion" mapstructure:"notion"`
	Arkesel    ArkeselConfig    `yaml:"arkesel" mapstructure:"arkesel"`
	Webhook    WebhookConfig    `yaml:"webhook" mapstructure:"webhook"`
	Outreach   OutreachConfig   `yaml:"outreach" mapstructure:"outreach"`
	Pricing    PricingConfig    `yaml:"pricing" mapstructure:"pricing"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// GenerationConfig controls the mining loop and the generation backend.
type GenerationConfig struct {
	Backend         string      `yaml:"backend" mapstructure:"backend"` // "perplexity" or "anthropic"
	BatchSize       int         `yaml:"batch_size" mapstructure:"batch_size"`
	MaxBatches      int         `yaml:"max_batches" mapstructure:"max_batches"`
	ExcludeCap      int         `yaml:"exclude_cap" mapstructure:"exclude_cap"`
	MinBalance      int         `yaml:"min_balance" mapstructure:"min_balance"`
	EmptyBatchLimit int         `yaml:"empty_batch_limit" mapstructure:"empty_batch_limit"`
	PacingMs        int         `yaml:"pacing_ms" mapstructure:"pacing_ms"`
	EmptyBackoffMs  int         `yaml:"empty_backoff_ms" mapstructure:"empty_backoff_ms"`
	Temperature     float64     `yaml:"temperature" mapstructure:"temperature"`
	Retry           RetryConfig `yaml:"retry" mapstructure:"retry"`
}

// RetryConfig configures retry/backoff for the generation backend.
type RetryConfig struct {
	MaxAttempts      int     `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoffMs int     `yaml:"initial_backoff_ms" mapstructure:"initial_backoff_ms"`
	MaxBackoffMs     int     `yaml:"max_backoff_ms" mapstructure:"max_backoff_ms"`
	Multiplier       float64 `yaml:"multiplier" mapstructure:"multiplier"`
	JitterFraction   float64 `yaml:"jitter_fraction" mapstructure:"jitter_fraction"`
	CooldownSecs     int     `yaml:"cooldown_secs" mapstructure:"cooldown_secs"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key       string `yaml:"key" mapstructure:"key"`
	Model     string `yaml:"model" mapstructure:"model"`
	MaxTokens int64  `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// PerplexityConfig holds Perplexity API settings.
type PerplexityConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	Model   string `yaml:"model" mapstructure:"model"`
}

// JinaConfig holds Jina AI search and reader settings.
type JinaConfig struct {
	Key           string `yaml:"key" mapstructure:"key"`
	BaseURL       string `yaml:"base_url" mapstructure:"base_url"`
	SearchBaseURL string `yaml:"search_base_url" mapstructure:"search_base_url"`
	MaxResults    int    `yaml:"max_results" mapstructure:"max_results"`
}

// ApolloConfig holds Apollo.io enrichment settings.
type ApolloConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// GoogleConfig holds Google Places settings.
type GoogleConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// EnrichConfig configures per-provider enrichment pacing.
type EnrichConfig struct {
	RatePerSec  float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// ScoringConfig points at an optional yaml rules file.
type ScoringConfig struct {
	RulesFile string `yaml:"rules_file" mapstructure:"rules_file"`
}

// CreditsConfig holds signup and plan credit amounts.
type CreditsConfig struct {
	SignupBonus       int `yaml:"signup_bonus" mapstructure:"signup_bonus"`
	ProCredits        int `yaml:"pro_credits" mapstructure:"pro_credits"`
	EnterpriseCredits int `yaml:"enterprise_credits" mapstructure:"enterprise_credits"`
}

// SalesforceConfig holds Salesforce JWT auth settings.
type SalesforceConfig struct {
	ClientID   string  `yaml:"client_id" mapstructure:"client_id"`
	Username   string  `yaml:"username" mapstructure:"username"`
	KeyPath    string  `yaml:"key_path" mapstructure:"key_path"`
	LoginURL   string  `yaml:"login_url" mapstructure:"login_url"`
	RatePerSec float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
}

// NotionConfig holds Notion API credentials and the lead database ID.
type NotionConfig struct {
	Token  string `yaml:"token" mapstructure:"token"`
	LeadDB string `yaml:"lead_db" mapstructure:"lead_db"`
}

// ArkeselConfig holds SMS gateway settings.
type ArkeselConfig struct {
	Key        string  `yaml:"key" mapstructure:"key"`
	BaseURL    string  `yaml:"base_url" mapstructure:"base_url"`
	SenderID   string  `yaml:"sender_id" mapstructure:"sender_id"`
	RatePerSec float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
}

// WebhookConfig configures lead status-change notifications.
type WebhookConfig struct {
	URL         string `yaml:"url" mapstructure:"url"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	// CostThresholdUSD alerts when one run's LLM spend exceeds it. Zero disables.
	CostThresholdUSD float64 `yaml:"cost_threshold_usd" mapstructure:"cost_threshold_usd"`
}

// OutreachConfig holds cold-outreach composer settings.
type OutreachConfig struct {
	BrandVoice  string `yaml:"brand_voice" mapstructure:"brand_voice"`
	ProductName string `yaml:"product_name" mapstructure:"product_name"`
}

// PricingConfig holds per-model token pricing for cost attribution.
type PricingConfig struct {
	Anthropic  map[string]ModelPricing `yaml:"anthropic" mapstructure:"anthropic"`
	Perplexity PerplexityPricing       `yaml:"perplexity" mapstructure:"perplexity"`
}

// ModelPricing holds per-model token pricing (USD per million tokens).
type ModelPricing struct {
	Input  float64 `yaml:"input" mapstructure:"input"`
	Output float64 `yaml:"output" mapstructure:"output"`
}

// PerplexityPricing holds Perplexity pricing.
type PerplexityPricing struct {
	PerQuery float64 `yaml:"per_query" mapstructure:"per_query"`
	PerMTok  float64 `yaml:"per_mtok" mapstructure:"per_mtok"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("LEADGENIUS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

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

func setDefaults(v *viper.Viper) {
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "leadgenius.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})

	v.SetDefault("generation.backend", "perplexity")
	v.SetDefault("generation.batch_size", 5)
	v.SetDefault("generation.max_batches", 100)
	v.SetDefault("generation.exclude_cap", 50)
	v.SetDefault("generation.min_balance", 1)
	v.SetDefault("generation.empty_batch_limit", 3)
	v.SetDefault("generation.pacing_ms", 1000)
	v.SetDefault("generation.empty_backoff_ms", 2000)
	v.SetDefault("generation.temperature", 0.7)
	v.SetDefault("generation.retry.max_attempts", 4)
	v.SetDefault("generation.retry.initial_backoff_ms", 1000)
	v.SetDefault("generation.retry.max_backoff_ms", 8000)
	v.SetDefault("generation.retry.multiplier", 2.0)
	v.SetDefault("generation.retry.jitter_fraction", 0.25)
	v.SetDefault("generation.retry.cooldown_secs", 65)

	v.SetDefault("anthropic.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("anthropic.max_tokens", 4096)
	v.SetDefault("perplexity.base_url", "https://api.perplexity.ai")
	v.SetDefault("perplexity.model", "sonar-pro")
	v.SetDefault("jina.base_url", "https://r.jina.ai")
	v.SetDefault("jina.search_base_url", "https://s.jina.ai")
	v.SetDefault("jina.max_results", 8)
	v.SetDefault("apollo.base_url", "https://api.apollo.io/v1")
	v.SetDefault("google.base_url", "https://places.googleapis.com/v1")
	v.SetDefault("enrich.rate_per_sec", 5.0)
	v.SetDefault("enrich.timeout_secs", 15)

	v.SetDefault("credits.signup_bonus", 50)
	v.SetDefault("credits.pro_credits", 1000)
	v.SetDefault("credits.enterprise_credits", 5000)

	v.SetDefault("salesforce.login_url", "https://login.salesforce.com")
	v.SetDefault("salesforce.rate_per_sec", 5.0)
	v.SetDefault("arkesel.base_url", "https://sms.arkesel.com/api/v2")
	v.SetDefault("arkesel.sender_id", "LeadGenius")
	v.SetDefault("arkesel.rate_per_sec", 2.0)
	v.SetDefault("webhook.timeout_secs", 10)
	v.SetDefault("outreach.product_name", "LeadGenius")

	v.SetDefault("pricing.perplexity.per_query", 0.005)
	v.SetDefault("pricing.perplexity.per_mtok", 3.0)
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
