package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Services  map[string]ServiceConfig `yaml:"services" mapstructure:"services"`
	Extract   ExtractConfig            `yaml:"extract" mapstructure:"extract"`
	Rank      RankConfig               `yaml:"rank" mapstructure:"rank"`
	Waterfall WaterfallConfig          `yaml:"waterfall" mapstructure:"waterfall"`
	Store     StoreConfig              `yaml:"store" mapstructure:"store"`
	Batch     BatchConfig              `yaml:"batch" mapstructure:"batch"`
	Server    ServerConfig             `yaml:"server" mapstructure:"server"`
	Log       LogConfig                `yaml:"log" mapstructure:"log"`
}

// ServiceConfig configures one external source service.
type ServiceConfig struct {
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`

	// Priority orders the waterfall; lower runs first.
	Priority int `yaml:"priority" mapstructure:"priority"`

	// Keys are credential values in config-file order. KeyOverride, when set,
	// takes precedence over every file-sourced key. KeysSecondary come from
	// the shared team config and rank below Keys.
	KeyOverride   string   `yaml:"key_override" mapstructure:"key_override"`
	Keys          []string `yaml:"keys" mapstructure:"keys"`
	KeysSecondary []string `yaml:"keys_secondary" mapstructure:"keys_secondary"`

	// Weight is the trust factor applied to engagement in scoring.
	Weight float64 `yaml:"weight" mapstructure:"weight"`

	// CooldownSecs is the rate-limit window applied when the service reports
	// a per-minute style limit. Daily quota exhaustion always cools for 24h.
	CooldownSecs int `yaml:"cooldown_secs" mapstructure:"cooldown_secs"`

	// MinIntervalMillis is the compliance delay between successive calls to
	// this service, independent of credential cooldowns.
	MinIntervalMillis int `yaml:"min_interval_millis" mapstructure:"min_interval_millis"`

	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// Cooldown returns the rate-limit window as a duration.
func (s ServiceConfig) Cooldown() time.Duration {
	return time.Duration(s.CooldownSecs) * time.Second
}

// MinInterval returns the compliance delay as a duration.
func (s ServiceConfig) MinInterval() time.Duration {
	return time.Duration(s.MinIntervalMillis) * time.Millisecond
}

// ExtractConfig configures the entity extractor.
type ExtractConfig struct {
	MinNameLength int `yaml:"min_name_length" mapstructure:"min_name_length"`
	YearWindow    int `yaml:"year_window" mapstructure:"year_window"`
	TextWindow    int `yaml:"text_window" mapstructure:"text_window"`
}

// RankConfig configures merging, scoring and tiering.
type RankConfig struct {
	SimilarityThreshold float64 `yaml:"similarity_threshold" mapstructure:"similarity_threshold"`
	EngagementPivot     float64 `yaml:"engagement_pivot" mapstructure:"engagement_pivot"`
	DirectThreshold     float64 `yaml:"direct_threshold" mapstructure:"direct_threshold"`
	IndirectThreshold   float64 `yaml:"indirect_threshold" mapstructure:"indirect_threshold"`
}

// WaterfallConfig configures the discovery orchestrator.
type WaterfallConfig struct {
	QueryTimeoutSecs    int  `yaml:"query_timeout_secs" mapstructure:"query_timeout_secs"`
	RequestDeadlineSecs int  `yaml:"request_deadline_secs" mapstructure:"request_deadline_secs"`
	MaxRetries          int  `yaml:"max_retries" mapstructure:"max_retries"`
	SnippetLimit        int  `yaml:"snippet_limit" mapstructure:"snippet_limit"`
	Concurrent          bool `yaml:"concurrent" mapstructure:"concurrent"`
	MaxConcurrent       int  `yaml:"max_concurrent" mapstructure:"max_concurrent"`
}

// QueryTimeout returns the per-connector-call timeout.
func (w WaterfallConfig) QueryTimeout() time.Duration {
	return time.Duration(w.QueryTimeoutSecs) * time.Second
}

// RequestDeadline returns the overall request deadline.
func (w WaterfallConfig) RequestDeadline() time.Duration {
	return time.Duration(w.RequestDeadlineSecs) * time.Second
}

// StoreConfig configures the audit record backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// BatchConfig configures batch discovery.
type BatchConfig struct {
	MaxConcurrent int `yaml:"max_concurrent" mapstructure:"max_concurrent"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
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
	v.SetEnvPrefix("MARKETSCOUT")
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
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("batch.max_concurrent", 4)
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "market-scout.db")

	v.SetDefault("extract.min_name_length", 4)
	v.SetDefault("extract.year_window", 6)
	v.SetDefault("extract.text_window", 80)

	v.SetDefault("rank.similarity_threshold", 0.82)
	v.SetDefault("rank.engagement_pivot", 50.0)
	v.SetDefault("rank.direct_threshold", 1.5)
	v.SetDefault("rank.indirect_threshold", 0.7)

	v.SetDefault("waterfall.query_timeout_secs", 15)
	v.SetDefault("waterfall.request_deadline_secs", 120)
	v.SetDefault("waterfall.max_retries", 2)
	v.SetDefault("waterfall.snippet_limit", 20)
	v.SetDefault("waterfall.concurrent", false)
	v.SetDefault("waterfall.max_concurrent", 3)

	// Source weights favor video and microblog signal over generic web search,
	// mirroring observed signal strength per channel.
	for name, d := range map[string]struct {
		priority int
		weight   float64
		cooldown int
		interval int
		baseURL  string
	}{
		"news":      {1, 0.9, 60, 500, "https://newsapi.org/v2"},
		"video":     {2, 1.0, 86400, 1000, "https://www.googleapis.com/youtube/v3"},
		"microblog": {3, 1.0, 900, 1100, "https://api.twitter.com/2"},
		"forum":     {4, 0.8, 60, 1000, "https://www.reddit.com"},
		"web":       {5, 0.6, 3600, 1200, "https://serpapi.com"},
		"knowledge": {6, 0.7, 0, 250, "https://en.wikipedia.org/w/api.php"},
	} {
		v.SetDefault("services."+name+".enabled", true)
		v.SetDefault("services."+name+".priority", d.priority)
		v.SetDefault("services."+name+".weight", d.weight)
		v.SetDefault("services."+name+".cooldown_secs", d.cooldown)
		v.SetDefault("services."+name+".min_interval_millis", d.interval)
		v.SetDefault("services."+name+".base_url", d.baseURL)
	}
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
