package insight

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/labelwise/insightd/internal/catalog"
	"github.com/labelwise/insightd/internal/llm"
)

// DefaultMaxRetries is the number of LLM attempts per query when the
// config does not set max_retries.
const DefaultMaxRetries = 2

// Config holds the full service configuration
type Config struct {
	Port            int                       `yaml:"port"`
	DefaultProvider string                    `yaml:"default_provider"`
	MaxRetries      int                       `yaml:"max_retries"`
	Cache           CacheConfig               `yaml:"cache"`
	Storage         StorageConfig             `yaml:"storage"`
	Providers       map[string]ProviderConfig `yaml:"providers"`
	Catalog         catalog.Config            `yaml:"catalog"`
	CostLimits      CostLimits                `yaml:"cost_limits"`
}

// CacheConfig controls result caching
type CacheConfig struct {
	Enabled bool `yaml:"enabled"`
	TTLDays int  `yaml:"ttl_days"`
}

// TTL returns the cache freshness window as a duration.
func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLDays) * 24 * time.Hour
}

// StorageConfig selects and configures the storage backend
type StorageConfig struct {
	Backend  string         `yaml:"backend"` // "memory", "postgres" or "redis"
	Postgres PostgresConfig `yaml:"postgres"`
	Redis    RedisConfig    `yaml:"redis"`
}

type PostgresConfig struct {
	URL string `yaml:"url"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// ProviderConfig configures a single LLM backend
type ProviderConfig struct {
	APIKey         string  `yaml:"api_key"`
	Model          string  `yaml:"model"`
	MaxTokens      int     `yaml:"max_tokens"`
	Temperature    float64 `yaml:"temperature"`
	TimeoutSeconds int     `yaml:"timeout_seconds"`
	JSONMode       *bool   `yaml:"json_mode"` // default true
	BaseURL        string  `yaml:"base_url"`
}

// LLMConfig converts the YAML shape into the provider constructor config.
func (p ProviderConfig) LLMConfig() llm.Config {
	jsonMode := p.JSONMode == nil || *p.JSONMode
	var timeout time.Duration
	if p.TimeoutSeconds > 0 {
		timeout = time.Duration(p.TimeoutSeconds) * time.Second
	}
	return llm.Config{
		APIKey:      p.APIKey,
		Model:       p.Model,
		MaxTokens:   p.MaxTokens,
		Temperature: p.Temperature,
		Timeout:     timeout,
		JSONMode:    jsonMode,
		BaseURL:     p.BaseURL,
	}
}

// CostLimits defines spend constraints for the service
type CostLimits struct {
	DailyMaxUSD       float64 `yaml:"daily_max_usd"`
	AlertThresholdUSD float64 `yaml:"alert_threshold_usd"`
	PerQueryMaxTokens int     `yaml:"per_query_max_tokens"`
}

// envKeys maps provider names to the environment variable their API key
// falls back to when the config leaves it empty.
var envKeys = map[string]string{
	"openai":     "OPENAI_API_KEY",
	"anthropic":  "ANTHROPIC_API_KEY",
	"perplexity": "PERPLEXITY_API_KEY",
}

// LoadConfig loads service configuration from a YAML file
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Expand environment variables in the config
	expanded := os.ExpandEnv(string(data))

	config := Config{
		Cache: CacheConfig{Enabled: true},
	}
	if err := yaml.Unmarshal([]byte(expanded), &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &config, nil
}

// Validate checks required fields and fills defaults
func (c *Config) Validate() error {
	var errors []string

	if c.Port <= 0 {
		c.Port = 8080
	}

	if c.MaxRetries <= 0 {
		c.MaxRetries = DefaultMaxRetries
	}

	if c.Cache.TTLDays <= 0 {
		c.Cache.TTLDays = 30
	}

	switch c.Storage.Backend {
	case "":
		c.Storage.Backend = "memory"
	case "memory":
	case "postgres":
		if c.Storage.Postgres.URL == "" {
			errors = append(errors, "storage.postgres.url is required for the postgres backend")
		}
	case "redis":
		if c.Storage.Redis.Addr == "" {
			errors = append(errors, "storage.redis.addr is required for the redis backend")
		}
	default:
		errors = append(errors, fmt.Sprintf("unknown storage backend %q", c.Storage.Backend))
	}

	if len(c.Providers) == 0 {
		errors = append(errors, "at least one provider must be configured")
	}

	// API keys can come from the environment instead of the YAML
	for name, pc := range c.Providers {
		if pc.APIKey == "" {
			if envKey, ok := envKeys[name]; ok {
				pc.APIKey = os.Getenv(envKey)
				c.Providers[name] = pc
			}
		}
	}

	if c.DefaultProvider == "" {
		if _, ok := c.Providers["openai"]; ok {
			c.DefaultProvider = "openai"
		} else {
			for name := range c.Providers {
				c.DefaultProvider = name
				break
			}
		}
	}
	if _, ok := c.Providers[c.DefaultProvider]; !ok && len(c.Providers) > 0 {
		errors = append(errors, fmt.Sprintf("default provider %q is not configured", c.DefaultProvider))
	}

	if c.CostLimits.DailyMaxUSD == 0 {
		c.CostLimits.DailyMaxUSD = 10.0
	}
	if c.CostLimits.AlertThresholdUSD == 0 {
		c.CostLimits.AlertThresholdUSD = c.CostLimits.DailyMaxUSD * 0.8
	}
	if c.CostLimits.PerQueryMaxTokens == 0 {
		c.CostLimits.PerQueryMaxTokens = 4000
	}

	if len(errors) > 0 {
		return fmt.Errorf("%s", strings.Join(errors, "; "))
	}

	return nil
}
