package insight

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfigFile(t, `
port: 9090
default_provider: anthropic
max_retries: 3
cache:
  enabled: true
  ttl_days: 14
storage:
  backend: redis
  redis:
    addr: localhost:6379
    db: 2
providers:
  anthropic:
    api_key: sk-ant-test-123
    model: claude-sonnet-4-5-20250929
    max_tokens: 800
    temperature: 0.3
  openai:
    api_key: sk-test-456
cost_limits:
  daily_max_usd: 5.0
`)

	config, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if config.Port != 9090 {
		t.Errorf("Expected port 9090, got %d", config.Port)
	}
	if config.DefaultProvider != "anthropic" {
		t.Errorf("Expected anthropic default, got %s", config.DefaultProvider)
	}
	if config.MaxRetries != 3 {
		t.Errorf("Expected 3 retries, got %d", config.MaxRetries)
	}
	if config.Cache.TTLDays != 14 {
		t.Errorf("Expected 14 day TTL, got %d", config.Cache.TTLDays)
	}
	if config.Cache.TTL() != 14*24*time.Hour {
		t.Errorf("Unexpected TTL duration: %v", config.Cache.TTL())
	}
	if config.Storage.Backend != "redis" || config.Storage.Redis.DB != 2 {
		t.Errorf("Unexpected storage config: %+v", config.Storage)
	}
	if config.Providers["anthropic"].Model != "claude-sonnet-4-5-20250929" {
		t.Errorf("Unexpected provider config: %+v", config.Providers["anthropic"])
	}
	// alert_threshold defaults to 80% of the daily max
	if config.CostLimits.AlertThresholdUSD != 4.0 {
		t.Errorf("Expected alert threshold 4.0, got %f", config.CostLimits.AlertThresholdUSD)
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	path := writeConfigFile(t, `
providers:
  openai:
    api_key: sk-test-123
`)

	config, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if config.Port != 8080 {
		t.Errorf("Expected default port 8080, got %d", config.Port)
	}
	if config.MaxRetries != 2 {
		t.Errorf("Expected default 2 retries, got %d", config.MaxRetries)
	}
	if !config.Cache.Enabled {
		t.Error("Cache should default to enabled")
	}
	if config.Cache.TTLDays != 30 {
		t.Errorf("Expected default 30 day TTL, got %d", config.Cache.TTLDays)
	}
	if config.Storage.Backend != "memory" {
		t.Errorf("Expected memory backend default, got %s", config.Storage.Backend)
	}
	if config.DefaultProvider != "openai" {
		t.Errorf("Expected openai default provider, got %s", config.DefaultProvider)
	}
	if config.CostLimits.DailyMaxUSD != 10.0 {
		t.Errorf("Expected default daily max, got %f", config.CostLimits.DailyMaxUSD)
	}
}

func TestLoadConfig_EnvExpansion(t *testing.T) {
	t.Setenv("TEST_INSIGHT_KEY", "sk-from-env-789")

	path := writeConfigFile(t, `
providers:
  openai:
    api_key: ${TEST_INSIGHT_KEY}
`)

	config, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if config.Providers["openai"].APIKey != "sk-from-env-789" {
		t.Errorf("Expected expanded key, got %s", config.Providers["openai"].APIKey)
	}
}

func TestLoadConfig_APIKeyFromEnvFallback(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-fallback-key")

	path := writeConfigFile(t, `
providers:
  openai:
    model: gpt-5-mini
`)

	config, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if config.Providers["openai"].APIKey != "sk-fallback-key" {
		t.Errorf("Expected env fallback key, got %q", config.Providers["openai"].APIKey)
	}
}

func TestValidate_Errors(t *testing.T) {
	testCases := []struct {
		name   string
		config Config
	}{
		{
			name:   "no providers",
			config: Config{},
		},
		{
			name: "unknown backend",
			config: Config{
				Storage:   StorageConfig{Backend: "cassandra"},
				Providers: map[string]ProviderConfig{"openai": {APIKey: "k"}},
			},
		},
		{
			name: "postgres without url",
			config: Config{
				Storage:   StorageConfig{Backend: "postgres"},
				Providers: map[string]ProviderConfig{"openai": {APIKey: "k"}},
			},
		},
		{
			name: "redis without addr",
			config: Config{
				Storage:   StorageConfig{Backend: "redis"},
				Providers: map[string]ProviderConfig{"openai": {APIKey: "k"}},
			},
		},
		{
			name: "default provider not configured",
			config: Config{
				DefaultProvider: "perplexity",
				Providers:       map[string]ProviderConfig{"openai": {APIKey: "k"}},
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.config.Validate(); err == nil {
				t.Error("Expected validation error")
			}
		})
	}
}

func TestProviderConfig_LLMConfig(t *testing.T) {
	pc := ProviderConfig{
		APIKey:         "k",
		Model:          "gpt-5-mini",
		MaxTokens:      600,
		Temperature:    0.2,
		TimeoutSeconds: 45,
	}

	llmCfg := pc.LLMConfig()
	if llmCfg.Timeout != 45*time.Second {
		t.Errorf("Expected 45s timeout, got %v", llmCfg.Timeout)
	}
	if !llmCfg.JSONMode {
		t.Error("JSON mode should default to on")
	}

	off := false
	pc.JSONMode = &off
	if pc.LLMConfig().JSONMode {
		t.Error("Explicit json_mode false should disable JSON mode")
	}
}
