// Package insight orchestrates LLM-backed product insights: prompt lookup,
// cache-aside storage, provider dispatch with retry, and schema validation.
package insight

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/labelwise/insightd/internal/llm"
	"github.com/labelwise/insightd/internal/schema"
	"github.com/labelwise/insightd/internal/store"
	"github.com/labelwise/insightd/pkg/telemetry"
)

// ErrPromptNotFound is returned when a query type has no active prompt.
var ErrPromptNotFound = errors.New("no active prompt for query type")

// ErrBudgetExceeded is returned when the daily cost limit has been reached.
// Cached results are still served; only new provider calls are refused.
var ErrBudgetExceeded = errors.New("daily cost limit exceeded")

// retryInstruction is appended to the prompt on retry attempts after a
// parsing or validation failure.
const retryInstruction = "\n\nIMPORTANT: Your previous response had parsing errors. " +
	"You MUST respond with ONLY valid JSON. No markdown, no code blocks, " +
	"no explanations. Start with { and end with }."

// Options carries per-request overrides for GetInsight.
type Options struct {
	Provider     string // defaults to the configured default provider
	ForceRefresh bool   // skip the cache check
	MaxRetries   int    // defaults to the configured max_retries
}

// Insight is the result envelope returned to callers.
type Insight struct {
	Content map[string]any     `json:"content"`
	Cached  bool               `json:"cached"`
	Record  *store.QueryResult `json:"record,omitempty"`
}

// CacheStats summarizes the cached result population.
type CacheStats struct {
	TotalCached  int  `json:"total_cached"`
	Fresh        int  `json:"fresh"`
	Stale        int  `json:"stale"`
	Old          int  `json:"old"`
	CacheEnabled bool `json:"cache_enabled"`
	TTLDays      int  `json:"ttl_days"`
}

// Service coordinates prompts, cache and providers for insight requests.
type Service struct {
	config *Config
	store  store.Store
	costs  *telemetry.CostTracker
	logger zerolog.Logger

	mu        sync.Mutex
	providers map[string]llm.Provider

	group singleflight.Group
}

// NewService creates the orchestrator. Providers are constructed lazily on
// first use so a misconfigured provider only fails requests that select it.
func NewService(cfg *Config, st store.Store, costs *telemetry.CostTracker, logger zerolog.Logger) *Service {
	logger.Info().
		Str("default_provider", cfg.DefaultProvider).
		Bool("cache_enabled", cfg.Cache.Enabled).
		Msg("Insight service initialized")

	return &Service{
		config:    cfg,
		store:     st,
		costs:     costs,
		logger:    logger,
		providers: make(map[string]llm.Provider),
	}
}

// GetInsight returns the structured insight for a product and query type,
// from cache when a fresh result exists, otherwise by querying the provider.
// Retry exhaustion yields a canonical error payload, not an error: callers
// always get a content object once a prompt and provider resolve.
func (s *Service) GetInsight(ctx context.Context, product *store.Product, queryType string, opts Options) (*Insight, error) {
	providerName := opts.Provider
	if providerName == "" {
		providerName = s.config.DefaultProvider
	}
	maxRetries := opts.MaxRetries
	if maxRetries <= 0 {
		maxRetries = s.config.MaxRetries
	}
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}

	prompts, err := s.store.FindActivePrompts(ctx, queryType)
	if err != nil {
		return nil, fmt.Errorf("find prompts: %w", err)
	}
	if len(prompts) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrPromptNotFound, queryType)
	}
	prompt := prompts[0]

	if !opts.ForceRefresh && s.config.Cache.Enabled {
		cached, err := s.store.FindResult(ctx, product.UPCCode, prompt.Name, providerName)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("check cache: %w", err)
		}
		if cached != nil && cached.Fresh(s.config.Cache.TTL()) {
			s.logger.Info().
				Str("upc", product.UPCCode).
				Str("query_type", queryType).
				Str("provider", providerName).
				Msg("Cache hit")
			return &Insight{Content: cached.Result, Cached: true, Record: cached}, nil
		}
	}

	if s.costs != nil && s.costs.OverBudget() {
		s.logger.Warn().
			Str("upc", product.UPCCode).
			Str("query_type", queryType).
			Msg("Refusing query, daily cost limit reached")
		return nil, ErrBudgetExceeded
	}

	s.logger.Info().
		Str("upc", product.UPCCode).
		Str("query_type", queryType).
		Str("provider", providerName).
		Msg("Cache miss, querying LLM")

	rendered, err := renderPrompt(prompt.Template, product)
	if err != nil {
		return nil, err
	}

	// Collapse concurrent identical requests into one provider call.
	key := product.UPCCode + "\x00" + prompt.Name + "\x00" + providerName
	value, err, _ := s.group.Do(key, func() (any, error) {
		provider, err := s.getProvider(providerName)
		if err != nil {
			return nil, err
		}

		content, metadata, attempts := s.queryWithRetry(ctx, provider, rendered, queryType, maxRetries)

		strategy, _ := metadata["parse_strategy"].(string)
		record := &store.QueryResult{
			ProductUPC:    product.UPCCode,
			PromptName:    prompt.Name,
			Provider:      providerName,
			QueryType:     queryType,
			QueryInput:    rendered,
			Result:        content,
			SchemaVersion: prompt.SchemaVersion,
			ParseAttempts: attempts,
			ParseStrategy: strategy,
			Metadata:      metadata,
		}
		if err := s.store.UpsertResult(ctx, record); err != nil {
			return nil, fmt.Errorf("store result: %w", err)
		}

		s.logger.Info().
			Str("upc", product.UPCCode).
			Str("prompt", prompt.Name).
			Str("provider", providerName).
			Int("attempts", attempts).
			Msg("Stored insight result")
		return record, nil
	})
	if err != nil {
		return nil, err
	}

	record := value.(*store.QueryResult)
	return &Insight{Content: record.Result, Cached: false, Record: record}, nil
}

// queryWithRetry runs the provider call up to maxRetries times, validating
// each response against the query type's schema. Parsing and validation
// failures consume attempts; authentication failures stop immediately since
// repeating them cannot succeed. Exhaustion returns the canonical error
// payload instead of failing.
func (s *Service) queryWithRetry(ctx context.Context, provider llm.Provider, prompt, queryType string, maxRetries int) (map[string]any, map[string]any, int) {
	responseSchema := schema.Get(queryType)
	opts := s.queryOptions(provider.Name())
	var lastErr error

	attempt := 0
	for attempt = 1; attempt <= maxRetries; attempt++ {
		input := prompt
		if attempt > 1 {
			input = prompt + retryInstruction
		}

		result, err := provider.Query(ctx, input, opts)
		if err != nil {
			lastErr = err
			s.logger.Warn().
				Err(err).
				Int("attempt", attempt).
				Int("max_retries", maxRetries).
				Str("provider", provider.Name()).
				Msg("LLM query attempt failed")
			if !llm.IsRetryable(err) {
				break
			}
			continue
		}

		s.recordCost(provider.Name(), result.Metadata)

		content, ok := result.Content.(map[string]any)
		if !ok {
			lastErr = &llm.JSONParseError{Message: fmt.Sprintf("response content is %T, not an object", result.Content)}
			continue
		}

		if responseSchema != nil {
			validated, err := schema.Validate(content, responseSchema)
			if err != nil {
				lastErr = err
				s.logger.Warn().
					Err(err).
					Int("attempt", attempt).
					Str("query_type", queryType).
					Msg("Schema validation failed")
				continue
			}
			content = validated
		}

		s.logger.Debug().Int("attempt", attempt).Msg("LLM query succeeded")
		return content, result.Metadata, attempt
	}
	if attempt > maxRetries {
		attempt = maxRetries
	}

	s.logger.Error().
		Err(lastErr).
		Int("attempts", attempt).
		Str("query_type", queryType).
		Msg("All query attempts failed")

	content := llm.ErrorContent(lastErr.Error(), "")
	metadata := map[string]any{
		"error":    lastErr.Error(),
		"attempts": attempt,
	}
	return content, metadata, attempt
}

// queryOptions caps the response size at cost_limits.per_query_max_tokens
// when the provider's own configured maximum is absent or larger.
func (s *Service) queryOptions(providerName string) llm.QueryOptions {
	opts := llm.DefaultQueryOptions()
	limit := s.config.CostLimits.PerQueryMaxTokens
	if limit <= 0 {
		return opts
	}
	configured := s.config.Providers[providerName].MaxTokens
	if configured == 0 || configured > limit {
		opts.MaxTokens = limit
	}
	return opts
}

// recordCost feeds token usage from provider metadata into the cost tracker.
func (s *Service) recordCost(providerName string, metadata map[string]any) {
	if s.costs == nil || metadata == nil {
		return
	}
	model, _ := metadata["model"].(string)
	inputTokens, _ := metadata["prompt_tokens"].(int)
	outputTokens, _ := metadata["completion_tokens"].(int)
	if inputTokens == 0 && outputTokens == 0 {
		return
	}
	s.costs.Record(providerName, model, inputTokens, outputTokens)
}

// Invalidate marks cached results for a product as stale. Empty queryType
// or provider matches everything.
func (s *Service) Invalidate(ctx context.Context, product *store.Product, queryType, provider string) (int, error) {
	count, err := s.store.MarkStale(ctx, product.UPCCode, queryType, provider)
	if err != nil {
		return 0, fmt.Errorf("invalidate cache: %w", err)
	}
	s.logger.Info().
		Str("upc", product.UPCCode).
		Str("query_type", queryType).
		Str("provider", provider).
		Int("count", count).
		Msg("Invalidated cached results")
	return count, nil
}

// Stats reports cache population counts, globally or for one product.
func (s *Service) Stats(ctx context.Context, product *store.Product) (*CacheStats, error) {
	upc := ""
	if product != nil {
		upc = product.UPCCode
	}
	results, err := s.store.ListResults(ctx, upc)
	if err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}

	stats := &CacheStats{
		TotalCached:  len(results),
		CacheEnabled: s.config.Cache.Enabled,
		TTLDays:      s.config.Cache.TTLDays,
	}
	ttl := s.config.Cache.TTL()
	for i := range results {
		r := &results[i]
		if r.IsStale {
			stats.Stale++
		} else {
			stats.Fresh++
		}
		if !r.Fresh(ttl) && !r.IsStale {
			stats.Old++
		}
	}
	return stats, nil
}

// ListProviders returns the configured provider names, sorted.
func (s *Service) ListProviders() []string {
	names := make([]string, 0, len(s.config.Providers))
	for name := range s.config.Providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ValidateProvider reports whether a provider's credentials round-trip.
func (s *Service) ValidateProvider(ctx context.Context, name string) bool {
	provider, err := s.getProvider(name)
	if err != nil {
		return false
	}
	return provider.ValidateCredentials(ctx)
}

// RegisterProvider installs a pre-built provider under a name, bypassing
// lazy construction. Used to plug in custom or test implementations.
func (s *Service) RegisterProvider(name string, provider llm.Provider) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.providers[name] = provider
	if _, ok := s.config.Providers[name]; !ok {
		if s.config.Providers == nil {
			s.config.Providers = make(map[string]ProviderConfig)
		}
		s.config.Providers[name] = ProviderConfig{}
	}
}

// getProvider returns the cached provider instance, constructing it on
// first use.
func (s *Service) getProvider(name string) (llm.Provider, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if provider, ok := s.providers[name]; ok {
		return provider, nil
	}

	cfg, ok := s.config.Providers[name]
	if !ok {
		return nil, fmt.Errorf("unknown provider %q, available: %v", name, s.ListProviders())
	}

	var (
		provider llm.Provider
		err      error
	)
	switch name {
	case "openai":
		provider, err = llm.NewOpenAIProvider(cfg.LLMConfig(), s.logger)
	case "anthropic":
		provider, err = llm.NewAnthropicProvider(cfg.LLMConfig(), s.logger)
	case "perplexity":
		provider, err = llm.NewPerplexityProvider(cfg.LLMConfig(), s.logger)
	case "ollama":
		provider, err = llm.NewOllamaProvider(cfg.LLMConfig(), s.logger)
	default:
		return nil, fmt.Errorf("no implementation for provider %q", name)
	}
	if err != nil {
		return nil, fmt.Errorf("create provider %s: %w", name, err)
	}

	s.providers[name] = provider
	return provider, nil
}
