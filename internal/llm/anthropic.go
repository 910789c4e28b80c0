package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rs/zerolog"

	"github.com/labelwise/insightd/pkg/pricing"
)

const anthropicSystemPrompt = "You are a helpful assistant that provides accurate, concise information about products. When asked for JSON, respond with valid JSON only."

// AnthropicProvider implements the Provider interface for Anthropic's Claude API
type AnthropicProvider struct {
	client      anthropic.Client
	model       string
	maxTokens   int
	temperature float64
	jsonMode    bool
	pricing     pricing.Table
	logger      zerolog.Logger
}

// NewAnthropicProvider creates a new Anthropic provider
func NewAnthropicProvider(cfg Config, logger zerolog.Logger) (*AnthropicProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("anthropic API key is required")
	}

	if cfg.Model == "" {
		cfg.Model = string(anthropic.ModelClaudeSonnet4_5_20250929)
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 500
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = 0.7
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	client := anthropic.NewClient(
		option.WithAPIKey(cfg.APIKey),
		option.WithRequestTimeout(cfg.Timeout),
	)

	return &AnthropicProvider{
		client:      client,
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		jsonMode:    cfg.JSONMode,
		pricing:     pricing.Anthropic,
		logger:      logger,
	}, nil
}

// Name returns the provider identifier
func (p *AnthropicProvider) Name() string {
	return "anthropic"
}

// Query sends a prompt to Claude and returns the response.
// The Anthropic API has no machine-enforced JSON mode, so a JSONMode request
// only tightens the extraction strictness, not the generation itself.
func (p *AnthropicProvider) Query(ctx context.Context, prompt string, opts QueryOptions) (*Result, error) {
	model := p.model
	if opts.Model != "" {
		model = opts.Model
	}
	maxTokens := p.maxTokens
	if opts.MaxTokens > 0 {
		maxTokens = opts.MaxTokens
	}
	temperature := p.temperature
	if opts.Temperature >= 0 {
		temperature = opts.Temperature
	}

	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(model),
		MaxTokens:   int64(maxTokens),
		Temperature: anthropic.Float(temperature),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
		System: []anthropic.TextBlockParam{
			{Text: anthropicSystemPrompt, Type: "text"},
		},
	}

	p.logger.Debug().
		Str("model", model).
		Int("max_tokens", maxTokens).
		Msg("Querying Anthropic")

	message, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return nil, p.mapError(err)
	}

	if len(message.Content) == 0 {
		return nil, NewProviderError(p.Name(), ErrInvalidResponse, "empty response from Claude", nil)
	}

	var responseText strings.Builder
	for _, block := range message.Content {
		if block.Type == "text" {
			responseText.WriteString(block.Text)
		}
	}
	raw := responseText.String()

	promptTokens := int(message.Usage.InputTokens)
	completionTokens := int(message.Usage.OutputTokens)
	cost := p.pricing.Get(model).CalculateCost(promptTokens, completionTokens)

	metadata := map[string]any{
		"model":             string(message.Model),
		"tokens_used":       promptTokens + completionTokens,
		"prompt_tokens":     promptTokens,
		"completion_tokens": completionTokens,
		"cost_estimate":     cost,
		"finish_reason":     string(message.StopReason),
		"provider_specific": map[string]any{
			"message_id": message.ID,
		},
	}

	content := any(raw)
	if opts.ParseJSON {
		parsed, strategy, perr := ExtractJSON(raw, false)
		if perr != nil {
			return nil, NewProviderError(p.Name(), ErrInvalidResponse, "failed to parse JSON response", perr)
		}
		content = parsed
		metadata["parse_strategy"] = strategy
	}

	p.logger.Info().
		Str("model", string(message.Model)).
		Int("prompt_tokens", promptTokens).
		Int("completion_tokens", completionTokens).
		Float64("cost_usd", cost).
		Msg("Anthropic query completed")

	return &Result{Content: content, Raw: raw, Metadata: metadata}, nil
}

// mapError converts SDK errors into the canonical taxonomy
func (p *AnthropicProvider) mapError(err error) error {
	var apierr *anthropic.Error
	if errors.As(err, &apierr) {
		switch {
		case apierr.StatusCode == 401 || apierr.StatusCode == 403:
			return NewProviderError(p.Name(), ErrAuthentication, "authentication failed, check your API key", err)
		case apierr.StatusCode == 429:
			return NewProviderError(p.Name(), ErrRateLimit, "rate limit exceeded", err)
		case apierr.StatusCode >= 500:
			return NewProviderError(p.Name(), ErrNetwork, fmt.Sprintf("server error: %d", apierr.StatusCode), err)
		default:
			return NewProviderError(p.Name(), ErrInvalidResponse, "API error", err)
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return NewProviderError(p.Name(), ErrTimeout, "request deadline exceeded", err)
	}

	return NewProviderError(p.Name(), ErrInvalidResponse, "query failed", err)
}

// ValidateCredentials makes a minimal test query to verify the API key
func (p *AnthropicProvider) ValidateCredentials(ctx context.Context) bool {
	result, err := p.Query(ctx, "Test query. Respond with 'OK'.", QueryOptions{MaxTokens: 10, Temperature: -1})
	if err != nil {
		if !IsAuthentication(err) {
			p.logger.Warn().Err(err).Msg("Credential validation failed")
		}
		return false
	}
	return result.Raw != ""
}

// EstimateCost returns the USD cost of a token count for the configured model
func (p *AnthropicProvider) EstimateCost(tokens int, isInput bool) float64 {
	return p.pricing.Get(p.model).EstimateCost(tokens, isInput)
}
