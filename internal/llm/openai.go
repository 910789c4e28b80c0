package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/rs/zerolog"

	"github.com/labelwise/insightd/pkg/pricing"
)

// Config holds construction parameters shared by every provider.
// Zero values fall back to per-provider defaults.
type Config struct {
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration
	JSONMode    bool
	BaseURL     string // used by providers without an official SDK
}

const openAISystemPrompt = "You are a helpful assistant that provides accurate, concise information about products."

// OpenAIProvider implements the Provider interface using the official OpenAI SDK
type OpenAIProvider struct {
	client      openai.Client
	model       string
	maxTokens   int
	temperature float64
	timeout     time.Duration
	jsonMode    bool
	pricing     pricing.Table
	logger      zerolog.Logger
}

// NewOpenAIProvider creates a new OpenAI provider
func NewOpenAIProvider(cfg Config, logger zerolog.Logger) (*OpenAIProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai API key is required")
	}

	if cfg.Model == "" {
		cfg.Model = pricing.OpenAI.DefaultModel
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

	client := openai.NewClient(
		option.WithAPIKey(cfg.APIKey),
		option.WithRequestTimeout(cfg.Timeout),
	)

	return &OpenAIProvider{
		client:      client,
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		timeout:     cfg.Timeout,
		jsonMode:    cfg.JSONMode,
		pricing:     pricing.OpenAI,
		logger:      logger,
	}, nil
}

// Name returns the provider identifier
func (p *OpenAIProvider) Name() string {
	return "openai"
}

// Query sends a prompt to OpenAI and returns the response
func (p *OpenAIProvider) Query(ctx context.Context, prompt string, opts QueryOptions) (*Result, error) {
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
	jsonMode := p.jsonMode || opts.JSONMode

	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(openAISystemPrompt),
			openai.UserMessage(prompt),
		},
		MaxTokens:   openai.Int(int64(maxTokens)),
		Temperature: openai.Float(temperature),
		TopP:        openai.Float(0.9),
	}

	if jsonMode && opts.ParseJSON {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &openai.ResponseFormatJSONObjectParam{},
		}
	}

	p.logger.Debug().
		Str("model", model).
		Int("max_tokens", maxTokens).
		Bool("json_mode", jsonMode).
		Msg("Querying OpenAI")

	resp, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, p.mapError(err)
	}

	if len(resp.Choices) == 0 {
		return nil, NewProviderError(p.Name(), ErrInvalidResponse, "no choices in response", nil)
	}

	raw := resp.Choices[0].Message.Content
	promptTokens := int(resp.Usage.PromptTokens)
	completionTokens := int(resp.Usage.CompletionTokens)
	cost := p.pricing.Get(model).CalculateCost(promptTokens, completionTokens)

	metadata := map[string]any{
		"model":             resp.Model,
		"tokens_used":       int(resp.Usage.TotalTokens),
		"prompt_tokens":     promptTokens,
		"completion_tokens": completionTokens,
		"cost_estimate":     cost,
		"finish_reason":     string(resp.Choices[0].FinishReason),
		"provider_specific": map[string]any{
			"system_fingerprint": resp.SystemFingerprint,
		},
	}

	content := any(raw)
	if opts.ParseJSON {
		parsed, strategy, perr := ExtractJSON(raw, jsonMode)
		if perr != nil {
			return nil, NewProviderError(p.Name(), ErrInvalidResponse, "failed to parse JSON response", perr)
		}
		content = parsed
		metadata["parse_strategy"] = strategy
		metadata["json_mode_enabled"] = jsonMode
	}

	p.logger.Info().
		Str("model", resp.Model).
		Int("tokens_used", int(resp.Usage.TotalTokens)).
		Float64("cost_usd", cost).
		Msg("OpenAI query completed")

	return &Result{Content: content, Raw: raw, Metadata: metadata}, nil
}

// mapError converts SDK errors into the canonical taxonomy
func (p *OpenAIProvider) mapError(err error) error {
	var apierr *openai.Error
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
		return NewProviderError(p.Name(), ErrTimeout, fmt.Sprintf("request timed out after %s", p.timeout), err)
	}

	return NewProviderError(p.Name(), ErrInvalidResponse, "query failed", err)
}

// ValidateCredentials makes a minimal test query to verify the API key
func (p *OpenAIProvider) ValidateCredentials(ctx context.Context) bool {
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
func (p *OpenAIProvider) EstimateCost(tokens int, isInput bool) float64 {
	return p.pricing.Get(p.model).EstimateCost(tokens, isInput)
}
