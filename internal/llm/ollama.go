package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/ollama/ollama/api"
	"github.com/rs/zerolog"

	"github.com/labelwise/insightd/pkg/pricing"
)

const ollamaSystemPrompt = "You are a helpful assistant that provides accurate, concise information about products. When asked for JSON, respond with valid JSON only."

// OllamaProvider implements the Provider interface for Ollama's local LLM API.
// Runs models locally - no data leaves the machine and every query is free,
// which makes it useful for development and for privacy-sensitive deployments.
type OllamaProvider struct {
	client      *api.Client
	model       string
	maxTokens   int
	temperature float64
	jsonMode    bool
	pricing     pricing.Table
	logger      zerolog.Logger
}

// NewOllamaProvider creates a new Ollama provider.
// No API key is needed; BaseURL defaults to the local Ollama daemon.
func NewOllamaProvider(cfg Config, logger zerolog.Logger) (*OllamaProvider, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:11434"
	}
	if cfg.Model == "" {
		cfg.Model = pricing.Ollama.DefaultModel
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 500
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = 0.7
	}

	parsedURL, err := url.Parse(strings.TrimSuffix(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid ollama URL: %w", err)
	}

	return &OllamaProvider{
		client:      api.NewClient(parsedURL, http.DefaultClient),
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		jsonMode:    cfg.JSONMode,
		pricing:     pricing.Ollama,
		logger:      logger,
	}, nil
}

// Name returns the provider identifier
func (p *OllamaProvider) Name() string {
	return "ollama"
}

// Query sends a prompt to the local Ollama daemon and returns the response
func (p *OllamaProvider) Query(ctx context.Context, prompt string, opts QueryOptions) (*Result, error) {
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

	stream := false
	req := &api.GenerateRequest{
		Model:  model,
		Prompt: prompt,
		System: ollamaSystemPrompt,
		Stream: &stream,
		Options: map[string]any{
			"temperature": temperature,
			"num_predict": maxTokens,
		},
	}

	// Ollama enforces JSON output structurally when format is "json"
	if jsonMode && opts.ParseJSON {
		req.Format = json.RawMessage(`"json"`)
	}

	p.logger.Debug().
		Str("model", model).
		Int("max_tokens", maxTokens).
		Bool("json_mode", jsonMode).
		Msg("Querying Ollama")

	var raw strings.Builder
	var last api.GenerateResponse
	err := p.client.Generate(ctx, req, func(resp api.GenerateResponse) error {
		raw.WriteString(resp.Response)
		last = resp
		return nil
	})
	if err != nil {
		return nil, p.mapError(err)
	}

	promptTokens := last.PromptEvalCount
	completionTokens := last.EvalCount

	metadata := map[string]any{
		"model":             model,
		"tokens_used":       promptTokens + completionTokens,
		"prompt_tokens":     promptTokens,
		"completion_tokens": completionTokens,
		"cost_estimate":     0.0,
		"finish_reason":     last.DoneReason,
		"provider_specific": map[string]any{
			"total_duration_ns": last.TotalDuration,
			"local":             true,
		},
	}

	content := any(raw.String())
	if opts.ParseJSON {
		parsed, strategy, perr := ExtractJSON(raw.String(), jsonMode)
		if perr != nil {
			return nil, NewProviderError(p.Name(), ErrInvalidResponse, "failed to parse JSON response", perr)
		}
		content = parsed
		metadata["parse_strategy"] = strategy
		metadata["json_mode_enabled"] = jsonMode
	}

	p.logger.Info().
		Str("model", model).
		Int("prompt_tokens", promptTokens).
		Int("completion_tokens", completionTokens).
		Msg("Ollama query completed")

	return &Result{Content: content, Raw: raw.String(), Metadata: metadata}, nil
}

// mapError converts Ollama client errors into the canonical taxonomy
func (p *OllamaProvider) mapError(err error) error {
	var statusErr api.StatusError
	if errors.As(err, &statusErr) {
		switch {
		case statusErr.StatusCode == 404:
			return NewProviderError(p.Name(), ErrInvalidResponse,
				fmt.Sprintf("model not available: %s", statusErr.ErrorMessage), err)
		case statusErr.StatusCode >= 500:
			return NewProviderError(p.Name(), ErrNetwork, fmt.Sprintf("server error: %d", statusErr.StatusCode), err)
		default:
			return NewProviderError(p.Name(), ErrInvalidResponse, "API error", err)
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return NewProviderError(p.Name(), ErrTimeout, "request deadline exceeded", err)
	}

	return NewProviderError(p.Name(), ErrNetwork, "cannot reach ollama daemon", err)
}

// ValidateCredentials verifies the daemon is reachable.
// Ollama has no authentication, so reachability is the whole check.
func (p *OllamaProvider) ValidateCredentials(ctx context.Context) bool {
	result, err := p.Query(ctx, "Test query. Respond with 'OK'.", QueryOptions{MaxTokens: 10, Temperature: -1})
	if err != nil {
		p.logger.Warn().Err(err).Msg("Ollama validation failed")
		return false
	}
	return result.Raw != ""
}

// EstimateCost always returns zero; local models are free
func (p *OllamaProvider) EstimateCost(tokens int, isInput bool) float64 {
	return p.pricing.Get(p.model).EstimateCost(tokens, isInput)
}
