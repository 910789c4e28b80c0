package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/labelwise/insightd/pkg/pricing"
)

// DefaultPerplexityURL is the chat completions endpoint of the Perplexity API.
const DefaultPerplexityURL = "https://api.perplexity.ai/chat/completions"

const perplexitySystemPrompt = "You are a JSON API that provides accurate, structured information about products based on web search results. Always respond with valid JSON only."

// PerplexityProvider implements the Provider interface for the Perplexity AI
// API. Perplexity has no official Go SDK; its API is OpenAI-compatible and
// adds web search with citations, which makes it a good fit for queries that
// need current information like reviews and recalls.
type PerplexityProvider struct {
	baseURL     string
	apiKey      string
	model       string
	maxTokens   int
	temperature float64
	jsonMode    bool
	client      *http.Client
	pricing     pricing.Table
	logger      zerolog.Logger
}

// NewPerplexityProvider creates a new Perplexity provider
func NewPerplexityProvider(cfg Config, logger zerolog.Logger) (*PerplexityProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("perplexity API key is required")
	}

	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultPerplexityURL
	}
	if cfg.Model == "" {
		cfg.Model = pricing.Perplexity.DefaultModel
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 400
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = 0.5
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	return &PerplexityProvider{
		baseURL:     strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:      cfg.APIKey,
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		jsonMode:    cfg.JSONMode,
		client:      &http.Client{Timeout: cfg.Timeout},
		pricing:     pricing.Perplexity,
		logger:      logger,
	}, nil
}

// Name returns the provider identifier
func (p *PerplexityProvider) Name() string {
	return "perplexity"
}

// perplexityRequest is the request body for the Perplexity API
type perplexityRequest struct {
	Model               string              `json:"model"`
	Messages            []perplexityMessage `json:"messages"`
	MaxTokens           int                 `json:"max_tokens"`
	Temperature         float64             `json:"temperature"`
	TopP                float64             `json:"top_p"`
	ReturnCitations     bool                `json:"return_citations"`
	SearchRecencyFilter string              `json:"search_recency_filter"`
	Stream              bool                `json:"stream"`
	ResponseFormat      *responseFormat     `json:"response_format,omitempty"`
}

type perplexityMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

// perplexityResponse is the response from the Perplexity API
type perplexityResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
	Citations []string `json:"citations"`
}

// Query sends a prompt to Perplexity and returns the response
func (p *PerplexityProvider) Query(ctx context.Context, prompt string, opts QueryOptions) (*Result, error) {
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

	reqBody := perplexityRequest{
		Model: model,
		Messages: []perplexityMessage{
			{Role: "system", Content: perplexitySystemPrompt},
			{Role: "user", Content: prompt},
		},
		MaxTokens:           maxTokens,
		Temperature:         temperature,
		TopP:                0.9,
		ReturnCitations:     true,
		SearchRecencyFilter: "month",
		Stream:              false,
	}

	if jsonMode && opts.ParseJSON {
		reqBody.ResponseFormat = &responseFormat{Type: "json_object"}
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.apiKey)
	req.Header.Set("Content-Type", "application/json")

	p.logger.Debug().
		Str("model", model).
		Int("max_tokens", maxTokens).
		Bool("json_mode", jsonMode).
		Msg("Querying Perplexity")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, p.mapTransportError(err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, NewProviderError(p.Name(), ErrAuthentication, "authentication failed, check your API key", nil)
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, NewProviderError(p.Name(), ErrRateLimit, "rate limit exceeded", nil)
	case resp.StatusCode >= 500:
		return nil, NewProviderError(p.Name(), ErrNetwork, fmt.Sprintf("server error: %d", resp.StatusCode), nil)
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(resp.Body)
		return nil, NewProviderError(p.Name(), ErrInvalidResponse,
			fmt.Sprintf("unexpected status %d: %s", resp.StatusCode, preview(string(body), 200)), nil)
	}

	var data perplexityResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, NewProviderError(p.Name(), ErrInvalidResponse, "decode response", err)
	}

	if len(data.Choices) == 0 {
		return nil, NewProviderError(p.Name(), ErrInvalidResponse, "no choices in response", nil)
	}

	raw := data.Choices[0].Message.Content
	cost := p.pricing.Get(model).CalculateCost(data.Usage.PromptTokens, data.Usage.CompletionTokens)

	metadata := map[string]any{
		"model":             model,
		"tokens_used":       data.Usage.TotalTokens,
		"prompt_tokens":     data.Usage.PromptTokens,
		"completion_tokens": data.Usage.CompletionTokens,
		"cost_estimate":     cost,
		"finish_reason":     data.Choices[0].FinishReason,
		"citations":         data.Citations,
		"provider_specific": map[string]any{
			"citations_count": len(data.Citations),
			"has_web_search":  true,
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
		Str("model", model).
		Int("tokens_used", data.Usage.TotalTokens).
		Float64("cost_usd", cost).
		Int("citations", len(data.Citations)).
		Msg("Perplexity query completed")

	return &Result{Content: content, Raw: raw, Metadata: metadata}, nil
}

// mapTransportError converts HTTP client errors into the canonical taxonomy
func (p *PerplexityProvider) mapTransportError(err error) error {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return NewProviderError(p.Name(), ErrTimeout, fmt.Sprintf("request timed out after %s", p.client.Timeout), err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return NewProviderError(p.Name(), ErrTimeout, "request deadline exceeded", err)
	}
	return NewProviderError(p.Name(), ErrNetwork, "network error", err)
}

// ValidateCredentials makes a minimal test query to verify the API key
func (p *PerplexityProvider) ValidateCredentials(ctx context.Context) bool {
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
func (p *PerplexityProvider) EstimateCost(tokens int, isInput bool) float64 {
	return p.pricing.Get(p.model).EstimateCost(tokens, isInput)
}
