// Package llm provides LLM provider abstractions and implementations.
//
// The llm package defines the Provider interface and implements support for
// multiple AI backends (OpenAI, Perplexity, Anthropic, Ollama) behind an
// identical contract, plus the multi-strategy JSON extractor used to turn
// free-form model output into structured data.
package llm

import (
	"context"
	"time"
)

// DefaultTimeout bounds a single provider call when no override is configured.
const DefaultTimeout = 30 * time.Second

// Provider is the interface that all LLM providers must implement.
// This adapter pattern allows easy swapping between different AI backends
// without the orchestrator knowing which one is handling a request.
type Provider interface {
	// Query sends a rendered prompt and returns the response. When
	// opts.ParseJSON is set the Content of the result is the parsed JSON
	// object; a response that cannot be parsed is an invalid_response error
	// so callers can retry with a reinforced prompt.
	Query(ctx context.Context, prompt string, opts QueryOptions) (*Result, error)

	// ValidateCredentials performs a minimal real query and reports whether
	// it round-trips without an authentication failure.
	ValidateCredentials(ctx context.Context) bool

	// EstimateCost returns the USD cost of a token count against the
	// provider's configured model.
	EstimateCost(tokens int, isInput bool) float64

	// Name returns the provider identifier (e.g. "openai", "perplexity")
	Name() string
}

// QueryOptions carries per-call overrides. Zero values mean "use the
// provider's configured default".
type QueryOptions struct {
	Model       string
	MaxTokens   int
	Temperature float64 // -1 selects the provider default; 0 is a real value
	ParseJSON   bool
	JSONMode    bool // ask the backend for machine-enforced JSON output
}

// DefaultQueryOptions returns options for the usual orchestrator call:
// parse the response as JSON, leave everything else at provider defaults.
func DefaultQueryOptions() QueryOptions {
	return QueryOptions{Temperature: -1, ParseJSON: true}
}

// Result contains the provider's response along with usage metadata.
type Result struct {
	// Content is the parsed JSON object (map[string]any) when JSON parsing
	// was requested, otherwise the raw response text.
	Content any

	// Raw is the untouched response text.
	Raw string

	// Metadata carries model, token counts, cost estimate, finish reason,
	// parse strategy and provider-specific extras. It is persisted verbatim
	// alongside the cached result.
	Metadata map[string]any
}
