// Package testing provides test utilities, mocks, and fixtures shared by the
// package test suites.
package testing

import (
	"context"

	"github.com/labelwise/insightd/internal/llm"
)

// MockProvider is a mock implementation of llm.Provider for testing without
// making real API calls.
type MockProvider struct {
	// QueryFunc is called when Query() is invoked. If nil, returns a default
	// parsed review summary response.
	QueryFunc func(ctx context.Context, prompt string, opts llm.QueryOptions) (*llm.Result, error)

	// ValidateFunc is called when ValidateCredentials() is invoked. If nil,
	// returns true.
	ValidateFunc func(ctx context.Context) bool

	// ProviderName is the name to return from Name()
	ProviderName string

	// CallCount tracks how many times Query was called
	CallCount int

	// LastPrompt stores the last prompt received
	LastPrompt string

	// LastOptions stores the last options received
	LastOptions llm.QueryOptions
}

// Query implements llm.Provider.Query
func (m *MockProvider) Query(ctx context.Context, prompt string, opts llm.QueryOptions) (*llm.Result, error) {
	m.CallCount++
	m.LastPrompt = prompt
	m.LastOptions = opts

	if m.QueryFunc != nil {
		return m.QueryFunc(ctx, prompt, opts)
	}

	// Default response: a valid review summary
	content := map[string]any{
		"sentiment":       "positive",
		"sentiment_score": 0.85,
		"summary":         "Mock summary from " + m.Name(),
		"pros":            []any{"works", "cheap"},
		"cons":            []any{"slow shipping"},
	}
	return &llm.Result{
		Content: content,
		Raw:     `{"sentiment": "positive"}`,
		Metadata: map[string]any{
			"model":             "mock-model-v1",
			"tokens_used":       150,
			"prompt_tokens":     100,
			"completion_tokens": 50,
			"cost_estimate":     0.001,
			"parse_strategy":    "direct",
		},
	}, nil
}

// ValidateCredentials implements llm.Provider.ValidateCredentials
func (m *MockProvider) ValidateCredentials(ctx context.Context) bool {
	if m.ValidateFunc != nil {
		return m.ValidateFunc(ctx)
	}
	return true
}

// EstimateCost implements llm.Provider.EstimateCost
func (m *MockProvider) EstimateCost(tokens int, isInput bool) float64 {
	if isInput {
		return float64(tokens) / 1_000_000
	}
	return float64(tokens) * 5 / 1_000_000
}

// Name implements llm.Provider.Name
func (m *MockProvider) Name() string {
	if m.ProviderName == "" {
		return "mock"
	}
	return m.ProviderName
}
