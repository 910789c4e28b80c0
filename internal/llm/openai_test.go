package llm

import (
	"io"
	"testing"
)

func TestNewOpenAIProvider_Success(t *testing.T) {
	provider, err := NewOpenAIProvider(Config{APIKey: "test-key-123"}, testLogger())
	if err != nil {
		t.Fatalf("NewOpenAIProvider failed: %v", err)
	}

	if provider.Name() != "openai" {
		t.Errorf("Expected provider name openai, got %s", provider.Name())
	}

	if provider.model != "gpt-5-mini" {
		t.Errorf("Expected default model gpt-5-mini, got %s", provider.model)
	}

	if provider.maxTokens != 500 {
		t.Errorf("Expected default max tokens 500, got %d", provider.maxTokens)
	}
}

func TestNewOpenAIProvider_MissingKey(t *testing.T) {
	_, err := NewOpenAIProvider(Config{}, testLogger())
	if err == nil {
		t.Fatal("Expected error for missing API key, got nil")
	}
}

func TestOpenAIEstimateCost(t *testing.T) {
	provider, err := NewOpenAIProvider(Config{APIKey: "test-key-123", Model: "gpt-5.1"}, testLogger())
	if err != nil {
		t.Fatalf("NewOpenAIProvider failed: %v", err)
	}

	// gpt-5.1: $1.25/M input, $10.00/M output
	if cost := provider.EstimateCost(1_000_000, true); cost != 1.25 {
		t.Errorf("Expected input cost $1.25, got $%f", cost)
	}

	if cost := provider.EstimateCost(1_000_000, false); cost != 10.00 {
		t.Errorf("Expected output cost $10.00, got $%f", cost)
	}
}

func TestOpenAIEstimateCost_UnknownModelFallsBack(t *testing.T) {
	provider, err := NewOpenAIProvider(Config{APIKey: "test-key-123", Model: "gpt-99-experimental"}, testLogger())
	if err != nil {
		t.Fatalf("NewOpenAIProvider failed: %v", err)
	}

	// Falls back to gpt-5-mini rates: $0.25/M input
	if cost := provider.EstimateCost(1_000_000, true); cost != 0.25 {
		t.Errorf("Expected fallback input cost $0.25, got $%f", cost)
	}
}

func TestOpenAIMapError_Unknown(t *testing.T) {
	provider, err := NewOpenAIProvider(Config{APIKey: "test-key-123"}, testLogger())
	if err != nil {
		t.Fatalf("NewOpenAIProvider failed: %v", err)
	}

	mapped := provider.mapError(io.ErrUnexpectedEOF)
	if !IsKind(mapped, ErrInvalidResponse) {
		t.Errorf("Expected unknown errors to map to invalid_response, got %v", mapped)
	}
}
