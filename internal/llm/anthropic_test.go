package llm

import (
	"io"
	"testing"

	"github.com/rs/zerolog"
)

func testLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

func TestNewAnthropicProvider_Success(t *testing.T) {
	provider, err := NewAnthropicProvider(Config{APIKey: "test-key-123"}, testLogger())
	if err != nil {
		t.Fatalf("NewAnthropicProvider failed: %v", err)
	}

	if provider == nil {
		t.Fatal("Expected provider, got nil")
	}

	if provider.Name() != "anthropic" {
		t.Errorf("Expected provider name anthropic, got %s", provider.Name())
	}

	// Verify default model
	if provider.model == "" {
		t.Error("Expected non-empty default model")
	}
}

func TestNewAnthropicProvider_MissingKey(t *testing.T) {
	_, err := NewAnthropicProvider(Config{}, testLogger())
	if err == nil {
		t.Fatal("Expected error for missing API key, got nil")
	}
}

func TestNewAnthropicProvider_CustomModel(t *testing.T) {
	customModel := "claude-opus-4-5-20251101"
	provider, err := NewAnthropicProvider(Config{APIKey: "test-key-123", Model: customModel}, testLogger())
	if err != nil {
		t.Fatalf("NewAnthropicProvider with custom model failed: %v", err)
	}

	if provider.model != customModel {
		t.Errorf("Expected model %s, got %s", customModel, provider.model)
	}
}

func TestAnthropicEstimateCost(t *testing.T) {
	provider, err := NewAnthropicProvider(Config{APIKey: "test-key-123", Model: "claude-sonnet-4.5"}, testLogger())
	if err != nil {
		t.Fatalf("NewAnthropicProvider failed: %v", err)
	}

	// Sonnet 4.5: $3.00/M input, $15.00/M output
	inputCost := provider.EstimateCost(1_000_000, true)
	if inputCost != 3.00 {
		t.Errorf("Expected input cost $3.00, got $%f", inputCost)
	}

	outputCost := provider.EstimateCost(1_000_000, false)
	if outputCost != 15.00 {
		t.Errorf("Expected output cost $15.00, got $%f", outputCost)
	}
}

func TestAnthropicMapError_Unknown(t *testing.T) {
	provider, err := NewAnthropicProvider(Config{APIKey: "test-key-123"}, testLogger())
	if err != nil {
		t.Fatalf("NewAnthropicProvider failed: %v", err)
	}

	mapped := provider.mapError(io.ErrUnexpectedEOF)
	if !IsKind(mapped, ErrInvalidResponse) {
		t.Errorf("Expected unknown errors to map to invalid_response, got %v", mapped)
	}
}
