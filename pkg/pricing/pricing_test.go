package pricing

import (
	"math"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestCalculateCost(t *testing.T) {
	p := ModelPricing{InputCostPerMillion: 1.25, OutputCostPerMillion: 10.00, ModelName: "gpt-5.1"}

	cost := p.CalculateCost(1000, 500)
	if !almostEqual(cost, 0.00625) {
		t.Errorf("Expected cost 0.00625, got %v", cost)
	}
}

func TestCalculateCost_ZeroTokens(t *testing.T) {
	p := ModelPricing{InputCostPerMillion: 1.00, OutputCostPerMillion: 1.00}

	if cost := p.CalculateCost(0, 0); cost != 0 {
		t.Errorf("Expected zero cost for zero tokens, got %v", cost)
	}
}

func TestEstimateCost(t *testing.T) {
	p := ModelPricing{InputCostPerMillion: 2.00, OutputCostPerMillion: 8.00}

	testCases := []struct {
		name    string
		tokens  int
		isInput bool
		want    float64
	}{
		{name: "input tokens", tokens: 1_000_000, isInput: true, want: 2.00},
		{name: "output tokens", tokens: 1_000_000, isInput: false, want: 8.00},
		{name: "partial input", tokens: 250_000, isInput: true, want: 0.50},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := p.EstimateCost(tc.tokens, tc.isInput)
			if !almostEqual(got, tc.want) {
				t.Errorf("EstimateCost(%d, %v) = %v, want %v", tc.tokens, tc.isInput, got, tc.want)
			}
		})
	}
}

func TestTableGet_KnownModel(t *testing.T) {
	p := OpenAI.Get("gpt-5.1")
	if p.ModelName != "gpt-5.1" {
		t.Errorf("Expected gpt-5.1 pricing, got %s", p.ModelName)
	}
	if !almostEqual(p.InputCostPerMillion, 1.25) {
		t.Errorf("Unexpected input rate: %v", p.InputCostPerMillion)
	}
}

func TestTableGet_UnknownModelFallsBack(t *testing.T) {
	p := Perplexity.Get("sonar-experimental-9000")
	if p.ModelName != "sonar" {
		t.Errorf("Expected fallback to default model sonar, got %s", p.ModelName)
	}

	if Perplexity.Known("sonar-experimental-9000") {
		t.Error("Known should be false for models not in the table")
	}
}

func TestForProvider(t *testing.T) {
	for _, name := range []string{"openai", "perplexity", "anthropic", "ollama"} {
		table, ok := ForProvider(name)
		if !ok {
			t.Errorf("Expected pricing table for %s", name)
			continue
		}
		if table.DefaultModel == "" {
			t.Errorf("Provider %s has no default model", name)
		}
		if !table.Known(table.DefaultModel) {
			t.Errorf("Provider %s default model %s missing from its own table", name, table.DefaultModel)
		}
	}

	if _, ok := ForProvider("unknown"); ok {
		t.Error("Expected no table for unknown provider")
	}
}

func TestOllamaIsFree(t *testing.T) {
	p := Ollama.Get("anything")
	if cost := p.CalculateCost(1_000_000, 1_000_000); cost != 0 {
		t.Errorf("Ollama models should be free, got cost %v", cost)
	}
}
