// Package pricing holds per-model token pricing for the supported LLM
// providers and computes query costs from token counts.
//
// Rates change often; when a model is missing from a table the provider's
// default model is used as a fallback so cost estimates stay plausible
// instead of failing the request.
package pricing

// ModelPricing is the cost of a specific model in USD per million tokens.
// Immutable once constructed.
type ModelPricing struct {
	InputCostPerMillion  float64
	OutputCostPerMillion float64
	ModelName            string
}

// CalculateCost returns the total USD cost of a query given its prompt and
// completion token counts.
func (p ModelPricing) CalculateCost(promptTokens, completionTokens int) float64 {
	inputCost := float64(promptTokens) / 1_000_000 * p.InputCostPerMillion
	outputCost := float64(completionTokens) / 1_000_000 * p.OutputCostPerMillion
	return inputCost + outputCost
}

// EstimateCost returns the USD cost of a token count on one side of the
// conversation. isInput selects the input rate, otherwise the output rate.
func (p ModelPricing) EstimateCost(tokens int, isInput bool) float64 {
	if isInput {
		return float64(tokens) / 1_000_000 * p.InputCostPerMillion
	}
	return float64(tokens) / 1_000_000 * p.OutputCostPerMillion
}

// Table maps model names to pricing for a single provider.
type Table struct {
	Models       map[string]ModelPricing
	DefaultModel string
}

// Get returns pricing for a model, falling back to the provider's default
// model when the name is unknown.
func (t Table) Get(model string) ModelPricing {
	if p, ok := t.Models[model]; ok {
		return p
	}
	return t.Models[t.DefaultModel]
}

// Known returns true when the model has an exact entry in the table.
func (t Table) Known(model string) bool {
	_, ok := t.Models[model]
	return ok
}

// OpenAI pricing as of November 2025.
// Source: https://openai.com/api/pricing/
var OpenAI = Table{
	DefaultModel: "gpt-5-mini",
	Models: map[string]ModelPricing{
		"gpt-5-nano": {InputCostPerMillion: 0.05, OutputCostPerMillion: 0.40, ModelName: "gpt-5-nano"},
		"gpt-5-mini": {InputCostPerMillion: 0.25, OutputCostPerMillion: 2.00, ModelName: "gpt-5-mini"},
		"gpt-5.1":    {InputCostPerMillion: 1.25, OutputCostPerMillion: 10.00, ModelName: "gpt-5.1"},
		"gpt-5":      {InputCostPerMillion: 1.25, OutputCostPerMillion: 10.00, ModelName: "gpt-5"},
		"gpt-5-pro":  {InputCostPerMillion: 15.00, OutputCostPerMillion: 120.00, ModelName: "gpt-5-pro"},
	},
}

// Perplexity pricing as of November 2025.
// Source: https://docs.perplexity.ai/guides/pricing
// Some models carry extra per-search fees that are not modeled here.
var Perplexity = Table{
	DefaultModel: "sonar",
	Models: map[string]ModelPricing{
		"sonar":               {InputCostPerMillion: 1.00, OutputCostPerMillion: 1.00, ModelName: "sonar"},
		"sonar-pro":           {InputCostPerMillion: 3.00, OutputCostPerMillion: 15.00, ModelName: "sonar-pro"},
		"sonar-reasoning":     {InputCostPerMillion: 1.00, OutputCostPerMillion: 5.00, ModelName: "sonar-reasoning"},
		"sonar-reasoning-pro": {InputCostPerMillion: 2.00, OutputCostPerMillion: 8.00, ModelName: "sonar-reasoning-pro"},
		"sonar-deep-research": {InputCostPerMillion: 2.00, OutputCostPerMillion: 8.00, ModelName: "sonar-deep-research"},
	},
}

// Anthropic pricing as of December 2025.
// Both versioned model names and base names are listed.
var Anthropic = Table{
	DefaultModel: "claude-sonnet-4-5-20250929",
	Models: map[string]ModelPricing{
		"claude-opus-4.5":            {InputCostPerMillion: 5.00, OutputCostPerMillion: 25.00, ModelName: "claude-opus-4.5"},
		"claude-opus-4-5-20251101":   {InputCostPerMillion: 5.00, OutputCostPerMillion: 25.00, ModelName: "claude-opus-4-5-20251101"},
		"claude-sonnet-4.5":          {InputCostPerMillion: 3.00, OutputCostPerMillion: 15.00, ModelName: "claude-sonnet-4.5"},
		"claude-sonnet-4-5-20250929": {InputCostPerMillion: 3.00, OutputCostPerMillion: 15.00, ModelName: "claude-sonnet-4-5-20250929"},
		"claude-haiku-3.5":           {InputCostPerMillion: 0.80, OutputCostPerMillion: 4.00, ModelName: "claude-haiku-3.5"},
		"claude-3-5-haiku-20241022":  {InputCostPerMillion: 0.80, OutputCostPerMillion: 4.00, ModelName: "claude-3-5-haiku-20241022"},
	},
}

// Ollama runs locally, so every model is free. The table still exists so the
// cost path is uniform across providers.
var Ollama = Table{
	DefaultModel: "llama3.3:70b",
	Models: map[string]ModelPricing{
		"llama3.3:70b": {ModelName: "llama3.3:70b"},
	},
}

var providerTables = map[string]Table{
	"openai":     OpenAI,
	"perplexity": Perplexity,
	"anthropic":  Anthropic,
	"ollama":     Ollama,
}

// ForProvider returns the pricing table for a provider name.
func ForProvider(name string) (Table, bool) {
	t, ok := providerTables[name]
	return t, ok
}
