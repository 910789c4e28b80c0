package testing

import (
	"io"

	"github.com/rs/zerolog"

	"github.com/labelwise/insightd/internal/store"
	"github.com/labelwise/insightd/pkg/telemetry"
)

// NewTestLogger creates a zerolog.Logger that discards output (for quiet tests)
func NewTestLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

// NewTestCostTracker creates a telemetry.CostTracker for testing
func NewTestCostTracker() *telemetry.CostTracker {
	return telemetry.NewCostTracker(10.0, 8.0, NewTestLogger())
}

// NewTestProduct creates a product fixture
func NewTestProduct() *store.Product {
	return &store.Product{
		ID:      "prod-1",
		UPCCode: "012345678905",
		Name:    "Vitamin C Serum",
		Brand:   "GlowLab",
		CatalogData: map[string]any{
			"category": "skincare",
			"size_ml":  30,
		},
	}
}

// NewTestPrompt creates an active review summary prompt fixture
func NewTestPrompt() *store.Prompt {
	return &store.Prompt{
		Name:          "review_summary_basic",
		Description:   "Basic review summary",
		QueryType:     "review_summary",
		Template:      "Summarize reviews for {product_name} by {brand} (UPC {upc_code}).",
		SchemaVersion: "1.0",
		IsActive:      true,
	}
}

// NewTestSafetyPrompt creates an active safety analysis prompt fixture
func NewTestSafetyPrompt() *store.Prompt {
	return &store.Prompt{
		Name:          "safety_analysis",
		Description:   "Ingredient safety analysis",
		QueryType:     "safety_analysis",
		Template:      "Analyze safety of {product_name} by {brand}. Catalog data: {additional_data}",
		SchemaVersion: "1.0",
		IsActive:      true,
	}
}
