package insight

import (
	"strings"
	"testing"

	"github.com/labelwise/insightd/internal/store"
)

func TestRenderPrompt(t *testing.T) {
	product := &store.Product{
		UPCCode: "012345678905",
		Name:    "Vitamin C Serum",
		Brand:   "GlowLab",
	}

	rendered, err := renderPrompt("Reviews for {product_name} by {brand}, UPC {upc_code}.", product)
	if err != nil {
		t.Fatalf("renderPrompt failed: %v", err)
	}
	want := "Reviews for Vitamin C Serum by GlowLab, UPC 012345678905."
	if rendered != want {
		t.Errorf("renderPrompt() = %q, want %q", rendered, want)
	}
}

func TestRenderPrompt_Defaults(t *testing.T) {
	product := &store.Product{UPCCode: "000111"}

	rendered, err := renderPrompt("{product_name} / {brand}", product)
	if err != nil {
		t.Fatalf("renderPrompt failed: %v", err)
	}
	if rendered != "Unknown Product / Unknown Brand" {
		t.Errorf("Expected fallback names, got %q", rendered)
	}
}

func TestRenderPrompt_AdditionalData(t *testing.T) {
	product := &store.Product{
		UPCCode:     "000111",
		Name:        "Serum",
		CatalogData: map[string]any{"category": "skincare"},
	}

	rendered, err := renderPrompt("Data: {additional_data}", product)
	if err != nil {
		t.Fatalf("renderPrompt failed: %v", err)
	}
	if !strings.Contains(rendered, "skincare") {
		t.Errorf("Expected catalog data in prompt, got %q", rendered)
	}

	// Empty catalog data renders as empty string
	empty := &store.Product{UPCCode: "000111", Name: "Serum"}
	rendered, err = renderPrompt("Data: {additional_data}", empty)
	if err != nil {
		t.Fatalf("renderPrompt failed: %v", err)
	}
	if rendered != "Data: " {
		t.Errorf("Expected empty additional data, got %q", rendered)
	}
}

func TestRenderPrompt_UnknownPlaceholder(t *testing.T) {
	product := &store.Product{UPCCode: "000111", Name: "Serum"}

	_, err := renderPrompt("Price: {unit_price}", product)
	if err == nil {
		t.Fatal("Expected error for unknown placeholder")
	}
	if !strings.Contains(err.Error(), "unit_price") {
		t.Errorf("Error should name the placeholder, got %v", err)
	}
}

func TestRenderPrompt_LeavesJSONBracesAlone(t *testing.T) {
	product := &store.Product{UPCCode: "000111", Name: "Serum", Brand: "GlowLab"}

	template := `Respond for {product_name} with JSON like:
{
  "sentiment": "positive",
  "summary": "text"
}`
	rendered, err := renderPrompt(template, product)
	if err != nil {
		t.Fatalf("renderPrompt failed: %v", err)
	}
	if !strings.Contains(rendered, `"sentiment": "positive"`) {
		t.Errorf("JSON example should survive rendering, got %q", rendered)
	}
	if !strings.Contains(rendered, "Serum") {
		t.Errorf("Placeholder should still render, got %q", rendered)
	}
}
