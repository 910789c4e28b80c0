package llm

import (
	"errors"
	"strings"
	"testing"
)

func TestExtractJSON_Direct(t *testing.T) {
	data, strategy, err := ExtractJSON(`{"a":1}`, false)
	if err != nil {
		t.Fatalf("ExtractJSON failed: %v", err)
	}

	if strategy != StrategyDirect {
		t.Errorf("Expected strategy direct, got %s", strategy)
	}

	if data["a"] != float64(1) {
		t.Errorf("Expected a=1, got %v", data["a"])
	}
}

func TestExtractJSON_DirectWithWhitespace(t *testing.T) {
	data, strategy, err := ExtractJSON("  \n {\"sentiment\": \"positive\"} \n ", false)
	if err != nil {
		t.Fatalf("ExtractJSON failed: %v", err)
	}

	if strategy != StrategyDirect {
		t.Errorf("Expected strategy direct, got %s", strategy)
	}

	if data["sentiment"] != "positive" {
		t.Errorf("Expected sentiment=positive, got %v", data["sentiment"])
	}
}

func TestExtractJSON_MarkdownJSON(t *testing.T) {
	raw := "```json\n{\"a\":1}\n```"

	data, strategy, err := ExtractJSON(raw, false)
	if err != nil {
		t.Fatalf("ExtractJSON failed: %v", err)
	}

	if strategy != StrategyMarkdownJSON {
		t.Errorf("Expected strategy markdown_json, got %s", strategy)
	}

	if data["a"] != float64(1) {
		t.Errorf("Expected a=1, got %v", data["a"])
	}
}

func TestExtractJSON_MarkdownJSON_NestedObject(t *testing.T) {
	raw := "Here you go:\n```json\n{\"outer\": {\"inner\": true}}\n```\nHope that helps!"

	data, strategy, err := ExtractJSON(raw, false)
	if err != nil {
		t.Fatalf("ExtractJSON failed: %v", err)
	}

	if strategy != StrategyMarkdownJSON {
		t.Errorf("Expected strategy markdown_json, got %s", strategy)
	}

	outer, ok := data["outer"].(map[string]any)
	if !ok {
		t.Fatalf("Expected nested object, got %T", data["outer"])
	}
	if outer["inner"] != true {
		t.Errorf("Expected inner=true, got %v", outer["inner"])
	}
}

func TestExtractJSON_MarkdownBlock(t *testing.T) {
	raw := "```\n{\"a\":1}\n```"

	data, strategy, err := ExtractJSON(raw, false)
	if err != nil {
		t.Fatalf("ExtractJSON failed: %v", err)
	}

	if strategy != StrategyMarkdownBlock {
		t.Errorf("Expected strategy markdown_block, got %s", strategy)
	}

	if data["a"] != float64(1) {
		t.Errorf("Expected a=1, got %v", data["a"])
	}
}

func TestExtractJSON_ExtractBraces(t *testing.T) {
	raw := `Here is the answer: {"a":1} - thanks!`

	data, strategy, err := ExtractJSON(raw, false)
	if err != nil {
		t.Fatalf("ExtractJSON failed: %v", err)
	}

	if strategy != StrategyExtractBraces {
		t.Errorf("Expected strategy extract_braces, got %s", strategy)
	}

	if data["a"] != float64(1) {
		t.Errorf("Expected a=1, got %v", data["a"])
	}
}

func TestExtractJSON_EmptyInput(t *testing.T) {
	for _, raw := range []string{"", "   ", "\n\t "} {
		_, _, err := ExtractJSON(raw, false)
		if err == nil {
			t.Errorf("Expected error for input %q, got nil", raw)
			continue
		}

		var parseErr *JSONParseError
		if !errors.As(err, &parseErr) {
			t.Errorf("Expected JSONParseError, got %T", err)
		}
	}
}

func TestExtractJSON_NotJSON(t *testing.T) {
	_, _, err := ExtractJSON("not json at all", false)
	if err == nil {
		t.Fatal("Expected error, got nil")
	}

	var parseErr *JSONParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("Expected JSONParseError, got %T", err)
	}
}

func TestExtractJSON_Strict(t *testing.T) {
	// Valid JSON passes in strict mode
	data, strategy, err := ExtractJSON(`{"valid": true}`, true)
	if err != nil {
		t.Fatalf("Strict parse of valid JSON failed: %v", err)
	}
	if strategy != StrategyDirect {
		t.Errorf("Expected strategy direct, got %s", strategy)
	}
	if data["valid"] != true {
		t.Errorf("Expected valid=true, got %v", data["valid"])
	}

	// Fallback strategies are skipped in strict mode
	_, _, err = ExtractJSON("```json\n{\"a\":1}\n```", true)
	if err == nil {
		t.Fatal("Expected strict mode to reject fenced JSON, got nil")
	}
}

func TestExtractJSON_ErrorPreviewIsBounded(t *testing.T) {
	long := "x" + strings.Repeat("y", 5000)

	_, _, err := ExtractJSON(long, false)
	if err == nil {
		t.Fatal("Expected error, got nil")
	}

	// The full 5KB response must not leak into the error message
	if len(err.Error()) > 400 {
		t.Errorf("Error message too long (%d chars): preview not bounded", len(err.Error()))
	}
}

func TestErrorContent(t *testing.T) {
	content := ErrorContent("all strategies failed", "raw text here")

	if content["error"] != "parsing_failed" {
		t.Errorf("Expected error=parsing_failed, got %v", content["error"])
	}

	if content["error_message"] != "all strategies failed" {
		t.Errorf("Expected error message, got %v", content["error_message"])
	}

	if content["confidence"] != "none" {
		t.Errorf("Expected confidence=none, got %v", content["confidence"])
	}

	if content["raw_response_preview"] != "raw text here" {
		t.Errorf("Expected raw preview, got %v", content["raw_response_preview"])
	}
}

func TestErrorContent_NoRawResponse(t *testing.T) {
	content := ErrorContent("timeout", "")

	if content["raw_response_preview"] != nil {
		t.Errorf("Expected nil preview, got %v", content["raw_response_preview"])
	}
}

func TestErrorContent_LongRawResponseTruncated(t *testing.T) {
	content := ErrorContent("oops", strings.Repeat("z", 2000))

	previewStr, ok := content["raw_response_preview"].(string)
	if !ok {
		t.Fatalf("Expected string preview, got %T", content["raw_response_preview"])
	}

	if len(previewStr) > 510 {
		t.Errorf("Preview too long: %d chars", len(previewStr))
	}
}
