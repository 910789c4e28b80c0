package llm

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// Extraction strategy names, recorded in result metadata for diagnosability.
const (
	StrategyDirect        = "direct"
	StrategyMarkdownJSON  = "markdown_json"
	StrategyMarkdownBlock = "markdown_block"
	StrategyExtractBraces = "extract_braces"
)

var (
	markdownJSONRe  = regexp.MustCompile("(?s)```json\\s*(\\{.*?\\})\\s*```")
	markdownBlockRe = regexp.MustCompile("(?s)```\\s*(\\{.*?\\})\\s*```")
)

// ExtractJSON parses a JSON object out of raw LLM output, trying strategies
// in order until one succeeds:
//
//  1. direct - the entire trimmed string is valid JSON
//  2. markdown_json - a ```json fenced block contains the object
//  3. markdown_block - any fenced block contains the object
//  4. extract_braces - the substring from the first { to the last }
//
// With strict=true only the direct strategy is attempted; this is for
// providers whose JSON mode already guarantees pure JSON output.
// Returns the parsed object and the name of the strategy that succeeded.
func ExtractJSON(raw string, strict bool) (map[string]any, string, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, "", &JSONParseError{Message: "empty response from LLM"}
	}

	var result map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &result); err == nil {
		return result, StrategyDirect, nil
	} else if strict {
		return nil, "", &JSONParseError{Message: fmt.Sprintf("direct JSON parse failed: %v", err)}
	}

	if m := markdownJSONRe.FindStringSubmatch(raw); m != nil {
		if err := json.Unmarshal([]byte(m[1]), &result); err == nil {
			return result, StrategyMarkdownJSON, nil
		}
	}

	if m := markdownBlockRe.FindStringSubmatch(raw); m != nil {
		if err := json.Unmarshal([]byte(m[1]), &result); err == nil {
			return result, StrategyMarkdownBlock, nil
		}
	}

	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start != -1 && end != -1 && start < end {
		if err := json.Unmarshal([]byte(raw[start:end+1]), &result); err == nil {
			return result, StrategyExtractBraces, nil
		}
	}

	return nil, "", &JSONParseError{
		Message: fmt.Sprintf("failed to parse JSON from LLM response after all strategies; preview: %s", preview(raw, 200)),
	}
}

// ErrorContent builds the canonical error object stored in place of a result
// when retries are exhausted. The orchestrator always persists a well-formed
// object, never a bare error.
func ErrorContent(errorMessage, rawResponse string) map[string]any {
	content := map[string]any{
		"error":         "parsing_failed",
		"error_message": errorMessage,
		"confidence":    "none",
	}
	if rawResponse != "" {
		content["raw_response_preview"] = preview(rawResponse, 500)
	} else {
		content["raw_response_preview"] = nil
	}
	return content
}

// preview truncates text for error messages so failures stay inspectable
// without bloating logs or storage.
func preview(text string, max int) string {
	if len(text) <= max {
		return text
	}
	return text[:max] + "..."
}
