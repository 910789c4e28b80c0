package schema

// ReviewSummary is the schema for review summary queries.
var ReviewSummary = &ResponseSchema{
	QueryType:   "review_summary",
	Version:     "1.0",
	Description: "Summary of user reviews for a product",
	Fields: []FieldDefinition{
		{Name: "sentiment", Type: TypeString, Required: true,
			Description: "Overall sentiment: positive, negative, or mixed"},
		{Name: "sentiment_score", Type: TypeFloat, Required: true,
			Description: "Sentiment score from 0.0 (very negative) to 1.0 (very positive)"},
		{Name: "summary", Type: TypeString, Required: true,
			Description: "Brief overview of reviews (under 100 words)"},
		{Name: "pros", Type: TypeList, Required: true, Default: []any{},
			Description: "Top 3 positive points from reviews"},
		{Name: "cons", Type: TypeList, Required: true, Default: []any{},
			Description: "Top 3 negative points from reviews"},
		{Name: "key_themes", Type: TypeList, Required: false, Default: []any{},
			Description: "Main themes mentioned by reviewers"},
		{Name: "confidence", Type: TypeString, Required: false, Default: "medium",
			Description: "Confidence level: high, medium, or low"},
	},
}

// SafetyAnalysis is the schema for safety and ingredient analysis queries.
var SafetyAnalysis = &ResponseSchema{
	QueryType:   "safety_analysis",
	Version:     "1.0",
	Description: "Safety and ingredient analysis for a product",
	Fields: []FieldDefinition{
		{Name: "risk_level", Type: TypeString, Required: true,
			Description: "Overall risk level: low, medium, or high"},
		{Name: "summary", Type: TypeString, Required: true,
			Description: "Brief safety overview"},
		{Name: "harmful_ingredients", Type: TypeList, Required: true, Default: []any{},
			Description: "List of potentially harmful ingredients with details"},
		{Name: "allergens", Type: TypeList, Required: true, Default: []any{},
			Description: "List of common allergens present"},
		{Name: "certifications", Type: TypeList, Required: false, Default: []any{},
			Description: "Safety certifications or standards met"},
		{Name: "recalls", Type: TypeList, Required: false, Default: []any{},
			Description: "Recent recalls or safety issues"},
		{Name: "recommendations", Type: TypeString, Required: false, Default: "",
			Description: "Who should avoid this product"},
		{Name: "confidence", Type: TypeString, Required: false, Default: "medium",
			Description: "Confidence level: high, medium, or low"},
	},
}

// registry maps query types to schemas. The detailed review summary reuses
// the base schema.
var registry = map[string]*ResponseSchema{
	"review_summary":          ReviewSummary,
	"review_summary_detailed": ReviewSummary,
	"safety_analysis":         SafetyAnalysis,
}

// Get returns the schema for a query type, or nil when the query type has no
// schema (responses then skip validation).
func Get(queryType string) *ResponseSchema {
	return registry[queryType]
}

// QueryTypes lists every query type with a registered schema.
func QueryTypes() []string {
	types := make([]string, 0, len(registry))
	for qt := range registry {
		types = append(types, qt)
	}
	return types
}
