// Package schema defines the expected JSON structure of each query type and
// validates parsed LLM responses against it.
//
// Schemas are ordered field lists with types, requiredness and defaults.
// Validation coerces near-miss values (numeric strings, scalars where lists
// are expected) so that structurally sloppy but semantically fine LLM output
// still normalizes into a stable shape.
package schema

import (
	"fmt"
	"strconv"
	"strings"
)

// FieldType enumerates the JSON types a schema field can require.
type FieldType string

const (
	TypeString FieldType = "string"
	TypeFloat  FieldType = "float"
	TypeInt    FieldType = "int"
	TypeBool   FieldType = "bool"
	TypeList   FieldType = "list"
	TypeObject FieldType = "object"
)

// FieldDefinition describes a single schema field.
type FieldDefinition struct {
	Name        string
	Type        FieldType
	Required    bool
	Default     any
	Description string
}

// ResponseSchema is the expected structure for one query type.
// Fields are ordered so prompt templates render deterministically.
type ResponseSchema struct {
	QueryType   string
	Version     string
	Description string
	Fields      []FieldDefinition
}

// RequiredFields returns the names of all required fields.
func (s *ResponseSchema) RequiredFields() []string {
	var names []string
	for _, f := range s.Fields {
		if f.Required {
			names = append(names, f.Name)
		}
	}
	return names
}

// JSONTemplate renders an example JSON body for prompt authoring.
func (s *ResponseSchema) JSONTemplate() string {
	var b strings.Builder
	b.WriteString("{\n")
	for i, f := range s.Fields {
		var example string
		switch f.Type {
		case TypeString:
			desc := f.Description
			if desc == "" {
				desc = "value"
			}
			example = fmt.Sprintf("%q", desc)
		case TypeFloat:
			example = "0.85"
		case TypeInt:
			example = "1"
		case TypeBool:
			example = "true"
		case TypeList:
			example = `["item1", "item2"]`
		case TypeObject:
			example = `{"key": "value"}`
		default:
			example = `"value"`
		}

		b.WriteString(fmt.Sprintf("  %q: %s", f.Name, example))
		if i < len(s.Fields)-1 {
			b.WriteString(",")
		}
		b.WriteString("\n")
	}
	b.WriteString("}")
	return b.String()
}

// ValidationError reports every required field missing from a response in a
// single failure, so the caller sees the complete set of problems at once.
type ValidationError struct {
	QueryType string
	Missing   []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("missing required fields: %s", strings.Join(e.Missing, ", "))
}

// Validate checks parsed response data against a schema, coercing types and
// filling defaults. Returns the normalized object.
func Validate(data map[string]any, s *ResponseSchema) (map[string]any, error) {
	validated := make(map[string]any, len(s.Fields))
	var missing []string

	for _, field := range s.Fields {
		value, present := data[field.Name]
		if !present {
			if field.Required {
				missing = append(missing, field.Name)
			} else {
				validated[field.Name] = field.Default
			}
			continue
		}

		coerced, ok := coerce(value, field.Type)
		if !ok {
			if field.Required {
				return nil, fmt.Errorf("field %q has invalid type: expected %s, got %T", field.Name, field.Type, value)
			}
			coerced = field.Default
		}
		validated[field.Name] = coerced
	}

	if len(missing) > 0 {
		return nil, &ValidationError{QueryType: s.QueryType, Missing: missing}
	}

	return validated, nil
}

// coerce attempts to convert value to the target type. The second return is
// false only when a conversion was needed and failed; values of unlisted
// shapes pass through untouched.
func coerce(value any, target FieldType) (any, bool) {
	switch target {
	case TypeFloat:
		switch v := value.(type) {
		case float64:
			return v, true
		case int:
			return float64(v), true
		case string:
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return nil, false
			}
			return f, true
		}

	case TypeInt:
		switch v := value.(type) {
		case int:
			return v, true
		case float64:
			return int(v), true
		case string:
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return nil, false
			}
			return int(f), true
		}

	case TypeString:
		if s, ok := value.(string); ok {
			return s, true
		}
		return fmt.Sprintf("%v", value), true

	case TypeBool:
		if s, ok := value.(string); ok {
			switch strings.ToLower(s) {
			case "true", "yes", "1":
				return true, true
			default:
				return false, true
			}
		}

	case TypeList:
		if _, ok := value.([]any); ok {
			return value, true
		}
		if isFalsy(value) {
			return []any{}, true
		}
		return []any{value}, true
	}

	return value, true
}

// isFalsy mirrors JSON-ish truthiness for the list-wrapping rule.
func isFalsy(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return v == ""
	case bool:
		return !v
	case float64:
		return v == 0
	case int:
		return v == 0
	case map[string]any:
		return len(v) == 0
	}
	return false
}
