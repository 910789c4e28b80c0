package insight

import (
	"fmt"
	"regexp"

	"github.com/labelwise/insightd/internal/store"
)

// placeholderRe matches named template placeholders like {product_name}.
// Literal JSON braces in templates never match because keys are quoted.
var placeholderRe = regexp.MustCompile(`\{([a-z_]+)\}`)

// renderPrompt substitutes product data into a prompt template. A
// placeholder with no known value is a template configuration error.
func renderPrompt(template string, product *store.Product) (string, error) {
	values := map[string]string{
		"product_name":    valueOr(product.Name, "Unknown Product"),
		"brand":           valueOr(product.Brand, "Unknown Brand"),
		"upc_code":        product.UPCCode,
		"additional_data": additionalData(product),
	}

	var unknown string
	rendered := placeholderRe.ReplaceAllStringFunc(template, func(match string) string {
		name := match[1 : len(match)-1]
		value, ok := values[name]
		if !ok {
			if unknown == "" {
				unknown = name
			}
			return match
		}
		return value
	})

	if unknown != "" {
		return "", fmt.Errorf("prompt template error: unknown placeholder %q", unknown)
	}
	return rendered, nil
}

func valueOr(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

func additionalData(product *store.Product) string {
	if len(product.CatalogData) == 0 {
		return ""
	}
	return fmt.Sprintf("%v", product.CatalogData)
}
