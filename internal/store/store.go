// Package store defines the persistence contract for products, prompt
// templates and cached query results, with interchangeable backends.
package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a lookup matches no record.
var ErrNotFound = errors.New("record not found")

// Product is a catalog item identified by its UPC code.
type Product struct {
	ID          string         `json:"id"`
	UPCCode     string         `json:"upc_code"`
	Name        string         `json:"name"`
	Brand       string         `json:"brand"`
	ImageURL    string         `json:"image_url,omitempty"`
	CatalogData map[string]any `json:"catalog_data,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// Prompt is a named template for one query type. Multiple prompts may share
// a query type; lookups take the first active one ordered by name.
type Prompt struct {
	Name          string    `json:"name"`
	Description   string    `json:"description,omitempty"`
	QueryType     string    `json:"query_type"`
	Template      string    `json:"template"`
	SchemaVersion string    `json:"schema_version"`
	IsActive      bool      `json:"is_active"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// QueryResult is one cached LLM response, keyed by (product, prompt,
// provider). QueryType is denormalized from the prompt so staleness marking
// can filter by query type without a join.
type QueryResult struct {
	ProductUPC    string         `json:"product_upc"`
	PromptName    string         `json:"prompt_name"`
	Provider      string         `json:"provider"`
	QueryType     string         `json:"query_type"`
	QueryInput    string         `json:"query_input"`
	Result        map[string]any `json:"result"`
	SchemaVersion string         `json:"schema_version"`
	ParseAttempts int            `json:"parse_attempts"`
	ParseStrategy string         `json:"parse_strategy,omitempty"`
	Metadata      map[string]any `json:"metadata,omitempty"`
	IsStale       bool           `json:"is_stale"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// Fresh reports whether the result is usable as a cache hit: created less
// than ttl ago and not explicitly marked stale. The age is measured from
// CreatedAt, which upserts preserve, so a refresh does not restart the
// clock.
func (r *QueryResult) Fresh(ttl time.Duration) bool {
	if r.IsStale {
		return false
	}
	return time.Since(r.CreatedAt) < ttl
}

// Store is the persistence contract shared by all backends.
type Store interface {
	// FindActivePrompts returns active prompts for a query type, ordered by
	// name so callers pick deterministically.
	FindActivePrompts(ctx context.Context, queryType string) ([]Prompt, error)

	// SavePrompt inserts or replaces a prompt by name.
	SavePrompt(ctx context.Context, p *Prompt) error

	// FindResult returns the cached result for a key, or ErrNotFound.
	FindResult(ctx context.Context, upc, promptName, provider string) (*QueryResult, error)

	// UpsertResult inserts or replaces a result, refreshing UpdatedAt and
	// clearing the stale flag.
	UpsertResult(ctx context.Context, r *QueryResult) error

	// MarkStale flags cached results for a product as stale and returns how
	// many were flagged. Empty queryType or provider means "any".
	MarkStale(ctx context.Context, upc, queryType, provider string) (int, error)

	// ListResults returns all cached results for a product, or every result
	// when upc is empty.
	ListResults(ctx context.Context, upc string) ([]QueryResult, error)

	// GetProduct returns a product by UPC, or ErrNotFound.
	GetProduct(ctx context.Context, upc string) (*Product, error)

	// SaveProduct inserts or replaces a product by UPC.
	SaveProduct(ctx context.Context, p *Product) error

	Close() error
}
