package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres is a Store backed by a pgx connection pool. Result payloads and
// metadata live in jsonb columns.
type Postgres struct {
	pool *pgxpool.Pool
}

var _ Store = (*Postgres)(nil)

// NewPostgres connects a pool to the given DSN and verifies it with a ping.
func NewPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse DSN: %w", err)
	}

	poolConfig.MaxConns = 10
	poolConfig.MinConns = 1
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

// Migrate creates the tables if they do not exist.
func (s *Postgres) Migrate(ctx context.Context) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS products (
			id TEXT PRIMARY KEY,
			upc_code TEXT NOT NULL UNIQUE,
			name TEXT NOT NULL,
			brand TEXT NOT NULL DEFAULT '',
			image_url TEXT NOT NULL DEFAULT '',
			catalog_data JSONB,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS prompts (
			name TEXT PRIMARY KEY,
			description TEXT NOT NULL DEFAULT '',
			query_type TEXT NOT NULL,
			template TEXT NOT NULL,
			schema_version TEXT NOT NULL DEFAULT '1.0',
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS prompts_query_type_idx ON prompts (query_type) WHERE is_active`,
		`CREATE TABLE IF NOT EXISTS query_results (
			product_upc TEXT NOT NULL,
			prompt_name TEXT NOT NULL,
			provider TEXT NOT NULL,
			query_type TEXT NOT NULL,
			query_input TEXT NOT NULL DEFAULT '',
			result JSONB NOT NULL,
			schema_version TEXT NOT NULL DEFAULT '1.0',
			parse_attempts INT NOT NULL DEFAULT 1,
			parse_strategy TEXT NOT NULL DEFAULT '',
			metadata JSONB,
			is_stale BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			PRIMARY KEY (product_upc, prompt_name, provider)
		)`,
		`CREATE INDEX IF NOT EXISTS query_results_type_idx ON query_results (product_upc, query_type)`,
	}
	for _, stmt := range ddl {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

func (s *Postgres) FindActivePrompts(ctx context.Context, queryType string) ([]Prompt, error) {
	query := `
		SELECT name, description, query_type, template, schema_version, is_active, created_at, updated_at
		FROM prompts WHERE query_type = $1 AND is_active ORDER BY name`
	rows, err := s.pool.Query(ctx, query, queryType)
	if err != nil {
		return nil, fmt.Errorf("find prompts: %w", err)
	}
	defer rows.Close()

	var prompts []Prompt
	for rows.Next() {
		var p Prompt
		if err := rows.Scan(&p.Name, &p.Description, &p.QueryType, &p.Template,
			&p.SchemaVersion, &p.IsActive, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan prompt: %w", err)
		}
		prompts = append(prompts, p)
	}
	return prompts, rows.Err()
}

func (s *Postgres) SavePrompt(ctx context.Context, p *Prompt) error {
	query := `
		INSERT INTO prompts (name, description, query_type, template, schema_version, is_active)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (name) DO UPDATE SET
			description = EXCLUDED.description,
			query_type = EXCLUDED.query_type,
			template = EXCLUDED.template,
			schema_version = EXCLUDED.schema_version,
			is_active = EXCLUDED.is_active,
			updated_at = now()`
	_, err := s.pool.Exec(ctx, query,
		p.Name, p.Description, p.QueryType, p.Template, p.SchemaVersion, p.IsActive)
	if err != nil {
		return fmt.Errorf("save prompt: %w", err)
	}
	return nil
}

func (s *Postgres) FindResult(ctx context.Context, upc, promptName, provider string) (*QueryResult, error) {
	query := `
		SELECT product_upc, prompt_name, provider, query_type, query_input, result,
		       schema_version, parse_attempts, parse_strategy, metadata, is_stale, created_at, updated_at
		FROM query_results WHERE product_upc = $1 AND prompt_name = $2 AND provider = $3`
	var r QueryResult
	err := s.pool.QueryRow(ctx, query, upc, promptName, provider).Scan(
		&r.ProductUPC, &r.PromptName, &r.Provider, &r.QueryType, &r.QueryInput, &r.Result,
		&r.SchemaVersion, &r.ParseAttempts, &r.ParseStrategy, &r.Metadata, &r.IsStale,
		&r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find result: %w", err)
	}
	return &r, nil
}

func (s *Postgres) UpsertResult(ctx context.Context, r *QueryResult) error {
	query := `
		INSERT INTO query_results (product_upc, prompt_name, provider, query_type, query_input,
			result, schema_version, parse_attempts, parse_strategy, metadata, is_stale)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, FALSE)
		ON CONFLICT (product_upc, prompt_name, provider) DO UPDATE SET
			query_type = EXCLUDED.query_type,
			query_input = EXCLUDED.query_input,
			result = EXCLUDED.result,
			schema_version = EXCLUDED.schema_version,
			parse_attempts = EXCLUDED.parse_attempts,
			parse_strategy = EXCLUDED.parse_strategy,
			metadata = EXCLUDED.metadata,
			is_stale = FALSE,
			updated_at = now()`
	_, err := s.pool.Exec(ctx, query,
		r.ProductUPC, r.PromptName, r.Provider, r.QueryType, r.QueryInput,
		r.Result, r.SchemaVersion, r.ParseAttempts, r.ParseStrategy, r.Metadata)
	if err != nil {
		return fmt.Errorf("upsert result: %w", err)
	}
	r.IsStale = false
	r.UpdatedAt = time.Now()
	return nil
}

func (s *Postgres) MarkStale(ctx context.Context, upc, queryType, provider string) (int, error) {
	query := `
		UPDATE query_results SET is_stale = TRUE, updated_at = now()
		WHERE product_upc = $1
		  AND ($2 = '' OR query_type = $2)
		  AND ($3 = '' OR provider = $3)
		  AND NOT is_stale`
	tag, err := s.pool.Exec(ctx, query, upc, queryType, provider)
	if err != nil {
		return 0, fmt.Errorf("mark stale: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func (s *Postgres) ListResults(ctx context.Context, upc string) ([]QueryResult, error) {
	query := `
		SELECT product_upc, prompt_name, provider, query_type, query_input, result,
		       schema_version, parse_attempts, parse_strategy, metadata, is_stale, created_at, updated_at
		FROM query_results
		WHERE $1 = '' OR product_upc = $1
		ORDER BY product_upc, prompt_name, provider`
	rows, err := s.pool.Query(ctx, query, upc)
	if err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}
	defer rows.Close()

	var results []QueryResult
	for rows.Next() {
		var r QueryResult
		if err := rows.Scan(&r.ProductUPC, &r.PromptName, &r.Provider, &r.QueryType, &r.QueryInput,
			&r.Result, &r.SchemaVersion, &r.ParseAttempts, &r.ParseStrategy, &r.Metadata,
			&r.IsStale, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

func (s *Postgres) GetProduct(ctx context.Context, upc string) (*Product, error) {
	query := `
		SELECT id, upc_code, name, brand, image_url, catalog_data, created_at, updated_at
		FROM products WHERE upc_code = $1`
	var p Product
	err := s.pool.QueryRow(ctx, query, upc).Scan(
		&p.ID, &p.UPCCode, &p.Name, &p.Brand, &p.ImageURL, &p.CatalogData,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get product: %w", err)
	}
	return &p, nil
}

func (s *Postgres) SaveProduct(ctx context.Context, p *Product) error {
	query := `
		INSERT INTO products (id, upc_code, name, brand, image_url, catalog_data)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (upc_code) DO UPDATE SET
			name = EXCLUDED.name,
			brand = EXCLUDED.brand,
			image_url = EXCLUDED.image_url,
			catalog_data = EXCLUDED.catalog_data,
			updated_at = now()`
	_, err := s.pool.Exec(ctx, query,
		p.ID, p.UPCCode, p.Name, p.Brand, p.ImageURL, p.CatalogData)
	if err != nil {
		return fmt.Errorf("save product: %w", err)
	}
	return nil
}

func (s *Postgres) Close() error {
	s.pool.Close()
	return nil
}
