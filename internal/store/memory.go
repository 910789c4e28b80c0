package store

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Memory is an in-process Store backed by maps. It is the default backend
// when no storage is configured and the workhorse of the test suites.
type Memory struct {
	mu       sync.RWMutex
	products map[string]*Product
	prompts  map[string]*Prompt
	results  map[string]*QueryResult
}

var _ Store = (*Memory)(nil)

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		products: make(map[string]*Product),
		prompts:  make(map[string]*Prompt),
		results:  make(map[string]*QueryResult),
	}
}

func resultKey(upc, promptName, provider string) string {
	return upc + "\x00" + promptName + "\x00" + provider
}

func (m *Memory) FindActivePrompts(ctx context.Context, queryType string) ([]Prompt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var prompts []Prompt
	for _, p := range m.prompts {
		if p.IsActive && p.QueryType == queryType {
			prompts = append(prompts, *p)
		}
	}
	sort.Slice(prompts, func(i, j int) bool { return prompts[i].Name < prompts[j].Name })
	return prompts, nil
}

func (m *Memory) SavePrompt(ctx context.Context, p *Prompt) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	if existing, ok := m.prompts[p.Name]; ok {
		p.CreatedAt = existing.CreatedAt
	} else if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now

	stored := *p
	m.prompts[p.Name] = &stored
	return nil
}

func (m *Memory) FindResult(ctx context.Context, upc, promptName, provider string) (*QueryResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.results[resultKey(upc, promptName, provider)]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *r
	return &copied, nil
}

func (m *Memory) UpsertResult(ctx context.Context, r *QueryResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	key := resultKey(r.ProductUPC, r.PromptName, r.Provider)
	if existing, ok := m.results[key]; ok {
		r.CreatedAt = existing.CreatedAt
	} else if r.CreatedAt.IsZero() {
		r.CreatedAt = now
	}
	r.UpdatedAt = now
	r.IsStale = false

	stored := *r
	m.results[key] = &stored
	return nil
}

func (m *Memory) MarkStale(ctx context.Context, upc, queryType, provider string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	count := 0
	for _, r := range m.results {
		if r.ProductUPC != upc {
			continue
		}
		if queryType != "" && r.QueryType != queryType {
			continue
		}
		if provider != "" && r.Provider != provider {
			continue
		}
		if !r.IsStale {
			r.IsStale = true
			count++
		}
	}
	return count, nil
}

func (m *Memory) ListResults(ctx context.Context, upc string) ([]QueryResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var results []QueryResult
	for _, r := range m.results {
		if upc != "" && r.ProductUPC != upc {
			continue
		}
		results = append(results, *r)
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].ProductUPC != results[j].ProductUPC {
			return results[i].ProductUPC < results[j].ProductUPC
		}
		if results[i].PromptName != results[j].PromptName {
			return results[i].PromptName < results[j].PromptName
		}
		return results[i].Provider < results[j].Provider
	})
	return results, nil
}

func (m *Memory) GetProduct(ctx context.Context, upc string) (*Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.products[upc]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *p
	return &copied, nil
}

func (m *Memory) SaveProduct(ctx context.Context, p *Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	if existing, ok := m.products[p.UPCCode]; ok {
		p.CreatedAt = existing.CreatedAt
	} else if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now

	stored := *p
	m.products[p.UPCCode] = &stored
	return nil
}

func (m *Memory) Close() error {
	return nil
}
