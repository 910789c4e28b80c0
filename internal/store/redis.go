package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Key layout. Records are JSON documents; index sets track the known keys so
// scans stay bounded to what this store wrote.
const (
	resultKeyPrefix = "insight:result:"
	promptKeyPrefix = "insight:prompt:"
	productKeyPref  = "insight:product:"

	resultIndexKey = "insight:result-keys"
	promptIndexKey = "insight:prompt-names"
)

// Redis is a Store backed by a Redis instance, storing records as JSON
// documents.
type Redis struct {
	client *redis.Client
}

var _ Store = (*Redis)(nil)

// NewRedis connects a client and verifies the connection with a ping.
func NewRedis(ctx context.Context, addr, password string, db int) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &Redis{client: client}, nil
}

func redisResultKey(upc, promptName, provider string) string {
	return resultKeyPrefix + upc + ":" + promptName + ":" + provider
}

func (s *Redis) FindActivePrompts(ctx context.Context, queryType string) ([]Prompt, error) {
	names, err := s.client.SMembers(ctx, promptIndexKey).Result()
	if err != nil {
		return nil, fmt.Errorf("list prompt names: %w", err)
	}

	var prompts []Prompt
	for _, name := range names {
		raw, err := s.client.Get(ctx, promptKeyPrefix+name).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("get prompt %s: %w", name, err)
		}
		var p Prompt
		if err := json.Unmarshal([]byte(raw), &p); err != nil {
			return nil, fmt.Errorf("decode prompt %s: %w", name, err)
		}
		if p.IsActive && p.QueryType == queryType {
			prompts = append(prompts, p)
		}
	}
	sort.Slice(prompts, func(i, j int) bool { return prompts[i].Name < prompts[j].Name })
	return prompts, nil
}

func (s *Redis) SavePrompt(ctx context.Context, p *Prompt) error {
	now := time.Now()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now

	raw, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode prompt: %w", err)
	}
	if err := s.client.Set(ctx, promptKeyPrefix+p.Name, raw, 0).Err(); err != nil {
		return fmt.Errorf("save prompt: %w", err)
	}
	if err := s.client.SAdd(ctx, promptIndexKey, p.Name).Err(); err != nil {
		return fmt.Errorf("index prompt: %w", err)
	}
	return nil
}

func (s *Redis) FindResult(ctx context.Context, upc, promptName, provider string) (*QueryResult, error) {
	raw, err := s.client.Get(ctx, redisResultKey(upc, promptName, provider)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get result: %w", err)
	}
	var r QueryResult
	if err := json.Unmarshal([]byte(raw), &r); err != nil {
		return nil, fmt.Errorf("decode result: %w", err)
	}
	return &r, nil
}

func (s *Redis) UpsertResult(ctx context.Context, r *QueryResult) error {
	now := time.Now()
	existing, err := s.FindResult(ctx, r.ProductUPC, r.PromptName, r.Provider)
	switch {
	case err == nil:
		r.CreatedAt = existing.CreatedAt
	case !errors.Is(err, ErrNotFound):
		return err
	case r.CreatedAt.IsZero():
		r.CreatedAt = now
	}
	r.UpdatedAt = now
	r.IsStale = false

	raw, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	key := redisResultKey(r.ProductUPC, r.PromptName, r.Provider)
	if err := s.client.Set(ctx, key, raw, 0).Err(); err != nil {
		return fmt.Errorf("save result: %w", err)
	}
	if err := s.client.SAdd(ctx, resultIndexKey, key).Err(); err != nil {
		return fmt.Errorf("index result: %w", err)
	}
	return nil
}

func (s *Redis) MarkStale(ctx context.Context, upc, queryType, provider string) (int, error) {
	results, err := s.loadResults(ctx, upc)
	if err != nil {
		return 0, err
	}

	count := 0
	for i := range results {
		r := &results[i]
		if queryType != "" && r.QueryType != queryType {
			continue
		}
		if provider != "" && r.Provider != provider {
			continue
		}
		if r.IsStale {
			continue
		}
		r.IsStale = true
		raw, err := json.Marshal(r)
		if err != nil {
			return count, fmt.Errorf("encode result: %w", err)
		}
		key := redisResultKey(r.ProductUPC, r.PromptName, r.Provider)
		if err := s.client.Set(ctx, key, raw, 0).Err(); err != nil {
			return count, fmt.Errorf("mark stale: %w", err)
		}
		count++
	}
	return count, nil
}

func (s *Redis) ListResults(ctx context.Context, upc string) ([]QueryResult, error) {
	results, err := s.loadResults(ctx, upc)
	if err != nil {
		return nil, err
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

// loadResults fetches every indexed result, optionally limited to one
// product. Keys left behind by deleted records are pruned from the index.
func (s *Redis) loadResults(ctx context.Context, upc string) ([]QueryResult, error) {
	keys, err := s.client.SMembers(ctx, resultIndexKey).Result()
	if err != nil {
		return nil, fmt.Errorf("list result keys: %w", err)
	}

	var results []QueryResult
	for _, key := range keys {
		if upc != "" && !strings.HasPrefix(key, resultKeyPrefix+upc+":") {
			continue
		}
		raw, err := s.client.Get(ctx, key).Result()
		if errors.Is(err, redis.Nil) {
			_ = s.client.SRem(ctx, resultIndexKey, key).Err()
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("get result %s: %w", key, err)
		}
		var r QueryResult
		if err := json.Unmarshal([]byte(raw), &r); err != nil {
			return nil, fmt.Errorf("decode result %s: %w", key, err)
		}
		results = append(results, r)
	}
	return results, nil
}

func (s *Redis) GetProduct(ctx context.Context, upc string) (*Product, error) {
	raw, err := s.client.Get(ctx, productKeyPref+upc).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	var p Product
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return nil, fmt.Errorf("decode product: %w", err)
	}
	return &p, nil
}

func (s *Redis) SaveProduct(ctx context.Context, p *Product) error {
	now := time.Now()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now

	raw, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode product: %w", err)
	}
	if err := s.client.Set(ctx, productKeyPref+p.UPCCode, raw, 0).Err(); err != nil {
		return fmt.Errorf("save product: %w", err)
	}
	return nil
}

func (s *Redis) Close() error {
	return s.client.Close()
}
