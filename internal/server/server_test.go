package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labelwise/insightd/internal/insight"
	"github.com/labelwise/insightd/internal/store"
	testutil "github.com/labelwise/insightd/internal/testing"
	"github.com/labelwise/insightd/pkg/telemetry"
)

func newTestServer(t *testing.T) (*Server, *store.Memory) {
	t.Helper()

	mem := store.NewMemory()
	ctx := context.Background()
	if err := mem.SavePrompt(ctx, testutil.NewTestPrompt()); err != nil {
		t.Fatalf("SavePrompt failed: %v", err)
	}
	if err := mem.SaveProduct(ctx, testutil.NewTestProduct()); err != nil {
		t.Fatalf("SaveProduct failed: %v", err)
	}

	cfg := &insight.Config{
		Port:            8080,
		DefaultProvider: "mock",
		MaxRetries:      2,
		Cache:           insight.CacheConfig{Enabled: true, TTLDays: 30},
		Providers:       map[string]insight.ProviderConfig{"mock": {}},
	}
	costs := testutil.NewTestCostTracker()
	svc := insight.NewService(cfg, mem, costs, testutil.NewTestLogger())
	svc.RegisterProvider("mock", &testutil.MockProvider{})

	return New(svc, mem, nil, costs, cfg.Port, testutil.NewTestLogger()), mem
}

func doRequest(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode response: %v (%s)", err, w.Body.String())
	}
	return v
}

func TestHandleHealth(t *testing.T) {
	s, _ := newTestServer(t)

	w := doRequest(t, s, http.MethodGet, "/health", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}

	resp := decode[HealthResponse](t, w)
	if resp.Status != "healthy" {
		t.Errorf("Expected healthy, got %s", resp.Status)
	}

	if w.Header().Get("X-Request-ID") == "" {
		t.Error("Expected X-Request-ID header")
	}
}

func TestHandleInsight(t *testing.T) {
	s, _ := newTestServer(t)

	w := doRequest(t, s, http.MethodPost, "/insight", InsightRequest{
		UPC:       "012345678905",
		QueryType: "review_summary",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	resp := decode[InsightResponse](t, w)
	if resp.Cached {
		t.Error("First request should be a cache miss")
	}
	if resp.Content["sentiment"] != "positive" {
		t.Errorf("Unexpected content: %v", resp.Content)
	}
	if resp.Provider != "mock" || resp.QueryType != "review_summary" {
		t.Errorf("Unexpected envelope: %+v", resp)
	}

	// Second request hits the cache
	w = doRequest(t, s, http.MethodPost, "/insight", InsightRequest{
		UPC:       "012345678905",
		QueryType: "review_summary",
	})
	resp = decode[InsightResponse](t, w)
	if !resp.Cached {
		t.Error("Second request should be cached")
	}
}

func TestHandleInsight_BadRequest(t *testing.T) {
	s, _ := newTestServer(t)

	w := doRequest(t, s, http.MethodPost, "/insight", map[string]string{"upc": "only"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for missing query_type, got %d", w.Code)
	}
}

func TestHandleInsight_UnknownProduct(t *testing.T) {
	s, _ := newTestServer(t)

	w := doRequest(t, s, http.MethodPost, "/insight", InsightRequest{
		UPC:       "999999999999",
		QueryType: "review_summary",
	})
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown product, got %d", w.Code)
	}
}

func TestHandleInsight_UnknownQueryType(t *testing.T) {
	s, _ := newTestServer(t)

	w := doRequest(t, s, http.MethodPost, "/insight", InsightRequest{
		UPC:       "012345678905",
		QueryType: "nonexistent",
	})
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for query type without prompt, got %d", w.Code)
	}
}

func TestHandleInvalidate(t *testing.T) {
	s, _ := newTestServer(t)

	// Populate the cache first
	doRequest(t, s, http.MethodPost, "/insight", InsightRequest{
		UPC:       "012345678905",
		QueryType: "review_summary",
	})

	w := doRequest(t, s, http.MethodPost, "/invalidate", InvalidateRequest{UPC: "012345678905"})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	resp := decode[InvalidateResponse](t, w)
	if resp.Invalidated != 1 {
		t.Errorf("Expected 1 invalidated, got %d", resp.Invalidated)
	}

	w = doRequest(t, s, http.MethodPost, "/invalidate", InvalidateRequest{UPC: "999999999999"})
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown product, got %d", w.Code)
	}
}

func TestHandleCacheStats(t *testing.T) {
	s, _ := newTestServer(t)

	doRequest(t, s, http.MethodPost, "/insight", InsightRequest{
		UPC:       "012345678905",
		QueryType: "review_summary",
	})

	w := doRequest(t, s, http.MethodGet, "/cache/stats", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	stats := decode[insight.CacheStats](t, w)
	if stats.TotalCached != 1 || stats.Fresh != 1 {
		t.Errorf("Unexpected stats: %+v", stats)
	}

	w = doRequest(t, s, http.MethodGet, "/cache/stats?upc=012345678905", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}

	w = doRequest(t, s, http.MethodGet, "/cache/stats?upc=999999999999", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown product, got %d", w.Code)
	}
}

func TestHandleProviders(t *testing.T) {
	s, _ := newTestServer(t)

	w := doRequest(t, s, http.MethodGet, "/providers", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	resp := decode[ProvidersResponse](t, w)
	if len(resp.Providers) != 1 || resp.Providers[0] != "mock" {
		t.Errorf("Expected [mock], got %v", resp.Providers)
	}
}

func TestHandleValidateProvider(t *testing.T) {
	s, _ := newTestServer(t)

	w := doRequest(t, s, http.MethodGet, "/providers/mock/validate", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	resp := decode[ValidateProviderResponse](t, w)
	if !resp.Valid {
		t.Error("Expected mock provider to validate")
	}

	w = doRequest(t, s, http.MethodGet, "/providers/missing/validate", nil)
	resp = decode[ValidateProviderResponse](t, w)
	if resp.Valid {
		t.Error("Expected unknown provider to be invalid")
	}
}

func TestHandleMetrics(t *testing.T) {
	s, _ := newTestServer(t)

	// Generate some spend
	doRequest(t, s, http.MethodPost, "/insight", InsightRequest{
		UPC:       "012345678905",
		QueryType: "review_summary",
	})

	w := doRequest(t, s, http.MethodGet, "/metrics", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	resp := decode[MetricsResponse](t, w)
	if resp.Daily.RequestCount != 1 {
		t.Errorf("Expected 1 recorded request, got %d", resp.Daily.RequestCount)
	}
	if resp.Daily.InputTokens != 100 || resp.Daily.OutputTokens != 50 {
		t.Errorf("Unexpected token counts: %+v", resp.Daily)
	}
}

func TestHandleInsight_BudgetExceeded(t *testing.T) {
	mem := store.NewMemory()
	ctx := context.Background()
	if err := mem.SavePrompt(ctx, testutil.NewTestPrompt()); err != nil {
		t.Fatalf("SavePrompt failed: %v", err)
	}
	if err := mem.SaveProduct(ctx, testutil.NewTestProduct()); err != nil {
		t.Fatalf("SaveProduct failed: %v", err)
	}

	cfg := &insight.Config{
		Port:            8080,
		DefaultProvider: "mock",
		MaxRetries:      2,
		Cache:           insight.CacheConfig{Enabled: true, TTLDays: 30},
		Providers:       map[string]insight.ProviderConfig{"mock": {}},
	}
	costs := telemetry.NewCostTracker(0.10, 0.08, testutil.NewTestLogger())
	costs.Record("openai", "gpt-5", 1_000_000, 0)
	svc := insight.NewService(cfg, mem, costs, testutil.NewTestLogger())
	svc.RegisterProvider("mock", &testutil.MockProvider{})
	srv := New(svc, mem, nil, costs, cfg.Port, testutil.NewTestLogger())

	w := doRequest(t, srv, http.MethodPost, "/insight", InsightRequest{
		UPC:       testutil.NewTestProduct().UPCCode,
		QueryType: "review_summary",
	})
	if w.Code != http.StatusTooManyRequests {
		t.Errorf("Expected 429 over budget, got %d", w.Code)
	}
}
