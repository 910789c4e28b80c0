package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/labelwise/insightd/internal/insight"
	"github.com/labelwise/insightd/internal/store"
)

// ErrorResponse is the response body for errors
type ErrorResponse struct {
	Error string `json:"error"`
}

// InsightRequest is the request body for the /insight endpoint
type InsightRequest struct {
	UPC          string `json:"upc" binding:"required"`
	QueryType    string `json:"query_type" binding:"required"`
	Provider     string `json:"provider"`
	ForceRefresh bool   `json:"force_refresh"`
}

// InsightResponse is the response body for the /insight endpoint
type InsightResponse struct {
	Content   map[string]any `json:"content"`
	Cached    bool           `json:"cached"`
	Provider  string         `json:"provider"`
	QueryType string         `json:"query_type"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// handleInsight handles POST /insight requests
func (s *Server) handleInsight(c *gin.Context) {
	var req InsightRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "Invalid request: " + err.Error(),
		})
		return
	}

	product, err := s.resolveProduct(c.Request.Context(), req.UPC)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{
				Error: "Unknown product: " + req.UPC,
			})
			return
		}
		s.logger.Error().Err(err).Str("upc", req.UPC).Msg("Product resolution failed")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: "Failed to resolve product: " + err.Error(),
		})
		return
	}

	result, err := s.service.GetInsight(c.Request.Context(), product, req.QueryType, insight.Options{
		Provider:     req.Provider,
		ForceRefresh: req.ForceRefresh,
	})
	if err != nil {
		if errors.Is(err, insight.ErrPromptNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error()})
			return
		}
		if errors.Is(err, insight.ErrBudgetExceeded) {
			c.JSON(http.StatusTooManyRequests, ErrorResponse{Error: err.Error()})
			return
		}
		s.logger.Error().Err(err).Str("upc", req.UPC).Msg("GetInsight failed")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: "Failed to generate insight: " + err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, InsightResponse{
		Content:   result.Content,
		Cached:    result.Cached,
		Provider:  result.Record.Provider,
		QueryType: result.Record.QueryType,
		UpdatedAt: result.Record.UpdatedAt,
	})
}

// resolveProduct finds a product in the store, falling back to the catalog
// API for unknown UPCs when a catalog client is configured.
func (s *Server) resolveProduct(ctx context.Context, upc string) (*store.Product, error) {
	product, err := s.store.GetProduct(ctx, upc)
	if err == nil {
		return product, nil
	}
	if !errors.Is(err, store.ErrNotFound) || s.catalog == nil {
		return nil, err
	}

	entry, err := s.catalog.Lookup(ctx, upc)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, store.ErrNotFound
	}

	name, _ := entry["name"].(string)
	brand, _ := entry["brand"].(string)
	imageURL, _ := entry["image_url"].(string)
	product = &store.Product{
		ID:          uuid.NewString(),
		UPCCode:     upc,
		Name:        name,
		Brand:       brand,
		ImageURL:    imageURL,
		CatalogData: entry,
	}
	if err := s.store.SaveProduct(ctx, product); err != nil {
		return nil, err
	}

	s.logger.Info().Str("upc", upc).Str("name", name).Msg("Imported product from catalog")
	return product, nil
}

// InvalidateRequest is the request body for the /invalidate endpoint
type InvalidateRequest struct {
	UPC       string `json:"upc" binding:"required"`
	QueryType string `json:"query_type"`
	Provider  string `json:"provider"`
}

// InvalidateResponse is the response body for the /invalidate endpoint
type InvalidateResponse struct {
	Invalidated int `json:"invalidated"`
}

// handleInvalidate handles POST /invalidate requests
func (s *Server) handleInvalidate(c *gin.Context) {
	var req InvalidateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "Invalid request: " + err.Error(),
		})
		return
	}

	product, err := s.store.GetProduct(c.Request.Context(), req.UPC)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{
				Error: "Unknown product: " + req.UPC,
			})
			return
		}
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}

	count, err := s.service.Invalidate(c.Request.Context(), product, req.QueryType, req.Provider)
	if err != nil {
		s.logger.Error().Err(err).Str("upc", req.UPC).Msg("Invalidate failed")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}

	c.JSON(http.StatusOK, InvalidateResponse{Invalidated: count})
}

// handleCacheStats handles GET /cache/stats requests. An optional upc query
// parameter scopes the stats to one product.
func (s *Server) handleCacheStats(c *gin.Context) {
	var product *store.Product
	if upc := c.Query("upc"); upc != "" {
		found, err := s.store.GetProduct(c.Request.Context(), upc)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				c.JSON(http.StatusNotFound, ErrorResponse{Error: "Unknown product: " + upc})
				return
			}
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
			return
		}
		product = found
	}

	stats, err := s.service.Stats(c.Request.Context(), product)
	if err != nil {
		s.logger.Error().Err(err).Msg("Stats failed")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}

	c.JSON(http.StatusOK, stats)
}

// ProvidersResponse is the response body for /providers
type ProvidersResponse struct {
	Providers []string `json:"providers"`
}

// handleProviders handles GET /providers requests
func (s *Server) handleProviders(c *gin.Context) {
	c.JSON(http.StatusOK, ProvidersResponse{Providers: s.service.ListProviders()})
}

// ValidateProviderResponse is the response body for /providers/:name/validate
type ValidateProviderResponse struct {
	Provider string `json:"provider"`
	Valid    bool   `json:"valid"`
}

// handleValidateProvider handles GET /providers/:name/validate requests
func (s *Server) handleValidateProvider(c *gin.Context) {
	name := c.Param("name")
	c.JSON(http.StatusOK, ValidateProviderResponse{
		Provider: name,
		Valid:    s.service.ValidateProvider(c.Request.Context(), name),
	})
}

// HealthResponse is the response body for /health
type HealthResponse struct {
	Status string `json:"status"`
}

// handleHealth handles GET /health requests
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{Status: "healthy"})
}

// MetricsResponse is the response body for /metrics
type MetricsResponse struct {
	Daily DailyMetrics `json:"daily"`
	Total TotalMetrics `json:"total"`
}

// DailyMetrics holds daily spend statistics
type DailyMetrics struct {
	SpendUSD     float64 `json:"spend_usd"`
	InputTokens  int64   `json:"input_tokens"`
	OutputTokens int64   `json:"output_tokens"`
	RequestCount int     `json:"request_count"`
	LimitUSD     float64 `json:"limit_usd"`
	RemainingUSD float64 `json:"remaining_usd"`
}

// TotalMetrics holds lifetime spend statistics
type TotalMetrics struct {
	TotalSpendUSD     float64 `json:"total_spend_usd"`
	TotalInputTokens  int64   `json:"total_input_tokens"`
	TotalOutputTokens int64   `json:"total_output_tokens"`
	TotalRequests     int     `json:"total_requests"`
}

// handleMetrics handles GET /metrics requests
func (s *Server) handleMetrics(c *gin.Context) {
	dailyStats := s.costs.GetDailyStats()
	totalStats := s.costs.GetTotalStats()

	c.JSON(http.StatusOK, MetricsResponse{
		Daily: DailyMetrics{
			SpendUSD:     dailyStats.SpendUSD,
			InputTokens:  dailyStats.InputTokens,
			OutputTokens: dailyStats.OutputTokens,
			RequestCount: dailyStats.RequestCount,
			LimitUSD:     dailyStats.LimitUSD,
			RemainingUSD: dailyStats.RemainingUSD,
		},
		Total: TotalMetrics{
			TotalSpendUSD:     totalStats.TotalSpendUSD,
			TotalInputTokens:  totalStats.TotalInputTokens,
			TotalOutputTokens: totalStats.TotalOutputTokens,
			TotalRequests:     totalStats.TotalRequests,
		},
	})
}
