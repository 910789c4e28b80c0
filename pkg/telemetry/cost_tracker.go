// Package telemetry provides API cost tracking for LLM usage.
//
// The telemetry package accumulates daily and lifetime spend across every
// provider the insight engine talks to, with alert thresholds and automatic
// daily resets. Pricing comes from pkg/pricing so the tracker and the
// providers always agree on rates.
package telemetry

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/labelwise/insightd/pkg/pricing"
)

// CostTracker tracks API spend across providers
type CostTracker struct {
	mu sync.RWMutex

	dailyMaxUSD       float64
	alertThresholdUSD float64

	// Daily tracking (resets at midnight)
	dailySpend        float64
	dailyInputTokens  int64
	dailyOutputTokens int64
	dailyRequestCount int
	lastResetDate     string

	// Overall tracking
	totalSpend        float64
	totalInputTokens  int64
	totalOutputTokens int64
	totalRequestCount int

	logger zerolog.Logger
}

// NewCostTracker creates a new cost tracker with the given limits
func NewCostTracker(dailyMaxUSD, alertThresholdUSD float64, logger zerolog.Logger) *CostTracker {
	return &CostTracker{
		dailyMaxUSD:       dailyMaxUSD,
		alertThresholdUSD: alertThresholdUSD,
		lastResetDate:     time.Now().Format("2006-01-02"),
		logger:            logger,
	}
}

// Record registers a completed provider request and returns its cost.
// The request has already been paid for by the time this runs, so going over
// budget logs a warning instead of failing; callers that want to refuse new
// work should check OverBudget first.
func (ct *CostTracker) Record(provider, model string, inputTokens, outputTokens int) float64 {
	ct.mu.Lock()
	defer ct.mu.Unlock()

	ct.checkDailyReset()

	var cost float64
	if table, ok := pricing.ForProvider(provider); ok {
		cost = table.Get(model).CalculateCost(inputTokens, outputTokens)
	}

	ct.dailySpend += cost
	ct.dailyInputTokens += int64(inputTokens)
	ct.dailyOutputTokens += int64(outputTokens)
	ct.dailyRequestCount++

	ct.totalSpend += cost
	ct.totalInputTokens += int64(inputTokens)
	ct.totalOutputTokens += int64(outputTokens)
	ct.totalRequestCount++

	ct.logger.Debug().
		Str("provider", provider).
		Str("model", model).
		Int("input_tokens", inputTokens).
		Int("output_tokens", outputTokens).
		Float64("cost_usd", cost).
		Float64("daily_spend_usd", ct.dailySpend).
		Msg("API request cost recorded")

	// Fire the alert exactly once per crossing
	if ct.alertThresholdUSD > 0 &&
		ct.dailySpend >= ct.alertThresholdUSD && ct.dailySpend-cost < ct.alertThresholdUSD {
		ct.logger.Warn().
			Float64("daily_spend_usd", ct.dailySpend).
			Float64("alert_threshold_usd", ct.alertThresholdUSD).
			Float64("daily_max_usd", ct.dailyMaxUSD).
			Msg("Daily cost alert threshold reached")
	}

	if ct.dailyMaxUSD > 0 && ct.dailySpend > ct.dailyMaxUSD {
		ct.logger.Warn().
			Float64("daily_spend_usd", ct.dailySpend).
			Float64("daily_max_usd", ct.dailyMaxUSD).
			Msg("Daily cost limit exceeded")
	}

	return cost
}

// OverBudget reports whether today's spend has reached the daily limit.
func (ct *CostTracker) OverBudget() bool {
	ct.mu.Lock()
	defer ct.mu.Unlock()

	ct.checkDailyReset()
	return ct.dailyMaxUSD > 0 && ct.dailySpend >= ct.dailyMaxUSD
}

// checkDailyReset resets daily counters if the date has changed
func (ct *CostTracker) checkDailyReset() {
	today := time.Now().Format("2006-01-02")
	if today != ct.lastResetDate {
		ct.logger.Info().
			Float64("previous_daily_spend_usd", ct.dailySpend).
			Int("previous_daily_requests", ct.dailyRequestCount).
			Msg("Daily cost tracking reset")

		ct.dailySpend = 0
		ct.dailyInputTokens = 0
		ct.dailyOutputTokens = 0
		ct.dailyRequestCount = 0
		ct.lastResetDate = today
	}
}

// GetDailyStats returns current daily statistics
func (ct *CostTracker) GetDailyStats() DailyStats {
	ct.mu.Lock()
	defer ct.mu.Unlock()

	ct.checkDailyReset()

	return DailyStats{
		SpendUSD:     ct.dailySpend,
		InputTokens:  ct.dailyInputTokens,
		OutputTokens: ct.dailyOutputTokens,
		RequestCount: ct.dailyRequestCount,
		LimitUSD:     ct.dailyMaxUSD,
		RemainingUSD: ct.dailyMaxUSD - ct.dailySpend,
	}
}

// GetTotalStats returns overall statistics
func (ct *CostTracker) GetTotalStats() TotalStats {
	ct.mu.RLock()
	defer ct.mu.RUnlock()

	return TotalStats{
		TotalSpendUSD:     ct.totalSpend,
		TotalInputTokens:  ct.totalInputTokens,
		TotalOutputTokens: ct.totalOutputTokens,
		TotalRequests:     ct.totalRequestCount,
	}
}

// DailyStats holds daily cost statistics
type DailyStats struct {
	SpendUSD     float64
	InputTokens  int64
	OutputTokens int64
	RequestCount int
	LimitUSD     float64
	RemainingUSD float64
}

// TotalStats holds overall cost statistics
type TotalStats struct {
	TotalSpendUSD     float64
	TotalInputTokens  int64
	TotalOutputTokens int64
	TotalRequests     int
}
