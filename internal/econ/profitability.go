package econ

import (
	"math"

	"haulscope/internal/model"
)

// Revenue/minute tier thresholds (map and overview views).
const (
	TierHigh     = "High"
	TierModerate = "Moderate"
	TierLow      = "Low"
)

// Cost-efficiency ratings (cost estimator view).
const (
	RatingExcellent = "excellent"
	RatingGood      = "good"
	RatingFair      = "fair"
	RatingPoor      = "poor"
)

// Composite-score risk levels (strategic map).
const (
	RiskLow    = "low"
	RiskMedium = "medium"
	RiskHigh   = "high"
)

// RevenuePerMinute is the core efficiency metric. A zero or negative
// completion time short-circuits to 0 rather than propagating a non-finite
// value.
func RevenuePerMinute(monthlyRevenue, completionMinutes float64) float64 {
	if completionMinutes <= 0 || !isFinite(monthlyRevenue) || !isFinite(completionMinutes) {
		return 0
	}
	return monthlyRevenue / completionMinutes
}

// ProfitMarginPercent returns (revenue - cost) / revenue x 100, or 0 when
// revenue is zero or negative.
func ProfitMarginPercent(revenue, cost float64) float64 {
	if revenue <= 0 || !isFinite(revenue) || !isFinite(cost) {
		return 0
	}
	return (revenue - cost) / revenue * 100
}

// RevenueTier classifies revenue-per-minute. Boundaries are inclusive at
// the lower bound: exactly 5.0 is High.
func RevenueTier(revenuePerMinute float64) string {
	switch {
	case revenuePerMinute >= 5:
		return TierHigh
	case revenuePerMinute >= 2:
		return TierModerate
	default:
		return TierLow
	}
}

// EfficiencyRating classifies a profit margin percentage for the cost
// estimator. Not interchangeable with RevenueTier or CompositeScore.
func EfficiencyRating(marginPercent float64) string {
	switch {
	case marginPercent >= 60:
		return RatingExcellent
	case marginPercent >= 40:
		return RatingGood
	case marginPercent >= 20:
		return RatingFair
	default:
		return RatingPoor
	}
}

// CompositeScore is the 0-100 strategic-map score: base 50 adjusted by
// revenue-per-minute band, distance from depot, and customer type, clamped
// to [0,100].
func CompositeScore(revenuePerMinute, distanceFromDepotMiles float64, typ model.CustomerType) float64 {
	score := 50.0

	switch {
	case revenuePerMinute >= 100:
		score += 40
	case revenuePerMinute >= 75:
		score += 30
	case revenuePerMinute >= 50:
		score += 20
	case revenuePerMinute >= 25:
		score += 10
	default:
		score -= 20
	}

	d := distanceFromDepotMiles
	switch {
	case d <= 10:
		score += 10
	case d <= 15:
		score += 5
	case d > 25:
		score -= 20
	case d > 20:
		score -= 10
	}

	if typ == model.TypeHOA {
		score += 10
	}

	return clamp(score, 0, 100)
}

// CompositeRiskLevel maps a composite score to a risk level.
func CompositeRiskLevel(score float64) string {
	switch {
	case score >= 70:
		return RiskLow
	case score <= 40:
		return RiskHigh
	default:
		return RiskMedium
	}
}

// Profitability assembles the per-customer result used by the overview
// views: revenue/minute, margin against the supplied cost, the
// revenue-per-minute tier, and risk flags.
func Profitability(c model.CustomerRecord, cost model.CostBreakdown) model.ProfitabilityResult {
	rpm := RevenuePerMinute(c.MonthlyRevenue, c.CompletionTimeMinutes)
	margin := ProfitMarginPercent(c.MonthlyRevenue, cost.TotalCost)

	var flags []string
	if c.MonthlyRevenue <= 0 {
		flags = append(flags, "no revenue recorded")
	}
	if c.CompletionTimeMinutes <= 0 {
		flags = append(flags, "no service time recorded")
	}
	if margin < 0 {
		flags = append(flags, "negative margin")
	}
	if c.ServiceStatus == model.StatusCancelled {
		flags = append(flags, "service cancelled")
	}

	return model.ProfitabilityResult{
		RevenuePerMinute:    rpm,
		ProfitMarginPercent: margin,
		Tier:                RevenueTier(rpm),
		RiskFlags:           flags,
		IsViable:            margin > 0 && rpm > 0,
	}
}

func clamp(x, lo, hi float64) float64 {
	return math.Min(hi, math.Max(lo, x))
}

func isFinite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}
