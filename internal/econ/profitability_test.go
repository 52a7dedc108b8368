package econ

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"haulscope/internal/model"
)

func TestRevenuePerMinute(t *testing.T) {
	assert.Equal(t, 20.0, RevenuePerMinute(1200, 60))
	assert.Equal(t, 0.0, RevenuePerMinute(1000, 0), "zero time must not divide")
	assert.Equal(t, 0.0, RevenuePerMinute(1000, -5))
}

func TestProfitMarginPercent(t *testing.T) {
	assert.Equal(t, 50.0, ProfitMarginPercent(200, 100))
	assert.Equal(t, 0.0, ProfitMarginPercent(0, 100))
	assert.Equal(t, 0.0, ProfitMarginPercent(-50, 100))
	assert.InDelta(t, -100.0, ProfitMarginPercent(100, 200), 1e-9)
}

func TestRevenueTierBoundaries(t *testing.T) {
	assert.Equal(t, TierHigh, RevenueTier(5.0), "exactly 5 is High")
	assert.Equal(t, TierModerate, RevenueTier(4.999))
	assert.Equal(t, TierModerate, RevenueTier(2.0))
	assert.Equal(t, TierLow, RevenueTier(1.999))
	assert.Equal(t, TierLow, RevenueTier(0))
}

func TestEfficiencyRatingBoundaries(t *testing.T) {
	assert.Equal(t, RatingExcellent, EfficiencyRating(60))
	assert.Equal(t, RatingGood, EfficiencyRating(59.9))
	assert.Equal(t, RatingGood, EfficiencyRating(40))
	assert.Equal(t, RatingFair, EfficiencyRating(20))
	assert.Equal(t, RatingPoor, EfficiencyRating(19.9))
	assert.Equal(t, RatingPoor, EfficiencyRating(-10))
}

func TestCompositeScoreClamps(t *testing.T) {
	// 50 + 40 (rpm) + 10 (close) + 10 (HOA) = 110, clamped to 100.
	assert.Equal(t, 100.0, CompositeScore(150, 5, model.TypeHOA))
	// 50 - 20 (rpm) - 20 (very far) = 10; stays above the floor.
	assert.Equal(t, 10.0, CompositeScore(0, 30, model.TypeOther))
}

func TestCompositeScoreDistanceBands(t *testing.T) {
	base := CompositeScore(30, 10, model.TypeOther) // +10 rpm, +10 close
	assert.Equal(t, 70.0, base)
	assert.Equal(t, 65.0, CompositeScore(30, 15, model.TypeOther))
	assert.Equal(t, 60.0, CompositeScore(30, 20, model.TypeOther))
	assert.Equal(t, 50.0, CompositeScore(30, 21, model.TypeOther))
	assert.Equal(t, 40.0, CompositeScore(30, 26, model.TypeOther))
}

func TestCompositeRiskLevel(t *testing.T) {
	assert.Equal(t, RiskLow, CompositeRiskLevel(70))
	assert.Equal(t, RiskMedium, CompositeRiskLevel(55))
	assert.Equal(t, RiskHigh, CompositeRiskLevel(40))
}

func TestProfitabilityFlags(t *testing.T) {
	c := model.CustomerRecord{
		MonthlyRevenue:        0,
		CompletionTimeMinutes: 0,
		ServiceStatus:         model.StatusCancelled,
	}
	res := Profitability(c, model.CostBreakdown{TotalCost: 100})
	assert.False(t, res.IsViable)
	assert.Contains(t, res.RiskFlags, "no revenue recorded")
	assert.Contains(t, res.RiskFlags, "no service time recorded")
	assert.Contains(t, res.RiskFlags, "service cancelled")
}

func TestProfitabilityViable(t *testing.T) {
	c := model.CustomerRecord{
		MonthlyRevenue:        300,
		CompletionTimeMinutes: 60,
		ServiceStatus:         model.StatusServiced,
	}
	res := Profitability(c, model.CostBreakdown{TotalCost: 100})
	assert.True(t, res.IsViable)
	assert.Equal(t, 5.0, res.RevenuePerMinute)
	assert.Equal(t, TierHigh, res.Tier)
	assert.Empty(t, res.RiskFlags)
}
