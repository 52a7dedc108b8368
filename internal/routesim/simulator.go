// Package routesim estimates the incremental cost and profit of adding a
// single hypothetical stop to the existing route network.
package routesim

import (
	"math"
	"strings"

	"haulscope/internal/econ"
	"haulscope/internal/geo"
	"haulscope/internal/model"
)

const (
	RecommendAccept    = "accept"
	RecommendNegotiate = "negotiate"
	RecommendDecline   = "decline"
)

// Route synergy assumptions: a stop near an existing customer only adds a
// fraction of its direct depot distance; an isolated stop pays the full
// round trip.
const (
	synergyDepotFactor   = 0.3
	isolatedDepotFactor  = 2.0
	nearbyBonusThreshold = 2.0
	farStopMiles         = 20.0
)

// Simulate evaluates one new stop against the current customer book using
// the detailed visit cost model. Cancelled customers are ignored when
// searching for the nearest neighbor.
func Simulate(a econ.Assumptions, stop model.RouteStop, customers []model.CustomerRecord, depot model.FacilityRecord) model.RouteSimulationResult {
	depotMiles := geo.Miles(stop.Latitude, stop.Longitude, depot.Latitude, depot.Longitude)

	nearest := math.Inf(1)
	for _, c := range customers {
		if c.ServiceStatus == model.StatusCancelled {
			continue
		}
		d := geo.Miles(stop.Latitude, stop.Longitude, c.Latitude, c.Longitude)
		if d < nearest {
			nearest = d
		}
	}

	var additional float64
	if math.IsInf(nearest, 1) {
		additional = depotMiles * isolatedDepotFactor
	} else {
		additional = math.Max(nearest, depotMiles*synergyDepotFactor)
	}

	plan := econ.VisitPlan{
		RoundTripMiles: additional,
		ServiceMinutes: stop.CompletionTimeMinutes,
		TrashDays:      stop.TrashDaysPerWeek,
		RecyclingDays:  stop.RecyclingDaysPerWeek,
		YardWasteDays:  stop.YardWasteDaysPerWeek,
	}
	if plan.TrashDays+plan.RecyclingDays+plan.YardWasteDays == 0 {
		plan.TrashDays = 1
	}
	cost := econ.MonthlyVisitCost(a, plan)

	revenue := stop.MonthlyRevenue
	if revenue < 0 || math.IsNaN(revenue) || math.IsInf(revenue, 0) {
		revenue = 0
	}
	net := revenue - cost.TotalCost
	margin := econ.ProfitMarginPercent(revenue, cost.TotalCost)
	rpm := econ.RevenuePerMinute(revenue, stop.CompletionTimeMinutes)

	rec, reasons := recommend(stop, margin, rpm, additional)
	if !math.IsInf(nearest, 1) && nearest < nearbyBonusThreshold {
		reasons = append(reasons, "strong route synergy: nearest customer under 2 mi away")
	}

	return model.RouteSimulationResult{
		AdditionalRevenue:       revenue,
		AdditionalDistanceMiles: additional,
		FuelCost:                cost.FuelCost,
		LaborCost:               cost.LaborCost,
		NetProfit:               net,
		ProfitMarginPercent:     margin,
		Recommendation:          rec,
		Reasoning:               strings.Join(reasons, "; "),
	}
}

// recommend applies the decline/negotiate/accept ladder plus the
// subscription and long-haul downgrades, collecting a reason for every
// triggered condition.
func recommend(stop model.RouteStop, margin, rpm, additionalMiles float64) (string, []string) {
	var reasons []string
	rec := RecommendAccept

	switch {
	case margin < 20:
		rec = RecommendDecline
		reasons = append(reasons, "profit margin below 20%")
	case margin < 40:
		rec = RecommendNegotiate
		reasons = append(reasons, "profit margin below 40%")
	case rpm < 50:
		rec = RecommendNegotiate
		reasons = append(reasons, "revenue per minute below $50")
	}

	if rec == RecommendAccept {
		if model.NormalizeType(string(stop.Type)) == model.TypeSubscription && rpm < 75 {
			rec = RecommendNegotiate
			reasons = append(reasons, "subscription stop with revenue per minute below $75")
		}
		if additionalMiles > farStopMiles {
			rec = RecommendNegotiate
			reasons = append(reasons, "adds more than 20 route miles")
		}
	}

	if rec == RecommendAccept {
		reasons = append(reasons, "margin and efficiency clear acceptance thresholds")
	}
	return rec, reasons
}
