// Package bids evaluates municipal RFPs and produces a bid / no-bid
// recommendation with the assumptions behind it.
package bids

import (
	"errors"
	"math"

	"haulscope/internal/econ"
	"haulscope/internal/geo"
	"haulscope/internal/model"
)

const (
	ProximityClose    = "close"
	ProximityModerate = "moderate"
	ProximityFar      = "far"

	FitHigh   = "high"
	FitMedium = "medium"
	FitLow    = "low"

	RecommendBid           = "bid"
	RecommendBidConditions = "bid-with-conditions"
	RecommendDoNotBid      = "do-not-bid"
)

// Fallback baselines when no comparable HOA customers exist.
const (
	fallbackMinutesPerHome = 1.0
	fallbackRatePerHome    = 25.0
)

// Comparable customers must have a unit count within this fraction of the
// requested home count.
const comparableUnitTolerance = 0.30

// ErrNoLocation is returned when the RFP lacks a usable geocoded location.
// Evaluation never invents coordinates: a randomized fallback would make
// proximity scoring unreproducible.
var ErrNoLocation = errors.New("bids: rfp location must be finite, non-zero coordinates")

// Evaluate analyzes one RFP against the existing customer book and the
// facility set.
func Evaluate(a econ.Assumptions, req model.BidRequest, customers []model.CustomerRecord, facilities model.FacilitySet) (model.BidAnalysis, error) {
	if !finite(req.Latitude) || !finite(req.Longitude) || (req.Latitude == 0 && req.Longitude == 0) {
		return model.BidAnalysis{}, ErrNoLocation
	}
	homes := req.Homes
	if homes < 0 {
		homes = 0
	}

	depotMiles := geo.Miles(req.Latitude, req.Longitude, facilities.Depot.Latitude, facilities.Depot.Longitude)
	landfillMiles := nearestLandfillMiles(req, facilities)
	if math.IsInf(landfillMiles, 1) {
		// No landfill on file: classify on depot distance alone.
		landfillMiles = depotMiles
	}
	proximity := classifyProximity(depotMiles, landfillMiles)

	minutesPerHome, ratePerHome, haveComparables := comparableBaselines(homes, customers)

	var flags []string
	if !haveComparables {
		flags = append(flags, "no comparable HOA customers; using default baselines")
	}

	// Multiplicative adjustments on service time and cost.
	timeMult, costMult := 1.0, 1.0
	if proximity == ProximityFar {
		timeMult *= 1.30
		costMult *= 1.20
		flags = append(flags, "far from depot and landfill")
	}
	if req.TimeWindowRestricted {
		timeMult *= 1.20
		costMult *= 1.15
		flags = append(flags, "restricted collection time windows")
	}
	if !req.FuelSurchargeAllowed {
		costMult *= 1.10
		flags = append(flags, "no fuel surcharge protection")
	}
	if req.RecyclingRequired {
		timeMult *= 1.10
		costMult *= 1.05
		flags = append(flags, "recycling stream required")
	}
	if req.YardWasteRequired {
		timeMult *= 1.15
		costMult *= 1.08
		flags = append(flags, "yard waste stream required")
	}

	// Weekly collection: depot round trip plus one landfill run per trip.
	monthlyMiles := (2*depotMiles + 2*landfillMiles) * a.WeeksPerMonth
	monthlyServiceHours := float64(homes) * minutesPerHome * timeMult / 60 * a.WeeksPerMonth
	cost := econ.RFPCost(a, homes, monthlyMiles, monthlyServiceHours)
	adjustedCost := cost.TotalCost * costMult

	price := ratePerHome * (1 + proximityPremium(proximity)) * 1.10
	monthlyRevenue := price * float64(homes)
	margin := econ.ProfitMarginPercent(monthlyRevenue, adjustedCost)

	fit := strategicFit(proximity, homes)
	rec := recommend(margin, fit, len(flags))

	return model.BidAnalysis{
		ProximityScore:        proximity,
		SuggestedPricePerUnit: price,
		EstimatedMonthlyCost:  adjustedCost,
		Cost:                  cost,
		ProjectedGrossMargin:  margin,
		StrategicFitScore:     fit,
		RiskFlags:             flags,
		Recommendation:        rec,
	}, nil
}

func nearestLandfillMiles(req model.BidRequest, facilities model.FacilitySet) float64 {
	nearest := math.Inf(1)
	for _, lf := range facilities.Landfills {
		d := geo.Miles(req.Latitude, req.Longitude, lf.Latitude, lf.Longitude)
		if d < nearest {
			nearest = d
		}
	}
	return nearest
}

func classifyProximity(depotMiles, landfillMiles float64) string {
	switch {
	case depotMiles <= 10 && landfillMiles <= 15:
		return ProximityClose
	case depotMiles <= 20 && landfillMiles <= 25:
		return ProximityModerate
	default:
		return ProximityFar
	}
}

// comparableBaselines derives time-per-home and revenue-per-home from
// serviced HOA customers whose unit count is within 30% of the requested
// home count. Falls back to documented defaults when none match.
func comparableBaselines(homes int, customers []model.CustomerRecord) (minutesPerHome, ratePerHome float64, ok bool) {
	if homes <= 0 {
		return fallbackMinutesPerHome, fallbackRatePerHome, false
	}
	var sumMinutes, sumRate float64
	n := 0
	for _, c := range customers {
		if model.NormalizeType(string(c.Type)) != model.TypeHOA || c.Units <= 0 {
			continue
		}
		if math.Abs(float64(c.Units-homes))/float64(homes) > comparableUnitTolerance {
			continue
		}
		if c.CompletionTimeMinutes <= 0 || c.MonthlyRevenue <= 0 {
			continue
		}
		sumMinutes += c.CompletionTimeMinutes / float64(c.Units)
		sumRate += c.MonthlyRevenue / float64(c.Units)
		n++
	}
	if n == 0 {
		return fallbackMinutesPerHome, fallbackRatePerHome, false
	}
	return sumMinutes / float64(n), sumRate / float64(n), true
}

func proximityPremium(proximity string) float64 {
	switch proximity {
	case ProximityFar:
		return 0.15
	case ProximityModerate:
		return 0.05
	default:
		return 0
	}
}

func strategicFit(proximity string, homes int) string {
	switch {
	case proximity == ProximityClose && homes >= 500:
		return FitHigh
	case proximity == ProximityFar || homes < 100:
		return FitLow
	default:
		return FitMedium
	}
}

func recommend(marginPercent float64, fit string, riskFlags int) string {
	switch {
	case marginPercent < 15 || fit == FitLow:
		return RecommendDoNotBid
	case riskFlags >= 3 || marginPercent < 20:
		return RecommendBidConditions
	default:
		return RecommendBid
	}
}

func finite(x float64) bool { return !math.IsNaN(x) && !math.IsInf(x, 0) }
