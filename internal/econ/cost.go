package econ

import (
	"math"

	"haulscope/internal/model"
)

// Three cost bases coexist for different decision contexts and are kept as
// separately named functions. They must not be unified: each one feeds a
// different downstream tier scheme.

// OverviewCost is the mileage/time model used by the map and overview
// screens: flat per-mile fuel plus per-minute labor.
func OverviewCost(a Assumptions, totalDistanceMiles, serviceMinutes float64) model.CostBreakdown {
	fuel := nonNeg(totalDistanceMiles) * a.FuelPerMile
	labor := nonNeg(serviceMinutes) * a.LaborPerMinute
	return model.CostBreakdown{
		FuelCost:  fuel,
		LaborCost: labor,
		TotalCost: fuel + labor,
	}
}

// VisitPlan describes the per-visit inputs for the detailed model.
type VisitPlan struct {
	RoundTripMiles float64
	ServiceMinutes float64
	// Distinct weekly service-day counts per stream.
	TrashDays     int
	RecyclingDays int
	YardWasteDays int
}

// VisitsPerMonth converts the weekly service-day counts to monthly visits.
func (v VisitPlan) VisitsPerMonth(a Assumptions) float64 {
	days := v.TrashDays + v.RecyclingDays + v.YardWasteDays
	if days < 0 {
		days = 0
	}
	return float64(days) * a.WeeksPerMonth
}

// VisitCost is the detailed per-visit model used by the cost estimator and
// the route simulator: combined driver+helper labor over service plus
// travel time, and fuel from round-trip mileage at the truck's consumption.
func VisitCost(a Assumptions, v VisitPlan) model.CostBreakdown {
	miles := nonNeg(v.RoundTripMiles)
	travelMinutes := miles / a.AvgTravelMPH * 60
	laborHours := (nonNeg(v.ServiceMinutes) + travelMinutes) / 60
	labor := laborHours * a.CrewHourly()
	fuel := miles / a.TruckMPG * a.FuelPerGallon
	return model.CostBreakdown{
		LaborCost: labor,
		FuelCost:  fuel,
		TotalCost: labor + fuel,
	}
}

// MonthlyVisitCost scales VisitCost by the plan's monthly visit count.
func MonthlyVisitCost(a Assumptions, v VisitPlan) model.CostBreakdown {
	per := VisitCost(a, v)
	n := v.VisitsPerMonth(a)
	return model.CostBreakdown{
		LaborCost: per.LaborCost * n,
		FuelCost:  per.FuelCost * n,
		TotalCost: per.TotalCost * n,
	}
}

// RFPCost is the municipal-bid model: contract labor and equipment rates,
// per-mile fuel, and dumping fees from estimated tonnage (homes x tons/home).
func RFPCost(a Assumptions, homes int, monthlyMiles, monthlyServiceHours float64) model.CostBreakdown {
	if homes < 0 {
		homes = 0
	}
	hours := nonNeg(monthlyServiceHours)
	labor := hours * a.RFPLaborHourly
	equipment := hours * a.RFPEquipmentHourly
	fuel := nonNeg(monthlyMiles) * a.RFPFuelPerMile
	dumping := float64(homes) * a.RFPTonsPerHome * a.RFPDumpPerTon
	return model.CostBreakdown{
		LaborCost:     labor,
		FuelCost:      fuel,
		EquipmentCost: equipment,
		DumpingFee:    dumping,
		TotalCost:     labor + fuel + equipment + dumping,
	}
}

// nonNeg replaces invalid (negative or non-finite) numeric input with zero,
// per the engine's recover-to-neutral failure semantics.
func nonNeg(x float64) float64 {
	if x > 0 && !math.IsInf(x, 1) {
		return x
	}
	return 0
}
