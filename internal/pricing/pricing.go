// Package pricing implements the density-based price suggestion and
// serviceability score for a prospective residential stop.
package pricing

import (
	"math"

	"haulscope/internal/geo"
	"haulscope/internal/model"
)

const (
	DensityHigh   = "High"
	DensityMedium = "Medium"
	DensityLow    = "Low"

	RecommendAccept     = "Accept"
	RecommendBorderline = "Borderline"
	RecommendDecline    = "Decline"
)

const (
	basePriceHigh   = 26.0
	basePriceMedium = 30.0
	basePriceLow    = 36.0
	priceFloor      = 24.0
	extraCartPrice  = 8.0
)

// Quote prices a prospective stop against the existing customer book.
// Cancelled customers do not contribute to route density.
func Quote(in model.PricingInput, customers []model.CustomerRecord) model.PricingQuote {
	within500 := 0
	within1000 := 0
	nearest := math.Inf(1)

	for _, c := range customers {
		if c.ServiceStatus == model.StatusCancelled {
			continue
		}
		d := geo.Miles(in.Latitude, in.Longitude, c.Latitude, c.Longitude)
		if d < nearest {
			nearest = d
		}
		if d <= 500.0/geo.FeetPerMile {
			within500++
		}
		if d <= 1000.0/geo.FeetPerMile {
			within1000++
		}
	}

	density := DensityLow
	switch {
	case within1000 >= 5:
		density = DensityHigh
	case within1000 >= 2:
		density = DensityMedium
	}

	price := basePriceLow
	switch density {
	case DensityHigh:
		price = basePriceHigh
	case DensityMedium:
		price = basePriceMedium
	}

	switch {
	case within500 >= 3:
		price -= 2
	case within500 >= 1:
		price -= 1
	}
	hasNeighbor := !math.IsInf(nearest, 1)
	if hasNeighbor && nearest > 1 {
		price += 4
	}
	if in.NumberOfCarts > 1 {
		price += extraCartPrice * float64(in.NumberOfCarts-1)
	}
	if price < priceFloor {
		price = priceFloor
	}

	score := 50.0
	switch {
	case within500 >= 3:
		score += 30
	case within500 >= 1:
		score += 20
	case within1000 >= 2:
		score += 10
	}
	switch density {
	case DensityHigh:
		score += 20
	case DensityMedium:
		score += 10
	}
	if hasNeighbor {
		switch {
		case nearest > 2:
			score -= 20
		case nearest > 1:
			score -= 10
		}
	}
	if score > 100 {
		score = 100
	}
	if score < 0 {
		score = 0
	}

	rec := RecommendDecline
	switch {
	case score >= 75:
		rec = RecommendAccept
	case score >= 50:
		rec = RecommendBorderline
	}

	nearestOut := nearest
	if !hasNeighbor {
		nearestOut = 0
	}
	return model.PricingQuote{
		RouteDensity:          density,
		CustomersWithin500Ft:  within500,
		CustomersWithin1000Ft: within1000,
		NearestCustomerMiles:  nearestOut,
		SuggestedPrice:        price,
		ServiceabilityScore:   score,
		Recommendation:        rec,
	}
}
