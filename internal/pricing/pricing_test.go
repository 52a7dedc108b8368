package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"haulscope/internal/model"
)

const (
	baseLat = 29.76
	baseLng = -95.37
)

// customerAt offsets latitude by degrees; 0.0005 deg is roughly 180 ft,
// 0.0025 deg roughly 910 ft.
func customerAt(dLat float64) model.CustomerRecord {
	return model.CustomerRecord{
		Latitude:      baseLat + dLat,
		Longitude:     baseLng,
		ServiceStatus: model.StatusServiced,
	}
}

func TestQuoteDenseStreet(t *testing.T) {
	customers := []model.CustomerRecord{
		customerAt(0.0005), customerAt(-0.0005), customerAt(0.0004),
		customerAt(0.0025), customerAt(-0.0025),
	}
	q := Quote(model.PricingInput{Latitude: baseLat, Longitude: baseLng, NumberOfCarts: 1}, customers)

	assert.Equal(t, DensityHigh, q.RouteDensity)
	assert.Equal(t, 3, q.CustomersWithin500Ft)
	assert.Equal(t, 5, q.CustomersWithin1000Ft)
	// Base $26 for high density, minus $2 for 3 close neighbors, at the floor.
	assert.Equal(t, 24.0, q.SuggestedPrice)
	assert.Equal(t, 100.0, q.ServiceabilityScore)
	assert.Equal(t, RecommendAccept, q.Recommendation)
}

func TestQuoteExtraCarts(t *testing.T) {
	customers := []model.CustomerRecord{
		customerAt(0.0005), customerAt(-0.0005), customerAt(0.0004),
		customerAt(0.0025), customerAt(-0.0025),
	}
	q := Quote(model.PricingInput{Latitude: baseLat, Longitude: baseLng, NumberOfCarts: 3}, customers)
	// $24 base plus $8 per extra cart.
	assert.Equal(t, 40.0, q.SuggestedPrice)
}

func TestQuoteIsolatedStop(t *testing.T) {
	q := Quote(model.PricingInput{Latitude: baseLat, Longitude: baseLng, NumberOfCarts: 1}, nil)

	assert.Equal(t, DensityLow, q.RouteDensity)
	assert.Equal(t, 36.0, q.SuggestedPrice, "no neighbors means no distance surcharge either")
	assert.Equal(t, 0.0, q.NearestCustomerMiles)
	assert.Equal(t, 50.0, q.ServiceabilityScore)
	assert.Equal(t, RecommendBorderline, q.Recommendation)
}

func TestQuoteIgnoresCancelled(t *testing.T) {
	cancelled := customerAt(0.0001)
	cancelled.ServiceStatus = model.StatusCancelled

	q := Quote(model.PricingInput{Latitude: baseLat, Longitude: baseLng, NumberOfCarts: 1}, []model.CustomerRecord{cancelled})
	assert.Equal(t, 0, q.CustomersWithin1000Ft)
	assert.Equal(t, 0.0, q.NearestCustomerMiles)
}

func TestQuoteDistantNeighbor(t *testing.T) {
	// ~1.5 miles north.
	q := Quote(model.PricingInput{Latitude: baseLat, Longitude: baseLng, NumberOfCarts: 1},
		[]model.CustomerRecord{customerAt(0.0217)})

	assert.Equal(t, DensityLow, q.RouteDensity)
	assert.InDelta(t, 1.5, q.NearestCustomerMiles, 0.05)
	// $36 base plus $4 isolated-stop surcharge.
	assert.Equal(t, 40.0, q.SuggestedPrice)
	// 50 base, -10 for nearest over a mile.
	assert.Equal(t, 40.0, q.ServiceabilityScore)
	assert.Equal(t, RecommendDecline, q.Recommendation)
}
