package api

import (
	"fmt"
	"math"

	"haulscope/internal/model"
)

func validCoords(lat, lng float64) error {
	if math.IsNaN(lat) || math.IsInf(lat, 0) || math.IsNaN(lng) || math.IsInf(lng, 0) {
		return fmt.Errorf("coordinates must be finite")
	}
	if lat < -90 || lat > 90 {
		return fmt.Errorf("latitude out of range: %v", lat)
	}
	if lng < -180 || lng > 180 {
		return fmt.Errorf("longitude out of range: %v", lng)
	}
	return nil
}

func validateCustomer(c *model.CustomerRecord) error {
	if err := validCoords(c.Latitude, c.Longitude); err != nil {
		return err
	}
	if math.IsNaN(c.MonthlyRevenue) || math.IsInf(c.MonthlyRevenue, 0) {
		return fmt.Errorf("monthlyRevenue must be finite")
	}
	if math.IsNaN(c.CompletionTimeMinutes) || math.IsInf(c.CompletionTimeMinutes, 0) {
		return fmt.Errorf("completionTimeMinutes must be finite")
	}
	return nil
}

func validateFacilities(fs *model.FacilitySet) error {
	if err := validCoords(fs.Depot.Latitude, fs.Depot.Longitude); err != nil {
		return fmt.Errorf("depot: %w", err)
	}
	fs.Depot.Kind = model.FacilityDepot
	for i := range fs.Landfills {
		if err := validCoords(fs.Landfills[i].Latitude, fs.Landfills[i].Longitude); err != nil {
			return fmt.Errorf("landfill %d: %w", i, err)
		}
		fs.Landfills[i].Kind = model.FacilityLandfill
	}
	return nil
}

func validateZones(zones []model.ServiceZone) error {
	for _, z := range zones {
		if z.Name == "" {
			return fmt.Errorf("zone name must be non-empty")
		}
		if len(z.Vertices) < 3 {
			return fmt.Errorf("zone %q must have at least 3 vertices", z.Name)
		}
	}
	return nil
}

func validateBidRequest(req *model.BidRequest) error {
	if req.Homes <= 0 {
		return fmt.Errorf("homes must be > 0")
	}
	if err := validCoords(req.Latitude, req.Longitude); err != nil {
		return err
	}
	if req.Latitude == 0 && req.Longitude == 0 {
		return fmt.Errorf("rfp location is required; null island is not a service area")
	}
	return nil
}

func validateRouteStop(stop *model.RouteStop) error {
	if err := validCoords(stop.Latitude, stop.Longitude); err != nil {
		return err
	}
	if stop.TrashDaysPerWeek < 0 || stop.RecyclingDaysPerWeek < 0 || stop.YardWasteDaysPerWeek < 0 {
		return fmt.Errorf("service day counts must be >= 0")
	}
	if stop.TrashDaysPerWeek > 7 || stop.RecyclingDaysPerWeek > 7 || stop.YardWasteDaysPerWeek > 7 {
		return fmt.Errorf("service day counts must be <= 7")
	}
	return nil
}

func validatePricingInput(in *model.PricingInput) error {
	if err := validCoords(in.Latitude, in.Longitude); err != nil {
		return err
	}
	if in.NumberOfCarts < 0 {
		return fmt.Errorf("numberOfCarts must be >= 0")
	}
	return nil
}
