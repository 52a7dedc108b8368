// Package batch assembles per-customer scores and fans batch scoring out
// across a bounded worker pool. Every computation reads only its own
// customer plus the shared read-only facility/zone dataset, so workers
// need no synchronization beyond result slots.
package batch

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"haulscope/internal/econ"
	"haulscope/internal/geo"
	"haulscope/internal/model"
)

// ValidateZones fails fast on degenerate polygons; a zone with fewer than
// 3 vertices is a data-loading defect upstream, not a runtime condition.
func ValidateZones(zones []model.ServiceZone) error {
	for _, z := range zones {
		if len(z.Vertices) < 3 {
			return fmt.Errorf("batch: zone %q: %w", z.Name, geo.ErrDegeneratePolygon)
		}
	}
	return nil
}

// ScoreCustomer computes the full per-customer score: overview cost for a
// depot round trip, profitability, cost-efficiency rating, composite
// strategic score, and service-zone containment. Zones must have been
// validated already.
func ScoreCustomer(a econ.Assumptions, c model.CustomerRecord, facilities model.FacilitySet, zones []model.ServiceZone) model.CustomerScore {
	depotMiles := geo.Miles(c.Latitude, c.Longitude, facilities.Depot.Latitude, facilities.Depot.Longitude)

	cost := econ.OverviewCost(a, depotMiles*2, c.CompletionTimeMinutes)
	prof := econ.Profitability(c, cost)
	composite := econ.CompositeScore(prof.RevenuePerMinute, depotMiles, model.NormalizeType(string(c.Type)))

	zoneName := ""
	for _, z := range zones {
		if in, err := geo.PointInPolygon(c.Latitude, c.Longitude, z.Vertices); err == nil && in {
			zoneName = z.Name
			break
		}
	}

	return model.CustomerScore{
		CustomerID:        c.ID,
		DistanceFromDepot: depotMiles,
		Cost:              cost,
		Profitability:     prof,
		EfficiencyRating:  econ.EfficiencyRating(prof.ProfitMarginPercent),
		CompositeScore:    composite,
		RiskLevel:         econ.CompositeRiskLevel(composite),
		InServiceZone:     zoneName,
	}
}

// ScoreAll scores every customer in input order using at most workers
// goroutines. A canceled context stops dispatching and returns ctx.Err();
// already-computed slots are discarded.
func ScoreAll(ctx context.Context, a econ.Assumptions, customers []model.CustomerRecord, facilities model.FacilitySet, zones []model.ServiceZone, workers int) ([]model.CustomerScore, error) {
	if err := ValidateZones(zones); err != nil {
		return nil, err
	}
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > len(customers) {
		workers = len(customers)
	}
	out := make([]model.CustomerScore, len(customers))
	if len(customers) == 0 {
		return out, nil
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				out[i] = ScoreCustomer(a, customers[i], facilities, zones)
			}
		}()
	}

	var dispatchErr error
dispatch:
	for i := range customers {
		select {
		case <-ctx.Done():
			dispatchErr = ctx.Err()
			break dispatch
		case jobs <- i:
		}
	}
	close(jobs)
	wg.Wait()

	if dispatchErr != nil {
		return nil, dispatchErr
	}
	return out, nil
}
