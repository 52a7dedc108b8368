// Package zones finds expansion opportunity zones by clustering
// subscription customers into coarse grid cells and estimating the return
// of converting each cell to HOA-style service.
package zones

import (
	"fmt"
	"math"
	"sort"

	"haulscope/internal/geo"
	"haulscope/internal/model"
)

// Grid resolution: coordinates round to the nearest 1/25 degree, roughly a
// 2.5-mile cell at mid latitudes.
const cellsPerDegree = 25.0

// A cell needs at least this many subscription members to qualify.
const minMembers = 3

// HOA customers within this radius of the cell center count as nearby.
const nearbyHOAMiles = 5.0

// hoaEfficiencyFactor models HOA revenue efficiency vs individual
// subscriptions in the ROI projection.
const hoaEfficiencyFactor = 2.5

type cellKey struct {
	lat, lng int
}

type cell struct {
	members []model.CustomerRecord
}

// FindOpportunities clusters Subscription customers into grid cells and
// returns qualifying cells sorted by descending projected ROI, filtered to
// minROIPercent. Depot distance and nearby-HOA counts come from the same
// haversine as every other component.
func FindOpportunities(customers []model.CustomerRecord, depot model.FacilityRecord, minROIPercent float64) []model.OpportunityZone {
	cells := map[cellKey]*cell{}
	var hoas []model.CustomerRecord

	for _, c := range customers {
		switch model.NormalizeType(string(c.Type)) {
		case model.TypeSubscription:
			k := cellKey{
				lat: int(math.Round(c.Latitude * cellsPerDegree)),
				lng: int(math.Round(c.Longitude * cellsPerDegree)),
			}
			if cells[k] == nil {
				cells[k] = &cell{}
			}
			cells[k].members = append(cells[k].members, c)
		case model.TypeHOA:
			hoas = append(hoas, c)
		}
	}

	var out []model.OpportunityZone
	for k, cl := range cells {
		if len(cl.members) < minMembers {
			continue
		}
		centerLat := float64(k.lat) / cellsPerDegree
		centerLng := float64(k.lng) / cellsPerDegree

		var sumRevenue, sumDepotDist float64
		for _, m := range cl.members {
			sumRevenue += m.MonthlyRevenue
			sumDepotDist += geo.Miles(m.Latitude, m.Longitude, depot.Latitude, depot.Longitude)
		}
		n := float64(len(cl.members))
		avgRevenue := sumRevenue / n
		avgDist := sumDepotDist / n

		nearbyHOAs := 0
		for _, h := range hoas {
			if geo.Miles(centerLat, centerLng, h.Latitude, h.Longitude) <= nearbyHOAMiles {
				nearbyHOAs++
			}
		}

		roi := 0.0
		if sumRevenue > 0 {
			projected := avgRevenue * n * hoaEfficiencyFactor
			roi = (projected - sumRevenue) / sumRevenue * 100
		}

		risk := riskLevel(nearbyHOAs, avgDist, len(cl.members))

		out = append(out, model.OpportunityZone{
			CenterLat:            centerLat,
			CenterLng:            centerLng,
			MemberCount:          len(cl.members),
			AvgRevenue:           avgRevenue,
			AvgDistanceFromDepot: avgDist,
			PotentialROIPercent:  roi,
			NearbyHOACount:       nearbyHOAs,
			RiskLevel:            risk,
			Reasoning:            reasoning(len(cl.members), avgRevenue, avgDist, nearbyHOAs, risk),
		})
	}

	filtered := out[:0]
	for _, z := range out {
		if z.PotentialROIPercent >= minROIPercent {
			filtered = append(filtered, z)
		}
	}
	sort.Slice(filtered, func(i, j int) bool {
		if filtered[i].PotentialROIPercent != filtered[j].PotentialROIPercent {
			return filtered[i].PotentialROIPercent > filtered[j].PotentialROIPercent
		}
		// Stable order for equal ROI so repeated runs agree.
		return filtered[i].MemberCount > filtered[j].MemberCount
	})
	return filtered
}

// riskLevel ladders on nearby HOA presence and depot distance; large cells
// (>=8 members) never report high risk.
func riskLevel(nearbyHOAs int, avgDepotMiles float64, members int) string {
	switch {
	case nearbyHOAs >= 2 && avgDepotMiles < 15:
		return "low"
	case nearbyHOAs >= 1 && avgDepotMiles < 20:
		return "medium"
	}
	if members >= 8 {
		return "medium"
	}
	return "high"
}

func reasoning(members int, avgRevenue, avgDist float64, nearbyHOAs int, risk string) string {
	return fmt.Sprintf(
		"%d subscription customers averaging $%.2f/month at %.1f mi from depot; %d HOA(s) within %.0f mi; %s risk",
		members, avgRevenue, avgDist, nearbyHOAs, nearbyHOAMiles, risk,
	)
}
