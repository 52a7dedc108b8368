package model

// CustomerType buckets customers by contract shape. Unknown values are
// treated as TypeOther by the engine rather than rejected.
type CustomerType string

const (
	TypeHOA          CustomerType = "HOA"
	TypeSubscription CustomerType = "Subscription"
	TypeCommercial   CustomerType = "Commercial"
	TypeOther        CustomerType = "Other"
)

// NormalizeType maps arbitrary input to a known CustomerType.
func NormalizeType(s string) CustomerType {
	switch CustomerType(s) {
	case TypeHOA, TypeSubscription, TypeCommercial:
		return CustomerType(s)
	}
	return TypeOther
}

type ServiceStatus string

const (
	StatusServiced  ServiceStatus = "Serviced"
	StatusPending   ServiceStatus = "Pending"
	StatusCancelled ServiceStatus = "Cancelled"
)

// CustomerRecord is an immutable snapshot supplied by the caller.
// The engine never mutates it.
type CustomerRecord struct {
	ID                    string        `json:"id"`
	Name                  string        `json:"name"`
	Address               string        `json:"address,omitempty"`
	Latitude              float64       `json:"latitude"`
	Longitude             float64       `json:"longitude"`
	Type                  CustomerType  `json:"type"`
	Units                 int           `json:"units,omitempty"`
	MonthlyRevenue        float64       `json:"monthlyRevenue"`
	CompletionTimeMinutes float64       `json:"completionTimeMinutes"`
	ServiceStatus         ServiceStatus `json:"serviceStatus,omitempty"`
}

type FacilityKind string

const (
	FacilityDepot    FacilityKind = "depot"
	FacilityLandfill FacilityKind = "landfill"
)

// FacilityRecord is a fixed operating facility: one depot, one or more landfills.
type FacilityRecord struct {
	Name      string       `json:"name"`
	Kind      FacilityKind `json:"kind"`
	Latitude  float64      `json:"latitude"`
	Longitude float64      `json:"longitude"`
}

// FacilitySet is the read-only depot/landfill dataset shared by all workers.
type FacilitySet struct {
	Depot     FacilityRecord   `json:"depot"`
	Landfills []FacilityRecord `json:"landfills"`
}

// ServiceZone is a closed polygon; vertices are (lng, lat) pairs with the
// first vertex repeated as the last.
type ServiceZone struct {
	Name     string       `json:"name"`
	Vertices [][2]float64 `json:"vertices"`
}

// CostBreakdown itemizes a modeled cost-to-serve. DumpingFee is zero for
// models that do not carry it.
type CostBreakdown struct {
	LaborCost     float64 `json:"laborCost"`
	FuelCost      float64 `json:"fuelCost"`
	EquipmentCost float64 `json:"equipmentCost,omitempty"`
	DumpingFee    float64 `json:"dumpingFee,omitempty"`
	TotalCost     float64 `json:"totalCost"`
}

// ProfitabilityResult is the per-customer scoring output.
type ProfitabilityResult struct {
	RevenuePerMinute    float64  `json:"revenuePerMinute"`
	ProfitMarginPercent float64  `json:"profitMarginPercent"`
	Tier                string   `json:"tier"`
	RiskFlags           []string `json:"riskFlags,omitempty"`
	IsViable            bool     `json:"isViable"`
}

// CustomerScore joins the profitability result with the composite
// strategic score for one customer.
type CustomerScore struct {
	CustomerID        string              `json:"customerId"`
	DistanceFromDepot float64             `json:"distanceFromDepotMiles"`
	Cost              CostBreakdown       `json:"cost"`
	Profitability     ProfitabilityResult `json:"profitability"`
	EfficiencyRating  string              `json:"efficiencyRating"`
	CompositeScore    float64             `json:"compositeScore"`
	RiskLevel         string              `json:"riskLevel"`
	InServiceZone     string              `json:"inServiceZone,omitempty"`
}

// OpportunityZone is a grid cell of clustered subscription customers
// flagged as an HOA-conversion candidate.
type OpportunityZone struct {
	CenterLat            float64 `json:"centerLat"`
	CenterLng            float64 `json:"centerLng"`
	MemberCount          int     `json:"memberCount"`
	AvgRevenue           float64 `json:"avgRevenue"`
	AvgDistanceFromDepot float64 `json:"avgDistanceFromDepot"`
	PotentialROIPercent  float64 `json:"potentialROIPercent"`
	NearbyHOACount       int     `json:"nearbyHOACount"`
	RiskLevel            string  `json:"riskLevel"`
	Reasoning            string  `json:"reasoning"`
}

// BidRequest carries the structured parameters extracted from an RFP.
type BidRequest struct {
	Name                 string  `json:"name,omitempty"`
	Homes                int     `json:"homes"`
	Latitude             float64 `json:"latitude"`
	Longitude            float64 `json:"longitude"`
	TimeWindowRestricted bool    `json:"timeWindowRestricted,omitempty"`
	FuelSurchargeAllowed bool    `json:"fuelSurchargeAllowed,omitempty"`
	RecyclingRequired    bool    `json:"recyclingRequired,omitempty"`
	YardWasteRequired    bool    `json:"yardWasteRequired,omitempty"`
}

// BidAnalysis is the bid/no-bid decision support output.
type BidAnalysis struct {
	ProximityScore        string        `json:"proximityScore"`
	SuggestedPricePerUnit float64       `json:"suggestedPricePerUnit"`
	EstimatedMonthlyCost  float64       `json:"estimatedMonthlyCost"`
	Cost                  CostBreakdown `json:"cost"`
	ProjectedGrossMargin  float64       `json:"projectedGrossMargin"`
	StrategicFitScore     string        `json:"strategicFitScore"`
	RiskFlags             []string      `json:"riskFlags,omitempty"`
	Recommendation        string        `json:"recommendation"`
}

// RouteStop is one hypothetical new stop for the route simulator.
type RouteStop struct {
	Latitude              float64      `json:"latitude"`
	Longitude             float64      `json:"longitude"`
	Type                  CustomerType `json:"type"`
	MonthlyRevenue        float64      `json:"monthlyRevenue"`
	CompletionTimeMinutes float64      `json:"completionTimeMinutes"`
	TrashDaysPerWeek      int          `json:"trashDaysPerWeek,omitempty"`
	RecyclingDaysPerWeek  int          `json:"recyclingDaysPerWeek,omitempty"`
	YardWasteDaysPerWeek  int          `json:"yardWasteDaysPerWeek,omitempty"`
}

// RouteSimulationResult reports the incremental economics of adding a stop.
type RouteSimulationResult struct {
	AdditionalRevenue       float64 `json:"additionalRevenue"`
	AdditionalDistanceMiles float64 `json:"additionalDistanceMiles"`
	FuelCost                float64 `json:"fuelCost"`
	LaborCost               float64 `json:"laborCost"`
	NetProfit               float64 `json:"netProfit"`
	ProfitMarginPercent     float64 `json:"profitMarginPercent"`
	Recommendation          string  `json:"recommendation"`
	Reasoning               string  `json:"reasoning"`
}

// PricingInput describes a prospective stop relative to the existing book.
type PricingInput struct {
	Latitude      float64 `json:"latitude"`
	Longitude     float64 `json:"longitude"`
	NumberOfCarts int     `json:"numberOfCarts"`
}

// PricingQuote is the density-based price and serviceability decision.
type PricingQuote struct {
	RouteDensity          string  `json:"routeDensity"`
	CustomersWithin500Ft  int     `json:"customersWithin500Ft"`
	CustomersWithin1000Ft int     `json:"customersWithin1000Ft"`
	NearestCustomerMiles  float64 `json:"nearestCustomerMiles"`
	SuggestedPrice        float64 `json:"suggestedPrice"`
	ServiceabilityScore   float64 `json:"serviceabilityScore"`
	Recommendation        string  `json:"recommendation"`
}
