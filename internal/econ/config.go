// Package econ holds the economic assumptions and the cost/profitability
// math built on them. Every rate and threshold lives in one Assumptions
// value passed explicitly into each computation; nothing here is mutable
// package state, so tests can vary assumptions without touching code.
package econ

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Assumptions is the explicit configuration object for all cost models.
// Zero values are invalid; start from Defaults() and override.
type Assumptions struct {
	// Mileage/time (overview) model.
	FuelPerMile      float64 `yaml:"fuelPerMile"`      // $/mile
	LaborPerMinute   float64 `yaml:"laborPerMinute"`   // $/minute
	// Detailed visit model.
	DriverHourly     float64 `yaml:"driverHourly"`     // $/hr
	HelperHourly     float64 `yaml:"helperHourly"`     // $/hr
	TruckMPG         float64 `yaml:"truckMPG"`         // miles per gallon
	FuelPerGallon    float64 `yaml:"fuelPerGallon"`    // $/gallon
	AvgTravelMPH     float64 `yaml:"avgTravelMPH"`     // miles per hour
	WeeksPerMonth    float64 `yaml:"weeksPerMonth"`    // 4.33
	// RFP model.
	RFPLaborHourly     float64 `yaml:"rfpLaborHourly"`     // $/hr
	RFPFuelPerMile     float64 `yaml:"rfpFuelPerMile"`     // $/mile
	RFPEquipmentHourly float64 `yaml:"rfpEquipmentHourly"` // $/hr
	RFPDumpPerTon      float64 `yaml:"rfpDumpPerTon"`      // $/ton
	RFPTonsPerHome     float64 `yaml:"rfpTonsPerHome"`     // tons/home/month
}

// Defaults returns the production assumptions from the source cost models.
func Defaults() Assumptions {
	return Assumptions{
		FuelPerMile:    2.50,
		LaborPerMinute: 0.73,

		DriverHourly:  24.0,
		HelperHourly:  20.0,
		TruckMPG:      6.0,
		FuelPerGallon: 4.11,
		AvgTravelMPH:  25.0,
		WeeksPerMonth: 4.33,

		RFPLaborHourly:     85.0,
		RFPFuelPerMile:     0.65,
		RFPEquipmentHourly: 25.0,
		RFPDumpPerTon:      45.0,
		RFPTonsPerHome:     0.3,
	}
}

// CrewHourly is the combined driver+helper labor rate for the visit model.
func (a Assumptions) CrewHourly() float64 { return a.DriverHourly + a.HelperHourly }

// LoadFile overlays YAML overrides from path onto Defaults().
func LoadFile(path string) (Assumptions, error) {
	a := Defaults()
	b, err := os.ReadFile(path)
	if err != nil {
		return a, fmt.Errorf("econ: read assumptions: %w", err)
	}
	if err := yaml.Unmarshal(b, &a); err != nil {
		return a, fmt.Errorf("econ: parse assumptions: %w", err)
	}
	if err := a.Validate(); err != nil {
		return a, err
	}
	return a, nil
}

// Validate rejects assumptions that would divide by zero downstream.
func (a Assumptions) Validate() error {
	if a.TruckMPG <= 0 {
		return fmt.Errorf("econ: truckMPG must be > 0")
	}
	if a.AvgTravelMPH <= 0 {
		return fmt.Errorf("econ: avgTravelMPH must be > 0")
	}
	if a.WeeksPerMonth <= 0 {
		return fmt.Errorf("econ: weeksPerMonth must be > 0")
	}
	return nil
}
