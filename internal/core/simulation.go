package core

import "github.com/shopspring/decimal"

// Simulation is the outcome of one run: the primary inheritance and, when
// the spouse takes everything, the secondary one on the spouse's death.
type Simulation struct {
	Input        SimulationInput `json:"input"`
	TotalAssets  decimal.Decimal `json:"total_assets"`
	PrimaryTax   float64         `json:"primary_tax"`
	HasSecondary bool            `json:"has_secondary"`
	SecondaryTax float64         `json:"secondary_tax"`
	TotalTax     float64         `json:"total_tax"`
	Chart        Chart           `json:"chart"`
}

// Simulate runs the primary calculation and, if the spouse inherits
// everything, the secondary one with the spouse no longer counted and no
// spouse deduction. Inputs are assumed valid; see SimulationInput.Validate.
func Simulate(in SimulationInput) Simulation {
	total := in.Assets.Total()
	assets := total.InexactFloat64()

	sim := Simulation{
		Input:       in,
		TotalAssets: total,
		PrimaryTax:  ComputeTax(assets, in.PrimaryHeirs(), in.SpouseInheritsAll),
	}
	sim.TotalTax = sim.PrimaryTax

	if in.SpouseInheritsAll {
		sim.HasSecondary = true
		sim.SecondaryTax = ComputeTax(assets, in.SecondaryHeirs(), false)
		sim.TotalTax = sim.PrimaryTax + sim.SecondaryTax
	}

	sim.Chart = BuildChart(sim)
	return sim
}
