package core

import (
	"math"

	"github.com/samber/lo"
)

// Chart labels, as shown to the user.
const (
	ChartTitle     = "相続税の比較"
	ChartAxisLabel = "税額 (万円)"
	LabelPrimary   = "一次相続税"
	LabelSecondary = "二次相続税"
)

// Bar is one category of the comparison chart. Width is the bar length in
// percent of the largest bar.
type Bar struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
	Width int     `json:"width"`
}

// Chart compares the primary and, if present, secondary tax.
type Chart struct {
	Title     string `json:"title"`
	AxisLabel string `json:"axis_label"`
	Bars      []Bar  `json:"bars"`
}

// BuildChart lays out one bar for the primary tax and a second one when
// the simulation has a secondary inheritance.
func BuildChart(sim Simulation) Chart {
	bars := []Bar{{Label: LabelPrimary, Value: sim.PrimaryTax}}
	if sim.HasSecondary {
		bars = append(bars, Bar{Label: LabelSecondary, Value: sim.SecondaryTax})
	}

	maxValue := lo.MaxBy(bars, func(a, b Bar) bool { return a.Value > b.Value }).Value
	bars = lo.Map(bars, func(b Bar, _ int) Bar {
		b.Width = barWidth(b.Value, maxValue)
		return b
	})

	return Chart{
		Title:     ChartTitle,
		AxisLabel: ChartAxisLabel,
		Bars:      bars,
	}
}

func barWidth(value, maxValue float64) int {
	if maxValue <= 0 || value <= 0 {
		return 0
	}
	width := int(math.Round(value * 100 / maxValue))
	if width < 2 { // keep very small values visible
		width = 2
	}
	if width > 100 {
		width = 100
	}
	return width
}
