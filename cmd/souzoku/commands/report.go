package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"souzoku/internal/core"
)

// chartColumns is the length of a full-width bar in the text chart.
const chartColumns = 50

// writeReport prints a simulation the way the result page shows it,
// followed by a text bar chart.
func writeReport(w io.Writer, sim core.Simulation) error {
	var b strings.Builder

	fmt.Fprintf(&b, "総資産額: %s 万円\n\n", core.FormatDecimal(sim.TotalAssets))
	fmt.Fprintf(&b, "一次相続の結果\n  推定相続税: %s 万円\n", core.FormatManYen(sim.PrimaryTax))
	if sim.HasSecondary {
		fmt.Fprintf(&b, "\n二次相続の結果\n  推定相続税（二次相続時）: %s 万円\n", core.FormatManYen(sim.SecondaryTax))
		fmt.Fprintf(&b, "\n総相続税（一次＋二次）: %s 万円\n", core.FormatManYen(sim.TotalTax))
	} else {
		b.WriteString("\n配偶者がすべて相続しない場合、二次相続は発生しません。\n")
	}

	fmt.Fprintf(&b, "\n%s (%s)\n", sim.Chart.Title, sim.Chart.AxisLabel)
	for _, bar := range sim.Chart.Bars {
		cols := (bar.Width*chartColumns + 50) / 100
		fmt.Fprintf(&b, "%s |%s %s\n", bar.Label, strings.Repeat("#", cols), core.FormatManYen(bar.Value))
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
