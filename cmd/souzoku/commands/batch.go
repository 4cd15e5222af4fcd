package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"souzoku/internal/metrics"
	"souzoku/internal/scenario"
	"souzoku/internal/services"
)

// batch FILE: evaluate every scenario in a YAML file.
func batchCmd(a *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "batch <file.yaml>",
		Short: "Evaluate every scenario in a YAML file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			file, err := scenario.Load(args[0])
			if err != nil {
				return err
			}

			svc := services.NewSimulationService(services.Options{Logger: a.logger})
			ctx := services.WithSource(cmd.Context(), metrics.SourceCLI)
			results, err := file.Evaluate(ctx, svc)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for i, r := range results {
				if asJSON {
					if err := writeJSON(out, r); err != nil {
						return err
					}
					continue
				}
				if i > 0 {
					fmt.Fprintln(out)
				}
				fmt.Fprintf(out, "== %s ==\n", r.Name)
				if err := writeReport(out, r.Simulation); err != nil {
					return err
				}
			}
			a.logger.Info("Batch evaluated", "file", args[0], "scenarios", len(results))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print one JSON object per scenario")
	return cmd
}
