package commands

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"souzoku/internal/amqp"
	"souzoku/internal/cli"
	"souzoku/internal/config"
	"souzoku/internal/core"
	"souzoku/internal/metrics"
	"souzoku/internal/services"
)

// calc: run one simulation from flags.
func calcCmd(a *app) *cobra.Command {
	var (
		raw     core.RawInput
		asJSON  bool
		remote  bool
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "calc",
		Short: "Estimate the tax for one estate",
		Example: `  souzoku calc --savings 50000 --children 1 --spouse-all
  souzoku calc --land 3000 --insurance 500 --savings 1000 --stocks 500 --children 0 --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := services.WithSource(cmd.Context(), metrics.SourceCLI)

			var (
				sim core.Simulation
				err error
			)
			if remote {
				sim, err = simulateRemote(ctx, a, raw, timeout)
			} else {
				svc := services.NewSimulationService(services.Options{Logger: a.logger})
				sim, err = svc.SimulateRaw(ctx, raw)
			}
			if err != nil {
				return err
			}

			if asJSON {
				return writeJSON(cmd.OutOrStdout(), sim)
			}
			return writeReport(cmd.OutOrStdout(), sim)
		},
	}

	cmd.Flags().StringVar(&raw.Land, "land", "", "土地・家屋の評価額 (万円)")
	cmd.Flags().StringVar(&raw.Insurance, "insurance", "", "生命保険の評価額 (万円)")
	cmd.Flags().StringVar(&raw.Savings, "savings", "", "貯蓄の評価額 (万円)")
	cmd.Flags().StringVar(&raw.Stocks, "stocks", "", "株式の評価額 (万円)")
	cmd.Flags().StringVar(&raw.Children, "children", fmt.Sprint(core.DefaultChildren), "子供の人数")
	cmd.Flags().BoolVar(&raw.SpouseInheritsAll, "spouse-all", false, "配偶者がすべて相続する")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the simulation as JSON")
	cmd.Flags().BoolVar(&remote, "remote", false, "compute on a souzoku-worker over AMQP (needs AMQP_URL)")
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "how long to wait for a --remote reply")
	return cmd
}

// simulateRemote sends the input to the worker queue and waits for its reply.
func simulateRemote(ctx context.Context, a *app, raw core.RawInput, timeout time.Duration) (core.Simulation, error) {
	in, err := raw.Parse()
	if err != nil {
		return core.Simulation{}, fmt.Errorf("%w: %w", services.ErrInvalidInput, err)
	}

	cfg, err := cli.LoadAndValidateConfig((*config.Config).ValidateWorker)
	if err != nil {
		return core.Simulation{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := amqp.Connect(ctx, amqp.Options{
		URL:      cfg.AMQPURL,
		Exchange: cfg.AMQPExchange,
		Queue:    cfg.AMQPQueue,
		Logger:   a.logger,
	})
	if err != nil {
		return core.Simulation{}, fmt.Errorf("connect to AMQP: %w", err)
	}
	defer client.Close()

	reply, err := client.RequestSimulation(ctx, amqp.NewSimulationRequest(in))
	if err != nil {
		return core.Simulation{}, fmt.Errorf("remote simulation: %w", err)
	}
	if reply.Error != "" {
		return core.Simulation{}, errors.New(reply.Error)
	}
	if reply.Simulation == nil {
		return core.Simulation{}, errors.New("remote simulation: empty reply")
	}
	return *reply.Simulation, nil
}
