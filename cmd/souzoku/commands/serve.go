package commands

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"souzoku/internal/cli"
	apphttp "souzoku/internal/http"
	"souzoku/internal/metrics"
	"souzoku/internal/services"
)

const cacheSweepInterval = time.Minute

// serve: run the web UI and JSON API until SIGINT/SIGTERM.
func serveCmd(a *app) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the web UI",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cli.LoadAndValidateConfig(nil)
			if err != nil {
				return err
			}
			if addr == "" {
				addr = cfg.Addr()
			}

			m := metrics.New()
			svc := services.NewSimulationService(services.Options{
				CacheSize: cfg.CacheSize,
				CacheTTL:  cfg.CacheTTL,
				Metrics:   m,
				Logger:    a.logger,
			})
			srv := apphttp.NewServer(apphttp.Options{
				Addr:               addr,
				Service:            svc,
				Metrics:            m,
				Logger:             a.logger,
				RateLimitPerMinute: cfg.RateLimitPerMinute,
			})

			ctx, cancel := cli.SignalContext(cmd.Context(), a.logger)
			defer cancel()

			return cli.Run(ctx,
				func(context.Context) error {
					a.logger.Info("Starting souzoku server", "addr", addr)
					if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
						return err
					}
					return nil
				},
				srv.RunMaintenance,
				func(ctx context.Context) error {
					return svc.RunCacheCleanup(ctx, cacheSweepInterval)
				},
				cli.ShutdownOnDone(a.logger, cfg.ShutdownTimeout, srv.Shutdown),
			)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default :$PORT)")
	return cmd
}
