package main

import (
	"context"
	"errors"
	"net/http"
	"os"

	"souzoku/internal/amqp"
	"souzoku/internal/cli"
	"souzoku/internal/config"
	"souzoku/internal/log"
	"souzoku/internal/metrics"
	"souzoku/internal/services"
	"souzoku/internal/worker"
)

func main() {
	if err := cli.LoadEnvFile(); err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
	}

	logger, err := cli.SetupLogger(os.Getenv("LOG_LEVEL"), os.Stdout)
	if err != nil {
		logger, _ = cli.SetupLogger("info", os.Stdout)
		logger.Warn("Ignoring LOG_LEVEL", log.FieldError, err.Error())
	}
	logger = logger.WithComponent(log.ComponentWorker)
	logger.Info("Starting souzoku-worker")

	cfg, err := cli.LoadAndValidateConfig((*config.Config).ValidateWorker)
	if err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err.Error())
		os.Exit(1)
	}

	ctx, cancel := cli.SignalContext(context.Background(), logger)
	defer cancel()

	client, err := amqp.Connect(ctx, amqp.Options{
		URL:      cfg.AMQPURL,
		Exchange: cfg.AMQPExchange,
		Queue:    cfg.AMQPQueue,
		Prefetch: cfg.WorkerPrefetch,
		Logger:   logger,
	})
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err.Error())
		os.Exit(1)
	}
	defer client.Close()

	m := metrics.New()
	svc := services.NewSimulationService(services.Options{
		CacheSize: cfg.CacheSize,
		CacheTTL:  cfg.CacheTTL,
		Metrics:   m,
		Logger:    logger,
	})
	w := worker.NewSimulateWorker(svc, m, logger)

	tasks := []cli.Task{
		func(ctx context.Context) error { return w.Run(ctx, client) },
		func(ctx context.Context) error { return svc.RunCacheCleanup(ctx, cfg.CacheTTL) },
	}
	if cfg.MetricsAddr != "" {
		srv := m.NewServer(cfg.MetricsAddr)
		tasks = append(tasks,
			func(context.Context) error {
				logger.Info("Serving metrics", "addr", cfg.MetricsAddr)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			},
			cli.ShutdownOnDone(logger, cfg.ShutdownTimeout, srv.Shutdown),
		)
	}

	err = cli.Run(ctx, tasks...)
	if err != nil {
		logger.Error("Worker stopped with error", log.FieldError, err.Error())
		os.Exit(1)
	}
	logger.Info("Worker stopped gracefully")
}
