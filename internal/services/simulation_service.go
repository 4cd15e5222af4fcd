package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"souzoku/internal/cache"
	"souzoku/internal/core"
	"souzoku/internal/log"
	"souzoku/internal/metrics"
)

// ErrInvalidInput wraps every validation failure returned by Simulate.
var ErrInvalidInput = errors.New("invalid simulation input")

type sourceKey struct{}

// WithSource tags ctx with the collaborator that triggered a simulation
// (web form, JSON API, CLI, worker). It only affects metric labels.
func WithSource(ctx context.Context, source string) context.Context {
	return context.WithValue(ctx, sourceKey{}, source)
}

func sourceFrom(ctx context.Context) string {
	if s, ok := ctx.Value(sourceKey{}).(string); ok && s != "" {
		return s
	}
	return metrics.SourceAPI
}

// Options configures a SimulationService. Zero values disable the cache and
// metrics and log nowhere.
type Options struct {
	CacheSize int
	CacheTTL  time.Duration
	Metrics   *metrics.Metrics
	Logger    *log.Logger
}

// SimulationService runs core.Simulate with validation, result caching,
// metrics and structured logging around it.
type SimulationService struct {
	cache   *cache.LRUCache[core.Simulation]
	manager *cache.Manager
	metrics *metrics.Metrics
	logger  *log.Logger
	slog    *log.StructuredLogger
}

func NewSimulationService(opts Options) *SimulationService {
	logger := opts.Logger
	if logger == nil {
		logger = log.Discard()
	}
	s := &SimulationService{
		metrics: opts.Metrics,
		logger:  logger.WithComponent(log.ComponentSimulation),
		slog:    log.NewStructuredLogger(logger),
	}
	if opts.CacheSize > 0 && opts.CacheTTL > 0 {
		s.cache = cache.NewLRUCache[core.Simulation](opts.CacheSize, opts.CacheTTL)
		s.manager = cache.NewManager(logger)
		s.manager.Register(s.cache)
	}
	return s
}

// Simulate validates in and returns the primary and, when applicable,
// secondary inheritance tax. Results are identical with or without cache.
func (s *SimulationService) Simulate(ctx context.Context, in core.SimulationInput) (core.Simulation, error) {
	source := sourceFrom(ctx)

	if err := in.Validate(); err != nil {
		s.metrics.ObserveFailure(source)
		s.logger.WarnContext(ctx, "Simulation input rejected",
			log.FieldOperation, log.OpValidate, log.FieldError, err.Error())
		return core.Simulation{}, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	key := in.Key()
	hit := false
	var sim core.Simulation
	if s.cache != nil {
		sim, hit = s.cache.Get(key)
		s.metrics.ObserveCache(hit)
	}
	if !hit {
		sim = core.Simulate(in)
		if s.cache != nil {
			s.cache.Set(key, sim)
		}
	}

	s.metrics.ObserveSimulation(source, in.SpouseInheritsAll, sim.PrimaryTax, sim.HasSecondary, sim.SecondaryTax)
	s.slog.LogSimulation(ctx, sim.TotalAssets.String(), in.Children, in.SpouseInheritsAll,
		sim.PrimaryTax, sim.HasSecondary, sim.SecondaryTax, sim.TotalTax, hit)
	return sim, nil
}

// SimulateRaw parses user-typed strings and simulates them.
func (s *SimulationService) SimulateRaw(ctx context.Context, raw core.RawInput) (core.Simulation, error) {
	in, err := raw.Parse()
	if err != nil {
		s.metrics.ObserveFailure(sourceFrom(ctx))
		return core.Simulation{}, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	return s.Simulate(ctx, in)
}

// RunCacheCleanup sweeps expired results until ctx is done.
func (s *SimulationService) RunCacheCleanup(ctx context.Context, interval time.Duration) error {
	if s.manager == nil {
		<-ctx.Done()
		return nil
	}
	return s.manager.Run(ctx, interval)
}

// CacheStats reports result cache counters; zero when caching is off.
func (s *SimulationService) CacheStats() cache.Stats {
	if s.cache == nil {
		return cache.Stats{}
	}
	return s.cache.Stats()
}
