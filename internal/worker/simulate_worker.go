package worker

import (
	"context"
	"errors"

	"souzoku/internal/amqp"
	"souzoku/internal/core"
	"souzoku/internal/log"
	"souzoku/internal/metrics"
	"souzoku/internal/services"
)

// Reply outcomes recorded in worker_replies_total
const (
	OutcomeOK      = "ok"
	OutcomeInvalid = "invalid"
	OutcomeError   = "error"
)

// Simulator is the part of the simulation service the worker needs.
type Simulator interface {
	Simulate(ctx context.Context, in core.SimulationInput) (core.Simulation, error)
}

// Consumer delivers requests to a handler until ctx is done.
type Consumer interface {
	ConsumeRequests(ctx context.Context, handler amqp.RequestHandler) error
}

// SimulateWorker answers simulation requests arriving over AMQP.
type SimulateWorker struct {
	service Simulator
	metrics *metrics.Metrics
	logger  *log.Logger
}

func NewSimulateWorker(service Simulator, m *metrics.Metrics, logger *log.Logger) *SimulateWorker {
	if logger == nil {
		logger = log.Discard()
	}
	return &SimulateWorker{
		service: service,
		metrics: m,
		logger:  logger.WithComponent(log.ComponentWorker),
	}
}

// HandleRequest runs one simulation. It never returns nil; failures are
// reported in the reply's Error field.
func (w *SimulateWorker) HandleRequest(ctx context.Context, req *amqp.SimulationRequest) *amqp.SimulationReply {
	ctx = services.WithSource(ctx, metrics.SourceWorker)
	w.logger.DebugContext(ctx, "Processing simulation request",
		log.FieldCorrelation, req.RequestID,
		log.FieldTotalAssets, req.Assets.Total().String(),
		log.FieldChildren, req.Children)

	reply := &amqp.SimulationReply{RequestID: req.RequestID}
	sim, err := w.service.Simulate(ctx, req.Input())
	switch {
	case err == nil:
		reply.Simulation = &sim
		w.metrics.ObserveWorkerReply(OutcomeOK)
	case errors.Is(err, services.ErrInvalidInput):
		reply.Error = err.Error()
		w.metrics.ObserveWorkerReply(OutcomeInvalid)
		w.logger.WarnContext(ctx, "Rejected simulation request",
			log.FieldCorrelation, req.RequestID, log.FieldError, err.Error())
	default:
		reply.Error = err.Error()
		w.metrics.ObserveWorkerReply(OutcomeError)
		w.logger.ErrorContext(ctx, "Simulation request failed",
			log.FieldCorrelation, req.RequestID, log.FieldError, err.Error())
	}
	return reply
}

// Run consumes requests until ctx is done.
func (w *SimulateWorker) Run(ctx context.Context, consumer Consumer) error {
	w.logger.Info("Simulation worker started")
	defer w.logger.Info("Simulation worker stopped")
	return consumer.ConsumeRequests(ctx, w.HandleRequest)
}
