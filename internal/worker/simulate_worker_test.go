package worker

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"souzoku/internal/amqp"
	"souzoku/internal/core"
	"souzoku/internal/metrics"
	"souzoku/internal/services"
)

type failingSimulator struct{ err error }

func (f failingSimulator) Simulate(context.Context, core.SimulationInput) (core.Simulation, error) {
	return core.Simulation{}, f.err
}

// fakeConsumer feeds the queued requests to the handler once.
type fakeConsumer struct {
	requests []*amqp.SimulationRequest
	replies  []*amqp.SimulationReply
}

func (f *fakeConsumer) ConsumeRequests(ctx context.Context, handler amqp.RequestHandler) error {
	for _, req := range f.requests {
		f.replies = append(f.replies, handler(ctx, req))
	}
	return nil
}

func request(savings int64, children int, spouseAll bool) *amqp.SimulationRequest {
	return amqp.NewSimulationRequest(core.SimulationInput{
		Assets:            core.AssetBreakdown{Savings: decimal.NewFromInt(savings)},
		Children:          children,
		SpouseInheritsAll: spouseAll,
	})
}

func TestHandleRequest(t *testing.T) {
	m := metrics.New()
	w := NewSimulateWorker(services.NewSimulationService(services.Options{Metrics: m}), m, nil)

	req := request(50000, 1, true)
	reply := w.HandleRequest(context.Background(), req)
	require.NotNil(t, reply)
	assert.Equal(t, req.RequestID, reply.RequestID)
	assert.Empty(t, reply.Error)
	require.NotNil(t, reply.Simulation)
	assert.Equal(t, 40500.0, reply.Simulation.PrimaryTax)
	assert.Equal(t, 10530.0, reply.Simulation.SecondaryTax)
	assert.Equal(t, 51030.0, reply.Simulation.TotalTax)

	bad := request(1, -1, false)
	reply = w.HandleRequest(context.Background(), bad)
	assert.Nil(t, reply.Simulation)
	assert.Contains(t, reply.Error, "invalid number of children")

	expected := `
# HELP souzoku_worker_replies_total Replies published by the AMQP worker, by outcome.
# TYPE souzoku_worker_replies_total counter
souzoku_worker_replies_total{outcome="invalid"} 1
souzoku_worker_replies_total{outcome="ok"} 1
`
	require.NoError(t, testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected), "souzoku_worker_replies_total"))

	expected = `
# HELP souzoku_simulations_total Simulations computed, by source and scenario.
# TYPE souzoku_simulations_total counter
souzoku_simulations_total{scenario="spouse_inherits_all",source="worker"} 1
`
	require.NoError(t, testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected), "souzoku_simulations_total"))
}

func TestHandleRequest_ServiceError(t *testing.T) {
	m := metrics.New()
	w := NewSimulateWorker(failingSimulator{err: errors.New("boom")}, m, nil)

	reply := w.HandleRequest(context.Background(), request(1, 0, false))
	assert.Equal(t, "boom", reply.Error)
	n, err := testutil.GatherAndCount(m.Registry(), "souzoku_worker_replies_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestRun(t *testing.T) {
	w := NewSimulateWorker(services.NewSimulationService(services.Options{}), nil, nil)
	consumer := &fakeConsumer{requests: []*amqp.SimulationRequest{
		request(5000, 1, false),
		request(100000, 1, false),
	}}

	require.NoError(t, w.Run(context.Background(), consumer))
	require.Len(t, consumer.replies, 2)
	assert.Equal(t, 110.0, consumer.replies[0].Simulation.PrimaryTax)
	assert.Equal(t, 30200.0, consumer.replies[1].Simulation.PrimaryTax)
}
