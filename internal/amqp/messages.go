package amqp

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	"souzoku/internal/core"
)

// SimulationRequest asks a worker to run one simulation. The reply goes to
// the delivery's ReplyTo queue, correlated by RequestID.
type SimulationRequest struct {
	RequestID         string              `json:"request_id"`
	Assets            core.AssetBreakdown `json:"assets"`
	Children          int                 `json:"children"`
	SpouseInheritsAll bool                `json:"spouse_inherits_all"`
	Timestamp         time.Time           `json:"timestamp"`
}

// SimulationReply carries either a simulation or the reason it failed.
type SimulationReply struct {
	RequestID  string           `json:"request_id"`
	Simulation *core.Simulation `json:"simulation,omitempty"`
	Error      string           `json:"error,omitempty"`
}

// NewSimulationRequest wraps in with a fresh request ID
func NewSimulationRequest(in core.SimulationInput) *SimulationRequest {
	return &SimulationRequest{
		RequestID:         uuid.NewString(),
		Assets:            in.Assets,
		Children:          in.Children,
		SpouseInheritsAll: in.SpouseInheritsAll,
		Timestamp:         time.Now().UTC(),
	}
}

// Input returns the simulation input carried by the request
func (r *SimulationRequest) Input() core.SimulationInput {
	return core.SimulationInput{
		Assets:            r.Assets,
		Children:          r.Children,
		SpouseInheritsAll: r.SpouseInheritsAll,
	}
}

// ToJSON converts the message to JSON bytes
func (r *SimulationRequest) ToJSON() ([]byte, error) {
	return json.Marshal(r)
}

// SimulationRequestFromJSON decodes a request; a missing request_id is an error
func SimulationRequestFromJSON(data []byte) (*SimulationRequest, error) {
	var req SimulationRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, err
	}
	if req.RequestID == "" {
		return nil, errors.New("request_id is required")
	}
	return &req, nil
}

// ToJSON converts the reply to JSON bytes
func (r *SimulationReply) ToJSON() ([]byte, error) {
	return json.Marshal(r)
}

// SimulationReplyFromJSON decodes a reply
func SimulationReplyFromJSON(data []byte) (*SimulationReply, error) {
	var reply SimulationReply
	if err := json.Unmarshal(data, &reply); err != nil {
		return nil, err
	}
	return &reply, nil
}
