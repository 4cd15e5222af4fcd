// Package scenario reads batches of simulation inputs from YAML files and
// evaluates them in order.
package scenario

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"souzoku/internal/core"
)

var ErrNoScenarios = errors.New("no scenarios defined")

// Assets mirrors core.AssetBreakdown as written in a scenario file. Values
// are kept as text so "1,250.5" parses the same way it does in the form.
type Assets struct {
	Land      string `yaml:"land,omitempty"`
	Insurance string `yaml:"insurance,omitempty"`
	Savings   string `yaml:"savings,omitempty"`
	Stocks    string `yaml:"stocks,omitempty"`
}

// Scenario is one named entry of a batch file.
type Scenario struct {
	Name              string `yaml:"name"`
	Assets            Assets `yaml:"assets"`
	Children          string `yaml:"children,omitempty"`
	SpouseInheritsAll bool   `yaml:"spouse_inherits_all,omitempty"`
}

// File is the top level of a batch file.
type File struct {
	Scenarios []Scenario `yaml:"scenarios"`
}

// Result pairs a scenario name with its simulation.
type Result struct {
	Name       string          `json:"name"`
	Simulation core.Simulation `json:"simulation"`
}

// Simulator runs one simulation.
type Simulator interface {
	Simulate(ctx context.Context, in core.SimulationInput) (core.Simulation, error)
}

// Decode reads a batch file. Unknown keys are rejected.
func Decode(r io.Reader) (*File, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var f File
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrNoScenarios
		}
		return nil, fmt.Errorf("decode scenarios: %w", err)
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// Load reads and validates the batch file at path.
func Load(path string) (*File, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open scenario file: %w", err)
	}
	defer fh.Close()
	return Decode(fh)
}

// Validate checks that there is at least one scenario and that every one of
// them parses. Unnamed scenarios are given their 1-based position as name.
func (f *File) Validate() error {
	if len(f.Scenarios) == 0 {
		return ErrNoScenarios
	}
	for i := range f.Scenarios {
		s := &f.Scenarios[i]
		if s.Name == "" {
			s.Name = fmt.Sprintf("#%d", i+1)
		}
		if _, err := s.Input(); err != nil {
			return fmt.Errorf("scenario %q: %w", s.Name, err)
		}
	}
	return nil
}

// Input parses the scenario into a simulation input.
func (s Scenario) Input() (core.SimulationInput, error) {
	return core.RawInput{
		Land:              s.Assets.Land,
		Insurance:         s.Assets.Insurance,
		Savings:           s.Assets.Savings,
		Stocks:            s.Assets.Stocks,
		Children:          s.Children,
		SpouseInheritsAll: s.SpouseInheritsAll,
	}.Parse()
}

// Evaluate runs every scenario through sim, in file order. It stops at the
// first failure.
func (f *File) Evaluate(ctx context.Context, sim Simulator) ([]Result, error) {
	inputs := make([]core.SimulationInput, len(f.Scenarios))
	for i, s := range f.Scenarios {
		in, err := s.Input()
		if err != nil {
			return nil, fmt.Errorf("scenario %q: %w", s.Name, err)
		}
		inputs[i] = in
	}

	results := make([]Result, 0, len(inputs))
	for i, in := range inputs {
		out, err := sim.Simulate(ctx, in)
		if err != nil {
			return nil, fmt.Errorf("scenario %q: %w", f.Scenarios[i].Name, err)
		}
		results = append(results, Result{Name: f.Scenarios[i].Name, Simulation: out})
	}
	return results, nil
}
