package core

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// RawInput is a simulation request as typed by a user: every amount still a
// string, exactly as it came from a form field or a command-line flag.
type RawInput struct {
	Land              string
	Insurance         string
	Savings           string
	Stocks            string
	Children          string
	SpouseInheritsAll bool
}

// FieldError names the input field that failed to parse.
type FieldError struct {
	Field string
	Err   error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %v", e.Field, e.Err)
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

// Parse converts the raw strings into a SimulationInput.
func (r RawInput) Parse() (SimulationInput, error) {
	var in SimulationInput
	amounts := []struct {
		field string
		raw   string
		dst   *decimal.Decimal
	}{
		{"land", r.Land, &in.Assets.Land},
		{"insurance", r.Insurance, &in.Assets.Insurance},
		{"savings", r.Savings, &in.Assets.Savings},
		{"stocks", r.Stocks, &in.Assets.Stocks},
	}
	for _, a := range amounts {
		d, err := ParseManYen(a.raw)
		if err != nil {
			return SimulationInput{}, &FieldError{Field: a.field, Err: err}
		}
		*a.dst = d
	}

	children, err := ParseChildren(r.Children)
	if err != nil {
		return SimulationInput{}, &FieldError{Field: "children", Err: err}
	}
	in.Children = children
	in.SpouseInheritsAll = r.SpouseInheritsAll
	return in, nil
}
