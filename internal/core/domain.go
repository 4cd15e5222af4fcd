package core

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

type (
	// AssetBreakdown holds the four estate components, in man-yen.
	AssetBreakdown struct {
		Land      decimal.Decimal `json:"land" yaml:"land"`           // land and buildings
		Insurance decimal.Decimal `json:"insurance" yaml:"insurance"` // life insurance
		Savings   decimal.Decimal `json:"savings" yaml:"savings"`
		Stocks    decimal.Decimal `json:"stocks" yaml:"stocks"`
	}

	// SimulationInput is everything a single simulation run depends on.
	SimulationInput struct {
		Assets            AssetBreakdown `json:"assets"`
		Children          int            `json:"children"`
		SpouseInheritsAll bool           `json:"spouse_inherits_all"`
	}
)

var (
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrNegativeAsset   = errors.New("asset value cannot be negative")
	ErrInvalidChildren = errors.New("invalid number of children")
	ErrTooManyChildren = errors.New("too many children")
)

// Total returns the exact sum of the four components.
func (a AssetBreakdown) Total() decimal.Decimal {
	return decimal.Sum(a.Land, a.Insurance, a.Savings, a.Stocks)
}

func (a AssetBreakdown) Validate() error {
	parts := []struct {
		name  string
		value decimal.Decimal
	}{
		{"land", a.Land},
		{"insurance", a.Insurance},
		{"savings", a.Savings},
		{"stocks", a.Stocks},
	}
	for _, p := range parts {
		if p.value.IsNegative() {
			return fmt.Errorf("%s: %w", p.name, ErrNegativeAsset)
		}
	}
	return nil
}

// String is a canonical form of the breakdown, usable as a cache key.
func (a AssetBreakdown) String() string {
	return a.Land.String() + "/" + a.Insurance.String() + "/" + a.Savings.String() + "/" + a.Stocks.String()
}

func (in SimulationInput) Validate() error {
	if err := in.Assets.Validate(); err != nil {
		return err
	}
	if in.Children < 0 {
		return ErrInvalidChildren
	}
	if in.Children > MaxChildren {
		return ErrTooManyChildren
	}
	return nil
}

// PrimaryHeirs counts the spouse plus every child.
func (in SimulationInput) PrimaryHeirs() int {
	return in.Children + 1
}

// SecondaryHeirs counts the children left once the spouse has died.
func (in SimulationInput) SecondaryHeirs() int {
	return in.Children
}

// Key identifies the input for caching.
func (in SimulationInput) Key() string {
	return fmt.Sprintf("%s|%d|%t", in.Assets, in.Children, in.SpouseInheritsAll)
}
