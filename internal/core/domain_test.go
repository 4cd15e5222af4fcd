package core

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestAssetBreakdownTotal(t *testing.T) {
	a := AssetBreakdown{
		Land:      dec("3000"),
		Insurance: dec("500.1"),
		Savings:   dec("1000.2"),
		Stocks:    dec("0.7"),
	}
	if got := a.Total(); !got.Equal(dec("4501")) {
		t.Fatalf("expected exact total 4501, got %s", got)
	}
	if got := (AssetBreakdown{}).Total(); !got.IsZero() {
		t.Fatalf("expected zero total, got %s", got)
	}
}

func TestAssetBreakdownValidate(t *testing.T) {
	good := AssetBreakdown{Land: dec("1"), Insurance: dec("0"), Savings: dec("2"), Stocks: dec("3")}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []AssetBreakdown{
		{Land: dec("-1")},
		{Insurance: dec("-0.01")},
		{Savings: dec("-5")},
		{Stocks: dec("-100")},
	}
	for i, a := range bads {
		if err := a.Validate(); !errors.Is(err, ErrNegativeAsset) {
			t.Fatalf("case %d expected ErrNegativeAsset, got %v", i, err)
		}
	}
}

func TestSimulationInputValidate(t *testing.T) {
	if err := (SimulationInput{Children: 0}).Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := (SimulationInput{Children: -1}).Validate(); !errors.Is(err, ErrInvalidChildren) {
		t.Fatalf("expected ErrInvalidChildren, got %v", err)
	}
	if err := (SimulationInput{Children: MaxChildren + 1}).Validate(); !errors.Is(err, ErrTooManyChildren) {
		t.Fatalf("expected ErrTooManyChildren, got %v", err)
	}
}

func TestSimulationInputHeirsAndKey(t *testing.T) {
	in := SimulationInput{Assets: AssetBreakdown{Land: dec("3000.0")}, Children: 2, SpouseInheritsAll: true}
	if in.PrimaryHeirs() != 3 || in.SecondaryHeirs() != 2 {
		t.Fatalf("unexpected heirs: primary=%d secondary=%d", in.PrimaryHeirs(), in.SecondaryHeirs())
	}

	same := SimulationInput{Assets: AssetBreakdown{Land: dec("3000")}, Children: 2, SpouseInheritsAll: true}
	if in.Key() != same.Key() {
		t.Fatalf("equal inputs should share a key: %q vs %q", in.Key(), same.Key())
	}
	other := same
	other.SpouseInheritsAll = false
	if other.Key() == same.Key() {
		t.Fatalf("different inputs should not share a key")
	}
}
