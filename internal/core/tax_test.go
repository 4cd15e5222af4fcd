package core

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeTax_Golden(t *testing.T) {
	tests := []struct {
		name   string
		assets float64
		heirs  int
		spouse bool
		want   float64
	}{
		{"no assets", 0, 1, false, 0},
		{"below base deduction", 3600, 1, false, 0},
		{"one man-yen over deduction", 3601, 1, false, 0.1},
		{"second bracket", 5000, 1, false, 110},
		{"first bracket only", 4000, 1, false, 40},
		{"half man-yen taxable", 3605, 1, false, 0.5},
		{"no heirs", 6000, 0, false, 350},
		{"three heirs", 10000, 3, false, 540},
		{"two heirs", 30000, 2, false, 4620},
		{"secondary reference", 50000, 1, false, 10530},
		{"large estate", 100000, 3, false, 29600},
		{"larger estate", 200000, 1, false, 76370},
		{"top bracket", 1000000, 2, false, 516040},
		{"fractional assets", 12345.67, 1, false, 1249.13},
		{"spouse reference", 100000, 2, true, 83190},
		{"spouse half", 50000, 2, true, 40500},
		{"spouse one child", 30000, 1, true, 7560},
		{"spouse under cap", 16000, 0, true, 0},
		{"spouse covered by deductions", 20000, 2, true, 0},
		{"spouse negative sum clamps", 25000, 2, true, 0},
		{"spouse small estate", 8000, 1, true, 0},
		{"spouse no assets", 0, 0, true, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeTax(tt.assets, tt.heirs, tt.spouse)
			assert.Equal(t, tt.want, got, "ComputeTax(%v, %d, %t)", tt.assets, tt.heirs, tt.spouse)
		})
	}
}

func TestComputeTax_SpouseReferenceBreakdown(t *testing.T) {
	// 100000 - 16000 - (3000 + 2*600) = 79800 taxable, every bracket counted.
	var want float64
	for _, b := range Brackets() {
		want += math.Min(79800, b.Limit)*b.Rate - b.Deduction
	}
	require.Equal(t, 83190.0, want)
	assert.Equal(t, want, ComputeTax(100000, 2, true))
}

func TestComputeTax_NeverNegative(t *testing.T) {
	for heirs := 0; heirs <= 6; heirs++ {
		for assets := 0.0; assets <= 200000; assets += 1250 {
			for _, spouse := range []bool{false, true} {
				got := ComputeTax(assets, heirs, spouse)
				if got < 0 || math.Signbit(got) {
					t.Fatalf("ComputeTax(%v, %d, %t) = %v, want >= +0", assets, heirs, spouse, got)
				}
			}
		}
	}
}

func TestComputeTax_ZeroAssets(t *testing.T) {
	for heirs := 0; heirs < 20; heirs++ {
		assert.Zero(t, ComputeTax(0, heirs, false))
	}
}

func TestComputeTax_Idempotent(t *testing.T) {
	first := ComputeTax(77777.77, 3, false)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, ComputeTax(77777.77, 3, false))
	}
}

func TestComputeTax_TwoDecimals(t *testing.T) {
	for _, assets := range []float64{3601.11, 4444.44, 12345.67, 98765.43} {
		got := ComputeTax(assets, 1, false)
		assert.Equal(t, roundTo2(got), got, "result for %v has more than two decimals", assets)
	}
}

func TestRoundTo2(t *testing.T) {
	cases := []struct {
		in, out float64
	}{
		{1.234, 1.23},
		{1.236, 1.24},
		{0.125, 0.12}, // exact tie rounds to even
		{0.375, 0.38},
		{2.675, 2.67}, // binary value sits below the tie
		{-3.2, -3.2},
		{100, 100},
	}
	for _, tc := range cases {
		if got := roundTo2(tc.in); got != tc.out {
			t.Errorf("roundTo2(%v) = %v, want %v", tc.in, got, tc.out)
		}
	}
}

func TestBaseDeduction(t *testing.T) {
	assert.Equal(t, 3000.0, BaseDeduction(0))
	assert.Equal(t, 3600.0, BaseDeduction(1))
	assert.Equal(t, 4200.0, BaseDeduction(2))
}

func TestBracketsIsCopy(t *testing.T) {
	b := Brackets()
	require.Len(t, b, 8)
	b[0].Rate = 1
	assert.Equal(t, 0.10, Brackets()[0].Rate)
	assert.True(t, math.IsInf(Brackets()[7].Limit, 1))
}
