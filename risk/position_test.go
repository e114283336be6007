package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		in         Inputs
		size       float64
		collateral float64
	}{
		{
			name: "long btc one percent",
			in:   Inputs{Equity: 10000, RiskPct: 0.01, EntryPrice: 50000, StopPrice: 49000, Leverage: 10},
			size: 0.1, collateral: 500,
		},
		{
			name: "short eth rounded to increment",
			in:   Inputs{Equity: 10000, RiskPct: 0.02, EntryPrice: 3000, StopPrice: 3150, Leverage: 5, MinSize: 0.1},
			size: 1.3, collateral: 780,
		},
		{
			name: "leverage below one treated as one",
			in:   Inputs{Equity: 1000, RiskPct: 0.05, EntryPrice: 100, StopPrice: 95},
			size: 10, collateral: 1000,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := Size(tt.in)
			require.NoError(t, err)
			assert.InDelta(t, tt.size, got.Size, 1e-9)
			assert.InDelta(t, tt.collateral, got.Collateral, 1e-6)
			assert.InDelta(t, tt.in.Equity*tt.in.RiskPct, got.RiskAmount, 1e-9)
		})
	}
}

func TestSizeNeedsStopDistance(t *testing.T) {
	t.Parallel()

	_, err := Size(Inputs{Equity: 1000, RiskPct: 0.01, EntryPrice: 100, StopPrice: 100})
	assert.ErrorIs(t, err, ErrNoStopDistance)
}

func TestCalcHelpers(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 200.0, PlannedRisk(2, 1000, 900), 1e-9)
	assert.InDelta(t, 200.0, PlannedRisk(2, 900, 1000), 1e-9)
	assert.InDelta(t, 2.0, RR(100, 95, 110), 1e-9)
	assert.Equal(t, 0.0, RR(100, 100, 110))
	assert.InDelta(t, 0.02, RiskPct(200, 10000), 1e-12)
	assert.True(t, RiskPct(1, 0) > 1e300)
}
