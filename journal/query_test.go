package journal

import (
	"testing"
	"time"

	"github.com/rustyeddy/perps/broker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedTrades(t *testing.T, j *SQLite, base time.Time) []TradeRecord {
	t.Helper()

	recs := []TradeRecord{
		{ID: "R1", PositionID: "P1", OrderID: "O1", Symbol: "BTC-USD", Side: broker.Long, Action: ActionOpenLong,
			Size: 1, EntryPrice: 50000, Leverage: 10, Collateral: 5000, OpenTime: base, Time: base},
		{ID: "R2", PositionID: "P1", OrderID: "", Symbol: "BTC-USD", Side: broker.Long, Action: ActionStopLoss,
			Size: 1, EntryPrice: 50000, ExitPrice: 48000, Leverage: 10, Collateral: 5000, RealizedPL: -2000,
			OpenTime: base, Time: base.Add(2 * time.Hour)},
		{ID: "R3", PositionID: "P2", OrderID: "O2", Symbol: "ETH-USD", Side: broker.Short, Action: ActionOpenShort,
			Size: 3, EntryPrice: 3000, Leverage: 3, Collateral: 3000, OpenTime: base.Add(time.Hour), Time: base.Add(time.Hour)},
	}
	for _, r := range recs {
		require.NoError(t, j.RecordTrade(r))
	}
	return recs
}

func TestGetTrade(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)
	defer j.Close()

	base := time.Date(2024, 4, 10, 9, 0, 0, 0, time.UTC)
	recs := seedTrades(t, j, base)

	got, err := j.GetTrade("R2")
	require.NoError(t, err)

	want := recs[1]
	assert.Equal(t, want.ID, got.ID)
	assert.Equal(t, want.PositionID, got.PositionID)
	assert.Equal(t, want.Symbol, got.Symbol)
	assert.Equal(t, broker.Long, got.Side)
	assert.Equal(t, ActionStopLoss, got.Action)
	assert.InDelta(t, want.ExitPrice, got.ExitPrice, 1e-9)
	assert.InDelta(t, want.RealizedPL, got.RealizedPL, 1e-9)
	assert.True(t, got.OpenTime.Equal(want.OpenTime))
	assert.True(t, got.Time.Equal(want.Time))
}

func TestGetTradeNotFound(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)
	defer j.Close()

	_, err := j.GetTrade("nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestListTradesOrdering(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)
	defer j.Close()

	base := time.Date(2024, 4, 10, 9, 0, 0, 0, time.UTC)
	seedTrades(t, j, base)

	all, err := j.ListTrades()
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"R1", "R3", "R2"}, []string{all[0].ID, all[1].ID, all[2].ID})

	between, err := j.ListTradesBetween(base.Add(30*time.Minute), base.Add(2*time.Hour))
	require.NoError(t, err)
	require.Len(t, between, 1)
	assert.Equal(t, "R3", between[0].ID)

	btc, err := j.ListTradesBySymbol("BTC-USD")
	require.NoError(t, err)
	assert.Len(t, btc, 2)
}

func TestListEquity(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)
	defer j.Close()

	base := time.Date(2024, 4, 10, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 4; i++ {
		require.NoError(t, j.RecordEquity(EquitySnapshot{
			Time:    base.Add(time.Duration(i) * time.Minute),
			Balance: 10000,
			Equity:  10000 + float64(i)*10,
		}))
	}

	all, err := j.ListEquity()
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.InDelta(t, 10030.0, all[3].Equity, 1e-9)

	some, err := j.ListEquityBetween(base.Add(time.Minute), base.Add(3*time.Minute))
	require.NoError(t, err)
	require.Len(t, some, 2)
	assert.InDelta(t, 10010.0, some[0].Equity, 1e-9)
}
