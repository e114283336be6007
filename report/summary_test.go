package report

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/perps/broker"
	"github.com/rustyeddy/perps/journal"
)

var day = time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

func rec(a journal.Action, pl float64, hour int) journal.TradeRecord {
	return journal.TradeRecord{
		ID:         "rec",
		PositionID: "pos",
		Symbol:     "BTC-USD",
		Side:       broker.Long,
		Action:     a,
		RealizedPL: pl,
		Time:       day.Add(time.Duration(hour) * time.Hour),
	}
}

func snap(equity float64, hour int) journal.EquitySnapshot {
	return journal.EquitySnapshot{
		Time:    day.Add(time.Duration(hour) * time.Hour),
		Balance: equity - 1,
		Equity:  equity,
	}
}

func TestSummarize(t *testing.T) {
	trades := []journal.TradeRecord{
		rec(journal.ActionOpenLong, 0, 1),
		rec(journal.ActionCloseLong, 200, 2),
		rec(journal.ActionRejected, 0, 3),
		rec(journal.ActionStopLoss, -100, 4),
		rec(journal.ActionLiquidation, -50, 5),
		rec(journal.ActionReduceShort, 50, 6),
	}
	equity := []journal.EquitySnapshot{
		snap(10000, 1),
		snap(10500, 2),
		snap(9450, 4),
		snap(9800, 5),
		snap(10100, 7),
	}

	s := Summarize(10000, trades, equity)

	assert.Equal(t, 4, s.Trades)
	assert.Equal(t, 2, s.Wins)
	assert.Equal(t, 2, s.Losses)
	assert.Equal(t, 1, s.Liquidations)
	assert.InDelta(t, 50.0, s.WinRate, 1e-9)
	assert.InDelta(t, 125.0, s.AvgWin, 1e-9)
	assert.InDelta(t, -75.0, s.AvgLoss, 1e-9)
	assert.InDelta(t, 250.0/150.0, s.ProfitFactor, 1e-9)
	assert.InDelta(t, 100.0, s.NetPL, 1e-9)
	assert.InDelta(t, 1.0, s.ReturnPct, 1e-9)
	assert.InDelta(t, 1050.0, s.MaxDrawdown, 1e-9)
	assert.InDelta(t, 10.0, s.MaxDrawdownPct, 1e-9)
	assert.Equal(t, 10099.0, s.EndBalance)
	assert.Equal(t, 10100.0, s.EndEquity)
	assert.True(t, s.Start.Equal(day.Add(time.Hour)))
	assert.True(t, s.End.Equal(day.Add(7*time.Hour)))
	assert.NotZero(t, s.Sharpe)
}

func TestSummarizeEmpty(t *testing.T) {
	s := Summarize(5000, nil, nil)
	assert.Equal(t, 0, s.Trades)
	assert.Equal(t, 0.0, s.WinRate)
	assert.Equal(t, 0.0, s.ProfitFactor)
	assert.Equal(t, 0.0, s.MaxDrawdown)
	assert.Equal(t, 0.0, s.Sharpe)
	assert.Equal(t, 5000.0, s.EndBalance)
	assert.Equal(t, 5000.0, s.EndEquity)
	assert.True(t, s.Start.IsZero())
}

func TestSummarizeWithoutEquityCurve(t *testing.T) {
	s := Summarize(1000, []journal.TradeRecord{
		rec(journal.ActionTakeProfit, 30, 1),
		rec(journal.ActionTrailingStop, 20, 2),
	}, nil)
	assert.Equal(t, 2, s.Wins)
	assert.Equal(t, 0, s.Losses)
	assert.Equal(t, 0.0, s.ProfitFactor)
	assert.InDelta(t, 1050.0, s.EndBalance, 1e-9)
	assert.InDelta(t, 100.0, s.WinRate, 1e-9)
}

func TestDrawdownNeverNegative(t *testing.T) {
	s := Summarize(100, nil, []journal.EquitySnapshot{snap(110, 1), snap(120, 2), snap(130, 3)})
	assert.Equal(t, 0.0, s.MaxDrawdown)
	assert.Equal(t, 0.0, s.MaxDrawdownPct)
}

func TestPrint(t *testing.T) {
	s := Summarize(10000, []journal.TradeRecord{
		rec(journal.ActionCloseLong, 200, 1),
		rec(journal.ActionStopLoss, -100, 2),
	}, []journal.EquitySnapshot{snap(10200, 1), snap(10100, 2)})
	s.AccountID = "acct-9"

	var buf bytes.Buffer
	Print(&buf, s)
	out := buf.String()

	assert.Contains(t, out, "Account:       acct-9")
	assert.Contains(t, out, "Trades:        2")
	assert.Contains(t, out, "Win Rate:      50.00%")
	assert.Contains(t, out, "Net P/L:       100.00")
	assert.Contains(t, out, "Profit Factor: 2.00")
	assert.Contains(t, out, "Max Drawdown:  100.00")
}

func TestWriteOrg(t *testing.T) {
	s := Summarize(10000, []journal.TradeRecord{rec(journal.ActionCloseLong, 200, 1)}, nil)
	s.AccountID = "acct-9"

	var buf bytes.Buffer
	require.NoError(t, WriteOrg(&buf, s))
	out := buf.String()

	assert.Contains(t, out, "* SIMULATION: acct-9")
	assert.Contains(t, out, ":START_DATE:  2024-05-01")
	assert.Contains(t, out, ":NET_PL:      200.00")
	assert.Contains(t, out, ":TRADES:      1")
	assert.Contains(t, out, ":PROFIT_FAC:  (profit-factor?)")
	assert.Contains(t, out, "| Wins        | 1 |")
}
