// Package report turns journal records into run statistics and renders
// them as plain text or Org-mode.
package report

import (
	"math"
	"time"

	"github.com/rustyeddy/perps/journal"
)

// Summary is the outcome of one simulated run.
type Summary struct {
	AccountID string
	Start     time.Time
	End       time.Time

	// Results. Every closing leg (partial or full) counts as a trade.
	Trades       int
	Wins         int
	Losses       int
	Liquidations int
	WinRate      float64 // percent
	AvgWin       float64
	AvgLoss      float64 // negative
	ProfitFactor float64 // gross profit / gross loss, 0 without losses

	// Account
	StartBalance float64
	EndBalance   float64
	EndEquity    float64
	NetPL        float64
	ReturnPct    float64

	MaxDrawdown    float64
	MaxDrawdownPct float64
	Sharpe         float64
}

// Summarize computes run statistics from the trade journal and equity
// curve of an account that started with startBalance. Drawdown is
// measured on equity, starting from startBalance as the first peak.
func Summarize(startBalance float64, trades []journal.TradeRecord, equity []journal.EquitySnapshot) Summary {
	s := Summary{
		StartBalance: startBalance,
		EndBalance:   startBalance,
		EndEquity:    startBalance,
	}

	var grossWin, grossLoss float64
	var returns []float64
	for _, tr := range trades {
		s.Start = earliest(s.Start, tr.Time)
		s.End = latest(s.End, tr.Time)
		if !tr.Action.Realizes() {
			continue
		}

		s.Trades++
		s.NetPL += tr.RealizedPL
		if tr.Action == journal.ActionLiquidation {
			s.Liquidations++
		}
		switch {
		case tr.RealizedPL > 0:
			s.Wins++
			grossWin += tr.RealizedPL
		case tr.RealizedPL < 0:
			s.Losses++
			grossLoss += tr.RealizedPL
		}
		if startBalance > 0 {
			returns = append(returns, tr.RealizedPL/startBalance)
		}
	}

	if s.Trades > 0 {
		s.WinRate = float64(s.Wins) / float64(s.Trades) * 100
	}
	if s.Wins > 0 {
		s.AvgWin = grossWin / float64(s.Wins)
	}
	if s.Losses > 0 {
		s.AvgLoss = grossLoss / float64(s.Losses)
		s.ProfitFactor = grossWin / -grossLoss
	}
	if startBalance > 0 {
		s.ReturnPct = s.NetPL / startBalance * 100
	}
	s.Sharpe = sharpe(returns)

	peak := startBalance
	for _, snap := range equity {
		s.Start = earliest(s.Start, snap.Time)
		s.End = latest(s.End, snap.Time)
		s.EndBalance = snap.Balance
		s.EndEquity = snap.Equity

		if snap.Equity > peak {
			peak = snap.Equity
		}
		dd := peak - snap.Equity
		if dd > s.MaxDrawdown {
			s.MaxDrawdown = dd
		}
		if peak > 0 {
			if pct := dd / peak * 100; pct > s.MaxDrawdownPct {
				s.MaxDrawdownPct = pct
			}
		}
	}
	if len(equity) == 0 {
		s.EndBalance = startBalance + s.NetPL
		s.EndEquity = s.EndBalance
	}
	return s
}

// sharpe is the mean per-trade return over its population standard
// deviation. It is not annualized.
func sharpe(returns []float64) float64 {
	if len(returns) == 0 {
		return 0
	}
	var mean float64
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))

	var variance float64
	for _, r := range returns {
		variance += (r - mean) * (r - mean)
	}
	std := math.Sqrt(variance / float64(len(returns)))
	if std == 0 {
		return 0
	}
	return mean / std
}

func earliest(a, b time.Time) time.Time {
	if a.IsZero() || (!b.IsZero() && b.Before(a)) {
		return b
	}
	return a
}

func latest(a, b time.Time) time.Time {
	if b.After(a) {
		return b
	}
	return a
}
