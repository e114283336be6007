package risk

import "github.com/rustyeddy/perps/broker"

// Policy holds pre-trade limits. A zero field disables its check.
type Policy struct {
	MaxRiskPct       float64 // planned loss at the stop / equity, e.g. 0.01
	MaxLeverage      float64
	MaxOpenPositions int
	MaxMarginPct     float64 // collateral posted / equity after the fill
	MinRR            float64
}

type TradeIntent struct {
	Symbol     string
	Side       broker.Side
	Size       float64
	Entry      float64
	Leverage   float64
	Stop       float64 // 0 when none
	TakeProfit float64 // 0 when none

	// NewPosition is true when the order opens a position rather than
	// adding to or reducing one.
	NewPosition bool
}
