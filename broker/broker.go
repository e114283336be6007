// Package broker holds the request and result types exchanged between the
// simulation engine and the code that drives it.
package broker

import "time"

// Side is the direction of an order.
type Side string

const (
	Buy  Side = "buy"
	Sell Side = "sell"
)

func (s Side) Valid() bool {
	return s == Buy || s == Sell
}

// PositionSide maps an order direction onto the exposure it opens.
func (s Side) PositionSide() PositionSide {
	if s == Sell {
		return Short
	}
	return Long
}

// PositionSide is the direction of open exposure.
type PositionSide string

const (
	Long  PositionSide = "long"
	Short PositionSide = "short"
)

// Sign is +1 for long and -1 for short.
func (p PositionSide) Sign() float64 {
	if p == Short {
		return -1
	}
	return 1
}

func (p PositionSide) Opposite() PositionSide {
	if p == Short {
		return Long
	}
	return Short
}

// Increases reports whether an order on side s adds to exposure on p.
func (p PositionSide) Increases(s Side) bool {
	return s.PositionSide() == p
}

type OrderType string

// Market is the only order type the simulation fills.
const Market OrderType = "market"

type OrderStatus string

const (
	Filled    OrderStatus = "filled"
	Cancelled OrderStatus = "cancelled"
)

// OrderRequest asks the engine to fill Size units of Symbol at Price.
// StopLoss and TakeProfit, when set, are attached to the position the
// order opens.
type OrderRequest struct {
	Symbol     string
	Side       Side
	Size       float64
	Price      float64
	Type       OrderType
	Leverage   float64
	StopLoss   *float64
	TakeProfit *float64
	Time       time.Time
}

// Order is the outcome of an OrderRequest.
type Order struct {
	ID       string
	Symbol   string
	Side     Side
	Type     OrderType
	Size     float64
	Price    float64
	Leverage float64
	Status   OrderStatus
	Filled   float64
	Reason   string
	Time     time.Time
}

// CloseResult is returned by a manual position close.
type CloseResult struct {
	Success bool
	PnL     float64
	Reason  string
}

// Account is a point-in-time view of the simulated account.
type Account struct {
	ID            string
	Currency      string
	Balance       float64
	Equity        float64
	MarginUsed    float64
	UnrealizedPnL float64
	RealizedPnL   float64
	TotalPnL      float64
	OpenPositions int
}
