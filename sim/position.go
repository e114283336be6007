package sim

import (
	"time"

	"github.com/rustyeddy/perps/broker"
)

// TrailingStop is a stop that follows the best price seen since it
// activated. StopPrice only ever moves in the position's favor.
type TrailingStop struct {
	Percent           float64 // trail distance from the peak, in percent
	ActivationPercent float64 // favorable move from entry required to arm
	Active            bool
	StopPrice         float64
	PeakPrice         float64
}

// Position is open exposure on one symbol. Values returned by the engine
// are copies; mutating them has no effect on the engine.
type Position struct {
	ID     string
	Symbol string
	Side   broker.PositionSide

	Size       float64 // base units, always > 0 while open
	EntryPrice float64 // size weighted average
	Leverage   float64
	Collateral float64

	CurrentPrice float64
	UnrealizedPL float64

	// RealizedPL is reset to zero by every partial close; realized gains
	// are paid into the balance immediately.
	RealizedPL float64

	StopLoss   *float64
	TakeProfit *float64
	Trailing   *TrailingStop

	OpenTime   time.Time
	UpdateTime time.Time
}

// LiquidationPrice is where the position's collateral is exhausted.
func (p Position) LiquidationPrice() float64 {
	return LiquidationPrice(p.Side, p.EntryPrice, p.Leverage)
}

// Notional is the position value at the current mark.
func (p Position) Notional() float64 {
	return p.Size * p.CurrentPrice
}

// mark revalues the position at price.
func (p *Position) mark(price float64, at time.Time) {
	p.CurrentPrice = price
	p.UnrealizedPL = RealizedPL(p.Side, p.EntryPrice, price, p.Size)
	if !at.IsZero() {
		p.UpdateTime = at
	}
}

// favorableMove is the percent move of price away from entry in the
// position's favor. Negative when the position is losing.
func (p *Position) favorableMove(price float64) float64 {
	return p.Side.Sign() * (price - p.EntryPrice) / p.EntryPrice * 100
}

func (p *Position) clone() Position {
	c := *p
	c.StopLoss = copyPrice(p.StopLoss)
	c.TakeProfit = copyPrice(p.TakeProfit)
	if p.Trailing != nil {
		ts := *p.Trailing
		c.Trailing = &ts
	}
	return c
}

func copyPrice(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
