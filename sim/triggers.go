package sim

import "github.com/rustyeddy/perps/broker"

func hitLiquidation(p *Position, price float64) bool {
	liq := p.LiquidationPrice()
	if p.Side == broker.Long {
		return price <= liq
	}
	return price >= liq
}

func hitStopLoss(p *Position, price float64) bool {
	if p.StopLoss == nil {
		return false
	}
	if p.Side == broker.Long {
		return price <= *p.StopLoss
	}
	return price >= *p.StopLoss
}

func hitTakeProfit(p *Position, price float64) bool {
	if p.TakeProfit == nil {
		return false
	}
	if p.Side == broker.Long {
		return price >= *p.TakeProfit
	}
	return price <= *p.TakeProfit
}

// trailFrom places a stop percent away from peak, on the losing side.
func trailFrom(side broker.PositionSide, peak, percent float64) float64 {
	return peak * (1 - side.Sign()*percent/100)
}

// advance folds price into the trailing state of p and reports whether
// price has crossed the stop. An unarmed stop arms once the favorable
// move from entry reaches ActivationPercent.
func (ts *TrailingStop) advance(p *Position, price float64) bool {
	sign := p.Side.Sign()

	if !ts.Active {
		if p.favorableMove(price) < ts.ActivationPercent {
			return false
		}
		ts.Active = true
		ts.PeakPrice = price
		ts.StopPrice = trailFrom(p.Side, price, ts.Percent)
	} else if sign*(price-ts.PeakPrice) > 0 {
		ts.PeakPrice = price
		if next := trailFrom(p.Side, price, ts.Percent); sign*(next-ts.StopPrice) > 0 {
			ts.StopPrice = next
		}
	}

	return sign*(price-ts.StopPrice) <= 0
}
