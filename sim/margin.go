package sim

import "github.com/rustyeddy/perps/broker"

// RequiredCollateral is the margin posted to carry size units at price
// with the given leverage: notional / leverage.
func RequiredCollateral(size, price, leverage float64) float64 {
	notional := size * price
	return notional / leverage
}

// LiquidationPrice is the isolated-margin price at which the posted
// collateral is exhausted, ignoring fees.
//
//	long:  entry * (1 - 1/leverage)
//	short: entry * (1 + 1/leverage)
func LiquidationPrice(side broker.PositionSide, entry, leverage float64) float64 {
	if side == broker.Short {
		return entry * (1 + 1/leverage)
	}
	return entry * (1 - 1/leverage)
}
