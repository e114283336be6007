package sim

import "github.com/rustyeddy/perps/broker"

// RealizedPL is the profit of closing size units of a position opened at
// entry, at exit. Positive is profit.
func RealizedPL(side broker.PositionSide, entry, exit, size float64) float64 {
	return side.Sign() * (exit - entry) * size
}

// settlement is the cash effect of closing part or all of a position.
type settlement struct {
	Released float64 // collateral released for the closed size
	PL       float64 // realized P/L, floored at -Released
	Credit   float64 // Released + PL, never negative
}

// settle prices the close of closing units out of a position of size
// units holding collateral. The released collateral is taken pro rata
// before size changes. A loss larger than the released collateral is
// absorbed: the trader forfeits the collateral and nothing more.
func settle(side broker.PositionSide, entry, exit, size, collateral, closing float64) settlement {
	released := collateral * (closing / size)
	pl := RealizedPL(side, entry, exit, closing)
	if pl < -released {
		pl = -released
	}
	return settlement{
		Released: released,
		PL:       pl,
		Credit:   released + pl,
	}
}
