package risk

import (
	"errors"
	"math"
)

var ErrNoStopDistance = errors.New("entry and stop must differ")

type Inputs struct {
	Equity     float64
	RiskPct    float64 // 0.01 = 1% of equity lost if the stop is hit
	EntryPrice float64
	StopPrice  float64
	Leverage   float64
	MinSize    float64 // size increment; 0 leaves size unrounded
}

type Result struct {
	Size         float64
	StopDistance float64
	RiskAmount   float64
	Collateral   float64
}

// Size returns the position size that loses RiskPct of equity when the
// stop is hit, rounded down to a multiple of MinSize. Leverage does not
// change the size, only the collateral it ties up.
func Size(in Inputs) (Result, error) {
	dist := math.Abs(in.EntryPrice - in.StopPrice)
	if dist == 0 {
		return Result{}, ErrNoStopDistance
	}

	riskAmt := in.Equity * in.RiskPct
	size := riskAmt / dist
	if in.MinSize > 0 {
		size = math.Floor(size/in.MinSize+1e-9) * in.MinSize
	}

	lev := in.Leverage
	if lev < 1 {
		lev = 1
	}
	return Result{
		Size:         size,
		StopDistance: dist,
		RiskAmount:   riskAmt,
		Collateral:   size * in.EntryPrice / lev,
	}, nil
}
