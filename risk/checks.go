package risk

import (
	"fmt"
	"strings"

	"github.com/rustyeddy/perps/broker"
	"github.com/rustyeddy/perps/sim"
)

type Violation struct {
	Code string
	Msg  string
}

type Decision struct {
	Allowed    bool
	Violations []Violation

	PlannedRisk    float64
	PlannedRiskPct float64
	PlannedRR      float64
	Liquidation    float64
}

func (d *Decision) add(code, msg string) {
	d.Violations = append(d.Violations, Violation{Code: code, Msg: msg})
	d.Allowed = false
}

// Codes joins the violation codes, for logging.
func (d Decision) Codes() string {
	codes := make([]string, 0, len(d.Violations))
	for _, v := range d.Violations {
		codes = append(codes, v.Code)
	}
	return strings.Join(codes, ",")
}

// Evaluate checks intent against p for an account in state acct.
func Evaluate(p Policy, intent TradeIntent, acct broker.Account) Decision {
	d := Decision{Allowed: true}

	if intent.Entry <= 0 || intent.Size <= 0 {
		d.add("NO_SIZE_OR_ENTRY", "entry and size must be positive")
		return d
	}
	lev := intent.Leverage
	if lev < 1 {
		lev = 1
	}
	side := intent.Side.PositionSide()
	d.Liquidation = sim.LiquidationPrice(side, intent.Entry, lev)

	if p.MaxLeverage > 0 && lev > p.MaxLeverage {
		d.add("LEVERAGE_TOO_HIGH",
			fmt.Sprintf("leverage %.2fx exceeds max %.2fx", lev, p.MaxLeverage))
	}

	if intent.Stop > 0 {
		d.PlannedRisk = PlannedRisk(intent.Size, intent.Entry, intent.Stop)
		d.PlannedRiskPct = RiskPct(d.PlannedRisk, acct.Equity)

		if p.MaxRiskPct > 0 && d.PlannedRiskPct > p.MaxRiskPct {
			d.add("RISK_TOO_HIGH",
				fmt.Sprintf("planned risk %.2f%% exceeds max %.2f%%",
					100*d.PlannedRiskPct, 100*p.MaxRiskPct))
		}
		// A stop past the liquidation price never gets the chance to fire.
		if side.Sign()*(intent.Stop-d.Liquidation) <= 0 {
			d.add("STOP_BEYOND_LIQUIDATION",
				fmt.Sprintf("stop %.2f is beyond liquidation %.2f", intent.Stop, d.Liquidation))
		}
		if intent.TakeProfit > 0 {
			d.PlannedRR = RR(intent.Entry, intent.Stop, intent.TakeProfit)
			if p.MinRR > 0 && d.PlannedRR < p.MinRR {
				d.add("RR_TOO_LOW",
					fmt.Sprintf("RR %.2f below minimum %.2f", d.PlannedRR, p.MinRR))
			}
		}
	} else if p.MaxRiskPct > 0 {
		d.add("NO_STOP", "a stop is required to measure risk")
	}

	if intent.NewPosition && p.MaxOpenPositions > 0 && acct.OpenPositions >= p.MaxOpenPositions {
		d.add("TOO_MANY_OPEN_POSITIONS",
			fmt.Sprintf("open positions %d >= max %d", acct.OpenPositions, p.MaxOpenPositions))
	}

	if p.MaxMarginPct > 0 && acct.Equity > 0 {
		after := acct.MarginUsed + sim.RequiredCollateral(intent.Size, intent.Entry, lev)
		if after/acct.Equity > p.MaxMarginPct {
			d.add("MARGIN_TOO_HIGH",
				fmt.Sprintf("margin used %.2f%% exceeds max %.2f%%",
					100*after/acct.Equity, 100*p.MaxMarginPct))
		}
	}

	return d
}
