package journal

import "fmt"

// Action is the kind of ledger event a TradeRecord describes.
type Action int

const (
	ActionUnknown Action = iota
	ActionOpenLong
	ActionOpenShort
	ActionIncreaseLong
	ActionIncreaseShort
	ActionReduceLong
	ActionReduceShort
	ActionCloseLong
	ActionCloseShort
	ActionLiquidation
	ActionStopLoss
	ActionTakeProfit
	ActionTrailingStop
	ActionManualClose
	ActionRejected
)

var actionNames = map[Action]string{
	ActionUnknown:       "unknown",
	ActionOpenLong:      "open_long",
	ActionOpenShort:     "open_short",
	ActionIncreaseLong:  "increase_long",
	ActionIncreaseShort: "increase_short",
	ActionReduceLong:    "reduce_long",
	ActionReduceShort:   "reduce_short",
	ActionCloseLong:     "close_long",
	ActionCloseShort:    "close_short",
	ActionLiquidation:   "liquidation",
	ActionStopLoss:      "stop_loss",
	ActionTakeProfit:    "take_profit",
	ActionTrailingStop:  "trailing_stop",
	ActionManualClose:   "manual_close",
	ActionRejected:      "rejected",
}

func (a Action) String() string {
	if s, ok := actionNames[a]; ok {
		return s
	}
	return fmt.Sprintf("action(%d)", int(a))
}

// ParseAction is the inverse of Action.String.
func ParseAction(s string) (Action, error) {
	for a, name := range actionNames {
		if name == s {
			return a, nil
		}
	}
	return ActionUnknown, fmt.Errorf("unknown action %q", s)
}

// Realizes reports whether the action books realized P/L, i.e. it
// closes some or all of a position.
func (a Action) Realizes() bool {
	switch a {
	case ActionReduceLong, ActionReduceShort,
		ActionCloseLong, ActionCloseShort,
		ActionLiquidation, ActionStopLoss, ActionTakeProfit,
		ActionTrailingStop, ActionManualClose:
		return true
	}
	return false
}

// Automatic reports whether the engine closed the position on its own.
func (a Action) Automatic() bool {
	switch a {
	case ActionLiquidation, ActionStopLoss, ActionTakeProfit, ActionTrailingStop:
		return true
	}
	return false
}
