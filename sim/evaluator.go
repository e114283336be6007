package sim

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/rustyeddy/perps/journal"
	"github.com/rustyeddy/perps/market"
)

// evaluate marks p at price and decides whether a risk rule closes it.
// Rules are checked in priority order and the first match wins:
// liquidation, stop loss, take profit, trailing stop. The trailing stop
// only moves when none of the others fired.
//
// Liquidations fill at the liquidation price. The conditional stops fill
// at the tick that crossed them, which is the trigger price when the tick
// lands on it and worse when the market gaps through.
func evaluate(p *Position, price float64, at time.Time) (journal.Action, float64, bool) {
	p.mark(price, at)

	switch {
	case hitLiquidation(p, price):
		return journal.ActionLiquidation, p.LiquidationPrice(), true
	case hitStopLoss(p, price):
		return journal.ActionStopLoss, price, true
	case hitTakeProfit(p, price):
		return journal.ActionTakeProfit, price, true
	}

	if p.Trailing != nil && p.Trailing.advance(p, price) {
		return journal.ActionTrailingStop, price, true
	}
	return journal.ActionUnknown, 0, false
}

// UpdateMarketPrice feeds a price for symbol stamped with the engine
// clock. See UpdateTick.
func (e *Engine) UpdateMarketPrice(ctx context.Context, symbol string, price float64) error {
	return e.UpdateTick(ctx, market.Tick{Symbol: symbol, Price: price})
}

// UpdateTick marks the open position on t.Symbol, if any, and runs the
// risk rules against it. At most one close happens per tick. Ticks for
// symbols with no position only update the price cache.
func (e *Engine) UpdateTick(ctx context.Context, t market.Tick) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("update price: %w", err)
	}

	if t.Symbol == "" {
		return fmt.Errorf("update price: %w", ErrInvalidSymbol)
	}
	if err := validatePrice(t.Price); err != nil {
		return fmt.Errorf("update price: %w", err)
	}

	e.mu.Lock()

	t.Time = e.stamp(t.Time)
	e.prices.Set(t)

	p, ok := e.book.Get(t.Symbol)
	if !ok {
		e.mu.Unlock()
		return nil
	}

	positionID := p.ID
	action, exit, fired := evaluate(p, t.Price, t.Time)

	var err error
	if fired {
		var s settlement
		s, _, err = e.closeLocked(p, p.Size, exit, "", action, action, t.Time)
		e.log.Info("position closed",
			zap.String("symbol", t.Symbol),
			zap.String("position", positionID),
			zap.Stringer("action", action),
			zap.Float64("tick", t.Price),
			zap.Float64("exit", exit),
			zap.Float64("pl", s.PL),
		)
	} else {
		e.log.Debug("position marked",
			zap.String("symbol", t.Symbol),
			zap.Float64("price", t.Price),
			zap.Float64("unrealized", p.UnrealizedPL),
		)
	}
	if cerr := e.book.Check(); cerr != nil {
		err = errors.Join(cerr, err)
	} else {
		err = errors.Join(err, e.snapshotLocked(t.Time))
	}

	listener := e.listener
	e.mu.Unlock()

	if fired && listener != nil {
		listener.OnPositionClosed(positionID, t.Symbol, action)
	}
	return err
}
