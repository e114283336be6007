package sim

import (
	"fmt"

	"go.uber.org/zap"
)

// SetStopLoss arms a stop loss at price on the open position for symbol.
// A flat symbol is a no-op.
func (e *Engine) SetStopLoss(symbol string, price float64) error {
	if err := validatePrice(price); err != nil {
		return fmt.Errorf("set stop loss: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	p, ok := e.book.Get(symbol)
	if !ok {
		return nil
	}
	p.StopLoss = &price
	e.log.Debug("stop loss set", zap.String("symbol", symbol), zap.Float64("price", price))
	return nil
}

// SetTakeProfit arms a take profit at price on the open position for
// symbol. A flat symbol is a no-op.
func (e *Engine) SetTakeProfit(symbol string, price float64) error {
	if err := validatePrice(price); err != nil {
		return fmt.Errorf("set take profit: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	p, ok := e.book.Get(symbol)
	if !ok {
		return nil
	}
	p.TakeProfit = &price
	e.log.Debug("take profit set", zap.String("symbol", symbol), zap.Float64("price", price))
	return nil
}

// SetTrailingStop attaches a trailing stop that arms once price has moved
// activationPercent in the position's favor and then trails the best
// price by trailPercent. Setting it again replaces any armed state.
func (e *Engine) SetTrailingStop(symbol string, trailPercent, activationPercent float64) error {
	if !positive(trailPercent) || trailPercent >= 100 {
		return fmt.Errorf("set trailing stop: %w: trail %v", ErrInvalidPercent, trailPercent)
	}
	if !finite(activationPercent) || activationPercent < 0 {
		return fmt.Errorf("set trailing stop: %w: activation %v", ErrInvalidPercent, activationPercent)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	p, ok := e.book.Get(symbol)
	if !ok {
		return nil
	}
	p.Trailing = &TrailingStop{
		Percent:           trailPercent,
		ActivationPercent: activationPercent,
	}
	e.log.Debug("trailing stop set",
		zap.String("symbol", symbol),
		zap.Float64("trail_pct", trailPercent),
		zap.Float64("activation_pct", activationPercent),
	)
	return nil
}

func (e *Engine) ClearStopLoss(symbol string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if p, ok := e.book.Get(symbol); ok {
		p.StopLoss = nil
	}
}

func (e *Engine) ClearTakeProfit(symbol string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if p, ok := e.book.Get(symbol); ok {
		p.TakeProfit = nil
	}
}

func (e *Engine) ClearTrailingStop(symbol string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if p, ok := e.book.Get(symbol); ok {
		p.Trailing = nil
	}
}
