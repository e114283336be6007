package sim

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/rustyeddy/perps/broker"
	"github.com/rustyeddy/perps/internal/id"
	"github.com/rustyeddy/perps/journal"
	"github.com/rustyeddy/perps/market"
)

const (
	reasonInsufficientMargin = "insufficient margin"
	reasonReversalRejected   = "reversal remainder rejected: " + reasonInsufficientMargin
)

// PlaceOrder fills a market order against the account at req.Price.
//
// With no open position the order opens one. An order on the position's
// side adds to it. An order against the position closes up to its size;
// any remainder opens a new position on the other side. An order whose
// collateral the balance cannot cover comes back Cancelled and changes
// nothing; for a reversal that includes the closing leg. Invalid requests
// return an error and also change nothing.
//
// A journal failure after the fill does not undo it: the order comes back
// Filled together with the error.
func (e *Engine) PlaceOrder(ctx context.Context, req broker.OrderRequest) (broker.Order, error) {
	if err := ctx.Err(); err != nil {
		return broker.Order{}, fmt.Errorf("place order: %w", err)
	}
	if err := validateOrder(&req); err != nil {
		return broker.Order{}, fmt.Errorf("place order: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	at := e.stamp(req.Time)
	order := broker.Order{
		ID:       id.NewAt(at),
		Symbol:   req.Symbol,
		Side:     req.Side,
		Type:     req.Type,
		Size:     req.Size,
		Price:    req.Price,
		Leverage: req.Leverage,
		Status:   broker.Cancelled,
		Time:     at,
	}

	var err error
	p, ok := e.book.Get(req.Symbol)
	switch {
	case !ok:
		err = e.openLocked(&order, req, req.Side.PositionSide(), req.Size, at)
	case p.Side.Increases(req.Side):
		err = e.increaseLocked(&order, p, req, at)
	default:
		err = e.reduceLocked(&order, p, req, at)
	}
	if order.Status == broker.Cancelled {
		if err != nil {
			return order, fmt.Errorf("place order: %w", err)
		}
		e.log.Info("order rejected",
			zap.String("order", order.ID),
			zap.String("symbol", order.Symbol),
			zap.String("side", string(order.Side)),
			zap.Float64("size", order.Size),
			zap.Float64("price", order.Price),
			zap.Float64("leverage", order.Leverage),
			zap.Float64("balance", e.ledger.Balance()),
			zap.String("reason", order.Reason),
		)
		return order, e.journal.RecordTrade(journal.TradeRecord{
			ID:       id.NewAt(at),
			OrderID:  order.ID,
			Symbol:   order.Symbol,
			Side:     order.Side.PositionSide(),
			Action:   journal.ActionRejected,
			Size:     order.Size,
			Leverage: order.Leverage,
			Time:     at,
		})
	}

	if cerr := e.book.Check(); cerr != nil {
		return order, errors.Join(cerr, err)
	}
	e.prices.Set(market.Tick{Symbol: req.Symbol, Price: req.Price, Time: at})

	e.log.Info("order filled",
		zap.String("order", order.ID),
		zap.String("symbol", order.Symbol),
		zap.String("side", string(order.Side)),
		zap.Float64("size", order.Size),
		zap.Float64("filled", order.Filled),
		zap.Float64("price", order.Price),
		zap.Float64("leverage", order.Leverage),
		zap.Float64("balance", e.ledger.Balance()),
	)
	if err = errors.Join(err, e.snapshotLocked(at)); err != nil {
		return order, fmt.Errorf("place order: %w", err)
	}
	return order, nil
}

// openLocked opens a fresh position of size units. When the balance cannot
// cover the collateral it leaves the order as is and touches nothing.
func (e *Engine) openLocked(order *broker.Order, req broker.OrderRequest, side broker.PositionSide, size float64, at time.Time) error {
	collateral := RequiredCollateral(size, req.Price, req.Leverage)
	if !e.ledger.Covers(collateral) {
		order.Reason = reasonInsufficientMargin
		return nil
	}

	p := &Position{
		ID:           id.NewAt(at),
		Symbol:       req.Symbol,
		Side:         side,
		Size:         size,
		EntryPrice:   req.Price,
		Leverage:     req.Leverage,
		Collateral:   collateral,
		CurrentPrice: req.Price,
		StopLoss:     copyPrice(req.StopLoss),
		TakeProfit:   copyPrice(req.TakeProfit),
		OpenTime:     at,
		UpdateTime:   at,
	}
	if err := e.book.Open(p); err != nil {
		return err
	}

	order.Status = broker.Filled
	order.Filled += size

	return e.recordLocked(journal.TradeRecord{
		ID:         id.NewAt(at),
		PositionID: p.ID,
		OrderID:    order.ID,
		Symbol:     p.Symbol,
		Side:       side,
		Action:     openAction(side),
		Size:       size,
		EntryPrice: req.Price,
		Leverage:   req.Leverage,
		Collateral: collateral,
		OpenTime:   at,
		Time:       at,
	})
}

// increaseLocked adds to p. Only the added collateral is margin checked.
func (e *Engine) increaseLocked(order *broker.Order, p *Position, req broker.OrderRequest, at time.Time) error {
	collateral := RequiredCollateral(req.Size, req.Price, req.Leverage)
	if !e.ledger.Covers(collateral) {
		order.Reason = reasonInsufficientMargin
		return nil
	}

	e.book.Increase(p, req.Size, req.Price, req.Leverage, collateral, at)
	if req.StopLoss != nil {
		p.StopLoss = copyPrice(req.StopLoss)
	}
	if req.TakeProfit != nil {
		p.TakeProfit = copyPrice(req.TakeProfit)
	}

	order.Status = broker.Filled
	order.Filled = req.Size

	return e.recordLocked(journal.TradeRecord{
		ID:         id.NewAt(at),
		PositionID: p.ID,
		OrderID:    order.ID,
		Symbol:     p.Symbol,
		Side:       p.Side,
		Action:     increaseAction(p.Side),
		Size:       req.Size,
		EntryPrice: req.Price,
		Leverage:   req.Leverage,
		Collateral: collateral,
		OpenTime:   p.OpenTime,
		Time:       at,
	})
}

// reduceLocked closes up to p.Size at the order price and opens the
// remainder, if any, on the other side. The remainder is margin checked
// against the balance the close will leave before anything moves, so a
// reversal either fills whole or not at all.
func (e *Engine) reduceLocked(order *broker.Order, p *Position, req broker.OrderRequest, at time.Time) error {
	closing := math.Min(req.Size, p.Size)
	remainder := req.Size - closing
	if math.Abs(req.Size-p.Size) <= sizeEpsilon {
		closing, remainder = p.Size, 0
	}

	side := p.Side
	if remainder > 0 {
		credit := settle(side, p.EntryPrice, req.Price, p.Size, p.Collateral, closing).Credit
		need := RequiredCollateral(remainder, req.Price, req.Leverage)
		if need > e.ledger.Balance()+credit {
			order.Reason = reasonReversalRejected
			return nil
		}
	}

	order.Status = broker.Filled
	order.Filled = closing
	s, closed, err := e.closeLocked(p, closing, req.Price, order.ID, closeAction(side), reduceAction(side), at)

	e.log.Debug("position reduced",
		zap.String("symbol", req.Symbol),
		zap.Float64("closed", closing),
		zap.Float64("pl", s.PL),
		zap.Bool("flat", closed),
	)

	if remainder <= 0 {
		return err
	}
	return errors.Join(err, e.openLocked(order, req, side.Opposite(), remainder, at))
}

// closeLocked closes closing units of p at exit, books the P/L and records
// the leg as fullAction or partAction.
func (e *Engine) closeLocked(p *Position, closing, exit float64, orderID string, fullAction, partAction journal.Action, at time.Time) (settlement, bool, error) {
	rec := journal.TradeRecord{
		ID:         id.NewAt(at),
		PositionID: p.ID,
		OrderID:    orderID,
		Symbol:     p.Symbol,
		Side:       p.Side,
		EntryPrice: p.EntryPrice,
		ExitPrice:  exit,
		Leverage:   p.Leverage,
		OpenTime:   p.OpenTime,
		Time:       at,
	}
	before := p.Size

	s, closed := e.book.Reduce(p, closing, exit, at)
	e.realized += s.PL

	rec.Action = partAction
	rec.Size = closing
	if closed {
		rec.Action = fullAction
		rec.Size = before
	}
	rec.Collateral = s.Released
	rec.RealizedPL = s.PL

	return s, closed, e.recordLocked(rec)
}

// ClosePosition closes the whole position on symbol at exitPrice. A flat
// symbol is not an error: the result reports Success false.
func (e *Engine) ClosePosition(ctx context.Context, symbol string, exitPrice float64, reason string) (broker.CloseResult, error) {
	if err := ctx.Err(); err != nil {
		return broker.CloseResult{}, fmt.Errorf("close position: %w", err)
	}
	if err := validatePrice(exitPrice); err != nil {
		return broker.CloseResult{}, fmt.Errorf("close position: %w", err)
	}
	if reason == "" {
		reason = "manual"
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	p, ok := e.book.Get(symbol)
	if !ok {
		return broker.CloseResult{Success: false, Reason: "position not found"}, nil
	}

	at := e.now()
	s, _, err := e.closeLocked(p, p.Size, exitPrice, "", journal.ActionManualClose, journal.ActionManualClose, at)
	res := broker.CloseResult{Success: true, PnL: s.PL, Reason: reason}
	if cerr := e.book.Check(); cerr != nil {
		return res, errors.Join(cerr, err)
	}

	e.log.Info("position closed",
		zap.String("symbol", symbol),
		zap.Float64("exit", exitPrice),
		zap.Float64("pl", s.PL),
		zap.String("reason", reason),
	)

	if err = errors.Join(err, e.snapshotLocked(at)); err != nil {
		return res, fmt.Errorf("close position: %w", err)
	}
	return res, nil
}

func openAction(side broker.PositionSide) journal.Action {
	if side == broker.Short {
		return journal.ActionOpenShort
	}
	return journal.ActionOpenLong
}

func increaseAction(side broker.PositionSide) journal.Action {
	if side == broker.Short {
		return journal.ActionIncreaseShort
	}
	return journal.ActionIncreaseLong
}

func reduceAction(side broker.PositionSide) journal.Action {
	if side == broker.Short {
		return journal.ActionReduceShort
	}
	return journal.ActionReduceLong
}

func closeAction(side broker.PositionSide) journal.Action {
	if side == broker.Short {
		return journal.ActionCloseShort
	}
	return journal.ActionCloseLong
}
