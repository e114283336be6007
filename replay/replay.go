// Package replay drives a simulation engine from a scripted scenario: a
// CSV of price ticks with optional order and stop events.
package replay

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/rustyeddy/perps/broker"
	"github.com/rustyeddy/perps/market"
	"github.com/rustyeddy/perps/risk"
	"github.com/rustyeddy/perps/sim"
)

// Engine is the part of sim.Engine a scenario drives.
type Engine interface {
	PlaceOrder(ctx context.Context, req broker.OrderRequest) (broker.Order, error)
	UpdateTick(ctx context.Context, t market.Tick) error
	ClosePosition(ctx context.Context, symbol string, exitPrice float64, reason string) (broker.CloseResult, error)
	SetStopLoss(symbol string, price float64) error
	SetTakeProfit(symbol string, price float64) error
	SetTrailingStop(symbol string, trailPercent, activationPercent float64) error
	Positions() []sim.Position
	GetAccount(ctx context.Context) (broker.Account, error)
}

// Options controls how a replay behaves.
type Options struct {
	// EventThenTick applies the row's event before its tick. By default
	// the tick is applied first so orders fill at a price the risk rules
	// have already seen.
	EventThenTick bool

	// CloseAtEnd closes every open position at its last mark once the
	// feed is exhausted.
	CloseAtEnd bool

	// DefaultLeverage is used by buy/sell rows that leave p2 empty.
	// Zero means 1.
	DefaultLeverage float64

	// Policy, when set, vets every buy and sell. Orders it rejects are
	// counted as Blocked and never reach the engine.
	Policy *risk.Policy

	Logger *zap.Logger
}

// Result counts what a replay did.
type Result struct {
	Rows      int
	Events    int
	Filled    int
	Cancelled int
	Blocked   int
	Closed    int
}

// Source yields scenario rows in order. ok is false once it is
// exhausted.
type Source interface {
	Next() (row EventRow, ok bool, err error)
}

// Rows is a Source over rows held in memory.
func Rows(rows []EventRow) Source {
	return &sliceSource{rows: rows}
}

type sliceSource struct {
	rows []EventRow
	i    int
}

func (s *sliceSource) Next() (EventRow, bool, error) {
	if s.i >= len(s.rows) {
		return EventRow{}, false, nil
	}
	row := s.rows[s.i]
	s.i++
	return row, true, nil
}

// CSV replays the scenario file at path into engine.
//
// Events (case-insensitive), all acting on the row's symbol at the row's
// price:
//
//	buy, sell:    p1=size  p2=leverage  p3=stop loss  p4=take profit
//	              a p1 such as "1%" sizes the order to lose that share
//	              of equity at the stop loss
//	close:        p1=reason (optional)
//	stoploss:     p1=price
//	takeprofit:   p1=price
//	trailing:     p1=trail percent  p2=activation percent
func CSV(ctx context.Context, path string, engine Engine, opts Options) (Result, error) {
	feed, err := NewCSVEventsFeed(path, time.Time{}, time.Time{})
	if err != nil {
		return Result{}, err
	}
	defer feed.Close()
	return Run(ctx, feed, engine, opts)
}

// Run applies every row from src to engine, stopping at the first error
// or when ctx is done.
func Run(ctx context.Context, src Source, engine Engine, opts Options) (Result, error) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	r := &runner{engine: engine, opts: opts, log: log}

	for {
		if err := ctx.Err(); err != nil {
			return r.res, err
		}
		row, ok, err := src.Next()
		if err != nil {
			return r.res, err
		}
		if !ok {
			break
		}
		if err := r.apply(ctx, row); err != nil {
			return r.res, fmt.Errorf("line %d: %w", row.Line, err)
		}
	}

	if opts.CloseAtEnd {
		for _, p := range engine.Positions() {
			res, err := engine.ClosePosition(ctx, p.Symbol, p.CurrentPrice, "end of replay")
			if err != nil {
				return r.res, err
			}
			if res.Success {
				r.res.Closed++
			}
		}
	}
	return r.res, nil
}

type runner struct {
	engine Engine
	opts   Options
	log    *zap.Logger
	res    Result
}

func (r *runner) apply(ctx context.Context, row EventRow) error {
	r.res.Rows++
	hasEvent := strings.TrimSpace(row.Event) != ""

	if hasEvent && r.opts.EventThenTick {
		if err := r.event(ctx, row); err != nil {
			return err
		}
	}
	if err := r.engine.UpdateTick(ctx, row.Tick); err != nil {
		return err
	}
	if hasEvent && !r.opts.EventThenTick {
		return r.event(ctx, row)
	}
	return nil
}

var errMissingParam = errors.New("missing parameter")

func (r *runner) event(ctx context.Context, row EventRow) error {
	r.res.Events++
	sym := row.Tick.Symbol
	ev := strings.ToLower(strings.TrimSpace(row.Event))

	switch ev {
	case "buy", "sell":
		req, err := r.orderRequest(ctx, row, broker.Side(ev))
		if err != nil {
			return fmt.Errorf("%s: %w", ev, err)
		}
		if r.opts.Policy != nil {
			ok, err := r.vet(ctx, row, req)
			if err != nil || !ok {
				return err
			}
		}
		o, err := r.engine.PlaceOrder(ctx, req)
		if err != nil {
			return err
		}
		if o.Status == broker.Filled {
			r.res.Filled++
		} else {
			r.res.Cancelled++
		}
		r.log.Debug("replay order",
			zap.Int("line", row.Line),
			zap.String("symbol", sym),
			zap.String("status", string(o.Status)),
			zap.String("reason", o.Reason),
		)
		return nil

	case "close":
		reason := row.P1
		if reason == "" {
			reason = "replay close"
		}
		res, err := r.engine.ClosePosition(ctx, sym, row.Tick.Price, reason)
		if err != nil {
			return err
		}
		if res.Success {
			r.res.Closed++
		}
		return nil

	case "stoploss", "sl":
		px, err := required(row.P1, "price")
		if err != nil {
			return fmt.Errorf("%s: %w", ev, err)
		}
		return r.engine.SetStopLoss(sym, px)

	case "takeprofit", "tp":
		px, err := required(row.P1, "price")
		if err != nil {
			return fmt.Errorf("%s: %w", ev, err)
		}
		return r.engine.SetTakeProfit(sym, px)

	case "trailing":
		trail, err := required(row.P1, "trail percent")
		if err != nil {
			return fmt.Errorf("%s: %w", ev, err)
		}
		activation, err := optional(row.P2, 0)
		if err != nil {
			return fmt.Errorf("%s: activation: %w", ev, err)
		}
		return r.engine.SetTrailingStop(sym, trail, activation)

	default:
		return fmt.Errorf("unknown event %q", row.Event)
	}
}

func (r *runner) orderRequest(ctx context.Context, row EventRow, side broker.Side) (broker.OrderRequest, error) {
	def := r.opts.DefaultLeverage
	if def == 0 {
		def = 1
	}
	lev, err := optional(row.P2, def)
	if err != nil {
		return broker.OrderRequest{}, fmt.Errorf("leverage: %w", err)
	}

	req := broker.OrderRequest{
		Symbol:   row.Tick.Symbol,
		Side:     side,
		Price:    row.Tick.Price,
		Type:     broker.Market,
		Leverage: lev,
		Time:     row.Tick.Time,
	}
	if row.P3 != "" {
		sl, err := parseFloat(row.P3)
		if err != nil {
			return req, fmt.Errorf("stop loss %q: %w", row.P3, err)
		}
		req.StopLoss = &sl
	}
	if row.P4 != "" {
		tp, err := parseFloat(row.P4)
		if err != nil {
			return req, fmt.Errorf("take profit %q: %w", row.P4, err)
		}
		req.TakeProfit = &tp
	}

	if pct, ok := strings.CutSuffix(row.P1, "%"); ok {
		size, err := r.riskSize(ctx, req, pct)
		if err != nil {
			return req, err
		}
		req.Size = size
		return req, nil
	}
	size, err := required(row.P1, "size")
	if err != nil {
		return req, err
	}
	req.Size = size
	return req, nil
}

// riskSize sizes req so that hitting its stop loss costs pct percent of
// current equity.
func (r *runner) riskSize(ctx context.Context, req broker.OrderRequest, pct string) (float64, error) {
	riskPct, err := required(strings.TrimSpace(pct), "risk percent")
	if err != nil {
		return 0, err
	}
	if req.StopLoss == nil {
		return 0, fmt.Errorf("%w: stop loss for risk sizing", errMissingParam)
	}
	acct, err := r.engine.GetAccount(ctx)
	if err != nil {
		return 0, err
	}

	var minSize float64
	if meta, ok := market.Lookup(req.Symbol); ok {
		minSize = meta.MinSize
	}
	res, err := risk.Size(risk.Inputs{
		Equity:     acct.Equity,
		RiskPct:    riskPct / 100,
		EntryPrice: req.Price,
		StopPrice:  *req.StopLoss,
		Leverage:   req.Leverage,
		MinSize:    minSize,
	})
	if err != nil {
		return 0, err
	}
	if res.Size <= 0 {
		return 0, fmt.Errorf("risk of %s%% rounds to zero size", pct)
	}
	return res.Size, nil
}

// vet checks the exposure req adds against the policy and reports
// whether it may be placed.
func (r *runner) vet(ctx context.Context, row EventRow, req broker.OrderRequest) (bool, error) {
	acct, err := r.engine.GetAccount(ctx)
	if err != nil {
		return false, err
	}
	intent := risk.TradeIntent{
		Symbol:      req.Symbol,
		Side:        req.Side,
		Size:        req.Size,
		Entry:       req.Price,
		Leverage:    req.Leverage,
		NewPosition: true,
	}
	if req.StopLoss != nil {
		intent.Stop = *req.StopLoss
	}
	if req.TakeProfit != nil {
		intent.TakeProfit = *req.TakeProfit
	}
	for _, p := range r.engine.Positions() {
		if p.Symbol != req.Symbol {
			continue
		}
		if p.Side == req.Side.PositionSide() {
			intent.NewPosition = false
			break
		}
		// Reducing never adds risk; a reversal is vetted on what it opens.
		if req.Size <= p.Size+1e-9 {
			return true, nil
		}
		intent.Size = req.Size - p.Size
	}

	d := risk.Evaluate(*r.opts.Policy, intent, acct)
	if d.Allowed {
		return true, nil
	}
	r.res.Blocked++
	r.log.Warn("order blocked by risk policy",
		zap.Int("line", row.Line),
		zap.String("symbol", req.Symbol),
		zap.String("side", string(req.Side)),
		zap.Float64("size", req.Size),
		zap.String("violations", d.Codes()),
	)
	return false, nil
}

func required(s, name string) (float64, error) {
	if s == "" {
		return 0, fmt.Errorf("%w: %s", errMissingParam, name)
	}
	v, err := parseFloat(s)
	if err != nil {
		return 0, fmt.Errorf("bad %s %q: %w", name, s, err)
	}
	return v, nil
}

func optional(s string, def float64) (float64, error) {
	if s == "" {
		return def, nil
	}
	return parseFloat(s)
}
