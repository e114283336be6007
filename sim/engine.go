package sim

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/rustyeddy/perps/broker"
	"github.com/rustyeddy/perps/journal"
	"github.com/rustyeddy/perps/market"
)

// CloseListener is notified after the engine closes a position on its own
// (liquidation, stop loss, take profit, trailing stop). It is called after
// the engine lock is released, so it may call back into the engine.
type CloseListener interface {
	OnPositionClosed(positionID, symbol string, action journal.Action)
}

// Engine is a single simulated perpetual-futures account. Every exported
// method runs under one mutex, so reads never observe a half-applied fill
// or close.
type Engine struct {
	mu       sync.Mutex
	acctID   string
	currency string
	ledger   *Ledger
	book     *Book
	prices   *market.TickStore
	journal  journal.Journal
	history  []journal.TradeRecord
	realized float64
	listener CloseListener
	log      *zap.Logger
	now      func() time.Time
}

type Option func(*Engine)

// WithLogger sets the engine logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// WithClock overrides the time source used to stamp calls that carry no
// time of their own.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// NewEngine creates an engine funded with acct.Balance. A nil journal
// discards records.
func NewEngine(acct broker.Account, j journal.Journal, opts ...Option) *Engine {
	if j == nil {
		j = journal.Discard
	}
	ledger := NewLedger(acct.Balance)
	e := &Engine{
		acctID:   acct.ID,
		currency: acct.Currency,
		ledger:   ledger,
		book:     NewBook(ledger),
		prices:   market.NewTickStore(),
		journal:  j,
		log:      zap.NewNop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.log = e.log.With(zap.String("account", acct.ID))
	return e
}

// SetCloseListener sets an optional listener for automatic closes.
func (e *Engine) SetCloseListener(l CloseListener) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.listener = l
}

// Prices exposes the last tick seen for every symbol.
func (e *Engine) Prices() *market.TickStore { return e.prices }

// LastPrice returns the most recent tick for symbol.
func (e *Engine) LastPrice(symbol string) (market.Tick, error) {
	return e.prices.Get(symbol)
}

// Position returns a copy of the open position for symbol.
func (e *Engine) Position(symbol string) (Position, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	p, ok := e.book.Get(symbol)
	if !ok {
		return Position{}, false
	}
	return p.clone(), true
}

// Positions returns copies of every open position, ordered by symbol.
func (e *Engine) Positions() []Position {
	e.mu.Lock()
	defer e.mu.Unlock()
	open := e.book.Sorted()
	out := make([]Position, 0, len(open))
	for _, p := range open {
		out = append(out, p.clone())
	}
	return out
}

func (e *Engine) Balance() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ledger.Balance()
}

// Equity is the balance plus the unrealized P/L of every open position.
func (e *Engine) Equity() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.equityLocked()
}

// TotalPnL is the P/L realized since the engine started plus the
// unrealized P/L of the open positions.
func (e *Engine) TotalPnL() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.realized + e.book.UnrealizedPL()
}

// RealizedPnL is the P/L realized since the engine started.
func (e *Engine) RealizedPnL() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.realized
}

// TotalMarginUsed is the collateral posted across open positions.
func (e *Engine) TotalMarginUsed() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.book.MarginUsed()
}

// GetAccount returns a consistent snapshot of the account.
func (e *Engine) GetAccount(ctx context.Context) (broker.Account, error) {
	if err := ctx.Err(); err != nil {
		return broker.Account{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	unrealized := e.book.UnrealizedPL()
	return broker.Account{
		ID:            e.acctID,
		Currency:      e.currency,
		Balance:       e.ledger.Balance(),
		Equity:        e.ledger.Balance() + unrealized,
		MarginUsed:    e.book.MarginUsed(),
		UnrealizedPnL: unrealized,
		RealizedPnL:   e.realized,
		TotalPnL:      e.realized + unrealized,
		OpenPositions: e.book.Len(),
	}, nil
}

// History returns every open, add and close the engine has booked, in
// order.
func (e *Engine) History() []journal.TradeRecord {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]journal.TradeRecord(nil), e.history...)
}

func (e *Engine) equityLocked() float64 {
	return e.ledger.Balance() + e.book.UnrealizedPL()
}

func (e *Engine) stamp(t time.Time) time.Time {
	if t.IsZero() {
		return e.now()
	}
	return t
}

// recordLocked appends rec to the history and forwards it to the journal.
func (e *Engine) recordLocked(rec journal.TradeRecord) error {
	e.history = append(e.history, rec)
	return e.journal.RecordTrade(rec)
}

func (e *Engine) snapshotLocked(at time.Time) error {
	unrealized := e.book.UnrealizedPL()
	return e.journal.RecordEquity(journal.EquitySnapshot{
		Time:          at,
		Balance:       e.ledger.Balance(),
		Equity:        e.ledger.Balance() + unrealized,
		MarginUsed:    e.book.MarginUsed(),
		UnrealizedPL:  unrealized,
		RealizedPL:    e.realized,
		OpenPositions: e.book.Len(),
	})
}
