package journal

import (
	"errors"
	"sync"
	"time"

	"github.com/rustyeddy/perps/broker"
)

// TradeRecord is one ledger event: an open, an add, a partial or full
// close, or a rejected order. Collateral is the amount posted (opens and
// adds) or released (closing legs).
type TradeRecord struct {
	ID         string
	PositionID string
	OrderID    string
	Symbol     string
	Side       broker.PositionSide
	Action     Action
	Size       float64
	EntryPrice float64
	ExitPrice  float64
	Leverage   float64
	Collateral float64
	RealizedPL float64
	OpenTime   time.Time
	Time       time.Time
}

type EquitySnapshot struct {
	Time          time.Time
	Balance       float64
	Equity        float64
	MarginUsed    float64
	UnrealizedPL  float64
	RealizedPL    float64
	OpenPositions int
}

type Journal interface {
	RecordTrade(TradeRecord) error
	RecordEquity(EquitySnapshot) error
	Close() error
}

// Discard drops every record.
var Discard Journal = discard{}

type discard struct{}

func (discard) RecordTrade(TradeRecord) error     { return nil }
func (discard) RecordEquity(EquitySnapshot) error { return nil }
func (discard) Close() error                      { return nil }

// Memory keeps records in slices. It is safe for concurrent use.
type Memory struct {
	mu     sync.Mutex
	trades []TradeRecord
	equity []EquitySnapshot
}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) RecordTrade(rec TradeRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trades = append(m.trades, rec)
	return nil
}

func (m *Memory) RecordEquity(snap EquitySnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.equity = append(m.equity, snap)
	return nil
}

func (m *Memory) Close() error { return nil }

// Trades returns a copy of the recorded trades in insertion order.
func (m *Memory) Trades() []TradeRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]TradeRecord(nil), m.trades...)
}

// Equity returns a copy of the recorded equity curve.
func (m *Memory) Equity() []EquitySnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]EquitySnapshot(nil), m.equity...)
}

// Multi fans every record out to each journal in order. All journals see
// every record; the errors are joined.
func Multi(js ...Journal) Journal {
	return multi(js)
}

type multi []Journal

func (m multi) RecordTrade(rec TradeRecord) error {
	var errs []error
	for _, j := range m {
		errs = append(errs, j.RecordTrade(rec))
	}
	return errors.Join(errs...)
}

func (m multi) RecordEquity(snap EquitySnapshot) error {
	var errs []error
	for _, j := range m {
		errs = append(errs, j.RecordEquity(snap))
	}
	return errors.Join(errs...)
}

func (m multi) Close() error {
	var errs []error
	for _, j := range m {
		errs = append(errs, j.Close())
	}
	return errors.Join(errs...)
}
