package sim

import (
	"fmt"
	"sort"
	"time"
)

// sizeEpsilon absorbs float noise when an order closes "exactly" the
// open size.
const sizeEpsilon = 1e-9

// Book maps each symbol to at most one open position and moves
// collateral through the ledger as positions open, grow, shrink and close.
type Book struct {
	ledger    *Ledger
	positions map[string]*Position
}

func NewBook(ledger *Ledger) *Book {
	return &Book{
		ledger:    ledger,
		positions: make(map[string]*Position),
	}
}

func (b *Book) Get(symbol string) (*Position, bool) {
	p, ok := b.positions[symbol]
	return p, ok
}

func (b *Book) Len() int { return len(b.positions) }

// Sorted returns the open positions ordered by symbol.
func (b *Book) Sorted() []*Position {
	out := make([]*Position, 0, len(b.positions))
	for _, p := range b.positions {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

func (b *Book) UnrealizedPL() float64 {
	var total float64
	for _, p := range b.positions {
		total += p.UnrealizedPL
	}
	return total
}

func (b *Book) MarginUsed() float64 {
	var total float64
	for _, p := range b.positions {
		total += p.Collateral
	}
	return total
}

// Open debits the position's collateral and inserts it.
func (b *Book) Open(p *Position) error {
	if _, ok := b.positions[p.Symbol]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicatePosition, p.Symbol)
	}
	b.ledger.Debit(p.Collateral)
	b.positions[p.Symbol] = p
	return nil
}

// Increase adds size units filled at price to p, posting collateral more.
// The entry becomes the size weighted average. When the add uses a
// different leverage the position carries the effective leverage of its
// combined collateral.
func (b *Book) Increase(p *Position, size, price, leverage, collateral float64, at time.Time) {
	total := p.Size + size
	p.EntryPrice = (p.EntryPrice*p.Size + price*size) / total
	p.Size = total
	p.Collateral += collateral
	if leverage != p.Leverage {
		p.Leverage = p.Size * p.EntryPrice / p.Collateral
	}
	b.ledger.Debit(collateral)
	p.mark(price, at)
}

// Reduce closes closing units of p at exit and credits the released
// collateral plus P/L. The position is removed once nothing is left.
// The returned bool reports whether p was fully closed.
func (b *Book) Reduce(p *Position, closing, exit float64, at time.Time) (settlement, bool) {
	full := p.Size-closing <= sizeEpsilon
	if full {
		closing = p.Size
	}

	s := settle(p.Side, p.EntryPrice, exit, p.Size, p.Collateral, closing)
	b.ledger.Credit(s.Credit)

	if full {
		delete(b.positions, p.Symbol)
		return s, true
	}

	p.Size -= closing
	p.Collateral -= s.Released
	p.RealizedPL = 0
	p.mark(exit, at)
	return s, false
}

// Check verifies the book's invariants: one position per symbol, keyed
// by its own symbol, with positive size and entry and non-negative
// collateral.
func (b *Book) Check() error {
	for symbol, p := range b.positions {
		switch {
		case p == nil:
			return fmt.Errorf("%w: nil position for %s", ErrBookInvariant, symbol)
		case p.Symbol != symbol:
			return fmt.Errorf("%w: key %s holds position for %s", ErrBookInvariant, symbol, p.Symbol)
		case p.Size <= 0:
			return fmt.Errorf("%w: %s size %v", ErrBookInvariant, symbol, p.Size)
		case p.EntryPrice <= 0:
			return fmt.Errorf("%w: %s entry %v", ErrBookInvariant, symbol, p.EntryPrice)
		case p.Collateral < 0:
			return fmt.Errorf("%w: %s collateral %v", ErrBookInvariant, symbol, p.Collateral)
		}
	}
	return nil
}
