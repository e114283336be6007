package market

import (
	"errors"
	"math"
	"sync"
	"time"
)

// ErrPriceNotFound is returned by TickStore.Get for a symbol that has
// never been priced.
var ErrPriceNotFound = errors.New("price not found")

// Tick is a single mark price observation for a symbol.
type Tick struct {
	Symbol string
	Price  float64
	Time   time.Time
}

// Valid reports whether the tick carries a usable price.
func (t Tick) Valid() bool {
	return t.Symbol != "" && t.Price > 0 && !math.IsInf(t.Price, 0) && !math.IsNaN(t.Price)
}

// TickStore keeps the latest tick per symbol.
type TickStore struct {
	mu    sync.RWMutex
	ticks map[string]Tick
}

func NewTickStore() *TickStore {
	return &TickStore{ticks: make(map[string]Tick)}
}

func (ts *TickStore) Set(t Tick) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	ts.ticks[t.Symbol] = t
}

func (ts *TickStore) Get(symbol string) (Tick, error) {
	ts.mu.RLock()
	defer ts.mu.RUnlock()
	t, ok := ts.ticks[symbol]
	if !ok {
		return Tick{}, ErrPriceNotFound
	}
	return t, nil
}

// Symbols returns every symbol with a stored tick, in no particular order.
func (ts *TickStore) Symbols() []string {
	ts.mu.RLock()
	defer ts.mu.RUnlock()
	out := make([]string, 0, len(ts.ticks))
	for s := range ts.ticks {
		out = append(out, s)
	}
	return out
}
