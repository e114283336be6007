package sim

import (
	"errors"
	"fmt"
	"math"

	"github.com/rustyeddy/perps/broker"
)

// Precondition failures. These indicate a caller bug, not a market
// condition, and are returned before any state is touched.
var (
	ErrInvalidSymbol        = errors.New("invalid symbol")
	ErrInvalidSide          = errors.New("invalid side")
	ErrInvalidSize          = errors.New("size must be positive")
	ErrInvalidPrice         = errors.New("price must be positive")
	ErrInvalidLeverage      = errors.New("leverage must be at least 1")
	ErrInvalidPercent       = errors.New("percent out of range")
	ErrUnsupportedOrderType = errors.New("unsupported order type")
)

var (
	// ErrDuplicatePosition is returned when a second position would be
	// opened for a symbol that already has one.
	ErrDuplicatePosition = errors.New("position already open for symbol")

	// ErrBookInvariant means the position book no longer satisfies its
	// invariants. It should be unreachable.
	ErrBookInvariant = errors.New("position book invariant violated")
)

func finite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}

func positive(x float64) bool {
	return finite(x) && x > 0
}

func validatePrice(price float64) error {
	if !positive(price) {
		return fmt.Errorf("%w: %v", ErrInvalidPrice, price)
	}
	return nil
}

func validateOrder(req *broker.OrderRequest) error {
	if req.Symbol == "" {
		return ErrInvalidSymbol
	}
	if !req.Side.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidSide, req.Side)
	}
	if req.Type == "" {
		req.Type = broker.Market
	}
	if req.Type != broker.Market {
		return fmt.Errorf("%w: %q", ErrUnsupportedOrderType, req.Type)
	}
	if !positive(req.Size) {
		return fmt.Errorf("%w: %v", ErrInvalidSize, req.Size)
	}
	if err := validatePrice(req.Price); err != nil {
		return err
	}
	if !finite(req.Leverage) || req.Leverage < 1 {
		return fmt.Errorf("%w: %v", ErrInvalidLeverage, req.Leverage)
	}
	if req.StopLoss != nil {
		if err := validatePrice(*req.StopLoss); err != nil {
			return fmt.Errorf("stop loss: %w", err)
		}
	}
	if req.TakeProfit != nil {
		if err := validatePrice(*req.TakeProfit); err != nil {
			return fmt.Errorf("take profit: %w", err)
		}
	}
	return nil
}
