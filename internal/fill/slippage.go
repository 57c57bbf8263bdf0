package fill

import (
	"github.com/shopspring/decimal"

	"quantEngine/internal/domain"
)

// SlippageFunc estimates the adverse price move for filling order against
// snap. It must be free of side effects; it may run several times per step.
type SlippageFunc func(snap domain.Snapshot, order domain.Order) decimal.Decimal

// ZeroSlippage assumes fills at the observed price.
func ZeroSlippage(domain.Snapshot, domain.Order) decimal.Decimal {
	return decimal.Zero
}

// DefaultForexBarFraction is the share of price assumed lost on bar data.
var DefaultForexBarFraction = decimal.RequireFromString("0.001")

// ForexSlippage approximates FX slippage: a fraction of price on bar data,
// the distance from the order price to the bid (buys) or ask (sells) on ticks.
func ForexSlippage(barFraction decimal.Decimal) SlippageFunc {
	return func(snap domain.Snapshot, order domain.Order) decimal.Decimal {
		if snap.Last == nil {
			return decimal.Zero
		}
		if snap.Resolution.IsBar() || snap.Last.IsBar() {
			return snap.Last.Price.Mul(barFraction)
		}
		switch order.Direction() {
		case domain.Buy:
			return order.Price.Sub(snap.Last.Bid).Abs()
		case domain.Sell:
			return order.Price.Sub(snap.Last.Ask).Abs()
		}
		return decimal.Zero
	}
}
