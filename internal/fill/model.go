package fill

import (
	"github.com/shopspring/decimal"

	"quantEngine/internal/domain"
	"quantEngine/internal/ports"
)

// noRounding disables fill price rounding.
const noRounding int32 = -1

// Model simulates order execution for one asset class. The variant is
// selected by Class; class-specific behaviour lives in Commission, Slippage
// and PriceDecimals.
type Model struct {
	Class         domain.SecurityType
	Commission    CommissionSchedule
	Slippage      SlippageFunc
	PriceDecimals int32 // Minimum price increment as decimal places; negative keeps full precision
}

// NewEquityModel returns the equity variant: cent increments, tiered
// per-share commission, no slippage.
func NewEquityModel(commission CommissionSchedule) Model {
	return Model{
		Class:         domain.Equity,
		Commission:    commission,
		Slippage:      ZeroSlippage,
		PriceDecimals: 2,
	}
}

// NewForexModel returns the FX variant: commission free, slippage derived
// from the data resolution.
func NewForexModel(barFraction decimal.Decimal) Model {
	return Model{
		Class:         domain.Forex,
		Slippage:      ForexSlippage(barFraction),
		PriceDecimals: noRounding,
	}
}

// ForClass returns the default model of an asset class.
func ForClass(class domain.SecurityType) Model {
	if class == domain.Forex {
		return NewForexModel(DefaultForexBarFraction)
	}
	return NewEquityModel(DefaultEquityCommission())
}

// OrderFee returns the commission for trading quantity units at price.
func (m Model) OrderFee(quantity int64, price decimal.Decimal) decimal.Decimal {
	return m.Commission.Fee(quantity, price)
}

// AttemptFill evaluates order against the snapshot and returns the updated
// copy. The input order is never modified. An order that does not trigger is
// returned unchanged. ErrPriceUnavailable is returned when the snapshot holds
// no sample yet.
func (m Model) AttemptFill(snap domain.Snapshot, order domain.Order) (domain.Order, error) {
	if order.IsFinal() {
		return order, nil
	}
	if snap.Last == nil {
		return order, ports.ErrPriceUnavailable
	}

	current := snap.Last.Price
	triggered := false
	switch order.Type {
	case domain.OrderTypeMarket:
		triggered = true
	case domain.OrderTypeStop:
		switch order.Direction() {
		case domain.Sell:
			triggered = current.LessThan(order.Price)
		case domain.Buy:
			triggered = current.GreaterThan(order.Price)
		}
	case domain.OrderTypeLimit:
		low, high := snap.Last.Range()
		switch order.Direction() {
		case domain.Buy:
			triggered = low.LessThan(order.Price)
		case domain.Sell:
			triggered = high.GreaterThan(order.Price)
		}
	default:
		return order, ports.ErrInvalidRequest
	}
	if !triggered {
		return order, nil
	}

	filled := order
	filled.Price = m.fillPrice(snap, order, current)
	filled.Status = domain.OrderStatusFilled
	filled.Time = snap.Time
	filled.Fee = m.OrderFee(filled.Quantity, filled.Price)
	return filled, nil
}

// fillPrice moves the current price against the order by the slippage estimate.
func (m Model) fillPrice(snap domain.Snapshot, order domain.Order, current decimal.Decimal) decimal.Decimal {
	slip := decimal.Zero
	if m.Slippage != nil {
		slip = m.Slippage(snap, order)
	}
	price := current
	switch order.Direction() {
	case domain.Buy:
		price = current.Add(slip)
	case domain.Sell:
		price = current.Sub(slip)
	}
	if m.PriceDecimals >= 0 {
		price = price.RoundBank(m.PriceDecimals)
	}
	return price
}
