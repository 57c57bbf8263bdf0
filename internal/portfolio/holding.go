package portfolio

import (
	"github.com/shopspring/decimal"

	"quantEngine/internal/domain"
)

// Holding is the position ledger of one symbol. Only the Manager mutates it.
type Holding struct {
	symbol          string
	averagePrice    decimal.Decimal
	quantity        int64
	profit          decimal.Decimal
	lastTradeProfit decimal.Decimal
	totalFees       decimal.Decimal
	totalSaleVolume decimal.Decimal
}

func newHolding(symbol string) *Holding {
	return &Holding{symbol: symbol}
}

func (h *Holding) Symbol() string                   { return h.symbol }
func (h *Holding) AveragePrice() decimal.Decimal    { return h.averagePrice }
func (h *Holding) Quantity() int64                  { return h.quantity }
func (h *Holding) Profit() decimal.Decimal          { return h.profit }
func (h *Holding) LastTradeProfit() decimal.Decimal { return h.lastTradeProfit }
func (h *Holding) TotalFees() decimal.Decimal       { return h.totalFees }
func (h *Holding) TotalSaleVolume() decimal.Decimal { return h.totalSaleVolume }
func (h *Holding) IsLong() bool                     { return h.quantity > 0 }
func (h *Holding) IsShort() bool                    { return h.quantity < 0 }

// AbsoluteQuantity returns the unsigned position size.
func (h *Holding) AbsoluteQuantity() int64 {
	if h.quantity < 0 {
		return -h.quantity
	}
	return h.quantity
}

// HoldingValue is the signed cost basis, average price x quantity.
func (h *Holding) HoldingValue() decimal.Decimal {
	return h.averagePrice.Mul(decimal.NewFromInt(h.quantity))
}

// AbsoluteHoldings is the unsigned cost basis.
func (h *Holding) AbsoluteHoldings() decimal.Decimal {
	return h.HoldingValue().Abs()
}

// NetProfit is realized profit less fees paid.
func (h *Holding) NetProfit() decimal.Decimal {
	return h.profit.Sub(h.totalFees)
}

// UnrealizedProfit is the profit of closing the position at price, after
// paying closeFee.
func (h *Holding) UnrealizedProfit(price, closeFee decimal.Decimal) decimal.Decimal {
	qty := decimal.NewFromInt(h.AbsoluteQuantity())
	var gross decimal.Decimal
	switch {
	case h.IsLong():
		gross = price.Sub(h.averagePrice).Mul(qty)
	case h.IsShort():
		gross = h.averagePrice.Sub(price).Mul(qty)
	default:
		return decimal.Zero
	}
	return gross.Sub(closeFee)
}

func (h *Holding) snapshot(price, unrealized decimal.Decimal) domain.HoldingSnapshot {
	return domain.HoldingSnapshot{
		Symbol:           h.symbol,
		Quantity:         h.quantity,
		AveragePrice:     h.averagePrice,
		MarketPrice:      price,
		Profit:           h.profit,
		LastTradeProfit:  h.lastTradeProfit,
		TotalFees:        h.totalFees,
		TotalSaleVolume:  h.totalSaleVolume,
		UnrealizedProfit: unrealized,
	}
}

func (h *Holding) addFee(fee decimal.Decimal)   { h.totalFees = h.totalFees.Add(fee) }
func (h *Holding) addSale(value decimal.Decimal) { h.totalSaleVolume = h.totalSaleVolume.Add(value) }

func (h *Holding) addProfit(pl decimal.Decimal) {
	h.profit = h.profit.Add(pl)
	h.lastTradeProfit = pl
}

// setHoldings stores the new position; a flat position carries no average price.
func (h *Holding) setHoldings(averagePrice decimal.Decimal, quantity int64) {
	if quantity == 0 {
		averagePrice = decimal.Zero
	}
	h.averagePrice = averagePrice
	h.quantity = quantity
}
