package domain

import "github.com/shopspring/decimal"

// HoldingSnapshot is a copy of a symbol's position state.
type HoldingSnapshot struct {
	Symbol           string
	Quantity         int64
	AveragePrice     decimal.Decimal
	MarketPrice      decimal.Decimal
	Profit           decimal.Decimal // Cumulative realized profit
	LastTradeProfit  decimal.Decimal
	TotalFees        decimal.Decimal
	TotalSaleVolume  decimal.Decimal
	UnrealizedProfit decimal.Decimal
}

// IsLong reports whether the snapshot holds a long position.
func (h HoldingSnapshot) IsLong() bool { return h.Quantity > 0 }

// IsShort reports whether the snapshot holds a short position.
func (h HoldingSnapshot) IsShort() bool { return h.Quantity < 0 }

// HoldingValue is the signed cost basis of the position, average price x quantity.
func (h HoldingSnapshot) HoldingValue() decimal.Decimal {
	return h.AveragePrice.Mul(decimal.NewFromInt(h.Quantity))
}

// MarketValue is the signed value of the position at the last price.
func (h HoldingSnapshot) MarketValue() decimal.Decimal {
	return h.MarketPrice.Mul(decimal.NewFromInt(h.Quantity))
}
