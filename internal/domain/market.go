package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// MarketData is one price sample for a symbol: a bar or a tick.
// Bars fill Open/High/Low; ticks fill Bid/Ask.
type MarketData struct {
	Type   DataType
	Symbol string
	Time   time.Time
	Price  decimal.Decimal // Close for bars, last trade for ticks
	Open   decimal.Decimal
	High   decimal.Decimal
	Low    decimal.Decimal
	Bid    decimal.Decimal
	Ask    decimal.Decimal
	Volume decimal.Decimal
}

// IsBar reports whether the sample carries a high/low range.
func (m MarketData) IsBar() bool {
	return m.Type == TradeBar
}

// Range returns the low and high touched during the sample. A tick's range
// collapses to its price.
func (m MarketData) Range() (low, high decimal.Decimal) {
	if m.IsBar() {
		return m.Low, m.High
	}
	return m.Price, m.Price
}

// Snapshot is the read-only view of a security handed to fill models.
type Snapshot struct {
	Symbol     string
	Time       time.Time
	Resolution Resolution
	Last       *MarketData // nil until the first sample arrives
}

// Price returns the current price, false when no sample was observed.
func (s Snapshot) Price() (decimal.Decimal, bool) {
	if s.Last == nil {
		return decimal.Zero, false
	}
	return s.Last.Price, true
}
