package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TradeRecord captures the realized result of a fill that closed (part of)
// a position.
type TradeRecord struct {
	OrderID    int64           // Order whose fill closed the position
	Symbol     string          // Trading symbol
	Time       time.Time       // Fill time, unique across the run's records
	Quantity   int64           // Units closed
	EntryPrice decimal.Decimal // Average cost of the closed units
	ExitPrice  decimal.Decimal // Fill price
	PNL        decimal.Decimal // Gross realized profit
	Fee        decimal.Decimal // Commission of the closing fill
	ProfitLoss decimal.Decimal // PNL less the round-trip fee estimate (2 x Fee)
}

// IsWin reports whether the trade made money after fees.
func (t TradeRecord) IsWin() bool {
	return t.ProfitLoss.IsPositive()
}
