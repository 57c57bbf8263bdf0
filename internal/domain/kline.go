package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Kline represents a single candlestick data point as read from a file or
// an exchange.
type Kline struct {
	OpenTime  time.Time       // Start time of the interval
	CloseTime time.Time       // End time of the interval
	Symbol    string          // Trading symbol
	Interval  string          // Kline interval (e.g., "1m", "1s")
	Open      decimal.Decimal // Opening price
	High      decimal.Decimal // Highest price
	Low       decimal.Decimal // Lowest price
	Close     decimal.Decimal // Closing price
	Volume    decimal.Decimal // Trading volume
	IsFinal   bool            // Whether this kline is the final one for the interval
}

// MarketData converts the kline into the sample the engine consumes. The
// bar is stamped with its open time.
func (k *Kline) MarketData() MarketData {
	return MarketData{
		Type:   TradeBar,
		Symbol: k.Symbol,
		Time:   k.OpenTime,
		Price:  k.Close,
		Open:   k.Open,
		High:   k.High,
		Low:    k.Low,
		Volume: k.Volume,
	}
}

// Quote is a single tick carrying last trade and top-of-book prices.
type Quote struct {
	Time   time.Time
	Symbol string
	Price  decimal.Decimal
	Bid    decimal.Decimal
	Ask    decimal.Decimal
	Volume decimal.Decimal
}

// MarketData converts the quote into a tick sample.
func (q *Quote) MarketData() MarketData {
	return MarketData{
		Type:   Tick,
		Symbol: q.Symbol,
		Time:   q.Time,
		Price:  q.Price,
		Bid:    q.Bid,
		Ask:    q.Ask,
		Volume: q.Volume,
	}
}
