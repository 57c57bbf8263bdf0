package ports

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"quantEngine/internal/domain"
)

// KlineSource retrieves historical candlestick data from an exchange.
type KlineSource interface {
	// GetKlines retrieves the most recent klines for the given symbol.
	GetKlines(ctx context.Context, symbol string, interval string, limit int) ([]*domain.Kline, error)

	// GetKlinesRange retrieves klines between start and end, paging as needed.
	GetKlinesRange(ctx context.Context, symbol string, interval string, start, end time.Time) ([]*domain.Kline, error)
}

// OrderRouter is the surface a strategy uses to trade against the simulated
// account.
type OrderRouter interface {
	// Submit places an order and returns its ID or a *RejectionError.
	Submit(ctx context.Context, symbol string, quantity int64, orderType domain.OrderType, price decimal.Decimal, tag string) (int64, error)

	// Cancel marks an outstanding order canceled; it is retired on the next step.
	Cancel(ctx context.Context, orderID int64) error

	// Liquidate flattens the holding for symbol, or every holding when symbol is empty.
	Liquidate(ctx context.Context, symbol string) []int64

	// Holding returns a copy of the position for symbol.
	Holding(symbol string) domain.HoldingSnapshot

	// Cash returns the current cash balance.
	Cash() decimal.Decimal

	// Time returns the current simulation time.
	Time() time.Time
}
