package ports

import (
	"context"

	"quantEngine/internal/domain"
)

// Strategy defines the interface for trading strategies driven by the backtest loop.
type Strategy interface {
	// Name identifies the strategy in logs and persisted runs.
	Name() string

	// OnData receives every sample sharing the current timestamp, keyed by symbol.
	OnData(ctx context.Context, router OrderRouter, data map[string]domain.MarketData) error
}
