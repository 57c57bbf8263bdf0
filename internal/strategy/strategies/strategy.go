package strategies

import (
	"context"
	"errors"
	"sort"

	"quantEngine/internal/domain"
	"quantEngine/internal/ports"
)

// BaseStrategy provides common functionality for strategies
type BaseStrategy struct {
	logger ports.Logger
}

// NewBaseStrategy creates a new base strategy instance
func NewBaseStrategy(logger ports.Logger) *BaseStrategy {
	return &BaseStrategy{
		logger: logger,
	}
}

// submit places an order and downgrades validation rejections to warnings so
// a refused order never aborts a run. Other errors are returned.
func (b *BaseStrategy) submit(ctx context.Context, router ports.OrderRouter, symbol string, quantity int64, orderType domain.OrderType, price domain.MarketData, tag string) (int64, bool, error) {
	id, err := router.Submit(ctx, symbol, quantity, orderType, price.Price, tag)
	if err == nil {
		return id, true, nil
	}
	var rejection *ports.RejectionError
	if errors.As(err, &rejection) {
		b.logger.Warn(ctx, "Order rejected", map[string]interface{}{
			"symbol":   symbol,
			"quantity": quantity,
			"type":     string(orderType),
			"tag":      tag,
			"code":     int(rejection.Code),
			"reason":   rejection.Err.Error(),
		})
		return 0, false, nil
	}
	return 0, false, err
}

// sortedSymbols returns the keys of data in a stable order.
func sortedSymbols(data map[string]domain.MarketData) []string {
	symbols := make([]string, 0, len(data))
	for s := range data {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)
	return symbols
}
