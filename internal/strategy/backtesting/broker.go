package backtesting

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"quantEngine/internal/domain"
	"quantEngine/internal/portfolio"
	"quantEngine/internal/ports"
	"quantEngine/internal/securities"
	"quantEngine/internal/transactions"
)

// broker is the ports.OrderRouter handed to strategies during a run.
type broker struct {
	transactions *transactions.Manager
	portfolio    *portfolio.Manager
	registry     *securities.Registry
}

func (b *broker) Submit(ctx context.Context, symbol string, quantity int64, orderType domain.OrderType, price decimal.Decimal, tag string) (int64, error) {
	return b.transactions.Submit(ctx, domain.NewOrder(symbol, quantity, orderType, price, b.registry.Time(), tag))
}

func (b *broker) Cancel(ctx context.Context, orderID int64) error {
	return b.transactions.Cancel(ctx, orderID)
}

func (b *broker) Liquidate(ctx context.Context, symbol string) []int64 {
	return b.transactions.Liquidate(ctx, symbol)
}

func (b *broker) Holding(symbol string) domain.HoldingSnapshot {
	return b.portfolio.Holding(symbol)
}

func (b *broker) Cash() decimal.Decimal {
	return b.portfolio.Cash()
}

func (b *broker) Time() time.Time {
	return b.registry.Time()
}

var _ ports.OrderRouter = (*broker)(nil)
