package portfolio

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"quantEngine/internal/domain"
	"quantEngine/internal/ports"
	"quantEngine/internal/securities"
)

// SecurityProvider resolves symbols to tracked securities.
type SecurityProvider interface {
	Security(symbol string) (*securities.Security, bool)
}

// FillResult reports the accounting effect of one fill.
type FillResult struct {
	Fee            decimal.Decimal
	RealizedProfit decimal.Decimal
	Trade          *domain.TradeRecord // Nil when the fill closed nothing
}

// Manager owns cash and holdings and applies fills to them.
type Manager struct {
	mu              sync.RWMutex
	securities      SecurityProvider
	logger          ports.Logger
	cash            decimal.Decimal
	holdings        map[string]*Holding
	profit          decimal.Decimal
	lastTradeProfit decimal.Decimal
	trades          []domain.TradeRecord
	tradeTimes      map[int64]struct{}
}

// NewManager creates a portfolio holding startingCash.
func NewManager(startingCash decimal.Decimal, provider SecurityProvider, logger ports.Logger) *Manager {
	return &Manager{
		securities: provider,
		logger:     logger,
		cash:       startingCash,
		holdings:   make(map[string]*Holding),
		tradeTimes: make(map[int64]struct{}),
	}
}

// ApplyFill books a filled order: fee, sale volume, realized profit on the
// closed portion, then the new average price and quantity.
func (m *Manager) ApplyFill(ctx context.Context, order domain.Order) (FillResult, error) {
	if order.Status != domain.OrderStatusFilled {
		return FillResult{}, fmt.Errorf("%w: order %d is %s", ports.ErrInvalidRequest, order.ID, order.Status)
	}
	if order.Quantity == 0 {
		return FillResult{}, ports.ErrZeroQuantity
	}
	if _, ok := m.securities.Security(order.Symbol); !ok {
		return FillResult{}, fmt.Errorf("%w: %s", ports.ErrUnknownSymbol, order.Symbol)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	h := m.holdingLocked(order.Symbol)
	fee := order.Fee.Abs()
	price := order.Price
	orderQty := order.AbsoluteQuantity()
	result := FillResult{Fee: fee}

	m.cash = m.cash.Sub(fee)
	h.addFee(fee)
	h.addSale(price.Mul(decimal.NewFromInt(orderQty)))

	heldQty := h.AbsoluteQuantity()
	avg := h.AveragePrice()
	closing := (h.IsLong() && order.Direction() == domain.Sell) || (h.IsShort() && order.Direction() == domain.Buy)
	if closing {
		closed := min(heldQty, orderQty)
		closedQty := decimal.NewFromInt(closed)
		pl := price.Sub(avg).Mul(closedQty)
		if h.IsShort() {
			pl = avg.Sub(price).Mul(closedQty)
		}
		m.profit = m.profit.Add(pl)
		m.lastTradeProfit = pl
		m.cash = m.cash.Add(pl)
		h.addProfit(pl)

		record := domain.TradeRecord{
			OrderID:    order.ID,
			Symbol:     order.Symbol,
			Time:       m.uniqueTradeTimeLocked(order.Time),
			Quantity:   closed,
			EntryPrice: avg,
			ExitPrice:  price,
			PNL:        pl,
			Fee:        fee,
			ProfitLoss: pl.Sub(fee.Mul(decimal.NewFromInt(2))),
		}
		m.trades = append(m.trades, record)
		result.RealizedProfit = pl
		result.Trade = &record
	}

	newAvg, newQty := nextPosition(avg, h.Quantity(), price, order.Quantity)
	h.setHoldings(newAvg, newQty)

	m.logger.Debug(ctx, "Fill applied", map[string]interface{}{
		"orderID":  order.ID,
		"symbol":   order.Symbol,
		"quantity": order.Quantity,
		"price":    price.String(),
		"fee":      fee.String(),
		"position": newQty,
		"avgPrice": newAvg.String(),
		"cash":     m.cash.String(),
	})
	return result, nil
}

// nextPosition returns the average price and quantity after trading orderQty at price.
func nextPosition(avg decimal.Decimal, held int64, price decimal.Decimal, orderQty int64) (decimal.Decimal, int64) {
	next := held + orderQty
	switch {
	case held == 0:
		return price, next
	case next == 0:
		return decimal.Zero, 0
	case (held > 0) == (orderQty > 0):
		absHeld := decimal.NewFromInt(abs(held))
		absOrder := decimal.NewFromInt(abs(orderQty))
		weighted := avg.Mul(absHeld).Add(price.Mul(absOrder))
		return weighted.Div(absHeld.Add(absOrder)), next
	case (held > 0) != (next > 0):
		// Crossed through zero; the remainder is a fresh position at the fill price.
		return price, next
	default:
		return avg, next
	}
}

// uniqueTradeTimeLocked bumps t by a millisecond until no earlier record uses it.
func (m *Manager) uniqueTradeTimeLocked(t time.Time) time.Time {
	for {
		key := t.UnixNano()
		if _, taken := m.tradeTimes[key]; !taken {
			m.tradeTimes[key] = struct{}{}
			return t
		}
		t = t.Add(time.Millisecond)
	}
}

// BuyingPower returns the notional the portfolio can support for symbol in
// direction. Orders that close an opposing position also get the cash freed
// by closing it.
func (m *Manager) BuyingPower(symbol string, direction domain.OrderSide) (decimal.Decimal, error) {
	sec, ok := m.securities.Security(symbol)
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %s", ports.ErrUnknownSymbol, symbol)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	small := m.freeCashLocked().Mul(sec.Leverage())
	large := small.Add(m.cash)

	h, ok := m.holdings[symbol]
	if !ok {
		return small, nil
	}
	switch {
	case h.IsLong() && direction == domain.Sell:
		return large, nil
	case h.IsShort() && direction == domain.Buy:
		return large, nil
	}
	return small, nil
}

// HasSufficientCapital checks the order's margin requirement,
// |notional| / leverage, against the buying power for its direction.
func (m *Manager) HasSufficientCapital(order domain.Order) (bool, error) {
	sec, ok := m.securities.Security(order.Symbol)
	if !ok {
		return false, fmt.Errorf("%w: %s", ports.ErrUnknownSymbol, order.Symbol)
	}
	power, err := m.BuyingPower(order.Symbol, order.Direction())
	if err != nil {
		return false, err
	}
	required := order.Value().Abs().Div(sec.Leverage())
	return required.LessThanOrEqual(power), nil
}

// Cash returns the cash balance.
func (m *Manager) Cash() decimal.Decimal {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cash
}

// FreeCash is cash not tied up as margin by open positions.
func (m *Manager) FreeCash() decimal.Decimal {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.freeCashLocked()
}

func (m *Manager) freeCashLocked() decimal.Decimal {
	free := m.cash
	for symbol, h := range m.holdings {
		free = free.Sub(h.AbsoluteHoldings().Div(m.leverage(symbol)))
	}
	return free
}

// MarginUsed is the sum of |holding value| / leverage over all holdings.
func (m *Manager) MarginUsed() decimal.Decimal {
	m.mu.RLock()
	defer m.mu.RUnlock()
	used := decimal.Zero
	for symbol, h := range m.holdings {
		used = used.Add(h.AbsoluteHoldings().Div(m.leverage(symbol)))
	}
	return used
}

func (m *Manager) leverage(symbol string) decimal.Decimal {
	if sec, ok := m.securities.Security(symbol); ok {
		return sec.Leverage()
	}
	return securities.MinimumLeverage
}

// Holding returns a copy of symbol's position; a flat snapshot when never traded.
func (m *Manager) Holding(symbol string) domain.HoldingSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	h, ok := m.holdings[symbol]
	if !ok {
		h = newHolding(symbol)
	}
	price, unrealized := m.markLocked(h)
	return h.snapshot(price, unrealized)
}

// Holdings returns copies of every traded position ordered by symbol.
func (m *Manager) Holdings() []domain.HoldingSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.HoldingSnapshot, 0, len(m.holdings))
	for _, h := range m.holdings {
		price, unrealized := m.markLocked(h)
		out = append(out, h.snapshot(price, unrealized))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

// markLocked returns the last price and the after-fee close profit of h.
func (m *Manager) markLocked(h *Holding) (decimal.Decimal, decimal.Decimal) {
	sec, ok := m.securities.Security(h.symbol)
	if !ok {
		return decimal.Zero, decimal.Zero
	}
	price, ok := sec.Price()
	if !ok {
		return decimal.Zero, decimal.Zero
	}
	if h.quantity == 0 {
		return price, decimal.Zero
	}
	closeFee := sec.FillModel().OrderFee(h.AbsoluteQuantity(), price)
	return price, h.UnrealizedProfit(price, closeFee)
}

// TotalUnrealizedProfit sums the after-fee close profit of all positions.
func (m *Manager) TotalUnrealizedProfit() decimal.Decimal {
	m.mu.RLock()
	defer m.mu.RUnlock()
	total := decimal.Zero
	for _, h := range m.holdings {
		_, unrealized := m.markLocked(h)
		total = total.Add(unrealized)
	}
	return total
}

// TotalPortfolioValue is cash plus unrealized profit.
func (m *Manager) TotalPortfolioValue() decimal.Decimal {
	return m.Cash().Add(m.TotalUnrealizedProfit())
}

// TotalHoldingsValue sums the absolute cost basis of all positions.
func (m *Manager) TotalHoldingsValue() decimal.Decimal {
	return m.sum(func(h *Holding) decimal.Decimal { return h.AbsoluteHoldings() })
}

// TotalFees sums fees paid across all holdings.
func (m *Manager) TotalFees() decimal.Decimal {
	return m.sum(func(h *Holding) decimal.Decimal { return h.totalFees })
}

// TotalProfit sums realized profit across all holdings.
func (m *Manager) TotalProfit() decimal.Decimal {
	return m.sum(func(h *Holding) decimal.Decimal { return h.profit })
}

// TotalSaleVolume sums traded notional across all holdings.
func (m *Manager) TotalSaleVolume() decimal.Decimal {
	return m.sum(func(h *Holding) decimal.Decimal { return h.totalSaleVolume })
}

func (m *Manager) sum(field func(*Holding) decimal.Decimal) decimal.Decimal {
	m.mu.RLock()
	defer m.mu.RUnlock()
	total := decimal.Zero
	for _, h := range m.holdings {
		total = total.Add(field(h))
	}
	return total
}

// LastTradeProfit is the realized profit of the most recent closing fill.
func (m *Manager) LastTradeProfit() decimal.Decimal {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastTradeProfit
}

// TradeRecords returns the realized trade ledger in booking order.
func (m *Manager) TradeRecords() []domain.TradeRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.TradeRecord, len(m.trades))
	copy(out, m.trades)
	return out
}

func (m *Manager) holdingLocked(symbol string) *Holding {
	h, ok := m.holdings[symbol]
	if !ok {
		h = newHolding(symbol)
		m.holdings[symbol] = h
	}
	return h
}

func abs(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
