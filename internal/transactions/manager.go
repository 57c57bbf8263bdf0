package transactions

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"quantEngine/internal/domain"
	"quantEngine/internal/portfolio"
	"quantEngine/internal/ports"
	"quantEngine/internal/risk"
	"quantEngine/internal/securities"
)

// SecurityProvider resolves symbols to tracked securities.
type SecurityProvider interface {
	Security(symbol string) (*securities.Security, bool)
}

// Portfolio books fills and answers capital checks.
type Portfolio interface {
	ApplyFill(ctx context.Context, order domain.Order) (portfolio.FillResult, error)
	HasSufficientCapital(order domain.Order) (bool, error)
	Holdings() []domain.HoldingSnapshot
}

// StepOutcome reports what a step did with one outstanding order.
type StepOutcome struct {
	Order  domain.Order
	Result *portfolio.FillResult // Set when the order filled
	Err    error                 // Rejection or fill fault; the order stays outstanding
}

// Manager assigns order IDs, keeps the outstanding and processed ledgers and
// drives fills through the portfolio.
type Manager struct {
	mu          sync.Mutex
	securities  SecurityProvider
	portfolio   Portfolio
	risk        *risk.RiskManager
	logger      ports.Logger
	nextID      int64
	outstanding map[int64]domain.Order
	processed   map[int64]domain.Order
	rejections  []ports.RejectionError
}

// NewManager creates a transaction manager. riskManager may be nil to disable
// the order ceiling.
func NewManager(provider SecurityProvider, pf Portfolio, riskManager *risk.RiskManager, logger ports.Logger) *Manager {
	return &Manager{
		securities:  provider,
		portfolio:   pf,
		risk:        riskManager,
		logger:      logger,
		nextID:      1,
		outstanding: make(map[int64]domain.Order),
		processed:   make(map[int64]domain.Order),
	}
}

// Submit validates order and, when accepted, assigns it the next ID and
// places it in the outstanding ledger. Market orders take the security's
// current price; a zero time defaults to the security's time. Rejected orders
// get no ID and a *ports.RejectionError.
func (m *Manager) Submit(ctx context.Context, order domain.Order) (int64, error) {
	if order.Quantity == 0 {
		return 0, m.reject(ctx, ports.ErrZeroQuantity, order)
	}
	sec, ok := m.securities.Security(order.Symbol)
	if !ok {
		return 0, m.reject(ctx, ports.ErrUnknownSymbol, order)
	}
	if order.Time.IsZero() {
		order.Time = sec.Time()
	}
	if order.Type == domain.OrderTypeMarket {
		price, ok := sec.Price()
		if !ok {
			return 0, m.reject(ctx, ports.ErrPriceUnavailable, order)
		}
		order.Price = price
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.validateLocked(ctx, sec, order); err != nil {
		return 0, err
	}
	order.ID = m.nextID
	m.nextID++
	order.Status = domain.OrderStatusSubmitted
	m.outstanding[order.ID] = order

	m.logger.Info(ctx, "Order submitted", orderFields(order))
	return order.ID, nil
}

// Update replaces an outstanding order. The time is refreshed to the
// security's time and the order is validated again.
func (m *Manager) Update(ctx context.Context, order domain.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.outstanding[order.ID]
	if !ok {
		if _, done := m.processed[order.ID]; done {
			return m.rejectLocked(ctx, ports.ErrOrderFinalized, order)
		}
		return m.rejectLocked(ctx, ports.ErrOrderNotFound, order)
	}
	if existing.IsFinal() {
		return m.rejectLocked(ctx, ports.ErrOrderFinalized, order)
	}
	if order.Symbol != existing.Symbol {
		return fmt.Errorf("%w: order %d symbol cannot change", ports.ErrInvalidRequest, order.ID)
	}

	sec, ok := m.securities.Security(order.Symbol)
	if !ok {
		return m.rejectLocked(ctx, ports.ErrUnknownSymbol, order)
	}
	order.Time = sec.Time()
	order.Status = existing.Status
	if err := m.validateLocked(ctx, sec, order); err != nil {
		return err
	}
	m.outstanding[order.ID] = order
	m.logger.Debug(ctx, "Order updated", orderFields(order))
	return nil
}

// Cancel marks an outstanding order canceled. The next Step retires it
// without touching the portfolio.
func (m *Manager) Cancel(ctx context.Context, orderID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cancelLocked(ctx, orderID)
}

func (m *Manager) cancelLocked(ctx context.Context, orderID int64) error {
	order, ok := m.outstanding[orderID]
	if !ok {
		if done, finished := m.processed[orderID]; finished {
			return m.rejectLocked(ctx, ports.ErrOrderFinalized, done)
		}
		return m.rejectLocked(ctx, ports.ErrOrderNotFound, domain.Order{ID: orderID})
	}
	if order.IsFinal() {
		return m.rejectLocked(ctx, ports.ErrOrderFinalized, order)
	}
	order.Status = domain.OrderStatusCanceled
	m.outstanding[orderID] = order
	m.logger.Info(ctx, "Order canceled", orderFields(order))
	return nil
}

// Step makes one pass over the outstanding orders in ascending ID order:
// canceled orders are retired, the rest are validated and offered to their
// fill model. Filled orders are booked and moved to the processed ledger.
func (m *Manager) Step(ctx context.Context) []StepOutcome {
	m.mu.Lock()
	defer m.mu.Unlock()

	ids := make([]int64, 0, len(m.outstanding))
	for id := range m.outstanding {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	outcomes := make([]StepOutcome, 0, len(ids))
	for _, id := range ids {
		order := m.outstanding[id]
		sec, ok := m.securities.Security(order.Symbol)
		if !ok {
			outcomes = append(outcomes, StepOutcome{Order: order, Err: m.rejectLocked(ctx, ports.ErrUnknownSymbol, order)})
			continue
		}

		if order.Status == domain.OrderStatusCanceled {
			order.Time = sec.Time()
			m.retireLocked(order)
			outcomes = append(outcomes, StepOutcome{Order: order})
			continue
		}

		if err := m.validateLocked(ctx, sec, order); err != nil {
			outcomes = append(outcomes, StepOutcome{Order: order, Err: err})
			continue
		}

		next, err := sec.FillModel().AttemptFill(sec.Snapshot(), order)
		if err != nil {
			m.logger.Error(ctx, err, "Fill attempt failed, order left outstanding", orderFields(order))
			outcomes = append(outcomes, StepOutcome{Order: order, Err: err})
			continue
		}

		switch next.Status {
		case domain.OrderStatusFilled:
			next.Time = sec.Time()
			result, err := m.portfolio.ApplyFill(ctx, next)
			if err != nil {
				m.logger.Error(ctx, err, "Failed to apply fill, order left outstanding", orderFields(next))
				outcomes = append(outcomes, StepOutcome{Order: order, Err: err})
				continue
			}
			if m.risk != nil {
				m.risk.RecordFill(ctx, next.Time)
			}
			m.retireLocked(next)
			m.logger.Info(ctx, "Order filled", orderFields(next))
			outcomes = append(outcomes, StepOutcome{Order: next, Result: &result})
		case domain.OrderStatusCanceled:
			next.Time = sec.Time()
			m.retireLocked(next)
			outcomes = append(outcomes, StepOutcome{Order: next})
		default:
			m.outstanding[id] = next
			outcomes = append(outcomes, StepOutcome{Order: next})
		}
	}
	return outcomes
}

// Liquidate cancels the outstanding orders of symbol, or of every symbol when
// symbol is empty, and submits market orders that flatten the matching
// holdings. It returns the IDs of the flattening orders that were accepted.
func (m *Manager) Liquidate(ctx context.Context, symbol string) []int64 {
	m.mu.Lock()
	for id, order := range m.outstanding {
		if (symbol == "" || order.Symbol == symbol) && !order.IsFinal() {
			_ = m.cancelLocked(ctx, id)
		}
	}
	m.mu.Unlock()

	var ids []int64
	for _, h := range m.portfolio.Holdings() {
		if h.Quantity == 0 || (symbol != "" && h.Symbol != symbol) {
			continue
		}
		order := domain.NewOrder(h.Symbol, -h.Quantity, domain.OrderTypeMarket, h.MarketPrice, m.timeOf(h.Symbol), "Liquidate")
		id, err := m.Submit(ctx, order)
		if err != nil {
			m.logger.Warn(ctx, "Liquidation order rejected", map[string]interface{}{
				"symbol":   h.Symbol,
				"quantity": -h.Quantity,
				"error":    err.Error(),
			})
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

func (m *Manager) timeOf(symbol string) (t time.Time) {
	if sec, ok := m.securities.Security(symbol); ok {
		t = sec.Time()
	}
	return t
}

// validateLocked runs the acceptance checks against the security's current state.
func (m *Manager) validateLocked(ctx context.Context, sec *securities.Security, order domain.Order) error {
	if err := m.checkLocked(ctx, sec, order); err != nil {
		return m.rejectLocked(ctx, err, order)
	}
	return nil
}

func (m *Manager) checkLocked(ctx context.Context, sec *securities.Security, order domain.Order) error {
	if order.Quantity == 0 {
		return ports.ErrZeroQuantity
	}
	if !sec.HasData() || !order.Price.IsPositive() {
		return ports.ErrPriceUnavailable
	}
	if order.Type == domain.OrderTypeMarket && !sec.ExchangeOpen() {
		return ports.ErrMarketClosed
	}
	ok, err := m.portfolio.HasSufficientCapital(order)
	if err != nil {
		return err
	}
	if !ok {
		return ports.ErrInsufficientCapital
	}
	if m.risk != nil {
		if err := m.risk.CheckOrderCeiling(ctx, sec.Time()); err != nil {
			return err
		}
	}
	if order.Time.After(sec.Time()) {
		return ports.ErrFutureTimestamp
	}
	return nil
}

func (m *Manager) retireLocked(order domain.Order) {
	delete(m.outstanding, order.ID)
	m.processed[order.ID] = order
}

func (m *Manager) reject(ctx context.Context, err error, order domain.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rejectLocked(ctx, err, order)
}

func (m *Manager) rejectLocked(ctx context.Context, err error, order domain.Order) error {
	rej := ports.Reject(err, order.ID, order.Symbol)
	m.rejections = append(m.rejections, *rej)
	m.logger.Debug(ctx, "Order rejected", map[string]interface{}{
		"orderID": order.ID,
		"symbol":  order.Symbol,
		"code":    int(rej.Code),
		"reason":  rej.Err.Error(),
	})
	return rej
}
