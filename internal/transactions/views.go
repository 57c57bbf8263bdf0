package transactions

import (
	"sort"

	"quantEngine/internal/domain"
	"quantEngine/internal/ports"
)

// Outstanding returns copies of the unresolved orders in ID order.
func (m *Manager) Outstanding() []domain.Order {
	m.mu.Lock()
	defer m.mu.Unlock()
	return sortedOrders(m.outstanding)
}

// Processed returns copies of the filled and canceled orders in ID order.
func (m *Manager) Processed() []domain.Order {
	m.mu.Lock()
	defer m.mu.Unlock()
	return sortedOrders(m.processed)
}

// Order looks up an order in either ledger.
func (m *Manager) Order(id int64) (domain.Order, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if o, ok := m.outstanding[id]; ok {
		return o, true
	}
	o, ok := m.processed[id]
	return o, ok
}

// Rejections returns every rejection recorded so far, oldest first.
func (m *Manager) Rejections() []ports.RejectionError {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]ports.RejectionError, len(m.rejections))
	copy(out, m.rejections)
	return out
}

func sortedOrders(ledger map[int64]domain.Order) []domain.Order {
	out := make([]domain.Order, 0, len(ledger))
	for _, o := range ledger {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func orderFields(o domain.Order) map[string]interface{} {
	return map[string]interface{}{
		"orderID":  o.ID,
		"symbol":   o.Symbol,
		"type":     string(o.Type),
		"quantity": o.Quantity,
		"price":    o.Price.String(),
		"status":   string(o.Status),
		"time":     o.Time,
	}
}
