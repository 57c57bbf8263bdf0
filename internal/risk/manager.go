package risk

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"quantEngine/internal/ports"
)

// RiskConfig holds configuration for risk management
type RiskConfig struct {
	MaxOrdersPerPeriod int             // Fills allowed per period; zero or less disables the ceiling
	Period             time.Duration   // Ceiling window; 24h windows align to calendar days
	MaxDrawdown        decimal.Decimal // Fraction of peak equity; zero disables the check
}

// RiskManager enforces the order ceiling and tracks equity drawdown.
type RiskManager struct {
	mu     sync.Mutex
	config RiskConfig
	stats  RiskStats
}

// RiskStats holds risk management statistics
type RiskStats struct {
	PeriodStart     time.Time
	PeriodOrders    int
	MaxPeriodOrders int
	TotalOrders     int
	PeakEquity      decimal.Decimal
	CurrentDrawdown decimal.Decimal
}

// NewRiskManager creates a new risk manager instance
func NewRiskManager(config RiskConfig) *RiskManager {
	if config.Period <= 0 {
		config.Period = 24 * time.Hour
	}
	return &RiskManager{
		config: config,
		stats: RiskStats{
			MaxPeriodOrders: config.MaxOrdersPerPeriod,
		},
	}
}

// CheckOrderCeiling returns ports.ErrOrderCeiling when the period containing
// t has already used up its fills.
func (r *RiskManager) CheckOrderCeiling(ctx context.Context, t time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.config.MaxOrdersPerPeriod <= 0 {
		return nil
	}
	r.rollPeriod(t)
	if r.stats.PeriodOrders >= r.config.MaxOrdersPerPeriod {
		return fmt.Errorf("%w: %d of %d used", ports.ErrOrderCeiling, r.stats.PeriodOrders, r.config.MaxOrdersPerPeriod)
	}
	return nil
}

// RecordFill counts a filled order against the period containing t.
func (r *RiskManager) RecordFill(ctx context.Context, t time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rollPeriod(t)
	r.stats.PeriodOrders++
	r.stats.TotalOrders++
}

// UpdateEquity feeds a new portfolio value into the drawdown tracker.
func (r *RiskManager) UpdateEquity(ctx context.Context, equity decimal.Decimal) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if equity.GreaterThan(r.stats.PeakEquity) {
		r.stats.PeakEquity = equity
	}
	if r.stats.PeakEquity.IsPositive() {
		r.stats.CurrentDrawdown = r.stats.PeakEquity.Sub(equity).Div(r.stats.PeakEquity)
	}
}

// CheckRiskLimits checks if any risk limits have been exceeded
func (r *RiskManager) CheckRiskLimits(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.config.MaxDrawdown.IsPositive() && r.stats.CurrentDrawdown.GreaterThan(r.config.MaxDrawdown) {
		return fmt.Errorf("current drawdown %s exceeds maximum allowed %s",
			r.stats.CurrentDrawdown.StringFixed(4), r.config.MaxDrawdown.StringFixed(4))
	}
	return nil
}

// ResetPeriodStats clears the current period's order count.
func (r *RiskManager) ResetPeriodStats(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stats.PeriodOrders = 0
	r.stats.PeriodStart = time.Time{}
}

// GetStats returns a copy of the current risk management statistics
func (r *RiskManager) GetStats() RiskStats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stats
}

func (r *RiskManager) rollPeriod(t time.Time) {
	start := r.periodStart(t)
	if !start.Equal(r.stats.PeriodStart) {
		r.stats.PeriodStart = start
		r.stats.PeriodOrders = 0
	}
}

func (r *RiskManager) periodStart(t time.Time) time.Time {
	if r.config.Period == 24*time.Hour {
		y, m, d := t.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
	}
	return t.Truncate(r.config.Period)
}
