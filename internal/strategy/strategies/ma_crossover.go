package strategies

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"quantEngine/internal/domain"
	"quantEngine/internal/ports"
	"quantEngine/internal/strategy/indicators"
)

// MACrossoverConfig holds configuration for the moving average crossover strategy.
type MACrossoverConfig struct {
	FastMAPeriod  int                          // Fast MA period (e.g., 10)
	SlowMAPeriod  int                          // Slow MA period (e.g., 30)
	MAType        indicators.MovingAverageType // Defaults to SMA
	RSIPeriod     int                          // Zero disables the RSI entry filter
	RSIOverbought float64                      // Long entries are skipped at or above this RSI
	RSIOversold   float64                      // Short entries are skipped at or below this RSI
	ATRPeriod     int                          // Zero disables protective stop orders
	ATRMultiplier float64                      // Stop distance in ATRs
	Quantity      int64                        // Fixed order size; zero sizes from AllocationPct
	AllocationPct float64                      // Fraction of cash committed per entry (e.g., 0.25)
	AllowShort    bool                         // Reverse into a short on a bearish cross
	MACDSignal    int                          // Signal period of a MACD confirmation on the MA periods; zero disables it
}

// MACrossover goes long when the fast average crosses above the slow one and
// exits (or reverses when shorting is allowed) on the opposite cross.
type MACrossover struct {
	*BaseStrategy
	config MACrossoverConfig
	fastMA *indicators.MovingAverage
	slowMA *indicators.MovingAverage
	rsi    *indicators.RSI
	atr    *indicators.ATR
	macd   *indicators.MACD
	state  map[string]*symbolState
}

type symbolState struct {
	history  []domain.MarketData
	prevFast float64
	prevSlow float64
	primed   bool
	stopID   int64
}

// NewMACrossover creates a new crossover strategy instance.
func NewMACrossover(config MACrossoverConfig, logger ports.Logger) (*MACrossover, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required for strategy")
	}
	if config.FastMAPeriod <= 0 || config.SlowMAPeriod <= 0 || config.RSIPeriod < 0 || config.ATRPeriod < 0 || config.MACDSignal < 0 {
		return nil, fmt.Errorf("strategy periods must be positive")
	}
	if config.FastMAPeriod >= config.SlowMAPeriod {
		return nil, fmt.Errorf("fast MA period must be less than slow MA period")
	}
	if config.ATRPeriod > 0 && config.ATRMultiplier <= 0 {
		return nil, fmt.Errorf("ATR multiplier must be positive")
	}
	if config.Quantity < 0 || config.AllocationPct < 0 || config.AllocationPct > 1 {
		return nil, fmt.Errorf("order sizing must be a positive quantity or an allocation in (0, 1]")
	}
	if config.MAType == "" {
		config.MAType = indicators.SimpleMovingAverage
	}
	if config.Quantity == 0 && config.AllocationPct == 0 {
		config.AllocationPct = 0.25
	}
	if config.RSIOverbought == 0 {
		config.RSIOverbought = 70
	}
	if config.RSIOversold == 0 {
		config.RSIOversold = 30
	}

	m := &MACrossover{
		BaseStrategy: NewBaseStrategy(logger),
		config:       config,
		fastMA: indicators.NewMovingAverage(indicators.MovingAverageConfig{
			IndicatorConfig: indicators.IndicatorConfig{Period: config.FastMAPeriod},
			Type:            config.MAType,
		}),
		slowMA: indicators.NewMovingAverage(indicators.MovingAverageConfig{
			IndicatorConfig: indicators.IndicatorConfig{Period: config.SlowMAPeriod},
			Type:            config.MAType,
		}),
		state: make(map[string]*symbolState),
	}
	if config.RSIPeriod > 0 {
		m.rsi = indicators.NewRSI(indicators.RSIConfig{
			IndicatorConfig: indicators.IndicatorConfig{Period: config.RSIPeriod},
			Overbought:      config.RSIOverbought,
			Oversold:        config.RSIOversold,
		})
	}
	if config.ATRPeriod > 0 {
		m.atr = indicators.NewATR(indicators.ATRConfig{IndicatorConfig: indicators.IndicatorConfig{Period: config.ATRPeriod}})
	}
	if config.MACDSignal > 0 {
		m.macd = indicators.NewMACD(indicators.MACDConfig{
			FastPeriod:   config.FastMAPeriod,
			SlowPeriod:   config.SlowMAPeriod,
			SignalPeriod: config.MACDSignal,
		})
	}
	return m, nil
}

// Name returns the name of the strategy
func (m *MACrossover) Name() string {
	return fmt.Sprintf("ma_crossover_%s_%d_%d", m.config.MAType, m.config.FastMAPeriod, m.config.SlowMAPeriod)
}

// RequiredDataPoints returns the samples needed before the first signal.
func (m *MACrossover) RequiredDataPoints() int {
	required := m.slowMA.RequiredDataPoints()
	if m.rsi != nil {
		required = max(required, m.rsi.RequiredDataPoints())
	}
	if m.atr != nil {
		required = max(required, m.atr.RequiredDataPoints())
	}
	if m.macd != nil {
		required = max(required, m.macd.RequiredDataPoints())
	}
	return required
}

// historyLimit bounds the per-symbol window; EMA values settle well within it.
func (m *MACrossover) historyLimit() int {
	return max(4*m.RequiredDataPoints(), 100)
}

// OnData evaluates each symbol of the step in symbol order.
func (m *MACrossover) OnData(ctx context.Context, router ports.OrderRouter, data map[string]domain.MarketData) error {
	for _, symbol := range sortedSymbols(data) {
		if err := m.onSample(ctx, router, data[symbol]); err != nil {
			return fmt.Errorf("%s: %w", symbol, err)
		}
	}
	return nil
}

func (m *MACrossover) onSample(ctx context.Context, router ports.OrderRouter, sample domain.MarketData) error {
	st, ok := m.state[sample.Symbol]
	if !ok {
		st = &symbolState{}
		m.state[sample.Symbol] = st
	}
	st.history = append(st.history, sample)
	if limit := m.historyLimit(); len(st.history) > limit {
		st.history = st.history[len(st.history)-limit:]
	}
	if len(st.history) < m.RequiredDataPoints() {
		return nil
	}

	fast, err := m.fastMA.Calculate(ctx, st.history)
	if err != nil {
		return err
	}
	slow, err := m.slowMA.Calculate(ctx, st.history)
	if err != nil {
		return err
	}
	if !st.primed {
		st.prevFast, st.prevSlow, st.primed = fast, slow, true
		return nil
	}
	crossedUp := st.prevFast <= st.prevSlow && fast > slow
	crossedDown := st.prevFast >= st.prevSlow && fast < slow
	st.prevFast, st.prevSlow = fast, slow

	held := router.Holding(sample.Symbol).Quantity
	if held == 0 {
		// A filled stop leaves us flat with a stale stop ID.
		st.stopID = 0
	}

	switch {
	case crossedUp && held <= 0:
		direction := 1
		if m.filtered(ctx, st, 1) {
			direction = 0
		}
		return m.rebalance(ctx, router, st, sample, held, direction, "CrossUp")
	case crossedDown && held >= 0:
		if !m.config.AllowShort {
			if held == 0 {
				return nil
			}
			return m.rebalance(ctx, router, st, sample, held, 0, "CrossDown")
		}
		direction := -1
		if m.filtered(ctx, st, -1) {
			direction = 0
		}
		return m.rebalance(ctx, router, st, sample, held, direction, "CrossDown")
	}
	return nil
}

// filtered reports whether RSI or the MACD confirmation vetoes an entry in direction.
func (m *MACrossover) filtered(ctx context.Context, st *symbolState, direction int) bool {
	if m.rsi != nil {
		value, err := m.rsi.Calculate(ctx, st.history)
		if err != nil {
			return true
		}
		if (direction > 0 && m.rsi.IsOverbought(value)) || (direction < 0 && m.rsi.IsOversold(value)) {
			m.logger.Debug(ctx, "Entry skipped by RSI filter", map[string]interface{}{"rsi": value, "direction": direction})
			return true
		}
	}
	if m.macd != nil {
		hist, err := m.macd.Calculate(ctx, st.history)
		if err != nil {
			return true
		}
		if (direction > 0 && hist < 0) || (direction < 0 && hist > 0) {
			m.logger.Debug(ctx, "Entry skipped by MACD filter", map[string]interface{}{"histogram": hist, "direction": direction})
			return true
		}
	}
	return false
}

// rebalance moves the position to direction x size, replacing any protective stop.
func (m *MACrossover) rebalance(ctx context.Context, router ports.OrderRouter, st *symbolState, sample domain.MarketData, held int64, direction int, tag string) error {
	if st.stopID != 0 {
		if err := router.Cancel(ctx, st.stopID); err != nil && !errors.Is(err, ports.ErrOrderFinalized) {
			m.logger.Warn(ctx, "Failed to cancel stop", map[string]interface{}{"orderID": st.stopID, "error": err.Error()})
		}
		st.stopID = 0
	}

	target := int64(direction) * m.size(router, sample.Price)
	quantity := target - held
	if quantity == 0 {
		return nil
	}
	if _, ok, err := m.submit(ctx, router, sample.Symbol, quantity, domain.OrderTypeMarket, sample, tag); err != nil || !ok {
		return err
	}
	if target == 0 || m.atr == nil {
		return nil
	}

	atr, err := m.atr.Calculate(ctx, st.history)
	if err != nil || atr <= 0 {
		return nil
	}
	distance := decimal.NewFromFloat(atr * m.config.ATRMultiplier)
	stop := sample
	stop.Price = sample.Price.Sub(distance.Mul(decimal.NewFromInt(int64(direction)))).Round(2)
	if !stop.Price.IsPositive() {
		return nil
	}
	id, ok, err := m.submit(ctx, router, sample.Symbol, -target, domain.OrderTypeStop, stop, "StopLoss")
	if err != nil {
		return err
	}
	if ok {
		st.stopID = id
	}
	return nil
}

// size is the fixed quantity or the whole units AllocationPct of cash buys.
func (m *MACrossover) size(router ports.OrderRouter, price decimal.Decimal) int64 {
	if m.config.Quantity > 0 {
		return m.config.Quantity
	}
	if !price.IsPositive() {
		return 0
	}
	budget := router.Cash().Mul(decimal.NewFromFloat(m.config.AllocationPct))
	return domain.QuantityFromDecimal(budget.Div(price))
}

var _ ports.Strategy = (*MACrossover)(nil)
