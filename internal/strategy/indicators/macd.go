package indicators

import (
	"context"
	"fmt"

	talib "github.com/markcheno/go-talib"

	"quantEngine/internal/domain"
)

// MACDConfig holds configuration for the MACD indicator
type MACDConfig struct {
	FastPeriod   int // Defaults to 12
	SlowPeriod   int // Defaults to 26
	SignalPeriod int // Defaults to 9
}

// MACD reports the MACD histogram (MACD line minus its signal line).
type MACD struct {
	config MACDConfig
}

// NewMACD creates a new MACD indicator instance
func NewMACD(config MACDConfig) *MACD {
	if config.FastPeriod <= 0 {
		config.FastPeriod = 12
	}
	if config.SlowPeriod <= 0 {
		config.SlowPeriod = 26
	}
	if config.SignalPeriod <= 0 {
		config.SignalPeriod = 9
	}
	return &MACD{config: config}
}

// Name returns the name of the indicator
func (m *MACD) Name() string {
	return fmt.Sprintf("MACD(%d,%d,%d)", m.config.FastPeriod, m.config.SlowPeriod, m.config.SignalPeriod)
}

// RequiredDataPoints returns the minimum number of samples needed for calculation
func (m *MACD) RequiredDataPoints() int {
	return m.config.SlowPeriod + m.config.SignalPeriod
}

// Calculate returns the histogram at the last sample.
func (m *MACD) Calculate(ctx context.Context, data []domain.MarketData) (float64, error) {
	if len(data) < m.RequiredDataPoints() {
		return 0, fmt.Errorf("%w: %d samples for %s", ErrNotEnoughData, len(data), m.Name())
	}
	_, _, hist := talib.Macd(closes(data), m.config.FastPeriod, m.config.SlowPeriod, m.config.SignalPeriod)
	if len(hist) == 0 {
		return 0, fmt.Errorf("%w: %s produced no output", ErrNotEnoughData, m.Name())
	}
	return hist[len(hist)-1], nil
}
