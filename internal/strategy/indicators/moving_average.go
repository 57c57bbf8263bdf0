package indicators

import (
	"context"
	"fmt"

	"quantEngine/internal/domain"
)

// MovingAverageType defines the type of moving average
type MovingAverageType string

const (
	// SimpleMovingAverage represents a simple moving average
	SimpleMovingAverage MovingAverageType = "SMA"
	// ExponentialMovingAverage represents an exponential moving average
	ExponentialMovingAverage MovingAverageType = "EMA"
)

// MovingAverageConfig holds configuration for moving average indicators
type MovingAverageConfig struct {
	IndicatorConfig
	Type MovingAverageType
}

// MovingAverage implements both SMA and EMA indicators
type MovingAverage struct {
	BaseIndicator
	config MovingAverageConfig
}

// NewMovingAverage creates a new moving average indicator instance
func NewMovingAverage(config MovingAverageConfig) *MovingAverage {
	return &MovingAverage{
		BaseIndicator: BaseIndicator{Config: config.IndicatorConfig},
		config:        config,
	}
}

// Name returns the name of the indicator
func (m *MovingAverage) Name() string {
	return fmt.Sprintf("%s(%d)", m.config.Type, m.Config.Period)
}

// Calculate computes the moving average of the sample prices.
func (m *MovingAverage) Calculate(ctx context.Context, data []domain.MarketData) (float64, error) {
	if m.Config.Period <= 0 {
		return 0, fmt.Errorf("invalid moving average period %d", m.Config.Period)
	}
	if len(data) < m.Config.Period {
		return 0, fmt.Errorf("%w: %d samples for %s period %d", ErrNotEnoughData, len(data), m.config.Type, m.Config.Period)
	}
	prices := closes(data)
	switch m.config.Type {
	case SimpleMovingAverage:
		return sma(prices[len(prices)-m.Config.Period:]), nil
	case ExponentialMovingAverage:
		return ema(prices, m.Config.Period), nil
	default:
		return 0, fmt.Errorf("unsupported moving average type: %s", m.config.Type)
	}
}

func sma(prices []float64) float64 {
	total := 0.0
	for _, p := range prices {
		total += p
	}
	return total / float64(len(prices))
}

// ema seeds with the SMA of the first period prices and smooths the rest.
func ema(prices []float64, period int) float64 {
	multiplier := 2.0 / float64(period+1)
	value := sma(prices[:period])
	for _, p := range prices[period:] {
		value = (p-value)*multiplier + value
	}
	return value
}
