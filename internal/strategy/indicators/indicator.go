package indicators

import (
	"context"
	"errors"

	"quantEngine/internal/domain"
)

// ErrNotEnoughData is returned when a series is shorter than an indicator's
// warm-up period.
var ErrNotEnoughData = errors.New("not enough data")

// Indicator represents a technical indicator computed from a price history.
type Indicator interface {
	// Calculate computes the indicator value at the last sample of data.
	Calculate(ctx context.Context, data []domain.MarketData) (float64, error)

	// RequiredDataPoints returns the minimum number of samples needed for calculation
	RequiredDataPoints() int

	// Name returns the name of the indicator
	Name() string
}

// IndicatorConfig holds common configuration for indicators
type IndicatorConfig struct {
	Period int
}

// BaseIndicator provides common functionality for indicators
type BaseIndicator struct {
	Config IndicatorConfig
}

// RequiredDataPoints returns the minimum number of samples needed for calculation
func (b *BaseIndicator) RequiredDataPoints() int {
	return b.Config.Period
}

// closes extracts the sample prices as floats. Indicators are signals only,
// so float precision is acceptable here.
func closes(data []domain.MarketData) []float64 {
	out := make([]float64, len(data))
	for i, d := range data {
		out[i] = d.Price.InexactFloat64()
	}
	return out
}
