package indicators

import (
	"context"
	"fmt"
	"math"

	"quantEngine/internal/domain"
)

// ATRConfig holds configuration for the Average True Range indicator
type ATRConfig struct {
	IndicatorConfig
}

// ATR implements the Average True Range indicator. Ticks contribute a zero
// intrabar range, so only gaps between samples count for them.
type ATR struct {
	BaseIndicator
}

// NewATR creates a new Average True Range indicator instance
func NewATR(config ATRConfig) *ATR {
	return &ATR{BaseIndicator: BaseIndicator{Config: config.IndicatorConfig}}
}

// Name returns the name of the indicator
func (a *ATR) Name() string {
	return "ATR"
}

// RequiredDataPoints returns period+1 samples.
func (a *ATR) RequiredDataPoints() int {
	return a.Config.Period + 1
}

// Calculate computes the Average True Range with Wilder's smoothing.
func (a *ATR) Calculate(ctx context.Context, data []domain.MarketData) (float64, error) {
	period := a.Config.Period
	if period <= 0 {
		return 0, fmt.Errorf("invalid ATR period %d", period)
	}
	if len(data) < period+1 {
		return 0, fmt.Errorf("%w: need %d samples for ATR, got %d", ErrNotEnoughData, period+1, len(data))
	}

	trueRanges := make([]float64, len(data))
	low, high := data[0].Range()
	trueRanges[0] = high.Sub(low).InexactFloat64()
	for i := 1; i < len(data); i++ {
		l, h := data[i].Range()
		hf, lf := h.InexactFloat64(), l.InexactFloat64()
		prevClose := data[i-1].Price.InexactFloat64()
		trueRanges[i] = math.Max(hf-lf, math.Max(math.Abs(hf-prevClose), math.Abs(lf-prevClose)))
	}

	atr := 0.0
	for i := 0; i < period; i++ {
		atr += trueRanges[i]
	}
	atr /= float64(period)
	for i := period; i < len(data); i++ {
		atr = (atr*float64(period-1) + trueRanges[i]) / float64(period)
	}
	return atr, nil
}
