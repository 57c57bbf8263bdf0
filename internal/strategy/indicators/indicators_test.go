package indicators

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quantEngine/internal/domain"
)

var start = time.Date(2013, 10, 7, 9, 30, 0, 0, time.UTC)

func pricesToData(prices ...float64) []domain.MarketData {
	out := make([]domain.MarketData, len(prices))
	for i, p := range prices {
		price := decimal.NewFromFloat(p)
		out[i] = domain.MarketData{
			Type: domain.TradeBar, Symbol: "IBM", Time: start.Add(time.Duration(i) * time.Minute),
			Price: price, Open: price, High: price, Low: price,
		}
	}
	return out
}

func bar(high, low, close float64) domain.MarketData {
	return domain.MarketData{
		Type:  domain.TradeBar,
		Price: decimal.NewFromFloat(close),
		High:  decimal.NewFromFloat(high),
		Low:   decimal.NewFromFloat(low),
	}
}

func TestMovingAverage_Calculate(t *testing.T) {
	data := pricesToData(100, 102, 101, 103, 104)

	tests := []struct {
		name          string
		config        MovingAverageConfig
		expectedValue float64
		expectError   bool
	}{
		{
			name:          "SMA with sufficient data",
			config:        MovingAverageConfig{IndicatorConfig: IndicatorConfig{Period: 3}, Type: SimpleMovingAverage},
			expectedValue: 102.666667, // (101 + 103 + 104) / 3
		},
		{
			name:          "EMA with sufficient data",
			config:        MovingAverageConfig{IndicatorConfig: IndicatorConfig{Period: 3}, Type: ExponentialMovingAverage},
			expectedValue: 103.0,
		},
		{
			name:        "Insufficient data",
			config:      MovingAverageConfig{IndicatorConfig: IndicatorConfig{Period: 6}, Type: SimpleMovingAverage},
			expectError: true,
		},
		{
			name:        "Invalid MA type",
			config:      MovingAverageConfig{IndicatorConfig: IndicatorConfig{Period: 3}, Type: "WMA"},
			expectError: true,
		},
		{
			name:        "Zero period",
			config:      MovingAverageConfig{Type: SimpleMovingAverage},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ma := NewMovingAverage(tt.config)
			value, err := ma.Calculate(context.Background(), data)
			if tt.expectError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.expectedValue, value, 1e-6)
			assert.Equal(t, tt.config.Period, ma.RequiredDataPoints())
		})
	}
}

func TestMovingAverage_NotEnoughDataSentinel(t *testing.T) {
	ma := NewMovingAverage(MovingAverageConfig{IndicatorConfig: IndicatorConfig{Period: 10}, Type: SimpleMovingAverage})
	_, err := ma.Calculate(context.Background(), pricesToData(1, 2, 3))
	assert.ErrorIs(t, err, ErrNotEnoughData)
	assert.Equal(t, "SMA(10)", ma.Name())
}

func TestRSI_Calculate(t *testing.T) {
	tests := []struct {
		name          string
		period        int
		data          []domain.MarketData
		expectedValue float64
		expectError   bool
	}{
		{
			name:          "mixed changes",
			period:        3,
			data:          pricesToData(100, 102, 101, 103, 102, 104),
			expectedValue: 77.272727,
		},
		{
			name:          "only gains",
			period:        3,
			data:          pricesToData(100, 101, 102, 103),
			expectedValue: 100,
		},
		{
			name:          "only losses",
			period:        3,
			data:          pricesToData(103, 102, 101, 100),
			expectedValue: 0,
		},
		{
			name:          "flat",
			period:        3,
			data:          pricesToData(100, 100, 100, 100),
			expectedValue: 50,
		},
		{
			name:        "insufficient data",
			period:      7,
			data:        pricesToData(100, 102, 101),
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rsi := NewRSI(RSIConfig{IndicatorConfig: IndicatorConfig{Period: tt.period}, Overbought: 70, Oversold: 30})
			value, err := rsi.Calculate(context.Background(), tt.data)
			if tt.expectError {
				assert.ErrorIs(t, err, ErrNotEnoughData)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.expectedValue, value, 1e-4)
		})
	}
}

func TestRSI_Thresholds(t *testing.T) {
	rsi := NewRSI(RSIConfig{IndicatorConfig: IndicatorConfig{Period: 14}, Overbought: 70, Oversold: 30})
	assert.True(t, rsi.IsOverbought(70))
	assert.False(t, rsi.IsOverbought(69.9))
	assert.True(t, rsi.IsOversold(30))
	assert.False(t, rsi.IsOversold(30.1))
	assert.Equal(t, 15, rsi.RequiredDataPoints())
}

func TestATR_Calculate(t *testing.T) {
	data := []domain.MarketData{
		bar(10, 8, 9),
		bar(11, 9, 10),
		bar(12, 10, 11),
		bar(13, 9, 12),
	}
	atr := NewATR(ATRConfig{IndicatorConfig: IndicatorConfig{Period: 2}})

	value, err := atr.Calculate(context.Background(), data)
	require.NoError(t, err)
	assert.InDelta(t, 3.0, value, 1e-9)
	assert.Equal(t, 3, atr.RequiredDataPoints())

	_, err = atr.Calculate(context.Background(), data[:2])
	assert.ErrorIs(t, err, ErrNotEnoughData)
}

func TestATR_TicksUseGaps(t *testing.T) {
	ticks := pricesToData(100, 102, 101)
	for i := range ticks {
		ticks[i].Type = domain.Tick
	}
	atr := NewATR(ATRConfig{IndicatorConfig: IndicatorConfig{Period: 1}})
	value, err := atr.Calculate(context.Background(), ticks)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, value, 1e-9)
}

func TestMACD_Calculate(t *testing.T) {
	macd := NewMACD(MACDConfig{FastPeriod: 3, SlowPeriod: 6, SignalPeriod: 3})
	assert.Equal(t, "MACD(3,6,3)", macd.Name())
	assert.Equal(t, 9, macd.RequiredDataPoints())

	flat := make([]float64, 20)
	for i := range flat {
		flat[i] = 100
	}
	hist, err := macd.Calculate(context.Background(), pricesToData(flat...))
	require.NoError(t, err)
	assert.InDelta(t, 0, hist, 1e-9)

	hist, err = macd.Calculate(context.Background(), pricesToData(append(flat, 110)...))
	require.NoError(t, err)
	assert.Greater(t, hist, 0.0)

	hist, err = macd.Calculate(context.Background(), pricesToData(append(flat, 90)...))
	require.NoError(t, err)
	assert.Less(t, hist, 0.0)

	_, err = macd.Calculate(context.Background(), pricesToData(flat[:8]...))
	assert.ErrorIs(t, err, ErrNotEnoughData)

	assert.Equal(t, "MACD(12,26,9)", NewMACD(MACDConfig{}).Name())
}
