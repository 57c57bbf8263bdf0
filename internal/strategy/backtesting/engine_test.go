package backtesting

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quantEngine/internal/domain"
	"quantEngine/internal/ports"
	"quantEngine/internal/securities"
	"quantEngine/internal/strategy/analytics"
)

// mockLogger implements ports.Logger for testing
type mockLogger struct {
	warnings []string
}

func (m *mockLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {}
func (m *mockLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{}) {
	m.warnings = append(m.warnings, msg)
}
func (m *mockLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
}

// scriptedStrategy calls onData with the zero-based index of each step it sees.
type scriptedStrategy struct {
	steps  []map[string]domain.MarketData
	onData func(ctx context.Context, router ports.OrderRouter, step int) error
}

func (s *scriptedStrategy) Name() string { return "scripted" }

func (s *scriptedStrategy) OnData(ctx context.Context, router ports.OrderRouter, data map[string]domain.MarketData) error {
	step := len(s.steps)
	s.steps = append(s.steps, data)
	if s.onData == nil {
		return nil
	}
	return s.onData(ctx, router, step)
}

var monday = time.Date(2013, 10, 7, 10, 0, 0, 0, time.UTC)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newRegistry(t *testing.T, symbols ...string) *securities.Registry {
	t.Helper()
	reg := securities.NewRegistry()
	for _, s := range symbols {
		_, err := reg.Add(securities.Config{Symbol: s, Type: domain.Equity, Resolution: domain.ResolutionMinute})
		require.NoError(t, err)
	}
	return reg
}

func minuteBars(symbol string, from time.Time, closes ...string) []domain.MarketData {
	out := make([]domain.MarketData, len(closes))
	for i, c := range closes {
		price := d(c)
		out[i] = domain.MarketData{
			Type:   domain.TradeBar,
			Symbol: symbol,
			Time:   from.Add(time.Duration(i) * time.Minute),
			Price:  price,
			Open:   price,
			High:   price,
			Low:    price,
		}
	}
	return out
}

func TestNewEngine_Validation(t *testing.T) {
	reg := newRegistry(t, "IBM")
	logger := &mockLogger{}
	strat := &scriptedStrategy{}

	_, err := NewEngine(Config{}, reg, strat, logger)
	assert.ErrorIs(t, err, ports.ErrConfigurationError)

	_, err = NewEngine(Config{StartingCash: d("1000")}, nil, strat, logger)
	assert.ErrorIs(t, err, ports.ErrConfigurationError)

	engine, err := NewEngine(Config{StartingCash: d("1000")}, reg, strat, logger)
	require.NoError(t, err)
	assert.True(t, engine.config.RiskFreeRate.Equal(analytics.DefaultRiskFreeRate))
}

func TestRun_EmptyFeed(t *testing.T) {
	engine, err := NewEngine(Config{StartingCash: d("1000")}, newRegistry(t, "IBM"), &scriptedStrategy{}, &mockLogger{})
	require.NoError(t, err)
	_, err = engine.Run(context.Background(), nil)
	assert.ErrorIs(t, err, ports.ErrInvalidRequest)
}

func TestRun_BuyAndLiquidateAtEnd(t *testing.T) {
	strat := &scriptedStrategy{onData: func(ctx context.Context, router ports.OrderRouter, step int) error {
		if step == 0 {
			_, err := router.Submit(ctx, "IBM", 100, domain.OrderTypeMarket, decimal.Zero, "entry")
			return err
		}
		return nil
	}}
	engine, err := NewEngine(Config{StartingCash: d("100000"), LiquidateAtEnd: true}, newRegistry(t, "IBM"), strat, &mockLogger{})
	require.NoError(t, err)

	result, err := engine.Run(context.Background(), minuteBars("IBM", monday, "100", "101", "102"))
	require.NoError(t, err)

	assert.NotEmpty(t, result.RunID)
	assert.Equal(t, "scripted", result.Strategy)
	assert.Equal(t, monday, result.Start)
	assert.Equal(t, monday.Add(2*time.Minute), result.End)
	assert.Len(t, strat.steps, 3)

	// Two fills at 1.30 commission each plus 200 realized.
	assert.True(t, result.FinalCash.Equal(d("100197.4")), "cash %s", result.FinalCash)
	assert.True(t, result.FinalEquity.Equal(d("100197.4")), "equity %s", result.FinalEquity)

	require.Len(t, result.Orders, 2)
	assert.Equal(t, int64(100), result.Orders[0].Quantity)
	assert.Equal(t, int64(-100), result.Orders[1].Quantity)
	assert.Equal(t, "Liquidate", result.Orders[1].Tag)

	require.Len(t, result.Trades, 1)
	assert.True(t, result.Trades[0].PNL.Equal(d("200")))
	assert.True(t, result.Trades[0].ProfitLoss.Equal(d("197.4")))

	require.Len(t, result.Holdings, 1)
	assert.Zero(t, result.Holdings[0].Quantity)

	require.Len(t, result.Equity, 2)
	assert.True(t, result.Equity[0].Value.Equal(d("100000")))
	assert.True(t, result.Equity[1].Value.Equal(d("100197.4")))

	overall := result.Statistics[analytics.OverallKey]
	assert.True(t, overall[analytics.TotalTrades].Equal(d("1")))
	assert.True(t, overall[analytics.WinRate].Equal(d("100")))
	assert.Equal(t, 1, result.Performance.WinningTrades)
}

func TestRun_GroupsSamplesByTimestamp(t *testing.T) {
	feed := append(minuteBars("MSFT", monday, "30", "31"), minuteBars("IBM", monday, "100", "101")...)
	feed = append(feed, domain.MarketData{Type: domain.TradeBar, Symbol: "AAPL", Time: monday, Price: d("400")})
	// Out of order input.
	feed[0], feed[3] = feed[3], feed[0]

	strat := &scriptedStrategy{}
	logger := &mockLogger{}
	engine, err := NewEngine(Config{StartingCash: d("1000")}, newRegistry(t, "IBM", "MSFT"), strat, logger)
	require.NoError(t, err)

	result, err := engine.Run(context.Background(), feed)
	require.NoError(t, err)

	require.Len(t, strat.steps, 2)
	assert.Len(t, strat.steps[0], 2)
	assert.True(t, strat.steps[0]["IBM"].Price.Equal(d("100")))
	assert.True(t, strat.steps[1]["MSFT"].Price.Equal(d("31")))
	assert.Contains(t, logger.warnings, "Skipping sample")
	assert.Empty(t, result.Trades)
	assert.True(t, result.Statistics[analytics.OverallKey][analytics.TotalTrades].IsZero())
}

func TestRun_DrawdownLimitHaltsStrategy(t *testing.T) {
	strat := &scriptedStrategy{onData: func(ctx context.Context, router ports.OrderRouter, step int) error {
		if step == 0 {
			_, err := router.Submit(ctx, "IBM", 900, domain.OrderTypeMarket, decimal.Zero, "entry")
			return err
		}
		return nil
	}}
	cfg := Config{StartingCash: d("100000"), MaxDrawdown: d("0.1")}
	engine, err := NewEngine(cfg, newRegistry(t, "IBM"), strat, &mockLogger{})
	require.NoError(t, err)

	result, err := engine.Run(context.Background(), minuteBars("IBM", monday, "100", "80", "120", "130"))
	require.NoError(t, err)

	assert.True(t, result.Halted)
	assert.Len(t, strat.steps, 2, "strategy must not run after the halt")
	require.Len(t, result.Holdings, 1)
	assert.Zero(t, result.Holdings[0].Quantity)
	require.Len(t, result.Trades, 1)
	assert.True(t, result.Trades[0].ExitPrice.Equal(d("80")))
}

func TestRun_StrategyErrorAborts(t *testing.T) {
	boom := errors.New("boom")
	strat := &scriptedStrategy{onData: func(ctx context.Context, router ports.OrderRouter, step int) error {
		return boom
	}}
	engine, err := NewEngine(Config{StartingCash: d("1000")}, newRegistry(t, "IBM"), strat, &mockLogger{})
	require.NoError(t, err)

	_, err = engine.Run(context.Background(), minuteBars("IBM", monday, "100"))
	assert.ErrorIs(t, err, boom)
}

func TestRun_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	engine, err := NewEngine(Config{StartingCash: d("1000")}, newRegistry(t, "IBM"), &scriptedStrategy{}, &mockLogger{})
	require.NoError(t, err)

	_, err = engine.Run(ctx, minuteBars("IBM", monday, "100"))
	assert.ErrorIs(t, err, ports.ErrContextCanceled)
}

func TestRun_RouterReportsRejections(t *testing.T) {
	var rejectErr error
	strat := &scriptedStrategy{onData: func(ctx context.Context, router ports.OrderRouter, step int) error {
		_, rejectErr = router.Submit(ctx, "IBM", 0, domain.OrderTypeMarket, decimal.Zero, "")
		assert.Equal(t, monday, router.Time())
		assert.True(t, router.Cash().Equal(d("1000")))
		return nil
	}}
	engine, err := NewEngine(Config{StartingCash: d("1000")}, newRegistry(t, "IBM"), strat, &mockLogger{})
	require.NoError(t, err)

	result, err := engine.Run(context.Background(), minuteBars("IBM", monday, "100"))
	require.NoError(t, err)
	assert.ErrorIs(t, rejectErr, ports.ErrZeroQuantity)
	assert.Equal(t, ports.CodeZeroQuantity, ports.CodeOf(rejectErr))
	require.Len(t, result.Rejections, 1)
}

func TestEquityRecorder_DailySamples(t *testing.T) {
	var r equityRecorder
	r.start(monday, d("100"))
	r.observe(monday, d("101"))
	r.observe(monday.Add(time.Hour), d("102"))
	r.observe(monday.AddDate(0, 0, 1), d("103"))
	r.observe(monday.AddDate(0, 0, 1).Add(time.Hour), d("104"))

	points := r.points()
	require.Len(t, points, 3)
	assert.True(t, points[0].Value.Equal(d("100")))
	assert.True(t, points[1].Value.Equal(d("102")))
	assert.True(t, points[2].Value.Equal(d("104")))
}

func TestGroupByTime(t *testing.T) {
	assert.Nil(t, groupByTime(nil))
	feed := []domain.MarketData{
		{Symbol: "B", Time: monday.Add(time.Minute)},
		{Symbol: "A", Time: monday},
		{Symbol: "C", Time: monday.Add(time.Minute)},
	}
	steps := groupByTime(feed)
	require.Len(t, steps, 2)
	assert.Len(t, steps[0], 1)
	assert.Equal(t, "B", steps[1][0].Symbol)
	assert.Equal(t, "C", steps[1][1].Symbol)
	assert.Equal(t, "B", feed[0].Symbol, "input must not be reordered")
}
