package portfolio

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quantEngine/internal/domain"
	"quantEngine/internal/ports"
	"quantEngine/internal/securities"
)

// mockLogger implements ports.Logger for testing
type mockLogger struct{}

func (m *mockLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {}
func (m *mockLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
}

var testTime = time.Date(2013, 10, 7, 10, 0, 0, 0, time.UTC)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func setupPortfolio(t *testing.T, cash string, leverage map[string]string) (*Manager, *securities.Registry) {
	t.Helper()
	reg := securities.NewRegistry()
	for symbol, lev := range leverage {
		_, err := reg.Add(securities.Config{Symbol: symbol, Type: domain.Equity, Leverage: d(lev)})
		require.NoError(t, err)
	}
	reg.SetTime(testTime)
	return NewManager(d(cash), reg, &mockLogger{}), reg
}

func setPrice(t *testing.T, reg *securities.Registry, symbol, price string) {
	t.Helper()
	require.NoError(t, reg.Update(domain.MarketData{
		Type:   domain.TradeBar,
		Symbol: symbol,
		Time:   testTime,
		Price:  d(price),
		Open:   d(price),
		High:   d(price),
		Low:    d(price),
	}))
}

func filled(symbol string, qty int64, price, fee string) domain.Order {
	o := domain.NewOrder(symbol, qty, domain.OrderTypeMarket, d(price), testTime, "")
	o.Status = domain.OrderStatusFilled
	o.Fee = d(fee)
	return o
}

func TestApplyFill_MarketBuyOpensPosition(t *testing.T) {
	ctx := context.Background()
	pm, reg := setupPortfolio(t, "100000", map[string]string{"IBM": "1"})
	setPrice(t, reg, "IBM", "50")

	sec, _ := reg.Security("IBM")
	order := domain.NewOrder("IBM", 100, domain.OrderTypeMarket, d("50"), testTime, "")
	order.ID = 1
	fill, err := sec.FillModel().AttemptFill(sec.Snapshot(), order)
	require.NoError(t, err)
	require.Equal(t, domain.OrderStatusFilled, fill.Status)

	res, err := pm.ApplyFill(ctx, fill)
	require.NoError(t, err)
	assert.Nil(t, res.Trade)
	assert.True(t, res.Fee.Equal(d("1.3")), "fee %s", res.Fee)

	assert.True(t, pm.Cash().Equal(d("100000").Sub(res.Fee)))
	h := pm.Holding("IBM")
	assert.Equal(t, int64(100), h.Quantity)
	assert.True(t, h.AveragePrice.Equal(d("50")))
	assert.True(t, h.TotalFees.Equal(d("1.3")))
	assert.True(t, h.TotalSaleVolume.Equal(d("5000")))
}

func TestApplyFill_CrossThroughZero(t *testing.T) {
	ctx := context.Background()
	pm, reg := setupPortfolio(t, "100000", map[string]string{"IBM": "1"})
	setPrice(t, reg, "IBM", "110")

	_, err := pm.ApplyFill(ctx, filled("IBM", 50, "100", "1"))
	require.NoError(t, err)

	res, err := pm.ApplyFill(ctx, filled("IBM", -80, "110", "1.04"))
	require.NoError(t, err)

	require.NotNil(t, res.Trade)
	assert.Equal(t, int64(50), res.Trade.Quantity)
	assert.True(t, res.RealizedProfit.Equal(d("500")))
	assert.True(t, res.Trade.ProfitLoss.Equal(d("497.92")))

	h := pm.Holding("IBM")
	assert.Equal(t, int64(-30), h.Quantity)
	assert.True(t, h.AveragePrice.Equal(d("110")))
	assert.True(t, h.Profit.Equal(d("500")))
	assert.True(t, h.LastTradeProfit.Equal(d("500")))

	// cash: -1 fee, -1.04 fee, +500 realized
	assert.True(t, pm.Cash().Equal(d("100497.96")), "cash %s", pm.Cash())
	assert.True(t, pm.TotalProfit().Equal(d("500")))
	assert.True(t, pm.LastTradeProfit().Equal(d("500")))
}

func TestApplyFill_ShortCover(t *testing.T) {
	ctx := context.Background()
	pm, _ := setupPortfolio(t, "10000", map[string]string{"EURUSD": "50"})

	_, err := pm.ApplyFill(ctx, filled("EURUSD", -1000, "1.30", "0"))
	require.NoError(t, err)
	res, err := pm.ApplyFill(ctx, filled("EURUSD", 400, "1.25", "0"))
	require.NoError(t, err)

	assert.True(t, res.RealizedProfit.Equal(d("20")))
	h := pm.Holding("EURUSD")
	assert.Equal(t, int64(-600), h.Quantity)
	assert.True(t, h.AveragePrice.Equal(d("1.30")))
	assert.True(t, pm.Cash().Equal(d("10020")))
}

func TestNextPosition(t *testing.T) {
	tests := []struct {
		name     string
		avg      string
		held     int64
		price    string
		orderQty int64
		wantAvg  string
		wantQty  int64
	}{
		{"no prior position", "0", 0, "10", 100, "10", 100},
		{"add to long", "10", 100, "20", 100, "15", 200},
		{"add to short", "5", -100, "10", -100, "7.5", -200},
		{"reduce long", "10", 100, "12", -40, "10", 60},
		{"reduce short", "10", -100, "8", 40, "10", -60},
		{"cross long to short", "10", 50, "12", -80, "12", -30},
		{"cross short to long", "10", -50, "9", 80, "9", 30},
		{"close exactly", "10", 100, "11", -100, "0", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			avg, qty := nextPosition(d(tt.avg), tt.held, d(tt.price), tt.orderQty)
			assert.Equal(t, tt.wantQty, qty)
			assert.True(t, avg.Equal(d(tt.wantAvg)), "avg %s, want %s", avg, tt.wantAvg)
		})
	}
}

func TestFreeCashIdentity(t *testing.T) {
	ctx := context.Background()
	pm, reg := setupPortfolio(t, "50000", map[string]string{"IBM": "1", "EURUSD": "3"})
	setPrice(t, reg, "IBM", "101")
	setPrice(t, reg, "EURUSD", "1.31")

	fills := []domain.Order{
		filled("IBM", 100, "100", "1.3"),
		filled("EURUSD", 10000, "1.3", "0"),
		filled("IBM", -30, "103", "1"),
		filled("EURUSD", -25000, "1.32", "0"),
		filled("IBM", -70, "99", "1"),
	}
	for i, o := range fills {
		o.ID = int64(i + 1)
		_, err := pm.ApplyFill(ctx, o)
		require.NoError(t, err)
		assert.True(t, pm.FreeCash().Add(pm.MarginUsed()).Equal(pm.Cash()),
			"after fill %d: free %s + margin %s != cash %s", i+1, pm.FreeCash(), pm.MarginUsed(), pm.Cash())
	}
	assert.Equal(t, int64(0), pm.Holding("IBM").Quantity)
	assert.True(t, pm.Holding("IBM").AveragePrice.IsZero())
}

func TestHasSufficientCapital(t *testing.T) {
	pm, reg := setupPortfolio(t, "1000", map[string]string{"IBM": "1"})
	setPrice(t, reg, "IBM", "100")

	tests := []struct {
		name string
		qty  int64
		want bool
	}{
		{"notional equal to cash", 10, true},
		{"notional below cash", 5, true},
		{"notional above cash", 11, false},
		{"short notional above cash", -11, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			order := domain.NewOrder("IBM", tt.qty, domain.OrderTypeMarket, d("100"), testTime, "")
			ok, err := pm.HasSufficientCapital(order)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
		})
	}

	_, err := pm.HasSufficientCapital(domain.NewOrder("MSFT", 1, domain.OrderTypeMarket, d("1"), testTime, ""))
	assert.ErrorIs(t, err, ports.ErrUnknownSymbol)
}

func TestBuyingPower_ClosingIncludesCash(t *testing.T) {
	ctx := context.Background()
	pm, reg := setupPortfolio(t, "1000", map[string]string{"IBM": "2"})
	setPrice(t, reg, "IBM", "100")

	_, err := pm.ApplyFill(ctx, filled("IBM", 10, "100", "0"))
	require.NoError(t, err)

	// free cash = 1000 - 1000/2 = 500
	small, err := pm.BuyingPower("IBM", domain.Buy)
	require.NoError(t, err)
	assert.True(t, small.Equal(d("1000")), "small %s", small)

	large, err := pm.BuyingPower("IBM", domain.Sell)
	require.NoError(t, err)
	assert.True(t, large.Equal(d("2000")), "large %s", large)
}

func TestUnrealizedProfitAndPortfolioValue(t *testing.T) {
	ctx := context.Background()
	pm, reg := setupPortfolio(t, "10000", map[string]string{"IBM": "1"})
	_, err := pm.ApplyFill(ctx, filled("IBM", 100, "50", "1.3"))
	require.NoError(t, err)
	setPrice(t, reg, "IBM", "55")

	// gross 500 less the 1.30 close fee
	assert.True(t, pm.TotalUnrealizedProfit().Equal(d("498.7")), "unrealized %s", pm.TotalUnrealizedProfit())
	assert.True(t, pm.TotalPortfolioValue().Equal(d("10497.4")), "value %s", pm.TotalPortfolioValue())
	assert.True(t, pm.TotalHoldingsValue().Equal(d("5000")))

	snap := pm.Holding("IBM")
	assert.True(t, snap.MarketValue().Equal(d("5500")))
	assert.True(t, snap.UnrealizedProfit.Equal(d("498.7")))
}

func TestTradeRecords_UniqueTimes(t *testing.T) {
	ctx := context.Background()
	pm, _ := setupPortfolio(t, "100000", map[string]string{"IBM": "1"})

	_, err := pm.ApplyFill(ctx, filled("IBM", 300, "10", "0"))
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		_, err := pm.ApplyFill(ctx, filled("IBM", -100, "11", "0"))
		require.NoError(t, err)
	}

	records := pm.TradeRecords()
	require.Len(t, records, 3)
	assert.Equal(t, testTime, records[0].Time)
	assert.Equal(t, testTime.Add(time.Millisecond), records[1].Time)
	assert.Equal(t, testTime.Add(2*time.Millisecond), records[2].Time)
}

func TestApplyFill_Rejects(t *testing.T) {
	ctx := context.Background()
	pm, _ := setupPortfolio(t, "1000", map[string]string{"IBM": "1"})

	open := domain.NewOrder("IBM", 1, domain.OrderTypeMarket, d("10"), testTime, "")
	_, err := pm.ApplyFill(ctx, open)
	assert.ErrorIs(t, err, ports.ErrInvalidRequest)

	_, err = pm.ApplyFill(ctx, filled("MSFT", 1, "10", "0"))
	assert.ErrorIs(t, err, ports.ErrUnknownSymbol)

	assert.True(t, pm.Cash().Equal(d("1000")))
	assert.Empty(t, pm.Holdings())
}
