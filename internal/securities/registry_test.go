package securities

import (
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quantEngine/internal/domain"
	"quantEngine/internal/ports"
)

func sample(symbol string, t time.Time, price int64) domain.MarketData {
	p := decimal.NewFromInt(price)
	return domain.MarketData{Type: domain.TradeBar, Symbol: symbol, Time: t, Price: p, Open: p, High: p, Low: p}
}

func TestRegistry_AddAndLookup(t *testing.T) {
	reg := NewRegistry()
	sec, err := reg.Add(Config{Symbol: "IBM"})
	require.NoError(t, err)
	assert.Equal(t, domain.Equity, sec.Type())
	assert.Equal(t, domain.ResolutionMinute, sec.Resolution())
	assert.True(t, sec.Leverage().Equal(MinimumLeverage))
	assert.Equal(t, domain.Equity, sec.FillModel().Class)

	fx, err := reg.Add(Config{Symbol: "EURUSD", Type: domain.Forex, Resolution: domain.ResolutionTick, Leverage: decimal.NewFromInt(50)})
	require.NoError(t, err)
	assert.True(t, fx.Leverage().Equal(decimal.NewFromInt(50)))
	assert.Equal(t, domain.Forex, fx.FillModel().Class)

	_, err = reg.Add(Config{Symbol: "IBM"})
	assert.ErrorIs(t, err, ports.ErrDuplicateEntry)
	_, err = reg.Add(Config{})
	assert.ErrorIs(t, err, ports.ErrInvalidRequest)

	assert.Equal(t, []string{"EURUSD", "IBM"}, reg.Symbols())
}

func TestRegistry_ZeroLeverageRaisedToMinimum(t *testing.T) {
	reg := NewRegistry()
	sec, err := reg.Add(Config{Symbol: "IBM", Leverage: decimal.Zero})
	require.NoError(t, err)
	assert.True(t, sec.Leverage().Equal(decimal.NewFromInt(1)))
}

func TestRegistry_UpdateAndSnapshot(t *testing.T) {
	reg := NewRegistry()
	sec, err := reg.Add(Config{Symbol: "IBM"})
	require.NoError(t, err)

	assert.False(t, sec.HasData())
	snap := sec.Snapshot()
	assert.Nil(t, snap.Last)
	_, ok := snap.Price()
	assert.False(t, ok)

	now := time.Date(2013, 10, 7, 10, 0, 0, 0, time.UTC)
	reg.SetTime(now)
	require.NoError(t, reg.Update(sample("IBM", now, 185)))
	assert.ErrorIs(t, reg.Update(sample("AAPL", now, 1)), ports.ErrUnknownSymbol)

	price, ok := sec.Price()
	require.True(t, ok)
	assert.True(t, price.Equal(decimal.NewFromInt(185)))
	assert.True(t, sec.ExchangeOpen())

	snap = sec.Snapshot()
	require.NotNil(t, snap.Last)
	assert.Equal(t, now, snap.Time)
	assert.Equal(t, now, reg.Time())

	// Securities added later inherit the frontier.
	late, err := reg.Add(Config{Symbol: "MSFT"})
	require.NoError(t, err)
	assert.Equal(t, now, late.Time())
}

func TestCache_HistoryAndLimit(t *testing.T) {
	cache := NewCache(3)
	start := time.Date(2013, 10, 7, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		cache.Add(sample("IBM", start.Add(time.Duration(i)*time.Minute), int64(100+i)))
	}
	assert.Equal(t, 3, cache.Len())

	last, ok := cache.Last()
	require.True(t, ok)
	assert.True(t, last.Price.Equal(decimal.NewFromInt(104)))

	history := cache.History(start.Add(3 * time.Minute))
	require.Len(t, history, 2)
	assert.True(t, history[0].Price.Equal(decimal.NewFromInt(102)))
	assert.Len(t, cache.History(time.Time{}), 3)
}

func TestCache_ConcurrentAppend(t *testing.T) {
	cache := NewCache(0)
	start := time.Date(2013, 10, 7, 10, 0, 0, 0, time.UTC)

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 250; i++ {
				cache.Add(sample("IBM", start, int64(w*1000+i)))
				_, _ = cache.Last()
			}
		}(w)
	}
	wg.Wait()
	assert.Equal(t, 1000, cache.Len())
}
