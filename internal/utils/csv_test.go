package utils

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quantEngine/internal/domain"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestKlinesCSVRoundTrip(t *testing.T) {
	open := time.Date(2024, 3, 1, 14, 30, 0, 0, time.UTC)
	in := []*domain.Kline{
		{OpenTime: open, CloseTime: open.Add(time.Minute), Symbol: "AAPL", Interval: "1m",
			Open: d("170.10"), High: d("170.55"), Low: d("169.90"), Close: d("170.42"), Volume: d("1200")},
		{OpenTime: open.Add(time.Minute), CloseTime: open.Add(2 * time.Minute), Symbol: "AAPL", Interval: "1m",
			Open: d("170.42"), High: d("171"), Low: d("170.4"), Close: d("170.99"), Volume: d("800.5")},
	}
	path := filepath.Join(t.TempDir(), "nested", "aapl.csv")
	require.NoError(t, WriteKlinesToCSV(in, path))

	out, err := ReadKlinesFromCSV(path, "IGNORED")
	require.NoError(t, err)
	require.Len(t, out, 2)
	for i := range in {
		assert.Equal(t, in[i].OpenTime, out[i].OpenTime)
		assert.Equal(t, in[i].CloseTime, out[i].CloseTime)
		assert.Equal(t, "AAPL", out[i].Symbol)
		assert.True(t, in[i].Close.Equal(out[i].Close))
		assert.True(t, in[i].Volume.Equal(out[i].Volume))
		assert.True(t, out[i].IsFinal)
	}
}

func TestReadKlines(t *testing.T) {
	tests := []struct {
		name    string
		csv     string
		want    int
		wantErr string
	}{
		{name: "empty", csv: "", want: 0},
		{name: "millis and default symbol", csv: "open_time,open,high,low,close\n1709303400000,1,2,0.5,1.5\n", want: 1},
		{name: "missing column", csv: "open_time,open,high,low\n", wantErr: `missing column "close"`},
		{name: "bad price", csv: "open_time,open,high,low,close\n2024-03-01T14:30:00Z,1,x,0.5,1.5\n", wantErr: "line 2: high"},
		{name: "bad time", csv: "open_time,open,high,low,close\nyesterday,1,2,0.5,1.5\n", wantErr: "open_time"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			klines, err := ReadKlines(strings.NewReader(tt.csv), "EURUSD")
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Len(t, klines, tt.want)
			for _, k := range klines {
				assert.Equal(t, "EURUSD", k.Symbol)
				assert.True(t, k.Volume.IsZero())
			}
		})
	}
}

func TestWriteOrdersToCSV(t *testing.T) {
	orders := []domain.Order{
		{ID: 1, Symbol: "AAPL", Quantity: 100, Type: domain.OrderTypeMarket, Price: d("100"),
			Time: time.Date(2024, 3, 1, 14, 30, 0, 0, time.UTC), Status: domain.OrderStatusFilled, Fee: d("1.3")},
		{ID: 2, Symbol: "AAPL", Quantity: -100, Type: domain.OrderTypeStop, Price: d("95"),
			Time: time.Date(2024, 3, 1, 15, 0, 0, 0, time.UTC), Status: domain.OrderStatusCanceled, Tag: "StopLoss"},
	}
	path := filepath.Join(t.TempDir(), "orders.csv")
	require.NoError(t, WriteOrdersToCSV(orders, path))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "id,time,symbol,quantity,type,price,status,fee,tag", lines[0])
	assert.Equal(t, "1,2024-03-01T14:30:00Z,AAPL,100,MARKET,100,FILLED,1.3,", lines[1])
	assert.Equal(t, "2,2024-03-01T15:00:00Z,AAPL,-100,STOP,95,CANCELED,0,StopLoss", lines[2])
}

func TestReadQuotes(t *testing.T) {
	raw := "time,price,bid,ask\n" +
		"2013-10-07T10:00:00Z,1.3550,1.3549,1.3551\n" +
		"1381140060000,1.3552,,\n"
	quotes, err := ReadQuotes(strings.NewReader(raw), "EURUSD")
	require.NoError(t, err)
	require.Len(t, quotes, 2)

	assert.Equal(t, "EURUSD", quotes[0].Symbol)
	assert.True(t, d("1.3549").Equal(quotes[0].Bid))
	assert.True(t, d("1.3551").Equal(quotes[0].Ask))
	assert.Equal(t, time.Date(2013, 10, 7, 10, 1, 0, 0, time.UTC), quotes[1].Time)
	assert.True(t, d("1.3552").Equal(quotes[1].Bid), "bid defaults to the trade price")

	md := quotes[0].MarketData()
	assert.Equal(t, domain.Tick, md.Type)

	_, err = ReadQuotes(strings.NewReader("time,bid\n"), "EURUSD")
	assert.ErrorContains(t, err, `missing column "price"`)

	_, err = ReadQuotes(strings.NewReader("time,price,ask\n2013-10-07T10:00:00Z,1.1,x\n"), "EURUSD")
	assert.ErrorContains(t, err, "line 2: ask")
}
