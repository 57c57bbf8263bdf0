package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quantEngine/config"
	"quantEngine/internal/adapters/logger"
	"quantEngine/internal/ports"
	"quantEngine/internal/strategy/analytics"
)

var crossPrices = []string{"10", "9", "8", "7", "8", "10", "12", "8", "5"}

// setupWorkspace writes a one-security universe and its bars into a temp dir.
func setupWorkspace(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()

	var csv strings.Builder
	csv.WriteString("open_time,close_time,symbol,interval,open,high,low,close,volume\n")
	open := time.Date(2013, 10, 7, 10, 0, 0, 0, time.UTC)
	for i, p := range crossPrices {
		ts := open.Add(time.Duration(i) * time.Minute)
		fmt.Fprintf(&csv, "%s,%s,AAPL,1m,%s,%s,%s,%s,1000\n",
			ts.Format(time.RFC3339), ts.Add(time.Minute).Format(time.RFC3339), p, p, p, p)
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "aapl.csv"), []byte(csv.String()), 0o600))
	universe := "securities:\n  - symbol: AAPL\n    type: equity\n    resolution: minute\n    data_file: aapl.csv\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "universe.yaml"), []byte(universe), 0o600))

	cfg, err := config.LoadConfig()
	require.NoError(t, err)
	cfg.UniverseFile = filepath.Join(dir, "universe.yaml")
	cfg.DataDir = dir
	cfg.DBPath = filepath.Join(dir, "runs.db")
	cfg.StrategyFastMAPeriod = 2
	cfg.StrategySlowMAPeriod = 3
	cfg.StrategyRSIPeriod = 0
	cfg.StrategyATRPeriod = 0
	cfg.MaxDrawdown = decimal.Zero
	return cfg
}

func execute(t *testing.T, cfg *config.Config, args ...string) (string, error) {
	t.Helper()
	log := logger.New(logger.Options{Level: logger.LevelError, Out: io.Discard})
	cmd := NewRootCmd(cfg, log)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestBacktestAndReport(t *testing.T) {
	cfg := setupWorkspace(t)
	ordersCSV := filepath.Join(cfg.DataDir, "out", "orders.csv")

	out, err := execute(t, cfg, "backtest", "--orders-csv", ordersCSV)
	require.NoError(t, err)
	assert.Contains(t, out, "ma_crossover_SMA_2_3")
	assert.Contains(t, out, "TotalTrades")
	assert.Contains(t, out, "Overall")

	raw, err := os.ReadFile(ordersCSV)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(strings.Split(strings.TrimSpace(string(raw)), "\n")), 3)

	out, err = execute(t, cfg, "report", "--json")
	require.NoError(t, err)
	var runs []ports.RunSummary
	require.NoError(t, json.Unmarshal([]byte(out), &runs))
	require.Len(t, runs, 1)
	assert.Equal(t, "ma_crossover_SMA_2_3", runs[0].Strategy)

	out, err = execute(t, cfg, "report", runs[0].ID, "--trades")
	require.NoError(t, err)
	assert.Contains(t, out, runs[0].ID)
	assert.Contains(t, out, "WinRate")
	assert.Contains(t, out, "PROFIT/LOSS")

	_, err = execute(t, cfg, "report", "missing-run")
	assert.ErrorIs(t, err, ports.ErrNotFound)
}

func TestBacktestNoSaveJSON(t *testing.T) {
	cfg := setupWorkspace(t)
	out, err := execute(t, cfg, "backtest", "--no-save", "--json")
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	assert.Equal(t, "ma_crossover_SMA_2_3", decoded["Strategy"])
	_, err = os.Stat(cfg.DBPath)
	assert.True(t, os.IsNotExist(err))
}

func TestBacktestMissingData(t *testing.T) {
	cfg := setupWorkspace(t)
	require.NoError(t, os.Remove(filepath.Join(cfg.DataDir, "aapl.csv")))
	_, err := execute(t, cfg, "backtest", "--no-save")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "loading AAPL")
}

func TestOptimize(t *testing.T) {
	cfg := setupWorkspace(t)
	out, err := execute(t, cfg, "optimize", "--fast", "2:3:1", "--slow", "3:4:1", "--json")
	require.NoError(t, err)
	var results []map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	// fast 3 / slow 3 is rejected by the strategy.
	assert.Len(t, results, 3)

	_, err = execute(t, cfg, "optimize", "--fast", "oops")
	assert.Error(t, err)
}

func TestFetchWindow(t *testing.T) {
	tests := []struct {
		name      string
		args      []string
		wantStart string
		wantEnd   string
		wantErr   bool
	}{
		{name: "explicit", args: []string{"--start", "2024-01-01", "--end", "2024-02-01"}, wantStart: "2024-01-01", wantEnd: "2024-02-01"},
		{name: "days", args: []string{"--end", "2024-02-01", "--days", "10"}, wantStart: "2024-01-22", wantEnd: "2024-02-01"},
		{name: "reversed", args: []string{"--start", "2024-02-01", "--end", "2024-01-01"}, wantErr: true},
		{name: "bad date", args: []string{"--start", "01/02/2024"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := newFetchCmd(&App{})
			require.NoError(t, cmd.ParseFlags(tt.args))
			start, end, err := fetchWindow(cmd)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantStart, start.Format(dateLayout))
			assert.Equal(t, tt.wantEnd, end.Format(dateLayout))
		})
	}
}

func TestStatisticsRows(t *testing.T) {
	table := analytics.Table{
		"2014":               {analytics.NetProfit: decimal.NewFromInt(3)},
		analytics.OverallKey: {analytics.TotalTrades: decimal.NewFromInt(4), analytics.TradeFrequency: decimal.NewFromInt(int64(analytics.Daily))},
		"2013":               {analytics.NetProfit: decimal.NewFromInt(-1)},
	}
	rows := rowsFromTable(table)
	require.Len(t, rows, 4)
	assert.Equal(t, analytics.OverallKey, rows[0].Period)
	assert.Equal(t, "2013", rows[2].Period)
	assert.Equal(t, "2014", rows[3].Period)
	assert.Equal(t, table, tableFromRows(rows))

	var buf bytes.Buffer
	require.NoError(t, printStatistics(&buf, table))
	assert.Contains(t, buf.String(), "Daily")
	assert.Contains(t, buf.String(), "-1")
}
