package analytics

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"quantEngine/internal/domain"
)

// PerformanceMetrics complements the statistics table with trade-level detail
// for reports.
type PerformanceMetrics struct {
	TotalTrades          int
	WinningTrades        int
	LosingTrades         int
	GrossProfit          decimal.Decimal
	GrossLoss            decimal.Decimal
	NetProfit            decimal.Decimal
	ProfitFactor         decimal.Decimal // GrossProfit / |GrossLoss|; zero without losses
	LargestWin           decimal.Decimal
	LargestLoss          decimal.Decimal
	MaxConsecutiveWins   int
	MaxConsecutiveLosses int
	MonthlyReturns       map[string]decimal.Decimal
	Drawdowns            []DrawdownPeriod
}

// DrawdownPeriod represents a stretch of equity below a prior peak.
type DrawdownPeriod struct {
	StartTime  time.Time
	EndTime    time.Time
	StartValue decimal.Decimal
	Trough     decimal.Decimal
	Depth      decimal.Decimal // Fraction of StartValue
	Recovered  bool
}

// Duration is the time from the peak to recovery or the end of the series.
func (d DrawdownPeriod) Duration() time.Duration {
	return d.EndTime.Sub(d.StartTime)
}

// AnalyzePerformance derives trade-level metrics from the realized trade
// ledger and the equity curve.
func AnalyzePerformance(trades []domain.TradeRecord, equity []Point) *PerformanceMetrics {
	metrics := &PerformanceMetrics{
		MonthlyReturns: make(map[string]decimal.Decimal),
		Drawdowns:      drawdownPeriods(equity),
	}
	if len(trades) == 0 {
		return metrics
	}

	sorted := make([]domain.TradeRecord, len(trades))
	copy(sorted, trades)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Time.Before(sorted[j].Time) })

	var consecutiveWins, consecutiveLosses int
	for _, trade := range sorted {
		metrics.TotalTrades++
		pl := trade.ProfitLoss
		if trade.IsWin() {
			metrics.WinningTrades++
			metrics.GrossProfit = metrics.GrossProfit.Add(pl)
			consecutiveWins++
			consecutiveLosses = 0
			if pl.GreaterThan(metrics.LargestWin) {
				metrics.LargestWin = pl
			}
		} else {
			metrics.LosingTrades++
			metrics.GrossLoss = metrics.GrossLoss.Add(pl)
			consecutiveLosses++
			consecutiveWins = 0
			if pl.LessThan(metrics.LargestLoss) {
				metrics.LargestLoss = pl
			}
		}
		metrics.MaxConsecutiveWins = max(metrics.MaxConsecutiveWins, consecutiveWins)
		metrics.MaxConsecutiveLosses = max(metrics.MaxConsecutiveLosses, consecutiveLosses)

		monthKey := trade.Time.Format("2006-01")
		metrics.MonthlyReturns[monthKey] = metrics.MonthlyReturns[monthKey].Add(pl)
	}

	metrics.NetProfit = metrics.GrossProfit.Add(metrics.GrossLoss)
	if !metrics.GrossLoss.IsZero() {
		metrics.ProfitFactor = metrics.GrossProfit.Div(metrics.GrossLoss.Abs()).Round(4)
	}
	return metrics
}

func drawdownPeriods(equity []Point) []DrawdownPeriod {
	var periods []DrawdownPeriod
	if len(equity) == 0 {
		return periods
	}
	peak := equity[0]
	var current *DrawdownPeriod
	for _, p := range equity[1:] {
		if p.Value.GreaterThanOrEqual(peak.Value) {
			if current != nil {
				current.EndTime = p.Time
				current.Recovered = true
				periods = append(periods, *current)
				current = nil
			}
			peak = p
			continue
		}
		if !peak.Value.IsPositive() {
			continue
		}
		depth := peak.Value.Sub(p.Value).Div(peak.Value)
		if current == nil {
			current = &DrawdownPeriod{StartTime: peak.Time, StartValue: peak.Value, Trough: p.Value, Depth: depth}
		} else if p.Value.LessThan(current.Trough) {
			current.Trough = p.Value
			current.Depth = depth
		}
		current.EndTime = p.Time
	}
	if current != nil {
		periods = append(periods, *current)
	}
	return periods
}

// GetMonthlyReturns returns the monthly returns as a sorted slice
func (m *PerformanceMetrics) GetMonthlyReturns() []MonthlyReturn {
	returns := make([]MonthlyReturn, 0, len(m.MonthlyReturns))
	for month, profit := range m.MonthlyReturns {
		date, _ := time.Parse("2006-01", month)
		returns = append(returns, MonthlyReturn{
			Month:  date,
			Return: profit,
		})
	}
	sort.Slice(returns, func(i, j int) bool {
		return returns[i].Month.Before(returns[j].Month)
	})
	return returns
}

// MonthlyReturn represents a monthly return value
type MonthlyReturn struct {
	Month  time.Time
	Return decimal.Decimal
}
