package analytics

import (
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// Statistic names one entry of a statistics table.
type Statistic string

const (
	SharpeRatio         Statistic = "SharpeRatio"
	Drawdown            Statistic = "Drawdown"
	NetProfit           Statistic = "NetProfit"
	Expectancy          Statistic = "Expectancy"
	AverageWin          Statistic = "AverageWin"
	AverageLoss         Statistic = "AverageLoss"
	AverageAnnualReturn Statistic = "AverageAnnualReturn"
	TotalTrades         Statistic = "TotalTrades"
	WinRate             Statistic = "WinRate"
	LossRate            Statistic = "LossRate"
	ProfitLossRatio     Statistic = "ProfitLossRatio"
	TradeFrequency      Statistic = "TradeFrequency"
)

// AllStatistics lists the overall statistics in reporting order.
var AllStatistics = []Statistic{
	TotalTrades, AverageWin, AverageLoss, AverageAnnualReturn, Drawdown, Expectancy,
	NetProfit, SharpeRatio, LossRate, WinRate, ProfitLossRatio, TradeFrequency,
}

// Frequency classifies how often a strategy trades.
type Frequency int

const (
	Secondly Frequency = iota
	Minutely
	Hourly
	Daily
	Weekly
)

func (f Frequency) String() string {
	switch f {
	case Secondly:
		return "Secondly"
	case Minutely:
		return "Minutely"
	case Hourly:
		return "Hourly"
	case Daily:
		return "Daily"
	case Weekly:
		return "Weekly"
	}
	return "Frequency(" + strconv.Itoa(int(f)) + ")"
}

// OverallKey is the table key of the whole-run statistics.
const OverallKey = "Overall"

// Table maps "Overall" and each calendar year ("2013") to its statistics.
type Table map[string]map[Statistic]decimal.Decimal

// Periods returns the table keys, "Overall" first then years ascending.
func (t Table) Periods() []string {
	keys := make([]string, 0, len(t))
	for k := range t {
		if k != OverallKey {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	if _, ok := t[OverallKey]; ok {
		keys = append([]string{OverallKey}, keys...)
	}
	return keys
}

// Point is one timestamped value of an equity or profit/loss series.
type Point struct {
	Time  time.Time
	Value decimal.Decimal
}

// DefaultRiskFreeRate is the annual return subtracted in the Sharpe ratio.
var DefaultRiskFreeRate = decimal.RequireFromString("0.01")

// Engine computes run statistics.
type Engine struct {
	RiskFreeRate decimal.Decimal
}

// NewEngine creates an engine using riskFreeRate.
func NewEngine(riskFreeRate decimal.Decimal) *Engine {
	return &Engine{RiskFreeRate: riskFreeRate}
}

// Generate computes statistics with the default risk free rate.
func Generate(equity, profitLoss []Point, startingCash decimal.Decimal, fractionOfYears float64) Table {
	return NewEngine(DefaultRiskFreeRate).Generate(equity, profitLoss, startingCash, fractionOfYears)
}

type yearTally struct {
	trades, wins, losses int64
	winTotal, lossTotal  decimal.Decimal
}

// Generate summarizes a finished run. equity and profitLoss must be ordered
// by time. Win and loss sizes are measured as fractions of the running cash
// at the time of each trade. Empty or degenerate input yields zeros.
func (e *Engine) Generate(equity, profitLoss []Point, startingCash decimal.Decimal, fractionOfYears float64) Table {
	table := Table{OverallKey: zeroStatistics()}
	if len(profitLoss) == 0 || !startingCash.IsPositive() {
		return table
	}

	var years []int
	tallies := make(map[int]*yearTally)
	runningCash := startingCash
	for _, pl := range profitLoss {
		year := pl.Time.Year()
		tally, ok := tallies[year]
		if !ok {
			tally = &yearTally{}
			tallies[year] = tally
			years = append(years, year)
		}
		tally.trades++
		fraction := decimal.Zero
		if !runningCash.IsZero() {
			fraction = pl.Value.Div(runningCash)
		}
		if pl.Value.IsPositive() {
			tally.wins++
			tally.winTotal = tally.winTotal.Add(fraction)
		} else {
			tally.losses++
			tally.lossTotal = tally.lossTotal.Add(fraction)
		}
		runningCash = runningCash.Add(pl.Value)
	}

	var total yearTally
	for _, year := range years {
		t := tallies[year]
		total.trades += t.trades
		total.wins += t.wins
		total.losses += t.losses
		total.winTotal = total.winTotal.Add(t.winTotal)
		total.lossTotal = total.lossTotal.Add(t.lossTotal)
	}

	totalNetProfit := decimal.Zero
	if len(equity) > 0 {
		totalNetProfit = equity[len(equity)-1].Value.Div(startingCash).Sub(decimal.NewFromInt(1))
	}
	averageAnnualReturn := totalNetProfit
	if fractionOfYears > 0 {
		averageAnnualReturn = totalNetProfit.Div(decimal.NewFromFloat(fractionOfYears))
	}

	overall := summarize(total)
	overall[AverageAnnualReturn] = averageAnnualReturn.Mul(hundred).RoundBank(3)
	overall[NetProfit] = totalNetProfit.Mul(hundred).RoundBank(3)
	overall[Drawdown] = DrawdownPercent(values(equity), 3).Mul(hundred)
	overall[SharpeRatio] = e.SharpeRatio(values(equity), startingCash, averageAnnualReturn)
	var start, end time.Time
	if len(equity) > 0 {
		start, end = equity[0].Time, equity[len(equity)-1].Time
	}
	overall[TradeFrequency] = decimal.NewFromInt(int64(TradeFrequencyOf(total.trades, start, end)))
	table[OverallKey] = overall

	for _, year := range years {
		t := tallies[year]
		stats := summarize(*t)
		stats[NetProfit] = t.winTotal.Add(t.lossTotal).Mul(hundred).RoundBank(3)
		stats[Drawdown] = DrawdownPercent(values(equityInYear(equity, year)), 3).Mul(hundred)
		table[strconv.Itoa(year)] = stats
	}
	return table
}

var hundred = decimal.NewFromInt(100)

// summarize fills the trade-count based statistics.
func summarize(t yearTally) map[Statistic]decimal.Decimal {
	stats := zeroStatistics()
	if t.trades == 0 {
		return stats
	}
	trades := decimal.NewFromInt(t.trades)
	averageWin, averageLoss, averageWinRatio := decimal.Zero, decimal.Zero, decimal.Zero
	if t.wins > 0 {
		averageWin = t.winTotal.Div(decimal.NewFromInt(t.wins))
	}
	if t.losses > 0 {
		averageLoss = t.lossTotal.Div(decimal.NewFromInt(t.losses))
		if !averageLoss.IsZero() {
			averageWinRatio = averageWin.Div(averageLoss).Abs()
		}
	}
	winRate := decimal.NewFromInt(t.wins).Div(trades).RoundBank(5)
	lossRate := decimal.NewFromInt(t.losses).Div(trades).RoundBank(5)

	stats[TotalTrades] = trades
	stats[AverageWin] = averageWin.Mul(hundred).RoundBank(2)
	stats[AverageLoss] = averageLoss.Mul(hundred).RoundBank(2)
	stats[Expectancy] = winRate.Mul(averageWinRatio).Sub(lossRate).RoundBank(3)
	stats[LossRate] = lossRate.Mul(hundred).RoundBank(0)
	stats[WinRate] = winRate.Mul(hundred).RoundBank(0)
	stats[ProfitLossRatio] = ProfitLossRatioOf(averageWin, averageLoss)
	return stats
}

func zeroStatistics() map[Statistic]decimal.Decimal {
	stats := make(map[Statistic]decimal.Decimal, len(AllStatistics))
	for _, s := range AllStatistics {
		stats[s] = decimal.Zero
	}
	return stats
}

// ProfitLossRatioOf is |averageWin / averageLoss| rounded to 2 places, or 9
// when there were no losses.
func ProfitLossRatioOf(averageWin, averageLoss decimal.Decimal) decimal.Decimal {
	if averageLoss.IsZero() {
		return decimal.NewFromInt(9)
	}
	return averageWin.Div(averageLoss.Abs()).RoundBank(2)
}

// TradeFrequencyOf buckets the average number of trades per day between
// start and end. An empty period is Weekly.
func TradeFrequencyOf(totalTrades int64, start, end time.Time) Frequency {
	days := end.Sub(start).Hours() / 24
	if days == 0 {
		return Weekly
	}
	daily := float64(totalTrades) / days
	switch {
	case daily > 200:
		return Secondly
	case daily > 50:
		return Minutely
	case daily > 5:
		return Hourly
	case daily > 0.75:
		return Daily
	default:
		return Weekly
	}
}

// DrawdownPercent returns the largest peak-to-trough decline of values as a
// fraction of the peak, rounded to the given places.
func DrawdownPercent(values []decimal.Decimal, rounding int32) decimal.Decimal {
	worst := decimal.Zero
	peak := decimal.Zero
	for i, v := range values {
		if i == 0 || v.GreaterThan(peak) {
			peak = v
			continue
		}
		if !peak.IsPositive() {
			continue
		}
		if dd := peak.Sub(v).Div(peak); dd.GreaterThan(worst) {
			worst = dd
		}
	}
	return worst.RoundBank(rounding)
}

// SharpeRatio is (annualReturn - risk free rate) over the sample standard
// deviation of equity as a fraction of starting cash. Values above 10 and
// below 0 are rounded to whole numbers, others to one place.
func (e *Engine) SharpeRatio(equity []decimal.Decimal, startingCash, annualReturn decimal.Decimal) decimal.Decimal {
	if len(equity) < 2 || !startingCash.IsPositive() {
		return decimal.Zero
	}
	fractions := make([]float64, len(equity))
	for i, v := range equity {
		fractions[i] = v.Div(startingCash).InexactFloat64()
	}
	sd := standardDeviation(fractions)
	if sd <= 0 {
		return decimal.Zero
	}
	sharpe := decimal.NewFromFloat((annualReturn.InexactFloat64() - e.RiskFreeRate.InexactFloat64()) / sd)
	switch {
	case sharpe.GreaterThan(decimal.NewFromInt(10)):
		return sharpe.RoundBank(0)
	case sharpe.IsPositive():
		return sharpe.RoundBank(1)
	case sharpe.IsNegative():
		return sharpe.RoundBank(0)
	}
	return sharpe
}

// standardDeviation is the sample standard deviation, clamped at zero for
// rounding noise.
func standardDeviation(xs []float64) float64 {
	n := float64(len(xs))
	if n < 2 {
		return 0
	}
	var sum, sumSq float64
	for _, x := range xs {
		sum += x
		sumSq += x * x
	}
	variance := (n*sumSq - sum*sum) / (n * (n - 1))
	if variance < 0 {
		return 0
	}
	return math.Sqrt(variance)
}

func values(points []Point) []decimal.Decimal {
	out := make([]decimal.Decimal, len(points))
	for i, p := range points {
		out[i] = p.Value
	}
	return out
}

func equityInYear(points []Point, year int) []Point {
	var out []Point
	for _, p := range points {
		if p.Time.Year() == year {
			out = append(out, p)
		}
	}
	return out
}
