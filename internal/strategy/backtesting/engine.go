package backtesting

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"quantEngine/internal/domain"
	"quantEngine/internal/portfolio"
	"quantEngine/internal/ports"
	"quantEngine/internal/risk"
	"quantEngine/internal/securities"
	"quantEngine/internal/strategy/analytics"
	"quantEngine/internal/transactions"
)

// Config holds configuration for a backtest run.
type Config struct {
	StartingCash    decimal.Decimal
	RiskFreeRate    decimal.Decimal // Zero uses analytics.DefaultRiskFreeRate
	MaxOrdersPerDay int             // Fill ceiling per calendar day; zero disables it
	MaxDrawdown     decimal.Decimal // Halts the strategy and flattens when exceeded; zero disables it
	LiquidateAtEnd  bool
}

// Result holds the outcome of a backtest run.
type Result struct {
	RunID        string
	Strategy     string
	Start        time.Time
	End          time.Time
	StartingCash decimal.Decimal
	FinalCash    decimal.Decimal
	FinalEquity  decimal.Decimal
	Halted       bool // Drawdown limit stopped the strategy early
	Statistics   analytics.Table
	Performance  *analytics.PerformanceMetrics
	Equity       []analytics.Point
	Trades       []domain.TradeRecord
	Orders       []domain.Order
	Holdings     []domain.HoldingSnapshot
	Rejections   []ports.RejectionError
}

// Engine replays market data through a strategy and the execution core.
type Engine struct {
	config   Config
	registry *securities.Registry
	strategy ports.Strategy
	logger   ports.Logger
}

// NewEngine creates a backtest engine over the securities in registry.
func NewEngine(cfg Config, registry *securities.Registry, strategy ports.Strategy, logger ports.Logger) (*Engine, error) {
	if registry == nil || strategy == nil || logger == nil {
		return nil, fmt.Errorf("%w: registry, strategy and logger are required", ports.ErrConfigurationError)
	}
	if !cfg.StartingCash.IsPositive() {
		return nil, fmt.Errorf("%w: starting cash must be positive, got %s", ports.ErrConfigurationError, cfg.StartingCash)
	}
	if cfg.RiskFreeRate.IsZero() {
		cfg.RiskFreeRate = analytics.DefaultRiskFreeRate
	}
	return &Engine{config: cfg, registry: registry, strategy: strategy, logger: logger}, nil
}

// run holds the per-run execution state.
type run struct {
	portfolio    *portfolio.Manager
	transactions *transactions.Manager
	risk         *risk.RiskManager
	equity       equityRecorder
}

// Run replays feed in time order. Samples sharing a timestamp form one step:
// the registry is advanced and updated, the strategy sees the step's samples,
// and outstanding orders are processed.
func (e *Engine) Run(ctx context.Context, feed []domain.MarketData) (*Result, error) {
	steps := groupByTime(feed)
	if len(steps) == 0 {
		return nil, fmt.Errorf("%w: empty data feed", ports.ErrInvalidRequest)
	}

	runID := uuid.NewString()
	ctx = ports.WithLogFields(ctx, map[string]interface{}{"run_id": runID, "strategy": e.strategy.Name()})

	r := &run{risk: risk.NewRiskManager(risk.RiskConfig{
		MaxOrdersPerPeriod: e.config.MaxOrdersPerDay,
		MaxDrawdown:        e.config.MaxDrawdown,
	})}
	r.portfolio = portfolio.NewManager(e.config.StartingCash, e.registry, e.logger)
	r.transactions = transactions.NewManager(e.registry, r.portfolio, r.risk, e.logger)
	router := &broker{transactions: r.transactions, portfolio: r.portfolio, registry: e.registry}

	start, end := steps[0][0].Time, steps[len(steps)-1][0].Time
	e.logger.Info(ctx, "Starting backtest", map[string]interface{}{
		"start":        start,
		"end":          end,
		"steps":        len(steps),
		"startingCash": e.config.StartingCash.String(),
	})
	r.equity.start(start, e.config.StartingCash)

	halted := false
	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%w: %v", ports.ErrContextCanceled, err)
		}
		now := step[0].Time
		e.registry.SetTime(now)

		data := make(map[string]domain.MarketData, len(step))
		for _, sample := range step {
			if err := e.registry.Update(sample); err != nil {
				e.logger.Warn(ctx, "Skipping sample", map[string]interface{}{"symbol": sample.Symbol, "error": err.Error()})
				continue
			}
			data[sample.Symbol] = sample
		}
		if len(data) == 0 {
			continue
		}

		if !halted {
			if err := e.strategy.OnData(ctx, router, data); err != nil {
				return nil, fmt.Errorf("strategy %s failed at %s: %w", e.strategy.Name(), now.Format(time.RFC3339), err)
			}
		}
		e.step(ctx, r)

		if !halted {
			if err := r.risk.CheckRiskLimits(ctx); err != nil {
				halted = true
				e.logger.Warn(ctx, "Risk limit breached, liquidating and halting strategy", map[string]interface{}{"error": err.Error()})
				r.transactions.Liquidate(ctx, "")
				e.step(ctx, r)
			}
		}
		r.equity.observe(now, r.portfolio.TotalPortfolioValue())
	}

	if e.config.LiquidateAtEnd {
		r.transactions.Liquidate(ctx, "")
		e.step(ctx, r)
		r.equity.observe(end, r.portfolio.TotalPortfolioValue())
	}

	return e.finish(ctx, runID, r, start, end, halted), nil
}

// step processes outstanding orders and feeds the new equity to the risk tracker.
func (e *Engine) step(ctx context.Context, r *run) {
	for _, outcome := range r.transactions.Step(ctx) {
		if outcome.Result != nil && outcome.Result.Trade != nil {
			e.logger.Debug(ctx, "Trade closed", map[string]interface{}{
				"orderID":    outcome.Order.ID,
				"symbol":     outcome.Order.Symbol,
				"profitLoss": outcome.Result.Trade.ProfitLoss.String(),
			})
		}
	}
	r.risk.UpdateEquity(ctx, r.portfolio.TotalPortfolioValue())
}

func (e *Engine) finish(ctx context.Context, runID string, r *run, start, end time.Time, halted bool) *Result {
	equity := r.equity.points()
	trades := r.portfolio.TradeRecords()
	profitLoss := make([]analytics.Point, len(trades))
	for i, t := range trades {
		profitLoss[i] = analytics.Point{Time: t.Time, Value: t.ProfitLoss}
	}

	stats := analytics.NewEngine(e.config.RiskFreeRate).Generate(equity, profitLoss, e.config.StartingCash, yearsBetween(start, end))
	result := &Result{
		RunID:        runID,
		Strategy:     e.strategy.Name(),
		Start:        start,
		End:          end,
		StartingCash: e.config.StartingCash,
		FinalCash:    r.portfolio.Cash(),
		FinalEquity:  r.portfolio.TotalPortfolioValue(),
		Halted:       halted,
		Statistics:   stats,
		Performance:  analytics.AnalyzePerformance(trades, equity),
		Equity:       equity,
		Trades:       trades,
		Orders:       r.transactions.Processed(),
		Holdings:     r.portfolio.Holdings(),
		Rejections:   r.transactions.Rejections(),
	}
	e.logger.Info(ctx, "Backtest finished", map[string]interface{}{
		"finalEquity": result.FinalEquity.String(),
		"trades":      len(trades),
		"orders":      len(result.Orders),
		"rejections":  len(result.Rejections),
		"halted":      halted,
	})
	return result
}

// yearsBetween is the elapsed time in 365 day years.
func yearsBetween(start, end time.Time) float64 {
	return end.Sub(start).Hours() / (24 * 365)
}

// groupByTime sorts a copy of feed and splits it into runs of equal timestamps.
func groupByTime(feed []domain.MarketData) [][]domain.MarketData {
	if len(feed) == 0 {
		return nil
	}
	sorted := make([]domain.MarketData, len(feed))
	copy(sorted, feed)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Time.Before(sorted[j].Time) })

	var steps [][]domain.MarketData
	begin := 0
	for i := 1; i <= len(sorted); i++ {
		if i == len(sorted) || !sorted[i].Time.Equal(sorted[begin].Time) {
			steps = append(steps, sorted[begin:i])
			begin = i
		}
	}
	return steps
}
