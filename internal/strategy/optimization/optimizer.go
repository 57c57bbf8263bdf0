package optimization

import (
	"context"
	"fmt"
	"math"
	"sort"

	"golang.org/x/sync/errgroup"

	"quantEngine/internal/domain"
	"quantEngine/internal/ports"
	"quantEngine/internal/securities"
	"quantEngine/internal/strategy/analytics"
	"quantEngine/internal/strategy/backtesting"
)

// ParameterRange defines a range for a parameter to optimize
type ParameterRange struct {
	Name  string
	Min   float64
	Max   float64
	Step  float64
	IsInt bool
}

// OptimizationResult holds the outcome of one parameter combination.
type OptimizationResult struct {
	Parameters map[string]float64
	Result     *backtesting.Result
	Score      float64
}

// StrategyFactory builds a strategy for one parameter combination. An error
// marks the combination invalid and it is skipped.
type StrategyFactory func(params map[string]float64) (ports.Strategy, error)

// RegistryFactory builds a fresh security universe; every run mutates its own.
type RegistryFactory func() (*securities.Registry, error)

// OptimizerConfig holds configuration for the optimizer
type OptimizerConfig struct {
	ParameterRanges []ParameterRange
	Backtest        backtesting.Config
	Parallelism     int // Concurrent backtests; defaults to 4
	ScoreFunction   func(*backtesting.Result) float64
}

// Optimizer grid-searches strategy parameters by running one backtest per
// combination.
type Optimizer struct {
	config OptimizerConfig
	logger ports.Logger
}

// NewOptimizer creates a new optimizer instance
func NewOptimizer(config OptimizerConfig, logger ports.Logger) *Optimizer {
	if config.Parallelism <= 0 {
		config.Parallelism = 4
	}
	if config.ScoreFunction == nil {
		config.ScoreFunction = DefaultScoreFunction
	}
	return &Optimizer{config: config, logger: logger}
}

// Optimize runs every parameter combination over feed and returns the
// successful runs ordered by descending score.
func (o *Optimizer) Optimize(ctx context.Context, newStrategy StrategyFactory, newRegistry RegistryFactory, feed []domain.MarketData) ([]OptimizationResult, error) {
	for _, r := range o.config.ParameterRanges {
		if r.Step <= 0 || r.Max < r.Min {
			return nil, fmt.Errorf("%w: parameter %s needs min <= max and a positive step", ports.ErrInvalidRequest, r.Name)
		}
	}
	combinations := o.generateParameterCombinations()
	slots := make([]*OptimizationResult, len(combinations))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.config.Parallelism)
	for i, params := range combinations {
		i, params := i, params
		g.Go(func() error {
			result, err := o.run(gctx, params, newStrategy, newRegistry, feed)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				o.logger.Warn(gctx, "Skipping parameter combination", map[string]interface{}{
					"params": params,
					"error":  err.Error(),
				})
				return nil
			}
			slots[i] = result
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("%w: %v", ports.ErrContextCanceled, err)
	}

	results := make([]OptimizationResult, 0, len(slots))
	for _, r := range slots {
		if r != nil {
			results = append(results, *r)
		}
	}
	sortResultsByScore(results)
	return results, nil
}

func (o *Optimizer) run(ctx context.Context, params map[string]float64, newStrategy StrategyFactory, newRegistry RegistryFactory, feed []domain.MarketData) (*OptimizationResult, error) {
	strategy, err := newStrategy(params)
	if err != nil {
		return nil, err
	}
	registry, err := newRegistry()
	if err != nil {
		return nil, err
	}
	engine, err := backtesting.NewEngine(o.config.Backtest, registry, strategy, o.logger)
	if err != nil {
		return nil, err
	}
	result, err := engine.Run(ctx, feed)
	if err != nil {
		return nil, err
	}
	return &OptimizationResult{Parameters: params, Result: result, Score: o.config.ScoreFunction(result)}, nil
}

// generateParameterCombinations generates all possible parameter combinations
func (o *Optimizer) generateParameterCombinations() []map[string]float64 {
	var combinations []map[string]float64
	current := make(map[string]float64)

	var generate func(int)
	generate = func(paramIndex int) {
		if paramIndex == len(o.config.ParameterRanges) {
			combination := make(map[string]float64, len(current))
			for k, v := range current {
				combination[k] = v
			}
			combinations = append(combinations, combination)
			return
		}

		param := o.config.ParameterRanges[paramIndex]
		for value := param.Min; value <= param.Max+param.Step/2; value += param.Step {
			if param.IsInt {
				current[param.Name] = math.Round(value)
			} else {
				current[param.Name] = value
			}
			generate(paramIndex + 1)
		}
	}

	generate(0)
	return combinations
}

// sortResultsByScore sorts optimization results by score in descending order
func sortResultsByScore(results []OptimizationResult) {
	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
}

// DefaultScoreFunction rewards net profit and Sharpe ratio and penalizes
// drawdown, all read from the overall statistics in percent.
func DefaultScoreFunction(result *backtesting.Result) float64 {
	overall := result.Statistics[analytics.OverallKey]
	return overall[analytics.NetProfit].InexactFloat64() -
		0.5*overall[analytics.Drawdown].InexactFloat64() +
		overall[analytics.SharpeRatio].InexactFloat64()
}
