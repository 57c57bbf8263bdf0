package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"quantEngine/config"
	"quantEngine/internal/adapters/sqlite"
	"quantEngine/internal/domain"
	"quantEngine/internal/ports"
	"quantEngine/internal/strategy/backtesting"
	"quantEngine/internal/strategy/indicators"
	"quantEngine/internal/strategy/strategies"
	"quantEngine/internal/utils"
)

func newBacktestCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backtest",
		Short: "Run the moving-average crossover strategy over the universe",
		Long: `Load every security of the universe with its kline CSV, replay the bars
through the strategy and print the statistics table. The run is stored in
the SQLite database unless --no-save is given.`,
		Example: `  quantengine backtest
  quantengine backtest --universe universe.yaml --orders-csv out/orders.csv
  quantengine backtest --no-save --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			universe, err := config.LoadUniverse(app.Config.UniverseFile)
			if err != nil {
				return err
			}
			feed, err := loadFeed(ctx, universe, app.Config.DataDir)
			if err != nil {
				return err
			}
			registry, err := universe.Registry(app.Config)
			if err != nil {
				return err
			}
			strategy, err := newStrategy(app.Config, app.Logger)
			if err != nil {
				return err
			}
			engine, err := backtesting.NewEngine(backtestConfig(app.Config), registry, strategy, app.Logger)
			if err != nil {
				return err
			}

			result, err := engine.Run(ctx, feed)
			if err != nil {
				return err
			}

			if ordersCSV, _ := cmd.Flags().GetString("orders-csv"); ordersCSV != "" {
				if err := utils.WriteOrdersToCSV(result.Orders, ordersCSV); err != nil {
					return fmt.Errorf("writing orders: %w", err)
				}
			}
			if noSave, _ := cmd.Flags().GetBool("no-save"); !noSave {
				repo, err := sqlite.NewRepository(sqlite.Config{DBPath: app.Config.DBPath, Logger: app.Logger})
				if err != nil {
					return err
				}
				defer repo.Close()
				if err := saveResult(ctx, repo, result); err != nil {
					return err
				}
			}

			if wantJSON(cmd) {
				return writeJSON(app.Out, result)
			}
			fmt.Fprintf(app.Out, "Run %s  %s  %s -> %s\n", result.RunID, result.Strategy,
				result.Start.Format("2006-01-02"), result.End.Format("2006-01-02"))
			fmt.Fprintf(app.Out, "Starting cash %s  final equity %s  orders %d  trades %d  rejections %d\n\n",
				result.StartingCash, result.FinalEquity, len(result.Orders), len(result.Trades), len(result.Rejections))
			if result.Halted {
				fmt.Fprintln(app.Out, "Strategy halted by the drawdown limit.")
			}
			return printStatistics(app.Out, result.Statistics)
		},
	}

	cmd.Flags().Bool("no-save", false, "do not store the run in the database")
	cmd.Flags().String("orders-csv", "", "write processed orders to this CSV file")

	return cmd
}

func backtestConfig(cfg *config.Config) backtesting.Config {
	return backtesting.Config{
		StartingCash:    cfg.StartingCash,
		RiskFreeRate:    cfg.RiskFreeRate,
		MaxOrdersPerDay: cfg.MaxOrdersPerDay,
		MaxDrawdown:     cfg.MaxDrawdown,
		LiquidateAtEnd:  cfg.LiquidateAtEnd,
	}
}

func strategyConfig(cfg *config.Config) strategies.MACrossoverConfig {
	return strategies.MACrossoverConfig{
		FastMAPeriod:  cfg.StrategyFastMAPeriod,
		SlowMAPeriod:  cfg.StrategySlowMAPeriod,
		MAType:        indicators.MovingAverageType(cfg.StrategyMAType),
		RSIPeriod:     cfg.StrategyRSIPeriod,
		RSIOverbought: cfg.StrategyRSIOverbought,
		RSIOversold:   cfg.StrategyRSIOversold,
		ATRPeriod:     cfg.StrategyATRPeriod,
		ATRMultiplier: cfg.StrategyATRMultiplier,
		AllocationPct: cfg.StrategyAllocation,
		AllowShort:    cfg.StrategyAllowShort,
		MACDSignal:    cfg.StrategyMACDSignal,
	}
}

func newStrategy(cfg *config.Config, logger ports.Logger) (ports.Strategy, error) {
	return strategies.NewMACrossover(strategyConfig(cfg), logger)
}

// loadFeed reads each security's kline file concurrently and returns all
// samples; the engine orders them by time.
func loadFeed(ctx context.Context, universe *config.Universe, dataDir string) ([]domain.MarketData, error) {
	perSymbol := make([][]domain.MarketData, len(universe.Securities))
	g, ctx := errgroup.WithContext(ctx)
	for i, entry := range universe.Securities {
		i, entry := i, entry
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			samples, err := readSamples(entry, dataDir)
			if err != nil {
				return fmt.Errorf("loading %s: %w", entry.Symbol, err)
			}
			perSymbol[i] = samples
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var feed []domain.MarketData
	for _, samples := range perSymbol {
		feed = append(feed, samples...)
	}
	if len(feed) == 0 {
		return nil, fmt.Errorf("%w: no bars found under %s", ports.ErrInvalidRequest, dataDir)
	}
	return feed, nil
}

// readSamples reads quotes for tick-resolution securities and klines otherwise.
func readSamples(entry config.SecurityEntry, dataDir string) ([]domain.MarketData, error) {
	if res, _ := domain.ParseResolution(entry.Resolution); res == domain.ResolutionTick {
		quotes, err := utils.ReadQuotesFromCSV(entry.DataPath(dataDir), entry.Symbol)
		if err != nil {
			return nil, err
		}
		samples := make([]domain.MarketData, 0, len(quotes))
		for _, q := range quotes {
			q.Symbol = entry.Symbol
			samples = append(samples, q.MarketData())
		}
		return samples, nil
	}

	klines, err := utils.ReadKlinesFromCSV(entry.DataPath(dataDir), entry.Symbol)
	if err != nil {
		return nil, err
	}
	samples := make([]domain.MarketData, 0, len(klines))
	for _, k := range klines {
		k.Symbol = entry.Symbol
		samples = append(samples, k.MarketData())
	}
	return samples, nil
}

// saveResult stores a finished run and everything needed to report on it.
func saveResult(ctx context.Context, repo ports.RunRepository, result *backtesting.Result) error {
	if err := repo.SaveRun(ctx, ports.RunSummary{
		ID:           result.RunID,
		Strategy:     result.Strategy,
		StartTime:    result.Start,
		EndTime:      result.End,
		StartingCash: result.StartingCash,
		FinalEquity:  result.FinalEquity,
	}); err != nil {
		return err
	}
	if err := repo.SaveOrders(ctx, result.RunID, result.Orders); err != nil {
		return err
	}
	if err := repo.SaveTrades(ctx, result.RunID, result.Trades); err != nil {
		return err
	}
	samples := make([]ports.EquitySample, len(result.Equity))
	for i, p := range result.Equity {
		samples[i] = ports.EquitySample{Time: p.Time, Value: p.Value}
	}
	if err := repo.SaveEquity(ctx, result.RunID, samples); err != nil {
		return err
	}
	return repo.SaveStatistics(ctx, result.RunID, rowsFromTable(result.Statistics))
}
