package cli

import (
	"fmt"
	"os"
	"os/signal"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"quantEngine/config"
	"quantEngine/internal/ports"
	"quantEngine/internal/securities"
	"quantEngine/internal/strategy/analytics"
	"quantEngine/internal/strategy/optimization"
	"quantEngine/internal/strategy/strategies"
)

func newOptimizeCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "optimize",
		Short: "Grid-search the crossover moving-average periods",
		Example: `  quantengine optimize --fast 5:20:5 --slow 20:60:10 --top 5`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			fast, err := parseRange(cmd, "fast")
			if err != nil {
				return err
			}
			slow, err := parseRange(cmd, "slow")
			if err != nil {
				return err
			}
			parallelism, _ := cmd.Flags().GetInt("parallel")
			top, _ := cmd.Flags().GetInt("top")

			universe, err := config.LoadUniverse(app.Config.UniverseFile)
			if err != nil {
				return err
			}
			feed, err := loadFeed(ctx, universe, app.Config.DataDir)
			if err != nil {
				return err
			}

			optimizer := optimization.NewOptimizer(optimization.OptimizerConfig{
				ParameterRanges: []optimization.ParameterRange{fast, slow},
				Backtest:        backtestConfig(app.Config),
				Parallelism:     parallelism,
			}, app.Logger)
			results, err := optimizer.Optimize(ctx,
				func(params map[string]float64) (ports.Strategy, error) {
					sc := strategyConfig(app.Config)
					sc.FastMAPeriod = int(params["fast"])
					sc.SlowMAPeriod = int(params["slow"])
					return strategies.NewMACrossover(sc, app.Logger)
				},
				func() (*securities.Registry, error) { return universe.Registry(app.Config) },
				feed)
			if err != nil {
				return err
			}
			if top > 0 && len(results) > top {
				results = results[:top]
			}

			if wantJSON(cmd) {
				out := make([]map[string]interface{}, len(results))
				for i, r := range results {
					out[i] = map[string]interface{}{
						"parameters": r.Parameters,
						"score":      r.Score,
						"statistics": r.Result.Statistics[analytics.OverallKey],
					}
				}
				return writeJSON(app.Out, out)
			}
			tw := tabwriter.NewWriter(app.Out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "FAST\tSLOW\tSCORE\tNET PROFIT %\tDRAWDOWN %\tSHARPE\tTRADES")
			for _, r := range results {
				overall := r.Result.Statistics[analytics.OverallKey]
				fmt.Fprintf(tw, "%.0f\t%.0f\t%.3f\t%s\t%s\t%s\t%s\n", r.Parameters["fast"], r.Parameters["slow"], r.Score,
					overall[analytics.NetProfit], overall[analytics.Drawdown], overall[analytics.SharpeRatio], overall[analytics.TotalTrades])
			}
			return tw.Flush()
		},
	}

	cmd.Flags().String("fast", "5:20:5", "fast period range min:max:step")
	cmd.Flags().String("slow", "20:60:10", "slow period range min:max:step")
	cmd.Flags().Int("parallel", 4, "concurrent backtests")
	cmd.Flags().Int("top", 10, "results to show; zero shows all")

	return cmd
}

func parseRange(cmd *cobra.Command, name string) (optimization.ParameterRange, error) {
	raw, _ := cmd.Flags().GetString(name)
	r := optimization.ParameterRange{Name: name, IsInt: true}
	if _, err := fmt.Sscanf(raw, "%g:%g:%g", &r.Min, &r.Max, &r.Step); err != nil {
		return r, fmt.Errorf("invalid --%s %q, want min:max:step: %w", name, raw, err)
	}
	return r, nil
}
