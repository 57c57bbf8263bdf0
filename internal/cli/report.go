package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"quantEngine/internal/adapters/sqlite"
)

func newReportCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report [run-id]",
		Short: "List stored runs or show the statistics of one run",
		Example: `  quantengine report
  quantengine report 7d3c2f0e-8a4b-4c1e-9d55-0c2f7b0a9e11 --trades`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			repo, err := sqlite.NewRepository(sqlite.Config{DBPath: app.Config.DBPath, Logger: app.Logger})
			if err != nil {
				return err
			}
			defer repo.Close()

			if len(args) == 0 {
				limit, _ := cmd.Flags().GetInt("limit")
				runs, err := repo.ListRuns(ctx, limit)
				if err != nil {
					return err
				}
				if wantJSON(cmd) {
					return writeJSON(app.Out, runs)
				}
				tw := tabwriter.NewWriter(app.Out, 0, 0, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tSTRATEGY\tSTART\tEND\tSTARTING CASH\tFINAL EQUITY")
				for _, r := range runs {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", r.ID, r.Strategy,
						r.StartTime.Format(dateLayout), r.EndTime.Format(dateLayout), r.StartingCash, r.FinalEquity)
				}
				return tw.Flush()
			}

			run, err := repo.FindRun(ctx, args[0])
			if err != nil {
				return err
			}
			rows, err := repo.LoadStatistics(ctx, run.ID)
			if err != nil {
				return err
			}
			table := tableFromRows(rows)
			showTrades, _ := cmd.Flags().GetBool("trades")

			if wantJSON(cmd) {
				out := map[string]interface{}{"run": run, "statistics": table}
				if showTrades {
					trades, err := repo.LoadTrades(ctx, run.ID)
					if err != nil {
						return err
					}
					out["trades"] = trades
				}
				return writeJSON(app.Out, out)
			}

			fmt.Fprintf(app.Out, "Run %s  %s  %s -> %s\n", run.ID, run.Strategy,
				run.StartTime.Format(dateLayout), run.EndTime.Format(dateLayout))
			fmt.Fprintf(app.Out, "Starting cash %s  final equity %s\n\n", run.StartingCash, run.FinalEquity)
			if err := printStatistics(app.Out, table); err != nil {
				return err
			}
			if !showTrades {
				return nil
			}

			trades, err := repo.LoadTrades(ctx, run.ID)
			if err != nil {
				return err
			}
			fmt.Fprintln(app.Out)
			tw := tabwriter.NewWriter(app.Out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "TIME\tSYMBOL\tQTY\tENTRY\tEXIT\tPNL\tFEE\tPROFIT/LOSS")
			for _, t := range trades {
				fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\t%s\t%s\t%s\n", t.Time.Format("2006-01-02 15:04:05"), t.Symbol,
					t.Quantity, t.EntryPrice, t.ExitPrice, t.PNL, t.Fee, t.ProfitLoss)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().Int("limit", 20, "runs to list; zero lists all")
	cmd.Flags().Bool("trades", false, "also list the run's closed trades")

	return cmd
}
