package cli

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"quantEngine/internal/adapters/binanceclient"
	"quantEngine/internal/utils"
)

const dateLayout = "2006-01-02"

func newFetchCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fetch <symbol>",
		Short: "Download historical klines from Binance futures into a CSV file",
		Example: `  quantengine fetch ETHUSDT --interval 1m --start 2024-01-01 --end 2024-02-01
  quantengine fetch BTCUSDT --days 7 --out data/btc.csv`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			symbol := strings.ToUpper(args[0])
			interval, _ := cmd.Flags().GetString("interval")
			start, end, err := fetchWindow(cmd)
			if err != nil {
				return err
			}

			client, err := binanceclient.New(binanceclient.Config{
				APIKey:     app.Config.APIKey,
				SecretKey:  app.Config.SecretKey,
				UseTestnet: app.Config.IsTestnet,
				Logger:     app.Logger,
			})
			if err != nil {
				return err
			}
			if err := client.Ping(cmd.Context()); err != nil {
				return err
			}
			klines, err := client.GetKlinesRange(cmd.Context(), symbol, interval, start, end)
			if err != nil {
				return err
			}

			out, _ := cmd.Flags().GetString("out")
			if out == "" {
				out = filepath.Join(app.Config.DataDir,
					fmt.Sprintf("%s_%s_%s_to_%s.csv", symbol, interval, start.Format("20060102"), end.Format("20060102")))
			}
			if err := utils.WriteKlinesToCSV(klines, out); err != nil {
				return fmt.Errorf("writing %s: %w", out, err)
			}
			fmt.Fprintf(app.Out, "Saved %d klines to %s\n", len(klines), out)
			return nil
		},
	}

	cmd.Flags().StringP("interval", "i", "1m", "kline interval (1m, 5m, 1h, ...)")
	cmd.Flags().String("start", "", "first day to fetch (YYYY-MM-DD)")
	cmd.Flags().String("end", "", "last day to fetch, exclusive (YYYY-MM-DD); defaults to now")
	cmd.Flags().Int("days", 30, "days before --end to fetch when --start is not given")
	cmd.Flags().StringP("out", "o", "", "output CSV (default: <data-dir>/<symbol>_<interval>_<start>_to_<end>.csv)")

	return cmd
}

func fetchWindow(cmd *cobra.Command) (time.Time, time.Time, error) {
	startStr, _ := cmd.Flags().GetString("start")
	endStr, _ := cmd.Flags().GetString("end")
	days, _ := cmd.Flags().GetInt("days")

	end := time.Now().UTC()
	if endStr != "" {
		t, err := time.Parse(dateLayout, endStr)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid --end: %w", err)
		}
		end = t
	}
	start := end.AddDate(0, 0, -days)
	if startStr != "" {
		t, err := time.Parse(dateLayout, startStr)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid --start: %w", err)
		}
		start = t
	}
	if !start.Before(end) {
		return time.Time{}, time.Time{}, fmt.Errorf("--start %s must be before --end %s", start.Format(dateLayout), end.Format(dateLayout))
	}
	return start, end, nil
}
