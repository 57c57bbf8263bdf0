// Package cli provides the command-line interface for running and inspecting backtests.
package cli

import (
	"io"
	"os"

	"github.com/spf13/cobra"

	"quantEngine/config"
	"quantEngine/internal/adapters/logger"
)

// Version information
const Version = "0.1.0"

// App holds the application dependencies shared by all commands.
type App struct {
	Config *config.Config
	Logger *logger.ZeroLogger
	Out    io.Writer
}

// NewRootCmd creates the root command for the CLI.
func NewRootCmd(cfg *config.Config, log *logger.ZeroLogger) *cobra.Command {
	app := &App{Config: cfg, Logger: log, Out: os.Stdout}

	rootCmd := &cobra.Command{
		Use:   "quantengine",
		Short: "Event-driven backtester for equities and forex",
		Long: `quantengine replays historical bars through a trading strategy, simulates
order execution against equity and forex fill models, and reports portfolio
statistics.

Settings come from the environment (or a .env file); the traded securities
come from the universe YAML file.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			app.Out = cmd.OutOrStdout()
			if v, _ := cmd.Flags().GetString("universe"); v != "" {
				app.Config.UniverseFile = v
			}
			if v, _ := cmd.Flags().GetString("data-dir"); v != "" {
				app.Config.DataDir = v
			}
			if v, _ := cmd.Flags().GetString("db"); v != "" {
				app.Config.DBPath = v
			}
		},
	}

	// Global flags
	rootCmd.PersistentFlags().String("universe", "", "universe YAML file (overrides UNIVERSE_FILE)")
	rootCmd.PersistentFlags().String("data-dir", "", "directory of kline CSV files (overrides DATA_DIR)")
	rootCmd.PersistentFlags().String("db", "", "SQLite database path (overrides DB_PATH)")
	rootCmd.PersistentFlags().Bool("json", false, "output in JSON format")

	rootCmd.AddCommand(newBacktestCmd(app))
	rootCmd.AddCommand(newOptimizeCmd(app))
	rootCmd.AddCommand(newFetchCmd(app))
	rootCmd.AddCommand(newReportCmd(app))

	return rootCmd
}
