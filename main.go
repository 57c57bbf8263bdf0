package main

import (
	"context"
	"fmt"
	"log" // Use standard log only for initial fatal errors before logger is set up
	"os"

	"quantEngine/config"
	"quantEngine/internal/adapters/logger"
	"quantEngine/internal/cli"
)

func main() {
	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err) // Use standard log before logger is ready
	}

	// 2. Initialize Logger
	appLogger := logger.New(logger.Options{
		Level:    cfg.LogLevel,
		Console:  true,
		FilePath: cfg.LogFile,
	})
	defer appLogger.Close()
	appLogger.Debug(context.Background(), "Logger initialized", map[string]interface{}{"level": cfg.LogLevel.String()})

	// 3. Run the requested command
	if err := cli.NewRootCmd(cfg, appLogger).ExecuteContext(context.Background()); err != nil {
		appLogger.Error(context.Background(), err, "Command failed")
		fmt.Fprintln(os.Stderr, "Error:", err)
		appLogger.Close()
		os.Exit(1)
	}
}
