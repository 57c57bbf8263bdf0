package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"quantEngine/internal/adapters/logger" // Import the logger package for LogLevel
	"quantEngine/internal/fill"
	"quantEngine/internal/ports"
)

// Config holds all application configuration.
type Config struct {
	// Binance API (only the fetch command talks to the exchange)
	APIKey    string
	SecretKey string
	IsTestnet bool

	// Account
	StartingCash    decimal.Decimal
	MaxOrdersPerDay int
	MaxDrawdown     decimal.Decimal // Fraction of peak equity; zero disables the halt
	RiskFreeRate    decimal.Decimal
	LiquidateAtEnd  bool

	// Fill models
	EquityCommission fill.CommissionSchedule
	ForexBarSlippage decimal.Decimal

	// Strategy Parameters
	StrategyFastMAPeriod  int
	StrategySlowMAPeriod  int
	StrategyMAType        string
	StrategyRSIPeriod     int
	StrategyRSIOverbought float64
	StrategyRSIOversold   float64
	StrategyATRPeriod     int
	StrategyATRMultiplier float64
	StrategyAllocation    float64
	StrategyAllowShort    bool
	StrategyMACDSignal    int

	// Data
	UniverseFile string
	DataDir      string

	// Database
	DBPath string

	// Logging
	LogLevel logger.LogLevel // Use the LogLevel type from the logger adapter
	LogFile  string
}

// LoadConfig loads configuration from environment variables (.env file).
func LoadConfig() (*Config, error) {
	// Load .env file, but don't fail if it doesn't exist (allow pure env vars)
	_ = godotenv.Load()

	cfg := &Config{}
	var err error
	var errs []string // Collect validation errors

	// Binance API
	cfg.APIKey = getEnv("BINANCE_API_KEY", "")
	cfg.SecretKey = getEnv("BINANCE_API_SECRET", "")
	cfg.IsTestnet = getEnvAsBool("IS_TESTNET", true) // Default to testnet for safety

	// Account
	cfg.StartingCash, err = getEnvAsDecimalRequired("STARTING_CASH", "100000")
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid STARTING_CASH: %v", err))
	} else if !cfg.StartingCash.IsPositive() {
		errs = append(errs, "STARTING_CASH must be positive")
	}

	cfg.MaxOrdersPerDay, err = getEnvAsIntRequired("MAX_ORDERS_PER_DAY", 100)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid MAX_ORDERS_PER_DAY: %v", err))
	} else if cfg.MaxOrdersPerDay < 0 {
		errs = append(errs, "MAX_ORDERS_PER_DAY cannot be negative")
	}

	cfg.MaxDrawdown, err = getEnvAsDecimalRequired("MAX_DRAWDOWN", "0")
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid MAX_DRAWDOWN: %v", err))
	} else if cfg.MaxDrawdown.IsNegative() || cfg.MaxDrawdown.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		errs = append(errs, "MAX_DRAWDOWN must be in [0, 1)")
	}

	cfg.RiskFreeRate, err = getEnvAsDecimalRequired("RISK_FREE_RATE", "0.01")
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid RISK_FREE_RATE: %v", err))
	}
	cfg.LiquidateAtEnd = getEnvAsBool("LIQUIDATE_AT_END", true)

	// Fill models
	cfg.EquityCommission = fill.DefaultEquityCommission()
	cfg.EquityCommission.TierShares, err = getEnvAsInt64Required("EQUITY_FEE_TIER_SHARES", cfg.EquityCommission.TierShares)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid EQUITY_FEE_TIER_SHARES: %v", err))
	}
	for _, f := range []struct {
		key string
		dst *decimal.Decimal
	}{
		{"EQUITY_FEE_LOW_VOLUME", &cfg.EquityCommission.LowVolumeRate},
		{"EQUITY_FEE_HIGH_VOLUME", &cfg.EquityCommission.HighVolumeRate},
		{"EQUITY_FEE_MINIMUM", &cfg.EquityCommission.Minimum},
		{"EQUITY_FEE_MAX_PCT", &cfg.EquityCommission.MaxPercent},
	} {
		v, err := getEnvAsDecimalRequired(f.key, f.dst.String())
		if err != nil {
			errs = append(errs, fmt.Sprintf("invalid %s: %v", f.key, err))
			continue
		}
		if v.IsNegative() {
			errs = append(errs, fmt.Sprintf("%s cannot be negative", f.key))
			continue
		}
		*f.dst = v
	}

	cfg.ForexBarSlippage, err = getEnvAsDecimalRequired("FOREX_BAR_SLIPPAGE", fill.DefaultForexBarFraction.String())
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid FOREX_BAR_SLIPPAGE: %v", err))
	} else if cfg.ForexBarSlippage.IsNegative() {
		errs = append(errs, "FOREX_BAR_SLIPPAGE cannot be negative")
	}

	// Strategy Parameters (using defaults if not set)
	cfg.StrategyFastMAPeriod = getEnvAsInt("STRATEGY_FAST_MA_PERIOD", 10)
	cfg.StrategySlowMAPeriod = getEnvAsInt("STRATEGY_SLOW_MA_PERIOD", 30)
	cfg.StrategyMAType = strings.ToUpper(getEnv("STRATEGY_MA_TYPE", "SMA"))
	cfg.StrategyRSIPeriod = getEnvAsInt("STRATEGY_RSI_PERIOD", 0)
	cfg.StrategyRSIOverbought = getEnvAsFloat("STRATEGY_RSI_OVERBOUGHT", 70.0)
	cfg.StrategyRSIOversold = getEnvAsFloat("STRATEGY_RSI_OVERSOLD", 30.0)
	cfg.StrategyATRPeriod = getEnvAsInt("STRATEGY_ATR_PERIOD", 0)
	cfg.StrategyATRMultiplier = getEnvAsFloat("STRATEGY_ATR_MULTIPLIER", 2.0)
	cfg.StrategyAllocation = getEnvAsFloat("STRATEGY_ALLOCATION", 0.25)
	cfg.StrategyAllowShort = getEnvAsBool("STRATEGY_ALLOW_SHORT", false)
	cfg.StrategyMACDSignal = getEnvAsInt("STRATEGY_MACD_SIGNAL", 0)

	if cfg.StrategyFastMAPeriod <= 0 || cfg.StrategySlowMAPeriod <= 0 {
		errs = append(errs, "strategy MA periods must be positive")
	}
	if cfg.StrategyFastMAPeriod >= cfg.StrategySlowMAPeriod {
		errs = append(errs, "STRATEGY_FAST_MA_PERIOD must be less than STRATEGY_SLOW_MA_PERIOD")
	}
	if cfg.StrategyMAType != "SMA" && cfg.StrategyMAType != "EMA" {
		errs = append(errs, "STRATEGY_MA_TYPE must be SMA or EMA")
	}
	if cfg.StrategyRSIPeriod < 0 || cfg.StrategyATRPeriod < 0 || cfg.StrategyMACDSignal < 0 {
		errs = append(errs, "strategy RSI, ATR and MACD periods cannot be negative")
	}
	if cfg.StrategyRSIOverbought <= cfg.StrategyRSIOversold || cfg.StrategyRSIOverbought > 100 || cfg.StrategyRSIOversold < 0 {
		errs = append(errs, "invalid RSI thresholds (Overbought must be > Oversold, between 0-100)")
	}
	if cfg.StrategyAllocation <= 0 || cfg.StrategyAllocation > 1 {
		errs = append(errs, "STRATEGY_ALLOCATION must be in (0, 1]")
	}

	// Data
	cfg.UniverseFile = getEnv("UNIVERSE_FILE", "./universe.yaml")
	cfg.DataDir = getEnv("DATA_DIR", "./data")

	// Database
	cfg.DBPath = getEnv("DB_PATH", "./data/backtests.db")
	if cfg.DBPath == "" {
		errs = append(errs, "DB_PATH must be set")
	}

	// Logging
	logLevelStr := getEnv("LOG_LEVEL", "INFO")
	cfg.LogLevel = logger.ParseLevel(logLevelStr) // Use the parser from the logger package
	cfg.LogFile = getEnv("LOG_FILE", "")

	// Combine validation errors
	if len(errs) > 0 {
		return nil, fmt.Errorf("%w: %s", ports.ErrConfigurationError, strings.Join(errs, "; "))
	}

	return cfg, nil
}

// --- Env Var Helpers ---

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsIntRequired(key string, defaultValue int) (int, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		// Use default if env var is not set at all
		return defaultValue, nil
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		// Return error if env var is set but invalid
		return 0, fmt.Errorf("invalid integer value '%s' for key %s: %w", valueStr, key, err)
	}
	return value, nil
}

func getEnvAsInt64Required(key string, defaultValue int64) (int64, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue, nil
	}
	value, err := strconv.ParseInt(valueStr, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid integer value '%s' for key %s: %w", valueStr, key, err)
	}
	return value, nil
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsDecimalRequired parses money-like values exactly.
func getEnvAsDecimalRequired(key, defaultValue string) (decimal.Decimal, error) {
	valueStr := getEnv(key, defaultValue)
	value, err := decimal.NewFromString(valueStr)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid decimal value '%s' for key %s: %w", valueStr, key, err)
	}
	return value, nil
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
