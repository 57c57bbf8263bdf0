package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"quantEngine/internal/domain"
	"quantEngine/internal/fill"
	"quantEngine/internal/ports"
	"quantEngine/internal/securities"
)

// SecurityEntry is one instrument of the universe file.
type SecurityEntry struct {
	Symbol     string `yaml:"symbol"`
	Type       string `yaml:"type"`       // equity or forex
	Resolution string `yaml:"resolution"` // tick, second or minute
	Leverage   string `yaml:"leverage"`
	DataFile   string `yaml:"data_file"` // CSV of klines, relative to the data dir
}

// Universe lists the securities a backtest trades.
type Universe struct {
	Securities []SecurityEntry `yaml:"securities"`
}

// LoadUniverse reads and validates a YAML universe file.
func LoadUniverse(path string) (*Universe, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading universe %s: %w", ports.ErrConfigurationError, path, err)
	}
	return ParseUniverse(raw)
}

// ParseUniverse decodes and validates universe YAML.
func ParseUniverse(raw []byte) (*Universe, error) {
	var u Universe
	if err := yaml.Unmarshal(raw, &u); err != nil {
		return nil, fmt.Errorf("%w: decoding universe: %w", ports.ErrConfigurationError, err)
	}
	if len(u.Securities) == 0 {
		return nil, fmt.Errorf("%w: universe has no securities", ports.ErrConfigurationError)
	}

	var errs []string
	seen := make(map[string]bool, len(u.Securities))
	for i, s := range u.Securities {
		if s.Symbol == "" {
			errs = append(errs, fmt.Sprintf("securities[%d]: symbol must be set", i))
			continue
		}
		if seen[s.Symbol] {
			errs = append(errs, fmt.Sprintf("%s: listed twice", s.Symbol))
		}
		seen[s.Symbol] = true
		if _, err := parseSecurityType(s.Type); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", s.Symbol, err))
		}
		if s.Resolution != "" {
			if _, ok := domain.ParseResolution(s.Resolution); !ok {
				errs = append(errs, fmt.Sprintf("%s: unknown resolution %q", s.Symbol, s.Resolution))
			}
		}
		if s.Leverage != "" {
			if _, err := decimal.NewFromString(s.Leverage); err != nil {
				errs = append(errs, fmt.Sprintf("%s: invalid leverage %q", s.Symbol, s.Leverage))
			}
		}
		if s.DataFile == "" {
			errs = append(errs, fmt.Sprintf("%s: data_file must be set", s.Symbol))
		}
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("%w: %s", ports.ErrConfigurationError, strings.Join(errs, "; "))
	}
	return &u, nil
}

// DataPath resolves an entry's data file against dataDir.
func (e SecurityEntry) DataPath(dataDir string) string {
	if filepath.IsAbs(e.DataFile) {
		return e.DataFile
	}
	return filepath.Join(dataDir, e.DataFile)
}

// Registry builds a fresh security registry for the universe, applying the
// fill settings of cfg.
func (u *Universe) Registry(cfg *Config) (*securities.Registry, error) {
	reg := securities.NewRegistry()
	for _, s := range u.Securities {
		kind, err := parseSecurityType(s.Type)
		if err != nil {
			return nil, err
		}
		resolution := domain.ResolutionMinute
		if s.Resolution != "" {
			resolution, _ = domain.ParseResolution(s.Resolution)
		}
		leverage := securities.MinimumLeverage
		if s.Leverage != "" {
			leverage, err = decimal.NewFromString(s.Leverage)
			if err != nil {
				return nil, fmt.Errorf("%w: %s leverage: %w", ports.ErrConfigurationError, s.Symbol, err)
			}
		}
		var model fill.Model
		if kind == domain.Forex {
			model = fill.NewForexModel(cfg.ForexBarSlippage)
		} else {
			model = fill.NewEquityModel(cfg.EquityCommission)
		}
		if _, err := reg.Add(securities.Config{
			Symbol:     s.Symbol,
			Type:       kind,
			Resolution: resolution,
			Leverage:   leverage,
			FillModel:  &model,
		}); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

func parseSecurityType(s string) (domain.SecurityType, error) {
	switch strings.ToLower(s) {
	case "", "equity":
		return domain.Equity, nil
	case "forex", "fx":
		return domain.Forex, nil
	}
	return "", fmt.Errorf("%w: unknown security type %q", ports.ErrConfigurationError, s)
}
