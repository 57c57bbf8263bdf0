package securities

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"quantEngine/internal/domain"
	"quantEngine/internal/fill"
)

// MinimumLeverage is applied to any security configured with less.
var MinimumLeverage = decimal.NewFromInt(1)

// Config describes a security to track.
type Config struct {
	Symbol       string
	Type         domain.SecurityType
	Resolution   domain.Resolution
	Leverage     decimal.Decimal
	FillModel    *fill.Model // Nil selects the asset class default
	HistoryLimit int         // Samples retained by the cache; zero keeps all
}

// Security is a tracked instrument: its static description, calendar, fill
// model, price cache and the time of the current simulation frontier.
type Security struct {
	symbol     string
	kind       domain.SecurityType
	resolution domain.Resolution
	leverage   decimal.Decimal
	exchange   Exchange
	model      fill.Model
	cache      *Cache

	mu   sync.RWMutex
	time time.Time
}

// NewSecurity builds a security from cfg. Leverage below MinimumLeverage is raised to it.
func NewSecurity(cfg Config) *Security {
	leverage := cfg.Leverage
	if leverage.LessThan(MinimumLeverage) {
		leverage = MinimumLeverage
	}
	kind := cfg.Type
	if kind == "" {
		kind = domain.Equity
	}
	resolution := cfg.Resolution
	if resolution == "" {
		resolution = domain.ResolutionMinute
	}
	model := fill.ForClass(kind)
	if cfg.FillModel != nil {
		model = *cfg.FillModel
	}
	return &Security{
		symbol:     cfg.Symbol,
		kind:       kind,
		resolution: resolution,
		leverage:   leverage,
		exchange:   ExchangeFor(kind),
		model:      model,
		cache:      NewCache(cfg.HistoryLimit),
	}
}

func (s *Security) Symbol() string                { return s.symbol }
func (s *Security) Type() domain.SecurityType     { return s.kind }
func (s *Security) Resolution() domain.Resolution { return s.resolution }
func (s *Security) Leverage() decimal.Decimal     { return s.leverage }
func (s *Security) Exchange() Exchange            { return s.exchange }
func (s *Security) FillModel() fill.Model         { return s.model }
func (s *Security) Cache() *Cache                 { return s.cache }

// Time returns the security's current simulation time.
func (s *Security) Time() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.time
}

// SetTime advances the security's clock.
func (s *Security) SetTime(t time.Time) {
	s.mu.Lock()
	s.time = t
	s.mu.Unlock()
}

// Update stores a new sample.
func (s *Security) Update(data domain.MarketData) {
	s.cache.Add(data)
}

// Price returns the last observed price, false before the first sample.
func (s *Security) Price() (decimal.Decimal, bool) {
	last, ok := s.cache.Last()
	if !ok {
		return decimal.Zero, false
	}
	return last.Price, true
}

// LastData returns the last observed bar or tick.
func (s *Security) LastData() (domain.MarketData, bool) {
	return s.cache.Last()
}

// HasData reports whether any sample was observed.
func (s *Security) HasData() bool {
	_, ok := s.cache.Last()
	return ok
}

// ExchangeOpen reports whether the venue is in session at the security's time.
func (s *Security) ExchangeOpen() bool {
	return s.exchange.IsOpen(s.Time())
}

// Snapshot captures the state a fill model needs.
func (s *Security) Snapshot() domain.Snapshot {
	snap := domain.Snapshot{
		Symbol:     s.symbol,
		Time:       s.Time(),
		Resolution: s.resolution,
	}
	if last, ok := s.cache.Last(); ok {
		snap.Last = &last
	}
	return snap
}
