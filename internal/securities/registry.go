package securities

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"quantEngine/internal/domain"
	"quantEngine/internal/ports"
)

// Registry owns the set of tracked securities and the simulation clock.
type Registry struct {
	mu         sync.RWMutex
	securities map[string]*Security
	time       time.Time
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{securities: make(map[string]*Security)}
}

// Add registers a security. Symbols must be unique.
func (r *Registry) Add(cfg Config) (*Security, error) {
	if cfg.Symbol == "" {
		return nil, fmt.Errorf("%w: empty symbol", ports.ErrInvalidRequest)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.securities[cfg.Symbol]; exists {
		return nil, fmt.Errorf("%w: security %s already registered", ports.ErrDuplicateEntry, cfg.Symbol)
	}
	sec := NewSecurity(cfg)
	if !r.time.IsZero() {
		sec.SetTime(r.time)
	}
	r.securities[cfg.Symbol] = sec
	return sec, nil
}

// Security looks up a tracked security.
func (r *Registry) Security(symbol string) (*Security, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sec, ok := r.securities[symbol]
	return sec, ok
}

// Symbols returns the tracked symbols in lexical order.
func (r *Registry) Symbols() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.securities))
	for s := range r.securities {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// Time returns the current frontier.
func (r *Registry) Time() time.Time {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.time
}

// SetTime moves the frontier for every security.
func (r *Registry) SetTime(t time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.time = t
	for _, sec := range r.securities {
		sec.SetTime(t)
	}
}

// Update routes a sample to its security's cache.
func (r *Registry) Update(data domain.MarketData) error {
	sec, ok := r.Security(data.Symbol)
	if !ok {
		return fmt.Errorf("%w: %s", ports.ErrUnknownSymbol, data.Symbol)
	}
	sec.Update(data)
	return nil
}
