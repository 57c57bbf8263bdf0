package securities

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"quantEngine/internal/domain"
)

func at(year int, month time.Month, day, hour, min int) time.Time {
	return time.Date(year, month, day, hour, min, 0, 0, time.UTC)
}

func TestEquityExchange_IsOpen(t *testing.T) {
	ex := EquityExchange{}
	tests := []struct {
		name string
		t    time.Time
		want bool
	}{
		{"monday mid session", at(2013, 10, 7, 12, 0), true},
		{"opening bell", at(2013, 10, 7, 9, 30), true},
		{"before open", at(2013, 10, 7, 9, 29), false},
		{"closing bell", at(2013, 10, 7, 16, 0), false},
		{"last minute", at(2013, 10, 7, 15, 59), true},
		{"saturday", at(2013, 10, 12, 12, 0), false},
		{"sunday", at(2013, 10, 13, 12, 0), false},
		{"christmas", at(2013, 12, 25, 12, 0), false},
		{"good friday", at(2013, 3, 29, 12, 0), false},
		{"hurricane sandy", at(2012, 10, 30, 12, 0), false},
		{"day after thanksgiving", at(2013, 11, 29, 12, 0), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ex.IsOpen(tt.t))
		})
	}
}

func TestForexExchange_IsOpen(t *testing.T) {
	ex := ForexExchange{}
	tests := []struct {
		name string
		t    time.Time
		want bool
	}{
		{"wednesday night", at(2013, 10, 9, 23, 0), true},
		{"friday before cutoff", at(2013, 10, 11, 15, 59), true},
		{"friday at cutoff", at(2013, 10, 11, 16, 0), false},
		{"saturday", at(2013, 10, 12, 12, 0), false},
		{"sunday before reopen", at(2013, 10, 13, 16, 59), false},
		{"sunday reopen", at(2013, 10, 13, 17, 0), true},
		{"holidays ignored", at(2013, 12, 25, 12, 0), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ex.IsOpen(tt.t))
		})
	}
}

func TestExchangeFor(t *testing.T) {
	assert.IsType(t, ForexExchange{}, ExchangeFor(domain.Forex))
	assert.IsType(t, EquityExchange{}, ExchangeFor(domain.Equity))
	assert.True(t, IsUSHoliday(at(2001, 9, 11, 0, 0)))
	assert.False(t, IsUSHoliday(at(2001, 9, 17, 0, 0)))
}
