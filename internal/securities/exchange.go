package securities

import (
	"time"

	"quantEngine/internal/domain"
)

// Exchange answers whether a venue accepts market orders at a given time.
type Exchange interface {
	// DateIsOpen reports whether the venue trades at all on t's calendar date.
	DateIsOpen(t time.Time) bool
	// IsOpen reports whether the venue is in session at t.
	IsOpen(t time.Time) bool
}

// EquityExchange models US equity hours: weekdays 9:30-16:00 outside listed holidays.
// Times are interpreted in the exchange's local time as carried by t.
type EquityExchange struct{}

func (EquityExchange) DateIsOpen(t time.Time) bool {
	switch t.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	return !IsUSHoliday(t)
}

func (e EquityExchange) IsOpen(t time.Time) bool {
	if !e.DateIsOpen(t) {
		return false
	}
	hours := hoursOfDay(t)
	return hours >= 9.5 && hours < 16
}

// ForexExchange models the FX week: closed Saturday, from Friday 16:00 and until Sunday 17:00.
type ForexExchange struct{}

func (ForexExchange) DateIsOpen(t time.Time) bool {
	return t.Weekday() != time.Saturday
}

func (f ForexExchange) IsOpen(t time.Time) bool {
	if !f.DateIsOpen(t) {
		return false
	}
	hours := hoursOfDay(t)
	switch t.Weekday() {
	case time.Friday:
		return hours < 16
	case time.Sunday:
		return hours >= 17
	}
	return true
}

// ExchangeFor returns the calendar for an asset class.
func ExchangeFor(kind domain.SecurityType) Exchange {
	if kind == domain.Forex {
		return ForexExchange{}
	}
	return EquityExchange{}
}

func hoursOfDay(t time.Time) float64 {
	return float64(t.Hour()) + float64(t.Minute())/60 + float64(t.Second())/3600
}
