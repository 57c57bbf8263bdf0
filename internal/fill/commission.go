package fill

import "github.com/shopspring/decimal"

// CommissionSchedule is a tiered per-share fee with a floor and a notional cap.
// The zero value charges nothing.
type CommissionSchedule struct {
	TierShares     int64           // Share count at which HighVolumeRate applies
	LowVolumeRate  decimal.Decimal // Per-share fee below TierShares
	HighVolumeRate decimal.Decimal // Per-share fee at or above TierShares
	Minimum        decimal.Decimal // Floor for any charged fee
	MaxPercent     decimal.Decimal // Cap as a fraction of trade notional
}

// DefaultEquityCommission approximates an interactive-broker style fixed plan.
func DefaultEquityCommission() CommissionSchedule {
	return CommissionSchedule{
		TierShares:     500,
		LowVolumeRate:  decimal.RequireFromString("0.013"),
		HighVolumeRate: decimal.RequireFromString("0.008"),
		Minimum:        decimal.NewFromInt(1),
		MaxPercent:     decimal.RequireFromString("0.005"),
	}
}

// IsZero reports whether the schedule charges nothing.
func (c CommissionSchedule) IsZero() bool {
	return c.LowVolumeRate.IsZero() && c.HighVolumeRate.IsZero() && c.Minimum.IsZero()
}

// Fee returns the non-negative commission for trading quantity units at price.
func (c CommissionSchedule) Fee(quantity int64, price decimal.Decimal) decimal.Decimal {
	if c.IsZero() || quantity == 0 {
		return decimal.Zero
	}
	if quantity < 0 {
		quantity = -quantity
	}
	shares := decimal.NewFromInt(quantity)
	value := price.Mul(shares)

	rate := c.LowVolumeRate
	if quantity >= c.TierShares {
		rate = c.HighVolumeRate
	}
	fee := shares.Mul(rate)

	if fee.LessThan(c.Minimum) {
		fee = c.Minimum
	} else if ceiling := c.MaxPercent.Mul(value); !c.MaxPercent.IsZero() && fee.GreaterThan(ceiling) {
		fee = ceiling
	}
	return fee.Abs()
}
