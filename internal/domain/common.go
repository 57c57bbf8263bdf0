package domain

// OrderSide represents the direction implied by an order's signed quantity.
type OrderSide string

const (
	Buy  OrderSide = "BUY"
	Sell OrderSide = "SELL"
	Hold OrderSide = "HOLD"
)

// SecurityType identifies the asset class of a tracked instrument.
type SecurityType string

const (
	Equity SecurityType = "EQUITY"
	Forex  SecurityType = "FOREX"
)

// Resolution is the granularity of the data a security is fed with.
type Resolution string

const (
	ResolutionTick   Resolution = "TICK"
	ResolutionSecond Resolution = "SECOND"
	ResolutionMinute Resolution = "MINUTE"
)

// IsBar reports whether data at this resolution arrives as aggregated bars.
func (r Resolution) IsBar() bool {
	return r == ResolutionSecond || r == ResolutionMinute
}

// ParseResolution maps a configuration string to a Resolution.
func ParseResolution(s string) (Resolution, bool) {
	switch Resolution(s) {
	case ResolutionTick, ResolutionSecond, ResolutionMinute:
		return Resolution(s), true
	}
	switch s {
	case "tick":
		return ResolutionTick, true
	case "second", "1s":
		return ResolutionSecond, true
	case "minute", "1m":
		return ResolutionMinute, true
	}
	return "", false
}

// DataType distinguishes bar samples from tick samples.
type DataType string

const (
	TradeBar DataType = "TRADEBAR"
	Tick     DataType = "TICK"
)
