package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderType is the execution style of an order.
type OrderType string

const (
	OrderTypeMarket OrderType = "MARKET"
	OrderTypeLimit  OrderType = "LIMIT"
	OrderTypeStop   OrderType = "STOP"
)

// OrderStatus tracks an order through None -> Submitted -> Filled|Canceled.
// No fill path produces PartiallyFilled.
type OrderStatus string

const (
	OrderStatusNone            OrderStatus = "NONE"
	OrderStatusSubmitted       OrderStatus = "SUBMITTED"
	OrderStatusPartiallyFilled OrderStatus = "PARTIALLY_FILLED"
	OrderStatusFilled          OrderStatus = "FILLED"
	OrderStatusCanceled        OrderStatus = "CANCELED"
)

// Order is a request to trade a whole number of units of a symbol together
// with its execution state.
type Order struct {
	ID       int64           // Assigned on acceptance; zero until then
	Symbol   string          // Traded symbol
	Quantity int64           // Signed: positive buys, negative sells
	Type     OrderType       // Market, limit or stop
	Price    decimal.Decimal // Limit/stop trigger; for market orders the fill reference price
	Time     time.Time       // Submission time, later the fill time
	Status   OrderStatus     // Lifecycle state
	Fee      decimal.Decimal // Commission charged on fill
	Tag      string          // Free-form label set by the strategy
}

// NewOrder builds an unsubmitted order.
func NewOrder(symbol string, quantity int64, orderType OrderType, price decimal.Decimal, t time.Time, tag string) Order {
	return Order{
		Symbol:   symbol,
		Quantity: quantity,
		Type:     orderType,
		Price:    price,
		Time:     t,
		Status:   OrderStatusNone,
		Tag:      tag,
	}
}

// Direction derives the side from the sign of the quantity.
func (o Order) Direction() OrderSide {
	switch {
	case o.Quantity > 0:
		return Buy
	case o.Quantity < 0:
		return Sell
	default:
		return Hold
	}
}

// AbsoluteQuantity returns the unsigned order size.
func (o Order) AbsoluteQuantity() int64 {
	if o.Quantity < 0 {
		return -o.Quantity
	}
	return o.Quantity
}

// Value returns the signed notional, quantity x price.
func (o Order) Value() decimal.Decimal {
	return decimal.NewFromInt(o.Quantity).Mul(o.Price)
}

// IsFinal reports whether the order reached a terminal status.
func (o Order) IsFinal() bool {
	return o.Status == OrderStatusFilled || o.Status == OrderStatusCanceled
}

// QuantityFromDecimal truncates a fractional size toward zero. Orders only
// carry whole units, so callers sizing positions from cash convert here.
func QuantityFromDecimal(q decimal.Decimal) int64 {
	return q.Truncate(0).IntPart()
}
