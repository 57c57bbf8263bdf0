package ports

import (
	"errors"
	"fmt"
)

// Standard application-level errors.
// Adapters should wrap underlying infrastructure errors with these standard errors.
var (
	// General Errors
	ErrUnknown            = errors.New("unknown error occurred")
	ErrInvalidRequest     = errors.New("invalid request parameters or format")
	ErrNotFound           = errors.New("resource not found")
	ErrTimeout            = errors.New("operation timed out")
	ErrContextCanceled    = errors.New("operation canceled via context")
	ErrConfigurationError = errors.New("invalid or missing configuration")

	// Order Validation Errors
	ErrZeroQuantity        = errors.New("order quantity is zero")
	ErrPriceUnavailable    = errors.New("no price data observed for symbol")
	ErrMarketClosed        = errors.New("market is closed for market orders")
	ErrInsufficientCapital = errors.New("insufficient buying power for order")
	ErrOrderCeiling        = errors.New("order count ceiling reached for period")
	ErrFutureTimestamp     = errors.New("order timestamp is after current time")
	ErrOrderFinalized      = errors.New("order is already filled or canceled")
	ErrUnknownSymbol       = errors.New("symbol is not tracked")
	ErrOrderNotFound       = errors.New("order not found")

	// Exchange Specific Errors
	ErrExchangeUnavailable  = errors.New("exchange API is unavailable")
	ErrRateLimited          = errors.New("API rate limit exceeded")
	ErrAuthenticationFailed = errors.New("exchange authentication failed (check API keys)")

	// Database Specific Errors
	ErrDuplicateEntry = errors.New("database record already exists")
	ErrDBConnection   = errors.New("database connection error")
	ErrQueryFailed    = errors.New("database query failed")
)

// RejectionCode is the negative integer reported for a refused order.
type RejectionCode int

const (
	CodeZeroQuantity        RejectionCode = -1
	CodePriceUnavailable    RejectionCode = -2
	CodeMarketClosed        RejectionCode = -3
	CodeInsufficientCapital RejectionCode = -4
	CodeOrderCeiling        RejectionCode = -5
	CodeFutureTimestamp     RejectionCode = -6
	CodeGeneral             RejectionCode = -7
	CodeOrderFinalized      RejectionCode = -8
	CodeUnknownSymbol       RejectionCode = -9
	CodeOrderNotFound       RejectionCode = -10
)

var rejectionCodes = map[error]RejectionCode{
	ErrZeroQuantity:        CodeZeroQuantity,
	ErrPriceUnavailable:    CodePriceUnavailable,
	ErrMarketClosed:        CodeMarketClosed,
	ErrInsufficientCapital: CodeInsufficientCapital,
	ErrOrderCeiling:        CodeOrderCeiling,
	ErrFutureTimestamp:     CodeFutureTimestamp,
	ErrOrderFinalized:      CodeOrderFinalized,
	ErrUnknownSymbol:       CodeUnknownSymbol,
	ErrOrderNotFound:       CodeOrderNotFound,
}

// RejectionError describes why an order was refused.
type RejectionError struct {
	Code    RejectionCode
	OrderID int64
	Symbol  string
	Err     error
}

// Reject wraps a validation error with the code of the sentinel it matches.
// Errors matching no sentinel get CodeGeneral.
func Reject(err error, orderID int64, symbol string) *RejectionError {
	code := CodeGeneral
	for sentinel, c := range rejectionCodes {
		if errors.Is(err, sentinel) {
			code = c
			break
		}
	}
	return &RejectionError{Code: code, OrderID: orderID, Symbol: symbol, Err: err}
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("order %d (%s) rejected [%d]: %v", e.OrderID, e.Symbol, e.Code, e.Err)
}

func (e *RejectionError) Unwrap() error {
	return e.Err
}

// CodeOf extracts the rejection code from err, CodeGeneral for foreign errors
// and zero for nil.
func CodeOf(err error) RejectionCode {
	if err == nil {
		return 0
	}
	var rej *RejectionError
	if errors.As(err, &rej) {
		return rej.Code
	}
	return CodeGeneral
}
