package apperrors

import (
	"errors"
	"fmt"
)

// Sentinel errors identify each failure category. The typed errors below
// match them through errors.Is so callers can branch on the category while
// still reading the offending row, field or ticker from the concrete type.
var (
	// ErrValidation indicates bad input shape or an out-of-range value.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound indicates that a ticker is not held in the portfolio.
	ErrNotFound = errors.New("position not found")

	// ErrDuplicateTicker indicates that a ticker is already held in the portfolio.
	ErrDuplicateTicker = errors.New("duplicate ticker")

	// ErrDataUnavailable indicates that market data could not be retrieved.
	ErrDataUnavailable = errors.New("market data unavailable")

	// ErrMissingPrice indicates that a valuation was blocked by an absent price.
	ErrMissingPrice = errors.New("missing price")

	// ErrInsufficientCash indicates that a rebalance buy could not be funded.
	ErrInsufficientCash = errors.New("insufficient cash")

	// ErrConflict indicates that the portfolio changed under a running operation.
	ErrConflict = errors.New("portfolio conflict")
)

// Operation failure errors represent system-level failures that are not tied
// to a single ticker.
var (
	ErrFailedToReadPortfolio  = errors.New("failed to read portfolio file")
	ErrFailedToWritePortfolio = errors.New("failed to write portfolio file")
	ErrInvalidCSVHeaders      = errors.New("invalid CSV headers")
	ErrInvalidPeriod          = errors.New("invalid period")
	ErrInvalidDateRange       = errors.New("invalid date range")
	ErrEmptyQuery             = errors.New("query cannot be empty")
)

// ValidationError reports a rejected input value. Row is the 1-based data row
// of a CSV file (0 when the value did not come from a file) and Field names
// the column or request field.
type ValidationError struct {
	Row     int
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Row > 0 {
		return fmt.Sprintf("validation failed: row %d, field %s: %s", e.Row, e.Field, e.Message)
	}
	if e.Field != "" {
		return fmt.Sprintf("validation failed: field %s: %s", e.Field, e.Message)
	}
	return "validation failed: " + e.Message
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// NewValidationError builds a ValidationError that is not tied to a file row.
func NewValidationError(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// NotFoundError reports a store operation on a ticker that is not held.
type NotFoundError struct {
	Ticker string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("position not found: %s", e.Ticker)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// DuplicateTickerError reports an add of a ticker that is already held.
type DuplicateTickerError struct {
	Ticker string
}

func (e *DuplicateTickerError) Error() string {
	return fmt.Sprintf("duplicate ticker: %s", e.Ticker)
}

func (e *DuplicateTickerError) Is(target error) bool { return target == ErrDuplicateTicker }

// ConflictError reports a write that was refused because the portfolio was
// modified after the operation took its snapshot.
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string {
	return "portfolio conflict: " + e.Message
}

func (e *ConflictError) Is(target error) bool { return target == ErrConflict }

// DataUnavailableError reports a market data failure for one ticker.
// Transient is true when the underlying failure was a network error or a
// retryable HTTP status.
type DataUnavailableError struct {
	Ticker    string
	Err       error
	Transient bool
}

func (e *DataUnavailableError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("market data unavailable for %s", e.Ticker)
	}
	return fmt.Sprintf("market data unavailable for %s: %v", e.Ticker, e.Err)
}

func (e *DataUnavailableError) Is(target error) bool { return target == ErrDataUnavailable }

func (e *DataUnavailableError) Unwrap() error { return e.Err }

// MissingPriceError reports a held ticker that has no usable price.
type MissingPriceError struct {
	Ticker string
}

func (e *MissingPriceError) Error() string {
	return fmt.Sprintf("missing price for %s", e.Ticker)
}

func (e *MissingPriceError) Is(target error) bool { return target == ErrMissingPrice }

// InsufficientCashWarning is attached to a rebalance plan when a buy was
// dropped because it could not be reduced to at least one lot while keeping
// the cash buffer. It is never returned as an operation error.
type InsufficientCashWarning struct {
	Ticker    string
	Required  float64
	Available float64
}

func (e *InsufficientCashWarning) Error() string {
	return fmt.Sprintf("insufficient cash to buy %s: need %.2f, %.2f available above buffer", e.Ticker, e.Required, e.Available)
}

func (e *InsufficientCashWarning) Is(target error) bool { return target == ErrInsufficientCash }
