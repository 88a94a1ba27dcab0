// Package validation checks API request bodies and path parameters before
// they reach the service.
package validation

import (
	"fmt"
	"math"
	"regexp"
	"strings"
)

// Common validation errors
var (
	ErrInvalidTicker = fmt.Errorf("invalid ticker")
)

// tickerPattern accepts exchange symbols such as AAPL, BRK-B, BRK.B, ^GSPC,
// EURUSD=X and ASML.AS.
var tickerPattern = regexp.MustCompile(`^\^?[A-Z0-9][A-Z0-9.\-=]{0,19}$`)

// ValidateTicker checks that a ticker looks like an exchange symbol after
// trimming and upper-casing.
func ValidateTicker(ticker string) error {
	t := strings.ToUpper(strings.TrimSpace(ticker))
	if !tickerPattern.MatchString(t) {
		return fmt.Errorf("%w: %q", ErrInvalidTicker, ticker)
	}
	return nil
}

func nonNegative(v float64) bool {
	return v >= 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}

func fraction(v float64) bool {
	return v >= 0 && v <= 1
}
