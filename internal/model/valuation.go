package model

// Warning is a non-fatal notice attached to a computed result.
type Warning struct {
	Code    string `json:"code"`
	Ticker  string `json:"ticker,omitempty"`
	Message string `json:"message"`
}

// Warning codes attached to valuation and rebalance results.
const (
	WarningMissingPrice         = "MISSING_PRICE"
	WarningDataUnavailable      = "DATA_UNAVAILABLE"
	WarningStalePrice           = "STALE_PRICE"
	WarningInsufficientCash     = "INSUFFICIENT_CASH"
	WarningAllocationNormalized = "ALLOCATION_NORMALIZED"
	WarningUnpriced             = "UNPRICED"
	WarningUneconomicSell       = "UNECONOMIC_SELL"
	WarningPartialCoverage      = "PARTIAL_COVERAGE"
)

// PositionValuation is the priced view of one position.
type PositionValuation struct {
	Ticker           string  `json:"ticker"`
	Quantity         float64 `json:"quantity"`
	Price            float64 `json:"price"`
	MarketValue      float64 `json:"marketValue"`
	AllocationPct    float64 `json:"allocationPct"`
	TargetAllocation float64 `json:"targetAllocation"`
	Dividends        float64 `json:"dividends"`
	TransactionCost  float64 `json:"transactionCost"`
	Stale            bool    `json:"stale"`
}

// ExcludedPosition is a held position left out of the totals because it had
// no usable price.
type ExcludedPosition struct {
	Ticker   string  `json:"ticker"`
	Quantity float64 `json:"quantity"`
	Reason   string  `json:"reason"`
	Err      error   `json:"-"`
}

// ValuationSnapshot is derived, read-only and recomputed on demand.
type ValuationSnapshot struct {
	Positions            []PositionValuation `json:"positions"`
	Excluded             []ExcludedPosition  `json:"excluded"`
	CashBalance          float64             `json:"cashBalance"`
	MarketValue          float64             `json:"marketValue"` // Σ position market value
	TotalValue           float64             `json:"totalValue"`  // MarketValue + CashBalance
	NetValue             float64             `json:"netValue"`    // TotalValue − costs + dividends
	TotalDividends       float64             `json:"totalDividends"`
	TotalTransactionCost float64             `json:"totalTransactionCost"`
	CashAllocationPct    float64             `json:"cashAllocationPct"`
	Warnings             []Warning           `json:"warnings"`
}

// Position returns the valuation of a priced ticker.
func (s ValuationSnapshot) Position(ticker string) (PositionValuation, bool) {
	for _, p := range s.Positions {
		if p.Ticker == ticker {
			return p, true
		}
	}
	return PositionValuation{}, false
}

// IsExcluded reports whether ticker was left out of the totals.
func (s ValuationSnapshot) IsExcluded(ticker string) bool {
	for _, e := range s.Excluded {
		if e.Ticker == ticker {
			return true
		}
	}
	return false
}
