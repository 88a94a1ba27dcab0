package model

// Position represents one holding in the portfolio.
type Position struct {
	Ticker           string  `json:"ticker"`
	Quantity         float64 `json:"quantity"`         // Number of shares held, never negative
	Dividends        float64 `json:"dividends"`        // Cumulative dividend cash received
	TransactionCost  float64 `json:"transactionCost"`  // Cumulative trading fees paid
	TargetAllocation float64 `json:"targetAllocation"` // Fraction of total value in [0,1]
}

// Portfolio is an ordered set of positions, unique by ticker, plus the
// portfolio-level cash balance.
type Portfolio struct {
	Positions   []Position `json:"positions"`
	CashBalance float64    `json:"cashBalance"`
}

// Clone returns a deep copy so callers can never mutate the owner's positions.
func (p Portfolio) Clone() Portfolio {
	positions := make([]Position, len(p.Positions))
	copy(positions, p.Positions)
	return Portfolio{Positions: positions, CashBalance: p.CashBalance}
}

// Tickers returns the held tickers in portfolio order.
func (p Portfolio) Tickers() []string {
	tickers := make([]string, len(p.Positions))
	for i, pos := range p.Positions {
		tickers[i] = pos.Ticker
	}
	return tickers
}

// TargetAllocations returns ticker -> target allocation for every position.
func (p Portfolio) TargetAllocations() map[string]float64 {
	targets := make(map[string]float64, len(p.Positions))
	for _, pos := range p.Positions {
		targets[pos.Ticker] = pos.TargetAllocation
	}
	return targets
}

// Quantities returns ticker -> held quantity for every position.
func (p Portfolio) Quantities() map[string]float64 {
	quantities := make(map[string]float64, len(p.Positions))
	for _, pos := range p.Positions {
		quantities[pos.Ticker] = pos.Quantity
	}
	return quantities
}

// PositionRecord is one validated row of the portfolio file. CashBalance is
// nil when the row left the column blank.
type PositionRecord struct {
	Row         int
	Position    Position
	CashBalance *float64
}

// PositionUpdate carries a partial update; nil fields are left unchanged.
type PositionUpdate struct {
	Quantity         *float64 `json:"quantity,omitempty"`
	Dividends        *float64 `json:"dividends,omitempty"`
	TransactionCost  *float64 `json:"transactionCost,omitempty"`
	TargetAllocation *float64 `json:"targetAllocation,omitempty"`
}
