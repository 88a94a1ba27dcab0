package request

// AddPositionRequest represents the request body for adding a position.
// Verify defaults to true: the ticker must have a market price to be accepted.
type AddPositionRequest struct {
	Ticker           string  `json:"ticker"`
	Quantity         float64 `json:"quantity"`
	Dividends        float64 `json:"dividends"`
	TransactionCost  float64 `json:"transactionCost"`
	TargetAllocation float64 `json:"targetAllocation"`
	Verify           *bool   `json:"verify,omitempty"`
}

// UpdatePositionRequest represents a partial position update. Omitted
// fields are left unchanged.
type UpdatePositionRequest struct {
	Quantity         *float64 `json:"quantity,omitempty"`
	Dividends        *float64 `json:"dividends,omitempty"`
	TransactionCost  *float64 `json:"transactionCost,omitempty"`
	TargetAllocation *float64 `json:"targetAllocation,omitempty"`
}

// SetCashRequest represents the request body for replacing the cash balance.
type SetCashRequest struct {
	CashBalance *float64 `json:"cashBalance"`
}
