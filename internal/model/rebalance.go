package model

// Direction of a recommended trade.
type Direction string

const (
	Buy  Direction = "BUY"
	Sell Direction = "SELL"
)

// RebalanceAction is one recommended trade. It never mutates the portfolio;
// the caller decides whether to apply it.
type RebalanceAction struct {
	Ticker            string    `json:"ticker"`
	Direction         Direction `json:"direction"`
	Quantity          float64   `json:"quantity"`
	Price             float64   `json:"price"`
	GrossValue        float64   `json:"grossValue"`
	TransactionCost   float64   `json:"transactionCost"`
	EstimatedCost     float64   `json:"estimatedCost"` // BUY: cash out incl. fee, SELL: proceeds net of fee
	CurrentAllocation float64   `json:"currentAllocation"`
	TargetAllocation  float64   `json:"targetAllocation"`
	Constrained       bool      `json:"constrained"` // BUY reduced to keep the cash buffer
}

// RebalancePlan is the ordered action list of one rebalance run: all sells
// first, then buys.
type RebalancePlan struct {
	ID                   string            `json:"id"`
	TotalValue           float64           `json:"totalValue"`
	CashBalance          float64           `json:"cashBalance"`
	CashBuffer           float64           `json:"cashBuffer"`
	ProjectedCash        float64           `json:"projectedCash"`
	TotalTransactionCost float64           `json:"totalTransactionCost"`
	Actions              []RebalanceAction `json:"actions"`
	Warnings             []Warning         `json:"warnings"`
}

// RebalanceSimulation is a plan together with the portfolio and valuation
// that would result from executing it at the planned prices.
type RebalanceSimulation struct {
	Plan      RebalancePlan     `json:"plan"`
	Portfolio Portfolio         `json:"portfolio"`
	Valuation ValuationSnapshot `json:"valuation"`
}
