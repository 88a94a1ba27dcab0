package service

import (
	"fmt"
	"math"
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ndewijer/portfolio-tracker/internal/apperrors"
	"github.com/ndewijer/portfolio-tracker/internal/config"
	"github.com/ndewijer/portfolio-tracker/internal/model"
)

// allocationTolerance absorbs float noise in user-entered target sums.
const allocationTolerance = 1e-9

// RebalanceEngine turns a valuation and target allocations into an ordered
// list of trades. It never mutates a portfolio.
type RebalanceEngine struct {
	cfg config.RebalanceConfig
}

// NewRebalanceEngine creates a RebalanceEngine with the given cash buffer
// policy, cost model and sizing rules.
func NewRebalanceEngine(cfg config.RebalanceConfig) *RebalanceEngine {
	if cfg.LotSize <= 0 {
		cfg.LotSize = 1
	}
	return &RebalanceEngine{cfg: cfg}
}

// CashBuffer is the cash to retain for a portfolio worth totalValue: the
// larger of the absolute minimum and the percentage minimum.
func (e *RebalanceEngine) CashBuffer(totalValue float64) float64 {
	return math.Max(e.cfg.MinimumCash, e.cfg.MinimumCashPercent*totalValue)
}

// Fee is the transaction cost of one trade of the given gross value.
func (e *RebalanceEngine) Fee(gross float64) float64 {
	return e.cfg.FixedCost + e.cfg.PercentCost*gross
}

type candidate struct {
	pos   model.PositionValuation
	delta float64
	qty   float64
}

// Plan computes a single-pass proportional rebalance.
//
//  1. The cash buffer is reserved first; desired value per ticker is
//     (TotalValue - buffer) × target. Targets summing above 1 are scaled
//     down to sum to 1; a sum below 1 leaves the remainder in cash.
//  2. Tickers whose |delta| is within MinimumTradeThreshold are skipped.
//  3. Quantities are |delta| / price truncated to whole lots, so no trade
//     overshoots its target. Sells never exceed the held quantity.
//  4. All sells come first and their net proceeds fund the buys. A sell whose
//     fee is at least its gross value is skipped with an UNECONOMIC_SELL
//     warning, so sells never reduce projected cash. A buy that
//     would take projected cash below the buffer is reduced to the largest
//     affordable lot count, or dropped with an InsufficientCashWarning.
//
// Positions that could not be priced cannot be sized and get an UNPRICED
// warning instead of an action.
func (e *RebalanceEngine) Plan(snapshot model.ValuationSnapshot, targets map[string]float64) model.RebalancePlan {
	buffer := e.CashBuffer(snapshot.TotalValue)
	plan := model.RebalancePlan{
		ID:          uuid.NewString(),
		TotalValue:  snapshot.TotalValue,
		CashBalance: snapshot.CashBalance,
		CashBuffer:  buffer,
		Actions:     []model.RebalanceAction{},
		Warnings:    []model.Warning{},
	}

	scale := 1.0
	sum := 0.0
	for _, t := range targets {
		sum += t
	}
	if sum > 1+allocationTolerance {
		scale = 1 / sum
		plan.Warnings = append(plan.Warnings, model.Warning{
			Code:    model.WarningAllocationNormalized,
			Message: fmt.Sprintf("target allocations sum to %.4f and were scaled to 1", sum),
		})
	}

	for _, ex := range snapshot.Excluded {
		if targets[ex.Ticker] > 0 || ex.Quantity > 0 {
			plan.Warnings = append(plan.Warnings, model.Warning{
				Code:    model.WarningUnpriced,
				Ticker:  ex.Ticker,
				Message: "not rebalanced: " + ex.Reason,
			})
		}
	}

	investable := math.Max(snapshot.TotalValue-buffer, 0)

	var sells, buys []candidate
	for _, pos := range snapshot.Positions {
		target := targets[pos.Ticker] * scale
		delta := investable*target - pos.MarketValue
		if math.Abs(delta) <= e.cfg.MinimumTradeThreshold {
			continue
		}

		qty := e.truncateLots(math.Abs(delta) / pos.Price)
		if delta < 0 {
			qty = math.Min(qty, pos.Quantity)
		}
		if qty <= 0 {
			continue
		}

		c := candidate{pos: pos, delta: delta, qty: qty}
		if delta < 0 {
			sells = append(sells, c)
		} else {
			buys = append(buys, c)
		}
	}
	sortCandidates(sells)
	sortCandidates(buys)

	cash := snapshot.CashBalance

	for _, c := range sells {
		gross := c.qty * c.pos.Price
		fee := e.Fee(gross)
		if fee >= gross {
			plan.Warnings = append(plan.Warnings, model.Warning{
				Code:    model.WarningUneconomicSell,
				Ticker:  c.pos.Ticker,
				Message: fmt.Sprintf("not sold: fee %.2f is not covered by proceeds %.2f", fee, gross),
			})
			continue
		}
		cash += gross - fee
		plan.TotalTransactionCost += fee
		plan.Actions = append(plan.Actions, e.action(c, model.Sell, c.qty, gross, fee, gross-fee, false, targets[c.pos.Ticker]*scale))
	}

	for _, c := range buys {
		qty := c.qty
		constrained := false
		available := cash - buffer

		if e.buyCost(qty, c.pos.Price) > available {
			qty = e.affordableQuantity(available, c.pos.Price)
			constrained = true
		}
		if qty <= 0 {
			required := e.buyCost(e.cfg.LotSize, c.pos.Price)
			w := &apperrors.InsufficientCashWarning{
				Ticker:    c.pos.Ticker,
				Required:  required,
				Available: math.Max(available, 0),
			}
			plan.Warnings = append(plan.Warnings, model.Warning{
				Code:    model.WarningInsufficientCash,
				Ticker:  c.pos.Ticker,
				Message: w.Error(),
			})
			continue
		}

		gross := qty * c.pos.Price
		fee := e.Fee(gross)
		cash -= gross + fee
		plan.TotalTransactionCost += fee
		plan.Actions = append(plan.Actions, e.action(c, model.Buy, qty, gross, fee, gross+fee, constrained, targets[c.pos.Ticker]*scale))
	}

	plan.ProjectedCash = cash
	return plan
}

// Apply returns the portfolio that results from executing every action of
// plan at its planned price and cost. The input is not modified. A plan that
// does not fit the portfolio (unknown ticker, selling more than held, or cash
// going negative) is rejected whole.
func (e *RebalanceEngine) Apply(portfolio model.Portfolio, plan model.RebalancePlan) (model.Portfolio, error) {
	out := portfolio.Clone()
	index := make(map[string]int, len(out.Positions))
	for i, p := range out.Positions {
		index[p.Ticker] = i
	}

	for _, a := range plan.Actions {
		i, ok := index[a.Ticker]
		if !ok {
			return model.Portfolio{}, &apperrors.NotFoundError{Ticker: a.Ticker}
		}
		pos := &out.Positions[i]
		pos.TransactionCost += a.TransactionCost
		switch a.Direction {
		case model.Sell:
			if a.Quantity > pos.Quantity {
				return model.Portfolio{}, fmt.Errorf("sell %v %s exceeds held quantity %v", a.Quantity, a.Ticker, pos.Quantity)
			}
			pos.Quantity -= a.Quantity
			out.CashBalance += a.EstimatedCost
		case model.Buy:
			pos.Quantity += a.Quantity
			out.CashBalance -= a.EstimatedCost
		}
		if out.CashBalance < 0 {
			return model.Portfolio{}, fmt.Errorf("%w: %s %s leaves cash at %.2f", apperrors.ErrInsufficientCash, a.Direction, a.Ticker, out.CashBalance)
		}
	}
	return out, nil
}

func (e *RebalanceEngine) action(c candidate, dir model.Direction, qty, gross, fee, estimated float64, constrained bool, target float64) model.RebalanceAction {
	return model.RebalanceAction{
		Ticker:            c.pos.Ticker,
		Direction:         dir,
		Quantity:          qty,
		Price:             c.pos.Price,
		GrossValue:        gross,
		TransactionCost:   fee,
		EstimatedCost:     estimated,
		CurrentAllocation: c.pos.AllocationPct,
		TargetAllocation:  target,
		Constrained:       constrained,
	}
}

// buyCost is the cash a buy of qty consumes, fee included.
func (e *RebalanceEngine) buyCost(qty, price float64) float64 {
	gross := qty * price
	return gross + e.Fee(gross)
}

// affordableQuantity is the largest lot multiple whose cost fits in available.
func (e *RebalanceEngine) affordableQuantity(available, price float64) float64 {
	spend := available - e.cfg.FixedCost
	if spend <= 0 {
		return 0
	}
	qty := e.truncateLots(spend / (price * (1 + e.cfg.PercentCost)))
	for qty > 0 && e.buyCost(qty, price) > available {
		qty = e.truncateLots(qty - e.cfg.LotSize)
	}
	return qty
}

// truncateLots rounds qty down to a whole number of lots. Decimal arithmetic
// keeps 0.3/0.1 from truncating to 2 lots.
func (e *RebalanceEngine) truncateLots(qty float64) float64 {
	if qty <= 0 || math.IsNaN(qty) || math.IsInf(qty, 0) {
		return 0
	}
	lot := decimal.NewFromFloat(e.cfg.LotSize)
	lots := decimal.NewFromFloat(qty).Div(lot).Floor()
	return lots.Mul(lot).InexactFloat64()
}

func sortCandidates(cs []candidate) {
	sort.Slice(cs, func(i, j int) bool {
		di, dj := math.Abs(cs[i].delta), math.Abs(cs[j].delta)
		if di != dj {
			return di > dj
		}
		return cs[i].pos.Ticker < cs[j].pos.Ticker
	})
}
