package service

import (
	"errors"
	"fmt"
	"math"

	"github.com/ndewijer/portfolio-tracker/internal/apperrors"
	"github.com/ndewijer/portfolio-tracker/internal/config"
	"github.com/ndewijer/portfolio-tracker/internal/model"
)

// ValuationEngine prices a portfolio snapshot. It is a pure function of its
// inputs and holds no state beyond configuration.
type ValuationEngine struct {
	cfg config.ValuationConfig
}

// NewValuationEngine creates a ValuationEngine with the given missing-price policy.
func NewValuationEngine(cfg config.ValuationConfig) *ValuationEngine {
	return &ValuationEngine{cfg: cfg}
}

// Value computes the valuation of portfolio at the given quotes.
//
// A position without a usable quote (absent, zero, negative or non-finite)
// is handled by the configured policy:
//   - default: excluded from the totals, listed in Excluded with its error
//     and flagged with a warning
//   - RequireAllPrices: the whole valuation fails with MissingPriceError
//
// failures carries the fetch error per ticker, if any, so an excluded
// position reports why its price is missing. Dividends and transaction
// costs are known amounts and are summed over every position, priced or not.
func (e *ValuationEngine) Value(portfolio model.Portfolio, quotes map[string]model.Quote, failures map[string]error) (model.ValuationSnapshot, error) {
	snapshot := model.ValuationSnapshot{
		Positions:   []model.PositionValuation{},
		Excluded:    []model.ExcludedPosition{},
		CashBalance: portfolio.CashBalance,
		Warnings:    []model.Warning{},
	}

	for _, pos := range portfolio.Positions {
		snapshot.TotalDividends += pos.Dividends
		snapshot.TotalTransactionCost += pos.TransactionCost

		quote, ok := quotes[pos.Ticker]
		if !ok || !usablePrice(quote.Price) {
			missing := &apperrors.MissingPriceError{Ticker: pos.Ticker}
			if e.cfg.RequireAllPrices {
				if cause := failures[pos.Ticker]; cause != nil {
					return model.ValuationSnapshot{}, fmt.Errorf("%w: %w", missing, cause)
				}
				return model.ValuationSnapshot{}, missing
			}
			snapshot.Excluded = append(snapshot.Excluded, excludePosition(pos, missing, failures[pos.Ticker]))
			snapshot.Warnings = append(snapshot.Warnings, excludedWarning(pos.Ticker, failures[pos.Ticker]))
			continue
		}

		if quote.Stale {
			snapshot.Warnings = append(snapshot.Warnings, model.Warning{
				Code:    model.WarningStalePrice,
				Ticker:  pos.Ticker,
				Message: fmt.Sprintf("price from %s served from cache", quote.Date.Format("2006-01-02")),
			})
		}

		marketValue := pos.Quantity * quote.Price
		snapshot.MarketValue += marketValue
		snapshot.Positions = append(snapshot.Positions, model.PositionValuation{
			Ticker:           pos.Ticker,
			Quantity:         pos.Quantity,
			Price:            quote.Price,
			MarketValue:      marketValue,
			TargetAllocation: pos.TargetAllocation,
			Dividends:        pos.Dividends,
			TransactionCost:  pos.TransactionCost,
			Stale:            quote.Stale,
		})
	}

	snapshot.TotalValue = snapshot.MarketValue + snapshot.CashBalance
	snapshot.NetValue = snapshot.TotalValue - snapshot.TotalTransactionCost + snapshot.TotalDividends

	if snapshot.TotalValue > 0 {
		for i := range snapshot.Positions {
			snapshot.Positions[i].AllocationPct = snapshot.Positions[i].MarketValue / snapshot.TotalValue
		}
		snapshot.CashAllocationPct = snapshot.CashBalance / snapshot.TotalValue
	}

	return snapshot, nil
}

func excludePosition(pos model.Position, missing *apperrors.MissingPriceError, cause error) model.ExcludedPosition {
	ex := model.ExcludedPosition{Ticker: pos.Ticker, Quantity: pos.Quantity, Err: missing, Reason: missing.Error()}
	if cause != nil {
		ex.Err = cause
		ex.Reason = cause.Error()
	}
	return ex
}

func excludedWarning(ticker string, cause error) model.Warning {
	if cause != nil && errors.Is(cause, apperrors.ErrDataUnavailable) {
		return model.Warning{
			Code:    model.WarningDataUnavailable,
			Ticker:  ticker,
			Message: "excluded from totals: " + cause.Error(),
		}
	}
	return model.Warning{
		Code:    model.WarningMissingPrice,
		Ticker:  ticker,
		Message: "excluded from totals: no usable price",
	}
}

func usablePrice(p float64) bool {
	return p > 0 && !math.IsInf(p, 0) && !math.IsNaN(p)
}
