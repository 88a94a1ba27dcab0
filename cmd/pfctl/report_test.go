package main

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ndewijer/portfolio-tracker/internal/model"
)

// TestValuationMarkdown checks the valuation report layout.
//
// WHY: Excluded positions must be visible in the report so a missing price
// is never mistaken for a zero holding.
func TestValuationMarkdown(t *testing.T) {
	doc := ValuationMarkdown(model.ValuationSnapshot{
		Positions: []model.PositionValuation{
			{Ticker: "AAPL", Quantity: 10, Price: 150, MarketValue: 1500, AllocationPct: 0.9375, TargetAllocation: 0.9},
			{Ticker: "MSFT", Quantity: 0.5, Price: 400, MarketValue: 200, Stale: true},
		},
		Excluded:    []model.ExcludedPosition{{Ticker: "GONE", Quantity: 3, Reason: "market data unavailable"}},
		CashBalance: 100,
		TotalValue:  1800,
		NetValue:    1790,
		Warnings:    []model.Warning{{Code: "MISSING_PRICE", Ticker: "GONE", Message: "GONE has no price"}},
	})

	assert.Contains(t, doc, "| AAPL | 10 | 150.00 | 1500.00 | 93.75% | 90.00% |")
	assert.Contains(t, doc, "| MSFT (stale) | 0.5 |")
	assert.Contains(t, doc, "| Cash |")
	assert.Contains(t, doc, "| Net value | 1790.00 |")
	assert.Contains(t, doc, "- GONE (3 shares): market data unavailable")
	assert.Contains(t, doc, "**MISSING_PRICE**")
}

// TestRiskMarkdown checks that undefined statistics print as n/a, never as zero.
func TestRiskMarkdown(t *testing.T) {
	nan := math.NaN()
	doc := RiskMarkdown(model.RiskReport{
		Window:    model.Window{Start: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), End: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)},
		Benchmark: "SPY",
		Positions: []model.RiskMetrics{{
			Ticker: "AAPL", Observations: 1,
			Volatility: nan, AnnualizedVolatility: nan, SharpeRatio: nan, Beta: nan, Alpha: nan,
			RSquared: nan, VaR: nan, VaRAmount: nan, MaxDrawdown: 0,
		}},
		Portfolio: model.RiskMetrics{Ticker: model.PortfolioKey, Observations: 20, AnnualizedVolatility: 0.2, Beta: 1.1, VaRAmount: 123.456},
		Failures:  []model.FetchFailure{{Ticker: "GONE", Error: "no history"}},
		Warnings:  []model.Warning{{Code: model.WarningPartialCoverage, Ticker: "GONE", Message: "excluded"}},
	})

	assert.Contains(t, doc, "# Risk 2024-01-02 to 2024-02-01")
	assert.Contains(t, doc, "| AAPL | 1 | n/a | n/a | n/a | n/a | n/a | n/a | n/a | 0.00% |")
	assert.Contains(t, doc, "| PORTFOLIO | 20 | 20.00% |")
	assert.Contains(t, doc, "123.46")
	assert.Contains(t, doc, "- GONE: no history")
	assert.Contains(t, doc, "**PARTIAL_COVERAGE**")
}

// TestPerformanceMarkdown checks the benchmark row and correlation matrix.
func TestPerformanceMarkdown(t *testing.T) {
	doc := PerformanceMarkdown(model.PerformanceReport{
		Positions:   []model.PerformanceMetrics{{Ticker: "A", TotalReturn: 0.26}, {Ticker: "B", TotalReturn: 0.2}},
		Portfolio:   model.PerformanceMetrics{Ticker: model.PortfolioKey},
		Benchmark:   &model.PerformanceMetrics{Ticker: "SPY", TotalReturn: 0.21},
		Tickers:     []string{"A", "B"},
		Correlation: [][]float64{{1, -0.5}, {-0.5, 1}},
	})

	assert.Contains(t, doc, "| A | 0 | 26.00% |")
	assert.Contains(t, doc, "| SPY | 0 | 21.00% |")
	assert.Contains(t, doc, "|  | A | B |")
	assert.Contains(t, doc, "| A | 1.000 | -0.500 |")
}

// TestRebalanceMarkdown checks that reduced buys are marked.
func TestRebalanceMarkdown(t *testing.T) {
	t.Run("lists actions", func(t *testing.T) {
		doc := RebalanceMarkdown(model.RebalancePlan{
			TotalValue: 5000,
			Actions: []model.RebalanceAction{
				{Ticker: "MSFT", Direction: model.Sell, Quantity: 5, Price: 300, GrossValue: 1500, EstimatedCost: 1500},
				{Ticker: "AAPL", Direction: model.Buy, Quantity: 10, Price: 150, GrossValue: 1500, EstimatedCost: 1500, Constrained: true},
			},
			ProjectedCash: 100,
		})

		assert.Contains(t, doc, "| SELL | MSFT | 5 | 300.00 |")
		assert.Contains(t, doc, "| BUY* | AAPL | 10 | 150.00 |")
		assert.Contains(t, doc, "Projected cash 100.00")
	})

	t.Run("reports no trades", func(t *testing.T) {
		assert.Contains(t, RebalanceMarkdown(model.RebalancePlan{}), "No trades needed.")
	})
}

func TestSearchMarkdown(t *testing.T) {
	assert.Contains(t, SearchMarkdown("zz", nil), "No results found.")
	assert.Contains(t,
		SearchMarkdown("apple", []model.SymbolMatch{{Ticker: "AAPL", Name: "Apple Inc.", Exchange: "NMS", Type: "EQUITY"}}),
		"| AAPL | Apple Inc. | NMS | EQUITY |")
}
