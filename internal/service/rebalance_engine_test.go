package service_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ndewijer/portfolio-tracker/internal/apperrors"
	"github.com/ndewijer/portfolio-tracker/internal/config"
	"github.com/ndewijer/portfolio-tracker/internal/model"
	"github.com/ndewijer/portfolio-tracker/internal/service"
	"github.com/ndewijer/portfolio-tracker/internal/testutil"
)

func value(t *testing.T, p model.Portfolio, prices map[string]float64) model.ValuationSnapshot {
	t.Helper()
	snap, err := service.NewValuationEngine(config.ValuationConfig{}).Value(p, quotes(prices), nil)
	require.NoError(t, err)
	return snap
}

// TestRebalanceEngine_Plan tests trade sizing, ordering and the cash constraint.
//
// WHY: A rebalance plan is acted on by hand. Sells must fund buys, no trade
// may overshoot its target, and the plan must never spend the cash buffer.
func TestRebalanceEngine_Plan(t *testing.T) {
	t.Run("sells first and constrains buys to available cash", func(t *testing.T) {
		p := testutil.NewPortfolio().
			WithPosition("AAPL", 12, 0.5).
			WithPosition("MSFT", 18, 0.5).
			WithCash(100).
			Build()
		snap := value(t, p, map[string]float64{"AAPL": 150, "MSFT": 300})
		engine := service.NewRebalanceEngine(config.RebalanceConfig{MinimumTradeThreshold: 1, LotSize: 1})

		plan := engine.Plan(snap, p.TargetAllocations())

		require.Len(t, plan.Actions, 2)
		sell, buy := plan.Actions[0], plan.Actions[1]

		assert.Equal(t, "MSFT", sell.Ticker)
		assert.Equal(t, model.Sell, sell.Direction)
		assert.Equal(t, 5.0, sell.Quantity)
		assert.InDelta(t, 1500, sell.EstimatedCost, 1e-9)

		assert.Equal(t, "AAPL", buy.Ticker)
		assert.Equal(t, model.Buy, buy.Direction)
		assert.Equal(t, 10.0, buy.Quantity)
		assert.True(t, buy.Constrained)

		assert.InDelta(t, 100, plan.ProjectedCash, 1e-9)
		assert.NotEmpty(t, plan.ID)
	})

	t.Run("no buy drops cash below the buffer", func(t *testing.T) {
		p := testutil.NewPortfolio().
			WithPosition("A", 10, 0.3).
			WithPosition("B", 5, 0.3).
			WithPosition("C", 0, 0.4).
			WithCash(2000).
			Build()
		snap := value(t, p, map[string]float64{"A": 50, "B": 80, "C": 33})
		cfg := config.RebalanceConfig{MinimumCash: 300, MinimumCashPercent: 0.05, FixedCost: 2, PercentCost: 0.001, MinimumTradeThreshold: 1, LotSize: 1}
		engine := service.NewRebalanceEngine(cfg)

		plan := engine.Plan(snap, p.TargetAllocations())

		assert.InDelta(t, math.Max(300, 0.05*snap.TotalValue), plan.CashBuffer, 1e-9)
		cash := snap.CashBalance
		for _, a := range plan.Actions {
			if a.Direction == model.Sell {
				cash += a.EstimatedCost
				continue
			}
			cash -= a.EstimatedCost
			assert.GreaterOrEqual(t, cash, plan.CashBuffer-1e-9, "buy of %s breaches the buffer", a.Ticker)
		}
		assert.InDelta(t, cash, plan.ProjectedCash, 1e-9)
	})

	t.Run("buy below one lot is dropped with a warning", func(t *testing.T) {
		p := testutil.NewPortfolio().
			WithPosition("BRK", 0, 1).
			WithCash(1000).
			Build()
		snap := value(t, p, map[string]float64{"BRK": 400})
		// One share costs 400 + 150 fee against 500 spendable above the buffer.
		engine := service.NewRebalanceEngine(config.RebalanceConfig{MinimumCash: 500, FixedCost: 150, LotSize: 1})

		plan := engine.Plan(snap, p.TargetAllocations())

		assert.Empty(t, plan.Actions)
		require.Len(t, plan.Warnings, 1)
		assert.Equal(t, model.WarningInsufficientCash, plan.Warnings[0].Code)
		assert.Equal(t, "BRK", plan.Warnings[0].Ticker)
	})

	t.Run("small deltas are skipped", func(t *testing.T) {
		p := testutil.NewPortfolio().
			WithPosition("A", 10, 0.5).
			WithPosition("B", 10, 0.5).
			Build()
		snap := value(t, p, map[string]float64{"A": 100, "B": 101})
		engine := service.NewRebalanceEngine(config.RebalanceConfig{MinimumTradeThreshold: 10, LotSize: 1})

		plan := engine.Plan(snap, p.TargetAllocations())

		assert.Empty(t, plan.Actions)
	})

	t.Run("quantities truncate to whole lots", func(t *testing.T) {
		p := testutil.NewPortfolio().
			WithPosition("A", 0, 1).
			WithCash(1000).
			Build()
		snap := value(t, p, map[string]float64{"A": 30})
		engine := service.NewRebalanceEngine(config.RebalanceConfig{LotSize: 5})

		plan := engine.Plan(snap, p.TargetAllocations())

		require.Len(t, plan.Actions, 1)
		// 1000 / 30 = 33.3 shares; whole lots of 5 give 30.
		assert.Equal(t, 30.0, plan.Actions[0].Quantity)
	})

	t.Run("targets above one are normalized", func(t *testing.T) {
		p := testutil.NewPortfolio().
			WithPosition("A", 0, 0.8).
			WithPosition("B", 0, 0.8).
			WithCash(1000).
			Build()
		snap := value(t, p, map[string]float64{"A": 10, "B": 10})
		engine := service.NewRebalanceEngine(config.RebalanceConfig{LotSize: 1})

		plan := engine.Plan(snap, p.TargetAllocations())

		require.NotEmpty(t, plan.Warnings)
		assert.Equal(t, model.WarningAllocationNormalized, plan.Warnings[0].Code)
		require.Len(t, plan.Actions, 2)
		for _, a := range plan.Actions {
			assert.Equal(t, 50.0, a.Quantity)
			assert.InDelta(t, 0.5, a.TargetAllocation, 1e-12)
		}
	})

	t.Run("unpriced positions get a warning instead of an action", func(t *testing.T) {
		p := testutil.NewPortfolio().
			WithPosition("A", 10, 0.5).
			WithPosition("GONE", 3, 0.5).
			Build()
		snap := value(t, p, map[string]float64{"A": 10})
		engine := service.NewRebalanceEngine(config.RebalanceConfig{LotSize: 1})

		plan := engine.Plan(snap, p.TargetAllocations())

		for _, a := range plan.Actions {
			assert.NotEqual(t, "GONE", a.Ticker)
		}
		var codes []string
		for _, w := range plan.Warnings {
			codes = append(codes, w.Code)
		}
		assert.Contains(t, codes, model.WarningUnpriced)
	})

	t.Run("sell never exceeds held quantity", func(t *testing.T) {
		p := testutil.NewPortfolio().
			WithPosition("A", 3, 0).
			Build()
		snap := value(t, p, map[string]float64{"A": 100})
		engine := service.NewRebalanceEngine(config.RebalanceConfig{LotSize: 1})

		plan := engine.Plan(snap, p.TargetAllocations())

		require.Len(t, plan.Actions, 1)
		assert.Equal(t, 3.0, plan.Actions[0].Quantity)
	})

	t.Run("sell whose fee exceeds its proceeds is skipped", func(t *testing.T) {
		p := testutil.NewPortfolio().
			WithPosition("A", 1, 0).
			WithPosition("B", 100, 1).
			Build()
		snap := value(t, p, map[string]float64{"A": 5, "B": 10})
		engine := service.NewRebalanceEngine(config.RebalanceConfig{FixedCost: 10, MinimumTradeThreshold: 1, LotSize: 1})

		plan := engine.Plan(snap, p.TargetAllocations())

		assert.Empty(t, plan.Actions)
		assert.Equal(t, 0.0, plan.ProjectedCash)
		assert.Equal(t, 0.0, plan.TotalTransactionCost)
		require.Len(t, plan.Warnings, 1)
		assert.Equal(t, model.WarningUneconomicSell, plan.Warnings[0].Code)
		assert.Equal(t, "A", plan.Warnings[0].Ticker)
	})
}

// TestRebalanceEngine_Apply tests the post-trade simulation and idempotency.
//
// WHY: A plan executed as proposed must leave nothing further to do. If the
// second run still produced trades the user would churn costs forever.
func TestRebalanceEngine_Apply(t *testing.T) {
	prices := map[string]float64{"A": 10, "B": 20}
	p := testutil.NewPortfolio().
		WithPosition("A", 50, 0.4).
		WithPosition("B", 10, 0.4).
		WithCash(300).
		Build()
	// Threshold at least one lot of the most expensive ticker.
	engine := service.NewRebalanceEngine(config.RebalanceConfig{MinimumTradeThreshold: 20, LotSize: 1})

	plan := engine.Plan(value(t, p, prices), p.TargetAllocations())
	require.NotEmpty(t, plan.Actions)

	after, err := engine.Apply(p, plan)
	require.NoError(t, err)

	assert.Equal(t, 50.0, p.Positions[0].Quantity, "input portfolio must not change")
	assert.InDelta(t, plan.ProjectedCash, after.CashBalance, 1e-9)

	second := engine.Plan(value(t, after, prices), after.TargetAllocations())
	assert.Empty(t, second.Actions)

	snap := value(t, after, prices)
	investable := snap.TotalValue - second.CashBuffer
	for _, pos := range snap.Positions {
		delta := investable*after.TargetAllocations()[pos.Ticker] - pos.MarketValue
		assert.LessOrEqual(t, math.Abs(delta), 20.0)
	}
}

// TestRebalanceEngine_ApplyRejectsMismatchedPlan checks that a plan which
// does not fit the portfolio is refused instead of clamped.
func TestRebalanceEngine_ApplyRejectsMismatchedPlan(t *testing.T) {
	p := testutil.NewPortfolio().WithPosition("A", 2, 1).WithCash(50).Build()
	engine := service.NewRebalanceEngine(config.RebalanceConfig{LotSize: 1})

	tests := []struct {
		name    string
		action  model.RebalanceAction
		wantErr error
	}{
		{
			name:    "buy costing more than the cash",
			action:  model.RebalanceAction{Ticker: "A", Direction: model.Buy, Quantity: 1, EstimatedCost: 60},
			wantErr: apperrors.ErrInsufficientCash,
		},
		{
			name:    "sell with fees above proceeds",
			action:  model.RebalanceAction{Ticker: "A", Direction: model.Sell, Quantity: 1, EstimatedCost: -55},
			wantErr: apperrors.ErrInsufficientCash,
		},
		{
			name:    "unknown ticker",
			action:  model.RebalanceAction{Ticker: "Z", Direction: model.Buy, Quantity: 1, EstimatedCost: 1},
			wantErr: apperrors.ErrNotFound,
		},
		{
			name:   "sell more than held",
			action: model.RebalanceAction{Ticker: "A", Direction: model.Sell, Quantity: 3, EstimatedCost: 30},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := engine.Apply(p, model.RebalancePlan{Actions: []model.RebalanceAction{tt.action}})

			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
			assert.Equal(t, 2.0, p.Positions[0].Quantity)
			assert.Equal(t, 50.0, p.CashBalance)
		})
	}
}
