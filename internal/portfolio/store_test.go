package portfolio_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ndewijer/portfolio-tracker/internal/apperrors"
	"github.com/ndewijer/portfolio-tracker/internal/model"
	"github.com/ndewijer/portfolio-tracker/internal/portfolio"
)

func ptr(v float64) *float64 { return &v }

func record(row int, ticker string, qty, target float64, cash *float64) model.PositionRecord {
	return model.PositionRecord{
		Row:         row,
		Position:    model.Position{Ticker: ticker, Quantity: qty, TargetAllocation: target},
		CashBalance: cash,
	}
}

// TestStore_Load tests replacing the whole position set.
//
// WHY: Load is the entry point for every portfolio file. It must reject bad
// rows without leaving a half-loaded portfolio behind, and must treat the
// repeated CashBalance column as one portfolio-level value.
func TestStore_Load(t *testing.T) {
	t.Run("loads positions in order with first-row cash", func(t *testing.T) {
		s := portfolio.NewStore()

		err := s.Load([]model.PositionRecord{
			record(1, "aapl", 12, 0.5, ptr(100)),
			record(2, "MSFT", 18, 0.5, ptr(100)),
		})
		require.NoError(t, err)

		snap := s.Snapshot()
		assert.Equal(t, []string{"AAPL", "MSFT"}, snap.Tickers())
		assert.Equal(t, 100.0, snap.CashBalance)
	})

	t.Run("cash is never summed across rows", func(t *testing.T) {
		s := portfolio.NewStore()

		require.NoError(t, s.Load([]model.PositionRecord{
			record(1, "A", 1, 0.3, ptr(250)),
			record(2, "B", 1, 0.3, ptr(250)),
			record(3, "C", 1, 0.3, ptr(250)),
		}))
		assert.Equal(t, 250.0, s.CashBalance())
	})

	t.Run("blank cash on later rows is accepted", func(t *testing.T) {
		s := portfolio.NewStore()

		require.NoError(t, s.Load([]model.PositionRecord{
			record(1, "A", 1, 0.5, ptr(40)),
			record(2, "B", 1, 0.5, nil),
		}))
		assert.Equal(t, 40.0, s.CashBalance())
	})

	t.Run("conflicting cash names the row", func(t *testing.T) {
		s := portfolio.NewStore()

		err := s.Load([]model.PositionRecord{
			record(1, "A", 1, 0.5, ptr(40)),
			record(2, "B", 1, 0.5, ptr(41)),
		})

		var verr *apperrors.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, 2, verr.Row)
		assert.Equal(t, "CashBalance", verr.Field)
	})

	t.Run("rejects invalid rows", func(t *testing.T) {
		tests := []struct {
			name  string
			rec   model.PositionRecord
			field string
		}{
			{name: "empty ticker", rec: record(1, "  ", 1, 0.1, nil), field: "Ticker"},
			{name: "negative quantity", rec: record(1, "X", -1, 0.1, nil), field: "Quantity"},
			{name: "allocation above one", rec: record(1, "X", 1, 1.2, nil), field: "TargetAllocation"},
			{name: "negative cash", rec: record(1, "X", 1, 0.1, ptr(-5)), field: "CashBalance"},
			{
				name:  "negative dividends",
				rec:   model.PositionRecord{Row: 1, Position: model.Position{Ticker: "X", Dividends: -1}},
				field: "Dividends",
			},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				err := portfolio.NewStore().Load([]model.PositionRecord{tt.rec})

				var verr *apperrors.ValidationError
				require.ErrorAs(t, err, &verr)
				assert.Equal(t, tt.field, verr.Field)
				assert.ErrorIs(t, err, apperrors.ErrValidation)
			})
		}
	})

	t.Run("duplicate ticker is a validation error", func(t *testing.T) {
		err := portfolio.NewStore().Load([]model.PositionRecord{
			record(1, "AAPL", 1, 0.5, nil),
			record(2, "aapl ", 1, 0.5, nil),
		})

		var verr *apperrors.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, 2, verr.Row)
		assert.Equal(t, "Ticker", verr.Field)
	})

	t.Run("failed load leaves the store unchanged", func(t *testing.T) {
		s := portfolio.NewStore()
		require.NoError(t, s.Load([]model.PositionRecord{record(1, "KEEP", 3, 1, ptr(10))}))

		err := s.Load([]model.PositionRecord{
			record(1, "NEW", 1, 0.5, ptr(1)),
			record(2, "BAD", -1, 0.5, nil),
		})
		require.Error(t, err)

		assert.Equal(t, []string{"KEEP"}, s.Tickers())
		assert.Equal(t, 10.0, s.CashBalance())
	})

	t.Run("empty load clears the portfolio", func(t *testing.T) {
		s := portfolio.NewStore()
		require.NoError(t, s.Load([]model.PositionRecord{record(1, "A", 1, 1, ptr(10))}))

		require.NoError(t, s.Load(nil))
		assert.Equal(t, 0, s.Len())
		assert.Equal(t, 0.0, s.CashBalance())
	})
}

func TestStore_AddPosition(t *testing.T) {
	s := portfolio.NewStore()
	require.NoError(t, s.AddPosition(model.Position{Ticker: "vt", Quantity: 5, TargetAllocation: 0.4}))

	p, err := s.Position("VT")
	require.NoError(t, err)
	assert.Equal(t, 5.0, p.Quantity)

	err = s.AddPosition(model.Position{Ticker: "VT"})
	var dup *apperrors.DuplicateTickerError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, "VT", dup.Ticker)
	assert.ErrorIs(t, err, apperrors.ErrDuplicateTicker)

	err = s.AddPosition(model.Position{Ticker: "BND", TargetAllocation: -0.1})
	assert.ErrorIs(t, err, apperrors.ErrValidation)
	assert.Equal(t, 1, s.Len())
}

func TestStore_RemovePosition(t *testing.T) {
	s := portfolio.NewStore()
	for _, ticker := range []string{"A", "B", "C"} {
		require.NoError(t, s.AddPosition(model.Position{Ticker: ticker}))
	}

	require.NoError(t, s.RemovePosition("b"))
	assert.Equal(t, []string{"A", "C"}, s.Tickers())

	_, err := s.Position("C")
	require.NoError(t, err, "index must follow the shifted slice")

	err = s.RemovePosition("B")
	var nf *apperrors.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "B", nf.Ticker)
}

func TestStore_UpdatePosition(t *testing.T) {
	newStore := func(t *testing.T) *portfolio.Store {
		t.Helper()
		s := portfolio.NewStore()
		require.NoError(t, s.AddPosition(model.Position{Ticker: "AAPL", Quantity: 10, Dividends: 3, TargetAllocation: 0.5}))
		return s
	}

	t.Run("partial update keeps other fields", func(t *testing.T) {
		s := newStore(t)

		p, err := s.UpdatePosition("AAPL", model.PositionUpdate{Quantity: ptr(12)})
		require.NoError(t, err)
		assert.Equal(t, 12.0, p.Quantity)
		assert.Equal(t, 3.0, p.Dividends)
		assert.Equal(t, 0.5, p.TargetAllocation)
	})

	t.Run("out of range update is rejected whole", func(t *testing.T) {
		s := newStore(t)

		_, err := s.UpdatePosition("AAPL", model.PositionUpdate{Quantity: ptr(20), TargetAllocation: ptr(1.5)})
		var verr *apperrors.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "TargetAllocation", verr.Field)

		p, _ := s.Position("AAPL")
		assert.Equal(t, 10.0, p.Quantity)
	})

	t.Run("negative quantity", func(t *testing.T) {
		_, err := newStore(t).UpdatePosition("AAPL", model.PositionUpdate{Quantity: ptr(-1)})
		assert.ErrorIs(t, err, apperrors.ErrValidation)
	})

	t.Run("unknown ticker", func(t *testing.T) {
		_, err := newStore(t).UpdatePosition("MSFT", model.PositionUpdate{Quantity: ptr(1)})
		assert.ErrorIs(t, err, apperrors.ErrNotFound)
	})

	t.Run("allocation only", func(t *testing.T) {
		s := newStore(t)
		_, err := s.UpdatePosition("aapl", model.PositionUpdate{TargetAllocation: ptr(0.25)})
		require.NoError(t, err)
		assert.Equal(t, 0.25, s.TargetAllocations()["AAPL"])
	})
}

func TestStore_Cash(t *testing.T) {
	s := portfolio.NewStore()

	require.NoError(t, s.SetCashBalance(500))
	assert.Equal(t, 500.0, s.CashBalance())

	err := s.SetCashBalance(-1)
	assert.ErrorIs(t, err, apperrors.ErrValidation)
	assert.Equal(t, 500.0, s.CashBalance())

	require.NoError(t, s.SetCashBalance(0))
	assert.Equal(t, 0.0, s.CashBalance())
}

func TestStore_SnapshotIsACopy(t *testing.T) {
	s := portfolio.NewStore()
	require.NoError(t, s.AddPosition(model.Position{Ticker: "A", Quantity: 1}))

	snap := s.Snapshot()
	snap.Positions[0].Quantity = 99
	snap.CashBalance = 1000

	p, _ := s.Position("A")
	assert.Equal(t, 1.0, p.Quantity)
	assert.Equal(t, 0.0, s.CashBalance())
}

func TestStore_Replace(t *testing.T) {
	s := portfolio.NewStore()

	require.NoError(t, s.Replace(model.Portfolio{
		Positions:   []model.Position{{Ticker: "A", Quantity: 2, TargetAllocation: 1}},
		CashBalance: 7,
	}))
	assert.Equal(t, 7.0, s.CashBalance())

	require.NoError(t, s.Replace(model.Portfolio{CashBalance: 3}))
	assert.Equal(t, 0, s.Len())
	assert.Equal(t, 3.0, s.CashBalance())

	assert.ErrorIs(t, s.Replace(model.Portfolio{CashBalance: -3}), apperrors.ErrValidation)
}

// TestStore_ReplaceIf tests the versioned replace used when committing a
// result computed from an earlier snapshot.
//
// WHY: Prices are fetched between the snapshot and the write. An edit made
// in that gap must not be overwritten by a portfolio derived from stale data.
func TestStore_ReplaceIf(t *testing.T) {
	newStore := func(t *testing.T) *portfolio.Store {
		t.Helper()
		s := portfolio.NewStore()
		require.NoError(t, s.AddPosition(model.Position{Ticker: "AAPL", Quantity: 10, TargetAllocation: 0.5}))
		return s
	}
	next := model.Portfolio{
		Positions:   []model.Position{{Ticker: "AAPL", Quantity: 20, TargetAllocation: 1}},
		CashBalance: 5,
	}

	t.Run("replaces when nothing changed", func(t *testing.T) {
		s := newStore(t)
		_, version := s.VersionedSnapshot()

		require.NoError(t, s.ReplaceIf(version, next))
		assert.Equal(t, next, s.Snapshot())
	})

	mutations := []struct {
		name   string
		mutate func(s *portfolio.Store) error
	}{
		{"position update", func(s *portfolio.Store) error {
			_, err := s.UpdatePosition("AAPL", model.PositionUpdate{Dividends: ptr(777)})
			return err
		}},
		{"cash change", func(s *portfolio.Store) error { return s.SetCashBalance(42) }},
		{"add", func(s *portfolio.Store) error { return s.AddPosition(model.Position{Ticker: "MSFT", Quantity: 1}) }},
		{"remove", func(s *portfolio.Store) error { return s.RemovePosition("AAPL") }},
		{"load", func(s *portfolio.Store) error { return s.Load(nil) }},
	}
	for _, tt := range mutations {
		t.Run("conflicts after "+tt.name, func(t *testing.T) {
			s := newStore(t)
			_, version := s.VersionedSnapshot()
			require.NoError(t, tt.mutate(s))
			before := s.Snapshot()

			err := s.ReplaceIf(version, next)

			var conflict *apperrors.ConflictError
			assert.ErrorAs(t, err, &conflict)
			assert.ErrorIs(t, err, apperrors.ErrConflict)
			assert.Equal(t, before, s.Snapshot())
		})
	}

	t.Run("failed mutation keeps the version", func(t *testing.T) {
		s := newStore(t)
		_, version := s.VersionedSnapshot()
		require.Error(t, s.SetCashBalance(-1))

		assert.NoError(t, s.ReplaceIf(version, next))
	})

	t.Run("invalid portfolio is rejected before the version check", func(t *testing.T) {
		s := newStore(t)
		_, version := s.VersionedSnapshot()

		err := s.ReplaceIf(version, model.Portfolio{CashBalance: -5})
		assert.ErrorIs(t, err, apperrors.ErrValidation)
		assert.Equal(t, 10.0, s.Snapshot().Positions[0].Quantity)
	})
}
