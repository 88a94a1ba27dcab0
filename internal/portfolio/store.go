// Package portfolio owns the in-memory portfolio: the position set and the
// cash balance. Store is the only type that mutates a model.Portfolio;
// everyone else receives copies.
package portfolio

import (
	"math"
	"strings"
	"sync"

	"github.com/ndewijer/portfolio-tracker/internal/apperrors"
	"github.com/ndewijer/portfolio-tracker/internal/model"
)

// Store holds the current portfolio. Mutations are synchronous and visible
// to the next read; nothing is cached.
type Store struct {
	mu        sync.RWMutex
	positions []model.Position
	index     map[string]int
	cash      float64
	version   uint64
}

// NewStore returns an empty store with zero cash.
func NewStore() *Store {
	return &Store{index: make(map[string]int)}
}

// NormalizeTicker trims surrounding space and upper-cases a ticker.
func NormalizeTicker(ticker string) string {
	return strings.ToUpper(strings.TrimSpace(ticker))
}

// Load replaces the whole position set from validated records.
//
// The cash balance is taken from the first record that carries one; every
// later non-blank value must equal it. Values are never summed. On any
// failure the store is left unchanged.
func (s *Store) Load(records []model.PositionRecord) error {
	positions, index, cash, err := build(records)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.swap(positions, index, cash)
	return nil
}

// build validates records into a position set and cash balance without
// touching the store.
func build(records []model.PositionRecord) ([]model.Position, map[string]int, float64, error) {
	positions := make([]model.Position, 0, len(records))
	index := make(map[string]int, len(records))
	var cash *float64

	for i, rec := range records {
		row := rec.Row
		if row == 0 {
			row = i + 1
		}

		p := rec.Position
		p.Ticker = NormalizeTicker(p.Ticker)
		if err := validatePosition(p, row); err != nil {
			return nil, nil, 0, err
		}
		if _, dup := index[p.Ticker]; dup {
			return nil, nil, 0, &apperrors.ValidationError{Row: row, Field: "Ticker", Message: "duplicate ticker " + p.Ticker}
		}

		if rec.CashBalance != nil {
			v := *rec.CashBalance
			if !validAmount(v) {
				return nil, nil, 0, &apperrors.ValidationError{Row: row, Field: "CashBalance", Message: "must be a non-negative number"}
			}
			if cash == nil {
				cash = &v
			} else if *cash != v {
				return nil, nil, 0, &apperrors.ValidationError{
					Row:     row,
					Field:   "CashBalance",
					Message: "conflicts with the portfolio cash balance given on an earlier row",
				}
			}
		}

		index[p.Ticker] = len(positions)
		positions = append(positions, p)
	}

	if cash == nil {
		return positions, index, 0, nil
	}
	return positions, index, *cash, nil
}

// swap must be called with the write lock held.
func (s *Store) swap(positions []model.Position, index map[string]int, cash float64) {
	s.positions = positions
	s.index = index
	s.cash = cash
	s.version++
}

// Replace swaps in a whole portfolio, validating it the same way Load does.
func (s *Store) Replace(p model.Portfolio) error {
	positions, index, err := buildPortfolio(p)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.swap(positions, index, p.CashBalance)
	return nil
}

// ReplaceIf swaps in p only if the store is still at version, as returned
// by VersionedSnapshot. Any mutation in between fails with a ConflictError
// and leaves the store unchanged.
func (s *Store) ReplaceIf(version uint64, p model.Portfolio) error {
	positions, index, err := buildPortfolio(p)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.version != version {
		return &apperrors.ConflictError{Message: "portfolio changed while the operation was running"}
	}
	s.swap(positions, index, p.CashBalance)
	return nil
}

func buildPortfolio(p model.Portfolio) ([]model.Position, map[string]int, error) {
	if !validAmount(p.CashBalance) {
		return nil, nil, apperrors.NewValidationError("cashBalance", "must be a non-negative number, got %v", p.CashBalance)
	}
	records := make([]model.PositionRecord, len(p.Positions))
	for i, pos := range p.Positions {
		records[i] = model.PositionRecord{Row: i + 1, Position: pos}
	}
	positions, index, _, err := build(records)
	return positions, index, err
}

// AddPosition appends a new position.
func (s *Store) AddPosition(p model.Position) error {
	p.Ticker = NormalizeTicker(p.Ticker)
	if err := validatePosition(p, 0); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.index[p.Ticker]; exists {
		return &apperrors.DuplicateTickerError{Ticker: p.Ticker}
	}
	s.index[p.Ticker] = len(s.positions)
	s.positions = append(s.positions, p)
	s.version++
	return nil
}

// RemovePosition deletes a position, keeping the order of the rest.
func (s *Store) RemovePosition(ticker string) error {
	ticker = NormalizeTicker(ticker)

	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.index[ticker]
	if !ok {
		return &apperrors.NotFoundError{Ticker: ticker}
	}
	s.positions = append(s.positions[:i], s.positions[i+1:]...)
	s.reindex()
	s.version++
	return nil
}

// UpdatePosition applies the non-nil fields of update. The whole update is
// rejected if any field is out of range.
func (s *Store) UpdatePosition(ticker string, update model.PositionUpdate) (model.Position, error) {
	ticker = NormalizeTicker(ticker)

	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.index[ticker]
	if !ok {
		return model.Position{}, &apperrors.NotFoundError{Ticker: ticker}
	}

	p := s.positions[i]
	if update.Quantity != nil {
		p.Quantity = *update.Quantity
	}
	if update.Dividends != nil {
		p.Dividends = *update.Dividends
	}
	if update.TransactionCost != nil {
		p.TransactionCost = *update.TransactionCost
	}
	if update.TargetAllocation != nil {
		p.TargetAllocation = *update.TargetAllocation
	}
	if err := validatePosition(p, 0); err != nil {
		return model.Position{}, err
	}

	s.positions[i] = p
	s.version++
	return p, nil
}

// SetCashBalance sets the portfolio-level cash balance.
func (s *Store) SetCashBalance(amount float64) error {
	if !validAmount(amount) {
		return apperrors.NewValidationError("cashBalance", "must be a non-negative number, got %v", amount)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cash = amount
	s.version++
	return nil
}

// Snapshot returns a deep copy of the portfolio.
func (s *Store) Snapshot() model.Portfolio {
	p, _ := s.VersionedSnapshot()
	return p
}

// VersionedSnapshot returns a deep copy of the portfolio together with the
// store version it was taken at. Every successful mutation bumps the version.
func (s *Store) VersionedSnapshot() (model.Portfolio, uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return model.Portfolio{Positions: s.positions, CashBalance: s.cash}.Clone(), s.version
}

// Position returns a copy of one position.
func (s *Store) Position(ticker string) (model.Position, error) {
	ticker = NormalizeTicker(ticker)
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.index[ticker]
	if !ok {
		return model.Position{}, &apperrors.NotFoundError{Ticker: ticker}
	}
	return s.positions[i], nil
}

// Tickers returns the held tickers in portfolio order.
func (s *Store) Tickers() []string {
	return s.Snapshot().Tickers()
}

// TargetAllocations returns ticker -> target allocation.
func (s *Store) TargetAllocations() map[string]float64 {
	return s.Snapshot().TargetAllocations()
}

// CashBalance returns the current cash balance.
func (s *Store) CashBalance() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cash
}

// Len returns the number of positions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.positions)
}

// reindex must be called with the write lock held.
func (s *Store) reindex() {
	s.index = make(map[string]int, len(s.positions))
	for i, p := range s.positions {
		s.index[p.Ticker] = i
	}
}

func validatePosition(p model.Position, row int) error {
	fail := func(field, msg string) error {
		return &apperrors.ValidationError{Row: row, Field: field, Message: msg}
	}

	if p.Ticker == "" {
		return fail("Ticker", "is required")
	}
	if !validAmount(p.Quantity) {
		return fail("Quantity", "must be a non-negative number")
	}
	if !validAmount(p.Dividends) {
		return fail("Dividends", "must be a non-negative number")
	}
	if !validAmount(p.TransactionCost) {
		return fail("TransactionCost", "must be a non-negative number")
	}
	if math.IsNaN(p.TargetAllocation) || p.TargetAllocation < 0 || p.TargetAllocation > 1 {
		return fail("TargetAllocation", "must be between 0 and 1")
	}
	return nil
}

func validAmount(v float64) bool {
	return v >= 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}
