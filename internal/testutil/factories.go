package testutil

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/ndewijer/portfolio-tracker/internal/model"
	"github.com/ndewijer/portfolio-tracker/internal/portfolio"
)

// PortfolioBuilder provides a fluent interface for creating test portfolios.
//
// Example usage:
//
//	// Empty portfolio with no cash
//	p := testutil.NewPortfolio().Build()
//
//	// Two positions and some cash
//	p := testutil.NewPortfolio().
//	    WithPosition("AAPL", 12, 0.5).
//	    WithPosition("MSFT", 18, 0.5).
//	    WithCash(100).
//	    Build()
type PortfolioBuilder struct {
	Positions   []model.Position
	CashBalance float64
}

// NewPortfolio creates an empty PortfolioBuilder.
func NewPortfolio() *PortfolioBuilder {
	return &PortfolioBuilder{Positions: []model.Position{}}
}

// WithPosition adds a position with no dividends or costs.
func (b *PortfolioBuilder) WithPosition(ticker string, quantity, target float64) *PortfolioBuilder {
	b.Positions = append(b.Positions, model.Position{
		Ticker:           ticker,
		Quantity:         quantity,
		TargetAllocation: target,
	})
	return b
}

// WithPositionDetails adds a fully specified position.
func (b *PortfolioBuilder) WithPositionDetails(p model.Position) *PortfolioBuilder {
	b.Positions = append(b.Positions, p)
	return b
}

// WithCash sets the cash balance.
func (b *PortfolioBuilder) WithCash(cash float64) *PortfolioBuilder {
	b.CashBalance = cash
	return b
}

// Build returns the portfolio.
func (b *PortfolioBuilder) Build() model.Portfolio {
	return model.Portfolio{Positions: b.Positions, CashBalance: b.CashBalance}.Clone()
}

// Records returns the portfolio as loader input, cash on the first row.
func (b *PortfolioBuilder) Records() []model.PositionRecord {
	records := make([]model.PositionRecord, len(b.Positions))
	for i, p := range b.Positions {
		records[i] = model.PositionRecord{Row: i + 1, Position: p}
	}
	if len(records) > 0 {
		cash := b.CashBalance
		records[0].CashBalance = &cash
	}
	return records
}

// Store returns a store loaded with the portfolio.
func (b *PortfolioBuilder) Store(t *testing.T) *portfolio.Store {
	t.Helper()

	store := portfolio.NewStore()
	if err := store.Replace(b.Build()); err != nil {
		t.Fatalf("Failed to load test portfolio: %v", err)
	}
	return store
}

// CSV returns the portfolio encoded in the portfolio file format.
func (b *PortfolioBuilder) CSV(t *testing.T) string {
	t.Helper()

	var buf bytes.Buffer
	if err := portfolio.EncodeCSV(&buf, b.Build()); err != nil {
		t.Fatalf("Failed to encode test portfolio: %v", err)
	}
	return buf.String()
}

// WriteFile writes the portfolio to a file in a per-test temporary
// directory and returns its path.
func (b *PortfolioBuilder) WriteFile(t *testing.T) string {
	t.Helper()
	return WriteTempFile(t, "portfolio.csv", b.CSV(t))
}

// WriteTempFile writes content to name in a per-test temporary directory.
func WriteTempFile(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("Failed to write %s: %v", name, err)
	}
	return path
}
