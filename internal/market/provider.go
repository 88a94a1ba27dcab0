// Package market supplies latest prices and historical closes to the
// engines. Every failure reaching a caller is an
// *apperrors.DataUnavailableError naming the ticker; a price is never
// defaulted.
package market

import (
	"context"
	"time"

	"github.com/ndewijer/portfolio-tracker/internal/model"
)

// Provider is the price-history source consumed by the portfolio service.
type Provider interface {
	// LatestPrice returns the most recent close.
	LatestPrice(ctx context.Context, ticker string) (model.Quote, error)

	// HistoricalSeries returns the closes between start and end inclusive.
	// A range with no trading days yields an empty series, not an error.
	HistoricalSeries(ctx context.Context, ticker string, start, end time.Time) (model.PriceSeries, error)
}

// Searcher is implemented by providers that can look up symbols.
type Searcher interface {
	Search(ctx context.Context, query string, limit int) ([]model.SymbolMatch, error)
}
