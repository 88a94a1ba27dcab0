package testutil

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/ndewijer/portfolio-tracker/internal/apperrors"
	"github.com/ndewijer/portfolio-tracker/internal/model"
)

// StubProvider is an in-memory market.Provider. Tickers without a quote or
// series fail with DataUnavailableError, like an unknown symbol would.
type StubProvider struct {
	mu      sync.Mutex
	Quotes  map[string]model.Quote
	Series  map[string]model.PriceSeries
	Errors  map[string]error
	Matches []model.SymbolMatch
	Calls   map[string]int
	// Block, when set, makes every call wait until the context is done.
	Block bool
}

// NewStubProvider creates an empty stub.
func NewStubProvider() *StubProvider {
	return &StubProvider{
		Quotes: make(map[string]model.Quote),
		Series: make(map[string]model.PriceSeries),
		Errors: make(map[string]error),
		Calls:  make(map[string]int),
	}
}

// WithPrice sets the latest price of ticker.
func (s *StubProvider) WithPrice(ticker string, price float64) *StubProvider {
	s.Quotes[ticker] = model.Quote{Ticker: ticker, Price: price, Date: Day(0), Currency: "USD"}
	return s
}

// WithSeries sets the history of ticker from closes on consecutive days
// starting at Day(0).
func (s *StubProvider) WithSeries(ticker string, closes ...float64) *StubProvider {
	s.Series[ticker] = Series(ticker, closes...)
	return s
}

// WithError makes every call for ticker fail with err.
func (s *StubProvider) WithError(ticker string, err error) *StubProvider {
	s.Errors[ticker] = err
	return s
}

// LatestPrice implements market.Provider.
func (s *StubProvider) LatestPrice(ctx context.Context, ticker string) (model.Quote, error) {
	if err := s.enter(ctx, ticker); err != nil {
		return model.Quote{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if q, ok := s.Quotes[ticker]; ok {
		return q, nil
	}
	return model.Quote{}, &apperrors.DataUnavailableError{Ticker: ticker, Err: errors.New("no quote")}
}

// HistoricalSeries implements market.Provider. Points outside the range are dropped.
func (s *StubProvider) HistoricalSeries(ctx context.Context, ticker string, start, end time.Time) (model.PriceSeries, error) {
	if err := s.enter(ctx, ticker); err != nil {
		return model.PriceSeries{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	series, ok := s.Series[ticker]
	if !ok {
		return model.PriceSeries{}, &apperrors.DataUnavailableError{Ticker: ticker, Err: errors.New("no history")}
	}
	w := model.Window{Start: start, End: end}
	out := model.PriceSeries{Ticker: ticker, Points: []model.PricePoint{}, Stale: series.Stale}
	for _, p := range series.Points {
		if w.Contains(p.Date) {
			out.Points = append(out.Points, p)
		}
	}
	return out, nil
}

// Search implements market.Searcher with a case-insensitive prefix match.
func (s *StubProvider) Search(ctx context.Context, query string, limit int) ([]model.SymbolMatch, error) {
	if strings.TrimSpace(query) == "" {
		return nil, apperrors.ErrEmptyQuery
	}
	if err := s.enter(ctx, query); err != nil {
		return nil, err
	}
	out := []model.SymbolMatch{}
	for _, m := range s.Matches {
		if strings.HasPrefix(strings.ToUpper(m.Ticker), strings.ToUpper(query)) && len(out) < limit {
			out = append(out, m)
		}
	}
	return out, nil
}

// CallCount returns how often ticker was requested.
func (s *StubProvider) CallCount(ticker string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Calls[ticker]
}

func (s *StubProvider) enter(ctx context.Context, ticker string) error {
	s.mu.Lock()
	s.Calls[ticker]++
	block := s.Block
	err := s.Errors[ticker]
	s.mu.Unlock()

	if block {
		<-ctx.Done()
		return &apperrors.DataUnavailableError{Ticker: ticker, Err: ctx.Err()}
	}
	if err := ctx.Err(); err != nil {
		return &apperrors.DataUnavailableError{Ticker: ticker, Err: err}
	}
	return err
}

// Day returns a fixed reference date plus n calendar days.
func Day(n int) time.Time {
	return time.Date(2024, time.January, 2, 0, 0, 0, 0, time.UTC).AddDate(0, 0, n)
}

// Series builds a price series with closes on consecutive days from Day(0).
func Series(ticker string, closes ...float64) model.PriceSeries {
	points := make([]model.PricePoint, len(closes))
	for i, c := range closes {
		points[i] = model.PricePoint{Date: Day(i), Close: c}
	}
	return model.PriceSeries{Ticker: ticker, Points: points}
}

// Window returns the window covering Day(0) through Day(days-1).
func Window(days int) model.Window {
	return model.Window{Start: Day(0), End: Day(days - 1)}
}
