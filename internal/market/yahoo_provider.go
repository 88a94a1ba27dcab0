package market

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ndewijer/portfolio-tracker/internal/apperrors"
	"github.com/ndewijer/portfolio-tracker/internal/model"
	"github.com/ndewijer/portfolio-tracker/internal/yahoo"
)

// DefaultRetryDelay is the pause before the single retry of a transient failure.
const DefaultRetryDelay = 500 * time.Millisecond

// ChartClient is the subset of yahoo.FinanceClient the provider uses.
type ChartClient interface {
	QueryFiveDaySymbol(ctx context.Context, symbol string) (yahoo.Response, error)
	QuerySymbolByDateRange(ctx context.Context, symbol string, startDate, endDate time.Time) (yahoo.Response, error)
	Search(ctx context.Context, query string, limit int) ([]yahoo.SearchQuote, error)
}

// YahooProvider adapts a Yahoo chart client to Provider. Transient failures
// (network errors, HTTP 429 and 5xx) are retried exactly once.
type YahooProvider struct {
	client     ChartClient
	retryDelay time.Duration
	logger     zerolog.Logger
}

// NewYahooProvider creates a provider over client.
func NewYahooProvider(client ChartClient, retryDelay time.Duration, logger zerolog.Logger) *YahooProvider {
	return &YahooProvider{
		client:     client,
		retryDelay: retryDelay,
		logger:     logger.With().Str("component", "yahoo_provider").Logger(),
	}
}

// LatestPrice returns the last close of the past five trading days.
func (p *YahooProvider) LatestPrice(ctx context.Context, ticker string) (model.Quote, error) {
	var resp yahoo.Response
	err := p.withRetry(ctx, ticker, func() error {
		var err error
		resp, err = p.client.QueryFiveDaySymbol(ctx, ticker)
		return err
	})
	if err != nil {
		return model.Quote{}, unavailable(ticker, err)
	}

	chart, err := yahoo.ParseChart(resp)
	if err != nil {
		return model.Quote{}, unavailable(ticker, err)
	}
	latest, ok := chart.Latest()
	if !ok || !(latest.PriceClose > 0) {
		return model.Quote{}, unavailable(ticker, fmt.Errorf("non-positive close %v", latest.PriceClose))
	}

	return model.Quote{
		Ticker:   ticker,
		Price:    latest.PriceClose,
		Date:     model.TruncateDay(latest.Date),
		Currency: chart.Currency,
	}, nil
}

// HistoricalSeries returns the daily closes in [start, end].
func (p *YahooProvider) HistoricalSeries(ctx context.Context, ticker string, start, end time.Time) (model.PriceSeries, error) {
	start, end = model.TruncateDay(start), model.TruncateDay(end)

	var resp yahoo.Response
	err := p.withRetry(ctx, ticker, func() error {
		var err error
		resp, err = p.client.QuerySymbolByDateRange(ctx, ticker, start, end)
		return err
	})
	if err != nil {
		return model.PriceSeries{}, unavailable(ticker, err)
	}

	series := model.PriceSeries{Ticker: ticker, Points: []model.PricePoint{}}
	chart, err := yahoo.ParseChart(resp)
	if errors.Is(err, yahoo.ErrNoPriceData) {
		return series, nil
	}
	if err != nil {
		return model.PriceSeries{}, unavailable(ticker, err)
	}

	for _, ind := range chart.Indicators {
		day := model.TruncateDay(ind.Date)
		if day.Before(start) || day.After(end) || !(ind.PriceClose > 0) {
			continue
		}
		series.Points = append(series.Points, model.PricePoint{Date: day, Close: ind.PriceClose})
	}
	return series, nil
}

// Search returns symbols matching query.
func (p *YahooProvider) Search(ctx context.Context, query string, limit int) ([]model.SymbolMatch, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, apperrors.ErrEmptyQuery
	}

	var quotes []yahoo.SearchQuote
	err := p.withRetry(ctx, query, func() error {
		var err error
		quotes, err = p.client.Search(ctx, query, limit)
		return err
	})
	if err != nil {
		return nil, unavailable(query, err)
	}

	matches := make([]model.SymbolMatch, 0, len(quotes))
	for _, q := range quotes {
		if q.Symbol == "" {
			continue
		}
		name := q.LongName
		if name == "" {
			name = q.ShortName
		}
		matches = append(matches, model.SymbolMatch{
			Ticker:   q.Symbol,
			Name:     name,
			Exchange: q.Exchange,
			Type:     q.QuoteType,
		})
	}
	return matches, nil
}

// withRetry runs fn and, if it failed transiently, once more after the retry
// delay. Cancellation during the delay returns the context error.
func (p *YahooProvider) withRetry(ctx context.Context, ticker string, fn func() error) error {
	err := fn()
	if err == nil || !yahoo.IsTransient(err) {
		return err
	}

	p.logger.Warn().Err(err).Str("ticker", ticker).Msg("transient market data failure, retrying once")

	timer := time.NewTimer(p.retryDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
	}
	return fn()
}

func unavailable(ticker string, err error) error {
	var du *apperrors.DataUnavailableError
	if errors.As(err, &du) {
		return err
	}
	return &apperrors.DataUnavailableError{Ticker: ticker, Err: err, Transient: yahoo.IsTransient(err)}
}
