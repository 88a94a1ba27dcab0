package market

import (
	"context"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/ndewijer/portfolio-tracker/internal/model"
)

// DefaultConcurrency bounds parallel fetches when no limit is configured.
const DefaultConcurrency = 4

// LatestPrices is the merged outcome of FetchLatestPrices.
type LatestPrices struct {
	Quotes   map[string]model.Quote
	Failures map[string]error
}

// History is the merged outcome of FetchHistory.
type History struct {
	Series   map[string]model.PriceSeries
	Failures map[string]error
}

// FailureList returns the failures sorted by ticker.
func (l LatestPrices) FailureList() []model.FetchFailure { return failureList(l.Failures) }

// FailureList returns the failures sorted by ticker.
func (h History) FailureList() []model.FetchFailure { return failureList(h.Failures) }

// FetchLatestPrices fetches the latest price of every ticker in parallel.
// One failing ticker never aborts the others; its error is recorded in
// Failures. The only returned error is the context's, when cancelled.
func FetchLatestPrices(ctx context.Context, p Provider, tickers []string, concurrency int) (LatestPrices, error) {
	quotes := make([]model.Quote, len(tickers))
	errs := make([]error, len(tickers))

	g := newGroup(concurrency)
	for i, ticker := range tickers {
		g.Go(func() error {
			quotes[i], errs[i] = p.LatestPrice(ctx, ticker)
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return LatestPrices{}, err
	}

	out := LatestPrices{Quotes: make(map[string]model.Quote), Failures: make(map[string]error)}
	for i, ticker := range tickers {
		if errs[i] != nil {
			out.Failures[ticker] = errs[i]
			continue
		}
		out.Quotes[ticker] = quotes[i]
	}
	return out, nil
}

// FetchHistory fetches the series of every ticker over window in parallel,
// with the same failure semantics as FetchLatestPrices.
func FetchHistory(ctx context.Context, p Provider, tickers []string, window model.Window, concurrency int) (History, error) {
	series := make([]model.PriceSeries, len(tickers))
	errs := make([]error, len(tickers))

	g := newGroup(concurrency)
	for i, ticker := range tickers {
		g.Go(func() error {
			series[i], errs[i] = p.HistoricalSeries(ctx, ticker, window.Start, window.End)
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return History{}, err
	}

	out := History{Series: make(map[string]model.PriceSeries), Failures: make(map[string]error)}
	for i, ticker := range tickers {
		if errs[i] != nil {
			out.Failures[ticker] = errs[i]
			continue
		}
		out.Series[ticker] = series[i]
	}
	return out, nil
}

func newGroup(concurrency int) *errgroup.Group {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	g := new(errgroup.Group)
	g.SetLimit(concurrency)
	return g
}

func failureList(failures map[string]error) []model.FetchFailure {
	list := make([]model.FetchFailure, 0, len(failures))
	for ticker, err := range failures {
		list = append(list, model.FetchFailure{Ticker: ticker, Error: err.Error()})
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Ticker < list[j].Ticker })
	return list
}
