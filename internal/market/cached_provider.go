package market

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/ndewijer/portfolio-tracker/internal/apperrors"
	"github.com/ndewijer/portfolio-tracker/internal/model"
)

// PriceCache is the storage behind CachedProvider; repository.PriceRepository
// implements it.
type PriceCache interface {
	SavePrices(ctx context.Context, ticker string, points []model.PricePoint) error
	GetPrices(ctx context.Context, ticker string, startDate, endDate time.Time) ([]model.PricePoint, error)
	GetLatestPrice(ctx context.Context, ticker string) (model.PricePoint, error)
	SaveSymbol(ctx context.Context, ticker, name, exchange, currency string) error
	GetSymbolCurrency(ctx context.Context, ticker string) (string, error)
}

// CachedProvider writes every successful fetch through to a PriceCache.
// When the upstream fetch fails and allowStale is set, cached data is
// returned instead, always with Stale = true. Without allowStale the
// upstream error is returned unchanged.
type CachedProvider struct {
	upstream   Provider
	cache      PriceCache
	allowStale bool
	logger     zerolog.Logger
}

// NewCachedProvider decorates upstream with cache.
func NewCachedProvider(upstream Provider, cache PriceCache, allowStale bool, logger zerolog.Logger) *CachedProvider {
	return &CachedProvider{
		upstream:   upstream,
		cache:      cache,
		allowStale: allowStale,
		logger:     logger.With().Str("component", "price_cache").Logger(),
	}
}

// LatestPrice fetches upstream, falling back to the newest cached close.
func (p *CachedProvider) LatestPrice(ctx context.Context, ticker string) (model.Quote, error) {
	quote, err := p.upstream.LatestPrice(ctx, ticker)
	if err == nil {
		p.store(ctx, ticker, []model.PricePoint{{Date: quote.Date, Close: quote.Price}})
		if quote.Currency != "" {
			if err := p.cache.SaveSymbol(ctx, ticker, "", "", quote.Currency); err != nil {
				p.logger.Warn().Err(err).Str("ticker", ticker).Msg("failed to cache symbol")
			}
		}
		return quote, nil
	}
	if !p.canFallBack(ctx, err) {
		return model.Quote{}, err
	}

	cached, cacheErr := p.cache.GetLatestPrice(ctx, ticker)
	if cacheErr != nil {
		return model.Quote{}, err
	}
	currency, _ := p.cache.GetSymbolCurrency(ctx, ticker)

	p.logger.Warn().Err(err).Str("ticker", ticker).Time("date", cached.Date).Msg("serving stale cached price")
	return model.Quote{
		Ticker:   ticker,
		Price:    cached.Close,
		Date:     cached.Date,
		Currency: currency,
		Stale:    true,
	}, nil
}

// HistoricalSeries fetches upstream, falling back to cached closes in range.
func (p *CachedProvider) HistoricalSeries(ctx context.Context, ticker string, start, end time.Time) (model.PriceSeries, error) {
	series, err := p.upstream.HistoricalSeries(ctx, ticker, start, end)
	if err == nil {
		p.store(ctx, ticker, series.Points)
		return series, nil
	}
	if !p.canFallBack(ctx, err) {
		return model.PriceSeries{}, err
	}

	points, cacheErr := p.cache.GetPrices(ctx, ticker, start, end)
	if cacheErr != nil || len(points) == 0 {
		return model.PriceSeries{}, err
	}

	p.logger.Warn().Err(err).Str("ticker", ticker).Int("points", len(points)).Msg("serving stale cached history")
	return model.PriceSeries{Ticker: ticker, Points: points, Stale: true}, nil
}

// Search delegates to the upstream provider when it supports search.
func (p *CachedProvider) Search(ctx context.Context, query string, limit int) ([]model.SymbolMatch, error) {
	s, ok := p.upstream.(Searcher)
	if !ok {
		return nil, &apperrors.DataUnavailableError{Ticker: query, Err: errors.New("search not supported")}
	}
	matches, err := s.Search(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	for _, m := range matches {
		if err := p.cache.SaveSymbol(ctx, m.Ticker, m.Name, m.Exchange, ""); err != nil {
			p.logger.Warn().Err(err).Str("ticker", m.Ticker).Msg("failed to cache symbol")
		}
	}
	return matches, nil
}

func (p *CachedProvider) canFallBack(ctx context.Context, err error) bool {
	return p.allowStale && ctx.Err() == nil && errors.Is(err, apperrors.ErrDataUnavailable)
}

// store writes through; cache failures are logged and never fail the fetch.
func (p *CachedProvider) store(ctx context.Context, ticker string, points []model.PricePoint) {
	if err := p.cache.SavePrices(ctx, ticker, points); err != nil {
		p.logger.Warn().Err(err).Str("ticker", ticker).Msg("failed to cache prices")
	}
}
