package market_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ndewijer/portfolio-tracker/internal/apperrors"
	"github.com/ndewijer/portfolio-tracker/internal/market"
	"github.com/ndewijer/portfolio-tracker/internal/testutil"
	"github.com/ndewijer/portfolio-tracker/internal/yahoo"
)

func newProvider(client *testutil.MockYahooClient) *market.YahooProvider {
	return market.NewYahooProvider(client, time.Millisecond, zerolog.Nop())
}

var transient = &yahoo.StatusError{StatusCode: 503, Symbol: "AAPL"}

// TestYahooProvider_LatestPrice tests latest price retrieval.
//
// WHY: A failed quote must surface as a typed DataUnavailableError, never
// as a zero price, and transient failures get exactly one retry.
func TestYahooProvider_LatestPrice(t *testing.T) {
	t.Run("returns the most recent close", func(t *testing.T) {
		client := testutil.NewMockYahooClient()
		client.WithSymbolResponse("AAPL", testutil.CreateMockYahooSeries("AAPL",
			[]time.Time{testutil.Day(0), testutil.Day(1)}, []float64{150, 151.5}))

		q, err := newProvider(client).LatestPrice(context.Background(), "AAPL")
		require.NoError(t, err)
		assert.Equal(t, 151.5, q.Price)
		assert.Equal(t, testutil.Day(1), q.Date)
		assert.Equal(t, "USD", q.Currency)
		assert.False(t, q.Stale)
	})

	t.Run("retries a transient failure once", func(t *testing.T) {
		client := testutil.NewMockYahooClient().WithErrors(transient)

		q, err := newProvider(client).LatestPrice(context.Background(), "AAPL")
		require.NoError(t, err)
		assert.Greater(t, q.Price, 0.0)
		assert.Equal(t, 2, client.Count())
	})

	t.Run("gives up after one retry", func(t *testing.T) {
		client := testutil.NewMockYahooClient().WithErrors(transient, transient, transient)

		_, err := newProvider(client).LatestPrice(context.Background(), "AAPL")

		var du *apperrors.DataUnavailableError
		require.ErrorAs(t, err, &du)
		assert.Equal(t, "AAPL", du.Ticker)
		assert.True(t, du.Transient)
		assert.Equal(t, 2, client.Count())
	})

	t.Run("does not retry an unknown symbol", func(t *testing.T) {
		client := testutil.NewMockYahooClient().WithError(yahoo.ErrSymbolNotFound)

		_, err := newProvider(client).LatestPrice(context.Background(), "ZZZZ")

		assert.ErrorIs(t, err, apperrors.ErrDataUnavailable)
		assert.ErrorIs(t, err, yahoo.ErrSymbolNotFound)
		assert.Equal(t, 1, client.Count())
	})

	t.Run("no data is unavailable, not zero", func(t *testing.T) {
		client := testutil.NewMockYahooClient().WithEmptyResponse()

		q, err := newProvider(client).LatestPrice(context.Background(), "AAPL")
		assert.ErrorIs(t, err, apperrors.ErrDataUnavailable)
		assert.Equal(t, 0.0, q.Price)
	})

	t.Run("error payload is unavailable", func(t *testing.T) {
		client := testutil.NewMockYahooClient().WithResponse(
			testutil.CreateMockYahooErrorResponse("Bad Request", "Data doesn't exist"))

		_, err := newProvider(client).LatestPrice(context.Background(), "AAPL")
		assert.ErrorIs(t, err, apperrors.ErrDataUnavailable)
		assert.ErrorIs(t, err, yahoo.ErrNoPriceData)
		assert.Equal(t, 1, client.Count())
	})

	t.Run("zero close is unavailable", func(t *testing.T) {
		client := testutil.NewMockYahooClient().WithResponse(
			testutil.CreateMockYahooResponseForDate(testutil.Day(0), 0))

		_, err := newProvider(client).LatestPrice(context.Background(), "AAPL")
		assert.ErrorIs(t, err, apperrors.ErrDataUnavailable)
	})

	t.Run("cancellation during retry delay", func(t *testing.T) {
		client := testutil.NewMockYahooClient().WithErrors(transient)
		p := market.NewYahooProvider(client, time.Hour, zerolog.Nop())
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := p.LatestPrice(ctx, "AAPL")
		assert.True(t, errors.Is(err, context.Canceled))
		assert.Equal(t, 1, client.Count())
	})
}

func TestYahooProvider_HistoricalSeries(t *testing.T) {
	t.Run("clips to the requested range", func(t *testing.T) {
		dates := []time.Time{testutil.Day(0), testutil.Day(1), testutil.Day(2), testutil.Day(3)}
		client := testutil.NewMockYahooClient().WithResponse(
			testutil.CreateMockYahooSeries("VT", dates, []float64{10, 11, 12, 13}))

		s, err := newProvider(client).HistoricalSeries(context.Background(), "VT", testutil.Day(1), testutil.Day(2))
		require.NoError(t, err)
		assert.Equal(t, "VT", s.Ticker)
		assert.Equal(t, []float64{11, 12}, s.Closes())
	})

	t.Run("closed market is an empty series", func(t *testing.T) {
		client := testutil.NewMockYahooClient().WithEmptyResponse()

		s, err := newProvider(client).HistoricalSeries(context.Background(), "VT", testutil.Day(5), testutil.Day(6))
		require.NoError(t, err)
		assert.Equal(t, 0, s.Len())
	})

	t.Run("total failure", func(t *testing.T) {
		client := testutil.NewMockYahooClient().WithError(errors.New("boom"))

		_, err := newProvider(client).HistoricalSeries(context.Background(), "VT", testutil.Day(0), testutil.Day(1))
		assert.ErrorIs(t, err, apperrors.ErrDataUnavailable)
	})
}

func TestYahooProvider_Search(t *testing.T) {
	client := testutil.NewMockYahooClient()
	client.SearchResults = []yahoo.SearchQuote{
		{Symbol: "AAPL", ShortName: "Apple", LongName: "Apple Inc.", Exchange: "NASDAQ", QuoteType: "EQUITY"},
		{Symbol: "", ShortName: "junk"},
		{Symbol: "APLE", ShortName: "Apple Hospitality"},
	}
	p := newProvider(client)

	matches, err := p.Search(context.Background(), "apple", 10)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "Apple Inc.", matches[0].Name)
	assert.Equal(t, "Apple Hospitality", matches[1].Name)

	_, err = p.Search(context.Background(), "  ", 10)
	assert.ErrorIs(t, err, apperrors.ErrEmptyQuery)
}
