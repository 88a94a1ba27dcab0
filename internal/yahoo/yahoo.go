// Package yahoo is a small client for the Yahoo Finance chart and search
// endpoints. It performs no retries; callers decide what is worth retrying
// using IsTransient.
package yahoo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const (
	DefaultChartURL  = "https://query1.finance.yahoo.com/v8/finance/chart"
	DefaultSearchURL = "https://query2.finance.yahoo.com/v1/finance/search"
	DefaultTimeout   = 10 * time.Second
	DefaultRateLimit = 5 // requests per second
)

var (
	// ErrNoPriceData is returned by ParseChart when a result has no usable
	// closes, e.g. a range during which the market was closed.
	ErrNoPriceData = errors.New("no price data returned")

	// ErrSymbolNotFound is returned when Yahoo reports the symbol as unknown
	// or delisted.
	ErrSymbolNotFound = errors.New("symbol not found")
)

// StatusError is returned for non-200 responses.
type StatusError struct {
	StatusCode int
	Symbol     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("yahoo: status %d for %s", e.StatusCode, e.Symbol)
}

// Temporary reports whether the status is worth retrying: 429 or any 5xx.
func (e *StatusError) Temporary() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// IsTransient reports whether err is a network failure or a retryable HTTP
// status. Context cancellation is never transient.
func IsTransient(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Temporary()
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return errors.Is(err, io.ErrUnexpectedEOF)
}

// FinanceClient fetches chart and search data from Yahoo Finance.
type FinanceClient struct {
	chartURL   string
	searchURL  string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     zerolog.Logger
}

// ClientOption configures the client.
type ClientOption func(*FinanceClient)

// WithBaseURLs points the client at alternative chart and search endpoints.
func WithBaseURLs(chartURL, searchURL string) ClientOption {
	return func(c *FinanceClient) {
		c.chartURL = strings.TrimRight(chartURL, "/")
		c.searchURL = searchURL
	}
}

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) ClientOption {
	return func(c *FinanceClient) {
		c.logger = logger
	}
}

// WithRateLimit sets the request rate; zero or less disables limiting.
func WithRateLimit(requestsPerSecond int) ClientOption {
	return func(c *FinanceClient) {
		if requestsPerSecond <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 0)
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
	}
}

// WithTimeout sets the per-request HTTP timeout.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *FinanceClient) {
		c.httpClient.Timeout = timeout
	}
}

// NewFinanceClient creates a Yahoo Finance client with default endpoints,
// a 10s timeout and a 5 req/s rate limit.
func NewFinanceClient(opts ...ClientOption) *FinanceClient {
	c := &FinanceClient{
		chartURL:   DefaultChartURL,
		searchURL:  DefaultSearchURL,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		limiter:    rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
		logger:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ParseChart converts a raw chart response into a PriceChart.
//
// Days whose close is null are skipped. A result without timestamps or
// without any close returns ErrNoPriceData together with the metadata, so
// callers can tell "closed market" apart from a failed request.
func ParseChart(yahooResult Response) (PriceChart, error) {
	if len(yahooResult.Chart.Result) == 0 {
		return PriceChart{}, ErrNoPriceData
	}
	result := yahooResult.Chart.Result[0]

	chart := PriceChart{
		Symbol:           result.Meta.Symbol,
		Currency:         result.Meta.Currency,
		ExchangeName:     result.Meta.ExchangeName,
		FullExchangeName: result.Meta.FullExchangeName,
		LongName:         result.Meta.LongName,
		Shortname:        result.Meta.Shortname,
		Indicators:       []Indicators{},
	}

	if len(result.Timestamp) == 0 || len(result.Indicators.Quote) == 0 {
		return chart, ErrNoPriceData
	}
	quote := result.Indicators.Quote[0]
	if len(quote.Close) != len(result.Timestamp) {
		return chart, fmt.Errorf("mismatched data lengths: %d timestamps, %d closes", len(result.Timestamp), len(quote.Close))
	}

	for i, ts := range result.Timestamp {
		if quote.Close[i] == nil {
			continue
		}
		chart.Indicators = append(chart.Indicators, Indicators{
			Date:       time.Unix(ts, 0).UTC(),
			PriceOpen:  valueAt(quote.Open, i),
			PriceClose: *quote.Close[i],
			Volume:     volumeAt(quote.Volume, i),
			PriceHigh:  valueAt(quote.High, i),
			PriceLow:   valueAt(quote.Low, i),
		})
	}
	if len(chart.Indicators) == 0 {
		return chart, ErrNoPriceData
	}
	return chart, nil
}

// GetIndicatorForDate returns the day's data matching the calendar day of target.
func (c PriceChart) GetIndicatorForDate(target time.Time) (Indicators, bool) {
	targetDay := target.UTC().Truncate(24 * time.Hour)
	for _, ind := range c.Indicators {
		if ind.Date.UTC().Truncate(24 * time.Hour).Equal(targetDay) {
			return ind, true
		}
	}
	return Indicators{}, false
}

// Latest returns the most recent day's data.
func (c PriceChart) Latest() (Indicators, bool) {
	if len(c.Indicators) == 0 {
		return Indicators{}, false
	}
	return c.Indicators[len(c.Indicators)-1], true
}

// QueryFiveDaySymbol fetches the last five trading days of daily data,
// the cheapest way to get a latest close.
func (c *FinanceClient) QueryFiveDaySymbol(ctx context.Context, symbol string) (Response, error) {
	u := fmt.Sprintf("%s/%s?interval=1d&range=5d", c.chartURL, url.PathEscape(symbol))
	return c.queryChart(ctx, symbol, u)
}

// QuerySymbolByDateRange fetches daily data between startDate and endDate,
// both inclusive.
func (c *FinanceClient) QuerySymbolByDateRange(ctx context.Context, symbol string, startDate, endDate time.Time) (Response, error) {
	u := fmt.Sprintf(
		"%s/%s?interval=1d&period1=%d&period2=%d",
		c.chartURL,
		url.PathEscape(symbol),
		startDate.Unix(),
		endDate.AddDate(0, 0, 1).Unix(),
	)
	return c.queryChart(ctx, symbol, u)
}

// Search looks up symbols matching a free-text query.
func (c *FinanceClient) Search(ctx context.Context, query string, limit int) ([]SearchQuote, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("quotesCount", fmt.Sprint(limit))
	params.Set("newsCount", "0")

	var out SearchResponse
	if err := c.get(ctx, query, c.searchURL+"?"+params.Encode(), &out); err != nil {
		return nil, err
	}
	if out.Quotes == nil {
		out.Quotes = []SearchQuote{}
	}
	return out.Quotes, nil
}

func (c *FinanceClient) queryChart(ctx context.Context, symbol, u string) (Response, error) {
	var response Response
	err := c.get(ctx, symbol, u, &response)

	// Yahoo answers unknown symbols with 404 and a chart error body.
	if response.Chart.Error != nil {
		if strings.EqualFold(response.Chart.Error.Code, "Not Found") {
			return response, fmt.Errorf("%w: %s: %s", ErrSymbolNotFound, symbol, response.Chart.Error.Description)
		}
		if err == nil {
			return response, fmt.Errorf("yahoo error: %s: %s", response.Chart.Error.Code, response.Chart.Error.Description)
		}
	}
	if err != nil {
		var statusErr *StatusError
		if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound {
			return response, fmt.Errorf("%w: %s", ErrSymbolNotFound, symbol)
		}
		return response, err
	}
	if len(response.Chart.Result) == 0 {
		return response, fmt.Errorf("%w: no results returned for %s", ErrSymbolNotFound, symbol)
	}
	return response, nil
}

// get performs a rate-limited GET and decodes the JSON body into out. The
// body is decoded for non-200 responses too, since Yahoo puts its error
// description there.
func (c *FinanceClient) get(ctx context.Context, symbol, u string, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		c.logger.Warn().Err(err).Str("symbol", symbol).Dur("elapsed", elapsed).Msg("yahoo request failed")
		return fmt.Errorf("yahoo request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("yahoo read body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn().Str("symbol", symbol).Int("status", resp.StatusCode).Dur("elapsed", elapsed).Msg("yahoo non-OK response")
		_ = json.Unmarshal(data, out)
		return &StatusError{StatusCode: resp.StatusCode, Symbol: symbol}
	}

	c.logger.Debug().Str("symbol", symbol).Dur("elapsed", elapsed).Msg("yahoo request")
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode yahoo response: %w", err)
	}
	return nil
}

func valueAt(values []*float64, i int) float64 {
	if i < len(values) && values[i] != nil {
		return *values[i]
	}
	return 0
}

func volumeAt(values []*int64, i int) int64 {
	if i < len(values) && values[i] != nil {
		return *values[i]
	}
	return 0
}
