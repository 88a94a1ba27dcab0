package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/ndewijer/portfolio-tracker/internal/yahoo"
)

// MockYahooClient is a mock implementation of market.ChartClient for testing.
// It returns predefined responses instead of making actual API calls.
type MockYahooClient struct {
	mu sync.Mutex
	// MockResponse is returned for symbols without an entry in Responses
	MockResponse yahoo.Response
	// Responses holds per-symbol responses
	Responses map[string]yahoo.Response
	// Errors is a queue of errors returned by successive queries before
	// falling back to MockError
	Errors []error
	// MockError is the error to return from query methods
	MockError error
	// SearchResults is returned from Search
	SearchResults []yahoo.SearchQuote
	// QueryCount tracks how many times a query method was called
	QueryCount int
}

// NewMockYahooClient creates a new mock Yahoo client with default test data.
// The default data includes 5 days of historical prices suitable for testing.
func NewMockYahooClient() *MockYahooClient {
	return &MockYahooClient{
		MockResponse: CreateMockYahooResponse(5),
		Responses:    make(map[string]yahoo.Response),
	}
}

// QueryFiveDaySymbol mocks the 5-day symbol query.
func (m *MockYahooClient) QueryFiveDaySymbol(_ context.Context, symbol string) (yahoo.Response, error) {
	return m.next(symbol)
}

// QuerySymbolByDateRange mocks the date range query.
func (m *MockYahooClient) QuerySymbolByDateRange(_ context.Context, symbol string, _, _ time.Time) (yahoo.Response, error) {
	return m.next(symbol)
}

// Search mocks the symbol search.
func (m *MockYahooClient) Search(_ context.Context, _ string, _ int) ([]yahoo.SearchQuote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.QueryCount++
	if err := m.popError(); err != nil {
		return nil, err
	}
	return m.SearchResults, nil
}

// Count returns QueryCount under the mock's lock.
func (m *MockYahooClient) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.QueryCount
}

func (m *MockYahooClient) next(symbol string) (yahoo.Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.QueryCount++
	if err := m.popError(); err != nil {
		return yahoo.Response{}, err
	}
	if resp, ok := m.Responses[symbol]; ok {
		return resp, nil
	}
	return m.MockResponse, nil
}

func (m *MockYahooClient) popError() error {
	if len(m.Errors) > 0 {
		err := m.Errors[0]
		m.Errors = m.Errors[1:]
		return err
	}
	return m.MockError
}

// WithError configures the mock to return the specified error.
func (m *MockYahooClient) WithError(err error) *MockYahooClient {
	m.MockError = err
	return m
}

// WithErrors queues errors returned by the next calls, in order.
func (m *MockYahooClient) WithErrors(errs ...error) *MockYahooClient {
	m.Errors = append(m.Errors, errs...)
	return m
}

// WithResponse configures the mock to return the specified response.
func (m *MockYahooClient) WithResponse(resp yahoo.Response) *MockYahooClient {
	m.MockResponse = resp
	return m
}

// WithSymbolResponse configures the response for one symbol.
func (m *MockYahooClient) WithSymbolResponse(symbol string, resp yahoo.Response) *MockYahooClient {
	m.Responses[symbol] = resp
	return m
}

// WithEmptyResponse configures the mock to return a result without data,
// as Yahoo does for a range with no trading days.
func (m *MockYahooClient) WithEmptyResponse() *MockYahooClient {
	m.MockResponse = yahoo.Response{
		Chart: yahoo.Chart{
			Result: []yahoo.Result{{Meta: yahoo.Meta{Symbol: "TEST", Currency: "USD"}}},
		},
	}
	return m
}

// CreateMockYahooResponse creates a mock Yahoo Finance API response with test data.
// The response includes `days` number of days of price data, ending yesterday.
func CreateMockYahooResponse(days int) yahoo.Response {
	now := time.Now().UTC()
	yesterday := time.Date(now.Year(), now.Month(), now.Day()-1, 0, 0, 0, 0, time.UTC)

	dates := make([]time.Time, days)
	closes := make([]float64, days)
	for i := 0; i < days; i++ {
		dates[i] = yesterday.AddDate(0, 0, -days+i+1)
		closes[i] = 100.0 + float64(i)*0.5 + 0.25
	}
	return CreateMockYahooSeries("TEST", dates, closes)
}

// CreateMockYahooResponseForDate creates a mock Yahoo response with a single day's data.
func CreateMockYahooResponseForDate(date time.Time, price float64) yahoo.Response {
	return CreateMockYahooSeries("TEST", []time.Time{date}, []float64{price})
}

// CreateMockYahooSeries creates a response with the given closes. Open, high
// and low are derived from the close.
func CreateMockYahooSeries(symbol string, dates []time.Time, closes []float64) yahoo.Response {
	timestamps := make([]int64, len(dates))
	opens := make([]*float64, len(dates))
	highs := make([]*float64, len(dates))
	lows := make([]*float64, len(dates))
	closePtrs := make([]*float64, len(dates))
	volumes := make([]*int64, len(dates))

	for i, d := range dates {
		timestamps[i] = d.Unix()
		c := closes[i]
		open, high, low := c-0.25, c+0.75, c-0.75
		volume := int64(1000000 + i*10000)
		opens[i], highs[i], lows[i], closePtrs[i], volumes[i] = &open, &high, &low, &c, &volume
	}

	return yahoo.Response{
		Chart: yahoo.Chart{
			Result: []yahoo.Result{
				{
					Meta: yahoo.Meta{
						Symbol:           symbol,
						Currency:         "USD",
						ExchangeName:     "NMS",
						FullExchangeName: "NASDAQ",
						LongName:         "Test Holdings Inc.",
						Shortname:        symbol,
					},
					Timestamp: timestamps,
					Indicators: yahoo.IndicatorsContainer{
						Quote: []yahoo.Quote{
							{
								Open:   opens,
								High:   highs,
								Low:    lows,
								Close:  closePtrs,
								Volume: volumes,
							},
						},
					},
				},
			},
		},
	}
}

// CreateMockYahooErrorResponse creates a mock Yahoo response with an error.
func CreateMockYahooErrorResponse(code, description string) yahoo.Response {
	return yahoo.Response{
		Chart: yahoo.Chart{
			Result: []yahoo.Result{},
			Error:  &yahoo.ChartError{Code: code, Description: description},
		},
	}
}
