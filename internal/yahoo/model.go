package yahoo

import "time"

// Response represents the raw JSON response structure of the Yahoo Finance
// chart API. Close and volume entries are pointers because Yahoo reports
// null for days without a trade (halts, partial sessions).
type Response struct {
	Chart Chart `json:"chart"`
}

// Chart wraps the result list and the optional API error.
type Chart struct {
	Result []Result    `json:"result"`
	Error  *ChartError `json:"error"`
}

// ChartError is the error object Yahoo returns in place of results,
// e.g. {"code":"Not Found","description":"No data found, symbol may be delisted"}.
type ChartError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

// Result holds one symbol's metadata, timestamps and price arrays.
type Result struct {
	Meta       Meta                `json:"meta"`
	Timestamp  []int64             `json:"timestamp"`
	Indicators IndicatorsContainer `json:"indicators"`
}

// Meta is the symbol metadata block of a chart result.
type Meta struct {
	Currency           string  `json:"currency"`
	Symbol             string  `json:"symbol"`
	ExchangeName       string  `json:"exchangeName"`
	FullExchangeName   string  `json:"fullExchangeName"`
	LongName           string  `json:"longName"`
	Shortname          string  `json:"shortName"`
	RegularMarketPrice float64 `json:"regularMarketPrice"`
	RegularMarketTime  int64   `json:"regularMarketTime"`
}

// IndicatorsContainer holds the OHLCV arrays.
type IndicatorsContainer struct {
	Quote []Quote `json:"quote"`
}

// Quote is the per-day OHLCV arrays, aligned with Result.Timestamp.
type Quote struct {
	Open   []*float64 `json:"open"`
	Close  []*float64 `json:"close"`
	Volume []*int64   `json:"volume"`
	High   []*float64 `json:"high"`
	Low    []*float64 `json:"low"`
}

// PriceChart is the parsed form of a Response: metadata plus one Indicators
// entry per day that has a close.
type PriceChart struct {
	Currency         string       `json:"currency"`
	Symbol           string       `json:"symbol"`
	ExchangeName     string       `json:"exchangeName"`
	FullExchangeName string       `json:"fullExchangeName"`
	LongName         string       `json:"longName"`
	Shortname        string       `json:"shortName"`
	Indicators       []Indicators `json:"indicators"`
}

// Indicators is a single day's price data. Fields Yahoo reported as null
// are zero; PriceClose is always set.
type Indicators struct {
	Date       time.Time
	PriceOpen  float64
	PriceClose float64
	Volume     int64
	PriceHigh  float64
	PriceLow   float64
}

// SearchResponse is the raw JSON of the Yahoo symbol search API.
type SearchResponse struct {
	Quotes []SearchQuote `json:"quotes"`
}

// SearchQuote is one search hit.
type SearchQuote struct {
	Symbol    string `json:"symbol"`
	ShortName string `json:"shortname"`
	LongName  string `json:"longname"`
	Exchange  string `json:"exchDisp"`
	QuoteType string `json:"quoteType"`
}
