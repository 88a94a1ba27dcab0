package model

import "time"

// PricePoint represents the closing price of a ticker on one trading day.
type PricePoint struct {
	Date  time.Time `json:"date"`
	Close float64   `json:"close"`
}

// PriceSeries is an ascending-by-date sequence of closes for one ticker.
// Stale is true when the points were served from the local cache after the
// market data source failed.
type PriceSeries struct {
	Ticker string       `json:"ticker"`
	Points []PricePoint `json:"points"`
	Stale  bool         `json:"stale"`
}

// Len returns the number of points in the series.
func (s PriceSeries) Len() int { return len(s.Points) }

// Closes returns the closing prices in date order.
func (s PriceSeries) Closes() []float64 {
	closes := make([]float64, len(s.Points))
	for i, p := range s.Points {
		closes[i] = p.Close
	}
	return closes
}

// Quote is the latest available price for a ticker.
type Quote struct {
	Ticker   string    `json:"ticker"`
	Price    float64   `json:"price"`
	Date     time.Time `json:"date"`
	Currency string    `json:"currency,omitempty"`
	Stale    bool      `json:"stale"`
}

// SymbolMatch is one result of a ticker search.
type SymbolMatch struct {
	Ticker   string `json:"ticker"`
	Name     string `json:"name"`
	Exchange string `json:"exchange"`
	Type     string `json:"type"`
}

// FetchFailure records a ticker whose market data could not be retrieved.
type FetchFailure struct {
	Ticker string `json:"ticker"`
	Error  string `json:"error"`
}
