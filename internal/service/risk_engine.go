package service

import (
	"math"

	"github.com/ndewijer/portfolio-tracker/internal/config"
	"github.com/ndewijer/portfolio-tracker/internal/formulas"
	"github.com/ndewijer/portfolio-tracker/internal/model"
)

// RiskInput is everything one risk run needs. Every series, the benchmark
// included, is clipped to Window before any statistic is computed.
type RiskInput struct {
	Tickers   []string // Output order
	Series    map[string]model.PriceSeries
	Benchmark model.PriceSeries
	Holdings  map[string]float64 // Ticker -> quantity, for the aggregate
	Window    model.Window
}

// PerformanceInput is everything one performance run needs.
type PerformanceInput struct {
	Tickers   []string
	Series    map[string]model.PriceSeries
	Benchmark *model.PriceSeries
	Holdings  map[string]float64
	Window    model.Window
}

// RiskEngine computes risk and performance statistics from price series.
// It is a pure function of its inputs.
//
// Conventions: returns are simple periodic returns on dates common to the
// series and the benchmark. Volatility, SharpeRatio and Alpha are periodic
// (per trading day for daily closes); AnnualizedVolatility scales by
// sqrt(PeriodsPerYear). Undefined statistics are NaN.
type RiskEngine struct {
	riskFreeRate   float64
	periodsPerYear int
	confidence     float64
}

// NewRiskEngine creates a RiskEngine from the market configuration.
func NewRiskEngine(cfg config.MarketConfig) *RiskEngine {
	return &RiskEngine{
		riskFreeRate:   cfg.RiskFreeRate,
		periodsPerYear: cfg.PeriodsPerYear,
		confidence:     cfg.VaRConfidence,
	}
}

// Compute returns per-ticker and aggregate risk metrics against the benchmark.
//
// A ticker in Tickers without an entry in Series is skipped; the caller
// reports it as a fetch failure. A skipped holding also gets a
// PARTIAL_COVERAGE warning since the aggregate then covers only part of
// the portfolio. The aggregate is the value path
// Σ quantity × close over dates present in every held constituent and the
// benchmark; cash is excluded.
func (e *RiskEngine) Compute(in RiskInput) model.RiskReport {
	benchmark := formulas.ClipToWindow(in.Benchmark, in.Window)

	report := model.RiskReport{
		Window:       in.Window,
		Benchmark:    in.Benchmark.Ticker,
		RiskFreeRate: e.riskFreeRate,
		Confidence:   e.confidence,
		Positions:    []model.RiskMetrics{},
		Failures:     []model.FetchFailure{},
		Stale:        []string{},
		Warnings:     []model.Warning{},
	}
	if in.Benchmark.Stale {
		report.Stale = append(report.Stale, in.Benchmark.Ticker)
	}

	var held []model.PriceSeries
	var quantities []float64

	for _, ticker := range in.Tickers {
		series, ok := in.Series[ticker]
		if !ok {
			if in.Holdings[ticker] > 0 {
				report.Warnings = append(report.Warnings, partialCoverage(ticker))
			}
			continue
		}
		if series.Stale {
			report.Stale = append(report.Stale, ticker)
		}
		clipped := formulas.ClipToWindow(series, in.Window)

		aligned := formulas.Align(clipped, benchmark)
		metrics := e.metrics(ticker, aligned.Closes[0], aligned.Closes[1])
		if n := len(aligned.Closes[0]); n > 0 {
			metrics.VaRAmount = metrics.VaR * in.Holdings[ticker] * aligned.Closes[0][n-1]
		}
		report.Positions = append(report.Positions, metrics)

		if qty := in.Holdings[ticker]; qty > 0 {
			held = append(held, clipped)
			quantities = append(quantities, qty)
		}
	}

	report.Portfolio = e.aggregate(held, quantities, benchmark)
	return report
}

func (e *RiskEngine) aggregate(held []model.PriceSeries, quantities []float64, benchmark model.PriceSeries) model.RiskMetrics {
	if len(held) == 0 {
		return e.metrics(model.PortfolioKey, nil, nil)
	}

	aligned := formulas.Align(append(held, benchmark)...)
	n := len(held)
	values := formulas.WeightedValue(aligned.Closes[:n], quantities)

	metrics := e.metrics(model.PortfolioKey, values, aligned.Closes[n])
	if len(values) > 0 {
		metrics.VaRAmount = metrics.VaR * values[len(values)-1]
	}
	return metrics
}

// metrics computes the statistics of one aligned price path against the
// aligned benchmark path.
func (e *RiskEngine) metrics(ticker string, prices, benchmark []float64) model.RiskMetrics {
	rp := formulas.Returns(prices)
	rb := formulas.Returns(benchmark)

	vol := formulas.StdDev(rp)
	beta := formulas.Beta(rp, rb)
	corr := formulas.Correlation(rp, rb)

	return model.RiskMetrics{
		Ticker:               ticker,
		Observations:         len(rp),
		Volatility:           vol,
		AnnualizedVolatility: formulas.Annualize(vol, e.periodsPerYear),
		SharpeRatio:          formulas.SharpeRatio(rp, e.riskFreeRate, e.periodsPerYear),
		Beta:                 beta,
		Alpha:                formulas.Alpha(rp, rb, beta),
		RSquared:             corr * corr,
		VaR:                  formulas.HistoricalVaR(rp, e.confidence),
		VaRAmount:            math.NaN(),
		MaxDrawdown:          formulas.MaxDrawdown(prices),
	}
}

// Performance summarizes the return path of every ticker, the held
// aggregate and, if given, the benchmark over the window, plus the
// correlation matrix of returns on dates common to all tickers.
func (e *RiskEngine) Performance(in PerformanceInput) model.PerformanceReport {
	report := model.PerformanceReport{
		Window:      in.Window,
		Positions:   []model.PerformanceMetrics{},
		Tickers:     []string{},
		Correlation: [][]float64{},
		Failures:    []model.FetchFailure{},
		Warnings:    []model.Warning{},
	}

	var all []model.PriceSeries
	var held []model.PriceSeries
	var quantities []float64

	for _, ticker := range in.Tickers {
		series, ok := in.Series[ticker]
		if !ok {
			if in.Holdings[ticker] > 0 {
				report.Warnings = append(report.Warnings, partialCoverage(ticker))
			}
			continue
		}
		clipped := formulas.ClipToWindow(series, in.Window)
		report.Positions = append(report.Positions, e.performance(ticker, clipped.Points))
		report.Tickers = append(report.Tickers, ticker)
		all = append(all, clipped)

		if qty := in.Holdings[ticker]; qty > 0 {
			held = append(held, clipped)
			quantities = append(quantities, qty)
		}
	}

	if len(held) > 0 {
		aligned := formulas.Align(held...)
		values := formulas.WeightedValue(aligned.Closes, quantities)
		points := make([]model.PricePoint, len(values))
		for i, v := range values {
			points[i] = model.PricePoint{Date: aligned.Dates[i], Close: v}
		}
		report.Portfolio = e.performance(model.PortfolioKey, points)
	} else {
		report.Portfolio = e.performance(model.PortfolioKey, nil)
	}

	if in.Benchmark != nil {
		clipped := formulas.ClipToWindow(*in.Benchmark, in.Window)
		bm := e.performance(in.Benchmark.Ticker, clipped.Points)
		report.Benchmark = &bm
	}

	if len(all) > 0 {
		report.Correlation = formulas.CorrelationMatrix(formulas.Align(all...).Returns())
	}
	return report
}

func (e *RiskEngine) performance(ticker string, points []model.PricePoint) model.PerformanceMetrics {
	prices := make([]float64, len(points))
	for i, p := range points {
		prices[i] = p.Close
	}
	returns := formulas.Returns(prices)
	cumulative := formulas.CumulativeReturns(returns)

	curve := make([]model.ReturnPoint, len(cumulative))
	for i, c := range cumulative {
		curve[i] = model.ReturnPoint{Date: points[i+1].Date.Format("2006-01-02"), Return: c}
	}

	return model.PerformanceMetrics{
		Ticker:               ticker,
		Observations:         len(returns),
		TotalReturn:          formulas.TotalReturn(returns),
		AnnualizedReturn:     formulas.AnnualizedReturn(returns, e.periodsPerYear),
		AnnualizedVolatility: formulas.Annualize(formulas.StdDev(returns), e.periodsPerYear),
		SharpeRatio:          formulas.Annualize(formulas.SharpeRatio(returns, e.riskFreeRate, e.periodsPerYear), e.periodsPerYear),
		MaxDrawdown:          formulas.MaxDrawdown(prices),
		Cumulative:           curve,
	}
}

func partialCoverage(ticker string) model.Warning {
	return model.Warning{
		Code:    model.WarningPartialCoverage,
		Ticker:  ticker,
		Message: ticker + " has no price history; the portfolio aggregate excludes it",
	}
}
