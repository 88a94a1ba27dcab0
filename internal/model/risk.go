package model

// PortfolioKey identifies the aggregate entry in risk and performance maps.
const PortfolioKey = "PORTFOLIO"

// RiskMetrics holds the statistics of one return series against the
// benchmark. Undefined statistics are NaN; they are never reported as zero.
//
// Volatility, SharpeRatio and Alpha are periodic (per trading day for daily
// closes). AnnualizedVolatility is Volatility scaled by sqrt(periodsPerYear).
type RiskMetrics struct {
	Ticker               string
	Observations         int // Number of aligned returns
	Volatility           float64
	AnnualizedVolatility float64
	SharpeRatio          float64
	Beta                 float64
	Alpha                float64
	RSquared             float64
	VaR                  float64 // Historical value at risk as a loss fraction
	VaRAmount            float64 // VaR applied to the current invested value
	MaxDrawdown          float64
}

// RiskReport is the result of one risk run.
type RiskReport struct {
	Window       Window
	Benchmark    string
	RiskFreeRate float64
	Confidence   float64
	Positions    []RiskMetrics
	Portfolio    RiskMetrics
	Failures     []FetchFailure
	Stale        []string
	Warnings     []Warning // PARTIAL_COVERAGE per holding missing from Portfolio
}

// PerformanceMetrics summarizes the return path of one series.
type PerformanceMetrics struct {
	Ticker               string
	Observations         int
	TotalReturn          float64
	AnnualizedReturn     float64
	AnnualizedVolatility float64
	SharpeRatio          float64 // Annualized
	MaxDrawdown          float64
	Cumulative           []ReturnPoint
}

// ReturnPoint is one point of a cumulative return curve.
type ReturnPoint struct {
	Date   string  `json:"date"`
	Return float64 `json:"return"`
}

// PerformanceReport is the result of one performance analysis run.
type PerformanceReport struct {
	Window      Window
	Positions   []PerformanceMetrics
	Portfolio   PerformanceMetrics
	Benchmark   *PerformanceMetrics // Nil when no benchmark was requested
	Tickers     []string            // Row/column order of Correlation
	Correlation [][]float64         // Pearson correlation of aligned returns
	Failures    []FetchFailure
	Warnings    []Warning // PARTIAL_COVERAGE per holding missing from Portfolio
}
