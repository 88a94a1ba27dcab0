// Package formulas holds the numeric building blocks of the risk engine:
// return series, date alignment and the statistics computed over them.
// Functions return NaN, never zero, when a statistic is undefined.
package formulas

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Returns converts prices to simple periodic returns:
// r[i] = p[i+1]/p[i] - 1. Fewer than two prices yield an empty slice.
func Returns(prices []float64) []float64 {
	if len(prices) < 2 {
		return []float64{}
	}
	returns := make([]float64, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		returns[i-1] = prices[i]/prices[i-1] - 1
	}
	return returns
}

// Mean is the arithmetic mean, NaN for an empty slice.
func Mean(data []float64) float64 {
	if len(data) == 0 {
		return math.NaN()
	}
	return stat.Mean(data, nil)
}

// StdDev is the sample standard deviation, NaN with fewer than two values.
func StdDev(data []float64) float64 {
	if len(data) < 2 {
		return math.NaN()
	}
	return stat.StdDev(data, nil)
}

// Variance is the sample variance, NaN with fewer than two values.
func Variance(data []float64) float64 {
	if len(data) < 2 {
		return math.NaN()
	}
	return stat.Variance(data, nil)
}

// Covariance is the sample covariance of two equally long series.
func Covariance(x, y []float64) float64 {
	if len(x) < 2 || len(x) != len(y) {
		return math.NaN()
	}
	return stat.Covariance(x, y, nil)
}

// Correlation is the Pearson correlation of two equally long series. It is
// NaN when either series has zero variance.
func Correlation(x, y []float64) float64 {
	if len(x) < 2 || len(x) != len(y) {
		return math.NaN()
	}
	if Variance(x) == 0 || Variance(y) == 0 {
		return math.NaN()
	}
	return stat.Correlation(x, y, nil)
}

// Beta is cov(asset, benchmark) / var(benchmark).
func Beta(asset, benchmark []float64) float64 {
	if len(asset) < 2 || len(asset) != len(benchmark) {
		return math.NaN()
	}
	v := Variance(benchmark)
	if v == 0 || math.IsNaN(v) {
		return math.NaN()
	}
	return Covariance(asset, benchmark) / v
}

// Alpha is the single-factor periodic alpha: mean(asset) - beta*mean(benchmark).
func Alpha(asset, benchmark []float64, beta float64) float64 {
	if math.IsNaN(beta) {
		return math.NaN()
	}
	return Mean(asset) - beta*Mean(benchmark)
}

// SharpeRatio is the periodic Sharpe ratio of returns against an annual
// risk-free rate spread evenly over periodsPerYear.
func SharpeRatio(returns []float64, riskFreeRate float64, periodsPerYear int) float64 {
	vol := StdDev(returns)
	if vol == 0 || math.IsNaN(vol) || periodsPerYear <= 0 {
		return math.NaN()
	}
	return (Mean(returns) - riskFreeRate/float64(periodsPerYear)) / vol
}

// Annualize scales a periodic standard deviation or Sharpe ratio by sqrt(periodsPerYear).
func Annualize(periodic float64, periodsPerYear int) float64 {
	return periodic * math.Sqrt(float64(periodsPerYear))
}

// HistoricalVaR is the loss fraction not exceeded with the given confidence,
// read from the empirical distribution of returns. A positive value is a loss.
func HistoricalVaR(returns []float64, confidence float64) float64 {
	if len(returns) == 0 || confidence <= 0 || confidence >= 1 {
		return math.NaN()
	}
	sorted := make([]float64, len(returns))
	copy(sorted, returns)
	sort.Float64s(sorted)
	return -stat.Quantile(1-confidence, stat.Empirical, sorted, nil)
}

// MaxDrawdown is the largest peak-to-trough decline of a price or value
// path as a positive fraction.
func MaxDrawdown(values []float64) float64 {
	if len(values) < 2 {
		return math.NaN()
	}
	maxDrawdown := 0.0
	peak := values[0]
	for _, v := range values {
		if v > peak {
			peak = v
		}
		if peak > 0 {
			if dd := (peak - v) / peak; dd > maxDrawdown {
				maxDrawdown = dd
			}
		}
	}
	return maxDrawdown
}

// CumulativeReturns compounds periodic returns: c[i] = Π(1+r[0..i]) - 1.
func CumulativeReturns(returns []float64) []float64 {
	cumulative := make([]float64, len(returns))
	growth := 1.0
	for i, r := range returns {
		growth *= 1 + r
		cumulative[i] = growth - 1
	}
	return cumulative
}

// TotalReturn is the compounded return over the whole series.
func TotalReturn(returns []float64) float64 {
	if len(returns) == 0 {
		return math.NaN()
	}
	c := CumulativeReturns(returns)
	return c[len(c)-1]
}

// AnnualizedReturn is the compound annual growth rate implied by periodic
// returns: (1+total)^(periodsPerYear/N) - 1.
func AnnualizedReturn(returns []float64, periodsPerYear int) float64 {
	if len(returns) == 0 || periodsPerYear <= 0 {
		return math.NaN()
	}
	total := TotalReturn(returns)
	return math.Pow(1+total, float64(periodsPerYear)/float64(len(returns))) - 1
}

// CorrelationMatrix returns the Pearson correlation of equally long return
// series; entry [i][j] correlates series i and j. A series with zero
// variance yields NaN in its row and column.
func CorrelationMatrix(series [][]float64) [][]float64 {
	n := len(series)
	if n == 0 {
		return [][]float64{}
	}
	obs := len(series[0])
	for _, s := range series {
		if len(s) != obs {
			return nanMatrix(n)
		}
	}
	if obs < 2 {
		return nanMatrix(n)
	}

	data := mat.NewDense(obs, n, nil)
	for j, s := range series {
		for i, v := range s {
			data.Set(i, j, v)
		}
	}
	var corr mat.SymDense
	stat.CorrelationMatrix(&corr, data, nil)

	flat := make([]bool, n)
	for i, s := range series {
		flat[i] = Variance(s) == 0
	}

	result := make([][]float64, n)
	for i := range result {
		result[i] = make([]float64, n)
		for j := range result[i] {
			if flat[i] || flat[j] {
				result[i][j] = math.NaN()
				continue
			}
			result[i][j] = corr.At(i, j)
		}
	}
	return result
}

func nanMatrix(n int) [][]float64 {
	m := make([][]float64, n)
	for i := range m {
		m[i] = make([]float64, n)
		for j := range m[i] {
			m[i][j] = math.NaN()
		}
	}
	return m
}
