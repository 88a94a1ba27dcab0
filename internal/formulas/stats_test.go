package formulas

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeReturns(r float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = r
	}
	return out
}

func TestReturns(t *testing.T) {
	tests := []struct {
		name     string
		prices   []float64
		expected []float64
	}{
		{name: "empty", prices: nil, expected: []float64{}},
		{name: "single price", prices: []float64{100}, expected: []float64{}},
		{name: "up and down", prices: []float64{100, 110, 99}, expected: []float64{0.1, -0.1}},
		{name: "flat", prices: []float64{50, 50, 50}, expected: []float64{0, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Returns(tt.prices)
			require.Len(t, got, len(tt.expected))
			for i := range got {
				assert.InDelta(t, tt.expected[i], got[i], 1e-12)
			}
		})
	}
}

func TestStdDev(t *testing.T) {
	t.Run("fewer than two values is undefined", func(t *testing.T) {
		assert.True(t, math.IsNaN(StdDev(nil)))
		assert.True(t, math.IsNaN(StdDev([]float64{0.01})))
	})

	t.Run("sample standard deviation", func(t *testing.T) {
		assert.InDelta(t, math.Sqrt(0.02), StdDev([]float64{0.1, -0.1}), 1e-12)
	})

	t.Run("constant series", func(t *testing.T) {
		assert.Equal(t, 0.0, StdDev(makeReturns(0.01, 10)))
	})
}

func TestBeta(t *testing.T) {
	benchmark := []float64{0.01, -0.02, 0.015, 0.003, -0.007}

	t.Run("identical series has beta one", func(t *testing.T) {
		assert.InDelta(t, 1.0, Beta(benchmark, benchmark), 1e-12)
	})

	t.Run("leveraged series", func(t *testing.T) {
		doubled := make([]float64, len(benchmark))
		for i, r := range benchmark {
			doubled[i] = 2 * r
		}
		assert.InDelta(t, 2.0, Beta(doubled, benchmark), 1e-12)
	})

	t.Run("flat benchmark is undefined", func(t *testing.T) {
		assert.True(t, math.IsNaN(Beta(benchmark, makeReturns(0, len(benchmark)))))
	})

	t.Run("mismatched lengths are undefined", func(t *testing.T) {
		assert.True(t, math.IsNaN(Beta(benchmark, benchmark[:3])))
	})
}

func TestAlpha(t *testing.T) {
	benchmark := []float64{0.01, -0.02, 0.015, 0.003, -0.007}
	asset := make([]float64, len(benchmark))
	for i, r := range benchmark {
		asset[i] = r + 0.001
	}

	beta := Beta(asset, benchmark)
	assert.InDelta(t, 1.0, beta, 1e-12)
	assert.InDelta(t, 0.001, Alpha(asset, benchmark, beta), 1e-12)
	assert.True(t, math.IsNaN(Alpha(asset, benchmark, math.NaN())))
}

func TestCorrelation(t *testing.T) {
	x := []float64{1, 2, 3, 4}

	assert.InDelta(t, 1.0, Correlation(x, []float64{2, 4, 6, 8}), 1e-12)
	assert.InDelta(t, -1.0, Correlation(x, []float64{4, 3, 2, 1}), 1e-12)
	assert.True(t, math.IsNaN(Correlation(x, []float64{5, 5, 5, 5})))
}

func TestSharpeRatio(t *testing.T) {
	t.Run("zero volatility is undefined", func(t *testing.T) {
		assert.True(t, math.IsNaN(SharpeRatio(makeReturns(0.001, 20), 0.02, 252)))
	})

	t.Run("excess return over volatility", func(t *testing.T) {
		returns := []float64{0.02, 0.0}
		// mean 0.01, sample std sqrt(0.0002)
		expected := (0.01 - 0.02/252) / math.Sqrt(0.0002)
		assert.InDelta(t, expected, SharpeRatio(returns, 0.02, 252), 1e-12)
	})
}

func TestHistoricalVaR(t *testing.T) {
	returns := []float64{0.03, -0.02, 0.01, -0.05, 0}

	tests := []struct {
		name       string
		returns    []float64
		confidence float64
		expected   float64
	}{
		{name: "worst tail at 80 percent", returns: returns, confidence: 0.8, expected: 0.05},
		{name: "median at 50 percent", returns: returns, confidence: 0.5, expected: 0.0},
		{name: "all gains give negative loss", returns: []float64{0.01, 0.02}, confidence: 0.5, expected: -0.01},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, HistoricalVaR(tt.returns, tt.confidence), 1e-12)
		})
	}

	t.Run("input is not reordered", func(t *testing.T) {
		in := []float64{0.03, -0.02, 0.01}
		HistoricalVaR(in, 0.95)
		assert.Equal(t, []float64{0.03, -0.02, 0.01}, in)
	})

	t.Run("empty or bad confidence is undefined", func(t *testing.T) {
		assert.True(t, math.IsNaN(HistoricalVaR(nil, 0.95)))
		assert.True(t, math.IsNaN(HistoricalVaR(returns, 1)))
		assert.True(t, math.IsNaN(HistoricalVaR(returns, 0)))
	})
}

func TestMaxDrawdown(t *testing.T) {
	tests := []struct {
		name     string
		values   []float64
		expected float64
	}{
		{name: "monotonic rise", values: []float64{100, 110, 120}, expected: 0},
		{name: "single trough", values: []float64{100, 120, 90, 110}, expected: 0.25},
		{name: "deeper trough after new peak", values: []float64{100, 120, 90, 130, 65}, expected: 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, MaxDrawdown(tt.values), 1e-12)
		})
	}

	assert.True(t, math.IsNaN(MaxDrawdown([]float64{100})))
}

func TestTotalAndAnnualizedReturn(t *testing.T) {
	t.Run("compounding", func(t *testing.T) {
		returns := []float64{0.1, -0.1}
		assert.InDelta(t, -0.01, TotalReturn(returns), 1e-12)
		assert.Equal(t, 2, len(CumulativeReturns(returns)))
	})

	t.Run("one year of small positive returns", func(t *testing.T) {
		assert.InDelta(t, 0.286, AnnualizedReturn(makeReturns(0.001, 252), 252), 0.001)
	})

	t.Run("half year is scaled up", func(t *testing.T) {
		// (1.002^126)^(252/126) - 1
		assert.InDelta(t, 0.654, AnnualizedReturn(makeReturns(0.002, 126), 252), 0.001)
	})

	t.Run("empty is undefined", func(t *testing.T) {
		assert.True(t, math.IsNaN(TotalReturn(nil)))
		assert.True(t, math.IsNaN(AnnualizedReturn(nil, 252)))
	})
}

func TestCorrelationMatrix(t *testing.T) {
	t.Run("perfect correlations", func(t *testing.T) {
		m := CorrelationMatrix([][]float64{
			{1, 2, 3, 4},
			{2, 4, 6, 8},
			{4, 3, 2, 1},
		})
		require.Len(t, m, 3)
		for i := range m {
			assert.InDelta(t, 1.0, m[i][i], 1e-12)
		}
		assert.InDelta(t, 1.0, m[0][1], 1e-12)
		assert.InDelta(t, -1.0, m[0][2], 1e-12)
		assert.InDelta(t, m[1][2], m[2][1], 1e-12)
	})

	t.Run("flat series is undefined", func(t *testing.T) {
		m := CorrelationMatrix([][]float64{{1, 2, 3}, {5, 5, 5}})
		assert.InDelta(t, 1.0, m[0][0], 1e-12)
		assert.True(t, math.IsNaN(m[0][1]))
		assert.True(t, math.IsNaN(m[1][1]))
	})

	t.Run("empty input", func(t *testing.T) {
		assert.Empty(t, CorrelationMatrix(nil))
	})
}
