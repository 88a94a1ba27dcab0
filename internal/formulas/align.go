package formulas

import (
	"math"
	"sort"
	"time"

	"github.com/ndewijer/portfolio-tracker/internal/model"
)

// Aligned is a set of price series reduced to the dates every one of them
// has a close for. Closes[i][j] is the close of series i on Dates[j].
type Aligned struct {
	Dates  []time.Time
	Closes [][]float64
}

// Returns converts every aligned price path to periodic returns. All
// resulting slices share the same length.
func (a Aligned) Returns() [][]float64 {
	out := make([][]float64, len(a.Closes))
	for i, c := range a.Closes {
		out[i] = Returns(c)
	}
	return out
}

// ClipToWindow drops points outside window and any close that is not a
// positive finite number. Multiple points on one calendar day collapse to
// the last one.
func ClipToWindow(series model.PriceSeries, window model.Window) model.PriceSeries {
	byDay := make(map[time.Time]float64, len(series.Points))
	for _, p := range series.Points {
		if !window.Contains(p.Date) || !usablePrice(p.Close) {
			continue
		}
		byDay[model.TruncateDay(p.Date)] = p.Close
	}

	points := make([]model.PricePoint, 0, len(byDay))
	for day, c := range byDay {
		points = append(points, model.PricePoint{Date: day, Close: c})
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Date.Before(points[j].Date) })

	return model.PriceSeries{Ticker: series.Ticker, Points: points, Stale: series.Stale}
}

// Align inner-joins series on calendar day. Series are expected to have been
// clipped first; dates are compared at day resolution regardless.
func Align(series ...model.PriceSeries) Aligned {
	if len(series) == 0 {
		return Aligned{Dates: []time.Time{}, Closes: [][]float64{}}
	}

	lookups := make([]map[time.Time]float64, len(series))
	for i, s := range series {
		lookups[i] = make(map[time.Time]float64, len(s.Points))
		for _, p := range s.Points {
			lookups[i][model.TruncateDay(p.Date)] = p.Close
		}
	}

	var dates []time.Time
	for day := range lookups[0] {
		common := true
		for _, l := range lookups[1:] {
			if _, ok := l[day]; !ok {
				common = false
				break
			}
		}
		if common {
			dates = append(dates, day)
		}
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	closes := make([][]float64, len(series))
	for i, l := range lookups {
		closes[i] = make([]float64, len(dates))
		for j, d := range dates {
			closes[i][j] = l[d]
		}
	}
	if dates == nil {
		dates = []time.Time{}
	}
	return Aligned{Dates: dates, Closes: closes}
}

// WeightedValue sums quantity * close per aligned date, giving the value
// path of a basket of holdings.
func WeightedValue(closes [][]float64, quantities []float64) []float64 {
	if len(closes) == 0 {
		return []float64{}
	}
	values := make([]float64, len(closes[0]))
	for i, c := range closes {
		for j, v := range c {
			values[j] += quantities[i] * v
		}
	}
	return values
}

func usablePrice(p float64) bool {
	return p > 0 && !math.IsInf(p, 0) && !math.IsNaN(p)
}
