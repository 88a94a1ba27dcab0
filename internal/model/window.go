package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/ndewijer/portfolio-tracker/internal/apperrors"
)

// Window is an inclusive date range. Every risk statistic of one run is
// computed on the same window for positions and benchmark alike.
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Contains reports whether t falls on a day inside the window.
func (w Window) Contains(t time.Time) bool {
	day := TruncateDay(t)
	return !day.Before(TruncateDay(w.Start)) && !day.After(TruncateDay(w.End))
}

// Periods lists the lookback presets accepted by ParsePeriod.
var Periods = []string{"1m", "3m", "6m", "1y", "YTD", "3y", "5y"}

// ParsePeriod resolves a lookback preset to a window ending on the day of ref.
func ParsePeriod(period string, ref time.Time) (Window, error) {
	end := TruncateDay(ref)
	var start time.Time
	switch strings.ToLower(strings.TrimSpace(period)) {
	case "1m":
		start = end.AddDate(0, -1, 0)
	case "3m":
		start = end.AddDate(0, -3, 0)
	case "6m":
		start = end.AddDate(0, -6, 0)
	case "1y":
		start = end.AddDate(-1, 0, 0)
	case "ytd":
		start = time.Date(end.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
	case "3y":
		start = end.AddDate(-3, 0, 0)
	case "5y":
		start = end.AddDate(-5, 0, 0)
	default:
		return Window{}, fmt.Errorf("%w: %q (expected one of %s)", apperrors.ErrInvalidPeriod, period, strings.Join(Periods, ", "))
	}
	return Window{Start: start, End: end}, nil
}

// NewWindow validates an explicit range.
func NewWindow(start, end time.Time) (Window, error) {
	start, end = TruncateDay(start), TruncateDay(end)
	if end.Before(start) {
		return Window{}, fmt.Errorf("%w: start %s is after end %s", apperrors.ErrInvalidDateRange,
			start.Format("2006-01-02"), end.Format("2006-01-02"))
	}
	return Window{Start: start, End: end}, nil
}

// TruncateDay returns midnight UTC of the calendar day of t.
func TruncateDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
