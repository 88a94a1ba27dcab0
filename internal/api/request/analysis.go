package request

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/ndewijer/portfolio-tracker/internal/model"
)

// DefaultSearchLimit and MaxSearchLimit bound the limit query parameter.
const (
	DefaultSearchLimit = 10
	MaxSearchLimit     = 50
)

// AnalysisQuery holds the lookback and benchmark parameters shared by the
// risk and performance endpoints. Dates are normalized to YYYY-MM-DD.
type AnalysisQuery struct {
	Period    string
	Start     string
	End       string
	Benchmark string
}

// ParseAnalysisQuery extracts and validates analysis parameters from query
// parameters. All parameters are optional.
//
// Validation rules:
//   - period: one of model.Periods, case-insensitive
//   - start/end: YYYY-MM-DD or RFC3339; start must not be after end
//   - benchmark: trimmed and upper-cased
func ParseAnalysisQuery(periodParam, startParam, endParam, benchmarkParam string) (*AnalysisQuery, error) {
	q := &AnalysisQuery{
		Benchmark: strings.ToUpper(strings.TrimSpace(benchmarkParam)),
	}

	if periodParam != "" {
		i := slices.IndexFunc(model.Periods, func(p string) bool { return strings.EqualFold(p, periodParam) })
		if i < 0 {
			return nil, fmt.Errorf("invalid period: must be one of %s", strings.Join(model.Periods, ", "))
		}
		q.Period = model.Periods[i]
	}

	var start, end time.Time
	if startParam != "" {
		t, err := parseQueryDate(startParam)
		if err != nil {
			return nil, fmt.Errorf("invalid start format: %w", err)
		}
		start = t
		q.Start = t.Format("2006-01-02")
	}
	if endParam != "" {
		t, err := parseQueryDate(endParam)
		if err != nil {
			return nil, fmt.Errorf("invalid end format: %w", err)
		}
		end = t
		q.End = t.Format("2006-01-02")
	}
	if !start.IsZero() && !end.IsZero() && start.After(end) {
		return nil, fmt.Errorf("invalid date range: start must not be after end")
	}

	return q, nil
}

// SearchQuery holds the parameters of a ticker search.
type SearchQuery struct {
	Query string
	Limit int
}

// ParseSearchQuery extracts and validates search parameters. The query is
// required; limit defaults to DefaultSearchLimit and must be between 1 and
// MaxSearchLimit.
func ParseSearchQuery(queryParam, limitParam string) (*SearchQuery, error) {
	q := &SearchQuery{Query: strings.TrimSpace(queryParam), Limit: DefaultSearchLimit}
	if q.Query == "" {
		return nil, fmt.Errorf("invalid q: query is required")
	}
	if limitParam != "" {
		limit, err := strconv.Atoi(limitParam)
		if err != nil {
			return nil, fmt.Errorf("invalid limit: must be a number")
		}
		if limit < 1 || limit > MaxSearchLimit {
			return nil, fmt.Errorf("invalid limit: must be between 1 and %d", MaxSearchLimit)
		}
		q.Limit = limit
	}
	return q, nil
}

// parseQueryDate accepts YYYY-MM-DD and RFC3339 dates.
func parseQueryDate(str string) (time.Time, error) {
	for _, layout := range []string{"2006-01-02", time.RFC3339} {
		if t, err := time.Parse(layout, str); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse %q as a date", str)
}
