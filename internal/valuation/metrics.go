package valuation

import (
	"time"

	"github.com/oskarw/folio/internal/domain"
)

// Window names, keyed into the percent-change map the cache exposes.
const (
	WindowWeek    = "This Week"
	WindowMonth   = "This Month"
	WindowYear    = "This Year"
	WindowAllTime = "All Time"
)

// PercentChange computes (todayVal - v0) / v0 * 100 where v0 is the value at
// the latest series point dated <= baseline. A nil result means the metric
// is undefined (no snapshot at or before the baseline), which is a valid
// answer, not an error.
func PercentChange(series []domain.ValuePoint, baseline time.Time, todayVal float64) *float64 {
	baseline = domain.Day(baseline)

	var v0 *float64
	for i := range series {
		if series[i].Date.After(baseline) {
			break
		}
		v0 = &series[i].Value
	}
	if v0 == nil || *v0 == 0 {
		return nil
	}

	change := (todayVal - *v0) / *v0 * 100
	return &change
}

// Windows computes the standard percent-change windows against now:
// one week back, calendar month to date, calendar year to date, and
// all-time (baseline = first available date).
func Windows(series []domain.ValuePoint, now time.Time) map[string]*float64 {
	if len(series) == 0 {
		return map[string]*float64{
			WindowWeek:    nil,
			WindowMonth:   nil,
			WindowYear:    nil,
			WindowAllTime: nil,
		}
	}

	now = domain.Day(now)
	todayVal := series[len(series)-1].Value

	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	yearStart := time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)

	return map[string]*float64{
		WindowWeek:    PercentChange(series, now.AddDate(0, 0, -7), todayVal),
		WindowMonth:   PercentChange(series, monthStart, todayVal),
		WindowYear:    PercentChange(series, yearStart, todayVal),
		WindowAllTime: PercentChange(series, series[0].Date, todayVal),
	}
}
