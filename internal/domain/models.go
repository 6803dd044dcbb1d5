// Package domain contains the core types shared by all packages.
// The domain layer is pure: no database, network, or logging dependencies.
package domain

import "time"

// DateLayout is the canonical calendar-day format used everywhere:
// in-memory dates are UTC midnight, persisted dates are YYYY-MM-DD TEXT.
const DateLayout = "2006-01-02"

// Side is the direction of a ledger transaction.
type Side string

const (
	Buy  Side = "Buy"
	Sell Side = "Sell"
)

// Transaction is a single immutable ledger entry.
// Ordering key is date, then position in the ledger file.
type Transaction struct {
	Ticker   string
	Date     time.Time
	Side     Side
	Quantity int      // Whole shares, always > 0
	Price    *float64 // Stated execution price in the portfolio base currency, if recorded
}

// PricePoint is one close price for an instrument on a calendar day.
// Prices are stored already converted to the portfolio base currency.
type PricePoint struct {
	Ticker string
	Date   time.Time
	Close  float64
}

// DividendEvent is a per-share cash dividend on a calendar day,
// in the portfolio base currency unless a Currency override is set.
type DividendEvent struct {
	Ticker   string
	Date     time.Time
	Amount   float64 // Per share
	Currency string  // Empty means base currency
}

// ValuePoint is one point of the reconstructed portfolio value series:
// cash plus the sum of shares x as-of price over all priced holdings.
type ValuePoint struct {
	Date  time.Time
	Value float64
}

// Day normalizes a time to UTC midnight so it behaves as a calendar day.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD string into a calendar day.
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, s, time.UTC)
}

// FormatDate renders a calendar day as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}
