package domain

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for conditions callers branch on with errors.Is.
var (
	// ErrNoPrice - no price exists at or before the requested date.
	// Non-fatal: the affected transaction or instrument is skipped with a log trail.
	ErrNoPrice = errors.New("no price at or before date")

	// ErrNoDividendTarget - a dividend arrived with no eligible holder. Non-fatal.
	ErrNoDividendTarget = errors.New("no eligible holder for dividend")

	// ErrRecomputeInProgress - another recompute holds the single-writer lock.
	ErrRecomputeInProgress = errors.New("a recompute is already running")
)

// ParseError is a malformed ledger line. The whole load aborts on the first
// one: a corrupt ledger must fail loudly rather than produce a portfolio
// with silently missing transactions.
type ParseError struct {
	Line   int    // 1-based line number in the ledger file
	Field  string // Offending field name
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("ledger line %d: invalid %s: %s", e.Line, e.Field, e.Reason)
}

// FetchError is a per-instrument market data fetch failure. Isolated: the
// batch continues and the instrument is simply absent from valuation for the
// affected dates.
type FetchError struct {
	Ticker string
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch failed for %s: %v", e.Ticker, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// NoPriceError decorates ErrNoPrice with the instrument and date for logs.
func NoPriceError(ticker string, date time.Time) error {
	return fmt.Errorf("%s on %s: %w", ticker, FormatDate(date), ErrNoPrice)
}
