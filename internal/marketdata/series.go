// Package marketdata holds the per-instrument price and dividend series:
// the persistent append-only history tables, the in-memory as-of index the
// day loop queries, and the sync service that fills both from an external
// market data provider.
package marketdata

import (
	"sort"
	"time"

	"github.com/oskarw/folio/internal/domain"
)

// Series is an ascending per-instrument (date, close) sequence with O(log n)
// as-of lookup. It replaces the per-day linear scans of naive variants: the
// day loop issues thousands of lookups across a date range and must not
// re-scan the sequence each time.
type Series struct {
	ticker string
	dates  []time.Time // Ascending, unique
	closes []float64
}

// NewSeries creates an empty series for one instrument.
func NewSeries(ticker string) *Series {
	return &Series{ticker: ticker}
}

// Ticker returns the instrument this series belongs to.
func (s *Series) Ticker() string { return s.ticker }

// Len returns the number of points in the series.
func (s *Series) Len() int { return len(s.dates) }

// Append adds a point, keeping the sequence ascending and unique by date.
// Appending at the end is O(1); the first point for an already-known date
// wins, matching the append-only persistence rule. Previously built indices
// stay valid: lookups never cache positions across appends.
func (s *Series) Append(date time.Time, close float64) {
	date = domain.Day(date)

	n := len(s.dates)
	if n == 0 || s.dates[n-1].Before(date) {
		s.dates = append(s.dates, date)
		s.closes = append(s.closes, close)
		return
	}

	// Out-of-order append: insert at the right position unless the date exists.
	i := sort.Search(n, func(i int) bool { return !s.dates[i].Before(date) })
	if i < n && s.dates[i].Equal(date) {
		return // Existing value wins
	}
	s.dates = append(s.dates, time.Time{})
	copy(s.dates[i+1:], s.dates[i:])
	s.dates[i] = date
	s.closes = append(s.closes, 0)
	copy(s.closes[i+1:], s.closes[i:])
	s.closes[i] = close
}

// AsOf returns the close of the latest point with date <= the given date.
// The boolean is false when the series is empty or every point is later.
func (s *Series) AsOf(date time.Time) (float64, bool) {
	date = domain.Day(date)

	// Rightmost entry <= date: search for the first entry after it.
	i := sort.Search(len(s.dates), func(i int) bool { return s.dates[i].After(date) })
	if i == 0 {
		return 0, false
	}
	return s.closes[i-1], true
}

// Has reports whether an exact point for the date exists.
func (s *Series) Has(date time.Time) bool {
	date = domain.Day(date)
	i := sort.Search(len(s.dates), func(i int) bool { return !s.dates[i].Before(date) })
	return i < len(s.dates) && s.dates[i].Equal(date)
}

// First returns the earliest date in the series.
func (s *Series) First() (time.Time, bool) {
	if len(s.dates) == 0 {
		return time.Time{}, false
	}
	return s.dates[0], true
}

// Last returns the latest date in the series.
func (s *Series) Last() (time.Time, bool) {
	if len(s.dates) == 0 {
		return time.Time{}, false
	}
	return s.dates[len(s.dates)-1], true
}

// Catalog maps tickers to their price series for one recompute run.
type Catalog struct {
	series map[string]*Series
}

// NewCatalog creates an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{series: make(map[string]*Series)}
}

// Get returns the series for a ticker, creating an empty one on first use.
func (c *Catalog) Get(ticker string) *Series {
	s, ok := c.series[ticker]
	if !ok {
		s = NewSeries(ticker)
		c.series[ticker] = s
	}
	return s
}

// Put installs a fully built series, replacing any existing one.
func (c *Catalog) Put(s *Series) {
	c.series[s.ticker] = s
}

// PriceAsOf is the catalog-level as-of lookup: the close of instrument
// ticker at the greatest known date <= date, or ErrNoPrice if none exists.
func (c *Catalog) PriceAsOf(ticker string, date time.Time) (float64, error) {
	s, ok := c.series[ticker]
	if !ok {
		return 0, domain.NoPriceError(ticker, date)
	}
	close, ok := s.AsOf(date)
	if !ok {
		return 0, domain.NoPriceError(ticker, date)
	}
	return close, nil
}

// Tickers returns the instruments present in the catalog, sorted.
func (c *Catalog) Tickers() []string {
	tickers := make([]string, 0, len(c.series))
	for t := range c.series {
		tickers = append(tickers, t)
	}
	sort.Strings(tickers)
	return tickers
}
