// Package fx converts amounts between currencies using date-indexed exchange
// rate series supplied by an external collaborator.
package fx

import (
	"fmt"
	"sort"
	"time"

	"github.com/oskarw/folio/internal/domain"
	"github.com/rs/zerolog"
)

// RatePoint is one exchange rate on a calendar day.
type RatePoint struct {
	Date time.Time
	Rate float64
}

// RateProvider supplies a date->rate series for a currency pair over a range.
// GBp (pence) sources are expected to be normalized by the provider wrapper
// below, not by callers.
type RateProvider interface {
	FetchRates(from, to string, start, end time.Time) ([]RatePoint, error)
}

// Converter performs as-of currency conversion into a base currency.
//
// The rate cache is explicitly scoped: a Converter is constructed per
// recompute run and discarded with it. There is no module-level shared state.
type Converter struct {
	base     string
	provider RateProvider
	cache    map[string][]RatePoint // pair key -> ascending rate series
	log      zerolog.Logger
}

// NewConverter creates a converter into the given base currency.
func NewConverter(base string, provider RateProvider, log zerolog.Logger) *Converter {
	return &Converter{
		base:     base,
		provider: provider,
		cache:    make(map[string][]RatePoint),
		log:      log.With().Str("component", "fx_converter").Logger(),
	}
}

// Base returns the base currency code.
func (c *Converter) Base() string { return c.base }

// Preload fetches and caches the rate series for a currency over [start, end].
// Same-currency pairs are free and never fetched.
func (c *Converter) Preload(currency string, start, end time.Time) error {
	if currency == "" || currency == c.base {
		return nil
	}

	key := pairKey(currency, c.base)
	if _, ok := c.cache[key]; ok {
		return nil
	}

	fetchCurrency := currency
	pence := false
	if currency == "GBp" {
		// Pence quotes: fetch the pound series and divide amounts by 100.
		fetchCurrency = "GBP"
		pence = true
	}

	rates, err := c.provider.FetchRates(fetchCurrency, c.base, start, end)
	if err != nil {
		return fmt.Errorf("failed to fetch %s->%s rates: %w", currency, c.base, err)
	}
	if len(rates) == 0 {
		return fmt.Errorf("no %s->%s rates available between %s and %s",
			currency, c.base, domain.FormatDate(start), domain.FormatDate(end))
	}

	sort.Slice(rates, func(i, j int) bool { return rates[i].Date.Before(rates[j].Date) })
	if pence {
		for i := range rates {
			rates[i].Rate /= 100
		}
	}

	c.cache[key] = rates
	c.log.Debug().
		Str("pair", key).
		Int("points", len(rates)).
		Msg("Rate series cached")

	return nil
}

// RateAsOf returns the rate from currency into the base currency at the
// given date, forward-filled from the nearest prior date. If the date
// precedes the whole series the first known rate is used (back-fill), since
// a missing early rate must not zero out a conversion.
func (c *Converter) RateAsOf(currency string, date time.Time) (float64, error) {
	if currency == "" || currency == c.base {
		return 1.0, nil
	}

	rates, ok := c.cache[pairKey(currency, c.base)]
	if !ok {
		return 0, fmt.Errorf("no rate series loaded for %s->%s (missing Preload)", currency, c.base)
	}

	date = domain.Day(date)
	i := sort.Search(len(rates), func(i int) bool { return rates[i].Date.After(date) })
	if i == 0 {
		return rates[0].Rate, nil
	}
	return rates[i-1].Rate, nil
}

// Convert converts an amount from currency into the base currency using the
// rate as of the given date.
func (c *Converter) Convert(amount float64, currency string, date time.Time) (float64, error) {
	rate, err := c.RateAsOf(currency, date)
	if err != nil {
		return 0, err
	}
	return amount * rate, nil
}

func pairKey(from, to string) string {
	return from + ":" + to
}
