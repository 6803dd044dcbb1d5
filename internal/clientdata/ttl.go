package clientdata

import "time"

// Cache TTLs per data source. Chart data moves intraday so it expires fast;
// a day's exchange rates are final once published.
const (
	TTLYahooChart   = 1 * time.Hour
	TTLExchangeRate = 24 * time.Hour
)
