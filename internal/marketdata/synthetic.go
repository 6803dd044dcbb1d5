package marketdata

import (
	"fmt"
	"time"

	"github.com/oskarw/folio/internal/domain"
	"github.com/oskarw/folio/internal/ledger"
	"github.com/rs/zerolog"
)

// SyntheticPricer fills price gaps for instruments the market data provider
// does not cover yet, using the execution prices stated in the ledger.
//
// Two mechanisms, both subordinate to real market data (INSERT OR IGNORE
// means a fetched close always wins over a synthetic one written later,
// and the fill loop stops at the first real data point):
//
//  1. A stated price is written on its own date and carried forward until
//     real data begins.
//  2. When an instrument has a stated buy price and a later stated sell
//     price, the gap between them is filled by linear interpolation on
//     weekdays, approximating a trading-day series.
type SyntheticPricer struct {
	priceRepo *PriceRepository
	log       zerolog.Logger
}

// NewSyntheticPricer creates a new synthetic pricer
func NewSyntheticPricer(priceRepo *PriceRepository, log zerolog.Logger) *SyntheticPricer {
	return &SyntheticPricer{
		priceRepo: priceRepo,
		log:       log.With().Str("component", "synthetic_pricer").Logger(),
	}
}

// Apply writes synthetic prices derived from the ledger's stated prices.
// Stated prices arrive already collapsed to per-date weighted averages and
// are recorded in the base currency, so no conversion happens here.
func (s *SyntheticPricer) Apply(stated []ledger.StatedPrice, end time.Time) error {
	byTicker := make(map[string][]ledger.StatedPrice)
	for _, sp := range stated {
		byTicker[sp.Ticker] = append(byTicker[sp.Ticker], sp)
	}

	for ticker, prices := range byTicker {
		series, err := s.priceRepo.LoadSeries(ticker)
		if err != nil {
			return err
		}

		var points []domain.PricePoint

		// Interpolate between consecutive stated prices (buy -> sell span).
		for i := 0; i+1 < len(prices); i++ {
			span, err := interpolateWeekdays(ticker, prices[i], prices[i+1])
			if err != nil {
				return err
			}
			for _, p := range span {
				if !series.Has(p.Date) {
					points = append(points, p)
				}
			}
		}

		// Forward-fill the last stated price until real data begins.
		last := prices[len(prices)-1]
		lastDate, err := domain.ParseDate(last.Date)
		if err != nil {
			return fmt.Errorf("invalid stated price date %q for %s: %w", last.Date, ticker, err)
		}
		for d := lastDate; !d.After(end); d = d.AddDate(0, 0, 1) {
			if series.Has(d) {
				break // Real market data takes over from here
			}
			points = append(points, domain.PricePoint{Ticker: ticker, Date: d, Close: last.Price})
		}

		if len(points) == 0 {
			continue
		}
		if err := s.priceRepo.Insert(points); err != nil {
			return err
		}
		s.log.Info().
			Str("ticker", ticker).
			Int("points", len(points)).
			Msg("Synthetic prices written")
	}

	return nil
}

// interpolateWeekdays produces weekday points linearly interpolated between
// two stated prices, endpoints included.
func interpolateWeekdays(ticker string, from, to ledger.StatedPrice) ([]domain.PricePoint, error) {
	start, err := domain.ParseDate(from.Date)
	if err != nil {
		return nil, fmt.Errorf("invalid stated price date %q for %s: %w", from.Date, ticker, err)
	}
	end, err := domain.ParseDate(to.Date)
	if err != nil {
		return nil, fmt.Errorf("invalid stated price date %q for %s: %w", to.Date, ticker, err)
	}
	if !end.After(start) {
		return nil, nil
	}

	total := int(end.Sub(start).Hours() / 24)
	var points []domain.PricePoint
	for i := 0; i <= total; i++ {
		d := start.AddDate(0, 0, i)
		if d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
			continue
		}
		price := from.Price + (to.Price-from.Price)*float64(i)/float64(total)
		points = append(points, domain.PricePoint{Ticker: ticker, Date: d, Close: price})
	}
	return points, nil
}
