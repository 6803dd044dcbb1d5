// Package valuation aggregates reconstructed snapshots into a portfolio
// value series and derives the comparative metrics the dashboard shows:
// percent-change windows, allocation breakdown, benchmark overlays, and
// chart axis bounds.
package valuation

import (
	"time"

	"github.com/oskarw/folio/internal/domain"
	"github.com/oskarw/folio/internal/marketdata"
	"github.com/oskarw/folio/internal/reconstruction"
	"github.com/rs/zerolog"
)

// Service computes portfolio values from persisted snapshots and the price
// catalog.
type Service struct {
	snapshots *reconstruction.SnapshotRepository
	catalog   *marketdata.Catalog
	log       zerolog.Logger
}

// NewService creates a new valuation service
func NewService(
	snapshots *reconstruction.SnapshotRepository,
	catalog *marketdata.Catalog,
	log zerolog.Logger,
) *Service {
	return &Service{
		snapshots: snapshots,
		catalog:   catalog,
		log:       log.With().Str("service", "valuation").Logger(),
	}
}

// ValueSeries returns the daily total value over [from, to], clamped to the
// reconstructed range: totalValue(d) = cash(d) + sum of shares x as-of price.
//
// An instrument with no available price is omitted from the sum, not counted
// as zero: absence of data is not worthlessness. A range that precedes all
// reconstructed data yields an empty series, not an error.
func (s *Service) ValueSeries(from, to time.Time) ([]domain.ValuePoint, error) {
	from, to = domain.Day(from), domain.Day(to)

	first, ok, err := s.snapshots.FirstCashDate()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil // Nothing reconstructed yet
	}
	last, _, err := s.snapshots.LastCashDate()
	if err != nil {
		return nil, err
	}

	if from.Before(first) {
		from = first
	}
	if to.After(last) {
		to = last
	}
	if to.Before(from) {
		// Requested range precedes (or follows) all reconstructed data.
		return nil, nil
	}

	holdingsByDate, cashByDate, err := s.snapshots.LoadRange(from, to)
	if err != nil {
		return nil, err
	}

	var series []domain.ValuePoint
	for day := from; !day.After(to); day = day.AddDate(0, 0, 1) {
		key := domain.FormatDate(day)

		value := cashByDate[key]
		for ticker, shares := range holdingsByDate[key] {
			price, err := s.catalog.PriceAsOf(ticker, day)
			if err != nil {
				// No price as of this date: omit the instrument from the sum.
				s.log.Debug().
					Str("ticker", ticker).
					Str("date", key).
					Msg("No price for valuation, instrument omitted")
				continue
			}
			value += float64(shares) * price
		}

		series = append(series, domain.ValuePoint{Date: day, Value: value})
	}

	return series, nil
}

// FullSeries returns the value series over the whole reconstructed range.
func (s *Service) FullSeries() ([]domain.ValuePoint, error) {
	first, ok, err := s.snapshots.FirstCashDate()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	last, _, err := s.snapshots.LastCashDate()
	if err != nil {
		return nil, err
	}
	return s.ValueSeries(first, last)
}

// LatestCash returns the cash balance on the latest reconstructed date.
func (s *Service) LatestCash() (float64, error) {
	last, ok, err := s.snapshots.LastCashDate()
	if err != nil || !ok {
		return 0, err
	}
	cash, _, err := s.snapshots.CashAt(last)
	return cash, err
}
