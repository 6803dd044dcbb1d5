package valuation

import (
	"sort"
	"time"

	"github.com/oskarw/folio/internal/domain"
)

// AllocationSlice is one instrument's share of portfolio value at a date.
type AllocationSlice struct {
	Ticker  string
	Value   float64
	Percent float64
}

// Allocation returns the percentage breakdown of holdings value at a date,
// largest first. Instruments without an available price are excluded from
// both the numerator and the total, so under full price coverage the
// percentages sum to 100 up to rounding.
func (s *Service) Allocation(date time.Time) ([]AllocationSlice, error) {
	date = domain.Day(date)

	holdings, err := s.snapshots.HoldingsAt(date)
	if err != nil {
		return nil, err
	}
	if len(holdings) == 0 {
		return nil, nil
	}

	var slices []AllocationSlice
	var total float64
	for ticker, shares := range holdings {
		if shares <= 0 {
			continue
		}
		price, err := s.catalog.PriceAsOf(ticker, date)
		if err != nil {
			s.log.Debug().
				Str("ticker", ticker).
				Str("date", domain.FormatDate(date)).
				Msg("No price for allocation, instrument excluded")
			continue
		}
		value := float64(shares) * price
		slices = append(slices, AllocationSlice{Ticker: ticker, Value: value})
		total += value
	}

	if total == 0 {
		return nil, nil
	}
	for i := range slices {
		slices[i].Percent = slices[i].Value / total * 100
	}

	sort.Slice(slices, func(i, j int) bool {
		if slices[i].Value != slices[j].Value {
			return slices[i].Value > slices[j].Value
		}
		return slices[i].Ticker < slices[j].Ticker
	})

	return slices, nil
}
