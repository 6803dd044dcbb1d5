package marketdata

import (
	"sort"
	"sync"
	"time"

	"github.com/oskarw/folio/internal/domain"
	"github.com/oskarw/folio/internal/fx"
	"github.com/rs/zerolog"
)

// InstrumentData is the raw market data for one instrument over a range,
// in the instrument's native currency.
type InstrumentData struct {
	Ticker    string
	Currency  string // Native trading currency (e.g. "USD", "SEK", "GBp")
	Prices    []domain.PricePoint
	Dividends []domain.DividendEvent
}

// Provider is the external market data collaborator: a queryable close-price
// and dividend series per instrument.
type Provider interface {
	Fetch(ticker string, start, end time.Time) (*InstrumentData, error)
}

// SyncService fetches market data for all ledger instruments, converts it to
// the base currency, and appends it to history.db.
//
// Fetches for different instruments are independent and run in parallel. A
// per-instrument failure is isolated: it is logged and reported, and that
// instrument is simply absent from valuation for the affected dates. The
// day loop must not start until Sync has returned.
type SyncService struct {
	provider     Provider
	priceRepo    *PriceRepository
	dividendRepo *DividendRepository
	converter    *fx.Converter
	log          zerolog.Logger
}

// NewSyncService creates a new market data sync service
func NewSyncService(
	provider Provider,
	priceRepo *PriceRepository,
	dividendRepo *DividendRepository,
	converter *fx.Converter,
	log zerolog.Logger,
) *SyncService {
	return &SyncService{
		provider:     provider,
		priceRepo:    priceRepo,
		dividendRepo: dividendRepo,
		converter:    converter,
		log:          log.With().Str("service", "marketdata_sync").Logger(),
	}
}

// Sync fetches [start, end] for every ticker and persists the results.
// The returned slice holds the per-instrument failures; it is empty on a
// clean run and never causes a non-nil error by itself.
func (s *SyncService) Sync(tickers []string, start, end time.Time) []*domain.FetchError {
	type result struct {
		data *InstrumentData
		err  *domain.FetchError
	}

	results := make([]result, len(tickers))
	var wg sync.WaitGroup

	for i, ticker := range tickers {
		wg.Add(1)
		go func(i int, ticker string) {
			defer wg.Done()
			data, err := s.provider.Fetch(ticker, start, end)
			if err != nil {
				results[i] = result{err: &domain.FetchError{Ticker: ticker, Err: err}}
				return
			}
			results[i] = result{data: data}
		}(i, ticker)
	}
	wg.Wait()

	var failures []*domain.FetchError
	for _, res := range results {
		if res.err != nil {
			s.log.Warn().
				Err(res.err).
				Str("ticker", res.err.Ticker).
				Msg("Market data fetch failed, instrument excluded from this sync")
			failures = append(failures, res.err)
			continue
		}
		if err := s.persist(res.data); err != nil {
			// Persistence failures are isolated the same way fetch failures are.
			fe := &domain.FetchError{Ticker: res.data.Ticker, Err: err}
			s.log.Warn().Err(err).Str("ticker", res.data.Ticker).Msg("Failed to persist market data")
			failures = append(failures, fe)
		}
	}

	return failures
}

// persist converts one instrument's data to the base currency and appends it.
func (s *SyncService) persist(data *InstrumentData) error {
	if len(data.Prices) == 0 && len(data.Dividends) == 0 {
		return nil
	}

	if data.Currency != "" && data.Currency != s.converter.Base() {
		first, last := dataRange(data)
		if err := s.converter.Preload(data.Currency, first, last); err != nil {
			return err
		}
	}

	prices := make([]domain.PricePoint, 0, len(data.Prices))
	for _, p := range data.Prices {
		if p.Close <= 0 {
			continue // Provider glitch rows carry no information
		}
		converted, err := s.converter.Convert(p.Close, data.Currency, p.Date)
		if err != nil {
			return err
		}
		prices = append(prices, domain.PricePoint{Ticker: data.Ticker, Date: p.Date, Close: converted})
	}

	dividends := make([]domain.DividendEvent, 0, len(data.Dividends))
	for _, d := range data.Dividends {
		if d.Amount <= 0 {
			continue
		}
		converted, err := s.converter.Convert(d.Amount, data.Currency, d.Date)
		if err != nil {
			return err
		}
		dividends = append(dividends, domain.DividendEvent{
			Ticker: data.Ticker,
			Date:   d.Date,
			Amount: converted,
			// Stored pre-converted; attribution treats empty as base currency.
		})
	}

	if err := s.priceRepo.Insert(prices); err != nil {
		return err
	}
	if err := s.dividendRepo.Insert(dividends); err != nil {
		return err
	}

	s.log.Info().
		Str("ticker", data.Ticker).
		Int("prices", len(prices)).
		Int("dividends", len(dividends)).
		Msg("Market data synced")

	return nil
}

// dataRange returns the earliest and latest dates across prices and dividends.
func dataRange(data *InstrumentData) (time.Time, time.Time) {
	var dates []time.Time
	for _, p := range data.Prices {
		dates = append(dates, p.Date)
	}
	for _, d := range data.Dividends {
		dates = append(dates, d.Date)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return dates[0], dates[len(dates)-1]
}
