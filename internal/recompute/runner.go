// Package recompute orchestrates the full valuation batch: sync market
// data, reconstruct holdings and cash, derive metrics, write the dashboard
// cache. The batch is a single logical job: conceptually single-threaded
// (only the external fetches fan out), idempotent, and bit-identical when
// re-run over the same inputs and range.
package recompute

import (
	"context"
	"fmt"
	"time"

	"github.com/oskarw/folio/internal/cache"
	"github.com/oskarw/folio/internal/config"
	"github.com/oskarw/folio/internal/dividends"
	"github.com/oskarw/folio/internal/domain"
	"github.com/oskarw/folio/internal/fx"
	"github.com/oskarw/folio/internal/ledger"
	"github.com/oskarw/folio/internal/marketdata"
	"github.com/oskarw/folio/internal/reconstruction"
	"github.com/oskarw/folio/internal/valuation"
	"github.com/rs/zerolog"
)

// Options control one batch run.
type Options struct {
	FullReset bool      // Discard reconstructed state and rebuild from scratch
	Now       time.Time // Injected "today"; zero means time.Now
}

// Runner executes the recompute batch.
type Runner struct {
	cfg          *config.Config
	loader       *ledger.Loader
	provider     marketdata.Provider
	rateProvider fx.RateProvider
	priceRepo    *marketdata.PriceRepository
	dividendRepo *marketdata.DividendRepository
	snapshots    *reconstruction.SnapshotRepository
	cacheStore   *cache.Store
	log          zerolog.Logger
}

// NewRunner creates a new batch runner
func NewRunner(
	cfg *config.Config,
	loader *ledger.Loader,
	provider marketdata.Provider,
	rateProvider fx.RateProvider,
	priceRepo *marketdata.PriceRepository,
	dividendRepo *marketdata.DividendRepository,
	snapshots *reconstruction.SnapshotRepository,
	cacheStore *cache.Store,
	log zerolog.Logger,
) *Runner {
	return &Runner{
		cfg:          cfg,
		loader:       loader,
		provider:     provider,
		rateProvider: rateProvider,
		priceRepo:    priceRepo,
		dividendRepo: dividendRepo,
		snapshots:    snapshots,
		cacheStore:   cacheStore,
		log:          log.With().Str("component", "recompute").Logger(),
	}
}

// Run executes one batch. Per-instrument fetch failures degrade that
// instrument's contribution silently (with a log trail); a corrupt ledger
// fails the batch loudly before any state changes.
func (r *Runner) Run(ctx context.Context, opts Options) error {
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}
	today := domain.Day(now)

	startDate, err := domain.ParseDate(r.cfg.StartDate)
	if err != nil {
		return fmt.Errorf("invalid configured start date: %w", err)
	}

	// 1. Load and validate the ledger. Fatal on any malformed line.
	led, err := r.loader.LoadFile(r.cfg.LedgerPath)
	if err != nil {
		return fmt.Errorf("ledger load failed: %w", err)
	}

	// Per-run FX cache; no state survives the batch.
	converter := fx.NewConverter(r.cfg.BaseCurrency, r.rateProvider, r.log)

	// 2. Sync market data for portfolio instruments and benchmark indices.
	// Parallel per instrument; failures are isolated and the day loop does
	// not start until every fetch has settled.
	sync := marketdata.NewSyncService(r.provider, r.priceRepo, r.dividendRepo, converter, r.log)
	tickers := append(led.Tickers(), r.cfg.BenchmarkTickers...)
	if failures := sync.Sync(tickers, startDate, today); len(failures) > 0 {
		r.log.Warn().
			Int("failed", len(failures)).
			Int("total", len(tickers)).
			Msg("Some instruments failed to sync and are absent from valuation")
	}

	// 3. Fill gaps with synthetic prices from stated ledger prices.
	synthetic := marketdata.NewSyntheticPricer(r.priceRepo, r.log)
	if err := synthetic.Apply(led.StatedPrices, today); err != nil {
		return fmt.Errorf("synthetic pricing failed: %w", err)
	}

	// 4. Build the as-of index once for the whole run.
	catalog, err := r.priceRepo.LoadCatalog(led.Tickers())
	if err != nil {
		return fmt.Errorf("failed to build price catalog: %w", err)
	}

	// 5. Reconstruct: fresh build, or resume after the last persisted day.
	attributor := dividends.NewAttributor(converter, r.log)
	engine := reconstruction.NewEngine(catalog, attributor, r.snapshots, r.log)

	if opts.FullReset {
		if err := r.snapshots.Reset(); err != nil {
			return err
		}
	}

	from := startDate
	state := reconstruction.NewState(r.cfg.StartingCash)

	if last, ok, err := r.snapshots.LastCashDate(); err != nil {
		return err
	} else if ok {
		from = last.AddDate(0, 0, 1)
		resumed, ok, err := engine.ResumeState(from)
		if err != nil {
			return err
		}
		if ok {
			state = resumed
		}
	}

	if !from.After(today) {
		divs, err := r.dividendRepo.LoadRange(domain.FormatDate(from), domain.FormatDate(today))
		if err != nil {
			return err
		}

		report, err := engine.Run(ctx, state, led.Transactions, divs, from, today)
		if err != nil {
			return fmt.Errorf("reconstruction failed: %w", err)
		}
		if report.Stopped {
			r.log.Warn().Msg("Recompute stopped before completing the range; cache not rewritten")
			return ctx.Err()
		}
	} else {
		r.log.Info().Msg("Reconstruction already covers today, nothing to rebuild")
	}

	// 6. Derive metrics and write the cache.
	return r.publish(catalog, today)
}

// publish aggregates the reconstructed state into the dashboard snapshot.
func (r *Runner) publish(catalog *marketdata.Catalog, today time.Time) error {
	svc := valuation.NewService(r.snapshots, catalog, r.log)

	series, err := svc.FullSeries()
	if err != nil {
		return err
	}
	if len(series) == 0 {
		r.log.Warn().Msg("No reconstructed data, writing empty cache snapshot")
		return r.cacheStore.Write(&cache.Snapshot{GeneratedAt: time.Now().UTC()})
	}

	latest := series[len(series)-1]

	history := make([]cache.SeriesPoint, len(series))
	for i, p := range series {
		history[i] = cache.SeriesPoint{Date: domain.FormatDate(p.Date), Value: p.Value}
	}

	benchmarks := make(map[string][]float64)
	for _, ticker := range r.cfg.BenchmarkTickers {
		indexSeries, err := r.priceRepo.LoadSeries(ticker)
		if err != nil {
			return err
		}
		overlay := valuation.BenchmarkOverlay(indexSeries, series, series[0].Value)
		if overlay == nil {
			r.log.Warn().Str("ticker", ticker).Msg("No benchmark data, overlay omitted")
			continue
		}
		benchmarks[ticker] = overlay
	}

	allocation, err := svc.Allocation(latest.Date)
	if err != nil {
		return err
	}
	allocEntries := make([]cache.AllocationEntry, len(allocation))
	for i, slice := range allocation {
		allocEntries[i] = cache.AllocationEntry{Ticker: slice.Ticker, Percent: slice.Percent}
	}

	yMin, yMax := valuation.AxisBounds(series, r.cfg.AxisMagnitude)

	latestCash, err := svc.LatestCash()
	if err != nil {
		return err
	}

	current, err := r.snapshots.CurrentTickers()
	if err != nil {
		return err
	}
	all, err := r.snapshots.AllTickers()
	if err != nil {
		return err
	}
	past := pastOnly(all, current)

	snapshot := &cache.Snapshot{
		GeneratedAt:    time.Now().UTC(),
		LatestValue:    latest.Value,
		LatestCash:     latestCash,
		PercentChanges: valuation.Windows(series, today),
		History:        history,
		Benchmarks:     benchmarks,
		Allocation:     allocEntries,
		YMin:           yMin,
		YMax:           yMax,
		CurrentTickers: current,
		PastTickers:    past,
	}

	return r.cacheStore.Write(snapshot)
}

// pastOnly returns the tickers that appeared historically but are not held now.
func pastOnly(all, current []string) []string {
	held := make(map[string]bool, len(current))
	for _, t := range current {
		held[t] = true
	}
	var past []string
	for _, t := range all {
		if !held[t] {
			past = append(past, t)
		}
	}
	return past
}
