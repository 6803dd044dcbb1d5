package reconstruction

import (
	"context"
	"fmt"
	"time"

	"github.com/oskarw/folio/internal/dividends"
	"github.com/oskarw/folio/internal/domain"
	"github.com/oskarw/folio/internal/marketdata"
	"github.com/rs/zerolog"
)

// State is the engine's per-day state: the running cash balance and the
// running share count per instrument.
type State struct {
	Cash     float64
	Holdings map[string]int
}

// NewState creates a fresh state with the given starting cash.
func NewState(startingCash float64) *State {
	return &State{Cash: startingCash, Holdings: make(map[string]int)}
}

// Report summarizes one engine run.
type Report struct {
	From                time.Time
	To                  time.Time
	DaysProcessed       int
	SkippedTransactions int // Transactions without a usable as-of price
	SkippedDividends    int // Dividends without an eligible holder
	Stopped             bool // True when cancellation ended the run early
}

// Engine is the day-stepping state machine producing holdings and cash
// snapshots over a date range. The only states are "processing day d" ->
// "processing day d+1", terminal at the range end.
type Engine struct {
	catalog    *marketdata.Catalog
	attributor *dividends.Attributor
	snapshots  *SnapshotRepository
	log        zerolog.Logger
}

// NewEngine creates a new reconstruction engine
func NewEngine(
	catalog *marketdata.Catalog,
	attributor *dividends.Attributor,
	snapshots *SnapshotRepository,
	log zerolog.Logger,
) *Engine {
	return &Engine{
		catalog:    catalog,
		attributor: attributor,
		snapshots:  snapshots,
		log:        log.With().Str("component", "reconstruction_engine").Logger(),
	}
}

// ResumeState loads the initial state for an incremental build: the cash
// balance and holdings persisted at the day before from. ok=false means
// nothing is persisted there and the caller should run a fresh build.
func (e *Engine) ResumeState(from time.Time) (*State, bool, error) {
	prev := from.AddDate(0, 0, -1)

	cash, ok, err := e.snapshots.CashAt(prev)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}

	holdings, err := e.snapshots.HoldingsAt(prev)
	if err != nil {
		return nil, false, err
	}

	return &State{Cash: cash, Holdings: holdings}, true, nil
}

// Run steps one calendar day at a time over [from, to], mutating state and
// persisting a snapshot per day. Transactions and dividend events must cover
// the range; both are applied in date order, dividends after same-day
// transactions.
//
// Cancellation is checked at day boundaries only: the day in progress always
// completes, then the run stops cleanly.
func (e *Engine) Run(
	ctx context.Context,
	state *State,
	txs []domain.Transaction,
	divs []domain.DividendEvent,
	from, to time.Time,
) (*Report, error) {
	if state == nil {
		return nil, fmt.Errorf("nil state")
	}
	from, to = domain.Day(from), domain.Day(to)
	if to.Before(from) {
		return nil, fmt.Errorf("invalid range: %s after %s", domain.FormatDate(from), domain.FormatDate(to))
	}

	txsByDate := groupTransactions(txs)
	divsByDate := groupDividends(divs)

	report := &Report{From: from, To: to}

	for day := from; !day.After(to); day = day.AddDate(0, 0, 1) {
		e.processDay(day, state, txsByDate, divsByDate, report)

		if err := e.snapshots.SaveDay(day, positiveHoldings(state.Holdings), state.Cash); err != nil {
			return report, err
		}
		report.DaysProcessed++

		if ctx.Err() != nil {
			// Let the current day finish, then stop.
			report.Stopped = true
			e.log.Warn().
				Str("last_day", domain.FormatDate(day)).
				Msg("Reconstruction cancelled at day boundary")
			return report, nil
		}
	}

	e.log.Info().
		Str("from", domain.FormatDate(from)).
		Str("to", domain.FormatDate(to)).
		Int("days", report.DaysProcessed).
		Int("skipped_transactions", report.SkippedTransactions).
		Msg("Reconstruction complete")

	return report, nil
}

// processDay applies one day's transactions, then its dividends.
func (e *Engine) processDay(
	day time.Time,
	state *State,
	txsByDate map[string][]domain.Transaction,
	divsByDate map[string][]domain.DividendEvent,
	report *Report,
) {
	key := domain.FormatDate(day)

	for _, tx := range txsByDate[key] {
		price, err := e.catalog.PriceAsOf(tx.Ticker, day)
		if err != nil {
			// Missing price skips the transaction's full effect, shares and
			// cash both, so the cash recurrence stays consistent.
			report.SkippedTransactions++
			e.log.Warn().
				Str("ticker", tx.Ticker).
				Str("date", key).
				Str("side", string(tx.Side)).
				Int("quantity", tx.Quantity).
				Msg("No price as of transaction date, skipping transaction")
			continue
		}

		value := float64(tx.Quantity) * price
		switch tx.Side {
		case domain.Buy:
			state.Holdings[tx.Ticker] += tx.Quantity
			state.Cash -= value
		case domain.Sell:
			state.Holdings[tx.Ticker] -= tx.Quantity
			state.Cash += value
		}
	}

	// Dividends apply after same-day transactions: a same-day buy
	// participates in that day's dividend.
	for _, div := range divsByDate[key] {
		cash, err := e.attributor.CashFor(div, state.Holdings[div.Ticker])
		if err != nil {
			if dividends.IsSkippable(err) {
				report.SkippedDividends++
				e.log.Debug().
					Str("ticker", div.Ticker).
					Str("date", key).
					Msg("Dividend without eligible holder, skipping")
				continue
			}
			// Conversion failures degrade like missing prices: skip and log,
			// never abort the batch.
			report.SkippedDividends++
			e.log.Warn().
				Err(err).
				Str("ticker", div.Ticker).
				Str("date", key).
				Msg("Dividend attribution failed, skipping")
			continue
		}
		state.Cash += cash
	}
}

// positiveHoldings filters to counts > 0; zero positions are not persisted,
// which is what makes a sold-out instrument disappear from snapshots.
func positiveHoldings(holdings map[string]int) map[string]int {
	out := make(map[string]int, len(holdings))
	for ticker, shares := range holdings {
		if shares > 0 {
			out[ticker] = shares
		}
	}
	return out
}

func groupTransactions(txs []domain.Transaction) map[string][]domain.Transaction {
	grouped := make(map[string][]domain.Transaction)
	for _, tx := range txs {
		key := domain.FormatDate(tx.Date)
		grouped[key] = append(grouped[key], tx)
	}
	return grouped
}

func groupDividends(divs []domain.DividendEvent) map[string][]domain.DividendEvent {
	grouped := make(map[string][]domain.DividendEvent)
	for _, d := range divs {
		key := domain.FormatDate(d.Date)
		grouped[key] = append(grouped[key], d)
	}
	return grouped
}
