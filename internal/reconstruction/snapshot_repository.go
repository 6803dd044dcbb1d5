// Package reconstruction rebuilds daily portfolio state (holdings and cash)
// from the transaction ledger and the market data series.
package reconstruction

import (
	"database/sql"
	"fmt"
	"sort"
	"time"

	"github.com/oskarw/folio/internal/domain"
	"github.com/rs/zerolog"
)

// SnapshotRepository persists reconstructed daily state in portfolio.db.
// Snapshots and cash balances are produced once per date and are append-only:
// INSERT OR IGNORE makes re-runs over overlapping ranges idempotent skips,
// never overwrites. Only an explicit Reset discards existing rows.
type SnapshotRepository struct {
	portfolioDB *sql.DB
	log         zerolog.Logger
}

// NewSnapshotRepository creates a new snapshot repository
func NewSnapshotRepository(portfolioDB *sql.DB, log zerolog.Logger) *SnapshotRepository {
	return &SnapshotRepository{
		portfolioDB: portfolioDB,
		log:         log.With().Str("repo", "snapshots").Logger(),
	}
}

// SaveDay persists one day's holdings and cash balance in a single
// transaction. Holdings with non-positive counts must not reach this point.
func (r *SnapshotRepository) SaveDay(date time.Time, holdings map[string]int, cash float64) error {
	dateStr := domain.FormatDate(date)

	tx, err := r.portfolioDB.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin snapshot save: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	stmt, err := tx.Prepare("INSERT OR IGNORE INTO holdings (date, ticker, shares) VALUES (?, ?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare holding insert: %w", err)
	}
	defer stmt.Close()

	for ticker, shares := range holdings {
		if _, err := stmt.Exec(dateStr, ticker, shares); err != nil {
			return fmt.Errorf("failed to insert holding %s %s: %w", ticker, dateStr, err)
		}
	}

	if _, err := tx.Exec("INSERT OR IGNORE INTO cash (date, balance) VALUES (?, ?)", dateStr, cash); err != nil {
		return fmt.Errorf("failed to insert cash balance %s: %w", dateStr, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit snapshot save: %w", err)
	}

	return nil
}

// LastCashDate returns the latest reconstructed date, or ok=false for an
// empty store. Incremental builds resume from the day after.
func (r *SnapshotRepository) LastCashDate() (time.Time, bool, error) {
	var dateStr sql.NullString
	err := r.portfolioDB.QueryRow("SELECT MAX(date) FROM cash").Scan(&dateStr)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("failed to get last cash date: %w", err)
	}
	if !dateStr.Valid {
		return time.Time{}, false, nil
	}
	date, err := domain.ParseDate(dateStr.String)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("corrupt date %q in cash table: %w", dateStr.String, err)
	}
	return date, true, nil
}

// FirstCashDate returns the earliest reconstructed date.
func (r *SnapshotRepository) FirstCashDate() (time.Time, bool, error) {
	var dateStr sql.NullString
	err := r.portfolioDB.QueryRow("SELECT MIN(date) FROM cash").Scan(&dateStr)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("failed to get first cash date: %w", err)
	}
	if !dateStr.Valid {
		return time.Time{}, false, nil
	}
	date, err := domain.ParseDate(dateStr.String)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("corrupt date %q in cash table: %w", dateStr.String, err)
	}
	return date, true, nil
}

// CashAt returns the balance persisted for an exact date.
func (r *SnapshotRepository) CashAt(date time.Time) (float64, bool, error) {
	var balance float64
	err := r.portfolioDB.QueryRow(
		"SELECT balance FROM cash WHERE date = ?", domain.FormatDate(date),
	).Scan(&balance)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to get cash at %s: %w", domain.FormatDate(date), err)
	}
	return balance, true, nil
}

// HoldingsAt returns the ticker->shares snapshot persisted for an exact date.
// An empty map is a valid result: a date with cash but no positions.
func (r *SnapshotRepository) HoldingsAt(date time.Time) (map[string]int, error) {
	rows, err := r.portfolioDB.Query(
		"SELECT ticker, shares FROM holdings WHERE date = ?", domain.FormatDate(date),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get holdings at %s: %w", domain.FormatDate(date), err)
	}
	defer rows.Close()

	holdings := make(map[string]int)
	for rows.Next() {
		var ticker string
		var shares int
		if err := rows.Scan(&ticker, &shares); err != nil {
			return nil, fmt.Errorf("failed to scan holding row: %w", err)
		}
		holdings[ticker] = shares
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating holdings: %w", err)
	}

	return holdings, nil
}

// LoadRange returns the per-date holdings and cash over [from, to], keyed by
// YYYY-MM-DD, for the valuation pass.
func (r *SnapshotRepository) LoadRange(from, to time.Time) (map[string]map[string]int, map[string]float64, error) {
	fromStr, toStr := domain.FormatDate(from), domain.FormatDate(to)

	holdingRows, err := r.portfolioDB.Query(
		"SELECT date, ticker, shares FROM holdings WHERE date >= ? AND date <= ?", fromStr, toStr,
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to query holdings range: %w", err)
	}
	defer holdingRows.Close()

	holdings := make(map[string]map[string]int)
	for holdingRows.Next() {
		var date, ticker string
		var shares int
		if err := holdingRows.Scan(&date, &ticker, &shares); err != nil {
			return nil, nil, fmt.Errorf("failed to scan holding row: %w", err)
		}
		if holdings[date] == nil {
			holdings[date] = make(map[string]int)
		}
		holdings[date][ticker] = shares
	}
	if err := holdingRows.Err(); err != nil {
		return nil, nil, fmt.Errorf("error iterating holdings range: %w", err)
	}

	cashRows, err := r.portfolioDB.Query(
		"SELECT date, balance FROM cash WHERE date >= ? AND date <= ?", fromStr, toStr,
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to query cash range: %w", err)
	}
	defer cashRows.Close()

	cash := make(map[string]float64)
	for cashRows.Next() {
		var date string
		var balance float64
		if err := cashRows.Scan(&date, &balance); err != nil {
			return nil, nil, fmt.Errorf("failed to scan cash row: %w", err)
		}
		cash[date] = balance
	}
	if err := cashRows.Err(); err != nil {
		return nil, nil, fmt.Errorf("error iterating cash range: %w", err)
	}

	return holdings, cash, nil
}

// CurrentTickers returns the instruments held on the latest reconstructed
// date, sorted by share count descending.
func (r *SnapshotRepository) CurrentTickers() ([]string, error) {
	rows, err := r.portfolioDB.Query(`
		SELECT ticker FROM holdings
		WHERE date = (SELECT MAX(date) FROM holdings)
		ORDER BY shares DESC, ticker ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query current tickers: %w", err)
	}
	defer rows.Close()

	var tickers []string
	for rows.Next() {
		var ticker string
		if err := rows.Scan(&ticker); err != nil {
			return nil, fmt.Errorf("failed to scan ticker: %w", err)
		}
		tickers = append(tickers, ticker)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating current tickers: %w", err)
	}

	return tickers, nil
}

// AllTickers returns every instrument that ever appeared in a snapshot.
func (r *SnapshotRepository) AllTickers() ([]string, error) {
	rows, err := r.portfolioDB.Query("SELECT DISTINCT ticker FROM holdings")
	if err != nil {
		return nil, fmt.Errorf("failed to query all tickers: %w", err)
	}
	defer rows.Close()

	var tickers []string
	for rows.Next() {
		var ticker string
		if err := rows.Scan(&ticker); err != nil {
			return nil, fmt.Errorf("failed to scan ticker: %w", err)
		}
		tickers = append(tickers, ticker)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating all tickers: %w", err)
	}

	sort.Strings(tickers)
	return tickers, nil
}

// Reset discards all reconstructed state. Only called on an explicit
// full-reset request; normal recomputes never overwrite existing rows.
func (r *SnapshotRepository) Reset() error {
	tx, err := r.portfolioDB.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin reset: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.Exec("DELETE FROM holdings"); err != nil {
		return fmt.Errorf("failed to clear holdings: %w", err)
	}
	if _, err := tx.Exec("DELETE FROM cash"); err != nil {
		return fmt.Errorf("failed to clear cash: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit reset: %w", err)
	}

	r.log.Warn().Msg("Reconstructed state reset")
	return nil
}
