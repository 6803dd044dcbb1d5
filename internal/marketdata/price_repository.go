package marketdata

import (
	"database/sql"
	"fmt"

	"github.com/oskarw/folio/internal/domain"
	"github.com/rs/zerolog"
)

// PriceRepository handles the append-only prices table in history.db.
// One close per (ticker, date); existing rows are never overwritten.
type PriceRepository struct {
	historyDB *sql.DB
	log       zerolog.Logger
}

// NewPriceRepository creates a new price repository
func NewPriceRepository(historyDB *sql.DB, log zerolog.Logger) *PriceRepository {
	return &PriceRepository{
		historyDB: historyDB,
		log:       log.With().Str("repo", "prices").Logger(),
	}
}

// Insert appends price points. INSERT OR IGNORE keeps the table append-only:
// a re-run over an overlapping range never duplicates or overwrites rows.
func (r *PriceRepository) Insert(points []domain.PricePoint) error {
	if len(points) == 0 {
		return nil
	}

	tx, err := r.historyDB.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin price insert: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	stmt, err := tx.Prepare("INSERT OR IGNORE INTO prices (ticker, date, close) VALUES (?, ?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare price insert: %w", err)
	}
	defer stmt.Close()

	for _, p := range points {
		if _, err := stmt.Exec(p.Ticker, domain.FormatDate(p.Date), p.Close); err != nil {
			return fmt.Errorf("failed to insert price %s %s: %w", p.Ticker, domain.FormatDate(p.Date), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit price insert: %w", err)
	}

	return nil
}

// LoadSeries returns the full ascending series for one instrument.
func (r *PriceRepository) LoadSeries(ticker string) (*Series, error) {
	rows, err := r.historyDB.Query(
		"SELECT date, close FROM prices WHERE ticker = ? ORDER BY date ASC",
		ticker,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query prices for %s: %w", ticker, err)
	}
	defer rows.Close()

	series := NewSeries(ticker)
	for rows.Next() {
		var dateStr string
		var close float64
		if err := rows.Scan(&dateStr, &close); err != nil {
			return nil, fmt.Errorf("failed to scan price row: %w", err)
		}
		date, err := domain.ParseDate(dateStr)
		if err != nil {
			return nil, fmt.Errorf("corrupt date %q in prices for %s: %w", dateStr, ticker, err)
		}
		series.Append(date, close)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating prices for %s: %w", ticker, err)
	}

	return series, nil
}

// LoadCatalog builds the in-memory as-of index for the given instruments.
func (r *PriceRepository) LoadCatalog(tickers []string) (*Catalog, error) {
	catalog := NewCatalog()
	for _, ticker := range tickers {
		series, err := r.LoadSeries(ticker)
		if err != nil {
			return nil, err
		}
		if series.Len() > 0 {
			catalog.Put(series)
		}
	}
	return catalog, nil
}

// LastDate returns the latest known price date for an instrument,
// or ok=false when the series is empty.
func (r *PriceRepository) LastDate(ticker string) (string, bool, error) {
	var dateStr sql.NullString
	err := r.historyDB.QueryRow(
		"SELECT MAX(date) FROM prices WHERE ticker = ?", ticker,
	).Scan(&dateStr)
	if err != nil {
		return "", false, fmt.Errorf("failed to get last price date for %s: %w", ticker, err)
	}
	if !dateStr.Valid {
		return "", false, nil
	}
	return dateStr.String, true, nil
}

// DividendRepository handles the append-only dividends table in history.db.
type DividendRepository struct {
	historyDB *sql.DB
	log       zerolog.Logger
}

// NewDividendRepository creates a new dividend repository
func NewDividendRepository(historyDB *sql.DB, log zerolog.Logger) *DividendRepository {
	return &DividendRepository{
		historyDB: historyDB,
		log:       log.With().Str("repo", "dividends").Logger(),
	}
}

// Insert appends dividend events, ignoring already-known (ticker, date) rows.
func (r *DividendRepository) Insert(events []domain.DividendEvent) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := r.historyDB.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin dividend insert: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.Prepare("INSERT OR IGNORE INTO dividends (ticker, date, amount, currency) VALUES (?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare dividend insert: %w", err)
	}
	defer stmt.Close()

	for _, d := range events {
		if _, err := stmt.Exec(d.Ticker, domain.FormatDate(d.Date), d.Amount, d.Currency); err != nil {
			return fmt.Errorf("failed to insert dividend %s %s: %w", d.Ticker, domain.FormatDate(d.Date), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit dividend insert: %w", err)
	}

	return nil
}

// LoadRange returns dividend events for all instruments within [from, to],
// ordered by date then ticker.
func (r *DividendRepository) LoadRange(from, to string) ([]domain.DividendEvent, error) {
	rows, err := r.historyDB.Query(
		"SELECT ticker, date, amount, currency FROM dividends WHERE date >= ? AND date <= ? ORDER BY date ASC, ticker ASC",
		from, to,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query dividends: %w", err)
	}
	defer rows.Close()

	var events []domain.DividendEvent
	for rows.Next() {
		var d domain.DividendEvent
		var dateStr string
		if err := rows.Scan(&d.Ticker, &dateStr, &d.Amount, &d.Currency); err != nil {
			return nil, fmt.Errorf("failed to scan dividend row: %w", err)
		}
		d.Date, err = domain.ParseDate(dateStr)
		if err != nil {
			return nil, fmt.Errorf("corrupt date %q in dividends: %w", dateStr, err)
		}
		events = append(events, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating dividends: %w", err)
	}

	return events, nil
}
