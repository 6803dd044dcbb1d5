// Package ledger loads and validates the append-only transaction record set.
// The ledger file is the read-only input driving reconstruction; every line is
// validated at this boundary so no malformed record reaches the day loop.
package ledger

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/oskarw/folio/internal/domain"
	"github.com/rs/zerolog"
)

// StatedPrice is an explicitly recorded execution price for a ticker/date,
// recorded in the portfolio base currency. Multiple stated prices on the
// same ticker/date collapse to the quantity-weighted average.
type StatedPrice struct {
	Ticker string
	Date   string // YYYY-MM-DD
	Price  float64
}

// Ledger is the validated, date-ordered transaction log plus the stated
// execution prices used for synthetic pricing when no market data exists yet.
type Ledger struct {
	Transactions []domain.Transaction
	StatedPrices []StatedPrice
}

// Tickers returns the distinct instruments appearing in the ledger.
func (l *Ledger) Tickers() []string {
	seen := make(map[string]bool)
	var tickers []string
	for _, tx := range l.Transactions {
		if !seen[tx.Ticker] {
			seen[tx.Ticker] = true
			tickers = append(tickers, tx.Ticker)
		}
	}
	sort.Strings(tickers)
	return tickers
}

// Loader parses transaction ledger files.
type Loader struct {
	log zerolog.Logger
}

// NewLoader creates a new ledger loader
func NewLoader(log zerolog.Logger) *Loader {
	return &Loader{log: log.With().Str("component", "ledger_loader").Logger()}
}

// LoadFile reads and parses the ledger CSV at path.
func (l *Loader) LoadFile(path string) (*Ledger, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger file: %w", err)
	}
	defer f.Close()

	return l.Load(f)
}

// Load parses a ';'-delimited ledger with a header line:
//
//	Ticker;Date;Type;Amount;Price
//
// Policy: the whole load aborts on the first malformed line. A corrupt
// ledger fails loudly at load time instead of producing a portfolio with
// missing transactions.
func (l *Loader) Load(r io.Reader) (*Ledger, error) {
	reader := csv.NewReader(r)
	reader.Comma = ';'
	reader.FieldsPerRecord = -1 // Trailing price column is optional

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read ledger: %w", err)
	}
	if len(records) == 0 {
		return &Ledger{}, nil
	}

	ledger := &Ledger{}

	// ticker -> date -> accumulated (shares, shares*price) for weighted averages
	type priceAccum struct {
		shares   int
		weighted float64
	}
	stated := make(map[string]map[string]*priceAccum)

	// Skip the header line; line numbers below are 1-based file positions.
	for i, record := range records[1:] {
		line := i + 2

		tx, price, perr := parseLine(line, record)
		if perr != nil {
			return nil, perr
		}
		if tx == nil {
			continue // Blank line
		}

		if price != nil {
			tx.Price = price
			dateKey := domain.FormatDate(tx.Date)
			if stated[tx.Ticker] == nil {
				stated[tx.Ticker] = make(map[string]*priceAccum)
			}
			acc := stated[tx.Ticker][dateKey]
			if acc == nil {
				acc = &priceAccum{}
				stated[tx.Ticker][dateKey] = acc
			}
			acc.shares += tx.Quantity
			acc.weighted += float64(tx.Quantity) * *price
		}

		ledger.Transactions = append(ledger.Transactions, *tx)
	}

	// Ordering key: date, then file order. SliceStable preserves file order
	// within a date.
	sort.SliceStable(ledger.Transactions, func(i, j int) bool {
		return ledger.Transactions[i].Date.Before(ledger.Transactions[j].Date)
	})

	if err := validatePositions(ledger.Transactions); err != nil {
		return nil, err
	}

	for ticker, dates := range stated {
		for date, acc := range dates {
			ledger.StatedPrices = append(ledger.StatedPrices, StatedPrice{
				Ticker: ticker,
				Date:   date,
				Price:  acc.weighted / float64(acc.shares),
			})
		}
	}
	sort.Slice(ledger.StatedPrices, func(i, j int) bool {
		a, b := ledger.StatedPrices[i], ledger.StatedPrices[j]
		if a.Ticker != b.Ticker {
			return a.Ticker < b.Ticker
		}
		return a.Date < b.Date
	})

	l.log.Info().
		Int("transactions", len(ledger.Transactions)).
		Int("stated_prices", len(ledger.StatedPrices)).
		Msg("Ledger loaded")

	return ledger, nil
}

// parseLine validates a single record. Returns (nil, nil, nil) for blank lines.
func parseLine(line int, record []string) (*domain.Transaction, *float64, error) {
	if len(record) == 1 && strings.TrimSpace(record[0]) == "" {
		return nil, nil, nil
	}
	if len(record) < 4 {
		return nil, nil, &domain.ParseError{Line: line, Field: "record", Reason: fmt.Sprintf("expected at least 4 fields, got %d", len(record))}
	}

	ticker := strings.ToUpper(strings.TrimSpace(record[0]))
	if ticker == "" {
		return nil, nil, &domain.ParseError{Line: line, Field: "ticker", Reason: "empty"}
	}

	date, err := domain.ParseDate(strings.TrimSpace(record[1]))
	if err != nil {
		return nil, nil, &domain.ParseError{Line: line, Field: "date", Reason: fmt.Sprintf("%q is not YYYY-MM-DD", record[1])}
	}

	side := domain.Side(strings.TrimSpace(record[2]))
	if side != domain.Buy && side != domain.Sell {
		return nil, nil, &domain.ParseError{Line: line, Field: "type", Reason: fmt.Sprintf("%q is not Buy or Sell", record[2])}
	}

	quantity, err := strconv.Atoi(strings.TrimSpace(record[3]))
	if err != nil {
		return nil, nil, &domain.ParseError{Line: line, Field: "amount", Reason: fmt.Sprintf("%q is not an integer", record[3])}
	}
	if quantity <= 0 {
		return nil, nil, &domain.ParseError{Line: line, Field: "amount", Reason: fmt.Sprintf("%d is not positive", quantity)}
	}

	tx := &domain.Transaction{
		Ticker:   ticker,
		Date:     date,
		Side:     side,
		Quantity: quantity,
	}

	// Optional stated price column
	if len(record) >= 5 {
		priceStr := strings.TrimSpace(record[4])
		if priceStr != "" {
			price, err := strconv.ParseFloat(priceStr, 64)
			if err != nil {
				return nil, nil, &domain.ParseError{Line: line, Field: "price", Reason: fmt.Sprintf("%q is not a number", record[4])}
			}
			if price > 0 {
				return tx, &price, nil
			}
		}
	}

	return tx, nil, nil
}

// validatePositions rejects sell transactions that would take a running
// share count below zero. Short positions are unsupported: validating here
// means persisted snapshots only ever contain positive counts, with no
// silent filtering later.
func validatePositions(txs []domain.Transaction) error {
	running := make(map[string]int)
	for _, tx := range txs {
		switch tx.Side {
		case domain.Buy:
			running[tx.Ticker] += tx.Quantity
		case domain.Sell:
			running[tx.Ticker] -= tx.Quantity
			if running[tx.Ticker] < 0 {
				return fmt.Errorf("sell of %d %s on %s exceeds held position by %d shares (short positions unsupported)",
					tx.Quantity, tx.Ticker, domain.FormatDate(tx.Date), -running[tx.Ticker])
			}
		}
	}
	return nil
}
