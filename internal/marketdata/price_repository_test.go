package marketdata

import (
	"database/sql"
	"testing"

	"github.com/oskarw/folio/internal/domain"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

func setupHistoryTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`
		CREATE TABLE prices (
			ticker TEXT NOT NULL,
			date   TEXT NOT NULL,
			close  REAL NOT NULL,
			PRIMARY KEY (ticker, date)
		);
		CREATE TABLE dividends (
			ticker   TEXT NOT NULL,
			date     TEXT NOT NULL,
			amount   REAL NOT NULL,
			currency TEXT NOT NULL DEFAULT '',
			PRIMARY KEY (ticker, date)
		);
	`)
	require.NoError(t, err)

	return db
}

func TestPriceRepository_InsertIsIdempotent(t *testing.T) {
	db := setupHistoryTestDB(t)
	log := zerolog.New(nil).Level(zerolog.Disabled)
	repo := NewPriceRepository(db, log)

	points := []domain.PricePoint{
		{Ticker: "AAA", Date: day("2025-02-18"), Close: 100},
		{Ticker: "AAA", Date: day("2025-02-19"), Close: 105},
	}
	require.NoError(t, repo.Insert(points))

	// Re-inserting the same dates with different values must not overwrite.
	require.NoError(t, repo.Insert([]domain.PricePoint{
		{Ticker: "AAA", Date: day("2025-02-18"), Close: 999},
	}))

	series, err := repo.LoadSeries("AAA")
	require.NoError(t, err)
	assert.Equal(t, 2, series.Len())

	v, ok := series.AsOf(day("2025-02-18"))
	require.True(t, ok)
	assert.Equal(t, 100.0, v)
}

func TestPriceRepository_LoadSeriesAscending(t *testing.T) {
	db := setupHistoryTestDB(t)
	log := zerolog.New(nil).Level(zerolog.Disabled)
	repo := NewPriceRepository(db, log)

	// Insert out of order; the query sorts.
	require.NoError(t, repo.Insert([]domain.PricePoint{
		{Ticker: "AAA", Date: day("2025-02-20"), Close: 110},
		{Ticker: "AAA", Date: day("2025-02-18"), Close: 100},
	}))

	series, err := repo.LoadSeries("AAA")
	require.NoError(t, err)

	first, ok := series.First()
	require.True(t, ok)
	assert.Equal(t, day("2025-02-18"), first)

	last, ok := series.Last()
	require.True(t, ok)
	assert.Equal(t, day("2025-02-20"), last)
}

func TestPriceRepository_LastDate(t *testing.T) {
	db := setupHistoryTestDB(t)
	log := zerolog.New(nil).Level(zerolog.Disabled)
	repo := NewPriceRepository(db, log)

	_, ok, err := repo.LastDate("AAA")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, repo.Insert([]domain.PricePoint{
		{Ticker: "AAA", Date: day("2025-02-18"), Close: 100},
		{Ticker: "AAA", Date: day("2025-02-25"), Close: 120},
	}))

	date, ok, err := repo.LastDate("AAA")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "2025-02-25", date)
}

func TestPriceRepository_LoadCatalogSkipsEmptySeries(t *testing.T) {
	db := setupHistoryTestDB(t)
	log := zerolog.New(nil).Level(zerolog.Disabled)
	repo := NewPriceRepository(db, log)

	require.NoError(t, repo.Insert([]domain.PricePoint{
		{Ticker: "AAA", Date: day("2025-02-18"), Close: 100},
	}))

	catalog, err := repo.LoadCatalog([]string{"AAA", "BBB"})
	require.NoError(t, err)
	assert.Equal(t, []string{"AAA"}, catalog.Tickers())
}

func TestDividendRepository_InsertAndLoadRange(t *testing.T) {
	db := setupHistoryTestDB(t)
	log := zerolog.New(nil).Level(zerolog.Disabled)
	repo := NewDividendRepository(db, log)

	require.NoError(t, repo.Insert([]domain.DividendEvent{
		{Ticker: "AAA", Date: day("2025-03-01"), Amount: 2.0},
		{Ticker: "BBB", Date: day("2025-03-15"), Amount: 1.5, Currency: "USD"},
		{Ticker: "AAA", Date: day("2025-04-01"), Amount: 2.0},
	}))

	// Duplicate (ticker, date) is ignored.
	require.NoError(t, repo.Insert([]domain.DividendEvent{
		{Ticker: "AAA", Date: day("2025-03-01"), Amount: 99},
	}))

	events, err := repo.LoadRange("2025-03-01", "2025-03-31")
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "AAA", events[0].Ticker)
	assert.Equal(t, 2.0, events[0].Amount)
	assert.Equal(t, "BBB", events[1].Ticker)
	assert.Equal(t, "USD", events[1].Currency)
}
