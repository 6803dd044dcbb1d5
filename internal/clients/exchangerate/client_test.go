package exchangerate

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/oskarw/folio/internal/clientdata"
	"github.com/oskarw/folio/internal/domain"
	"github.com/oskarw/folio/internal/fx"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

const ratesBody = `{
	"base": "USD",
	"start_date": "2025-02-17",
	"end_date": "2025-02-19",
	"rates": {
		"2025-02-17": {"SEK": 10.71},
		"2025-02-18": {"SEK": 10.68},
		"2025-02-19": {"SEK": 10.74}
	}
}`

func day(s string) time.Time {
	d, err := domain.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func testCacheRepo(t *testing.T) *clientdata.Repository {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	for _, table := range clientdata.AllTables {
		_, err = db.Exec(`CREATE TABLE ` + table + ` (
			key TEXT PRIMARY KEY, data TEXT NOT NULL, expires_at INTEGER NOT NULL
		)`)
		require.NoError(t, err)
	}

	return clientdata.NewRepository(db)
}

func testClient(t *testing.T, handler http.HandlerFunc, cacheRepo *clientdata.Repository) *Client {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := NewClient(cacheRepo, zerolog.New(nil).Level(zerolog.Disabled))
	c.baseURL = srv.URL
	return c
}

func ratesByDate(points []fx.RatePoint) map[string]float64 {
	m := make(map[string]float64, len(points))
	for _, p := range points {
		m[domain.FormatDate(p.Date)] = p.Rate
	}
	return m
}

func TestFetchRates_ParsesTimeSeries(t *testing.T) {
	var gotPath, gotQuery string
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		fmt.Fprint(w, ratesBody)
	}, nil)

	points, err := c.FetchRates("USD", "SEK", day("2025-02-17"), day("2025-02-19"))
	require.NoError(t, err)

	assert.Equal(t, "/2025-02-17..2025-02-19", gotPath)
	assert.Contains(t, gotQuery, "from=USD")
	assert.Contains(t, gotQuery, "to=SEK")

	require.Len(t, points, 3)
	byDate := ratesByDate(points)
	assert.Equal(t, 10.71, byDate["2025-02-17"])
	assert.Equal(t, 10.68, byDate["2025-02-18"])
	assert.Equal(t, 10.74, byDate["2025-02-19"])
}

func TestFetchRates_SameCurrencyShortCircuits(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected for same-currency pairs")
	}, nil)

	points, err := c.FetchRates("SEK", "SEK", day("2025-02-17"), day("2025-02-19"))
	require.NoError(t, err)
	require.Len(t, points, 1)
	assert.Equal(t, 1.0, points[0].Rate)
}

func TestFetchRates_SkipsNonPositiveAndBadDates(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"rates": {
			"2025-02-17": {"SEK": 10.71},
			"2025-02-18": {"SEK": -1},
			"not-a-date": {"SEK": 10.70},
			"2025-02-19": {"EUR": 0.95}
		}}`)
	}, nil)

	points, err := c.FetchRates("USD", "SEK", day("2025-02-17"), day("2025-02-19"))
	require.NoError(t, err)
	require.Len(t, points, 1)
	assert.Equal(t, 10.71, points[0].Rate)
}

func TestFetchRates_TargetCurrencyMissing(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"rates": {"2025-02-17": {"EUR": 0.95}}}`)
	}, nil)

	_, err := c.FetchRates("USD", "SEK", day("2025-02-17"), day("2025-02-19"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate not found")
}

func TestFetchRates_BadStatusWithoutCache(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}, nil)

	_, err := c.FetchRates("USD", "SEK", day("2025-02-17"), day("2025-02-19"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestFetchRates_FreshCacheSkipsNetwork(t *testing.T) {
	calls := 0
	repo := testCacheRepo(t)
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		fmt.Fprint(w, ratesBody)
	}, repo)

	_, err := c.FetchRates("USD", "SEK", day("2025-02-17"), day("2025-02-19"))
	require.NoError(t, err)
	require.Equal(t, 1, calls)

	points, err := c.FetchRates("USD", "SEK", day("2025-02-17"), day("2025-02-19"))
	require.NoError(t, err)
	assert.Equal(t, 1, calls) // Served from cache
	assert.Len(t, points, 3)
}

func TestFetchRates_StaleCacheOnAPIFailure(t *testing.T) {
	repo := testCacheRepo(t)

	key := "USD:SEK:2025-02-17:2025-02-19"
	require.NoError(t, repo.Store("exchangerate", key, json.RawMessage(ratesBody), -time.Minute))

	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}, repo)

	points, err := c.FetchRates("USD", "SEK", day("2025-02-17"), day("2025-02-19"))
	require.NoError(t, err)
	assert.Len(t, points, 3)
}
