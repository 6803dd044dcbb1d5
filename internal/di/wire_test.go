package di

import (
	"path/filepath"
	"testing"

	"github.com/oskarw/folio/internal/config"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		DataDir:       dir,
		LedgerPath:    filepath.Join(dir, "transactions.csv"),
		BaseCurrency:  "SEK",
		StartingCash:  1000,
		StartDate:     "2025-02-17",
		AxisMagnitude: 10000,
		CachePath:     filepath.Join(dir, "dashboard.cache"),
	}
}

func TestWire(t *testing.T) {
	cfg := testConfig(t)
	log := zerolog.New(nil).Level(zerolog.Disabled)

	container, err := Wire(cfg, log)
	require.NoError(t, err)
	defer container.Close()

	assert.NotNil(t, container.HistoryDB)
	assert.NotNil(t, container.PortfolioDB)
	assert.NotNil(t, container.ClientDataDB)
	assert.NotNil(t, container.ClientCache)
	assert.NotNil(t, container.PriceRepo)
	assert.NotNil(t, container.DividendRepo)
	assert.NotNil(t, container.SnapshotRepo)
	assert.NotNil(t, container.MarketProvider)
	assert.NotNil(t, container.RateProvider)
	assert.NotNil(t, container.LedgerLoader)
	assert.NotNil(t, container.CacheStore)
	assert.NotNil(t, container.Runner)
	assert.NotNil(t, container.RecomputeManager)

	// Schemas applied: the repositories can hit their tables immediately.
	_, _, err = container.SnapshotRepo.LastCashDate()
	assert.NoError(t, err)

	_, err = container.ClientCache.Get("yahoo_chart", "anything")
	assert.NoError(t, err)
}

func TestWire_DatabaseFilesLandInDataDir(t *testing.T) {
	cfg := testConfig(t)
	log := zerolog.New(nil).Level(zerolog.Disabled)

	container, err := Wire(cfg, log)
	require.NoError(t, err)
	defer container.Close()

	assert.FileExists(t, cfg.HistoryDBPath())
	assert.FileExists(t, cfg.PortfolioDBPath())
	assert.FileExists(t, cfg.ClientDataDBPath())
}
