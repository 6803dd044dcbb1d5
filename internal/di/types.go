package di

import (
	"github.com/oskarw/folio/internal/cache"
	"github.com/oskarw/folio/internal/clientdata"
	"github.com/oskarw/folio/internal/database"
	"github.com/oskarw/folio/internal/fx"
	"github.com/oskarw/folio/internal/ledger"
	"github.com/oskarw/folio/internal/marketdata"
	"github.com/oskarw/folio/internal/reconstruction"
	"github.com/oskarw/folio/internal/recompute"
)

// Container holds all initialized dependencies.
type Container struct {
	// Databases
	HistoryDB    *database.DB
	PortfolioDB  *database.DB
	ClientDataDB *database.DB

	// Repositories
	ClientCache  *clientdata.Repository
	PriceRepo    *marketdata.PriceRepository
	DividendRepo *marketdata.DividendRepository
	SnapshotRepo *reconstruction.SnapshotRepository

	// External collaborators
	MarketProvider marketdata.Provider
	RateProvider   fx.RateProvider

	// Services
	LedgerLoader     *ledger.Loader
	CacheStore       *cache.Store
	Runner           *recompute.Runner
	RecomputeManager *recompute.Manager
}

// Close closes all database connections.
func (c *Container) Close() {
	if c.HistoryDB != nil {
		c.HistoryDB.Close()
	}
	if c.PortfolioDB != nil {
		c.PortfolioDB.Close()
	}
	if c.ClientDataDB != nil {
		c.ClientDataDB.Close()
	}
}
