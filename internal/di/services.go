package di

import (
	"github.com/oskarw/folio/internal/cache"
	"github.com/oskarw/folio/internal/clients/exchangerate"
	"github.com/oskarw/folio/internal/clients/yahoo"
	"github.com/oskarw/folio/internal/config"
	"github.com/oskarw/folio/internal/ledger"
	"github.com/oskarw/folio/internal/recompute"
	"github.com/rs/zerolog"
)

// InitializeServices creates external clients and the recompute pipeline
func InitializeServices(container *Container, cfg *config.Config, log zerolog.Logger) {
	container.MarketProvider = yahoo.NewClient(container.ClientCache, log)
	container.RateProvider = exchangerate.NewClient(container.ClientCache, log)

	container.LedgerLoader = ledger.NewLoader(log)
	container.CacheStore = cache.NewStore(cfg.CachePath, log)

	container.Runner = recompute.NewRunner(
		cfg,
		container.LedgerLoader,
		container.MarketProvider,
		container.RateProvider,
		container.PriceRepo,
		container.DividendRepo,
		container.SnapshotRepo,
		container.CacheStore,
		log,
	)
	container.RecomputeManager = recompute.NewManager(container.Runner, log)
}
