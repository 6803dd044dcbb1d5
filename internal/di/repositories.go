package di

import (
	"github.com/oskarw/folio/internal/clientdata"
	"github.com/oskarw/folio/internal/marketdata"
	"github.com/oskarw/folio/internal/reconstruction"
	"github.com/rs/zerolog"
)

// InitializeRepositories creates all repositories with database connections
func InitializeRepositories(container *Container, log zerolog.Logger) {
	container.ClientCache = clientdata.NewRepository(container.ClientDataDB.Conn())
	container.PriceRepo = marketdata.NewPriceRepository(container.HistoryDB.Conn(), log)
	container.DividendRepo = marketdata.NewDividendRepository(container.HistoryDB.Conn(), log)
	container.SnapshotRepo = reconstruction.NewSnapshotRepository(container.PortfolioDB.Conn(), log)
}
