package database

// Embedded schemas, keyed by database name. Each schema is the single source
// of truth for its database and must stay idempotent.
//
// Three-database architecture:
//   - history.db: append-only market data time series (prices, dividends)
//   - portfolio.db: reconstructed daily state (holdings snapshots, cash balances)
//   - client_data.db: TTL cache of raw external API responses
var schemas = map[string]string{
	"history": `
CREATE TABLE IF NOT EXISTS prices (
    ticker TEXT NOT NULL,
    date   TEXT NOT NULL, -- YYYY-MM-DD
    close  REAL NOT NULL,
    PRIMARY KEY (ticker, date)
);
CREATE INDEX IF NOT EXISTS idx_prices_date ON prices(date);

CREATE TABLE IF NOT EXISTS dividends (
    ticker   TEXT NOT NULL,
    date     TEXT NOT NULL, -- YYYY-MM-DD payment date
    amount   REAL NOT NULL, -- per share
    currency TEXT NOT NULL DEFAULT '',
    PRIMARY KEY (ticker, date)
);
`,

	"portfolio": `
CREATE TABLE IF NOT EXISTS holdings (
    date   TEXT NOT NULL, -- YYYY-MM-DD
    ticker TEXT NOT NULL,
    shares INTEGER NOT NULL CHECK (shares > 0),
    PRIMARY KEY (date, ticker)
);
CREATE INDEX IF NOT EXISTS idx_holdings_ticker ON holdings(ticker);

CREATE TABLE IF NOT EXISTS cash (
    date    TEXT PRIMARY KEY, -- YYYY-MM-DD
    balance REAL NOT NULL
);
`,

	"client_data": `
CREATE TABLE IF NOT EXISTS yahoo_chart (
    key        TEXT PRIMARY KEY,
    data       TEXT NOT NULL,
    expires_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS exchangerate (
    key        TEXT PRIMARY KEY,
    data       TEXT NOT NULL,
    expires_at INTEGER NOT NULL
);
`,
}
