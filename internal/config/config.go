// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	DataDir          string   // Base directory for databases and the cache file (always absolute)
	LedgerPath       string   // Path to the transaction ledger CSV
	BaseCurrency     string   // Single currency all values are converted into
	StartingCash     float64  // Initial cash for a fresh reconstruction
	StartDate        string   // First reconstructed date (YYYY-MM-DD)
	BenchmarkTickers []string // Index tickers overlaid on the value chart
	CachePath        string   // Dashboard cache file (defaults to DataDir/dashboard.cache)
	AxisMagnitude    float64  // Rounding magnitude for chart axis bounds
	LogLevel         string
}

// Load reads configuration from environment variables.
// A .env file in the working directory is honored if present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	dataDir := getEnv("FOLIO_DATA_DIR", "./data")
	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}
	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:          absDataDir,
		LedgerPath:       getEnv("FOLIO_LEDGER", "transactions.csv"),
		BaseCurrency:     getEnv("FOLIO_BASE_CURRENCY", "SEK"),
		StartingCash:     getEnvAsFloat("FOLIO_STARTING_CASH", 150000),
		StartDate:        getEnv("FOLIO_START_DATE", "2025-02-17"),
		BenchmarkTickers: splitList(getEnv("FOLIO_BENCHMARKS", "^OMX,^GSPC")),
		CachePath:        getEnv("FOLIO_CACHE_PATH", filepath.Join(absDataDir, "dashboard.cache")),
		AxisMagnitude:    getEnvAsFloat("FOLIO_AXIS_MAGNITUDE", 10000),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present and coherent
func (c *Config) Validate() error {
	if c.BaseCurrency == "" {
		return fmt.Errorf("base currency must not be empty")
	}
	if c.AxisMagnitude <= 0 {
		return fmt.Errorf("axis magnitude must be positive, got %v", c.AxisMagnitude)
	}
	return nil
}

// HistoryDBPath returns the path of the market data time series database
func (c *Config) HistoryDBPath() string {
	return filepath.Join(c.DataDir, "history.db")
}

// PortfolioDBPath returns the path of the reconstructed state database
func (c *Config) PortfolioDBPath() string {
	return filepath.Join(c.DataDir, "portfolio.db")
}

// ClientDataDBPath returns the path of the external API response cache database
func (c *Config) ClientDataDBPath() string {
	return filepath.Join(c.DataDir, "client_data.db")
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func splitList(value string) []string {
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
