// Package cache persists the recomputation result consumed by the
// presentation layer. The snapshot file is the only contract between the
// batch job and its readers.
package cache

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"
)

// SeriesPoint is one (date label, value) pair of the history line.
type SeriesPoint struct {
	Date  string  `msgpack:"date"` // YYYY-MM-DD label
	Value float64 `msgpack:"value"`
}

// AllocationEntry is one slice of the allocation breakdown.
type AllocationEntry struct {
	Ticker  string  `msgpack:"ticker"`
	Percent float64 `msgpack:"percent"`
}

// Snapshot is the persisted dashboard payload.
// Percent-change entries are nil when the window's baseline precedes all
// reconstructed data (undefined, not zero).
type Snapshot struct {
	GeneratedAt    time.Time            `msgpack:"generated_at"`
	LatestValue    float64              `msgpack:"latest_value"`
	LatestCash     float64              `msgpack:"latest_cash"`
	PercentChanges map[string]*float64  `msgpack:"percent_changes"`
	History        []SeriesPoint        `msgpack:"history"`
	Benchmarks     map[string][]float64 `msgpack:"benchmarks"` // Keyed by index ticker, aligned to History
	Allocation     []AllocationEntry    `msgpack:"allocation"`
	YMin           float64              `msgpack:"y_min"`
	YMax           float64              `msgpack:"y_max"`
	CurrentTickers []string             `msgpack:"current_tickers"`
	PastTickers    []string             `msgpack:"past_tickers"` // Previously but not currently held
}

// Store reads and writes the snapshot file.
type Store struct {
	path string
	log  zerolog.Logger
}

// NewStore creates a snapshot store at the given file path.
func NewStore(path string, log zerolog.Logger) *Store {
	return &Store{
		path: path,
		log:  log.With().Str("component", "cache_store").Logger(),
	}
}

// Write persists the snapshot atomically: encode to a temp file in the same
// directory, fsync, then rename over the target. Readers never observe a
// partial write.
func (s *Store) Write(snapshot *Snapshot) error {
	data, err := msgpack.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp cache file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write temp cache file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to sync temp cache file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp cache file: %w", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace cache file: %w", err)
	}

	s.log.Info().
		Str("path", s.path).
		Int("bytes", len(data)).
		Msg("Dashboard cache written")

	return nil
}

// Read loads the current snapshot. Returns (nil, nil) when no cache file
// exists yet.
func (s *Store) Read() (*Snapshot, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cache file: %w", err)
	}

	var snapshot Snapshot
	if err := msgpack.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("failed to decode cache file: %w", err)
	}

	return &snapshot, nil
}
