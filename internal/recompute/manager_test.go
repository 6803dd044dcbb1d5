package recompute

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/oskarw/folio/internal/domain"
	"github.com/oskarw/folio/internal/marketdata"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// blockingProvider parks every Fetch until released, holding a batch mid-run.
type blockingProvider struct {
	started sync.Once
	running chan struct{}
	release chan struct{}
}

func newBlockingProvider() *blockingProvider {
	return &blockingProvider{
		running: make(chan struct{}),
		release: make(chan struct{}),
	}
}

func (b *blockingProvider) Fetch(ticker string, start, end time.Time) (*marketdata.InstrumentData, error) {
	b.started.Do(func() { close(b.running) })
	<-b.release
	return &marketdata.InstrumentData{Ticker: ticker, Currency: "SEK"}, nil
}

func TestManager_RejectsConcurrentTrigger(t *testing.T) {
	provider := newBlockingProvider()
	f := setupRunner(t, provider, "AAA;2025-02-18;Buy;10\n")
	manager := NewManager(f.runner, zerolog.New(nil).Level(zerolog.Disabled))

	done := make(chan error, 1)
	go func() {
		done <- manager.Trigger(context.Background(), Options{Now: day("2025-02-19")})
	}()

	<-provider.running

	// The slot is held: a second trigger is rejected, not queued.
	err := manager.Trigger(context.Background(), Options{Now: day("2025-02-19")})
	assert.ErrorIs(t, err, domain.ErrRecomputeInProgress)

	close(provider.release)
	require.NoError(t, <-done)

	// With the first batch finished the slot is free again.
	require.NoError(t, manager.Trigger(context.Background(), Options{Now: day("2025-02-19")}))
}

func TestManager_PropagatesRunnerError(t *testing.T) {
	f := setupRunner(t, &fakeProvider{}, "AAA;not-a-date;Buy;10\n")
	manager := NewManager(f.runner, zerolog.New(nil).Level(zerolog.Disabled))

	err := manager.Trigger(context.Background(), Options{Now: day("2025-02-19")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ledger load failed")
}
