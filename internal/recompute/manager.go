package recompute

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oskarw/folio/internal/domain"
	"github.com/rs/zerolog"
)

// Manager serializes recompute jobs: at most one batch is in flight at any
// time. A trigger while a batch is running is rejected immediately rather
// than queued, since the running batch will already pick up the same inputs.
type Manager struct {
	runner *Runner
	mu     sync.Mutex
	log    zerolog.Logger
}

// NewManager creates a new recompute manager
func NewManager(runner *Runner, log zerolog.Logger) *Manager {
	return &Manager{
		runner: runner,
		log:    log.With().Str("component", "recompute_manager").Logger(),
	}
}

// Trigger runs one recompute batch synchronously. Returns
// domain.ErrRecomputeInProgress when another batch holds the slot.
func (m *Manager) Trigger(ctx context.Context, opts Options) error {
	if !m.mu.TryLock() {
		m.log.Warn().Msg("Recompute rejected, another job is in flight")
		return domain.ErrRecomputeInProgress
	}
	defer m.mu.Unlock()

	jobID := uuid.New().String()
	start := time.Now()

	m.log.Info().
		Str("job_id", jobID).
		Bool("full_reset", opts.FullReset).
		Msg("Recompute started")

	err := m.runner.Run(ctx, opts)

	event := m.log.Info()
	if err != nil {
		event = m.log.Error().Err(err)
	}
	event.
		Str("job_id", jobID).
		Dur("duration", time.Since(start)).
		Msg("Recompute finished")

	return err
}
