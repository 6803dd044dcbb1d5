// Package main is the entry point for the folio portfolio reconstruction
// and valuation engine. One invocation runs one recompute batch: sync market
// data, rebuild daily holdings and cash from the transaction ledger, derive
// dashboard metrics, and write the presentation cache. Scheduling is left to
// cron or whatever supervises the binary.
package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/oskarw/folio/internal/config"
	"github.com/oskarw/folio/internal/di"
	"github.com/oskarw/folio/internal/recompute"
	"github.com/oskarw/folio/pkg/logger"
)

func main() {
	fullReset := flag.Bool("full-reset", false, "discard reconstructed state and rebuild from scratch")
	flag.Parse()

	// Load configuration first to get log level
	cfg, err := config.Load()
	if err != nil {
		fallbackLog := logger.New(logger.Config{Level: "info", Pretty: true})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: true,
	})

	log.Info().Msg("Starting folio recompute")

	container, err := di.Wire(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to wire dependencies")
	}
	defer container.Close()

	// SIGINT/SIGTERM cancel the batch at the next day boundary; the day in
	// progress always completes so persisted state stays consistent.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-quit
		log.Warn().Str("signal", sig.String()).Msg("Shutdown requested, stopping at day boundary")
		cancel()
	}()

	runErr := container.RecomputeManager.Trigger(ctx, recompute.Options{FullReset: *fullReset})

	// Housekeeping runs even after a cancelled batch.
	if deleted, err := container.ClientCache.DeleteAllExpired(); err != nil {
		log.Warn().Err(err).Msg("Failed to clean up expired client cache entries")
	} else {
		for table, n := range deleted {
			if n > 0 {
				log.Debug().Str("table", table).Int64("deleted", n).Msg("Expired cache entries removed")
			}
		}
	}
	if err := container.HistoryDB.WALCheckpoint("TRUNCATE"); err != nil {
		log.Warn().Err(err).Msg("WAL checkpoint failed for history database")
	}
	if err := container.PortfolioDB.WALCheckpoint("TRUNCATE"); err != nil {
		log.Warn().Err(err).Msg("WAL checkpoint failed for portfolio database")
	}

	if runErr != nil {
		if errors.Is(runErr, context.Canceled) {
			log.Warn().Msg("Recompute cancelled")
			return
		}
		log.Error().Err(runErr).Msg("Recompute failed")
		container.Close()
		os.Exit(1)
	}

	log.Info().Msg("Recompute complete")
}
