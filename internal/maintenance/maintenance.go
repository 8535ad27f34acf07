// Package maintenance provide tools for clean and update database
package maintenance

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/woozymasta/srcquery/internal/a2s"
	"github.com/woozymasta/srcquery/internal/config"
	"github.com/woozymasta/srcquery/internal/game"
	"github.com/woozymasta/srcquery/internal/poller"
	"github.com/woozymasta/srcquery/internal/storage"
	"github.com/woozymasta/srcquery/internal/targets"
)

// Run checks if any maintenance flags are set and executes the corresponding tasks.
// Returns true if a maintenance task was executed (indicating the program should exit).
func Run(ctx context.Context, cfg *config.Config, store *storage.Repository) bool {
	ran := false

	if cfg.Storage.Prune {
		ran = true
		before := time.Now().Add(-cfg.Storage.Retention)
		log.Info().Time("before", before).Msg("Pruning old snapshots...")

		count, err := store.PruneSnapshots(ctx, before)
		if err != nil {
			log.Error().Err(err).Msg("Failed to prune snapshots")
		} else {
			log.Info().Int64("deleted", count).Msg("Prune finished")
		}
	}

	if cfg.Storage.Check {
		ran = true
		if err := recheck(ctx, cfg, store); err != nil {
			log.Error().Err(err).Msg("Failed to re-check servers")
		}
	}

	return ran
}

// recheck queries every stored server once and updates its state.
func recheck(ctx context.Context, cfg *config.Config, store *storage.Repository) error {
	servers, err := store.GetServers(ctx)
	if err != nil {
		return err
	}

	if len(servers) == 0 {
		log.Info().Msg("No servers found for maintenance")
		return nil
	}

	list := make([]targets.Target, 0, len(servers))
	for _, s := range servers {
		list = append(list, targets.Target{Address: s.Address, Name: s.Label})
	}

	query := func(ctx context.Context, address string) (*a2s.ServerInfo, error) {
		return game.QueryServer(ctx, address, cfg.A2S)
	}

	log.Info().Int("count", len(list)).Msgf("Re-checking servers with %d workers...", cfg.Poll.Workers)
	stats := poller.New(query, store, nil, cfg.Poll).Cycle(ctx, list)
	log.Info().
		Int64("up", stats.Up).
		Int64("down", stats.Down).
		Msg("Maintenance task completed")

	return nil
}
