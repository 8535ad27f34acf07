// Package poller periodically queries a list of game servers and records their state.
package poller

import (
	"context"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/woozymasta/srcquery/internal/a2s"
	"github.com/woozymasta/srcquery/internal/config"
	"github.com/woozymasta/srcquery/internal/logger"
	"github.com/woozymasta/srcquery/internal/models"
	"github.com/woozymasta/srcquery/internal/targets"
	"golang.org/x/time/rate"
)

// Querier fetches A2S_INFO from one server address.
type Querier func(ctx context.Context, address string) (*a2s.ServerInfo, error)

// Store persists server state and snapshots.
type Store interface {
	GetServer(ctx context.Context, address string) (*models.Server, error)
	UpsertServer(ctx context.Context, s models.Server) error
	InsertSnapshot(ctx context.Context, s models.Snapshot) (int64, error)
}

// Locator resolves the country code of a host.
type Locator interface {
	CountryCode(host string) string
}

// Stats summarizes one poll cycle.
type Stats struct {
	RunID   string
	Up      int64
	Down    int64
	Changed int64
	Failed  int64
}

// Poller runs poll cycles over a target list.
type Poller struct {
	query   Querier
	store   Store
	geo     Locator
	limiter *rate.Limiter
	log     zerolog.Logger

	interval time.Duration
	workers  int
}

// New creates a Poller. geo may be nil to skip country resolution.
func New(query Querier, store Store, geo Locator, cfg config.Poll) *Poller {
	workers := cfg.Workers
	if workers < 1 {
		workers = 1
	}

	burst := cfg.Burst
	if burst < 1 {
		burst = 1
	}

	interval := cfg.Interval
	if interval <= 0 {
		interval = time.Minute
	}

	return &Poller{
		query:    query,
		store:    store,
		geo:      geo,
		limiter:  rate.NewLimiter(rate.Limit(cfg.Rate), burst),
		log:      logger.Component("poller"),
		interval: interval,
		workers:  workers,
	}
}

// Run polls the targets immediately and then every interval until ctx is done.
func (p *Poller) Run(ctx context.Context, list []targets.Target) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		p.Cycle(ctx, list)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Cycle queries every target once using the worker pool and returns the outcome.
func (p *Poller) Cycle(ctx context.Context, list []targets.Target) Stats {
	var (
		runID                    = uuid.NewString()
		up, down, changed, fails atomic.Int64
		wg                       sync.WaitGroup
	)

	start := time.Now()
	jobs := make(chan targets.Target)

	for i := 0; i < min(p.workers, len(list)); i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for t := range jobs {
				if err := p.limiter.Wait(ctx); err != nil {
					continue
				}

				res, err := p.poll(ctx, runID, t)
				switch {
				case err != nil:
					fails.Add(1)
					p.log.Error().Err(err).Str("address", t.Address).Msg("Failed to save poll result")
				case res.up:
					up.Add(1)
				default:
					down.Add(1)
				}
				if res.changed {
					changed.Add(1)
				}
			}
		}()
	}

	for _, t := range list {
		select {
		case jobs <- t:
		case <-ctx.Done():
		}
		if ctx.Err() != nil {
			break
		}
	}
	close(jobs)
	wg.Wait()

	stats := Stats{RunID: runID, Up: up.Load(), Down: down.Load(), Changed: changed.Load(), Failed: fails.Load()}

	p.log.Info().
		Str("run_id", runID).
		Int("targets", len(list)).
		Int64("up", stats.Up).
		Int64("down", stats.Down).
		Int64("changed", stats.Changed).
		Dur("duration", time.Since(start)).
		Msg("Poll cycle finished")

	return stats
}

type result struct {
	up      bool
	changed bool
}

// poll queries one target and records the outcome.
func (p *Poller) poll(ctx context.Context, runID string, t targets.Target) (result, error) {
	start := time.Now()
	info, queryErr := p.query(ctx, t.Address)
	latency := time.Since(start)

	now := time.Now()
	server := models.Server{
		Address:   t.Address,
		Label:     t.Name,
		FirstSeen: now,
		LastSeen:  now,
		LatencyMS: latency.Milliseconds(),
	}

	if p.geo != nil {
		if host, _, err := net.SplitHostPort(t.Address); err == nil {
			server.CountryCode = p.geo.CountryCode(host)
		}
	}

	if queryErr != nil {
		p.log.Debug().Err(queryErr).Str("address", t.Address).Msg("A2S query failed")

		server.Status = models.StatusDown
		server.LastError = queryErr.Error()
		return result{}, p.store.UpsertServer(ctx, server)
	}

	prev, err := p.store.GetServer(ctx, t.Address)
	if err != nil {
		return result{up: true}, err
	}

	fingerprint := Fingerprint(info)
	server.Status = models.StatusUp
	server.LastUp = now
	server.Fingerprint = fingerprint
	server.ApplyInfo(info)

	if err := p.store.UpsertServer(ctx, server); err != nil {
		return result{up: true}, err
	}

	if prev != nil && prev.Fingerprint == fingerprint {
		return result{up: true}, nil
	}

	_, err = p.store.InsertSnapshot(ctx, models.Snapshot{
		RunID:       runID,
		Address:     t.Address,
		Fingerprint: fingerprint,
		LatencyMS:   server.LatencyMS,
		QueriedAt:   now,
		Info:        *info,
	})
	if err != nil {
		return result{up: true}, err
	}

	p.log.Debug().
		Str("address", t.Address).
		Str("map", info.Map).
		Uint8("players", info.Players).
		Msg("Server state changed")

	return result{up: true, changed: true}, nil
}

// Fingerprint hashes the canonical A2S_INFO encoding of info.
func Fingerprint(info *a2s.ServerInfo) uint64 {
	return xxhash.Sum64(a2s.EncodeInfo(info))
}
