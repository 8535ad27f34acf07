// main is the entry point of the srcquery application.
// It either runs a single A2S query, a database maintenance task, or the polling service with its HTTP API.
package main

import (
	"context"
	"encoding/hex"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/rs/zerolog/log"
	"github.com/woozymasta/srcquery/internal/a2s"
	"github.com/woozymasta/srcquery/internal/config"
	"github.com/woozymasta/srcquery/internal/fake"
	"github.com/woozymasta/srcquery/internal/game"
	"github.com/woozymasta/srcquery/internal/geoip"
	"github.com/woozymasta/srcquery/internal/logger"
	"github.com/woozymasta/srcquery/internal/maintenance"
	"github.com/woozymasta/srcquery/internal/poller"
	"github.com/woozymasta/srcquery/internal/report"
	"github.com/woozymasta/srcquery/internal/server"
	"github.com/woozymasta/srcquery/internal/storage"
	"github.com/woozymasta/srcquery/internal/targets"
)

func main() {
	cfg := config.Parse()

	closer := logger.Setup(cfg.Logger)
	defer func() { _ = closer.Close() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Query.Address != "" {
		if err := query(ctx, cfg); err != nil {
			log.Error().Err(err).Str("address", cfg.Query.Address).Msg("Query failed")
			stop()
			_ = closer.Close()
			os.Exit(1)
		}
		return
	}

	serve(ctx, cfg)
}

// query runs a single request and prints the reply to stdout.
func query(ctx context.Context, cfg *config.Config) error {
	kind := cfg.Query.QueryKind()
	printer := report.New(os.Stdout, !color.NoColor)

	if kind == a2s.KindInfo {
		info, err := game.QueryServer(ctx, cfg.Query.Address, cfg.A2S)
		if err != nil {
			return err
		}
		if cfg.Query.JSON {
			return report.JSON(os.Stdout, info)
		}
		return printer.Info(info)
	}

	reply, err := game.QueryRaw(ctx, cfg.Query.Address, kind, cfg.A2S)
	if err != nil {
		return err
	}
	if cfg.Query.JSON {
		return report.JSON(os.Stdout, map[string]string{"kind": kind.String(), "payload": hex.EncodeToString(reply)})
	}

	return printer.Raw(kind, reply)
}

func serve(ctx context.Context, cfg *config.Config) {
	log.Info().Msg("Starting srcquery service...")

	// Database
	store, err := storage.New(cfg.Storage.Path)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Error().Err(err).Msg("Error closing database")
		}
	}()

	// data generation or database maintenance
	if cfg.Storage.GenerateCount > 0 {
		fake.GenerateData(ctx, store, cfg.Storage.GenerateCount)
		return
	} else if maintenance.Run(ctx, cfg, store) {
		return
	}

	// GeoIP Update
	var locator poller.Locator
	log.Info().Msg("Checking GeoIP database...")
	if err := geoip.EnsureDB(ctx, cfg.GeoIP.Path, cfg.GeoIP.URL, cfg.GeoIP.Interval); err != nil {
		log.Error().Err(err).Msg("Failed to download GeoIP database")
	}

	geoProvider, err := geoip.Open(cfg.GeoIP.Path)
	if err != nil {
		log.Error().Err(err).Msg("Failed to open GeoIP database, country detection disabled")
	} else {
		locator = geoProvider
		defer func() {
			if err := geoProvider.Close(); err != nil {
				log.Error().Err(err).Msg("Error closing GeoIP provider")
			}
		}()
	}

	// Background polling
	var wg sync.WaitGroup
	if cfg.Poll.Targets != "" {
		list, err := targets.Load(cfg.Poll.Targets)
		if err != nil {
			log.Fatal().Err(err).Str("path", cfg.Poll.Targets).Msg("Failed to load targets")
		}

		querier := func(ctx context.Context, address string) (*a2s.ServerInfo, error) {
			return game.QueryServer(ctx, address, cfg.A2S)
		}

		p := poller.New(querier, store, locator, cfg.Poll)
		log.Info().Int("targets", len(list)).Dur("interval", cfg.Poll.Interval).Msg("Polling started")

		wg.Add(1)
		go func() {
			defer wg.Done()
			p.Run(ctx, list)
		}()
	}

	httpServer := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      server.New(store, cfg).Run(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: cfg.A2S.Timeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("address", cfg.Server.Address).Msg("Server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// Graceful Shutdown
	<-ctx.Done()
	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	// Wait for the running poll cycle
	wg.Wait()

	log.Info().Msg("Server exited")
}
