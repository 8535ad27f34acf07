// Package fake provides utilities for generating random server history for testing and development purposes.
package fake

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/woozymasta/srcquery/internal/a2s"
	"github.com/woozymasta/srcquery/internal/models"
	"github.com/woozymasta/srcquery/internal/poller"
	"github.com/woozymasta/srcquery/internal/storage"
)

// GenerateData populates the storage with a specified number of randomized servers.
// Each server gets a short snapshot history of map and player changes.
// It returns the number of servers written.
func GenerateData(ctx context.Context, store *storage.Repository, count int) int {
	games := []struct{ folder, name string }{
		{"cstrike", "Counter-Strike: Source"},
		{"tf", "Team Fortress"},
		{"garrysmod", "Garry's Mod"},
		{"dayz", "DayZ"},
	}
	maps := []string{"de_dust2", "de_inferno", "cp_badlands", "ctf_2fort", "gm_construct", "chernarusplus"}
	versions := []string{"1.0.0.71", "8622567", "2023.06.28", "1.25.170000"}
	envs := []a2s.Environment{a2s.EnvironmentLinux, a2s.EnvironmentWindows}
	countries := []string{"US", "DE", "RU", "BR", "FR", "GB", "PL", "CA", "AU", "JP"}

	written := 0
	for i := 0; i < count; i++ {
		// Random first contact in 30 days range
		firstSeen := time.Now().UTC().Add(-time.Duration(rand.Intn(30*24)) * time.Hour)
		g := games[rand.Intn(len(games))]
		port := uint16(27015 + rand.Intn(100))
		address := fmt.Sprintf("%d.%d.%d.%d:%d", rand.Intn(220)+1, rand.Intn(255), rand.Intn(255), rand.Intn(255), port)

		info := a2s.ServerInfo{
			Name:        fmt.Sprintf("%s Server #%d", g.name, rand.Intn(1000)),
			Folder:      g.folder,
			Game:        g.name,
			Version:     versions[rand.Intn(len(versions))],
			MaxPlayers:  32,
			ServerType:  a2s.ServerTypeDedicated,
			Environment: envs[rand.Intn(len(envs))],
			VAC:         rand.Float32() < 0.5,
			EDF:         a2s.EDFPort,
			GamePort:    &port,
		}

		server := models.Server{
			Address:     address,
			Label:       info.Name,
			Status:      models.StatusUp,
			CountryCode: countries[rand.Intn(len(countries))],
			FirstSeen:   firstSeen,
		}

		// One snapshot per map change
		changes := 1 + rand.Intn(5)
		queriedAt := firstSeen
		for c := 0; c < changes; c++ {
			info.Map = maps[rand.Intn(len(maps))]
			info.Players = uint8(rand.Intn(int(info.MaxPlayers) + 1))
			info.Bots = uint8(rand.Intn(int(info.Players) + 1))

			server.ApplyInfo(&info)
			server.Fingerprint = poller.Fingerprint(&info)
			server.LatencyMS = int64(10 + rand.Intn(150))
			server.LastSeen = queriedAt
			server.LastUp = queriedAt

			if err := store.UpsertServer(ctx, server); err != nil {
				log.Warn().Err(err).Msg("Failed to generate fake server")
				break
			}

			snapshot := models.Snapshot{
				QueriedAt:   queriedAt,
				Info:        info,
				RunID:       uuid.NewString(),
				Address:     address,
				Fingerprint: server.Fingerprint,
				LatencyMS:   server.LatencyMS,
			}
			if _, err := store.InsertSnapshot(ctx, snapshot); err != nil {
				log.Warn().Err(err).Msg("Failed to generate fake snapshot")
				break
			}

			queriedAt = queriedAt.Add(time.Duration(1+rand.Intn(120)) * time.Minute)
		}

		// 20% chance the server went away after its last change
		if rand.Float32() < 0.2 {
			server.Status = models.StatusDown
			server.LastError = "i/o timeout"
			server.LastSeen = queriedAt
			_ = store.UpsertServer(ctx, server)
		}

		written++
	}

	log.Info().Int("count", written).Msg("Fake data generated")

	return written
}
