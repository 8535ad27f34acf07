package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/woozymasta/srcquery/internal/a2s"
	"github.com/woozymasta/srcquery/internal/models"
)

const address = "203.0.113.10:27015"

func openRepo(t *testing.T) *Repository {
	t.Helper()

	repo, err := New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })

	return repo
}

func TestMigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	for i := 0; i < 2; i++ {
		repo, err := New(path)
		if err != nil {
			t.Fatalf("New #%d: %v", i+1, err)
		}
		_ = repo.Close()
	}
}

func TestUpsertServerKeepsLastKnownState(t *testing.T) {
	repo := openRepo(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	up := models.Server{
		Address:     address,
		Label:       "eu-1",
		Status:      models.StatusUp,
		CountryCode: "DE",
		Fingerprint: 1<<63 + 5,
		LatencyMS:   12,
		FirstSeen:   now,
		LastSeen:    now,
		LastUp:      now,
	}
	up.ApplyInfo(&a2s.ServerInfo{Name: "Server", Map: "livonia", Players: 4, MaxPlayers: 60, Environment: a2s.EnvironmentWindows})

	if err := repo.UpsertServer(ctx, up); err != nil {
		t.Fatalf("UpsertServer(up): %v", err)
	}

	later := now.Add(time.Minute)
	down := models.Server{
		Address:   address,
		Label:     "eu-1",
		Status:    models.StatusDown,
		LastError: "timeout",
		FirstSeen: later,
		LastSeen:  later,
	}
	if err := repo.UpsertServer(ctx, down); err != nil {
		t.Fatalf("UpsertServer(down): %v", err)
	}

	got, err := repo.GetServer(ctx, address)
	if err != nil {
		t.Fatalf("GetServer: %v", err)
	}
	if got == nil {
		t.Fatal("GetServer returned nil")
	}

	if got.Status != models.StatusDown || got.LastError != "timeout" || got.Count != 2 {
		t.Errorf("status/error/count = %s/%s/%d", got.Status, got.LastError, got.Count)
	}
	if got.ServerName != "Server" || got.MapName != "livonia" || got.Players != 4 || got.ServerOS != "windows" {
		t.Errorf("A2S fields not kept: %+v", got)
	}
	if got.CountryCode != "DE" || got.Fingerprint != 1<<63+5 {
		t.Errorf("country/fingerprint = %s/%d", got.CountryCode, got.Fingerprint)
	}
	if !got.FirstSeen.Equal(now) || !got.LastSeen.Equal(later) || !got.LastUp.Equal(now) {
		t.Errorf("times = %v/%v/%v", got.FirstSeen, got.LastSeen, got.LastUp)
	}

	servers, err := repo.GetServers(ctx)
	if err != nil || len(servers) != 1 {
		t.Fatalf("GetServers = %v, %v", servers, err)
	}
}

func TestGetServerMissing(t *testing.T) {
	got, err := openRepo(t).GetServer(context.Background(), "198.51.100.1:1")
	if err != nil || got != nil {
		t.Fatalf("GetServer = %v, %v; want nil, nil", got, err)
	}
}

func TestSnapshots(t *testing.T) {
	repo := openRepo(t)
	ctx := context.Background()
	now := time.Now().UTC()

	port := uint16(2302)
	keywords := "pvp,hardcore"
	info := a2s.ServerInfo{
		Name:     "DayZ",
		Map:      "chernarusplus",
		Players:  10,
		EDF:      a2s.EDFPort | a2s.EDFKeywords,
		GamePort: &port,
		Keywords: &keywords,
	}

	for i, at := range []time.Time{now.Add(-48 * time.Hour), now} {
		_, err := repo.InsertSnapshot(ctx, models.Snapshot{
			RunID:       "run",
			Address:     address,
			Fingerprint: uint64(i + 1),
			QueriedAt:   at,
			Info:        info,
		})
		if err != nil {
			t.Fatalf("InsertSnapshot: %v", err)
		}
	}

	snapshots, err := repo.GetSnapshots(ctx, address, 10)
	if err != nil {
		t.Fatalf("GetSnapshots: %v", err)
	}
	if len(snapshots) != 2 {
		t.Fatalf("GetSnapshots returned %d rows, want 2", len(snapshots))
	}
	latest := snapshots[0]
	if latest.Fingerprint != 2 || latest.Info.Name != "DayZ" || latest.Info.GamePort == nil || *latest.Info.GamePort != 2302 {
		t.Fatalf("latest snapshot = %+v", latest)
	}
	if tags := latest.Info.Tags(); len(tags) != 2 {
		t.Fatalf("Tags = %q", tags)
	}

	pruned, err := repo.PruneSnapshots(ctx, now.Add(-24*time.Hour))
	if err != nil || pruned != 1 {
		t.Fatalf("PruneSnapshots = %d, %v; want 1", pruned, err)
	}

	if err := repo.DeleteServer(ctx, address); err != nil {
		t.Fatalf("DeleteServer: %v", err)
	}
	snapshots, err = repo.GetSnapshots(ctx, address, 10)
	if err != nil || len(snapshots) != 0 {
		t.Fatalf("GetSnapshots after delete = %v, %v", snapshots, err)
	}
}
