// Package storage handles database connections, schema migrations, and data operations using SQLite.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/woozymasta/srcquery/internal/a2s"
	"github.com/woozymasta/srcquery/internal/models"
	_ "modernc.org/sqlite" // Driver sqlite
)

// Repository manages the SQLite database connection.
type Repository struct {
	db *sql.DB
}

const serverColumns = `
	address, label, status, last_error, country_code,
	server_name, map_name, game_name, game_version, server_os,
	players, max_players, bots, latency_ms, fingerprint,
	count, first_seen, last_seen, last_up`

// New initializes a new SQLite connection, sets connection pool parameters, and runs migrations.
func New(dbPath string) (*Repository, error) {
	dsn := dbPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(1 * time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	if err := runMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Repository{db: db}, nil
}

// Close closes the underlying database connection.
func (r *Repository) Close() error {
	return r.db.Close()
}

// UpsertServer inserts a server or updates the existing row for its address.
// A2S fields, fingerprint and last_up only change when the server is up,
// so a failed query keeps the last known state.
func (r *Repository) UpsertServer(ctx context.Context, s models.Server) error {
	query := `
	INSERT INTO servers (` + serverColumns + `)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1, ?, ?, ?)
	ON CONFLICT(address) DO UPDATE SET
		count      = count + 1,
		last_seen  = excluded.last_seen,
		label      = excluded.label,
		status     = excluded.status,
		last_error = excluded.last_error,
		latency_ms = excluded.latency_ms,

		-- Update country if resolved
		country_code = CASE WHEN excluded.country_code != '' THEN excluded.country_code ELSE servers.country_code END,

		-- Update A2S fields only when the query succeeded
		server_name  = CASE WHEN excluded.status = 'up' THEN excluded.server_name ELSE servers.server_name END,
		map_name     = CASE WHEN excluded.status = 'up' THEN excluded.map_name ELSE servers.map_name END,
		game_name    = CASE WHEN excluded.status = 'up' THEN excluded.game_name ELSE servers.game_name END,
		game_version = CASE WHEN excluded.status = 'up' THEN excluded.game_version ELSE servers.game_version END,
		server_os    = CASE WHEN excluded.status = 'up' THEN excluded.server_os ELSE servers.server_os END,
		players      = CASE WHEN excluded.status = 'up' THEN excluded.players ELSE servers.players END,
		max_players  = CASE WHEN excluded.status = 'up' THEN excluded.max_players ELSE servers.max_players END,
		bots         = CASE WHEN excluded.status = 'up' THEN excluded.bots ELSE servers.bots END,
		fingerprint  = CASE WHEN excluded.status = 'up' THEN excluded.fingerprint ELSE servers.fingerprint END,
		last_up      = CASE WHEN excluded.status = 'up' THEN excluded.last_up ELSE servers.last_up END;
	`

	// FirstSeen is only written for new rows
	_, err := r.db.ExecContext(ctx, query,
		s.Address, s.Label, s.Status, s.LastError, s.CountryCode,
		s.ServerName, s.MapName, s.GameName, s.GameVersion, s.ServerOS,
		s.Players, s.MaxPlayers, s.Bots, s.LatencyMS, int64(s.Fingerprint),
		s.FirstSeen.UTC(), s.LastSeen.UTC(), s.LastUp.UTC(),
	)

	return err
}

// GetServers retrieves all servers, most recently seen first.
func (r *Repository) GetServers(ctx context.Context) ([]models.Server, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+serverColumns+` FROM servers ORDER BY last_seen DESC`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var servers []models.Server
	for rows.Next() {
		s, err := scanServer(rows)
		if err != nil {
			log.Warn().Err(err).Msg("Skipping unreadable server row")
			continue
		}
		servers = append(servers, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return servers, nil
}

// GetServer retrieves one server by address. It returns nil without error if none is stored.
func (r *Repository) GetServer(ctx context.Context, address string) (*models.Server, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+serverColumns+` FROM servers WHERE address = ?`, address)

	s, err := scanServer(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil // Not found
	}
	if err != nil {
		return nil, err
	}

	return s, nil
}

// DeleteServer removes a server and its snapshot history.
func (r *Repository) DeleteServer(ctx context.Context, address string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM snapshots WHERE address = ?`, address); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM servers WHERE address = ?`, address); err != nil {
		return err
	}

	return tx.Commit()
}

// InsertSnapshot stores the info as its canonical A2S_INFO reply and returns the row id.
func (r *Repository) InsertSnapshot(ctx context.Context, s models.Snapshot) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO snapshots (run_id, address, fingerprint, latency_ms, payload, queried_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		s.RunID, s.Address, int64(s.Fingerprint), s.LatencyMS, a2s.EncodeInfo(&s.Info), s.QueriedAt.UTC(),
	)
	if err != nil {
		return 0, err
	}

	return res.LastInsertId()
}

// GetSnapshots returns up to limit snapshots of a server, newest first.
func (r *Repository) GetSnapshots(ctx context.Context, address string, limit int) ([]models.Snapshot, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, run_id, address, fingerprint, latency_ms, payload, queried_at
		FROM snapshots
		WHERE address = ?
		ORDER BY queried_at DESC, id DESC
		LIMIT ?`, address, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var snapshots []models.Snapshot
	for rows.Next() {
		var (
			s           models.Snapshot
			fingerprint int64
			payload     []byte
		)
		if err := rows.Scan(&s.ID, &s.RunID, &s.Address, &fingerprint, &s.LatencyMS, &payload, &s.QueriedAt); err != nil {
			log.Warn().Err(err).Msg("Skipping unreadable snapshot row")
			continue
		}

		info, err := a2s.DecodeInfo(payload)
		if err != nil {
			log.Warn().Err(err).Int64("id", s.ID).Msg("Skipping undecodable snapshot payload")
			continue
		}

		s.Fingerprint = uint64(fingerprint)
		s.Info = *info
		snapshots = append(snapshots, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return snapshots, nil
}

// PruneSnapshots deletes snapshots recorded before the given time.
func (r *Repository) PruneSnapshots(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM snapshots WHERE queried_at < ?`, before.UTC())
	if err != nil {
		return 0, err
	}

	return res.RowsAffected()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanServer(row scanner) (*models.Server, error) {
	var (
		s           models.Server
		fingerprint int64
	)

	if err := row.Scan(
		&s.Address, &s.Label, &s.Status, &s.LastError, &s.CountryCode,
		&s.ServerName, &s.MapName, &s.GameName, &s.GameVersion, &s.ServerOS,
		&s.Players, &s.MaxPlayers, &s.Bots, &s.LatencyMS, &fingerprint,
		&s.Count, &s.FirstSeen, &s.LastSeen, &s.LastUp,
	); err != nil {
		return nil, err
	}
	s.Fingerprint = uint64(fingerprint)

	return &s, nil
}
