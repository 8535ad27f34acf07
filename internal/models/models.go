// Package models defines the data structures used for API responses and database persistence.
package models

import (
	"time"

	"github.com/woozymasta/srcquery/internal/a2s"
)

// Server status values.
const (
	StatusUp   = "up"
	StatusDown = "down"
)

// Server is the latest known state of a polled game server.
type Server struct {
	FirstSeen   time.Time `json:"first_seen"`
	LastSeen    time.Time `json:"last_seen"`
	LastUp      time.Time `json:"last_up"`
	Address     string    `json:"address"`
	Label       string    `json:"label"`
	Status      string    `json:"status"`
	LastError   string    `json:"last_error,omitempty"`
	CountryCode string    `json:"country_code"`
	ServerName  string    `json:"server_name"`
	MapName     string    `json:"map_name"`
	GameName    string    `json:"game_name"`
	GameVersion string    `json:"game_version"`
	ServerOS    string    `json:"server_os"`
	Fingerprint uint64    `json:"fingerprint,string"`
	Count       int64     `json:"count"`
	LatencyMS   int64     `json:"latency_ms"`
	Players     uint8     `json:"players"`
	MaxPlayers  uint8     `json:"max_players"`
	Bots        uint8     `json:"bots"`
}

// Snapshot is one recorded A2S_INFO reply, kept when the server state changes.
type Snapshot struct {
	QueriedAt   time.Time      `json:"queried_at"`
	Info        a2s.ServerInfo `json:"info"`
	RunID       string         `json:"run_id"`
	Address     string         `json:"address"`
	ID          int64          `json:"id"`
	Fingerprint uint64         `json:"fingerprint,string"`
	LatencyMS   int64          `json:"latency_ms"`
}

// ApplyInfo copies the A2S fields of info into the server state.
func (s *Server) ApplyInfo(info *a2s.ServerInfo) {
	s.ServerName = info.Name
	s.MapName = info.Map
	s.GameName = info.Game
	s.GameVersion = info.Version
	s.ServerOS = info.Environment.String()
	s.Players = info.Players
	s.MaxPlayers = info.MaxPlayers
	s.Bots = info.Bots
}
