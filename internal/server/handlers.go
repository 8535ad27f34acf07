package server

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"

	"github.com/rs/zerolog/log"
	"github.com/woozymasta/srcquery/internal/a2s"
	"github.com/woozymasta/srcquery/internal/game"
	"github.com/woozymasta/srcquery/internal/models"
	"github.com/woozymasta/srcquery/internal/vars"
)

const (
	defaultSnapshotLimit = 50
	maxSnapshotLimit     = 1000
)

// rawReply is the JSON form of a reply that is not decoded.
type rawReply struct {
	Kind    string `json:"kind"`
	Payload string `json:"payload"`
}

// handleServerQuery performs a live A2S query to a specific game server.
// Query params: ?address=1.2.3.4:27015&kind=info
func (s *Server) handleServerQuery(w http.ResponseWriter, r *http.Request) {
	address, ok := requireAddress(w, r)
	if !ok {
		return
	}

	kind := a2s.KindInfo
	if k := r.URL.Query().Get("kind"); k != "" {
		var err error
		if kind, err = a2s.ParseKind(k); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	if kind == a2s.KindInfo {
		info, err := game.QueryServer(r.Context(), address, s.a2sOptions)
		if err != nil {
			writeQueryError(w, address, err)
			return
		}
		writeJSON(w, http.StatusOK, info)
		return
	}

	reply, err := game.QueryRaw(r.Context(), address, kind, s.a2sOptions)
	if err != nil {
		writeQueryError(w, address, err)
		return
	}

	writeJSON(w, http.StatusOK, rawReply{Kind: kind.String(), Payload: hex.EncodeToString(reply)})
}

// handleServers returns a JSON list of all polled servers.
func (s *Server) handleServers(w http.ResponseWriter, r *http.Request) {
	servers, err := s.storage.GetServers(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("Failed to fetch servers")
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}

	if servers == nil {
		servers = []models.Server{}
	}

	writeJSON(w, http.StatusOK, servers)
}

// handleGetServer returns the stored state of one server.
// Query params: ?address=1.2.3.4:27015
func (s *Server) handleGetServer(w http.ResponseWriter, r *http.Request) {
	address, ok := requireAddress(w, r)
	if !ok {
		return
	}

	server, err := s.storage.GetServer(r.Context(), address)
	if err != nil {
		log.Error().Err(err).Str("address", address).Msg("Failed to fetch server")
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}

	if server == nil {
		writeError(w, http.StatusNotFound, "server not found")
		return
	}

	writeJSON(w, http.StatusOK, server)
}

// handleDeleteServer removes a server and its history.
// Query params: ?address=1.2.3.4:27015
func (s *Server) handleDeleteServer(w http.ResponseWriter, r *http.Request) {
	address, ok := requireAddress(w, r)
	if !ok {
		return
	}

	if err := s.storage.DeleteServer(r.Context(), address); err != nil {
		log.Error().Err(err).Str("address", address).Msg("Failed to delete server")
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}

	log.Info().Str("address", address).Msg("Server deleted manually")

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "message": "server deleted"})
}

// handleSnapshots returns the recorded state changes of one server, newest first.
// Query params: ?address=1.2.3.4:27015&limit=50
func (s *Server) handleSnapshots(w http.ResponseWriter, r *http.Request) {
	address, ok := requireAddress(w, r)
	if !ok {
		return
	}

	limit := defaultSnapshotLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = min(n, maxSnapshotLimit)
	}

	snapshots, err := s.storage.GetSnapshots(r.Context(), address, limit)
	if err != nil {
		log.Error().Err(err).Str("address", address).Msg("Failed to fetch snapshots")
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}

	if snapshots == nil {
		snapshots = []models.Snapshot{}
	}

	writeJSON(w, http.StatusOK, snapshots)
}

// handleVersion returns build information.
func (s *Server) handleVersion(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, vars.Info())
}

// requireAddress reads and validates the address query parameter.
func requireAddress(w http.ResponseWriter, r *http.Request) (string, bool) {
	address := r.URL.Query().Get("address")
	if address == "" {
		writeError(w, http.StatusBadRequest, "missing address")
		return "", false
	}

	if _, port, err := net.SplitHostPort(address); err != nil || port == "" {
		writeError(w, http.StatusBadRequest, "invalid address, expected host:port")
		return "", false
	}

	return address, true
}

// writeQueryError maps A2S failures to gateway status codes.
func writeQueryError(w http.ResponseWriter, address string, err error) {
	status := http.StatusBadGateway
	if errors.Is(err, a2s.ErrTransport) {
		status = http.StatusGatewayTimeout
	}

	log.Debug().Err(err).Str("address", address).Msg("Live A2S query failed")

	writeError(w, status, err.Error())
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
