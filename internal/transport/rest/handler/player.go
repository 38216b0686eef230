package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"guessflag/internal/service"
	"guessflag/internal/transport/rest/middleware"
)

// PlayerHandler handles join/ready/leave endpoints.
type PlayerHandler struct {
	players *service.PlayerService
}

func NewPlayerHandler(players *service.PlayerService) *PlayerHandler {
	return &PlayerHandler{players: players}
}

// JoinRequest is the request body for joining a session. PlayerID makes the
// join a rejoin when it names a player already in the session.
type JoinRequest struct {
	Name     string `json:"name"`
	PlayerID string `json:"playerId,omitempty"`
}

// Join handles POST /v1/sessions/{code}/join.
func (h *PlayerHandler) Join(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]

	var req JoinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.players.Join(r.Context(), code, req.Name, req.PlayerID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// Ready handles POST /v1/sessions/{code}/ready; it toggles the
// authenticated player's ready flag.
func (h *PlayerHandler) Ready(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]
	playerID := middleware.GetPlayerID(r.Context())
	if middleware.GetSessionCode(r.Context()) != code {
		writeError(w, http.StatusForbidden, "token not valid for this session")
		return
	}

	player, err := h.players.ToggleReady(r.Context(), code, playerID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, player)
}

// Remove handles DELETE /v1/sessions/{code}/players/{playerId} (host only).
func (h *PlayerHandler) Remove(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	code := vars["code"]
	targetID := vars["playerId"]
	requesterID := middleware.GetPlayerID(r.Context())
	if middleware.GetSessionCode(r.Context()) != code {
		writeError(w, http.StatusForbidden, "token not valid for this session")
		return
	}

	if err := h.players.Remove(r.Context(), code, requesterID, targetID); err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"removed": true})
}

// Leave handles POST /v1/sessions/{code}/leave.
func (h *PlayerHandler) Leave(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]
	playerID := middleware.GetPlayerID(r.Context())
	if middleware.GetSessionCode(r.Context()) != code {
		writeError(w, http.StatusForbidden, "token not valid for this session")
		return
	}

	if err := h.players.Leave(r.Context(), code, playerID); err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"left": true})
}
