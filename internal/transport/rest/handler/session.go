package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"guessflag/internal/cache"
	"guessflag/internal/service"
	"guessflag/internal/transport/rest/middleware"
)

// SessionHandler handles session lifecycle endpoints.
type SessionHandler struct {
	sessions   *service.SessionService
	players    *service.PlayerService
	scoreboard cache.ScoreboardCache
}

func NewSessionHandler(sessions *service.SessionService, players *service.PlayerService, scoreboard cache.ScoreboardCache) *SessionHandler {
	return &SessionHandler{
		sessions:   sessions,
		players:    players,
		scoreboard: scoreboard,
	}
}

// CreateSessionRequest is the request body for creating a session.
type CreateSessionRequest struct {
	HostName string `json:"hostName"`
}

// Create handles POST /v1/sessions. The creating player joins immediately
// and becomes host.
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	session, err := h.sessions.Create(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}

	join, err := h.players.Join(r.Context(), session.Code, req.HostName, "")
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"code":   session.Code,
		"player": join.Player,
		"token":  join.Token,
	})
}

// Get handles GET /v1/sessions/{code}.
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]

	view, err := h.sessions.GetSession(r.Context(), code)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, view)
}

// StartGameRequest is the request body for starting a game.
type StartGameRequest struct {
	QuestionCount int `json:"questionCount"`
}

// Start handles POST /v1/sessions/{code}/start (host only).
func (h *SessionHandler) Start(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]
	playerID := middleware.GetPlayerID(r.Context())
	if middleware.GetSessionCode(r.Context()) != code {
		writeError(w, http.StatusForbidden, "token not valid for this session")
		return
	}

	var req StartGameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.sessions.Start(r.Context(), code, playerID, req.QuestionCount); err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"started": true})
}

// Cancel handles POST /v1/sessions/{code}/cancel (host only).
func (h *SessionHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]
	playerID := middleware.GetPlayerID(r.Context())
	if middleware.GetSessionCode(r.Context()) != code {
		writeError(w, http.StatusForbidden, "token not valid for this session")
		return
	}

	if err := h.sessions.Cancel(r.Context(), code, playerID); err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"cancelled": true})
}

// CurrentQuestion handles GET /v1/sessions/{code}/question/current.
func (h *SessionHandler) CurrentQuestion(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]

	question, err := h.sessions.GetCurrentQuestion(r.Context(), code)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if question == nil {
		writeJSON(w, http.StatusOK, map[string]any{"question": nil})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"question": question})
}

// Leaderboard handles GET /v1/sessions/{code}/leaderboard, served from the
// Redis scoreboard mirror.
func (h *SessionHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]

	entries, err := h.scoreboard.Top(r.Context(), code, 50)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"leaderboard": entries})
}
