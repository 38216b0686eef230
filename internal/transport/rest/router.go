package rest

import (
	"net/http"
	"os"

	"github.com/gorilla/mux"

	"guessflag/internal/cache"
	"guessflag/internal/service"
	"guessflag/internal/transport/rest/handler"
	"guessflag/internal/transport/rest/middleware"
	"guessflag/internal/transport/ws"
)

// Container holds all dependencies for the router.
type Container struct {
	AuthService    *service.AuthService
	SessionService *service.SessionService
	PlayerService  *service.PlayerService
	AnswerService  *service.AnswerService
	Scoreboard     cache.ScoreboardCache
	WSHub          *ws.Hub
}

// NewRouter creates the API router with all endpoints.
func NewRouter(c *Container) http.Handler {
	r := mux.NewRouter()

	sessionHandler := handler.NewSessionHandler(c.SessionService, c.PlayerService, c.Scoreboard)
	playerHandler := handler.NewPlayerHandler(c.PlayerService)
	answerHandler := handler.NewAnswerHandler(c.AnswerService)
	wsHandler := ws.NewHandler(c.WSHub, c.AuthService, c.SessionService)

	authMW := middleware.NewAuthMiddleware(c.AuthService)

	r.Use(corsMiddleware)

	v1 := r.PathPrefix("/v1").Subrouter()

	// Public routes
	v1.HandleFunc("/sessions", sessionHandler.Create).Methods("POST", "OPTIONS")
	v1.HandleFunc("/sessions/{code}", sessionHandler.Get).Methods("GET", "OPTIONS")
	v1.HandleFunc("/sessions/{code}/join", playerHandler.Join).Methods("POST", "OPTIONS")
	v1.HandleFunc("/sessions/{code}/question/current", sessionHandler.CurrentQuestion).Methods("GET", "OPTIONS")
	v1.HandleFunc("/sessions/{code}/leaderboard", sessionHandler.Leaderboard).Methods("GET", "OPTIONS")

	// Event stream (token in query param)
	v1.HandleFunc("/ws/sessions/{code}", wsHandler.SessionWS).Methods("GET")

	// Health check
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	// Player routes (require player auth; host-only commands check the host
	// flag in the service layer)
	playerRoutes := v1.NewRoute().Subrouter()
	playerRoutes.Use(authMW.RequirePlayer)

	playerRoutes.HandleFunc("/sessions/{code}/start", sessionHandler.Start).Methods("POST", "OPTIONS")
	playerRoutes.HandleFunc("/sessions/{code}/cancel", sessionHandler.Cancel).Methods("POST", "OPTIONS")
	playerRoutes.HandleFunc("/sessions/{code}/ready", playerHandler.Ready).Methods("POST", "OPTIONS")
	playerRoutes.HandleFunc("/sessions/{code}/leave", playerHandler.Leave).Methods("POST", "OPTIONS")
	playerRoutes.HandleFunc("/sessions/{code}/players/{playerId}", playerHandler.Remove).Methods("DELETE", "OPTIONS")
	playerRoutes.HandleFunc("/sessions/{code}/answers", answerHandler.Submit).Methods("POST", "OPTIONS")

	return r
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		allowedOrigins := os.Getenv("CORS_ALLOWED_ORIGINS")
		if allowedOrigins == "" {
			allowedOrigins = "*"
		}

		w.Header().Set("Access-Control-Allow-Origin", allowedOrigins)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
