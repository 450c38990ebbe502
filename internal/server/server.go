package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"f1league/internal/cache"
	"f1league/internal/calendar"
	"f1league/internal/client"
	"f1league/internal/config"
	"f1league/internal/repository"
	"f1league/internal/settlement"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
)

// Server is the league HTTP API
type Server struct {
	cfg     *config.Config
	db      *repository.Database
	settler *settlement.Settler
	cal     *calendar.Calendar
	feed    *client.Client
	cache   *cache.RedisCache

	httpServer *http.Server
}

// NewServer creates the API server
func NewServer(
	cfg *config.Config,
	db *repository.Database,
	settler *settlement.Settler,
	cal *calendar.Calendar,
	feed *client.Client,
	redisCache *cache.RedisCache,
) *Server {
	s := &Server{
		cfg:     cfg,
		db:      db,
		settler: settler,
		cal:     cal,
		feed:    feed,
		cache:   redisCache,
	}

	router := mux.NewRouter()
	router.Use(loggingMiddleware)

	router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	router.HandleFunc("/register", s.handleRegister).Methods(http.MethodPost)
	router.HandleFunc("/login", s.handleLogin).Methods(http.MethodPost)
	router.HandleFunc("/predict", s.handlePredict).Methods(http.MethodPost)

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/predictions/me", s.handleMyPrediction).Methods(http.MethodPost)
	api.HandleFunc("/next-race", s.handleNextRace).Methods(http.MethodGet)
	api.HandleFunc("/standings/live", s.handleLiveStandings).Methods(http.MethodGet)
	api.HandleFunc("/season-leaderboard", s.handleSeasonLeaderboard).Methods(http.MethodGet)
	api.HandleFunc("/season-results", s.handleSeasonResults).Methods(http.MethodGet)
	api.HandleFunc("/finalize", s.handleFinalize).Methods(http.MethodPost)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	return s
}

// Start serves until the listener fails or Shutdown is called
func (s *Server) Start() error {
	log.Info().Int("port", s.cfg.ServerPort).Msg("API server listening")
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("API server failed: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Dur("duration", time.Since(start)).
			Msg("Request handled")
	})
}

// apiMessage is the uniform user-facing result shape: a short message
// and a success flag, never internal detail.
type apiMessage struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func respondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

func respondMessage(w http.ResponseWriter, status int, success bool, message string) {
	respondJSON(w, status, apiMessage{Success: success, Message: message})
}
