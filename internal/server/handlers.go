package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"f1league/internal/calendar"
	"f1league/internal/metrics"
	"f1league/internal/models"
	"f1league/internal/repository"
	"f1league/internal/scheduler"
	"f1league/internal/settlement"

	"github.com/rs/zerolog/log"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.db.Health(r.Context()); err != nil {
		log.Error().Err(err).Msg("Health check failed")
		respondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy"})
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var creds models.Credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		respondMessage(w, http.StatusBadRequest, false, "Invalid request body.")
		return
	}

	user, err := s.db.Users.Create(r.Context(), creds.Name, creds.Password)
	if errors.Is(err, repository.ErrDuplicateUser) {
		respondMessage(w, http.StatusBadRequest, false, "That name is already taken.")
		return
	}
	if err != nil {
		log.Error().Err(err).Str("name", creds.Name).Msg("Registration failed")
		respondMessage(w, http.StatusBadRequest, false, "Registration failed.")
		return
	}

	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"success":   true,
		"user_name": user.Name,
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var creds models.Credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		respondMessage(w, http.StatusBadRequest, false, "Invalid request body.")
		return
	}

	user, err := s.db.Users.Authenticate(r.Context(), creds.Name, creds.Password)
	if errors.Is(err, repository.ErrInvalidCredentials) {
		respondMessage(w, http.StatusUnauthorized, false, "Invalid name or password.")
		return
	}
	if err != nil {
		log.Error().Err(err).Str("name", creds.Name).Msg("Login failed")
		respondMessage(w, http.StatusInternalServerError, false, "Login failed.")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success":     true,
		"user_name":   user.Name,
		"total_score": user.TotalScore,
		"is_admin":    user.IsAdmin,
	})
}

// handlePredict stores a pick set. The deadline gate runs before
// anything else: once the next cutoff has passed, nothing is written.
func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	var input models.PredictionInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		respondMessage(w, http.StatusBadRequest, false, "Invalid request body.")
		return
	}

	ev, open := s.cal.Accepts(time.Now())
	if !open {
		respondMessage(w, http.StatusForbidden, false,
			"The grid is locked. Predictions reopen after the race is settled.")
		return
	}

	if _, err := s.db.Users.Authenticate(r.Context(), input.UserName, input.Password); err != nil {
		if errors.Is(err, repository.ErrInvalidCredentials) {
			respondMessage(w, http.StatusUnauthorized, false, "Invalid name or password.")
			return
		}
		log.Error().Err(err).Str("name", input.UserName).Msg("Prediction auth failed")
		respondMessage(w, http.StatusInternalServerError, false, "Submission failed.")
		return
	}

	pred := input.ToPrediction()
	if err := s.db.Predictions.Upsert(r.Context(), pred); err != nil {
		log.Error().Err(err).Str("name", input.UserName).Msg("Failed to store prediction")
		respondMessage(w, http.StatusInternalServerError, false, "Submission failed.")
		return
	}

	if count, err := s.db.Predictions.Count(r.Context()); err == nil {
		metrics.PendingPredictions.Set(float64(count))
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Prediction locked in for " + ev.Name + ".",
		"round":   ev.Round,
	})
}

// handleMyPrediction returns the caller's stored picks. POST because the
// credentials travel in the body.
func (s *Server) handleMyPrediction(w http.ResponseWriter, r *http.Request) {
	var creds models.Credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		respondMessage(w, http.StatusBadRequest, false, "Invalid request body.")
		return
	}

	if _, err := s.db.Users.Authenticate(r.Context(), creds.Name, creds.Password); err != nil {
		respondMessage(w, http.StatusUnauthorized, false, "Invalid name or password.")
		return
	}

	pred, err := s.db.Predictions.GetByUser(r.Context(), creds.Name)
	if errors.Is(err, repository.ErrNotFound) {
		respondJSON(w, http.StatusOK, map[string]interface{}{
			"success":    true,
			"prediction": nil,
		})
		return
	}
	if err != nil {
		log.Error().Err(err).Str("name", creds.Name).Msg("Failed to fetch prediction")
		respondMessage(w, http.StatusInternalServerError, false, "Lookup failed.")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"prediction": map[string]string{
			"p1": pred.P1, "p2": pred.P2, "p3": pred.P3,
			"p10": pred.P10, "p11": pred.P11,
			"p19": pred.P19, "p20": pred.P20,
			"c1": pred.C1, "c2": pred.C2, "c5": pred.C5,
			"c6": pred.C6, "c10": pred.C10,
			"w_race_loser":    pred.RaceLoser,
			"w_sprint_gainer": pred.SprintGainer,
			"w_sprint_loser":  pred.SprintLoser,
		},
	})
}

// handleNextRace serves the upcoming event: cache first, then the live
// feed, then the static calendar as a last resort.
func (s *Server) handleNextRace(w http.ResponseWriter, r *http.Request) {
	if cached, ok := s.cache.Get(r.Context(), scheduler.NextRaceCacheKey); ok {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte(cached)); err != nil {
			log.Error().Err(err).Msg("Failed to write cached next race")
		}
		return
	}

	next, err := s.feed.FetchNextRace(r.Context())
	if err == nil && next != nil {
		respondJSON(w, http.StatusOK, next)
		return
	}
	if err != nil {
		log.Warn().Err(err).Msg("Next-race feed lookup failed, falling back to calendar")
	}

	ev, err := s.cal.NextOpen(time.Now())
	if err != nil {
		respondMessage(w, http.StatusNotFound, false, "The season is over.")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"name":     ev.Name,
		"round":    ev.Round,
		"deadline": ev.Cutoff,
		"sprint":   ev.Sprint,
	})
}

// handleLiveStandings shows the provisional scores for the round in the
// settlement window, computed on the fly and never persisted.
func (s *Server) handleLiveStandings(w http.ResponseWriter, r *http.Request) {
	ev, ok := s.cal.RecentlyClosed(time.Now(), s.cfg.SettleWindow)
	if !ok {
		respondMessage(w, http.StatusNotFound, false, "No race is currently in progress or awaiting settlement.")
		return
	}

	standings, err := s.settler.Preview(r.Context(), ev)
	switch {
	case errors.Is(err, settlement.ErrNoParticipants):
		respondMessage(w, http.StatusNotFound, false, "No predictions were submitted for this round.")
		return
	case errors.Is(err, settlement.ErrNoData):
		respondMessage(w, http.StatusNotFound, false, "Results are not available yet.")
		return
	case err != nil:
		log.Error().Err(err).Int("round", ev.Round).Msg("Live standings failed")
		respondMessage(w, http.StatusInternalServerError, false, "Standings unavailable.")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"round":     ev.Round,
		"race":      ev.Name,
		"standings": standings,
	})
}

// handleSeasonLeaderboard returns the committed season totals.
func (s *Server) handleSeasonLeaderboard(w http.ResponseWriter, r *http.Request) {
	users, err := s.db.Users.List(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("Failed to fetch leaderboard")
		respondMessage(w, http.StatusInternalServerError, false, "Leaderboard unavailable.")
		return
	}

	type row struct {
		UserName   string `json:"user_name"`
		TotalScore int    `json:"total_score"`
	}

	board := make([]row, 0, len(users))
	for _, u := range users {
		if u.IsAdmin {
			continue
		}
		board = append(board, row{UserName: u.Name, TotalScore: u.TotalScore})
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{"leaderboard": board})
}

func (s *Server) handleSeasonResults(w http.ResponseWriter, r *http.Request) {
	winners, err := s.feed.FetchSeasonWinners(r.Context(), s.cfg.FeedSeason)
	if err != nil {
		log.Error().Err(err).Msg("Failed to fetch season winners")
		respondMessage(w, http.StatusBadGateway, false, "Season results unavailable.")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"races": winners})
}

type finalizeRequest struct {
	UserName string `json:"user_name"`
	Password string `json:"password"`
	Round    int    `json:"round"`
}

// handleFinalize triggers settlement manually. Admin only. Without an
// explicit round it settles whichever event sits in the settlement
// window, same as the scheduler would.
func (s *Server) handleFinalize(w http.ResponseWriter, r *http.Request) {
	var req finalizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondMessage(w, http.StatusBadRequest, false, "Invalid request body.")
		return
	}

	user, err := s.db.Users.Authenticate(r.Context(), req.UserName, req.Password)
	if err != nil {
		respondMessage(w, http.StatusUnauthorized, false, "Invalid name or password.")
		return
	}
	if !user.IsAdmin {
		respondMessage(w, http.StatusForbidden, false, "Finalization requires an admin account.")
		return
	}

	var (
		ev calendar.Event
		ok bool
	)
	if req.Round > 0 {
		ev, ok = s.cal.ByRound(req.Round)
		if !ok {
			respondMessage(w, http.StatusBadRequest, false, "Unknown round.")
			return
		}
	} else {
		ev, ok = s.cal.RecentlyClosed(time.Now(), s.cfg.SettleWindow)
		if !ok {
			respondMessage(w, http.StatusBadRequest, false, "No round is awaiting settlement.")
			return
		}
	}

	outcome, err := s.settler.Settle(r.Context(), ev)
	switch {
	case errors.Is(err, settlement.ErrAlreadySettled):
		respondMessage(w, http.StatusConflict, false, "This round has already been settled.")
		return
	case errors.Is(err, settlement.ErrNoParticipants):
		respondMessage(w, http.StatusOK, false, "No predictions to settle.")
		return
	case errors.Is(err, settlement.ErrNoData):
		respondMessage(w, http.StatusConflict, false, "Results are not available yet.")
		return
	case errors.Is(err, settlement.ErrInProgress):
		respondMessage(w, http.StatusConflict, false, "A settlement is already running.")
		return
	case err != nil:
		log.Error().Err(err).Int("round", ev.Round).Msg("Manual settlement failed")
		respondMessage(w, http.StatusInternalServerError, false, "Settlement failed.")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success":       true,
		"round":         outcome.Round,
		"participants":  len(outcome.Scores),
		"penalty":       outcome.Penalty,
		"users_updated": outcome.UsersUpdated,
	})
}
