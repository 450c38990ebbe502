package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"f1league/internal/calendar"
	"f1league/internal/client"
	"f1league/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPredictRejectedAfterCutoff(t *testing.T) {
	// Every cutoff in the past: the grid is locked.
	cal := calendar.New([]calendar.Event{
		{Round: 1, Name: "Bahrain Grand Prix", Cutoff: time.Now().Add(-2 * time.Hour)},
	})

	srv := NewServer(&config.Config{ServerPort: 0}, nil, nil, cal, nil, nil)

	body := `{"user_name":"alice","password":"pw","p1":"Max Verstappen"}`
	req := httptest.NewRequest(http.MethodPost, "/predict", strings.NewReader(body))
	rec := httptest.NewRecorder()

	srv.handlePredict(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)

	var resp apiMessage
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Message, "locked")
}

func TestPredictRejectsMalformedBody(t *testing.T) {
	cal := calendar.New([]calendar.Event{
		{Round: 1, Name: "Bahrain Grand Prix", Cutoff: time.Now().Add(time.Hour)},
	})
	srv := NewServer(&config.Config{ServerPort: 0}, nil, nil, cal, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/predict", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()

	srv.handlePredict(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestNextRaceFallsBackToCalendar(t *testing.T) {
	// Feed is down: the static calendar still answers.
	feedSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer feedSrv.Close()

	cutoff := time.Now().Add(72 * time.Hour).UTC().Truncate(time.Second)
	cal := calendar.New([]calendar.Event{
		{Round: 5, Name: "Miami Grand Prix", Cutoff: cutoff, Sprint: true},
	})

	srv := NewServer(
		&config.Config{ServerPort: 0},
		nil, nil, cal,
		client.NewClient(feedSrv.URL, 5*time.Second),
		nil,
	)

	req := httptest.NewRequest(http.MethodGet, "/api/next-race", nil)
	rec := httptest.NewRecorder()

	srv.handleNextRace(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Name     string    `json:"name"`
		Round    int       `json:"round"`
		Deadline time.Time `json:"deadline"`
		Sprint   bool      `json:"sprint"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "Miami Grand Prix", resp.Name)
	assert.Equal(t, 5, resp.Round)
	assert.True(t, resp.Sprint)
	assert.True(t, cutoff.Equal(resp.Deadline))
}

func TestNextRaceSeasonOver(t *testing.T) {
	feedSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer feedSrv.Close()

	cal := calendar.New([]calendar.Event{
		{Round: 24, Name: "Abu Dhabi Grand Prix", Cutoff: time.Now().Add(-30 * 24 * time.Hour)},
	})

	srv := NewServer(
		&config.Config{ServerPort: 0},
		nil, nil, cal,
		client.NewClient(feedSrv.URL, 5*time.Second),
		nil,
	)

	req := httptest.NewRequest(http.MethodGet, "/api/next-race", nil)
	rec := httptest.NewRecorder()

	srv.handleNextRace(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
