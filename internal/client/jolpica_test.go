package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const raceResultsBody = `{
  "MRData": {
    "RaceTable": {
      "Races": [
        {
          "season": "2026",
          "round": "1",
          "raceName": "Australian Grand Prix",
          "date": "2026-03-08",
          "Results": [
            {
              "position": "1",
              "positionText": "1",
              "grid": "2",
              "status": "Finished",
              "Driver": {"givenName": "Max", "familyName": "Verstappen"},
              "Constructor": {"name": "Red Bull"}
            },
            {
              "position": "18",
              "positionText": "R",
              "grid": "5",
              "status": "Collision",
              "Driver": {"givenName": "Charles", "familyName": "Leclerc"},
              "Constructor": {"name": "Ferrari"}
            }
          ]
        }
      ]
    }
  }
}`

const emptyTableBody = `{"MRData": {"RaceTable": {"Races": []}}}`

const nextRaceBody = `{
  "MRData": {
    "RaceTable": {
      "Races": [
        {
          "season": "2026",
          "round": "2",
          "raceName": "Chinese Grand Prix",
          "date": "2026-03-22",
          "time": "07:00:00Z",
          "FirstPractice": {"date": "2026-03-20", "time": "03:30:00Z"},
          "Sprint": {"date": "2026-03-21", "time": "03:00:00Z"}
        }
      ]
    }
  }
}`

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, 5*time.Second)
}

func TestFetchRaceResults(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/2026/1/results.json", r.URL.Path)
		w.Write([]byte(raceResultsBody))
	})

	entries, err := c.FetchRaceResults(context.Background(), "2026", 1)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, "Max Verstappen", entries[0].DriverName())
	assert.Equal(t, "Red Bull", entries[0].Constructor)
	assert.Equal(t, 1, entries[0].Position)
	assert.Equal(t, 2, entries[0].Grid)

	assert.Equal(t, "Collision", entries[1].Status)
	assert.Equal(t, "R", entries[1].PositionText)
	assert.Equal(t, 18, entries[1].Position)
}

func TestFetchRaceResultsNoData(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(emptyTableBody))
	})

	entries, err := c.FetchRaceResults(context.Background(), "2026", 24)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestFetchNextRace(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/current/next.json", r.URL.Path)
		w.Write([]byte(nextRaceBody))
	})

	next, err := c.FetchNextRace(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "Chinese Grand Prix", next.Name)
	assert.Equal(t, 2, next.Round)
	assert.True(t, next.Sprint)
	// Deadline is first-practice start.
	assert.Equal(t, time.Date(2026, time.March, 20, 3, 30, 0, 0, time.UTC), next.Deadline.UTC())
}

func TestFetchNextRaceNoUpcoming(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(emptyTableBody))
	})

	_, err := c.FetchNextRace(context.Background())
	assert.Error(t, err)
}

func TestRetryOnServiceUnavailable(t *testing.T) {
	attempts := 0
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(emptyTableBody))
	})

	_, err := c.FetchRaceResults(context.Background(), "2026", 1)
	require.NoError(t, err)
	assert.Equal(t, 2, attempts)
}

func TestNoRetryOnClientError(t *testing.T) {
	attempts := 0
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusNotFound)
	})

	_, err := c.FetchRaceResults(context.Background(), "2026", 99)
	assert.Error(t, err)
	assert.Equal(t, 1, attempts)
}
