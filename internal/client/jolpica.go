package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"f1league/internal/metrics"
	"f1league/internal/models"

	"github.com/rs/zerolog/log"
)

// Client is the Jolpica (Ergast-compatible) result feed client
type Client struct {
	baseURL     string
	httpClient  *http.Client
	rateLimiter chan struct{} // Rate limiting semaphore
	maxRetries  int
	retryDelay  time.Duration
}

// NewClient creates a new result feed client
func NewClient(baseURL string, timeout time.Duration) *Client {
	// Create rate limiter (max 4 concurrent requests; the feed is a
	// shared community API)
	rateLimiter := make(chan struct{}, 4)
	for i := 0; i < 4; i++ {
		rateLimiter <- struct{}{}
	}

	return &Client{
		baseURL:     baseURL,
		rateLimiter: rateLimiter,
		maxRetries:  3,
		retryDelay:  1 * time.Second,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        20,
				MaxIdleConnsPerHost: 5,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

// get performs a GET request to the feed with retry logic and rate limiting
func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	url := fmt.Sprintf("%s/%s", c.baseURL, path)
	start := time.Now()

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			// Exponential backoff: 1s, 2s, 4s
			backoff := c.retryDelay * time.Duration(1<<uint(attempt-1))
			log.Info().
				Str("url", url).
				Int("attempt", attempt).
				Dur("backoff", backoff).
				Msg("Retrying feed request after backoff")

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		// Rate limiting: acquire semaphore
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-c.rateLimiter:
			defer func() { c.rateLimiter <- struct{}{} }()
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}

		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", "f1league/1.0")

		log.Debug().
			Str("url", url).
			Int("attempt", attempt+1).
			Msg("Making feed request")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("feed request failed: %w", err)
			// Retry on network errors
			if attempt < c.maxRetries {
				continue
			}
			metrics.RecordFeedCall(path, "error", time.Since(start).Seconds())
			return nil, lastErr
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			lastErr = fmt.Errorf("failed to read response body: %w", err)
			if attempt < c.maxRetries {
				continue
			}
			metrics.RecordFeedCall(path, "error", time.Since(start).Seconds())
			return nil, lastErr
		}

		switch resp.StatusCode {
		case http.StatusOK:
			log.Debug().
				Str("url", url).
				Int("status", resp.StatusCode).
				Int("size", len(body)).
				Msg("Feed request successful")
			metrics.RecordFeedCall(path, "ok", time.Since(start).Seconds())
			return body, nil

		case http.StatusTooManyRequests, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			// Retryable errors
			lastErr = fmt.Errorf("feed returned retryable status %d", resp.StatusCode)
			if attempt < c.maxRetries {
				log.Warn().
					Str("url", url).
					Int("status", resp.StatusCode).
					Int("attempt", attempt+1).
					Msg("Received retryable error, will retry")
				continue
			}
			metrics.RecordFeedCall(path, "error", time.Since(start).Seconds())
			return nil, lastErr

		default:
			// Other errors - don't retry
			metrics.RecordFeedCall(path, "error", time.Since(start).Seconds())
			return nil, fmt.Errorf("feed returned status %d: %s", resp.StatusCode, string(body))
		}
	}

	return nil, lastErr
}

// FetchRaceResults fetches the finalized race classification for a
// round. An empty slice means the feed has no data for the round yet.
func (c *Client) FetchRaceResults(ctx context.Context, season string, round int) ([]models.ResultEntry, error) {
	path := fmt.Sprintf("%s/%d/results.json", season, round)
	body, err := c.get(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch race results: %w", err)
	}
	return parseResults(body, false)
}

// FetchSprintResults fetches the sprint session classification for a
// round. An empty slice means no sprint data is available.
func (c *Client) FetchSprintResults(ctx context.Context, season string, round int) ([]models.ResultEntry, error) {
	path := fmt.Sprintf("%s/%d/sprint.json", season, round)
	body, err := c.get(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch sprint results: %w", err)
	}
	return parseResults(body, true)
}

// NextRace describes the upcoming event as reported by the feed.
type NextRace struct {
	Name     string    `json:"name"`
	Round    int       `json:"round"`
	Deadline time.Time `json:"deadline"`
	Sprint   bool      `json:"sprint"`
}

// FetchNextRace fetches the upcoming event. The deadline is the
// first-practice start when the feed reports one, otherwise midnight of
// race day.
func (c *Client) FetchNextRace(ctx context.Context) (*NextRace, error) {
	body, err := c.get(ctx, "current/next.json")
	if err != nil {
		return nil, fmt.Errorf("failed to fetch next race: %w", err)
	}

	var envelope raceTableEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("failed to unmarshal next race: %w", err)
	}

	races := envelope.MRData.RaceTable.Races
	if len(races) == 0 {
		return nil, fmt.Errorf("feed reports no upcoming races")
	}

	race := races[0]
	round, err := strconv.Atoi(race.Round)
	if err != nil {
		return nil, fmt.Errorf("feed returned invalid round %q: %w", race.Round, err)
	}

	deadline, err := race.deadline()
	if err != nil {
		return nil, fmt.Errorf("failed to parse next race deadline: %w", err)
	}

	return &NextRace{
		Name:     race.RaceName,
		Round:    round,
		Deadline: deadline,
		Sprint:   race.Sprint != nil,
	}, nil
}

// RaceWinner is one row of the season results summary.
type RaceWinner struct {
	Round  int    `json:"round"`
	Name   string `json:"name"`
	Winner string `json:"winner"`
	Team   string `json:"team"`
}

// FetchSeasonWinners fetches the winner of every completed round of a
// season.
func (c *Client) FetchSeasonWinners(ctx context.Context, season string) ([]RaceWinner, error) {
	path := fmt.Sprintf("%s/results/1.json", season)
	body, err := c.get(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch season results: %w", err)
	}

	var envelope raceTableEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("failed to unmarshal season results: %w", err)
	}

	winners := make([]RaceWinner, 0, len(envelope.MRData.RaceTable.Races))
	for _, race := range envelope.MRData.RaceTable.Races {
		if len(race.Results) == 0 {
			continue
		}
		round, err := strconv.Atoi(race.Round)
		if err != nil {
			log.Warn().Str("round", race.Round).Msg("Skipping race with invalid round")
			continue
		}
		first := race.Results[0]
		winners = append(winners, RaceWinner{
			Round:  round,
			Name:   race.RaceName,
			Winner: first.Driver.GivenName + " " + first.Driver.FamilyName,
			Team:   first.Constructor.Name,
		})
	}

	return winners, nil
}

// Feed JSON shapes (Ergast wire format: numbers arrive as strings)

type raceTableEnvelope struct {
	MRData struct {
		RaceTable struct {
			Races []raceJSON `json:"Races"`
		} `json:"RaceTable"`
	} `json:"MRData"`
}

type raceJSON struct {
	Season        string       `json:"season"`
	Round         string       `json:"round"`
	RaceName      string       `json:"raceName"`
	Date          string       `json:"date"`
	Time          string       `json:"time"`
	FirstPractice *sessionJSON `json:"FirstPractice"`
	Sprint        *sessionJSON `json:"Sprint"`
	Results       []resultJSON `json:"Results"`
	SprintResults []resultJSON `json:"SprintResults"`
}

type sessionJSON struct {
	Date string `json:"date"`
	Time string `json:"time"`
}

type resultJSON struct {
	Position     string `json:"position"`
	PositionText string `json:"positionText"`
	Grid         string `json:"grid"`
	Status       string `json:"status"`
	Driver       struct {
		GivenName  string `json:"givenName"`
		FamilyName string `json:"familyName"`
	} `json:"Driver"`
	Constructor struct {
		Name string `json:"name"`
	} `json:"Constructor"`
}

func (r *raceJSON) deadline() (time.Time, error) {
	if r.FirstPractice != nil && r.FirstPractice.Date != "" {
		return time.Parse(time.RFC3339, r.FirstPractice.Date+"T"+r.FirstPractice.Time)
	}
	return time.Parse(time.RFC3339, r.Date+"T00:00:00Z")
}

func parseResults(body []byte, sprint bool) ([]models.ResultEntry, error) {
	var envelope raceTableEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("failed to unmarshal results: %w", err)
	}

	races := envelope.MRData.RaceTable.Races
	if len(races) == 0 {
		return nil, nil
	}

	raw := races[0].Results
	if sprint {
		raw = races[0].SprintResults
	}

	entries := make([]models.ResultEntry, 0, len(raw))
	for _, r := range raw {
		// Non-numeric position text ("R", "D") leaves Position at
		// zero; the ingestor's status override takes care of it.
		position, _ := strconv.Atoi(r.Position)
		grid, _ := strconv.Atoi(r.Grid)
		entries = append(entries, models.ResultEntry{
			GivenName:    r.Driver.GivenName,
			FamilyName:   r.Driver.FamilyName,
			Constructor:  r.Constructor.Name,
			Grid:         grid,
			Position:     position,
			PositionText: r.PositionText,
			Status:       r.Status,
		})
	}

	return entries, nil
}
