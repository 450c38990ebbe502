package settlement

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"f1league/internal/calendar"
	"f1league/internal/metrics"
	"f1league/internal/models"
	"f1league/internal/results"
	"f1league/internal/scoring"

	"github.com/rs/zerolog/log"
)

// PenaltyMargin is how far below the worst participant an absent user
// lands.
const PenaltyMargin = 5

// Settlement failure taxonomy. All of these leave state untouched.
var (
	ErrNoData         = errors.New("no result data available for the round")
	ErrNoParticipants = errors.New("no predictions stored for the round")
	ErrAlreadySettled = errors.New("round has already been settled")
	ErrInProgress     = errors.New("a settlement is already in progress")
)

// PredictionStore reads the live prediction table.
type PredictionStore interface {
	List(ctx context.Context) ([]models.Prediction, error)
}

// UserStore reads the season records.
type UserStore interface {
	List(ctx context.Context) ([]models.User, error)
}

// RoundStore reads settlement markers.
type RoundStore interface {
	IsSettled(ctx context.Context, round int) (bool, error)
}

// TransactionStore commits one round's deltas, clears predictions and
// marks the round settled as a single unit.
type TransactionStore interface {
	ApplySettlement(ctx context.Context, round int, deltas map[string]int) error
}

// ResultFeed supplies the authoritative classifications.
type ResultFeed interface {
	FetchRaceResults(ctx context.Context, season string, round int) ([]models.ResultEntry, error)
	FetchSprintResults(ctx context.Context, season string, round int) ([]models.ResultEntry, error)
}

// Notifier posts fire-and-forget text messages. Implementations log
// their own failures and never return them.
type Notifier interface {
	Post(ctx context.Context, message string)
}

// Settler runs the season settlement: score every stored prediction,
// compute the absent-user penalty, apply all deltas and reset the
// prediction table for the next round. It is the only writer of season
// totals and serializes itself.
type Settler struct {
	predictions PredictionStore
	users       UserStore
	rounds      RoundStore
	store       TransactionStore
	feed        ResultFeed
	notifier    Notifier
	roster      models.Roster
	season      string

	mu sync.Mutex
}

// New creates a Settler.
func New(
	predictions PredictionStore,
	users UserStore,
	rounds RoundStore,
	store TransactionStore,
	feed ResultFeed,
	notifier Notifier,
	roster models.Roster,
	season string,
) *Settler {
	return &Settler{
		predictions: predictions,
		users:       users,
		rounds:      rounds,
		store:       store,
		feed:        feed,
		notifier:    notifier,
		roster:      roster,
		season:      season,
	}
}

// Outcome summarizes a committed settlement.
type Outcome struct {
	Round        int
	Scores       map[string]int
	Penalty      int
	UsersUpdated int
}

// Settle finalizes one event. Guards: the round must not carry a
// settlement marker, at least one prediction must be stored, and the
// feed must return a non-empty classification. Any guard failure aborts
// with state unchanged. Overlapping invocations are rejected with
// ErrInProgress rather than queued.
func (s *Settler) Settle(ctx context.Context, ev calendar.Event) (*Outcome, error) {
	if !s.mu.TryLock() {
		return nil, ErrInProgress
	}
	defer s.mu.Unlock()

	start := time.Now()
	outcome, err := s.settle(ctx, ev)
	status := "success"
	scored := 0
	if err != nil {
		status = "failure"
		switch {
		case errors.Is(err, ErrAlreadySettled), errors.Is(err, ErrNoParticipants):
			status = "noop"
		}
	} else {
		scored = len(outcome.Scores)
	}
	metrics.RecordSettlement(status, time.Since(start).Seconds(), scored)
	return outcome, err
}

func (s *Settler) settle(ctx context.Context, ev calendar.Event) (*Outcome, error) {
	settled, err := s.rounds.IsSettled(ctx, ev.Round)
	if err != nil {
		return nil, fmt.Errorf("failed to check settlement marker: %w", err)
	}
	if settled {
		return nil, ErrAlreadySettled
	}

	preds, err := s.predictions.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch predictions: %w", err)
	}
	if len(preds) == 0 {
		return nil, ErrNoParticipants
	}

	cls, err := s.classify(ctx, ev)
	if err != nil {
		return nil, err
	}

	scores, penalty := scoreAll(preds, cls)

	users, err := s.users.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch season records: %w", err)
	}

	// Every non-admin user gets a delta: their score if they played,
	// the penalty if they sat out. Never a skipped update.
	deltas := make(map[string]int, len(users))
	for _, u := range users {
		if u.IsAdmin {
			continue
		}
		if score, ok := scores[u.Name]; ok {
			deltas[u.Name] = score
		} else {
			deltas[u.Name] = penalty
		}
	}

	if err := s.store.ApplySettlement(ctx, ev.Round, deltas); err != nil {
		if errors.Is(err, ErrAlreadySettled) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to apply settlement: %w", err)
	}

	metrics.PendingPredictions.Set(0)

	log.Info().
		Int("round", ev.Round).
		Str("event", ev.Name).
		Int("participants", len(scores)).
		Int("users_updated", len(deltas)).
		Int("penalty", penalty).
		Msg("Round settled")

	s.notifier.Post(ctx, fmt.Sprintf(
		"%s (round %d) settled: %d predictions scored, %d season totals updated.",
		ev.Name, ev.Round, len(scores), len(deltas),
	))

	return &Outcome{
		Round:        ev.Round,
		Scores:       scores,
		Penalty:      penalty,
		UsersUpdated: len(deltas),
	}, nil
}

// classify fetches and ingests the round's classification. A sprint
// fetch failure on a sprint weekend degrades to race-only scoring.
func (s *Settler) classify(ctx context.Context, ev calendar.Event) (*results.Classification, error) {
	race, err := s.feed.FetchRaceResults(ctx, s.season, ev.Round)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch race results: %w", err)
	}
	if len(race) == 0 {
		return nil, ErrNoData
	}

	var sprint []models.ResultEntry
	if ev.Sprint {
		sprint, err = s.feed.FetchSprintResults(ctx, s.season, ev.Round)
		if err != nil {
			log.Warn().Err(err).Int("round", ev.Round).
				Msg("Sprint results unavailable, scoring race only")
			sprint = nil
		}
	}

	return results.Build(race, sprint, s.roster), nil
}

// scoreAll scores every prediction and derives the absent-user penalty:
// the minimum participant score minus the fixed margin.
func scoreAll(preds []models.Prediction, cls *results.Classification) (map[string]int, int) {
	scores := make(map[string]int, len(preds))
	min := 0
	for i := range preds {
		score := scoring.Score(&preds[i], cls)
		scores[preds[i].UserName] = score
		if i == 0 || score < min {
			min = score
		}
	}
	return scores, min - PenaltyMargin
}

// Standing is one row of the provisional (unsettled) leaderboard.
type Standing struct {
	UserName  string `json:"user_name"`
	Score     int    `json:"score"`
	Submitted bool   `json:"submitted"`
}

// Preview scores the stored predictions against the current
// classification without mutating anything. Registered users without a
// submission appear with the would-be penalty.
func (s *Settler) Preview(ctx context.Context, ev calendar.Event) ([]Standing, error) {
	preds, err := s.predictions.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch predictions: %w", err)
	}
	if len(preds) == 0 {
		return nil, ErrNoParticipants
	}

	cls, err := s.classify(ctx, ev)
	if err != nil {
		return nil, err
	}

	scores, penalty := scoreAll(preds, cls)

	users, err := s.users.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch season records: %w", err)
	}

	standings := make([]Standing, 0, len(users))
	for _, u := range users {
		if u.IsAdmin {
			continue
		}
		if score, ok := scores[u.Name]; ok {
			standings = append(standings, Standing{UserName: u.Name, Score: score, Submitted: true})
		} else {
			standings = append(standings, Standing{UserName: u.Name, Score: penalty})
		}
	}

	sort.Slice(standings, func(i, j int) bool {
		if standings[i].Score != standings[j].Score {
			return standings[i].Score > standings[j].Score
		}
		return standings[i].UserName < standings[j].UserName
	})

	return standings, nil
}
