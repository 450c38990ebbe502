package settlement

import (
	"context"
	"errors"
	"testing"

	"f1league/internal/calendar"
	"f1league/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// In-memory store fakes.

type fakeStore struct {
	predictions []models.Prediction
	users       map[string]*models.User
	settled     map[int]bool

	applyErr error
	applied  int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:   map[string]*models.User{},
		settled: map[int]bool{},
	}
}

func (f *fakeStore) List(ctx context.Context) ([]models.Prediction, error) {
	return f.predictions, nil
}

func (f *fakeStore) IsSettled(ctx context.Context, round int) (bool, error) {
	return f.settled[round], nil
}

func (f *fakeStore) ApplySettlement(ctx context.Context, round int, deltas map[string]int) error {
	if f.applyErr != nil {
		return f.applyErr
	}
	if f.settled[round] {
		return ErrAlreadySettled
	}
	for name, delta := range deltas {
		if u, ok := f.users[name]; ok {
			u.TotalScore += delta
		}
	}
	f.predictions = nil
	f.settled[round] = true
	f.applied++
	return nil
}

type fakeUserStore struct{ store *fakeStore }

func (f fakeUserStore) List(ctx context.Context) ([]models.User, error) {
	var users []models.User
	for _, u := range f.store.users {
		users = append(users, *u)
	}
	return users, nil
}

type fakeFeed struct {
	race    []models.ResultEntry
	sprint  []models.ResultEntry
	raceErr error
}

func (f *fakeFeed) FetchRaceResults(ctx context.Context, season string, round int) ([]models.ResultEntry, error) {
	return f.race, f.raceErr
}

func (f *fakeFeed) FetchSprintResults(ctx context.Context, season string, round int) ([]models.ResultEntry, error) {
	return f.sprint, nil
}

type fakeNotifier struct{ messages []string }

func (f *fakeNotifier) Post(ctx context.Context, message string) {
	f.messages = append(f.messages, message)
}

func testRoster() models.Roster {
	return models.Roster{
		"red bull": {"Max Verstappen", "Isack Hadjar"},
		"ferrari":  {"Charles Leclerc", "Lewis Hamilton"},
		"mclaren":  {"Lando Norris", "Oscar Piastri"},
	}
}

func fixedRace() []models.ResultEntry {
	mk := func(given, family, team string, grid, pos int) models.ResultEntry {
		return models.ResultEntry{
			GivenName: given, FamilyName: family, Constructor: team,
			Grid: grid, Position: pos, Status: "Finished",
		}
	}
	return []models.ResultEntry{
		mk("Max", "Verstappen", "Red Bull", 1, 1),
		mk("Charles", "Leclerc", "Ferrari", 2, 2),
		mk("Lando", "Norris", "McLaren", 3, 3),
		mk("Oscar", "Piastri", "McLaren", 4, 4),
		mk("Lewis", "Hamilton", "Ferrari", 5, 5),
		mk("Isack", "Hadjar", "Red Bull", 10, 6),
	}
}

func newSettler(store *fakeStore, feed *fakeFeed, notifier *fakeNotifier) *Settler {
	return New(store, fakeUserStore{store}, store, store, feed, notifier, testRoster(), "2026")
}

func event() calendar.Event {
	return calendar.Event{Round: 1, Name: "Australian Grand Prix"}
}

func TestSettleEndToEnd(t *testing.T) {
	store := newFakeStore()
	store.users["alice"] = &models.User{Name: "alice"}
	store.users["bob"] = &models.User{Name: "bob"}
	store.users["carol"] = &models.User{Name: "carol"} // never submits

	// alice: P1 exact (+2). bob: P1 off by four (-4).
	store.predictions = []models.Prediction{
		{UserName: "alice", P1: "Max Verstappen"},
		{UserName: "bob", P1: "Lewis Hamilton"},
	}

	feed := &fakeFeed{race: fixedRace()}
	notifier := &fakeNotifier{}
	settler := newSettler(store, feed, notifier)

	outcome, err := settler.Settle(context.Background(), event())
	require.NoError(t, err)

	// Both participants' totals moved by their independently-computed
	// scores.
	assert.Equal(t, 2, outcome.Scores["alice"])
	assert.Equal(t, -4, outcome.Scores["bob"])
	assert.Equal(t, 2, store.users["alice"].TotalScore)
	assert.Equal(t, -4, store.users["bob"].TotalScore)

	// The absent user received penalty = min(2, -4) - 5, not zero and
	// not a skipped update.
	assert.Equal(t, -9, outcome.Penalty)
	assert.Equal(t, -9, store.users["carol"].TotalScore)

	// The prediction table is empty afterwards.
	assert.Empty(t, store.predictions)

	assert.Len(t, notifier.messages, 1)
}

func TestSecondSettleIsNoOp(t *testing.T) {
	store := newFakeStore()
	store.users["alice"] = &models.User{Name: "alice"}
	store.predictions = []models.Prediction{{UserName: "alice", P1: "Max Verstappen"}}

	settler := newSettler(store, &fakeFeed{race: fixedRace()}, &fakeNotifier{})

	_, err := settler.Settle(context.Background(), event())
	require.NoError(t, err)
	totalAfterFirst := store.users["alice"].TotalScore

	// Marker-based rejection.
	_, err = settler.Settle(context.Background(), event())
	assert.ErrorIs(t, err, ErrAlreadySettled)
	assert.Equal(t, totalAfterFirst, store.users["alice"].TotalScore)
	assert.Equal(t, 1, store.applied)

	// A later round against the now-empty table is also a no-op.
	_, err = settler.Settle(context.Background(), calendar.Event{Round: 2})
	assert.ErrorIs(t, err, ErrNoParticipants)
	assert.Equal(t, totalAfterFirst, store.users["alice"].TotalScore)
}

func TestPenaltyTracksMinimumScore(t *testing.T) {
	store := newFakeStore()
	store.users["a"] = &models.User{Name: "a"}
	store.users["b"] = &models.User{Name: "b"}
	store.users["c"] = &models.User{Name: "c"}
	store.users["absent"] = &models.User{Name: "absent"}

	// Against the fixed classification: a scores +2 (P1 exact),
	// b scores -3 (P1 vs P4), c scores -1 (P1 vs P2).
	store.predictions = []models.Prediction{
		{UserName: "a", P1: "Max Verstappen"},
		{UserName: "b", P1: "Oscar Piastri"},
		{UserName: "c", P1: "Charles Leclerc"},
	}

	settler := newSettler(store, &fakeFeed{race: fixedRace()}, &fakeNotifier{})

	outcome, err := settler.Settle(context.Background(), event())
	require.NoError(t, err)

	// Penalty is the worst participant score minus the fixed margin.
	assert.Equal(t, -3, outcome.Scores["b"])
	assert.Equal(t, -8, outcome.Penalty)
	assert.Equal(t, -8, store.users["absent"].TotalScore)
}

func TestSettleAbortsWithoutPredictions(t *testing.T) {
	store := newFakeStore()
	store.users["alice"] = &models.User{Name: "alice", TotalScore: 10}

	settler := newSettler(store, &fakeFeed{race: fixedRace()}, &fakeNotifier{})

	_, err := settler.Settle(context.Background(), event())
	assert.ErrorIs(t, err, ErrNoParticipants)
	assert.Equal(t, 10, store.users["alice"].TotalScore)
	assert.False(t, store.settled[1])
}

func TestSettleAbortsOnEmptyClassification(t *testing.T) {
	store := newFakeStore()
	store.users["alice"] = &models.User{Name: "alice"}
	store.predictions = []models.Prediction{{UserName: "alice", P1: "Max Verstappen"}}

	settler := newSettler(store, &fakeFeed{race: nil}, &fakeNotifier{})

	_, err := settler.Settle(context.Background(), event())
	assert.ErrorIs(t, err, ErrNoData)
	assert.Len(t, store.predictions, 1)
	assert.Zero(t, store.users["alice"].TotalScore)
}

func TestSettleAbortsOnFeedError(t *testing.T) {
	store := newFakeStore()
	store.users["alice"] = &models.User{Name: "alice"}
	store.predictions = []models.Prediction{{UserName: "alice", P1: "Max Verstappen"}}

	settler := newSettler(store, &fakeFeed{raceErr: errors.New("feed unreachable")}, &fakeNotifier{})

	_, err := settler.Settle(context.Background(), event())
	assert.Error(t, err)
	assert.Len(t, store.predictions, 1)
}

func TestStorageFaultLeavesGuardsIntact(t *testing.T) {
	store := newFakeStore()
	store.users["alice"] = &models.User{Name: "alice"}
	store.predictions = []models.Prediction{{UserName: "alice", P1: "Max Verstappen"}}
	store.applyErr = errors.New("connection reset")

	settler := newSettler(store, &fakeFeed{race: fixedRace()}, &fakeNotifier{})

	_, err := settler.Settle(context.Background(), event())
	assert.Error(t, err)
	assert.False(t, store.settled[1])
	assert.Len(t, store.predictions, 1)
}

func TestAdminExcludedFromDeltas(t *testing.T) {
	store := newFakeStore()
	store.users["alice"] = &models.User{Name: "alice"}
	store.users["race-director"] = &models.User{Name: "race-director", IsAdmin: true}
	store.predictions = []models.Prediction{{UserName: "alice", P1: "Max Verstappen"}}

	settler := newSettler(store, &fakeFeed{race: fixedRace()}, &fakeNotifier{})

	outcome, err := settler.Settle(context.Background(), event())
	require.NoError(t, err)
	assert.Equal(t, 1, outcome.UsersUpdated)
	assert.Zero(t, store.users["race-director"].TotalScore)
}

func TestPreviewDoesNotMutate(t *testing.T) {
	store := newFakeStore()
	store.users["alice"] = &models.User{Name: "alice"}
	store.users["carol"] = &models.User{Name: "carol"}
	store.predictions = []models.Prediction{{UserName: "alice", P1: "Max Verstappen"}}

	settler := newSettler(store, &fakeFeed{race: fixedRace()}, &fakeNotifier{})

	standings, err := settler.Preview(context.Background(), event())
	require.NoError(t, err)
	require.Len(t, standings, 2)

	// Sorted descending: alice (+2) above carol (penalty 2-5 = -3).
	assert.Equal(t, "alice", standings[0].UserName)
	assert.Equal(t, 2, standings[0].Score)
	assert.True(t, standings[0].Submitted)
	assert.Equal(t, "carol", standings[1].UserName)
	assert.Equal(t, -3, standings[1].Score)
	assert.False(t, standings[1].Submitted)

	// No mutation.
	assert.Len(t, store.predictions, 1)
	assert.Zero(t, store.users["alice"].TotalScore)
	assert.False(t, store.settled[1])
}
