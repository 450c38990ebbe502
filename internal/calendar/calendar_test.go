package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2026, time.March, 6, 1, 30, 0, 0, time.UTC)

func season() *Calendar {
	return New([]Event{
		{Round: 1, Name: "Australian Grand Prix", Cutoff: base},
		{Round: 2, Name: "Chinese Grand Prix", Cutoff: base.AddDate(0, 0, 14), Sprint: true},
		{Round: 3, Name: "Japanese Grand Prix", Cutoff: base.AddDate(0, 0, 28)},
	})
}

func TestNextOpenPicksEarliestFutureCutoff(t *testing.T) {
	cal := season()

	ev, err := cal.NextOpen(base.Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, ev.Round)

	// Round 1 cutoff passed: round 2 is next.
	ev, err = cal.NextOpen(base.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 2, ev.Round)
	assert.True(t, ev.Sprint)
}

func TestCutoffIsStrict(t *testing.T) {
	cal := season()

	// A submission exactly at the cutoff instant is already locked.
	ev, err := cal.NextOpen(base)
	require.NoError(t, err)
	assert.Equal(t, 2, ev.Round)
}

func TestSeasonOver(t *testing.T) {
	cal := season()

	_, err := cal.NextOpen(base.AddDate(0, 2, 0))
	assert.ErrorIs(t, err, ErrSeasonOver)

	_, ok := cal.Accepts(base.AddDate(0, 2, 0))
	assert.False(t, ok)
}

func TestRecentlyClosedWindow(t *testing.T) {
	cal := season()
	window := 48 * time.Hour

	// One hour after round 1 cutoff: round 1 is due for settlement.
	ev, ok := cal.RecentlyClosed(base.Add(time.Hour), window)
	require.True(t, ok)
	assert.Equal(t, 1, ev.Round)

	// Three days later the window has expired.
	_, ok = cal.RecentlyClosed(base.Add(72*time.Hour), window)
	assert.False(t, ok)

	// Before the first cutoff nothing is due.
	_, ok = cal.RecentlyClosed(base.Add(-time.Hour), window)
	assert.False(t, ok)
}

func TestRecentlyClosedPrefersLatestEvent(t *testing.T) {
	cal := season()

	// Just after round 2's cutoff, round 2 wins even though round 1
	// also lies in a very generous window.
	ev, ok := cal.RecentlyClosed(base.AddDate(0, 0, 14).Add(time.Hour), 30*24*time.Hour)
	require.True(t, ok)
	assert.Equal(t, 2, ev.Round)
}

func TestNewSortsByCutoff(t *testing.T) {
	cal := New([]Event{
		{Round: 2, Cutoff: base.AddDate(0, 0, 14)},
		{Round: 1, Cutoff: base},
	})

	ev, err := cal.NextOpen(base.Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, ev.Round)
}
