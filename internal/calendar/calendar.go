package calendar

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/rs/zerolog/log"
)

// ErrSeasonOver is returned when no event cutoff lies in the future.
var ErrSeasonOver = errors.New("no upcoming events remain in the calendar")

// Event is one round of the season. Cutoff is the instant the pick
// window closes, normally first-practice start.
type Event struct {
	Round  int       `json:"round"`
	Name   string    `json:"name"`
	Cutoff time.Time `json:"cutoff"`
	Sprint bool      `json:"sprint"`
}

// Calendar is the fixed, ordered list of season events. It is pure
// time-comparison logic over immutable data, safe for concurrent use.
type Calendar struct {
	events []Event
}

// New builds a Calendar from the given events, sorted by cutoff.
func New(events []Event) *Calendar {
	sorted := make([]Event, len(events))
	copy(sorted, events)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Cutoff.Before(sorted[j].Cutoff)
	})
	return &Calendar{events: sorted}
}

// LoadFile reads a JSON event list from disk.
func LoadFile(path string) (*Calendar, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read calendar file: %w", err)
	}

	var events []Event
	if err := json.Unmarshal(data, &events); err != nil {
		return nil, fmt.Errorf("failed to parse calendar file: %w", err)
	}
	if len(events) == 0 {
		return nil, fmt.Errorf("calendar file %s contains no events", path)
	}

	log.Info().
		Int("events", len(events)).
		Str("path", path).
		Msg("Race calendar loaded")

	return New(events), nil
}

// Events returns the full season schedule in cutoff order.
func (c *Calendar) Events() []Event {
	out := make([]Event, len(c.events))
	copy(out, c.events)
	return out
}

// NextOpen returns the earliest event whose cutoff is strictly after
// now. Predictions are accepted only while such an event exists.
func (c *Calendar) NextOpen(now time.Time) (Event, error) {
	for _, ev := range c.events {
		if ev.Cutoff.After(now) {
			return ev, nil
		}
	}
	return Event{}, ErrSeasonOver
}

// Accepts reports whether a pick submitted at now beats the next open
// cutoff. A false result with a nil error means the grid is locked for
// the event returned alongside.
func (c *Calendar) Accepts(now time.Time) (Event, bool) {
	ev, err := c.NextOpen(now)
	if err != nil {
		return Event{}, false
	}
	return ev, true
}

// ByRound looks up an event by its round number.
func (c *Calendar) ByRound(round int) (Event, bool) {
	for _, ev := range c.events {
		if ev.Round == round {
			return ev, true
		}
	}
	return Event{}, false
}

// RecentlyClosed returns the latest event whose cutoff has passed but
// still lies inside the trailing window, i.e. the event whose results
// should be final and whose settlement is due.
func (c *Calendar) RecentlyClosed(now time.Time, window time.Duration) (Event, bool) {
	for i := len(c.events) - 1; i >= 0; i-- {
		ev := c.events[i]
		if ev.Cutoff.After(now) {
			continue
		}
		if now.Sub(ev.Cutoff) <= window {
			return ev, true
		}
		break
	}
	return Event{}, false
}
