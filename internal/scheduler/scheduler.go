package scheduler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"f1league/internal/cache"
	"f1league/internal/calendar"
	"f1league/internal/client"
	"f1league/internal/config"
	"f1league/internal/metrics"
	"f1league/internal/settlement"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// NextRaceCacheKey is where the cron refresh stores the upcoming event.
const NextRaceCacheKey = "f1league:next-race"

// Scheduler manages the background work: a ticker that triggers
// settlement once a round's results should be final, and a nightly cron
// refresh of the cached next-race lookup.
type Scheduler struct {
	cfg      *config.Config
	cal      *calendar.Calendar
	settler  *settlement.Settler
	feed     *client.Client
	cache    *cache.RedisCache
	cron     *cron.Cron
	ticker   *time.Ticker
	stopChan chan struct{}
}

// NewScheduler creates a new scheduler instance
func NewScheduler(
	cfg *config.Config,
	cal *calendar.Calendar,
	settler *settlement.Settler,
	feed *client.Client,
	redisCache *cache.RedisCache,
) *Scheduler {
	return &Scheduler{
		cfg:      cfg,
		cal:      cal,
		settler:  settler,
		feed:     feed,
		cache:    redisCache,
		cron:     cron.New(),
		stopChan: make(chan struct{}),
	}
}

// Start starts the scheduler
func (s *Scheduler) Start(ctx context.Context) error {
	log.Info().Msg("Scheduler starting...")

	// Nightly refresh of the next-race cache
	if _, err := s.cron.AddFunc(s.cfg.NextRaceRefreshCron, func() {
		if err := s.refreshNextRace(ctx); err != nil {
			metrics.RecordError("scheduler", "next_race_refresh")
			log.Error().Err(err).Msg("Next-race refresh failed")
		}
	}); err != nil {
		return fmt.Errorf("failed to schedule next-race refresh: %w", err)
	}

	s.cron.Start()
	log.Info().
		Str("schedule", s.cfg.NextRaceRefreshCron).
		Msg("Next-race refresh scheduled")

	// Settlement polling ticker. Each tick checks whether an event's
	// cutoff lies inside the trailing settlement window.
	s.ticker = time.NewTicker(s.cfg.SettleCheckInterval)
	log.Info().
		Dur("interval", s.cfg.SettleCheckInterval).
		Dur("window", s.cfg.SettleWindow).
		Msg("Settlement polling started")

	go s.poll(ctx)

	return nil
}

// Stop stops the scheduler
func (s *Scheduler) Stop() {
	log.Info().Msg("Stopping scheduler...")

	if s.cron != nil {
		s.cron.Stop()
	}

	if s.ticker != nil {
		s.ticker.Stop()
	}

	close(s.stopChan)
	log.Info().Msg("Scheduler stopped")
}

func (s *Scheduler) poll(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Context cancelled, stopping settlement polling")
			return
		case <-s.stopChan:
			log.Info().Msg("Stop signal received, stopping settlement polling")
			return
		case <-s.ticker.C:
			s.checkSettlement(ctx)
		}
	}
}

// checkSettlement triggers settlement for the event whose cutoff has
// passed but is still inside the trailing window. Re-triggering an
// already-settled round is a silent no-op: the round marker and the
// empty prediction table both stop it.
func (s *Scheduler) checkSettlement(ctx context.Context) {
	ev, ok := s.cal.RecentlyClosed(time.Now(), s.cfg.SettleWindow)
	if !ok {
		log.Debug().Msg("No event inside the settlement window")
		return
	}

	start := time.Now()
	outcome, err := s.settler.Settle(ctx, ev)
	switch {
	case err == nil:
		log.Info().
			Int("round", outcome.Round).
			Int("participants", len(outcome.Scores)).
			Dur("duration", time.Since(start)).
			Msg("Scheduled settlement complete")
	case errors.Is(err, settlement.ErrAlreadySettled),
		errors.Is(err, settlement.ErrNoParticipants),
		errors.Is(err, settlement.ErrInProgress):
		log.Debug().Err(err).Int("round", ev.Round).Msg("Settlement not needed")
	case errors.Is(err, settlement.ErrNoData):
		// Results are not final yet; the next tick retries.
		log.Info().Int("round", ev.Round).Msg("Results not yet available, will retry")
	default:
		metrics.RecordError("scheduler", "settlement")
		log.Error().Err(err).Int("round", ev.Round).Msg("Scheduled settlement failed")
	}
}

// refreshNextRace fetches the upcoming event from the feed and caches
// it for the API.
func (s *Scheduler) refreshNextRace(ctx context.Context) error {
	next, err := s.feed.FetchNextRace(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch next race: %w", err)
	}

	payload, err := json.Marshal(next)
	if err != nil {
		return fmt.Errorf("failed to marshal next race: %w", err)
	}

	ttl := time.Duration(s.cfg.CacheTTLNextRace) * time.Second
	s.cache.Set(ctx, NextRaceCacheKey, string(payload), ttl)

	log.Info().
		Str("race", next.Name).
		Int("round", next.Round).
		Time("deadline", next.Deadline).
		Msg("Next-race cache refreshed")

	return nil
}
