// Command settle triggers a settlement run from the command line, for
// rounds where the scheduler was down or results arrived late. It uses
// the same settlement path as the server, so all guards apply: a round
// already carrying a marker is refused, not re-applied.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"time"

	"f1league/internal/calendar"
	"f1league/internal/client"
	"f1league/internal/config"
	"f1league/internal/models"
	"f1league/internal/notify"
	"f1league/internal/repository"
	"f1league/internal/settlement"

	"github.com/rs/zerolog/log"
)

func main() {
	round := flag.Int("round", 0, "round to settle (default: the most recently closed event)")
	preview := flag.Bool("preview", false, "score predictions without committing anything")
	flag.Parse()

	ctx := context.Background()
	cfg := config.MustLoad()

	db, err := repository.NewDatabase(ctx, repository.Config{
		Host:     cfg.DatabaseHost,
		Port:     fmt.Sprintf("%d", cfg.DatabasePort),
		User:     cfg.DatabaseUser,
		Password: cfg.DatabasePassword,
		Database: cfg.DatabaseName,
		SSLMode:  cfg.DatabaseSSLMode,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	if err := db.Health(ctx); err != nil {
		log.Fatal().Err(err).Msg("Database health check failed")
	}

	cal, err := calendar.LoadFile(cfg.CalendarPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.CalendarPath).Msg("Failed to load race calendar")
	}

	var ev calendar.Event
	if *round > 0 {
		var ok bool
		ev, ok = cal.ByRound(*round)
		if !ok {
			log.Fatal().Int("round", *round).Msg("Round not present in the calendar")
		}
	} else {
		var ok bool
		ev, ok = cal.RecentlyClosed(time.Now(), cfg.SettleWindow)
		if !ok {
			log.Fatal().Msg("No event inside the settlement window; pass -round explicitly")
		}
	}

	feed := client.NewClient(cfg.FeedBaseURL, cfg.FeedTimeout)

	settler := settlement.New(
		db.Predictions,
		db.Users,
		db.Rounds,
		db,
		feed,
		notify.Noop{},
		models.DefaultRoster(),
		cfg.FeedSeason,
	)

	if *preview {
		standings, err := settler.Preview(ctx, ev)
		if err != nil {
			log.Fatal().Err(err).Int("round", ev.Round).Msg("Preview failed")
		}
		for _, s := range standings {
			fmt.Printf("%-20s %5d  submitted=%v\n", s.UserName, s.Score, s.Submitted)
		}
		return
	}

	outcome, err := settler.Settle(ctx, ev)
	switch {
	case errors.Is(err, settlement.ErrAlreadySettled):
		log.Info().Int("round", ev.Round).Msg("Round already settled, nothing to do")
		return
	case errors.Is(err, settlement.ErrNoParticipants):
		log.Info().Int("round", ev.Round).Msg("No predictions stored, nothing to settle")
		return
	case errors.Is(err, settlement.ErrNoData):
		log.Fatal().Int("round", ev.Round).Msg("Results not available yet")
	case err != nil:
		log.Fatal().Err(err).Int("round", ev.Round).Msg("Settlement failed")
	}

	log.Info().
		Int("round", outcome.Round).
		Int("participants", len(outcome.Scores)).
		Int("penalty", outcome.Penalty).
		Int("users_updated", outcome.UsersUpdated).
		Msg("Round settled")
}
