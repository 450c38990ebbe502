package repository

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
)

// Migrate creates the schema if it does not exist. The tables mirror
// the league data model: season records, one live prediction per user,
// and a marker per settled round.
func (db *Database) Migrate(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id SERIAL PRIMARY KEY,
			name TEXT UNIQUE NOT NULL,
			password TEXT NOT NULL,
			total_score INTEGER NOT NULL DEFAULT 0,
			is_admin BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS predictions (
			id SERIAL PRIMARY KEY,
			user_name TEXT UNIQUE NOT NULL,
			p1 TEXT NOT NULL DEFAULT '',
			p2 TEXT NOT NULL DEFAULT '',
			p3 TEXT NOT NULL DEFAULT '',
			p10 TEXT NOT NULL DEFAULT '',
			p11 TEXT NOT NULL DEFAULT '',
			p19 TEXT NOT NULL DEFAULT '',
			p20 TEXT NOT NULL DEFAULT '',
			c1 TEXT NOT NULL DEFAULT '',
			c2 TEXT NOT NULL DEFAULT '',
			c5 TEXT NOT NULL DEFAULT '',
			c6 TEXT NOT NULL DEFAULT '',
			c10 TEXT NOT NULL DEFAULT '',
			w_race_loser TEXT NOT NULL DEFAULT '',
			w_sprint_gainer TEXT NOT NULL DEFAULT '',
			w_sprint_loser TEXT NOT NULL DEFAULT '',
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS settled_rounds (
			round INTEGER PRIMARY KEY,
			settled_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
	}

	for _, stmt := range statements {
		if _, err := db.Pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to run schema migration: %w", err)
		}
	}

	log.Info().Msg("Database schema ready")
	return nil
}
