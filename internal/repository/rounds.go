package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// RoundRepository tracks which rounds have already been settled, so a
// second trigger for the same event is rejected instead of
// double-applying points.
type RoundRepository struct {
	db *Database
}

// IsSettled reports whether the round has a settlement marker
func (r *RoundRepository) IsSettled(ctx context.Context, round int) (bool, error) {
	var exists bool
	err := r.db.Pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM settled_rounds WHERE round = $1)`,
		round,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check settled round: %w", err)
	}
	return exists, nil
}

// SettledAt returns when the round was settled, ErrNotFound otherwise
func (r *RoundRepository) SettledAt(ctx context.Context, round int) (time.Time, error) {
	var at time.Time
	err := r.db.Pool.QueryRow(ctx,
		`SELECT settled_at FROM settled_rounds WHERE round = $1`,
		round,
	).Scan(&at)
	if errors.Is(err, pgx.ErrNoRows) {
		return time.Time{}, ErrNotFound
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to read settlement marker: %w", err)
	}
	return at, nil
}
