package repository

import (
	"context"
	"errors"
	"fmt"

	"f1league/internal/metrics"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog/log"
)

// ApplySettlement commits one round's outcome as a single transaction:
// every delta is added to its user's season total, the prediction table
// is cleared, and the round is marked settled. Either all of it lands
// or none of it does. A round that already carries a marker aborts the
// transaction with ErrRoundSettled.
func (db *Database) ApplySettlement(ctx context.Context, round int, deltas map[string]int) error {
	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		metrics.RecordDBQuery("begin", "settlement", "error")
		return fmt.Errorf("failed to begin settlement transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	for name, delta := range deltas {
		tag, err := tx.Exec(ctx,
			`UPDATE users SET total_score = total_score + $1, updated_at = NOW() WHERE name = $2`,
			delta, name,
		)
		if err != nil {
			metrics.RecordDBQuery("update", "users", "error")
			return fmt.Errorf("failed to apply score delta for %s: %w", name, err)
		}
		if tag.RowsAffected() == 0 {
			log.Warn().Str("user", name).Msg("Score delta targeted an unknown user")
		}
	}

	if _, err := tx.Exec(ctx, `DELETE FROM predictions`); err != nil {
		metrics.RecordDBQuery("delete", "predictions", "error")
		return fmt.Errorf("failed to clear predictions: %w", err)
	}

	if _, err := tx.Exec(ctx, `INSERT INTO settled_rounds (round) VALUES ($1)`, round); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrRoundSettled
		}
		metrics.RecordDBQuery("insert", "settled_rounds", "error")
		return fmt.Errorf("failed to mark round settled: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		metrics.RecordDBQuery("commit", "settlement", "error")
		return fmt.Errorf("failed to commit settlement: %w", err)
	}

	metrics.RecordDBQuery("commit", "settlement", "ok")
	log.Info().
		Int("round", round).
		Int("users_updated", len(deltas)).
		Msg("Settlement transaction committed")

	return nil
}
