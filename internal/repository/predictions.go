package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"f1league/internal/metrics"
	"f1league/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"
)

// PredictionRepository handles prediction-related database operations
type PredictionRepository struct {
	db *Database
}

const predictionColumns = `
	id, user_name, p1, p2, p3, p10, p11, p19, p20,
	c1, c2, c5, c6, c10,
	w_race_loser, w_sprint_gainer, w_sprint_loser, updated_at
`

// Upsert inserts or replaces the user's prediction for the pending
// event. One live row per user: resubmission overwrites, never appends.
func (r *PredictionRepository) Upsert(ctx context.Context, pred *models.Prediction) error {
	if pred == nil {
		return fmt.Errorf("prediction cannot be nil")
	}
	pred.UserName = strings.TrimSpace(pred.UserName)
	if pred.UserName == "" {
		return fmt.Errorf("user_name is required")
	}

	query := `
		INSERT INTO predictions (
			user_name, p1, p2, p3, p10, p11, p19, p20,
			c1, c2, c5, c6, c10,
			w_race_loser, w_sprint_gainer, w_sprint_loser
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8,
			$9, $10, $11, $12, $13,
			$14, $15, $16
		)
		ON CONFLICT (user_name) DO UPDATE SET
			p1 = EXCLUDED.p1,
			p2 = EXCLUDED.p2,
			p3 = EXCLUDED.p3,
			p10 = EXCLUDED.p10,
			p11 = EXCLUDED.p11,
			p19 = EXCLUDED.p19,
			p20 = EXCLUDED.p20,
			c1 = EXCLUDED.c1,
			c2 = EXCLUDED.c2,
			c5 = EXCLUDED.c5,
			c6 = EXCLUDED.c6,
			c10 = EXCLUDED.c10,
			w_race_loser = EXCLUDED.w_race_loser,
			w_sprint_gainer = EXCLUDED.w_sprint_gainer,
			w_sprint_loser = EXCLUDED.w_sprint_loser,
			updated_at = NOW()
		RETURNING id, updated_at
	`

	err := r.db.Pool.QueryRow(ctx, query,
		pred.UserName, pred.P1, pred.P2, pred.P3, pred.P10, pred.P11, pred.P19, pred.P20,
		pred.C1, pred.C2, pred.C5, pred.C6, pred.C10,
		pred.RaceLoser, pred.SprintGainer, pred.SprintLoser,
	).Scan(&pred.ID, &pred.UpdatedAt)

	if err != nil {
		metrics.RecordDBQuery("upsert", "predictions", "error")
		log.Error().Err(err).Str("user", pred.UserName).Msg("Failed to upsert prediction")
		return fmt.Errorf("failed to upsert prediction: %w", err)
	}

	metrics.RecordDBQuery("upsert", "predictions", "ok")
	log.Info().Int("id", pred.ID).Str("user", pred.UserName).Msg("Prediction stored")
	return nil
}

// GetByUser retrieves the user's live prediction, ErrNotFound when none
// is stored.
func (r *PredictionRepository) GetByUser(ctx context.Context, userName string) (*models.Prediction, error) {
	query := `SELECT ` + predictionColumns + ` FROM predictions WHERE user_name = $1`

	var pred models.Prediction
	err := r.db.Pool.QueryRow(ctx, query, strings.TrimSpace(userName)).Scan(
		&pred.ID, &pred.UserName,
		&pred.P1, &pred.P2, &pred.P3, &pred.P10, &pred.P11, &pred.P19, &pred.P20,
		&pred.C1, &pred.C2, &pred.C5, &pred.C6, &pred.C10,
		&pred.RaceLoser, &pred.SprintGainer, &pred.SprintLoser,
		&pred.UpdatedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get prediction: %w", err)
	}

	return &pred, nil
}

// List returns every stored prediction
func (r *PredictionRepository) List(ctx context.Context) ([]models.Prediction, error) {
	query := `SELECT ` + predictionColumns + ` FROM predictions ORDER BY user_name ASC`

	rows, err := r.db.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list predictions: %w", err)
	}
	defer rows.Close()

	var preds []models.Prediction
	for rows.Next() {
		var pred models.Prediction
		if err := rows.Scan(
			&pred.ID, &pred.UserName,
			&pred.P1, &pred.P2, &pred.P3, &pred.P10, &pred.P11, &pred.P19, &pred.P20,
			&pred.C1, &pred.C2, &pred.C5, &pred.C6, &pred.C10,
			&pred.RaceLoser, &pred.SprintGainer, &pred.SprintLoser,
			&pred.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan prediction: %w", err)
		}
		preds = append(preds, pred)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate predictions: %w", err)
	}

	return preds, nil
}

// Count returns the number of stored predictions
func (r *PredictionRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM predictions`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count predictions: %w", err)
	}
	return count, nil
}
