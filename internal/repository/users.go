package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"f1league/internal/metrics"
	"f1league/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog/log"
)

// UserRepository handles season-record database operations
type UserRepository struct {
	db *Database
}

// Create registers a new user with a zero season total. A taken name
// surfaces as ErrDuplicateUser.
func (r *UserRepository) Create(ctx context.Context, name, password string) (*models.User, error) {
	name = strings.TrimSpace(name)
	if name == "" || password == "" {
		return nil, fmt.Errorf("name and password are required")
	}

	query := `
		INSERT INTO users (name, password)
		VALUES ($1, $2)
		RETURNING id, name, password, total_score, is_admin, created_at, updated_at
	`

	var user models.User
	err := r.db.Pool.QueryRow(ctx, query, name, password).Scan(
		&user.ID, &user.Name, &user.Password, &user.TotalScore,
		&user.IsAdmin, &user.CreatedAt, &user.UpdatedAt,
	)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		metrics.RecordDBQuery("insert", "users", "conflict")
		return nil, ErrDuplicateUser
	}
	if err != nil {
		metrics.RecordDBQuery("insert", "users", "error")
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	metrics.RecordDBQuery("insert", "users", "ok")
	log.Info().Int("id", user.ID).Str("name", user.Name).Msg("User registered")
	return &user, nil
}

// GetByName retrieves a user by name
func (r *UserRepository) GetByName(ctx context.Context, name string) (*models.User, error) {
	query := `
		SELECT id, name, password, total_score, is_admin, created_at, updated_at
		FROM users
		WHERE name = $1
	`

	var user models.User
	err := r.db.Pool.QueryRow(ctx, query, strings.TrimSpace(name)).Scan(
		&user.ID, &user.Name, &user.Password, &user.TotalScore,
		&user.IsAdmin, &user.CreatedAt, &user.UpdatedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return &user, nil
}

// Authenticate checks a name/password pair. Plain string comparison,
// same as the credential store this replaces.
func (r *UserRepository) Authenticate(ctx context.Context, name, password string) (*models.User, error) {
	user, err := r.GetByName(ctx, name)
	if errors.Is(err, ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if user.Password != password {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// List returns all users ordered by season total descending
func (r *UserRepository) List(ctx context.Context) ([]models.User, error) {
	query := `
		SELECT id, name, password, total_score, is_admin, created_at, updated_at
		FROM users
		ORDER BY total_score DESC, name ASC
	`

	rows, err := r.db.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var user models.User
		if err := rows.Scan(
			&user.ID, &user.Name, &user.Password, &user.TotalScore,
			&user.IsAdmin, &user.CreatedAt, &user.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate users: %w", err)
	}

	return users, nil
}

// SetAdmin flips the administrative role flag on a user record
func (r *UserRepository) SetAdmin(ctx context.Context, name string, admin bool) error {
	tag, err := r.db.Pool.Exec(ctx,
		`UPDATE users SET is_admin = $1, updated_at = NOW() WHERE name = $2`,
		admin, strings.TrimSpace(name),
	)
	if err != nil {
		return fmt.Errorf("failed to set admin flag: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
