package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Integration tests for database operations
// Run with: go test -v ./internal/repository/... against a local test database

func setupTestDB(t *testing.T) (*Database, context.Context) {
	ctx := context.Background()

	cfg := Config{
		Host:     "localhost",
		Port:     "5432",
		Database: "f1league_test",
		User:     "f1league_user",
		Password: "f1league_password",
		SSLMode:  "disable",
	}

	db, err := NewDatabase(ctx, cfg)
	require.NoError(t, err, "Failed to connect to test database")

	require.NoError(t, db.Migrate(ctx), "Failed to migrate test database")

	// Each test starts from an empty league
	_, err = db.Pool.Exec(ctx, `TRUNCATE users, predictions, settled_rounds`)
	require.NoError(t, err, "Failed to reset test database")

	return db, ctx
}

func teardownTestDB(t *testing.T, db *Database) {
	db.Close()
}

func TestDatabaseConnection(t *testing.T) {
	db, ctx := setupTestDB(t)
	defer teardownTestDB(t, db)

	err := db.Health(ctx)
	assert.NoError(t, err, "Database health check should pass")
}

func TestDatabasePing(t *testing.T) {
	db, ctx := setupTestDB(t)
	defer teardownTestDB(t, db)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err := db.Pool.Ping(ctx)
	assert.NoError(t, err, "Should successfully ping database")
}

// seedUser registers a user directly, bypassing validation.
func seedUser(t *testing.T, db *Database, ctx context.Context, name string, score int, admin bool) {
	_, err := db.Pool.Exec(ctx,
		`INSERT INTO users (name, password, total_score, is_admin) VALUES ($1, $2, $3, $4)`,
		name, fmt.Sprintf("%s-pw", name), score, admin,
	)
	require.NoError(t, err, "Should seed user")
}
