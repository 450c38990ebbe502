package models

import "time"

// User is a registered league player. TotalScore accumulates across
// settlements and is never reset within a season.
type User struct {
	ID         int       `db:"id"`
	Name       string    `db:"name"`
	Password   string    `db:"password"`
	TotalScore int       `db:"total_score"`
	IsAdmin    bool      `db:"is_admin"`
	CreatedAt  time.Time `db:"created_at"`
	UpdatedAt  time.Time `db:"updated_at"`
}

// Credentials is the login payload shared by several endpoints.
type Credentials struct {
	Name     string `json:"user_name"`
	Password string `json:"password"`
}
