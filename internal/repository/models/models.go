package models

import (
	"database/sql"
	"time"
)

// User is the persistence model for whitelist applicants.
type User struct {
	ID        string       `db:"id"` // ULID
	Name      string       `db:"name"`
	Email     string       `db:"email"`
	Status    string       `db:"status"`
	Score     int          `db:"score"`
	CreatedAt time.Time    `db:"created_at"`
	UpdatedAt time.Time    `db:"updated_at"`
	DeletedAt sql.NullTime `db:"deleted_at"`
}

// QuestionnaireAudit is the persistence model for one evaluated submission.
// Details holds the per-question audit records as a JSON document; its field
// names are the durable contract the admin UI reads.
type QuestionnaireAudit struct {
	ID           string    `db:"id"` // ULID
	UserID       string    `db:"user_id"`
	Passed       bool      `db:"passed"`
	Score        int       `db:"score"`
	PassScore    int       `db:"pass_score"`
	ManualReview bool      `db:"manual_review"`
	Details      string    `db:"details"`
	CreatedAt    time.Time `db:"created_at"`
}
