package database

import (
	"fmt"
	"time"

	"verifymc/internal/config"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
)

// NewDB opens the MySQL connection pool used by the repositories.
//
// Expected tables:
//
//	vm_users(id CHAR(26) PK, name VARCHAR(64) UNIQUE, email VARCHAR(255) UNIQUE,
//	         status VARCHAR(16), score INT, created_at, updated_at, deleted_at)
//	vm_questionnaire_audits(id CHAR(26) PK, user_id CHAR(26), passed BOOL,
//	         score INT, pass_score INT, manual_review BOOL, details JSON, created_at)
func NewDB(cfg *config.Config) (*sqlx.DB, error) {
	db, err := sqlx.Connect("mysql", cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}
