package repository

import (
	"database/sql"
	"fmt"
	"time"

	"verifymc/internal/domain"
	"verifymc/internal/repository/models"

	"github.com/jmoiron/sqlx"
)

// UserDatabaseAdapter implements domain.UserRepository using sqlx.DB
type UserDatabaseAdapter struct {
	db *sqlx.DB
}

// NewUserDatabaseAdapter creates a new instance of UserDatabaseAdapter
func NewUserDatabaseAdapter(db *sqlx.DB) domain.UserRepository {
	return &UserDatabaseAdapter{db: db}
}

const userColumns = `id, name, email, status, score, created_at, updated_at, deleted_at`

// Create implements domain.UserRepository
func (a *UserDatabaseAdapter) Create(user *domain.User) error {
	now := time.Now()
	query := `INSERT INTO vm_users (id, name, email, status, score, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	_, err := a.db.Exec(query, user.ID, user.Name, user.Email, user.Status, user.Score, now, now)
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}
	user.CreatedAt = now
	user.UpdatedAt = now
	return nil
}

// GetByName implements domain.UserRepository. A missing user is (nil, nil).
func (a *UserDatabaseAdapter) GetByName(name string) (*domain.User, error) {
	var model models.User
	query := `SELECT ` + userColumns + ` FROM vm_users WHERE name = ? AND deleted_at IS NULL`

	err := a.db.Get(&model, query, name)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user by name: %w", err)
	}
	return toDomainUser(&model), nil
}

// GetByEmail implements domain.UserRepository. A missing user is (nil, nil).
func (a *UserDatabaseAdapter) GetByEmail(email string) (*domain.User, error) {
	var model models.User
	query := `SELECT ` + userColumns + ` FROM vm_users WHERE email = ? AND deleted_at IS NULL`

	err := a.db.Get(&model, query, email)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	return toDomainUser(&model), nil
}

// ListByStatus implements domain.UserRepository
func (a *UserDatabaseAdapter) ListByStatus(status string) ([]*domain.User, error) {
	var rows []models.User
	query := `SELECT ` + userColumns + ` FROM vm_users WHERE status = ? AND deleted_at IS NULL ORDER BY created_at ASC`

	if err := a.db.Select(&rows, query, status); err != nil {
		return nil, fmt.Errorf("failed to list users by status: %w", err)
	}

	users := make([]*domain.User, 0, len(rows))
	for i := range rows {
		users = append(users, toDomainUser(&rows[i]))
	}
	return users, nil
}

// UpdateStatus implements domain.UserRepository
func (a *UserDatabaseAdapter) UpdateStatus(id string, status string) error {
	query := `UPDATE vm_users SET status = ?, updated_at = ? WHERE id = ? AND deleted_at IS NULL`

	res, err := a.db.Exec(query, status, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update user status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return domain.NewUserNotFoundError(id)
	}
	return nil
}

func toDomainUser(m *models.User) *domain.User {
	return &domain.User{
		ID:        m.ID,
		Name:      m.Name,
		Email:     m.Email,
		Status:    m.Status,
		Score:     m.Score,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}
