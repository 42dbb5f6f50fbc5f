package domain

import "time"

// User lifecycle states for whitelist admission.
const (
	UserStatusPending  = "pending"
	UserStatusApproved = "approved"
	UserStatusRejected = "rejected"
)

// User is one whitelist applicant.
type User struct {
	ID        string
	Name      string
	Email     string
	Status    string
	Score     int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Approved reports whether the user cleared review.
func (u *User) Approved() bool {
	return u.Status == UserStatusApproved
}

// UserRepository is the port for user persistence.
type UserRepository interface {
	Create(user *User) error
	GetByName(name string) (*User, error)
	GetByEmail(email string) (*User, error)
	ListByStatus(status string) ([]*User, error)
	UpdateStatus(id string, status string) error
}

// AuditRepository persists the questionnaire audit trail.
type AuditRepository interface {
	SaveQuestionnaireResult(userID string, result *QuestionnaireResult) error
}
