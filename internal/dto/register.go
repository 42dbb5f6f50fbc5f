package dto

import (
	"time"

	"verifymc/internal/domain"
)

// SendCodeRequest asks for a verification code for an email address.
type SendCodeRequest struct {
	Email string `json:"email"`
}

// RegisterRequest is one whitelist application.
type RegisterRequest struct {
	Name     string                   `json:"name"`
	Email    string                   `json:"email"`
	Code     string                   `json:"code"`
	Language string                   `json:"lang"`
	Answers  map[string]AnswerPayload `json:"answers"`
}

// RegisterResponse reports the admission outcome of an application.
type RegisterResponse struct {
	UserID        string                       `json:"user_id"`
	Status        string                       `json:"status"`
	Questionnaire *QuestionnaireResultResponse `json:"questionnaire,omitempty"`
}

// UserResponse is the admin view of one applicant.
type UserResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Status    string    `json:"status"`
	Score     int       `json:"score"`
	CreatedAt time.Time `json:"created_at"`
}

// ReviewRequest is an admin approve/reject decision.
type ReviewRequest struct {
	UserID  string `json:"user_id"`
	Approve bool   `json:"approve"`
}

// WhitelistResponse answers a proxy's whitelist check.
type WhitelistResponse struct {
	Name        string `json:"name"`
	Status      string `json:"status"`
	Whitelisted bool   `json:"whitelisted"`
}

// FromUser maps a domain user to its admin view.
func FromUser(u *domain.User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Status:    u.Status,
		Score:     u.Score,
		CreatedAt: u.CreatedAt,
	}
}
