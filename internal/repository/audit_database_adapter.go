package repository

import (
	"encoding/json"
	"fmt"
	"time"

	"verifymc/internal/domain"
	"verifymc/internal/dto"
	"verifymc/internal/util"

	"github.com/jmoiron/sqlx"
)

// AuditDatabaseAdapter implements domain.AuditRepository using sqlx.DB.
// Per-question details are stored as a JSON document in the wire shape the
// admin UI consumes.
type AuditDatabaseAdapter struct {
	db *sqlx.DB
}

// NewAuditDatabaseAdapter creates a new instance of AuditDatabaseAdapter
func NewAuditDatabaseAdapter(db *sqlx.DB) domain.AuditRepository {
	return &AuditDatabaseAdapter{db: db}
}

// SaveQuestionnaireResult implements domain.AuditRepository
func (a *AuditDatabaseAdapter) SaveQuestionnaireResult(userID string, result *domain.QuestionnaireResult) error {
	details := make([]dto.QuestionScoreDetailResponse, 0, len(result.Details))
	for _, d := range result.Details {
		details = append(details, dto.FromQuestionScoreDetail(d))
	}
	detailsJSON, err := json.Marshal(details)
	if err != nil {
		return fmt.Errorf("failed to serialize audit details: %w", err)
	}

	query := `INSERT INTO vm_questionnaire_audits (id, user_id, passed, score, pass_score, manual_review, details, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = a.db.Exec(query,
		util.NewULID(),
		userID,
		result.Passed,
		result.Score,
		result.PassScore,
		result.ManualReviewRequired(),
		string(detailsJSON),
		time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert questionnaire audit: %w", err)
	}
	return nil
}
