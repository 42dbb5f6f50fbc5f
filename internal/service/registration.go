package service

import (
	"context"

	"verifymc/internal/domain"
	"verifymc/internal/dto"
	"verifymc/internal/logger"
	"verifymc/internal/util"

	"go.uber.org/zap"
)

// RegistrationService runs the admission flow: verify the applicant's email
// code, evaluate the questionnaire, persist the user and the audit trail, and
// apply the auto-approval policy. Auto-approval is only granted when the
// policy is enabled, the score passes, and no question was deferred to manual
// review; everything else waits for an administrator.
type RegistrationService struct {
	users         domain.UserRepository
	audits        domain.AuditRepository
	verification  *VerificationService
	questionnaire *QuestionnaireService
}

// NewRegistrationService creates a RegistrationService.
func NewRegistrationService(users domain.UserRepository, audits domain.AuditRepository, verification *VerificationService, questionnaire *QuestionnaireService) *RegistrationService {
	return &RegistrationService{
		users:         users,
		audits:        audits,
		verification:  verification,
		questionnaire: questionnaire,
	}
}

// Register processes one whitelist application.
func (s *RegistrationService) Register(ctx context.Context, req dto.RegisterRequest) (*dto.RegisterResponse, error) {
	l := logger.Get()

	name := util.SanitizeText(req.Name, 64)
	email := normalizeEmail(req.Email)
	if name == "" || email == "" {
		return nil, domain.NewInvalidInputError("name and email are required")
	}

	if err := s.verification.VerifyCode(ctx, email, req.Code); err != nil {
		return nil, err
	}

	if existing, err := s.users.GetByName(name); err != nil {
		return nil, domain.NewInternalError("failed to check existing user", err)
	} else if existing != nil {
		return nil, domain.NewDuplicateUserError(name)
	}
	if existing, err := s.users.GetByEmail(email); err != nil {
		return nil, domain.NewInternalError("failed to check existing email", err)
	} else if existing != nil {
		return nil, domain.NewDuplicateUserError(email)
	}

	result := s.questionnaire.Evaluate(ctx, dto.ToDomainAnswers(req.Answers))

	status := domain.UserStatusPending
	if s.questionnaire.AutoApproveOnPass() && result.Passed && !result.ManualReviewRequired() {
		status = domain.UserStatusApproved
	}

	user := &domain.User{
		ID:     util.NewULID(),
		Name:   name,
		Email:  email,
		Status: status,
		Score:  result.Score,
	}
	if err := s.users.Create(user); err != nil {
		return nil, domain.NewInternalError("failed to persist user", err)
	}

	if err := s.audits.SaveQuestionnaireResult(user.ID, result); err != nil {
		// The user record exists; losing the audit trail is log-worthy but
		// must not fail the application.
		l.Error("Failed to persist questionnaire audit",
			zap.String("user_id", user.ID),
			zap.Error(err))
	}

	l.Info("Registration processed",
		zap.String("user_id", user.ID),
		zap.String("name", name),
		zap.String("status", status),
		zap.Int("score", result.Score),
		zap.Bool("manual_review_required", result.ManualReviewRequired()))

	qr := dto.FromQuestionnaireResult(result)
	return &dto.RegisterResponse{
		UserID:        user.ID,
		Status:        status,
		Questionnaire: &qr,
	}, nil
}

// ListByStatus returns applicants in the given state for the admin surface.
func (s *RegistrationService) ListByStatus(status string) ([]dto.UserResponse, error) {
	switch status {
	case domain.UserStatusPending, domain.UserStatusApproved, domain.UserStatusRejected:
	default:
		return nil, domain.NewInvalidInputError("unknown status: " + status)
	}
	users, err := s.users.ListByStatus(status)
	if err != nil {
		return nil, domain.NewInternalError("failed to list users", err)
	}
	out := make([]dto.UserResponse, 0, len(users))
	for _, u := range users {
		out = append(out, dto.FromUser(u))
	}
	return out, nil
}

// Review applies an administrator's decision.
func (s *RegistrationService) Review(userID string, approve bool) error {
	status := domain.UserStatusRejected
	if approve {
		status = domain.UserStatusApproved
	}
	if err := s.users.UpdateStatus(userID, status); err != nil {
		return err
	}
	logger.Get().Info("Review decision applied",
		zap.String("user_id", userID),
		zap.String("status", status))
	return nil
}

// CheckWhitelist answers whether a player name is admitted. Used by the
// game-server proxy before letting a player join.
func (s *RegistrationService) CheckWhitelist(name string) (*dto.WhitelistResponse, error) {
	name = util.SanitizeText(name, 64)
	user, err := s.users.GetByName(name)
	if err != nil {
		return nil, domain.NewInternalError("failed to look up user", err)
	}
	if user == nil {
		return &dto.WhitelistResponse{Name: name, Status: "not_registered"}, nil
	}
	return &dto.WhitelistResponse{
		Name:        name,
		Status:      user.Status,
		Whitelisted: user.Approved(),
	}, nil
}
