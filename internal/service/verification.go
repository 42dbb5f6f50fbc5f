package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"

	"verifymc/internal/cache"
	"verifymc/internal/config"
	"verifymc/internal/domain"
	"verifymc/internal/logger"
	"verifymc/internal/port"

	"go.uber.org/zap"
)

// VerificationService issues and checks one-shot email verification codes.
// Codes live in the cache under a TTL; a successful check consumes the code.
type VerificationService struct {
	cache  domain.Cache
	sender port.CodeSender
	cfg    config.VerificationConfig
}

// NewVerificationService creates a VerificationService.
func NewVerificationService(c domain.Cache, sender port.CodeSender, cfg config.VerificationConfig) *VerificationService {
	return &VerificationService{cache: c, sender: sender, cfg: cfg}
}

// IssueCode generates a fresh numeric code for the email, stores it under the
// configured TTL and hands it to the sender.
func (s *VerificationService) IssueCode(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	if email == "" {
		return domain.NewInvalidInputError("email is required")
	}

	code, err := generateCode(s.cfg.CodeLength)
	if err != nil {
		return domain.NewInternalError("failed to generate verification code", err)
	}

	key := cache.GenerateCacheKey("verification", "code", email)
	if err := s.cache.Set(ctx, key, code, s.cfg.CodeTTL); err != nil {
		return domain.NewInternalError("failed to store verification code", err)
	}

	if err := s.sender.Send(ctx, email, code); err != nil {
		logger.Get().Error("Failed to deliver verification code",
			zap.String("email", email),
			zap.Error(err))
		return domain.NewInternalError("failed to deliver verification code", err)
	}
	return nil
}

// VerifyCode checks a submitted code and consumes it on success.
func (s *VerificationService) VerifyCode(ctx context.Context, email, code string) error {
	email = normalizeEmail(email)
	code = strings.TrimSpace(code)
	if email == "" || code == "" {
		return domain.NewInvalidCodeError()
	}

	key := cache.GenerateCacheKey("verification", "code", email)
	stored, err := s.cache.Get(ctx, key)
	if err != nil {
		if err == domain.ErrCacheMiss {
			return domain.NewInvalidCodeError()
		}
		return domain.NewInternalError("failed to read verification code", err)
	}
	if stored != code {
		return domain.NewInvalidCodeError()
	}

	// One-shot: consume the code so it cannot be replayed.
	if err := s.cache.Delete(ctx, key); err != nil {
		logger.Get().Warn("Failed to delete consumed verification code",
			zap.String("email", email),
			zap.Error(err))
	}
	return nil
}

func generateCode(length int) (string, error) {
	if length < 4 {
		length = 4
	}
	var b strings.Builder
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&b, "%d", n.Int64())
	}
	return b.String(), nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
