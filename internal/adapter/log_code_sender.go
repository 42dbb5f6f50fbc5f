package adapter

import (
	"context"

	"verifymc/internal/logger"
	"verifymc/internal/port"

	"go.uber.org/zap"
)

// LogCodeSender is the default CodeSender: it only logs that a code was
// issued. Mail transport is a deployment concern and is wired in externally.
type LogCodeSender struct{}

// NewLogCodeSender creates a LogCodeSender.
func NewLogCodeSender() port.CodeSender {
	return &LogCodeSender{}
}

// Send logs the issuance. The code itself is not logged.
func (s *LogCodeSender) Send(_ context.Context, email, _ string) error {
	logger.Get().Info("Verification code issued", zap.String("email", email))
	return nil
}
