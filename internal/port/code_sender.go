package port

import "context"

// CodeSender delivers a verification code to an applicant. Mail transport is
// out of scope for this server; deployments plug in their own sender.
type CodeSender interface {
	Send(ctx context.Context, email, code string) error
}
