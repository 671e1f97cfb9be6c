package core

import (
	"context"

	"github.com/dkeye/livestage/internal/domain"
)

// Identity is a verified account.
type Identity struct {
	AccountID domain.ParticipantID
	Username  string
}

// Authenticator verifies a bearer token. Failures wrap one of
// domain.ErrTokenMissing, domain.ErrTokenExpired or domain.ErrTokenInvalid.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (Identity, error)
}
