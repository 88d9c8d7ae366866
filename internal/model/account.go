package model

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// TokenDuration is the validity window of an outstanding magic link token.
const TokenDuration = 15 * time.Minute

// AccountStore defines persistence operations for accounts. Implementations
// must make ClaimToken a single atomic conditional update: two concurrent
// claims of the same token must never both succeed.
type AccountStore interface {
	GetByEmail(ctx context.Context, email string) (Account, error)
	GetByID(ctx context.Context, id uuid.UUID) (Account, error)
	Create(ctx context.Context, account Account) (Account, error)
	// RefreshToken overwrites the outstanding token of the account,
	// invalidating any previously issued link. A non-nil displayName also
	// updates the stored display name.
	RefreshToken(ctx context.Context, id uuid.UUID, token string, expiresAt time.Time, displayName *string) (Account, error)
	// ClaimToken atomically consumes a live token and marks the account
	// verified. Returns ErrTokenInvalid when the token is unknown, expired
	// or already consumed.
	ClaimToken(ctx context.Context, token string, now time.Time) (Account, error)
	// SweepExpiredTokens clears token state past its expiry and reports how
	// many accounts were touched. The verified flag is left untouched.
	SweepExpiredTokens(ctx context.Context, now time.Time) (int64, error)
}

// Account represents a stored account with its outstanding magic link state.
// Emails are stored and matched exactly as entered.
type Account struct {
	ID             uuid.UUID
	Email          string
	DisplayName    string
	Verified       bool
	Token          *string
	TokenExpiresAt *time.Time
	TokenConsumed  bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// TokenLive reports whether the outstanding token can still be claimed.
func (a Account) TokenLive(now time.Time) bool {
	return a.Token != nil && !a.TokenConsumed && a.TokenExpiresAt != nil && a.TokenExpiresAt.After(now)
}
