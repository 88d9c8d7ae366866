package model

import "errors"

var (
	// ErrNotFound covers both a missing account and, on login, an account
	// that exists but was never verified. The two are deliberately not
	// distinguishable from the outside.
	ErrNotFound = errors.New("account not found")

	ErrAlreadyVerified = errors.New("account already verified")
	ErrInvalidEmail    = errors.New("invalid email address")

	// ErrTokenInvalid merges wrong, expired and already-consumed tokens.
	ErrTokenInvalid = errors.New("token invalid or expired")

	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrConflict signals a unique-constraint violation, e.g. an accidental
	// token collision. Issuance is safe to retry.
	ErrConflict = errors.New("conflicting account state")
)
