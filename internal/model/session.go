package model

import "github.com/google/uuid"

// SessionManager mints and validates signed session credentials.
type SessionManager interface {
	Generate(accountID uuid.UUID, email string, verified bool) (string, error)
	Parse(credential string) (uuid.UUID, error)
}
