package model

import "context"

// Notifier delivers a magic link to an email address. Implementations are
// expected to bound their own delivery timeout; a returned error fails the
// issuance at the API boundary.
type Notifier interface {
	Send(ctx context.Context, email, displayName, link string) error
}
