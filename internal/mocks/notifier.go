package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// Notifier is a mock implementation of model.Notifier.
type Notifier struct {
	mock.Mock
}

func (m *Notifier) Send(ctx context.Context, email, displayName, link string) error {
	args := m.Called(ctx, email, displayName, link)
	return args.Error(0)
}
