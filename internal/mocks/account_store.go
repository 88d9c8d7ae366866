// Package mocks provides testify mocks for the model interfaces.
package mocks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/linkauth/server/internal/model"
)

// AccountStore is a mock implementation of model.AccountStore.
type AccountStore struct {
	mock.Mock
}

func (m *AccountStore) GetByEmail(ctx context.Context, email string) (model.Account, error) {
	args := m.Called(ctx, email)
	return args.Get(0).(model.Account), args.Error(1)
}

func (m *AccountStore) GetByID(ctx context.Context, id uuid.UUID) (model.Account, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(model.Account), args.Error(1)
}

func (m *AccountStore) Create(ctx context.Context, account model.Account) (model.Account, error) {
	args := m.Called(ctx, account)
	return args.Get(0).(model.Account), args.Error(1)
}

func (m *AccountStore) RefreshToken(ctx context.Context, id uuid.UUID, token string, expiresAt time.Time, displayName *string) (model.Account, error) {
	args := m.Called(ctx, id, token, expiresAt, displayName)
	return args.Get(0).(model.Account), args.Error(1)
}

func (m *AccountStore) ClaimToken(ctx context.Context, token string, now time.Time) (model.Account, error) {
	args := m.Called(ctx, token, now)
	return args.Get(0).(model.Account), args.Error(1)
}

func (m *AccountStore) SweepExpiredTokens(ctx context.Context, now time.Time) (int64, error) {
	args := m.Called(ctx, now)
	return args.Get(0).(int64), args.Error(1)
}
