package mocks

import (
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// SessionManager is a mock implementation of model.SessionManager.
type SessionManager struct {
	mock.Mock
}

func (m *SessionManager) Generate(accountID uuid.UUID, email string, verified bool) (string, error) {
	args := m.Called(accountID, email, verified)
	return args.String(0), args.Error(1)
}

func (m *SessionManager) Parse(credential string) (uuid.UUID, error) {
	args := m.Called(credential)
	return args.Get(0).(uuid.UUID), args.Error(1)
}
