package core

import (
	"context"

	"github.com/stretchr/testify/mock"
)

type MockChatService struct {
	mock.Mock
}

func (m *MockChatService) IsMember(ctx context.Context, userID int64, role Role, groupID int64) (bool, error) {
	args := m.Called(ctx, userID, role, groupID)
	return args.Bool(0), args.Error(1)
}

func (m *MockChatService) Persist(ctx context.Context, msg NewMessage) (Message, error) {
	args := m.Called(ctx, msg)
	return args.Get(0).(Message), args.Error(1)
}

func (m *MockChatService) SetOnline(ctx context.Context, groupID, userID int64, role Role, online bool) error {
	args := m.Called(ctx, groupID, userID, role, online)
	return args.Error(0)
}
