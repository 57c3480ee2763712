package chat

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/studygroup/groupchat-server/internal/store"
)

type MockStore struct {
	mock.Mock
}

func (m *MockStore) IsGroupMember(ctx context.Context, studentID, groupID int64) (bool, error) {
	args := m.Called(ctx, studentID, groupID)
	return args.Bool(0), args.Error(1)
}

func (m *MockStore) IsGroupMentor(ctx context.Context, facultyID, groupID int64) (bool, error) {
	args := m.Called(ctx, facultyID, groupID)
	return args.Bool(0), args.Error(1)
}

func (m *MockStore) SaveMessage(ctx context.Context, msg *store.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func (m *MockStore) GetMessage(ctx context.Context, id int64) (*store.Message, error) {
	args := m.Called(ctx, id)
	msg, _ := args.Get(0).(*store.Message)
	return msg, args.Error(1)
}

func (m *MockStore) ListMessages(ctx context.Context, groupID int64, limit, offset int) ([]*store.Message, error) {
	args := m.Called(ctx, groupID, limit, offset)
	msgs, _ := args.Get(0).([]*store.Message)
	return msgs, args.Error(1)
}

func (m *MockStore) SetOnlineStatus(ctx context.Context, userID int64, userType store.UserType, groupID int64, online bool, at time.Time) error {
	args := m.Called(ctx, userID, userType, groupID, online, at)
	return args.Error(0)
}

func (m *MockStore) ListOnline(ctx context.Context, groupID int64) ([]*store.OnlineUser, error) {
	args := m.Called(ctx, groupID)
	users, _ := args.Get(0).([]*store.OnlineUser)
	return users, args.Error(1)
}

func (m *MockStore) ResetOnlineStatus(ctx context.Context, at time.Time) (int64, error) {
	args := m.Called(ctx, at)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockStore) Close() error {
	return m.Called().Error(0)
}
