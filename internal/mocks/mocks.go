package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"dm-service/internal/models"
	"dm-service/internal/repositories"
)

type MessageRepositoryMock struct {
	mock.Mock
}

func (m *MessageRepositoryMock) CreateMessage(ctx context.Context, msg models.Message) (models.Message, error) {
	args := m.Called(ctx, msg)
	var stored models.Message
	if val := args.Get(0); val != nil {
		stored = val.(models.Message)
	}
	return stored, args.Error(1)
}

func (m *MessageRepositoryMock) ListConversation(ctx context.Context, userID, otherID string) ([]models.Message, error) {
	args := m.Called(ctx, userID, otherID)
	var msgs []models.Message
	if val := args.Get(0); val != nil {
		msgs = val.([]models.Message)
	}
	return msgs, args.Error(1)
}

func (m *MessageRepositoryMock) MarkRead(ctx context.Context, senderID, receiverID string) (int64, error) {
	args := m.Called(ctx, senderID, receiverID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MessageRepositoryMock) UnreadCounts(ctx context.Context, receiverID string) (map[string]int, error) {
	args := m.Called(ctx, receiverID)
	var counts map[string]int
	if val := args.Get(0); val != nil {
		counts = val.(map[string]int)
	}
	return counts, args.Error(1)
}

type UserRepositoryMock struct {
	mock.Mock
}

func (m *UserRepositoryMock) CreateUser(ctx context.Context, user models.User) (models.User, error) {
	args := m.Called(ctx, user)
	var created models.User
	if val := args.Get(0); val != nil {
		created = val.(models.User)
	}
	return created, args.Error(1)
}

func (m *UserRepositoryMock) GetUser(ctx context.Context, userID string) (models.User, error) {
	args := m.Called(ctx, userID)
	var user models.User
	if val := args.Get(0); val != nil {
		user = val.(models.User)
	}
	return user, args.Error(1)
}

func (m *UserRepositoryMock) ListUsersExcept(ctx context.Context, userID string) ([]models.User, error) {
	args := m.Called(ctx, userID)
	var users []models.User
	if val := args.Get(0); val != nil {
		users = val.([]models.User)
	}
	return users, args.Error(1)
}

type DelivererMock struct {
	mock.Mock
}

func (m *DelivererMock) Route(msg models.Message) bool {
	args := m.Called(msg)
	return args.Bool(0)
}

type ReadNotifierMock struct {
	mock.Mock
}

func (m *ReadNotifierMock) NotifyRead(senderID, readerID string) bool {
	args := m.Called(senderID, readerID)
	return args.Bool(0)
}

type ImageStoreMock struct {
	mock.Mock
}

func (m *ImageStoreMock) SaveDataURL(data string) (string, error) {
	args := m.Called(data)
	return args.String(0), args.Error(1)
}

// ChatServiceMock stands in for chat.Service in handler tests.
type ChatServiceMock struct {
	mock.Mock
}

func (m *ChatServiceMock) ListCounterparts(ctx context.Context, observerID string) ([]models.SidebarUser, error) {
	args := m.Called(ctx, observerID)
	var users []models.SidebarUser
	if val := args.Get(0); val != nil {
		users = val.([]models.SidebarUser)
	}
	return users, args.Error(1)
}

func (m *ChatServiceMock) ListMessages(ctx context.Context, observerID, counterpartID string) ([]models.Message, error) {
	args := m.Called(ctx, observerID, counterpartID)
	var msgs []models.Message
	if val := args.Get(0); val != nil {
		msgs = val.([]models.Message)
	}
	return msgs, args.Error(1)
}

func (m *ChatServiceMock) SendMessage(ctx context.Context, senderID, receiverID string, in models.SendInput) (models.Message, error) {
	args := m.Called(ctx, senderID, receiverID, in)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *ChatServiceMock) MarkRead(ctx context.Context, readerID, senderID string) error {
	args := m.Called(ctx, readerID, senderID)
	return args.Error(0)
}

func (m *ChatServiceMock) CreateUser(ctx context.Context, user models.User) (models.User, error) {
	args := m.Called(ctx, user)
	var created models.User
	if val := args.Get(0); val != nil {
		created = val.(models.User)
	}
	return created, args.Error(1)
}

var _ repositories.MessageRepository = (*MessageRepositoryMock)(nil)
var _ repositories.UserRepository = (*UserRepositoryMock)(nil)
