package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"topics-service/internal/auth"
	"topics-service/internal/models"
	"topics-service/internal/repositories"
)

type TopicRepositoryMock struct {
	mock.Mock
}

func (m *TopicRepositoryMock) Create(ctx context.Context, name string, isPrivate bool, creatorID string) (models.Topic, error) {
	args := m.Called(ctx, name, isPrivate, creatorID)
	var topic models.Topic
	if val := args.Get(0); val != nil {
		topic = val.(models.Topic)
	}
	return topic, args.Error(1)
}

func (m *TopicRepositoryMock) Get(ctx context.Context, topicID string) (models.Topic, error) {
	args := m.Called(ctx, topicID)
	var topic models.Topic
	if val := args.Get(0); val != nil {
		topic = val.(models.Topic)
	}
	return topic, args.Error(1)
}

func (m *TopicRepositoryMock) GetByName(ctx context.Context, name string) (models.Topic, error) {
	args := m.Called(ctx, name)
	var topic models.Topic
	if val := args.Get(0); val != nil {
		topic = val.(models.Topic)
	}
	return topic, args.Error(1)
}

func (m *TopicRepositoryMock) List(ctx context.Context) ([]models.Topic, error) {
	args := m.Called(ctx)
	var topics []models.Topic
	if val := args.Get(0); val != nil {
		topics = val.([]models.Topic)
	}
	return topics, args.Error(1)
}

func (m *TopicRepositoryMock) IsMember(ctx context.Context, topicID string, userID string) (bool, error) {
	args := m.Called(ctx, topicID, userID)
	return args.Bool(0), args.Error(1)
}

func (m *TopicRepositoryMock) IsAdmin(ctx context.Context, topicID string, userID string) (bool, error) {
	args := m.Called(ctx, topicID, userID)
	return args.Bool(0), args.Error(1)
}

func (m *TopicRepositoryMock) AddMember(ctx context.Context, topicID string, userID string) error {
	args := m.Called(ctx, topicID, userID)
	return args.Error(0)
}

func (m *TopicRepositoryMock) RemoveMember(ctx context.Context, topicID string, userID string) error {
	args := m.Called(ctx, topicID, userID)
	return args.Error(0)
}

func (m *TopicRepositoryMock) TouchActivity(ctx context.Context, topicID string) error {
	args := m.Called(ctx, topicID)
	return args.Error(0)
}

type MessageRepositoryMock struct {
	mock.Mock
}

func (m *MessageRepositoryMock) Create(ctx context.Context, topicID string, sender models.Identity, content string, replyTo *string) (models.Message, error) {
	args := m.Called(ctx, topicID, sender, content, replyTo)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *MessageRepositoryMock) Get(ctx context.Context, messageID string) (models.Message, error) {
	args := m.Called(ctx, messageID)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *MessageRepositoryMock) UpdateContent(ctx context.Context, messageID string, content string, editedAt time.Time) (models.Message, error) {
	args := m.Called(ctx, messageID, content, editedAt)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *MessageRepositoryMock) UpdateReactions(ctx context.Context, messageID string, reactions []models.Reaction) error {
	args := m.Called(ctx, messageID, reactions)
	return args.Error(0)
}

func (m *MessageRepositoryMock) Delete(ctx context.Context, messageID string) error {
	args := m.Called(ctx, messageID)
	return args.Error(0)
}

func (m *MessageRepositoryMock) Query(ctx context.Context, topicID string, page int, pageSize int) ([]models.Message, int, error) {
	args := m.Called(ctx, topicID, page, pageSize)
	var msgs []models.Message
	if val := args.Get(0); val != nil {
		msgs = val.([]models.Message)
	}
	return msgs, args.Int(1), args.Error(2)
}

type VerifierMock struct {
	mock.Mock
}

func (m *VerifierMock) Verify(ctx context.Context, token string) (models.Identity, error) {
	args := m.Called(ctx, token)
	var identity models.Identity
	if val := args.Get(0); val != nil {
		identity = val.(models.Identity)
	}
	return identity, args.Error(1)
}

var _ repositories.TopicRepository = (*TopicRepositoryMock)(nil)
var _ repositories.MessageRepository = (*MessageRepositoryMock)(nil)
var _ auth.Verifier = (*VerifierMock)(nil)
