package storage

import (
	"context"

	"github.com/MosinFAM/synapse/internal/models"
	"github.com/stretchr/testify/mock"
)

type MockStorage struct {
	mock.Mock
}

func (m *MockStorage) CreateUser(ctx context.Context, user models.User) (models.User, error) {
	args := m.Called(ctx, user)
	return args.Get(0).(models.User), args.Error(1)
}

func (m *MockStorage) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	args := m.Called(ctx, id)
	user, _ := args.Get(0).(*models.User)
	return user, args.Error(1)
}

func (m *MockStorage) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	user, _ := args.Get(0).(*models.User)
	return user, args.Error(1)
}

func (m *MockStorage) UpdateUser(ctx context.Context, id string, update models.ProfileUpdate) (*models.User, error) {
	args := m.Called(ctx, id, update)
	user, _ := args.Get(0).(*models.User)
	return user, args.Error(1)
}

func (m *MockStorage) CreateConversation(ctx context.Context, userID string, messages []models.Message) (*models.Conversation, error) {
	args := m.Called(ctx, userID, messages)
	convo, _ := args.Get(0).(*models.Conversation)
	return convo, args.Error(1)
}

func (m *MockStorage) UpdateConversation(ctx context.Context, id, userID string, messages []models.Message) (*models.Conversation, error) {
	args := m.Called(ctx, id, userID, messages)
	convo, _ := args.Get(0).(*models.Conversation)
	return convo, args.Error(1)
}

func (m *MockStorage) GetConversation(ctx context.Context, id, userID string) (*models.Conversation, error) {
	args := m.Called(ctx, id, userID)
	convo, _ := args.Get(0).(*models.Conversation)
	return convo, args.Error(1)
}

func (m *MockStorage) ListConversations(ctx context.Context, userID string) ([]models.Conversation, error) {
	args := m.Called(ctx, userID)
	convos, _ := args.Get(0).([]models.Conversation)
	return convos, args.Error(1)
}

func (m *MockStorage) DeleteConversation(ctx context.Context, id, userID string) error {
	args := m.Called(ctx, id, userID)
	return args.Error(0)
}

func (m *MockStorage) AddPost(ctx context.Context, post models.Post) (models.Post, error) {
	args := m.Called(ctx, post)
	return args.Get(0).(models.Post), args.Error(1)
}

func (m *MockStorage) GetPosts(ctx context.Context, limit int, cursor string) (models.PostPage, error) {
	args := m.Called(ctx, limit, cursor)
	return args.Get(0).(models.PostPage), args.Error(1)
}

func (m *MockStorage) GetPostByID(ctx context.Context, id string) (*models.Post, error) {
	args := m.Called(ctx, id)
	post, _ := args.Get(0).(*models.Post)
	return post, args.Error(1)
}

func (m *MockStorage) GetPostsByAuthor(ctx context.Context, authorID string) ([]models.Post, error) {
	args := m.Called(ctx, authorID)
	posts, _ := args.Get(0).([]models.Post)
	return posts, args.Error(1)
}

func (m *MockStorage) IncrementVote(ctx context.Context, postID string, kind models.VoteKind) (*models.Post, error) {
	args := m.Called(ctx, postID, kind)
	post, _ := args.Get(0).(*models.Post)
	return post, args.Error(1)
}

func (m *MockStorage) AddComment(ctx context.Context, comment models.Comment) (*models.Comment, error) {
	args := m.Called(ctx, comment)
	c, _ := args.Get(0).(*models.Comment)
	return c, args.Error(1)
}

func (m *MockStorage) GetCommentsByPostID(ctx context.Context, postID string, limit, offset int) ([]*models.Comment, error) {
	args := m.Called(ctx, postID, limit, offset)
	comments, _ := args.Get(0).([]*models.Comment)
	return comments, args.Error(1)
}

func (m *MockStorage) SubscribeToComments(ctx context.Context, postID string) (<-chan *models.Comment, error) {
	args := m.Called(ctx, postID)
	return args.Get(0).(chan *models.Comment), args.Error(1)
}

func (m *MockStorage) SubscribeToFeed(ctx context.Context) (<-chan models.FeedEvent, error) {
	args := m.Called(ctx)
	return args.Get(0).(chan models.FeedEvent), args.Error(1)
}
