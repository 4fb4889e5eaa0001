package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/MosinFAM/synapse/internal/models"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrForbidden = errors.New("forbidden")
	ErrConflict  = errors.New("already exists")
	ErrInvalid   = errors.New("invalid argument")
)

// parentError reports a reply to a comment that is missing or belongs to another post.
func parentError(parentID, postID string) error {
	return fmt.Errorf("%w: parent comment %s not found on post %s", ErrInvalid, parentID, postID)
}

// Storage is implemented by the memory, PostgreSQL, SQLite and MongoDB backends.
type Storage interface {
	CreateUser(ctx context.Context, user models.User) (models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateUser(ctx context.Context, id string, update models.ProfileUpdate) (*models.User, error)

	CreateConversation(ctx context.Context, userID string, messages []models.Message) (*models.Conversation, error)
	UpdateConversation(ctx context.Context, id, userID string, messages []models.Message) (*models.Conversation, error)
	GetConversation(ctx context.Context, id, userID string) (*models.Conversation, error)
	ListConversations(ctx context.Context, userID string) ([]models.Conversation, error)
	DeleteConversation(ctx context.Context, id, userID string) error

	AddPost(ctx context.Context, post models.Post) (models.Post, error)
	GetPosts(ctx context.Context, limit int, cursor string) (models.PostPage, error)
	GetPostByID(ctx context.Context, id string) (*models.Post, error)
	GetPostsByAuthor(ctx context.Context, authorID string) ([]models.Post, error)
	IncrementVote(ctx context.Context, postID string, kind models.VoteKind) (*models.Post, error)

	AddComment(ctx context.Context, comment models.Comment) (*models.Comment, error)
	GetCommentsByPostID(ctx context.Context, postID string, limit, offset int) ([]*models.Comment, error)

	SubscribeToComments(ctx context.Context, postID string) (<-chan *models.Comment, error)
	SubscribeToFeed(ctx context.Context) (<-chan models.FeedEvent, error)
}
