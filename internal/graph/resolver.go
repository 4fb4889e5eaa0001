package graph

import (
	"context"
	"errors"

	"github.com/MosinFAM/synapse/internal/auth"
	"github.com/MosinFAM/synapse/internal/models"
	"github.com/MosinFAM/synapse/internal/service"
	"github.com/MosinFAM/synapse/internal/storage"
)

// ErrUnauthenticated is returned by fields that need a signed-in user.
var ErrUnauthenticated = errors.New("authentication required")

type ResolverRoot interface {
	Query() QueryResolver
	Mutation() MutationResolver
	Subscription() SubscriptionResolver
	Post() PostResolver
}

type QueryResolver interface {
	Posts(ctx context.Context, limit *int, cursor *string) (models.PostPage, error)
	Post(ctx context.Context, id string) (*models.Post, error)
	Comments(ctx context.Context, postID string, limit, offset int) ([]*models.Comment, error)
	User(ctx context.Context, id string) (*models.Profile, error)
	Me(ctx context.Context) (*models.User, error)
	Conversations(ctx context.Context) ([]models.Conversation, error)
}

type MutationResolver interface {
	LikePost(ctx context.Context, id string) (*models.Post, error)
	DislikePost(ctx context.Context, id string) (*models.Post, error)
	AddComment(ctx context.Context, postID, text string, parentID *string) (*models.Comment, error)
}

type SubscriptionResolver interface {
	CommentAdded(ctx context.Context, postID string) (<-chan *models.Comment, error)
	FeedUpdated(ctx context.Context) (<-chan models.FeedEvent, error)
}

type PostResolver interface {
	Comments(ctx context.Context, obj *models.Post, limit, offset int) ([]*models.Comment, error)
}

type Resolver struct {
	Accounts *service.Accounts
	Chat     *service.Chat
	Feed     *service.Feed
}

// Query returns QueryResolver implementation.
func (r *Resolver) Query() QueryResolver { return &queryResolver{r} }

// Mutation returns MutationResolver implementation.
func (r *Resolver) Mutation() MutationResolver { return &mutationResolver{r} }

// Subscription returns SubscriptionResolver implementation.
func (r *Resolver) Subscription() SubscriptionResolver { return &subscriptionResolver{r} }

// Post returns PostResolver implementation.
func (r *Resolver) Post() PostResolver { return &postResolver{r} }

type queryResolver struct{ *Resolver }

type mutationResolver struct{ *Resolver }

type subscriptionResolver struct{ *Resolver }

type postResolver struct{ *Resolver }

func currentUser(ctx context.Context) (string, error) {
	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		return "", ErrUnauthenticated
	}
	return userID, nil
}

// Posts is the resolver for the posts field.
func (r *queryResolver) Posts(ctx context.Context, limit *int, cursor *string) (models.PostPage, error) {
	var l int
	if limit != nil {
		l = *limit
	}
	var c string
	if cursor != nil {
		c = *cursor
	}
	return r.Feed.Posts(ctx, l, c)
}

// Post is the resolver for the post field.
func (r *queryResolver) Post(ctx context.Context, id string) (*models.Post, error) {
	post, err := r.Feed.Post(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	return post, err
}

// Comments is the resolver for the comments field.
func (r *queryResolver) Comments(ctx context.Context, postID string, limit, offset int) ([]*models.Comment, error) {
	return r.Feed.Comments(ctx, postID, limit, offset)
}

// User is the resolver for the user field.
func (r *queryResolver) User(ctx context.Context, id string) (*models.Profile, error) {
	viewerID, _ := auth.UserIDFromContext(ctx)
	profile, err := r.Feed.Profile(ctx, id, viewerID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	return profile, err
}

// Me is the resolver for the me field. Anonymous callers get null.
func (r *queryResolver) Me(ctx context.Context) (*models.User, error) {
	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		return nil, nil
	}
	return r.Accounts.Me(ctx, userID)
}

// Conversations is the resolver for the conversations field.
func (r *queryResolver) Conversations(ctx context.Context) ([]models.Conversation, error) {
	userID, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}
	return r.Chat.List(ctx, userID)
}

// LikePost is the resolver for the likePost field.
func (r *mutationResolver) LikePost(ctx context.Context, id string) (*models.Post, error) {
	if _, err := currentUser(ctx); err != nil {
		return nil, err
	}
	return r.Feed.Like(ctx, id)
}

// DislikePost is the resolver for the dislikePost field.
func (r *mutationResolver) DislikePost(ctx context.Context, id string) (*models.Post, error) {
	if _, err := currentUser(ctx); err != nil {
		return nil, err
	}
	return r.Feed.Dislike(ctx, id)
}

// AddComment is the resolver for the addComment field.
func (r *mutationResolver) AddComment(ctx context.Context, postID, text string, parentID *string) (*models.Comment, error) {
	userID, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}
	return r.Feed.AddComment(ctx, userID, postID, text, parentID)
}

// CommentAdded is the resolver for the commentAdded field.
func (r *subscriptionResolver) CommentAdded(ctx context.Context, postID string) (<-chan *models.Comment, error) {
	return r.Feed.SubscribeComments(ctx, postID)
}

// FeedUpdated is the resolver for the feedUpdated field.
func (r *subscriptionResolver) FeedUpdated(ctx context.Context) (<-chan models.FeedEvent, error) {
	return r.Feed.SubscribeFeed(ctx)
}

// Comments is the resolver for the comments field.
func (r *postResolver) Comments(ctx context.Context, obj *models.Post, limit, offset int) ([]*models.Comment, error) {
	return r.Feed.Comments(ctx, obj.ID, limit, offset)
}
