package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/MosinFAM/synapse/internal/models"
	"github.com/MosinFAM/synapse/internal/storage"
)

// Feed serves the public feed, votes, comments and profile pages.
type Feed struct {
	store    storage.Storage
	pageSize int
	sanitize sanitizer
	logger   *slog.Logger
}

// NewFeed creates the feed service. pageSize is used when a caller asks for no limit.
func NewFeed(store storage.Storage, pageSize int, logger *slog.Logger) *Feed {
	return &Feed{store: store, pageSize: pageSize, sanitize: newSanitizer(), logger: logger}
}

// Posts returns a page of the feed, newest first.
func (f *Feed) Posts(ctx context.Context, limit int, cursor string) (models.PostPage, error) {
	if limit <= 0 {
		limit = f.pageSize
	}
	return f.store.GetPosts(ctx, limit, cursor)
}

// Post returns a single post.
func (f *Feed) Post(ctx context.Context, id string) (*models.Post, error) {
	return f.store.GetPostByID(ctx, id)
}

// Like adds one like. Votes are not deduplicated per user.
func (f *Feed) Like(ctx context.Context, postID string) (*models.Post, error) {
	return f.store.IncrementVote(ctx, postID, models.VoteLike)
}

// Dislike adds one dislike.
func (f *Feed) Dislike(ctx context.Context, postID string) (*models.Post, error) {
	return f.store.IncrementVote(ctx, postID, models.VoteDislike)
}

// AddComment posts a comment as userID. Markup is stripped and blank
// comments are rejected.
func (f *Feed) AddComment(ctx context.Context, userID, postID, text string, parentID *string) (*models.Comment, error) {
	text = f.sanitize.clean(text)
	if text == "" {
		return nil, ErrEmptyComment
	}
	if parentID != nil && *parentID == "" {
		parentID = nil
	}

	author, err := f.store.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get author: %w", err)
	}

	comment, err := f.store.AddComment(ctx, models.Comment{
		PostID:      postID,
		ParentID:    parentID,
		AuthorID:    author.ID,
		AuthorEmail: author.Email,
		Text:        text,
	})
	if err != nil {
		return nil, err
	}
	f.logger.Debug("comment added", "post_id", postID, "comment_id", comment.ID)
	return comment, nil
}

// Comments returns a page of a post's comments, newest first.
func (f *Feed) Comments(ctx context.Context, postID string, limit, offset int) ([]*models.Comment, error) {
	return f.store.GetCommentsByPostID(ctx, postID, limit, offset)
}

// Profile returns a user's public profile with their posts and karma.
func (f *Feed) Profile(ctx context.Context, userID, viewerID string) (*models.Profile, error) {
	user, err := f.store.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	posts, err := f.store.GetPostsByAuthor(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get posts: %w", err)
	}
	if posts == nil {
		posts = []models.Post{}
	}
	return &models.Profile{
		User:         *user,
		Posts:        posts,
		Karma:        models.Karma(posts),
		IsOwnProfile: viewerID != "" && viewerID == userID,
	}, nil
}

// SubscribeFeed streams new and updated posts until ctx is done.
func (f *Feed) SubscribeFeed(ctx context.Context) (<-chan models.FeedEvent, error) {
	return f.store.SubscribeToFeed(ctx)
}

// SubscribeComments streams new comments on an existing post until ctx is done.
func (f *Feed) SubscribeComments(ctx context.Context, postID string) (<-chan *models.Comment, error) {
	if _, err := f.store.GetPostByID(ctx, postID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("get post: %w", err)
	}
	return f.store.SubscribeToComments(ctx, postID)
}
