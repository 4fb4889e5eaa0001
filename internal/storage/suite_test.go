package storage

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/MosinFAM/synapse/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runStorageSuite runs the shared checks against every Storage backend.

var baseTime = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func addTestPost(t *testing.T, s Storage, authorID string, at time.Time) models.Post {
	t.Helper()
	post, err := s.AddPost(context.Background(), models.Post{
		AuthorID:    authorID,
		AuthorEmail: authorID + "@example.com",
		AuthorName:  authorID,
		Messages: []models.Message{
			{Role: models.RoleUser, Content: "hello"},
			{Role: models.RoleAssistant, Content: "hi there"},
		},
		Model:     "GPT-3.5",
		CreatedAt: at,
	})
	require.NoError(t, err)
	return post
}

func testUsers(t *testing.T, s Storage) {
	ctx := context.Background()

	user, err := s.CreateUser(ctx, models.User{Email: "Alice@Example.com", DisplayName: "alice", Provider: models.ProviderPassword, PasswordHash: "hash"})
	require.NoError(t, err)
	assert.NotEmpty(t, user.ID)
	assert.Equal(t, "alice@example.com", user.Email)

	_, err = s.CreateUser(ctx, models.User{Email: "ALICE@example.com"})
	assert.ErrorIs(t, err, ErrConflict)

	byID, err := s.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "hash", byID.PasswordHash)

	byEmail, err := s.GetUserByEmail(ctx, "alice@EXAMPLE.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byEmail.ID)

	bio := "likes prompts"
	updated, err := s.UpdateUser(ctx, user.ID, models.ProfileUpdate{Bio: &bio})
	require.NoError(t, err)
	assert.Equal(t, bio, updated.Bio)
	assert.Equal(t, "alice", updated.DisplayName)

	_, err = s.GetUserByID(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.UpdateUser(ctx, "missing", models.ProfileUpdate{Bio: &bio})
	assert.ErrorIs(t, err, ErrNotFound)
}

func testConversations(t *testing.T, s Storage) {
	ctx := context.Background()
	msgs := []models.Message{{Role: models.RoleUser, Content: "What is Go?"}}

	first, err := s.CreateConversation(ctx, "u1", msgs)
	require.NoError(t, err)
	assert.Equal(t, "What is Go?", first.Title)

	second, err := s.CreateConversation(ctx, "u1", []models.Message{{Role: models.RoleUser, Content: "second"}})
	require.NoError(t, err)

	_, err = s.UpdateConversation(ctx, first.ID, "u2", msgs)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = s.GetConversation(ctx, first.ID, "u2")
	assert.ErrorIs(t, err, ErrForbidden)

	time.Sleep(5 * time.Millisecond)
	msgs = append(msgs, models.Message{Role: models.RoleAssistant, Content: "A language."})
	updated, err := s.UpdateConversation(ctx, first.ID, "u1", msgs)
	require.NoError(t, err)
	assert.Len(t, updated.Messages, 2)
	assert.True(t, updated.UpdatedAt.After(updated.CreatedAt) || updated.UpdatedAt.Equal(updated.CreatedAt))

	list, err := s.ListConversations(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, first.ID, list[0].ID)
	assert.Equal(t, second.ID, list[1].ID)

	other, err := s.ListConversations(ctx, "u2")
	require.NoError(t, err)
	assert.Empty(t, other)

	assert.ErrorIs(t, s.DeleteConversation(ctx, first.ID, "u2"), ErrForbidden)
	require.NoError(t, s.DeleteConversation(ctx, first.ID, "u1"))
	_, err = s.GetConversation(ctx, first.ID, "u1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func testFeedPagination(t *testing.T, s Storage) {
	ctx := context.Background()

	oldest := addTestPost(t, s, "u1", baseTime)
	middle := addTestPost(t, s, "u2", baseTime.Add(time.Minute))
	newest := addTestPost(t, s, "u1", baseTime.Add(2*time.Minute))

	page, err := s.GetPosts(ctx, 2, "")
	require.NoError(t, err)
	require.Len(t, page.Posts, 2)
	assert.Equal(t, newest.ID, page.Posts[0].ID)
	assert.Equal(t, middle.ID, page.Posts[1].ID)
	assert.NotEmpty(t, page.Cursor)
	assert.Equal(t, []models.Message{
		{Role: models.RoleUser, Content: "hello"},
		{Role: models.RoleAssistant, Content: "hi there"},
	}, page.Posts[0].Messages)

	next, err := s.GetPosts(ctx, 2, page.Cursor)
	require.NoError(t, err)
	require.Len(t, next.Posts, 1)
	assert.Equal(t, oldest.ID, next.Posts[0].ID)
	assert.Empty(t, next.Cursor)

	_, err = s.GetPosts(ctx, 2, "garbage")
	assert.ErrorIs(t, err, ErrInvalid)

	byAuthor, err := s.GetPostsByAuthor(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, byAuthor, 2)
	assert.Equal(t, newest.ID, byAuthor[0].ID)
	assert.Equal(t, oldest.ID, byAuthor[1].ID)
}

func testVotes(t *testing.T, s Storage) {
	ctx := context.Background()
	post := addTestPost(t, s, "u1", baseTime)

	liked, err := s.IncrementVote(ctx, post.ID, models.VoteLike)
	require.NoError(t, err)
	assert.Equal(t, 1, liked.Likes)

	liked, err = s.IncrementVote(ctx, post.ID, models.VoteLike)
	require.NoError(t, err)
	assert.Equal(t, 2, liked.Likes)

	disliked, err := s.IncrementVote(ctx, post.ID, models.VoteDislike)
	require.NoError(t, err)
	assert.Equal(t, 2, disliked.Likes)
	assert.Equal(t, 1, disliked.Dislikes)

	_, err = s.IncrementVote(ctx, "missing", models.VoteLike)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.IncrementVote(ctx, post.ID, models.VoteKind("meh"))
	assert.ErrorIs(t, err, ErrInvalid)
}

func testComments(t *testing.T, s Storage) {
	ctx := context.Background()
	post := addTestPost(t, s, "u1", baseTime)

	_, err := s.AddComment(ctx, models.Comment{PostID: "missing", AuthorID: "u2", Text: "hi"})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.AddComment(ctx, models.Comment{PostID: post.ID, AuthorID: "u2", Text: strings.Repeat("x", models.MaxCommentLength+1)})
	assert.ErrorIs(t, err, ErrInvalid)

	first, err := s.AddComment(ctx, models.Comment{PostID: post.ID, AuthorID: "u2", AuthorEmail: "u2@example.com", Text: "first", CreatedAt: baseTime})
	require.NoError(t, err)
	assert.NotEmpty(t, first.ID)

	second, err := s.AddComment(ctx, models.Comment{PostID: post.ID, ParentID: &first.ID, AuthorID: "u3", Text: "reply", CreatedAt: baseTime.Add(time.Second)})
	require.NoError(t, err)

	comments, err := s.GetCommentsByPostID(ctx, post.ID, 10, 0)
	require.NoError(t, err)
	require.Len(t, comments, 2)
	assert.Equal(t, second.ID, comments[0].ID)
	require.NotNil(t, comments[0].ParentID)
	assert.Equal(t, first.ID, *comments[0].ParentID)
	assert.Equal(t, "first", comments[1].Text)
	assert.Nil(t, comments[1].ParentID)

	paged, err := s.GetCommentsByPostID(ctx, post.ID, 1, 1)
	require.NoError(t, err)
	require.Len(t, paged, 1)
	assert.Equal(t, first.ID, paged[0].ID)

	_, err = s.GetCommentsByPostID(ctx, "missing", 10, 0)
	assert.ErrorIs(t, err, ErrNotFound)

	withCount, err := s.GetPostByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, withCount.CommentCount)
}

func testCommentParents(t *testing.T, s Storage) {
	ctx := context.Background()
	post := addTestPost(t, s, "u1", baseTime)
	other := addTestPost(t, s, "u1", baseTime.Add(time.Second))

	root, err := s.AddComment(ctx, models.Comment{PostID: other.ID, AuthorID: "u2", Text: "elsewhere", CreatedAt: baseTime})
	require.NoError(t, err)

	dangling := "missing"
	_, err = s.AddComment(ctx, models.Comment{PostID: post.ID, ParentID: &dangling, AuthorID: "u2", Text: "reply"})
	assert.ErrorIs(t, err, ErrInvalid)

	_, err = s.AddComment(ctx, models.Comment{PostID: post.ID, ParentID: &root.ID, AuthorID: "u2", Text: "reply"})
	assert.ErrorIs(t, err, ErrInvalid)

	comments, err := s.GetCommentsByPostID(ctx, post.ID, 10, 0)
	require.NoError(t, err)
	assert.Empty(t, comments)

	reply, err := s.AddComment(ctx, models.Comment{PostID: other.ID, ParentID: &root.ID, AuthorID: "u3", Text: "reply", CreatedAt: baseTime.Add(time.Second)})
	require.NoError(t, err)
	require.NotNil(t, reply.ParentID)
	assert.Equal(t, root.ID, *reply.ParentID)
}

func testSubscriptions(t *testing.T, s Storage) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	post := addTestPost(t, s, "u1", baseTime)
	other := addTestPost(t, s, "u1", baseTime.Add(time.Second))

	comments, err := s.SubscribeToComments(ctx, post.ID)
	require.NoError(t, err)
	feed, err := s.SubscribeToFeed(ctx)
	require.NoError(t, err)

	_, err = s.AddComment(context.Background(), models.Comment{PostID: other.ID, AuthorID: "u2", Text: "elsewhere"})
	require.NoError(t, err)
	_, err = s.AddComment(context.Background(), models.Comment{PostID: post.ID, AuthorID: "u2", Text: "Test comment"})
	require.NoError(t, err)

	// Receive the comment from the channel
	select {
	case comment := <-comments:
		assert.Equal(t, "Test comment", comment.Text)
	case <-time.After(time.Second):
		assert.Fail(t, "Failed to receive comment")
	}

	_, err = s.IncrementVote(context.Background(), post.ID, models.VoteLike)
	require.NoError(t, err)

	select {
	case event := <-feed:
		assert.Equal(t, models.EventPostUpdated, event.Type)
		assert.Equal(t, post.ID, event.Post.ID)
		assert.Equal(t, 1, event.Post.Likes)
	case <-time.After(time.Second):
		assert.Fail(t, "Failed to receive feed event")
	}

	cancel()
	assert.Eventually(t, func() bool {
		select {
		case _, ok := <-comments:
			return !ok
		default:
			return false
		}
	}, time.Second, 10*time.Millisecond)
}

func runStorageSuite(t *testing.T, newStorage func(t *testing.T) Storage) {
	t.Run("Users", func(t *testing.T) { testUsers(t, newStorage(t)) })
	t.Run("Conversations", func(t *testing.T) { testConversations(t, newStorage(t)) })
	t.Run("FeedPagination", func(t *testing.T) { testFeedPagination(t, newStorage(t)) })
	t.Run("Votes", func(t *testing.T) { testVotes(t, newStorage(t)) })
	t.Run("Comments", func(t *testing.T) { testComments(t, newStorage(t)) })
	t.Run("CommentParents", func(t *testing.T) { testCommentParents(t, newStorage(t)) })
	t.Run("Subscriptions", func(t *testing.T) { testSubscriptions(t, newStorage(t)) })
}
