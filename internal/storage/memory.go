package storage

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/MosinFAM/synapse/internal/models"

	"github.com/google/uuid"
)

// MemoryStorage keeps everything in process memory.
type MemoryStorage struct {
	users         map[string]models.User
	emails        map[string]string // email -> uid
	conversations map[string]models.Conversation
	posts         map[string]models.Post
	comments      map[string][]models.Comment
	hub           *Hub
	logger        *slog.Logger
	now           func() time.Time
	mu            sync.RWMutex
}

// NewMemoryStorage returns an empty MemoryStorage.
func NewMemoryStorage(logger *slog.Logger) *MemoryStorage {
	if logger == nil {
		logger = slog.Default()
	}
	return &MemoryStorage{
		users:         make(map[string]models.User),
		emails:        make(map[string]string),
		conversations: make(map[string]models.Conversation),
		posts:         make(map[string]models.Post),
		comments:      make(map[string][]models.Comment),
		hub:           NewHub(logger),
		logger:        logger,
		now:           timestamp,
	}
}

// CreateUser stores a new user. Emails are unique.
func (s *MemoryStorage) CreateUser(_ context.Context, user models.User) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user.Email = models.NormalizeEmail(user.Email)
	if _, exists := s.emails[user.Email]; exists {
		return models.User{}, fmt.Errorf("user %s: %w", user.Email, ErrConflict)
	}
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	if _, exists := s.users[user.ID]; exists {
		return models.User{}, fmt.Errorf("user %s: %w", user.ID, ErrConflict)
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = s.now()
	}
	s.users[user.ID] = user
	s.emails[user.Email] = user.ID
	s.logger.Debug("user created", "uid", user.ID)
	return user, nil
}

func (s *MemoryStorage) GetUserByID(_ context.Context, id string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, exists := s.users[id]
	if !exists {
		return nil, fmt.Errorf("user %s: %w", id, ErrNotFound)
	}
	return &user, nil
}

func (s *MemoryStorage) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, exists := s.emails[models.NormalizeEmail(email)]
	if !exists {
		return nil, fmt.Errorf("user %s: %w", email, ErrNotFound)
	}
	user := s.users[id]
	return &user, nil
}

// UpdateUser applies a profile update.
func (s *MemoryStorage) UpdateUser(_ context.Context, id string, update models.ProfileUpdate) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, exists := s.users[id]
	if !exists {
		return nil, fmt.Errorf("user %s: %w", id, ErrNotFound)
	}
	if update.DisplayName != nil {
		user.DisplayName = *update.DisplayName
	}
	if update.Bio != nil {
		user.Bio = *update.Bio
	}
	if update.PhotoURL != nil {
		user.PhotoURL = *update.PhotoURL
	}
	s.users[id] = user
	return &user, nil
}

func (s *MemoryStorage) CreateConversation(_ context.Context, userID string, messages []models.Message) (*models.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	convo := models.Conversation{
		ID:        uuid.New().String(),
		UserID:    userID,
		Title:     models.ConversationTitle(messages),
		Messages:  models.CloneMessages(messages),
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.conversations[convo.ID] = convo
	out := convo
	out.Messages = models.CloneMessages(convo.Messages)
	return &out, nil
}

// UpdateConversation replaces the messages of an owned conversation.
func (s *MemoryStorage) UpdateConversation(_ context.Context, id, userID string, messages []models.Message) (*models.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	convo, exists := s.conversations[id]
	if !exists {
		return nil, fmt.Errorf("conversation %s: %w", id, ErrNotFound)
	}
	if convo.UserID != userID {
		return nil, fmt.Errorf("conversation %s: %w", id, ErrForbidden)
	}
	convo.Messages = models.CloneMessages(messages)
	convo.Title = models.ConversationTitle(messages)
	convo.UpdatedAt = s.now()
	s.conversations[id] = convo

	out := convo
	out.Messages = models.CloneMessages(convo.Messages)
	return &out, nil
}

// GetConversation returns a conversation owned by userID.
func (s *MemoryStorage) GetConversation(_ context.Context, id, userID string) (*models.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	convo, exists := s.conversations[id]
	if !exists {
		return nil, fmt.Errorf("conversation %s: %w", id, ErrNotFound)
	}
	if convo.UserID != userID {
		return nil, fmt.Errorf("conversation %s: %w", id, ErrForbidden)
	}
	convo.Messages = models.CloneMessages(convo.Messages)
	return &convo, nil
}

// ListConversations returns the user's conversations, most recently updated first.
func (s *MemoryStorage) ListConversations(_ context.Context, userID string) ([]models.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := []models.Conversation{}
	for _, convo := range s.conversations {
		if convo.UserID == userID {
			convo.Messages = models.CloneMessages(convo.Messages)
			result = append(result, convo)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].UpdatedAt.Equal(result[j].UpdatedAt) {
			return result[i].UpdatedAt.After(result[j].UpdatedAt)
		}
		return result[i].ID > result[j].ID
	})
	return result, nil
}

func (s *MemoryStorage) DeleteConversation(_ context.Context, id, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	convo, exists := s.conversations[id]
	if !exists {
		return fmt.Errorf("conversation %s: %w", id, ErrNotFound)
	}
	if convo.UserID != userID {
		return fmt.Errorf("conversation %s: %w", id, ErrForbidden)
	}
	delete(s.conversations, id)
	return nil
}

func (s *MemoryStorage) AddPost(_ context.Context, post models.Post) (models.Post, error) {
	s.mu.Lock()

	post.ID = uuid.New().String()
	post.Messages = models.CloneMessages(post.Messages)
	post.Likes, post.Dislikes, post.CommentCount = 0, 0, 0
	if post.CreatedAt.IsZero() {
		post.CreatedAt = s.now()
	}
	post.CreatedAt = post.CreatedAt.UTC().Truncate(time.Millisecond)
	s.posts[post.ID] = post
	s.mu.Unlock()

	s.logger.Debug("post added", "post_id", post.ID, "author_id", post.AuthorID)
	published := post
	s.hub.PublishFeed(models.FeedEvent{Type: models.EventPostCreated, Post: &published})
	return post, nil
}

// GetPosts returns a feed page, newest first.
func (s *MemoryStorage) GetPosts(_ context.Context, limit int, cursor string) (models.PostPage, error) {
	limit = normalizeLimit(limit, defaultPageSize, maxPageSize)

	var (
		at       time.Time
		cursorID string
	)
	if cursor != "" {
		var err error
		at, cursorID, err = parseCursor(cursor)
		if err != nil {
			return models.PostPage{}, err
		}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	all := make([]models.Post, 0, len(s.posts))
	for _, p := range s.posts {
		if cursor != "" && !afterCursor(p, at, cursorID) {
			continue
		}
		all = append(all, s.withCommentCount(p))
	}
	sort.Slice(all, func(i, j int) bool { return postBefore(all[i], all[j]) })

	page := models.PostPage{Posts: all}
	if len(all) > limit {
		page.Posts = all[:limit]
		page.Cursor = encodeCursor(page.Posts[len(page.Posts)-1])
	}
	return page, nil
}

func (s *MemoryStorage) GetPostByID(_ context.Context, id string) (*models.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	post, exists := s.posts[id]
	if !exists {
		return nil, fmt.Errorf("post %s: %w", id, ErrNotFound)
	}
	post = s.withCommentCount(post)
	return &post, nil
}

// GetPostsByAuthor returns an author's posts, newest first.
func (s *MemoryStorage) GetPostsByAuthor(_ context.Context, authorID string) ([]models.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := []models.Post{}
	for _, p := range s.posts {
		if p.AuthorID == authorID {
			result = append(result, s.withCommentCount(p))
		}
	}
	sort.Slice(result, func(i, j int) bool { return postBefore(result[i], result[j]) })
	return result, nil
}

// IncrementVote adds one like or dislike.
func (s *MemoryStorage) IncrementVote(_ context.Context, postID string, kind models.VoteKind) (*models.Post, error) {
	if _, err := kind.Column(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	s.mu.Lock()
	post, exists := s.posts[postID]
	if !exists {
		s.mu.Unlock()
		return nil, fmt.Errorf("post %s: %w", postID, ErrNotFound)
	}
	if kind == models.VoteLike {
		post.Likes++
	} else {
		post.Dislikes++
	}
	s.posts[postID] = post
	post = s.withCommentCount(post)
	s.mu.Unlock()

	published := post
	s.hub.PublishFeed(models.FeedEvent{Type: models.EventPostUpdated, Post: &published})
	return &post, nil
}

// AddComment stores a comment and notifies the post's subscribers.
func (s *MemoryStorage) AddComment(_ context.Context, comment models.Comment) (*models.Comment, error) {
	s.mu.Lock()

	if _, exists := s.posts[comment.PostID]; !exists {
		s.mu.Unlock()
		return nil, fmt.Errorf("post %s: %w", comment.PostID, ErrNotFound)
	}
	if len([]rune(comment.Text)) > models.MaxCommentLength {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: comment is too long", ErrInvalid)
	}
	if comment.ParentID != nil && !s.hasComment(comment.PostID, *comment.ParentID) {
		s.mu.Unlock()
		return nil, parentError(*comment.ParentID, comment.PostID)
	}

	comment.ID = uuid.New().String()
	if comment.CreatedAt.IsZero() {
		comment.CreatedAt = s.now()
	}
	s.comments[comment.PostID] = append(s.comments[comment.PostID], comment)
	s.mu.Unlock()

	// notify
	s.hub.PublishComment(&comment)

	s.logger.Debug("comment added", "comment_id", comment.ID, "post_id", comment.PostID)
	return &comment, nil
}

// hasComment must be called with s.mu held.
func (s *MemoryStorage) hasComment(postID, id string) bool {
	for _, c := range s.comments[postID] {
		if c.ID == id {
			return true
		}
	}
	return false
}

// GetCommentsByPostID returns a post's comments, newest first.
func (s *MemoryStorage) GetCommentsByPostID(_ context.Context, postID string, limit, offset int) ([]*models.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	// post must exist
	if _, exists := s.posts[postID]; !exists {
		return nil, fmt.Errorf("post %s: %w", postID, ErrNotFound)
	}

	comments := s.comments[postID]
	ordered := make([]*models.Comment, 0, len(comments))
	for i := range comments {
		c := comments[i]
		ordered = append(ordered, &c)
	}
	sort.Slice(ordered, func(i, j int) bool {
		if !ordered[i].CreatedAt.Equal(ordered[j].CreatedAt) {
			return ordered[i].CreatedAt.After(ordered[j].CreatedAt)
		}
		return ordered[i].ID > ordered[j].ID
	})

	// paginate
	limit = normalizeLimit(limit, defaultCommentPage, maxCommentPage)
	if offset < 0 {
		offset = 0
	}
	start := offset
	end := offset + limit
	if start > len(ordered) {
		return []*models.Comment{}, nil
	}
	if end > len(ordered) {
		end = len(ordered)
	}
	return ordered[start:end], nil
}

func (s *MemoryStorage) SubscribeToComments(ctx context.Context, postID string) (<-chan *models.Comment, error) {
	return s.hub.SubscribeComments(ctx, postID), nil
}

func (s *MemoryStorage) SubscribeToFeed(ctx context.Context) (<-chan models.FeedEvent, error) {
	return s.hub.SubscribeFeed(ctx), nil
}

func (s *MemoryStorage) withCommentCount(p models.Post) models.Post {
	p.CommentCount = len(s.comments[p.ID])
	p.Messages = models.CloneMessages(p.Messages)
	return p
}
