package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/MosinFAM/synapse/internal/models"

	"github.com/google/uuid"
)

type dialect int

const (
	dialectPostgres dialect = iota
	dialectSQLite
)

// notifier is told about writes once they commit.
type notifier interface {
	postChanged(ctx context.Context, eventType string, post *models.Post)
	commentAdded(ctx context.Context, comment *models.Comment)
}

// sqlStore implements Storage over database/sql.
// Queries use "?" placeholders and are rebound per dialect.
type sqlStore struct {
	DB      *sql.DB
	dialect dialect
	notify  notifier
	logger  *slog.Logger
	unique  func(error) bool
}

const (
	defaultCommentPage = 50
	maxCommentPage     = 500
)

const userColumns = `id, email, display_name, photo_url, bio, provider, password_hash, created_at`

const postColumns = `p.id, p.author_id, p.author_email, p.author_name, p.author_photo, p.messages, p.model,
	p.likes, p.dislikes, p.created_at,
	(SELECT COUNT(*) FROM comments c WHERE c.post_id = p.id) AS comment_count`

const commentColumns = `id, post_id, parent_id, author_id, author_email, text, created_at`

// rebind turns "?" into "$N" for PostgreSQL.
func (s *sqlStore) rebind(query string) string {
	if s.dialect != dialectPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *sqlStore) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return s.DB.ExecContext(ctx, s.rebind(query), args...)
}

func (s *sqlStore) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return s.DB.QueryContext(ctx, s.rebind(query), args...)
}

func (s *sqlStore) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return s.DB.QueryRowContext(ctx, s.rebind(query), args...)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(row scanner) (*models.User, error) {
	var u models.User
	if err := row.Scan(&u.ID, &u.Email, &u.DisplayName, &u.PhotoURL, &u.Bio, &u.Provider, &u.PasswordHash, &u.CreatedAt); err != nil {
		return nil, err
	}
	u.CreatedAt = u.CreatedAt.UTC()
	return &u, nil
}

func scanPost(row scanner) (*models.Post, error) {
	var (
		p        models.Post
		messages []byte
	)
	err := row.Scan(&p.ID, &p.AuthorID, &p.AuthorEmail, &p.AuthorName, &p.AuthorPhoto, &messages, &p.Model,
		&p.Likes, &p.Dislikes, &p.CreatedAt, &p.CommentCount)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(messages, &p.Messages); err != nil {
		return nil, fmt.Errorf("decode post messages: %w", err)
	}
	p.CreatedAt = p.CreatedAt.UTC()
	return &p, nil
}

func scanComment(row scanner) (*models.Comment, error) {
	var (
		c        models.Comment
		parentID sql.NullString
	)
	if err := row.Scan(&c.ID, &c.PostID, &parentID, &c.AuthorID, &c.AuthorEmail, &c.Text, &c.CreatedAt); err != nil {
		return nil, err
	}
	if parentID.Valid {
		c.ParentID = &parentID.String
	}
	c.CreatedAt = c.CreatedAt.UTC()
	return &c, nil
}

func scanConversation(row scanner) (*models.Conversation, error) {
	var (
		c        models.Conversation
		messages []byte
	)
	if err := row.Scan(&c.ID, &c.UserID, &c.Title, &messages, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(messages, &c.Messages); err != nil {
		return nil, fmt.Errorf("decode conversation messages: %w", err)
	}
	c.CreatedAt = c.CreatedAt.UTC()
	c.UpdatedAt = c.UpdatedAt.UTC()
	return &c, nil
}

func encodeMessages(messages []models.Message) (string, error) {
	if messages == nil {
		messages = []models.Message{}
	}
	data, err := json.Marshal(messages)
	if err != nil {
		return "", fmt.Errorf("encode messages: %w", err)
	}
	return string(data), nil
}

func (s *sqlStore) CreateUser(ctx context.Context, user models.User) (models.User, error) {
	user.Email = models.NormalizeEmail(user.Email)
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = timestamp()
	}

	_, err := s.exec(ctx, `INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID, user.Email, user.DisplayName, user.PhotoURL, user.Bio, user.Provider, user.PasswordHash, user.CreatedAt)
	if err != nil {
		if s.unique != nil && s.unique(err) {
			return models.User{}, fmt.Errorf("user %s: %w", user.Email, ErrConflict)
		}
		s.logger.Error("insert user", "error", err)
		return models.User{}, fmt.Errorf("insert user: %w", err)
	}
	return user, nil
}

func (s *sqlStore) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	user, err := scanUser(s.queryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("select user: %w", err)
	}
	return user, nil
}

func (s *sqlStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	user, err := scanUser(s.queryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, models.NormalizeEmail(email)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user %s: %w", email, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("select user: %w", err)
	}
	return user, nil
}

// UpdateUser applies a profile update.
func (s *sqlStore) UpdateUser(ctx context.Context, id string, update models.ProfileUpdate) (*models.User, error) {
	var (
		sets []string
		args []any
	)
	if update.DisplayName != nil {
		sets = append(sets, "display_name = ?")
		args = append(args, *update.DisplayName)
	}
	if update.Bio != nil {
		sets = append(sets, "bio = ?")
		args = append(args, *update.Bio)
	}
	if update.PhotoURL != nil {
		sets = append(sets, "photo_url = ?")
		args = append(args, *update.PhotoURL)
	}
	if len(sets) > 0 {
		args = append(args, id)
		res, err := s.exec(ctx, `UPDATE users SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
		if err != nil {
			return nil, fmt.Errorf("update user: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return nil, fmt.Errorf("user %s: %w", id, ErrNotFound)
		}
	}
	return s.GetUserByID(ctx, id)
}

func (s *sqlStore) CreateConversation(ctx context.Context, userID string, messages []models.Message) (*models.Conversation, error) {
	encoded, err := encodeMessages(messages)
	if err != nil {
		return nil, err
	}
	now := timestamp()
	convo := &models.Conversation{
		ID:        uuid.New().String(),
		UserID:    userID,
		Title:     models.ConversationTitle(messages),
		Messages:  models.CloneMessages(messages),
		CreatedAt: now,
		UpdatedAt: now,
	}
	_, err = s.exec(ctx, `INSERT INTO conversations (id, user_id, title, messages, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		convo.ID, convo.UserID, convo.Title, encoded, convo.CreatedAt, convo.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert conversation: %w", err)
	}
	return convo, nil
}

// UpdateConversation replaces the messages of an owned conversation.
func (s *sqlStore) UpdateConversation(ctx context.Context, id, userID string, messages []models.Message) (*models.Conversation, error) {
	if _, err := s.GetConversation(ctx, id, userID); err != nil {
		return nil, err
	}
	encoded, err := encodeMessages(messages)
	if err != nil {
		return nil, err
	}
	_, err = s.exec(ctx, `UPDATE conversations SET messages = ?, title = ?, updated_at = ? WHERE id = ? AND user_id = ?`,
		encoded, models.ConversationTitle(messages), timestamp(), id, userID)
	if err != nil {
		return nil, fmt.Errorf("update conversation: %w", err)
	}
	return s.GetConversation(ctx, id, userID)
}

// GetConversation returns a conversation owned by userID.
func (s *sqlStore) GetConversation(ctx context.Context, id, userID string) (*models.Conversation, error) {
	convo, err := scanConversation(s.queryRow(ctx,
		`SELECT id, user_id, title, messages, created_at, updated_at FROM conversations WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("conversation %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("select conversation: %w", err)
	}
	if convo.UserID != userID {
		return nil, fmt.Errorf("conversation %s: %w", id, ErrForbidden)
	}
	return convo, nil
}

// ListConversations returns the user's conversations, most recently updated first.
func (s *sqlStore) ListConversations(ctx context.Context, userID string) ([]models.Conversation, error) {
	rows, err := s.query(ctx, `SELECT id, user_id, title, messages, created_at, updated_at
		FROM conversations WHERE user_id = ? ORDER BY updated_at DESC, id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("query conversations: %w", err)
	}
	defer rows.Close()

	result := []models.Conversation{}
	for rows.Next() {
		convo, err := scanConversation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan conversation: %w", err)
		}
		result = append(result, *convo)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate conversations: %w", err)
	}
	return result, nil
}

func (s *sqlStore) DeleteConversation(ctx context.Context, id, userID string) error {
	if _, err := s.GetConversation(ctx, id, userID); err != nil {
		return err
	}
	if _, err := s.exec(ctx, `DELETE FROM conversations WHERE id = ? AND user_id = ?`, id, userID); err != nil {
		return fmt.Errorf("delete conversation: %w", err)
	}
	return nil
}

func (s *sqlStore) AddPost(ctx context.Context, post models.Post) (models.Post, error) {
	encoded, err := encodeMessages(post.Messages)
	if err != nil {
		return models.Post{}, err
	}
	post.ID = uuid.New().String()
	post.Messages = models.CloneMessages(post.Messages)
	post.Likes, post.Dislikes, post.CommentCount = 0, 0, 0
	if post.CreatedAt.IsZero() {
		post.CreatedAt = timestamp()
	}
	post.CreatedAt = post.CreatedAt.UTC().Truncate(time.Millisecond)

	_, err = s.exec(ctx, `INSERT INTO posts (id, author_id, author_email, author_name, author_photo, messages, model, likes, dislikes, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, 0, 0, ?)`,
		post.ID, post.AuthorID, post.AuthorEmail, post.AuthorName, post.AuthorPhoto, encoded, post.Model, post.CreatedAt)
	if err != nil {
		s.logger.Error("insert post", "error", err)
		return models.Post{}, fmt.Errorf("insert post: %w", err)
	}

	s.notify.postChanged(ctx, models.EventPostCreated, &post)
	return post, nil
}

// GetPosts returns the page after cursor, newest first.
func (s *sqlStore) GetPosts(ctx context.Context, limit int, cursor string) (models.PostPage, error) {
	limit = normalizeLimit(limit, defaultPageSize, maxPageSize)

	var (
		rows *sql.Rows
		err  error
	)
	if cursor != "" {
		at, id, parseErr := parseCursor(cursor)
		if parseErr != nil {
			return models.PostPage{}, parseErr
		}
		rows, err = s.query(ctx, `SELECT `+postColumns+` FROM posts p
			WHERE p.created_at < ? OR (p.created_at = ? AND p.id < ?)
			ORDER BY p.created_at DESC, p.id DESC
			LIMIT ?`, at, at, id, limit+1)
	} else {
		rows, err = s.query(ctx, `SELECT `+postColumns+` FROM posts p
			ORDER BY p.created_at DESC, p.id DESC
			LIMIT ?`, limit+1)
	}
	if err != nil {
		return models.PostPage{}, fmt.Errorf("query posts: %w", err)
	}
	defer rows.Close()

	posts, err := collectPosts(rows)
	if err != nil {
		return models.PostPage{}, err
	}

	page := models.PostPage{Posts: posts}
	if len(posts) > limit {
		page.Posts = posts[:limit]
		page.Cursor = encodeCursor(page.Posts[limit-1])
	}
	return page, nil
}

func (s *sqlStore) GetPostByID(ctx context.Context, id string) (*models.Post, error) {
	post, err := scanPost(s.queryRow(ctx, `SELECT `+postColumns+` FROM posts p WHERE p.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("post %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("select post: %w", err)
	}
	return post, nil
}

// GetPostsByAuthor returns an author's posts, newest first.
func (s *sqlStore) GetPostsByAuthor(ctx context.Context, authorID string) ([]models.Post, error) {
	rows, err := s.query(ctx, `SELECT `+postColumns+` FROM posts p
		WHERE p.author_id = ? ORDER BY p.created_at DESC, p.id DESC`, authorID)
	if err != nil {
		return nil, fmt.Errorf("query posts by author: %w", err)
	}
	defer rows.Close()
	return collectPosts(rows)
}

func collectPosts(rows *sql.Rows) ([]models.Post, error) {
	posts := []models.Post{}
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("scan post: %w", err)
		}
		posts = append(posts, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate posts: %w", err)
	}
	return posts, nil
}

// IncrementVote atomically adds one vote.
func (s *sqlStore) IncrementVote(ctx context.Context, postID string, kind models.VoteKind) (*models.Post, error) {
	column, err := kind.Column()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	res, err := s.exec(ctx, `UPDATE posts SET `+column+` = `+column+` + 1 WHERE id = ?`, postID)
	if err != nil {
		return nil, fmt.Errorf("increment %s: %w", column, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, fmt.Errorf("post %s: %w", postID, ErrNotFound)
	}

	post, err := s.GetPostByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	s.notify.postChanged(ctx, models.EventPostUpdated, post)
	return post, nil
}

// AddComment stores a comment on an existing post. A parent must be on the same post.
func (s *sqlStore) AddComment(ctx context.Context, comment models.Comment) (*models.Comment, error) {
	var exists int
	err := s.queryRow(ctx, `SELECT 1 FROM posts WHERE id = ?`, comment.PostID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("post %s: %w", comment.PostID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("select post: %w", err)
	}
	if len([]rune(comment.Text)) > models.MaxCommentLength {
		return nil, fmt.Errorf("%w: comment is too long", ErrInvalid)
	}
	if comment.ParentID != nil {
		var parentPost string
		err := s.queryRow(ctx, `SELECT post_id FROM comments WHERE id = ?`, *comment.ParentID).Scan(&parentPost)
		if errors.Is(err, sql.ErrNoRows) || (err == nil && parentPost != comment.PostID) {
			return nil, parentError(*comment.ParentID, comment.PostID)
		}
		if err != nil {
			return nil, fmt.Errorf("select parent comment: %w", err)
		}
	}

	comment.ID = uuid.New().String()
	if comment.CreatedAt.IsZero() {
		comment.CreatedAt = timestamp()
	}
	_, err = s.exec(ctx, `INSERT INTO comments (`+commentColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		comment.ID, comment.PostID, comment.ParentID, comment.AuthorID, comment.AuthorEmail, comment.Text, comment.CreatedAt)
	if err != nil {
		s.logger.Error("insert comment", "error", err)
		return nil, fmt.Errorf("insert comment: %w", err)
	}

	s.notify.commentAdded(ctx, &comment)
	return &comment, nil
}

func (s *sqlStore) getComment(ctx context.Context, id string) (*models.Comment, error) {
	comment, err := scanComment(s.queryRow(ctx, `SELECT `+commentColumns+` FROM comments WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("comment %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("select comment: %w", err)
	}
	return comment, nil
}

// GetCommentsByPostID returns a post's comments, newest first.
func (s *sqlStore) GetCommentsByPostID(ctx context.Context, postID string, limit, offset int) ([]*models.Comment, error) {
	var exists int
	err := s.queryRow(ctx, `SELECT 1 FROM posts WHERE id = ?`, postID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("post %s: %w", postID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("select post: %w", err)
	}

	limit = normalizeLimit(limit, defaultCommentPage, maxCommentPage)
	if offset < 0 {
		offset = 0
	}
	rows, err := s.query(ctx, `SELECT `+commentColumns+` FROM comments WHERE post_id = ?
		ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`, postID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("query comments: %w", err)
	}
	defer rows.Close()

	comments := []*models.Comment{}
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan comment: %w", err)
		}
		comments = append(comments, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate comments: %w", err)
	}
	return comments, nil
}
