package storage

import (
	"context"
	"database/sql"
	"log/slog"
	"strings"

	"github.com/MosinFAM/synapse/internal/models"
)

// SQLiteStorage stores data in a SQLite file.
// Events stay in process.
type SQLiteStorage struct {
	*sqlStore
	hub *Hub
}

// NewSQLiteStorage wraps an open, migrated SQLite database.
func NewSQLiteStorage(db *sql.DB, logger *slog.Logger) *SQLiteStorage {
	if logger == nil {
		logger = slog.Default()
	}
	s := &SQLiteStorage{hub: NewHub(logger)}
	s.sqlStore = &sqlStore{
		DB:      db,
		dialect: dialectSQLite,
		notify:  s,
		logger:  logger,
		unique:  isSQLiteUniqueViolation,
	}
	return s
}

func isSQLiteUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func (s *SQLiteStorage) postChanged(_ context.Context, eventType string, post *models.Post) {
	published := *post
	s.hub.PublishFeed(models.FeedEvent{Type: eventType, Post: &published})
}

func (s *SQLiteStorage) commentAdded(_ context.Context, comment *models.Comment) {
	s.hub.PublishComment(comment)
}

func (s *SQLiteStorage) SubscribeToComments(ctx context.Context, postID string) (<-chan *models.Comment, error) {
	return s.hub.SubscribeComments(ctx, postID), nil
}

func (s *SQLiteStorage) SubscribeToFeed(ctx context.Context) (<-chan models.FeedEvent, error) {
	return s.hub.SubscribeFeed(ctx), nil
}
