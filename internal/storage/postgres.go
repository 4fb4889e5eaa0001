package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/MosinFAM/synapse/internal/models"

	"github.com/lib/pq"
)

// eventsChannel carries feed and comment events over LISTEN/NOTIFY.
const eventsChannel = "synapse_events"

// notification is the NOTIFY payload. Listeners reload the rows by id.
type notification struct {
	Kind   string `json:"kind"`
	ID     string `json:"id"`
	PostID string `json:"post_id,omitempty"`
}

const kindComment = "comment"

// PostgresStorage stores data in PostgreSQL and fans events out with LISTEN/NOTIFY.
type PostgresStorage struct {
	*sqlStore
	DataSource string
	hub        *Hub
	logger     *slog.Logger
}

// NewPostgresStorage wraps an open, migrated PostgreSQL database.
func NewPostgresStorage(db *sql.DB, dataSource string, logger *slog.Logger) *PostgresStorage {
	if logger == nil {
		logger = slog.Default()
	}
	s := &PostgresStorage{
		DataSource: dataSource,
		hub:        NewHub(logger),
		logger:     logger,
	}
	s.sqlStore = &sqlStore{
		DB:      db,
		dialect: dialectPostgres,
		notify:  s,
		logger:  logger,
		unique:  isPostgresUniqueViolation,
	}
	return s
}

func isPostgresUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

func (s *PostgresStorage) postChanged(ctx context.Context, eventType string, post *models.Post) {
	s.sendNotify(ctx, notification{Kind: eventType, ID: post.ID})
}

func (s *PostgresStorage) commentAdded(ctx context.Context, comment *models.Comment) {
	s.sendNotify(ctx, notification{Kind: kindComment, ID: comment.ID, PostID: comment.PostID})
}

func (s *PostgresStorage) sendNotify(ctx context.Context, n notification) {
	payload, err := json.Marshal(n)
	if err != nil {
		s.logger.Error("encode notification", "error", err)
		return
	}
	if _, err := s.DB.ExecContext(ctx, `SELECT pg_notify($1, $2)`, eventsChannel, string(payload)); err != nil {
		s.logger.Error("notification error", "kind", n.Kind, "id", n.ID, "error", err)
	}
}

// Listen delivers NOTIFY events to local subscribers
// until ctx is cancelled. Call it once per process.
func (s *PostgresStorage) Listen(ctx context.Context) error {
	listener := pq.NewListener(s.DataSource, 10*time.Second, time.Minute, func(ev pq.ListenerEventType, err error) {
		if err != nil {
			s.logger.Error("postgres listener error", "error", err)
		}
	})

	if err := listener.Listen(eventsChannel); err != nil {
		listener.Close()
		return fmt.Errorf("failed to listen on %s: %w", eventsChannel, err)
	}
	s.logger.Info("listening for events", "channel", eventsChannel)

	go func() {
		defer listener.Close()

		for {
			select {
			case <-ctx.Done():
				return

			case <-time.After(90 * time.Second):
				// ping the connection every 90 seconds
				if err := listener.Ping(); err != nil {
					s.logger.Error("postgres listener ping error", "error", err)
				}

			case n := <-listener.Notify:
				// nil arrives after a reconnect
				if n == nil {
					continue
				}
				s.dispatch(ctx, n.Extra)
			}
		}
	}()

	return nil
}

func (s *PostgresStorage) dispatch(ctx context.Context, payload string) {
	var n notification
	if err := json.Unmarshal([]byte(payload), &n); err != nil {
		s.logger.Error("error parsing notification", "payload", payload, "error", err)
		return
	}

	switch n.Kind {
	case kindComment:
		comment, err := s.getComment(ctx, n.ID)
		if err != nil {
			s.logger.Error("load notified comment", "id", n.ID, "error", err)
			return
		}
		s.hub.PublishComment(comment)
	case models.EventPostCreated, models.EventPostUpdated:
		post, err := s.GetPostByID(ctx, n.ID)
		if err != nil {
			s.logger.Error("load notified post", "id", n.ID, "error", err)
			return
		}
		s.hub.PublishFeed(models.FeedEvent{Type: n.Kind, Post: post})
	default:
		s.logger.Warn("unknown notification kind", "kind", n.Kind)
	}
}

func (s *PostgresStorage) SubscribeToComments(ctx context.Context, postID string) (<-chan *models.Comment, error) {
	return s.hub.SubscribeComments(ctx, postID), nil
}

func (s *PostgresStorage) SubscribeToFeed(ctx context.Context) (<-chan models.FeedEvent, error) {
	return s.hub.SubscribeFeed(ctx), nil
}
