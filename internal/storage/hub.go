package storage

import (
	"context"
	"log/slog"
	"sync"

	"github.com/MosinFAM/synapse/internal/models"
)

// Hub fans events out to in-process subscribers.
// A slow subscriber misses events instead of blocking publishers.
type Hub struct {
	mu       sync.Mutex
	comments map[string]map[chan *models.Comment]struct{}
	feed     map[chan models.FeedEvent]struct{}
	logger   *slog.Logger
}

const subscriberBuffer = 16

// NewHub returns a Hub with no subscribers.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		comments: make(map[string]map[chan *models.Comment]struct{}),
		feed:     make(map[chan models.FeedEvent]struct{}),
		logger:   logger,
	}
}

// SubscribeComments streams new comments on postID until ctx is done.
func (h *Hub) SubscribeComments(ctx context.Context, postID string) <-chan *models.Comment {
	ch := make(chan *models.Comment, subscriberBuffer)

	h.mu.Lock()
	if h.comments[postID] == nil {
		h.comments[postID] = make(map[chan *models.Comment]struct{})
	}
	h.comments[postID][ch] = struct{}{}
	h.mu.Unlock()

	// unsubscribe when ctx is done
	go func() {
		<-ctx.Done()
		h.mu.Lock()
		defer h.mu.Unlock()
		if subs, ok := h.comments[postID]; ok {
			delete(subs, ch)
			if len(subs) == 0 {
				delete(h.comments, postID)
			}
		}
		close(ch)
	}()

	return ch
}

// SubscribeFeed streams feed events until ctx is done.
func (h *Hub) SubscribeFeed(ctx context.Context) <-chan models.FeedEvent {
	ch := make(chan models.FeedEvent, subscriberBuffer)

	h.mu.Lock()
	h.feed[ch] = struct{}{}
	h.mu.Unlock()

	go func() {
		<-ctx.Done()
		h.mu.Lock()
		defer h.mu.Unlock()
		delete(h.feed, ch)
		close(ch)
	}()

	return ch
}

func (h *Hub) PublishComment(comment *models.Comment) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.comments[comment.PostID] {
		c := *comment
		select {
		case ch <- &c:
		default:
			h.logger.Warn("dropping comment event for slow subscriber", "post_id", comment.PostID)
		}
	}
}

func (h *Hub) PublishFeed(event models.FeedEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.feed {
		select {
		case ch <- event:
		default:
			h.logger.Warn("dropping feed event for slow subscriber", "type", event.Type)
		}
	}
}

// Subscribers returns the number of active subscriptions.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := len(h.feed)
	for _, subs := range h.comments {
		n += len(subs)
	}
	return n
}
