package storage

import (
	"context"
	"testing"
	"time"

	"github.com/MosinFAM/synapse/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHub_CommentsRoutedByPost(t *testing.T) {
	hub := NewHub(nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a := hub.SubscribeComments(ctx, "post-a")
	b := hub.SubscribeComments(ctx, "post-b")

	hub.PublishComment(&models.Comment{ID: "c1", PostID: "post-a", Text: "hello"})

	select {
	case c := <-a:
		assert.Equal(t, "c1", c.ID)
	case <-time.After(time.Second):
		require.Fail(t, "no comment on post-a")
	}
	select {
	case c := <-b:
		assert.Failf(t, "unexpected comment", "got %s on post-b", c.ID)
	default:
	}
}

func TestHub_SlowSubscriberDropsEvents(t *testing.T) {
	hub := NewHub(nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	feed := hub.SubscribeFeed(ctx)

	// Publishing never blocks on an unread subscriber
	done := make(chan struct{})
	go func() {
		for i := 0; i < subscriberBuffer*2; i++ {
			hub.PublishFeed(models.FeedEvent{Type: models.EventPostCreated, Post: &models.Post{ID: "p"}})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		require.Fail(t, "publish blocked on a full subscriber")
	}
	assert.Len(t, feed, subscriberBuffer)
}

func TestHub_UnsubscribeClosesChannel(t *testing.T) {
	hub := NewHub(nil)
	ctx, cancel := context.WithCancel(context.Background())

	comments := hub.SubscribeComments(ctx, "post-a")
	feed := hub.SubscribeFeed(ctx)
	assert.Equal(t, 2, hub.Subscribers())

	cancel()

	assert.Eventually(t, func() bool { return hub.Subscribers() == 0 }, time.Second, 10*time.Millisecond)
	_, ok := <-comments
	assert.False(t, ok)
	_, ok = <-feed
	assert.False(t, ok)

	// Publishing after unsubscribe is safe
	hub.PublishComment(&models.Comment{PostID: "post-a"})
	hub.PublishFeed(models.FeedEvent{Type: models.EventPostUpdated})
}
