package models

import (
	"fmt"
	"time"
)

// Post is a conversation shared to the feed.
type Post struct {
	ID           string    `json:"id" bson:"_id"`
	AuthorID     string    `json:"authorId" bson:"author_id"`
	AuthorEmail  string    `json:"authorEmail" bson:"author_email"`
	AuthorName   string    `json:"authorName" bson:"author_name"`
	AuthorPhoto  string    `json:"authorPhoto" bson:"author_photo"`
	Messages     []Message `json:"messages" bson:"messages"`
	Model        string    `json:"model" bson:"model"`
	Likes        int       `json:"likes" bson:"likes"`
	Dislikes     int       `json:"dislikes" bson:"dislikes"`
	CommentCount int       `json:"commentCount" bson:"-"` // computed on read
	CreatedAt    time.Time `json:"createdAt" bson:"created_at"`
}

// Score is likes minus dislikes.
func (p Post) Score() int {
	return p.Likes - p.Dislikes
}

// Karma sums the score of every post.
func Karma(posts []Post) int {
	total := 0
	for _, p := range posts {
		total += p.Score()
	}
	return total
}

// VoteKind is a like or a dislike.
type VoteKind string

const (
	VoteLike    VoteKind = "like"
	VoteDislike VoteKind = "dislike"
)

// Column returns the counter column for the vote.
func (k VoteKind) Column() (string, error) {
	switch k {
	case VoteLike:
		return "likes", nil
	case VoteDislike:
		return "dislikes", nil
	}
	return "", fmt.Errorf("unknown vote kind %q", string(k))
}

// PostPage is one feed page and the cursor of the next one.
type PostPage struct {
	Posts  []Post `json:"posts"`
	Cursor string `json:"cursor,omitempty"`
}

// Feed event types
const (
	EventPostCreated = "post_created"
	EventPostUpdated = "post_updated"
)

// FeedEvent is delivered to feed subscribers.
type FeedEvent struct {
	Type string `json:"type"`
	Post *Post  `json:"post"`
}
