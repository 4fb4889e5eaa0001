package models

import "time"

// Comment is a reply to a post or to another comment on it.
type Comment struct {
	ID          string    `json:"id" bson:"_id"`
	PostID      string    `json:"postId" bson:"post_id"`
	ParentID    *string   `json:"parentId" bson:"parent_id,omitempty"` // nil for top-level comments
	AuthorID    string    `json:"authorId" bson:"author_id"`
	AuthorEmail string    `json:"authorEmail" bson:"author_email"`
	Text        string    `json:"text" bson:"text"`
	CreatedAt   time.Time `json:"createdAt" bson:"created_at"`
}

// MaxCommentLength is the comment limit in runes.
const MaxCommentLength = 2000
