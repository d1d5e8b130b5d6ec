// Package domain holds the feed ports and transport-agnostic types
package domain

import (
	"time"

	"feedweave/internal/core/activity"
	"feedweave/internal/core/normalize"
)

// FeedQuery asks the upstream for one page
type FeedQuery struct {
	Limit  int
	Offset int
	Filter string
}

// FeedPage is one upstream page, an empty Posts slice ends the stream
type FeedPage struct {
	Posts         []normalize.RawPost `json:"posts"`
	CurrentUserID string              `json:"currentUserId,omitempty"`
}

// LikeResult is the upstream like count after a like or unlike
type LikeResult struct {
	Likes int `json:"likes"`
}

// Comment is one comment on a post
type Comment struct {
	ID        string        `json:"id"`
	PostID    string        `json:"post_id"`
	ParentID  string        `json:"parent_id,omitempty"`
	User      activity.User `json:"user"`
	Content   string        `json:"content"`
	Score     int           `json:"score"`
	CreatedAt time.Time     `json:"created_at"`
}

// CommentInput creates a comment
type CommentInput struct {
	PostID   string
	Content  string
	ParentID string
}

// VoteDirection is a comment vote
type VoteDirection string

const (
	VoteUp   VoteDirection = "up"
	VoteDown VoteDirection = "down"
)

// Valid reports whether d is up or down
func (d VoteDirection) Valid() bool { return d == VoteUp || d == VoteDown }

// Notice is a transient message for the viewer
type Notice struct {
	Level   string    `json:"level"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}
