package domain

import (
	"feedweave/internal/core/compose"
)

// OpenInput opens a feed session
type OpenInput struct {
	Filter          string `json:"filter,omitempty" validate:"omitempty,max=64"`
	HighlightPostID string `json:"highlight_post_id,omitempty" validate:"omitempty,max=128"`
	PageSize        int    `json:"page_size,omitempty" validate:"omitempty,min=1,max=100"`
}

// FilterInput changes the session filter
type FilterInput struct {
	Filter string `json:"filter" validate:"max=64"`
}

// HighlightInput injects a deep-linked post
type HighlightInput struct {
	PostID string `json:"post_id" validate:"required,notblank,max=128"`
}

// DraftInput stores the comment draft of a post
type DraftInput struct {
	Content string `json:"content" validate:"max=4000"`
}

// CommentSubmitInput submits a comment, an empty content sends the stored draft
type CommentSubmitInput struct {
	Content  string `json:"content,omitempty" validate:"max=4000"`
	ParentID string `json:"parent_id,omitempty" validate:"omitempty,max=128"`
}

// CommentVoteInput votes on a comment
type CommentVoteInput struct {
	Direction VoteDirection `json:"direction" validate:"required,oneof=up down"`
}

// VoteInput votes in a post's pool
type VoteInput struct {
	Option string `json:"option" validate:"required,notblank,max=128"`
}

// Ack reports whether a mutation was applied optimistically
// Accepted=false means an identical mutation is already in flight
type Ack struct {
	Accepted bool     `json:"accepted"`
	Snapshot Snapshot `json:"snapshot"`
}

// Snapshot is the composed state of a session at one version
type Snapshot struct {
	SessionID     string       `json:"session_id"`
	CurrentUserID string       `json:"current_user_id,omitempty"`
	Filter        string       `json:"filter,omitempty"`
	Exhausted     bool         `json:"exhausted"`
	Version       uint64       `json:"version"`
	Feed          compose.Feed `json:"feed"`
	Notices       []Notice     `json:"notices,omitempty"`
	Pending       int          `json:"pending"`
	Highlight     string       `json:"highlight,omitempty"`
}
