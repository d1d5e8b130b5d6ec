package domain

import (
	"context"

	"feedweave/internal/core/normalize"
)

// Upstream is the social API the feed is read from and mutated through
type Upstream interface {
	Feed(ctx context.Context, q FeedQuery) (FeedPage, error)
	Post(ctx context.Context, id string) (normalize.RawPost, error)
	Like(ctx context.Context, postID string) (LikeResult, error)
	Unlike(ctx context.Context, postID string) (LikeResult, error)
	Comments(ctx context.Context, postID string) ([]Comment, error)
	CreateComment(ctx context.Context, in CommentInput) (Comment, error)
	DeleteComment(ctx context.Context, commentID string) error
	DeletePost(ctx context.Context, postID string) error
	Vote(ctx context.Context, poolID, option string) error
	VoteComment(ctx context.Context, commentID string, dir VoteDirection) error
}

// Publisher pushes composed snapshots to live subscribers
type Publisher interface {
	Publish(snap Snapshot)
	Close(sessionID string)
}

// ServicePort is consumed by handlers and other modules
type ServicePort interface {
	Open(ctx context.Context, in OpenInput) (Snapshot, error)
	Snapshot(ctx context.Context, sid string) (Snapshot, error)
	End(ctx context.Context, sid string) error
	More(ctx context.Context, sid string) (Snapshot, error)
	SetFilter(ctx context.Context, sid string, in FilterInput) (Snapshot, error)
	Highlight(ctx context.Context, sid string, in HighlightInput) (Snapshot, error)

	ToggleLike(ctx context.Context, sid, postID string) (Ack, error)
	DeletePost(ctx context.Context, sid, postID string) (Ack, error)
	Hide(ctx context.Context, sid, postID string) (Ack, error)

	Comments(ctx context.Context, sid, postID string) ([]Comment, error)
	SetDraft(ctx context.Context, sid, postID string, in DraftInput) error
	SubmitComment(ctx context.Context, sid, postID string, in CommentSubmitInput) (Ack, error)
	DeleteComment(ctx context.Context, sid, postID, commentID string) (Ack, error)
	VoteComment(ctx context.Context, sid, commentID string, in CommentVoteInput) (Ack, error)
	Vote(ctx context.Context, sid, postID string, in VoteInput) (Ack, error)
}
