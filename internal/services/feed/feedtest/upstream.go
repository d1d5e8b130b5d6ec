// Package feedtest provides an in-memory upstream for feed tests
package feedtest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"feedweave/internal/core/activity"
	"feedweave/internal/core/normalize"
	perr "feedweave/internal/platform/errors"
	pnet "feedweave/internal/platform/net"
	"feedweave/internal/services/feed/domain"
)

// Base is the fixture clock origin
var Base = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

// Post builds a raw post minutes before Base
func Post(id, user, typ, content string, minutesAgo int) normalize.RawPost {
	return normalize.RawPost{
		ID:        id,
		Type:      typ,
		User:      normalize.RawUser{ID: user, Username: user},
		Timestamp: Base.Add(-time.Duration(minutesAgo) * time.Minute).Format(time.RFC3339),
		Content:   content,
	}
}

// Upstream is a scripted domain.Upstream
// Pages are keyed by filter and served by offset, an index past the end is an empty page
type Upstream struct {
	mu       sync.Mutex
	me       string
	pages    map[string][][]normalize.RawPost
	posts    map[string]normalize.RawPost
	comments map[string][]domain.Comment
	likes    map[string]int
	feedErr  error
	sendErr  error
	feedGate map[string]chan struct{}
	sendGate chan struct{}
	calls    []string
	tokens   []string
	seq      int
}

var _ domain.Upstream = (*Upstream)(nil)

// New returns an upstream that reports me as the current user
func New(me string) *Upstream {
	return &Upstream{
		me:       me,
		pages:    map[string][][]normalize.RawPost{},
		posts:    map[string]normalize.RawPost{},
		comments: map[string][]domain.Comment{},
		likes:    map[string]int{},
		feedGate: map[string]chan struct{}{},
	}
}

// SetPages scripts the pages served for filter
func (u *Upstream) SetPages(filter string, pages ...[]normalize.RawPost) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.pages[filter] = pages
}

// AddPost makes a post reachable by id without being on a page
func (u *Upstream) AddPost(p normalize.RawPost) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.posts[p.ID] = p
}

// SetComments scripts the comment list of a post
func (u *Upstream) SetComments(postID string, list []domain.Comment) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.comments[postID] = list
}

// FailFeed makes page and post fetches fail with err, nil heals
func (u *Upstream) FailFeed(err error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.feedErr = err
}

// FailSends makes every mutation call fail with err, nil heals
func (u *Upstream) FailSends(err error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.sendErr = err
}

// HoldFeed blocks page fetches for filter until release is called
func (u *Upstream) HoldFeed(filter string) (release func()) {
	ch := make(chan struct{})
	u.mu.Lock()
	u.feedGate[filter] = ch
	u.mu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() {
			u.mu.Lock()
			delete(u.feedGate, filter)
			u.mu.Unlock()
			close(ch)
		})
	}
}

// HoldSends blocks mutation calls until release is called
func (u *Upstream) HoldSends() (release func()) {
	ch := make(chan struct{})
	u.mu.Lock()
	u.sendGate = ch
	u.mu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() {
			u.mu.Lock()
			u.sendGate = nil
			u.mu.Unlock()
			close(ch)
		})
	}
}

// Calls lists the calls made, in order
func (u *Upstream) Calls() []string {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]string(nil), u.calls...)
}

// Tokens lists the bearer tokens seen on calls, in order
func (u *Upstream) Tokens() []string {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]string(nil), u.tokens...)
}

func (u *Upstream) record(ctx context.Context, format string, a ...any) {
	u.calls = append(u.calls, fmt.Sprintf(format, a...))
	u.tokens = append(u.tokens, pnet.Token(ctx))
}

func wait(ctx context.Context, gate chan struct{}) error {
	if gate == nil {
		return nil
	}
	select {
	case <-gate:
		return nil
	case <-ctx.Done():
		return perr.Wrap(ctx.Err(), perr.ErrorCodeUnavailable, "upstream timeout")
	}
}

// Feed serves the scripted page at offset/limit
func (u *Upstream) Feed(ctx context.Context, q domain.FeedQuery) (domain.FeedPage, error) {
	u.mu.Lock()
	u.record(ctx, "feed %q %d", q.Filter, q.Offset)
	gate, err := u.feedGate[q.Filter], u.feedErr
	u.mu.Unlock()

	if werr := wait(ctx, gate); werr != nil {
		return domain.FeedPage{}, werr
	}
	if err != nil {
		return domain.FeedPage{}, err
	}

	u.mu.Lock()
	defer u.mu.Unlock()
	idx := 0
	if q.Limit > 0 {
		idx = q.Offset / q.Limit
	}
	pages := u.pages[q.Filter]
	out := domain.FeedPage{CurrentUserID: u.me}
	if idx < len(pages) {
		out.Posts = append([]normalize.RawPost(nil), pages[idx]...)
	}
	return out, nil
}

func (u *Upstream) findLocked(id string) (normalize.RawPost, bool) {
	if p, ok := u.posts[id]; ok {
		return p, true
	}
	for _, pages := range u.pages {
		for _, page := range pages {
			for _, p := range page {
				if p.ID == id {
					return p, true
				}
			}
		}
	}
	return normalize.RawPost{}, false
}

// Post returns a scripted post by id
func (u *Upstream) Post(ctx context.Context, id string) (normalize.RawPost, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.record(ctx, "post %s", id)
	if u.feedErr != nil {
		return normalize.RawPost{}, u.feedErr
	}
	p, ok := u.findLocked(id)
	if !ok {
		return normalize.RawPost{}, perr.NotFoundf("post %s not found", id)
	}
	return p, nil
}

// send records a mutation call and waits on the send gate
func (u *Upstream) send(ctx context.Context, format string, a ...any) error {
	u.mu.Lock()
	u.record(ctx, format, a...)
	gate := u.sendGate
	u.mu.Unlock()
	if err := wait(ctx, gate); err != nil {
		return err
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.sendErr
}

func (u *Upstream) adjustLikes(id string, d int) int {
	u.mu.Lock()
	defer u.mu.Unlock()
	n, ok := u.likes[id]
	if !ok {
		p, _ := u.findLocked(id)
		n = p.Engagement.Likes
	}
	n = max(n+d, 0)
	u.likes[id] = n
	return n
}

// Like adds one like
func (u *Upstream) Like(ctx context.Context, postID string) (domain.LikeResult, error) {
	if err := u.send(ctx, "like %s", postID); err != nil {
		return domain.LikeResult{}, err
	}
	return domain.LikeResult{Likes: u.adjustLikes(postID, 1)}, nil
}

// Unlike removes one like
func (u *Upstream) Unlike(ctx context.Context, postID string) (domain.LikeResult, error) {
	if err := u.send(ctx, "unlike %s", postID); err != nil {
		return domain.LikeResult{}, err
	}
	return domain.LikeResult{Likes: u.adjustLikes(postID, -1)}, nil
}

// Comments returns the scripted list
func (u *Upstream) Comments(ctx context.Context, postID string) ([]domain.Comment, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.record(ctx, "comments %s", postID)
	if u.feedErr != nil {
		return nil, u.feedErr
	}
	return append([]domain.Comment(nil), u.comments[postID]...), nil
}

// CreateComment appends a comment by the current user
func (u *Upstream) CreateComment(ctx context.Context, in domain.CommentInput) (domain.Comment, error) {
	if err := u.send(ctx, "create-comment %s %s", in.PostID, in.Content); err != nil {
		return domain.Comment{}, err
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	u.seq++
	cm := domain.Comment{
		ID:        fmt.Sprintf("c-new-%d", u.seq),
		PostID:    in.PostID,
		ParentID:  in.ParentID,
		User:      activityUser(u.me),
		Content:   in.Content,
		CreatedAt: Base,
	}
	u.comments[in.PostID] = append(u.comments[in.PostID], cm)
	return cm, nil
}

// DeleteComment records the call
func (u *Upstream) DeleteComment(ctx context.Context, commentID string) error {
	return u.send(ctx, "delete-comment %s", commentID)
}

// DeletePost records the call
func (u *Upstream) DeletePost(ctx context.Context, postID string) error {
	return u.send(ctx, "delete-post %s", postID)
}

// Vote records the call
func (u *Upstream) Vote(ctx context.Context, poolID, option string) error {
	return u.send(ctx, "vote %s %s", poolID, option)
}

// VoteComment records the call
func (u *Upstream) VoteComment(ctx context.Context, commentID string, dir domain.VoteDirection) error {
	return u.send(ctx, "vote-comment %s %s", commentID, dir)
}

func activityUser(id string) activity.User { return activity.User{ID: id, Username: id} }
