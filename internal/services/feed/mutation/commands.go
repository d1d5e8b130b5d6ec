package mutation

import (
	"context"
	"slices"

	"feedweave/internal/core/activity"
	"feedweave/internal/services/feed/domain"
)

// Like likes or unlikes a post
type Like struct {
	PostID string
	On     bool
}

func (c Like) Kind() Kind {
	if c.On {
		return KindLike
	}
	return KindUnlike
}
func (c Like) Target() string { return c.PostID }
func (c Like) Lane() string   { return "like:" + c.PostID }

// Apply flips membership and moves the cached count by one
func (c Like) Apply(s State) State {
	was := s.likedNow(c.PostID)
	s.Overlay.SetLiked(c.PostID, c.On)
	s.eachPost(c.PostID, func(a *activity.Activity) {
		a.Engagement.LikedByCurrentUser = c.On
		switch {
		case c.On && !was:
			a.Engagement.Likes++
		case !c.On && was && a.Engagement.Likes > 0:
			a.Engagement.Likes--
		}
	})
	return s
}

func (c Like) Rollback(cur, snap State) State {
	cur.Overlay.RestoreLiked(c.PostID, snap.Overlay)
	restorePost(cur, snap, c.PostID, func(dst *activity.Activity, src activity.Activity) {
		dst.Engagement = src.Engagement
	})
	return cur
}

func (c Like) Send(ctx context.Context, gw Gateway) (Result, error) {
	var (
		r   domain.LikeResult
		err error
	)
	if c.On {
		r, err = gw.Like(ctx, c.PostID)
	} else {
		r, err = gw.Unlike(ctx, c.PostID)
	}
	return Result{Likes: r.Likes}, err
}

// Settle adopts the server count
func (c Like) Settle(s State, r Result) State {
	s.eachPost(c.PostID, func(a *activity.Activity) { a.Engagement.Likes = max(r.Likes, 0) })
	return s
}

// SubmitComment posts a comment, the count is refreshed by the next fetch
type SubmitComment struct {
	PostID   string
	Content  string
	ParentID string
}

func (c SubmitComment) Kind() Kind     { return KindCommentSubmit }
func (c SubmitComment) Target() string { return c.PostID }
func (c SubmitComment) Lane() string   { return "comments:" + c.PostID }

// Apply clears the draft, whatever the outcome
func (c SubmitComment) Apply(s State) State {
	delete(s.Drafts, c.PostID)
	return s
}

// Rollback leaves the draft cleared
func (c SubmitComment) Rollback(cur, _ State) State { return cur }

func (c SubmitComment) Send(ctx context.Context, gw Gateway) (Result, error) {
	cm, err := gw.CreateComment(ctx, domain.CommentInput{PostID: c.PostID, Content: c.Content, ParentID: c.ParentID})
	if err != nil {
		return Result{}, err
	}
	return Result{Comment: &cm}, nil
}

// Settle appends the created comment to a loaded list
func (c SubmitComment) Settle(s State, r Result) State {
	if r.Comment == nil {
		return s
	}
	if list, ok := s.Comments[c.PostID]; ok {
		s.Comments[c.PostID] = append(list, *r.Comment)
	}
	return s
}

// DeletePost removes a post, or every post behind a consolidated card
type DeletePost struct {
	PostID string
	IDs    []string
}

func (c DeletePost) Kind() Kind     { return KindDeletePost }
func (c DeletePost) Target() string { return c.PostID }
func (c DeletePost) Lane() string   { return "post:" + c.PostID }

func (c DeletePost) ids() []string {
	if len(c.IDs) == 0 {
		return []string{c.PostID}
	}
	return c.IDs
}

func (c DeletePost) touches(page []activity.Activity) bool {
	for _, a := range page {
		for _, id := range c.ids() {
			if a.ID == id {
				return true
			}
		}
	}
	return false
}

// Apply filters the posts out of every cached page
func (c DeletePost) Apply(s State) State {
	for k, page := range s.Pages {
		if !c.touches(page) {
			continue
		}
		kept := page[:0:0]
		for _, a := range page {
			drop := false
			for _, id := range c.ids() {
				if a.ID == id {
					drop = true
					break
				}
			}
			if !drop {
				kept = append(kept, a)
			}
		}
		s.Pages[k] = kept
	}
	return s
}

// Rollback restores the affected pages verbatim
func (c DeletePost) Rollback(cur, snap State) State {
	if cur.Epoch != snap.Epoch {
		return cur
	}
	for k, page := range snap.Pages {
		if c.touches(page) {
			cur.Pages[k] = clonePage(page)
		}
	}
	return cur
}

// Send stops at the first failure, Deleted lists the posts removed before it
func (c DeletePost) Send(ctx context.Context, gw Gateway) (Result, error) {
	var res Result
	for _, id := range c.ids() {
		if err := gw.DeletePost(ctx, id); err != nil {
			return res, err
		}
		res.Deleted = append(res.Deleted, id)
	}
	return res, nil
}

// Landed keeps the posts the server already removed out of the cache
func (c DeletePost) Landed(r Result) (Command, bool) {
	if len(r.Deleted) == 0 {
		return nil, false
	}
	return DeletePost{PostID: c.PostID, IDs: slices.Clone(r.Deleted)}, true
}

func (c DeletePost) Settle(s State, _ Result) State { return s }

// DeleteComment removes one comment from the cached list
type DeleteComment struct {
	PostID    string
	CommentID string
}

func (c DeleteComment) Kind() Kind     { return KindDeleteComment }
func (c DeleteComment) Target() string { return c.CommentID }
func (c DeleteComment) Lane() string   { return "comments:" + c.PostID }

func (c DeleteComment) Apply(s State) State {
	list, ok := s.Comments[c.PostID]
	if !ok {
		return s
	}
	kept := make([]domain.Comment, 0, len(list))
	for _, cm := range list {
		if cm.ID != c.CommentID {
			kept = append(kept, cm)
		}
	}
	s.Comments[c.PostID] = kept
	return s
}

// Rollback restores the list verbatim
func (c DeleteComment) Rollback(cur, snap State) State {
	if list, ok := snap.Comments[c.PostID]; ok {
		cur.Comments[c.PostID] = append([]domain.Comment(nil), list...)
	} else {
		delete(cur.Comments, c.PostID)
	}
	return cur
}

func (c DeleteComment) Send(ctx context.Context, gw Gateway) (Result, error) {
	return Result{}, gw.DeleteComment(ctx, c.CommentID)
}

func (c DeleteComment) Settle(s State, _ Result) State { return s }

// Vote picks an option in a post's pool
type Vote struct {
	PostID string
	PoolID string
	Option string
}

func (c Vote) Kind() Kind     { return KindVote }
func (c Vote) Target() string { return c.PoolID }
func (c Vote) Lane() string   { return "pool:" + c.PoolID }

// Apply records the vote and moves option counts from the previous choice
func (c Vote) Apply(s State) State {
	prev, known := s.Overlay.PollVote(c.PoolID)
	if !known {
		if a, ok := s.findPost(c.PostID); ok && a.Poll != nil {
			prev = a.Poll.UserVote
		}
	}
	s.Overlay.SetPollVote(c.PoolID, c.Option)
	if prev == c.Option {
		return s
	}
	for _, page := range s.Pages {
		for i := range page {
			p := page[i].Poll
			if p == nil || p.PoolID != c.PoolID {
				continue
			}
			for j := range p.Options {
				switch p.Options[j].ID {
				case prev:
					if p.Options[j].Votes > 0 {
						p.Options[j].Votes--
					}
				case c.Option:
					p.Options[j].Votes++
				}
			}
			p.UserVote = c.Option
		}
	}
	return s
}

func (c Vote) Rollback(cur, snap State) State {
	cur.Overlay.RestorePollVote(c.PoolID, snap.Overlay)
	if cur.Epoch != snap.Epoch {
		return cur
	}
	polls := map[string]*activity.Poll{}
	for _, page := range snap.Pages {
		for _, a := range page {
			if a.Poll != nil && a.Poll.PoolID == c.PoolID {
				polls[a.ID] = a.Poll
			}
		}
	}
	for _, page := range cur.Pages {
		for i := range page {
			if p, ok := polls[page[i].ID]; ok {
				page[i].Poll = p.Clone()
			}
		}
	}
	return cur
}

func (c Vote) Send(ctx context.Context, gw Gateway) (Result, error) {
	return Result{}, gw.Vote(ctx, c.PoolID, c.Option)
}

func (c Vote) Settle(s State, _ Result) State { return s }

// CommentVote sets a vote on a comment, repeating the same direction clears it
type CommentVote struct {
	CommentID string
	Direction domain.VoteDirection
}

func (c CommentVote) Kind() Kind     { return KindCommentVote }
func (c CommentVote) Target() string { return c.CommentID }
func (c CommentVote) Lane() string   { return "cvote:" + c.CommentID }

func weight(d domain.VoteDirection) int {
	switch d {
	case domain.VoteUp:
		return 1
	case domain.VoteDown:
		return -1
	}
	return 0
}

func (c CommentVote) Apply(s State) State {
	prev, _ := s.Overlay.CommentVote(c.CommentID)
	next := c.Direction
	if prev == c.Direction {
		next = ""
	}
	if next == "" {
		s.Overlay.ForgetCommentVote(c.CommentID)
	} else {
		s.Overlay.SetCommentVote(c.CommentID, next)
	}
	delta := weight(next) - weight(prev)
	for _, list := range s.Comments {
		for i := range list {
			if list[i].ID == c.CommentID {
				list[i].Score += delta
			}
		}
	}
	return s
}

func (c CommentVote) Rollback(cur, snap State) State {
	cur.Overlay.RestoreCommentVote(c.CommentID, snap.Overlay)
	scores := map[string]int{}
	for post, list := range snap.Comments {
		for _, cm := range list {
			if cm.ID == c.CommentID {
				scores[post] = cm.Score
			}
		}
	}
	for post, list := range cur.Comments {
		score, ok := scores[post]
		if !ok {
			continue
		}
		for i := range list {
			if list[i].ID == c.CommentID {
				list[i].Score = score
			}
		}
	}
	return cur
}

func (c CommentVote) Send(ctx context.Context, gw Gateway) (Result, error) {
	return Result{}, gw.VoteComment(ctx, c.CommentID, c.Direction)
}

func (c CommentVote) Settle(s State, _ Result) State { return s }

// Hide removes a post, or every post behind a consolidated card, from the viewer's feed
type Hide struct {
	PostID string
	IDs    []string
}

func (c Hide) Kind() Kind     { return KindHide }
func (c Hide) Target() string { return c.PostID }
func (c Hide) Lane() string   { return "hide:" + c.PostID }

func (c Hide) ids() []string {
	if len(c.IDs) == 0 {
		return []string{c.PostID}
	}
	return c.IDs
}

func (c Hide) Apply(s State) State {
	for _, id := range c.ids() {
		s.Overlay.Hide(id)
	}
	return s
}

func (c Hide) Rollback(cur, snap State) State {
	for _, id := range c.ids() {
		cur.Overlay.RestoreHidden(id, snap.Overlay)
	}
	return cur
}

// Send makes no network call
func (c Hide) Send(context.Context, Gateway) (Result, error) { return Result{}, nil }

func (c Hide) Settle(s State, _ Result) State { return s }
