package session

import (
	"context"
	"errors"

	"feedweave/internal/core/activity"
	"feedweave/internal/core/normalize"
	perr "feedweave/internal/platform/errors"
	"feedweave/internal/services/feed/domain"
	"feedweave/internal/services/feed/mutation"
)

// target is what an id from the wire resolves to
// A consolidated card stands for its original posts, the first one carries likes and comments
type target struct {
	id    string
	ids   []string
	owner string
	post  activity.Activity
}

func (s *Session) resolveLocked(id string) (target, error) {
	for _, e := range s.feed.Entries {
		if e.Kind == activity.EntryConsolidated && e.Consolidated.ID == id {
			c := e.Consolidated
			t := target{id: c.OriginalActivityIDs[0], ids: append([]string(nil), c.OriginalActivityIDs...), owner: c.User.ID}
			t.post, _ = s.pag.Find(t.id)
			return t, nil
		}
	}
	a, ok := s.pag.Find(id)
	if !ok {
		return target{}, perr.WithField(perr.NotFoundf("post %s is not in this feed", id), "post_id")
	}
	return target{id: a.ID, owner: a.User.ID, post: a}, nil
}

func (s *Session) requireOwnerLocked(t target) error {
	if cur := s.pag.CurrentUserID(); cur == "" || cur != t.owner {
		return perr.Forbiddenf("only the author can change post %s", t.id)
	}
	return nil
}

// ToggleLike flips the viewer's like on a post or consolidated card
func (s *Session) ToggleLike(ctx context.Context, postID string) (domain.Ack, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.openLocked(); err != nil {
		return domain.Ack{}, err
	}
	t, err := s.resolveLocked(postID)
	if err != nil {
		return domain.Ack{}, err
	}
	liked, known := s.mgr.State().Overlay.Liked(t.id)
	if !known {
		liked = t.post.Engagement.LikedByCurrentUser
	}
	return s.beginLocked(ctx, mutation.Like{PostID: t.id, On: !liked})
}

// DeletePost deletes a post, or every post behind a consolidated card
func (s *Session) DeletePost(ctx context.Context, postID string) (domain.Ack, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.openLocked(); err != nil {
		return domain.Ack{}, err
	}
	t, err := s.resolveLocked(postID)
	if err != nil {
		return domain.Ack{}, err
	}
	if err := s.requireOwnerLocked(t); err != nil {
		return domain.Ack{}, err
	}
	return s.beginLocked(ctx, mutation.DeletePost{PostID: postID, IDs: t.ids})
}

// Hide drops a post, or a consolidated card, from this session's feed
func (s *Session) Hide(ctx context.Context, postID string) (domain.Ack, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.openLocked(); err != nil {
		return domain.Ack{}, err
	}
	t, err := s.resolveLocked(postID)
	if err != nil {
		return domain.Ack{}, err
	}
	if err := s.requireOwnerLocked(t); err != nil {
		return domain.Ack{}, err
	}
	return s.beginLocked(ctx, mutation.Hide{PostID: postID, IDs: t.ids})
}

// Vote picks an option in the pool of an interactive post
func (s *Session) Vote(ctx context.Context, postID, option string) (domain.Ack, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.openLocked(); err != nil {
		return domain.Ack{}, err
	}
	t, err := s.resolveLocked(postID)
	if err != nil {
		return domain.Ack{}, err
	}
	p := t.post.Poll
	if p == nil {
		return domain.Ack{}, perr.WithField(perr.InvalidArgf("post %s has no vote pool", t.id), "post_id")
	}
	found := false
	for _, o := range p.Options {
		if o.ID == option {
			found = true
			break
		}
	}
	if !found {
		return domain.Ack{}, perr.WithField(perr.InvalidArgf("unknown option %q", option), "option")
	}
	return s.beginLocked(ctx, mutation.Vote{PostID: t.id, PoolID: p.PoolID, Option: option})
}

// Comments fetches the comment list of a post
func (s *Session) Comments(ctx context.Context, postID string) ([]domain.Comment, error) {
	s.mu.Lock()
	if err := s.openLocked(); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	t, err := s.resolveLocked(postID)
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	list, err := s.up.Comments(ctx, t.id)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.log.Warn().Err(err).Str("post_id", t.id).Msg("comment fetch failed")
		return nil, err
	}
	s.mgr.SetComments(t.id, list)
	return s.commentsLocked(t.id), nil
}

// commentsLocked returns a copy of the cached list, optimistic edits included
func (s *Session) commentsLocked(postID string) []domain.Comment {
	return append([]domain.Comment{}, s.mgr.State().Comments[postID]...)
}

// SetDraft stores the comment draft of a post, an empty text clears it
func (s *Session) SetDraft(postID, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.openLocked(); err != nil {
		return err
	}
	t, err := s.resolveLocked(postID)
	if err != nil {
		return err
	}
	s.mgr.SetDraft(t.id, text)
	return nil
}

// Draft returns the stored draft of a post
func (s *Session) Draft(postID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mgr.State().Drafts[postID]
}

// SubmitComment posts content, or the stored draft when content is empty
func (s *Session) SubmitComment(ctx context.Context, postID, content, parentID string) (domain.Ack, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.openLocked(); err != nil {
		return domain.Ack{}, err
	}
	t, err := s.resolveLocked(postID)
	if err != nil {
		return domain.Ack{}, err
	}
	if content == "" {
		content = s.mgr.State().Drafts[t.id]
	}
	content = normalize.CleanContent(content)
	if content == "" {
		return domain.Ack{}, perr.WithField(perr.InvalidArgf("comment is empty"), "content")
	}
	ack, err := s.beginLocked(ctx, mutation.SubmitComment{PostID: t.id, Content: content, ParentID: parentID})
	if err == nil && !ack.Accepted {
		s.mgr.SetDraft(t.id, "")
	}
	return ack, err
}

// DeleteComment deletes one of the viewer's comments from a loaded list
func (s *Session) DeleteComment(ctx context.Context, postID, commentID string) (domain.Ack, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.openLocked(); err != nil {
		return domain.Ack{}, err
	}
	t, err := s.resolveLocked(postID)
	if err != nil {
		return domain.Ack{}, err
	}
	cm, ok := s.findCommentLocked(t.id, commentID)
	if !ok {
		return domain.Ack{}, perr.WithField(perr.NotFoundf("comment %s is not loaded", commentID), "comment_id")
	}
	if cur := s.pag.CurrentUserID(); cur == "" || cm.User.ID != cur {
		return domain.Ack{}, perr.Forbiddenf("only the author can delete comment %s", commentID)
	}
	return s.beginLocked(ctx, mutation.DeleteComment{PostID: t.id, CommentID: commentID})
}

// VoteComment votes on a comment, repeating the current direction clears the vote
func (s *Session) VoteComment(ctx context.Context, commentID string, dir domain.VoteDirection) (domain.Ack, error) {
	if !dir.Valid() {
		return domain.Ack{}, perr.WithField(perr.InvalidArgf("direction must be up or down"), "direction")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.openLocked(); err != nil {
		return domain.Ack{}, err
	}
	return s.beginLocked(ctx, mutation.CommentVote{CommentID: commentID, Direction: dir})
}

func (s *Session) findCommentLocked(postID, commentID string) (domain.Comment, bool) {
	for _, cm := range s.mgr.State().Comments[postID] {
		if cm.ID == commentID {
			return cm, true
		}
	}
	return domain.Comment{}, false
}

func (s *Session) openLocked() error {
	if s.closed {
		return perr.NotFoundf("session %s is closed", s.id)
	}
	return nil
}

// beginLocked applies cmd optimistically and sends it on its own goroutine
// A duplicate of an in-flight command is acknowledged with Accepted=false
func (s *Session) beginLocked(ctx context.Context, cmd mutation.Command) (domain.Ack, error) {
	t, err := s.mgr.Begin(cmd)
	if errors.Is(err, mutation.ErrDuplicate) {
		s.log.Debug().Str("kind", string(cmd.Kind())).Str("target", cmd.Target()).Msg("duplicate mutation ignored")
		return domain.Ack{Accepted: false, Snapshot: s.snapshotLocked(true)}, nil
	}
	if err != nil {
		return domain.Ack{}, err
	}
	s.syncLocked()

	s.sends.Add(1)
	go s.send(context.WithoutCancel(ctx), t, cmd)
	return domain.Ack{Accepted: true, Snapshot: s.snapshotLocked(true)}, nil
}

func (s *Session) send(ctx context.Context, t mutation.Ticket, cmd mutation.Command) {
	defer s.sends.Done()
	ctx, cancel := context.WithTimeout(ctx, s.opt.MutationTimeout)
	defer cancel()

	res, sendErr := cmd.Send(ctx, s.up)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	var (
		out mutation.Outcome
		err error
	)
	if sendErr != nil {
		out, err = s.mgr.Fail(t, res)
	} else {
		out, err = s.mgr.Succeed(t, res)
	}
	if err != nil {
		s.log.Error().Err(err).Str("ticket", t.ID).Msg("settle mutation")
		return
	}
	for _, rb := range out.RolledBack {
		s.log.Info().Err(sendErr).Str("kind", string(rb.Kind)).Str("target", rb.Target).Msg("rolled back mutation")
	}
	if sendErr != nil {
		s.noticeLocked("error", failureMessage(t.Kind))
	}
	s.syncLocked()
}

func failureMessage(k mutation.Kind) string {
	switch k {
	case mutation.KindLike, mutation.KindUnlike:
		return "Could not update your like"
	case mutation.KindCommentSubmit:
		return "Could not post your comment"
	case mutation.KindDeletePost:
		return "Could not delete the post"
	case mutation.KindDeleteComment:
		return "Could not delete the comment"
	case mutation.KindVote, mutation.KindCommentVote:
		return "Could not record your vote"
	}
	return "Something went wrong"
}
