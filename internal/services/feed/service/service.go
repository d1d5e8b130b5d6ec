// Package service keeps the open feed sessions and implements the feed ports
package service

import (
	"context"
	"sync"
	"time"

	"feedweave/internal/core/compose"
	perr "feedweave/internal/platform/errors"
	"feedweave/internal/platform/logger"
	pnet "feedweave/internal/platform/net"
	"feedweave/internal/services/feed/domain"
	"feedweave/internal/services/feed/session"

	"github.com/google/uuid"
)

// Config controls sessions opened by the service
type Config struct {
	PageSize        int
	MaxInFlight     int
	Policy          compose.Policy
	MutationTimeout time.Duration
	SessionTTL      time.Duration
}

// Option customizes a Svc
type Option func(*Svc)

// WithClock replaces time.Now for idle tracking
func WithClock(now func() time.Time) Option { return func(s *Svc) { s.now = now } }

// WithIDs replaces the session id generator
func WithIDs(gen func() string) Option { return func(s *Svc) { s.newID = gen } }

// WithLogger sets the service logger
func WithLogger(l *logger.Logger) Option { return func(s *Svc) { s.log = l } }

type entry struct {
	s    *session.Session
	seen time.Time
}

// Svc is the session registry
type Svc struct {
	up    domain.Upstream
	pub   domain.Publisher
	cfg   Config
	log   *logger.Logger
	now   func() time.Time
	newID func() string

	mu       sync.Mutex
	sessions map[string]*entry
}

var _ domain.ServicePort = (*Svc)(nil)

// New constructs the service, pub may be nil
func New(up domain.Upstream, pub domain.Publisher, cfg Config, opts ...Option) *Svc {
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 30 * time.Minute
	}
	s := &Svc{
		up:       up,
		pub:      pub,
		cfg:      cfg,
		log:      logger.Nop(),
		now:      time.Now,
		newID:    uuid.NewString,
		sessions: map[string]*entry{},
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Open starts a session for the viewer on ctx and loads its first page
func (s *Svc) Open(ctx context.Context, in domain.OpenInput) (domain.Snapshot, error) {
	owner := pnet.UserID(ctx)
	if owner == "" {
		return domain.Snapshot{}, perr.Unauthorizedf("no viewer on request")
	}
	opt := session.Options{
		PageSize:        s.cfg.PageSize,
		MaxInFlight:     s.cfg.MaxInFlight,
		Policy:          s.cfg.Policy,
		MutationTimeout: s.cfg.MutationTimeout,
		Now:             s.now,
		Log:             s.log,
	}
	if in.PageSize > 0 {
		opt.PageSize = in.PageSize
	}
	sid := s.newID()
	sess := session.New(sid, owner, in.Filter, s.up, s.pub, opt)

	s.mu.Lock()
	s.sessions[sid] = &entry{s: sess, seen: s.now()}
	n := len(s.sessions)
	s.mu.Unlock()
	s.log.Info().Str("session_id", sid).Str("user_id", owner).Int("open", n).Msg("feed session opened")

	snap, err := sess.LoadMore(ctx)
	if err != nil {
		return domain.Snapshot{}, err
	}
	if in.HighlightPostID == "" {
		return snap, nil
	}
	snap, err = sess.Highlight(ctx, in.HighlightPostID)
	if err != nil {
		s.log.Warn().Err(err).Str("session_id", sid).Str("post_id", in.HighlightPostID).Msg("highlight on open")
		sess.Notify("warn", "The linked post is no longer available")
		return sess.Snapshot(), nil
	}
	return snap, nil
}

// get returns the session sid when the viewer on ctx owns it
func (s *Svc) get(ctx context.Context, sid string) (*session.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.sessions[sid]
	if !ok || e.s.Owner() != pnet.UserID(ctx) {
		return nil, perr.WithField(perr.NotFoundf("session %s not found", sid), "session_id")
	}
	e.seen = s.now()
	return e.s, nil
}

// Session returns the live session sid for the viewer on ctx
func (s *Svc) Session(ctx context.Context, sid string) (*session.Session, error) {
	return s.get(ctx, sid)
}

// Snapshot returns the composed feed of sid
func (s *Svc) Snapshot(ctx context.Context, sid string) (domain.Snapshot, error) {
	sess, err := s.get(ctx, sid)
	if err != nil {
		return domain.Snapshot{}, err
	}
	return sess.Snapshot(), nil
}

// End closes sid and forgets its overlay
func (s *Svc) End(ctx context.Context, sid string) error {
	sess, err := s.get(ctx, sid)
	if err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.sessions, sid)
	s.mu.Unlock()
	sess.Close()
	return nil
}

// More loads the next page of sid
func (s *Svc) More(ctx context.Context, sid string) (domain.Snapshot, error) {
	sess, err := s.get(ctx, sid)
	if err != nil {
		return domain.Snapshot{}, err
	}
	return sess.LoadMore(ctx)
}

// SetFilter resets sid to a new filter
func (s *Svc) SetFilter(ctx context.Context, sid string, in domain.FilterInput) (domain.Snapshot, error) {
	sess, err := s.get(ctx, sid)
	if err != nil {
		return domain.Snapshot{}, err
	}
	return sess.SetFilter(ctx, in.Filter)
}

// Highlight pins a deep-linked post in sid
func (s *Svc) Highlight(ctx context.Context, sid string, in domain.HighlightInput) (domain.Snapshot, error) {
	sess, err := s.get(ctx, sid)
	if err != nil {
		return domain.Snapshot{}, err
	}
	return sess.Highlight(ctx, in.PostID)
}

// ToggleLike flips the viewer's like on postID
func (s *Svc) ToggleLike(ctx context.Context, sid, postID string) (domain.Ack, error) {
	sess, err := s.get(ctx, sid)
	if err != nil {
		return domain.Ack{}, err
	}
	return sess.ToggleLike(ctx, postID)
}

// DeletePost deletes one of the viewer's posts
func (s *Svc) DeletePost(ctx context.Context, sid, postID string) (domain.Ack, error) {
	sess, err := s.get(ctx, sid)
	if err != nil {
		return domain.Ack{}, err
	}
	return sess.DeletePost(ctx, postID)
}

// Hide drops one of the viewer's posts from sid
func (s *Svc) Hide(ctx context.Context, sid, postID string) (domain.Ack, error) {
	sess, err := s.get(ctx, sid)
	if err != nil {
		return domain.Ack{}, err
	}
	return sess.Hide(ctx, postID)
}

// Comments fetches the comments of postID
func (s *Svc) Comments(ctx context.Context, sid, postID string) ([]domain.Comment, error) {
	sess, err := s.get(ctx, sid)
	if err != nil {
		return nil, err
	}
	return sess.Comments(ctx, postID)
}

// SetDraft stores the comment draft of postID
func (s *Svc) SetDraft(ctx context.Context, sid, postID string, in domain.DraftInput) error {
	sess, err := s.get(ctx, sid)
	if err != nil {
		return err
	}
	return sess.SetDraft(postID, in.Content)
}

// SubmitComment posts a comment on postID
func (s *Svc) SubmitComment(ctx context.Context, sid, postID string, in domain.CommentSubmitInput) (domain.Ack, error) {
	sess, err := s.get(ctx, sid)
	if err != nil {
		return domain.Ack{}, err
	}
	return sess.SubmitComment(ctx, postID, in.Content, in.ParentID)
}

// DeleteComment deletes one of the viewer's comments
func (s *Svc) DeleteComment(ctx context.Context, sid, postID, commentID string) (domain.Ack, error) {
	sess, err := s.get(ctx, sid)
	if err != nil {
		return domain.Ack{}, err
	}
	return sess.DeleteComment(ctx, postID, commentID)
}

// VoteComment votes on a comment
func (s *Svc) VoteComment(ctx context.Context, sid, commentID string, in domain.CommentVoteInput) (domain.Ack, error) {
	sess, err := s.get(ctx, sid)
	if err != nil {
		return domain.Ack{}, err
	}
	return sess.VoteComment(ctx, commentID, in.Direction)
}

// Vote votes in the pool of postID
func (s *Svc) Vote(ctx context.Context, sid, postID string, in domain.VoteInput) (domain.Ack, error) {
	sess, err := s.get(ctx, sid)
	if err != nil {
		return domain.Ack{}, err
	}
	return sess.Vote(ctx, postID, in.Option)
}

// Len counts open sessions
func (s *Svc) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Sweep closes sessions idle for longer than the TTL and returns how many
func (s *Svc) Sweep() int {
	cutoff := s.now().Add(-s.cfg.SessionTTL)
	var idle []*session.Session
	s.mu.Lock()
	for id, e := range s.sessions {
		if e.seen.Before(cutoff) {
			idle = append(idle, e.s)
			delete(s.sessions, id)
		}
	}
	s.mu.Unlock()
	for _, sess := range idle {
		sess.Close()
	}
	if len(idle) > 0 {
		s.log.Info().Int("closed", len(idle)).Msg("swept idle feed sessions")
	}
	return len(idle)
}

// Run sweeps on every tick until ctx is done, then closes every session
func (s *Svc) Run(ctx context.Context, every time.Duration) {
	if every <= 0 {
		every = s.cfg.SessionTTL / 4
	}
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			s.closeAll()
			return
		case <-t.C:
			s.Sweep()
		}
	}
}

func (s *Svc) closeAll() {
	s.mu.Lock()
	all := s.sessions
	s.sessions = map[string]*entry{}
	s.mu.Unlock()
	for _, e := range all {
		e.s.Close()
	}
}
