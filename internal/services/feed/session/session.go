// Package session binds one viewer's paginator, overlay and mutation manager
//
// State transitions happen under the session mutex. Upstream calls never do,
// so a slow fetch or mutation send cannot block a read of the composed feed
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"feedweave/internal/core/activity"
	"feedweave/internal/core/compose"
	"feedweave/internal/core/normalize"
	perr "feedweave/internal/platform/errors"
	"feedweave/internal/platform/logger"
	"feedweave/internal/services/feed/domain"
	"feedweave/internal/services/feed/mutation"
	"feedweave/internal/services/feed/paginate"
)

// Options tunes a session
type Options struct {
	PageSize        int
	MaxInFlight     int
	Policy          compose.Policy
	MutationTimeout time.Duration
	Now             func() time.Time
	Log             *logger.Logger
}

func (o Options) withDefaults() Options {
	if o.MutationTimeout <= 0 {
		o.MutationTimeout = 10 * time.Second
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.Log == nil {
		o.Log = logger.Nop()
	}
	if o.Policy.Deck == "" {
		o.Policy = compose.DefaultPolicy()
	}
	return o
}

// Session is one open feed
type Session struct {
	id    string
	owner string
	up    domain.Upstream
	pub   domain.Publisher
	opt   Options
	log   *logger.Logger

	mu      sync.Mutex
	pag     *paginate.Paginator
	mgr     *mutation.Manager
	feed    compose.Feed
	version uint64
	notices []domain.Notice
	closed  bool

	sends sync.WaitGroup
}

// New returns an empty session for owner reading from up
// pub may be nil when nobody streams
func New(id, owner, filter string, up domain.Upstream, pub domain.Publisher, opt Options) *Session {
	opt = opt.withDefaults()
	l := opt.Log.With().Str("session_id", id).Logger()
	s := &Session{
		id:    id,
		owner: owner,
		up:    up,
		pub:   pub,
		opt:   opt,
		log:   &l,
		pag:   paginate.New(paginate.Options{PageSize: opt.PageSize, MaxInFlight: opt.MaxInFlight}),
		mgr:   mutation.NewManager(mutation.NewState()),
	}
	s.pag.Reset(filter)
	s.mgr.Rebase(s.pag.Pages())
	s.recomposeLocked()
	return s
}

// ID returns the session id
func (s *Session) ID() string { return s.id }

// Owner returns the user that opened the session
func (s *Session) Owner() string { return s.owner }

// Snapshot returns the composed feed and drains pending notices
func (s *Session) Snapshot() domain.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked(true)
}

// LoadMore fetches the next page
// A failed fetch leaves the feed as it was and queues a notice
func (s *Session) LoadMore(ctx context.Context) (domain.Snapshot, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return domain.Snapshot{}, perr.NotFoundf("session %s is closed", s.id)
	}
	req, ok := s.pag.Begin()
	if !ok {
		defer s.mu.Unlock()
		return s.snapshotLocked(true), nil
	}
	s.mu.Unlock()

	page, err := s.up.Feed(ctx, domain.FeedQuery{Limit: req.Limit, Offset: req.Offset, Filter: req.Filter})

	var items []activity.Activity
	if err == nil {
		var dropped []normalize.Dropped
		items, dropped = normalize.Page(page.Posts)
		for _, d := range dropped {
			s.log.Warn().Err(d.Err).Str("post_id", d.ID).Str("field", fieldOf(d.Err)).Msg("dropped malformed record")
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return domain.Snapshot{}, perr.NotFoundf("session %s is closed", s.id)
	}
	res := s.pag.Complete(req, paginate.Page{Items: items, Received: len(page.Posts), CurrentUserID: page.CurrentUserID}, err)
	switch {
	case res.Stale:
		s.log.Debug().Int("page", req.Index).Uint64("gen", req.Gen).Msg("discarded stale page")
		return s.snapshotLocked(true), nil
	case err != nil:
		s.log.Warn().Err(err).Int("page", req.Index).Msg("page fetch failed")
		s.noticeLocked("warn", "Could not load more posts")
		return s.snapshotLocked(true), nil
	}
	if res.First {
		s.mgr.SeedOverlay(items)
	}
	s.mgr.SetPages(s.pag.Pages())
	s.syncLocked()
	return s.snapshotLocked(true), nil
}

// SetFilter starts a new generation and loads its first page
func (s *Session) SetFilter(ctx context.Context, filter string) (domain.Snapshot, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return domain.Snapshot{}, perr.NotFoundf("session %s is closed", s.id)
	}
	if filter == s.pag.Filter() && s.pag.Contiguous() > 0 {
		defer s.mu.Unlock()
		return s.snapshotLocked(true), nil
	}
	s.pag.Reset(filter)
	s.mgr.Rebase(s.pag.Pages())
	s.syncLocked()
	s.mu.Unlock()
	return s.LoadMore(ctx)
}

// Highlight pins a deep-linked post, fetching it when no page holds it
func (s *Session) Highlight(ctx context.Context, postID string) (domain.Snapshot, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return domain.Snapshot{}, perr.NotFoundf("session %s is closed", s.id)
	}
	if a, ok := s.pag.Find(postID); ok {
		defer s.mu.Unlock()
		s.pag.SetHighlight(&a)
		s.mgr.SetPages(s.pag.Pages())
		s.syncLocked()
		return s.snapshotLocked(true), nil
	}
	s.mu.Unlock()

	raw, err := s.up.Post(ctx, postID)
	var a activity.Activity
	if err == nil {
		a, err = normalize.Post(raw)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		if perr.Transient(err) {
			s.log.Warn().Err(err).Str("post_id", postID).Msg("highlight fetch failed")
			s.noticeLocked("warn", "Could not load the linked post")
			return s.snapshotLocked(true), nil
		}
		return domain.Snapshot{}, err
	}
	s.pag.SetHighlight(&a)
	s.mgr.SetPages(s.pag.Pages())
	s.syncLocked()
	return s.snapshotLocked(true), nil
}

// Notify queues a notice for the next read
func (s *Session) Notify(level, msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.noticeLocked(level, msg)
}

// Close ends the session, in-flight sends are ignored when they return
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()
	if s.pub != nil {
		s.pub.Close(s.id)
	}
}

// Closed reports whether Close ran
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Wait blocks until every in-flight mutation send has reported back
func (s *Session) Wait() { s.sends.Wait() }

// syncLocked pushes the manager's pages into the paginator, recomposes and publishes
func (s *Session) syncLocked() {
	s.pag.Patch(s.mgr.State().Pages)
	s.recomposeLocked()
	if s.pub != nil {
		s.pub.Publish(s.snapshotLocked(false))
	}
}

func (s *Session) recomposeLocked() {
	st := s.mgr.State()
	s.feed = compose.Run(compose.Input{
		Items:         s.pag.Items(),
		Highlight:     s.pag.Highlight(),
		Overlay:       st.Overlay,
		Policy:        s.opt.Policy,
		CurrentUserID: s.pag.CurrentUserID(),
	})
	s.version++
}

func (s *Session) snapshotLocked(drain bool) domain.Snapshot {
	snap := domain.Snapshot{
		SessionID:     s.id,
		CurrentUserID: s.pag.CurrentUserID(),
		Filter:        s.pag.Filter(),
		Exhausted:     s.pag.Exhausted(),
		Version:       s.version,
		Feed:          s.feed,
		Pending:       s.mgr.Pending(),
	}
	if h := s.pag.Highlight(); h != nil {
		snap.Highlight = h.ID
	}
	if len(s.notices) > 0 {
		snap.Notices = append([]domain.Notice(nil), s.notices...)
		if drain {
			s.notices = nil
		}
	}
	return snap
}

func (s *Session) noticeLocked(level, msg string) {
	s.notices = append(s.notices, domain.Notice{Level: level, Message: msg, At: s.opt.Now().UTC()})
}

func fieldOf(err error) string {
	var pe *perr.Error
	if errors.As(err, &pe) {
		return pe.Field()
	}
	return ""
}
