// Package mutation applies optimistic viewer mutations as command objects
//
// Each command applies to a cloned State before the network call and can be
// rolled back against the snapshot taken when it began. Commands sharing a
// lane settle in issue order, whatever order their responses arrive in
package mutation

import (
	"context"

	"feedweave/internal/core/activity"
	perr "feedweave/internal/platform/errors"
	"feedweave/internal/services/feed/domain"

	"github.com/google/uuid"
)

// Kind names a mutation type
type Kind string

const (
	KindLike          Kind = "like"
	KindUnlike        Kind = "unlike"
	KindCommentSubmit Kind = "comment_submit"
	KindDeletePost    Kind = "delete_post"
	KindDeleteComment Kind = "delete_comment"
	KindVote          Kind = "vote"
	KindCommentVote   Kind = "comment_vote"
	KindHide          Kind = "hide"
)

// ErrDuplicate is returned by Begin while the same kind and target is in flight
var ErrDuplicate = perr.New(perr.ErrorCodeConflict, "mutation already in flight")

// Gateway is the slice of the upstream commands send through
type Gateway interface {
	Like(ctx context.Context, postID string) (domain.LikeResult, error)
	Unlike(ctx context.Context, postID string) (domain.LikeResult, error)
	CreateComment(ctx context.Context, in domain.CommentInput) (domain.Comment, error)
	DeleteComment(ctx context.Context, commentID string) error
	DeletePost(ctx context.Context, postID string) error
	Vote(ctx context.Context, poolID, option string) error
	VoteComment(ctx context.Context, commentID string, dir domain.VoteDirection) error
}

// Result is what the server said about a command
type Result struct {
	Likes   int
	Comment *domain.Comment
	// Deleted lists the posts the server removed, also on a failed send
	Deleted []string
}

// Command is one optimistic mutation
type Command interface {
	Kind() Kind
	Target() string
	// Lane groups commands that touch the same state region
	Lane() string
	Apply(State) State
	// Rollback restores the command's region of cur from snapshot
	Rollback(cur, snapshot State) State
	Send(ctx context.Context, gw Gateway) (Result, error)
	Settle(State, Result) State
}

// Partial is implemented by commands whose send can fail after part of it landed
type Partial interface {
	// Landed returns the part the server applied, false when nothing did
	Landed(Result) (Command, bool)
}

// Ticket identifies a begun command
type Ticket struct {
	ID     string
	Seq    uint64
	Kind   Kind
	Target string
	Lane   string
}

func (t Ticket) key() string { return string(t.Kind) + "|" + t.Target }

type status uint8

const (
	pending status = iota
	succeeded
	failed
)

type op struct {
	t      Ticket
	cmd    Command
	snap   State
	status status
	res    Result
}

// Outcome reports what a Succeed or Fail call changed
type Outcome struct {
	RolledBack []Ticket
	Settled    []Ticket
	Waiting    bool // parked behind an earlier pending op of its lane
}

// Manager is not safe for concurrent use, the owning session serializes calls
type Manager struct {
	state    State
	seq      uint64
	lanes    map[string][]*op
	lastOK   map[string]*op
	inflight map[string]*op
	byID     map[string]*op
	newID    func() string
}

// NewManager starts from s
func NewManager(s State) *Manager {
	return &Manager{
		state:    s,
		lanes:    map[string][]*op{},
		lastOK:   map[string]*op{},
		inflight: map[string]*op{},
		byID:     map[string]*op{},
		newID:    func() string { return uuid.NewString() },
	}
}

// State returns the current state, callers must not write through it
func (m *Manager) State() State { return m.state }

// Pending counts begun commands that have not drained
func (m *Manager) Pending() int { return len(m.byID) }

// Busy reports whether kind on target is in flight
func (m *Manager) Busy(kind Kind, target string) bool {
	_, ok := m.inflight[string(kind)+"|"+target]
	return ok
}

// Begin snapshots the state, applies cmd and returns its ticket
func (m *Manager) Begin(cmd Command) (Ticket, error) {
	t := Ticket{Kind: cmd.Kind(), Target: cmd.Target(), Lane: cmd.Lane()}
	if _, busy := m.inflight[t.key()]; busy {
		return Ticket{}, ErrDuplicate
	}
	m.seq++
	t.ID, t.Seq = m.newID(), m.seq
	o := &op{t: t, cmd: cmd, snap: m.state.Clone()}
	m.state = cmd.Apply(m.state.Clone())
	m.lanes[t.Lane] = append(m.lanes[t.Lane], o)
	m.inflight[t.key()] = o
	m.byID[t.ID] = o
	return t, nil
}

// Succeed records the server result for t
func (m *Manager) Succeed(t Ticket, res Result) (Outcome, error) {
	return m.settle(t, succeeded, res)
}

// Fail records a rejected or failed send for t
// res carries whatever part of the send landed before the failure
func (m *Manager) Fail(t Ticket, res Result) (Outcome, error) {
	return m.settle(t, failed, res)
}

func (m *Manager) settle(t Ticket, st status, res Result) (Outcome, error) {
	o, ok := m.byID[t.ID]
	if !ok || o.status != pending {
		return Outcome{}, perr.NotFoundf("mutation %s is not pending", t.ID)
	}
	o.status, o.res = st, res
	if m.inflight[o.t.key()] == o {
		delete(m.inflight, o.t.key())
	}
	return m.drain(o.t.Lane), nil
}

// drain folds settled ops off the head of lane in issue order
// A failed head is rolled back, keeping any part that landed, and the rest of the lane re-applied on top
// Once the lane is empty the last surviving success settles
func (m *Manager) drain(lane string) Outcome {
	var out Outcome
	q := m.lanes[lane]
	for len(q) > 0 && q[0].status != pending {
		head := q[0]
		q = q[1:]
		delete(m.byID, head.t.ID)
		switch head.status {
		case failed:
			m.state = head.cmd.Rollback(m.state.Clone(), head.snap)
			if p, ok := head.cmd.(Partial); ok {
				if landed, ok := p.Landed(head.res); ok {
					m.state = landed.Apply(m.state)
				}
			}
			for _, later := range q {
				later.snap = m.state.Clone()
				m.state = later.cmd.Apply(m.state.Clone())
			}
			out.RolledBack = append(out.RolledBack, head.t)
		case succeeded:
			m.lastOK[lane] = head
		}
	}
	if len(q) > 0 {
		m.lanes[lane] = q
		out.Waiting = true
		return out
	}
	delete(m.lanes, lane)
	if ok := m.lastOK[lane]; ok != nil {
		m.state = ok.cmd.Settle(m.state.Clone(), ok.res)
		out.Settled = append(out.Settled, ok.t)
		delete(m.lastOK, lane)
	}
	return out
}

// SetPages replaces the page cache after a fetch within the same epoch
func (m *Manager) SetPages(pages map[int][]activity.Activity) {
	m.state.Pages = pages
}

// Rebase replaces the page cache with a new generation
// Page snapshots of pending commands no longer apply
func (m *Manager) Rebase(pages map[int][]activity.Activity) {
	m.state.Pages = pages
	m.state.Epoch++
}

// SeedOverlay seeds the overlay from the first fetched page
func (m *Manager) SeedOverlay(items []activity.Activity) bool {
	return m.state.Overlay.Seed(items)
}

// SetComments caches the loaded comment list of a post
func (m *Manager) SetComments(postID string, list []domain.Comment) {
	m.state.Comments[postID] = append([]domain.Comment(nil), list...)
}

// SetDraft stores or clears the comment draft of a post
func (m *Manager) SetDraft(postID, text string) {
	if text == "" {
		delete(m.state.Drafts, postID)
		return
	}
	m.state.Drafts[postID] = text
}
