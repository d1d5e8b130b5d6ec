// Package overlay holds the session-scoped viewer state layered over fetched pages
//
// The composition pipeline reads it through compose.Overlay; only the mutation
// manager writes it
package overlay

import (
	"maps"

	"feedweave/internal/core/activity"
	"feedweave/internal/services/feed/domain"
)

// State is a value type, Clone before handing it to a writer
type State struct {
	liked        map[string]bool
	commentVotes map[string]domain.VoteDirection
	hidden       map[string]bool
	pollVotes    map[string]string
	seeded       bool
}

// New returns an empty overlay
func New() State {
	return State{
		liked:        map[string]bool{},
		commentVotes: map[string]domain.VoteDirection{},
		hidden:       map[string]bool{},
		pollVotes:    map[string]string{},
	}
}

// Clone returns a deep copy
func (s State) Clone() State {
	return State{
		liked:        maps.Clone(s.liked),
		commentVotes: maps.Clone(s.commentVotes),
		hidden:       maps.Clone(s.hidden),
		pollVotes:    maps.Clone(s.pollVotes),
		seeded:       s.seeded,
	}
}

// Seeded reports whether Seed already ran
func (s State) Seeded() bool { return s.seeded }

// Seed records the like flags and poll votes of the first fetched page, once
func (s *State) Seed(items []activity.Activity) bool {
	if s.seeded {
		return false
	}
	s.ensure()
	for _, a := range items {
		s.liked[a.ID] = a.Engagement.LikedByCurrentUser
		if a.Poll != nil && a.Poll.UserVote != "" {
			s.pollVotes[a.Poll.PoolID] = a.Poll.UserVote
		}
	}
	s.seeded = true
	return true
}

func (s *State) ensure() {
	if s.liked == nil {
		*s = New()
	}
}

// Liked reports the viewer's like on postID, known=false when the overlay has no opinion
func (s State) Liked(postID string) (liked, known bool) {
	liked, known = s.liked[postID]
	return liked, known
}

// Hidden reports whether id was hidden this session
func (s State) Hidden(id string) bool { return s.hidden[id] }

// PollVote returns the viewer's option in poolID
func (s State) PollVote(poolID string) (string, bool) {
	v, ok := s.pollVotes[poolID]
	return v, ok
}

// CommentVote returns the viewer's vote on a comment
func (s State) CommentVote(commentID string) (domain.VoteDirection, bool) {
	v, ok := s.commentVotes[commentID]
	return v, ok
}

// LikedIDs returns the ids the viewer likes, for diagnostics
func (s State) LikedIDs() []string {
	var out []string
	for id, v := range s.liked {
		if v {
			out = append(out, id)
		}
	}
	return out
}

// SetLiked records an explicit like or unlike
func (s *State) SetLiked(postID string, v bool) { s.ensure(); s.liked[postID] = v }

// ForgetLiked drops the opinion on postID
func (s *State) ForgetLiked(postID string) { delete(s.liked, postID) }

// Hide adds id to the hidden set
func (s *State) Hide(id string) { s.ensure(); s.hidden[id] = true }

// Unhide removes id from the hidden set
func (s *State) Unhide(id string) { delete(s.hidden, id) }

// SetPollVote records the viewer's option
func (s *State) SetPollVote(poolID, option string) { s.ensure(); s.pollVotes[poolID] = option }

// ForgetPollVote drops the vote in poolID
func (s *State) ForgetPollVote(poolID string) { delete(s.pollVotes, poolID) }

// SetCommentVote records a comment vote
func (s *State) SetCommentVote(commentID string, d domain.VoteDirection) {
	s.ensure()
	s.commentVotes[commentID] = d
}

// ForgetCommentVote drops the vote on commentID
func (s *State) ForgetCommentVote(commentID string) { delete(s.commentVotes, commentID) }

// RestoreLiked copies the opinion on postID from snap, presence included
func (s *State) RestoreLiked(postID string, snap State) {
	if v, ok := snap.liked[postID]; ok {
		s.SetLiked(postID, v)
		return
	}
	s.ForgetLiked(postID)
}

// RestoreHidden copies the hidden flag of id from snap
func (s *State) RestoreHidden(id string, snap State) {
	if snap.hidden[id] {
		s.Hide(id)
		return
	}
	s.Unhide(id)
}

// RestorePollVote copies the vote in poolID from snap
func (s *State) RestorePollVote(poolID string, snap State) {
	if v, ok := snap.pollVotes[poolID]; ok {
		s.SetPollVote(poolID, v)
		return
	}
	s.ForgetPollVote(poolID)
}

// RestoreCommentVote copies the vote on commentID from snap
func (s *State) RestoreCommentVote(commentID string, snap State) {
	if v, ok := snap.commentVotes[commentID]; ok {
		s.SetCommentVote(commentID, v)
		return
	}
	s.ForgetCommentVote(commentID)
}
