package mutation

import (
	"maps"
	"slices"

	"feedweave/internal/core/activity"
	"feedweave/internal/services/feed/domain"
	"feedweave/internal/services/feed/overlay"
)

// State is everything a command may touch
// Epoch moves when the page cache is replaced wholesale, page rollbacks only apply within one epoch
type State struct {
	Pages    map[int][]activity.Activity
	Overlay  overlay.State
	Comments map[string][]domain.Comment
	Drafts   map[string]string
	Epoch    uint64
}

// NewState returns an empty state
func NewState() State {
	return State{
		Pages:    map[int][]activity.Activity{},
		Overlay:  overlay.New(),
		Comments: map[string][]domain.Comment{},
		Drafts:   map[string]string{},
	}
}

// Clone returns a deep copy
func (s State) Clone() State {
	out := State{
		Pages:    make(map[int][]activity.Activity, len(s.Pages)),
		Overlay:  s.Overlay.Clone(),
		Comments: make(map[string][]domain.Comment, len(s.Comments)),
		Drafts:   maps.Clone(s.Drafts),
		Epoch:    s.Epoch,
	}
	for k, v := range s.Pages {
		out.Pages[k] = clonePage(v)
	}
	for k, v := range s.Comments {
		out.Comments[k] = slices.Clone(v)
	}
	if out.Drafts == nil {
		out.Drafts = map[string]string{}
	}
	return out
}

func clonePage(p []activity.Activity) []activity.Activity {
	if p == nil {
		return nil
	}
	out := make([]activity.Activity, len(p))
	for i, a := range p {
		out[i] = a.Clone()
	}
	return out
}

// eachPost calls fn on every cached copy of id
func (s State) eachPost(id string, fn func(*activity.Activity)) {
	for _, page := range s.Pages {
		for i := range page {
			if page[i].ID == id {
				fn(&page[i])
			}
		}
	}
}

// findPost returns the first cached copy of id
func (s State) findPost(id string) (activity.Activity, bool) {
	var (
		out   activity.Activity
		found bool
	)
	s.eachPost(id, func(a *activity.Activity) {
		if !found {
			out, found = *a, true
		}
	})
	return out, found
}

// restorePost copies the fields fn selects from snap's copy of id onto every cached copy
func restorePost(cur, snap State, id string, fn func(dst *activity.Activity, src activity.Activity)) {
	if cur.Epoch != snap.Epoch {
		return
	}
	src, ok := snap.findPost(id)
	if !ok {
		return
	}
	cur.eachPost(id, func(a *activity.Activity) { fn(a, src) })
}

// likedNow resolves the effective like on id, overlay first then the record flag
func (s State) likedNow(id string) bool {
	if v, ok := s.Overlay.Liked(id); ok {
		return v
	}
	a, _ := s.findPost(id)
	return a.Engagement.LikedByCurrentUser
}
