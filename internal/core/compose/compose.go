// Package compose runs the feed pipeline from a merged page buffer to ordered entries
//
// Steps run synchronously in this order
//  1. inject the highlighted activity
//  2. drop hidden ids
//  3. project overlay likes and poll votes onto copies
//  4. dedupe
//  5. consolidate
//  6. classify and route
//  7. interleave
package compose

import (
	"time"

	"feedweave/internal/core/activity"
	"feedweave/internal/core/consolidate"
	"feedweave/internal/core/dedupe"
	"feedweave/internal/core/interleave"
	"feedweave/internal/core/normalize"
	"feedweave/internal/core/tier"
)

// DeckPolicy decides which standalone activities fold into swipe decks
type DeckPolicy string

const (
	DeckTier2       DeckPolicy = "tier2"
	DeckBareRatings DeckPolicy = "bare_ratings"
	DeckNone        DeckPolicy = "none"
)

// DeckPolicies lists the accepted policy names
func DeckPolicies() []string {
	return []string{string(DeckTier2), string(DeckBareRatings), string(DeckNone)}
}

// Policy carries every tunable of a pass
type Policy struct {
	Deck             DeckPolicy
	Window           time.Duration
	MeaningfulMinLen int
	Interleave       interleave.Options
}

// DefaultPolicy returns the stock tunables
func DefaultPolicy() Policy {
	return Policy{
		Deck:             DeckTier2,
		Window:           consolidate.DefaultWindow,
		MeaningfulMinLen: normalize.DefaultMeaningfulMinLen,
		Interleave:       interleave.Defaults(),
	}
}

// Overlay is the read side of the session overlay
// known=false means the overlay holds no opinion and the record's own flag stands
type Overlay interface {
	Liked(postID string) (liked, known bool)
	Hidden(id string) bool
	PollVote(poolID string) (option string, known bool)
}

// Input is everything one pass reads
type Input struct {
	Items         []activity.Activity
	Highlight     *activity.Activity
	Overlay       Overlay
	Policy        Policy
	CurrentUserID string
}

// Stats counts what a pass did
type Stats struct {
	Input        int `json:"input"`
	Dropped      int `json:"dropped"`
	Hidden       int `json:"hidden"`
	Standalone   int `json:"standalone"`
	Consolidated int `json:"consolidated"`
	Glimpses     int `json:"glimpses"`
	Decks        int `json:"decks"`
}

// Feed is the composed sequence
type Feed struct {
	Entries []activity.Entry `json:"entries"`
	Stats   Stats            `json:"stats"`
}

// Run composes in into a feed; identical input yields identical output
func Run(in Input) Feed {
	items, pinned := withHighlight(in.Items, in.Highlight)
	var st Stats
	st.Input = len(items)

	visible := make([]activity.Activity, 0, len(items))
	for _, a := range items {
		if in.Overlay != nil && in.Overlay.Hidden(a.ID) {
			st.Hidden++
			if a.ID == pinned {
				pinned = ""
			}
			continue
		}
		visible = append(visible, project(a, in.Overlay))
	}

	deduped := dedupe.Run(visible, pinned)
	st.Dropped = len(visible) - len(deduped)

	merged := consolidate.Run(deduped, consolidate.Options{Window: in.Policy.Window, Pinned: pinned})

	seq := make([]interleave.Routed, 0, len(merged))
	for _, it := range merged {
		seq = append(seq, route(it, pinned, in.Policy))
	}

	out := interleave.Fold(seq, in.Policy.Interleave)
	for i, e := range out {
		switch e.Kind {
		case activity.EntryActivity:
			st.Standalone++
			out[i].Own = in.CurrentUserID != "" && e.Activity.User.ID == in.CurrentUserID
		case activity.EntryConsolidated:
			st.Consolidated++
			out[i].Own = in.CurrentUserID != "" && e.Consolidated.User.ID == in.CurrentUserID
		case activity.EntryGlimpse:
			st.Glimpses++
		case activity.EntryDeck:
			st.Decks++
		}
	}
	return Feed{Entries: out, Stats: st}
}

// withHighlight prepends h when absent and returns the pinned id
func withHighlight(items []activity.Activity, h *activity.Activity) ([]activity.Activity, string) {
	if h == nil || h.ID == "" {
		return items, ""
	}
	for _, a := range items {
		if a.ID == h.ID {
			return items, h.ID
		}
	}
	out := make([]activity.Activity, 0, len(items)+1)
	out = append(out, *h)
	return append(out, items...), h.ID
}

// project copies a and applies the overlay view
func project(a activity.Activity, ov Overlay) activity.Activity {
	cp := a.Clone()
	if ov == nil {
		return cp
	}
	if liked, ok := ov.Liked(cp.ID); ok {
		cp.Engagement.LikedByCurrentUser = liked
	}
	if cp.Poll != nil {
		if opt, ok := ov.PollVote(cp.Poll.PoolID); ok {
			cp.Poll.UserVote = opt
		}
	}
	return cp
}

func route(it activity.Item, pinned string, p Policy) interleave.Routed {
	t, r := tier.Classify(it, tier.Options{MeaningfulMinLen: p.MeaningfulMinLen})
	rt := interleave.Routed{Item: it, Tier: t, Route: r}
	a := it.Activity
	if a == nil {
		return rt
	}
	if pinned != "" && a.ID == pinned {
		rt.Highlighted = true
		rt.Route = activity.RouteStandalone
		if rt.Tier == activity.TierNone {
			rt.Tier = activity.Tier1
		}
		return rt
	}
	if rt.Route == activity.RouteStandalone && foldsIntoDeck(*a, t, p) {
		rt.Route = activity.RouteDeck
	}
	return rt
}

func foldsIntoDeck(a activity.Activity, t activity.Tier, p Policy) bool {
	switch p.Deck {
	case DeckNone:
		return false
	case DeckBareRatings:
		if t == activity.Tier1 && a.Rating > 0 && !a.Kind.Interactive() && a.DistinctParticipants() < 2 &&
			normalize.FreeTextLen(a.Content) <= minLen(p) {
			return true
		}
	}
	return t == activity.Tier2 && normalize.HasMeaningfulContent(a, minLen(p))
}

func minLen(p Policy) int {
	if p.MeaningfulMinLen <= 0 {
		return normalize.DefaultMeaningfulMinLen
	}
	return p.MeaningfulMinLen
}
