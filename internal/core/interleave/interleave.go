// Package interleave folds a classified sequence into entries with periodic carousel blocks
package interleave

import (
	"feedweave/internal/core/activity"
)

// Options sets block cadence and size
type Options struct {
	DeckEvery    int // flush a swipe deck after every Nth counted emission
	DeckSize     int
	GlimpseEvery int
	GlimpseSize  int
}

// Defaults returns the stock cadence
func Defaults() Options {
	return Options{DeckEvery: 4, DeckSize: 5, GlimpseEvery: 8, GlimpseSize: 8}
}

func (o Options) withDefaults() Options {
	d := Defaults()
	if o.DeckEvery <= 0 {
		o.DeckEvery = d.DeckEvery
	}
	if o.DeckSize <= 0 {
		o.DeckSize = d.DeckSize
	}
	if o.GlimpseEvery <= 0 {
		o.GlimpseEvery = d.GlimpseEvery
	}
	if o.GlimpseSize <= 0 {
		o.GlimpseSize = d.GlimpseSize
	}
	return o
}

// Routed is one classified item on its way into the fold
type Routed struct {
	Item        activity.Item
	Tier        activity.Tier
	Route       activity.Route
	Highlighted bool
}

// State is the fold accumulator
type State struct {
	Opt         Options
	Emitted     int
	SimpleAdds  []activity.Activity
	RatingPosts []activity.Activity
	Out         []activity.Entry
}

// NewState starts a fold
func NewState(opt Options) State { return State{Opt: opt.withDefaults()} }

// Step consumes one routed item
func Step(s State, r Routed) State {
	switch r.Route {
	case activity.RouteGlimpse:
		s.SimpleAdds = append(s.SimpleAdds, r.Item.Members()...)
		return s
	case activity.RouteDeck:
		s.RatingPosts = append(s.RatingPosts, r.Item.Members()...)
		return s
	}

	s.Out = append(s.Out, entryOf(r))
	if r.Item.Consolidated == nil && r.Tier == activity.Tier3 {
		return s
	}
	s.Emitted++
	if s.Emitted%s.Opt.DeckEvery == 0 && len(s.RatingPosts) > 0 {
		s = flushDeck(s, s.Opt.DeckSize)
	}
	if s.Emitted%s.Opt.GlimpseEvery == 0 && len(s.SimpleAdds) > 0 {
		s = flushGlimpse(s, s.Opt.GlimpseSize)
	}
	return s
}

// Finish flushes what is left into one final block of each type, deck first
func Finish(s State) State {
	if len(s.RatingPosts) > 0 {
		s = flushDeck(s, len(s.RatingPosts))
	}
	if len(s.SimpleAdds) > 0 {
		s = flushGlimpse(s, len(s.SimpleAdds))
	}
	return s
}

// Fold runs Step over seq then Finish
func Fold(seq []Routed, opt Options) []activity.Entry {
	s := NewState(opt)
	for _, r := range seq {
		s = Step(s, r)
	}
	return Finish(s).Out
}

func entryOf(r Routed) activity.Entry {
	if c := r.Item.Consolidated; c != nil {
		return activity.Entry{Kind: activity.EntryConsolidated, Tier: activity.Tier1, Consolidated: c, Highlighted: r.Highlighted}
	}
	return activity.Entry{Kind: activity.EntryActivity, Tier: r.Tier, Activity: r.Item.Activity, Highlighted: r.Highlighted}
}

func take(buf []activity.Activity, n int) (head, rest []activity.Activity) {
	n = min(n, len(buf))
	head = append([]activity.Activity(nil), buf[:n]...)
	rest = append([]activity.Activity(nil), buf[n:]...)
	return head, rest
}

func flushDeck(s State, n int) State {
	var items []activity.Activity
	items, s.RatingPosts = take(s.RatingPosts, n)
	s.Out = append(s.Out, activity.Entry{
		Kind: activity.EntryDeck,
		Deck: &activity.RatingSwipeDeck{ID: activity.DeckID(items[0].ID), Items: items},
	})
	return s
}

func flushGlimpse(s State, n int) State {
	var items []activity.Activity
	items, s.SimpleAdds = take(s.SimpleAdds, n)
	s.Out = append(s.Out, activity.Entry{
		Kind:    activity.EntryGlimpse,
		Glimpse: &activity.SimpleAddGlimpse{ID: activity.GlimpseID(items[0].ID), Items: items},
	})
	return s
}
