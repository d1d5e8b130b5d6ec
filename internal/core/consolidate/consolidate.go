// Package consolidate merges bursts of same-user same-kind activity into one card
package consolidate

import (
	"slices"
	"time"

	"feedweave/internal/core/activity"
)

// DefaultWindow is the span a consolidation window may cover from its anchor
const DefaultWindow = 24 * time.Hour

// Options tunes a consolidation pass
type Options struct {
	Window time.Duration
	Pinned string // highlighted id, never merged
}

// Eligible reports whether a may join a consolidation window
// Only ratings and finishes merge, list adds never do
func Eligible(a activity.Activity, pinned string) bool {
	if pinned != "" && a.ID == pinned {
		return false
	}
	return a.Kind == activity.KindRating || a.Kind == activity.KindFinished
}

type groupKey struct {
	user string
	kind activity.Kind
}

// Run sweeps each (user, kind) group newest first and merges windows of two or more
// Output keeps input order and a merged card sits at its earliest-positioned member
func Run(items []activity.Activity, opt Options) []activity.Item {
	window := opt.Window
	if window <= 0 {
		window = DefaultWindow
	}

	var order []groupKey
	groups := map[groupKey][]int{}
	for i, a := range items {
		if !Eligible(a, opt.Pinned) {
			continue
		}
		k := groupKey{a.User.ID, a.Kind}
		if _, ok := groups[k]; !ok {
			order = append(order, k)
		}
		groups[k] = append(groups[k], i)
	}

	head := map[int]activity.ConsolidatedActivity{}
	consumed := map[int]bool{}
	for _, k := range order {
		for _, w := range windows(items, groups[k], window) {
			if len(w) < 2 {
				continue
			}
			c := merge(items, w)
			first := slices.Min(w)
			head[first] = c
			for _, i := range w {
				consumed[i] = true
			}
		}
	}

	out := make([]activity.Item, 0, len(items))
	for i, a := range items {
		if c, ok := head[i]; ok {
			out = append(out, activity.Merged(c))
			continue
		}
		if consumed[i] {
			continue
		}
		out = append(out, activity.Single(a))
	}
	return out
}

// windows sorts idx newest first and splits it greedily
// An item joins while anchor - ts <= window, the first item outside anchors the next window
func windows(items []activity.Activity, idx []int, window time.Duration) [][]int {
	sorted := slices.Clone(idx)
	slices.SortStableFunc(sorted, func(a, b int) int {
		return items[b].Timestamp.Compare(items[a].Timestamp)
	})

	var out [][]int
	var cur []int
	var anchor time.Time
	for _, i := range sorted {
		ts := items[i].Timestamp
		if cur != nil && anchor.Sub(ts) <= window {
			cur = append(cur, i)
			continue
		}
		if cur != nil {
			out = append(out, cur)
		}
		cur = []int{i}
		anchor = ts
	}
	if cur != nil {
		out = append(out, cur)
	}
	return out
}

// merge builds the consolidated card for one window given newest first
func merge(items []activity.Activity, w []int) activity.ConsolidatedActivity {
	anchor := items[w[0]]
	kind, _ := activity.ConsolidatedKindOf(anchor.Kind)
	c := activity.ConsolidatedActivity{
		ID:        activity.ConsolidatedID(anchor.User.ID, kind, anchor.Timestamp),
		User:      anchor.User,
		Kind:      kind,
		Timestamp: anchor.Timestamp,
	}
	seen := map[string]bool{}
	for _, i := range w {
		a := items[i]
		c.OriginalActivityIDs = append(c.OriginalActivityIDs, a.ID)
		c.Likes += a.Engagement.Likes
		c.Comments += a.Engagement.Comments
		if ext, ok := a.ExternalKey(); ok {
			if seen[ext] {
				continue
			}
			seen[ext] = true
		}
		c.Items = append(c.Items, a)
	}
	return c
}
