// Package dedupe collapses activities that describe the same user and media
package dedupe

import (
	"feedweave/internal/core/activity"
	"feedweave/internal/core/normalize"
)

// Key returns the dedup key of a, empty when a has no media identity
func Key(a activity.Activity) string {
	if ext, ok := a.ExternalKey(); ok {
		return a.User.ID + "|src:" + ext
	}
	if a.Media != nil {
		if t := normalize.FoldTitle(a.Media.Title); t != "" {
			return a.User.ID + "|title:" + t
		}
	}
	return ""
}

// Richness scores how much a user wrote: a rating beats text beats a bare add
func Richness(a activity.Activity) int {
	score := 0
	if a.Rating > 0 {
		score += 100
	}
	if n := normalize.FreeTextLen(a.Content); n > 0 {
		score += 50 + n
	}
	return score
}

// Run keeps one activity per key
// A strictly richer record replaces the holder, ties keep the earlier one,
// and the survivor takes the slot of the key's first occurrence
// The pinned id, when set, always survives its group
func Run(items []activity.Activity, pinned string) []activity.Activity {
	out := make([]activity.Activity, 0, len(items))
	slot := make(map[string]int, len(items))
	for _, a := range items {
		k := Key(a)
		if k == "" {
			out = append(out, a)
			continue
		}
		i, ok := slot[k]
		if !ok {
			slot[k] = len(out)
			out = append(out, a)
			continue
		}
		if replaces(a, out[i], pinned) {
			out[i] = a
		}
	}
	return out
}

func replaces(cand, holder activity.Activity, pinned string) bool {
	if pinned != "" {
		if holder.ID == pinned {
			return false
		}
		if cand.ID == pinned {
			return true
		}
	}
	return Richness(cand) > Richness(holder)
}
