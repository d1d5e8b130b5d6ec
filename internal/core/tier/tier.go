// Package tier assigns each composed item its rendering priority
package tier

import (
	"feedweave/internal/core/activity"
	"feedweave/internal/core/normalize"
)

const (
	longTextLen  = 100
	shortTextLen = 50
)

// Options tunes classification
type Options struct {
	MeaningfulMinLen int // list add free text threshold, see normalize.HasMeaningfulContent
}

// Classify returns the tier and route of an item, rules apply in priority order
// A list add without meaningful content gets TierNone and RouteGlimpse
func Classify(it activity.Item, opt Options) (activity.Tier, activity.Route) {
	if it.Consolidated != nil {
		return activity.Tier1, activity.RouteStandalone
	}
	if it.Activity == nil {
		return activity.TierNone, activity.RouteStandalone
	}
	return ClassifyActivity(*it.Activity, opt)
}

// ClassifyActivity classifies a standalone activity
func ClassifyActivity(a activity.Activity, opt Options) (activity.Tier, activity.Route) {
	text := normalize.FreeTextLen(a.Content)
	switch {
	case a.Kind.Interactive():
		return activity.Tier1, activity.RouteStandalone
	case a.Rating > 0:
		return activity.Tier1, activity.RouteStandalone
	case a.DistinctParticipants() >= 2:
		return activity.Tier1, activity.RouteStandalone
	case text > longTextLen:
		return activity.Tier1, activity.RouteStandalone
	case a.Kind.Receipt():
		return activity.Tier3, activity.RouteStandalone
	case a.Kind == activity.KindListAdd:
		if normalize.HasMeaningfulContent(a, opt.MeaningfulMinLen) {
			return activity.Tier1, activity.RouteStandalone
		}
		return activity.TierNone, activity.RouteGlimpse
	case simpleKind(a.Kind) && text < shortTextLen:
		return activity.Tier2, activity.RouteStandalone
	case a.HasMedia() && text < shortTextLen:
		return activity.Tier2, activity.RouteStandalone
	}
	return activity.Tier1, activity.RouteStandalone
}

func simpleKind(k activity.Kind) bool {
	switch k {
	case activity.KindFinished, activity.KindProgress, activity.KindUpdate, activity.KindCurrentlyConsuming:
		return true
	}
	return false
}
