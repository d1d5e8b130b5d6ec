package normalize

import (
	"strings"

	"feedweave/internal/core/activity"
)

// reviewMinLen is the free text length from which heuristic classification says review
const reviewMinLen = 200

// kindAliases maps upstream spellings onto kinds, keys are lower snake case
var kindAliases = map[string]activity.Kind{
	"add_to_list":   activity.KindListAdd,
	"added_to_list": activity.KindListAdd,
	"listadd":       activity.KindListAdd,
	"list":          activity.KindListAdd,
	"rate":          activity.KindRating,
	"rated":         activity.KindRating,
	"finish":        activity.KindFinished,
	"completed":     activity.KindFinished,
	"hottake":       activity.KindHotTake,
	"consuming":     activity.KindCurrentlyConsuming,
	"now_consuming": activity.KindCurrentlyConsuming,
	"watching":      activity.KindCurrentlyConsuming,
	"reading":       activity.KindCurrentlyConsuming,
	"text":          activity.KindThought,
	"friend_cast":   activity.KindCastApproved,
	"ask_rec":       activity.KindAskForRec,
	"rec_request":   activity.KindAskForRec,
	"rank_update":   activity.KindRankEdit,
}

// lookupKind resolves one explicit type field
func lookupKind(s string) (activity.Kind, bool) {
	key := strings.ToLower(strings.TrimSpace(s))
	key = strings.NewReplacer("-", "_", " ", "_").Replace(key)
	if key == "" {
		return "", false
	}
	if k := activity.Kind(key); k.Valid() {
		return k, true
	}
	k, ok := kindAliases[key]
	return k, ok
}

// Classify derives the kind from type, then post_type, then content heuristics
// Heuristics only run when both explicit fields are blank
func Classify(typ, postType, content string, rating float64, hasMedia bool) activity.Kind {
	if k, ok := lookupKind(typ); ok {
		return k
	}
	if k, ok := lookupKind(postType); ok {
		return k
	}
	if strings.TrimSpace(typ) != "" || strings.TrimSpace(postType) != "" {
		return activity.KindPost
	}

	text := strings.TrimSpace(content)
	switch {
	case IsAutoGenerated(text):
		return activity.KindListAdd
	case rating > 0:
		return activity.KindRating
	case FreeTextLen(text) >= reviewMinLen:
		return activity.KindReview
	case text != "":
		return activity.KindThought
	case hasMedia:
		return activity.KindListAdd
	}
	return activity.KindPost
}
