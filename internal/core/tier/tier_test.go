package tier

import (
	"strings"
	"testing"

	"feedweave/internal/core/activity"
)

func TestClassify_Rules(t *testing.T) {
	media := &activity.Media{Title: "Dune"}
	long := strings.Repeat("x", 101)
	mid := strings.Repeat("x", 60)
	cases := []struct {
		name  string
		a     activity.Activity
		tier  activity.Tier
		route activity.Route
	}{
		{"interactive", activity.Activity{Kind: activity.KindBet}, activity.Tier1, activity.RouteStandalone},
		{"rated receipt still tier1", activity.Activity{Kind: activity.KindBadge, Rating: 2}, activity.Tier1, activity.RouteStandalone},
		{"multi user", activity.Activity{Kind: activity.KindFinished, Participants: []activity.User{{ID: "a"}, {ID: "b"}}}, activity.Tier1, activity.RouteStandalone},
		{"same user twice", activity.Activity{Kind: activity.KindFinished, Participants: []activity.User{{ID: "a"}, {ID: "a"}}}, activity.Tier2, activity.RouteStandalone},
		{"long text", activity.Activity{Kind: activity.KindTrivia, Content: long}, activity.Tier1, activity.RouteStandalone},
		{"receipt", activity.Activity{Kind: activity.KindAchievement, Content: "earned"}, activity.Tier3, activity.RouteStandalone},
		{"rank edit", activity.Activity{Kind: activity.KindRankEdit}, activity.Tier3, activity.RouteStandalone},
		{"bare list add", activity.Activity{Kind: activity.KindListAdd, Media: media, Content: "Added Dune to Watchlist"}, activity.TierNone, activity.RouteGlimpse},
		{"list add with note", activity.Activity{Kind: activity.KindListAdd, Media: media, Content: strings.Repeat("y", 31)}, activity.Tier1, activity.RouteStandalone},
		{"finished short", activity.Activity{Kind: activity.KindFinished, Content: "done"}, activity.Tier2, activity.RouteStandalone},
		{"finished mid text", activity.Activity{Kind: activity.KindFinished, Content: mid}, activity.Tier1, activity.RouteStandalone},
		{"consuming", activity.Activity{Kind: activity.KindCurrentlyConsuming}, activity.Tier2, activity.RouteStandalone},
		{"media short thought", activity.Activity{Kind: activity.KindThought, Media: media, Content: "ok"}, activity.Tier2, activity.RouteStandalone},
		{"plain thought", activity.Activity{Kind: activity.KindThought, Content: "ok"}, activity.Tier1, activity.RouteStandalone},
	}
	for _, c := range cases {
		tier, route := Classify(activity.Single(c.a), Options{})
		if tier != c.tier || route != c.route {
			t.Fatalf("%s: got %s/%s want %s/%s", c.name, tier, route, c.tier, c.route)
		}
	}
}

func TestClassify_ConsolidatedIsTier1(t *testing.T) {
	it := activity.Merged(activity.ConsolidatedActivity{ID: "c"})
	if tier, route := Classify(it, Options{}); tier != activity.Tier1 || route != activity.RouteStandalone {
		t.Fatalf("got %s/%s", tier, route)
	}
}

func TestClassify_ThresholdIsTunable(t *testing.T) {
	a := activity.Activity{Kind: activity.KindListAdd, Content: "short note"}
	if tier, _ := Classify(activity.Single(a), Options{}); tier != activity.TierNone {
		t.Fatalf("default threshold: %s", tier)
	}
	if tier, _ := Classify(activity.Single(a), Options{MeaningfulMinLen: 5}); tier != activity.Tier1 {
		t.Fatalf("custom threshold: %s", tier)
	}
}
