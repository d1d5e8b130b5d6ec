package http

import (
	"maps"
	"slices"
	"time"

	"feedweave/internal/core/activity"
	"feedweave/internal/core/compose"
	"feedweave/internal/services/feed/domain"
)

// CardType names the client template an entry renders with
type CardType string

const (
	CardRating     CardType = "rating_card"
	CardFinished   CardType = "finished_card"
	CardListAdd    CardType = "list_add_card"
	CardHotTake    CardType = "hot_take_card"
	CardPrediction CardType = "prediction_card"
	CardPoll       CardType = "poll_card"
	CardThought    CardType = "thought_card"
	CardReview     CardType = "review_card"
	CardCast       CardType = "cast_card"
	CardRecRequest CardType = "rec_request_card"
	CardRank       CardType = "rank_card"
	CardProgress   CardType = "progress_card"
	CardReceipt    CardType = "receipt_card"
	CardPost       CardType = "post_card"
	CardGlimpse    CardType = "simple_add_glimpse"
	CardDeck       CardType = "rating_swipe_deck"
)

// activityCards is the single dispatch table from kind to card
var activityCards = map[activity.Kind]CardType{
	activity.KindRating:             CardRating,
	activity.KindFinished:           CardFinished,
	activity.KindListAdd:            CardListAdd,
	activity.KindHotTake:            CardHotTake,
	activity.KindPrediction:         CardPrediction,
	activity.KindPoll:               CardPoll,
	activity.KindVote:               CardPoll,
	activity.KindBet:                CardPrediction,
	activity.KindThought:            CardThought,
	activity.KindReview:             CardReview,
	activity.KindCastApproved:       CardCast,
	activity.KindAskForRec:          CardRecRequest,
	activity.KindRank:               CardRank,
	activity.KindRankEdit:           CardReceipt,
	activity.KindCurrentlyConsuming: CardProgress,
	activity.KindProgress:           CardProgress,
	activity.KindUpdate:             CardProgress,
	activity.KindTrivia:             CardReceipt,
	activity.KindBadge:              CardReceipt,
	activity.KindAchievement:        CardReceipt,
	activity.KindPost:               CardPost,
}

// ConsolidatedCard returns the card of a consolidated entry, e.g. consolidated_ratings
func ConsolidatedCard(k activity.ConsolidatedKind) CardType {
	return CardType("consolidated_" + string(k))
}

// CardFor returns the card of a standalone activity kind
func CardFor(k activity.Kind) CardType {
	if c, ok := activityCards[k]; ok {
		return c
	}
	return CardPost
}

// CardTypes lists every card a snapshot can carry, sorted
func CardTypes() []CardType {
	seen := map[CardType]bool{CardPost: true, CardGlimpse: true, CardDeck: true}
	for _, c := range activityCards {
		seen[c] = true
	}
	for _, k := range activity.Kinds() {
		if ck, ok := activity.ConsolidatedKindOf(k); ok {
			seen[ConsolidatedCard(ck)] = true
		}
	}
	out := slices.Collect(maps.Keys(seen))
	slices.Sort(out)
	return out
}

// Card is one rendered entry, or one member of a consolidated card or block
type Card struct {
	Type         CardType              `json:"type"`
	ID           string                `json:"id"`
	Tier         string                `json:"tier,omitempty"`
	Kind         string                `json:"kind,omitempty"`
	Highlighted  bool                  `json:"highlighted,omitempty"`
	Own          bool                  `json:"own,omitempty"`
	User         *activity.User        `json:"user,omitempty"`
	Timestamp    *time.Time            `json:"timestamp,omitempty"`
	Content      string                `json:"content,omitempty"`
	Rating       float64               `json:"rating,omitempty"`
	Media        *activity.Media       `json:"media,omitempty"`
	Engagement   *activity.Engagement  `json:"engagement,omitempty"`
	List         *activity.ListContext `json:"list,omitempty"`
	Poll         *activity.Poll        `json:"poll,omitempty"`
	Participants []activity.User       `json:"participants,omitempty"`
	OriginalIDs  []string              `json:"original_ids,omitempty"`
	Items        []Card                `json:"items,omitempty"`
}

// SnapshotWire is the composed feed as clients receive it
type SnapshotWire struct {
	SessionID     string          `json:"session_id"`
	CurrentUserID string          `json:"current_user_id,omitempty"`
	Filter        string          `json:"filter,omitempty"`
	Exhausted     bool            `json:"exhausted"`
	Version       uint64          `json:"version"`
	Highlight     string          `json:"highlight,omitempty"`
	Pending       int             `json:"pending"`
	Entries       []Card          `json:"entries"`
	Stats         compose.Stats   `json:"stats"`
	Notices       []domain.Notice `json:"notices,omitempty"`
}

// AckWire answers a mutation request
type AckWire struct {
	Accepted bool         `json:"accepted"`
	Snapshot SnapshotWire `json:"snapshot"`
}

// Render converts a snapshot to its wire form
func Render(s domain.Snapshot) SnapshotWire {
	out := SnapshotWire{
		SessionID:     s.SessionID,
		CurrentUserID: s.CurrentUserID,
		Filter:        s.Filter,
		Exhausted:     s.Exhausted,
		Version:       s.Version,
		Highlight:     s.Highlight,
		Pending:       s.Pending,
		Entries:       make([]Card, 0, len(s.Feed.Entries)),
		Stats:         s.Feed.Stats,
		Notices:       s.Notices,
	}
	for _, e := range s.Feed.Entries {
		out.Entries = append(out.Entries, renderEntry(e))
	}
	return out
}

func renderEntry(e activity.Entry) Card {
	var c Card
	switch e.Kind {
	case activity.EntryActivity:
		c = activityCard(*e.Activity)
	case activity.EntryConsolidated:
		m := e.Consolidated
		ts := m.Timestamp
		u := m.User
		c = Card{
			Type:        ConsolidatedCard(m.Kind),
			ID:          m.ID,
			Kind:        string(m.Kind),
			User:        &u,
			Timestamp:   &ts,
			Engagement:  &activity.Engagement{Likes: m.Likes, Comments: m.Comments},
			OriginalIDs: m.OriginalActivityIDs,
			Items:       members(m.Items),
		}
	case activity.EntryGlimpse:
		c = Card{Type: CardGlimpse, ID: e.Glimpse.ID, Items: members(e.Glimpse.Items)}
	case activity.EntryDeck:
		c = Card{Type: CardDeck, ID: e.Deck.ID, Items: members(e.Deck.Items)}
	}
	c.Tier = e.Tier.String()
	c.Highlighted = e.Highlighted
	c.Own = e.Own
	return c
}

func members(items []activity.Activity) []Card {
	out := make([]Card, 0, len(items))
	for _, a := range items {
		out = append(out, activityCard(a))
	}
	return out
}

func activityCard(a activity.Activity) Card {
	ts := a.Timestamp
	u := a.User
	eng := a.Engagement
	return Card{
		Type:         CardFor(a.Kind),
		ID:           a.ID,
		Kind:         string(a.Kind),
		User:         &u,
		Timestamp:    &ts,
		Content:      a.Content,
		Rating:       a.Rating,
		Media:        a.Media,
		Engagement:   &eng,
		List:         a.List,
		Poll:         a.Poll,
		Participants: a.Participants,
	}
}
