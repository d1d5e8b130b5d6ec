// Package activity holds the canonical feed data model shared by the composition pipeline
package activity

import (
	"strconv"
	"time"
)

// Kind is the closed set of activity kinds the normalizer may produce
type Kind string

const (
	KindRating             Kind = "rating"
	KindFinished           Kind = "finished"
	KindListAdd            Kind = "list_add"
	KindHotTake            Kind = "hot_take"
	KindPrediction         Kind = "prediction"
	KindPoll               Kind = "poll"
	KindVote               Kind = "vote"
	KindBet                Kind = "bet"
	KindThought            Kind = "thought"
	KindReview             Kind = "review"
	KindCastApproved       Kind = "cast_approved"
	KindAskForRec          Kind = "ask_for_rec"
	KindRank               Kind = "rank"
	KindRankEdit           Kind = "rank_edit"
	KindCurrentlyConsuming Kind = "currently_consuming"
	KindProgress           Kind = "progress"
	KindUpdate             Kind = "update"
	KindTrivia             Kind = "trivia"
	KindBadge              Kind = "badge"
	KindAchievement        Kind = "achievement"
	KindPost               Kind = "post"
)

var allKinds = []Kind{
	KindRating, KindFinished, KindListAdd, KindHotTake, KindPrediction, KindPoll, KindVote,
	KindBet, KindThought, KindReview, KindCastApproved, KindAskForRec, KindRank, KindRankEdit,
	KindCurrentlyConsuming, KindProgress, KindUpdate, KindTrivia, KindBadge, KindAchievement,
	KindPost,
}

// Kinds returns every known kind in declaration order
func Kinds() []Kind {
	out := make([]Kind, len(allKinds))
	copy(out, allKinds)
	return out
}

// Valid reports whether k is one of the declared kinds
func (k Kind) Valid() bool {
	for _, v := range allKinds {
		if v == k {
			return true
		}
	}
	return false
}

// Interactive reports the kinds that carry a vote pool
func (k Kind) Interactive() bool {
	switch k {
	case KindPrediction, KindPoll, KindVote, KindBet:
		return true
	}
	return false
}

// Receipt reports the low-signal system kinds
func (k Kind) Receipt() bool {
	switch k {
	case KindTrivia, KindRankEdit, KindBadge, KindAchievement:
		return true
	}
	return false
}

// User identifies the author of an activity
type User struct {
	ID          string `json:"id"`
	Username    string `json:"username,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
	Avatar      string `json:"avatar,omitempty"`
}

// Media is the title an activity is about
type Media struct {
	Title          string `json:"title"`
	MediaType      string `json:"media_type,omitempty"`
	ImageURL       string `json:"image_url,omitempty"`
	ExternalID     string `json:"external_id,omitempty"`
	ExternalSource string `json:"external_source,omitempty"`
	Creator        string `json:"creator,omitempty"`
}

// Engagement is the upstream-reported counters for an activity
type Engagement struct {
	Likes              int  `json:"likes"`
	Comments           int  `json:"comments"`
	LikedByCurrentUser bool `json:"liked_by_current_user"`
}

// ListContext names the list a list_add targeted
type ListContext struct {
	ListID   string `json:"list_id,omitempty"`
	ListName string `json:"list_name,omitempty"`
}

// PollOption is one choice in a vote pool
type PollOption struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Votes int    `json:"votes"`
}

// Poll is the vote pool carried by prediction, poll, vote and bet kinds
type Poll struct {
	PoolID   string       `json:"pool_id"`
	Options  []PollOption `json:"options"`
	UserVote string       `json:"user_vote,omitempty"`
}

// Clone returns a deep copy
func (p *Poll) Clone() *Poll {
	if p == nil {
		return nil
	}
	cp := *p
	cp.Options = append([]PollOption(nil), p.Options...)
	return &cp
}

// Activity is one canonical user-generated event
type Activity struct {
	ID           string       `json:"id"`
	Kind         Kind         `json:"kind"`
	User         User         `json:"user"`
	Timestamp    time.Time    `json:"timestamp"`
	Content      string       `json:"content,omitempty"`
	Rating       float64      `json:"rating,omitempty"`
	Media        *Media       `json:"media,omitempty"`
	Engagement   Engagement   `json:"engagement"`
	List         *ListContext `json:"list,omitempty"`
	Poll         *Poll        `json:"poll,omitempty"`
	Participants []User       `json:"participants,omitempty"`
}

// HasMedia reports whether the activity names a title
func (a Activity) HasMedia() bool { return a.Media != nil && a.Media.Title != "" }

// ExternalKey returns source and id when the media carries an external identity
func (a Activity) ExternalKey() (string, bool) {
	if a.Media == nil || a.Media.ExternalID == "" {
		return "", false
	}
	return a.Media.ExternalSource + ":" + a.Media.ExternalID, true
}

// DistinctParticipants counts distinct user ids among participants
func (a Activity) DistinctParticipants() int {
	seen := make(map[string]struct{}, len(a.Participants))
	for _, u := range a.Participants {
		if u.ID != "" {
			seen[u.ID] = struct{}{}
		}
	}
	return len(seen)
}

// Clone returns a copy that shares no pointers with a
func (a Activity) Clone() Activity {
	cp := a
	if a.Media != nil {
		m := *a.Media
		cp.Media = &m
	}
	if a.List != nil {
		l := *a.List
		cp.List = &l
	}
	cp.Poll = a.Poll.Clone()
	if a.Participants != nil {
		cp.Participants = append([]User(nil), a.Participants...)
	}
	return cp
}

// ConsolidatedKind names the kind of a consolidated card
type ConsolidatedKind string

const (
	ConsolidatedListAdds ConsolidatedKind = "list_adds"
	ConsolidatedRatings  ConsolidatedKind = "ratings"
	ConsolidatedFinished ConsolidatedKind = "finished"
)

// ConsolidatedKindOf maps an activity kind onto its consolidated kind
func ConsolidatedKindOf(k Kind) (ConsolidatedKind, bool) {
	switch k {
	case KindRating:
		return ConsolidatedRatings, true
	case KindFinished:
		return ConsolidatedFinished, true
	case KindListAdd:
		return ConsolidatedListAdds, true
	}
	return "", false
}

// ConsolidatedActivity merges same-user same-kind activities inside one window
type ConsolidatedActivity struct {
	ID                  string           `json:"id"`
	User                User             `json:"user"`
	Kind                ConsolidatedKind `json:"kind"`
	Items               []Activity       `json:"items"`
	Timestamp           time.Time        `json:"timestamp"`
	Likes               int              `json:"likes"`
	Comments            int              `json:"comments"`
	OriginalActivityIDs []string         `json:"original_activity_ids"`
}

// ConsolidatedID builds the deterministic id of a consolidated card
func ConsolidatedID(userID string, kind ConsolidatedKind, windowStart time.Time) string {
	return "consolidated:" + userID + ":" + string(kind) + ":" + strconv.FormatInt(windowStart.UnixMilli(), 10)
}

// Tier is the rendering priority of a standalone item
type Tier int

const (
	TierNone Tier = iota
	Tier1
	Tier2
	Tier3
)

func (t Tier) String() string {
	switch t {
	case Tier1:
		return "tier1"
	case Tier2:
		return "tier2"
	case Tier3:
		return "tier3"
	}
	return "none"
}

// Route tells the interleaver where a classified item goes
type Route uint8

const (
	RouteStandalone Route = iota
	RouteGlimpse
	RouteDeck
)

func (r Route) String() string {
	switch r {
	case RouteGlimpse:
		return "glimpse"
	case RouteDeck:
		return "deck"
	}
	return "standalone"
}

// SimpleAddGlimpse aggregates low-signal list adds
type SimpleAddGlimpse struct {
	ID    string     `json:"id"`
	Items []Activity `json:"items"`
}

// RatingSwipeDeck aggregates rating-bearing activities folded out of the main column
type RatingSwipeDeck struct {
	ID    string     `json:"id"`
	Items []Activity `json:"items"`
}

// GlimpseID and DeckID derive block ids from their first member
func GlimpseID(first string) string { return "glimpse:" + first }
func DeckID(first string) string    { return "deck:" + first }

// Item is either a standalone Activity or a ConsolidatedActivity
type Item struct {
	Activity     *Activity
	Consolidated *ConsolidatedActivity
}

// Single wraps an activity
func Single(a Activity) Item { return Item{Activity: &a} }

// Merged wraps a consolidated activity
func Merged(c ConsolidatedActivity) Item { return Item{Consolidated: &c} }

// ID returns the id of whichever variant is set
func (it Item) ID() string {
	if it.Consolidated != nil {
		return it.Consolidated.ID
	}
	if it.Activity != nil {
		return it.Activity.ID
	}
	return ""
}

// Members returns the activities the item represents
func (it Item) Members() []Activity {
	if it.Consolidated != nil {
		return it.Consolidated.Items
	}
	if it.Activity != nil {
		return []Activity{*it.Activity}
	}
	return nil
}

// EntryKind tags the composed entry variant
type EntryKind string

const (
	EntryActivity     EntryKind = "activity"
	EntryConsolidated EntryKind = "consolidated"
	EntryGlimpse      EntryKind = "glimpse"
	EntryDeck         EntryKind = "swipe_deck"
)

// Entry is one element of the composed feed
type Entry struct {
	Kind         EntryKind             `json:"kind"`
	Tier         Tier                  `json:"tier"`
	Highlighted  bool                  `json:"highlighted,omitempty"`
	Own          bool                  `json:"own,omitempty"` // authored by the viewer
	Activity     *Activity             `json:"activity,omitempty"`
	Consolidated *ConsolidatedActivity `json:"consolidated,omitempty"`
	Glimpse      *SimpleAddGlimpse     `json:"glimpse,omitempty"`
	Deck         *RatingSwipeDeck      `json:"deck,omitempty"`
}

// ID returns the id of whichever variant is set
func (e Entry) ID() string {
	switch e.Kind {
	case EntryActivity:
		return e.Activity.ID
	case EntryConsolidated:
		return e.Consolidated.ID
	case EntryGlimpse:
		return e.Glimpse.ID
	case EntryDeck:
		return e.Deck.ID
	}
	return ""
}

// Activities returns every underlying activity the entry renders
func (e Entry) Activities() []Activity {
	switch e.Kind {
	case EntryActivity:
		return []Activity{*e.Activity}
	case EntryConsolidated:
		return e.Consolidated.Items
	case EntryGlimpse:
		return e.Glimpse.Items
	case EntryDeck:
		return e.Deck.Items
	}
	return nil
}
