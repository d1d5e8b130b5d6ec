// Package normalize maps raw upstream feed records onto canonical activities
package normalize

import (
	"errors"
	"math"
	"reflect"
	"strings"
	"sync"
	"time"

	"feedweave/internal/core/activity"
	perr "feedweave/internal/platform/errors"
	pstrings "feedweave/internal/platform/strings"

	"github.com/go-playground/validator/v10"
)

// RawUser is the upstream author shape
type RawUser struct {
	ID          string `json:"id" validate:"required,notblank"`
	Username    string `json:"username,omitempty"`
	DisplayName string `json:"displayName,omitempty"`
	Avatar      string `json:"avatar,omitempty"`
}

// RawMedia is the upstream media shape
type RawMedia struct {
	Title          string `json:"title"`
	MediaType      string `json:"mediaType,omitempty"`
	ImageURL       string `json:"imageUrl,omitempty"`
	ExternalID     string `json:"externalId,omitempty"`
	ExternalSource string `json:"externalSource,omitempty"`
	Creator        string `json:"creator,omitempty"`
}

// RawEngagement is the upstream counters shape
type RawEngagement struct {
	Likes              int  `json:"likes"`
	Comments           int  `json:"comments"`
	LikedByCurrentUser bool `json:"likedByCurrentUser"`
}

// RawList is the upstream list context shape
type RawList struct {
	ListID   string `json:"listId,omitempty"`
	ListName string `json:"listName,omitempty"`
}

// RawOption is one upstream poll option
type RawOption struct {
	ID    string `json:"id" validate:"required"`
	Label string `json:"label"`
	Votes int    `json:"votes"`
}

// RawPoll is the upstream vote pool shape
type RawPoll struct {
	PoolID   string      `json:"poolId" validate:"required"`
	Options  []RawOption `json:"options" validate:"dive"`
	UserVote string      `json:"userVote,omitempty"`
}

// RawPost is one record as the upstream feed returns it
type RawPost struct {
	ID           string        `json:"id" validate:"required,notblank"`
	Type         string        `json:"type,omitempty"`
	PostType     string        `json:"post_type,omitempty"`
	User         RawUser       `json:"user"`
	Timestamp    string        `json:"timestamp" validate:"required"`
	Content      string        `json:"content,omitempty"`
	Rating       float64       `json:"rating,omitempty"`
	Media        *RawMedia     `json:"media,omitempty"`
	Engagement   RawEngagement `json:"engagement"`
	ListContext  *RawList      `json:"listContext,omitempty"`
	Poll         *RawPoll      `json:"poll,omitempty"`
	Participants []RawUser     `json:"participants,omitempty"`
}

var (
	vOnce sync.Once
	vInst *validator.Validate
)

func validate() *validator.Validate {
	vOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			tag := fld.Tag.Get("json")
			if i := strings.Index(tag, ","); i >= 0 {
				tag = tag[:i]
			}
			if tag == "" || tag == "-" {
				return fld.Name
			}
			return tag
		})
		_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
			return strings.TrimSpace(fl.Field().String()) != ""
		})
		vInst = v
	})
	return vInst
}

// timeLayouts are tried in order, zoneless layouts are read as UTC
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

// ParseTimestamp reads the upstream timestamp forms and returns UTC
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, perr.WithField(perr.Malformedf("unparsable timestamp %q", s), "timestamp")
}

// ClampRating bounds r to [0,5] on half steps
func ClampRating(r float64) float64 {
	if math.IsNaN(r) || r <= 0 {
		return 0
	}
	if r > 5 {
		r = 5
	}
	return math.Round(r*2) / 2
}

// Post normalizes one raw record
// A record missing id, user or a parsable timestamp fails with ErrorCodeMalformedRecord
func Post(raw RawPost) (activity.Activity, error) {
	if err := validate().Struct(raw); err != nil {
		var ve validator.ValidationErrors
		if errors.As(err, &ve) && len(ve) > 0 {
			field := strings.TrimPrefix(ve[0].Namespace(), "RawPost.")
			return activity.Activity{}, perr.WithField(
				perr.Malformedf("record %q: %s failed %s", raw.ID, field, ve[0].Tag()), field)
		}
		return activity.Activity{}, perr.Wrapf(err, perr.ErrorCodeMalformedRecord, "record %q", raw.ID)
	}

	ts, err := ParseTimestamp(raw.Timestamp)
	if err != nil {
		return activity.Activity{}, perr.WithOp(err, "normalize.Post")
	}

	content := CleanContent(raw.Content)
	rating := ClampRating(raw.Rating)
	media := normalizeMedia(raw.Media)

	a := activity.Activity{
		ID:        strings.TrimSpace(raw.ID),
		User:      userOf(raw.User),
		Timestamp: ts,
		Content:   content,
		Rating:    rating,
		Media:     media,
		Engagement: activity.Engagement{
			Likes:              max(raw.Engagement.Likes, 0),
			Comments:           max(raw.Engagement.Comments, 0),
			LikedByCurrentUser: raw.Engagement.LikedByCurrentUser,
		},
	}
	a.Kind = Classify(raw.Type, raw.PostType, content, rating, media != nil && media.Title != "")

	if raw.ListContext != nil && (raw.ListContext.ListID != "" || raw.ListContext.ListName != "") {
		a.List = &activity.ListContext{ListID: raw.ListContext.ListID, ListName: CleanContent(raw.ListContext.ListName)}
	}
	if raw.Poll != nil {
		p := &activity.Poll{PoolID: raw.Poll.PoolID, UserVote: raw.Poll.UserVote}
		for _, o := range raw.Poll.Options {
			p.Options = append(p.Options, activity.PollOption{ID: o.ID, Label: CleanContent(o.Label), Votes: max(o.Votes, 0)})
		}
		a.Poll = p
	}
	for _, u := range raw.Participants {
		if strings.TrimSpace(u.ID) != "" {
			a.Participants = append(a.Participants, userOf(u))
		}
	}
	return a, nil
}

func userOf(u RawUser) activity.User {
	return activity.User{
		ID:          strings.TrimSpace(u.ID),
		Username:    u.Username,
		DisplayName: CleanContent(pstrings.FirstNonEmpty(u.DisplayName, u.Username)),
		Avatar:      u.Avatar,
	}
}

func normalizeMedia(m *RawMedia) *activity.Media {
	if m == nil {
		return nil
	}
	out := &activity.Media{
		Title:          CleanContent(m.Title),
		MediaType:      strings.ToLower(strings.TrimSpace(m.MediaType)),
		ImageURL:       strings.TrimSpace(m.ImageURL),
		ExternalID:     strings.TrimSpace(m.ExternalID),
		ExternalSource: strings.ToLower(strings.TrimSpace(m.ExternalSource)),
		Creator:        CleanContent(m.Creator),
	}
	if *out == (activity.Media{}) {
		return nil
	}
	out.ImageURL = CoverURL(out.ExternalSource, out.ExternalID, out.ImageURL)
	return out
}

// Dropped records a raw post the normalizer rejected
type Dropped struct {
	ID  string
	Err error
}

// Page normalizes a page, keeping input order and reporting rejected records
// Repeated ids inside one page keep the first record
func Page(raws []RawPost) ([]activity.Activity, []Dropped) {
	out := make([]activity.Activity, 0, len(raws))
	var dropped []Dropped
	seen := make(map[string]struct{}, len(raws))
	for _, r := range raws {
		a, err := Post(r)
		if err != nil {
			dropped = append(dropped, Dropped{ID: r.ID, Err: err})
			continue
		}
		if _, dup := seen[a.ID]; dup {
			continue
		}
		seen[a.ID] = struct{}{}
		out = append(out, a)
	}
	return out, dropped
}
