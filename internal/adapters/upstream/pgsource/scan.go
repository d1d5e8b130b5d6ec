package pgsource

import (
	"encoding/json"
	"time"

	"feedweave/internal/core/normalize"
	"feedweave/internal/platform/store"
	"feedweave/internal/services/feed/domain"
)

type tally struct {
	pool, option string
	votes        int
	mine         bool
}

func scanPost(r store.Row) (normalize.RawPost, error) {
	var (
		p                         normalize.RawPost
		media, list, poll, people []byte
		created                   time.Time
	)
	err := r.Scan(&p.ID, &p.Type, &p.User.ID, &p.User.Username, &p.User.DisplayName, &p.User.Avatar, &p.Content,
		&p.Rating, &media, &list, &poll, &people, &created,
		&p.Engagement.Likes, &p.Engagement.Comments, &p.Engagement.LikedByCurrentUser)
	if err != nil {
		return normalize.RawPost{}, err
	}
	p.Timestamp = created.UTC().Format(time.RFC3339Nano)
	if err := decodeJSON(media, &p.Media); err != nil {
		return normalize.RawPost{}, err
	}
	if err := decodeJSON(list, &p.ListContext); err != nil {
		return normalize.RawPost{}, err
	}
	if err := decodeJSON(poll, &p.Poll); err != nil {
		return normalize.RawPost{}, err
	}
	if err := decodeJSON(people, &p.Participants); err != nil {
		return normalize.RawPost{}, err
	}
	return p, nil
}

// decodeJSON leaves out untouched for SQL NULL
func decodeJSON(b []byte, out any) error {
	if len(b) == 0 || string(b) == "null" {
		return nil
	}
	return json.Unmarshal(b, out)
}

func scanTally(r store.Row) (tally, error) {
	var t tally
	err := r.Scan(&t.pool, &t.option, &t.votes, &t.mine)
	return t, err
}

func scanComment(r store.Row) (domain.Comment, error) {
	var c domain.Comment
	err := r.Scan(&c.ID, &c.PostID, &c.ParentID, &c.User.ID, &c.User.Username, &c.Content, &c.Score, &c.CreatedAt)
	c.CreatedAt = c.CreatedAt.UTC()
	return c, err
}

// applyTallies writes vote counts and the viewer's choice onto each post's poll
func applyTallies(posts []normalize.RawPost, tallies []tally) {
	byPool := map[string][]tally{}
	for _, t := range tallies {
		byPool[t.pool] = append(byPool[t.pool], t)
	}
	for i := range posts {
		poll := posts[i].Poll
		if poll == nil {
			continue
		}
		poll.UserVote = ""
		for j := range poll.Options {
			poll.Options[j].Votes = 0
		}
		for _, t := range byPool[poll.PoolID] {
			for j := range poll.Options {
				if poll.Options[j].ID == t.option {
					poll.Options[j].Votes = t.votes
				}
			}
			if t.mine {
				poll.UserVote = t.option
			}
		}
	}
}
