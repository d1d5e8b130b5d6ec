// Package pgsource implements the feed upstream over Postgres tables
package pgsource

import (
	"context"
	"strings"
	"time"

	"feedweave/internal/core/normalize"
	"feedweave/internal/modkit/repokit"
	perr "feedweave/internal/platform/errors"
	pnet "feedweave/internal/platform/net"
	"feedweave/internal/platform/store"
	pstrings "feedweave/internal/platform/strings"
	"feedweave/internal/services/feed/domain"

	"github.com/google/uuid"
)

// Source serves the viewer's feed from feed_posts and its side tables
type Source struct {
	db    repokit.TxRunner
	newID func() string
}

var _ domain.Upstream = (*Source)(nil)

// New returns a Source over db
func New(db repokit.TxRunner) *Source {
	return &Source{db: db, newID: uuid.NewString}
}

func viewer(ctx context.Context) (string, error) {
	uid := strings.TrimSpace(pnet.UserID(ctx))
	if uid == "" {
		return "", perr.Unauthorizedf("no viewer on context")
	}
	return uid, nil
}

// dbErr classifies raw driver errors, project errors pass through
func dbErr(err error, msg string) error {
	if err == nil {
		return nil
	}
	if _, ok := perr.As(err); ok {
		return err
	}
	return perr.FromPG(err, msg)
}

func (s *Source) tx(ctx context.Context, fn func(q store.RowQuerier) error) error {
	return dbErr(repokit.WithTx(ctx, s.db, fn), "feed transaction")
}

// commentNotFound rejects ids that cannot name a stored comment
func commentNotFound(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return perr.WithField(perr.NotFoundf("comment %s not found", id), "comment_id")
	}
	return nil
}

const selectPosts = `
SELECT p.id, p.type, p.user_id, p.username, p.display_name, p.avatar, p.content,
       COALESCE(p.rating, 0), p.media, p.list_context, p.poll, p.participants, p.created_at,
       (SELECT count(*) FROM post_likes l WHERE l.post_id = p.id)::int,
       (SELECT count(*) FROM post_comments c WHERE c.post_id = p.id)::int,
       EXISTS (SELECT 1 FROM post_likes l WHERE l.post_id = p.id AND l.user_id = $1)
FROM feed_posts p
WHERE p.deleted_at IS NULL`

// Feed returns one page ordered newest first, filter matches the media type or post type
func (s *Source) Feed(ctx context.Context, q domain.FeedQuery) (domain.FeedPage, error) {
	uid, err := viewer(ctx)
	if err != nil {
		return domain.FeedPage{}, err
	}
	posts, err := store.Many(ctx, s.db, scanPost, selectPosts+`
  AND ($2::text IS NULL OR p.type = $2 OR p.media->>'mediaType' = $2)
ORDER BY p.created_at DESC, p.id DESC
LIMIT $3 OFFSET $4`, uid, pstrings.SQLNull(q.Filter), q.Limit, q.Offset)
	if err != nil {
		return domain.FeedPage{}, dbErr(err, "select feed page")
	}
	if err := s.tallyPolls(ctx, uid, posts); err != nil {
		return domain.FeedPage{}, err
	}
	if posts == nil {
		posts = []normalize.RawPost{}
	}
	return domain.FeedPage{Posts: posts, CurrentUserID: uid}, nil
}

// Post returns one live post
func (s *Source) Post(ctx context.Context, id string) (normalize.RawPost, error) {
	uid, err := viewer(ctx)
	if err != nil {
		return normalize.RawPost{}, err
	}
	p, err := store.One(ctx, s.db, scanPost, selectPosts+` AND p.id = $2`, uid, id)
	if err != nil {
		return normalize.RawPost{}, perr.WithField(dbErr(err, "select post"), "post_id")
	}
	posts := []normalize.RawPost{p}
	if err := s.tallyPolls(ctx, uid, posts); err != nil {
		return normalize.RawPost{}, err
	}
	return posts[0], nil
}

func (s *Source) tallyPolls(ctx context.Context, uid string, posts []normalize.RawPost) error {
	var pools []string
	for _, p := range posts {
		if p.Poll != nil && p.Poll.PoolID != "" {
			pools = append(pools, p.Poll.PoolID)
		}
	}
	if len(pools) == 0 {
		return nil
	}
	tallies, err := store.Many(ctx, s.db, scanTally, `
SELECT pool_id, option_id, count(*)::int, bool_or(user_id = $2)
FROM pool_votes
WHERE pool_id = ANY($1)
GROUP BY pool_id, option_id`, pools, uid)
	if err != nil {
		return dbErr(err, "select pool tallies")
	}
	applyTallies(posts, tallies)
	return nil
}

func (s *Source) requirePost(ctx context.Context, q store.RowQuerier, id string) error {
	ok, err := store.Scalar[bool](ctx, q, `SELECT EXISTS (SELECT 1 FROM feed_posts WHERE id = $1 AND deleted_at IS NULL)`, id)
	if err != nil {
		return dbErr(err, "check post")
	}
	if !ok {
		return perr.WithField(perr.NotFoundf("post %s not found", id), "post_id")
	}
	return nil
}

func likeCount(ctx context.Context, q store.RowQuerier, id string) (int, error) {
	n, err := store.Scalar[int](ctx, q, `SELECT count(*)::int FROM post_likes WHERE post_id = $1`, id)
	return n, dbErr(err, "count likes")
}

// Like records the viewer's like, liking twice is a no-op
func (s *Source) Like(ctx context.Context, postID string) (domain.LikeResult, error) {
	return s.setLike(ctx, postID, `INSERT INTO post_likes (post_id, user_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`)
}

// Unlike removes the viewer's like
func (s *Source) Unlike(ctx context.Context, postID string) (domain.LikeResult, error) {
	return s.setLike(ctx, postID, `DELETE FROM post_likes WHERE post_id = $1 AND user_id = $2`)
}

func (s *Source) setLike(ctx context.Context, postID, stmt string) (domain.LikeResult, error) {
	uid, err := viewer(ctx)
	if err != nil {
		return domain.LikeResult{}, err
	}
	var out domain.LikeResult
	err = s.tx(ctx, func(q store.RowQuerier) error {
		if err := s.requirePost(ctx, q, postID); err != nil {
			return err
		}
		if _, err := q.Exec(ctx, stmt, postID, uid); err != nil {
			return dbErr(err, "write like")
		}
		n, err := likeCount(ctx, q, postID)
		out.Likes = n
		return err
	})
	return out, err
}

const selectComments = `
SELECT c.id::text, c.post_id, COALESCE(c.parent_id::text, ''), c.user_id, c.username, c.content,
       COALESCE((SELECT sum(v.direction) FROM comment_votes v WHERE v.comment_id = c.id), 0)::int,
       c.created_at
FROM post_comments c`

// Comments lists a post's comments oldest first
func (s *Source) Comments(ctx context.Context, postID string) ([]domain.Comment, error) {
	if _, err := viewer(ctx); err != nil {
		return nil, err
	}
	if err := s.requirePost(ctx, s.db, postID); err != nil {
		return nil, err
	}
	out, err := store.Many(ctx, s.db, scanComment, selectComments+` WHERE c.post_id = $1 ORDER BY c.created_at, c.id`, postID)
	if err != nil {
		return nil, dbErr(err, "select comments")
	}
	return out, nil
}

// CreateComment stores a comment authored by the viewer
func (s *Source) CreateComment(ctx context.Context, in domain.CommentInput) (domain.Comment, error) {
	uid, err := viewer(ctx)
	if err != nil {
		return domain.Comment{}, err
	}
	var out domain.Comment
	err = s.tx(ctx, func(q store.RowQuerier) error {
		if err := s.requirePost(ctx, q, in.PostID); err != nil {
			return err
		}
		if in.ParentID != "" {
			if err := commentNotFound(in.ParentID); err != nil {
				return perr.WithField(err, "parent_id")
			}
		}
		id := s.newID()
		if err := store.ExecOne(ctx, q, `
INSERT INTO post_comments (id, post_id, parent_id, user_id, username, content)
VALUES ($1::uuid, $2, $3::uuid, $4,
        COALESCE((SELECT username FROM feed_posts WHERE user_id = $4 AND username <> '' ORDER BY created_at DESC LIMIT 1), $4),
        $5)`, id, in.PostID, pstrings.SQLNull(in.ParentID), uid, in.Content); err != nil {
			return dbErr(err, "insert comment")
		}
		c, err := store.One(ctx, q, scanComment, selectComments+` WHERE c.id = $1::uuid`, id)
		out = c
		return dbErr(err, "select comment")
	})
	return out, err
}

// DeleteComment removes a comment the viewer wrote
func (s *Source) DeleteComment(ctx context.Context, commentID string) error {
	uid, err := viewer(ctx)
	if err != nil {
		return err
	}
	if err := commentNotFound(commentID); err != nil {
		return err
	}
	return s.tx(ctx, func(q store.RowQuerier) error {
		owner, err := store.Scalar[string](ctx, q, `SELECT user_id FROM post_comments WHERE id = $1::uuid`, commentID)
		if err != nil {
			return perr.WithField(dbErr(err, "select comment"), "comment_id")
		}
		if owner != uid {
			return perr.Forbiddenf("comment %s belongs to another user", commentID)
		}
		return dbErr(store.ExecOne(ctx, q, `DELETE FROM post_comments WHERE id = $1::uuid`, commentID), "delete comment")
	})
}

// DeletePost soft deletes a post the viewer wrote
func (s *Source) DeletePost(ctx context.Context, postID string) error {
	uid, err := viewer(ctx)
	if err != nil {
		return err
	}
	return s.tx(ctx, func(q store.RowQuerier) error {
		owner, err := store.Scalar[string](ctx, q, `SELECT user_id FROM feed_posts WHERE id = $1 AND deleted_at IS NULL`, postID)
		if err != nil {
			return perr.WithField(dbErr(err, "select post"), "post_id")
		}
		if owner != uid {
			return perr.Forbiddenf("post %s belongs to another user", postID)
		}
		return dbErr(store.ExecOne(ctx, q, `UPDATE feed_posts SET deleted_at = $2 WHERE id = $1`, postID, time.Now().UTC()), "delete post")
	})
}

// Vote sets the viewer's choice in a pool, voting again moves the vote
func (s *Source) Vote(ctx context.Context, poolID, option string) error {
	uid, err := viewer(ctx)
	if err != nil {
		return err
	}
	return s.tx(ctx, func(q store.RowQuerier) error {
		ok, err := store.Scalar[bool](ctx, q, `
SELECT EXISTS (
    SELECT 1 FROM feed_posts p, jsonb_array_elements(p.poll->'options') o
    WHERE p.deleted_at IS NULL AND p.poll->>'poolId' = $1 AND o->>'id' = $2
)`, poolID, option)
		if err != nil {
			return dbErr(err, "check pool option")
		}
		if !ok {
			return perr.WithField(perr.NotFoundf("pool %s has no option %s", poolID, option), "option")
		}
		_, err = q.Exec(ctx, `
INSERT INTO pool_votes (pool_id, user_id, option_id) VALUES ($1, $2, $3)
ON CONFLICT (pool_id, user_id) DO UPDATE SET option_id = EXCLUDED.option_id, created_at = now()`, poolID, uid, option)
		return dbErr(err, "upsert pool vote")
	})
}

// VoteComment sets the viewer's direction on a comment
func (s *Source) VoteComment(ctx context.Context, commentID string, dir domain.VoteDirection) error {
	uid, err := viewer(ctx)
	if err != nil {
		return err
	}
	d, err := direction(dir)
	if err != nil {
		return err
	}
	if err := commentNotFound(commentID); err != nil {
		return err
	}
	return s.tx(ctx, func(q store.RowQuerier) error {
		ok, err := store.Scalar[bool](ctx, q, `SELECT EXISTS (SELECT 1 FROM post_comments WHERE id = $1::uuid)`, commentID)
		if err != nil {
			return dbErr(err, "check comment")
		}
		if !ok {
			return perr.WithField(perr.NotFoundf("comment %s not found", commentID), "comment_id")
		}
		_, err = q.Exec(ctx, `
INSERT INTO comment_votes (comment_id, user_id, direction) VALUES ($1::uuid, $2, $3)
ON CONFLICT (comment_id, user_id) DO UPDATE SET direction = EXCLUDED.direction`, commentID, uid, d)
		return dbErr(err, "upsert comment vote")
	})
}

func direction(dir domain.VoteDirection) (int16, error) {
	switch dir {
	case domain.VoteUp:
		return 1, nil
	case domain.VoteDown:
		return -1, nil
	}
	return 0, perr.WithField(perr.InvalidArgf("vote direction must be up or down"), "direction")
}
