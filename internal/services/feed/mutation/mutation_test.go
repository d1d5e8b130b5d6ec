package mutation

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"feedweave/internal/core/activity"
	perr "feedweave/internal/platform/errors"
	"feedweave/internal/services/feed/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func post(id string, likes int, liked bool) activity.Activity {
	return activity.Activity{
		ID:         id,
		Kind:       activity.KindReview,
		User:       activity.User{ID: "u1"},
		Timestamp:  time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		Engagement: activity.Engagement{Likes: likes, LikedByCurrentUser: liked},
	}
}

func pollPost(id, pool, vote string) activity.Activity {
	a := post(id, 0, false)
	a.Kind = activity.KindPoll
	a.Poll = &activity.Poll{PoolID: pool, UserVote: vote, Options: []activity.PollOption{
		{ID: "yes", Label: "Yes", Votes: 3},
		{ID: "no", Label: "No", Votes: 1},
	}}
	return a
}

func seeded(pages map[int][]activity.Activity) *Manager {
	s := NewState()
	s.Pages = pages
	s.Overlay.Seed(pages[0])
	m := NewManager(s)
	n := 0
	m.newID = func() string { n++; return fmt.Sprintf("t%d", n) }
	return m
}

func likes(t *testing.T, m *Manager, id string) (int, bool) {
	t.Helper()
	a, ok := m.State().findPost(id)
	require.True(t, ok, "post %s missing", id)
	liked, _ := m.State().Overlay.Liked(id)
	return a.Engagement.Likes, liked
}

func TestBegin_DuplicateInFlight(t *testing.T) {
	m := seeded(map[int][]activity.Activity{0: {post("p1", 5, false)}})

	t1, err := m.Begin(Like{PostID: "p1", On: true})
	require.NoError(t, err)
	assert.Equal(t, "t1", t1.ID)
	assert.Equal(t, uint64(1), t1.Seq)
	assert.True(t, m.Busy(KindLike, "p1"))

	_, err = m.Begin(Like{PostID: "p1", On: true})
	require.ErrorIs(t, err, ErrDuplicate)
	assert.True(t, perr.IsCode(err, perr.ErrorCodeConflict))
	assert.Equal(t, 1, m.Pending())

	_, err = m.Succeed(t1, Result{Likes: 6})
	require.NoError(t, err)
	assert.False(t, m.Busy(KindLike, "p1"))
	assert.Equal(t, 0, m.Pending())

	_, err = m.Begin(Like{PostID: "p1", On: true})
	require.NoError(t, err)
}

func TestSettle_UnknownTicket(t *testing.T) {
	m := seeded(map[int][]activity.Activity{0: {post("p1", 5, false)}})
	_, err := m.Succeed(Ticket{ID: "nope"}, Result{})
	assert.True(t, perr.IsCode(err, perr.ErrorCodeNotFound))
}

func TestLike_ApplyAndSettle(t *testing.T) {
	m := seeded(map[int][]activity.Activity{0: {post("p1", 5, false)}, -1: {post("p1", 5, false)}})

	tk, err := m.Begin(Like{PostID: "p1", On: true})
	require.NoError(t, err)
	n, liked := likes(t, m, "p1")
	assert.Equal(t, 6, n)
	assert.True(t, liked)
	assert.Equal(t, 6, m.State().Pages[-1][0].Engagement.Likes, "highlight copy moves too")

	out, err := m.Succeed(tk, Result{Likes: 9})
	require.NoError(t, err)
	require.Len(t, out.Settled, 1)
	n, liked = likes(t, m, "p1")
	assert.Equal(t, 9, n)
	assert.True(t, liked)
}

func TestLike_SoleFailureRestoresSnapshot(t *testing.T) {
	m := seeded(map[int][]activity.Activity{0: {post("p1", 5, true), post("p2", 1, false)}})
	before := m.State().Clone()

	tk, err := m.Begin(Like{PostID: "p1", On: false})
	require.NoError(t, err)
	n, _ := likes(t, m, "p1")
	require.Equal(t, 4, n)

	out, err := m.Fail(tk, Result{})
	require.NoError(t, err)
	require.Len(t, out.RolledBack, 1)
	assert.Empty(t, out.Settled)
	assert.Equal(t, before, m.State())
}

func TestLike_NoDoubleCount(t *testing.T) {
	m := seeded(map[int][]activity.Activity{0: {post("p1", 5, true)}})
	_, err := m.Begin(Like{PostID: "p1", On: true})
	require.NoError(t, err)
	n, liked := likes(t, m, "p1")
	assert.Equal(t, 5, n)
	assert.True(t, liked)
}

// unlike then like on the same post, responses in either order
func TestLike_OutOfOrderResponses(t *testing.T) {
	type step struct {
		unlikeOK, likeOK bool
		likeFirst        bool
		wantLikes        int
		wantLiked        bool
	}
	cases := map[string]step{
		"both ok, like answers first":     {unlikeOK: true, likeOK: true, likeFirst: true, wantLikes: 12, wantLiked: true},
		"both ok, unlike answers first":   {unlikeOK: true, likeOK: true, wantLikes: 12, wantLiked: true},
		"unlike fails after like ok":      {likeOK: true, likeFirst: true, wantLikes: 12, wantLiked: true},
		"like fails after unlike ok":      {unlikeOK: true, wantLikes: 4, wantLiked: false},
		"both fail, like answers first":   {likeFirst: true, wantLikes: 5, wantLiked: true},
		"both fail, unlike answers first": {wantLikes: 5, wantLiked: true},
	}
	for name, c := range cases {
		t.Run(name, func(t *testing.T) {
			m := seeded(map[int][]activity.Activity{0: {post("p1", 5, true)}})
			un, err := m.Begin(Like{PostID: "p1", On: false})
			require.NoError(t, err)
			lk, err := m.Begin(Like{PostID: "p1", On: true})
			require.NoError(t, err)
			n, liked := likes(t, m, "p1")
			require.Equal(t, 5, n)
			require.True(t, liked)

			finish := func(tk Ticket, ok bool, server int) Outcome {
				var (
					out Outcome
					err error
				)
				if ok {
					out, err = m.Succeed(tk, Result{Likes: server})
				} else {
					out, err = m.Fail(tk, Result{})
				}
				require.NoError(t, err)
				return out
			}
			if c.likeFirst {
				out := finish(lk, c.likeOK, 12)
				assert.True(t, out.Waiting, "like parks behind the pending unlike")
				assert.Empty(t, out.Settled)
				finish(un, c.unlikeOK, 4)
			} else {
				finish(un, c.unlikeOK, 4)
				finish(lk, c.likeOK, 12)
			}

			n, liked = likes(t, m, "p1")
			assert.Equal(t, c.wantLikes, n)
			assert.Equal(t, c.wantLiked, liked)
			assert.Zero(t, m.Pending())
		})
	}
}

func TestSubmitComment_ClearsDraftAndAppends(t *testing.T) {
	m := seeded(map[int][]activity.Activity{0: {post("p1", 0, false)}})
	m.SetDraft("p1", "half written")
	m.SetComments("p1", []domain.Comment{{ID: "c1", PostID: "p1"}})

	tk, err := m.Begin(SubmitComment{PostID: "p1", Content: "half written"})
	require.NoError(t, err)
	assert.NotContains(t, m.State().Drafts, "p1")

	_, err = m.Succeed(tk, Result{Comment: &domain.Comment{ID: "c2", PostID: "p1"}})
	require.NoError(t, err)
	require.Len(t, m.State().Comments["p1"], 2)
	assert.Equal(t, "c2", m.State().Comments["p1"][1].ID)

	m.SetDraft("p1", "again")
	tk, err = m.Begin(SubmitComment{PostID: "p1", Content: "again"})
	require.NoError(t, err)
	_, err = m.Fail(tk, Result{})
	require.NoError(t, err)
	assert.NotContains(t, m.State().Drafts, "p1", "draft stays cleared after a failure")
	assert.Len(t, m.State().Comments["p1"], 2)
}

func TestDeletePost_RollbackRestoresPages(t *testing.T) {
	m := seeded(map[int][]activity.Activity{
		0: {post("p1", 0, false), post("p2", 0, false)},
		1: {post("p3", 0, false)},
	})
	before := m.State().Clone()

	tk, err := m.Begin(DeletePost{PostID: "c", IDs: []string{"p1", "p3"}})
	require.NoError(t, err)
	assert.Len(t, m.State().Pages[0], 1)
	assert.Empty(t, m.State().Pages[1])

	_, err = m.Fail(tk, Result{})
	require.NoError(t, err)
	assert.Equal(t, before.Pages, m.State().Pages)
}

func TestDeletePost_PartialFailureKeepsLandedDeletes(t *testing.T) {
	m := seeded(map[int][]activity.Activity{
		0: {post("p1", 0, false), post("p2", 0, false)},
		1: {post("p3", 0, false)},
	})
	cmd := DeletePost{PostID: "c", IDs: []string{"p1", "p2", "p3"}}
	tk, err := m.Begin(cmd)
	require.NoError(t, err)

	gw := &stubGateway{failID: "p2"}
	res, err := cmd.Send(context.Background(), gw)
	require.Error(t, err)
	assert.Equal(t, []string{"p1"}, res.Deleted)

	out, err := m.Fail(tk, res)
	require.NoError(t, err)
	require.Len(t, out.RolledBack, 1)
	_, ok := m.State().findPost("p1")
	assert.False(t, ok, "p1 is gone upstream")
	for _, id := range []string{"p2", "p3"} {
		_, ok := m.State().findPost(id)
		assert.True(t, ok, "%s restored", id)
	}
	assert.Equal(t, "p2", m.State().Pages[0][0].ID)
}

func TestDeletePost_RollbackSkippedAcrossEpoch(t *testing.T) {
	m := seeded(map[int][]activity.Activity{0: {post("p1", 0, false)}})
	tk, err := m.Begin(DeletePost{PostID: "p1"})
	require.NoError(t, err)

	m.Rebase(map[int][]activity.Activity{0: {post("p9", 0, false)}})
	_, err = m.Fail(tk, Result{})
	require.NoError(t, err)
	require.Len(t, m.State().Pages[0], 1)
	assert.Equal(t, "p9", m.State().Pages[0][0].ID)
}

func TestDeleteComment_Rollback(t *testing.T) {
	m := seeded(map[int][]activity.Activity{0: {post("p1", 0, false)}})
	list := []domain.Comment{{ID: "c1", PostID: "p1"}, {ID: "c2", PostID: "p1"}}
	m.SetComments("p1", list)

	tk, err := m.Begin(DeleteComment{PostID: "p1", CommentID: "c1"})
	require.NoError(t, err)
	require.Len(t, m.State().Comments["p1"], 1)

	_, err = m.Fail(tk, Result{})
	require.NoError(t, err)
	assert.Equal(t, list, m.State().Comments["p1"])
}

func votes(m *Manager, id string) map[string]int {
	a, _ := m.State().findPost(id)
	out := map[string]int{}
	for _, o := range a.Poll.Options {
		out[o.ID] = o.Votes
	}
	return out
}

func TestVote_MovesCountsAndRollsBack(t *testing.T) {
	m := seeded(map[int][]activity.Activity{0: {pollPost("p1", "pool1", "yes")}})
	before := m.State().Clone()

	tk, err := m.Begin(Vote{PostID: "p1", PoolID: "pool1", Option: "no"})
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"yes": 2, "no": 2}, votes(m, "p1"))
	v, _ := m.State().Overlay.PollVote("pool1")
	assert.Equal(t, "no", v)

	_, err = m.Fail(tk, Result{})
	require.NoError(t, err)
	assert.Equal(t, before, m.State())
}

func TestVote_FirstVoteOnlyAdds(t *testing.T) {
	m := seeded(map[int][]activity.Activity{0: {pollPost("p1", "pool1", "")}})
	_, err := m.Begin(Vote{PostID: "p1", PoolID: "pool1", Option: "yes"})
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"yes": 4, "no": 1}, votes(m, "p1"))
}

func TestCommentVote_Toggle(t *testing.T) {
	m := seeded(map[int][]activity.Activity{0: {post("p1", 0, false)}})
	m.SetComments("p1", []domain.Comment{{ID: "c1", PostID: "p1", Score: 3}})
	score := func() int { return m.State().Comments["p1"][0].Score }

	tk, err := m.Begin(CommentVote{CommentID: "c1", Direction: domain.VoteUp})
	require.NoError(t, err)
	assert.Equal(t, 4, score())
	_, err = m.Succeed(tk, Result{})
	require.NoError(t, err)

	tk, err = m.Begin(CommentVote{CommentID: "c1", Direction: domain.VoteDown})
	require.NoError(t, err)
	assert.Equal(t, 2, score())
	_, err = m.Succeed(tk, Result{})
	require.NoError(t, err)

	tk, err = m.Begin(CommentVote{CommentID: "c1", Direction: domain.VoteDown})
	require.NoError(t, err)
	assert.Equal(t, 3, score(), "same direction clears the vote")
	_, known := m.State().Overlay.CommentVote("c1")
	assert.False(t, known)

	_, err = m.Fail(tk, Result{})
	require.NoError(t, err)
	assert.Equal(t, 2, score())
	d, _ := m.State().Overlay.CommentVote("c1")
	assert.Equal(t, domain.VoteDown, d)
}

func TestHide_LocalOnly(t *testing.T) {
	m := seeded(map[int][]activity.Activity{0: {post("p1", 0, false)}})
	cmd := Hide{PostID: "p1"}
	tk, err := m.Begin(cmd)
	require.NoError(t, err)
	assert.True(t, m.State().Overlay.Hidden("p1"))

	res, err := cmd.Send(context.Background(), nil)
	require.NoError(t, err)
	_, err = m.Succeed(tk, res)
	require.NoError(t, err)
	assert.True(t, m.State().Overlay.Hidden("p1"))
}

type stubGateway struct {
	calls  []string
	err    error
	failID string
}

func (g *stubGateway) Like(_ context.Context, id string) (domain.LikeResult, error) {
	g.calls = append(g.calls, "like "+id)
	return domain.LikeResult{Likes: 7}, g.err
}
func (g *stubGateway) Unlike(_ context.Context, id string) (domain.LikeResult, error) {
	g.calls = append(g.calls, "unlike "+id)
	return domain.LikeResult{Likes: 6}, g.err
}
func (g *stubGateway) CreateComment(_ context.Context, in domain.CommentInput) (domain.Comment, error) {
	g.calls = append(g.calls, "comment "+in.PostID)
	return domain.Comment{ID: "c9", PostID: in.PostID, Content: in.Content}, g.err
}
func (g *stubGateway) DeleteComment(_ context.Context, id string) error {
	g.calls = append(g.calls, "delete-comment "+id)
	return g.err
}
func (g *stubGateway) DeletePost(_ context.Context, id string) error {
	g.calls = append(g.calls, "delete "+id)
	if g.failID == id {
		return errors.New("bad gateway")
	}
	return g.err
}
func (g *stubGateway) Vote(_ context.Context, pool, opt string) error {
	g.calls = append(g.calls, "vote "+pool+" "+opt)
	return g.err
}
func (g *stubGateway) VoteComment(_ context.Context, id string, d domain.VoteDirection) error {
	g.calls = append(g.calls, "cvote "+id+" "+string(d))
	return g.err
}

func TestCommands_Send(t *testing.T) {
	gw := &stubGateway{}
	ctx := context.Background()

	r, err := Like{PostID: "p1", On: true}.Send(ctx, gw)
	require.NoError(t, err)
	assert.Equal(t, 7, r.Likes)
	r, err = Like{PostID: "p1"}.Send(ctx, gw)
	require.NoError(t, err)
	assert.Equal(t, 6, r.Likes)
	r, err = SubmitComment{PostID: "p1", Content: "hi"}.Send(ctx, gw)
	require.NoError(t, err)
	require.NotNil(t, r.Comment)
	assert.Equal(t, "hi", r.Comment.Content)
	_, err = DeletePost{PostID: "c", IDs: []string{"p1", "p2"}}.Send(ctx, gw)
	require.NoError(t, err)
	_, err = DeleteComment{PostID: "p1", CommentID: "c1"}.Send(ctx, gw)
	require.NoError(t, err)
	_, err = Vote{PostID: "p1", PoolID: "pool1", Option: "yes"}.Send(ctx, gw)
	require.NoError(t, err)
	_, err = CommentVote{CommentID: "c1", Direction: domain.VoteUp}.Send(ctx, gw)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"like p1", "unlike p1", "comment p1", "delete p1", "delete p2",
		"delete-comment c1", "vote pool1 yes", "cvote c1 up",
	}, gw.calls)

	gw = &stubGateway{err: errors.New("offline")}
	_, err = DeletePost{PostID: "c", IDs: []string{"p1", "p2"}}.Send(ctx, gw)
	require.Error(t, err)
	assert.Equal(t, []string{"delete p1"}, gw.calls, "stops at the first failure")
	r, err = DeletePost{PostID: "c", IDs: []string{"p1", "p2"}}.Send(ctx, &stubGateway{})
	require.NoError(t, err)
	assert.Equal(t, []string{"p1", "p2"}, r.Deleted)
	r, err = SubmitComment{PostID: "p1"}.Send(ctx, gw)
	require.Error(t, err)
	assert.Nil(t, r.Comment)
}
