package session

import (
	"context"
	"slices"
	"testing"
	"time"

	"feedweave/internal/core/activity"
	"feedweave/internal/core/normalize"
	perr "feedweave/internal/platform/errors"
	pnet "feedweave/internal/platform/net"
	"feedweave/internal/services/feed/domain"
	"feedweave/internal/services/feed/feedtest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func firstPage() []normalize.RawPost {
	t2 := feedtest.Post("t2", "u2", "thought", "someone else's thought", 2)
	t2.Engagement.Likes = 2
	return []normalize.RawPost{
		feedtest.Post("t1", "u1", "thought", "my first thought", 1),
		t2,
		feedtest.Post("t3", "u1", "thought", "my second thought", 3),
	}
}

func newSession(t *testing.T, up *feedtest.Upstream, pub domain.Publisher) *Session {
	t.Helper()
	s := New("s1", "u1", "", up, pub, Options{
		PageSize:        3,
		MaxInFlight:     1,
		MutationTimeout: time.Second,
		Now:             func() time.Time { return feedtest.Base },
	})
	t.Cleanup(s.Wait)
	return s
}

func loaded(t *testing.T, up *feedtest.Upstream) *Session {
	t.Helper()
	s := newSession(t, up, nil)
	_, err := s.LoadMore(context.Background())
	require.NoError(t, err)
	return s
}

func ids(snap domain.Snapshot) []string {
	out := make([]string, 0, len(snap.Feed.Entries))
	for _, e := range snap.Feed.Entries {
		out = append(out, e.ID())
	}
	return out
}

func entry(t *testing.T, snap domain.Snapshot, id string) activity.Entry {
	t.Helper()
	for _, e := range snap.Feed.Entries {
		if e.ID() == id {
			return e
		}
	}
	t.Fatalf("entry %s not in %v", id, ids(snap))
	return activity.Entry{}
}

func TestLoadMore_PagesUntilEmpty(t *testing.T) {
	up := feedtest.New("u1")
	up.SetPages("", firstPage())
	s := newSession(t, up, nil)
	ctx := context.Background()

	snap, err := s.LoadMore(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"t1", "t2", "t3"}, ids(snap))
	assert.Equal(t, "u1", snap.CurrentUserID)
	assert.False(t, snap.Exhausted)
	assert.True(t, entry(t, snap, "t1").Own)
	assert.False(t, entry(t, snap, "t2").Own)

	snap, err = s.LoadMore(ctx)
	require.NoError(t, err)
	assert.True(t, snap.Exhausted)
	assert.Equal(t, []string{"t1", "t2", "t3"}, ids(snap))

	snap, err = s.LoadMore(ctx)
	require.NoError(t, err)
	assert.True(t, snap.Exhausted)
	assert.Equal(t, []string{`feed "" 0`, `feed "" 3`}, up.Calls(), "no fetch once exhausted")
}

func TestLoadMore_DropsMalformedRecords(t *testing.T) {
	up := feedtest.New("u1")
	page := firstPage()
	page = append(page, feedtest.Post("bad", "", "thought", "no author", 4))
	up.SetPages("", page)

	snap, err := newSession(t, up, nil).LoadMore(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"t1", "t2", "t3"}, ids(snap))
	assert.False(t, snap.Exhausted)
}

func TestLoadMore_NetworkFailureQueuesNotice(t *testing.T) {
	up := feedtest.New("u1")
	up.SetPages("", firstPage())
	s := loaded(t, up)
	ctx := context.Background()
	before := s.Snapshot()

	up.FailFeed(perr.Unavailablef("upstream down"))
	snap, err := s.LoadMore(ctx)
	require.NoError(t, err)
	assert.Equal(t, ids(before), ids(snap))
	assert.False(t, snap.Exhausted)
	require.Len(t, snap.Notices, 1)
	assert.Equal(t, "warn", snap.Notices[0].Level)
	assert.Equal(t, feedtest.Base, snap.Notices[0].At)

	assert.Empty(t, s.Snapshot().Notices, "notices drain on read")

	up.FailFeed(nil)
	snap, err = s.LoadMore(ctx)
	require.NoError(t, err)
	assert.True(t, snap.Exhausted)
	assert.Equal(t, []string{`feed "" 0`, `feed "" 3`, `feed "" 3`}, up.Calls(), "the failed index is retried")
}

func TestSetFilter_DiscardsSupersededPage(t *testing.T) {
	up := feedtest.New("u1")
	up.SetPages("", firstPage())
	up.SetPages("books", []normalize.RawPost{feedtest.Post("b1", "u2", "thought", "on books", 5)})
	s := newSession(t, up, nil)
	ctx := context.Background()

	release := up.HoldFeed("")
	done := make(chan domain.Snapshot, 1)
	go func() {
		snap, _ := s.LoadMore(ctx)
		done <- snap
	}()
	require.Eventually(t, func() bool { return slices.Contains(up.Calls(), `feed "" 0`) }, time.Second, 5*time.Millisecond)

	snap, err := s.SetFilter(ctx, "books")
	require.NoError(t, err)
	assert.Equal(t, []string{"b1"}, ids(snap))
	assert.Equal(t, "books", snap.Filter)

	release()
	stale := <-done
	assert.Equal(t, []string{"b1"}, ids(stale))
	assert.Equal(t, []string{"b1"}, ids(s.Snapshot()))
}

func TestToggleLike_OptimisticThenServerCount(t *testing.T) {
	up := feedtest.New("u1")
	up.SetPages("", firstPage())
	s := loaded(t, up)
	ctx := pnet.WithToken(context.Background(), "tok-1")

	release := up.HoldSends()
	ack, err := s.ToggleLike(ctx, "t2")
	require.NoError(t, err)
	require.True(t, ack.Accepted)
	e := entry(t, ack.Snapshot, "t2")
	assert.Equal(t, 3, e.Activity.Engagement.Likes)
	assert.True(t, e.Activity.Engagement.LikedByCurrentUser)
	assert.Equal(t, 1, ack.Snapshot.Pending)

	release()
	s.Wait()
	snap := s.Snapshot()
	assert.Equal(t, 3, entry(t, snap, "t2").Activity.Engagement.Likes)
	assert.Zero(t, snap.Pending)

	calls, tokens := up.Calls(), up.Tokens()
	require.Equal(t, "like t2", calls[len(calls)-1])
	assert.Equal(t, "tok-1", tokens[len(tokens)-1], "bearer token forwarded to the async send")

	ack, err = s.ToggleLike(ctx, "t2")
	require.NoError(t, err)
	assert.False(t, entry(t, ack.Snapshot, "t2").Activity.Engagement.LikedByCurrentUser)
	s.Wait()
	assert.Equal(t, 2, entry(t, s.Snapshot(), "t2").Activity.Engagement.Likes)
}

func TestToggleLike_FailureRollsBack(t *testing.T) {
	up := feedtest.New("u1")
	up.SetPages("", firstPage())
	s := loaded(t, up)
	up.FailSends(perr.Unavailablef("upstream down"))

	ack, err := s.ToggleLike(context.Background(), "t2")
	require.NoError(t, err)
	assert.Equal(t, 3, entry(t, ack.Snapshot, "t2").Activity.Engagement.Likes)

	s.Wait()
	snap := s.Snapshot()
	e := entry(t, snap, "t2")
	assert.Equal(t, 2, e.Activity.Engagement.Likes)
	assert.False(t, e.Activity.Engagement.LikedByCurrentUser)
	require.Len(t, snap.Notices, 1)
	assert.Equal(t, "error", snap.Notices[0].Level)
}

func TestToggleLike_UnknownPost(t *testing.T) {
	up := feedtest.New("u1")
	up.SetPages("", firstPage())
	_, err := loaded(t, up).ToggleLike(context.Background(), "nope")
	assert.True(t, perr.IsCode(err, perr.ErrorCodeNotFound))
}

func TestSubmitComment_DuplicateStillClearsDraft(t *testing.T) {
	up := feedtest.New("u1")
	up.SetPages("", firstPage())
	s := loaded(t, up)
	ctx := context.Background()

	require.NoError(t, s.SetDraft("t2", "nice one"))
	assert.Equal(t, "nice one", s.Draft("t2"))

	release := up.HoldSends()
	ack, err := s.SubmitComment(ctx, "t2", "", "")
	require.NoError(t, err)
	assert.True(t, ack.Accepted)
	assert.Empty(t, s.Draft("t2"))

	require.NoError(t, s.SetDraft("t2", "again"))
	ack, err = s.SubmitComment(ctx, "t2", "again", "")
	require.NoError(t, err)
	assert.False(t, ack.Accepted)
	assert.Empty(t, s.Draft("t2"))

	release()
	s.Wait()
	n := 0
	for _, c := range up.Calls() {
		if c == "create-comment t2 nice one" {
			n++
		}
	}
	assert.Equal(t, 1, n)

	_, err = s.SubmitComment(ctx, "t2", "  ", "")
	assert.True(t, perr.IsCode(err, perr.ErrorCodeInvalidArgument))
}

func TestComments_LoadVoteAndDelete(t *testing.T) {
	up := feedtest.New("u1")
	up.SetPages("", firstPage())
	up.SetComments("t1", []domain.Comment{
		{ID: "c1", PostID: "t1", User: activity.User{ID: "u1"}, Score: 1},
		{ID: "c2", PostID: "t1", User: activity.User{ID: "u2"}},
	})
	s := loaded(t, up)
	ctx := context.Background()

	list, err := s.Comments(ctx, "t1")
	require.NoError(t, err)
	require.Len(t, list, 2)

	ack, err := s.VoteComment(ctx, "c1", domain.VoteUp)
	require.NoError(t, err)
	assert.True(t, ack.Accepted)
	s.mu.Lock()
	assert.Equal(t, 2, s.commentsLocked("t1")[0].Score)
	s.mu.Unlock()

	_, err = s.VoteComment(ctx, "c1", "sideways")
	assert.True(t, perr.IsCode(err, perr.ErrorCodeInvalidArgument))

	_, err = s.DeleteComment(ctx, "t1", "c2")
	assert.True(t, perr.IsCode(err, perr.ErrorCodeForbidden))
	_, err = s.DeleteComment(ctx, "t1", "c9")
	assert.True(t, perr.IsCode(err, perr.ErrorCodeNotFound))

	ack, err = s.DeleteComment(ctx, "t1", "c1")
	require.NoError(t, err)
	assert.True(t, ack.Accepted)
	s.Wait()
	s.mu.Lock()
	got := s.commentsLocked("t1")
	s.mu.Unlock()
	require.Len(t, got, 1)
	assert.Equal(t, "c2", got[0].ID)
	assert.Contains(t, up.Calls(), "vote-comment c1 up")
	assert.Contains(t, up.Calls(), "delete-comment c1")
}

func TestDeletePost_OwnerOnlyAndRollback(t *testing.T) {
	up := feedtest.New("u1")
	up.SetPages("", firstPage())
	s := loaded(t, up)
	ctx := context.Background()

	_, err := s.DeletePost(ctx, "t2")
	assert.True(t, perr.IsCode(err, perr.ErrorCodeForbidden))

	ack, err := s.DeletePost(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, []string{"t2", "t3"}, ids(ack.Snapshot))
	s.Wait()
	assert.Equal(t, []string{"t2", "t3"}, ids(s.Snapshot()))

	up.FailSends(perr.Unavailablef("upstream down"))
	ack, err = s.DeletePost(ctx, "t3")
	require.NoError(t, err)
	assert.Equal(t, []string{"t2"}, ids(ack.Snapshot))
	s.Wait()
	assert.Equal(t, []string{"t2", "t3"}, ids(s.Snapshot()))
}

func TestHide_OwnPost(t *testing.T) {
	up := feedtest.New("u1")
	up.SetPages("", firstPage())
	s := loaded(t, up)
	ctx := context.Background()

	_, err := s.Hide(ctx, "t2")
	assert.True(t, perr.IsCode(err, perr.ErrorCodeForbidden))

	ack, err := s.Hide(ctx, "t3")
	require.NoError(t, err)
	assert.Equal(t, []string{"t1", "t2"}, ids(ack.Snapshot))
	assert.Equal(t, 1, ack.Snapshot.Feed.Stats.Hidden)
	s.Wait()
	assert.Equal(t, []string{"t1", "t2"}, ids(s.Snapshot()))
}

func TestConsolidatedCard_RoutesToOriginals(t *testing.T) {
	f1 := feedtest.Post("f1", "u1", "finished", "", 5)
	f1.Media = &normalize.RawMedia{Title: "Dune"}
	f2 := feedtest.Post("f2", "u1", "finished", "", 10)
	f2.Media = &normalize.RawMedia{Title: "Emma"}
	up := feedtest.New("u1")
	up.SetPages("", []normalize.RawPost{f1, f2})
	s := loaded(t, up)
	ctx := context.Background()

	snap := s.Snapshot()
	require.Len(t, snap.Feed.Entries, 1)
	card := snap.Feed.Entries[0]
	require.Equal(t, activity.EntryConsolidated, card.Kind)
	first := card.Consolidated.OriginalActivityIDs[0]

	_, err := s.ToggleLike(ctx, card.ID())
	require.NoError(t, err)
	s.Wait()
	assert.Contains(t, up.Calls(), "like "+first)

	ack, err := s.DeletePost(ctx, card.ID())
	require.NoError(t, err)
	assert.Empty(t, ack.Snapshot.Feed.Entries)
	s.Wait()
	assert.Contains(t, up.Calls(), "delete-post f1")
	assert.Contains(t, up.Calls(), "delete-post f2")
}

func TestVote_ValidatesOption(t *testing.T) {
	q := feedtest.Post("q1", "u2", "poll", "which one", 1)
	q.Poll = &normalize.RawPoll{PoolID: "pool1", Options: []normalize.RawOption{
		{ID: "yes", Label: "Yes", Votes: 1},
		{ID: "no", Label: "No", Votes: 4},
	}}
	up := feedtest.New("u1")
	up.SetPages("", []normalize.RawPost{q})
	s := loaded(t, up)
	ctx := context.Background()

	_, err := s.Vote(ctx, "q1", "maybe")
	assert.True(t, perr.IsCode(err, perr.ErrorCodeInvalidArgument))

	ack, err := s.Vote(ctx, "q1", "yes")
	require.NoError(t, err)
	p := entry(t, ack.Snapshot, "q1").Activity.Poll
	assert.Equal(t, "yes", p.UserVote)
	assert.Equal(t, 2, p.Options[0].Votes)
	s.Wait()
	assert.Contains(t, up.Calls(), "vote pool1 yes")
}

func TestHighlight_FetchedOrInPlace(t *testing.T) {
	up := feedtest.New("u1")
	up.SetPages("", firstPage())
	up.AddPost(feedtest.Post("deep", "u3", "thought", "linked from elsewhere", 600))
	s := loaded(t, up)
	ctx := context.Background()

	snap, err := s.Highlight(ctx, "deep")
	require.NoError(t, err)
	assert.Equal(t, "deep", snap.Highlight)
	require.NotEmpty(t, snap.Feed.Entries)
	assert.Equal(t, "deep", snap.Feed.Entries[0].ID())
	assert.True(t, snap.Feed.Entries[0].Highlighted)

	snap, err = s.Highlight(ctx, "t2")
	require.NoError(t, err)
	assert.True(t, entry(t, snap, "t2").Highlighted)
	assert.NotContains(t, ids(snap), "deep")

	_, err = s.Highlight(ctx, "missing")
	assert.True(t, perr.IsCode(err, perr.ErrorCodeNotFound))
}

func TestPublishAndClose(t *testing.T) {
	up := feedtest.New("u1")
	up.SetPages("", firstPage())
	pub := &feedtest.Publisher{}
	s := newSession(t, up, pub)
	ctx := context.Background()

	snap, err := s.LoadMore(ctx)
	require.NoError(t, err)
	last, ok := pub.Last()
	require.True(t, ok)
	assert.Equal(t, snap.Version, last.Version)
	assert.Equal(t, ids(snap), ids(last))

	s.Close()
	s.Close()
	assert.True(t, s.Closed())
	assert.Equal(t, []string{"s1"}, pub.Closed())

	_, err = s.LoadMore(ctx)
	assert.True(t, perr.IsCode(err, perr.ErrorCodeNotFound))
	_, err = s.ToggleLike(ctx, "t1")
	assert.True(t, perr.IsCode(err, perr.ErrorCodeNotFound))
}
