// Package http provides http transport for feed sessions
package http

import (
	stdhttp "net/http"

	"feedweave/internal/modkit/httpkit"
	"feedweave/internal/platform/logger"
	"feedweave/internal/services/feed/domain"
	"feedweave/internal/services/feed/stream"

	"github.com/gorilla/websocket"
)

// Stream carries the websocket side of the transport, a nil Hub disables it
type Stream struct {
	Hub      *stream.Hub
	Upgrader *websocket.Upgrader
}

// Register mounts session endpoints on the given router
func Register(r httpkit.Router, s domain.ServicePort, ws Stream) {
	h := &handlers{svc: s, ws: ws}

	r.Route("/sessions", func(sr httpkit.Router) {
		httpkit.PostJSON[domain.OpenInput](sr, "/", h.open)

		sr.Route("/{sid}", func(one httpkit.Router) {
			one.Use(sessionScope)
			httpkit.Get(one, "/", h.snapshot)
			httpkit.Delete(one, "/", h.end)
			httpkit.Post(one, "/more", h.more)
			httpkit.PutJSON[domain.FilterInput](one, "/filter", h.filter)
			httpkit.PostJSON[domain.HighlightInput](one, "/highlight", h.highlight)

			// posts
			httpkit.Post(one, "/posts/{pid}/like", h.like)
			httpkit.Delete(one, "/posts/{pid}", h.deletePost)
			httpkit.Post(one, "/posts/{pid}/hide", h.hide)
			httpkit.PostJSON[domain.VoteInput](one, "/posts/{pid}/vote", h.vote)

			// comments
			httpkit.Get(one, "/posts/{pid}/comments", h.comments)
			httpkit.PutJSON[domain.DraftInput](one, "/posts/{pid}/draft", h.draft)
			httpkit.PostJSON[domain.CommentSubmitInput](one, "/posts/{pid}/comments", h.submitComment)
			httpkit.Delete(one, "/posts/{pid}/comments/{cid}", h.deleteComment)
			httpkit.PostJSON[domain.CommentVoteInput](one, "/comments/{cid}/vote", h.voteComment)

			if ws.Hub != nil {
				one.Get("/stream", h.stream)
			}
		})
	})
}

// sessionScope tags the request context so logger.C carries session_id
func sessionScope(next stdhttp.Handler) stdhttp.Handler {
	return stdhttp.HandlerFunc(func(w stdhttp.ResponseWriter, r *stdhttp.Request) {
		ctx := logger.WithSession(r.Context(), httpkit.Param(r, "sid"))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type handlers struct {
	svc domain.ServicePort
	ws  Stream
}

func snapshot(s domain.Snapshot, err error) (any, error) {
	if err != nil {
		return nil, err
	}
	return Render(s), nil
}

func ack(a domain.Ack, err error) (any, error) {
	if err != nil {
		return nil, err
	}
	out := AckWire{Accepted: a.Accepted, Snapshot: Render(a.Snapshot)}
	if !a.Accepted {
		return httpkit.OK(out), nil
	}
	return httpkit.Accepted(out), nil
}

// swagger:route POST /feed/sessions Feed feedOpen
// @Summary Open a feed session
// @Tags Feed
// @Accept json
// @Produce json
// @Param payload body domain.OpenInput true "Session options"
// @Success 201 {object} SnapshotWire "created"
// @Router /feed/sessions [post]
func (h *handlers) open(r *stdhttp.Request, in domain.OpenInput) (any, error) {
	s, err := h.svc.Open(r.Context(), in)
	if err != nil {
		return nil, err
	}
	return httpkit.Created(Render(s)), nil
}

// swagger:route GET /feed/sessions/{sid} Feed feedSnapshot
// @Summary Current composed feed
// @Tags Feed
// @Produce json
// @Param sid path string true "Session id"
// @Success 200 {object} SnapshotWire "ok"
// @Router /feed/sessions/{sid} [get]
func (h *handlers) snapshot(r *stdhttp.Request) (any, error) {
	return snapshot(h.svc.Snapshot(r.Context(), httpkit.Param(r, "sid")))
}

// swagger:route DELETE /feed/sessions/{sid} Feed feedEnd
// @Summary End a session
// @Tags Feed
// @Param sid path string true "Session id"
// @Success 204 "ended"
// @Router /feed/sessions/{sid} [delete]
func (h *handlers) end(r *stdhttp.Request) (any, error) {
	if err := h.svc.End(r.Context(), httpkit.Param(r, "sid")); err != nil {
		return nil, err
	}
	return httpkit.NoContent(), nil
}

// swagger:route POST /feed/sessions/{sid}/more Feed feedMore
// @Summary Load the next page
// @Tags Feed
// @Produce json
// @Param sid path string true "Session id"
// @Success 200 {object} SnapshotWire "ok"
// @Router /feed/sessions/{sid}/more [post]
func (h *handlers) more(r *stdhttp.Request) (any, error) {
	return snapshot(h.svc.More(r.Context(), httpkit.Param(r, "sid")))
}

// swagger:route PUT /feed/sessions/{sid}/filter Feed feedFilter
// @Summary Change the filter and restart pagination
// @Tags Feed
// @Accept json
// @Produce json
// @Param sid path string true "Session id"
// @Param payload body domain.FilterInput true "Filter"
// @Success 200 {object} SnapshotWire "ok"
// @Router /feed/sessions/{sid}/filter [put]
func (h *handlers) filter(r *stdhttp.Request, in domain.FilterInput) (any, error) {
	return snapshot(h.svc.SetFilter(r.Context(), httpkit.Param(r, "sid"), in))
}

// swagger:route POST /feed/sessions/{sid}/highlight Feed feedHighlight
// @Summary Inject a deep-linked post
// @Tags Feed
// @Accept json
// @Produce json
// @Param sid path string true "Session id"
// @Param payload body domain.HighlightInput true "Post"
// @Success 200 {object} SnapshotWire "ok"
// @Router /feed/sessions/{sid}/highlight [post]
func (h *handlers) highlight(r *stdhttp.Request, in domain.HighlightInput) (any, error) {
	return snapshot(h.svc.Highlight(r.Context(), httpkit.Param(r, "sid"), in))
}

// swagger:route POST /feed/sessions/{sid}/posts/{pid}/like Feed feedLike
// @Summary Toggle a like
// @Tags Feed
// @Produce json
// @Param sid path string true "Session id"
// @Param pid path string true "Post or card id"
// @Success 202 {object} AckWire "applied"
// @Success 200 {object} AckWire "already in flight"
// @Router /feed/sessions/{sid}/posts/{pid}/like [post]
func (h *handlers) like(r *stdhttp.Request) (any, error) {
	return ack(h.svc.ToggleLike(r.Context(), httpkit.Param(r, "sid"), httpkit.Param(r, "pid")))
}

// swagger:route DELETE /feed/sessions/{sid}/posts/{pid} Feed feedDeletePost
// @Summary Delete an own post
// @Tags Feed
// @Produce json
// @Param sid path string true "Session id"
// @Param pid path string true "Post or card id"
// @Success 202 {object} AckWire "applied"
// @Router /feed/sessions/{sid}/posts/{pid} [delete]
func (h *handlers) deletePost(r *stdhttp.Request) (any, error) {
	return ack(h.svc.DeletePost(r.Context(), httpkit.Param(r, "sid"), httpkit.Param(r, "pid")))
}

// swagger:route POST /feed/sessions/{sid}/posts/{pid}/hide Feed feedHide
// @Summary Hide an own post
// @Tags Feed
// @Produce json
// @Param sid path string true "Session id"
// @Param pid path string true "Post or card id"
// @Success 202 {object} AckWire "applied"
// @Router /feed/sessions/{sid}/posts/{pid}/hide [post]
func (h *handlers) hide(r *stdhttp.Request) (any, error) {
	return ack(h.svc.Hide(r.Context(), httpkit.Param(r, "sid"), httpkit.Param(r, "pid")))
}

// swagger:route POST /feed/sessions/{sid}/posts/{pid}/vote Feed feedVote
// @Summary Vote in a poll or prediction
// @Tags Feed
// @Accept json
// @Produce json
// @Param sid path string true "Session id"
// @Param pid path string true "Post id"
// @Param payload body domain.VoteInput true "Option"
// @Success 202 {object} AckWire "applied"
// @Router /feed/sessions/{sid}/posts/{pid}/vote [post]
func (h *handlers) vote(r *stdhttp.Request, in domain.VoteInput) (any, error) {
	return ack(h.svc.Vote(r.Context(), httpkit.Param(r, "sid"), httpkit.Param(r, "pid"), in))
}

// swagger:route GET /feed/sessions/{sid}/posts/{pid}/comments Feed feedComments
// @Summary Load comments of a post
// @Tags Feed
// @Produce json
// @Param sid path string true "Session id"
// @Param pid path string true "Post id"
// @Success 200 {array} domain.Comment "ok"
// @Router /feed/sessions/{sid}/posts/{pid}/comments [get]
func (h *handlers) comments(r *stdhttp.Request) (any, error) {
	return h.svc.Comments(r.Context(), httpkit.Param(r, "sid"), httpkit.Param(r, "pid"))
}

// swagger:route PUT /feed/sessions/{sid}/posts/{pid}/draft Feed feedDraft
// @Summary Store a comment draft
// @Tags Feed
// @Accept json
// @Param sid path string true "Session id"
// @Param pid path string true "Post id"
// @Param payload body domain.DraftInput true "Draft"
// @Success 204 "stored"
// @Router /feed/sessions/{sid}/posts/{pid}/draft [put]
func (h *handlers) draft(r *stdhttp.Request, in domain.DraftInput) (any, error) {
	if err := h.svc.SetDraft(r.Context(), httpkit.Param(r, "sid"), httpkit.Param(r, "pid"), in); err != nil {
		return nil, err
	}
	return httpkit.NoContent(), nil
}

// swagger:route POST /feed/sessions/{sid}/posts/{pid}/comments Feed feedSubmitComment
// @Summary Submit a comment or the stored draft
// @Tags Feed
// @Accept json
// @Produce json
// @Param sid path string true "Session id"
// @Param pid path string true "Post id"
// @Param payload body domain.CommentSubmitInput true "Comment"
// @Success 202 {object} AckWire "applied"
// @Router /feed/sessions/{sid}/posts/{pid}/comments [post]
func (h *handlers) submitComment(r *stdhttp.Request, in domain.CommentSubmitInput) (any, error) {
	return ack(h.svc.SubmitComment(r.Context(), httpkit.Param(r, "sid"), httpkit.Param(r, "pid"), in))
}

// swagger:route DELETE /feed/sessions/{sid}/posts/{pid}/comments/{cid} Feed feedDeleteComment
// @Summary Delete an own comment
// @Tags Feed
// @Produce json
// @Param sid path string true "Session id"
// @Param pid path string true "Post id"
// @Param cid path string true "Comment id"
// @Success 202 {object} AckWire "applied"
// @Router /feed/sessions/{sid}/posts/{pid}/comments/{cid} [delete]
func (h *handlers) deleteComment(r *stdhttp.Request) (any, error) {
	return ack(h.svc.DeleteComment(r.Context(), httpkit.Param(r, "sid"), httpkit.Param(r, "pid"), httpkit.Param(r, "cid")))
}

// swagger:route POST /feed/sessions/{sid}/comments/{cid}/vote Feed feedVoteComment
// @Summary Up or down vote a comment
// @Tags Feed
// @Accept json
// @Produce json
// @Param sid path string true "Session id"
// @Param cid path string true "Comment id"
// @Param payload body domain.CommentVoteInput true "Direction"
// @Success 202 {object} AckWire "applied"
// @Router /feed/sessions/{sid}/comments/{cid}/vote [post]
func (h *handlers) voteComment(r *stdhttp.Request, in domain.CommentVoteInput) (any, error) {
	return ack(h.svc.VoteComment(r.Context(), httpkit.Param(r, "sid"), httpkit.Param(r, "cid"), in))
}

// swagger:route GET /feed/sessions/{sid}/stream Feed feedStream
// @Summary Websocket stream of composed snapshots
// @Tags Feed
// @Param sid path string true "Session id"
// @Param access_token query string false "Bearer token for clients that cannot set headers"
// @Success 101 "switching protocols"
// @Router /feed/sessions/{sid}/stream [get]
func (h *handlers) stream(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	sid := httpkit.Param(r, "sid")
	if _, err := h.svc.Snapshot(r.Context(), sid); err != nil {
		httpkit.RespondError(w, r, err)
		return
	}
	up := h.ws.Upgrader
	if up == nil {
		up = stream.Upgrader(nil)
	}
	if err := h.ws.Hub.Serve(up, w, r, sid); err != nil {
		logger.C(r.Context()).Debug().Err(err).Msg("stream upgrade failed")
	}
}
