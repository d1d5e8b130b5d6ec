package httpapi

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"feedweave/internal/core/normalize"
	perr "feedweave/internal/platform/errors"
	"feedweave/internal/services/feed/domain"
)

var _ domain.Upstream = (*Client)(nil)

type commentsResponse struct {
	Comments []domain.Comment `json:"comments"`
}

type createCommentRequest struct {
	Content  string `json:"content"`
	ParentID string `json:"parent_id,omitempty"`
}

type voteRequest struct {
	Option string `json:"option"`
}

type commentVoteRequest struct {
	Direction domain.VoteDirection `json:"direction"`
}

func pathID(prefix, id, suffix string) string {
	return prefix + url.PathEscape(id) + suffix
}

// Feed fetches one page of the viewer's feed
func (c *Client) Feed(ctx context.Context, q domain.FeedQuery) (domain.FeedPage, error) {
	v := url.Values{}
	v.Set("limit", strconv.Itoa(q.Limit))
	v.Set("offset", strconv.Itoa(q.Offset))
	if q.Filter != "" {
		v.Set("filter", q.Filter)
	}
	var out domain.FeedPage
	if err := c.do(ctx, http.MethodGet, "/feed?"+v.Encode(), nil, &out); err != nil {
		return domain.FeedPage{}, perr.WithOp(err, "upstream.Feed")
	}
	return out, nil
}

// Post fetches a single post for deep links
func (c *Client) Post(ctx context.Context, id string) (normalize.RawPost, error) {
	var out domain.FeedPage
	if err := c.do(ctx, http.MethodGet, "/feed?post_id="+url.QueryEscape(id), nil, &out); err != nil {
		return normalize.RawPost{}, perr.WithOp(err, "upstream.Post")
	}
	for _, p := range out.Posts {
		if p.ID == id {
			return p, nil
		}
	}
	return normalize.RawPost{}, perr.WithField(perr.NotFoundf("post %s not found", id), "post_id")
}

// Like likes a post and returns the server count
func (c *Client) Like(ctx context.Context, postID string) (domain.LikeResult, error) {
	var out domain.LikeResult
	err := c.do(ctx, http.MethodPost, pathID("/posts/", postID, "/like"), nil, &out)
	return out, perr.WithOp(err, "upstream.Like")
}

// Unlike removes a like and returns the server count
func (c *Client) Unlike(ctx context.Context, postID string) (domain.LikeResult, error) {
	var out domain.LikeResult
	err := c.do(ctx, http.MethodDelete, pathID("/posts/", postID, "/like"), nil, &out)
	return out, perr.WithOp(err, "upstream.Unlike")
}

// Comments lists comments of a post
func (c *Client) Comments(ctx context.Context, postID string) ([]domain.Comment, error) {
	var out commentsResponse
	if err := c.do(ctx, http.MethodGet, pathID("/posts/", postID, "/comments"), nil, &out); err != nil {
		return nil, perr.WithOp(err, "upstream.Comments")
	}
	for i := range out.Comments {
		if out.Comments[i].PostID == "" {
			out.Comments[i].PostID = postID
		}
	}
	return out.Comments, nil
}

// CreateComment posts a comment and returns the stored comment
func (c *Client) CreateComment(ctx context.Context, in domain.CommentInput) (domain.Comment, error) {
	var out domain.Comment
	body := createCommentRequest{Content: in.Content, ParentID: in.ParentID}
	if err := c.do(ctx, http.MethodPost, pathID("/posts/", in.PostID, "/comments"), body, &out); err != nil {
		return domain.Comment{}, perr.WithOp(err, "upstream.CreateComment")
	}
	if out.PostID == "" {
		out.PostID = in.PostID
	}
	return out, nil
}

// DeleteComment deletes a comment
func (c *Client) DeleteComment(ctx context.Context, commentID string) error {
	return perr.WithOp(c.do(ctx, http.MethodDelete, pathID("/comments/", commentID, ""), nil, nil), "upstream.DeleteComment")
}

// DeletePost deletes a post
func (c *Client) DeletePost(ctx context.Context, postID string) error {
	return perr.WithOp(c.do(ctx, http.MethodDelete, pathID("/posts/", postID, ""), nil, nil), "upstream.DeletePost")
}

// Vote casts the viewer's vote in a pool
func (c *Client) Vote(ctx context.Context, poolID, option string) error {
	return perr.WithOp(c.do(ctx, http.MethodPost, pathID("/pools/", poolID, "/vote"), voteRequest{Option: option}, nil), "upstream.Vote")
}

// VoteComment up or down votes a comment
func (c *Client) VoteComment(ctx context.Context, commentID string, dir domain.VoteDirection) error {
	return perr.WithOp(c.do(ctx, http.MethodPost, pathID("/comments/", commentID, "/vote"), commentVoteRequest{Direction: dir}, nil), "upstream.VoteComment")
}
