// Package httpclient talks to the blog service over its REST API.
package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/UkralStul/post-comments/internal/domain"
	"github.com/UkralStul/post-comments/internal/remote"
)

// DefaultTimeout bounds a single request when Config.Timeout is zero.
const DefaultTimeout = 10 * time.Second

// DefaultViewerCookie is the cookie the blog service reads the user id from.
const DefaultViewerCookie = "userId"

// Config configures a Client.
type Config struct {
	BaseURL      string
	Timeout      time.Duration
	ViewerCookie string
}

// Client implements remote.Service against the blog service REST API.
type Client struct {
	baseURL      *url.URL
	httpClient   *http.Client
	viewerCookie string
	logger       zerolog.Logger
}

var _ remote.Service = (*Client)(nil)

// New creates a client for the blog service at cfg.BaseURL.
func New(cfg Config, logger zerolog.Logger) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("base url %q must be absolute", cfg.BaseURL)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	cookie := cfg.ViewerCookie
	if cookie == "" {
		cookie = DefaultViewerCookie
	}

	return &Client{
		baseURL:      base,
		httpClient:   &http.Client{Timeout: timeout},
		viewerCookie: cookie,
		logger:       logger,
	}, nil
}

func (c *Client) ListPosts(ctx context.Context) ([]domain.PostSummary, error) {
	var posts []domain.PostSummary
	if err := c.do(ctx, http.MethodGet, "/posts", nil, &posts); err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	return posts, nil
}

func (c *Client) GetPost(ctx context.Context, postID string) (*domain.Post, error) {
	var post domain.Post
	if err := c.do(ctx, http.MethodGet, "/posts/"+url.PathEscape(postID), nil, &post); err != nil {
		return nil, fmt.Errorf("get post %s: %w", postID, err)
	}
	return &post, nil
}

func (c *Client) CreateComment(ctx context.Context, in remote.CreateCommentInput) (*domain.Comment, error) {
	var comment domain.Comment
	if err := c.do(ctx, http.MethodPost, commentsPath(in.PostID), in, &comment); err != nil {
		return nil, fmt.Errorf("create comment: %w", err)
	}
	return &comment, nil
}

func (c *Client) UpdateComment(ctx context.Context, in remote.UpdateCommentInput) (*domain.Comment, error) {
	var comment domain.Comment
	if err := c.do(ctx, http.MethodPut, commentPath(in.PostID, in.ID), in, &comment); err != nil {
		return nil, fmt.Errorf("update comment %s: %w", in.ID, err)
	}
	return &comment, nil
}

func (c *Client) DeleteComment(ctx context.Context, in remote.DeleteCommentInput) (remote.DeleteCommentResult, error) {
	var res remote.DeleteCommentResult
	if err := c.do(ctx, http.MethodDelete, commentPath(in.PostID, in.ID), nil, &res); err != nil {
		return remote.DeleteCommentResult{}, fmt.Errorf("delete comment %s: %w", in.ID, err)
	}
	return res, nil
}

func (c *Client) ToggleCommentLike(ctx context.Context, in remote.ToggleLikeInput) (remote.ToggleLikeResult, error) {
	var res remote.ToggleLikeResult
	if err := c.do(ctx, http.MethodPost, commentPath(in.PostID, in.ID)+"/toggleLike", nil, &res); err != nil {
		return remote.ToggleLikeResult{}, fmt.Errorf("toggle like %s: %w", in.ID, err)
	}
	return res, nil
}

func commentsPath(postID string) string {
	return "/posts/" + url.PathEscape(postID) + "/comments"
}

func commentPath(postID, id string) string {
	return commentsPath(postID) + "/" + url.PathEscape(id)
}

// errorBody is the shape of every non-2xx response.
type errorBody struct {
	Message string `json:"message"`
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reqBody = bytes.NewReader(buf)
	}

	u := c.baseURL.JoinPath(path)
	req, err := http.NewRequestWithContext(ctx, method, u.String(), reqBody)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if viewer, ok := remote.ViewerFrom(ctx); ok {
		req.AddCookie(&http.Cookie{Name: c.viewerCookie, Value: viewer})
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	c.logger.Debug().
		Str("method", method).
		Str("url", u.String()).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("blog service request")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	rerr := &remote.Error{Status: resp.StatusCode, Message: remote.DefaultMessage}
	var body errorBody
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&body); err == nil && body.Message != "" {
		rerr.Message = body.Message
	}
	return rerr
}
