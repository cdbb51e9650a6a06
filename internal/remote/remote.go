// Package remote defines the contract with the blog service that owns posts
// and comments.
package remote

import (
	"context"
	"errors"

	"github.com/UkralStul/post-comments/internal/domain"
)

// CreateCommentInput - a new comment on a post; nil ParentID creates a root comment.
type CreateCommentInput struct {
	PostID   string  `json:"-"`
	Message  string  `json:"message"`
	ParentID *string `json:"parentId"`
}

// UpdateCommentInput - new message for an existing comment.
type UpdateCommentInput struct {
	PostID  string `json:"-"`
	ID      string `json:"-"`
	Message string `json:"message"`
}

// DeleteCommentInput identifies a comment to delete.
type DeleteCommentInput struct {
	PostID string
	ID     string
}

// DeleteCommentResult echoes the id of the deleted comment.
type DeleteCommentResult struct {
	ID string `json:"id"`
}

// ToggleLikeInput identifies the comment whose like is toggled for the viewer.
type ToggleLikeInput struct {
	PostID string
	ID     string
}

// ToggleLikeResult tells which way the like moved.
type ToggleLikeResult struct {
	AddLike bool `json:"addLike"`
}

// Service is the contract with the blog service. The viewer is taken from
// the context, see WithViewer.
type Service interface {
	ListPosts(ctx context.Context) ([]domain.PostSummary, error)
	GetPost(ctx context.Context, postID string) (*domain.Post, error)

	CreateComment(ctx context.Context, in CreateCommentInput) (*domain.Comment, error)
	UpdateComment(ctx context.Context, in UpdateCommentInput) (*domain.Comment, error)
	DeleteComment(ctx context.Context, in DeleteCommentInput) (DeleteCommentResult, error)
	ToggleCommentLike(ctx context.Context, in ToggleLikeInput) (ToggleLikeResult, error)
}

// Error is a failure reported by the blog service itself.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// DefaultMessage is shown when an error carries no message of its own.
const DefaultMessage = "Error"

// Message collapses err into the single line shown to the viewer.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var rerr *Error
	if errors.As(err, &rerr) && rerr.Message != "" {
		return rerr.Message
	}
	return DefaultMessage
}

type viewerKey struct{}

// WithViewer returns a context carrying the id of the user looking at the page.
func WithViewer(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, viewerKey{}, userID)
}

// ViewerFrom returns the viewer id stored by WithViewer.
func ViewerFrom(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(viewerKey{}).(string)
	return id, ok && id != ""
}
