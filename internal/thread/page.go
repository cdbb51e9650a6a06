// Package thread runs the comment page of one viewer: it sends the viewer's
// actions to the blog service and applies the confirmed result to the page's
// comment tree.
//
// Every action is two-phase. The remote call is issued without holding any
// lock; once it returns, the matching tree mutation is applied under the
// page lock. A failed call leaves the tree untouched and records a message
// on the action's slot. A response for a closed page is dropped.
package thread

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/UkralStul/post-comments/internal/commenttree"
	"github.com/UkralStul/post-comments/internal/domain"
	"github.com/UkralStul/post-comments/internal/metrics"
	"github.com/UkralStul/post-comments/internal/remote"
)

// Action names one kind of user action on a comment.
type Action string

const (
	ActionReply  Action = "reply"
	ActionEdit   Action = "edit"
	ActionDelete Action = "delete"
	ActionLike   Action = "like"
)

var (
	// ErrSlotBusy is returned when the same action on the same comment is
	// still waiting for the blog service.
	ErrSlotBusy = errors.New("action already in progress")
	// ErrPageClosed is returned for actions on, or responses for, a closed page.
	ErrPageClosed = errors.New("page closed")
	// ErrPageNotFound is returned by the registry for unknown or expired pages.
	ErrPageNotFound = errors.New("page not found")
	// ErrNotAllowed is returned when the viewer may not edit or delete a comment.
	ErrNotAllowed = errors.New("not allowed")
)

// rootSlot identifies the top-level comment form.
const rootSlot = ""

type slotKey struct {
	commentID string
	action    Action
}

// Slot is the state of one action control.
type Slot struct {
	Busy  bool
	Error string
	// Draft is the text of a failed reply or edit, kept for the form.
	Draft string
}

// Page is one viewer's open comment page for one post.
type Page struct {
	ID       string
	PostID   string
	Title    string
	Body     string
	ViewerID string

	svc     remote.Service
	metrics *metrics.Recorder
	logger  zerolog.Logger

	mu       sync.Mutex
	store    *commenttree.Store
	slots    map[slotKey]*Slot
	hidden   map[string]bool
	replying map[string]bool
	editing  map[string]bool
	closed   bool
}

// NewPage creates a page seeded with the post's comments.
func NewPage(id string, post *domain.Post, viewerID string, svc remote.Service, rec *metrics.Recorder, logger zerolog.Logger) *Page {
	return &Page{
		ID:       id,
		PostID:   post.ID,
		Title:    post.Title,
		Body:     post.Body,
		ViewerID: viewerID,
		svc:      svc,
		metrics:  rec,
		logger:   logger.With().Str("page", id).Str("post", post.ID).Logger(),
		store:    commenttree.New(post.Comments),
		slots:    make(map[slotKey]*Slot),
		hidden:   make(map[string]bool),
		replying: make(map[string]bool),
		editing:  make(map[string]bool),
	}
}

// Store returns the page's comment tree. Mutate it only through Page.
func (p *Page) Store() *commenttree.Store {
	return p.store
}

// Close discards the page. It reports whether the page was still open.
func (p *Page) Close() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return false
	}
	p.closed = true
	return true
}

// Closed reports whether the page has been discarded.
func (p *Page) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// Slot returns a snapshot of the control state for action on commentID. An
// empty commentID with ActionReply is the top-level comment form.
func (p *Page) Slot(commentID string, action Action) Slot {
	p.mu.Lock()
	defer p.mu.Unlock()
	if s, ok := p.slots[slotKey{commentID, action}]; ok {
		return *s
	}
	return Slot{}
}

// slot returns the slot for key, creating it. Caller holds mu.
func (p *Page) slot(key slotKey) *Slot {
	s, ok := p.slots[key]
	if !ok {
		s = &Slot{}
		p.slots[key] = s
	}
	return s
}

func (p *Page) begin(key slotKey) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrPageClosed
	}
	s := p.slot(key)
	if s.Busy {
		return ErrSlotBusy
	}
	s.Busy = true
	return nil
}

// finish releases the slot and, if the page is still open, records err or
// runs apply under the page lock.
func (p *Page) finish(key slotKey, started time.Time, draft string, err error, apply func()) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	s := p.slot(key)
	s.Busy = false

	if p.closed {
		p.metrics.Discarded(string(key.action), started)
		p.logger.Debug().Str("action", string(key.action)).Msg("dropping response for closed page")
		return ErrPageClosed
	}
	p.metrics.ObserveCall(string(key.action), started, err)

	if err != nil {
		s.Error = remote.Message(err)
		s.Draft = draft
		p.logger.Warn().Err(err).
			Str("action", string(key.action)).
			Str("comment", key.commentID).
			Msg("blog service rejected action")
		return err
	}

	s.Error = ""
	s.Draft = ""
	apply()
	return nil
}

func (p *Page) remoteCtx(ctx context.Context) context.Context {
	return remote.WithViewer(ctx, p.ViewerID)
}

// Reply posts a new comment under parentID, or a root comment when parentID
// is nil.
func (p *Page) Reply(ctx context.Context, parentID *string, message string) (*domain.Comment, error) {
	key := slotKey{commentID: rootSlot, action: ActionReply}
	if parentID != nil {
		key.commentID = *parentID
	}
	if err := p.begin(key); err != nil {
		return nil, err
	}

	started := time.Now()
	comment, err := p.svc.CreateComment(p.remoteCtx(ctx), remote.CreateCommentInput{
		PostID:   p.PostID,
		Message:  message,
		ParentID: parentID,
	})

	err = p.finish(key, started, message, err, func() {
		p.store.Insert(comment)
		if parentID != nil {
			p.replying[*parentID] = false
		}
	})
	if err != nil {
		return nil, err
	}
	return comment.Clone(), nil
}

// Edit replaces the message of one of the viewer's comments.
func (p *Page) Edit(ctx context.Context, id, message string) error {
	if err := p.mayModify(id); err != nil {
		return err
	}
	key := slotKey{commentID: id, action: ActionEdit}
	if err := p.begin(key); err != nil {
		return err
	}

	started := time.Now()
	comment, err := p.svc.UpdateComment(p.remoteCtx(ctx), remote.UpdateCommentInput{
		PostID:  p.PostID,
		ID:      id,
		Message: message,
	})

	return p.finish(key, started, message, err, func() {
		p.store.EditMessage(id, comment.Message)
		p.editing[id] = false
	})
}

// Delete removes one of the viewer's comments. Replies of the comment stay
// in the tree under the removed id.
func (p *Page) Delete(ctx context.Context, id string) error {
	if err := p.mayModify(id); err != nil {
		return err
	}
	key := slotKey{commentID: id, action: ActionDelete}
	if err := p.begin(key); err != nil {
		return err
	}

	started := time.Now()
	res, err := p.svc.DeleteComment(p.remoteCtx(ctx), remote.DeleteCommentInput{
		PostID: p.PostID,
		ID:     id,
	})

	return p.finish(key, started, "", err, func() {
		p.store.Remove(res.ID)
		delete(p.editing, res.ID)
		delete(p.replying, res.ID)
	})
}

// ToggleLike likes or unlikes a comment; the blog service decides the direction.
func (p *Page) ToggleLike(ctx context.Context, id string) error {
	key := slotKey{commentID: id, action: ActionLike}
	if err := p.begin(key); err != nil {
		return err
	}

	started := time.Now()
	res, err := p.svc.ToggleCommentLike(p.remoteCtx(ctx), remote.ToggleLikeInput{
		PostID: p.PostID,
		ID:     id,
	})

	return p.finish(key, started, "", err, func() {
		p.store.ToggleLike(id, res.AddLike)
	})
}

func (p *Page) mayModify(id string) error {
	c, ok := p.store.Get(id)
	if !ok {
		return nil // let the blog service answer for unknown ids
	}
	if c.User.ID != p.ViewerID {
		return ErrNotAllowed
	}
	return nil
}

// === View state ===

// ToggleReplies hides or shows the replies of a comment.
func (p *Page) ToggleReplies(id string) error {
	return p.toggle(p.hidden, id)
}

// ToggleReplyForm opens or closes the reply form under a comment.
func (p *Page) ToggleReplyForm(id string) error {
	return p.toggle(p.replying, id)
}

// ToggleEditForm opens or closes the edit form of one of the viewer's comments.
func (p *Page) ToggleEditForm(id string) error {
	if err := p.mayModify(id); err != nil {
		return err
	}
	return p.toggle(p.editing, id)
}

func (p *Page) toggle(m map[string]bool, id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrPageClosed
	}
	m[id] = !m[id]
	return nil
}
