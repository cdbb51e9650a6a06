package thread

import (
	"github.com/UkralStul/post-comments/internal/domain"
)

// CommentView is one comment of the render tree.
type CommentView struct {
	domain.Comment

	Replies       []CommentView
	RepliesHidden bool
	Replying      bool
	Editing       bool
	// CanModify is set on the viewer's own comments.
	CanModify bool

	Reply  Slot
	Edit   Slot
	Delete Slot
	Like   Slot
}

// PageView is everything needed to render a page.
type PageView struct {
	PageID   string
	PostID   string
	Title    string
	Body     string
	ViewerID string

	// Root is the state of the top-level comment form.
	Root     Slot
	Comments []CommentView
}

// View builds the render tree from the root comments down. Replies of a
// deleted comment are not reachable from the roots and are not rendered.
func (p *Page) View() PageView {
	p.mu.Lock()
	defer p.mu.Unlock()

	return PageView{
		PageID:   p.ID,
		PostID:   p.PostID,
		Title:    p.Title,
		Body:     p.Body,
		ViewerID: p.ViewerID,
		Root:     p.slotValue(rootSlot, ActionReply),
		Comments: p.viewChildren(nil, make(map[string]bool)),
	}
}

// viewChildren renders the subtree under parentID. Each comment id is
// rendered once, so duplicate ids from the blog service cannot form a loop.
// Caller holds mu.
func (p *Page) viewChildren(parentID *string, seen map[string]bool) []CommentView {
	children := p.store.Children(parentID)
	out := make([]CommentView, 0, len(children))
	for _, c := range children {
		if seen[c.ID] {
			continue
		}
		seen[c.ID] = true

		id := c.ID
		out = append(out, CommentView{
			Comment:       *c,
			Replies:       p.viewChildren(&id, seen),
			RepliesHidden: p.hidden[id],
			Replying:      p.replying[id],
			Editing:       p.editing[id],
			CanModify:     c.User.ID == p.ViewerID,
			Reply:         p.slotValue(id, ActionReply),
			Edit:          p.slotValue(id, ActionEdit),
			Delete:        p.slotValue(id, ActionDelete),
			Like:          p.slotValue(id, ActionLike),
		})
	}
	return out
}

// slotValue returns a copy of a slot without creating it. Caller holds mu.
func (p *Page) slotValue(commentID string, action Action) Slot {
	if s, ok := p.slots[slotKey{commentID, action}]; ok {
		return *s
	}
	return Slot{}
}
