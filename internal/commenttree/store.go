// Package commenttree keeps the comments of one post as a flat,
// display-ordered sequence together with an index of direct children by
// parent id.
package commenttree

import (
	"sync"

	"github.com/UkralStul/post-comments/internal/domain"
)

// rootKey is the index key for comments without a parent. Comment ids are
// never empty, so it cannot collide with a real parent id.
const rootKey = ""

// Store is the comment tree of a single post.
//
// The flat sequence is the only source of truth; byParent is derived from it
// and rebuilt after every mutation.
type Store struct {
	mu       sync.RWMutex
	comments []*domain.Comment
	byParent map[string][]*domain.Comment // map[parentID]children, rootKey for roots
}

// New creates a store seeded with comments in the given order.
func New(comments []*domain.Comment) *Store {
	s := &Store{
		comments: make([]*domain.Comment, 0, len(comments)),
	}
	for _, c := range comments {
		if c == nil {
			continue
		}
		s.comments = append(s.comments, c.Clone())
	}
	s.reindex()
	return s
}

func keyOf(parentID *string) string {
	if parentID == nil {
		return rootKey
	}
	return *parentID
}

// reindex regroups the flat sequence by parent. Caller holds mu.
func (s *Store) reindex() {
	group := make(map[string][]*domain.Comment)
	for _, c := range s.comments {
		k := keyOf(c.ParentID)
		group[k] = append(group[k], c)
	}
	s.byParent = group
}

// Children returns the direct children of parentID in display order, or the
// root comments when parentID is nil. The result is never nil.
func (s *Store) Children(parentID *string) []*domain.Comment {
	s.mu.RLock()
	defer s.mu.RUnlock()

	children := s.byParent[keyOf(parentID)]
	out := make([]*domain.Comment, 0, len(children))
	for _, c := range children {
		out = append(out, c.Clone())
	}
	return out
}

// Roots returns the root comments.
func (s *Store) Roots() []*domain.Comment {
	return s.Children(nil)
}

// Get returns a copy of the comment with the given id.
func (s *Store) Get(id string) (*domain.Comment, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if i := s.indexOf(id); i >= 0 {
		return s.comments[i].Clone(), true
	}
	return nil, false
}

// Len returns the number of comments in the store, orphans included.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.comments)
}

// Comments returns the flat sequence.
func (s *Store) Comments() []*domain.Comment {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.Comment, len(s.comments))
	for i, c := range s.comments {
		out[i] = c.Clone()
	}
	return out
}

// Insert puts a new comment at the front of the sequence, so it is listed
// first among its siblings.
func (s *Store) Insert(c *domain.Comment) {
	if c == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.comments = append([]*domain.Comment{c.Clone()}, s.comments...)
	s.reindex()
}

// EditMessage replaces the message of the comment with the given id. Unknown
// ids are ignored.
func (s *Store) EditMessage(id, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return
	}
	updated := s.comments[i].Clone()
	updated.Message = message
	s.comments[i] = updated
	s.reindex()
}

// Remove deletes the comment with the given id. Its replies are left in
// place and stay reachable under the removed id.
func (s *Store) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return
	}
	s.comments = append(s.comments[:i:i], s.comments[i+1:]...)
	s.reindex()
}

// ToggleLike records a like (addLike) or an unlike by the viewer. Repeating
// the same direction is not guarded against.
func (s *Store) ToggleLike(id string, addLike bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return
	}
	updated := s.comments[i].Clone()
	if addLike {
		updated.LikeCount++
		updated.LikedByMe = true
	} else {
		updated.LikeCount--
		updated.LikedByMe = false
	}
	s.comments[i] = updated
	s.reindex()
}

func (s *Store) indexOf(id string) int {
	for i, c := range s.comments {
		if c.ID == id {
			return i
		}
	}
	return -1
}
