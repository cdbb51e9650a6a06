package commenttree

import (
	"fmt"
	"testing"
	"time"

	"github.com/UkralStul/post-comments/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func newComment(id string, parentID *string) *domain.Comment {
	return &domain.Comment{
		ID:        id,
		Message:   "message " + id,
		User:      domain.User{ID: "user-1", Name: "Kyle"},
		CreatedAt: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		ParentID:  parentID,
	}
}

func ids(comments []*domain.Comment) []string {
	out := make([]string, len(comments))
	for i, c := range comments {
		out[i] = c.ID
	}
	return out
}

func TestStore_InsertReply(t *testing.T) {
	store := New([]*domain.Comment{newComment("1", nil)})

	store.Insert(newComment("2", strPtr("1")))

	assert.Equal(t, []string{"1"}, ids(store.Roots()))
	assert.Equal(t, []string{"2"}, ids(store.Children(strPtr("1"))))
	assert.Equal(t, 2, store.Len())
}

func TestStore_ChildrenEmpty(t *testing.T) {
	store := New(nil)

	roots := store.Roots()
	require.NotNil(t, roots)
	assert.Empty(t, roots)
	assert.Empty(t, store.Children(strPtr("missing")))
}

func TestStore_RootsFollowSequenceOrder(t *testing.T) {
	store := New([]*domain.Comment{
		newComment("a", nil),
		newComment("b", strPtr("a")),
		newComment("c", nil),
	})

	for i := 0; i < 5; i++ {
		id := fmt.Sprintf("n%d", i)
		if i%2 == 0 {
			store.Insert(newComment(id, nil))
		} else {
			store.Insert(newComment(id, strPtr("a")))
		}
	}

	// Inserts are prepended, seeded comments keep their order.
	assert.Equal(t, []string{"n4", "n2", "n0", "a", "c"}, ids(store.Roots()))
	assert.Equal(t, []string{"n3", "n1", "b"}, ids(store.Children(strPtr("a"))))

	for _, c := range store.Roots() {
		assert.Nil(t, c.ParentID)
	}
}

func TestStore_IndexMatchesRegrouping(t *testing.T) {
	store := New([]*domain.Comment{
		newComment("1", nil),
		newComment("2", strPtr("1")),
		newComment("3", strPtr("2")),
	})
	store.Insert(newComment("4", strPtr("1")))
	store.EditMessage("2", "edited")
	store.ToggleLike("3", true)
	store.Remove("1")

	regrouped := map[string][]string{}
	for _, c := range store.Comments() {
		k := keyOf(c.ParentID)
		regrouped[k] = append(regrouped[k], c.ID)
	}
	for k, want := range regrouped {
		var parent *string
		if k != rootKey {
			parent = strPtr(k)
		}
		assert.Equal(t, want, ids(store.Children(parent)), "parent %q", k)
	}
	assert.Empty(t, store.Roots())
}

func TestStore_RemoveKeepsOrphans(t *testing.T) {
	store := New([]*domain.Comment{
		newComment("1", nil),
		newComment("2", strPtr("1")),
		newComment("3", strPtr("2")),
	})

	store.Remove("2")

	assert.Empty(t, store.Children(strPtr("1")))
	assert.Equal(t, []string{"3"}, ids(store.Children(strPtr("2"))))
	_, ok := store.Get("2")
	assert.False(t, ok)
	assert.Equal(t, 2, store.Len())
}

func TestStore_RemoveUnknown(t *testing.T) {
	store := New([]*domain.Comment{newComment("1", nil), newComment("2", strPtr("1"))})
	before := store.Comments()

	assert.NotPanics(t, func() { store.Remove("404") })
	assert.Equal(t, before, store.Comments())
}

func TestStore_EditMessage(t *testing.T) {
	store := New([]*domain.Comment{newComment("1", nil), newComment("2", strPtr("1"))})
	before, ok := store.Get("2")
	require.True(t, ok)

	store.EditMessage("2", "x")

	after, ok := store.Get("2")
	require.True(t, ok)
	assert.Equal(t, "x", after.Message)

	after.Message = before.Message
	assert.Equal(t, before, after)
}

func TestStore_EditMessageUnknown(t *testing.T) {
	store := New([]*domain.Comment{newComment("1", nil)})
	before := store.Comments()

	assert.NotPanics(t, func() { store.EditMessage("404", "x") })
	assert.Equal(t, before, store.Comments())
}

func TestStore_ToggleLike(t *testing.T) {
	c := newComment("5", nil)
	c.LikeCount = 3
	store := New([]*domain.Comment{c})

	store.ToggleLike("5", true)

	got, ok := store.Get("5")
	require.True(t, ok)
	assert.Equal(t, 4, got.LikeCount)
	assert.True(t, got.LikedByMe)
}

func TestStore_ToggleLikeRoundTrip(t *testing.T) {
	c := newComment("5", nil)
	c.LikeCount = 7
	store := New([]*domain.Comment{c})

	store.ToggleLike("5", true)
	store.ToggleLike("5", false)

	got, ok := store.Get("5")
	require.True(t, ok)
	assert.Equal(t, 7, got.LikeCount)
	assert.False(t, got.LikedByMe)
}

func TestStore_ReturnsCopies(t *testing.T) {
	seed := newComment("1", nil)
	store := New([]*domain.Comment{seed})

	seed.Message = "changed by caller"
	roots := store.Roots()
	roots[0].Message = "changed again"

	got, ok := store.Get("1")
	require.True(t, ok)
	assert.Equal(t, "message 1", got.Message)
}
