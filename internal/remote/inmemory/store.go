package inmemory

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/UkralStul/post-comments/internal/domain"
	"github.com/UkralStul/post-comments/internal/remote"
	"github.com/google/uuid"
)

// MaxMessageLength is the longest comment message the service accepts, in characters.
const MaxMessageLength = 2000

// Users created by Seed.
const (
	SeedUserKyle  = "kyle"
	SeedUserSally = "sally"
)

// Posts created by Seed. Their ids are fixed so a fresh process can be
// asked for them by id.
const (
	SeedPostDiscussed = "1"
	SeedPostQuiet     = "2"
)

type post struct {
	id         string
	title      string
	body       string
	commentIDs []string // creation order
}

type comment struct {
	id        string
	postID    string
	parentID  *string
	userID    string
	message   string
	createdAt time.Time
}

// Store is an in-process blog service implementing remote.Service.
type Store struct {
	mu               sync.RWMutex
	users            map[string]domain.User
	posts            map[string]*post
	postOrder        []string
	comments         map[string]*comment
	commentsByParent map[string][]string            // map[parentID][]commentID
	likes            map[string]map[string]struct{} // map[commentID]set of userID
	now              func() time.Time
}

var _ remote.Service = (*Store)(nil)

// New creates an empty in-memory blog service.
func New() *Store {
	return &Store{
		users:            make(map[string]domain.User),
		posts:            make(map[string]*post),
		comments:         make(map[string]*comment),
		commentsByParent: make(map[string][]string),
		likes:            make(map[string]map[string]struct{}),
		now:              func() time.Time { return time.Now().UTC() },
	}
}

func badRequest(msg string) error { return &remote.Error{Status: http.StatusBadRequest, Message: msg} }
func notFound(msg string) error   { return &remote.Error{Status: http.StatusNotFound, Message: msg} }
func forbidden(msg string) error  { return &remote.Error{Status: http.StatusForbidden, Message: msg} }

// viewer resolves the viewer from ctx. Caller holds mu.
func (s *Store) viewer(ctx context.Context) (domain.User, error) {
	id, ok := remote.ViewerFrom(ctx)
	if !ok {
		return domain.User{}, &remote.Error{Status: http.StatusUnauthorized, Message: "You must be logged in"}
	}
	u, ok := s.users[id]
	if !ok {
		return domain.User{}, &remote.Error{Status: http.StatusUnauthorized, Message: "Unknown user"}
	}
	return u, nil
}

// === User and Post Methods ===

// AddUser registers a user that can act as a viewer.
func (s *Store) AddUser(u domain.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = u
}

// CreatePost adds a post without comments.
func (s *Store) CreatePost(title, body string) domain.PostSummary {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.addPost(uuid.NewString(), title, body)
}

// addPost stores a post under id. Caller holds mu.
func (s *Store) addPost(id, title, body string) domain.PostSummary {
	p := &post{id: id, title: title, body: body}
	s.posts[p.id] = p
	s.postOrder = append(s.postOrder, p.id)
	return domain.PostSummary{ID: p.id, Title: p.title}
}

func (s *Store) ListPosts(ctx context.Context) ([]domain.PostSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.PostSummary, 0, len(s.postOrder))
	for _, id := range s.postOrder {
		p := s.posts[id]
		out = append(out, domain.PostSummary{ID: p.id, Title: p.title})
	}
	return out, nil
}

// GetPost returns the post with its comments, newest first. Like data is
// computed for the viewer in ctx, if any.
func (s *Store) GetPost(ctx context.Context, postID string) (*domain.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.posts[postID]
	if !ok {
		return nil, notFound(fmt.Sprintf("post with id %s not found", postID))
	}
	viewerID, _ := remote.ViewerFrom(ctx)

	out := &domain.Post{
		ID:       p.id,
		Title:    p.title,
		Body:     p.body,
		Comments: make([]*domain.Comment, 0, len(p.commentIDs)),
	}
	for i := len(p.commentIDs) - 1; i >= 0; i-- {
		out.Comments = append(out.Comments, s.toDomain(s.comments[p.commentIDs[i]], viewerID))
	}
	return out, nil
}

// === Comment Methods ===

func (s *Store) CreateComment(ctx context.Context, in remote.CreateCommentInput) (*domain.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, err := s.viewer(ctx)
	if err != nil {
		return nil, err
	}
	p, ok := s.posts[in.PostID]
	if !ok {
		return nil, notFound("post not found")
	}
	if err := validateMessage(in.Message); err != nil {
		return nil, err
	}
	if in.ParentID != nil {
		parent, ok := s.comments[*in.ParentID]
		if !ok || parent.postID != p.id {
			return nil, badRequest("parent comment not found")
		}
	}

	c := &comment{
		id:        uuid.NewString(),
		postID:    p.id,
		userID:    u.ID,
		message:   in.Message,
		createdAt: s.now(),
	}
	if in.ParentID != nil {
		parentID := *in.ParentID
		c.parentID = &parentID
		s.commentsByParent[parentID] = append(s.commentsByParent[parentID], c.id)
	}
	s.comments[c.id] = c
	p.commentIDs = append(p.commentIDs, c.id)

	return s.toDomain(c, u.ID), nil
}

func (s *Store) UpdateComment(ctx context.Context, in remote.UpdateCommentInput) (*domain.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, err := s.viewer(ctx)
	if err != nil {
		return nil, err
	}
	c, err := s.commentOf(in.PostID, in.ID)
	if err != nil {
		return nil, err
	}
	if err := validateMessage(in.Message); err != nil {
		return nil, err
	}
	if c.userID != u.ID {
		return nil, forbidden("You do not have permission to edit this message")
	}

	c.message = in.Message
	return s.toDomain(c, u.ID), nil
}

// DeleteComment deletes the comment and, on this side, all of its replies.
func (s *Store) DeleteComment(ctx context.Context, in remote.DeleteCommentInput) (remote.DeleteCommentResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, err := s.viewer(ctx)
	if err != nil {
		return remote.DeleteCommentResult{}, err
	}
	c, err := s.commentOf(in.PostID, in.ID)
	if err != nil {
		return remote.DeleteCommentResult{}, err
	}
	if c.userID != u.ID {
		return remote.DeleteCommentResult{}, forbidden("You do not have permission to delete this message")
	}

	removed := make(map[string]struct{})
	s.collect(c.id, removed)
	for id := range removed {
		delete(s.comments, id)
		delete(s.likes, id)
		delete(s.commentsByParent, id)
	}
	if c.parentID != nil {
		s.commentsByParent[*c.parentID] = without(s.commentsByParent[*c.parentID], removed)
	}
	p := s.posts[c.postID]
	p.commentIDs = without(p.commentIDs, removed)

	return remote.DeleteCommentResult{ID: c.id}, nil
}

func (s *Store) ToggleCommentLike(ctx context.Context, in remote.ToggleLikeInput) (remote.ToggleLikeResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, err := s.viewer(ctx)
	if err != nil {
		return remote.ToggleLikeResult{}, err
	}
	c, err := s.commentOf(in.PostID, in.ID)
	if err != nil {
		return remote.ToggleLikeResult{}, err
	}

	likers := s.likes[c.id]
	if _, liked := likers[u.ID]; liked {
		delete(likers, u.ID)
		return remote.ToggleLikeResult{AddLike: false}, nil
	}
	if likers == nil {
		likers = make(map[string]struct{})
		s.likes[c.id] = likers
	}
	likers[u.ID] = struct{}{}
	return remote.ToggleLikeResult{AddLike: true}, nil
}

// === Helpers ===

func validateMessage(msg string) error {
	if strings.TrimSpace(msg) == "" {
		return badRequest("Message is required")
	}
	if utf8.RuneCountInString(msg) > MaxMessageLength {
		return badRequest("comment content is too long")
	}
	return nil
}

func (s *Store) commentOf(postID, id string) (*comment, error) {
	if _, ok := s.posts[postID]; !ok {
		return nil, notFound("post not found")
	}
	c, ok := s.comments[id]
	if !ok || c.postID != postID {
		return nil, notFound("comment not found")
	}
	return c, nil
}

// collect adds id and all of its descendants to acc.
func (s *Store) collect(id string, acc map[string]struct{}) {
	acc[id] = struct{}{}
	for _, child := range s.commentsByParent[id] {
		s.collect(child, acc)
	}
}

func without(ids []string, removed map[string]struct{}) []string {
	out := ids[:0:0]
	for _, id := range ids {
		if _, ok := removed[id]; !ok {
			out = append(out, id)
		}
	}
	return out
}

func (s *Store) toDomain(c *comment, viewerID string) *domain.Comment {
	likers := s.likes[c.id]
	_, likedByMe := likers[viewerID]
	out := &domain.Comment{
		ID:        c.id,
		Message:   c.message,
		User:      s.users[c.userID],
		CreatedAt: c.createdAt,
		LikeCount: len(likers),
		LikedByMe: viewerID != "" && likedByMe,
	}
	if c.parentID != nil {
		parentID := *c.parentID
		out.ParentID = &parentID
	}
	return out
}
