package inmemory

import (
	"context"
	"errors"
	"fmt"

	"github.com/UkralStul/post-comments/internal/domain"
	"github.com/UkralStul/post-comments/internal/remote"
)

// Seed fills the store with two users, a post with a short discussion
// (SeedPostDiscussed) and a post without comments (SeedPostQuiet). It returns
// the id of the discussed post. Seeding the same store twice fails.
func (s *Store) Seed(ctx context.Context) (string, error) {
	s.mu.Lock()
	if _, ok := s.posts[SeedPostDiscussed]; ok {
		s.mu.Unlock()
		return "", errors.New("store already seeded")
	}
	post := s.addPost(SeedPostDiscussed, "Post 1", "Lorem ipsum dolor sit amet, consectetur adipiscing elit.")
	s.addPost(SeedPostQuiet, "Post 2", "Nothing has been said about this one yet.")
	s.mu.Unlock()

	s.AddUser(domain.User{ID: SeedUserKyle, Name: "Kyle"})
	s.AddUser(domain.User{ID: SeedUserSally, Name: "Sally"})

	asKyle := remote.WithViewer(ctx, SeedUserKyle)
	asSally := remote.WithViewer(ctx, SeedUserSally)

	first, err := s.CreateComment(asKyle, remote.CreateCommentInput{
		PostID:  post.ID,
		Message: "I am a root comment",
	})
	if err != nil {
		return "", fmt.Errorf("seed root comment: %w", err)
	}

	reply, err := s.CreateComment(asSally, remote.CreateCommentInput{
		PostID:   post.ID,
		Message:  "I am a nested comment",
		ParentID: &first.ID,
	})
	if err != nil {
		return "", fmt.Errorf("seed nested comment: %w", err)
	}

	if _, err := s.CreateComment(asKyle, remote.CreateCommentInput{
		PostID:   post.ID,
		Message:  "And I am nested one level deeper",
		ParentID: &reply.ID,
	}); err != nil {
		return "", fmt.Errorf("seed deep comment: %w", err)
	}

	if _, err := s.CreateComment(asSally, remote.CreateCommentInput{
		PostID:  post.ID,
		Message: "Another root comment",
	}); err != nil {
		return "", fmt.Errorf("seed second root comment: %w", err)
	}

	if _, err := s.ToggleCommentLike(asSally, remote.ToggleLikeInput{PostID: post.ID, ID: first.ID}); err != nil {
		return "", fmt.Errorf("seed like: %w", err)
	}

	return post.ID, nil
}
