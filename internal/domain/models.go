package domain

import "time"

// User is the author reference carried by every comment.
type User struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// PostSummary is one row of the post list.
type PostSummary struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// Post is a blog post together with all of its comments in the order the
// blog service returned them.
type Post struct {
	ID       string     `json:"id"`
	Title    string     `json:"title"`
	Body     string     `json:"body"`
	Comments []*Comment `json:"comments"`
}

// Comment is a comment on a post. A nil ParentID marks a root comment.
type Comment struct {
	ID        string    `json:"id"`
	Message   string    `json:"message"`
	User      User      `json:"user"`
	CreatedAt time.Time `json:"createdAt"`
	LikeCount int       `json:"likeCount"`
	LikedByMe bool      `json:"likedByMe"`
	ParentID  *string   `json:"parentId"`
}

// Clone returns a deep copy of the comment.
func (c *Comment) Clone() *Comment {
	if c == nil {
		return nil
	}
	cp := *c
	if c.ParentID != nil {
		parentID := *c.ParentID
		cp.ParentID = &parentID
	}
	return &cp
}

// IsRoot reports whether the comment has no parent.
func (c *Comment) IsRoot() bool {
	return c.ParentID == nil
}
