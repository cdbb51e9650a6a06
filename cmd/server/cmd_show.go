package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/UkralStul/post-comments/internal/commenttree"
	"github.com/UkralStul/post-comments/internal/remote"
)

func newShowCmd(a *app) *cli.Command {
	return &cli.Command{
		Name:  "show",
		Usage: "Print the comment tree of a post, or the list of posts when --post is not given",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "post",
				Usage: "id of the post to print",
			},
			&cli.StringFlag{
				Name:  "viewer",
				Usage: "user id to fetch the post as (defaults to viewer.default_user_id)",
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			svc, err := a.newService(ctx)
			if err != nil {
				return err
			}

			viewer := c.String("viewer")
			if viewer == "" {
				viewer = a.cfg.Viewer.DefaultUserID
			}
			ctx = remote.WithViewer(ctx, viewer)

			w := c.Root().Writer
			if w == nil {
				w = os.Stdout
			}

			postID := c.String("post")
			if postID == "" {
				return showPosts(ctx, w, svc)
			}
			return showPost(ctx, w, svc, postID)
		},
	}
}

func showPosts(ctx context.Context, w io.Writer, svc remote.Service) error {
	posts, err := svc.ListPosts(ctx)
	if err != nil {
		return fmt.Errorf("list posts: %w", err)
	}
	for _, p := range posts {
		fmt.Fprintf(w, "%s\t%s\n", p.ID, p.Title)
	}
	return nil
}

func showPost(ctx context.Context, w io.Writer, svc remote.Service, postID string) error {
	post, err := svc.GetPost(ctx, postID)
	if err != nil {
		return fmt.Errorf("show post: %w", err)
	}
	fmt.Fprintf(w, "%s\n\n", post.Title)
	printTree(w, commenttree.New(post.Comments), nil, 0, make(map[string]bool))
	return nil
}

// printTree writes the subtree under parentID, indenting two spaces per level.
// A comment id is printed at most once, so malformed parent links cannot loop.
func printTree(w io.Writer, store *commenttree.Store, parentID *string, depth int, seen map[string]bool) {
	indent := strings.Repeat("  ", depth)
	for _, c := range store.Children(parentID) {
		if seen[c.ID] {
			continue
		}
		seen[c.ID] = true

		liked := ""
		if c.LikedByMe {
			liked = " (liked)"
		}
		fmt.Fprintf(w, "%s%s, %s, %d likes%s\n", indent, c.User.Name, c.CreatedAt.Local().Format("Jan 2, 2006, 3:04 PM"), c.LikeCount, liked)
		for _, line := range strings.Split(c.Message, "\n") {
			fmt.Fprintf(w, "%s  %s\n", indent, line)
		}
		id := c.ID
		printTree(w, store, &id, depth+1, seen)
	}
}
