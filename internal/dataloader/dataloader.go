package dataloader

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/graph-gophers/dataloader"

	"github.com/UkralStul/post-comments/internal/domain"
	"github.com/UkralStul/post-comments/internal/remote"
)

// DefaultWait is how long the loader collects keys before fetching.
const DefaultWait = 2 * time.Millisecond

// Options tunes the batching window.
type Options struct {
	Wait          time.Duration
	BatchCapacity int
}

// PostLoader coalesces concurrent fetches of the same post by the same
// viewer into a single remote call.
type PostLoader struct {
	loader *dataloader.Loader
}

// keySep cannot appear in a user id cookie value.
const keySep = "\x00"

func postKey(viewerID, postID string) dataloader.Key {
	return dataloader.StringKey(viewerID + keySep + postID)
}

func splitKey(k dataloader.Key) (viewerID, postID string) {
	viewerID, postID, _ = strings.Cut(k.String(), keySep)
	return viewerID, postID
}

// NewPostLoader creates a loader fetching posts from svc.
func NewPostLoader(svc remote.Service, opts Options) *PostLoader {
	wait := opts.Wait
	if wait <= 0 {
		wait = DefaultWait
	}

	batchFn := func(ctx context.Context, keys dataloader.Keys) []*dataloader.Result {
		// The batch runs on behalf of every caller, not only the first one.
		ctx = context.WithoutCancel(ctx)

		results := make([]*dataloader.Result, len(keys))
		for i, key := range keys {
			viewerID, postID := splitKey(key)
			fetchCtx := ctx
			if viewerID != "" {
				fetchCtx = remote.WithViewer(ctx, viewerID)
			}
			post, err := svc.GetPost(fetchCtx, postID)
			results[i] = &dataloader.Result{Data: post, Error: err}
		}
		return results
	}

	loaderOpts := []dataloader.Option{
		dataloader.WithWait(wait),
		// Only requests that share a batch share a result.
		dataloader.WithClearCacheOnBatch(),
	}
	if opts.BatchCapacity > 0 {
		loaderOpts = append(loaderOpts, dataloader.WithBatchCapacity(opts.BatchCapacity))
	}

	return &PostLoader{loader: dataloader.NewBatchedLoader(batchFn, loaderOpts...)}
}

// Load returns the post as seen by the viewer stored in ctx.
func (l *PostLoader) Load(ctx context.Context, postID string) (*domain.Post, error) {
	viewerID, _ := remote.ViewerFrom(ctx)
	thunk := l.loader.Load(ctx, postKey(viewerID, postID))
	data, err := thunk()
	if err != nil {
		return nil, err
	}
	post, ok := data.(*domain.Post)
	if !ok || post == nil {
		return nil, fmt.Errorf("load post %s: unexpected result %T", postID, data)
	}
	return post, nil
}
