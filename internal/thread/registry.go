package thread

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/UkralStul/post-comments/internal/domain"
	"github.com/UkralStul/post-comments/internal/metrics"
	"github.com/UkralStul/post-comments/internal/remote"
)

type entry struct {
	page     *Page
	lastSeen time.Time
}

// Registry holds the open pages of all viewers.
type Registry struct {
	svc     remote.Service
	metrics *metrics.Recorder
	logger  zerolog.Logger
	now     func() time.Time

	mu    sync.Mutex
	pages map[string]*entry // map[pageID]
}

// NewRegistry creates an empty registry whose pages talk to svc.
func NewRegistry(svc remote.Service, rec *metrics.Recorder, logger zerolog.Logger) *Registry {
	return &Registry{
		svc:     svc,
		metrics: rec,
		logger:  logger,
		now:     time.Now,
		pages:   make(map[string]*entry),
	}
}

// Open creates a page for post as seen by viewerID.
func (r *Registry) Open(post *domain.Post, viewerID string) *Page {
	page := NewPage(uuid.NewString(), post, viewerID, r.svc, r.metrics, r.logger)

	r.mu.Lock()
	r.pages[page.ID] = &entry{page: page, lastSeen: r.now()}
	r.mu.Unlock()

	r.metrics.PageOpened()
	r.logger.Debug().Str("page", page.ID).Str("post", post.ID).Str("viewer", viewerID).Msg("page opened")
	return page
}

// Get returns an open page and marks it as seen.
func (r *Registry) Get(id string) (*Page, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.pages[id]
	if !ok {
		return nil, ErrPageNotFound
	}
	e.lastSeen = r.now()
	return e.page, nil
}

// Close discards a page. Responses still in flight for it are dropped.
func (r *Registry) Close(id string) error {
	r.mu.Lock()
	e, ok := r.pages[id]
	if ok {
		delete(r.pages, id)
	}
	r.mu.Unlock()

	if !ok {
		return ErrPageNotFound
	}
	r.closePage(e.page, "closed by viewer")
	return nil
}

// Len returns the number of open pages.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pages)
}

// Sweep closes pages not seen for longer than ttl and returns how many.
func (r *Registry) Sweep(ttl time.Duration) int {
	cutoff := r.now().Add(-ttl)

	r.mu.Lock()
	var expired []*Page
	for id, e := range r.pages {
		if e.lastSeen.Before(cutoff) {
			expired = append(expired, e.page)
			delete(r.pages, id)
		}
	}
	r.mu.Unlock()

	for _, p := range expired {
		r.closePage(p, "idle")
	}
	return len(expired)
}

// RunSweeper sweeps idle pages every interval until ctx is cancelled.
func (r *Registry) RunSweeper(ctx context.Context, interval, ttl time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := r.Sweep(ttl); n > 0 {
				r.logger.Debug().Int("closed", n).Msg("swept idle pages")
			}
		}
	}
}

// CloseAll discards every open page.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	pages := r.pages
	r.pages = make(map[string]*entry)
	r.mu.Unlock()

	for _, e := range pages {
		r.closePage(e.page, "shutdown")
	}
}

func (r *Registry) closePage(p *Page, reason string) {
	if p.Close() {
		r.metrics.PageClosed()
		r.logger.Debug().Str("page", p.ID).Str("reason", reason).Msg("page closed")
	}
}
