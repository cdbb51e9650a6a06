// Package web serves the post pages: the post list, and one page per open
// post with its comment tree and the forms acting on it.
package web

import (
	"io/fs"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"github.com/UkralStul/post-comments/internal/dataloader"
	"github.com/UkralStul/post-comments/internal/remote"
	"github.com/UkralStul/post-comments/internal/thread"
)

// Handler holds the dependencies of the HTTP handlers.
type Handler struct {
	Service remote.Service
	Loader  *dataloader.PostLoader
	Pages   *thread.Registry

	// ViewerCookie names the cookie carrying the viewer's user id;
	// DefaultViewer is used when the browser sends none.
	ViewerCookie  string
	DefaultViewer string

	Logger zerolog.Logger
	// Gatherer serves /metrics when set.
	Gatherer prometheus.Gatherer
}

// Routes builds the router.
func (h *Handler) Routes() http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(hlog.NewHandler(h.Logger))
	router.Use(hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
		hlog.FromRequest(r).Info().
			Str("req_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Stringer("url", r.URL).
			Int("status", status).
			Int("size", size).
			Dur("duration", duration).
			Msg("request")
	}))
	router.Use(middleware.Recoverer)

	static, _ := fs.Sub(assets, "templates")
	router.Handle("/static/styles.css", http.StripPrefix("/static/", http.FileServer(http.FS(static))))

	if h.Gatherer != nil {
		router.Handle("/metrics", promhttp.HandlerFor(h.Gatherer, promhttp.HandlerOpts{}))
	}

	router.Get("/", h.listPosts)
	router.Get("/posts/{postID}", h.openPost)

	router.Route("/pages/{pageID}", func(r chi.Router) {
		r.Get("/", h.showPage)
		r.Post("/close", h.closePage)
		r.Post("/comments", h.createComment)
		r.Post("/comments/{commentID}/edit", h.editComment)
		r.Post("/comments/{commentID}/delete", h.deleteComment)
		r.Post("/comments/{commentID}/like", h.toggleLike)
		r.Post("/comments/{commentID}/toggle/{what}", h.toggleView)
	})

	return router
}

// viewer returns the user id the request acts as.
func (h *Handler) viewer(r *http.Request) string {
	if h.ViewerCookie != "" {
		if ck, err := r.Cookie(h.ViewerCookie); err == nil && ck.Value != "" {
			return ck.Value
		}
	}
	return h.DefaultViewer
}
