package web

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/hlog"

	"github.com/UkralStul/post-comments/internal/remote"
	"github.com/UkralStul/post-comments/internal/thread"
)

// === Post list ===

func (h *Handler) listPosts(w http.ResponseWriter, r *http.Request) {
	ctx := remote.WithViewer(r.Context(), h.viewer(r))
	posts, err := h.Service.ListPosts(ctx)
	if err != nil {
		h.remoteFailure(w, r, err)
		return
	}
	render(w, r, http.StatusOK, "posts", posts)
}

// === Page lifecycle ===

// openPost fetches the post and opens a fresh page for it.
func (h *Handler) openPost(w http.ResponseWriter, r *http.Request) {
	viewer := h.viewer(r)
	ctx := remote.WithViewer(r.Context(), viewer)

	post, err := h.Loader.Load(ctx, chi.URLParam(r, "postID"))
	if err != nil {
		h.remoteFailure(w, r, err)
		return
	}

	page := h.Pages.Open(post, viewer)
	render(w, r, http.StatusOK, "post", page.View())
}

func (h *Handler) showPage(w http.ResponseWriter, r *http.Request) {
	page, ok := h.page(w, r)
	if !ok {
		return
	}
	render(w, r, http.StatusOK, "post", page.View())
}

func (h *Handler) closePage(w http.ResponseWriter, r *http.Request) {
	page, ok := h.page(w, r)
	if !ok {
		return
	}
	_ = h.Pages.Close(page.ID)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// === Comment actions ===

func (h *Handler) createComment(w http.ResponseWriter, r *http.Request) {
	page, ok := h.page(w, r)
	if !ok {
		return
	}

	var parentID *string
	anchor := "" // top of the page for root comments
	if id := strings.TrimSpace(r.PostFormValue("parentId")); id != "" {
		parentID = &id
		anchor = id
	}

	c, err := page.Reply(r.Context(), parentID, r.PostFormValue("message"))
	if err == nil && c != nil {
		anchor = c.ID
	}
	h.afterAction(w, r, page, anchor, err)
}

func (h *Handler) editComment(w http.ResponseWriter, r *http.Request) {
	page, ok := h.page(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "commentID")
	err := page.Edit(r.Context(), id, r.PostFormValue("message"))
	h.afterAction(w, r, page, id, err)
}

func (h *Handler) deleteComment(w http.ResponseWriter, r *http.Request) {
	page, ok := h.page(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "commentID")
	err := page.Delete(r.Context(), id)
	h.afterAction(w, r, page, id, err)
}

func (h *Handler) toggleLike(w http.ResponseWriter, r *http.Request) {
	page, ok := h.page(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "commentID")
	err := page.ToggleLike(r.Context(), id)
	h.afterAction(w, r, page, id, err)
}

func (h *Handler) toggleView(w http.ResponseWriter, r *http.Request) {
	page, ok := h.page(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "commentID")

	var err error
	switch chi.URLParam(r, "what") {
	case "replies":
		err = page.ToggleReplies(id)
	case "reply":
		err = page.ToggleReplyForm(id)
	case "edit":
		err = page.ToggleEditForm(id)
	default:
		renderError(w, r, http.StatusNotFound, "Unknown toggle")
		return
	}
	h.afterAction(w, r, page, id, err)
}

// === Helpers ===

// page resolves the page in the URL. It only returns pages opened by the
// requesting viewer.
func (h *Handler) page(w http.ResponseWriter, r *http.Request) (*thread.Page, bool) {
	page, err := h.Pages.Get(chi.URLParam(r, "pageID"))
	if err != nil || page.ViewerID != h.viewer(r) {
		renderError(w, r, http.StatusNotFound, "This page has expired, open the post again")
		return nil, false
	}
	return page, true
}

// afterAction sends the browser back to the page. Failed blog service calls
// are already recorded on the action's slot and show up there.
func (h *Handler) afterAction(w http.ResponseWriter, r *http.Request, page *thread.Page, anchor string, err error) {
	switch {
	case errors.Is(err, thread.ErrPageClosed):
		renderError(w, r, http.StatusGone, "This page has expired, open the post again")
		return
	case errors.Is(err, thread.ErrNotAllowed):
		renderError(w, r, http.StatusForbidden, "You can only change your own comments")
		return
	case errors.Is(err, thread.ErrSlotBusy):
		hlog.FromRequest(r).Debug().Str("page", page.ID).Msg("duplicate submit ignored")
	}

	target := "/pages/" + page.ID
	if anchor != "" {
		target += "#comment-" + anchor
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func (h *Handler) remoteFailure(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusBadGateway
	var rerr *remote.Error
	if errors.As(err, &rerr) && rerr.Status >= 400 && rerr.Status < 500 {
		status = rerr.Status
	}
	hlog.FromRequest(r).Warn().Err(err).Int("status", status).Msg("blog service request failed")
	renderError(w, r, status, remote.Message(err))
}
