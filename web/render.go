package web

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"
	"time"

	"github.com/rs/zerolog/hlog"

	"github.com/UkralStul/post-comments/internal/thread"
)

//go:embed templates/*.html templates/*.css
var assets embed.FS

const dateLayout = "Jan 2, 2006, 3:04 PM"

// commentNode is the data of the recursive "comment" template.
type commentNode struct {
	PageID  string
	Comment thread.CommentView
}

// Base is the URL prefix of the comment's actions.
func (n commentNode) Base() string {
	return "/pages/" + n.PageID + "/comments/" + n.Comment.ID
}

// formData is the data of the "commentForm" template.
type formData struct {
	Action    string
	ParentID  string
	Value     string
	AutoFocus bool
	Slot      thread.Slot
}

var templates = template.Must(template.New("").Funcs(template.FuncMap{
	"formatDate": func(t time.Time) string {
		return t.Local().Format(dateLayout)
	},
	"node": func(pageID string, c thread.CommentView) commentNode {
		return commentNode{PageID: pageID, Comment: c}
	},
	"replyForm": func(pageID, parentID string, slot thread.Slot) formData {
		return formData{
			Action:    "/pages/" + pageID + "/comments",
			ParentID:  parentID,
			Value:     slot.Draft,
			AutoFocus: parentID != "",
			Slot:      slot,
		}
	},
	"editForm": func(pageID string, c thread.CommentView) formData {
		value := c.Message
		if c.Edit.Error != "" {
			value = c.Edit.Draft
		}
		return formData{
			Action:    "/pages/" + pageID + "/comments/" + c.ID + "/edit",
			Value:     value,
			AutoFocus: true,
			Slot:      c.Edit,
		}
	},
}).ParseFS(assets, "templates/*.html"))

// errorData is the data of the "error" template.
type errorData struct {
	Status  int
	Message string
}

// render executes a template into a buffer first so a failing template
// never leaves a half-written page behind.
func render(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		hlog.FromRequest(r).Error().Err(err).Str("template", name).Msg("render failed")
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func renderError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	render(w, r, status, "error", errorData{Status: status, Message: msg})
}
