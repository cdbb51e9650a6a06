package web

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/UkralStul/post-comments/internal/dataloader"
	"github.com/UkralStul/post-comments/internal/metrics"
	"github.com/UkralStul/post-comments/internal/remote"
	"github.com/UkralStul/post-comments/internal/remote/inmemory"
	"github.com/UkralStul/post-comments/internal/thread"
)

type testApp struct {
	router http.Handler
	blog   *inmemory.Store
	postID string
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	blog := inmemory.New()
	postID, err := blog.Seed(context.Background())
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	rec := metrics.New(reg)
	h := &Handler{
		Service:       blog,
		Loader:        dataloader.NewPostLoader(blog, dataloader.Options{}),
		Pages:         thread.NewRegistry(blog, rec, zerolog.Nop()),
		ViewerCookie:  "userId",
		DefaultViewer: inmemory.SeedUserKyle,
		Logger:        zerolog.Nop(),
		Gatherer:      reg,
	}
	return &testApp{router: h.Routes(), blog: blog, postID: postID}
}

func (a *testApp) do(t *testing.T, method, target string, form url.Values, viewer string) (*http.Response, string) {
	t.Helper()
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req := httptest.NewRequest(method, target, body)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if viewer != "" {
		req.AddCookie(&http.Cookie{Name: "userId", Value: viewer})
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)

	resp := rec.Result()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(data)
}

var pageIDPattern = regexp.MustCompile(`/pages/([0-9a-f-]{36})/close`)

// open loads the seeded post and returns the new page id.
func (a *testApp) open(t *testing.T, viewer string) (string, string) {
	t.Helper()
	resp, body := a.do(t, http.MethodGet, "/posts/"+a.postID, nil, viewer)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	m := pageIDPattern.FindStringSubmatch(body)
	require.Len(t, m, 2, "page id not found in body")
	return m[1], body
}

func (a *testApp) rootID(t *testing.T, msg string) string {
	t.Helper()
	post, err := a.blog.GetPost(context.Background(), a.postID)
	require.NoError(t, err)
	for _, c := range post.Comments {
		if c.Message == msg {
			return c.ID
		}
	}
	t.Fatalf("comment %q not found", msg)
	return ""
}

func TestHandler_ListPosts(t *testing.T) {
	app := newTestApp(t)

	resp, body := app.do(t, http.MethodGet, "/", nil, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Post 1")
	assert.Contains(t, body, "Post 2")
	assert.Contains(t, body, "/posts/"+app.postID)
}

func TestHandler_OpenPost(t *testing.T) {
	app := newTestApp(t)

	_, body := app.open(t, "")
	assert.Contains(t, body, "I am a root comment")
	assert.Contains(t, body, "And I am nested one level deeper")
	assert.Contains(t, body, "Hide Replies")
}

func TestHandler_OpenMissingPost(t *testing.T) {
	app := newTestApp(t)

	resp, body := app.do(t, http.MethodGet, "/posts/missing", nil, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, body, "post with id missing not found")
}

func TestHandler_CreateRootComment(t *testing.T) {
	app := newTestApp(t)
	pageID, _ := app.open(t, "")

	resp, _ := app.do(t, http.MethodPost, "/pages/"+pageID+"/comments", url.Values{"message": {"Hello from the test"}}, "")
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.True(t, strings.HasPrefix(resp.Header.Get("Location"), "/pages/"+pageID+"#comment-"))

	resp, body := app.do(t, http.MethodGet, "/pages/"+pageID, nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Hello from the test")
}

func TestHandler_CreateCommentError(t *testing.T) {
	app := newTestApp(t)
	pageID, _ := app.open(t, "")

	resp, _ := app.do(t, http.MethodPost, "/pages/"+pageID+"/comments", url.Values{"message": {""}}, "")
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)

	_, body := app.do(t, http.MethodGet, "/pages/"+pageID, nil, "")
	assert.Contains(t, body, "Message is required")
}

func TestHandler_ReplyFlow(t *testing.T) {
	app := newTestApp(t)
	pageID, _ := app.open(t, inmemory.SeedUserSally)
	parentID := app.rootID(t, "Another root comment")
	base := "/pages/" + pageID + "/comments/" + parentID

	resp, _ := app.do(t, http.MethodPost, base+"/toggle/reply", url.Values{}, inmemory.SeedUserSally)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	_, body := app.do(t, http.MethodGet, "/pages/"+pageID, nil, inmemory.SeedUserSally)
	assert.Contains(t, body, "Cancel Reply")
	assert.Contains(t, body, `name="parentId" value="`+parentID+`"`)

	resp, _ = app.do(t, http.MethodPost, "/pages/"+pageID+"/comments",
		url.Values{"message": {"a reply"}, "parentId": {parentID}}, inmemory.SeedUserSally)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)

	_, body = app.do(t, http.MethodGet, "/pages/"+pageID, nil, inmemory.SeedUserSally)
	assert.Contains(t, body, "a reply")
	assert.NotContains(t, body, "Cancel Reply")
}

func TestHandler_ToggleReplies(t *testing.T) {
	app := newTestApp(t)
	pageID, _ := app.open(t, "")
	rootID := app.rootID(t, "I am a root comment")

	resp, _ := app.do(t, http.MethodPost, "/pages/"+pageID+"/comments/"+rootID+"/toggle/replies", url.Values{}, "")
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)

	_, body := app.do(t, http.MethodGet, "/pages/"+pageID, nil, "")
	assert.Contains(t, body, "Show Replies")
	assert.NotContains(t, body, "I am a nested comment")

	resp, _ = app.do(t, http.MethodPost, "/pages/"+pageID+"/comments/"+rootID+"/toggle/bogus", url.Values{}, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHandler_LikeEditDelete(t *testing.T) {
	app := newTestApp(t)
	pageID, _ := app.open(t, "")
	rootID := app.rootID(t, "I am a root comment")
	base := "/pages/" + pageID + "/comments/" + rootID

	resp, _ := app.do(t, http.MethodPost, base+"/like", url.Values{}, "")
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/pages/"+pageID+"#comment-"+rootID, resp.Header.Get("Location"))

	resp, _ = app.do(t, http.MethodPost, base+"/edit", url.Values{"message": {"rewritten"}}, "")
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	_, body := app.do(t, http.MethodGet, "/pages/"+pageID, nil, "")
	assert.Contains(t, body, "rewritten")
	assert.Contains(t, body, "Unlike")

	resp, _ = app.do(t, http.MethodPost, base+"/delete", url.Values{}, "")
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	_, body = app.do(t, http.MethodGet, "/pages/"+pageID, nil, "")
	assert.NotContains(t, body, "rewritten")
	assert.NotContains(t, body, "I am a nested comment", "replies of a deleted comment are not rendered")
	assert.Contains(t, body, "Another root comment")
}

func TestHandler_CannotChangeOthersComments(t *testing.T) {
	app := newTestApp(t)
	pageID, _ := app.open(t, "")
	sallys := app.rootID(t, "Another root comment")

	resp, _ := app.do(t, http.MethodPost, "/pages/"+pageID+"/comments/"+sallys+"/delete", url.Values{}, "")
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestHandler_PageBelongsToViewer(t *testing.T) {
	app := newTestApp(t)
	pageID, _ := app.open(t, inmemory.SeedUserKyle)

	resp, _ := app.do(t, http.MethodGet, "/pages/"+pageID, nil, inmemory.SeedUserSally)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHandler_ClosePage(t *testing.T) {
	app := newTestApp(t)
	pageID, _ := app.open(t, "")

	resp, _ := app.do(t, http.MethodPost, "/pages/"+pageID+"/close", url.Values{}, "")
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/", resp.Header.Get("Location"))

	resp, body := app.do(t, http.MethodGet, "/pages/"+pageID, nil, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, body, "expired")
}

func TestHandler_Metrics(t *testing.T) {
	app := newTestApp(t)
	app.open(t, "")

	resp, body := app.do(t, http.MethodGet, "/metrics", nil, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "post_comments_pages_open 1")
}

func TestHandler_Static(t *testing.T) {
	app := newTestApp(t)

	resp, body := app.do(t, http.MethodGet, "/static/styles.css", nil, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, ".nested-comments")
}

// remoteFailure keeps 4xx statuses of the blog service.
func TestHandler_RemoteErrorStatus(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	(&Handler{}).remoteFailure(rec, req, &remote.Error{Status: http.StatusUnauthorized, Message: "You must be logged in"})

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "You must be logged in")
}
