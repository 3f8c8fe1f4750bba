package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"webforum/internal/models"
	"webforum/internal/query"
	"webforum/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newMockedServer(t *testing.T) (*fiber.App, *MockPostAPI, *MockIdentityAPI, *Server) {
	t.Helper()
	posts := new(MockPostAPI)
	identity := new(MockIdentityAPI)
	s := NewServer(testConfig(), Deps{Posts: posts, Identity: identity, Tokens: testTokens(t)})
	return s.App(), posts, identity, s
}

func doJSON(t *testing.T, app *fiber.App, method, path, auth string, body any) *http.Response {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decodeError(t *testing.T, resp *http.Response) models.ErrorResponse {
	t.Helper()
	var e models.ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&e))
	return e
}

func TestCreatePost(t *testing.T) {
	app, posts, _, s := newMockedServer(t)
	author := uuid.New()

	posts.On("CreatePost", mock.Anything, service.CreatePostInput{AuthorID: author, Title: "Hello", Body: "World"}).
		Return(&models.Post{ID: uuid.New(), Title: "Hello", Body: "World", AuthorName: "alice"}, nil).Once()

	resp := doJSON(t, app, http.MethodPost, "/api/posts", bearer(t, s.tokens, author, false),
		map[string]string{"title": "Hello", "body": "World"})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	var got map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, "alice", got["author"])
	assert.Equal(t, float64(0), got["like_count"])
	posts.AssertExpectations(t)
}

func TestCreatePost_Validation(t *testing.T) {
	app, posts, _, s := newMockedServer(t)
	auth := bearer(t, s.tokens, uuid.New(), false)

	tests := []struct {
		name string
		body any
	}{
		{"missing title", map[string]string{"body": "x"}},
		{"title too long", map[string]string{"title": string(bytes.Repeat([]byte("t"), 101)), "body": "x"}},
		{"missing body", map[string]string{"title": "x"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := doJSON(t, app, http.MethodPost, "/api/posts", auth, tt.body)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.Equal(t, models.CodeValidation, decodeError(t, resp).Code)
		})
	}
	posts.AssertNotCalled(t, "CreatePost", mock.Anything, mock.Anything)
}

func TestCreatePost_RequiresAuth(t *testing.T) {
	app, posts, _, _ := newMockedServer(t)

	resp := doJSON(t, app, http.MethodPost, "/api/posts", "", map[string]string{"title": "a", "body": "b"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	posts.AssertNotCalled(t, "CreatePost", mock.Anything, mock.Anything)
}

func TestErrorKindsMapToStatus(t *testing.T) {
	app, posts, _, s := newMockedServer(t)
	user := uuid.New()
	auth := bearer(t, s.tokens, user, false)

	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"not found", models.NewNotFoundError("Post", "x"), http.StatusNotFound},
		{"self like", models.NewInvalidOperationError("You cannot like your own post"), http.StatusBadRequest},
		{"internal", models.NewInternalError(assert.AnError), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			postID := uuid.New()
			posts.On("AddLike", mock.Anything, postID, user).Return(tt.err).Once()

			resp := doJSON(t, app, http.MethodPost, "/api/posts/"+postID.String()+"/likes", auth, nil)
			assert.Equal(t, tt.status, resp.StatusCode)
			e := decodeError(t, resp)
			assert.Empty(t, e.Details, "internal details must not leak")
		})
	}
}

func TestLikeRoutes(t *testing.T) {
	app, posts, _, s := newMockedServer(t)
	user := uuid.New()
	postID := uuid.New()
	auth := bearer(t, s.tokens, user, false)

	posts.On("AddLike", mock.Anything, postID, user).Return(nil).Once()
	posts.On("RemoveLike", mock.Anything, postID, user).Return(nil).Once()

	resp := doJSON(t, app, http.MethodPost, "/api/posts/"+postID.String()+"/likes", auth, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp = doJSON(t, app, http.MethodDelete, "/api/posts/"+postID.String()+"/likes", auth, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = doJSON(t, app, http.MethodPost, "/api/posts/not-a-uuid/likes", auth, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	posts.AssertExpectations(t)
}

func TestAddTag_ModeratorOnly(t *testing.T) {
	app, posts, _, s := newMockedServer(t)
	postID := uuid.New()
	path := "/api/posts/" + postID.String() + "/tags"

	resp := doJSON(t, app, http.MethodPost, path, bearer(t, s.tokens, uuid.New(), false), map[string]string{"tag_name": "go"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	posts.On("AddTag", mock.Anything, postID, "go").Return(nil).Once()
	resp = doJSON(t, app, http.MethodPost, path, bearer(t, s.tokens, uuid.New(), true), map[string]string{"tag_name": "go"})
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = doJSON(t, app, http.MethodPost, path, bearer(t, s.tokens, uuid.New(), true), map[string]string{"tag_name": " "})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	posts.AssertExpectations(t)
}

func TestListPosts_ParsesQuery(t *testing.T) {
	app, posts, _, _ := newMockedServer(t)

	posts.On("ListPosts", mock.Anything, mock.MatchedBy(func(q query.PostQuery) bool {
		return q.Page == 2 && q.PageSize == 5 && q.Author == "ali" &&
			len(q.Tags) == 2 && q.SortBy == query.SortByLikes && q.Direction == query.Asc &&
			q.From != nil && q.From.Format("2006-01-02") == "2024-05-01" && q.To == nil
	})).Return(query.Page[models.Post]{Items: []models.Post{}, Page: 2, PageSize: 5, TotalCount: 11}, nil).Once()

	resp := doJSON(t, app, http.MethodGet,
		"/api/posts?page=2&pageSize=5&author=ali&tags=go,Rust,GO&fromDate=2024-05-01&sortBy=likes&sortDirection=Asc", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, float64(11), body["total_count"])
	assert.Equal(t, float64(3), body["total_pages"])
	posts.AssertExpectations(t)
}

func TestListPosts_RejectsBadParams(t *testing.T) {
	app, posts, _, _ := newMockedServer(t)

	for _, qs := range []string{
		"page=0",
		"page=abc",
		"page=2305843009213693953&pageSize=5",
		"pageSize=101",
		"sortBy=title",
		"sortDirection=sideways",
		"fromDate=yesterday",
	} {
		resp := doJSON(t, app, http.MethodGet, "/api/posts?"+qs, "", nil)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, qs)
	}
	posts.AssertNotCalled(t, "ListPosts", mock.Anything, mock.Anything)
}

func TestGetPost_PassesViewer(t *testing.T) {
	app, posts, _, s := newMockedServer(t)
	postID := uuid.New()
	viewer := uuid.New()

	posts.On("GetPost", mock.Anything, postID, uuid.Nil).Return(&models.Post{ID: postID}, nil).Once()
	posts.On("GetPost", mock.Anything, postID, viewer).Return(&models.Post{ID: postID, Liked: true}, nil).Once()

	resp := doJSON(t, app, http.MethodGet, "/api/posts/"+postID.String(), "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp = doJSON(t, app, http.MethodGet, "/api/posts/"+postID.String(), bearer(t, s.tokens, viewer, false), nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	posts.AssertExpectations(t)
}

func TestCreateComment(t *testing.T) {
	app, posts, _, s := newMockedServer(t)
	user := uuid.New()
	postID := uuid.New()

	posts.On("AddComment", mock.Anything, service.AddCommentInput{PostID: postID, AuthorID: user, Body: "nice"}).
		Return(&models.Comment{ID: uuid.New(), PostID: postID, Body: "nice"}, nil).Once()

	resp := doJSON(t, app, http.MethodPost, "/api/posts/"+postID.String()+"/comments",
		bearer(t, s.tokens, user, false), map[string]string{"body": "nice"})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	posts.AssertExpectations(t)
}
