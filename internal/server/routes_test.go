package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/contentdeck/apiserver/internal/auth"
	"github.com/contentdeck/apiserver/internal/ratelimit"
	"github.com/contentdeck/apiserver/internal/services"
	"github.com/contentdeck/apiserver/internal/testutil"
	"github.com/contentdeck/apiserver/types"
)

type pingOK struct{}

func (pingOK) PingContext(context.Context) error { return nil }

type testAPI struct {
	t       *testing.T
	srv     *httptest.Server
	objects *testutil.ObjectStore
	events  *testutil.EventRecorder
}

type options struct {
	exports     bool
	authLimiter ratelimit.Allower
}

func newTestAPI(t *testing.T, opts options) *testAPI {
	t.Helper()
	clock := testutil.FixedClock()
	users := testutil.NewUserRepo(clock)
	blogs := testutil.NewBlogRepo(clock)
	movies := testutil.NewMediaRepo(types.MediaMovie, clock)
	tvShows := testutil.NewMediaRepo(types.MediaTVShow, clock)
	events := &testutil.EventRecorder{}

	tokens, err := auth.NewTokenService("test-secret", time.Hour)
	require.NoError(t, err)

	blogSvc := services.NewBlogService(blogs, events)
	movieSvc := services.NewMediaService(movies, events)
	tvShowSvc := services.NewMediaService(tvShows, events)
	userSvc := services.NewUserService(
		users,
		auth.NewPasswordHasher(bcrypt.MinCost, 2),
		tokens,
		services.ProfileCounters{Blogs: blogSvc, Movies: movieSvc, TVShows: tvShowSvc},
		events,
	)

	api := &testAPI{t: t, events: events}
	deps := Deps{
		Users:       userSvc,
		Blogs:       blogSvc,
		Movies:      movieSvc,
		TVShows:     tvShowSvc,
		Guard:       auth.NewGuard(tokens),
		DB:          pingOK{},
		AuthLimiter: opts.authLimiter,
		CORSOrigins: []string{"http://localhost:3000"},
	}
	if opts.exports {
		api.objects = testutil.NewObjectStore()
		deps.Exports = services.NewExportService(users, blogs, movies, tvShows, api.objects)
	}

	api.srv = httptest.NewServer(NewRouter(deps))
	t.Cleanup(api.srv.Close)
	return api
}

// do sends a JSON request and decodes the response into out when non-nil.
func (a *testAPI) do(method, path, token string, body any, out any) int {
	a.t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(a.t, err)
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, a.srv.URL+path, reader)
	require.NoError(a.t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := a.srv.Client().Do(req)
	require.NoError(a.t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(a.t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func (a *testAPI) register(username string) string {
	a.t.Helper()
	var res services.AuthResult
	status := a.do(http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"username": username,
		"email":    username + "@x.com",
		"password": "pw123",
		"name":     username,
	}, &res)
	require.Equal(a.t, http.StatusCreated, status)
	require.NotEmpty(a.t, res.Token)
	return res.Token
}

type errorBody struct {
	Error string `json:"error"`
}

func TestAuthFlow(t *testing.T) {
	api := newTestAPI(t, options{})
	token := api.register("alice")

	var login services.AuthResult
	status := api.do(http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"username": "alice@x.com",
		"password": "pw123",
	}, &login)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "alice", login.User.Username)

	var me types.User
	require.Equal(t, http.StatusOK, api.do(http.MethodGet, "/api/v1/auth/me", token, nil, &me))
	assert.Equal(t, "alice", me.Username)

	var body errorBody
	status = api.do(http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"username": "alice",
		"password": "wrong",
	}, &body)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "invalid credentials", body.Error)

	status = api.do(http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"username": "ALICE",
		"email":    "other@x.com",
		"password": "pw123",
		"name":     "Alice Again",
	}, &body)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "username or email already exists", body.Error)
}

func TestMissingAndInvalidTokens(t *testing.T) {
	api := newTestAPI(t, options{})

	var body errorBody
	assert.Equal(t, http.StatusUnauthorized, api.do(http.MethodGet, "/api/v1/blogs", "", nil, &body))
	assert.Equal(t, "access token required", body.Error)

	assert.Equal(t, http.StatusForbidden, api.do(http.MethodGet, "/api/v1/blogs", "not-a-jwt", nil, &body))
	assert.Equal(t, "invalid token", body.Error)

	other, err := auth.NewTokenService("another-secret", time.Hour)
	require.NoError(t, err)
	forged, err := other.Issue(1, "alice")
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, api.do(http.MethodGet, "/api/v1/movies", forged, nil, &body))
}

func TestMovieVisibilityScenario(t *testing.T) {
	api := newTestAPI(t, options{})
	alice := api.register("alice")
	bob := api.register("bob")

	var dune types.Media
	status := api.do(http.MethodPost, "/api/v1/movies", alice, map[string]any{
		"title":  "Dune",
		"year":   2021,
		"rating": 5,
		"notes":  "spice",
	}, &dune)
	require.Equal(t, http.StatusCreated, status)
	assert.True(t, dune.IsPublic, "movies default to public")

	var public []types.PublicMedia
	require.Equal(t, http.StatusOK, api.do(http.MethodGet, "/api/v1/public/alice/movies", "", nil, &public))
	require.Len(t, public, 1)
	assert.Equal(t, "Dune", public[0].Title)

	var updated types.Media
	status = api.do(http.MethodPut, fmt.Sprintf("/api/v1/movies/%d", dune.ID), alice, map[string]any{
		"title":     "Dune",
		"year":      2021,
		"rating":    5,
		"notes":     "spice",
		"is_public": false,
	}, &updated)
	require.Equal(t, http.StatusOK, status)
	assert.False(t, updated.IsPublic)

	public = nil
	require.Equal(t, http.StatusOK, api.do(http.MethodGet, "/api/v1/public/alice/movies", "", nil, &public))
	assert.Empty(t, public)

	var mine []types.Media
	require.Equal(t, http.StatusOK, api.do(http.MethodGet, "/api/v1/movies", alice, nil, &mine))
	require.Len(t, mine, 1)
	assert.Equal(t, dune.ID, mine[0].ID)

	var body errorBody
	path := fmt.Sprintf("/api/v1/movies/%d", dune.ID)
	assert.Equal(t, http.StatusNotFound, api.do(http.MethodGet, path, bob, nil, &body))
	assert.Equal(t, "movie not found", body.Error)
	assert.Equal(t, http.StatusNotFound, api.do(http.MethodDelete, path, bob, nil, &body))

	var missing errorBody
	assert.Equal(t, http.StatusNotFound, api.do(http.MethodGet, "/api/v1/movies/999", alice, nil, &missing))
	assert.Equal(t, body, missing, "foreign and missing records look identical")

	var msg struct {
		Message string `json:"message"`
	}
	require.Equal(t, http.StatusOK, api.do(http.MethodDelete, path, alice, nil, &msg))
	assert.Equal(t, "movie deleted", msg.Message)
	assert.Equal(t, http.StatusNotFound, api.do(http.MethodGet, path, alice, nil, &body))

	assert.Equal(t,
		[]string{"user.registered", "user.registered", "movie.created", "movie.updated", "movie.deleted"},
		api.events.Types(),
	)
}

func TestBlogFiltersAndValidation(t *testing.T) {
	api := newTestAPI(t, options{})
	token := api.register("alice")

	for _, b := range []map[string]any{
		{"title": "Go tips", "content": "channels", "tags": []string{"go"}},
		{"title": "Rust notes", "content": "borrowing", "tags": []string{"rust"}},
		{"title": "draft", "content": "go generics", "tags": []string{"go"}, "is_public": false},
	} {
		require.Equal(t, http.StatusCreated, api.do(http.MethodPost, "/api/v1/blogs", token, b, nil))
	}

	var blogs []types.Blog
	require.Equal(t, http.StatusOK, api.do(http.MethodGet, "/api/v1/blogs/filter?tag=go&sortBy=title", token, nil, &blogs))
	require.Len(t, blogs, 2)
	assert.Equal(t, "Go tips", blogs[0].Title)
	assert.Equal(t, "draft", blogs[1].Title)

	var public []types.PublicBlog
	require.Equal(t, http.StatusOK, api.do(http.MethodGet, "/api/v1/public/alice/blogs?search=go", "", nil, &public))
	require.Len(t, public, 1)
	assert.Equal(t, "Go tips", public[0].Title)

	var body errorBody
	assert.Equal(t, http.StatusBadRequest, api.do(http.MethodPost, "/api/v1/blogs", token, map[string]any{"title": "  "}, &body))
	assert.Equal(t, "title is required", body.Error)

	assert.Equal(t, http.StatusBadRequest, api.do(http.MethodGet, "/api/v1/movies?minRating=abc", token, nil, &body))
	assert.Equal(t, http.StatusBadRequest, api.do(http.MethodPost, "/api/v1/tvshows", token, map[string]any{
		"title": "Severance", "year": 2022, "rating": 6,
	}, &body))
	assert.Equal(t, "rating must be between 1 and 5", body.Error)

	assert.Equal(t, http.StatusBadRequest, api.do(http.MethodPost, "/api/v1/blogs", token, map[string]any{
		"title": strings.Repeat("x", 300),
	}, &body))
	assert.Equal(t, "title must be at most 255 characters", body.Error)
	assert.Equal(t, http.StatusBadRequest, api.do(http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"username": strings.Repeat("u", 60), "email": "u@x.com", "password": "pw123", "name": "U",
	}, &body))
	assert.Equal(t, "username must be at most 50 characters", body.Error)
}

func TestProfile(t *testing.T) {
	api := newTestAPI(t, options{})
	token := api.register("alice")

	require.Equal(t, http.StatusCreated, api.do(http.MethodPost, "/api/tvshows", token, map[string]any{
		"title": "Severance", "year": 2022, "rating": 5,
	}, nil))

	var user types.User
	require.Equal(t, http.StatusOK, api.do(http.MethodPut, "/api/v1/profile", token, map[string]string{
		"name": "Alice L.",
		"bio":  "watches things",
	}, &user))
	assert.Equal(t, "Alice L.", user.Name)

	var profile types.PublicProfile
	require.Equal(t, http.StatusOK, api.do(http.MethodGet, "/api/v1/profile/alice", "", nil, &profile))
	assert.Equal(t, "watches things", profile.Bio)
	assert.Equal(t, types.ProfileStats{TVShows: 1}, profile.Stats)

	var body errorBody
	assert.Equal(t, http.StatusNotFound, api.do(http.MethodGet, "/api/v1/profile/nobody", "", nil, &body))
	assert.Equal(t, "user not found", body.Error)
	assert.Equal(t, http.StatusNotFound, api.do(http.MethodGet, "/api/v1/public/nobody/blogs", "", nil, &body))
	assert.Equal(t, http.StatusUnauthorized, api.do(http.MethodPut, "/api/v1/profile", "", map[string]string{"name": "x"}, &body))
}

func TestExports(t *testing.T) {
	api := newTestAPI(t, options{exports: true})
	alice := api.register("alice")
	bob := api.register("bob")

	require.Equal(t, http.StatusCreated, api.do(http.MethodPost, "/api/v1/movies", alice, map[string]any{
		"title": "Dune", "year": 2021, "rating": 5, "is_public": false,
	}, nil))

	var receipt types.ExportReceipt
	require.Equal(t, http.StatusCreated, api.do(http.MethodPost, "/api/v1/exports", alice, nil, &receipt))
	require.NotEmpty(t, receipt.ID)

	var doc types.LibraryExport
	require.Equal(t, http.StatusOK, api.do(http.MethodGet, "/api/v1/exports/"+receipt.ID, alice, nil, &doc))
	require.Len(t, doc.Movies, 1)
	assert.Equal(t, "Dune", doc.Movies[0].Title)

	var body errorBody
	assert.Equal(t, http.StatusNotFound, api.do(http.MethodGet, "/api/v1/exports/"+receipt.ID, bob, nil, &body))
	assert.Equal(t, "export not found", body.Error)
}

func TestExportsDisabledWithoutStorage(t *testing.T) {
	api := newTestAPI(t, options{})
	token := api.register("alice")

	var body errorBody
	assert.Equal(t, http.StatusNotFound, api.do(http.MethodPost, "/api/v1/exports", token, nil, &body))
	assert.Equal(t, "endpoint not found", body.Error)
}

func TestUnknownEndpointsAndHealth(t *testing.T) {
	api := newTestAPI(t, options{})

	var body errorBody
	assert.Equal(t, http.StatusNotFound, api.do(http.MethodGet, "/api/v1/nope", "", nil, &body))
	assert.Equal(t, "endpoint not found", body.Error)
	assert.Equal(t, http.StatusNotFound, api.do(http.MethodGet, "/elsewhere", "", nil, &body))

	var health struct {
		Status   string `json:"status"`
		Database string `json:"database"`
	}
	for _, path := range []string{"/health", "/api/v1/health", "/api/health"} {
		health.Status, health.Database = "", ""
		require.Equal(t, http.StatusOK, api.do(http.MethodGet, path, "", nil, &health), path)
		assert.Equal(t, "ok", health.Status, path)
		assert.Equal(t, "connected", health.Database, path)
	}

	resp, err := api.srv.Client().Get(api.srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
}

type denyAfter struct {
	allowed int
	calls   int
}

func (d *denyAfter) Allow(context.Context, string) (ratelimit.Result, error) {
	d.calls++
	if d.calls > d.allowed {
		return ratelimit.Result{Allowed: false, ResetAt: time.Now().Add(time.Minute), RetryAfter: time.Minute}, nil
	}
	return ratelimit.Result{Allowed: true, Remaining: d.allowed - d.calls, ResetAt: time.Now().Add(time.Minute)}, nil
}

func (d *denyAfter) Limit() int   { return d.allowed }
func (d *denyAfter) Name() string { return "auth" }

func TestAuthRateLimit(t *testing.T) {
	limiter := &denyAfter{allowed: 1}
	api := newTestAPI(t, options{authLimiter: limiter})
	token := api.register("alice")

	var body errorBody
	status := api.do(http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"username": "alice",
		"password": "pw123",
	}, &body)
	assert.Equal(t, http.StatusTooManyRequests, status)
	assert.Equal(t, "too many requests", body.Error)

	assert.Equal(t, http.StatusOK, api.do(http.MethodGet, "/api/v1/auth/me", token, nil, nil), "me is not behind the auth limiter")
	assert.Equal(t, 2, limiter.calls)
}
