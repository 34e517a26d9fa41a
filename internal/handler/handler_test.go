package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/sakif/wiki/internal/apperror"
	"github.com/sakif/wiki/internal/auth"
	"github.com/sakif/wiki/internal/model"
	"github.com/sakif/wiki/internal/repository/sqldb"
	"github.com/sakif/wiki/internal/service"
)

type testEnv struct {
	router http.Handler
	db     *sqldb.DB
	tokens *auth.TokenService
}

// newTestEnv mounts the handlers on a router shaped like the production one,
// backed by an in-memory database.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	db, err := sqldb.New(sqldb.DriverSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	tokens, err := auth.NewTokenService("test-secret-at-least-16-chars!!", time.Hour)
	require.NoError(t, err)

	articles := NewArticleHandler(service.NewArticleService(db, db, db, logger), logger)
	authH := NewAuthHandler(
		service.NewAuthService(db, tokens, auth.NewPasswordServiceWithCost(bcrypt.MinCost), logger),
		nil, false, logger,
	)

	r := chi.NewRouter()
	r.Get("/healthz", HandleHealth(db))
	r.Post("/auth/signup", authH.HandleSignUp)
	r.Post("/auth/signin", authH.HandleSignIn)
	r.Post("/auth/logout", authH.HandleLogout)
	r.Get("/auth/github/login", authH.HandleGitHubLogin)
	r.Route("/api", func(r chi.Router) {
		r.Use(auth.OptionalAuth(tokens))
		r.Get("/articles/latest", articles.HandleLatest)
		r.Get("/articles/search", articles.HandleSearch)
		r.Get("/articles/with-authors", articles.HandleWithAuthors)
		r.Get("/articles/{id}", articles.HandleGet)
		r.Get("/stats", articles.HandleStats)
		r.Get("/users/{id}/articles", articles.HandleByAuthor)
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth(tokens))
			r.Post("/articles", articles.HandleCreate)
			r.Put("/articles/{id}", articles.HandleUpdate)
			r.Delete("/articles/{id}", articles.HandleDelete)
			r.Get("/me", authH.HandleMe)
		})
	})

	return &testEnv{router: r, db: db, tokens: tokens}
}

// user creates an account directly in the store and returns it with a
// session token.
func (e *testEnv) user(t *testing.T, name string) (*model.User, string) {
	t.Helper()
	u := &model.User{Name: name, Email: name + "@example.com"}
	require.NoError(t, e.db.CreateUser(context.Background(), u))
	token, err := e.tokens.Generate(u.ID)
	require.NoError(t, err)
	return u, token
}

func (e *testEnv) do(t *testing.T, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.AddCookie(&http.Cookie{Name: auth.CookieName, Value: token})
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), "body: %s", rec.Body.String())
}

type articleBody struct {
	Article struct {
		ID          int64     `json:"id"`
		Title       string    `json:"title"`
		Content     string    `json:"content"`
		AuthorID    string    `json:"authorId"`
		AuthorName  *string   `json:"authorName"`
		AuthorEmail *string   `json:"authorEmail"`
		CreatedAt   time.Time `json:"createdAt"`
		UpdatedAt   time.Time `json:"updatedAt"`
	} `json:"article"`
}

// =========================================================================
// ARTICLE CRUD
// =========================================================================

func TestArticleLifecycle(t *testing.T) {
	env := newTestEnv(t)
	alice, aliceToken := env.user(t, "alice")
	_, bobToken := env.user(t, "bob")

	rec := env.do(t, http.MethodPost, "/api/articles", aliceToken, `{"title":"Hello","content":"# Hi"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created articleBody
	decode(t, rec, &created)
	assert.Equal(t, alice.ID, created.Article.AuthorID)
	path := "/api/articles/" + itoa(created.Article.ID)

	rec = env.do(t, http.MethodGet, path, "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var got articleBody
	decode(t, rec, &got)
	assert.Equal(t, "Hello", got.Article.Title)
	require.NotNil(t, got.Article.AuthorName)
	assert.Equal(t, "alice", *got.Article.AuthorName)
	require.NotNil(t, got.Article.AuthorEmail)

	rec = env.do(t, http.MethodPut, path, bobToken, `{"title":"pwned","content":"x"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, http.MethodPut, path, aliceToken, `{"title":"Hello 2","content":"# Hi again"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var updated articleBody
	decode(t, rec, &updated)
	assert.Equal(t, "Hello 2", updated.Article.Title)
	assert.True(t, updated.Article.UpdatedAt.After(created.Article.UpdatedAt))

	rec = env.do(t, http.MethodDelete, path, bobToken, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, http.MethodDelete, path, aliceToken, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = env.do(t, http.MethodGet, path, "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateArticle_Errors(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.user(t, "alice")

	tests := []struct {
		name      string
		token     string
		body      string
		wantCode  int
		wantKind  string
		wantField string
	}{
		{"anonymous", "", `{"title":"t","content":"c"}`, http.StatusUnauthorized, "unauthorized", ""},
		{"bad json", token, `{"title":`, http.StatusBadRequest, "validation_error", ""},
		{"missing title", token, `{"content":"c"}`, http.StatusBadRequest, "validation_error", "title"},
		{"blank title", token, `{"title":"  ","content":"c"}`, http.StatusBadRequest, "validation_error", "title"},
		{"blank content", token, `{"title":"t","content":""}`, http.StatusBadRequest, "validation_error", "content"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/api/articles", tt.token, tt.body)
			assert.Equal(t, tt.wantCode, rec.Code)

			var body ErrorResponse
			decode(t, rec, &body)
			assert.Equal(t, tt.wantKind, body.Error)
			assert.Equal(t, tt.wantField, body.Field)
		})
	}
}

func TestCreateArticle_FormPost(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.user(t, "alice")

	form := url.Values{"title": {"From a form"}, "content": {"body"}}
	req := httptest.NewRequest(http.MethodPost, "/api/articles", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.AddCookie(&http.Cookie{Name: auth.CookieName, Value: token})
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created articleBody
	decode(t, rec, &created)
	assert.Equal(t, "From a form", created.Article.Title)
}

func TestGetArticle_BadID(t *testing.T) {
	env := newTestEnv(t)

	for _, id := range []string{"abc", "0", "-1"} {
		rec := env.do(t, http.MethodGet, "/api/articles/"+id, "", "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, "id=%s", id)
	}
}

// =========================================================================
// READ ENDPOINTS
// =========================================================================

func TestLatestAndSearch(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.user(t, "alice")
	for _, title := range []string{"Go generics", "SQL joins", "Go channels"} {
		rec := env.do(t, http.MethodPost, "/api/articles", token, `{"title":"`+title+`","content":"text"}`)
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec := env.do(t, http.MethodGet, "/api/articles/latest?limit=2", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var latest struct {
		Articles []model.ArticleSummary `json:"articles"`
	}
	decode(t, rec, &latest)
	require.Len(t, latest.Articles, 2)
	assert.Equal(t, "Go channels", latest.Articles[0].Title)

	rec = env.do(t, http.MethodGet, "/api/articles/search?q=go", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var search struct {
		Results []model.ArticleSummary `json:"results"`
		Count   int                    `json:"count"`
	}
	decode(t, rec, &search)
	assert.Equal(t, 2, search.Count)

	rec = env.do(t, http.MethodGet, "/api/articles/search?q=zzz", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"results":[]`)

	rec = env.do(t, http.MethodGet, "/api/articles/search?q=", "", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStatsAndWithAuthors(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/stats", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var empty model.StatsReport
	decode(t, rec, &empty)
	assert.Zero(t, empty.Global.TotalArticles)

	_, token := env.user(t, "alice")
	rec = env.do(t, http.MethodPost, "/api/articles", token, `{"title":"t","content":"1234"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/stats", "", "")
	var report model.StatsReport
	decode(t, rec, &report)
	assert.Equal(t, int64(1), report.Global.TotalArticles)
	assert.Equal(t, int64(4), report.Global.AvgContentLength)
	require.Len(t, report.Authors, 1)

	rec = env.do(t, http.MethodGet, "/api/articles/with-authors?limit=abc&offset=-4", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var feed struct {
		Articles []model.ArticleWithAuthor `json:"articles"`
		Stats    *model.Stats              `json:"stats"`
		Metadata map[string]int            `json:"metadata"`
	}
	decode(t, rec, &feed)
	require.Len(t, feed.Articles, 1)
	assert.Equal(t, int64(1), feed.Articles[0].Author.ArticleCount)
	require.NotNil(t, feed.Stats)
	assert.Equal(t, 50, feed.Metadata["limit"])
	assert.Equal(t, 0, feed.Metadata["offset"])
}

func TestByAuthor(t *testing.T) {
	env := newTestEnv(t)
	alice, token := env.user(t, "alice")
	rec := env.do(t, http.MethodPost, "/api/articles", token, `{"title":"t","content":"c"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/users/"+alice.ID+"/articles", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		User     model.UserRef          `json:"user"`
		Articles []model.ArticleSummary `json:"articles"`
		Count    int                    `json:"count"`
	}
	decode(t, rec, &body)
	assert.Equal(t, "alice", body.User.Name)
	assert.Equal(t, 1, body.Count)

	rec = env.do(t, http.MethodGet, "/api/users/nobody/articles", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// =========================================================================
// AUTH ENDPOINTS
// =========================================================================

func TestSignUpSignInMe(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/auth/signup", "", `{"name":"Carol","email":"carol@example.com","password":"password123"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.NotContains(t, rec.Body.String(), "password", "hash must never be serialized")

	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)
	assert.Equal(t, auth.CookieName, cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)

	rec = env.do(t, http.MethodPost, "/auth/signup", "", `{"name":"C2","email":"carol@example.com","password":"password123"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = env.do(t, http.MethodPost, "/auth/signin", "", `{"email":"carol@example.com","password":"wrong-password"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodPost, "/auth/signin", "", `{"email":"carol@example.com","password":"password123"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var session struct {
		User  model.User `json:"user"`
		Token string     `json:"token"`
	}
	decode(t, rec, &session)
	require.NotEmpty(t, session.Token)

	// Bearer header works as well as the cookie.
	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.Header.Set("Authorization", "Bearer "+session.Token)
	me := httptest.NewRecorder()
	env.router.ServeHTTP(me, req)
	require.Equal(t, http.StatusOK, me.Code)
	assert.Contains(t, me.Body.String(), "carol@example.com")

	rec = env.do(t, http.MethodGet, "/api/me", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodPost, "/auth/logout", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, -1, rec.Result().Cookies()[0].MaxAge)
}

func TestGitHubLogin_Disabled(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/auth/github/login", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

// =========================================================================
// ERROR MAPPING
// =========================================================================

func TestWriteError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantKind string
	}{
		{"validation", apperror.ValidationFailed("title", "title is required"), http.StatusBadRequest, "validation_error"},
		{"unauthorized", apperror.Unauthorized("sign in"), http.StatusUnauthorized, "unauthorized"},
		{"forbidden", apperror.Forbidden("no"), http.StatusForbidden, "forbidden"},
		{"not found", apperror.NotFound("article", "1"), http.StatusNotFound, "not_found"},
		{"conflict", apperror.Conflict("user", "a"), http.StatusConflict, "conflict"},
		{"internal", assert.AnError, http.StatusInternalServerError, "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			writeError(rec, httptest.NewRequest(http.MethodGet, "/", nil), tt.err)

			assert.Equal(t, tt.wantCode, rec.Code)
			var body ErrorResponse
			decode(t, rec, &body)
			assert.Equal(t, tt.wantKind, body.Error)
			if tt.wantKind == "internal_error" {
				assert.NotContains(t, body.Message, assert.AnError.Error())
			}
		})
	}
}

func itoa(n int64) string {
	b, _ := json.Marshal(n)
	return string(b)
}
