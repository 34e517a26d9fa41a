package handler

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/sakif/wiki/internal/apperror"
	"github.com/sakif/wiki/internal/auth"
	"github.com/sakif/wiki/internal/model"
	"github.com/sakif/wiki/internal/service"
)

// ArticleHandler serves the article, search, stats and per-user endpoints.
type ArticleHandler struct {
	articles *service.ArticleService
	logger   *slog.Logger
}

func NewArticleHandler(articles *service.ArticleService, logger *slog.Logger) *ArticleHandler {
	return &ArticleHandler{articles: articles, logger: logger}
}

// articleRequest is the body of POST and PUT /api/articles. It decodes from
// JSON or from an HTML form post.
type articleRequest struct {
	Title   *string `json:"title" form:"title"`
	Content *string `json:"content" form:"content"`
}

// Bind rejects bodies that omit a field entirely. Blank values are left for
// the service to reject so both paths report the same message.
func (a *articleRequest) Bind(r *http.Request) error {
	if a.Title == nil {
		return apperror.ValidationFailed("title", "title is required")
	}
	if a.Content == nil {
		return apperror.ValidationFailed("content", "content is required")
	}
	return nil
}

type articleResponse struct {
	Article *model.Article `json:"article"`
}

// HandleLatest: GET /api/articles/latest?limit=N
func (h *ArticleHandler) HandleLatest(w http.ResponseWriter, r *http.Request) {
	articles, err := h.articles.ListLatest(r.Context(), r.URL.Query().Get("limit"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]any{"articles": articles})
}

// HandleSearch: GET /api/articles/search?q=term
func (h *ArticleHandler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	results, err := h.articles.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]any{
		"results": results,
		"count":   len(results),
	})
}

// HandleWithAuthors: GET /api/articles/with-authors?limit=N&offset=M
func (h *ArticleHandler) HandleWithAuthors(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit := service.ParseLimit(q.Get("limit"), service.DefaultFeedLimit, service.MaxFeedLimit)
	offset, err := strconv.Atoi(q.Get("offset"))
	if err != nil || offset < 0 {
		offset = 0
	}

	feed, err := h.articles.ListWithAuthors(r.Context(), limit, offset)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]any{
		"articles": feed.Articles,
		"stats":    feed.Stats,
		"metadata": map[string]int{
			"limit":  limit,
			"offset": offset,
			"count":  len(feed.Articles),
		},
	})
}

// HandleGet: GET /api/articles/{id}
func (h *ArticleHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := articleID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	article, err := h.articles.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, articleResponse{Article: article})
}

// HandleCreate: POST /api/articles (auth required)
func (h *ArticleHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	callerID, _ := auth.UserIDFromContext(r.Context())

	req := &articleRequest{}
	if err := render.Bind(r, req); err != nil {
		writeBindError(w, r, err)
		return
	}

	article, err := h.articles.Create(r.Context(), callerID, *req.Title, *req.Content)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, articleResponse{Article: article})
}

// HandleUpdate: PUT /api/articles/{id} (auth required, author only)
func (h *ArticleHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	callerID, _ := auth.UserIDFromContext(r.Context())

	id, err := articleID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	req := &articleRequest{}
	if err := render.Bind(r, req); err != nil {
		writeBindError(w, r, err)
		return
	}

	article, err := h.articles.Update(r.Context(), id, callerID, *req.Title, *req.Content)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, articleResponse{Article: article})
}

// HandleDelete: DELETE /api/articles/{id} (auth required, author only)
func (h *ArticleHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	callerID, _ := auth.UserIDFromContext(r.Context())

	id, err := articleID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := h.articles.Delete(r.Context(), id, callerID); err != nil {
		writeError(w, r, err)
		return
	}
	render.NoContent(w, r)
}

// HandleStats: GET /api/stats
func (h *ArticleHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	report, err := h.articles.Stats(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, report)
}

// HandleByAuthor: GET /api/users/{id}/articles
func (h *ArticleHandler) HandleByAuthor(w http.ResponseWriter, r *http.Request) {
	user, articles, err := h.articles.ListByAuthor(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]any{
		"user":     user,
		"articles": articles,
		"count":    len(articles),
	})
}

func articleID(r *http.Request) (int64, error) {
	raw := strings.TrimSpace(chi.URLParam(r, "id"))
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperror.ValidationFailed("id", "article ID must be a positive integer")
	}
	return id, nil
}
