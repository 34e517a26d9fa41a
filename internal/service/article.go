// Package service holds the wiki's business rules.
//
//	Handler (HTTP)  → parses requests, writes responses
//	Service         → validates input, authorizes, logs business events
//	Repository      → reads/writes the database
//
// Services accept primitives and the caller's identity as plain arguments and
// return apperror kinds. They know nothing about HTTP, cookies or SQL.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/sakif/wiki/internal/apperror"
	"github.com/sakif/wiki/internal/auth"
	"github.com/sakif/wiki/internal/model"
	"github.com/sakif/wiki/internal/repository"
)

const (
	MaxTitleLength = 200

	DefaultLatestLimit = 10
	MaxLatestLimit     = 100

	SearchLimit = 50

	DefaultFeedLimit = 50
	MaxFeedLimit     = 100
)

// ArticleService implements the article operations on top of the
// repositories.
type ArticleService struct {
	articles repository.ArticleRepository
	users    repository.UserRepository
	stats    repository.StatsRepository
	logger   *slog.Logger
}

func NewArticleService(
	articles repository.ArticleRepository,
	users repository.UserRepository,
	stats repository.StatsRepository,
	logger *slog.Logger,
) *ArticleService {
	return &ArticleService{
		articles: articles,
		users:    users,
		stats:    stats,
		logger:   logger,
	}
}

// Create stores a new article authored by callerID.
func (s *ArticleService) Create(ctx context.Context, callerID, title, content string) (*model.Article, error) {
	if callerID == "" {
		return nil, apperror.Unauthorized("sign in to create articles")
	}

	title, content, err := validateArticle(title, content)
	if err != nil {
		return nil, err
	}

	article := &model.Article{
		Title:    title,
		Content:  content,
		AuthorID: callerID,
	}
	if err := s.articles.Create(ctx, article); err != nil {
		if isDomainError(err) {
			return nil, err
		}
		s.logger.Error("failed to create article",
			slog.String("author_id", callerID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating article: %w", err)
	}

	s.logger.Info("article created",
		slog.Int64("id", article.ID),
		slog.String("author_id", callerID),
	)

	// Reload for the author's display fields.
	if stored, err := s.articles.GetByID(ctx, article.ID); err == nil {
		return stored, nil
	}
	return article, nil
}

// GetByID returns one article with its author's name and email.
func (s *ArticleService) GetByID(ctx context.Context, id int64) (*model.Article, error) {
	if id <= 0 {
		return nil, apperror.ValidationFailed("id", "article ID must be a positive integer")
	}
	return s.articles.GetByID(ctx, id)
}

// Update replaces title and content of an article the caller owns.
//
// Checks run in a fixed order: signed in, valid fields, article exists,
// caller is the author. The write itself re-checks ownership.
func (s *ArticleService) Update(ctx context.Context, id int64, callerID, title, content string) (*model.Article, error) {
	if callerID == "" {
		return nil, apperror.Unauthorized("sign in to edit articles")
	}

	title, content, err := validateArticle(title, content)
	if err != nil {
		return nil, err
	}

	article, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := auth.Authorize(callerID, article); err != nil {
		s.logger.Warn("article update denied",
			slog.Int64("id", id),
			slog.String("caller_id", callerID),
		)
		return nil, err
	}

	article.Title = title
	article.Content = content
	if err := s.articles.Update(ctx, article); err != nil {
		if isDomainError(err) {
			return nil, err
		}
		s.logger.Error("failed to update article",
			slog.Int64("id", id),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("updating article: %w", err)
	}

	s.logger.Info("article updated", slog.Int64("id", id))
	return article, nil
}

// Delete permanently removes an article the caller owns.
func (s *ArticleService) Delete(ctx context.Context, id int64, callerID string) error {
	if callerID == "" {
		return apperror.Unauthorized("sign in to delete articles")
	}

	article, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if err := auth.Authorize(callerID, article); err != nil {
		s.logger.Warn("article delete denied",
			slog.Int64("id", id),
			slog.String("caller_id", callerID),
		)
		return err
	}

	if err := s.articles.Delete(ctx, id, callerID); err != nil {
		if isDomainError(err) {
			return err
		}
		s.logger.Error("failed to delete article",
			slog.Int64("id", id),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("deleting article: %w", err)
	}

	s.logger.Info("article deleted", slog.Int64("id", id))
	return nil
}

// ListLatest returns the newest articles. limitRaw comes straight from the
// query string: absent, non-numeric or non-positive means the default, and
// anything above MaxLatestLimit is clamped.
func (s *ArticleService) ListLatest(ctx context.Context, limitRaw string) ([]model.ArticleSummary, error) {
	limit := ParseLimit(limitRaw, DefaultLatestLimit, MaxLatestLimit)

	summaries, err := s.articles.ListLatest(ctx, limit)
	if err != nil {
		s.logger.Error("failed to list latest articles", slog.String("error", err.Error()))
		return nil, fmt.Errorf("listing latest articles: %w", err)
	}
	return summaries, nil
}

// Search finds articles whose title or content contains query, ignoring
// case. At most SearchLimit results are returned.
func (s *ArticleService) Search(ctx context.Context, query string) ([]model.ArticleSummary, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, apperror.ValidationFailed("q", "search query is required")
	}

	results, err := s.articles.Search(ctx, query, SearchLimit)
	if err != nil {
		s.logger.Error("failed to search articles",
			slog.String("query", query),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("searching articles: %w", err)
	}
	return results, nil
}

// ListByAuthor returns an author and all of their articles, oldest first.
// An unknown author is NotFound, never an empty list.
func (s *ArticleService) ListByAuthor(ctx context.Context, authorID string) (*model.UserRef, []model.ArticleSummary, error) {
	authorID = strings.TrimSpace(authorID)
	if authorID == "" {
		return nil, nil, apperror.ValidationFailed("id", "user ID is required")
	}

	user, err := s.users.GetUserByID(ctx, authorID)
	if err != nil {
		return nil, nil, err
	}

	articles, err := s.articles.ListByAuthor(ctx, authorID)
	if err != nil {
		s.logger.Error("failed to list articles by author",
			slog.String("author_id", authorID),
			slog.String("error", err.Error()),
		)
		return nil, nil, fmt.Errorf("listing articles by author: %w", err)
	}

	return &model.UserRef{ID: user.ID, Name: user.Name}, articles, nil
}

// Stats returns global counters and the per-author breakdown.
func (s *ArticleService) Stats(ctx context.Context) (*model.StatsReport, error) {
	report, err := s.stats.AggregateStats(ctx)
	if err != nil {
		s.logger.Error("failed to aggregate stats", slog.String("error", err.Error()))
		return nil, fmt.Errorf("aggregating stats: %w", err)
	}
	return report, nil
}

// ListWithAuthors returns a page of articles with author profiles and the
// global counters.
func (s *ArticleService) ListWithAuthors(ctx context.Context, limit, offset int) (*model.ArticleFeed, error) {
	if limit <= 0 {
		limit = DefaultFeedLimit
	}
	if limit > MaxFeedLimit {
		limit = MaxFeedLimit
	}
	if offset < 0 {
		offset = 0
	}

	feed, err := s.articles.ListWithAuthors(ctx, repository.ListOptions{Limit: limit, Offset: offset})
	if err != nil {
		s.logger.Error("failed to list articles with authors", slog.String("error", err.Error()))
		return nil, fmt.Errorf("listing articles with authors: %w", err)
	}
	return feed, nil
}

// ParseLimit turns a raw query-string value into a page size.
func ParseLimit(raw string, def, max int) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n <= 0 {
		return def
	}
	if n > max {
		return max
	}
	return n
}

func validateArticle(title, content string) (string, string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", "", apperror.ValidationFailed("title", "title is required")
	}
	if utf8.RuneCountInString(title) > MaxTitleLength {
		return "", "", apperror.ValidationFailed("title",
			fmt.Sprintf("title must be %d characters or less", MaxTitleLength))
	}
	if strings.TrimSpace(content) == "" {
		return "", "", apperror.ValidationFailed("content", "content is required")
	}
	return title, content, nil
}

// isDomainError reports whether err already carries an apperror kind and can
// be returned to the caller unchanged.
func isDomainError(err error) bool {
	var appErr *apperror.AppError
	return errors.As(err, &appErr)
}
