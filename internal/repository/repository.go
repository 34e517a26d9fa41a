// Package repository declares the storage contracts the service layer depends on.
// The only implementation lives in repository/sqldb.
package repository

import (
	"context"

	"github.com/sakif/wiki/internal/model"
)

type ListOptions struct {
	Limit  int
	Offset int
}

// ArticleRepository reads and writes the articles table.
//
// Update and Delete take the owner's ID and only touch a row whose author_id
// matches, so ownership is re-checked inside the same statement that writes.
type ArticleRepository interface {
	Create(ctx context.Context, article *model.Article) error
	GetByID(ctx context.Context, id int64) (*model.Article, error)
	Update(ctx context.Context, article *model.Article) error
	Delete(ctx context.Context, id int64, authorID string) error
	ListLatest(ctx context.Context, limit int) ([]model.ArticleSummary, error)
	Search(ctx context.Context, query string, limit int) ([]model.ArticleSummary, error)
	ListByAuthor(ctx context.Context, authorID string) ([]model.ArticleSummary, error)
	ListWithAuthors(ctx context.Context, opts ListOptions) (*model.ArticleFeed, error)
}

// StatsRepository computes read-only aggregates.
type StatsRepository interface {
	AggregateStats(ctx context.Context) (*model.StatsReport, error)
}

type UserRepository interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	UpsertGitHubUser(ctx context.Context, user *model.User) error
}
