package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/sakif/wiki/internal/apperror"
	"github.com/sakif/wiki/internal/model"
	"github.com/sakif/wiki/internal/repository"
)

var _ repository.ArticleRepository = (*DB)(nil)

// Create inserts a new article. On success the caller's struct carries the
// generated ID and createdAt == updatedAt.
//
// author_id is a foreign key; an unknown author fails the insert and is
// reported as a validation error rather than a raw driver error.
func (db *DB) Create(ctx context.Context, article *model.Article) (err error) {
	ctx, span := db.startSpan(ctx, "ArticleRepository.Create", "INSERT")
	defer func() { endSpan(span, err) }()

	now := timestamp()
	article.CreatedAt = now
	article.UpdatedAt = now

	err = db.conn.QueryRowContext(ctx, db.dialect.rebind(
		`INSERT INTO articles (title, content, author_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 RETURNING id`),
		article.Title,
		article.Content,
		article.AuthorID,
		article.CreatedAt,
		article.UpdatedAt,
	).Scan(&article.ID)
	if err != nil {
		if isForeignKeyViolation(err) {
			return apperror.ValidationFailed("authorId",
				fmt.Sprintf("author %s does not exist", article.AuthorID))
		}
		return fmt.Errorf("sqldb: creating article: %w", err)
	}

	return nil
}

// GetByID loads one article with its author's display fields.
// The LEFT JOIN keeps the article readable when its author row is missing.
func (db *DB) GetByID(ctx context.Context, id int64) (_ *model.Article, err error) {
	ctx, span := db.startSpan(ctx, "ArticleRepository.GetByID", "SELECT")
	defer func() { endSpan(span, err) }()

	var (
		a                       model.Article
		authorName, authorEmail sql.NullString
		createdAt, updatedAt    nullTime
	)
	err = db.conn.QueryRowContext(ctx, db.dialect.rebind(
		`SELECT a.id, a.title, a.content, a.author_id, u.name, u.email,
		        a.created_at, a.updated_at
		 FROM articles a
		 LEFT JOIN "user" u ON u.id = a.author_id
		 WHERE a.id = ?`),
		id,
	).Scan(
		&a.ID, &a.Title, &a.Content, &a.AuthorID,
		&authorName, &authorEmail,
		&createdAt, &updatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("article", strconv.FormatInt(id, 10))
		}
		return nil, fmt.Errorf("sqldb: getting article %d: %w", id, err)
	}

	a.AuthorName = nullString(authorName)
	a.AuthorEmail = nullString(authorEmail)
	a.CreatedAt = createdAt.Time
	a.UpdatedAt = updatedAt.Time
	return &a, nil
}

// Update overwrites title and content of an article owned by article.AuthorID.
//
// article.UpdatedAt must hold the value last read from the store; the new
// updated_at is guaranteed to be strictly later. The author_id condition makes
// the ownership check and the write a single statement, so a row that changed
// hands or vanished since it was read reports NotFound instead of being written.
func (db *DB) Update(ctx context.Context, article *model.Article) (err error) {
	ctx, span := db.startSpan(ctx, "ArticleRepository.Update", "UPDATE")
	defer func() { endSpan(span, err) }()

	updatedAt := nextTimestamp(article.UpdatedAt)

	result, err := db.conn.ExecContext(ctx, db.dialect.rebind(
		`UPDATE articles
		 SET title = ?, content = ?, updated_at = ?
		 WHERE id = ? AND author_id = ?`),
		article.Title,
		article.Content,
		updatedAt,
		article.ID,
		article.AuthorID,
	)
	if err != nil {
		return fmt.Errorf("sqldb: updating article %d: %w", article.ID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqldb: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("article", strconv.FormatInt(article.ID, 10))
	}

	article.UpdatedAt = updatedAt
	return nil
}

// Delete permanently removes an article owned by authorID.
func (db *DB) Delete(ctx context.Context, id int64, authorID string) (err error) {
	ctx, span := db.startSpan(ctx, "ArticleRepository.Delete", "DELETE")
	defer func() { endSpan(span, err) }()

	result, err := db.conn.ExecContext(ctx, db.dialect.rebind(
		`DELETE FROM articles WHERE id = ? AND author_id = ?`),
		id,
		authorID,
	)
	if err != nil {
		return fmt.Errorf("sqldb: deleting article %d: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqldb: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("article", strconv.FormatInt(id, 10))
	}

	return nil
}

// ListLatest returns the newest articles first. Ties on created_at are broken
// by id so the order is stable.
func (db *DB) ListLatest(ctx context.Context, limit int) (_ []model.ArticleSummary, err error) {
	ctx, span := db.startSpan(ctx, "ArticleRepository.ListLatest", "SELECT")
	defer func() { endSpan(span, err) }()

	rows, err := db.conn.QueryContext(ctx, db.dialect.rebind(
		`SELECT a.id, a.title, a.author_id, u.name, a.created_at, a.updated_at
		 FROM articles a
		 LEFT JOIN "user" u ON u.id = a.author_id
		 ORDER BY a.created_at DESC, a.id DESC
		 LIMIT ?`),
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("sqldb: listing latest articles: %w", err)
	}
	defer rows.Close()

	return scanSummaries(rows, limit, false)
}

// Search matches title or content case-insensitively, Unicode included. The
// query is a plain substring.
func (db *DB) Search(ctx context.Context, query string, limit int) (_ []model.ArticleSummary, err error) {
	ctx, span := db.startSpan(ctx, "ArticleRepository.Search", "SELECT")
	defer func() { endSpan(span, err) }()

	pattern := searchPattern(query)

	rows, err := db.conn.QueryContext(ctx, db.dialect.rebind(
		`SELECT a.id, a.title, a.content, a.author_id, u.name, a.created_at, a.updated_at
		 FROM articles a
		 LEFT JOIN "user" u ON u.id = a.author_id
		 WHERE `+db.dialect.searchPredicate()+`
		 ORDER BY a.created_at DESC, a.id DESC
		 LIMIT ?`),
		pattern,
		pattern,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("sqldb: searching articles: %w", err)
	}
	defer rows.Close()

	return scanSummaries(rows, limit, true)
}

// ListByAuthor returns every article of one author, oldest first.
// Whether the author exists is the caller's question (see GetUserByID).
func (db *DB) ListByAuthor(ctx context.Context, authorID string) (_ []model.ArticleSummary, err error) {
	ctx, span := db.startSpan(ctx, "ArticleRepository.ListByAuthor", "SELECT")
	defer func() { endSpan(span, err) }()

	rows, err := db.conn.QueryContext(ctx, db.dialect.rebind(
		`SELECT a.id, a.title, a.author_id, u.name, a.created_at, a.updated_at
		 FROM articles a
		 LEFT JOIN "user" u ON u.id = a.author_id
		 WHERE a.author_id = ?
		 ORDER BY a.created_at ASC, a.id ASC`),
		authorID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqldb: listing articles of %s: %w", authorID, err)
	}
	defer rows.Close()

	return scanSummaries(rows, 0, false)
}

func scanSummaries(rows *sql.Rows, capHint int, withContent bool) ([]model.ArticleSummary, error) {
	summaries := make([]model.ArticleSummary, 0, capHint)

	for rows.Next() {
		var (
			s                    model.ArticleSummary
			authorName           sql.NullString
			createdAt, updatedAt nullTime
		)
		dest := []any{&s.ID, &s.Title}
		if withContent {
			dest = append(dest, &s.Content)
		}
		dest = append(dest, &s.AuthorID, &authorName, &createdAt, &updatedAt)

		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("sqldb: scanning article row: %w", err)
		}
		s.AuthorName = nullString(authorName)
		s.CreatedAt = createdAt.Time
		s.UpdatedAt = updatedAt.Time
		summaries = append(summaries, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqldb: iterating articles: %w", err)
	}

	return summaries, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
