package sqldb

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/sakif/wiki/internal/model"
	"github.com/sakif/wiki/internal/repository"
)

var _ repository.StatsRepository = (*DB)(nil)

// globalStatsSQL computes every global counter in one statement. AVG over an
// empty table is NULL, so it is coalesced to 0 rather than divided by zero.
const globalStatsSQL = `SELECT
	(SELECT COUNT(*) FROM articles) AS total_articles,
	(SELECT COUNT(*) FROM "user") AS total_users,
	(SELECT COUNT(DISTINCT author_id) FROM articles) AS active_authors,
	(SELECT COALESCE(CAST(ROUND(AVG(LENGTH(content))) AS BIGINT), 0) FROM articles) AS avg_content_length,
	(SELECT MAX(created_at) FROM articles) AS newest_article,
	(SELECT MIN(created_at) FROM articles) AS oldest_article`

// AggregateStats reads the global counters and the per-author breakdown inside
// one transaction so both come from the same snapshot. Two statements in
// total, regardless of how many authors or articles exist.
func (db *DB) AggregateStats(ctx context.Context) (_ *model.StatsReport, err error) {
	ctx, span := db.startSpan(ctx, "StatsRepository.AggregateStats", "SELECT")
	defer func() { endSpan(span, err) }()

	// SQLite's deferred transaction holds one read snapshot from its first
	// SELECT; Postgres needs REPEATABLE READ for the same guarantee.
	tx, err := db.conn.BeginTx(ctx, db.dialect.snapshotTx)
	if err != nil {
		return nil, fmt.Errorf("sqldb: beginning stats transaction: %w", err)
	}
	// Nothing is written, so rolling back ends it.
	defer tx.Rollback()

	report := &model.StatsReport{Authors: []model.AuthorStats{}}

	var newest, oldest nullTime
	err = tx.QueryRowContext(ctx, globalStatsSQL).Scan(
		&report.Global.TotalArticles,
		&report.Global.TotalUsers,
		&report.Global.ActiveAuthors,
		&report.Global.AvgContentLength,
		&newest,
		&oldest,
	)
	if err != nil {
		return nil, fmt.Errorf("sqldb: reading global stats: %w", err)
	}
	report.Global.NewestArticleDate = newest.ptr()
	report.Global.OldestArticleDate = oldest.ptr()

	rows, err := tx.QueryContext(ctx,
		`SELECT a.author_id, u.name, COUNT(*) AS article_count,
		        COALESCE(SUM(LENGTH(a.content)), 0) AS total_content_length,
		        MAX(a.created_at) AS latest_article_date
		 FROM articles a
		 LEFT JOIN "user" u ON u.id = a.author_id
		 GROUP BY a.author_id, u.name
		 ORDER BY article_count DESC, a.author_id ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("sqldb: reading author stats: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			as     model.AuthorStats
			name   sql.NullString
			latest nullTime
		)
		if err := rows.Scan(&as.AuthorID, &name, &as.ArticleCount, &as.TotalContentLength, &latest); err != nil {
			return nil, fmt.Errorf("sqldb: scanning author stats: %w", err)
		}
		as.AuthorName = nullString(name)
		as.LatestArticleDate = latest.ptr()
		report.Authors = append(report.Authors, as)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqldb: iterating author stats: %w", err)
	}

	return report, nil
}

// ListWithAuthors returns a page of articles, newest first, each with its
// author and that author's aggregates, plus the global counters, all from a
// single query. Per-author numbers come from one grouped CTE joined back to
// the page, never from per-row lookups.
func (db *DB) ListWithAuthors(ctx context.Context, opts repository.ListOptions) (_ *model.ArticleFeed, err error) {
	ctx, span := db.startSpan(ctx, "ArticleRepository.ListWithAuthors", "SELECT")
	defer func() { endSpan(span, err) }()

	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := opts.Offset
	if offset < 0 {
		offset = 0
	}

	rows, err := db.conn.QueryContext(ctx, db.dialect.rebind(
		`WITH author_stats AS (
			SELECT author_id,
			       COUNT(*) AS article_count,
			       MAX(created_at) AS latest_article_date,
			       SUM(LENGTH(content)) AS total_content_length
			FROM articles
			GROUP BY author_id
		),
		global_stats AS (`+globalStatsSQL+`)
		SELECT a.id, a.title, a.content, a.created_at, a.updated_at,
		       a.author_id, u.name, u.email,
		       COALESCE(ast.article_count, 0),
		       ast.latest_article_date,
		       COALESCE(ast.total_content_length, 0),
		       gs.total_articles, gs.total_users, gs.active_authors,
		       gs.avg_content_length, gs.newest_article, gs.oldest_article
		FROM articles a
		LEFT JOIN "user" u ON u.id = a.author_id
		LEFT JOIN author_stats ast ON ast.author_id = a.author_id
		CROSS JOIN global_stats gs
		ORDER BY a.created_at DESC, a.id DESC
		LIMIT ? OFFSET ?`),
		limit,
		offset,
	)
	if err != nil {
		return nil, fmt.Errorf("sqldb: listing articles with authors: %w", err)
	}
	defer rows.Close()

	feed := &model.ArticleFeed{Articles: make([]model.ArticleWithAuthor, 0, limit)}

	for rows.Next() {
		var (
			a                                model.ArticleWithAuthor
			g                                model.Stats
			name, email                      sql.NullString
			createdAt, updatedAt, authorLast nullTime
			newest, oldest                   nullTime
		)
		if err := rows.Scan(
			&a.ID, &a.Title, &a.Content, &createdAt, &updatedAt,
			&a.Author.ID, &name, &email,
			&a.Author.ArticleCount, &authorLast, &a.Author.TotalContentLength,
			&g.TotalArticles, &g.TotalUsers, &g.ActiveAuthors,
			&g.AvgContentLength, &newest, &oldest,
		); err != nil {
			return nil, fmt.Errorf("sqldb: scanning article with author: %w", err)
		}
		a.CreatedAt = createdAt.Time
		a.UpdatedAt = updatedAt.Time
		a.Author.Name = nullString(name)
		a.Author.Email = nullString(email)
		a.Author.LatestArticleDate = authorLast.ptr()
		feed.Articles = append(feed.Articles, a)

		if feed.Stats == nil {
			g.NewestArticleDate = newest.ptr()
			g.OldestArticleDate = oldest.ptr()
			feed.Stats = &g
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqldb: iterating articles with authors: %w", err)
	}

	return feed, nil
}
