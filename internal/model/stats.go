package model

import "time"

// Stats are the global counters over the article/user relation.
type Stats struct {
	TotalArticles     int64      `json:"totalArticles"`
	TotalUsers        int64      `json:"totalUsers"`
	ActiveAuthors     int64      `json:"activeAuthors"`
	AvgContentLength  int64      `json:"avgContentLength"`
	NewestArticleDate *time.Time `json:"newestArticleDate"`
	OldestArticleDate *time.Time `json:"oldestArticleDate"`
}

// AuthorStats aggregates one author's articles.
type AuthorStats struct {
	AuthorID           string     `json:"authorId"`
	AuthorName         *string    `json:"authorName"`
	ArticleCount       int64      `json:"articleCount"`
	TotalContentLength int64      `json:"totalContentLength"`
	LatestArticleDate  *time.Time `json:"latestArticleDate"`
}

// StatsReport is the result of a single aggregate read: global counters
// plus the per-author breakdown, taken from the same snapshot.
type StatsReport struct {
	Global  Stats         `json:"stats"`
	Authors []AuthorStats `json:"authors"`
}

// AuthorProfile is an author as shown in the with-authors feed.
type AuthorProfile struct {
	ID                 string     `json:"id"`
	Name               *string    `json:"name"`
	Email              *string    `json:"email"`
	ArticleCount       int64      `json:"articleCount"`
	LatestArticleDate  *time.Time `json:"latestArticleDate"`
	TotalContentLength int64      `json:"totalContentLength"`
}

// ArticleWithAuthor is one row of the with-authors feed.
type ArticleWithAuthor struct {
	ID        int64         `json:"id"`
	Title     string        `json:"title"`
	Content   string        `json:"content"`
	CreatedAt time.Time     `json:"createdAt"`
	UpdatedAt time.Time     `json:"updatedAt"`
	Author    AuthorProfile `json:"author"`
}

// ArticleFeed is a page of the with-authors feed. Stats is nil when the page
// is empty, because the global counters ride along on each returned row.
type ArticleFeed struct {
	Articles []ArticleWithAuthor `json:"articles"`
	Stats    *Stats              `json:"stats"`
}
