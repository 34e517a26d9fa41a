// Package model defines the data structures used throughout the application.
package model

import "time"

// Article is a titled Markdown document owned by exactly one user.
//
// AuthorName and AuthorEmail come from a LEFT JOIN on the user table, so they
// are pointers: an article whose author row is gone still loads, with nulls.
type Article struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Content     string    `json:"content"`
	AuthorID    string    `json:"authorId"`
	AuthorName  *string   `json:"authorName"`
	AuthorEmail *string   `json:"authorEmail"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// ArticleSummary is the row shape used by list and search results.
// Content is only populated by search.
type ArticleSummary struct {
	ID         int64     `json:"id"`
	Title      string    `json:"title"`
	Content    string    `json:"content,omitempty"`
	AuthorID   string    `json:"authorId"`
	AuthorName *string   `json:"authorName"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}
